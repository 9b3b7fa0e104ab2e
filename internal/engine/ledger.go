package engine

import (
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"
)

func truncateName(name string) string {
	name = strings.TrimSpace(name)
	if utf8.RuneCountInString(name) <= MaxNameLength {
		return name
	}
	return string([]rune(name)[:MaxNameLength])
}

func addPlayer(s *State, name string) ([]Event, error) {
	if s.Locked {
		return nil, ErrLockedGame
	}
	if len(s.Players) >= MaxPlayers {
		return nil, ErrRosterFull
	}
	name = truncateName(name)
	if name == "" {
		return nil, ErrEmptyName
	}

	s.Players = append(s.Players, name)
	for i := range s.Rounds {
		s.Rounds[i] = append(s.Rounds[i], "")
	}
	// Round count tracks player count while the roster is still open.
	for len(s.Rounds) < len(s.Players) {
		s.Rounds = append(s.Rounds, make([]string, len(s.Players)))
	}
	return []Event{{Type: EvtLedgerChanged}}, nil
}

func removePlayer(s *State, idx int) ([]Event, error) {
	if s.Started {
		return nil, ErrGameAlreadyStarted
	}
	if idx < 0 || idx >= len(s.Players) {
		return nil, ErrNoSuchPlayer
	}
	if len(s.Players) <= MinPlayers {
		return nil, ErrMinPlayersViolation
	}

	s.Players = append(s.Players[:idx], s.Players[idx+1:]...)
	for i, row := range s.Rounds {
		s.Rounds[i] = append(row[:idx], row[idx+1:]...)
	}
	for len(s.Rounds) > len(s.Players) {
		trimmed := len(s.Rounds) - 1
		s.Rounds = s.Rounds[:trimmed]
		delete(s.RoundWinners, trimmed)
		delete(s.RoundPenalties, trimmed)
		delete(s.TurnHistory, trimmed)
		for k := range s.TileDetails {
			if k.Round == trimmed {
				delete(s.TileDetails, k)
			}
		}
	}

	// Splice semantics: whatever referenced the removed column is purged,
	// references to higher columns shift down by one.
	details := make(map[CellKey]TileCounts, len(s.TileDetails))
	for k, v := range s.TileDetails {
		switch {
		case k.Player == idx:
		case k.Player > idx:
			details[CellKey{Round: k.Round, Player: k.Player - 1}] = v
		default:
			details[k] = v
		}
	}
	s.TileDetails = details

	for r, w := range s.RoundWinners {
		switch {
		case w == idx:
			delete(s.RoundWinners, r)
		case w > idx:
			s.RoundWinners[r] = w - 1
		}
	}
	for r, perPlayer := range s.RoundPenalties {
		s.RoundPenalties[r] = shiftIntMap(perPlayer, idx)
	}
	for r, perPlayer := range s.TurnHistory {
		shifted := make(map[int][]TurnEntry, len(perPlayer))
		for p, entries := range perPlayer {
			switch {
			case p == idx:
			case p > idx:
				shifted[p-1] = entries
			default:
				shifted[p] = entries
			}
		}
		s.TurnHistory[r] = shifted
	}
	if s.TurnIdx > idx {
		s.TurnIdx--
	}
	if s.TurnIdx >= len(s.Players) {
		s.TurnIdx = 0
	}
	return []Event{{Type: EvtLedgerChanged}}, nil
}

func shiftIntMap(m map[int]int, removed int) map[int]int {
	out := make(map[int]int, len(m))
	for p, v := range m {
		switch {
		case p == removed:
		case p > removed:
			out[p-1] = v
		default:
			out[p] = v
		}
	}
	return out
}

// movePlayer swaps a player with an adjacent one. Applying it twice with
// opposite deltas restores the original arrangement.
func movePlayer(s *State, idx, delta int) ([]Event, error) {
	if s.Started {
		return nil, ErrGameAlreadyStarted
	}
	if idx < 0 || idx >= len(s.Players) {
		return nil, ErrNoSuchPlayer
	}
	to := idx + delta
	if to < 0 || to >= len(s.Players) || to == idx {
		return nil, nil
	}

	s.Players[idx], s.Players[to] = s.Players[to], s.Players[idx]
	for _, row := range s.Rounds {
		row[idx], row[to] = row[to], row[idx]
	}
	for r := range s.Rounds {
		k1 := CellKey{Round: r, Player: idx}
		k2 := CellKey{Round: r, Player: to}
		v1, ok1 := s.TileDetails[k1]
		v2, ok2 := s.TileDetails[k2]
		delete(s.TileDetails, k1)
		delete(s.TileDetails, k2)
		if ok1 {
			s.TileDetails[k2] = v1
		}
		if ok2 {
			s.TileDetails[k1] = v2
		}
	}
	for r, w := range s.RoundWinners {
		if w == idx {
			s.RoundWinners[r] = to
		} else if w == to {
			s.RoundWinners[r] = idx
		}
	}
	return []Event{{Type: EvtLedgerChanged}}, nil
}

func renamePlayer(s *State, idx int, name string) ([]Event, error) {
	if idx < 0 || idx >= len(s.Players) {
		return nil, ErrNoSuchPlayer
	}
	name = truncateName(name)
	if name == "" {
		return nil, ErrEmptyName
	}
	s.Players[idx] = name
	return []Event{{Type: EvtLedgerChanged}}, nil
}

// guardCellEntry rejects score entry outside the active or edited round.
func guardCellEntry(s *State, round, player int) error {
	if !s.Started && s.EditingIdx == nil {
		return ErrGameNotStarted
	}
	if round < 0 || round >= len(s.Rounds) {
		return ErrNoSuchRound
	}
	if player < 0 || player >= len(s.Players) {
		return ErrNoSuchPlayer
	}
	if round != ActiveRound(s) {
		return ErrRoundLocked
	}
	return nil
}

func isDigits(v string) bool {
	if v == "" {
		return false
	}
	for _, r := range v {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func setCell(s *State, round, player int, raw string) ([]Event, error) {
	if err := guardCellEntry(s, round, player); err != nil {
		return nil, err
	}
	raw = strings.TrimSpace(raw)
	// Typed digits are a loss by convention; only an explicit sign is kept.
	if isDigits(raw) {
		raw = "-" + raw
	}
	s.Rounds[round][player] = raw
	// A manual value supersedes any stored tile breakdown for this cell.
	delete(s.TileDetails, CellKey{Round: round, Player: player})
	recalcWinner(s, round, player)
	return []Event{{Type: EvtLedgerChanged}}, nil
}

func setTileDetail(s *State, round, player int, counts []int) ([]Event, error) {
	if err := guardCellEntry(s, round, player); err != nil {
		return nil, err
	}
	if len(counts) != TileKinds {
		return nil, ErrBadTileCounts
	}
	var tc TileCounts
	for i, n := range counts {
		if n < 0 {
			return nil, ErrBadTileCounts
		}
		tc[i] = n
	}

	s.Rounds[round][player] = strconv.Itoa(tc.Score())
	s.TileDetails[CellKey{Round: round, Player: player}] = tc
	recalcWinner(s, round, player)
	return []Event{{Type: EvtLedgerChanged}}, nil
}

func declareWinner(s *State, round, player int) ([]Event, error) {
	if err := guardCellEntry(s, round, player); err != nil {
		return nil, err
	}
	if prev, ok := s.RoundWinners[round]; ok && prev != player {
		s.Rounds[round][prev] = ""
		delete(s.TileDetails, CellKey{Round: round, Player: prev})
	}
	s.RoundWinners[round] = player
	// The winner's cell is always derived, never typed.
	delete(s.TileDetails, CellKey{Round: round, Player: player})
	recalcWinner(s, round, -1)
	return []Event{{Type: EvtLedgerChanged}}, nil
}

func clearWinner(s *State, round, player int) ([]Event, error) {
	if err := guardCellEntry(s, round, player); err != nil {
		return nil, err
	}
	if w, ok := s.RoundWinners[round]; !ok || w != player {
		return nil, nil
	}
	delete(s.RoundWinners, round)
	s.Rounds[round][player] = ""
	delete(s.TileDetails, CellKey{Round: round, Player: player})
	return []Event{{Type: EvtLedgerChanged}}, nil
}

// recalcWinner rewrites the declared winner's cell as the negative sum of
// every other numeric cell in the round. changed == the winner (or the
// winner's own edit path) skips the recompute; pass -1 to force it.
func recalcWinner(s *State, round, changed int) {
	w, ok := s.RoundWinners[round]
	if !ok || round < 0 || round >= len(s.Rounds) {
		return
	}
	if changed == w {
		return
	}
	sumOthers := 0
	for i, v := range s.Rounds[round] {
		if i == w || v == "" {
			continue
		}
		if n, err := strconv.Atoi(v); err == nil {
			sumOthers += n
		}
	}
	s.Rounds[round][w] = strconv.Itoa(-sumOthers)
}

type ValidationKind string

const (
	// RoundBalanced: every cell filled and the sum is exactly zero.
	RoundBalanced ValidationKind = "balanced"
	// RoundNeedsWinner: exactly one empty cell; its owner is the inferable
	// winner, pending confirmation.
	RoundNeedsWinner ValidationKind = "needs-winner"
)

type RoundValidation struct {
	Kind          ValidationKind
	Proposed      int // inferable winner (needs-winner only)
	ProposedScore int // derived score for the proposed winner
}

// ValidateRound classifies a round for closure. Imbalance, ambiguity and
// non-numeric entries come back as errors; a clean or winner-inferable
// round comes back as a RoundValidation.
func ValidateRound(s *State, round int) (RoundValidation, error) {
	if round < 0 || round >= len(s.Rounds) {
		return RoundValidation{}, ErrNoSuchRound
	}
	var empty []int
	sum, pos, neg := 0, 0, 0
	for i, v := range s.Rounds[round] {
		if v == "" {
			empty = append(empty, i)
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return RoundValidation{}, ErrInvalidValues
		}
		sum += n
		if n > 0 {
			pos += n
		} else {
			neg += n
		}
	}

	switch len(empty) {
	case 0:
		if sum != 0 {
			return RoundValidation{}, &RoundImbalanceError{Sum: sum, Pos: pos, Neg: neg}
		}
		return RoundValidation{Kind: RoundBalanced}, nil
	case 1:
		return RoundValidation{Kind: RoundNeedsWinner, Proposed: empty[0], ProposedScore: -sum}, nil
	default:
		return RoundValidation{}, ErrAmbiguousRound
	}
}

// Totals sums every numeric cell per player. Empty and non-numeric cells
// contribute zero.
func Totals(s *State) []int {
	sums := make([]int, len(s.Players))
	for _, row := range s.Rounds {
		for i, v := range row {
			if i >= len(sums) {
				break
			}
			if n, err := strconv.Atoi(v); err == nil {
				sums[i] += n
			}
		}
	}
	return sums
}

// Ranking orders players by total descending; ties keep roster order.
func Ranking(s *State) []Standing {
	totals := Totals(s)
	out := make([]Standing, len(totals))
	for i, t := range totals {
		out[i] = Standing{Player: i, Name: s.Players[i], Total: t}
	}
	sort.SliceStable(out, func(a, b int) bool {
		if out[a].Total != out[b].Total {
			return out[a].Total > out[b].Total
		}
		return out[a].Player < out[b].Player
	})
	return out
}
