package engine

import "time"

// openTurn appends an open history entry for (round, player) unless one is
// already open.
func openTurn(s *State, round, player int, at time.Time) {
	if s.TurnHistory == nil {
		s.TurnHistory = map[int]map[int][]TurnEntry{}
	}
	if s.TurnHistory[round] == nil {
		s.TurnHistory[round] = map[int][]TurnEntry{}
	}
	entries := s.TurnHistory[round][player]
	if n := len(entries); n > 0 && entries[n-1].open() {
		return
	}
	s.TurnHistory[round][player] = append(entries, TurnEntry{
		Start:            at,
		PenaltyConfirmed: PenaltyConfirmed,
	})
}

// closeTurn resolves the open entry for (round, player). With a penalty and
// no open entry it appends a zero-duration closed entry instead, so an
// expiry is never lost just because the turn start was not recorded.
func closeTurn(s *State, round, player int, at time.Time, reason string, penalty int, res PenaltyState) {
	entries := s.TurnHistory[round][player]
	if n := len(entries); n > 0 && entries[n-1].open() {
		e := &s.TurnHistory[round][player][n-1]
		e.End = at
		e.DurationSec = int(at.Sub(e.Start) / time.Second)
		e.Reason = reason
		e.PenaltyApplied = penalty
		e.PenaltyConfirmed = res
		return
	}
	if penalty == 0 {
		return
	}
	if s.TurnHistory == nil {
		s.TurnHistory = map[int]map[int][]TurnEntry{}
	}
	if s.TurnHistory[round] == nil {
		s.TurnHistory[round] = map[int][]TurnEntry{}
	}
	s.TurnHistory[round][player] = append(entries, TurnEntry{
		Start:            at,
		End:              at,
		Reason:           reason,
		PenaltyApplied:   penalty,
		PenaltyConfirmed: res,
	})
}

// confirmPendingPenalty resolves a staged expiry penalty. Accepting books
// the tiles into the penalty record and discards any tile detail the player
// had entered for that round; rejecting only marks the entry. Either way,
// an auto-rotate restart held back at expiry happens now.
func confirmPendingPenalty(s *State, round, player, entry int, accepted bool, at time.Time) ([]Event, error) {
	entries := s.TurnHistory[round][player]
	if entry < 0 || entry >= len(entries) || entries[entry].PenaltyConfirmed != PenaltyPending {
		return nil, ErrNoSuchEntry
	}
	e := &s.TurnHistory[round][player][entry]
	if accepted {
		e.PenaltyConfirmed = PenaltyConfirmed
		addPenalty(s, round, player, e.PenaltyApplied)
		delete(s.TileDetails, CellKey{Round: round, Player: player})
	} else {
		e.PenaltyConfirmed = PenaltyRejected
	}

	events := []Event{{Type: EvtLedgerChanged}}
	if s.TurnAutoRotate && !s.Clock.Running && s.Clock.DurationSec > 0 {
		s.Clock.RemainingSec = s.Clock.DurationSec
		s.Clock.Running = true
		openTurn(s, ActiveRound(s), s.TurnIdx, at)
		events = append(events, Event{Type: EvtTurnChanged})
	}
	return events, nil
}

// TurnSummary aggregates one player's turn history across all rounds.
type TurnSummary struct {
	Turns          int     `json:"turns"`
	TotalSec       int     `json:"totalSec"`
	AvgSec         float64 `json:"avgSec"`
	PenaltyTiles   int     `json:"penaltyTiles"`
	ConfirmedTiles int     `json:"confirmedTiles"`
	PendingTiles   int     `json:"pendingTiles"`
}

// Summary is a pure read; rejected penalties do not count toward totals.
func Summary(s *State, player int) TurnSummary {
	var sum TurnSummary
	for _, perPlayer := range s.TurnHistory {
		for _, e := range perPlayer[player] {
			if e.open() {
				continue
			}
			sum.Turns++
			sum.TotalSec += e.DurationSec
			switch e.PenaltyConfirmed {
			case PenaltyConfirmed:
				sum.ConfirmedTiles += e.PenaltyApplied
			case PenaltyPending:
				sum.PendingTiles += e.PenaltyApplied
			}
		}
	}
	sum.PenaltyTiles = sum.ConfirmedTiles + sum.PendingTiles
	if sum.Turns > 0 {
		sum.AvgSec = float64(sum.TotalSec) / float64(sum.Turns)
	}
	return sum
}
