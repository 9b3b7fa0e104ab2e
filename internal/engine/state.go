package engine

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	MinPlayers    = 2
	MaxPlayers    = 6
	MaxNameLength = 20

	// Joker counts as 30 points; faces 1-13 count their face value.
	JokerValue = 30
	TileKinds  = 14

	maxEventLog = 200
)

type Phase string

const (
	PhaseNotStarted Phase = "not-started"
	PhaseInProgress Phase = "in-progress"
	PhaseFinished   Phase = "finished"
)

type TimeRule string

const (
	RuleOfficial    TimeRule = "official"
	RuleAlternative TimeRule = "alternative"
	RuleImpatient   TimeRule = "impatient"
	RuleCustom      TimeRule = "custom"
)

// CellKey addresses one score cell: one player's entry in one round.
// It marshals as "round-player" so persisted blobs keep the key format
// older saves used for tile details.
type CellKey struct {
	Round  int
	Player int
}

func (k CellKey) MarshalText() ([]byte, error) {
	return []byte(strconv.Itoa(k.Round) + "-" + strconv.Itoa(k.Player)), nil
}

func (k *CellKey) UnmarshalText(b []byte) error {
	r, p, ok := strings.Cut(string(b), "-")
	if !ok {
		return fmt.Errorf("bad cell key %q", string(b))
	}
	ri, err := strconv.Atoi(r)
	if err != nil {
		return fmt.Errorf("bad cell key %q", string(b))
	}
	pi, err := strconv.Atoi(p)
	if err != nil {
		return fmt.Errorf("bad cell key %q", string(b))
	}
	k.Round, k.Player = ri, pi
	return nil
}

// TileCounts holds the tile breakdown behind a loser's score: indices 0-12
// are counts of faces 1-13, index 13 counts jokers.
type TileCounts [TileKinds]int

// Score is the negative weighted sum of the counts.
func (c TileCounts) Score() int {
	sum := 0
	for i, n := range c {
		if n <= 0 {
			continue
		}
		if i == TileKinds-1 {
			sum += n * JokerValue
		} else {
			sum += n * (i + 1)
		}
	}
	return -sum
}

type PenaltyState string

const (
	PenaltyPending   PenaltyState = "pending"
	PenaltyConfirmed PenaltyState = "confirmed"
	PenaltyRejected  PenaltyState = "rejected"
)

// TurnEntry is one line of the append-only turn log. After a turn ends the
// only field that may still change is PenaltyConfirmed, and only from
// pending to confirmed/rejected.
type TurnEntry struct {
	Start            time.Time    `json:"start"`
	End              time.Time    `json:"end"`
	DurationSec      int          `json:"duration"`
	PenaltyApplied   int          `json:"penaltyApplied"`
	PenaltyConfirmed PenaltyState `json:"penaltyConfirmed"`
	Reason           string       `json:"reason"`
}

func (e TurnEntry) open() bool { return e.End.IsZero() }

type LogEntry struct {
	TS  time.Time `json:"ts"`
	Msg string    `json:"msg"`
}

// Clock is the turn countdown. Duration and the sound flag persist in the
// timer-settings blob; remaining/running are runtime only.
type Clock struct {
	DurationSec  int  `json:"-"`
	RemainingSec int  `json:"-"`
	Running      bool `json:"-"`
	Sound        bool `json:"-"`
}

// State is the whole serializable session root. Score cells are strings:
// "" means not entered yet, otherwise a signed integer literal.
type State struct {
	Players      []string               `json:"players"`
	Rounds       [][]string             `json:"rounds"`
	CurrIdx      int                    `json:"currIdx"`
	EditingIdx   *int                   `json:"editingIdx"`
	Locked       bool                   `json:"locked"`
	Started      bool                   `json:"started"`
	TileDetails  map[CellKey]TileCounts `json:"tileDetails"`
	RoundWinners map[int]int            `json:"roundWinners"`

	TurnIdx        int                         `json:"turnIdx"`
	TimeRule       TimeRule                    `json:"timeRule"`
	TurnAutoRotate bool                        `json:"turnAutoRotate"`
	ConfirmExpiry  bool                        `json:"confirmExpiry"`
	RoundPenalties map[int]map[int]int         `json:"roundPenalties"`
	TurnHistory    map[int]map[int][]TurnEntry `json:"turnHistory"`
	Events         []LogEntry                  `json:"events"`

	Clock Clock `json:"-"`
}

func NewState() State {
	return State{
		Players:        []string{},
		Rounds:         [][]string{},
		EditingIdx:     nil,
		TileDetails:    map[CellKey]TileCounts{},
		RoundWinners:   map[int]int{},
		TimeRule:       RuleAlternative,
		TurnAutoRotate: true,
		RoundPenalties: map[int]map[int]int{},
		TurnHistory:    map[int]map[int][]TurnEntry{},
		Events:         []LogEntry{},
		Clock:          Clock{DurationSec: 120, RemainingSec: 120, Sound: true},
	}
}

// ActiveRound is the round score entry currently targets: the round under
// retroactive edit if one is set, the cursor round otherwise.
func ActiveRound(s *State) int {
	if s.EditingIdx != nil {
		return *s.EditingIdx
	}
	return s.CurrIdx
}

func PhaseOf(s *State) Phase {
	if !s.Started {
		return PhaseNotStarted
	}
	if s.CurrIdx >= len(s.Rounds) {
		return PhaseFinished
	}
	return PhaseInProgress
}

func (s *State) logEvent(at time.Time, msg string) {
	s.Events = append([]LogEntry{{TS: at, Msg: msg}}, s.Events...)
	if len(s.Events) > maxEventLog {
		s.Events = s.Events[:maxEventLog]
	}
}

func (s *State) playerName(idx int) string {
	if idx >= 0 && idx < len(s.Players) {
		return s.Players[idx]
	}
	return fmt.Sprintf("Player %d", idx+1)
}

// --- persistence shapes ---

// gameBlob mirrors State's persisted fields with pointers where an absent
// field must be told apart from a zero value on load.
type gameBlob struct {
	Players      []string               `json:"players"`
	Rounds       [][]string             `json:"rounds"`
	CurrIdx      *int                   `json:"currIdx"`
	EditingIdx   *int                   `json:"editingIdx"`
	Locked       *bool                  `json:"locked"`
	Started      *bool                  `json:"started"`
	TileDetails  map[CellKey]TileCounts `json:"tileDetails"`
	RoundWinners map[int]int            `json:"roundWinners"`

	TurnIdx        *int                        `json:"turnIdx"`
	TimeRule       *TimeRule                   `json:"timeRule"`
	TurnAutoRotate *bool                       `json:"turnAutoRotate"`
	ConfirmExpiry  *bool                       `json:"confirmExpiry"`
	RoundPenalties map[int]map[int]int         `json:"roundPenalties"`
	TurnHistory    map[int]map[int][]TurnEntry `json:"turnHistory"`
	Events         []LogEntry                  `json:"events"`
}

type timerBlob struct {
	DurationSec *int  `json:"d"`
	Sound       *bool `json:"s"`
}

// MarshalGame serializes the ledger/rotation/history blob.
func MarshalGame(s *State) ([]byte, error) {
	return json.Marshal(s)
}

// MarshalTimer serializes the timer-settings blob.
func MarshalTimer(s *State) ([]byte, error) {
	return json.Marshal(timerBlob{DurationSec: &s.Clock.DurationSec, Sound: &s.Clock.Sound})
}

// LoadState rebuilds a session from the two persisted blobs. Either blob may
// be nil or malformed; missing fields get defaults and a missing "started"
// flag is inferred from whether the roster was locked or any score exists.
func LoadState(gameJSON, timerJSON []byte) State {
	s := NewState()

	var gb gameBlob
	if len(gameJSON) > 0 && json.Unmarshal(gameJSON, &gb) == nil {
		if gb.Players != nil {
			s.Players = gb.Players
		}
		if gb.Rounds != nil {
			s.Rounds = gb.Rounds
		}
		if gb.CurrIdx != nil && *gb.CurrIdx >= 0 {
			s.CurrIdx = *gb.CurrIdx
		}
		s.EditingIdx = gb.EditingIdx
		if gb.Locked != nil {
			s.Locked = *gb.Locked
		}
		if gb.TileDetails != nil {
			s.TileDetails = gb.TileDetails
		}
		if gb.RoundWinners != nil {
			s.RoundWinners = gb.RoundWinners
		}
		if gb.Started != nil {
			s.Started = *gb.Started
		} else {
			inferred := s.Locked ||
				(len(s.Rounds) > 0 && (s.CurrIdx > 0 || roundHasEntry(s.Rounds[0])))
			s.Started = inferred
			if inferred {
				s.Locked = true
			}
		}
		if gb.TurnIdx != nil && *gb.TurnIdx >= 0 {
			s.TurnIdx = *gb.TurnIdx
		}
		if gb.TurnAutoRotate != nil {
			s.TurnAutoRotate = *gb.TurnAutoRotate
		}
		if gb.ConfirmExpiry != nil {
			s.ConfirmExpiry = *gb.ConfirmExpiry
		}
		if gb.RoundPenalties != nil {
			s.RoundPenalties = gb.RoundPenalties
		}
		if gb.TurnHistory != nil {
			s.TurnHistory = gb.TurnHistory
		}
		if gb.Events != nil {
			s.Events = gb.Events
		}
		if gb.TimeRule != nil {
			s.TimeRule = *gb.TimeRule
		}
	}

	var tb timerBlob
	if len(timerJSON) > 0 && json.Unmarshal(timerJSON, &tb) == nil {
		minutes := 2
		if tb.DurationSec != nil {
			minutes = (*tb.DurationSec + 30) / 60
		}
		if minutes < 1 {
			minutes = 1
		}
		if minutes > 59 {
			minutes = 59
		}
		s.Clock.DurationSec = minutes * 60
		s.Clock.Sound = tb.Sound == nil || *tb.Sound
	}
	s.Clock.RemainingSec = s.Clock.DurationSec

	// Rule absent from an old save: infer it from the stored duration.
	if gb.TimeRule == nil {
		switch s.Clock.DurationSec {
		case 60:
			s.TimeRule = RuleOfficial
		case 120:
			s.TimeRule = RuleAlternative
		default:
			s.TimeRule = RuleCustom
		}
	}

	// A saved row may be shorter than the roster if the blob was written by
	// a buggy client; repad so every round has one cell per player.
	for i, row := range s.Rounds {
		for len(row) < len(s.Players) {
			row = append(row, "")
		}
		if len(row) > len(s.Players) {
			row = row[:len(s.Players)]
		}
		s.Rounds[i] = row
	}

	// Saved cross-references can point outside the restored matrix (a blob
	// written by a buggy or older client). Drop them instead of letting a
	// later write index past the roster.
	if s.EditingIdx != nil && (*s.EditingIdx < 0 || *s.EditingIdx >= len(s.Rounds)) {
		s.EditingIdx = nil
	}
	if s.CurrIdx > len(s.Rounds) {
		s.CurrIdx = len(s.Rounds)
	}
	for round, winner := range s.RoundWinners {
		if round < 0 || round >= len(s.Rounds) || winner < 0 || winner >= len(s.Players) {
			delete(s.RoundWinners, round)
		}
	}
	for key := range s.TileDetails {
		if key.Round < 0 || key.Round >= len(s.Rounds) || key.Player < 0 || key.Player >= len(s.Players) {
			delete(s.TileDetails, key)
		}
	}

	if len(s.Players) > 0 {
		s.TurnIdx %= len(s.Players)
	} else {
		s.TurnIdx = 0
	}
	return s
}

func roundHasEntry(row []string) bool {
	for _, v := range row {
		if v != "" {
			return true
		}
	}
	return false
}
