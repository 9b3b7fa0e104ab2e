package engine

import (
	"fmt"
	"time"
)

// Rule presets: turn duration and the tiles drawn on expiry.
func ruleDuration(rule TimeRule, customMinutes int) (int, error) {
	switch rule {
	case RuleOfficial:
		return 60, nil
	case RuleAlternative:
		return 120, nil
	case RuleImpatient:
		return 30, nil
	case RuleCustom:
		if customMinutes < 1 || customMinutes >= 60 {
			return 0, ErrInvalidDuration
		}
		return customMinutes * 60, nil
	default:
		return 0, ErrInvalidDuration
	}
}

func ruleDraws(rule TimeRule) int {
	if rule == RuleOfficial {
		return 3
	}
	return 1
}

func RuleLabel(rule TimeRule) string {
	switch rule {
	case RuleOfficial:
		return "Official"
	case RuleAlternative:
		return "Alternative"
	case RuleImpatient:
		return "Impatient"
	default:
		return "Custom"
	}
}

func configureClock(s *State, cmd Command) ([]Event, error) {
	seconds, err := ruleDuration(cmd.Rule, cmd.CustomMinutes)
	if err != nil {
		return nil, err
	}
	s.TimeRule = cmd.Rule
	s.TurnAutoRotate = cmd.AutoRotate
	s.ConfirmExpiry = cmd.ConfirmExpiry
	s.Clock.DurationSec = seconds
	s.Clock.Sound = cmd.Sound
	s.Clock.Running = false
	s.Clock.RemainingSec = seconds
	return []Event{{Type: EvtTurnChanged}}, nil
}

// startClock resumes (or restarts, after an expiry) the countdown and opens
// the current player's turn in the history. Starting a running clock is a
// no-op, which keeps rapid toggles from stacking tickers upstream.
func startClock(s *State, at time.Time) ([]Event, error) {
	if s.Clock.DurationSec == 0 || s.Clock.Running {
		return nil, nil
	}
	if s.Clock.RemainingSec <= 0 {
		s.Clock.RemainingSec = s.Clock.DurationSec
	}
	s.Clock.Running = true
	openTurn(s, ActiveRound(s), s.TurnIdx, at)
	return []Event{{Type: EvtTurnChanged}}, nil
}

// stopClock pauses the countdown; remaining time is kept. Idempotent.
func stopClock(s *State) ([]Event, error) {
	if !s.Clock.Running {
		return nil, nil
	}
	s.Clock.Running = false
	return []Event{{Type: EvtTurnChanged}}, nil
}

func tick(s *State, at time.Time) ([]Event, error) {
	if !s.Clock.Running {
		return nil, nil
	}
	s.Clock.RemainingSec--
	if s.Clock.RemainingSec > 0 {
		return nil, nil
	}
	s.Clock.Running = false
	s.Clock.RemainingSec = s.Clock.DurationSec
	return expire(s, at), nil
}

// expire applies the configured expiry rule. The affected round is fixed
// once up front: the round under edit if any, else the cursor round.
func expire(s *State, at time.Time) []Event {
	round := ActiveRound(s)
	player := s.TurnIdx
	draws := ruleDraws(s.TimeRule)
	label := RuleLabel(s.TimeRule)

	resolution := PenaltyConfirmed
	if s.ConfirmExpiry {
		resolution = PenaltyPending
	}
	closeTurn(s, round, player, at, "expiry", draws, resolution)

	reverted := false
	if !s.ConfirmExpiry {
		addPenalty(s, round, player, draws)
		// Tiles already entered for this cell go back to the pool.
		if _, ok := s.TileDetails[CellKey{Round: round, Player: player}]; ok {
			delete(s.TileDetails, CellKey{Round: round, Player: player})
			reverted = true
		}
	}

	rotate(s, at)
	note := ""
	if reverted {
		note = " Tiles returned."
	}
	s.logEvent(at, fmt.Sprintf("[Round %d] %s ran out of time (%s). Penalty: +%d tile(s).%s Next: %s.",
		round+1, s.playerName(player), label, draws, note, s.playerName(s.TurnIdx)))

	events := []Event{
		{Type: EvtExpiry, Round: round, Player: player, Penalty: draws, RuleLabel: label},
		{Type: EvtTurnChanged},
		{Type: EvtLedgerChanged},
	}
	// With confirmation required the auto-restart waits for the resolution,
	// so a contested expiry never leaves the next player's clock burning.
	if s.TurnAutoRotate && resolution == PenaltyConfirmed {
		s.Clock.RemainingSec = s.Clock.DurationSec
		s.Clock.Running = true
		openTurn(s, ActiveRound(s), s.TurnIdx, at)
	}
	return events
}

func addPenalty(s *State, round, player, draws int) {
	if s.RoundPenalties == nil {
		s.RoundPenalties = map[int]map[int]int{}
	}
	if s.RoundPenalties[round] == nil {
		s.RoundPenalties[round] = map[int]int{}
	}
	s.RoundPenalties[round][player] += draws
}

// rotate ends the current player's open turn, if any, and hands the
// rotation to the next seat.
func rotate(s *State, at time.Time) {
	if len(s.Players) == 0 {
		return
	}
	closeTurn(s, ActiveRound(s), s.TurnIdx, at, "rotate", 0, PenaltyConfirmed)
	s.TurnIdx = (s.TurnIdx + 1) % len(s.Players)
}

// skipTurn rotates without penalty and resets the countdown; the clock
// restarts if it was running or auto-rotate is on.
func skipTurn(s *State, at time.Time) ([]Event, error) {
	if len(s.Players) == 0 {
		return nil, ErrNoSuchPlayer
	}
	wasRunning := s.Clock.Running
	closeTurn(s, ActiveRound(s), s.TurnIdx, at, "skip", 0, PenaltyConfirmed)
	rotate(s, at)
	s.Clock.Running = false
	s.Clock.RemainingSec = s.Clock.DurationSec
	if wasRunning || s.TurnAutoRotate {
		s.Clock.Running = true
		openTurn(s, ActiveRound(s), s.TurnIdx, at)
	}
	s.logEvent(at, fmt.Sprintf("Turn skipped; next up %s.", s.playerName(s.TurnIdx)))
	return []Event{{Type: EvtTurnChanged}}, nil
}
