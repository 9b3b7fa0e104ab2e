package engine

import "strconv"

func startGame(s *State) ([]Event, error) {
	if s.Started {
		return nil, nil
	}
	if len(s.Players) < MinPlayers {
		return nil, ErrInsufficientPlayers
	}
	s.Started = true
	s.Locked = true
	return []Event{{Type: EvtLedgerChanged}}, nil
}

func resetGame(s *State) ([]Event, error) {
	clock := s.Clock
	*s = NewState()
	s.Clock = clock
	s.Clock.Running = false
	s.Clock.RemainingSec = s.Clock.DurationSec
	return []Event{{Type: EvtLedgerChanged}, {Type: EvtTurnChanged}}, nil
}

// enableEdit reopens a closed round; the active round is locked for input
// until the edit commits through closeRound.
func enableEdit(s *State, round int) ([]Event, error) {
	if !s.Started {
		return nil, ErrGameNotStarted
	}
	if round < 0 || round >= len(s.Rounds) || round >= s.CurrIdx {
		return nil, ErrRoundLocked
	}
	r := round
	s.EditingIdx = &r
	return []Event{{Type: EvtLedgerChanged}}, nil
}

// closeRound validates the active round and either advances the cursor or
// commits a retroactive edit. A round with exactly one empty cell is only
// closed when confirmInferred is set; otherwise the inferable winner is
// reported as a proposal and nothing changes.
func closeRound(s *State, confirmInferred bool) ([]Event, error) {
	if !s.Started {
		return nil, ErrGameNotStarted
	}
	editing := s.EditingIdx != nil
	if !editing && s.CurrIdx >= len(s.Rounds) {
		return nil, ErrGameAlreadyFinished
	}
	target := ActiveRound(s)

	v, err := ValidateRound(s, target)
	if err != nil {
		return nil, err
	}
	if v.Kind == RoundNeedsWinner {
		if !confirmInferred {
			return []Event{{
				Type:   EvtWinnerProposed,
				Round:  target,
				Player: v.Proposed,
				Score:  v.ProposedScore,
			}}, nil
		}
		s.Rounds[target][v.Proposed] = strconv.Itoa(v.ProposedScore)
		delete(s.TileDetails, CellKey{Round: target, Player: v.Proposed})
	}

	if editing {
		s.EditingIdx = nil
	} else {
		s.CurrIdx++
	}

	events := []Event{
		{Type: EvtRoundClosed, Round: target},
		{Type: EvtLedgerChanged},
	}
	// Covers both crossing the finish line and committing an edit on an
	// already finished game, which re-raises the (possibly reordered)
	// final standings.
	if s.CurrIdx >= len(s.Rounds) {
		events = append(events, Event{Type: EvtGameFinished, Ranking: Ranking(s)})
	}
	return events, nil
}
