package engine

import (
	"errors"
	"fmt"
)

var ErrLockedGame = errors.New("roster is locked")
var ErrGameAlreadyStarted = errors.New("game already started")
var ErrRosterFull = errors.New("roster is full")
var ErrMinPlayersViolation = errors.New("cannot drop below minimum players")
var ErrInsufficientPlayers = errors.New("not enough players to start")
var ErrGameNotStarted = errors.New("game not started")
var ErrGameAlreadyFinished = errors.New("game already finished")
var ErrRoundLocked = errors.New("round is locked")
var ErrInvalidDuration = errors.New("invalid custom duration")
var ErrAmbiguousRound = errors.New("more than one empty cell")
var ErrInvalidValues = errors.New("round has non-numeric values")
var ErrEmptyName = errors.New("player name is empty")
var ErrNoSuchEntry = errors.New("no such pending penalty entry")
var ErrNoSuchPlayer = errors.New("no such player")
var ErrNoSuchRound = errors.New("no such round")
var ErrBadTileCounts = errors.New("tile counts must be 14 non-negative integers")
var ErrUnsupportedCommand = errors.New("unsupported command")

// RoundImbalanceError reports a closure attempt where every cell is filled
// but the round does not net to zero.
type RoundImbalanceError struct {
	Sum int // signed difference from zero
	Pos int // sum of positive cells
	Neg int // sum of negative cells
}

func (e *RoundImbalanceError) Error() string {
	return fmt.Sprintf("round sum must be zero: got %+d (positives %+d, negatives %d)", e.Sum, e.Pos, e.Neg)
}
