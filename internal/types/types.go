// Package types defines the websocket wire protocol between score-keeping
// clients and the server.
package types

import (
	"encoding/json"

	"rummiscore/internal/engine"
)

// ClientMessage is the client -> server envelope. Type selects the command
// and decides which of the optional fields are read.
//
//	AddPlayer:      name
//	RemovePlayer:   player
//	MovePlayer:     player, delta (-1 or +1)
//	RenamePlayer:   player, name
//	StartGame:      {}
//	ResetGame:      {}
//	SetCell:        round, player, value
//	SetTileDetail:  round, player, counts (14 ints, index 13 = joker)
//	DeclareWinner:  round, player
//	ClearWinner:    round, player
//	CloseRound:     confirm_inferred (accept the single-gap winner proposal)
//	EnableEdit:     round
//	ConfigureClock: rule, custom_minutes, sound, auto_rotate, confirm_expiry
//	StartClock:     {}
//	StopClock:      {}
//	SkipTurn:       {}
//	ConfirmPenalty: round, player, entry, accepted
type ClientMessage struct {
	Type            string `json:"type"`
	Name            string `json:"name,omitempty"`
	Player          int    `json:"player,omitempty"`
	Delta           int    `json:"delta,omitempty"`
	Round           int    `json:"round,omitempty"`
	Value           string `json:"value,omitempty"`
	Counts          []int  `json:"counts,omitempty"`
	ConfirmInferred bool   `json:"confirm_inferred,omitempty"`
	Rule            string `json:"rule,omitempty"`
	CustomMinutes   int    `json:"custom_minutes,omitempty"`
	Sound           bool   `json:"sound,omitempty"`
	AutoRotate      bool   `json:"auto_rotate,omitempty"`
	ConfirmExpiry   bool   `json:"confirm_expiry,omitempty"`
	Entry           int    `json:"entry,omitempty"`
	Accepted        bool   `json:"accepted,omitempty"`
}

// ServerMessage is the server -> client envelope.
//
//	StateSnapshot: version, state (full game view), events since the last one
//	Error:         error (human-readable reason the command was rejected)
type ServerMessage struct {
	Type    string          `json:"type"` // "StateSnapshot" | "Error"
	Version int             `json:"version,omitempty"`
	State   json.RawMessage `json:"state,omitempty"`
	Events  []engine.Event  `json:"events,omitempty"`
	Error   string          `json:"error,omitempty"`
}
