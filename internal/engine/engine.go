package engine

import "time"

type CommandType string

const (
	CmdAddPlayer    CommandType = "AddPlayer"
	CmdRemovePlayer CommandType = "RemovePlayer"
	CmdMovePlayer   CommandType = "MovePlayer"
	CmdRenamePlayer CommandType = "RenamePlayer"
	CmdStartGame    CommandType = "StartGame"
	CmdResetGame    CommandType = "ResetGame"

	CmdSetCell       CommandType = "SetCell"
	CmdSetTileDetail CommandType = "SetTileDetail"
	CmdDeclareWinner CommandType = "DeclareWinner"
	CmdClearWinner   CommandType = "ClearWinner"
	CmdCloseRound    CommandType = "CloseRound"
	CmdEnableEdit    CommandType = "EnableEdit"

	CmdConfigureClock CommandType = "ConfigureClock"
	CmdStartClock     CommandType = "StartClock"
	CmdStopClock      CommandType = "StopClock"
	CmdTick           CommandType = "Tick"
	CmdSkipTurn       CommandType = "SkipTurn"
	CmdConfirmPenalty CommandType = "ConfirmPenalty"
)

// Command is one requested mutation. At is stamped by the caller (the
// session actor) so the engine never reads the wall clock itself.
type Command struct {
	Type   CommandType
	At     time.Time
	Name   string
	Player int
	Delta  int
	Round  int
	Raw    string
	Counts []int

	// CloseRound: apply the single-empty-cell winner inference instead of
	// reporting it as a proposal.
	ConfirmInferred bool

	// ConfigureClock
	Rule          TimeRule
	CustomMinutes int
	Sound         bool
	AutoRotate    bool
	ConfirmExpiry bool

	// ConfirmPenalty
	Entry    int
	Accepted bool
}

type EventType string

const (
	EvtLedgerChanged  EventType = "LedgerChanged"
	EvtTurnChanged    EventType = "TurnChanged"
	EvtExpiry         EventType = "Expiry"
	EvtRoundClosed    EventType = "RoundClosed"
	EvtGameFinished   EventType = "GameFinished"
	EvtWinnerProposed EventType = "WinnerProposed"
)

type Standing struct {
	Player int    `json:"player"`
	Name   string `json:"name"`
	Total  int    `json:"total"`
}

type Event struct {
	Type      EventType  `json:"type"`
	Round     int        `json:"round,omitempty"`
	Player    int        `json:"player,omitempty"`
	Penalty   int        `json:"penalty,omitempty"`
	RuleLabel string     `json:"ruleLabel,omitempty"`
	Score     int        `json:"score,omitempty"`
	Ranking   []Standing `json:"ranking,omitempty"`
}

// Apply runs one command against the state. On error the state is left
// untouched; on success it returns the notification events the mutation
// produced. All reads needed to reject a command happen before any write.
func Apply(s *State, cmd Command) ([]Event, error) {
	switch cmd.Type {
	case CmdAddPlayer:
		return addPlayer(s, cmd.Name)
	case CmdRemovePlayer:
		return removePlayer(s, cmd.Player)
	case CmdMovePlayer:
		return movePlayer(s, cmd.Player, cmd.Delta)
	case CmdRenamePlayer:
		return renamePlayer(s, cmd.Player, cmd.Name)
	case CmdStartGame:
		return startGame(s)
	case CmdResetGame:
		return resetGame(s)

	case CmdSetCell:
		return setCell(s, cmd.Round, cmd.Player, cmd.Raw)
	case CmdSetTileDetail:
		return setTileDetail(s, cmd.Round, cmd.Player, cmd.Counts)
	case CmdDeclareWinner:
		return declareWinner(s, cmd.Round, cmd.Player)
	case CmdClearWinner:
		return clearWinner(s, cmd.Round, cmd.Player)
	case CmdCloseRound:
		return closeRound(s, cmd.ConfirmInferred)
	case CmdEnableEdit:
		return enableEdit(s, cmd.Round)

	case CmdConfigureClock:
		return configureClock(s, cmd)
	case CmdStartClock:
		return startClock(s, cmd.At)
	case CmdStopClock:
		return stopClock(s)
	case CmdTick:
		return tick(s, cmd.At)
	case CmdSkipTurn:
		return skipTurn(s, cmd.At)
	case CmdConfirmPenalty:
		return confirmPendingPenalty(s, cmd.Round, cmd.Player, cmd.Entry, cmd.Accepted, cmd.At)

	default:
		return nil, ErrUnsupportedCommand
	}
}
