// Package session runs one score-keeping table as an actor goroutine. Every
// mutation — client commands and clock ticks alike — flows through the same
// loop, so ledger writes and timer expiry handling never interleave.
package session

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"rummiscore/internal/engine"
	"rummiscore/internal/store"
)

type Msg interface{ isSessionMsg() }

// FromClient carries one engine command. Reply, when non-nil, receives the
// apply result so the issuing client can surface the typed rejection.
type FromClient struct {
	Cmd   engine.Command
	Reply chan error
}

func (FromClient) isSessionMsg() {}

type Join struct {
	ClientID string
	Outbox   chan Snapshot // where this client wants to receive snapshots
}

func (Join) isSessionMsg() {}

type Leave struct{ ClientID string }

func (Leave) isSessionMsg() {}

type Shutdown struct{}

func (Shutdown) isSessionMsg() {}

type GetState struct {
	Reply chan View
}

func (GetState) isSessionMsg() {}

// Snapshot is what clients receive after every applied command. State is
// marshalled inside the session loop so receivers never share live maps
// with it.
type Snapshot struct {
	Version int
	State   json.RawMessage
	Events  []engine.Event
}

// View reflects internal state without data races; used by tests and the
// HTTP state endpoint.
type View struct {
	Version    int
	NumClients int
	State      engine.State
}

type Session struct {
	code    string
	inbox   chan Msg
	state   engine.State
	version int
	clients map[string]chan Snapshot
	gateway store.Gateway
	clock   clockwork.Clock
	ticker  clockwork.Ticker
	log     *zap.Logger
	ctx     context.Context
	cancel  context.CancelFunc
}

func New(parent context.Context, code string, initial engine.State, gw store.Gateway, clk clockwork.Clock, log *zap.Logger) *Session {
	ctx, cancel := context.WithCancel(parent)

	s := &Session{
		code:    code,
		inbox:   make(chan Msg, 64),
		state:   initial,
		clients: make(map[string]chan Snapshot),
		gateway: gw,
		clock:   clk,
		log:     log.With(zap.String("session", code)),
		ctx:     ctx,
		cancel:  cancel,
	}
	// A restored state never resumes with a live countdown.
	s.state.Clock.Running = false

	go s.loop()
	return s
}

// Inbox exposes the actor mailbox to the ws layer and tests.
func (s *Session) Inbox() chan<- Msg { return s.inbox }

func (s *Session) loop() {
	for {
		var tick <-chan time.Time
		if s.ticker != nil {
			tick = s.ticker.Chan()
		}

		select {
		case <-s.ctx.Done():
			s.shutdown()
			return

		case <-tick:
			events, err := engine.Apply(&s.state, engine.Command{Type: engine.CmdTick, At: s.clock.Now()})
			if err != nil {
				s.log.Warn("tick rejected", zap.Error(err))
				break
			}
			s.afterApply(events)

		case m := <-s.inbox:
			switch msg := m.(type) {
			case Join:
				s.clients[msg.ClientID] = msg.Outbox
				s.deliver(msg.ClientID, msg.Outbox, s.snapshot(nil))

			case Leave:
				// Close so the client's writer loop can return; the
				// channel may already be gone if the drop path got there
				// first.
				if ch, ok := s.clients[msg.ClientID]; ok {
					close(ch)
					delete(s.clients, msg.ClientID)
				}

			case FromClient:
				cmd := msg.Cmd
				cmd.At = s.clock.Now()
				events, err := engine.Apply(&s.state, cmd)
				if msg.Reply != nil {
					msg.Reply <- err
				}
				if err != nil {
					break
				}
				s.afterApply(events)

			case GetState:
				msg.Reply <- View{
					Version:    s.version,
					NumClients: len(s.clients),
					State:      s.state,
				}

			case Shutdown:
				s.shutdown()
				return
			}
		}
	}
}

// afterApply runs after every successful mutation: reconcile the ticker
// with the clock state, persist, and fan the new snapshot out.
func (s *Session) afterApply(events []engine.Event) {
	s.syncTicker()
	s.persist()
	s.version++
	s.broadcast(s.snapshot(events))
}

// syncTicker keeps exactly zero or one ticker alive. Starting an already
// running clock is a no-op in the engine, so rapid toggles can never stack
// intervals here.
func (s *Session) syncTicker() {
	running := s.state.Clock.Running
	switch {
	case running && s.ticker == nil:
		s.ticker = s.clock.NewTicker(time.Second)
	case !running && s.ticker != nil:
		s.ticker.Stop()
		s.ticker = nil
	}
}

// persist saves both blobs. Failures are logged and swallowed: the
// in-memory state stays authoritative for the session and there is no
// retry.
func (s *Session) persist() {
	game, err := engine.MarshalGame(&s.state)
	if err == nil {
		err = s.gateway.Save(s.code, store.KeyGame, game)
	}
	if err != nil {
		s.log.Warn("game blob save failed", zap.Error(err))
	}

	timer, err := engine.MarshalTimer(&s.state)
	if err == nil {
		err = s.gateway.Save(s.code, store.KeyTimer, timer)
	}
	if err != nil {
		s.log.Warn("timer blob save failed", zap.Error(err))
	}
}

func (s *Session) snapshot(events []engine.Event) Snapshot {
	raw, err := json.Marshal(viewState{
		State: &s.state,
		Clock: clockView{
			DurationSec:  s.state.Clock.DurationSec,
			RemainingSec: s.state.Clock.RemainingSec,
			Running:      s.state.Clock.Running,
			Sound:        s.state.Clock.Sound,
		},
		Phase:     engine.PhaseOf(&s.state),
		Totals:    engine.Totals(&s.state),
		Ranking:   engine.Ranking(&s.state),
		ActiveIdx: engine.ActiveRound(&s.state),
	})
	if err != nil {
		s.log.Error("snapshot marshal failed", zap.Error(err))
	}
	return Snapshot{Version: s.version, State: raw, Events: events}
}

// viewState decorates the raw serializable state with the derived values
// every renderer needs.
type viewState struct {
	*engine.State
	Clock     clockView         `json:"clock"`
	Phase     engine.Phase      `json:"phase"`
	Totals    []int             `json:"totals"`
	Ranking   []engine.Standing `json:"ranking"`
	ActiveIdx int               `json:"activeRound"`
}

type clockView struct {
	DurationSec  int  `json:"d"`
	RemainingSec int  `json:"c"`
	Running      bool `json:"r"`
	Sound        bool `json:"s"`
}

func (s *Session) shutdown() {
	if s.ticker != nil {
		s.ticker.Stop()
		s.ticker = nil
	}
	for id, ch := range s.clients {
		close(ch)
		delete(s.clients, id)
	}
	s.cancel()
}

func (s *Session) broadcast(snap Snapshot) {
	for id, ch := range s.clients {
		s.deliver(id, ch, snap)
	}
}

func (s *Session) deliver(id string, ch chan Snapshot, snap Snapshot) {
	select {
	case ch <- snap:
		// ok
	default:
		// Client is slow/full - drop them.
		close(ch)
		delete(s.clients, id)
	}
}
