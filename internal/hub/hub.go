// Package hub owns the set of live sessions, keyed by join code. It is an
// actor like the sessions it manages; all map access happens on its loop.
package hub

import (
	"context"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"rummiscore/internal/engine"
	"rummiscore/internal/session"
	"rummiscore/internal/store"
)

type HubMsg interface{ isHubMsg() }

type CreateSession struct {
	Code  string
	Reply chan *session.Session
}

type GetSession struct {
	Code  string
	Reply chan *session.Session
}

// EnsureSession returns the live session for Code, hydrating it from the
// store when it is not resident.
type EnsureSession struct {
	Code  string
	Reply chan *session.Session
}

type RemoveSession struct {
	Code string
}

type ShutdownHub struct{}

func (CreateSession) isHubMsg() {}
func (GetSession) isHubMsg()    {}
func (EnsureSession) isHubMsg() {}
func (RemoveSession) isHubMsg() {}
func (ShutdownHub) isHubMsg()   {}

type Hub struct {
	inbox    chan HubMsg
	sessions map[string]*session.Session
	gateway  store.Gateway
	clock    clockwork.Clock
	log      *zap.Logger
	ctx      context.Context
	cancel   context.CancelFunc
}

func NewHub(parent context.Context, gw store.Gateway, clk clockwork.Clock, log *zap.Logger) *Hub {
	ctx, cancel := context.WithCancel(parent)
	h := &Hub{
		inbox:    make(chan HubMsg, 64),
		sessions: make(map[string]*session.Session),
		gateway:  gw,
		clock:    clk,
		log:      log,
		ctx:      ctx,
		cancel:   cancel,
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

func (h *Hub) loop() {
	for {
		select {
		case <-h.ctx.Done():
			h.shutdown()
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case CreateSession:
				if s := h.sessions[msg.Code]; s != nil {
					msg.Reply <- s
					break
				}
				msg.Reply <- h.spawn(msg.Code, engine.NewState())

			case GetSession:
				msg.Reply <- h.sessions[msg.Code] // May be nil

			case EnsureSession:
				if s := h.sessions[msg.Code]; s != nil {
					msg.Reply <- s
					break
				}
				msg.Reply <- h.spawn(msg.Code, h.hydrate(msg.Code))

			case RemoveSession:
				if s := h.sessions[msg.Code]; s != nil {
					s.Inbox() <- session.Shutdown{}
					delete(h.sessions, msg.Code)
				}

			case ShutdownHub:
				h.shutdown()
				return
			}
		}
	}
}

func (h *Hub) spawn(code string, st engine.State) *session.Session {
	s := session.New(h.ctx, code, st, h.gateway, h.clock, h.log)
	h.sessions[code] = s
	return s
}

// hydrate loads both persisted blobs for code. Load errors fall back to a
// fresh game rather than refusing the session; the store may simply never
// have seen this code.
func (h *Hub) hydrate(code string) engine.State {
	game, err := h.gateway.Load(code, store.KeyGame)
	if err != nil {
		h.log.Warn("game blob load failed", zap.String("session", code), zap.Error(err))
	}
	timer, err := h.gateway.Load(code, store.KeyTimer)
	if err != nil {
		h.log.Warn("timer blob load failed", zap.String("session", code), zap.Error(err))
	}
	return engine.LoadState(game, timer)
}

func (h *Hub) shutdown() {
	for _, s := range h.sessions {
		s.Inbox() <- session.Shutdown{}
	}
	clear(h.sessions)
	h.cancel()
}
