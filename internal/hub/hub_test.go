package hub

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"rummiscore/internal/engine"
	"rummiscore/internal/session"
	"rummiscore/internal/store"
)

func newTestHub(t *testing.T) (*Hub, *store.Memory) {
	t.Helper()
	mem := store.NewMemory()
	h := NewHub(context.Background(), mem, clockwork.NewFakeClock(), zap.NewNop())
	t.Cleanup(func() { h.Inbox() <- ShutdownHub{} })
	return h, mem
}

func askSession(t *testing.T, h *Hub, msg HubMsg, reply chan *session.Session) *session.Session {
	t.Helper()
	h.Inbox() <- msg
	select {
	case s := <-reply:
		return s
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for hub reply")
		return nil
	}
}

func TestHub_Create_Get_SamePointer(t *testing.T) {
	h, _ := newTestHub(t)
	reply := make(chan *session.Session, 1)

	s1 := askSession(t, h, CreateSession{Code: "ZED123", Reply: reply}, reply)
	s2 := askSession(t, h, GetSession{Code: "ZED123", Reply: reply}, reply)

	if s1 == nil || s2 == nil || s1 != s2 {
		t.Fatalf("expected same session pointer")
	}
}

func TestHub_Get_UnknownCodeIsNil(t *testing.T) {
	h, _ := newTestHub(t)
	reply := make(chan *session.Session, 1)

	if s := askSession(t, h, GetSession{Code: "NOPE00", Reply: reply}, reply); s != nil {
		t.Fatalf("expected nil for unknown code, got %v", s)
	}
}

func TestHub_Ensure_HydratesFromStore(t *testing.T) {
	h, mem := newTestHub(t)

	// Seed the store with a saved game for a code the hub has never seen.
	st := engine.NewState()
	for _, name := range []string{"Ada", "Ben"} {
		if _, err := engine.Apply(&st, engine.Command{Type: engine.CmdAddPlayer, Name: name}); err != nil {
			t.Fatal(err)
		}
	}
	game, err := engine.MarshalGame(&st)
	if err != nil {
		t.Fatal(err)
	}
	if err := mem.Save("SAVED1", store.KeyGame, game); err != nil {
		t.Fatal(err)
	}

	reply := make(chan *session.Session, 1)
	s := askSession(t, h, EnsureSession{Code: "SAVED1", Reply: reply}, reply)
	if s == nil {
		t.Fatal("ensure returned nil session")
	}

	view := make(chan session.View, 1)
	s.Inbox() <- session.GetState{Reply: view}
	select {
	case v := <-view:
		if len(v.State.Players) != 2 || v.State.Players[0] != "Ada" {
			t.Fatalf("hydrated players = %v", v.State.Players)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for session state")
	}
}

func TestHub_Remove_ThenGetIsNil(t *testing.T) {
	h, _ := newTestHub(t)
	reply := make(chan *session.Session, 1)

	askSession(t, h, CreateSession{Code: "GONE42", Reply: reply}, reply)
	h.Inbox() <- RemoveSession{Code: "GONE42"}

	if s := askSession(t, h, GetSession{Code: "GONE42", Reply: reply}, reply); s != nil {
		t.Fatal("session still resident after removal")
	}
}
