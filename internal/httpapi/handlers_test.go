package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"rummiscore/internal/engine"
	"rummiscore/internal/hub"
	"rummiscore/internal/store"
)

func newTestServer(t *testing.T) (*httptest.Server, *store.Memory) {
	t.Helper()
	mem := store.NewMemory()
	h := hub.NewHub(context.Background(), mem, clockwork.NewFakeClock(), zap.NewNop())
	t.Cleanup(func() { h.Inbox() <- hub.ShutdownHub{} })

	srv := httptest.NewServer(SetupRoutes(h, zap.NewNop()))
	t.Cleanup(srv.Close)
	return srv, mem
}

func TestCreateSessionReturnsCode(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Post(srv.URL+"/sessions", "application/json", nil)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want 201", resp.StatusCode)
	}

	var body struct {
		Code string `json:"code"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if len(body.Code) != 6 {
		t.Fatalf("code = %q, want 6 characters", body.Code)
	}
}

func TestGetSessionStateHydratesSavedGame(t *testing.T) {
	srv, mem := newTestServer(t)

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
	if err := mem.Save("ABC123", store.KeyGame, game); err != nil {
		t.Fatal(err)
	}

	resp, err := http.Get(srv.URL + "/sessions/ABC123")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var body struct {
		Code  string `json:"code"`
		State struct {
			Players []string `json:"players"`
		} `json:"state"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.Code != "ABC123" {
		t.Fatalf("code = %q", body.Code)
	}
	if len(body.State.Players) != 2 || body.State.Players[1] != "Ben" {
		t.Fatalf("players = %v", body.State.Players)
	}
}

func TestHealthz(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
}

func TestGenerateCodeShape(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		code, err := GenerateCode()
		if err != nil {
			t.Fatal(err)
		}
		if len(code) != 6 {
			t.Fatalf("code %q has length %d", code, len(code))
		}
		for _, r := range code {
			if !(r >= 'A' && r <= 'Z' || r >= '0' && r <= '9') {
				t.Fatalf("code %q contains %q", code, r)
			}
		}
		seen[code] = true
	}
	if len(seen) < 2 {
		t.Fatal("generator returned the same code repeatedly")
	}
}
