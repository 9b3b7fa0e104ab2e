package ws

import (
	"reflect"
	"testing"

	"rummiscore/internal/engine"
	"rummiscore/internal/types"
)

func TestToEngineCommand(t *testing.T) {
	cases := []struct {
		name string
		in   types.ClientMessage
		want engine.Command
		ok   bool
	}{
		{
			name: "add player",
			in:   types.ClientMessage{Type: "AddPlayer", Name: "Ada"},
			want: engine.Command{Type: engine.CmdAddPlayer, Name: "Ada"},
			ok:   true,
		},
		{
			name: "set cell carries raw text",
			in:   types.ClientMessage{Type: "SetCell", Round: 2, Player: 1, Value: "17"},
			want: engine.Command{Type: engine.CmdSetCell, Round: 2, Player: 1, Raw: "17"},
			ok:   true,
		},
		{
			name: "close round with inference confirmed",
			in:   types.ClientMessage{Type: "CloseRound", ConfirmInferred: true},
			want: engine.Command{Type: engine.CmdCloseRound, ConfirmInferred: true},
			ok:   true,
		},
		{
			name: "configure clock",
			in:   types.ClientMessage{Type: "ConfigureClock", Rule: "custom", CustomMinutes: 5, Sound: true, AutoRotate: true},
			want: engine.Command{Type: engine.CmdConfigureClock, Rule: engine.RuleCustom, CustomMinutes: 5, Sound: true, AutoRotate: true},
			ok:   true,
		},
		{
			name: "confirm penalty",
			in:   types.ClientMessage{Type: "ConfirmPenalty", Round: 1, Player: 2, Entry: 0, Accepted: true},
			want: engine.Command{Type: engine.CmdConfirmPenalty, Round: 1, Player: 2, Entry: 0, Accepted: true},
			ok:   true,
		},
		{
			name: "tick is not a client command",
			in:   types.ClientMessage{Type: "Tick"},
			ok:   false,
		},
		{
			name: "unknown type",
			in:   types.ClientMessage{Type: "Shuffle"},
			ok:   false,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := toEngineCommand(tc.in)
			if ok != tc.ok {
				t.Fatalf("ok = %v, want %v", ok, tc.ok)
			}
			if !tc.ok {
				return
			}
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("got %+v, want %+v", got, tc.want)
			}
		})
	}
}
