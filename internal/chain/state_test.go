package chain

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/tidwall/gjson"

	"github.com/scard-game/scard/internal/game"
)

func feltArray(values ...uint64) gjson.Result {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = fmt.Sprintf("%q", fmt.Sprintf("0x%x", v))
	}
	return gjson.Parse("[" + strings.Join(parts, ",") + "]")
}

func TestGetGameState_Decode(t *testing.T) {
	// player: id, health 80, damage 5, attack 12, free_flee 1, free_attack 0
	// position: id, x 2, y 3
	// status: id, 0 (InProgress)
	// current encounter: id, 1 (Werewolf)
	// beast encounter: id, type 1, attack 7, damage 9
	// has_beast: 1
	rpc := &fakeRPC{results: []gjson.Result{feltArray(
		42, 80, 5, 12, 1, 0,
		42, 2, 3,
		42, 0,
		42, 1,
		42, 1, 7, 9,
		1,
	)}}
	reader := NewStateReader(rpc, "0xgame")

	state, err := reader.GetGameState(context.Background(), "42")
	if err != nil {
		t.Fatalf("get game state: %v", err)
	}
	if state.Player.Health != 80 || state.Player.DamagePoints != 5 || state.Player.AttackPoints != 12 {
		t.Fatalf("player = %+v", state.Player)
	}
	if !state.Player.HasFreeFlee || state.Player.HasFreeAttack {
		t.Fatalf("abilities = %+v", state.Player)
	}
	if state.Position != (game.Position{X: 2, Y: 3}) {
		t.Fatalf("position = %+v", state.Position)
	}
	if state.Status != game.StatusInProgress {
		t.Fatalf("status = %q", state.Status)
	}
	if state.EncounterCode != 1 {
		t.Fatalf("encounter code = %d", state.EncounterCode)
	}
	if !state.HasBeast || state.Beast == nil {
		t.Fatal("expected beast encounter")
	}
	if state.Beast.Kind != game.EncounterWerewolf || state.Beast.AttackPoints != 7 || state.Beast.DamagePoints != 9 {
		t.Fatalf("beast = %+v", state.Beast)
	}
}

func TestGetGameState_NoBeast(t *testing.T) {
	rpc := &fakeRPC{results: []gjson.Result{feltArray(
		42, 100, 0, 10, 0, 0,
		42, 0, 0,
		42, 0,
		42, 0,
		42, 0, 0, 0,
		0,
	)}}
	reader := NewStateReader(rpc, "0xgame")

	state, err := reader.GetGameState(context.Background(), "42")
	if err != nil {
		t.Fatalf("get game state: %v", err)
	}
	if state.HasBeast || state.Beast != nil {
		t.Fatalf("expected no beast, got %+v", state.Beast)
	}
}

func TestGetGameState_WonStatus(t *testing.T) {
	rpc := &fakeRPC{results: []gjson.Result{feltArray(
		42, 55, 0, 10, 0, 0,
		42, 4, 4,
		42, 1,
		42, 0,
		42, 0, 0, 0,
		0,
	)}}
	reader := NewStateReader(rpc, "0xgame")

	state, err := reader.GetGameState(context.Background(), "42")
	if err != nil {
		t.Fatalf("get game state: %v", err)
	}
	if state.Status != game.StatusWon {
		t.Fatalf("status = %q, want Won", state.Status)
	}
}

func TestGetGameState_TruncatedResult(t *testing.T) {
	rpc := &fakeRPC{results: []gjson.Result{feltArray(1, 2, 3)}}
	reader := NewStateReader(rpc, "0xgame")

	if _, err := reader.GetGameState(context.Background(), "42"); err == nil {
		t.Fatal("expected error for truncated result")
	}
}

func TestGameExists(t *testing.T) {
	tests := []struct {
		name   string
		result gjson.Result
		want   bool
	}{
		{"exists", feltArray(1), true},
		{"missing", feltArray(0), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rpc := &fakeRPC{results: []gjson.Result{tt.result}}
			reader := NewStateReader(rpc, "0xgame")
			got, err := reader.GameExists(context.Background(), "42")
			if err != nil {
				t.Fatalf("game exists: %v", err)
			}
			if got != tt.want {
				t.Fatalf("GameExists = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSelectorFromName(t *testing.T) {
	a := selectorFromName(EntryGetGameState)
	b := selectorFromName(EntryGetGameState)
	if a != b {
		t.Fatalf("selector not deterministic: %q vs %q", a, b)
	}
	if !strings.HasPrefix(a, "0x") {
		t.Fatalf("selector %q missing 0x prefix", a)
	}
	if selectorFromName(EntryGameExists) == a {
		t.Fatal("distinct names must yield distinct selectors")
	}
}

func TestParseFelt(t *testing.T) {
	tests := []struct {
		in      string
		want    uint64
		wantErr bool
	}{
		{"0x0", 0, false},
		{"0x3039", 12345, false},
		{"0xFF", 255, false},
		{" 0x4 ", 4, false},
		{"", 0, true},
		{"0x", 0, true},
		{"0xzz", 0, true},
	}
	for _, tt := range tests {
		got, err := parseFelt(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseFelt(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if err == nil && got != tt.want {
			t.Errorf("parseFelt(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
