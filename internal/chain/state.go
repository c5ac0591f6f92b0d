package chain

import (
	"context"
	"fmt"
	"log"

	"github.com/scard-game/scard/internal/game"
)

// GameState is the complete on-chain snapshot returned by the
// get_game_state view function.
type GameState struct {
	Player        game.PlayerStats
	Position      game.Position
	Status        game.Status
	EncounterCode uint64
	Beast         *game.BeastStats
	HasBeast      bool
}

// completeStateFields is the serialized width of the view result:
// player(6) + position(3) + status(2) + current encounter(2) +
// beast encounter(4) + has_beast(1).
const completeStateFields = 18

// StateReader performs direct contract view calls.
type StateReader struct {
	rpc          RPCCaller
	contractAddr string
}

// NewStateReader creates a reader for the game systems contract.
func NewStateReader(rpc RPCCaller, contractAddr string) *StateReader {
	return &StateReader{rpc: rpc, contractAddr: contractAddr}
}

func (r *StateReader) call(ctx context.Context, entrypoint, gameID string) ([]string, error) {
	idFelt, err := feltFromID(gameID)
	if err != nil {
		return nil, err
	}
	result, err := r.rpc.Call(ctx, "starknet_call", []any{
		map[string]any{
			"contract_address":     r.contractAddr,
			"entry_point_selector": selectorFromName(entrypoint),
			"calldata":             []string{idFelt},
		},
		"latest",
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", entrypoint, err)
	}
	var felts []string
	for _, felt := range result.Array() {
		felts = append(felts, felt.String())
	}
	return felts, nil
}

// GameExists reports whether a session has been created for the game id.
func (r *StateReader) GameExists(ctx context.Context, gameID string) (bool, error) {
	felts, err := r.call(ctx, EntryGameExists, gameID)
	if err != nil {
		return false, err
	}
	if len(felts) == 0 {
		return false, fmt.Errorf("game_exists: empty result")
	}
	v, err := parseFelt(felts[0])
	if err != nil {
		return false, fmt.Errorf("game_exists: %w", err)
	}
	return v == 1, nil
}

// GetGameState fetches the complete game state in one call. The Cairo
// struct is serialized as a flat ordered felt array; each nested struct
// leads with its own game_id field, which is skipped in favor of the
// queried id.
func (r *StateReader) GetGameState(ctx context.Context, gameID string) (*GameState, error) {
	felts, err := r.call(ctx, EntryGetGameState, gameID)
	if err != nil {
		return nil, err
	}
	if len(felts) < completeStateFields {
		return nil, fmt.Errorf("get_game_state: %d fields, want %d", len(felts), completeStateFields)
	}

	values := make([]uint64, completeStateFields)
	for i := 0; i < completeStateFields; i++ {
		v, err := parseFelt(felts[i])
		if err != nil {
			return nil, fmt.Errorf("get_game_state field %d: %w", i, err)
		}
		values[i] = v
	}

	// Field layout:
	//  0-5  player: game_id, health, damage_points, attack_points,
	//       has_free_flee, has_free_attack
	//  6-8  position: game_id, x, y
	//  9-10 game state: game_id, status
	// 11-12 current encounter: game_id, encounter_type
	// 13-16 beast encounter: game_id, beast_type, attack_points, damage_points
	// 17    has_beast
	state := &GameState{
		Player: game.PlayerStats{
			Health:        uint16(values[1]),
			DamagePoints:  uint16(values[2]),
			AttackPoints:  uint16(values[3]),
			HasFreeFlee:   values[4] == 1,
			HasFreeAttack: values[5] == 1,
		},
		Position: game.Position{
			X: uint8(values[7]),
			Y: uint8(values[8]),
		},
		Status:        game.StatusFromWire(values[10]),
		EncounterCode: values[12],
		HasBeast:      values[17] == 1,
	}

	if state.HasBeast && values[14] > 0 {
		kind, ok := game.BeastFromCode(values[14])
		if !ok {
			log.Printf("[API] unknown beast type %d for game %s", values[14], gameID)
		} else {
			state.Beast = &game.BeastStats{
				Kind:         kind,
				AttackPoints: uint16(values[15]),
				DamagePoints: uint16(values[16]),
			}
		}
	}
	return state, nil
}
