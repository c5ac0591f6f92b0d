// Package game holds the SCARD domain model: the grid, the player, the
// encounter taxonomy, and the pure rules shared by the director and the
// orchestrator.
package game

import (
	"fmt"
	"strconv"
	"strings"
)

// Grid configuration. The game is played on a 5x5 grid and the win
// condition is the bottom-right corner.
const (
	GridSize = 5
	WinX     = GridSize - 1
	WinY     = GridSize - 1
)

// MaxPlayerHealth is the starting (and maximum) player health, matching the
// contract's DEFAULT_PLAYER_HEALTH.
const MaxPlayerHealth = 100

// EmptyGameID is returned by DeriveGameID for an absent address.
const EmptyGameID = "0"

// DeriveGameID derives the per-wallet game identifier from a wallet
// address. The derivation is a fixed slice of the address (the 16 hex
// digits after the 0x prefix) rendered in decimal, so the same wallet maps
// to the same game across reloads and processes.
func DeriveGameID(address string) string {
	if address == "" {
		return EmptyGameID
	}
	hexPart := strings.TrimPrefix(address, "0x")
	if len(hexPart) > 16 {
		hexPart = hexPart[:16]
	}
	id, err := strconv.ParseUint(hexPart, 16, 64)
	if err != nil {
		return EmptyGameID
	}
	return strconv.FormatUint(id, 10)
}

// Position is a cell on the grid.
type Position struct {
	X uint8
	Y uint8
}

// IsWinPosition reports whether a position satisfies the win condition.
// The director and the orchestrator both correct a stale status through
// this single predicate; keep it the only encoding of the rule.
func IsWinPosition(p Position) bool {
	return p.X == WinX && p.Y == WinY
}

// PlayerStats are the player's combat parameters and one-shot abilities.
type PlayerStats struct {
	Health        uint16
	AttackPoints  uint16
	DamagePoints  uint16
	HasFreeAttack bool
	HasFreeFlee   bool
}

// Status describes the lifecycle of one play-through.
type Status string

const (
	// StatusInProgress is the default, playable status.
	StatusInProgress Status = "InProgress"
	// StatusWon is terminal: the player reached the win cell.
	StatusWon Status = "Won"
	// StatusLost is terminal: the player's health reached zero.
	StatusLost Status = "Lost"
)

// StatusFromWire maps the contract's status field (0/1/2) to a Status.
// Unknown values map to StatusInProgress, matching the client's lenient
// historical behavior.
func StatusFromWire(v uint64) Status {
	switch v {
	case 1:
		return StatusWon
	case 2:
		return StatusLost
	default:
		return StatusInProgress
	}
}

// Terminal reports whether no further actions are accepted.
func (s Status) Terminal() bool {
	return s == StatusWon || s == StatusLost
}

// Direction is a movement request on the grid.
type Direction string

const (
	DirectionLeft  Direction = "Left"
	DirectionRight Direction = "Right"
	DirectionUp    Direction = "Up"
	DirectionDown  Direction = "Down"
)

// WireCode returns the contract enum variant index for the direction.
// Variant order is fixed by the contract: Left, Right, Up, Down.
func (d Direction) WireCode() (uint8, error) {
	switch d {
	case DirectionLeft:
		return 0, nil
	case DirectionRight:
		return 1, nil
	case DirectionUp:
		return 2, nil
	case DirectionDown:
		return 3, nil
	default:
		return 0, fmt.Errorf("unknown direction %q", string(d))
	}
}

// EncounterKind is the taxonomy of encounters a move can generate.
type EncounterKind string

const (
	EncounterWerewolf      EncounterKind = "Werewolf"
	EncounterVampire       EncounterKind = "Vampire"
	EncounterFreeHealth    EncounterKind = "FreeHealth"
	EncounterAttackPoints  EncounterKind = "AttackPoints"
	EncounterReducedDamage EncounterKind = "ReducedDamage"
	EncounterFreeAttack    EncounterKind = "FreeAttack"
	EncounterFreeFlee      EncounterKind = "FreeFlee"
	EncounterFreeRoam      EncounterKind = "FreeRoam"
)

// encounterCodes is the contract mapping of encounter codes 1..8.
var encounterCodes = map[uint64]EncounterKind{
	1: EncounterWerewolf,
	2: EncounterVampire,
	3: EncounterFreeHealth,
	4: EncounterAttackPoints,
	5: EncounterReducedDamage,
	6: EncounterFreeAttack,
	7: EncounterFreeFlee,
	8: EncounterFreeRoam,
}

// EncounterFromCode maps a contract encounter code to its kind. The second
// return is false for 0 (no encounter) and anything outside 1..8.
func EncounterFromCode(code uint64) (EncounterKind, bool) {
	kind, ok := encounterCodes[code]
	return kind, ok
}

// IsBeast reports whether the encounter forces a fight-or-flee resolution.
func (k EncounterKind) IsBeast() bool {
	return k == EncounterWerewolf || k == EncounterVampire
}

// BeastCode returns the contract beast_type value for a beast encounter,
// or 0 for non-beast kinds.
func (k EncounterKind) BeastCode() uint64 {
	switch k {
	case EncounterWerewolf:
		return 1
	case EncounterVampire:
		return 2
	default:
		return 0
	}
}

// BeastFromCode maps a contract beast_type value to its encounter kind.
// Zero is the not-yet-propagated sentinel and maps to ok=false.
func BeastFromCode(code uint64) (EncounterKind, bool) {
	switch code {
	case 1:
		return EncounterWerewolf, true
	case 2:
		return EncounterVampire, true
	default:
		return "", false
	}
}

// BeastStats are a monster's combat parameters, fetched asynchronously
// from the indexer after the encounter is generated.
type BeastStats struct {
	Kind         EncounterKind
	AttackPoints uint16
	DamagePoints uint16
}

// Encounter is an unresolved encounter blocking movement (for beast kinds)
// or a pending gift acknowledgement. Beast is nil for a legitimate interval
// after creation while the indexer catches up.
type Encounter struct {
	Kind  EncounterKind
	Beast *BeastStats
}
