package chain

import (
	"encoding/hex"
	"strings"

	"golang.org/x/crypto/sha3"
)

// Contract entry points used by the client.
const (
	EntryCreateGame   = "create_game"
	EntryMove         = "move"
	EntryFight        = "fight"
	EntryFlee         = "flee"
	EntryGameExists   = "game_exists"
	EntryGetGameState = "get_game_state"
)

// selectorFromName computes the starknet_keccak entry point selector for a
// function name: keccak256 truncated to 250 bits, hex encoded.
func selectorFromName(name string) string {
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(name))
	sum := h.Sum(nil)
	// Mask the top 6 bits to fit the field element.
	sum[0] &= 0x03
	encoded := strings.TrimLeft(hex.EncodeToString(sum), "0")
	if encoded == "" {
		encoded = "0"
	}
	return "0x" + encoded
}
