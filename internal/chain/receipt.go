package chain

import (
	"strings"

	"github.com/tidwall/gjson"

	"github.com/scard-game/scard/internal/game"
)

// Receipt is a finalized transaction receipt.
type Receipt struct {
	TransactionHash string
	ExecutionStatus string
	FinalityStatus  string
	Events          []ReceiptEvent
}

// ReceiptEvent is one emitted event in a receipt.
type ReceiptEvent struct {
	FromAddress string
	Keys        []string
	Data        []string
}

// receiptFromJSON builds a Receipt from a starknet_getTransactionReceipt
// result node.
func receiptFromJSON(result gjson.Result) Receipt {
	r := Receipt{
		TransactionHash: result.Get("transaction_hash").String(),
		ExecutionStatus: result.Get("execution_status").String(),
		FinalityStatus:  result.Get("finality_status").String(),
	}
	for _, evt := range result.Get("events").Array() {
		event := ReceiptEvent{FromAddress: evt.Get("from_address").String()}
		for _, k := range evt.Get("keys").Array() {
			event.Keys = append(event.Keys, k.String())
		}
		for _, d := range evt.Get("data").Array() {
			event.Data = append(event.Data, d.String())
		}
		r.Events = append(r.Events, event)
	}
	return r
}

// ParsedEvents are the domain facts extracted from a receipt's event log.
type ParsedEvents struct {
	// Position is the player position after the transaction, when a
	// movement event was present.
	Position *game.Position
	// EncounterCode is the generated encounter code (1..8), when an
	// encounter event was present. Codes outside that range are noise
	// and are not reported.
	EncounterCode *uint64
}

// ParseGameEvents extracts position and encounter facts from a receipt.
//
// Domain events are emitted by the world contract but carry the game
// systems contract address in keys[2]; that pair distinguishes them from
// incidental framework events. The field offsets below are an empirically
// confirmed wire contract, pinned by tests:
//   - movement events carry at least 6 data fields with x at data[4] and
//     y at data[5]
//   - encounter events carry exactly 4 data fields with the code at
//     data[3]
//
// The parser is pure: no I/O, deterministic for a given receipt.
func ParseGameEvents(receipt Receipt, gameSystemsAddr, worldAddr string) ParsedEvents {
	var parsed ParsedEvents
	if gameSystemsAddr == "" || worldAddr == "" {
		return parsed
	}

	for _, evt := range receipt.Events {
		if !strings.EqualFold(evt.FromAddress, worldAddr) {
			continue
		}
		if len(evt.Keys) < 3 || !strings.EqualFold(evt.Keys[2], gameSystemsAddr) {
			continue
		}

		if len(evt.Data) >= 6 {
			x, errX := parseFelt(evt.Data[4])
			y, errY := parseFelt(evt.Data[5])
			if errX == nil && errY == nil && x < game.GridSize && y < game.GridSize {
				parsed.Position = &game.Position{X: uint8(x), Y: uint8(y)}
			}
		}

		if len(evt.Data) == 4 {
			code, err := parseFelt(evt.Data[3])
			if err == nil && code >= 1 && code <= 8 {
				c := code
				parsed.EncounterCode = &c
			}
		}
	}
	return parsed
}
