// Package gameerr provides structured, user-presentable errors for
// orchestration-level failures. Low-level fetch and parse errors stay
// inside their own layers; only these coded errors reach the UI.
package gameerr

import (
	"errors"
	"fmt"
)

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unclassified error.
	CodeUnknown Code = "UNKNOWN"

	// Precondition violations (no network call was made).
	CodeGameAlreadyOver     Code = "GAME_ALREADY_OVER"
	CodeEncounterUnresolved Code = "ENCOUNTER_UNRESOLVED"
	CodeNoActiveEncounter   Code = "NO_ACTIVE_ENCOUNTER"
	CodeEncounterOutOfSync  Code = "ENCOUNTER_OUT_OF_SYNC"
	CodeActionInFlight      Code = "ACTION_IN_FLIGHT"
	CodeInvalidDirection    Code = "INVALID_DIRECTION"

	// Write-path failures.
	CodeTxReverted Code = "TX_REVERTED"
	CodeTxTimeout  Code = "TX_TIMEOUT"

	// Session failures.
	CodeWalletUnavailable Code = "WALLET_UNAVAILABLE"
	CodeInitFailed        Code = "INIT_FAILED"
)

// messages are the default user-facing texts per code.
var messages = map[Code]string{
	CodeUnknown:             "Something went wrong",
	CodeGameAlreadyOver:     "Game is already over. Please start a new game.",
	CodeEncounterUnresolved: "Resolve the encounter first: fight or flee.",
	CodeNoActiveEncounter:   "No active encounter to resolve.",
	CodeEncounterOutOfSync:  "The encounter was already resolved on-chain.",
	CodeActionInFlight:      "Another action is still in flight.",
	CodeInvalidDirection:    "Unknown move direction.",
	CodeTxReverted:          "Transaction reverted.",
	CodeTxTimeout:           "Transaction confirmation timed out.",
	CodeWalletUnavailable:   "Wallet is not available.",
	CodeInitFailed:          "Failed to initialize game.",
}

// Message returns the default user-facing text for a code.
func Message(code Code) string {
	if msg, ok := messages[code]; ok {
		return msg
	}
	return messages[CodeUnknown]
}

// Error carries a code, a user-facing message, and an optional cause.
type Error struct {
	Code    Code
	Message string
	Err     error
}

// New creates a coded error with the default message for the code.
func New(code Code) *Error {
	return &Error{Code: code, Message: Message(code)}
}

// Wrap creates a coded error with a cause.
func Wrap(code Code, err error) *Error {
	return &Error{Code: code, Message: Message(code), Err: err}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the cause.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// CodeOf extracts the code from err, or CodeUnknown for uncoded errors.
func CodeOf(err error) Code {
	var coded *Error
	if errors.As(err, &coded) {
		return coded.Code
	}
	return CodeUnknown
}
