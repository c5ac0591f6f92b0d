// Package director owns the session bootstrap: when the wallet address
// changes it derives the game id, checks whether the session exists
// on-chain, creates it if not, and restores the full state into the
// store in one commit.
package director

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/tidwall/gjson"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/scard-game/scard/internal/chain"
	"github.com/scard-game/scard/internal/game"
	"github.com/scard-game/scard/internal/gameerr"
	"github.com/scard-game/scard/internal/state"
)

// Phase is the bootstrap lifecycle state. Initializing doubles as the
// reentrancy guard: a second bootstrap attempt while one is running is a
// no-op rather than a double-submitted creation transaction.
type Phase string

const (
	PhaseIdle         Phase = "idle"
	PhaseInitializing Phase = "initializing"
	PhaseReady        Phase = "ready"
	PhaseError        Phase = "error"
)

// StateReader is the direct contract read path.
type StateReader interface {
	GameExists(ctx context.Context, gameID string) (bool, error)
	GetGameState(ctx context.Context, gameID string) (*chain.GameState, error)
}

// Creator submits the session-creation transaction and awaits finality.
type Creator interface {
	CreateGame(ctx context.Context, gameID string) (string, error)
	AwaitFinality(ctx context.Context, txHash string) (chain.Receipt, error)
}

// HistoryLoader fetches the best-effort historical event log.
type HistoryLoader interface {
	GameEvents(ctx context.Context, gameID string) []gjson.Result
}

// Director is the session lifecycle controller.
type Director struct {
	reader  StateReader
	creator Creator
	history HistoryLoader
	store   *state.Store
	tracer  trace.Tracer

	mu sync.Mutex
	// lastInitialized prevents redundant re-bootstrap for an identity
	// that already completed initialization. inflight scopes the
	// mid-bootstrap guard to the identity being bootstrapped.
	lastInitialized string
	inflight        string
	phase           Phase
	errMsg          string
	events          []gjson.Result
}

func New(reader StateReader, creator Creator, history HistoryLoader, store *state.Store) *Director {
	return &Director{
		reader:  reader,
		creator: creator,
		history: history,
		store:   store,
		tracer:  otel.Tracer("director"),
		phase:   PhaseIdle,
	}
}

// Phase returns the current bootstrap phase and, in PhaseError, the
// user-facing failure message.
func (d *Director) Phase() (Phase, string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.phase, d.errMsg
}

// Events returns the loaded historical event log, newest first. Empty
// until the non-blocking history load completes.
func (d *Director) Events() []gjson.Result {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.events
}

// SetAddress reacts to a wallet connect, switch, or disconnect. An empty
// address clears the session. A new address derives the game id and runs
// the bootstrap. Repeats for an already-initialized identity and calls
// that arrive mid-bootstrap for the same identity are no-ops; a call for
// a different identity while a bootstrap is in flight returns a
// retryable coded error instead of being silently swallowed.
func (d *Director) SetAddress(ctx context.Context, address string) error {
	if address == "" {
		d.mu.Lock()
		d.lastInitialized = ""
		d.phase = PhaseIdle
		d.errMsg = ""
		d.events = nil
		d.mu.Unlock()
		d.store.Reset("")
		log.Printf("[GameDirector] no address, cleared session state")
		return nil
	}

	gameID := game.DeriveGameID(address)

	d.mu.Lock()
	if d.phase == PhaseInitializing {
		same := d.inflight == gameID
		d.mu.Unlock()
		if same {
			return nil
		}
		return gameerr.New(gameerr.CodeActionInFlight)
	}
	if d.lastInitialized == gameID && d.phase == PhaseReady {
		d.mu.Unlock()
		return nil
	}
	d.phase = PhaseInitializing
	d.inflight = gameID
	d.errMsg = ""
	d.events = nil
	d.mu.Unlock()

	ctx, span := d.tracer.Start(ctx, "director.bootstrap")
	defer span.End()

	if err := d.initialize(ctx, gameID); err != nil {
		d.mu.Lock()
		d.phase = PhaseError
		d.errMsg = err.Error()
		d.mu.Unlock()
		log.Printf("[GameDirector] initialization failed for game %s: %v", gameID, err)
		return gameerr.Wrap(gameerr.CodeInitFailed, err)
	}

	d.mu.Lock()
	d.phase = PhaseReady
	d.lastInitialized = gameID
	d.mu.Unlock()
	log.Printf("[GameDirector] game %s ready", gameID)
	return nil
}

func (d *Director) initialize(ctx context.Context, gameID string) error {
	gen := d.store.Reset(gameID)

	exists, err := d.reader.GameExists(ctx, gameID)
	if err != nil {
		return fmt.Errorf("checking game existence: %w", err)
	}

	if !exists {
		log.Printf("[GameDirector] no existing game %s, creating", gameID)
		txHash, err := d.creator.CreateGame(ctx, gameID)
		if err != nil {
			return fmt.Errorf("creating game: %w", err)
		}
		if _, err := d.creator.AwaitFinality(ctx, txHash); err != nil {
			return fmt.Errorf("awaiting game creation: %w", err)
		}
	} else {
		log.Printf("[GameDirector] existing game %s detected, restoring", gameID)
	}

	return d.restore(ctx, gameID, gen)
}

// restore fetches the full on-chain state and commits it in one step.
// Nothing is written to the store until every field is gathered.
func (d *Director) restore(ctx context.Context, gameID string, gen uint64) error {
	gs, err := d.reader.GetGameState(ctx, gameID)
	if err != nil {
		return fmt.Errorf("fetching game state: %w", err)
	}

	var enc *game.Encounter
	if kind, ok := game.EncounterFromCode(gs.EncounterCode); ok {
		enc = &game.Encounter{Kind: kind}
		if kind.IsBeast() && gs.HasBeast {
			enc.Beast = gs.Beast
		}
	}

	if !d.store.Restore(gen, gs.Player, gs.Position, gs.Status, enc) {
		return fmt.Errorf("session changed during restore")
	}

	// Historical events feed the combat log; a lagging indexer must not
	// hold up the bootstrap.
	if d.history != nil {
		go d.loadHistory(context.WithoutCancel(ctx), gameID, gen)
	}
	return nil
}

func (d *Director) loadHistory(ctx context.Context, gameID string, gen uint64) {
	events := d.history.GameEvents(ctx, gameID)
	d.mu.Lock()
	defer d.mu.Unlock()
	if gen != d.store.Generation() {
		return
	}
	d.events = events
}
