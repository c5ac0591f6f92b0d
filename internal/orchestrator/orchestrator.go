// Package orchestrator drives the movement/encounter state machine. It
// enforces legal-action preconditions before any transaction is
// submitted, reconciles receipt facts and indexer facts into the store,
// and synthesizes user-facing notifications. Actions for one session are
// serialized: a second action while one is in flight is rejected, never
// queued.
package orchestrator

import (
	"context"
	"errors"
	"log"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/scard-game/scard/internal/chain"
	"github.com/scard-game/scard/internal/game"
	"github.com/scard-game/scard/internal/gameerr"
	"github.com/scard-game/scard/internal/notify"
	"github.com/scard-game/scard/internal/state"
)

// Submitter is the transaction write path.
type Submitter interface {
	CreateGame(ctx context.Context, gameID string) (string, error)
	Move(ctx context.Context, gameID string, dir game.Direction) (string, error)
	Fight(ctx context.Context, gameID string) (string, error)
	Flee(ctx context.Context, gameID string) (string, error)
	AwaitFinality(ctx context.Context, txHash string) (chain.Receipt, error)
}

// Fetcher is the eventually-consistent indexer read path. Nil results
// with nil errors mean unknown, never confirmed-absent.
type Fetcher interface {
	FetchPlayer(ctx context.Context, gameID string) (*game.PlayerStats, error)
	FetchBeastEncounter(ctx context.Context, gameID string, expected game.EncounterKind) (*game.BeastStats, error)
	FetchCurrentEncounter(ctx context.Context, gameID string) (*uint64, error)
}

// Orchestrator coordinates one session's actions.
type Orchestrator struct {
	gateway Submitter
	fetch   Fetcher
	store   *state.Store
	sink    notify.Sink
	tracer  trace.Tracer

	gameSystemsAddr string
	worldAddr       string

	// spawn runs enrichment and stat-refresh work that must not block
	// the action flow. Tests run it inline.
	spawn func(fn func())
}

func New(gateway Submitter, fetch Fetcher, store *state.Store, sink notify.Sink, gameSystemsAddr, worldAddr string) *Orchestrator {
	if sink == nil {
		sink = notify.Discard
	}
	return &Orchestrator{
		gateway:         gateway,
		fetch:           fetch,
		store:           store,
		sink:            sink,
		tracer:          otel.Tracer("orchestrator"),
		gameSystemsAddr: gameSystemsAddr,
		worldAddr:       worldAddr,
		spawn:           func(fn func()) { go fn() },
	}
}

// SetSink replaces the notification sink. Used at wiring time when the
// sink (the web bridge) is constructed after the orchestrator.
func (o *Orchestrator) SetSink(sink notify.Sink) {
	if sink == nil {
		sink = notify.Discard
	}
	o.sink = sink
}

// CreateGame starts a fresh session for the current identity and commits
// its known initial state once the creation transaction finalizes. The
// authoritative stats are re-fetched in the background.
func (o *Orchestrator) CreateGame(ctx context.Context) error {
	ctx, span := o.tracer.Start(ctx, "orchestrator.create")
	defer span.End()

	snap := o.store.Snapshot()
	if snap.GameID == "" {
		return gameerr.New(gameerr.CodeInitFailed)
	}
	if !o.store.TryBeginAction() {
		return gameerr.New(gameerr.CodeActionInFlight)
	}
	defer o.store.EndAction()

	gen := o.store.Generation()
	txHash, err := o.gateway.CreateGame(ctx, snap.GameID)
	if err != nil {
		return gameerr.Wrap(gameerr.CodeWalletUnavailable, err)
	}
	if _, err := o.gateway.AwaitFinality(ctx, txHash); err != nil {
		return o.finalityError(err)
	}

	// Position and health of a fresh session are contract defaults; the
	// remaining stats arrive with the background refresh.
	o.store.Restore(gen,
		game.PlayerStats{Health: game.MaxPlayerHealth},
		game.Position{}, game.StatusInProgress, nil)
	o.refreshStats(ctx, snap.GameID, gen, game.PlayerStats{}, false)
	return nil
}

// MovePlayer submits a move. A terminal game or an unresolved beast
// encounter rejects the action locally before any network call.
func (o *Orchestrator) MovePlayer(ctx context.Context, dir game.Direction) error {
	ctx, span := o.tracer.Start(ctx, "orchestrator.move")
	defer span.End()

	if _, err := dir.WireCode(); err != nil {
		return gameerr.New(gameerr.CodeInvalidDirection)
	}
	snap := o.store.Snapshot()
	if snap.GameID == "" {
		return gameerr.New(gameerr.CodeInitFailed)
	}
	if snap.Status.Terminal() {
		return gameerr.New(gameerr.CodeGameAlreadyOver)
	}
	if snap.Encounter != nil && snap.Encounter.Kind.IsBeast() {
		return gameerr.New(gameerr.CodeEncounterUnresolved)
	}
	if !o.store.TryBeginAction() {
		return gameerr.New(gameerr.CodeActionInFlight)
	}
	defer o.store.EndAction()

	gen := o.store.Generation()
	// A lingering gift encounter is cleared speculatively; the receipt
	// decides whether a new one replaces it.
	resolving := o.store.MarkResolvingIf(gen)

	txHash, err := o.gateway.Move(ctx, snap.GameID, dir)
	if err != nil {
		if resolving {
			o.store.FailResolutionIf(gen, nil)
		}
		return gameerr.Wrap(gameerr.CodeWalletUnavailable, err)
	}
	receipt, err := o.gateway.AwaitFinality(ctx, txHash)
	if err != nil {
		if resolving {
			o.store.FailResolutionIf(gen, nil)
		}
		return o.finalityError(err)
	}

	parsed := chain.ParseGameEvents(receipt, o.gameSystemsAddr, o.worldAddr)
	if !o.store.ResolveEncounterIf(gen) {
		// The session changed while the transaction settled; the receipt
		// belongs to the previous identity and is dropped whole.
		log.Printf("[Move] game %s: session changed in flight, dropping receipt", snap.GameID)
		return nil
	}
	if parsed.Position != nil {
		o.store.SetPositionIf(gen, *parsed.Position)
		if game.IsWinPosition(*parsed.Position) {
			// The win suppresses any encounter code in the same receipt.
			log.Printf("[Move] game %s reached the win position", snap.GameID)
			o.refreshStats(ctx, snap.GameID, gen, snap.Player, true)
			return nil
		}
	}

	if parsed.EncounterCode != nil {
		o.applyEncounter(ctx, snap.GameID, gen, *parsed.EncounterCode)
	}
	o.refreshStats(ctx, snap.GameID, gen, snap.Player, true)
	return nil
}

// applyEncounter installs the encounter immediately with nil beast stats
// so it is visible without waiting on the indexer, then enriches beast
// kinds in the background. Failed enrichment leaves the encounter
// displayed without stats rather than revoking it.
func (o *Orchestrator) applyEncounter(ctx context.Context, gameID string, gen uint64, code uint64) {
	kind, ok := game.EncounterFromCode(code)
	if !ok {
		return
	}
	log.Printf("[Encounter] game %s: %s (code %d)", gameID, kind, code)
	if !o.store.SetEncounterIf(gen, &game.Encounter{Kind: kind}) {
		return
	}

	if !kind.IsBeast() {
		o.sink.Notify(notify.GiftEncounter(kind))
		return
	}

	bg := context.WithoutCancel(ctx)
	o.spawn(func() {
		beast, err := o.fetch.FetchBeastEncounter(bg, gameID, kind)
		if err != nil || beast == nil {
			log.Printf("[Encounter] enrichment unavailable for game %s: %v", gameID, err)
			return
		}
		o.store.SetEncounterBeastIf(gen, beast)
	})
}

// refreshStats re-fetches player stats in the background. Gift encounters
// mutate stats on-chain without an explicit client action, so the diff
// against the pre-action snapshot feeds the notification stream. Best
// effort: a failed refresh never rolls anything back.
func (o *Orchestrator) refreshStats(ctx context.Context, gameID string, gen uint64, before game.PlayerStats, announce bool) {
	bg := context.WithoutCancel(ctx)
	o.spawn(func() {
		stats, err := o.fetch.FetchPlayer(bg, gameID)
		if err != nil || stats == nil {
			log.Printf("[Player Stats] refresh unavailable for game %s: %v", gameID, err)
			return
		}
		if !o.store.SetPlayerIf(gen, *stats) {
			return
		}
		if announce {
			for _, n := range notify.StatChanges(before, *stats) {
				o.sink.Notify(n)
			}
		}
	})
}

// Fight resolves the active beast encounter by combat.
func (o *Orchestrator) Fight(ctx context.Context) error {
	ctx, span := o.tracer.Start(ctx, "orchestrator.fight")
	defer span.End()
	return o.resolveBeast(ctx, o.gateway.Fight, notify.OutcomeVictory)
}

// Flee resolves the active beast encounter by escape.
func (o *Orchestrator) Flee(ctx context.Context) error {
	ctx, span := o.tracer.Start(ctx, "orchestrator.flee")
	defer span.End()
	return o.resolveBeast(ctx, o.gateway.Flee, notify.OutcomeFled)
}

func (o *Orchestrator) resolveBeast(ctx context.Context, submit func(context.Context, string) (string, error), outcome notify.CombatOutcome) error {
	snap := o.store.Snapshot()
	if snap.GameID == "" {
		return gameerr.New(gameerr.CodeInitFailed)
	}
	if snap.Status.Terminal() {
		return gameerr.New(gameerr.CodeGameAlreadyOver)
	}
	if snap.Encounter == nil || !snap.Encounter.Kind.IsBeast() {
		return gameerr.New(gameerr.CodeNoActiveEncounter)
	}
	if !o.store.TryBeginAction() {
		return gameerr.New(gameerr.CodeActionInFlight)
	}
	defer o.store.EndAction()

	gen := o.store.Generation()

	// Re-validate against the indexer before paying for a transaction
	// the contract would reject. An unreachable indexer is unknown, not
	// disagreement, and does not block the action.
	if err := o.revalidateEncounter(ctx, snap.GameID, gen, snap.Encounter.Kind); err != nil {
		return err
	}

	o.store.MarkResolvingIf(gen)

	txHash, err := submit(ctx, snap.GameID)
	if err != nil {
		o.store.FailResolutionIf(gen, nil)
		return gameerr.Wrap(gameerr.CodeWalletUnavailable, err)
	}
	if _, err := o.gateway.AwaitFinality(ctx, txHash); err != nil {
		if errors.Is(err, chain.ErrReverted) {
			// The encounter stays active; its stats are re-synced from
			// the indexer in case the contract regenerated them.
			o.store.FailResolutionIf(gen, nil)
			o.resyncEncounter(ctx, snap.GameID, gen, snap.Encounter.Kind)
		} else {
			o.store.FailResolutionIf(gen, nil)
		}
		return o.finalityError(err)
	}

	// The encounter is resolved the moment the transaction is accepted,
	// whatever the combat outcome was.
	if !o.store.ResolveEncounterIf(gen) {
		log.Printf("[Combat] game %s: session changed in flight, dropping resolution", snap.GameID)
		return nil
	}
	o.announceCombat(ctx, snap, gen, outcome)
	return nil
}

func (o *Orchestrator) revalidateEncounter(ctx context.Context, gameID string, gen uint64, localKind game.EncounterKind) error {
	code, err := o.fetch.FetchCurrentEncounter(ctx, gameID)
	if err != nil || code == nil {
		return nil
	}
	indexed, ok := game.EncounterFromCode(*code)
	if ok && indexed == localKind {
		return nil
	}
	log.Printf("[Encounter] indexer disagrees for game %s (local %s, indexed code %d), clearing", gameID, localKind, *code)
	o.store.ClearEncounterIf(gen)
	return gameerr.New(gameerr.CodeEncounterOutOfSync)
}

// resyncEncounter restores beast stats after a reverted resolution.
func (o *Orchestrator) resyncEncounter(ctx context.Context, gameID string, gen uint64, kind game.EncounterKind) {
	bg := context.WithoutCancel(ctx)
	o.spawn(func() {
		beast, err := o.fetch.FetchBeastEncounter(bg, gameID, kind)
		if err != nil || beast == nil {
			return
		}
		o.store.SetEncounterBeastIf(gen, beast)
	})
}

// announceCombat learns the actual outcome from a background stat refresh
// and surfaces a died/victory/escaped notification.
func (o *Orchestrator) announceCombat(ctx context.Context, snap state.Snapshot, gen uint64, outcome notify.CombatOutcome) {
	bg := context.WithoutCancel(ctx)
	before := snap.Player
	freeAbility := (outcome == notify.OutcomeVictory && before.HasFreeAttack) ||
		(outcome == notify.OutcomeFled && before.HasFreeFlee)

	o.spawn(func() {
		stats, err := o.fetch.FetchPlayer(bg, snap.GameID)
		if err != nil || stats == nil {
			log.Printf("[Combat] stat refresh unavailable for game %s: %v", snap.GameID, err)
			return
		}
		if !o.store.SetPlayerIf(gen, *stats) {
			return
		}
		damageTaken := int(before.Health) - int(stats.Health)
		if damageTaken < 0 {
			damageTaken = 0
		}
		if stats.Health == 0 {
			o.sink.Notify(notify.CombatResult(notify.OutcomeDied, damageTaken, false))
			return
		}
		o.sink.Notify(notify.CombatResult(outcome, damageTaken, freeAbility))
	})
}

// AcknowledgeEncounter dismisses a gift or free-roam encounter. The
// on-chain effect already happened during the move; this only clears the
// local marker.
func (o *Orchestrator) AcknowledgeEncounter() error {
	snap := o.store.Snapshot()
	if snap.Encounter == nil {
		return gameerr.New(gameerr.CodeNoActiveEncounter)
	}
	if snap.Encounter.Kind.IsBeast() {
		return gameerr.New(gameerr.CodeEncounterUnresolved)
	}
	o.store.ClearEncounter()
	return nil
}

func (o *Orchestrator) finalityError(err error) error {
	switch {
	case errors.Is(err, chain.ErrReverted):
		return gameerr.Wrap(gameerr.CodeTxReverted, err)
	case errors.Is(err, chain.ErrTimeout):
		return gameerr.Wrap(gameerr.CodeTxTimeout, err)
	default:
		return gameerr.Wrap(gameerr.CodeUnknown, err)
	}
}
