// Package state holds the client's single source of truth for observed
// game state. The store is mutex-guarded with narrow setters as the only
// mutation path; subscribers are notified outside the lock. A generation
// counter fences late async results: any callback that started before the
// session changed commits through a generation-checked setter and is
// silently dropped when stale.
package state

import (
	"log"
	"sync"

	"github.com/scard-game/scard/internal/game"
)

// Snapshot is a copy of the full store contents at one point in time.
type Snapshot struct {
	GameID    string
	Player    game.PlayerStats
	Position  game.Position
	Status    game.Status
	Encounter *game.Encounter
	// Resolving marks the active encounter as speculatively cleared: a
	// fight/flee/move transaction is in flight and the encounter will be
	// either resolved or restored when it settles.
	Resolving bool
	// Busy is set while an action transaction is in flight; the
	// orchestrator refuses new actions until it clears.
	Busy bool
}

// Store is the session-scoped state container.
type Store struct {
	mu          sync.Mutex
	generation  uint64
	gameID      string
	player      game.PlayerStats
	position    game.Position
	status      game.Status
	encounter   *game.Encounter
	resolving   bool
	busy        bool
	subscribers []func(Snapshot)
}

func NewStore() *Store {
	return &Store{status: game.StatusInProgress}
}

// Subscribe registers fn to run after every mutation. fn is invoked
// outside the store lock and must not block for long.
func (s *Store) Subscribe(fn func(Snapshot)) {
	s.mu.Lock()
	s.subscribers = append(s.subscribers, fn)
	s.mu.Unlock()
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Generation returns the current session generation. Async flows capture
// it before suspending and pass it back to the *If setters.
func (s *Store) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation
}

func (s *Store) snapshotLocked() Snapshot {
	snap := Snapshot{
		GameID:    s.gameID,
		Player:    s.player,
		Position:  s.position,
		Status:    s.status,
		Resolving: s.resolving,
		Busy:      s.busy,
	}
	if s.encounter != nil {
		enc := *s.encounter
		if enc.Beast != nil {
			beast := *enc.Beast
			enc.Beast = &beast
		}
		snap.Encounter = &enc
	}
	return snap
}

// notify must be called after s.mu is released.
func (s *Store) notify(snap Snapshot, subs []func(Snapshot)) {
	for _, fn := range subs {
		fn(snap)
	}
}

// mutate runs fn under the lock, applies the win correction, and notifies
// subscribers with the resulting snapshot.
func (s *Store) mutate(fn func()) {
	s.mu.Lock()
	fn()
	s.correctWinLocked()
	snap := s.snapshotLocked()
	subs := s.subscribers
	s.mu.Unlock()
	s.notify(snap, subs)
}

// correctWinLocked enforces status/position coherence: a session standing
// on the win cell cannot still be in progress. The position is the more
// trustworthy evidence, so status is corrected, never the position.
func (s *Store) correctWinLocked() {
	if s.status == game.StatusInProgress && game.IsWinPosition(s.position) {
		log.Printf("[State Sync] status InProgress at win position %d,%d, correcting to Won", s.position.X, s.position.Y)
		s.status = game.StatusWon
		s.encounter = nil
		s.resolving = false
	}
}

// Reset clears the store for a new (or absent) session identity and
// bumps the generation so in-flight async commits from the previous
// session are fenced out. Returns the new generation.
func (s *Store) Reset(gameID string) uint64 {
	var gen uint64
	s.mutate(func() {
		s.generation++
		gen = s.generation
		s.gameID = gameID
		s.player = game.PlayerStats{}
		s.position = game.Position{}
		s.status = game.StatusInProgress
		s.encounter = nil
		s.resolving = false
		s.busy = false
	})
	return gen
}

// Restore populates the full session state in one step so readers never
// observe a half-updated frame.
func (s *Store) Restore(gen uint64, player game.PlayerStats, pos game.Position, status game.Status, enc *game.Encounter) bool {
	ok := false
	s.mutate(func() {
		if gen != s.generation {
			return
		}
		ok = true
		s.player = player
		s.position = pos
		s.status = status
		s.encounter = enc
		s.resolving = false
	})
	return ok
}

// TryBeginAction claims the single in-flight action slot. It fails when
// another action has not settled yet.
func (s *Store) TryBeginAction() bool {
	s.mu.Lock()
	if s.busy {
		s.mu.Unlock()
		return false
	}
	s.busy = true
	snap := s.snapshotLocked()
	subs := s.subscribers
	s.mu.Unlock()
	s.notify(snap, subs)
	return true
}

func (s *Store) EndAction() {
	s.mutate(func() { s.busy = false })
}

// SetPositionIf records a confirmed position, fenced by generation. The
// win correction runs in the same pass.
func (s *Store) SetPositionIf(gen uint64, pos game.Position) bool {
	ok := false
	s.mutate(func() {
		if gen != s.generation {
			return
		}
		ok = true
		s.position = pos
	})
	return ok
}

// SetEncounterIf installs a fresh unresolved encounter, fenced by
// generation.
func (s *Store) SetEncounterIf(gen uint64, enc *game.Encounter) bool {
	ok := false
	s.mutate(func() {
		if gen != s.generation {
			return
		}
		ok = true
		s.encounter = enc
		s.resolving = false
	})
	return ok
}

// MarkResolvingIf flags the active encounter as speculatively cleared
// while its resolution transaction is in flight. Reports whether an
// encounter was present to mark in the fenced generation.
func (s *Store) MarkResolvingIf(gen uint64) bool {
	ok := false
	s.mutate(func() {
		if gen != s.generation || s.encounter == nil {
			return
		}
		s.resolving = true
		ok = true
	})
	return ok
}

// ResolveEncounterIf commits the speculative clear: the encounter is
// gone. Reports whether gen still matched; a false return means the
// session changed while the resolution settled and the caller must
// treat its receipt as stale.
func (s *Store) ResolveEncounterIf(gen uint64) bool {
	ok := false
	s.mutate(func() {
		if gen != s.generation {
			return
		}
		ok = true
		s.encounter = nil
		s.resolving = false
	})
	return ok
}

// FailResolutionIf abandons the speculative clear, keeping the encounter
// active (optionally replacing it with re-synced data when enc != nil).
func (s *Store) FailResolutionIf(gen uint64, enc *game.Encounter) bool {
	ok := false
	s.mutate(func() {
		if gen != s.generation {
			return
		}
		ok = true
		if enc != nil {
			s.encounter = enc
		}
		s.resolving = false
	})
	return ok
}

// ClearEncounter drops the active encounter synchronously (gift
// acknowledgement). Async flows that suspended use ClearEncounterIf.
func (s *Store) ClearEncounter() {
	s.mutate(func() {
		s.encounter = nil
		s.resolving = false
	})
}

// ClearEncounterIf drops the active encounter, fenced by generation.
func (s *Store) ClearEncounterIf(gen uint64) bool {
	ok := false
	s.mutate(func() {
		if gen != s.generation {
			return
		}
		ok = true
		s.encounter = nil
		s.resolving = false
	})
	return ok
}

// SetPlayerIf commits player stats only when gen still matches the
// current session generation. Reports whether the commit applied.
func (s *Store) SetPlayerIf(gen uint64, player game.PlayerStats) bool {
	ok := false
	s.mutate(func() {
		if gen != s.generation {
			return
		}
		ok = true
		s.player = player
		if player.Health == 0 {
			s.status = game.StatusLost
		}
	})
	return ok
}

// SetEncounterBeastIf attaches enrichment data to the active encounter,
// fenced by generation. A resolved or replaced encounter drops the
// enrichment silently.
func (s *Store) SetEncounterBeastIf(gen uint64, beast *game.BeastStats) bool {
	ok := false
	s.mutate(func() {
		if gen != s.generation || s.encounter == nil || !s.encounter.Kind.IsBeast() {
			return
		}
		ok = true
		enc := *s.encounter
		enc.Beast = beast
		s.encounter = &enc
	})
	return ok
}

