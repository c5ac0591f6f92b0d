package indexer

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/scard-game/scard/internal/game"
	"github.com/scard-game/scard/internal/platform/retry"
	"github.com/scard-game/scard/internal/platform/timeouts"
)

// QueryMaxRetries bounds model reads that chase indexer lag.
const QueryMaxRetries = 5

// Namespace prefixes the model table names.
const Namespace = "scard"

var errNotIndexed = errors.New("model not indexed yet")

// Fetcher reads game models with lag-tolerant retries. A nil model with a
// nil error means the indexer never produced a usable row inside the
// attempt budget; it is unknown-state, not confirmed-absent.
type Fetcher struct {
	src   Source
	sleep func(ctx context.Context, d time.Duration) error
}

func NewFetcher(src Source) *Fetcher {
	return &Fetcher{src: src}
}

func (f *Fetcher) retryOpts() retry.Options {
	return retry.Options{
		MaxAttempts: QueryMaxRetries,
		Policy:      retry.Linear(timeouts.QueryBaseDelay),
		DelayFirst:  true,
		Sleep:       f.sleep,
	}
}

// FetchPlayer reads the player's stats. Rows with health, attack and
// damage all zero are not-yet-indexed sentinels and are retried.
func (f *Fetcher) FetchPlayer(ctx context.Context, gameID string) (*game.PlayerStats, error) {
	idFelt, err := hexGameID(gameID)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf(
		`SELECT health, attack_points, damage_points, has_free_flee, has_free_attack FROM %q WHERE game_id = %q LIMIT 1`,
		Namespace+"-Player", idFelt)

	stats, err := retry.Do(ctx, f.retryOpts(), func(ctx context.Context) (*game.PlayerStats, error) {
		rows, err := f.src.Query(ctx, query)
		if err != nil {
			return nil, err
		}
		row := rows.Get("0")
		if !row.Exists() {
			return nil, errNotIndexed
		}
		stats := &game.PlayerStats{
			Health:        uint16(feltValue(row.Get("health"))),
			AttackPoints:  uint16(feltValue(row.Get("attack_points"))),
			DamagePoints:  uint16(feltValue(row.Get("damage_points"))),
			HasFreeFlee:   feltValue(row.Get("has_free_flee")) == 1,
			HasFreeAttack: feltValue(row.Get("has_free_attack")) == 1,
		}
		if stats.Health == 0 && stats.AttackPoints == 0 && stats.DamagePoints == 0 {
			return nil, fmt.Errorf("%w: player row has all zero stats", errNotIndexed)
		}
		return stats, nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		log.Printf("[Player Stats] no usable player row for game %s: %v", gameID, err)
		return nil, nil
	}
	return stats, nil
}

// FetchBeastEncounter reads the beast encounter model. beast_type==0 and
// all-zero stat rows are sentinels and are retried. When expected is a
// beast kind and the indexed type disagrees, the read is retried; on the
// final attempt a valid mismatching beast is returned as best effort.
func (f *Fetcher) FetchBeastEncounter(ctx context.Context, gameID string, expected game.EncounterKind) (*game.BeastStats, error) {
	idFelt, err := hexGameID(gameID)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf(
		`SELECT beast_type, attack_points, damage_points FROM %q WHERE game_id = %q LIMIT 1`,
		Namespace+"-BeastEncounter", idFelt)

	attempt := 0
	beast, err := retry.Do(ctx, f.retryOpts(), func(ctx context.Context) (*game.BeastStats, error) {
		attempt++
		rows, err := f.src.Query(ctx, query)
		if err != nil {
			return nil, err
		}
		row := rows.Get("0")
		if !row.Exists() {
			return nil, errNotIndexed
		}
		beastType := feltValue(row.Get("beast_type"))
		attack := uint16(feltValue(row.Get("attack_points")))
		damage := uint16(feltValue(row.Get("damage_points")))

		if beastType == 0 || (attack == 0 && damage == 0) {
			return nil, fmt.Errorf("%w: beast row is empty (type %d, stats %d/%d)", errNotIndexed, beastType, attack, damage)
		}
		kind, ok := game.BeastFromCode(beastType)
		if !ok {
			return nil, fmt.Errorf("%w: unknown beast type %d", errNotIndexed, beastType)
		}
		if expected != "" && kind != expected && attempt < QueryMaxRetries {
			return nil, fmt.Errorf("%w: beast type mismatch (got %s, expected %s)", errNotIndexed, kind, expected)
		}
		if expected != "" && kind != expected {
			log.Printf("[Encounter] beast type mismatch after all retries (got %s, expected %s), keeping indexed value", kind, expected)
		}
		return &game.BeastStats{Kind: kind, AttackPoints: attack, DamagePoints: damage}, nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		log.Printf("[Encounter] no usable beast encounter for game %s: %v", gameID, err)
		return nil, nil
	}
	return beast, nil
}

// FetchCurrentEncounter reads the current encounter type in a single
// attempt. It is a consistency probe before fight and flee, where stale
// data must surface rather than be retried away.
func (f *Fetcher) FetchCurrentEncounter(ctx context.Context, gameID string) (*uint64, error) {
	idFelt, err := hexGameID(gameID)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf(
		`SELECT encounter_type FROM %q WHERE game_id = %q LIMIT 1`,
		Namespace+"-CurrentEncounter", idFelt)

	rows, err := f.src.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("current encounter: %w", err)
	}
	row := rows.Get("0")
	if !row.Exists() {
		return nil, nil
	}
	code := feltValue(row.Get("encounter_type"))
	return &code, nil
}
