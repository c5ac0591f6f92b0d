package indexer

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/tidwall/gjson"

	"github.com/scard-game/scard/internal/game"
)

type fakeSource struct {
	results []gjson.Result
	errs    []error
	queries []string
}

func (f *fakeSource) Query(_ context.Context, query string) (gjson.Result, error) {
	i := len(f.queries)
	f.queries = append(f.queries, query)
	var res gjson.Result
	var err error
	if i < len(f.results) {
		res = f.results[i]
	}
	if i < len(f.errs) {
		err = f.errs[i]
	}
	return res, err
}

func newTestFetcher(src Source) *Fetcher {
	f := NewFetcher(src)
	f.sleep = func(context.Context, time.Duration) error { return nil }
	return f
}

func rows(json string) gjson.Result { return gjson.Parse(json) }

func TestFetchPlayer(t *testing.T) {
	src := &fakeSource{results: []gjson.Result{
		rows(`[{"health":80,"attack_points":12,"damage_points":5,"has_free_flee":1,"has_free_attack":0}]`),
	}}
	f := newTestFetcher(src)

	stats, err := f.FetchPlayer(context.Background(), "12345")
	if err != nil {
		t.Fatalf("fetch player: %v", err)
	}
	if stats == nil {
		t.Fatal("expected player stats")
	}
	want := game.PlayerStats{Health: 80, AttackPoints: 12, DamagePoints: 5, HasFreeFlee: true}
	if *stats != want {
		t.Fatalf("stats = %+v, want %+v", *stats, want)
	}
	if len(src.queries) != 1 {
		t.Fatalf("queries = %d, want 1", len(src.queries))
	}
	if !strings.Contains(src.queries[0], `"scard-Player"`) || !strings.Contains(src.queries[0], `"0x3039"`) {
		t.Fatalf("unexpected query: %s", src.queries[0])
	}
}

func TestFetchPlayer_HexColumns(t *testing.T) {
	src := &fakeSource{results: []gjson.Result{
		rows(`[{"health":"0x50","attack_points":"0xc","damage_points":"0x5","has_free_flee":"0x0","has_free_attack":"0x1"}]`),
	}}
	f := newTestFetcher(src)

	stats, err := f.FetchPlayer(context.Background(), "1")
	if err != nil {
		t.Fatalf("fetch player: %v", err)
	}
	if stats == nil || stats.Health != 80 || stats.AttackPoints != 12 || !stats.HasFreeAttack {
		t.Fatalf("stats = %+v", stats)
	}
}

func TestFetchPlayer_RetriesSentinel(t *testing.T) {
	zero := rows(`[{"health":0,"attack_points":0,"damage_points":0,"has_free_flee":0,"has_free_attack":0}]`)
	src := &fakeSource{results: []gjson.Result{
		zero,
		rows(`[]`),
		rows(`[{"health":95,"attack_points":10,"damage_points":5,"has_free_flee":0,"has_free_attack":0}]`),
	}}
	f := newTestFetcher(src)

	stats, err := f.FetchPlayer(context.Background(), "1")
	if err != nil {
		t.Fatalf("fetch player: %v", err)
	}
	if stats == nil || stats.Health != 95 {
		t.Fatalf("stats = %+v", stats)
	}
	if len(src.queries) != 3 {
		t.Fatalf("queries = %d, want 3", len(src.queries))
	}
}

func TestFetchPlayer_ExhaustionReturnsNil(t *testing.T) {
	src := &fakeSource{}
	f := newTestFetcher(src)

	stats, err := f.FetchPlayer(context.Background(), "1")
	if err != nil {
		t.Fatalf("fetch player: %v", err)
	}
	if stats != nil {
		t.Fatalf("expected nil stats, got %+v", stats)
	}
	if len(src.queries) != QueryMaxRetries {
		t.Fatalf("queries = %d, want %d", len(src.queries), QueryMaxRetries)
	}
}

func TestFetchPlayer_LinearDelayBeforeEveryAttempt(t *testing.T) {
	src := &fakeSource{results: []gjson.Result{
		rows(`[{"health":95,"attack_points":10,"damage_points":5,"has_free_flee":0,"has_free_attack":0}]`),
	}}
	f := NewFetcher(src)
	var delays []time.Duration
	f.sleep = func(_ context.Context, d time.Duration) error {
		delays = append(delays, d)
		return nil
	}

	if _, err := f.FetchPlayer(context.Background(), "1"); err != nil {
		t.Fatalf("fetch player: %v", err)
	}
	// The first delay lands before the first attempt: the read always
	// follows a just-finalized transaction the indexer has not seen yet.
	if len(delays) != 1 || delays[0] != 300*time.Millisecond {
		t.Fatalf("delays = %v, want [300ms]", delays)
	}
}

func TestFetchBeastEncounter(t *testing.T) {
	src := &fakeSource{results: []gjson.Result{
		rows(`[{"beast_type":2,"attack_points":7,"damage_points":9}]`),
	}}
	f := newTestFetcher(src)

	beast, err := f.FetchBeastEncounter(context.Background(), "1", game.EncounterVampire)
	if err != nil {
		t.Fatalf("fetch beast: %v", err)
	}
	want := game.BeastStats{Kind: game.EncounterVampire, AttackPoints: 7, DamagePoints: 9}
	if beast == nil || *beast != want {
		t.Fatalf("beast = %+v, want %+v", beast, want)
	}
}

func TestFetchBeastEncounter_RejectsSentinels(t *testing.T) {
	src := &fakeSource{results: []gjson.Result{
		rows(`[{"beast_type":0,"attack_points":7,"damage_points":9}]`),
		rows(`[{"beast_type":1,"attack_points":0,"damage_points":0}]`),
		rows(`[{"beast_type":1,"attack_points":6,"damage_points":8}]`),
	}}
	f := newTestFetcher(src)

	beast, err := f.FetchBeastEncounter(context.Background(), "1", game.EncounterWerewolf)
	if err != nil {
		t.Fatalf("fetch beast: %v", err)
	}
	if beast == nil || beast.Kind != game.EncounterWerewolf || beast.AttackPoints != 6 {
		t.Fatalf("beast = %+v", beast)
	}
	if len(src.queries) != 3 {
		t.Fatalf("queries = %d, want 3", len(src.queries))
	}
}

func TestFetchBeastEncounter_MismatchReturnedOnFinalAttempt(t *testing.T) {
	vampire := rows(`[{"beast_type":2,"attack_points":7,"damage_points":9}]`)
	src := &fakeSource{results: []gjson.Result{vampire, vampire, vampire, vampire, vampire}}
	f := newTestFetcher(src)

	beast, err := f.FetchBeastEncounter(context.Background(), "1", game.EncounterWerewolf)
	if err != nil {
		t.Fatalf("fetch beast: %v", err)
	}
	if len(src.queries) != QueryMaxRetries {
		t.Fatalf("queries = %d, want %d", len(src.queries), QueryMaxRetries)
	}
	// A consistently indexed beast of the wrong kind beats unknown state.
	if beast == nil || beast.Kind != game.EncounterVampire {
		t.Fatalf("beast = %+v, want best-effort vampire", beast)
	}
}

func TestFetchBeastEncounter_ExhaustionReturnsNil(t *testing.T) {
	src := &fakeSource{}
	f := newTestFetcher(src)

	beast, err := f.FetchBeastEncounter(context.Background(), "1", "")
	if err != nil {
		t.Fatalf("fetch beast: %v", err)
	}
	if beast != nil {
		t.Fatalf("expected nil beast, got %+v", beast)
	}
}

func TestFetchCurrentEncounter_SingleAttempt(t *testing.T) {
	src := &fakeSource{results: []gjson.Result{
		rows(`[{"encounter_type":3}]`),
	}}
	f := newTestFetcher(src)

	code, err := f.FetchCurrentEncounter(context.Background(), "1")
	if err != nil {
		t.Fatalf("fetch current encounter: %v", err)
	}
	if code == nil || *code != 3 {
		t.Fatalf("code = %v, want 3", code)
	}
	if len(src.queries) != 1 {
		t.Fatalf("queries = %d, want 1", len(src.queries))
	}
}

func TestFetchCurrentEncounter_Missing(t *testing.T) {
	src := &fakeSource{results: []gjson.Result{rows(`[]`)}}
	f := newTestFetcher(src)

	code, err := f.FetchCurrentEncounter(context.Background(), "1")
	if err != nil {
		t.Fatalf("fetch current encounter: %v", err)
	}
	if code != nil {
		t.Fatalf("code = %v, want nil", code)
	}
}

func TestFetchCurrentEncounter_Error(t *testing.T) {
	src := &fakeSource{errs: []error{errors.New("connection refused")}}
	f := newTestFetcher(src)

	if _, err := f.FetchCurrentEncounter(context.Background(), "1"); err == nil {
		t.Fatal("expected error")
	}
}

func TestGameEvents(t *testing.T) {
	src := &fakeSource{results: []gjson.Result{
		rows(`[{"data":"{\"kind\":\"move\",\"x\":1}"},{"data":"not json"},{"data":"{\"kind\":\"combat\"}"}]`),
	}}
	f := newTestFetcher(src)

	events := f.GameEvents(context.Background(), "12345")
	if len(events) != 2 {
		t.Fatalf("events = %d, want 2", len(events))
	}
	if events[0].Get("kind").String() != "move" {
		t.Fatalf("first event = %s", events[0].Raw)
	}
	q := src.queries[0]
	if !strings.Contains(q, "event_messages_historical") || !strings.Contains(q, `"0x3039/"`) || !strings.Contains(q, "LIMIT 1000") {
		t.Fatalf("unexpected query: %s", q)
	}
}

func TestGameEvents_QueryFailure(t *testing.T) {
	src := &fakeSource{errs: []error{errors.New("boom")}}
	f := newTestFetcher(src)

	if events := f.GameEvents(context.Background(), "1"); events != nil {
		t.Fatalf("events = %v, want nil", events)
	}
}
