package indexer

import (
	"context"
	"fmt"
	"log"

	"github.com/tidwall/gjson"
)

const historyLimit = 1000

// GameEvents loads the historical event log for a game, newest first.
// Each row's data column holds a JSON-encoded event payload. The load is
// best effort: query failures return an empty slice so a lagging indexer
// never blocks a restore.
func (f *Fetcher) GameEvents(ctx context.Context, gameID string) []gjson.Result {
	idFelt, err := hexGameID(gameID)
	if err != nil {
		log.Printf("[History] %v", err)
		return nil
	}
	query := fmt.Sprintf(
		`SELECT data FROM "event_messages_historical" WHERE keys = %q ORDER BY executed_at DESC LIMIT %d`,
		idFelt+"/", historyLimit)

	rows, err := f.src.Query(ctx, query)
	if err != nil {
		log.Printf("[History] fetching events for game %s: %v", gameID, err)
		return nil
	}

	var events []gjson.Result
	for _, row := range rows.Array() {
		data := row.Get("data").String()
		if !gjson.Valid(data) {
			continue
		}
		events = append(events, gjson.Parse(data))
	}
	log.Printf("[History] fetched %d historical events for game %s", len(events), gameID)
	return events
}
