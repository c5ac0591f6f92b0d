// Package indexer reads game models and historical events from a
// Torii-style indexer over its SQL-over-HTTP endpoint. The indexer lags
// the chain, so model reads retry with a linear catch-up delay and treat
// zero-valued rows as not-yet-indexed sentinels.
package indexer

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/scard-game/scard/internal/platform/timeouts"
)

// Source executes a SQL query against the indexer and returns the rows as
// a JSON array.
type Source interface {
	Query(ctx context.Context, query string) (gjson.Result, error)
}

// Client is the HTTP Source for a running indexer.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeouts.RPCRequest},
	}
}

// Query GETs /sql?query=... and parses the response body.
func (c *Client) Query(ctx context.Context, query string) (gjson.Result, error) {
	endpoint := c.baseURL + "/sql?query=" + url.QueryEscape(query)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("indexer query: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("indexer query: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("indexer query: read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return gjson.Result{}, fmt.Errorf("indexer query: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if !gjson.ValidBytes(body) {
		return gjson.Result{}, fmt.Errorf("indexer query: invalid JSON response")
	}
	return gjson.ParseBytes(body), nil
}

// hexGameID renders a decimal game id as the hex key felt the indexer
// stores.
func hexGameID(gameID string) (string, error) {
	v, err := strconv.ParseUint(gameID, 10, 64)
	if err != nil {
		return "", fmt.Errorf("game id %q: %w", gameID, err)
	}
	return fmt.Sprintf("0x%x", v), nil
}

// feltValue reads a row column that the indexer may store as a JSON
// number or as a hex felt string.
func feltValue(col gjson.Result) uint64 {
	s := col.String()
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		v, err := strconv.ParseUint(s[2:], 16, 64)
		if err != nil {
			return 0
		}
		return v
	}
	return col.Uint()
}
