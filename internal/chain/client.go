// Package chain is the write path and direct read path of the client: a
// Starknet-style JSON-RPC client, the transaction gateway with bounded
// finality polling, the receipt event decoder, and the flat game-state
// call decoder.
package chain

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/scard-game/scard/internal/platform/timeouts"
)

// RPCCaller performs a JSON-RPC method call. *Client satisfies it; tests
// inject fakes.
type RPCCaller interface {
	Call(ctx context.Context, method string, params any) (gjson.Result, error)
}

// Client is a minimal JSON-RPC 2.0 client over HTTP.
type Client struct {
	url        string
	httpClient *http.Client
}

// NewClient creates a JSON-RPC client for the given endpoint.
func NewClient(url string) *Client {
	return &Client{
		url:        url,
		httpClient: &http.Client{Timeout: timeouts.RPCRequest},
	}
}

// Call performs a single JSON-RPC request and returns the result node.
// A JSON-RPC error response is returned as an *RPCError.
func (c *Client) Call(ctx context.Context, method string, params any) (gjson.Result, error) {
	body, err := json.Marshal(map[string]any{
		"jsonrpc": "2.0",
		"method":  method,
		"params":  params,
		"id":      0,
	})
	if err != nil {
		return gjson.Result{}, fmt.Errorf("marshal %s request: %w", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return gjson.Result{}, fmt.Errorf("build %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("%s: %w", method, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("read %s response: %w", method, err)
	}
	if resp.StatusCode != http.StatusOK {
		return gjson.Result{}, fmt.Errorf("%s: unexpected status %d", method, resp.StatusCode)
	}

	parsed := gjson.ParseBytes(payload)
	if rpcErr := parsed.Get("error"); rpcErr.Exists() {
		return gjson.Result{}, &RPCError{
			Code:    rpcErr.Get("code").Int(),
			Message: rpcErr.Get("message").String(),
		}
	}
	return parsed.Get("result"), nil
}

// RPCError is a JSON-RPC error response.
type RPCError struct {
	Code    int64
	Message string
}

// Error implements the error interface.
func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// parseFelt decodes a hex-encoded field element ("0x1a") into a uint64.
func parseFelt(s string) (uint64, error) {
	trimmed := strings.TrimPrefix(strings.TrimSpace(s), "0x")
	if trimmed == "" {
		return 0, fmt.Errorf("empty felt")
	}
	v, err := strconv.ParseUint(trimmed, 16, 64)
	if err != nil {
		return 0, fmt.Errorf("parse felt %q: %w", s, err)
	}
	return v, nil
}

// feltFromID renders a decimal game id as a hex calldata felt.
func feltFromID(gameID string) (string, error) {
	v, err := strconv.ParseUint(gameID, 10, 64)
	if err != nil {
		return "", fmt.Errorf("parse game id %q: %w", gameID, err)
	}
	return "0x" + strconv.FormatUint(v, 16), nil
}
