// Package wallet is the signing capability boundary. The provider
// protocol itself stays external; this package only needs an address and
// an execute call that returns a transaction hash.
package wallet

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/scard-game/scard/internal/platform/timeouts"
)

// Wallet yields the connected address and submits signed contract calls.
type Wallet interface {
	Address() string
	Execute(ctx context.Context, entrypoint string, calldata []string) (string, error)
}

// Remote talks to a local signer daemon over HTTP. The daemon holds the
// keys and session policy; this client only ships call intents.
type Remote struct {
	baseURL  string
	address  string
	contract string
	http     *http.Client
}

func NewRemote(baseURL, address, contract string) *Remote {
	return &Remote{
		baseURL:  strings.TrimRight(baseURL, "/"),
		address:  address,
		contract: contract,
		http:     &http.Client{Timeout: timeouts.WalletRequest},
	}
}

func (r *Remote) Address() string { return r.address }

// Execute POSTs a call intent and returns the resulting transaction hash.
func (r *Remote) Execute(ctx context.Context, entrypoint string, calldata []string) (string, error) {
	payload, err := json.Marshal(map[string]any{
		"contract_address": r.contract,
		"entrypoint":       entrypoint,
		"calldata":         calldata,
	})
	if err != nil {
		return "", fmt.Errorf("wallet execute: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/execute", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("wallet execute: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("wallet execute: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("wallet execute: read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("wallet execute: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	hash := gjson.GetBytes(body, "transaction_hash").String()
	if hash == "" {
		return "", fmt.Errorf("wallet execute: response missing transaction_hash")
	}
	return hash, nil
}
