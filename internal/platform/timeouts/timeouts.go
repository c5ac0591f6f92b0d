// Package timeouts defines shared duration constants used across the
// client. Centralizing these values prevents drift between the write and
// read paths and makes the durations discoverable.
package timeouts

import "time"

// TxPollInterval is the receipt polling interval while awaiting finality.
const TxPollInterval = 350 * time.Millisecond

// TxRetryDelay is the pause between finality poll retries after a
// transient failure.
const TxRetryDelay = 500 * time.Millisecond

// QueryBaseDelay is the base delay for indexer query retries. The delay
// before attempt i is QueryBaseDelay * (i+1), giving the indexer time to
// catch up with a just-finalized transaction.
const QueryBaseDelay = 300 * time.Millisecond

// WalletRequest caps a single request to the wallet signer.
const WalletRequest = 30 * time.Second

// RPCRequest caps a single chain or indexer HTTP request.
const RPCRequest = 10 * time.Second

// ReadHeader limits how long the UI bridge waits for request headers.
const ReadHeader = 5 * time.Second

// Shutdown limits how long the UI bridge waits for in-flight requests
// during graceful shutdown.
const Shutdown = 5 * time.Second
