// Package scard parses client daemon flags and wires the runtime: chain
// RPC, indexer, wallet capability, session director, action
// orchestrator, and the local web UI bridge.
package scard

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"strconv"

	"github.com/scard-game/scard/internal/chain"
	"github.com/scard-game/scard/internal/director"
	"github.com/scard-game/scard/internal/indexer"
	"github.com/scard-game/scard/internal/orchestrator"
	entrypoint "github.com/scard-game/scard/internal/platform/cmd"
	"github.com/scard-game/scard/internal/platform/timeouts"
	"github.com/scard-game/scard/internal/state"
	"github.com/scard-game/scard/internal/wallet"
	"github.com/scard-game/scard/internal/web"
)

// Config holds client daemon configuration.
type Config struct {
	Port          int    `env:"SCARD_PORT" envDefault:"8080"`
	Addr          string `env:"SCARD_ADDR"`
	RPCURL        string `env:"SCARD_RPC_URL" envDefault:"http://localhost:5050"`
	ToriiURL      string `env:"SCARD_TORII_URL" envDefault:"http://localhost:8081"`
	WalletURL     string `env:"SCARD_WALLET_URL" envDefault:"http://localhost:9150"`
	WalletAddress string `env:"SCARD_WALLET_ADDRESS"`
	GameContract  string `env:"SCARD_GAME_CONTRACT"`
	WorldAddress  string `env:"SCARD_WORLD_ADDRESS"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.IntVar(&cfg.Port, "port", cfg.Port, "The UI server port")
	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "The UI server listen address (overrides -port)")
	fs.StringVar(&cfg.RPCURL, "rpc-url", cfg.RPCURL, "The chain JSON-RPC endpoint")
	fs.StringVar(&cfg.ToriiURL, "torii-url", cfg.ToriiURL, "The indexer endpoint")
	fs.StringVar(&cfg.WalletURL, "wallet-url", cfg.WalletURL, "The local signer daemon endpoint")
	fs.StringVar(&cfg.WalletAddress, "wallet-address", cfg.WalletAddress, "The wallet address to connect at startup")
	fs.StringVar(&cfg.GameContract, "game-contract", cfg.GameContract, "The game systems contract address")
	fs.StringVar(&cfg.WorldAddress, "world-address", cfg.WorldAddress, "The world contract address")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the client daemon.
func Run(ctx context.Context, cfg Config) error {
	if cfg.GameContract == "" {
		return errors.New("game contract address is required")
	}
	if cfg.WorldAddress == "" {
		return errors.New("world contract address is required")
	}

	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceClient, func(ctx context.Context) error {
		rpc := chain.NewClient(cfg.RPCURL)
		signer := wallet.NewRemote(cfg.WalletURL, cfg.WalletAddress, cfg.GameContract)
		gateway := chain.NewGateway(rpc, signer)
		reader := chain.NewStateReader(rpc, cfg.GameContract)
		fetcher := indexer.NewFetcher(indexer.NewClient(cfg.ToriiURL))
		store := state.NewStore()

		dir := director.New(reader, gateway, fetcher, store)
		orch := orchestrator.New(gateway, fetcher, store, nil, cfg.GameContract, cfg.WorldAddress)
		srv := web.NewServer(store, dir, orch)
		orch.SetSink(srv.Sink())

		if cfg.WalletAddress != "" {
			if err := dir.SetAddress(ctx, cfg.WalletAddress); err != nil {
				// The daemon still serves the UI; the browser can retry
				// the connect.
				log.Printf("startup session bootstrap: %v", err)
			}
		}

		addr := cfg.Addr
		if addr == "" {
			addr = net.JoinHostPort("", strconv.Itoa(cfg.Port))
		}
		return serve(ctx, addr, srv.Routes())
	})
}

func serve(ctx context.Context, addr string, handler http.Handler) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: timeouts.ReadHeader,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("serving UI on %s", addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeouts.Shutdown)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
