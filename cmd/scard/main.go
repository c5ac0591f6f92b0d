package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	scardcmd "github.com/scard-game/scard/internal/cmd/scard"
)

func main() {
	cfg, err := scardcmd.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		log.Fatalf("parse flags: %v", err)
	}
	log.SetPrefix("[SCARD] ")
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := scardcmd.Run(ctx, cfg); err != nil {
		log.Fatalf("failed to serve: %v", err)
	}
}
