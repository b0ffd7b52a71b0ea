package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	companioncmd "github.com/louisbranch/regenmon/internal/cmd/companion"
	"github.com/louisbranch/regenmon/internal/platform/config"
)

func main() {
	cfg, err := companioncmd.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		config.Exitf("parse flags: %v", err)
	}
	log.SetPrefix("[COMPANION] ")
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := companioncmd.Run(ctx, cfg); err != nil {
		log.Fatalf("failed to serve: %v", err)
	}
}
