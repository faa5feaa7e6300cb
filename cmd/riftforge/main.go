package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	riftforgecmd "github.com/louisbranch/riftforge/internal/cmd/riftforge"
	"github.com/louisbranch/riftforge/internal/platform/config"
)

func main() {
	log.SetPrefix("[RIFTFORGE] ")
	cfg, err := riftforgecmd.ParseConfig()
	if err != nil {
		config.Exitf("parse config: %v", err)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := riftforgecmd.Run(ctx, cfg, os.Args[1:], riftforgecmd.StdStreams()); err != nil {
		stop()
		config.Exitf("%s", riftforgecmd.Render(err, cfg.Locale))
	}
}
