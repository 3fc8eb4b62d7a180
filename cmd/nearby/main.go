package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/five82/nearby/internal/app"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "config path (optional, defaults to ~/.config/nearby/config.toml)")
	pollSeconds := flag.Int("poll", 0, "nearby refresh interval in seconds (optional, defaults to 30s)")
	radius := flag.Float64("radius", 0, "search radius in meters (optional, defaults to 5000)")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	opts := app.Options{ConfigPath: *configPath}
	if poll := *pollSeconds; poll > 0 {
		opts.PollEvery = poll
	}
	if *radius > 0 {
		opts.Radius = *radius
	}

	if err := app.Run(ctx, opts); err != nil {
		fmt.Fprintf(os.Stderr, "nearby: %v\n", err)
		return 1
	}
	return 0
}
