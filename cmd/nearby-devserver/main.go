package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/five82/nearby/internal/devserver"
)

func main() {
	os.Exit(run())
}

func run() int {
	addr := flag.String("addr", "127.0.0.1:8080", "listen address")
	secret := flag.String("secret", os.Getenv("NEARBY_DEV_SECRET"), "HS256 signing key (default $NEARBY_DEV_SECRET)")
	user := flag.String("user", "dev-user", "subject of the printed token")
	name := flag.String("name", "Dev User", "display name in the printed token")
	ttl := flag.Duration("ttl", 24*time.Hour, "lifetime of the printed token")
	tokenFile := flag.String("token-file", "", "also write the token to this file")
	population := flag.Int("population", 0, "synthetic users per grid cell (default 40, negative for none)")
	invalid := flag.Int("invalid", 0, "invalid records appended to each nearby response")
	envelope := flag.Bool("envelope", false, "wrap nearby responses in {\"users\": [...]}")
	flag.Parse()

	if *secret == "" {
		*secret = "nearby-dev-secret"
	}

	logger := log.New(os.Stderr, "", log.LstdFlags)
	srv, err := devserver.New(devserver.Config{
		Secret:         []byte(*secret),
		Population:     *population,
		InvalidRecords: *invalid,
		Envelope:       *envelope,
		Logger:         logger,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "nearby-devserver: %v\n", err)
		return 1
	}

	token, err := srv.IssueToken(*user, *name, *ttl)
	if err != nil {
		fmt.Fprintf(os.Stderr, "nearby-devserver: issue token: %v\n", err)
		return 1
	}
	fmt.Println(token)
	if *tokenFile != "" {
		if err := os.WriteFile(*tokenFile, []byte(token+"\n"), 0o600); err != nil {
			fmt.Fprintf(os.Stderr, "nearby-devserver: write token: %v\n", err)
			return 1
		}
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	httpServer := &http.Server{
		Addr:              *addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Printf("devserver: listening on %s", *addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			fmt.Fprintf(os.Stderr, "nearby-devserver: %v\n", err)
			return 1
		}
	case <-ctx.Done():
		shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
		defer stop()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			fmt.Fprintf(os.Stderr, "nearby-devserver: shutdown: %v\n", err)
			return 1
		}
	}
	return 0
}
