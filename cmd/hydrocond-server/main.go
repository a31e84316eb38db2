// Command hydrocond-server exposes the conditioning pipeline as an HTTP
// service.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/streamside/hydrocond/internal/log"
	"github.com/streamside/hydrocond/internal/pressure"
	"github.com/streamside/hydrocond/internal/server"
)

func main() {
	godotenv.Load()

	debug := os.Getenv("HYDROCOND_DEBUG") != ""
	if err := log.Init(debug); err != nil {
		fmt.Fprintf(os.Stderr, "initializing logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	listenAddr := os.Getenv("HYDROCOND_LISTEN_ADDR")
	if listenAddr == "" {
		listenAddr = ":8420"
	}

	var primary, secondary pressure.Retriever
	if url := os.Getenv("HYDROCOND_PRESSURE_URL"); url != "" {
		primary = pressure.NewHTTPRetriever("primary", url)
		if cachePath := os.Getenv("HYDROCOND_PRESSURE_CACHE"); cachePath != "" {
			cached, err := pressure.NewCache(cachePath, primary)
			if err != nil {
				log.Warnf("pressure cache unavailable: %v", err)
			} else {
				primary = cached
				defer cached.Close()
			}
		}
	}
	if url := os.Getenv("HYDROCOND_PRESSURE_FALLBACK_URL"); url != "" {
		secondary = pressure.NewHTTPRetriever("fallback", url)
	}

	srv := server.New(listenAddr, primary, secondary, log.GetSugaredLogger())

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		log.Fatalf("server exited: %v", err)
	case <-sigs:
		log.Info("shutdown signal received, draining...")
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.Errorf("shutdown: %v", err)
		}
	}
}
