// Package server exposes the conditioning pipeline over HTTP.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/streamside/hydrocond/internal/log"
	"github.com/streamside/hydrocond/internal/pressure"
	"go.uber.org/zap"
)

// Server hosts the prepare endpoint.
type Server struct {
	httpServer *http.Server
	primary    pressure.Retriever
	secondary  pressure.Retriever
	logger     *zap.SugaredLogger
}

// New builds the server and its routes.
func New(listenAddr string, primary, secondary pressure.Retriever, logger *zap.SugaredLogger) *Server {
	s := &Server{
		primary:   primary,
		secondary: secondary,
		logger:    logger,
	}

	router := mux.NewRouter()
	router.HandleFunc("/v1/prepare", s.handlePrepare).Methods(http.MethodPost)
	router.HandleFunc("/v1/health", s.handleHealth).Methods(http.MethodGet)

	s.httpServer = &http.Server{
		Addr:         listenAddr,
		Handler:      router,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 120 * time.Second,
	}
	return s
}

// ListenAndServe blocks serving requests until the server is shut down.
func (s *Server) ListenAndServe() error {
	log.Infof("conditioning API listening on %s", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown drains in-flight requests and stops the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
