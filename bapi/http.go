// Package bapi exposes a node's consensus state over a small HTTP API.
package bapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/braid-engine/braid/bconsensus"
	"github.com/braid-engine/braid/bmodels"
)

// GraphStatus is the engine query surface the HTTP API reads from.
// [bconsensus.CommandSender] implements it.
type GraphStatus interface {
	GetBlockGraphStatus(ctx context.Context) (bconsensus.BlockGraphExport, error)
	GetActiveBlock(ctx context.Context, id bmodels.BlockID) (bconsensus.ExportActiveBlock, bool, error)
	GetSelectionDraws(ctx context.Context, start, end bmodels.Slot) ([]bconsensus.SelectionDraw, error)
}

var _ GraphStatus = (*bconsensus.CommandSender)(nil)

// HTTPServer serves the node status API until its context is canceled
// or the listener fails.
type HTTPServer struct {
	done chan struct{}
}

type HTTPServerConfig struct {
	Listener net.Listener

	Graph GraphStatus

	// Addresses of the staking keys this node signs with.
	// Static for the life of the process.
	StakingAddresses []bmodels.Address
}

func NewHTTPServer(ctx context.Context, log *slog.Logger, cfg HTTPServerConfig) *HTTPServer {
	h := &HTTPServer{
		done: make(chan struct{}),
	}

	srv := &http.Server{
		Handler: newMux(log, cfg),

		BaseContext: func(net.Listener) context.Context {
			return ctx
		},
	}
	go h.run(ctx, log, cfg.Listener, srv)

	return h
}

// Wait blocks until the server has stopped serving.
func (h *HTTPServer) Wait() {
	<-h.done
}

func (h *HTTPServer) run(ctx context.Context, log *slog.Logger, ln net.Listener, srv *http.Server) {
	defer close(h.done)

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.Serve(ln)
	}()

	var err error
	select {
	case err = <-serveErr:
		// Serve stopped on its own, likely a listener failure.
	case <-ctx.Done():
		_ = srv.Close()
		err = <-serveErr
	}

	switch {
	case err == nil, errors.Is(err, net.ErrClosed), errors.Is(err, http.ErrServerClosed):
		log.Info("API server stopped")
	default:
		log.Info("API server stopped with error", "err", err)
	}
}

func newMux(log *slog.Logger, cfg HTTPServerConfig) http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/v1/graph/status", handleGraphStatus(log, cfg)).Methods("GET")
	r.HandleFunc("/v1/graph/blocks/{id}", handleGraphBlock(log, cfg)).Methods("GET")
	r.HandleFunc("/v1/graph/cliques", handleGraphCliques(log, cfg)).Methods("GET")
	r.HandleFunc("/v1/draws", handleDraws(log, cfg)).Methods("GET")
	r.HandleFunc("/v1/staking/addresses", handleStakingAddresses(log, cfg)).Methods("GET")

	return r
}

func handleGraphStatus(log *slog.Logger, cfg HTTPServerConfig) func(w http.ResponseWriter, req *http.Request) {
	g := cfg.Graph
	return func(w http.ResponseWriter, req *http.Request) {
		status, err := g.GetBlockGraphStatus(req.Context())
		if err != nil {
			http.Error(
				w,
				fmt.Sprintf("failed to get graph status: %v", err),
				http.StatusInternalServerError,
			)
			return
		}

		if err := json.NewEncoder(w).Encode(status); err != nil {
			log.Warn("Failed to marshal graph status", "err", err)
			return
		}
	}
}

func handleGraphBlock(log *slog.Logger, cfg HTTPServerConfig) func(w http.ResponseWriter, req *http.Request) {
	g := cfg.Graph
	return func(w http.ResponseWriter, req *http.Request) {
		id, err := bmodels.BlockIDFromString(mux.Vars(req)["id"])
		if err != nil {
			http.Error(
				w,
				fmt.Sprintf("invalid block id: %v", err),
				http.StatusBadRequest,
			)
			return
		}

		b, ok, err := g.GetActiveBlock(req.Context(), id)
		if err != nil {
			http.Error(
				w,
				fmt.Sprintf("failed to get block: %v", err),
				http.StatusInternalServerError,
			)
			return
		}
		if !ok {
			http.Error(
				w,
				fmt.Sprintf("block %s is not in the active graph", id),
				http.StatusNotFound,
			)
			return
		}

		if err := json.NewEncoder(w).Encode(b); err != nil {
			log.Warn("Failed to marshal block", "block", id, "err", err)
			return
		}
	}
}

func handleGraphCliques(log *slog.Logger, cfg HTTPServerConfig) func(w http.ResponseWriter, req *http.Request) {
	g := cfg.Graph
	return func(w http.ResponseWriter, req *http.Request) {
		status, err := g.GetBlockGraphStatus(req.Context())
		if err != nil {
			http.Error(
				w,
				fmt.Sprintf("failed to get graph status: %v", err),
				http.StatusInternalServerError,
			)
			return
		}

		if err := json.NewEncoder(w).Encode(status.MaxCliques); err != nil {
			log.Warn("Failed to marshal cliques", "err", err)
			return
		}
	}
}

// handleDraws serves the selection schedule for the period range
// [start, end), across all threads. Both query parameters are required.
func handleDraws(log *slog.Logger, cfg HTTPServerConfig) func(w http.ResponseWriter, req *http.Request) {
	g := cfg.Graph
	return func(w http.ResponseWriter, req *http.Request) {
		q := req.URL.Query()

		start, err := strconv.ParseUint(q.Get("start"), 10, 64)
		if err != nil {
			http.Error(
				w,
				fmt.Sprintf("invalid start period: %v", err),
				http.StatusBadRequest,
			)
			return
		}
		end, err := strconv.ParseUint(q.Get("end"), 10, 64)
		if err != nil {
			http.Error(
				w,
				fmt.Sprintf("invalid end period: %v", err),
				http.StatusBadRequest,
			)
			return
		}
		if end < start {
			http.Error(
				w,
				fmt.Sprintf("end period %d before start period %d", end, start),
				http.StatusBadRequest,
			)
			return
		}

		draws, err := g.GetSelectionDraws(
			req.Context(),
			bmodels.NewSlot(start, 0),
			bmodels.NewSlot(end, 0),
		)
		if err != nil {
			http.Error(
				w,
				fmt.Sprintf("failed to get selection draws: %v", err),
				http.StatusInternalServerError,
			)
			return
		}

		if err := json.NewEncoder(w).Encode(draws); err != nil {
			log.Warn("Failed to marshal selection draws", "err", err)
			return
		}
	}
}

func handleStakingAddresses(log *slog.Logger, cfg HTTPServerConfig) func(w http.ResponseWriter, req *http.Request) {
	addrs := cfg.StakingAddresses
	return func(w http.ResponseWriter, req *http.Request) {
		var resp struct {
			Addresses []bmodels.Address `json:"addresses"`
		}
		resp.Addresses = addrs
		if resp.Addresses == nil {
			resp.Addresses = []bmodels.Address{}
		}

		if err := json.NewEncoder(w).Encode(resp); err != nil {
			log.Warn("Failed to marshal staking addresses", "err", err)
			return
		}
	}
}
