package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fintel-ai/tribunal/internal/alerts"
	"github.com/fintel-ai/tribunal/internal/model"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the investigation HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		r := chi.NewRouter()
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type"},
		}))

		r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})

		r.Post("/investigations", func(w http.ResponseWriter, req *http.Request) {
			handleInvestigate(env, w, req)
		})

		r.Get("/investigations/{uetr}", func(w http.ResponseWriter, req *http.Request) {
			uetr := chi.URLParam(req, "uetr")
			inv, err := env.Store.GetInvestigation(req.Context(), uetr)
			if err != nil {
				writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
				return
			}
			if inv == nil {
				writeJSON(w, http.StatusNotFound, map[string]string{"error": "investigation not found"})
				return
			}
			writeJSON(w, http.StatusOK, inv)
		})

		r.Get("/alerts", func(w http.ResponseWriter, req *http.Request) {
			status := alerts.AlertStatus(req.URL.Query().Get("status"))
			items, err := env.Store.ListAlerts(req.Context(), status)
			if err != nil {
				writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"alerts": items, "count": len(items)})
		})

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: r,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			srv.Shutdown(ctx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

// handleInvestigate runs a posted transaction to a verdict. With
// ?stream=true the response is an SSE stream of per-round states followed
// by the final verdict; otherwise it blocks and returns the final state.
func handleInvestigate(env *appEnv, w http.ResponseWriter, req *http.Request) {
	var tx model.Transaction
	if err := json.NewDecoder(req.Body).Decode(&tx); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if tx.UETR == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "uetr is required"})
		return
	}

	restart := req.URL.Query().Get("restart") == "true"
	if !restart {
		prior, err := env.Store.GetInvestigation(req.Context(), tx.UETR)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		if prior != nil {
			writeJSON(w, http.StatusConflict, map[string]string{
				"error":   "investigation already exists; pass ?restart=true to discard and rerun",
				"uetr":    prior.UETR,
				"verdict": string(prior.Verdict),
			})
			return
		}
	}

	if req.URL.Query().Get("stream") == "true" {
		streamInvestigation(env, w, req, tx)
		return
	}

	final, err := runInvestigation(req.Context(), env, tx, nil)
	if err != nil {
		zap.L().Error("investigation failed", zap.String("uetr", tx.UETR), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, final)
}

// streamInvestigation runs the debate while emitting one SSE "round"
// event per completed round and a terminal "verdict" or "error" event.
func streamInvestigation(env *appEnv, w http.ResponseWriter, req *http.Request, tx model.Transaction) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "streaming unsupported"})
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	final, err := runInvestigation(req.Context(), env, tx, func(round int, state model.DebateState) {
		writeEvent(w, flusher, "round", map[string]any{
			"round": round,
			"state": state,
		})
	})
	if err != nil {
		zap.L().Error("streamed investigation failed", zap.String("uetr", tx.UETR), zap.Error(err))
		writeEvent(w, flusher, "error", map[string]string{"error": err.Error()})
		return
	}

	writeEvent(w, flusher, "verdict", final)
}

// writeEvent emits one named SSE event and flushes it.
func writeEvent(w http.ResponseWriter, flusher http.Flusher, event string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		zap.L().Error("marshal sse payload", zap.Error(err))
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
	flusher.Flush()
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
