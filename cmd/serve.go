package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rxscan/verify-cli/internal/extract"
	"github.com/rxscan/verify-cli/internal/model"
	"github.com/rxscan/verify-cli/internal/monitoring"
	"github.com/rxscan/verify-cli/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the verification API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		e, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer e.Close()

		collector := monitoring.NewCollector(e.Store, e.Breakers)
		alerter := monitoring.NewAlerter(cfg.Monitoring)
		go monitoring.NewChecker(collector, alerter, cfg.Monitoring).Run(ctx)

		r := chi.NewRouter()
		r.Use(middleware.RequestID)
		r.Use(middleware.RealIP)
		r.Use(middleware.Recoverer)
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type"},
			MaxAge:         300,
		}))

		r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
			writeJSON(w, http.StatusOK, map[string]any{
				"status":   "ok",
				"breakers": e.Breakers.States(),
			})
		})

		r.Get("/api/metrics", func(w http.ResponseWriter, req *http.Request) {
			snap, err := collector.Collect(req.Context(), cfg.Monitoring.LookbackHours)
			if err != nil {
				writeError(w, http.StatusInternalServerError, "metrics collection failed")
				return
			}
			writeJSON(w, http.StatusOK, snap)
		})

		r.Post("/api/verify", e.handleVerify)
		r.Get("/api/runs", e.handleListRuns)
		r.Get("/api/runs/{id}", e.handleGetRun)

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: r,
		}

		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

// verifyRequest accepts either a prepared seed or a raw vision
// analysis; the analysis wins when both are present.
type verifyRequest struct {
	Seed     *model.SeedIdentifiers `json:"seed"`
	Analysis *model.VisionAnalysis  `json:"analysis"`
}

func (e *env) handleVerify(w http.ResponseWriter, req *http.Request) {
	var body verifyRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var seed model.SeedIdentifiers
	switch {
	case body.Analysis != nil:
		seed = extract.Seed(*body.Analysis)
	case body.Seed != nil:
		seed = *body.Seed
		seed.DataQualityScore = extract.QualityScore(seed)
	default:
		writeError(w, http.StatusBadRequest, "seed or analysis is required")
		return
	}
	if !seed.HasAnyIdentifier() {
		writeError(w, http.StatusBadRequest, "no searchable identifier in request")
		return
	}

	ctx := req.Context()
	run, err := e.Store.CreateRun(ctx, seed)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create run")
		return
	}
	_ = e.Store.UpdateRunStatus(ctx, run.ID, model.RunStatusRunning)

	profile := e.Engine.Verify(ctx, seed)

	if err := e.Store.UpdateRunProfile(ctx, run.ID, profile); err != nil {
		zap.L().Error("failed to store profile",
			zap.String("run_id", run.ID),
			zap.Error(err),
		)
		_ = e.Store.UpdateRunStatus(ctx, run.ID, model.RunStatusFailed)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"run_id":  run.ID,
		"profile": profile,
	})
}

func (e *env) handleListRuns(w http.ResponseWriter, req *http.Request) {
	q := req.URL.Query()
	filter := store.RunFilter{
		Status: model.RunStatus(q.Get("status")),
	}
	if limit, err := strconv.Atoi(q.Get("limit")); err == nil && limit > 0 {
		filter.Limit = limit
	}

	runs, err := e.Store.ListRuns(req.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list runs")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

func (e *env) handleGetRun(w http.ResponseWriter, req *http.Request) {
	run, err := e.Store.GetRun(req.Context(), chi.URLParam(req, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "run not found")
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
