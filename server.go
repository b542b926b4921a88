package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// tableMigrator is what the HTTP layer needs from the migration service.
type tableMigrator interface {
	Migrate(ctx context.Context, table string) (*MigrationResult, error)
	Ping(ctx context.Context) error
}

type migrateResponse struct {
	RunID   string `json:"run_id,omitempty"`
	Table   string `json:"table"`
	State   string `json:"state,omitempty"`
	Rows    int    `json:"rows"`
	Empty   bool   `json:"empty,omitempty"`
	Partial bool   `json:"partial,omitempty"`
	Kind    string `json:"kind,omitempty"`
	Step    string `json:"step,omitempty"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// newRouter wires the HTTP trigger: POST /migrate/{tableName} runs one
// migration, /healthz pings both databases and /metrics exposes gatherer.
func newRouter(m tableMigrator, gatherer prometheus.Gatherer, log zerolog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Post("/migrate/{tableName}", migrateHandler(m, log))
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := m.Ping(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}
	return r
}

func migrateHandler(m tableMigrator, log zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		table := chi.URLParam(r, "tableName")
		if err := validateTableName(table); err != nil {
			writeJSON(w, http.StatusInternalServerError, migrateResponse{
				Table:   table,
				State:   StateStart.String(),
				Kind:    string(KindPrecondition),
				Step:    "validate",
				Message: fmt.Sprintf("Migration of table %s failed", table),
				Error:   err.Error(),
			})
			return
		}

		res, err := m.Migrate(r.Context(), table)
		resp := migrateResponse{Table: table}
		if res != nil {
			resp.RunID = res.RunID
			resp.State = res.State.String()
			resp.Rows = res.Rows
			resp.Empty = res.Empty
		}
		if err != nil {
			log.Error().Err(err).Str("table", table).Str("request_id", middleware.GetReqID(r.Context())).Msg("migration request failed")
			resp.Partial = isPartialFailure(res, err)
			resp.Error = err.Error()
			var me *MigrationError
			if errors.As(err, &me) {
				resp.Kind = string(me.Kind)
				resp.Step = me.Step
			}
			resp.Message = fmt.Sprintf("Migration of table %s failed", table)
			writeJSON(w, http.StatusInternalServerError, resp)
			return
		}
		resp.Message = fmt.Sprintf("Migration of table %s completed successfully!", table)
		writeJSON(w, http.StatusOK, resp)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// newHTTPServer returns the server for addr with conservative header timeouts.
// Migrations run inside the request, so there is no write timeout.
func newHTTPServer(addr string, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}
}
