package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"

	"airwatch/internal/utils"
)

type healthcheckerImpl struct {
	db *sqlx.DB
}

func (h *healthcheckerImpl) handleHealthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	var ok int
	if err := h.db.GetContext(ctx, &ok, `SELECT 1`); err != nil {
		slog.ErrorContext(ctx, "failed to check database connectivity", "error", err)
		utils.WriteError(w, http.StatusServiceUnavailable, "failed to check database connectivity")
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func registerHealthcheck(mux *http.ServeMux, db *sqlx.DB) {
	h := &healthcheckerImpl{db: db}
	mux.HandleFunc("GET /healthz", h.handleHealthz)
}
