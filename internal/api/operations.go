package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/AnthonyGillesRudolfo/Siniestros-Gateway/internal/storage/postgres"
)

// OperationLog reads the audit trail.
type OperationLog interface {
	Available() bool
	ListOperations(ctx context.Context, transaccion string, limit int) ([]postgres.OperationRecord, error)
}

// GET /operaciones?transaccion=<id>&limit=<n>
func (h *Handler) handleOperations(w http.ResponseWriter, r *http.Request) {
	if h.ops == nil || !h.ops.Available() {
		writeDetail(w, http.StatusServiceUnavailable, "registro de operaciones no disponible")
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeDetail(w, http.StatusUnprocessableEntity, []FieldError{{
				Loc:  []string{"query", "limit"},
				Msg:  "value is not a valid positive integer",
				Type: "type_error.integer",
			}})
			return
		}
		limit = n
	}

	list, err := h.ops.ListOperations(r.Context(), r.URL.Query().Get("transaccion"), limit)
	if err != nil {
		if errors.Is(err, postgres.ErrNoDatabase) {
			writeDetail(w, http.StatusServiceUnavailable, "registro de operaciones no disponible")
			return
		}
		h.logger.Printf("[api] listar operaciones: %v", err)
		writeDetail(w, http.StatusInternalServerError, "Error interno del servidor: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"data":    list,
	})
}
