package api

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/AnthonyGillesRudolfo/Siniestros-Gateway/internal/authz"
	"github.com/AnthonyGillesRudolfo/Siniestros-Gateway/internal/claims"
)

const maxBodyBytes = 1 << 20

// ClaimsService is the core the gateway forwards to.
type ClaimsService interface {
	CreateClaim(ctx context.Context, req claims.CreateClaimRequest) (claims.Result, error)
	QueryStatus(ctx context.Context, q claims.StatusQuery) (claims.Result, error)
	RecordPayment(ctx context.Context, req claims.PaymentRequest) (claims.Result, error)
	ModifyReserve(ctx context.Context, req claims.ReserveRequest) (claims.Result, error)
}

// Options tune the HTTP surface.
type Options struct {
	// TypedErrors answers 400 for validation failures and 404 for unknown
	// claims instead of 500.
	TypedErrors bool
}

// Handler serves the claims routes.
type Handler struct {
	svc    ClaimsService
	ops    OperationLog
	authz  authz.Client
	opts   Options
	logger *log.Logger
	shapes shapes
}

// NewHandler compiles the request schemas. A nil authz client allows every
// request; a nil operation log answers 503 on /operaciones.
func NewHandler(svc ClaimsService, ops OperationLog, az authz.Client, opts Options, logger *log.Logger) (*Handler, error) {
	sh, err := loadShapes(claims.ActionCreate, claims.ActionStatus, claims.ActionPayment, claims.ActionReserve)
	if err != nil {
		return nil, err
	}
	if az == nil {
		az = authz.NoopClient{}
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Handler{svc: svc, ops: ops, authz: az, opts: opts, logger: logger, shapes: sh}, nil
}

// Register wires every gateway route into mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.Handle("GET /{$}", otelhttp.NewHandler(http.HandlerFunc(h.handleRoot), "root"))
	mux.Handle("GET /health", otelhttp.NewHandler(http.HandlerFunc(h.handleHealth), "health"))

	operator := authz.Require(h.authz, authz.RelationOperator)
	mux.Handle("POST /crear-siniestro", otelhttp.NewHandler(operator(http.HandlerFunc(h.handleCreate)), claims.ActionCreate))
	mux.Handle("POST /consultar-estado", otelhttp.NewHandler(http.HandlerFunc(h.handleStatus), claims.ActionStatus))
	mux.Handle("POST /pago-siniestro", otelhttp.NewHandler(operator(http.HandlerFunc(h.handlePayment)), claims.ActionPayment))
	mux.Handle("POST /modificacion-reserva", otelhttp.NewHandler(operator(http.HandlerFunc(h.handleReserve)), claims.ActionReserve))
	mux.Handle("GET /operaciones", otelhttp.NewHandler(http.HandlerFunc(h.handleOperations), "operaciones"))
}

// Routes returns the gateway mux wrapped with CORS.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	h.Register(mux)
	return WithCORS(mux)
}

func (h *Handler) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "API funcionando correctamente",
		"service": "Siniestros Gateway - Seguros Bolívar",
		"version": "1.0.0",
	})
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy", "service": "siniestros-api"})
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req claims.CreateClaimRequest
	if !h.bind(w, r, claims.ActionCreate, &req) {
		return
	}
	h.logger.Printf("[api] creando siniestro documento=%s", req.NroDocumento)
	res, err := h.svc.CreateClaim(r.Context(), req)
	h.respond(w, claims.ActionCreate, "Siniestro creado exitosamente", res, err)
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	var q claims.StatusQuery
	if !h.bind(w, r, claims.ActionStatus, &q) {
		return
	}
	h.logger.Printf("[api] consultando estado transaccion=%s", q.Transaccion)
	res, err := h.svc.QueryStatus(r.Context(), q)
	h.respond(w, claims.ActionStatus, "Estado consultado exitosamente", res, err)
}

func (h *Handler) handlePayment(w http.ResponseWriter, r *http.Request) {
	var req claims.PaymentRequest
	if !h.bind(w, r, claims.ActionPayment, &req) {
		return
	}
	h.logger.Printf("[api] procesando pago num_sini=%s transaccion=%s", req.NumSini, req.Transaccion)
	res, err := h.svc.RecordPayment(r.Context(), req)
	h.respond(w, claims.ActionPayment, "Pago procesado exitosamente", res, err)
}

func (h *Handler) handleReserve(w http.ResponseWriter, r *http.Request) {
	var req claims.ReserveRequest
	if !h.bind(w, r, claims.ActionReserve, &req) {
		return
	}
	h.logger.Printf("[api] modificando reserva num_sini=%s transaccion=%s", req.NumSini, req.Transaccion)
	res, err := h.svc.ModifyReserve(r.Context(), req)
	h.respond(w, claims.ActionReserve, "Reserva modificada exitosamente", res, err)
}

// bind reads and shape-checks the body. It writes the 422 response itself
// and reports whether the handler should continue.
func (h *Handler) bind(w http.ResponseWriter, r *http.Request, name string, dst any) bool {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, []FieldError{{Loc: []string{"body"}, Msg: err.Error()}})
		return false
	}
	if errs := h.shapes.decode(name, body, dst); len(errs) > 0 {
		h.logger.Printf("[api] %s: %d invalid fields", name, len(errs))
		writeDetail(w, http.StatusUnprocessableEntity, errs)
		return false
	}
	return true
}

func (h *Handler) respond(w http.ResponseWriter, name, message string, res claims.Result, err error) {
	if err != nil {
		h.logger.Printf("[api] error en %s: %v", name, err)
		status := errorStatus(err, h.opts.TypedErrors)
		if status == http.StatusInternalServerError {
			writeDetail(w, status, fmt.Sprintf("Error interno del servidor: %v", err))
			return
		}
		writeDetail(w, status, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": message,
		"data":    res,
	})
}
