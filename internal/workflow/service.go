package workflow

import (
	"context"
	"log"
	"time"

	restate "github.com/restatedev/sdk-go"
	"github.com/restatedev/sdk-go/server"

	"github.com/AnthonyGillesRudolfo/Siniestros-Gateway/internal/claims"
)

// ServiceName is the restate service exposing the claim operations.
const ServiceName = "siniestros.ClaimsService"

// durableRuntime journals every upstream call with restate.Run and turns the
// follow-up delay into a durable timer, so a restarted invocation resumes
// after the last completed step instead of repeating it.
type durableRuntime struct {
	ctx restate.Context
}

func (r durableRuntime) Step(_ context.Context, name string, fn func(context.Context) (claims.Result, error)) (claims.Result, error) {
	return restate.Run(r.ctx, func(rc restate.RunContext) (claims.Result, error) {
		res, err := fn(rc)
		if err != nil {
			// the upstream client already retried once; restate must not retry again
			return nil, restate.TerminalError(err)
		}
		return res, nil
	})
}

func (r durableRuntime) Sleep(_ context.Context, d time.Duration) error {
	return restate.Sleep(r.ctx, d)
}

// Handlers adapts claims.Service to restate service handlers.
type Handlers struct {
	svc     *claims.Service
	logger  *log.Logger
	runtime func(restate.Context) claims.Runtime
}

func NewHandlers(svc *claims.Service, logger *log.Logger) *Handlers {
	if logger == nil {
		logger = log.Default()
	}
	return &Handlers{
		svc:     svc,
		logger:  logger,
		runtime: func(ctx restate.Context) claims.Runtime { return durableRuntime{ctx: ctx} },
	}
}

func (h *Handlers) service(ctx restate.Context) *claims.Service {
	return h.svc.WithRuntime(h.runtime(ctx))
}

func (h *Handlers) CrearSiniestro(ctx restate.Context, req claims.CreateClaimRequest) (claims.Result, error) {
	h.logger.Printf("[Workflow %s] CrearSiniestro transaccion=%s", ServiceName, req.Transaccion)
	return terminal(h.service(ctx).CreateClaim(ctx, req))
}

func (h *Handlers) ConsultarEstado(ctx restate.Context, q claims.StatusQuery) (claims.Result, error) {
	h.logger.Printf("[Workflow %s] ConsultarEstado id=%s", ServiceName, q.Transaccion)
	return terminal(h.service(ctx).QueryStatus(ctx, q))
}

func (h *Handlers) PagoSiniestro(ctx restate.Context, req claims.PaymentRequest) (claims.Result, error) {
	h.logger.Printf("[Workflow %s] PagoSiniestro transaccion=%s num_sini=%s", ServiceName, req.Transaccion, req.NumSini)
	return terminal(h.service(ctx).RecordPayment(ctx, req))
}

func (h *Handlers) ModificacionReserva(ctx restate.Context, req claims.ReserveRequest) (claims.Result, error) {
	h.logger.Printf("[Workflow %s] ModificacionReserva transaccion=%s num_sini=%s", ServiceName, req.Transaccion, req.NumSini)
	return terminal(h.service(ctx).ModifyReserve(ctx, req))
}

// terminal marks core failures as final. Validation and upstream errors do
// not become retryable by running the handler again.
func terminal(res claims.Result, err error) (claims.Result, error) {
	if err != nil {
		return nil, restate.TerminalError(err)
	}
	return res, nil
}

// Bind registers the claims service on srv.
func Bind(srv *server.Restate, h *Handlers) *server.Restate {
	svc := restate.NewService(ServiceName).
		Handler("CrearSiniestro", restate.NewServiceHandler(h.CrearSiniestro)).
		Handler("ConsultarEstado", restate.NewServiceHandler(h.ConsultarEstado)).
		Handler("PagoSiniestro", restate.NewServiceHandler(h.PagoSiniestro)).
		Handler("ModificacionReserva", restate.NewServiceHandler(h.ModificacionReserva))
	return srv.Bind(svc)
}
