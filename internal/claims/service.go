package claims

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"
)

// Fixed codes sent with every automatic status query.
const (
	followUpEntidadColocadora = "183"
	followUpSistemaOrigen     = "194"
)

// recordTimeout bounds the audit write once the caller has gone away.
const recordTimeout = 5 * time.Second

// Options tune the service. Zero values fall back to the defaults noted on
// each field, except Reserve which has no default.
type Options struct {
	// StatusIDParam names the query parameter carrying the transaction id.
	// Defaults to "id".
	StatusIDParam string
	// FollowUpDelay defaults to DefaultFollowUpDelay when not positive.
	FollowUpDelay time.Duration
	Reserve       ReserveProfile
	// StrictReserveFollowUp makes a failed status query after a reserve
	// change fail the whole operation instead of returning a composite.
	StrictReserveFollowUp bool
}

// Outcome of one recorded operation.
type Outcome string

const (
	OutcomeSucceeded      Outcome = "succeeded"
	OutcomeFailed         Outcome = "failed"
	OutcomeFollowUpFailed Outcome = "followup_failed"
)

// Operation describes one finished gateway operation for the audit trail.
type Operation struct {
	Name        string
	Transaccion string
	NumSini     string
	Outcome     Outcome
	Error       string
	Result      Result
	StartedAt   time.Time
	FinishedAt  time.Time
}

// Recorder persists or publishes finished operations. Failures are logged by
// the service and never change the operation's result.
type Recorder interface {
	Record(ctx context.Context, op Operation) error
}

// Service runs the four claim operations against one shared upstream client.
type Service struct {
	client   Caller
	opts     Options
	rt       Runtime
	recorder Recorder
	logger   *log.Logger
	now      func() time.Time

	create  action[CreateClaimRequest]
	status  action[StatusQuery]
	payment action[PaymentRequest]
	reserve action[ReserveRequest]
}

func NewService(client Caller, opts Options, logger *log.Logger) *Service {
	if opts.StatusIDParam == "" {
		opts.StatusIDParam = "id"
	}
	if opts.FollowUpDelay <= 0 {
		opts.FollowUpDelay = DefaultFollowUpDelay
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Service{
		client:  client,
		opts:    opts,
		rt:      LocalRuntime{},
		logger:  logger,
		now:     time.Now,
		create:  createAction(),
		status:  statusAction(opts.StatusIDParam),
		payment: paymentAction(),
		reserve: reserveAction(opts.Reserve),
	}
}

// WithRuntime returns a copy of s that runs its steps and waits on rt.
func (s *Service) WithRuntime(rt Runtime) *Service {
	cp := *s
	cp.rt = rt
	return &cp
}

// WithRecorder returns a copy of s that reports finished operations to r.
func (s *Service) WithRecorder(r Recorder) *Service {
	cp := *s
	cp.recorder = r
	return &cp
}

// CreateClaim forwards a fully formed claim.
func (s *Service) CreateClaim(ctx context.Context, req CreateClaimRequest) (Result, error) {
	started := s.now()
	s.logger.Printf("[claims] crear siniestro documento=%s transaccion=%s", req.NroDocumento, req.Transaccion)
	res, err := s.create.run(ctx, s.rt, s.client, s.now, req)
	s.finish(ctx, ActionCreate, req.Transaccion, "", started, res, err, false)
	return res, err
}

// QueryStatus looks up the processing status of a transaction.
func (s *Service) QueryStatus(ctx context.Context, q StatusQuery) (Result, error) {
	started := s.now()
	s.logger.Printf("[claims] consultar estado id=%s", q.Transaccion)
	res, err := s.status.run(ctx, s.rt, s.client, s.now, q)
	s.finish(ctx, ActionStatus, q.Transaccion, "", started, res, err, false)
	return res, err
}

// RecordPayment processes a payment, waits FollowUpDelay and returns the
// resulting status. A failed status query is reported inside the result.
func (s *Service) RecordPayment(ctx context.Context, req PaymentRequest) (Result, error) {
	started := s.now()
	s.logger.Printf("[claims] pago siniestro num_sini=%s transaccion=%s", req.NumSini, req.Transaccion)

	primary, err := s.payment.run(ctx, s.rt, s.client, s.now, req)
	if err != nil {
		s.finish(ctx, ActionPayment, req.Transaccion, req.NumSini, started, nil, err, false)
		return nil, err
	}

	status, err := s.followUp(ctx, StatusQuery{
		Transaccion:       req.Transaccion,
		CodCia:            req.Compania,
		CodSecc:           req.Seccion,
		CodProducto:       req.Producto,
		EntidadColocadora: followUpEntidadColocadora,
		Proceso:           paymentProceso,
		SistemaOrigen:     followUpSistemaOrigen,
	})
	if err == nil {
		s.finish(ctx, ActionPayment, req.Transaccion, req.NumSini, started, status, nil, false)
		return status, nil
	}

	s.logger.Printf("[claims] pago %s procesado, consulta de estado fallida: %v", req.Transaccion, err)
	res := Result{
		"pago_procesado":   true,
		"transaccion":      req.Transaccion,
		"num_sini":         req.NumSini,
		"num_pol1":         req.NumPol1,
		"compania_enviada": req.Compania,
		"seccion_enviada":  req.Seccion,
		"producto_enviado": req.Producto,
		"resultado_pago":   primary["resultado_api"],
		"consulta_estado":  followUpFailure(err, "Pago procesado pero falló la consulta automática de estado"),
		"timestamp":        timestamp(s.now()),
	}
	s.finish(ctx, ActionPayment, req.Transaccion, req.NumSini, started, res, err, true)
	return res, nil
}

// ModifyReserve changes a claim's reserve, waits FollowUpDelay and returns the
// resulting status. A failed status query is reported inside the result
// unless StrictReserveFollowUp is set.
func (s *Service) ModifyReserve(ctx context.Context, req ReserveRequest) (Result, error) {
	started := s.now()
	s.logger.Printf("[claims] modificacion reserva num_sini=%s transaccion=%s", req.NumSini, req.Transaccion)

	if err := validateRequired("reserve profile", s.opts.Reserve); err != nil {
		err = fmt.Errorf("%s: %w", ActionReserve, err)
		s.finish(ctx, ActionReserve, req.Transaccion, req.NumSini, started, nil, err, false)
		return nil, err
	}

	primary, err := s.reserve.run(ctx, s.rt, s.client, s.now, req)
	if err != nil {
		s.finish(ctx, ActionReserve, req.Transaccion, req.NumSini, started, nil, err, false)
		return nil, err
	}

	status, err := s.followUp(ctx, StatusQuery{
		Transaccion:       req.Transaccion,
		CodCia:            req.CodCia,
		CodSecc:           req.CodSecc,
		CodProducto:       req.CodProducto,
		EntidadColocadora: followUpEntidadColocadora,
		Proceso:           strconv.Itoa(reserveProceso),
		SistemaOrigen:     followUpSistemaOrigen,
	})
	if err == nil {
		s.finish(ctx, ActionReserve, req.Transaccion, req.NumSini, started, status, nil, false)
		return status, nil
	}

	s.logger.Printf("[claims] reserva %s modificada, consulta de estado fallida: %v", req.Transaccion, err)
	if s.opts.StrictReserveFollowUp {
		s.finish(ctx, ActionReserve, req.Transaccion, req.NumSini, started, nil, err, false)
		return nil, err
	}
	res := Result{
		"reserva_modificada":     true,
		"transaccion":            req.Transaccion,
		"num_sini":               req.NumSini,
		"cod_cia":                req.CodCia,
		"cod_secc":               req.CodSecc,
		"cod_producto":           req.CodProducto,
		"resultado_modificacion": primary["resultado_api"],
		"consulta_estado":        followUpFailure(err, "Reserva modificada pero falló la consulta automática de estado"),
		"timestamp":              timestamp(s.now()),
	}
	s.finish(ctx, ActionReserve, req.Transaccion, req.NumSini, started, res, err, true)
	return res, nil
}

// followUp waits for the upstream to settle and then queries the status.
func (s *Service) followUp(ctx context.Context, q StatusQuery) (Result, error) {
	s.logger.Printf("[claims] esperando %s antes de consultar estado de %s", s.opts.FollowUpDelay, q.Transaccion)
	if err := s.rt.Sleep(ctx, s.opts.FollowUpDelay); err != nil {
		return nil, fmt.Errorf("wait before status query: %w", err)
	}
	return s.status.run(ctx, s.rt, s.client, s.now, q)
}

func followUpFailure(err error, message string) map[string]any {
	return map[string]any{
		"success": false,
		"error":   err.Error(),
		"message": message,
	}
}

// finish hands the operation to the recorder inside a runtime step so a
// durable runtime does not repeat it on replay. The record outlives the
// caller's context: a processed payment is audited even if the client
// disconnected during the wait.
func (s *Service) finish(ctx context.Context, name, transaccion, numSini string, started time.Time, res Result, err error, followUpFailed bool) {
	if err != nil {
		s.logger.Printf("[claims] %s transaccion=%s: %v", name, transaccion, err)
	}
	if s.recorder == nil {
		return
	}
	op := Operation{
		Name:        name,
		Transaccion: transaccion,
		NumSini:     numSini,
		Outcome:     OutcomeSucceeded,
		Result:      res,
		StartedAt:   started,
	}
	switch {
	case followUpFailed:
		op.Outcome = OutcomeFollowUpFailed
		op.Error = err.Error()
	case err != nil:
		op.Outcome = OutcomeFailed
		op.Error = err.Error()
	}

	_, _ = s.rt.Step(ctx, "registrar "+name, func(ctx context.Context) (Result, error) {
		op.FinishedAt = s.now()
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
		defer cancel()
		if rerr := s.recorder.Record(rctx, op); rerr != nil {
			s.logger.Printf("[claims] audit %s transaccion=%s: %v", name, transaccion, rerr)
		}
		return nil, nil
	})
}

// IsValidation reports whether err is, or wraps, a *ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}
