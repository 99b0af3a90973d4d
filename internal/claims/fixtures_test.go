package claims

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"sync"
	"time"

	"github.com/AnthonyGillesRudolfo/Siniestros-Gateway/internal/upstream"
)

type reply struct {
	body json.RawMessage
	err  error
}

// fakeCaller records every upstream request and answers per action name.
type fakeCaller struct {
	mu       sync.Mutex
	requests []upstream.Request
	replies  map[string]reply
	events   *[]string
}

func newFakeCaller() *fakeCaller {
	return &fakeCaller{replies: map[string]reply{}}
}

func (f *fakeCaller) on(name string, body string, err error) *fakeCaller {
	var raw json.RawMessage
	if body != "" {
		raw = json.RawMessage(body)
	}
	f.replies[name] = reply{body: raw, err: err}
	return f
}

func (f *fakeCaller) Call(_ context.Context, req upstream.Request) (json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if f.events != nil {
		*f.events = append(*f.events, "call:"+req.Name)
	}
	r, ok := f.replies[req.Name]
	if !ok {
		return nil, errors.New("unexpected call " + req.Name)
	}
	return r.body, r.err
}

func (f *fakeCaller) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

// recordingRuntime runs steps inline and records sleeps instead of waiting.
type recordingRuntime struct {
	events   *[]string
	slept    []time.Duration
	sleepErr error
}

func (r *recordingRuntime) Step(ctx context.Context, name string, fn func(context.Context) (Result, error)) (Result, error) {
	*r.events = append(*r.events, "step:"+name)
	return fn(ctx)
}

func (r *recordingRuntime) Sleep(_ context.Context, d time.Duration) error {
	*r.events = append(*r.events, "sleep:"+d.String())
	r.slept = append(r.slept, d)
	return r.sleepErr
}

type memoryRecorder struct {
	ops     []Operation
	ctxErrs []error
	err     error
}

func (m *memoryRecorder) Record(ctx context.Context, op Operation) error {
	m.ops = append(m.ops, op)
	m.ctxErrs = append(m.ctxErrs, ctx.Err())
	return m.err
}

var fixedNow = time.Date(2024, 5, 10, 14, 30, 0, 0, time.UTC)

func quietLogger() *log.Logger { return log.New(io.Discard, "", 0) }

func testProfile() ReserveProfile {
	return ReserveProfile{
		EntidadColocadora: "183",
		SistemaOrigen:     "194",
		IDCanal:           "3",
		UsuarioCreacion:   "U-TEST",
	}
}

func newTestService(c Caller, opts Options) (*Service, *recordingRuntime, *[]string) {
	events := &[]string{}
	if fc, ok := c.(*fakeCaller); ok {
		fc.events = events
	}
	rt := &recordingRuntime{events: events}
	s := NewService(c, opts, quietLogger()).WithRuntime(rt)
	s.now = func() time.Time { return fixedNow }
	return s, rt, events
}

func validCreate() CreateClaimRequest {
	return CreateClaimRequest{
		Proceso:            "1",
		EntidadColocadora:  "183",
		SimSistemaOrigen:   "194",
		Transaccion:        "TX-100",
		CodCia:             "3",
		CodSecc:            "1",
		CodProducto:        "250",
		TdocTerceroAseg:    "CC",
		CodAseg:            "1020304050",
		TdocTerceroTom:     "CC",
		NroDocumento:       "1020304050",
		NumPol1:            "1000123",
		CodRies:            "1",
		CodCausaSini:       "12",
		FecDenuSini:        "10052024",
		FechaSini:          "09052024",
		HoraSini:           "1130",
		DescSini:           "Choque simple",
		SimFecFormalizac:   "10052024",
		SimUsuarioCreacion: "API",
		PolPrincipal:       "1000123",
		VDatosVariables: []Variable{
			{CodModulo: "1", CodNivel: "2", CodGrupo: "3", CodCampo: "VAL", ValorCampo: "X"},
		},
	}
}

func validStatus() StatusQuery {
	return StatusQuery{
		Transaccion:       "TX-200",
		CodCia:            "3",
		CodSecc:           "1",
		CodProducto:       "250",
		EntidadColocadora: "183",
		Proceso:           "30",
		SistemaOrigen:     "194",
	}
}

func validPayment() PaymentRequest {
	return PaymentRequest{
		Transaccion:     "TX-300",
		NumSini:         "S-9",
		Compania:        "3",
		Seccion:         "1",
		Producto:        "250",
		NumPol1:         "1000123",
		CodActBenef:     "1",
		TdocTercero:     "NIT",
		CodBenef:        "900123",
		NroFactura:      "F-1",
		FechaFactura:    "01052024",
		LocalidaFactura: "11001",
		FacturaExenta:   "N",
		ConIvaSim:       "S",
		CodTexto:        "1",
		SubCodTexto:     "2",
		TipoLiq:         "P",
		TotalBrutoLiq:   "150000",
		Autorizante:     "AUT",
		FechaLiq:        "10052024",
		CodPago:         "T",
		CodMonLiq:       "1",
		SubTipoOrdpago:  "1",
		CodCob:          "101",
		CodConcepLiq:    "5",
		ImporteLiq:      "150000",
		CodConcepRva:    "7",
		NroExped:        "E-1",
		TipoExped:       "1",
	}
}

func validReserve() ReserveRequest {
	return ReserveRequest{
		Transaccion: "TX-400",
		CodCia:      "3",
		CodSecc:     "1",
		NumSini:     "S-10",
		CodProducto: "250",
		TipoExped:   "1",
		CodCauModEx: "4",
		VDatosReserva: []ReserveLine{
			{CodMon: "1", CodCob: "101", CodConcepRva: "7", ValorMovim: "2500.50"},
		},
	}
}
