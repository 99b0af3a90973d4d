package claims

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"time"

	"github.com/AnthonyGillesRudolfo/Siniestros-Gateway/internal/upstream"
)

const (
	processPath = "/poliza_siniestros/api/v1/procesar"
	statusPath  = "/poliza_siniestros/api/v1/proceso/estado"
)

// Action names, used in logs, spans, audit rows and error messages.
const (
	ActionCreate  = "crear_siniestro"
	ActionStatus  = "consultar_estado"
	ActionPayment = "pago_siniestro"
	ActionReserve = "modificacion_reserva"
)

// Caller sends one business call upstream. *upstream.Client implements it.
type Caller interface {
	Call(ctx context.Context, req upstream.Request) (json.RawMessage, error)
}

// action is the shared executor: validate, build the upstream request, call,
// shape the result. Only build and shape differ between variants.
type action[Req any] struct {
	name  string
	build func(Req) upstream.Request
	shape func(req Req, raw json.RawMessage, now time.Time) Result
}

func (a action[Req]) run(ctx context.Context, rt Runtime, client Caller, now func() time.Time, req Req) (Result, error) {
	if err := validateRequired(a.name, req); err != nil {
		return nil, err
	}
	return rt.Step(ctx, a.name, func(ctx context.Context) (Result, error) {
		raw, err := client.Call(ctx, a.build(req))
		if err != nil {
			return nil, err
		}
		return a.shape(req, raw, now()), nil
	})
}

func timestamp(t time.Time) string { return t.Format(time.RFC3339Nano) }

func createAction() action[CreateClaimRequest] {
	return action[CreateClaimRequest]{
		name: ActionCreate,
		build: func(req CreateClaimRequest) upstream.Request {
			return upstream.Request{
				Name:   ActionCreate,
				Method: http.MethodPost,
				Path:   processPath,
				Body:   req,
				Kind:   upstream.Write,
			}
		},
		shape: func(req CreateClaimRequest, raw json.RawMessage, now time.Time) Result {
			return Result{
				"transaccion":   req.Transaccion,
				"nro_documento": req.NroDocumento,
				"num_pol1":      req.NumPol1,
				"resultado_api": raw,
				"timestamp":     timestamp(now),
			}
		},
	}
}

// statusAction sends the id under idParam ("id" or "transaccion").
func statusAction(idParam string) action[StatusQuery] {
	return action[StatusQuery]{
		name: ActionStatus,
		build: func(q StatusQuery) upstream.Request {
			return upstream.Request{
				Name:    ActionStatus,
				Method:  http.MethodGet,
				Path:    statusPath,
				Query:   url.Values{idParam: {q.Transaccion}},
				Header:  q.headers(),
				Kind:    upstream.Read,
				Subject: q.Transaccion,
			}
		},
		shape: func(q StatusQuery, raw json.RawMessage, now time.Time) Result {
			return Result{
				"id_consultado":       q.Transaccion,
				"parametros_consulta": q.headers(),
				"resultado_api":       raw,
				"timestamp":           timestamp(now),
			}
		},
	}
}

type liquidationDetail struct {
	CodCob       string `json:"cod_cob"`
	CodConcepLiq string `json:"cod_concep_liq"`
	ImporteLiq   string `json:"importe_liq"`
	CodConcepRva string `json:"cod_concep_rva"`
}

type liquidation struct {
	CodActBenef     string              `json:"cod_act_benef"`
	TdocTercero     string              `json:"tdoc_tercero"`
	CodBenef        string              `json:"cod_benef"`
	NroFactura      string              `json:"nro_factura"`
	FechaFactura    string              `json:"fecha_factura"`
	LocalidaFactura string              `json:"localida_factura"`
	FacturaExenta   string              `json:"factura_exenta"`
	ConIvaSim       string              `json:"con_iva_sim"`
	Observacion     string              `json:"observacion"`
	CodTexto        string              `json:"cod_texto"`
	SubCodTexto     string              `json:"sub_cod_texto"`
	TipoLiq         string              `json:"tipo_liq"`
	TotalBrutoLiq   string              `json:"total_bruto_liq"`
	Autorizante     string              `json:"autorizante"`
	FechaLiq        string              `json:"fecha_liq"`
	CodPago         string              `json:"cod_pago"`
	CodMonLiq       string              `json:"cod_mon_liq"`
	SubTipoOrdpago  string              `json:"sub_tipo_ordpago"`
	Detalle         []liquidationDetail `json:"vdatos_det_liquidacion"`
}

type paymentExpedient struct {
	NroExped  string `json:"nro_exped"`
	TipoExped string `json:"tipo_exped"`
}

type paymentEnvelope struct {
	Proceso            string           `json:"proceso"`
	EntidadColocadora  string           `json:"entidad_colocadora"`
	SimSistemaOrigen   string           `json:"sim_sistema_origen"`
	SimIDCanal         string           `json:"sim_id_canal"`
	Transaccion        string           `json:"transaccion"`
	NumSini            string           `json:"num_sini"`
	CodCia             string           `json:"cod_cia"`
	CodSecc            string           `json:"cod_secc"`
	CodProducto        string           `json:"cod_producto"`
	NumPol1            string           `json:"num_pol1"`
	TipoDec            string           `json:"tipo_dec"`
	SimUsuarioCreacion string           `json:"sim_usuario_creacion"`
	Liquidacion        liquidation      `json:"vdatos_liquidacion"`
	Expediente         paymentExpedient `json:"vdatos_expediente"`
}

// Payment constants fixed by the upstream for API-originated payments.
const (
	paymentProceso           = "30"
	paymentEntidadColocadora = "183"
	paymentSistemaOrigen     = "194"
	paymentCanal             = "3"
	paymentTipoDec           = "D"
	paymentUsuario           = "1022365456"
	paymentObservacion       = "PAGO API "
)

func buildPaymentEnvelope(req PaymentRequest) paymentEnvelope {
	return paymentEnvelope{
		Proceso:            paymentProceso,
		EntidadColocadora:  paymentEntidadColocadora,
		SimSistemaOrigen:   paymentSistemaOrigen,
		SimIDCanal:         paymentCanal,
		Transaccion:        req.Transaccion,
		NumSini:            req.NumSini,
		CodCia:             req.Compania,
		CodSecc:            req.Seccion,
		CodProducto:        req.Producto,
		NumPol1:            req.NumPol1,
		TipoDec:            paymentTipoDec,
		SimUsuarioCreacion: paymentUsuario,
		Liquidacion: liquidation{
			CodActBenef:     req.CodActBenef,
			TdocTercero:     req.TdocTercero,
			CodBenef:        req.CodBenef,
			NroFactura:      req.NroFactura,
			FechaFactura:    req.FechaFactura,
			LocalidaFactura: req.LocalidaFactura,
			FacturaExenta:   req.FacturaExenta,
			ConIvaSim:       req.ConIvaSim,
			Observacion:     paymentObservacion,
			CodTexto:        req.CodTexto,
			SubCodTexto:     req.SubCodTexto,
			TipoLiq:         req.TipoLiq,
			TotalBrutoLiq:   req.TotalBrutoLiq,
			Autorizante:     req.Autorizante,
			FechaLiq:        req.FechaLiq,
			CodPago:         req.CodPago,
			CodMonLiq:       req.CodMonLiq,
			SubTipoOrdpago:  req.SubTipoOrdpago,
			Detalle: []liquidationDetail{{
				CodCob:       req.CodCob,
				CodConcepLiq: req.CodConcepLiq,
				ImporteLiq:   req.ImporteLiq,
				CodConcepRva: req.CodConcepRva,
			}},
		},
		Expediente: paymentExpedient{NroExped: req.NroExped, TipoExped: req.TipoExped},
	}
}

func paymentAction() action[PaymentRequest] {
	return action[PaymentRequest]{
		name: ActionPayment,
		build: func(req PaymentRequest) upstream.Request {
			return upstream.Request{
				Name:   ActionPayment,
				Method: http.MethodPost,
				Path:   processPath,
				Body:   buildPaymentEnvelope(req),
				Kind:   upstream.Write,
			}
		},
		shape: func(req PaymentRequest, raw json.RawMessage, now time.Time) Result {
			return Result{
				"transaccion":   req.Transaccion,
				"num_sini":      req.NumSini,
				"num_pol1":      req.NumPol1,
				"resultado_api": raw,
				"timestamp":     timestamp(now),
			}
		},
	}
}

const reserveProceso = 772

type reserveExpedient struct {
	TipoExped     string        `json:"tipo_exped"`
	CodCauModEx   string        `json:"cod_cau_mod_ex"`
	VDatosReserva []ReserveLine `json:"vdatos_reserva"`
}

type reserveEnvelope struct {
	Proceso            int              `json:"proceso"`
	EntidadColocadora  json.Number      `json:"entidad_colocadora"`
	SimSistemaOrigen   json.Number      `json:"sim_sistema_origen"`
	SimIDCanal         json.Number      `json:"sim_id_canal"`
	SimUsuarioCreacion string           `json:"sim_usuario_creacion"`
	Transaccion        string           `json:"transaccion"`
	CodCia             string           `json:"cod_cia"`
	CodSecc            string           `json:"cod_secc"`
	NumSini            string           `json:"num_sini"`
	CodProducto        string           `json:"cod_producto"`
	Expediente         reserveExpedient `json:"vdatos_expediente"`
}

func buildReserveEnvelope(profile ReserveProfile, req ReserveRequest) reserveEnvelope {
	return reserveEnvelope{
		Proceso:            reserveProceso,
		EntidadColocadora:  profile.EntidadColocadora,
		SimSistemaOrigen:   profile.SistemaOrigen,
		SimIDCanal:         profile.IDCanal,
		SimUsuarioCreacion: profile.UsuarioCreacion,
		Transaccion:        req.Transaccion,
		CodCia:             req.CodCia,
		CodSecc:            req.CodSecc,
		NumSini:            req.NumSini,
		CodProducto:        req.CodProducto,
		Expediente: reserveExpedient{
			TipoExped:     req.TipoExped,
			CodCauModEx:   req.CodCauModEx,
			VDatosReserva: req.VDatosReserva,
		},
	}
}

func reserveAction(profile ReserveProfile) action[ReserveRequest] {
	return action[ReserveRequest]{
		name: ActionReserve,
		build: func(req ReserveRequest) upstream.Request {
			return upstream.Request{
				Name:   ActionReserve,
				Method: http.MethodPost,
				Path:   processPath,
				Body:   buildReserveEnvelope(profile, req),
				Kind:   upstream.Write,
			}
		},
		shape: func(req ReserveRequest, raw json.RawMessage, now time.Time) Result {
			return Result{
				"transaccion":   req.Transaccion,
				"num_sini":      req.NumSini,
				"cod_cia":       req.CodCia,
				"cod_secc":      req.CodSecc,
				"cod_producto":  req.CodProducto,
				"resultado_api": raw,
				"timestamp":     timestamp(now),
			}
		},
	}
}
