package claims

import "encoding/json"

// Result is the JSON object handed back to gateway callers. The upstream body
// always travels verbatim under "resultado_api".
type Result map[string]any

// Variable is one entry of a claim's vdatos_variables list.
type Variable struct {
	CodModulo  string `json:"cod_modulo"`
	CodNivel   string `json:"cod_nivel"`
	CodGrupo   string `json:"cod_grupo"`
	CodCampo   string `json:"cod_campo"`
	ValorCampo string `json:"valor_campo"`
}

// CreateClaimRequest already carries the full upstream shape and is forwarded
// as is.
type CreateClaimRequest struct {
	Proceso            string     `json:"proceso"`
	EntidadColocadora  string     `json:"entidad_colocadora"`
	SimSistemaOrigen   string     `json:"sim_sistema_origen"`
	Transaccion        string     `json:"transaccion"`
	CodCia             string     `json:"cod_cia"`
	CodSecc            string     `json:"cod_secc"`
	CodProducto        string     `json:"cod_producto"`
	TdocTerceroAseg    string     `json:"tdoc_tercero_aseg"`
	CodAseg            string     `json:"cod_aseg"`
	TdocTerceroTom     string     `json:"tdoc_tercero_tom"`
	NroDocumento       string     `json:"nro_documento"`
	NumPol1            string     `json:"num_pol1"`
	CodRies            string     `json:"cod_ries"`
	CodCausaSini       string     `json:"cod_causa_sini"`
	FecDenuSini        string     `json:"fec_denu_sini"`
	FechaSini          string     `json:"fecha_sini"`
	HoraSini           string     `json:"hora_sini"`
	DescSini           string     `json:"desc_sini"`
	SimFecFormalizac   string     `json:"sim_fec_formalizac"`
	SimUsuarioCreacion string     `json:"sim_usuario_creacion"`
	PolPrincipal       string     `json:"pol_principal"`
	VDatosVariables    []Variable `json:"vdatos_variables"`
}

// StatusQuery identifies the claim transaction to look up. The six p_* codes
// are sent upstream as request headers, never in a body.
type StatusQuery struct {
	Transaccion       string `json:"transaccion"`
	CodCia            string `json:"p_cod_cia"`
	CodSecc           string `json:"p_cod_secc"`
	CodProducto       string `json:"p_cod_producto"`
	EntidadColocadora string `json:"p_entidad_colocadora"`
	Proceso           string `json:"p_proceso"`
	SistemaOrigen     string `json:"p_sistema_origen"`
}

// headers returns the six codes keyed by their upstream header names.
func (q StatusQuery) headers() map[string]string {
	return map[string]string{
		"p_cod_cia":            q.CodCia,
		"p_cod_secc":           q.CodSecc,
		"p_cod_producto":       q.CodProducto,
		"p_entidad_colocadora": q.EntidadColocadora,
		"p_proceso":            q.Proceso,
		"p_sistema_origen":     q.SistemaOrigen,
	}
}

// PaymentRequest uses the caller-facing names compania, seccion and producto;
// they are renamed to cod_cia, cod_secc and cod_producto upstream.
type PaymentRequest struct {
	Transaccion string `json:"transaccion"`
	NumSini     string `json:"num_sini"`
	Compania    string `json:"compania"`
	Seccion     string `json:"seccion"`
	Producto    string `json:"producto"`
	NumPol1     string `json:"num_pol1"`

	CodActBenef     string `json:"cod_act_benef"`
	TdocTercero     string `json:"tdoc_tercero"`
	CodBenef        string `json:"cod_benef"`
	NroFactura      string `json:"nro_factura"`
	FechaFactura    string `json:"fecha_factura"`
	LocalidaFactura string `json:"localida_factura"`
	FacturaExenta   string `json:"factura_exenta"`
	ConIvaSim       string `json:"con_iva_sim"`
	CodTexto        string `json:"cod_texto"`
	SubCodTexto     string `json:"sub_cod_texto"`
	TipoLiq         string `json:"tipo_liq"`
	TotalBrutoLiq   string `json:"total_bruto_liq"`
	Autorizante     string `json:"autorizante"`
	FechaLiq        string `json:"fecha_liq"`
	CodPago         string `json:"cod_pago"`
	CodMonLiq       string `json:"cod_mon_liq"`
	SubTipoOrdpago  string `json:"sub_tipo_ordpago"`

	CodCob       string `json:"cod_cob"`
	CodConcepLiq string `json:"cod_concep_liq"`
	ImporteLiq   string `json:"importe_liq"`
	CodConcepRva string `json:"cod_concep_rva"`

	NroExped  string `json:"nro_exped"`
	TipoExped string `json:"tipo_exped"`
}

// ReserveLine is one reserve adjustment. ValorMovim accepts a JSON number or a
// numeric string and is always forwarded as a number.
type ReserveLine struct {
	CodMon       string      `json:"cod_mon"`
	CodCob       string      `json:"cod_cob"`
	CodConcepRva string      `json:"cod_concep_rva"`
	ValorMovim   json.Number `json:"valor_movim"`
}

type ReserveRequest struct {
	Transaccion   string        `json:"transaccion"`
	CodCia        string        `json:"cod_cia"`
	CodSecc       string        `json:"cod_secc"`
	NumSini       string        `json:"num_sini"`
	CodProducto   string        `json:"cod_producto"`
	TipoExped     string        `json:"tipo_exped"`
	CodCauModEx   string        `json:"cod_cau_mod_ex"`
	VDatosReserva []ReserveLine `json:"vdatos_reserva"`
}

// ReserveProfile holds the environment-specific constants stamped on every
// reserve modification. They differ between upstream environments, so none of
// them has a default.
type ReserveProfile struct {
	EntidadColocadora json.Number `json:"entidad_colocadora"`
	SistemaOrigen     json.Number `json:"sim_sistema_origen"`
	IDCanal           json.Number `json:"sim_id_canal"`
	UsuarioCreacion   string      `json:"sim_usuario_creacion"`
}
