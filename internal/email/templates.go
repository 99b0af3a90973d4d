package email

import (
	"bytes"
	"fmt"
	"html/template"
	"time"
)

// FollowUpAlert describes an operation whose automatic status query failed
// after the upstream had already accepted it.
type FollowUpAlert struct {
	Operation   string
	Transaccion string
	NumSini     string
	Error       string
	OccurredAt  time.Time
}

var followUpFailedTpl = template.Must(template.New("followUpFailed").Parse(`
<h2>Consulta de estado fallida</h2>
<p>La operación <b>{{.Operation}}</b> fue aceptada pero la consulta automática de estado falló.</p>
<p>Transacción: <b>{{.Transaccion}}</b></p>
{{if .NumSini}}<p>Siniestro: <b>{{.NumSini}}</b></p>{{end}}
<p>Error: <code>{{.Error}}</code></p>
<p>Fecha: {{.OccurredAt.Format "2006-01-02 15:04:05 MST"}}</p>
`))

// RenderFollowUpFailedAlert returns the subject and HTML body of the alert.
func RenderFollowUpFailedAlert(a FollowUpAlert) (string, string, error) {
	var buf bytes.Buffer
	if err := followUpFailedTpl.Execute(&buf, a); err != nil {
		return "", "", fmt.Errorf("render follow-up alert: %w", err)
	}
	subject := fmt.Sprintf("[siniestros] %s %s: consulta de estado fallida", a.Operation, a.Transaccion)
	return subject, buf.String(), nil
}
