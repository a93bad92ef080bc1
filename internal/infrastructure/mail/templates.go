package mail

import (
	"bytes"
	"html/template"
)

var inviteTmpl = template.Must(template.New("invite").Parse(`<p>Hola,</p>
<p>Te invitaron a administrar <strong>{{.Company}}</strong>.</p>
<p><a href="{{.URL}}">Aceptar invitación</a></p>
<p>El enlace vence en {{.TTL}}.</p>`))

var resetTmpl = template.Must(template.New("reset").Parse(`<p>Hola {{.Name}},</p>
<p>Recibimos una solicitud para restablecer tu contraseña.</p>
<p><a href="{{.URL}}">Restablecer contraseña</a></p>
<p>Si no la solicitaste, ignora este correo.</p>`))

type inviteData struct {
	Company string
	URL     string
	TTL     string
}

type resetData struct {
	Name string
	URL  string
}

func render(t *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
