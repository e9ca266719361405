package mail

import (
	"bytes"
	"fmt"
	"html/template"
	"time"
)

var statusTemplate = template.Must(template.New("status").Parse(`<p>Hello {{.Name}},</p>
<p>Your road report <strong>{{.TrackingCode}}</strong> ({{.Type}}) is now <strong>{{.Status}}</strong>.</p>
{{if .Notes}}<p>Note from the reviewer: {{.Notes}}</p>{{end}}
<p>Updated {{.At}}.</p>
<p>Salamat sa pagbabantay ng daan!<br>BantayDalan</p>`))

// StatusUpdate is the data of a report status notification.
type StatusUpdate struct {
	Name         string
	TrackingCode string
	Type         string
	Status       string
	Notes        string
	At           time.Time
}

// RenderStatusUpdate returns subject and HTML body of a status notification.
func RenderStatusUpdate(u StatusUpdate) (string, string, error) {
	data := struct {
		StatusUpdate
		At string
	}{u, u.At.Format("Jan 2, 2006 15:04 MST")}

	var buf bytes.Buffer
	if err := statusTemplate.Execute(&buf, data); err != nil {
		return "", "", err
	}
	subject := fmt.Sprintf("Report %s is %s", u.TrackingCode, u.Status)
	return subject, buf.String(), nil
}
