package identity

import (
	"bytes"
	"html/template"
)

var confirmationTmpl = template.Must(template.New("confirm").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: sans-serif">
  <p>Hi {{.Username}},</p>
  <p>Welcome to PetPal! Please confirm your email address by clicking the link below:</p>
  <p><a href="{{.Link}}">Confirm my email</a></p>
  <p>This link expires in one hour.</p>
</body>
</html>`))

var resetTmpl = template.Must(template.New("reset").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: sans-serif">
  <p>Hi {{.Username}},</p>
  <p>We received a request to reset your PetPal password. Click the link below to choose a new one:</p>
  <p><a href="{{.Link}}">Reset my password</a></p>
  <p>This link expires in one hour. If you did not request it, you can ignore this email.</p>
</body>
</html>`))

type emailData struct {
	Username string
	Link     string
}

func render(t *template.Template, username, link string) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, emailData{Username: username, Link: link}); err != nil {
		return "", err
	}
	return buf.String(), nil
}
