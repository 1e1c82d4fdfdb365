package mail

import (
	"bytes"
	"html/template"
)

var welcomeTmpl = template.Must(template.New("welcome").Parse(`<html>
<body>
  <p>Hi {{.FullName}},</p>
  <p>An administrator created an account for you on the Truck Loading &amp;
  Storage Tracker. Sign in with the credentials you were given and change
  your password right away.</p>
  <p>The Tracker team</p>
</body>
</html>`))

var resetTmpl = template.Must(template.New("reset").Parse(`<html>
<body>
  <p>A password reset was requested for your account.</p>
  <p><a href="{{.ResetURL}}">Choose a new password</a></p>
  <p>The link expires shortly. If you did not request this, ignore this
  email; your password is unchanged.</p>
</body>
</html>`))

func renderWelcome(fullName string) (string, error) {
	var buf bytes.Buffer
	if err := welcomeTmpl.Execute(&buf, struct{ FullName string }{fullName}); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func renderPasswordReset(resetURL string) (string, error) {
	var buf bytes.Buffer
	if err := resetTmpl.Execute(&buf, struct{ ResetURL string }{resetURL}); err != nil {
		return "", err
	}
	return buf.String(), nil
}
