package usecase

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"

	"portfolio-contact/internal/domain"
)

// html/template escapes every interpolated value, so markup typed into the
// form arrives in the operator's inbox as text.
var htmlBody = htmltemplate.Must(htmltemplate.New("contact.html").Parse(`<h2>New Contact Form Submission</h2>
<p><strong>Name:</strong> {{.Name}}</p>
<p><strong>Email:</strong> {{.Email}}</p>
<p><strong>Message:</strong></p>
<p style="white-space: pre-wrap">{{.Message}}</p>
`))

var textBody = texttemplate.Must(texttemplate.New("contact.txt").Parse(`New Contact Form Submission

Name: {{.Name}}
Email: {{.Email}}

{{.Message}}
`))

// composeEmail turns a validated Submission into the operator notification.
// The sender is always the configured address; the submitter only appears as
// Reply-To.
func (s *ContactService) composeEmail(sub domain.Submission) (domain.Email, error) {
	var html, text bytes.Buffer
	if err := htmlBody.Execute(&html, sub); err != nil {
		return domain.Email{}, fmt.Errorf("usecase: render html body: %w", err)
	}
	if err := textBody.Execute(&text, sub); err != nil {
		return domain.Email{}, fmt.Errorf("usecase: render text body: %w", err)
	}
	return domain.Email{
		From:    s.from,
		To:      append([]string(nil), s.to...),
		ReplyTo: sub.Email,
		Subject: subjectFor(sub.Name, s.subjectSuffix),
		HTML:    html.String(),
		Text:    text.String(),
	}, nil
}

func subjectFor(name, suffix string) string {
	return strings.TrimSpace("New Message from " + name + " " + suffix)
}
