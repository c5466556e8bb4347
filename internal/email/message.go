package email

import (
	"fmt"
	"net/textproto"

	jwemail "github.com/jordan-wright/email"

	"github.com/hareeshagunasekara/SoloDesk-sub000/internal/templating"
)

// TemplateHeader names the template a message was rendered from.
const TemplateHeader = "X-Solodesk-Template"

// BuildMessage assembles a multipart/alternative message with the plain-text
// and HTML parts of r.
func BuildMessage(from string, to []string, replyTo string, t templating.TemplateType, r templating.Rendered) ([]byte, error) {
	if len(to) == 0 {
		return nil, fmt.Errorf("message has no recipients")
	}
	e := jwemail.NewEmail()
	e.From = from
	e.To = to
	if replyTo != "" {
		e.ReplyTo = []string{replyTo}
	}
	e.Subject = r.Subject
	e.Text = []byte(r.Text)
	e.HTML = []byte(r.HTML)
	e.Headers = textproto.MIMEHeader{}
	if t != "" {
		e.Headers.Set(TemplateHeader, string(t))
	}

	raw, err := e.Bytes()
	if err != nil {
		return nil, fmt.Errorf("build message: %w", err)
	}
	return raw, nil
}
