package email

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hareeshagunasekara/SoloDesk-sub000/internal/templating"
)

type recordingSender struct {
	calls int
	err   error
}

func (r *recordingSender) Send(ctx context.Context, to []string, subject string, rawMessage []byte) error {
	r.calls++
	return r.err
}

func TestBuildMessage_MultipartAlternative(t *testing.T) {
	rendered := templating.Rendered{
		Subject: "Welcome to Acme!",
		HTML:    "<p>Hello</p>",
		Text:    "Hello\n",
	}
	raw, err := BuildMessage("noreply@solodesk.app", []string{"client@example.com"}, "owner@acme.test", templating.TypeWelcome, rendered)
	require.NoError(t, err)

	msg, err := mail.ReadMessage(bytes.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, "Welcome to Acme!", msg.Header.Get("Subject"))
	assert.Equal(t, "welcome", msg.Header.Get(TemplateHeader))
	assert.Contains(t, msg.Header.Get("Reply-To"), "owner@acme.test")

	mediaType, params, err := mime.ParseMediaType(msg.Header.Get("Content-Type"))
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(mediaType, "multipart/"))

	// collect leaf part types, descending into nested multiparts
	var types []string
	var walk func(r io.Reader, boundary string)
	walk = func(r io.Reader, boundary string) {
		mr := multipart.NewReader(r, boundary)
		for {
			part, err := mr.NextPart()
			if err != nil {
				return
			}
			mt, p, _ := mime.ParseMediaType(part.Header.Get("Content-Type"))
			if strings.HasPrefix(mt, "multipart/") {
				walk(part, p["boundary"])
				continue
			}
			types = append(types, mt)
		}
	}
	walk(msg.Body, params["boundary"])
	assert.ElementsMatch(t, []string{"text/plain", "text/html"}, types)

	_, err = BuildMessage("noreply@solodesk.app", nil, "", templating.TypeWelcome, rendered)
	assert.Error(t, err)
}

func TestCompositeEmailSender(t *testing.T) {
	ok := &recordingSender{}
	bad := &recordingSender{err: errors.New("relay down")}
	cs := NewCompositeEmailSender(ok, nil, bad)

	err := cs.Send(context.Background(), []string{"a@example.com"}, "s", []byte("m"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "relay down")
	assert.Equal(t, 1, ok.calls)
	assert.Equal(t, 1, bad.calls)

	assert.Error(t, NewCompositeEmailSender().Send(context.Background(), nil, "s", nil))
}

func TestFileEmailSender(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "emails.log")
	s, err := NewFileEmailSender(path)
	require.NoError(t, err)

	require.NoError(t, s.Send(context.Background(), []string{"a@example.com"}, "First", []byte("body one")))
	require.NoError(t, s.Send(context.Background(), []string{"b@example.com"}, "Second", []byte("body two")))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "Subject: First")
	assert.Contains(t, string(content), "body two")
	assert.Equal(t, 2, strings.Count(string(content), "--- End Logged Email ---"))

	_, err = NewFileEmailSender("  ")
	assert.Error(t, err)
}
