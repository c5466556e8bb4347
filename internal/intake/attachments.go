package intake

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

var ErrAttachmentsClosed = errors.New("attachments closed")

// Attachment is a staged file owned by a form until it is submitted.
type Attachment struct {
	ID           string    `json:"id,omitempty"`
	Filename     string    `json:"filename"`
	OriginalName string    `json:"originalName"`
	MimeType     string    `json:"mimeType"`
	Size         int64     `json:"size"`
	URL          string    `json:"url"`
	PreviewURL   string    `json:"previewUrl,omitempty"`
	UploadedAt   time.Time `json:"uploadedAt"`
}

// Releaser frees a resource referenced by an attachment URL.
type Releaser interface {
	Release(url string)
}

// ReleaseFunc adapts a function to the Releaser interface.
type ReleaseFunc func(url string)

func (f ReleaseFunc) Release(url string) { f(url) }

// staged tracks one attachment and guards each of its resources so they are
// released at most once.
type staged struct {
	Attachment
	urlOnce     sync.Once
	previewOnce sync.Once
}

func (s *staged) release(r Releaser) {
	if r == nil {
		return
	}
	s.urlOnce.Do(func() {
		if s.URL != "" {
			r.Release(s.URL)
		}
	})
	s.previewOnce.Do(func() {
		if s.PreviewURL != "" && s.PreviewURL != s.URL {
			r.Release(s.PreviewURL)
		}
	})
}

// Attachments is the single owner of a form's staged attachments. Every path
// that drops an attachment (Remove, Reset, Close) releases its url and
// preview url exactly once.
type Attachments struct {
	mu       sync.Mutex
	items    []*staged
	releaser Releaser
	closed   bool
}

func NewAttachments(r Releaser) *Attachments {
	return &Attachments{releaser: r}
}

// Add stages a new attachment. A closed registry releases it immediately.
func (a *Attachments) Add(att Attachment) error {
	s := &staged{Attachment: att}
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		s.release(a.releaser)
		return ErrAttachmentsClosed
	}
	a.items = append(a.items, s)
	a.mu.Unlock()
	return nil
}

// List returns a snapshot of the staged attachments.
func (a *Attachments) List() []Attachment {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]Attachment, len(a.items))
	for i, s := range a.items {
		out[i] = s.Attachment
	}
	return out
}

func (a *Attachments) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.items)
}

// Remove drops attachment i and releases its resources.
func (a *Attachments) Remove(i int) error {
	a.mu.Lock()
	if i < 0 || i >= len(a.items) {
		a.mu.Unlock()
		return fmt.Errorf("attachment index %d out of range", i)
	}
	s := a.items[i]
	a.items = append(a.items[:i:i], a.items[i+1:]...)
	a.mu.Unlock()

	s.release(a.releaser)
	return nil
}

// Reset releases every staged attachment and empties the registry.
func (a *Attachments) Reset() {
	a.mu.Lock()
	items := a.items
	a.items = nil
	a.mu.Unlock()

	for _, s := range items {
		s.release(a.releaser)
	}
}

// Close resets the registry and rejects further additions. It is safe to
// call more than once.
func (a *Attachments) Close() {
	a.mu.Lock()
	a.closed = true
	a.mu.Unlock()
	a.Reset()
}

// Reopen allows additions again after Close.
func (a *Attachments) Reopen() {
	a.mu.Lock()
	a.closed = false
	a.mu.Unlock()
}
