package intake

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
)

// Status is the lifecycle position of a form.
type Status int

const (
	StatusClosed Status = iota
	StatusOpen
	StatusSubmitting
)

func (s Status) String() string {
	switch s {
	case StatusClosed:
		return "closed"
	case StatusOpen:
		return "open"
	case StatusSubmitting:
		return "submitting"
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

var (
	ErrFormNotOpen    = errors.New("form is not open")
	ErrFormSubmitting = errors.New("form is already submitting")
	ErrFormClosed     = errors.New("form was closed")
)

// Validatable is implemented by ClientForm and ProjectForm.
type Validatable interface {
	Validate() error
}

// SubmitFunc sends the form value and its attachments to the backend.
type SubmitFunc[T Validatable] func(ctx context.Context, value T, attachments []Attachment) error

// Form drives one intake form through closed -> open -> submitting and back.
// A successful submit calls the success callbacks first, then resets the
// value and releases the staged attachments. A failed submit leaves the form
// open with its value and attachments intact.
type Form[T Validatable] struct {
	mu          sync.Mutex
	status      Status
	value       T
	attachments *Attachments
	onSuccess   []func(T)
	lastErr     error

	ctx    context.Context
	cancel context.CancelFunc
}

func NewForm[T Validatable](r Releaser) *Form[T] {
	a := NewAttachments(r)
	a.Close()
	return &Form[T]{attachments: a}
}

// OnSuccess registers a callback run after every successful submit.
func (f *Form[T]) OnSuccess(fn func(T)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onSuccess = append(f.onSuccess, fn)
}

// Open starts editing with a fresh value. Work started through the form's
// context is cancelled when the form closes.
func (f *Form[T]) Open(parent context.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.status != StatusClosed {
		return
	}
	var zero T
	f.value = zero
	f.lastErr = nil
	f.ctx, f.cancel = context.WithCancel(parent)
	f.attachments.Reopen()
	f.status = StatusOpen
}

func (f *Form[T]) Status() Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status
}

func (f *Form[T]) Value() T {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.value
}

// Err returns the error of the last failed submit.
func (f *Form[T]) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastErr
}

func (f *Form[T]) Attachments() *Attachments {
	return f.attachments
}

// Edit applies fn to the value while the form is open.
func (f *Form[T]) Edit(fn func(*T)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch f.status {
	case StatusClosed:
		return ErrFormNotOpen
	case StatusSubmitting:
		return ErrFormSubmitting
	}
	fn(&f.value)
	return nil
}

// Upload uploads files with u and stages the results. Closing the form
// aborts pending uploads.
func (f *Form[T]) Upload(u *Uploader, files []File) error {
	f.mu.Lock()
	if f.status == StatusClosed {
		f.mu.Unlock()
		return ErrFormNotOpen
	}
	ctx := f.ctx
	f.mu.Unlock()

	atts, err := u.UploadAll(ctx, files)
	if err != nil {
		return err
	}
	for _, att := range atts {
		// a form closed mid-upload releases late arrivals in Add
		if err := f.attachments.Add(att); err != nil {
			return ErrFormClosed
		}
	}
	return nil
}

// Submit validates the value and hands it to send. Validation errors are
// returned without calling send.
func (f *Form[T]) Submit(send SubmitFunc[T]) error {
	f.mu.Lock()
	switch f.status {
	case StatusClosed:
		f.mu.Unlock()
		return ErrFormNotOpen
	case StatusSubmitting:
		f.mu.Unlock()
		return ErrFormSubmitting
	}
	value := f.value
	if err := value.Validate(); err != nil {
		f.lastErr = err
		f.mu.Unlock()
		return err
	}
	f.status = StatusSubmitting
	ctx := f.ctx
	f.mu.Unlock()

	err := send(ctx, value, f.attachments.List())

	f.mu.Lock()
	if f.status == StatusClosed {
		// closed while the request was in flight
		f.mu.Unlock()
		return ErrFormClosed
	}
	if err != nil {
		f.status = StatusOpen
		f.lastErr = err
		f.mu.Unlock()
		log.Printf("Form submit failed: %v", err)
		return err
	}
	callbacks := append([]func(T){}, f.onSuccess...)
	f.mu.Unlock()

	for _, cb := range callbacks {
		cb(value)
	}

	f.Close()
	return nil
}

// Close cancels in-flight work, resets the value and releases attachments.
func (f *Form[T]) Close() {
	f.mu.Lock()
	if f.cancel != nil {
		f.cancel()
		f.cancel = nil
	}
	var zero T
	f.value = zero
	f.status = StatusClosed
	f.mu.Unlock()

	f.attachments.Close()
}
