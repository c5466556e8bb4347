// Package editor keeps the state of one template being edited, renders its
// preview and saves it through the API client.
package editor

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/hareeshagunasekara/SoloDesk-sub000/internal/apiclient"
	"github.com/hareeshagunasekara/SoloDesk-sub000/internal/templating"
)

var (
	ErrSaveInProgress = errors.New("a save is already in progress")
	ErrTypeChanged    = errors.New("template type cannot change while editing")
)

// Saver persists a template state.
type Saver interface {
	SaveTemplate(ctx context.Context, s templating.State) (apiclient.SaveResult, error)
}

// Source loads what an editor starts from.
type Source interface {
	Saver
	Profile(ctx context.Context) templating.Profile
	ListTemplates(ctx context.Context, t templating.TemplateType) ([]apiclient.Template, error)
}

type preview struct {
	revision uint64
	html     string
	err      error
}

// Editor is safe for concurrent use. Every change bumps the revision; the
// preview is rendered at most once per revision.
type Editor struct {
	saver  Saver
	render func(templating.State, templating.Profile) (templating.Rendered, error)

	mu            sync.Mutex
	state         templating.State
	profile       templating.Profile
	revision      uint64
	savedRevision uint64
	showPreview   bool
	cached        *preview
	saving        bool
}

func New(saver Saver, profile templating.Profile, initial templating.State) *Editor {
	return &Editor{
		saver:    saver,
		render:   templating.Render,
		state:    initial,
		profile:  profile,
		revision: 1,
	}
}

// Load opens an editor for type t. It starts from the user's saved template
// of that type, or from the defaults when none exists or the list call fails.
func Load(ctx context.Context, src Source, t templating.TemplateType) (*Editor, error) {
	profile := src.Profile(ctx)

	initial, err := templating.Defaults(t, profile)
	if err != nil {
		return nil, err
	}
	loaded := false
	existing, err := src.ListTemplates(ctx, t)
	switch {
	case err != nil:
		log.Printf("Could not load saved %s template, starting from defaults: %v", t, err)
	case len(existing) > 0:
		s, err := existing[0].State()
		if err != nil {
			log.Printf("Saved %s template %s is unreadable, starting from defaults: %v", t, existing[0].ID, err)
		} else {
			initial, loaded = s, true
		}
	}

	e := New(src, profile, initial)
	if loaded {
		e.savedRevision = e.revision
	}
	return e, nil
}

func (e *Editor) State() templating.State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

func (e *Editor) Profile() templating.Profile {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.profile
}

func (e *Editor) Revision() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.revision
}

// Dirty reports whether there are changes since the last successful save.
func (e *Editor) Dirty() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.revision != e.savedRevision
}

// Set replaces the state. The template type must not change.
func (e *Editor) Set(s templating.State) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if s == nil || s.Kind() != e.state.Kind() {
		return ErrTypeChanged
	}
	e.state = s
	e.revision++
	return nil
}

// Update applies fn to the current state. If fn fails the state and revision
// are left untouched, so a rejected list removal changes nothing.
func (e *Editor) Update(fn func(templating.State) (templating.State, error)) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	next, err := fn(e.state)
	if err != nil {
		return err
	}
	if next == nil || next.Kind() != e.state.Kind() {
		return ErrTypeChanged
	}
	e.state = next
	e.revision++
	return nil
}

// SetProfile swaps the profile, e.g. after the user edits their business details.
func (e *Editor) SetProfile(p templating.Profile) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.profile = p
	e.revision++
}

func (e *Editor) SetPreview(visible bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.showPreview = visible
}

func (e *Editor) PreviewVisible() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.showPreview
}

// Preview returns the rendered HTML of the current state, or "" while the
// preview is hidden.
func (e *Editor) Preview() (string, error) {
	e.mu.Lock()
	if !e.showPreview {
		e.mu.Unlock()
		return "", nil
	}
	if e.cached != nil && e.cached.revision == e.revision {
		p := e.cached
		e.mu.Unlock()
		return p.html, p.err
	}
	state, profile, rev := e.state, e.profile, e.revision
	e.mu.Unlock()

	var p preview
	p.revision = rev
	r, err := e.render(state, profile)
	if err != nil {
		p.err = fmt.Errorf("failed to render preview: %w", err)
	} else {
		p.html = r.HTML
	}

	e.mu.Lock()
	if e.revision == rev {
		e.cached = &p
	}
	e.mu.Unlock()
	return p.html, p.err
}

// Saving reports whether a save is in flight.
func (e *Editor) Saving() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.saving
}

// Save persists the current state. Only one save runs at a time; a second
// call while one is in flight returns ErrSaveInProgress.
func (e *Editor) Save(ctx context.Context) (apiclient.SaveResult, error) {
	e.mu.Lock()
	if e.saving {
		e.mu.Unlock()
		return apiclient.SaveResult{}, ErrSaveInProgress
	}
	e.saving = true
	state, rev := e.state, e.revision
	e.mu.Unlock()

	res, err := e.saver.SaveTemplate(ctx, state)

	e.mu.Lock()
	e.saving = false
	if err == nil && res.Success && !res.DemoMode {
		e.savedRevision = rev
	}
	e.mu.Unlock()

	if err != nil {
		log.Printf("Saving %s template failed: %v", state.Kind(), err)
	}
	return res, err
}
