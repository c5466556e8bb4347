package apiclient

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/hareeshagunasekara/SoloDesk-sub000/internal/templating"
)

// TemplatePayload is the request body of template create and update calls.
type TemplatePayload struct {
	Type      templating.TemplateType `json:"type"`
	Name      string                  `json:"name"`
	Subject   string                  `json:"subject"`
	HTML      string                  `json:"html"`
	Text      string                  `json:"text"`
	IsDefault bool                    `json:"isDefault"`
	IsActive  bool                    `json:"isActive"`
	templating.Fields
}

// Template is a stored template as returned by the API.
type Template struct {
	ID string `json:"id"`
	TemplatePayload
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// State rebuilds the editing state of a stored template.
func (t *Template) State() (templating.State, error) {
	return templating.FromFields(t.Type, t.Subject, t.Fields)
}

// SaveResult describes the outcome of SaveTemplate.
type SaveResult struct {
	Success bool
	// DemoMode is set when the API answered 404 and nothing was persisted.
	DemoMode bool
	Created  bool
	Template *Template
}

// NewTemplatePayload renders s with profile p into a request body.
func NewTemplatePayload(s templating.State, p templating.Profile) (TemplatePayload, error) {
	r, err := templating.Render(s, p)
	if err != nil {
		return TemplatePayload{}, err
	}
	return TemplatePayload{
		Type:     s.Kind(),
		Name:     s.Kind().DisplayName(),
		Subject:  r.Subject,
		HTML:     r.HTML,
		Text:     r.Text,
		IsActive: true,
		Fields:   s.Fields(),
	}, nil
}

// ListTemplates returns the user's templates, optionally filtered by type.
func (c *Client) ListTemplates(ctx context.Context, t templating.TemplateType) ([]Template, error) {
	query := url.Values{}
	if t != "" {
		query.Set("type", string(t))
	}
	var out []Template
	if err := c.do(ctx, http.MethodGet, "/api/email-templates", query, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetTemplate(ctx context.Context, id string) (*Template, error) {
	var out Template
	if err := c.do(ctx, http.MethodGet, "/api/email-templates/"+url.PathEscape(id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateTemplate(ctx context.Context, p TemplatePayload) (*Template, error) {
	var out Template
	if err := c.do(ctx, http.MethodPost, "/api/email-templates", nil, p, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateTemplate(ctx context.Context, id string, p TemplatePayload) (*Template, error) {
	var out Template
	if err := c.do(ctx, http.MethodPut, "/api/email-templates/"+url.PathEscape(id), nil, p, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteTemplate(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/email-templates/"+url.PathEscape(id), nil, nil, nil)
}

// PreviewTemplate asks the server to render p with the stored profile.
func (c *Client) PreviewTemplate(ctx context.Context, p TemplatePayload) (templating.Rendered, error) {
	var out templating.Rendered
	if err := c.do(ctx, http.MethodPost, "/api/email-templates/preview", nil, p, &out); err != nil {
		return templating.Rendered{}, err
	}
	return out, nil
}

// SendTemplate queues the stored template for delivery to the given address.
func (c *Client) SendTemplate(ctx context.Context, id, to string) error {
	body := map[string]string{"to": to}
	return c.do(ctx, http.MethodPost, "/api/email-templates/"+url.PathEscape(id)+"/send", nil, body, nil)
}

// SaveTemplate validates s, then updates the user's existing template of the
// same type or creates one. A 404 from either step ends the save as a
// successful demo-mode save when DemoMode is enabled; no further request is
// made in that case.
func (c *Client) SaveTemplate(ctx context.Context, s templating.State) (SaveResult, error) {
	if err := s.Validate(); err != nil {
		return SaveResult{}, err
	}
	payload, err := NewTemplatePayload(s, c.Profile(ctx))
	if err != nil {
		return SaveResult{}, fmt.Errorf("failed to render template: %w", err)
	}

	existing, err := c.ListTemplates(ctx, s.Kind())
	if err != nil {
		return c.saveFailed(s.Kind(), err)
	}

	var saved *Template
	created := len(existing) == 0
	if created {
		saved, err = c.CreateTemplate(ctx, payload)
	} else {
		payload.Name = firstNonEmpty(existing[0].Name, payload.Name)
		payload.IsDefault = existing[0].IsDefault
		saved, err = c.UpdateTemplate(ctx, existing[0].ID, payload)
	}
	if err != nil {
		return c.saveFailed(s.Kind(), err)
	}
	return SaveResult{Success: true, Created: created, Template: saved}, nil
}

func (c *Client) saveFailed(t templating.TemplateType, err error) (SaveResult, error) {
	if c.DemoMode && IsNotFound(err) {
		log.Printf("WARNING: template endpoint returned 404, %s template not persisted (demo mode)", t)
		return SaveResult{Success: true, DemoMode: true}, nil
	}
	return SaveResult{}, fmt.Errorf("failed to save %s template: %w", t, err)
}
