package apiclient

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/hareeshagunasekara/SoloDesk-sub000/internal/intake"
	"github.com/hareeshagunasekara/SoloDesk-sub000/internal/models"
)

// InvoiceOverview is the per-status summary of a user's invoices.
type InvoiceOverview struct {
	Currency    string         `json:"currency"`
	Outstanding float64        `json:"outstanding"`
	Overdue     float64        `json:"overdue"`
	PaidTotal   float64        `json:"paidTotal"`
	Counts      map[string]int `json:"counts"`
}

func (c *Client) ListInvoices(ctx context.Context, status models.InvoiceStatus) ([]models.Invoice, error) {
	query := url.Values{}
	if status != "" {
		query.Set("status", string(status))
	}
	var out []models.Invoice
	if err := c.do(ctx, http.MethodGet, "/api/invoices", query, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateInvoice(ctx context.Context, inv models.Invoice) (*models.Invoice, error) {
	var out models.Invoice
	if err := c.do(ctx, http.MethodPost, "/api/invoices", nil, inv, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// MarkInvoicePaid marks the invoice paid; the server sends the payment
// confirmation email.
func (c *Client) MarkInvoicePaid(ctx context.Context, id string) (*models.Invoice, error) {
	var out models.Invoice
	if err := c.do(ctx, http.MethodPost, "/api/invoices/"+url.PathEscape(id)+"/paid", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) InvoiceOverview(ctx context.Context) (*InvoiceOverview, error) {
	var out InvoiceOverview
	if err := c.do(ctx, http.MethodGet, "/api/invoices/overview", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListClients(ctx context.Context) ([]models.Client, error) {
	var out []models.Client
	if err := c.do(ctx, http.MethodGet, "/api/clients", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateClient submits the add-client form. It matches intake.SubmitFunc.
func (c *Client) CreateClient(ctx context.Context, f intake.ClientForm, atts []intake.Attachment) error {
	f = f.Normalize()
	f.Attachments = atts
	return c.do(ctx, http.MethodPost, "/api/clients", nil, f, nil)
}

// CreateProject submits the add-project form. It matches intake.SubmitFunc.
func (c *Client) CreateProject(ctx context.Context, f intake.ProjectForm, atts []intake.Attachment) error {
	f = f.Normalize()
	f.Attachments = atts
	return c.do(ctx, http.MethodPost, "/api/projects", nil, f, nil)
}

func (c *Client) ListProjects(ctx context.Context, clientID string) ([]models.Project, error) {
	query := url.Values{}
	if clientID != "" {
		query.Set("clientId", clientID)
	}
	var out []models.Project
	if err := c.do(ctx, http.MethodGet, "/api/projects", query, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ListBookings(ctx context.Context, upcomingOnly bool) ([]models.Booking, error) {
	query := url.Values{}
	if upcomingOnly {
		query.Set("upcoming", "true")
	}
	var out []models.Booking
	if err := c.do(ctx, http.MethodGet, "/api/bookings", query, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// RevenuePoint is the paid total of one calendar month.
type RevenuePoint struct {
	Month string  `json:"month"` // YYYY-MM
	Total float64 `json:"total"`
	Count int     `json:"count"`
}

// RevenueByMonth returns the paid totals of the last n months, oldest first.
func (c *Client) RevenueByMonth(ctx context.Context, months int) ([]RevenuePoint, error) {
	query := url.Values{"months": {strconv.Itoa(months)}}
	var out []RevenuePoint
	if err := c.do(ctx, http.MethodGet, "/api/analytics/revenue", query, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

type uploadURLRequest struct {
	Filename string `json:"filename"`
	MimeType string `json:"mimeType"`
	Size     int64  `json:"size"`
}

type uploadURLResponse struct {
	Attachment models.Attachment `json:"attachment"`
	UploadURL  string            `json:"uploadUrl"`
}

// UploadAttachment requests a presigned URL, uploads the file body to it and
// confirms the upload. It matches intake.UploadFunc.
func (c *Client) UploadAttachment(ctx context.Context, f intake.File) (intake.Attachment, error) {
	var slot uploadURLResponse
	req := uploadURLRequest{Filename: f.Name, MimeType: f.MimeType, Size: f.Size}
	if err := c.do(ctx, http.MethodPost, "/api/attachments/upload-url", nil, req, &slot); err != nil {
		return intake.Attachment{}, err
	}

	put, err := http.NewRequestWithContext(ctx, http.MethodPut, slot.UploadURL, f.Body)
	if err != nil {
		return intake.Attachment{}, fmt.Errorf("failed to create upload request: %w", err)
	}
	put.ContentLength = f.Size
	put.Header.Set("Content-Type", f.MimeType)
	resp, err := c.http.Do(put)
	if err != nil {
		return intake.Attachment{}, fmt.Errorf("upload %s: %w", f.Name, err)
	}
	resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return intake.Attachment{}, &APIError{StatusCode: resp.StatusCode, Message: "object upload rejected"}
	}

	var confirmed models.Attachment
	path := "/api/attachments/" + url.PathEscape(slot.Attachment.ID.Hex()) + "/confirm"
	if err := c.do(ctx, http.MethodPost, path, nil, nil, &confirmed); err != nil {
		return intake.Attachment{}, err
	}
	return toIntakeAttachment(confirmed), nil
}

// DeleteAttachment removes a staged attachment that will not be submitted.
func (c *Client) DeleteAttachment(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/attachments/"+url.PathEscape(id), nil, nil, nil)
}

func toIntakeAttachment(a models.Attachment) intake.Attachment {
	return intake.Attachment{
		ID:           a.ID.Hex(),
		Filename:     a.Filename,
		OriginalName: a.OriginalName,
		MimeType:     a.MimeType,
		Size:         a.Size,
		URL:          a.URL,
		PreviewURL:   a.PreviewURL,
		UploadedAt:   a.UploadedAt,
	}
}
