package models

import (
	"math"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/hareeshagunasekara/SoloDesk-sub000/internal/templating"
)

type InvoiceStatus string

const (
	InvoiceStatusDraft     InvoiceStatus = "draft"
	InvoiceStatusSent      InvoiceStatus = "sent"
	InvoiceStatusPaid      InvoiceStatus = "paid"
	InvoiceStatusOverdue   InvoiceStatus = "overdue"
	InvoiceStatusCancelled InvoiceStatus = "cancelled"
)

// Valid reports whether s is a known invoice status.
func (s InvoiceStatus) Valid() bool {
	switch s {
	case InvoiceStatusDraft, InvoiceStatusSent, InvoiceStatusPaid, InvoiceStatusOverdue, InvoiceStatusCancelled:
		return true
	}
	return false
}

// Invoice is a bill issued by the freelancer to one of their clients.
type Invoice struct {
	Base            `bson:",inline"`
	UserID          primitive.ObjectID    `bson:"user_id" json:"userId"`
	ClientID        primitive.ObjectID    `bson:"client_id" json:"clientId"`
	InvoiceNumber   string                `bson:"invoice_number" json:"invoiceNumber"` // Unique per user, e.g. INV-2026-0042
	Items           []templating.LineItem `bson:"items" json:"items"`
	CurrencyCode    string                `bson:"currency_code" json:"currency"`
	Subtotal        float64               `bson:"subtotal" json:"subtotal"`
	TaxRate         float64               `bson:"tax_rate" json:"taxRate"` // Percent
	Tax             float64               `bson:"tax" json:"tax"`
	Total           float64               `bson:"total" json:"total"`
	Status          InvoiceStatus         `bson:"status" json:"status"`
	Notes           string                `bson:"notes,omitempty" json:"notes,omitempty"`
	IssuedAt        time.Time             `bson:"issued_at" json:"issuedAt"`
	DueAt           time.Time             `bson:"due" json:"dueAt"`
	SentAt          *time.Time            `bson:"sent_at,omitempty" json:"sentAt,omitempty"`
	PaidAt          *time.Time            `bson:"paid_at,omitempty" json:"paidAt,omitempty"` // Null until paid
	OverdueNotified bool                  `bson:"overdue_notified" json:"overdueNotified"`   // Flag to prevent multiple overdue emails
	CreatedAt       time.Time             `bson:"created_at" json:"createdAt"`
	UpdatedAt       time.Time             `bson:"updated_at" json:"updatedAt"`
	Deleted         bool                  `bson:"deleted" json:"-"` // Soft delete flag
}

// Recalculate recomputes line amounts, subtotal, tax and total.
func (inv *Invoice) Recalculate() {
	var subtotal float64
	for i := range inv.Items {
		inv.Items[i] = inv.Items[i].WithAmount()
		subtotal += inv.Items[i].Amount
	}
	inv.Subtotal = round2(subtotal)
	inv.Tax = round2(inv.Subtotal * inv.TaxRate / 100)
	inv.Total = round2(inv.Subtotal + inv.Tax)
}

// IsOverdue reports whether an unpaid invoice is past its due date.
func (inv *Invoice) IsOverdue(now time.Time) bool {
	switch inv.Status {
	case InvoiceStatusPaid, InvoiceStatusCancelled, InvoiceStatusDraft:
		return false
	}
	return now.After(inv.DueAt)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
