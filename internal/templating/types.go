// Package templating holds the editable state of SoloDesk's transactional
// email templates and turns that state into complete HTML and plain-text
// documents.
//
// Every template type (welcome, invoice, follow_up, payment_confirmation) is
// a plain value. Setters and list operations return a new value and never
// mutate the receiver, so an editor can keep the previous state around and a
// renderer can read the current one without locking.
package templating

import "fmt"

// TemplateType identifies the kind of transactional template.
type TemplateType string

const (
	TypeWelcome             TemplateType = "welcome"
	TypeInvoice             TemplateType = "invoice"
	TypeFollowUp            TemplateType = "follow_up"
	TypePaymentConfirmation TemplateType = "payment_confirmation"
)

// AllTypes lists every supported template type.
var AllTypes = []TemplateType{TypeWelcome, TypeInvoice, TypeFollowUp, TypePaymentConfirmation}

// Valid reports whether t is a known template type.
func (t TemplateType) Valid() bool {
	for _, known := range AllTypes {
		if t == known {
			return true
		}
	}
	return false
}

// DisplayName is the human readable name used when a template is first saved.
func (t TemplateType) DisplayName() string {
	switch t {
	case TypeWelcome:
		return "Welcome Email"
	case TypeInvoice:
		return "Invoice Template"
	case TypeFollowUp:
		return "Follow-up Email"
	case TypePaymentConfirmation:
		return "Payment Confirmation"
	}
	return string(t)
}

// ParseType converts a raw string into a TemplateType.
func ParseType(s string) (TemplateType, error) {
	t := TemplateType(s)
	if !t.Valid() {
		return "", fmt.Errorf("unknown template type %q", s)
	}
	return t, nil
}

// Address is the postal address of the business sending the email.
type Address struct {
	Street  string `bson:"street" json:"street"`
	City    string `bson:"city" json:"city"`
	State   string `bson:"state" json:"state"`
	ZipCode string `bson:"zip_code" json:"zipCode"`
	Country string `bson:"country" json:"country"`
}

// IsEmpty reports whether no address line is set.
func (a Address) IsEmpty() bool {
	return a.Street == "" && a.City == "" && a.State == "" && a.ZipCode == "" && a.Country == ""
}

// Profile is the business identity interpolated into every template.
type Profile struct {
	BusinessName      string  `bson:"business_name" json:"businessName"`
	Email             string  `bson:"email" json:"email"`
	Phone             string  `bson:"phone" json:"phone"`
	Website           string  `bson:"website" json:"website"`
	Logo              string  `bson:"logo" json:"logo"`
	Address           Address `bson:"address" json:"address"`
	PreferredCurrency string  `bson:"preferred_currency" json:"preferredCurrency"`
}

// MockProfile is used when the real profile cannot be loaded, so the editor
// stays usable before the business details are set up.
func MockProfile() Profile {
	return Profile{
		BusinessName:      "SoloDesk",
		Email:             "hello@example.com",
		PreferredCurrency: "USD",
	}
}

// Header is the title block of invoice-like templates.
type Header struct {
	Title    string `bson:"title" json:"title"`
	Subtitle string `bson:"subtitle" json:"subtitle"`
}

// Footer is the closing block of invoice-like templates.
type Footer struct {
	ThankYou string `bson:"thank_you" json:"thankYou"`
	Terms    string `bson:"terms" json:"terms"`
	Contact  string `bson:"contact" json:"contact"`
}

// LineItem is a single invoice row.
type LineItem struct {
	Description string  `bson:"description" json:"description"`
	Quantity    float64 `bson:"quantity" json:"quantity"`
	UnitPrice   float64 `bson:"unit_price" json:"unitPrice"`
	Amount      float64 `bson:"amount" json:"amount"`
}

// WithAmount returns the item with Amount recomputed from quantity and unit price.
func (li LineItem) WithAmount() LineItem {
	li.Amount = roundCents(li.Quantity * li.UnitPrice)
	return li
}

// Service is one offering listed in the welcome email.
type Service struct {
	Name        string `bson:"name" json:"name"`
	Description string `bson:"description" json:"description"`
}

// Fields is the union of all type-specific structured fields. It is the shape
// persisted alongside a template and sent over the wire; unused fields are
// omitted.
type Fields struct {
	// welcome
	Tagline        string    `bson:"tagline,omitempty" json:"tagline,omitempty"`
	Greeting       string    `bson:"greeting,omitempty" json:"greeting,omitempty"`
	Intro          string    `bson:"intro,omitempty" json:"intro,omitempty"`
	Services       []Service `bson:"services,omitempty" json:"services,omitempty"`
	HighlightTitle string    `bson:"highlight_title,omitempty" json:"highlightTitle,omitempty"`
	HighlightText  string    `bson:"highlight_text,omitempty" json:"highlightText,omitempty"`
	NextSteps      []string  `bson:"next_steps,omitempty" json:"nextSteps,omitempty"`
	Closing        string    `bson:"closing,omitempty" json:"closing,omitempty"`

	// invoice / payment confirmation
	Header         *Header    `bson:"header,omitempty" json:"header,omitempty"`
	Items          []LineItem `bson:"items,omitempty" json:"items,omitempty"`
	PaymentMethods []string   `bson:"payment_methods,omitempty" json:"paymentMethods,omitempty"`
	Footer         *Footer    `bson:"footer,omitempty" json:"footer,omitempty"`
	Notes          string     `bson:"notes,omitempty" json:"notes,omitempty"`

	// follow up / payment confirmation
	Message      string   `bson:"message,omitempty" json:"message,omitempty"`
	Tasks        []string `bson:"tasks,omitempty" json:"tasks,omitempty"`
	CallToAction string   `bson:"call_to_action,omitempty" json:"callToAction,omitempty"`
}
