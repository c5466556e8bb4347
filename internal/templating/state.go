package templating

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrInvalidTemplate is wrapped by every ValidationError.
var ErrInvalidTemplate = errors.New("invalid template")

// ValidationError lists the problems found in a template, keyed by field.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return "invalid template: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error { return ErrInvalidTemplate }

type problems map[string]string

func (p problems) add(field, msg string) { p[field] = msg }

func (p problems) list(field string, err error) {
	if err != nil {
		p[field] = err.Error()
	}
}

func (p problems) err() error {
	if len(p) == 0 {
		return nil
	}
	return &ValidationError{Fields: p}
}

// State is the editable content of one template type.
type State interface {
	Kind() TemplateType
	SubjectLine() string
	Fields() Fields
	Validate() error
}

// FromFields rebuilds the typed state of t from its persisted fields.
func FromFields(t TemplateType, subject string, f Fields) (State, error) {
	switch t {
	case TypeWelcome:
		return Welcome{
			Subject:        subject,
			Tagline:        f.Tagline,
			Greeting:       f.Greeting,
			Intro:          f.Intro,
			Services:       cloneItems(f.Services),
			HighlightTitle: f.HighlightTitle,
			HighlightText:  f.HighlightText,
			NextSteps:      cloneItems(f.NextSteps),
			Closing:        f.Closing,
		}, nil
	case TypeInvoice:
		inv := Invoice{
			Subject:        subject,
			Items:          withAmounts(f.Items),
			PaymentMethods: cloneItems(f.PaymentMethods),
			Notes:          f.Notes,
		}
		if f.Header != nil {
			inv.Header = *f.Header
		}
		if f.Footer != nil {
			inv.Footer = *f.Footer
		}
		return inv, nil
	case TypeFollowUp:
		return FollowUp{
			Subject:      subject,
			Greeting:     f.Greeting,
			Message:      f.Message,
			Tasks:        cloneItems(f.Tasks),
			CallToAction: f.CallToAction,
			Closing:      f.Closing,
		}, nil
	case TypePaymentConfirmation:
		pc := PaymentConfirmation{
			Subject:        subject,
			Message:        f.Message,
			PaymentMethods: cloneItems(f.PaymentMethods),
			NextSteps:      cloneItems(f.NextSteps),
		}
		if f.Header != nil {
			pc.Header = *f.Header
		}
		if f.Footer != nil {
			pc.Footer = *f.Footer
		}
		return pc, nil
	}
	return nil, fmt.Errorf("unknown template type %q", t)
}

// --- welcome ---

// Welcome is the onboarding email sent to new clients.
type Welcome struct {
	Subject        string
	Tagline        string
	Greeting       string
	Intro          string
	Services       []Service
	HighlightTitle string
	HighlightText  string
	NextSteps      []string
	Closing        string
}

func (w Welcome) Kind() TemplateType  { return TypeWelcome }
func (w Welcome) SubjectLine() string { return w.Subject }

func (w Welcome) Fields() Fields {
	return Fields{
		Tagline:        w.Tagline,
		Greeting:       w.Greeting,
		Intro:          w.Intro,
		Services:       cloneItems(w.Services),
		HighlightTitle: w.HighlightTitle,
		HighlightText:  w.HighlightText,
		NextSteps:      cloneItems(w.NextSteps),
		Closing:        w.Closing,
	}
}

func (w Welcome) Validate() error {
	p := problems{}
	if strings.TrimSpace(w.Subject) == "" {
		p.add("subject", "Subject is required")
	}
	p.list("services", requireItems(w.Services, "service"))
	for i, s := range w.Services {
		if strings.TrimSpace(s.Name) == "" {
			p.add(fmt.Sprintf("services[%d].name", i), "Service name is required")
		}
	}
	p.list("nextSteps", requireItems(w.NextSteps, "next step"))
	return p.err()
}

func (w Welcome) AddService(s Service) Welcome {
	w.Services = appendItem(w.Services, s)
	return w
}

func (w Welcome) UpdateService(i int, s Service) (Welcome, error) {
	items, err := replaceItem(w.Services, i, s, "service")
	w.Services = items
	return w, err
}

func (w Welcome) RemoveService(i int) (Welcome, error) {
	items, err := removeItem(w.Services, i, "service", true)
	w.Services = items
	return w, err
}

func (w Welcome) AddNextStep(step string) Welcome {
	w.NextSteps = appendItem(w.NextSteps, step)
	return w
}

func (w Welcome) UpdateNextStep(i int, step string) (Welcome, error) {
	items, err := replaceItem(w.NextSteps, i, step, "next step")
	w.NextSteps = items
	return w, err
}

func (w Welcome) RemoveNextStep(i int) (Welcome, error) {
	items, err := removeItem(w.NextSteps, i, "next step", true)
	w.NextSteps = items
	return w, err
}

// --- invoice ---

// Invoice is the layout used when invoices are emailed to clients.
type Invoice struct {
	Subject        string
	Header         Header
	Items          []LineItem
	PaymentMethods []string
	Footer         Footer
	Notes          string
}

func (inv Invoice) Kind() TemplateType  { return TypeInvoice }
func (inv Invoice) SubjectLine() string { return inv.Subject }

func (inv Invoice) Fields() Fields {
	header, footer := inv.Header, inv.Footer
	return Fields{
		Header:         &header,
		Items:          cloneItems(inv.Items),
		PaymentMethods: cloneItems(inv.PaymentMethods),
		Footer:         &footer,
		Notes:          inv.Notes,
	}
}

func (inv Invoice) Validate() error {
	p := problems{}
	if strings.TrimSpace(inv.Subject) == "" {
		p.add("subject", "Subject is required")
	}
	if strings.TrimSpace(inv.Header.Title) == "" {
		p.add("header.title", "Invoice title is required")
	}
	p.list("items", requireItems(inv.Items, "invoice item"))
	for i, item := range inv.Items {
		if strings.TrimSpace(item.Description) == "" {
			p.add(fmt.Sprintf("items[%d].description", i), "Description is required")
		}
		if item.Quantity <= 0 {
			p.add(fmt.Sprintf("items[%d].quantity", i), "Quantity must be greater than zero")
		}
		if item.UnitPrice < 0 {
			p.add(fmt.Sprintf("items[%d].unitPrice", i), "Unit price cannot be negative")
		}
	}
	p.list("paymentMethods", requireItems(inv.PaymentMethods, "payment method"))
	return p.err()
}

// Subtotal sums the line item amounts.
func (inv Invoice) Subtotal() float64 {
	var total float64
	for _, item := range inv.Items {
		total += item.Amount
	}
	return roundCents(total)
}

func (inv Invoice) AddItem(item LineItem) Invoice {
	inv.Items = appendItem(inv.Items, item.WithAmount())
	return inv
}

// UpdateItem replaces item i and recomputes its amount.
func (inv Invoice) UpdateItem(i int, item LineItem) (Invoice, error) {
	items, err := replaceItem(inv.Items, i, item.WithAmount(), "invoice item")
	inv.Items = items
	return inv, err
}

func (inv Invoice) RemoveItem(i int) (Invoice, error) {
	items, err := removeItem(inv.Items, i, "invoice item", true)
	inv.Items = items
	return inv, err
}

func (inv Invoice) AddPaymentMethod(m string) Invoice {
	inv.PaymentMethods = appendItem(inv.PaymentMethods, m)
	return inv
}

func (inv Invoice) UpdatePaymentMethod(i int, m string) (Invoice, error) {
	items, err := replaceItem(inv.PaymentMethods, i, m, "payment method")
	inv.PaymentMethods = items
	return inv, err
}

func (inv Invoice) RemovePaymentMethod(i int) (Invoice, error) {
	items, err := removeItem(inv.PaymentMethods, i, "payment method", true)
	inv.PaymentMethods = items
	return inv, err
}

// --- follow up ---

// FollowUp is the reminder sent when a client has outstanding actions.
type FollowUp struct {
	Subject      string
	Greeting     string
	Message      string
	Tasks        []string
	CallToAction string
	Closing      string
}

func (f FollowUp) Kind() TemplateType  { return TypeFollowUp }
func (f FollowUp) SubjectLine() string { return f.Subject }

func (f FollowUp) Fields() Fields {
	return Fields{
		Greeting:     f.Greeting,
		Message:      f.Message,
		Tasks:        cloneItems(f.Tasks),
		CallToAction: f.CallToAction,
		Closing:      f.Closing,
	}
}

func (f FollowUp) Validate() error {
	p := problems{}
	if strings.TrimSpace(f.Subject) == "" {
		p.add("subject", "Subject is required")
	}
	if strings.TrimSpace(f.Message) == "" {
		p.add("message", "Message is required")
	}
	p.list("tasks", requireItems(f.Tasks, "task"))
	return p.err()
}

func (f FollowUp) AddTask(task string) FollowUp {
	f.Tasks = appendItem(f.Tasks, task)
	return f
}

func (f FollowUp) UpdateTask(i int, task string) (FollowUp, error) {
	items, err := replaceItem(f.Tasks, i, task, "task")
	f.Tasks = items
	return f, err
}

func (f FollowUp) RemoveTask(i int) (FollowUp, error) {
	items, err := removeItem(f.Tasks, i, "task", true)
	f.Tasks = items
	return f, err
}

// --- payment confirmation ---

// PaymentConfirmation is the receipt sent once an invoice is paid.
type PaymentConfirmation struct {
	Subject        string
	Header         Header
	Message        string
	PaymentMethods []string
	NextSteps      []string
	Footer         Footer
}

func (pc PaymentConfirmation) Kind() TemplateType  { return TypePaymentConfirmation }
func (pc PaymentConfirmation) SubjectLine() string { return pc.Subject }

func (pc PaymentConfirmation) Fields() Fields {
	header, footer := pc.Header, pc.Footer
	return Fields{
		Header:         &header,
		Message:        pc.Message,
		PaymentMethods: cloneItems(pc.PaymentMethods),
		NextSteps:      cloneItems(pc.NextSteps),
		Footer:         &footer,
	}
}

func (pc PaymentConfirmation) Validate() error {
	p := problems{}
	if strings.TrimSpace(pc.Subject) == "" {
		p.add("subject", "Subject is required")
	}
	if strings.TrimSpace(pc.Header.Title) == "" {
		p.add("header.title", "Receipt title is required")
	}
	p.list("paymentMethods", requireItems(pc.PaymentMethods, "payment method"))
	p.list("nextSteps", requireItems(pc.NextSteps, "next step"))
	return p.err()
}

func (pc PaymentConfirmation) AddPaymentMethod(m string) PaymentConfirmation {
	pc.PaymentMethods = appendItem(pc.PaymentMethods, m)
	return pc
}

func (pc PaymentConfirmation) UpdatePaymentMethod(i int, m string) (PaymentConfirmation, error) {
	items, err := replaceItem(pc.PaymentMethods, i, m, "payment method")
	pc.PaymentMethods = items
	return pc, err
}

func (pc PaymentConfirmation) RemovePaymentMethod(i int) (PaymentConfirmation, error) {
	items, err := removeItem(pc.PaymentMethods, i, "payment method", true)
	pc.PaymentMethods = items
	return pc, err
}

func (pc PaymentConfirmation) AddNextStep(step string) PaymentConfirmation {
	pc.NextSteps = appendItem(pc.NextSteps, step)
	return pc
}

func (pc PaymentConfirmation) UpdateNextStep(i int, step string) (PaymentConfirmation, error) {
	items, err := replaceItem(pc.NextSteps, i, step, "next step")
	pc.NextSteps = items
	return pc, err
}

func (pc PaymentConfirmation) RemoveNextStep(i int) (PaymentConfirmation, error) {
	items, err := removeItem(pc.NextSteps, i, "next step", true)
	pc.NextSteps = items
	return pc, err
}
