package templating

import "fmt"

// Default content used when a user has not saved a template of a type yet.
var defaultStates = map[TemplateType]func(p Profile) State{
	TypeWelcome: func(p Profile) State {
		return Welcome{
			Subject:  fmt.Sprintf("Welcome to %s!", businessName(p)),
			Tagline:  "Thank you for choosing to work with us",
			Greeting: "Hi there,",
			Intro:    "I'm excited to start working together. Here is a quick overview of what you can expect.",
			Services: []Service{
				{Name: "Consultation", Description: "An initial call to understand your goals."},
				{Name: "Delivery", Description: "Regular updates until the work is done."},
			},
			HighlightTitle: "What happens next?",
			HighlightText:  "You will receive a project outline within two business days.",
			NextSteps: []string{
				"Review and sign the proposal",
				"Schedule our kickoff call",
			},
			Closing: "Looking forward to working with you!",
		}
	},
	TypeInvoice: func(p Profile) State {
		return Invoice{
			Subject: fmt.Sprintf("Invoice from %s", businessName(p)),
			Header:  Header{Title: "INVOICE", Subtitle: "Thank you for your business"},
			Items: []LineItem{
				LineItem{Description: "Professional services", Quantity: 1, UnitPrice: 100}.WithAmount(),
			},
			PaymentMethods: []string{"Bank transfer", "Credit card"},
			Footer: Footer{
				ThankYou: "Thank you for your business!",
				Terms:    "Payment is due within 14 days.",
				Contact:  "Questions about this invoice? Just reply to this email.",
			},
		}
	},
	TypeFollowUp: func(p Profile) State {
		return FollowUp{
			Subject:      "Following up on our project",
			Greeting:     "Hi there,",
			Message:      "I wanted to check in on a few items that still need your attention.",
			Tasks:        []string{"Review the latest draft"},
			CallToAction: "Reply to this email when you have a moment.",
			Closing:      "Thanks,",
		}
	},
	TypePaymentConfirmation: func(p Profile) State {
		return PaymentConfirmation{
			Subject:        "Payment received - thank you!",
			Header:         Header{Title: "Payment Received", Subtitle: "Your payment has been processed"},
			Message:        "This email confirms that we have received your payment.",
			PaymentMethods: []string{"Bank transfer"},
			NextSteps:      []string{"Keep this receipt for your records"},
			Footer: Footer{
				ThankYou: "Thank you for your prompt payment!",
				Contact:  "If you have any questions, reply to this email.",
			},
		}
	},
}

// Defaults returns the starting state of a template type for the given profile.
func Defaults(t TemplateType, p Profile) (State, error) {
	fn, ok := defaultStates[t]
	if !ok {
		return nil, fmt.Errorf("unknown template type %q", t)
	}
	return fn(p), nil
}

func businessName(p Profile) string {
	if p.BusinessName == "" {
		return MockProfile().BusinessName
	}
	return p.BusinessName
}
