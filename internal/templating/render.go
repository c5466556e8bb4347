package templating

import (
	"bytes"
	"errors"
	"fmt"
	htmltemplate "html/template"
	"math"
	"strconv"
	"strings"
	texttemplate "text/template"
)

// Rendered is a complete email generated from a template state.
type Rendered struct {
	Subject string `json:"subject"`
	HTML    string `json:"html"`
	Text    string `json:"text"`
}

// view is the data every layout is executed with.
type view struct {
	Subject  string
	Profile  Profile
	LogoURL  htmltemplate.URL
	Address  string
	Currency string
	State    State
}

var currencySymbols = map[string]string{
	"USD": "$",
	"EUR": "€",
	"GBP": "£",
	"INR": "₹",
	"JPY": "¥",
	"AUD": "A$",
	"CAD": "C$",
}

var funcs = map[string]any{
	"money": FormatMoney,
	"qty": func(q float64) string {
		return strconv.FormatFloat(q, 'f', -1, 64)
	},
	"inc": func(i int) int { return i + 1 },
}

const htmlLayout = `{{define "layout"}}<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>{{.Subject}}</title>
<style>
body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; line-height: 1.6; color: #1f2937; background: #f3f4f6; margin: 0; padding: 0; }
.container { max-width: 600px; margin: 0 auto; background: #ffffff; }
.header { background: #1e3a8a; color: #ffffff; padding: 32px 24px; text-align: center; }
.header h1 { margin: 0; font-size: 24px; }
.logo { max-height: 60px; margin-bottom: 12px; }
.content { padding: 32px 24px; }
.highlight { background: #eff6ff; border-left: 4px solid #3b82f6; padding: 16px; margin: 24px 0; }
.items { width: 100%; border-collapse: collapse; margin: 24px 0; }
.items th, .items td { padding: 8px; border-bottom: 1px solid #e5e7eb; text-align: left; }
.items tfoot td { font-weight: bold; }
.cta { display: inline-block; background: #3b82f6; color: #ffffff; padding: 12px 24px; border-radius: 6px; text-decoration: none; }
.footer { background: #f9fafb; color: #6b7280; padding: 24px; text-align: center; font-size: 14px; }
.footer a { color: #3b82f6; }
</style>
</head>
<body>
<div class="container">
<div class="header">
{{with .LogoURL}}<img class="logo" src="{{.}}" alt="{{$.Profile.BusinessName}}">
{{end}}<h1>{{.Profile.BusinessName}}</h1>
</div>
<div class="content">
{{template "content" .}}
</div>
<div class="footer">
<p><strong>{{.Profile.BusinessName}}</strong></p>
{{with .Profile.Email}}<p>Email: <a href="mailto:{{.}}">{{.}}</a></p>
{{end}}{{with .Profile.Phone}}<p class="phone">Phone: {{.}}</p>
{{end}}{{with .Profile.Website}}<p><a href="{{.}}" class="website-link">Visit Website</a></p>
{{end}}{{with .Address}}<p class="address">{{.}}</p>
{{end}}</div>
</div>
</body>
</html>
{{end}}`

var htmlContent = map[TemplateType]string{
	TypeWelcome: `{{define "content"}}{{with .State}}{{with .Tagline}}<p class="tagline"><em>{{.}}</em></p>
{{end}}{{with .Greeting}}<p>{{.}}</p>
{{end}}{{with .Intro}}<p>{{.}}</p>
{{end}}<h2>Services</h2>
<ul class="services">
{{range .Services}}<li><strong>{{.Name}}</strong>{{with .Description}} - {{.}}{{end}}</li>
{{end}}</ul>
{{if or .HighlightTitle .HighlightText}}<div class="highlight">
{{with .HighlightTitle}}<h3>{{.}}</h3>
{{end}}{{with .HighlightText}}<p>{{.}}</p>
{{end}}</div>
{{end}}<h2>Next Steps</h2>
<ol class="next-steps">
{{range .NextSteps}}<li>{{.}}</li>
{{end}}</ol>
{{with .Closing}}<p>{{.}}</p>
{{end}}{{end}}{{end}}`,

	TypeInvoice: `{{define "content"}}{{$cur := .Currency}}{{with .State}}<h2>{{.Header.Title}}</h2>
{{with .Header.Subtitle}}<p class="subtitle">{{.}}</p>
{{end}}<table class="items">
<thead><tr><th>Description</th><th>Qty</th><th>Unit Price</th><th>Amount</th></tr></thead>
<tbody>
{{range .Items}}<tr><td>{{.Description}}</td><td>{{qty .Quantity}}</td><td>{{money .UnitPrice $cur}}</td><td>{{money .Amount $cur}}</td></tr>
{{end}}</tbody>
<tfoot><tr><td colspan="3">Total</td><td>{{money .Subtotal $cur}}</td></tr></tfoot>
</table>
<h3>Payment Methods</h3>
<ul class="payment-methods">
{{range .PaymentMethods}}<li>{{.}}</li>
{{end}}</ul>
{{with .Notes}}<p class="notes">{{.}}</p>
{{end}}{{with .Footer.ThankYou}}<p><strong>{{.}}</strong></p>
{{end}}{{with .Footer.Terms}}<p class="terms">{{.}}</p>
{{end}}{{with .Footer.Contact}}<p>{{.}}</p>
{{end}}{{end}}{{end}}`,

	TypeFollowUp: `{{define "content"}}{{with .State}}{{with .Greeting}}<p>{{.}}</p>
{{end}}<p>{{.Message}}</p>
<ul class="tasks">
{{range .Tasks}}<li>{{.}}</li>
{{end}}</ul>
{{with .CallToAction}}<p class="cta-text">{{.}}</p>
{{end}}{{with .Closing}}<p>{{.}}</p>
{{end}}{{end}}{{end}}`,

	TypePaymentConfirmation: `{{define "content"}}{{with .State}}<h2>{{.Header.Title}}</h2>
{{with .Header.Subtitle}}<p class="subtitle">{{.}}</p>
{{end}}{{with .Message}}<p>{{.}}</p>
{{end}}<h3>Accepted Payment Methods</h3>
<ul class="payment-methods">
{{range .PaymentMethods}}<li>{{.}}</li>
{{end}}</ul>
<h3>Next Steps</h3>
<ol class="next-steps">
{{range .NextSteps}}<li>{{.}}</li>
{{end}}</ol>
{{with .Footer.ThankYou}}<p><strong>{{.}}</strong></p>
{{end}}{{with .Footer.Terms}}<p class="terms">{{.}}</p>
{{end}}{{with .Footer.Contact}}<p>{{.}}</p>
{{end}}{{end}}{{end}}`,
}

const textLayout = `{{define "layout"}}{{.Profile.BusinessName}}
{{template "content" .}}
--
{{.Profile.BusinessName}}
{{with .Profile.Email}}Email: {{.}}
{{end}}{{with .Profile.Phone}}Phone: {{.}}
{{end}}{{with .Profile.Website}}Website: {{.}}
{{end}}{{with .Address}}{{.}}
{{end}}{{end}}`

var textContent = map[TemplateType]string{
	TypeWelcome: `{{define "content"}}{{with .State}}{{with .Tagline}}{{.}}
{{end}}
{{with .Greeting}}{{.}}

{{end}}{{with .Intro}}{{.}}

{{end}}Services:
{{range .Services}}- {{.Name}}{{with .Description}}: {{.}}{{end}}
{{end}}
{{with .HighlightTitle}}{{.}}
{{end}}{{with .HighlightText}}{{.}}
{{end}}
Next Steps:
{{range $i, $s := .NextSteps}}{{inc $i}}. {{$s}}
{{end}}
{{with .Closing}}{{.}}
{{end}}{{end}}{{end}}`,

	TypeInvoice: `{{define "content"}}{{$cur := .Currency}}{{with .State}}
{{.Header.Title}}
{{with .Header.Subtitle}}{{.}}
{{end}}
{{range .Items}}- {{.Description}} ({{qty .Quantity}} x {{money .UnitPrice $cur}}): {{money .Amount $cur}}
{{end}}
Total: {{money .Subtotal $cur}}

Payment Methods:
{{range .PaymentMethods}}- {{.}}
{{end}}
{{with .Notes}}{{.}}
{{end}}{{with .Footer.ThankYou}}{{.}}
{{end}}{{with .Footer.Terms}}{{.}}
{{end}}{{with .Footer.Contact}}{{.}}
{{end}}{{end}}{{end}}`,

	TypeFollowUp: `{{define "content"}}{{with .State}}
{{with .Greeting}}{{.}}

{{end}}{{.Message}}

{{range .Tasks}}- {{.}}
{{end}}
{{with .CallToAction}}{{.}}
{{end}}{{with .Closing}}{{.}}
{{end}}{{end}}{{end}}`,

	TypePaymentConfirmation: `{{define "content"}}{{with .State}}
{{.Header.Title}}
{{with .Header.Subtitle}}{{.}}
{{end}}
{{with .Message}}{{.}}

{{end}}Accepted Payment Methods:
{{range .PaymentMethods}}- {{.}}
{{end}}
Next Steps:
{{range $i, $s := .NextSteps}}{{inc $i}}. {{$s}}
{{end}}
{{with .Footer.ThankYou}}{{.}}
{{end}}{{with .Footer.Terms}}{{.}}
{{end}}{{with .Footer.Contact}}{{.}}
{{end}}{{end}}{{end}}`,
}

var (
	htmlTemplates = map[TemplateType]*htmltemplate.Template{}
	textTemplates = map[TemplateType]*texttemplate.Template{}
)

func init() {
	htmlBase := htmltemplate.Must(htmltemplate.New("email").Funcs(funcs).Parse(htmlLayout))
	textBase := texttemplate.Must(texttemplate.New("email").Funcs(funcs).Parse(textLayout))
	for _, t := range AllTypes {
		htmlTemplates[t] = htmltemplate.Must(htmltemplate.Must(htmlBase.Clone()).Parse(htmlContent[t]))
		textTemplates[t] = texttemplate.Must(texttemplate.Must(textBase.Clone()).Parse(textContent[t]))
	}
}

// Render generates the subject, HTML document and plain-text fallback for s.
// Every interpolated value is escaped for its HTML context. Profile sections
// such as the phone line, website link and logo are only emitted when the
// corresponding profile field is set.
func Render(s State, p Profile) (Rendered, error) {
	if s == nil {
		return Rendered{}, errors.New("nil template state")
	}
	ht, ok := htmlTemplates[s.Kind()]
	if !ok {
		return Rendered{}, fmt.Errorf("unknown template type %q", s.Kind())
	}
	tt := textTemplates[s.Kind()]

	v := newView(s, p)

	var html, text bytes.Buffer
	if err := ht.ExecuteTemplate(&html, "layout", v); err != nil {
		return Rendered{}, fmt.Errorf("render %s html: %w", s.Kind(), err)
	}
	if err := tt.ExecuteTemplate(&text, "layout", v); err != nil {
		return Rendered{}, fmt.Errorf("render %s text: %w", s.Kind(), err)
	}

	return Rendered{
		Subject: s.SubjectLine(),
		HTML:    html.String(),
		Text:    tidyText(text.String()),
	}, nil
}

func newView(s State, p Profile) view {
	p.BusinessName = businessName(p)
	currency := p.PreferredCurrency
	if currency == "" {
		currency = "USD"
	}
	return view{
		Subject:  s.SubjectLine(),
		Profile:  p,
		LogoURL:  LogoURL(p.Logo),
		Address:  FormatAddress(p.Address),
		Currency: currency,
		State:    s,
	}
}

// LogoURL returns the logo reference as a trusted image URL. Only http(s)
// URLs and inline data:image payloads are accepted; anything else yields "".
func LogoURL(raw string) htmltemplate.URL {
	raw = strings.TrimSpace(raw)
	lower := strings.ToLower(raw)
	switch {
	case strings.HasPrefix(lower, "https://"), strings.HasPrefix(lower, "http://"):
		return htmltemplate.URL(raw)
	case strings.HasPrefix(lower, "data:image/") && !strings.HasPrefix(lower, "data:image/svg"):
		return htmltemplate.URL(raw)
	}
	return ""
}

// FormatAddress joins the non-empty address lines into one line.
func FormatAddress(a Address) string {
	if a.IsEmpty() {
		return ""
	}
	region := strings.TrimSpace(strings.Join(nonEmpty(a.State, a.ZipCode), " "))
	return strings.Join(nonEmpty(a.Street, a.City, region, a.Country), ", ")
}

// FormatMoney formats amount with the symbol of currency, falling back to
// the ISO code for currencies without a known symbol.
func FormatMoney(amount float64, currency string) string {
	currency = strings.ToUpper(currency)
	neg := amount < 0
	cents := int64(math.Round(math.Abs(amount) * 100))
	whole := strconv.FormatInt(cents/100, 10)
	for i := len(whole) - 3; i > 0; i -= 3 {
		whole = whole[:i] + "," + whole[i:]
	}
	s := fmt.Sprintf("%s.%02d", whole, cents%100)
	if sym, ok := currencySymbols[currency]; ok {
		s = sym + s
	} else if currency != "" {
		s = currency + " " + s
	}
	if neg {
		s = "-" + s
	}
	return s
}

func nonEmpty(parts ...string) []string {
	out := parts[:0:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func tidyText(s string) string {
	s = strings.TrimSpace(s)
	for strings.Contains(s, "\n\n\n") {
		s = strings.ReplaceAll(s, "\n\n\n", "\n\n")
	}
	return s + "\n"
}
