// Package intake implements the client and project intake forms: field
// validation, the open/submitting/closed form lifecycle, staged attachments
// and their uploads.
package intake

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

var (
	ErrValidation       = errors.New("validation failed")
	ErrInvalidDateOrder = errors.New("invalid date order")
)

// emailPattern is the same expression the REST backend applies to client
// emails.
var emailPattern = regexp.MustCompile(`^\w+([.-]?\w+)*@\w+([.-]?\w+)*(\.\w{2,3})+$`)

// ValidEmail reports whether s is an acceptable client email address.
func ValidEmail(s string) bool {
	return emailPattern.MatchString(s)
}

var validate *validator.Validate

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())
	if err := RegisterRules(validate); err != nil {
		panic(err)
	}
}

// RegisterRules teaches v the intake rules: fields are reported by their JSON
// names and the client_email tag applies the client email pattern. The HTTP
// layer registers them on gin's binding engine.
func RegisterRules(v *validator.Validate) error {
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v.RegisterValidation("client_email", func(fl validator.FieldLevel) bool {
		return ValidEmail(fl.Field().String())
	})
}

// ValidationError maps form fields to user-facing messages.
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
		parts = append(parts, e.Fields[k])
	}
	return strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// Is matches ErrInvalidDateOrder when an end or due date precedes the start.
func (e *ValidationError) Is(target error) bool {
	if target != ErrInvalidDateOrder {
		return false
	}
	_, end := e.Fields["endDate"]
	_, due := e.Fields["dueDate"]
	return end || due
}

var labels = map[string]string{
	"name":        "Name",
	"email":       "Email",
	"companyName": "Company name",
	"clientId":    "Client",
	"startDate":   "Start date",
	"budget":      "Budget",
	"taxRate":     "Tax rate",
	"title":       "Title",
	"url":         "URL",
	"notes":       "Notes",
	"description": "Description",
	"status":      "Status",
}

func label(field string) string {
	if l, ok := labels[field]; ok {
		return l
	}
	return field
}

// check runs struct validation and converts the result into field messages.
func check(v any) map[string]string {
	err := validate.Struct(v)
	if err == nil {
		return map[string]string{}
	}
	if problems := FieldErrors(err); problems != nil {
		return problems
	}
	return map[string]string{"_": err.Error()}
}

// FieldErrors converts validator errors into field messages keyed by the
// field's path below the validated struct. It returns nil for any other error.
func FieldErrors(err error) map[string]string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	problems := map[string]string{}
	for _, fe := range verrs {
		key := fe.Namespace()
		if i := strings.IndexByte(key, '.'); i >= 0 {
			key = key[i+1:]
		}
		problems[key] = message(fe)
	}
	return problems
}

func message(fe validator.FieldError) string {
	l := label(fe.Field())
	switch fe.Tag() {
	case "required", "required_if":
		return fmt.Sprintf("%s is required", l)
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", l, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", l, fe.Param())
	case "client_email", "email":
		return "Please enter a valid email address"
	case "url", "http_url":
		return "Please enter a valid URL"
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", l, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be %s or greater", l, fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be %s or less", l, fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", l, fe.Param())
	}
	return fmt.Sprintf("%s is invalid", l)
}

func result(problems map[string]string) error {
	if len(problems) == 0 {
		return nil
	}
	return &ValidationError{Fields: problems}
}

// calendarDay drops the time of day so dates entered on the same day compare
// equal.
func calendarDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// notBefore reports whether day(t) >= day(ref).
func notBefore(t, ref time.Time) bool {
	return !calendarDay(t).Before(calendarDay(ref))
}
