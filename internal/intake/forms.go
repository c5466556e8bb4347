package intake

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Link is a titled URL attached to a client or project.
type Link struct {
	Title string `json:"title" validate:"required,max=200"`
	URL   string `json:"url" validate:"required,http_url"`
}

// ClientForm is the payload of the "add client" form.
type ClientForm struct {
	Name        string       `json:"name" validate:"required,min=2,max=100"`
	Email       string       `json:"email" validate:"required,client_email"`
	Phone       string       `json:"phone,omitempty" validate:"max=30"`
	IsCompany   bool         `json:"isCompany"`
	CompanyName string       `json:"companyName,omitempty" validate:"required_if=IsCompany true,max=100"`
	Notes       string       `json:"notes,omitempty" validate:"max=2000"`
	Status      string       `json:"status,omitempty" validate:"omitempty,oneof=lead active inactive"`
	SendWelcome bool         `json:"sendWelcome"`
	Attachments []Attachment `json:"attachments,omitempty"`
	Links       []Link       `json:"links,omitempty" validate:"dive"`
}

// Normalize trims the free-text fields.
func (f ClientForm) Normalize() ClientForm {
	f.Name = strings.TrimSpace(f.Name)
	f.Email = strings.TrimSpace(f.Email)
	f.Phone = strings.TrimSpace(f.Phone)
	f.CompanyName = strings.TrimSpace(f.CompanyName)
	f.Notes = strings.TrimSpace(f.Notes)
	if f.Status == "" {
		f.Status = "active"
	}
	return f
}

// Validate checks the normalized form and returns a *ValidationError listing
// every problem.
func (f ClientForm) Validate() error {
	return result(check(f.Normalize()))
}

// Task is a quick task added while creating a project. TempID identifies it
// until the server assigns a real id.
type Task struct {
	TempID    string     `json:"_tempId"`
	Name      string     `json:"name" validate:"required,max=200"`
	DueDate   *time.Time `json:"dueDate,omitempty"`
	Completed bool       `json:"completed"`
	CreatedAt time.Time  `json:"createdAt"`
}

// ProjectForm is the payload of the "add project" form.
type ProjectForm struct {
	ClientID    string       `json:"clientId" validate:"required"`
	Name        string       `json:"name" validate:"required,min=2,max=100"`
	Description string       `json:"description,omitempty" validate:"max=2000"`
	StartDate   time.Time    `json:"startDate" validate:"required"`
	EndDate     *time.Time   `json:"endDate,omitempty"`
	DueDate     *time.Time   `json:"dueDate,omitempty"`
	Status      string       `json:"status,omitempty" validate:"omitempty,oneof=planning in_progress on_hold completed cancelled"`
	Budget      float64      `json:"budget,omitempty" validate:"gte=0"`
	Tasks       []Task       `json:"tasks,omitempty" validate:"dive"`
	Attachments []Attachment `json:"attachments,omitempty"`
	Links       []Link       `json:"links,omitempty" validate:"dive"`
}

// dateLayout is what an HTML date input submits.
const dateLayout = "2006-01-02"

// jsonDate decodes either an RFC 3339 timestamp or a bare YYYY-MM-DD day
// (taken as midnight UTC).
type jsonDate time.Time

func (d *jsonDate) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	if raw == "" {
		return nil
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		if t, err = time.Parse(time.RFC3339, raw); err != nil {
			return fmt.Errorf("invalid date %q: expected YYYY-MM-DD or RFC 3339", raw)
		}
	}
	*d = jsonDate(t)
	return nil
}

func (d *jsonDate) ptr() *time.Time {
	if d == nil || time.Time(*d).IsZero() {
		return nil
	}
	t := time.Time(*d)
	return &t
}

func (t *Task) UnmarshalJSON(b []byte) error {
	type alias Task
	aux := struct {
		*alias
		DueDate *jsonDate `json:"dueDate,omitempty"`
	}{alias: (*alias)(t)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	t.DueDate = aux.DueDate.ptr()
	return nil
}

// UnmarshalJSON accepts the project dates as days or as timestamps.
func (f *ProjectForm) UnmarshalJSON(b []byte) error {
	type alias ProjectForm
	aux := struct {
		*alias
		StartDate jsonDate  `json:"startDate"`
		EndDate   *jsonDate `json:"endDate,omitempty"`
		DueDate   *jsonDate `json:"dueDate,omitempty"`
	}{alias: (*alias)(f)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	f.StartDate = time.Time(aux.StartDate)
	f.EndDate = aux.EndDate.ptr()
	f.DueDate = aux.DueDate.ptr()
	return nil
}

func (f ProjectForm) Normalize() ProjectForm {
	f.Name = strings.TrimSpace(f.Name)
	f.Description = strings.TrimSpace(f.Description)
	if f.Status == "" {
		f.Status = "planning"
	}
	return f
}

// Validate checks the normalized form. End and due dates may fall on the
// start date but never before it.
func (f ProjectForm) Validate() error {
	n := f.Normalize()
	problems := check(n)
	if !n.StartDate.IsZero() {
		if n.EndDate != nil && !notBefore(*n.EndDate, n.StartDate) {
			problems["endDate"] = "End date cannot be before start date"
		}
		if n.DueDate != nil && !notBefore(*n.DueDate, n.StartDate) {
			problems["dueDate"] = "Due date cannot be before start date"
		}
	}
	return result(problems)
}

// DateOrderError reports whether err contains a date ordering problem.
func DateOrderError(err error) bool {
	return errors.Is(err, ErrInvalidDateOrder)
}

// AddTask appends a quick task with a fresh temporary id.
func (f *ProjectForm) AddTask(name string, due *time.Time) (Task, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Task{}, &ValidationError{Fields: map[string]string{"taskName": "Task name is required"}}
	}
	t := Task{
		TempID:    uuid.NewString(),
		Name:      name,
		DueDate:   due,
		CreatedAt: time.Now().UTC(),
	}
	f.Tasks = append(f.Tasks, t)
	return t, nil
}

// RemoveTask drops the quick task with the given temporary id.
func (f *ProjectForm) RemoveTask(tempID string) error {
	for i, t := range f.Tasks {
		if t.TempID == tempID {
			f.Tasks = append(f.Tasks[:i:i], f.Tasks[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("task %s not found", tempID)
}

// ToggleTask flips the completed flag of a quick task.
func (f *ProjectForm) ToggleTask(tempID string) error {
	for i := range f.Tasks {
		if f.Tasks[i].TempID == tempID {
			f.Tasks[i].Completed = !f.Tasks[i].Completed
			return nil
		}
	}
	return fmt.Errorf("task %s not found", tempID)
}
