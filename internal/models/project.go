package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ProjectStatus string

const (
	ProjectStatusPlanning   ProjectStatus = "planning"
	ProjectStatusInProgress ProjectStatus = "in_progress"
	ProjectStatusOnHold     ProjectStatus = "on_hold"
	ProjectStatusCompleted  ProjectStatus = "completed"
	ProjectStatusCancelled  ProjectStatus = "cancelled"
)

// Task is a to-do item of a project.
type Task struct {
	ID        primitive.ObjectID `bson:"_id" json:"id"`
	Name      string             `bson:"name" json:"name"`
	DueDate   *time.Time         `bson:"due_date,omitempty" json:"dueDate,omitempty"`
	Completed bool               `bson:"completed" json:"completed"`
	CreatedAt time.Time          `bson:"created_at" json:"createdAt"`
}

type Project struct {
	Base        `bson:",inline"`
	UserID      primitive.ObjectID `bson:"user_id" json:"userId"`
	ClientID    primitive.ObjectID `bson:"client_id" json:"clientId"`
	Name        string             `bson:"name" json:"name"`
	Description string             `bson:"description,omitempty" json:"description,omitempty"`
	StartDate   time.Time          `bson:"start_date" json:"startDate"`
	EndDate     *time.Time         `bson:"end_date,omitempty" json:"endDate,omitempty"`
	DueDate     *time.Time         `bson:"due_date,omitempty" json:"dueDate,omitempty"`
	Status      ProjectStatus      `bson:"status" json:"status"`
	Budget      float64            `bson:"budget" json:"budget"`
	Tasks       []Task             `bson:"tasks" json:"tasks"`
	Attachments []Attachment       `bson:"attachments" json:"attachments"`
	Links       []Link             `bson:"links" json:"links"`
	CreatedAt   time.Time          `bson:"created_at" json:"createdAt"`
	UpdatedAt   time.Time          `bson:"updated_at" json:"updatedAt"`
	Deleted     bool               `bson:"deleted" json:"-"`
}
