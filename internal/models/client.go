package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ClientStatus string

const (
	ClientStatusLead     ClientStatus = "lead"
	ClientStatusActive   ClientStatus = "active"
	ClientStatusInactive ClientStatus = "inactive"
)

// Client is a customer of the freelancer.
type Client struct {
	Base        `bson:",inline"`
	UserID      primitive.ObjectID `bson:"user_id" json:"userId"`
	Name        string             `bson:"name" json:"name"`
	Email       string             `bson:"email" json:"email"`
	Phone       string             `bson:"phone,omitempty" json:"phone,omitempty"`
	IsCompany   bool               `bson:"is_company" json:"isCompany"`
	CompanyName string             `bson:"company_name,omitempty" json:"companyName,omitempty"`
	Notes       string             `bson:"notes,omitempty" json:"notes,omitempty"`
	Status      ClientStatus       `bson:"status" json:"status"`
	Attachments []Attachment       `bson:"attachments" json:"attachments"` // Snapshot taken when attached
	Links       []Link             `bson:"links" json:"links"`
	CreatedAt   time.Time          `bson:"created_at" json:"createdAt"`
	UpdatedAt   time.Time          `bson:"updated_at" json:"updatedAt"`
	Deleted     bool               `bson:"deleted" json:"-"`
}

// DisplayName is the company name for companies and the contact name otherwise.
func (c *Client) DisplayName() string {
	if c.IsCompany && c.CompanyName != "" {
		return c.CompanyName
	}
	return c.Name
}
