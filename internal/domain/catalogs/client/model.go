// Package client provides the Client catalog.
// Clients represent business partners: customers, suppliers, or both.
package client

import (
	"context"
	"regexp"

	"tally/internal/core/apperror"
	"tally/internal/core/entity"
)

var (
	whitespaceRE = regexp.MustCompile(`\s`)
	taxNumberRE  = regexp.MustCompile(`^[A-Za-z0-9-]{4,20}$`)
	emailRE      = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
)

// ClientType defines the commercial relationship with a client.
type ClientType string

const (
	TypeCustomer ClientType = "customer"
	TypeSupplier ClientType = "supplier"
	TypeBoth     ClientType = "both"
)

// Client represents a business partner.
type Client struct {
	entity.Catalog

	// Type defines whether this is a customer, supplier, or both
	Type ClientType `db:"type" json:"type"`

	// CompanyName is the official registered name (for companies)
	CompanyName *string `db:"company_name" json:"companyName,omitempty"`

	// TaxNumber is the client's tax identification number (unique when set)
	TaxNumber *string `db:"tax_number" json:"taxNumber,omitempty"`

	// Address is the billing address
	Address *string `db:"address" json:"address,omitempty"`

	// City and Country for reporting
	City    *string `db:"city" json:"city,omitempty"`
	Country *string `db:"country" json:"country,omitempty"`

	// Phone is the primary contact phone
	Phone *string `db:"phone" json:"phone,omitempty"`

	// Email is the primary contact email
	Email *string `db:"email" json:"email,omitempty"`

	// ContactPerson is the primary contact name
	ContactPerson *string `db:"contact_person" json:"contactPerson,omitempty"`

	// Comment is a free-form note
	Comment *string `db:"comment" json:"comment,omitempty"`
}

// NewClient creates a new Client with required fields.
func NewClient(code, name string, clientType ClientType) *Client {
	return &Client{
		Catalog: entity.NewCatalog(code, name),
		Type:    clientType,
	}
}

// Validate implements entity.Validatable.
func (c *Client) Validate(ctx context.Context) error {
	if err := c.Catalog.Validate(ctx); err != nil {
		return err
	}

	if !isValidClientType(c.Type) {
		return apperror.NewValidation("invalid client type").
			WithDetail("field", "type").
			WithDetail("value", string(c.Type))
	}

	if c.TaxNumber != nil && *c.TaxNumber != "" {
		cleaned := whitespaceRE.ReplaceAllString(*c.TaxNumber, "")
		if !taxNumberRE.MatchString(cleaned) {
			return apperror.NewValidation("invalid tax number format").
				WithDetail("field", "taxNumber")
		}
	}

	if c.Email != nil && *c.Email != "" && !emailRE.MatchString(*c.Email) {
		return apperror.NewValidation("invalid email format").
			WithDetail("field", "email")
	}

	return nil
}

// IsCustomer returns true if the client buys from us.
func (c *Client) IsCustomer() bool {
	return c.Type == TypeCustomer || c.Type == TypeBoth
}

// IsSupplier returns true if the client supplies us.
func (c *Client) IsSupplier() bool {
	return c.Type == TypeSupplier || c.Type == TypeBoth
}

func isValidClientType(t ClientType) bool {
	switch t {
	case TypeCustomer, TypeSupplier, TypeBoth:
		return true
	}
	return false
}
