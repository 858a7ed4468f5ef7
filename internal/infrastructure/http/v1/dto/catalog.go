package dto

import (
	"github.com/shopspring/decimal"

	"tally/internal/core/entity"
	"tally/internal/core/types"
	"tally/internal/domain/catalogs/category"
	"tally/internal/domain/catalogs/client"
	"tally/internal/domain/catalogs/currency"
	"tally/internal/domain/catalogs/product"
	"tally/internal/domain/catalogs/taxrate"
)

// --- Clients ---

// CreateClientRequest for creating clients.
type CreateClientRequest struct {
	Code          string            `json:"code"`
	Name          string            `json:"name" binding:"required"`
	Type          string            `json:"type" binding:"required"`
	CompanyName   *string           `json:"companyName"`
	TaxNumber     *string           `json:"taxNumber"`
	Address       *string           `json:"address"`
	City          *string           `json:"city"`
	Country       *string           `json:"country"`
	Phone         *string           `json:"phone"`
	Email         *string           `json:"email"`
	ContactPerson *string           `json:"contactPerson"`
	Comment       *string           `json:"comment"`
	Attributes    entity.Attributes `json:"attributes"`
}

// ToEntity converts the request into a new Client.
func (r CreateClientRequest) ToEntity() *client.Client {
	c := client.NewClient(r.Code, r.Name, client.ClientType(r.Type))
	c.CompanyName = r.CompanyName
	c.TaxNumber = r.TaxNumber
	c.Address = r.Address
	c.City = r.City
	c.Country = r.Country
	c.Phone = r.Phone
	c.Email = r.Email
	c.ContactPerson = r.ContactPerson
	c.Comment = r.Comment
	c.Attributes = r.Attributes
	return c
}

// UpdateClientRequest for updating clients.
type UpdateClientRequest struct {
	Code          *string           `json:"code"`
	Name          *string           `json:"name"`
	Type          *string           `json:"type"`
	CompanyName   *string           `json:"companyName"`
	TaxNumber     *string           `json:"taxNumber"`
	Address       *string           `json:"address"`
	City          *string           `json:"city"`
	Country       *string           `json:"country"`
	Phone         *string           `json:"phone"`
	Email         *string           `json:"email"`
	ContactPerson *string           `json:"contactPerson"`
	Comment       *string           `json:"comment"`
	Attributes    entity.Attributes `json:"attributes"`
	Version       int               `json:"version" binding:"required,min=1"`
}

// ApplyTo applies non-nil fields onto an existing Client.
func (r UpdateClientRequest) ApplyTo(c *client.Client) {
	if r.Code != nil {
		c.Code = *r.Code
	}
	if r.Name != nil {
		c.Name = *r.Name
	}
	if r.Type != nil {
		c.Type = client.ClientType(*r.Type)
	}
	if r.CompanyName != nil {
		c.CompanyName = r.CompanyName
	}
	if r.TaxNumber != nil {
		c.TaxNumber = r.TaxNumber
	}
	if r.Address != nil {
		c.Address = r.Address
	}
	if r.City != nil {
		c.City = r.City
	}
	if r.Country != nil {
		c.Country = r.Country
	}
	if r.Phone != nil {
		c.Phone = r.Phone
	}
	if r.Email != nil {
		c.Email = r.Email
	}
	if r.ContactPerson != nil {
		c.ContactPerson = r.ContactPerson
	}
	if r.Comment != nil {
		c.Comment = r.Comment
	}
	if r.Attributes != nil {
		c.Attributes = r.Attributes
	}
	c.Version = r.Version
}

// --- Products ---

// CreateProductRequest for creating products.
type CreateProductRequest struct {
	Code        string            `json:"code"`
	Name        string            `json:"name" binding:"required"`
	SKU         *string           `json:"sku"`
	CategoryID  *string           `json:"categoryId"`
	UnitPrice   types.Money       `json:"unitPrice"`
	TaxRateID   *string           `json:"taxRateId"`
	CurrencyID  *string           `json:"currencyId"`
	TrackStock  *bool             `json:"trackStock"`
	Description *string           `json:"description"`
	Barcode     *string           `json:"barcode"`
	Attributes  entity.Attributes `json:"attributes"`
}

// ToEntity converts the request into a new Product.
func (r CreateProductRequest) ToEntity() *product.Product {
	p := product.NewProduct(r.Code, r.Name, r.UnitPrice)
	p.SKU = r.SKU
	p.CategoryID = r.CategoryID
	p.TaxRateID = r.TaxRateID
	p.CurrencyID = r.CurrencyID
	if r.TrackStock != nil {
		p.TrackStock = *r.TrackStock
	}
	p.Description = r.Description
	p.Barcode = r.Barcode
	p.Attributes = r.Attributes
	return p
}

// UpdateProductRequest for updating products.
// Stock quantity is deliberately absent: it changes only through
// stock movements.
type UpdateProductRequest struct {
	Code        *string           `json:"code"`
	Name        *string           `json:"name"`
	SKU         *string           `json:"sku"`
	CategoryID  *string           `json:"categoryId"`
	UnitPrice   *types.Money      `json:"unitPrice"`
	TaxRateID   *string           `json:"taxRateId"`
	CurrencyID  *string           `json:"currencyId"`
	TrackStock  *bool             `json:"trackStock"`
	Description *string           `json:"description"`
	Barcode     *string           `json:"barcode"`
	Attributes  entity.Attributes `json:"attributes"`
	Version     int               `json:"version" binding:"required,min=1"`
}

// ApplyTo applies non-nil fields onto an existing Product.
func (r UpdateProductRequest) ApplyTo(p *product.Product) {
	if r.Code != nil {
		p.Code = *r.Code
	}
	if r.Name != nil {
		p.Name = *r.Name
	}
	if r.SKU != nil {
		p.SKU = r.SKU
	}
	if r.CategoryID != nil {
		p.CategoryID = r.CategoryID
	}
	if r.UnitPrice != nil {
		p.UnitPrice = *r.UnitPrice
	}
	if r.TaxRateID != nil {
		p.TaxRateID = r.TaxRateID
	}
	if r.CurrencyID != nil {
		p.CurrencyID = r.CurrencyID
	}
	if r.TrackStock != nil {
		p.TrackStock = *r.TrackStock
	}
	if r.Description != nil {
		p.Description = r.Description
	}
	if r.Barcode != nil {
		p.Barcode = r.Barcode
	}
	if r.Attributes != nil {
		p.Attributes = r.Attributes
	}
	p.Version = r.Version
}

// --- Categories ---

// CreateCategoryRequest for creating categories.
type CreateCategoryRequest struct {
	Code        string            `json:"code"`
	Name        string            `json:"name" binding:"required"`
	ParentID    *string           `json:"parentId"`
	IsFolder    bool              `json:"isFolder"`
	Description *string           `json:"description"`
	SortOrder   int               `json:"sortOrder"`
	Attributes  entity.Attributes `json:"attributes"`
}

// ToEntity converts the request into a new Category.
func (r CreateCategoryRequest) ToEntity() *category.Category {
	c := category.NewCategory(r.Code, r.Name)
	c.ParentID = r.ParentID
	c.IsFolder = r.IsFolder
	c.Description = r.Description
	c.SortOrder = r.SortOrder
	c.Attributes = r.Attributes
	return c
}

// UpdateCategoryRequest for updating categories.
type UpdateCategoryRequest struct {
	Code        *string           `json:"code"`
	Name        *string           `json:"name"`
	ParentID    *string           `json:"parentId"`
	IsFolder    *bool             `json:"isFolder"`
	Description *string           `json:"description"`
	SortOrder   *int              `json:"sortOrder"`
	Attributes  entity.Attributes `json:"attributes"`
	Version     int               `json:"version" binding:"required,min=1"`
}

// ApplyTo applies non-nil fields onto an existing Category.
// An empty parentId string moves the node to the root.
func (r UpdateCategoryRequest) ApplyTo(c *category.Category) {
	if r.Code != nil {
		c.Code = *r.Code
	}
	if r.Name != nil {
		c.Name = *r.Name
	}
	if r.ParentID != nil {
		c.SetParent(*r.ParentID)
	}
	if r.IsFolder != nil {
		c.IsFolder = *r.IsFolder
	}
	if r.Description != nil {
		c.Description = r.Description
	}
	if r.SortOrder != nil {
		c.SortOrder = *r.SortOrder
	}
	if r.Attributes != nil {
		c.Attributes = r.Attributes
	}
	c.Version = r.Version
}

// --- Currencies ---

// CreateCurrencyRequest for creating currencies.
type CreateCurrencyRequest struct {
	Code          string            `json:"code"`
	Name          string            `json:"name" binding:"required"`
	ISOCode       *string           `json:"isoCode" binding:"required"`
	Symbol        *string           `json:"symbol" binding:"required"`
	DecimalPlaces *int              `json:"decimalPlaces"`
	IsBase        bool              `json:"isBase"`
	Attributes    entity.Attributes `json:"attributes"`
}

// ToEntity converts the request into a new Currency.
func (r CreateCurrencyRequest) ToEntity() *currency.Currency {
	c := currency.NewCurrency(r.Code, r.Name, r.ISOCode, r.Symbol)
	if r.DecimalPlaces != nil {
		c.DecimalPlaces = *r.DecimalPlaces
	}
	c.IsBase = r.IsBase
	c.Attributes = r.Attributes
	return c
}

// UpdateCurrencyRequest for updating currencies.
type UpdateCurrencyRequest struct {
	Code          *string           `json:"code"`
	Name          *string           `json:"name"`
	ISOCode       *string           `json:"isoCode"`
	Symbol        *string           `json:"symbol"`
	DecimalPlaces *int              `json:"decimalPlaces"`
	IsBase        *bool             `json:"isBase"`
	Attributes    entity.Attributes `json:"attributes"`
	Version       int               `json:"version" binding:"required,min=1"`
}

// ApplyTo applies non-nil fields onto an existing Currency.
func (r UpdateCurrencyRequest) ApplyTo(c *currency.Currency) {
	if r.Code != nil {
		c.Code = *r.Code
	}
	if r.Name != nil {
		c.Name = *r.Name
	}
	if r.ISOCode != nil {
		c.ISOCode = r.ISOCode
	}
	if r.Symbol != nil {
		c.Symbol = r.Symbol
	}
	if r.DecimalPlaces != nil {
		c.DecimalPlaces = *r.DecimalPlaces
	}
	if r.IsBase != nil {
		c.IsBase = *r.IsBase
	}
	if r.Attributes != nil {
		c.Attributes = r.Attributes
	}
	c.Version = r.Version
}

// --- Tax rates ---

// CreateTaxRateRequest for creating tax rates.
type CreateTaxRateRequest struct {
	Code        string            `json:"code"`
	Name        string            `json:"name" binding:"required"`
	Rate        decimal.Decimal   `json:"rate"`
	IsDefault   bool              `json:"isDefault"`
	Description *string           `json:"description"`
	Attributes  entity.Attributes `json:"attributes"`
}

// ToEntity converts the request into a new TaxRate.
func (r CreateTaxRateRequest) ToEntity() *taxrate.TaxRate {
	t := taxrate.NewTaxRate(r.Code, r.Name, r.Rate)
	t.IsDefault = r.IsDefault
	t.Description = r.Description
	t.Attributes = r.Attributes
	return t
}

// UpdateTaxRateRequest for updating tax rates.
type UpdateTaxRateRequest struct {
	Code        *string           `json:"code"`
	Name        *string           `json:"name"`
	Rate        *decimal.Decimal  `json:"rate"`
	IsDefault   *bool             `json:"isDefault"`
	Description *string           `json:"description"`
	Attributes  entity.Attributes `json:"attributes"`
	Version     int               `json:"version" binding:"required,min=1"`
}

// ApplyTo applies non-nil fields onto an existing TaxRate.
func (r UpdateTaxRateRequest) ApplyTo(t *taxrate.TaxRate) {
	if r.Code != nil {
		t.Code = *r.Code
	}
	if r.Name != nil {
		t.Name = *r.Name
	}
	if r.Rate != nil {
		t.Rate = *r.Rate
	}
	if r.IsDefault != nil {
		t.IsDefault = *r.IsDefault
	}
	if r.Description != nil {
		t.Description = r.Description
	}
	if r.Attributes != nil {
		t.Attributes = r.Attributes
	}
	t.Version = r.Version
}
