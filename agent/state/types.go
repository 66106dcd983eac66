package state

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type ContactInfo struct {
	Name  string `json:"name" validate:"required"`
	Email string `json:"email" validate:"required,email"`
	Phone string `json:"phone" validate:"required"`
}

// ProductID accepts both JSON strings and numbers; catalogs use either.
type ProductID string

func (id *ProductID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ProductID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("product id must be a string or number: %w", err)
	}
	*id = ProductID(n.String())
	return nil
}

func (id ProductID) String() string {
	return string(id)
}

type Image struct {
	Src    string `json:"src,omitempty"`
	Alt    string `json:"alt,omitempty"`
	Author string `json:"author,omitempty"`
}

type Product struct {
	ID    ProductID       `json:"id" validate:"required"`
	Make  string          `json:"make,omitempty"`
	Model string          `json:"model,omitempty"`
	Year  int             `json:"year,omitempty" validate:"omitempty,gte=1900,lte=2100"`
	Color string          `json:"color,omitempty"`
	Price decimal.Decimal `json:"price"`
	Image *Image          `json:"image,omitempty"`
}

// Title is a short human label such as "2025 BMW 330i".
func (p Product) Title() string {
	parts := make([]string, 0, 3)
	if p.Year > 0 {
		parts = append(parts, fmt.Sprint(p.Year))
	}
	if p.Make != "" {
		parts = append(parts, p.Make)
	}
	if p.Model != "" {
		parts = append(parts, p.Model)
	}
	if len(parts) == 0 {
		return "product " + p.ID.String()
	}
	return strings.Join(parts, " ")
}

type FinancingInfo struct {
	Accepted         bool            `json:"accepted"`
	TermMonths       int             `json:"term_months,omitempty"`
	DownPayment      decimal.Decimal `json:"down_payment"`
	AnnualIncome     decimal.Decimal `json:"annual_income"`
	EmploymentStatus string          `json:"employment_status,omitempty"`
	AnnualRate       decimal.Decimal `json:"annual_rate"`
	MonthlyPayment   decimal.Decimal `json:"monthly_payment"`
}

type PaymentInfo struct {
	Method         string `json:"method" validate:"required"`
	CardholderName string `json:"cardholder_name,omitempty"`
	CardLast4      string `json:"card_last4,omitempty" validate:"omitempty,len=4,numeric"`
}

type Order struct {
	OrderNumber    string          `json:"order_number"`
	Product        Product         `json:"product"`
	Total          decimal.Decimal `json:"total"`
	Financed       bool            `json:"financed"`
	TermMonths     int             `json:"term_months,omitempty"`
	MonthlyPayment decimal.Decimal `json:"monthly_payment"`
	PaymentMethod  string          `json:"payment_method"`
	CreatedAt      time.Time       `json:"created_at"`
}
