package persist

import (
	"time"

	statex "github.com/autoosone/auto-state/agent/state"
	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

type SessionRow struct {
	bun.BaseModel `bun:"table:car_sales_sessions,alias:s"`

	ID                     int64     `bun:"id,pk,autoincrement" json:"id"`
	SessionID              string    `bun:"session_id,notnull,unique" json:"session_id"`
	CurrentStage           string    `bun:"current_stage,notnull" json:"current_stage"`
	StartedAt              time.Time `bun:"started_at,notnull" json:"started_at"`
	UpdatedAt              time.Time `bun:"updated_at,notnull" json:"updated_at"`
	LastActivity           time.Time `bun:"last_activity,notnull" json:"last_activity"`
	IsActive               bool      `bun:"is_active,notnull" json:"is_active"`
	ContactInfoCompleted   bool      `bun:"contact_info_completed,notnull" json:"contact_info_completed"`
	CarBuilt               bool      `bun:"car_built,notnull" json:"car_built"`
	FinancingDecided       bool      `bun:"financing_decided,notnull" json:"financing_decided"`
	FinancingInfoCompleted bool      `bun:"financing_info_completed,notnull" json:"financing_info_completed"`
	PaymentCompleted       bool      `bun:"payment_completed,notnull" json:"payment_completed"`
	OrderConfirmed         bool      `bun:"order_confirmed,notnull" json:"order_confirmed"`
}

func (r *SessionRow) apply(f SessionFields) {
	if f.Stage != nil {
		r.CurrentStage = f.Stage.String()
	}
	if f.IsActive != nil {
		r.IsActive = *f.IsActive
	}
	for flag, v := range f.Flags {
		switch flag {
		case statex.FlagContactDone:
			r.ContactInfoCompleted = v
		case statex.FlagProductSelected:
			r.CarBuilt = v
		case statex.FlagFinancingDecided:
			r.FinancingDecided = v
		case statex.FlagFinancingDone:
			r.FinancingInfoCompleted = v
		case statex.FlagPaymentDone:
			r.PaymentCompleted = v
		case statex.FlagOrderConfirmed:
			r.OrderConfirmed = v
		}
	}
	if !f.At.IsZero() {
		r.UpdatedAt = f.At.UTC()
		r.LastActivity = f.At.UTC()
	}
}

type RecordMeta struct {
	ID        int64     `bun:"id,pk,autoincrement" json:"id"`
	SessionID int64     `bun:"session_id,notnull" json:"session_id"`
	CreatedAt time.Time `bun:"created_at,notnull" json:"created_at"`
}

func (m *RecordMeta) Attach(sessionID int64, at time.Time) {
	m.SessionID = sessionID
	if m.CreatedAt.IsZero() {
		m.CreatedAt = at.UTC()
	}
}

func (m *RecordMeta) Meta() *RecordMeta { return m }

type ContactRecord struct {
	bun.BaseModel `bun:"table:contact_info,alias:ci"`
	RecordMeta

	Name  string `bun:"name,notnull" json:"name"`
	Email string `bun:"email,notnull" json:"email"`
	Phone string `bun:"phone,notnull" json:"phone"`
}

func (*ContactRecord) Table() Table { return TableContact }

func NewContactRecord(c statex.ContactInfo) *ContactRecord {
	return &ContactRecord{Name: c.Name, Email: c.Email, Phone: c.Phone}
}

type SelectionRecord struct {
	bun.BaseModel `bun:"table:selected_cars,alias:sc"`
	RecordMeta

	ProductID string          `bun:"product_id,notnull" json:"product_id"`
	Make      string          `bun:"make" json:"make,omitempty"`
	Model     string          `bun:"model" json:"model,omitempty"`
	Year      int             `bun:"year" json:"year,omitempty"`
	Price     decimal.Decimal `bun:"price,type:numeric(12,2),notnull" json:"price"`
	ChosenAt  time.Time       `bun:"chosen_at,notnull" json:"chosen_at"`
	IsFinal   bool            `bun:"is_final,notnull" json:"is_final"`
}

func (*SelectionRecord) Table() Table { return TableSelection }

func NewSelectionRecord(p statex.Product, at time.Time, final bool) *SelectionRecord {
	return &SelectionRecord{
		ProductID: p.ID.String(),
		Make:      p.Make,
		Model:     p.Model,
		Year:      p.Year,
		Price:     p.Price,
		ChosenAt:  at.UTC(),
		IsFinal:   final,
	}
}

type FinancingRecord struct {
	bun.BaseModel `bun:"table:financing_info,alias:fi"`
	RecordMeta

	Accepted         bool            `bun:"accepted,notnull" json:"accepted"`
	TermMonths       int             `bun:"term_months" json:"term_months,omitempty"`
	DownPayment      decimal.Decimal `bun:"down_payment,type:numeric(12,2),notnull" json:"down_payment"`
	AnnualIncome     decimal.Decimal `bun:"annual_income,type:numeric(12,2),notnull" json:"annual_income"`
	EmploymentStatus string          `bun:"employment_status" json:"employment_status,omitempty"`
	AnnualRate       decimal.Decimal `bun:"annual_rate,type:numeric(6,3),notnull" json:"annual_rate"`
	MonthlyPayment   decimal.Decimal `bun:"monthly_payment,type:numeric(12,2),notnull" json:"monthly_payment"`
}

func (*FinancingRecord) Table() Table { return TableFinancing }

func NewFinancingRecord(f statex.FinancingInfo) *FinancingRecord {
	return &FinancingRecord{
		Accepted:         f.Accepted,
		TermMonths:       f.TermMonths,
		DownPayment:      f.DownPayment,
		AnnualIncome:     f.AnnualIncome,
		EmploymentStatus: f.EmploymentStatus,
		AnnualRate:       f.AnnualRate,
		MonthlyPayment:   f.MonthlyPayment,
	}
}

type PaymentRecord struct {
	bun.BaseModel `bun:"table:payment_info,alias:pi"`
	RecordMeta

	Method         string `bun:"method,notnull" json:"method"`
	CardholderName string `bun:"cardholder_name" json:"cardholder_name,omitempty"`
	CardLast4      string `bun:"card_last4" json:"card_last4,omitempty"`
}

func (*PaymentRecord) Table() Table { return TablePayment }

func NewPaymentRecord(p statex.PaymentInfo) *PaymentRecord {
	return &PaymentRecord{Method: p.Method, CardholderName: p.CardholderName, CardLast4: p.CardLast4}
}

type OrderRecord struct {
	bun.BaseModel `bun:"table:orders,alias:o"`
	RecordMeta

	OrderNumber    string          `bun:"order_number,notnull,unique" json:"order_number"`
	ProductID      string          `bun:"product_id,notnull" json:"product_id"`
	Total          decimal.Decimal `bun:"total,type:numeric(12,2),notnull" json:"total"`
	Financed       bool            `bun:"financed,notnull" json:"financed"`
	TermMonths     int             `bun:"term_months" json:"term_months,omitempty"`
	MonthlyPayment decimal.Decimal `bun:"monthly_payment,type:numeric(12,2),notnull" json:"monthly_payment"`
	PaymentMethod  string          `bun:"payment_method,notnull" json:"payment_method"`
}

func (*OrderRecord) Table() Table { return TableOrders }

func NewOrderRecord(o statex.Order) *OrderRecord {
	rec := &OrderRecord{
		OrderNumber:    o.OrderNumber,
		ProductID:      o.Product.ID.String(),
		Total:          o.Total,
		Financed:       o.Financed,
		TermMonths:     o.TermMonths,
		MonthlyPayment: o.MonthlyPayment,
		PaymentMethod:  o.PaymentMethod,
	}
	rec.CreatedAt = o.CreatedAt.UTC()
	return rec
}

// recordModels lists every sub-record table, in creation order.
func recordModels() []Record {
	return []Record{
		(*ContactRecord)(nil),
		(*SelectionRecord)(nil),
		(*FinancingRecord)(nil),
		(*PaymentRecord)(nil),
		(*OrderRecord)(nil),
	}
}

func modelFor(table Table) (any, error) {
	switch table {
	case TableSessions:
		return (*SessionRow)(nil), nil
	case TableContact:
		return (*ContactRecord)(nil), nil
	case TableSelection:
		return (*SelectionRecord)(nil), nil
	case TableFinancing:
		return (*FinancingRecord)(nil), nil
	case TablePayment:
		return (*PaymentRecord)(nil), nil
	case TableOrders:
		return (*OrderRecord)(nil), nil
	default:
		return nil, ErrUnknownTable
	}
}
