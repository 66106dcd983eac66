package state

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
)

// Flag is a per-session progress marker. Values double as session column names.
type Flag string

const (
	FlagContactDone      Flag = "contact_info_completed"
	FlagProductSelected  Flag = "car_built"
	FlagFinancingDecided Flag = "financing_decided"
	FlagFinancingDone    Flag = "financing_info_completed"
	FlagPaymentDone      Flag = "payment_completed"
	FlagOrderConfirmed   Flag = "order_confirmed"
)

var ErrUnknownFlag = errors.New("unknown session flag")

type Flags struct {
	ContactDone      bool `json:"contact_done"`
	ProductSelected  bool `json:"product_selected"`
	FinancingDecided bool `json:"financing_decided"`
	FinancingDone    bool `json:"financing_done"`
	PaymentDone      bool `json:"payment_done"`
	OrderConfirmed   bool `json:"order_confirmed"`
}

func (f *Flags) Set(flag Flag, v bool) error {
	switch flag {
	case FlagContactDone:
		f.ContactDone = v
	case FlagProductSelected:
		f.ProductSelected = v
	case FlagFinancingDecided:
		f.FinancingDecided = v
	case FlagFinancingDone:
		f.FinancingDone = v
	case FlagPaymentDone:
		f.PaymentDone = v
	case FlagOrderConfirmed:
		f.OrderConfirmed = v
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFlag, flag)
	}
	return nil
}

// Session is the identity and progress of one conversation.
type Session struct {
	LocalID   string    `json:"local_id"`
	DurableID *int64    `json:"durable_id,omitempty"`
	Stage     Stage     `json:"stage"`
	Flags     Flags     `json:"flags"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Durable returns the durable id when the session row exists.
func (s Session) Durable() (int64, bool) {
	if s.DurableID == nil {
		return 0, false
	}
	return *s.DurableID, true
}

// Shared is the in-memory conversation so far. Stage modules read and write
// it; the agent bridge only ever sees Snapshot copies.
type Shared struct {
	mu        sync.RWMutex
	session   Session
	contact   *ContactInfo
	product   *Product
	financing *FinancingInfo
	payment   *PaymentInfo
	orders    []Order
}

func NewShared(localID string, now time.Time) *Shared {
	now = now.UTC()
	return &Shared{
		session: Session{
			LocalID:   localID,
			Stage:     InitialStage(),
			CreatedAt: now,
			UpdatedAt: now,
		},
	}
}

func (s *Shared) Session() Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := s.session
	if s.session.DurableID != nil {
		id := *s.session.DurableID
		out.DurableID = &id
	}
	return out
}

func (s *Shared) Stage() Stage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session.Stage
}

// SetStage moves the conversation and returns the stage it left.
func (s *Shared) SetStage(st Stage, now time.Time) Stage {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.session.Stage
	s.session.Stage = st
	s.session.UpdatedAt = now.UTC()
	return prev
}

func (s *Shared) SetDurableID(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session.DurableID = &id
}

func (s *Shared) SetFlag(flag Flag, v bool, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.session.Flags.Set(flag, v); err != nil {
		return err
	}
	s.session.UpdatedAt = now.UTC()
	return nil
}

func (s *Shared) Contact() (ContactInfo, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.contact == nil {
		return ContactInfo{}, false
	}
	return *s.contact, true
}

func (s *Shared) SetContact(c ContactInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.contact = &c
}

func (s *Shared) SelectedProduct() (Product, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.product == nil {
		return Product{}, false
	}
	return *s.product, true
}

// SetSelectedProduct replaces the selection; nil clears it.
func (s *Shared) SetSelectedProduct(p *Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p == nil {
		s.product = nil
		return
	}
	cp := *p
	s.product = &cp
}

func (s *Shared) Financing() (FinancingInfo, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.financing == nil {
		return FinancingInfo{}, false
	}
	return *s.financing, true
}

func (s *Shared) SetFinancing(f *FinancingInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if f == nil {
		s.financing = nil
		return
	}
	cp := *f
	s.financing = &cp
}

func (s *Shared) Payment() (PaymentInfo, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.payment == nil {
		return PaymentInfo{}, false
	}
	return *s.payment, true
}

func (s *Shared) SetPayment(p PaymentInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.payment = &p
}

func (s *Shared) Orders() []Order {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Order(nil), s.orders...)
}

// AppendOrder records an order. Orders are never edited once appended.
func (s *Shared) AppendOrder(o Order) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders = append(s.orders, o)
}

/* ------------------------------ Snapshots ------------------------------ */

var ErrInvalidSnapshot = errors.New("invalid session snapshot")

// Snapshot is the serialisable view of Shared, used for the agent readable
// and for checkpointing.
type Snapshot struct {
	Session         Session        `json:"session"`
	Contact         *ContactInfo   `json:"contact_info,omitempty"`
	SelectedProduct *Product       `json:"selected_product,omitempty"`
	Financing       *FinancingInfo `json:"financing_info,omitempty"`
	Payment         *PaymentInfo   `json:"payment_info,omitempty"`
	Orders          []Order        `json:"orders"`
}

func (s *Shared) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{
		Session: s.session,
		Orders:  append([]Order{}, s.orders...),
	}
	if s.session.DurableID != nil {
		id := *s.session.DurableID
		snap.Session.DurableID = &id
	}
	if s.contact != nil {
		c := *s.contact
		snap.Contact = &c
	}
	if s.product != nil {
		p := *s.product
		snap.SelectedProduct = &p
	}
	if s.financing != nil {
		f := *s.financing
		snap.Financing = &f
	}
	if s.payment != nil {
		p := *s.payment
		snap.Payment = &p
	}
	return snap
}

func (s Snapshot) Validate() error {
	if strings.TrimSpace(s.Session.LocalID) == "" {
		return fmt.Errorf("%w: local id is empty", ErrInvalidSnapshot)
	}
	stage, err := ParseStage(string(s.Session.Stage))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSnapshot, err)
	}
	if s.Session.Flags.ProductSelected && s.SelectedProduct == nil {
		return fmt.Errorf("%w: product flagged as selected but missing", ErrInvalidSnapshot)
	}
	if len(s.Orders) > 0 && !stage.Terminal() {
		return fmt.Errorf("%w: orders present before %s", ErrInvalidSnapshot, StageConfirmation)
	}
	return nil
}

// Restore rebuilds Shared from a validated snapshot.
func Restore(snap Snapshot) (*Shared, error) {
	if err := snap.Validate(); err != nil {
		return nil, err
	}
	sh := &Shared{
		session: snap.Session,
		orders:  append([]Order(nil), snap.Orders...),
	}
	sh.session.Stage, _ = ParseStage(string(snap.Session.Stage))
	if snap.Contact != nil {
		c := *snap.Contact
		sh.contact = &c
	}
	if snap.SelectedProduct != nil {
		p := *snap.SelectedProduct
		sh.product = &p
	}
	if snap.Financing != nil {
		f := *snap.Financing
		sh.financing = &f
	}
	if snap.Payment != nil {
		p := *snap.Payment
		sh.payment = &p
	}
	return sh, nil
}
