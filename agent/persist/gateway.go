package persist

import (
	"context"
	"errors"
	"time"

	statex "github.com/autoosone/auto-state/agent/state"
)

var (
	ErrSessionNotFound = errors.New("session row not found")
	ErrRecordNotFound  = errors.New("record not found")
	ErrUnknownTable    = errors.New("unknown table")
	ErrNilRecord       = errors.New("record is nil")
)

type Table string

const (
	TableSessions  Table = "car_sales_sessions"
	TableContact   Table = "contact_info"
	TableSelection Table = "selected_cars"
	TableFinancing Table = "financing_info"
	TablePayment   Table = "payment_info"
	TableOrders    Table = "orders"
)

// Record is a per-session sub-record. Every record carries a session
// reference and a creation timestamp.
type Record interface {
	Table() Table
	Attach(sessionID int64, at time.Time)
	Meta() *RecordMeta
}

// SessionFields is a partial update of a session row. Nil fields are left alone.
type SessionFields struct {
	Stage    *statex.Stage
	Flags    map[statex.Flag]bool
	IsActive *bool
	At       time.Time
}

// Gateway is the durable store for sessions and their sub-records.
type Gateway interface {
	CreateSession(ctx context.Context, localID string, stage statex.Stage, at time.Time) (int64, error)
	UpdateSession(ctx context.Context, id int64, f SessionFields) error
	InsertRecord(ctx context.Context, rec Record) (int64, error)
	DeleteRecord(ctx context.Context, table Table, id int64) error
	// DemoteSelections clears the final mark on every selection of the session.
	DemoteSelections(ctx context.Context, sessionID int64) error
}

func knownFlag(f statex.Flag) bool {
	switch f {
	case statex.FlagContactDone, statex.FlagProductSelected, statex.FlagFinancingDecided,
		statex.FlagFinancingDone, statex.FlagPaymentDone, statex.FlagOrderConfirmed:
		return true
	default:
		return false
	}
}
