package persist

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	statex "github.com/autoosone/auto-state/agent/state"
)

// MemoryGateway keeps rows in process. It backs DB_DRIVER=memory and tests.
type MemoryGateway struct {
	mu       sync.RWMutex
	nextID   int64
	sessions map[int64]*SessionRow
	records  map[Table][]Record
}

func NewMemoryGateway() *MemoryGateway {
	return &MemoryGateway{
		sessions: make(map[int64]*SessionRow),
		records:  make(map[Table][]Record),
	}
}

func (m *MemoryGateway) CreateSession(_ context.Context, localID string, stage statex.Stage, at time.Time) (int64, error) {
	if strings.TrimSpace(localID) == "" {
		return 0, statex.ErrInvalidSession
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, row := range m.sessions {
		if row.SessionID == localID {
			return 0, fmt.Errorf("session %s already exists", localID)
		}
	}
	m.nextID++
	at = at.UTC()
	m.sessions[m.nextID] = &SessionRow{
		ID:           m.nextID,
		SessionID:    localID,
		CurrentStage: stage.String(),
		StartedAt:    at,
		UpdatedAt:    at,
		LastActivity: at,
		IsActive:     true,
	}
	return m.nextID, nil
}

func (m *MemoryGateway) UpdateSession(_ context.Context, id int64, f SessionFields) error {
	for flag := range f.Flags {
		if !knownFlag(flag) {
			return fmt.Errorf("%w: %q", statex.ErrUnknownFlag, flag)
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	row, ok := m.sessions[id]
	if !ok {
		return ErrSessionNotFound
	}
	if f.At.IsZero() {
		f.At = time.Now()
	}
	row.apply(f)
	return nil
}

func (m *MemoryGateway) InsertRecord(_ context.Context, rec Record) (int64, error) {
	if rec == nil {
		return 0, ErrNilRecord
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[rec.Meta().SessionID]; !ok {
		return 0, fmt.Errorf("insert %s: %w", rec.Table(), ErrSessionNotFound)
	}
	m.nextID++
	rec.Meta().ID = m.nextID
	m.records[rec.Table()] = append(m.records[rec.Table()], rec)
	return m.nextID, nil
}

func (m *MemoryGateway) DeleteRecord(_ context.Context, table Table, id int64) error {
	if _, err := modelFor(table); err != nil {
		return fmt.Errorf("%w: %s", err, table)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if table == TableSessions {
		if _, ok := m.sessions[id]; !ok {
			return ErrRecordNotFound
		}
		delete(m.sessions, id)
		return nil
	}
	rows := m.records[table]
	for i, rec := range rows {
		if rec.Meta().ID == id {
			m.records[table] = append(rows[:i:i], rows[i+1:]...)
			return nil
		}
	}
	return ErrRecordNotFound
}

func (m *MemoryGateway) DemoteSelections(_ context.Context, sessionID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, rec := range m.records[TableSelection] {
		sel, ok := rec.(*SelectionRecord)
		if ok && sel.SessionID == sessionID {
			sel.IsFinal = false
		}
	}
	return nil
}

// Session returns a copy of the session row.
func (m *MemoryGateway) Session(id int64) (SessionRow, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	row, ok := m.sessions[id]
	if !ok {
		return SessionRow{}, false
	}
	return *row, true
}

// Records returns the rows of table owned by sessionID.
func (m *MemoryGateway) Records(table Table, sessionID int64) []Record {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Record
	for _, rec := range m.records[table] {
		if rec.Meta().SessionID == sessionID {
			out = append(out, rec)
		}
	}
	return out
}

// Selections returns copies of the selection rows owned by sessionID.
func (m *MemoryGateway) Selections(sessionID int64) []SelectionRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []SelectionRecord
	for _, rec := range m.records[TableSelection] {
		if sel, ok := rec.(*SelectionRecord); ok && sel.SessionID == sessionID {
			out = append(out, *sel)
		}
	}
	return out
}
