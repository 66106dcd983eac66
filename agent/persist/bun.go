package persist

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	statex "github.com/autoosone/auto-state/agent/state"
	"github.com/uptrace/bun"
)

// BunGateway stores sessions and sub-records through bun.
type BunGateway struct {
	db *bun.DB
}

func NewBunGateway(db *bun.DB) (*BunGateway, error) {
	if db == nil {
		return nil, errors.New("bun db is required")
	}
	return &BunGateway{db: db}, nil
}

// Migrate creates the session and sub-record tables when missing.
func (g *BunGateway) Migrate(ctx context.Context) error {
	models := []any{(*SessionRow)(nil)}
	for _, m := range recordModels() {
		models = append(models, m)
	}
	for _, m := range models {
		if _, err := g.db.NewCreateTable().Model(m).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("create table %T: %w", m, err)
		}
	}
	return nil
}

func (g *BunGateway) CreateSession(ctx context.Context, localID string, stage statex.Stage, at time.Time) (int64, error) {
	if strings.TrimSpace(localID) == "" {
		return 0, statex.ErrInvalidSession
	}
	at = at.UTC()
	row := &SessionRow{
		SessionID:    localID,
		CurrentStage: stage.String(),
		StartedAt:    at,
		UpdatedAt:    at,
		LastActivity: at,
		IsActive:     true,
	}
	if _, err := g.db.NewInsert().Model(row).Returning("id").Exec(ctx); err != nil {
		return 0, fmt.Errorf("insert session: %w", err)
	}
	return row.ID, nil
}

func (g *BunGateway) UpdateSession(ctx context.Context, id int64, f SessionFields) error {
	at := f.At
	if at.IsZero() {
		at = time.Now()
	}
	at = at.UTC()

	q := g.db.NewUpdate().
		Model((*SessionRow)(nil)).
		Set("updated_at = ?", at).
		Set("last_activity = ?", at).
		Where("id = ?", id)
	if f.Stage != nil {
		q = q.Set("current_stage = ?", f.Stage.String())
	}
	if f.IsActive != nil {
		q = q.Set("is_active = ?", *f.IsActive)
	}
	for flag, v := range f.Flags {
		if !knownFlag(flag) {
			return fmt.Errorf("%w: %q", statex.ErrUnknownFlag, flag)
		}
		q = q.Set("? = ?", bun.Ident(string(flag)), v)
	}

	res, err := q.Exec(ctx)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	return expectRow(res, ErrSessionNotFound)
}

func (g *BunGateway) InsertRecord(ctx context.Context, rec Record) (int64, error) {
	if rec == nil {
		return 0, ErrNilRecord
	}
	if _, err := g.db.NewInsert().Model(rec).Returning("id").Exec(ctx); err != nil {
		return 0, fmt.Errorf("insert %s: %w", rec.Table(), err)
	}
	return rec.Meta().ID, nil
}

func (g *BunGateway) DeleteRecord(ctx context.Context, table Table, id int64) error {
	model, err := modelFor(table)
	if err != nil {
		return fmt.Errorf("%w: %s", err, table)
	}
	res, err := g.db.NewDelete().Model(model).Where("id = ?", id).Exec(ctx)
	if err != nil {
		return fmt.Errorf("delete %s: %w", table, err)
	}
	return expectRow(res, ErrRecordNotFound)
}

func (g *BunGateway) DemoteSelections(ctx context.Context, sessionID int64) error {
	_, err := g.db.NewUpdate().
		Model((*SelectionRecord)(nil)).
		Set("is_final = ?", false).
		Where("session_id = ?", sessionID).
		Where("is_final = ?", true).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("demote selections: %w", err)
	}
	return nil
}

// Session loads a session row by durable id.
func (g *BunGateway) Session(ctx context.Context, id int64) (*SessionRow, error) {
	row := new(SessionRow)
	if err := g.db.NewSelect().Model(row).Where("id = ?", id).Scan(ctx); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("select session: %w", err)
	}
	return row, nil
}

// Selections lists the selection rows of a session in insertion order.
func (g *BunGateway) Selections(ctx context.Context, sessionID int64) ([]SelectionRecord, error) {
	var rows []SelectionRecord
	if err := g.db.NewSelect().Model(&rows).Where("session_id = ?", sessionID).Order("id ASC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("select selections: %w", err)
	}
	return rows, nil
}

// Count returns the number of rows of table owned by sessionID.
func (g *BunGateway) Count(ctx context.Context, table Table, sessionID int64) (int, error) {
	model, err := modelFor(table)
	if err != nil {
		return 0, fmt.Errorf("%w: %s", err, table)
	}
	column := "session_id"
	if table == TableSessions {
		column = "id"
	}
	n, err := g.db.NewSelect().Model(model).Where("? = ?", bun.Ident(column), sessionID).Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return n, nil
}

func expectRow(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return nil
	}
	if n == 0 {
		return notFound
	}
	return nil
}
