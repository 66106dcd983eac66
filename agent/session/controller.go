// Package session owns conversation identity and mirrors progress to the
// durable store.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/autoosone/auto-state/agent/persist"
	statex "github.com/autoosone/auto-state/agent/state"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const defaultStartTimeout = 5 * time.Second

type Option func(*Controller)

func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		if now != nil {
			c.now = now
		}
	}
}

func WithStartTimeout(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.startTimeout = d
		}
	}
}

// Controller binds one conversation's Shared state to its durable row.
// In-memory changes are applied first; the durable mirror trails behind
// on the write-behind queue.
type Controller struct {
	gateway      persist.Gateway
	writer       *persist.Writer
	shared       *statex.Shared
	now          func() time.Time
	startTimeout time.Duration
}

func newController(gw persist.Gateway, w *persist.Writer, opts []Option) (*Controller, error) {
	if gw == nil {
		return nil, errors.New("persistence gateway is required")
	}
	if w == nil {
		return nil, errors.New("write-behind writer is required")
	}
	c := &Controller{
		gateway:      gw,
		writer:       w,
		now:          time.Now,
		startTimeout: defaultStartTimeout,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c, nil
}

// Start opens a new conversation at the initial stage. A failing durable
// store degrades the session to local-only; it is never retried.
func Start(ctx context.Context, gw persist.Gateway, w *persist.Writer, opts ...Option) (*Controller, error) {
	c, err := newController(gw, w, opts)
	if err != nil {
		return nil, err
	}

	localID := "session-" + uuid.NewString()
	now := c.now()
	c.shared = statex.NewShared(localID, now)

	createCtx, cancel := context.WithTimeout(ctx, c.startTimeout)
	defer cancel()

	id, err := c.gateway.CreateSession(createCtx, localID, statex.InitialStage(), now)
	if err != nil {
		sessionsStarted.WithLabelValues("local_only").Inc()
		log.Warn().Err(err).Str("session_id", localID).Msg("durable session unavailable, continuing local-only")
		return c, nil
	}
	c.shared.SetDurableID(id)
	sessionsStarted.WithLabelValues("durable").Inc()
	log.Info().Str("session_id", localID).Int64("durable_id", id).Msg("session started")
	return c, nil
}

// Resume rebuilds a controller from a checkpoint without touching the store.
func Resume(snap statex.Snapshot, gw persist.Gateway, w *persist.Writer, opts ...Option) (*Controller, error) {
	c, err := newController(gw, w, opts)
	if err != nil {
		return nil, err
	}
	shared, err := statex.Restore(snap)
	if err != nil {
		return nil, err
	}
	c.shared = shared
	return c, nil
}

func (c *Controller) Shared() *statex.Shared { return c.shared }

func (c *Controller) LocalID() string { return c.shared.Session().LocalID }

func (c *Controller) DurableID() (int64, bool) { return c.shared.Session().Durable() }

func (c *Controller) Now() time.Time { return c.now() }

// AdvanceStage moves Shared State to stage and mirrors it asynchronously.
func (c *Controller) AdvanceStage(stage statex.Stage) statex.Stage {
	now := c.now()
	prev := c.shared.SetStage(stage, now)
	c.mirror("update_stage", persist.SessionFields{Stage: &stage, At: now})
	return prev
}

// MarkFlag sets a progress flag and mirrors it asynchronously. Confirming
// the order also closes the durable session.
func (c *Controller) MarkFlag(flag statex.Flag, v bool) error {
	now := c.now()
	if err := c.shared.SetFlag(flag, v, now); err != nil {
		return err
	}
	fields := persist.SessionFields{Flags: map[statex.Flag]bool{flag: v}, At: now}
	if flag == statex.FlagOrderConfirmed && v {
		inactive := false
		fields.IsActive = &inactive
	}
	c.mirror("mark_flag", fields)
	return nil
}

// Insert queues a sub-record for the durable session. Local-only sessions
// skip it.
func (c *Controller) Insert(rec persist.Record) {
	id, ok := c.DurableID()
	if !ok || rec == nil {
		return
	}
	rec.Attach(id, c.now())
	c.writer.Enqueue(persist.Job{
		Op:        "insert_" + string(rec.Table()),
		SessionID: c.LocalID(),
		Run: func(ctx context.Context, gw persist.Gateway) error {
			_, err := gw.InsertRecord(ctx, rec)
			return err
		},
	})
}

// DemoteSelections queues clearing the final selection mark.
func (c *Controller) DemoteSelections() {
	id, ok := c.DurableID()
	if !ok {
		return
	}
	c.writer.Enqueue(persist.Job{
		Op:        "demote_selections",
		SessionID: c.LocalID(),
		Run: func(ctx context.Context, gw persist.Gateway) error {
			return gw.DemoteSelections(ctx, id)
		},
	})
}

func (c *Controller) mirror(op string, fields persist.SessionFields) {
	id, ok := c.DurableID()
	if !ok {
		return
	}
	c.writer.Enqueue(persist.Job{
		Op:        op,
		SessionID: c.LocalID(),
		Run: func(ctx context.Context, gw persist.Gateway) error {
			return gw.UpdateSession(ctx, id, fields)
		},
	})
}
