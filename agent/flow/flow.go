// Package flow runs guided sales conversations: it starts and resumes
// sessions, wires each one to its stage modules and agent surface, and
// drives action invocations through the pipeline.
package flow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/autoosone/auto-state/agent/bridge"
	contractx "github.com/autoosone/auto-state/agent/contract"
	"github.com/autoosone/auto-state/agent/modules"
	nodex "github.com/autoosone/auto-state/agent/nodes"
	"github.com/autoosone/auto-state/agent/persist"
	"github.com/autoosone/auto-state/agent/registry"
	"github.com/autoosone/auto-state/agent/session"
	statex "github.com/autoosone/auto-state/agent/state"
	"github.com/cloudwego/eino/compose"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"
)

const (
	defaultSnapshotTimeout = 3 * time.Second
	defaultNotifyTimeout   = 5 * time.Second
)

type Option func(*Flow)

func WithSnapshotStore(store statex.Store) Option {
	return func(f *Flow) {
		if store != nil {
			f.snapshots = store
		}
	}
}

func WithNotifier(n contractx.Notifier) Option {
	return func(f *Flow) {
		if n != nil {
			f.notifier = n
		}
	}
}

func WithPresenter(p contractx.Presenter) Option {
	return func(f *Flow) {
		if p != nil {
			f.presenter = p
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(f *Flow) {
		if now != nil {
			f.now = now
		}
	}
}

// Flow owns the shared infrastructure of every conversation.
type Flow struct {
	gateway   persist.Gateway
	writer    *persist.Writer
	catalog   contractx.Catalog
	snapshots statex.Store
	notifier  contractx.Notifier
	presenter contractx.Presenter

	rate            decimal.Decimal
	strict          bool
	startTimeout    time.Duration
	snapshotTimeout time.Duration
	notifyTimeout   time.Duration
	now             func() time.Time

	runner compose.Runnable[nodex.GraphInput, nodex.GraphOutput]

	mu            sync.RWMutex
	conversations map[string]*Conversation
	resumes       singleflight.Group
}

func New(gw persist.Gateway, w *persist.Writer, catalog contractx.Catalog, cfg Config, opts ...Option) (*Flow, error) {
	if gw == nil {
		return nil, errors.New("persistence gateway is required")
	}
	if w == nil {
		return nil, errors.New("write-behind writer is required")
	}
	if catalog == nil {
		return nil, errors.New("catalog is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	f := &Flow{
		gateway:         gw,
		writer:          w,
		catalog:         catalog,
		snapshots:       statex.NewMemoryStore(),
		notifier:        contractx.NoopNotifier{},
		presenter:       contractx.ContextPresenter{},
		rate:            cfg.Rate(),
		strict:          cfg.Strict,
		startTimeout:    cfg.StartTimeout,
		snapshotTimeout: cfg.SnapshotTimeout,
		notifyTimeout:   cfg.NotifyTimeout,
		now:             time.Now,
		conversations:   make(map[string]*Conversation),
	}
	if f.snapshotTimeout <= 0 {
		f.snapshotTimeout = defaultSnapshotTimeout
	}
	if f.notifyTimeout <= 0 {
		f.notifyTimeout = defaultNotifyTimeout
	}
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}

	runner, err := compileInvokeGraph(context.Background())
	if err != nil {
		return nil, err
	}
	f.runner = runner
	return f, nil
}

// Start opens a new conversation at the first stage.
func (f *Flow) Start(ctx context.Context) (*Conversation, error) {
	ctrl, err := session.Start(ctx, f.gateway, f.writer, f.sessionOptions()...)
	if err != nil {
		return nil, err
	}
	c, err := f.attach(ctx, ctrl)
	if err != nil {
		return nil, err
	}
	f.saveSnapshot(ctx, c)
	return c, nil
}

// Get returns a conversation held in memory.
func (f *Flow) Get(localID string) (*Conversation, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	c, ok := f.conversations[strings.TrimSpace(localID)]
	return c, ok
}

// Resume returns the live conversation or rebuilds it from its last
// snapshot at the saved stage. Concurrent calls for one session share a
// single rebuild.
func (f *Flow) Resume(ctx context.Context, localID string) (*Conversation, error) {
	localID = strings.TrimSpace(localID)
	if c, ok := f.Get(localID); ok {
		return c, nil
	}

	v, err, _ := f.resumes.Do(localID, func() (any, error) {
		if c, ok := f.Get(localID); ok {
			return c, nil
		}
		return f.rebuild(ctx, localID)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Conversation), nil
}

func (f *Flow) rebuild(ctx context.Context, localID string) (*Conversation, error) {
	loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), f.snapshotTimeout)
	defer cancel()
	snap, err := f.snapshots.Load(loadCtx, localID)
	if err != nil {
		if errors.Is(err, statex.ErrSnapshotNotFound) {
			return nil, fmt.Errorf("%w: %s", contractx.ErrUnknownSession, localID)
		}
		return nil, fmt.Errorf("load snapshot %s: %w", localID, err)
	}
	ctrl, err := session.Resume(*snap, f.gateway, f.writer, f.sessionOptions()...)
	if err != nil {
		return nil, err
	}
	c, err := f.attach(ctx, ctrl)
	if err != nil {
		return nil, err
	}
	log.Info().Str("session_id", localID).Str("stage", string(c.Stage())).Msg("session resumed")
	return c, nil
}

// Forget drops a conversation from memory. Its snapshot is kept.
func (f *Flow) Forget(localID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c, ok := f.conversations[localID]; ok {
		c.registry.Active().Deactivate()
		delete(f.conversations, localID)
	}
}

// Close waits for queued durable writes to finish.
func (f *Flow) Close() error {
	f.mu.Lock()
	for id, c := range f.conversations {
		c.registry.Active().Deactivate()
		delete(f.conversations, id)
	}
	f.mu.Unlock()
	return f.writer.Close()
}

func (f *Flow) sessionOptions() []session.Option {
	return []session.Option{
		session.WithClock(f.now),
		session.WithStartTimeout(f.startTimeout),
	}
}

func (f *Flow) attach(ctx context.Context, ctrl *session.Controller) (*Conversation, error) {
	c := &Conversation{
		flow:    f,
		ctrl:    ctrl,
		surface: bridge.NewSurface(),
	}
	mods := modules.All(modules.Deps{
		Shared:     ctrl.Shared(),
		Catalog:    f.catalog,
		AnnualRate: f.rate,
		Now:        f.now,
	})
	reg, err := registry.New(ctrl.Shared(), ctrl, mods, c.surface,
		registry.WithStrict(f.strict),
		registry.WithInvoker(c.run),
	)
	if err != nil {
		return nil, err
	}
	c.registry = reg
	reg.Begin(ctx)

	f.mu.Lock()
	defer f.mu.Unlock()
	if existing, ok := f.conversations[ctrl.LocalID()]; ok {
		reg.Active().Deactivate()
		return existing, nil
	}
	f.conversations[ctrl.LocalID()] = c
	return c, nil
}

// release drops a finished conversation from memory. A later Resume
// rebuilds it from its snapshot.
func (f *Flow) release(c *Conversation) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.conversations[c.LocalID()] == c {
		delete(f.conversations, c.LocalID())
	}
}

func (f *Flow) saveSnapshot(ctx context.Context, c *Conversation) {
	snap := c.Snapshot()
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), f.snapshotTimeout)
	defer cancel()
	if err := f.snapshots.Save(saveCtx, &snap); err != nil {
		log.Warn().Err(err).Str("session_id", snap.Session.LocalID).Msg("snapshot save failed")
	}
}

func (f *Flow) notifyOrder(ctx context.Context, c *Conversation, order statex.Order) {
	ev := contractx.OrderEvent{LocalID: c.LocalID(), Order: order}
	if id, ok := c.ctrl.DurableID(); ok {
		ev.DurableID = &id
	}
	if contact, ok := c.ctrl.Shared().Contact(); ok {
		ev.Contact = &contact
	}

	notifyCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), f.notifyTimeout)
	defer cancel()
	if err := f.notifier.NotifyOrder(notifyCtx, ev); err != nil {
		notificationsTotal.WithLabelValues("error").Inc()
		log.Warn().Err(err).Str("session_id", ev.LocalID).Str("order_number", order.OrderNumber).Msg("order notification failed")
		return
	}
	notificationsTotal.WithLabelValues("ok").Inc()
}
