package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// systemSpace is the host's own key space: ledger sequence and the registry of
// deployed contract instances.
const systemSpace Address = "SYSTEM"

var keySequence = Sym("SEQ")

func contractKey(addr Address) Key { return Pair("CONTRACT", addr.String()) }

// Host sequences invocations against a Store. Each invocation commits all of
// its writes or none of them.
type Host struct {
	mu    sync.Mutex
	store Store
	now   func() time.Time
	log   *zap.Logger
}

type Option func(*Host)

// WithClock overrides the source of ledger timestamps.
func WithClock(now func() time.Time) Option {
	return func(h *Host) { h.now = now }
}

func WithLogger(log *zap.Logger) Option {
	return func(h *Host) { h.log = log }
}

func NewHost(store Store, opts ...Option) *Host {
	h := &Host{store: store, now: time.Now, log: zap.NewNop()}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Invoke runs fn as one atomic call. If fn returns an error, nothing fn wrote
// is persisted.
func (h *Host) Invoke(ctx context.Context, auth Authorizer, fn func(tx *Tx) error) error {
	return h.run(ctx, auth, false, fn)
}

// View runs fn without the ability to write.
func (h *Host) View(ctx context.Context, fn func(tx *Tx) error) error {
	return h.run(ctx, nil, true, fn)
}

// Deploy registers a new contract instance of the given kind.
func (h *Host) Deploy(ctx context.Context, kind string) (Address, error) {
	var addr Address
	err := h.Invoke(ctx, nil, func(tx *Tx) error {
		var err error
		addr, err = tx.Deploy(kind)
		return err
	})
	return addr, err
}

// Events lists the committed events of one contract in ledger order.
func (h *Host) Events(ctx context.Context, contract Address) ([]Event, error) {
	return h.store.Events(ctx, contract)
}

func (h *Host) run(ctx context.Context, auth Authorizer, readOnly bool, fn func(tx *Tx) error) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	var seq uint64
	raw, ok, err := h.store.Load(ctx, systemSpace, keySequence)
	if err != nil {
		return fmt.Errorf("load ledger sequence: %w", err)
	}
	if ok {
		if err := json.Unmarshal(raw, &seq); err != nil {
			return fmt.Errorf("decode ledger sequence: %w", err)
		}
	}
	if !readOnly {
		seq++
	}

	tx := &Tx{
		ctx:      ctx,
		store:    h.store,
		auth:     auth,
		readOnly: readOnly,
		seq:      seq,
		now:      h.now().UTC(),
		writes:   make(map[Address]map[Key]*pendingWrite),
	}
	if err := fn(tx); err != nil {
		h.log.Debug("invocation aborted", zap.Uint64("sequence", seq), zap.Error(err))
		return err
	}
	if readOnly {
		return nil
	}

	if err := tx.put(systemSpace, keySequence, seq); err != nil {
		return err
	}
	cs := tx.changeSet()
	if err := h.store.Commit(ctx, cs); err != nil {
		h.log.Error("ledger commit failed", zap.Uint64("sequence", seq), zap.Error(err))
		return fmt.Errorf("commit ledger %d: %w", seq, err)
	}
	h.log.Debug("invocation committed",
		zap.Uint64("sequence", seq),
		zap.Int("writes", len(cs.Entries)),
		zap.Int("events", len(cs.Events)))
	return nil
}
