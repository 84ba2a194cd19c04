package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type pendingWrite struct {
	value   []byte
	deleted bool
}

type writeRef struct {
	contract Address
	key      Key
}

// Tx is the state of one invocation. Writes are buffered until the host
// commits them.
type Tx struct {
	ctx      context.Context
	store    Store
	auth     Authorizer
	readOnly bool
	seq      uint64
	now      time.Time
	writes   map[Address]map[Key]*pendingWrite
	order    []writeRef
	events   []Event
}

func (tx *Tx) Context() context.Context { return tx.ctx }

// Sequence is the number of the ledger this invocation closes.
func (tx *Tx) Sequence() uint64 { return tx.seq }

func (tx *Tx) Timestamp() time.Time { return tx.now }

// Deploy registers a new contract instance and returns its address.
func (tx *Tx) Deploy(kind string) (Address, error) {
	if kind == "" {
		return "", fmt.Errorf("%w: empty contract kind", ErrInvalidArgument)
	}
	addr := newContractAddress()
	if err := tx.put(systemSpace, contractKey(addr), kind); err != nil {
		return "", err
	}
	return addr, nil
}

// KindOf returns the kind an address was deployed with.
func (tx *Tx) KindOf(addr Address) (string, error) {
	var kind string
	ok, err := tx.get(systemSpace, contractKey(addr), &kind)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("%w: contract %s", ErrNotFound, addr)
	}
	return kind, nil
}

// Bind returns the private key space of a deployed contract of the given kind.
func (tx *Tx) Bind(addr Address, kind string) (*Env, error) {
	got, err := tx.KindOf(addr)
	if err != nil {
		return nil, err
	}
	if got != kind {
		return nil, fmt.Errorf("%w: contract %s is a %s, not a %s", ErrNotFound, addr, got, kind)
	}
	return &Env{tx: tx, contract: addr}, nil
}

func (tx *Tx) load(contract Address, key Key) ([]byte, bool, error) {
	if w, ok := tx.writes[contract][key]; ok {
		if w.deleted {
			return nil, false, nil
		}
		return w.value, true, nil
	}
	return tx.store.Load(tx.ctx, contract, key)
}

func (tx *Tx) get(contract Address, key Key, v any) (bool, error) {
	raw, ok, err := tx.load(contract, key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

func (tx *Tx) stage(contract Address, key Key, w *pendingWrite) error {
	if tx.readOnly {
		return fmt.Errorf("%w: write to %s", ErrReadOnly, key)
	}
	space := tx.writes[contract]
	if space == nil {
		space = make(map[Key]*pendingWrite)
		tx.writes[contract] = space
	}
	if _, seen := space[key]; !seen {
		tx.order = append(tx.order, writeRef{contract: contract, key: key})
	}
	space[key] = w
	return nil
}

func (tx *Tx) put(contract Address, key Key, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return tx.stage(contract, key, &pendingWrite{value: raw})
}

func (tx *Tx) publish(contract Address, topic string, data any) error {
	if tx.readOnly {
		return fmt.Errorf("%w: event %s", ErrReadOnly, topic)
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode event %s: %w", topic, err)
	}
	tx.events = append(tx.events, Event{
		ID:        uuid.NewString(),
		Contract:  contract,
		Topic:     topic,
		Data:      raw,
		Sequence:  tx.seq,
		Timestamp: tx.now,
	})
	return nil
}

func (tx *Tx) changeSet() ChangeSet {
	cs := ChangeSet{Sequence: tx.seq, Events: tx.events}
	for _, ref := range tx.order {
		w := tx.writes[ref.contract][ref.key]
		cs.Entries = append(cs.Entries, Entry{
			Contract: ref.contract,
			Key:      ref.key,
			Value:    w.value,
			Deleted:  w.deleted,
		})
	}
	return cs
}
