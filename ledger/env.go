package ledger

import "time"

// Env is a contract's view of the current invocation: its own key space, the
// caller's credentials and the ledger clock.
type Env struct {
	tx       *Tx
	contract Address
}

// Address is the contract's own address.
func (e *Env) Address() Address { return e.contract }

func (e *Env) Has(key Key) (bool, error) {
	_, ok, err := e.tx.load(e.contract, key)
	return ok, err
}

// Get decodes the value at key into v and reports whether it was present.
func (e *Env) Get(key Key, v any) (bool, error) {
	return e.tx.get(e.contract, key, v)
}

func (e *Env) Set(key Key, v any) error {
	return e.tx.put(e.contract, key, v)
}

func (e *Env) Remove(key Key) error {
	return e.tx.stage(e.contract, key, &pendingWrite{deleted: true})
}

// RequireAuth fails with ErrUnauthorized unless the call carries a verified
// credential for addr.
func (e *Env) RequireAuth(addr Address) error {
	return requireAuth(e.tx.auth, addr)
}

// Timestamp is the ledger close time in unix seconds.
func (e *Env) Timestamp() uint64 { return uint64(e.tx.now.Unix()) }

func (e *Env) Time() time.Time { return e.tx.now }

func (e *Env) Sequence() uint64 { return e.tx.seq }

func (e *Env) Publish(topic string, data any) error {
	return e.tx.publish(e.contract, topic, data)
}
