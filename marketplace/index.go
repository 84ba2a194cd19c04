package marketplace

import "github.com/yourusername/invoice-factoring/ledger"

// activeIndex keeps the ids of active listings as a doubly linked list in
// contract storage: appends and removals touch a constant number of keys,
// enumeration follows insertion order.
type activeIndex struct {
	env *ledger.Env
}

var (
	keyActiveHead = ledger.Sym("ACT_HEAD")
	keyActiveTail = ledger.Sym("ACT_TAIL")
)

func nextKey(id string) ledger.Key { return ledger.Pair("ACT_NEXT", id) }
func prevKey(id string) ledger.Key { return ledger.Pair("ACT_PREV", id) }

func (ix activeIndex) lookup(key ledger.Key) (string, bool, error) {
	var id string
	ok, err := ix.env.Get(key, &id)
	return id, ok, err
}

func (ix activeIndex) append(id string) error {
	tail, ok, err := ix.lookup(keyActiveTail)
	if err != nil {
		return err
	}
	if ok {
		if err := ix.env.Set(nextKey(tail), id); err != nil {
			return err
		}
		if err := ix.env.Set(prevKey(id), tail); err != nil {
			return err
		}
	} else if err := ix.env.Set(keyActiveHead, id); err != nil {
		return err
	}
	return ix.env.Set(keyActiveTail, id)
}

// remove unlinks id. The caller guarantees id is in the index.
func (ix activeIndex) remove(id string) error {
	prev, hasPrev, err := ix.lookup(prevKey(id))
	if err != nil {
		return err
	}
	next, hasNext, err := ix.lookup(nextKey(id))
	if err != nil {
		return err
	}

	switch {
	case hasPrev && hasNext:
		err = ix.env.Set(nextKey(prev), next)
	case hasPrev:
		err = ix.env.Remove(nextKey(prev))
	case hasNext:
		err = ix.env.Set(keyActiveHead, next)
	default:
		err = ix.env.Remove(keyActiveHead)
	}
	if err != nil {
		return err
	}

	switch {
	case hasNext && hasPrev:
		err = ix.env.Set(prevKey(next), prev)
	case hasNext:
		err = ix.env.Remove(prevKey(next))
	case hasPrev:
		err = ix.env.Set(keyActiveTail, prev)
	default:
		err = ix.env.Remove(keyActiveTail)
	}
	if err != nil {
		return err
	}

	if err := ix.env.Remove(prevKey(id)); err != nil {
		return err
	}
	return ix.env.Remove(nextKey(id))
}

func (ix activeIndex) list() ([]string, error) {
	ids := []string{}
	id, ok, err := ix.lookup(keyActiveHead)
	for ok && err == nil {
		ids = append(ids, id)
		id, ok, err = ix.lookup(nextKey(id))
	}
	if err != nil {
		return nil, err
	}
	return ids, nil
}
