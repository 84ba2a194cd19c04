package ledger

import "strings"

// Key addresses one value inside a contract's private key space.
type Key string

// Sym is a singleton key such as ADMIN or STATUS.
func Sym(tag string) Key { return Key(tag) }

// Pair is a composite key for per-identity maps, e.g. Pair("BALANCE", owner).
func Pair(tag, id string) Key { return Key(tag + "/" + id) }

// Tag returns the leading tag of the key.
func (k Key) Tag() string {
	tag, _, _ := strings.Cut(string(k), "/")
	return tag
}
