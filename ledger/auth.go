package ledger

import "fmt"

// Authorizer answers whether the current call carries a verified credential
// for an identity.
type Authorizer interface {
	Authorized(addr Address) bool
}

type allowAll struct{}

func (allowAll) Authorized(Address) bool { return true }

// AllowAll authorizes every identity. Meant for tests and local tooling.
func AllowAll() Authorizer { return allowAll{} }

// AddressSet is the set of identities whose credentials were verified.
type AddressSet map[Address]struct{}

func (s AddressSet) Authorized(addr Address) bool {
	_, ok := s[addr]
	return ok
}

// Allow builds an Authorizer from verified identities.
func Allow(addrs ...Address) AddressSet {
	s := make(AddressSet, len(addrs))
	for _, a := range addrs {
		if a != "" {
			s[a] = struct{}{}
		}
	}
	return s
}

func requireAuth(a Authorizer, addr Address) error {
	if a == nil || !a.Authorized(addr) {
		return fmt.Errorf("%w: missing credential for %s", ErrUnauthorized, addr)
	}
	return nil
}
