package ballot

import "sync"

// NewAdminSet creates the authorization capability set with the given owner
// identity, which is an admin from the start and can never lose the flag.
func NewAdminSet(owner string) *AdminSet {
	admins := &AdminSet{
		owner:  owner,
		admins: make(map[string]bool),
	}
	admins.admins[owner] = true
	return admins
}

// AdminSet is the flat authorization model for the ledger: a capability map
// from identity to the admin flag with one distinguished owner. There is no
// hierarchy and no per-election scoping; every election-management operation
// simply requires the caller to be in the set, and only the owner may change
// the set.
type AdminSet struct {
	mu     sync.RWMutex
	owner  string
	admins map[string]bool
}

// Owner returns the distinguished owner identity.
func (a *AdminSet) Owner() string {
	return a.owner
}

// IsAdmin returns true if the identity holds the admin capability.
func (a *AdminSet) IsAdmin(identity string) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.admins[identity]
}

// Add grants the admin capability to the identity. Only the owner may grant.
func (a *AdminSet) Add(caller, identity string) error {
	if caller != a.owner {
		return Errorf(Unauthorized, "only the owner may grant admin rights")
	}

	if identity == "" {
		return Errorf(InvalidInput, "cannot grant admin rights to an empty identity")
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.admins[identity] = true
	return nil
}

// Remove revokes the admin capability from the identity. Only the owner may
// revoke, and the owner cannot revoke itself, so the set can never become
// unadministerable.
func (a *AdminSet) Remove(caller, identity string) error {
	if caller != a.owner {
		return Errorf(Unauthorized, "only the owner may revoke admin rights")
	}

	if identity == caller {
		return Errorf(SelfRemovalDenied, "the owner cannot revoke its own admin rights")
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.admins, identity)
	return nil
}

// Count returns the number of identities holding the admin capability.
func (a *AdminSet) Count() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.admins)
}
