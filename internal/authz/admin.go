package authz

import (
	"strings"

	"github.com/kollabhq/kollab/internal/store"
)

// AdminSet is the configured system-admin override: principals listed by id
// or email are treated as owner on every workspace for routes that opt in.
type AdminSet struct {
	ids    map[string]bool
	emails map[string]bool
}

// NewAdminSet builds an AdminSet from the configured id and email lists.
// Emails match case-insensitively.
func NewAdminSet(ids, emails []string) AdminSet {
	s := AdminSet{
		ids:    make(map[string]bool, len(ids)),
		emails: make(map[string]bool, len(emails)),
	}
	for _, id := range ids {
		if id != "" {
			s.ids[id] = true
		}
	}
	for _, email := range emails {
		if email != "" {
			s.emails[strings.ToLower(email)] = true
		}
	}
	return s
}

// Contains reports whether the principal is a system admin.
func (s AdminSet) Contains(p *store.Principal) bool {
	if p == nil {
		return false
	}
	return s.ids[p.ID.String()] || s.emails[strings.ToLower(p.Email)]
}

// Empty reports whether no admins are configured.
func (s AdminSet) Empty() bool {
	return len(s.ids) == 0 && len(s.emails) == 0
}
