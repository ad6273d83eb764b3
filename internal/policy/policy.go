// Package policy holds the pure authorization decisions. Handlers and
// services consult it instead of re-checking roles inline.
package policy

import "newsdesk/internal/domain"

// CanMutate reports whether the principal may update or delete the news item.
// Only the author or an admin may mutate.
func CanMutate(p domain.Principal, n domain.News) bool {
	return p.ID == n.AuthorID || p.IsAdmin()
}

// CanCreate reports whether the principal may create a news item. The
// admin-gated entry point requires the admin role; the self-service entry
// point is open to any authenticated principal.
func CanCreate(p domain.Principal, adminOnly bool) bool {
	if adminOnly {
		return p.IsAdmin()
	}
	return true
}

// CanListUsers reports whether the principal may enumerate all users.
func CanListUsers(p domain.Principal) bool {
	return p.IsAdmin()
}
