// Package scopes holds the catalog of capability scopes the authorization server can grant.
//
// Scopes are named resource.action (post.read, user.write). A subset of the catalog is
// privileged: those scopes expose moderation and administration endpoints and may only be
// granted to principals holding an elevated role.
package scopes

import (
	"regexp"
	"sort"
)

// AuthorityPrefix is prepended to a scope when it is compared against granted authorities.
const AuthorityPrefix = "SCOPE_"

// Ordinary scopes.
const (
	PostRead         = "post.read"
	PostWrite        = "post.write"
	UserRead         = "user.read"
	UserWrite        = "user.write"
	FollowRead       = "follow.read"
	FollowWrite      = "follow.write"
	LikeWrite        = "like.write"
	NotificationRead = "notification.read"
)

// Privileged scopes.
const (
	ReportRead   = "report.read"
	ReportWrite  = "report.write"
	UserDelete   = "user.delete"
	PostModerate = "post.moderate"
)

var namePattern = regexp.MustCompile(`^[a-z][a-z0-9_-]*\.[a-z][a-z0-9_-]*$`)

// Catalog is an immutable set of scopes partitioned into ordinary and privileged scopes.
// The zero value is an empty catalog.
type Catalog struct {
	ordinary   map[string]struct{}
	privileged map[string]struct{}
}

// NewCatalog builds a catalog. A scope listed in both sets is privileged.
func NewCatalog(ordinary, privileged []string) Catalog {
	c := Catalog{
		ordinary:   make(map[string]struct{}, len(ordinary)),
		privileged: make(map[string]struct{}, len(privileged)),
	}
	for _, s := range privileged {
		c.privileged[s] = struct{}{}
	}
	for _, s := range ordinary {
		if _, ok := c.privileged[s]; !ok {
			c.ordinary[s] = struct{}{}
		}
	}
	return c
}

// Default returns the catalog of the social-media API.
func Default() Catalog {
	return NewCatalog(
		[]string{PostRead, PostWrite, UserRead, UserWrite, FollowRead, FollowWrite, LikeWrite, NotificationRead},
		[]string{ReportRead, ReportWrite, UserDelete, PostModerate},
	)
}

func (c Catalog) Contains(scope string) bool {
	_, ordinary := c.ordinary[scope]
	return ordinary || c.IsPrivileged(scope)
}

func (c Catalog) IsPrivileged(scope string) bool {
	_, ok := c.privileged[scope]
	return ok
}

// All returns every scope of the catalog in sorted order.
func (c Catalog) All() []string {
	all := make([]string, 0, len(c.ordinary)+len(c.privileged))
	for s := range c.ordinary {
		all = append(all, s)
	}
	for s := range c.privileged {
		all = append(all, s)
	}
	sort.Strings(all)
	return all
}

// Privileged returns the privileged subset in sorted order.
func (c Catalog) Privileged() []string {
	privileged := make([]string, 0, len(c.privileged))
	for s := range c.privileged {
		privileged = append(privileged, s)
	}
	sort.Strings(privileged)
	return privileged
}

// PrivilegedIn returns the scopes of the given list that are privileged, preserving order.
func (c Catalog) PrivilegedIn(scopes []string) []string {
	var found []string
	for _, s := range scopes {
		if c.IsPrivileged(s) {
			found = append(found, s)
		}
	}
	return found
}

// Authority returns the authority name of a scope, e.g. SCOPE_post.read.
func Authority(scope string) string {
	return AuthorityPrefix + scope
}

func Authorities(scopes []string) []string {
	authorities := make([]string, 0, len(scopes))
	for _, s := range scopes {
		authorities = append(authorities, Authority(s))
	}
	return authorities
}

// ValidName reports whether scope follows the resource.action convention.
func ValidName(scope string) bool {
	return namePattern.MatchString(scope)
}
