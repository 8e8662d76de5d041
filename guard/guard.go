// Package guard blocks privileged scopes from reaching principals that only hold the base role.
package guard

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jrsteele09/social-auth/clients"
	"github.com/jrsteele09/social-auth/internal/utils"
	"github.com/jrsteele09/social-auth/oauth2"
	"github.com/jrsteele09/social-auth/scopes"
)

// DefaultBaseRole is the role held by every ordinary user.
const DefaultBaseRole = "ROLE_USER"

// ErrScopeEscalation is wrapped by the access_denied error returned from Check.
var ErrScopeEscalation = errors.New("privileged scopes requested for a base role principal")

// Principal is either Anonymous or Authenticated.
type Principal interface {
	principal()
}

// Anonymous is the principal before the user has logged in.
type Anonymous struct{}

// Authenticated is a resolved user identity.
type Authenticated struct {
	Name  string
	Roles []string
}

func (Anonymous) principal()     {}
func (Authenticated) principal() {}

func (a Authenticated) IdentitySubject() string { return a.Name }
func (a Authenticated) IdentityRoles() []string { return a.Roles }

func (a Authenticated) HasRole(role string) bool {
	return utils.Contains(a.Roles, role)
}

// RequestContext is what the guard looks at when a code is requested.
type RequestContext struct {
	Principal Principal
	Client    *clients.Client
}

type Guard struct {
	catalog  scopes.Catalog
	baseRole string
}

func New(catalog scopes.Catalog, baseRole string) *Guard {
	if baseRole == "" {
		baseRole = DefaultBaseRole
	}
	return &Guard{catalog: catalog, baseRole: baseRole}
}

// Check returns an access_denied *oauth2.Error when an authenticated principal holding the base
// role asks for a client authorized for any privileged scope. Anonymous principals always pass;
// the check runs again once the user has logged in.
func (g *Guard) Check(rc RequestContext) error {
	var principal Authenticated
	switch p := rc.Principal.(type) {
	case Authenticated:
		principal = p
	case *Authenticated:
		if p == nil {
			return nil
		}
		principal = *p
	default:
		return nil
	}

	if !principal.HasRole(g.baseRole) || rc.Client == nil {
		return nil
	}

	privileged := g.catalog.PrivilegedIn(rc.Client.Scopes)
	if len(privileged) == 0 {
		return nil
	}
	return &oauth2.Error{
		Code: oauth2.ErrorAccessDenied,
		Description: fmt.Sprintf("client %s is authorized for privileged scopes (%s) that %s may not be granted",
			rc.Client.ClientID, strings.Join(privileged, " "), principal.Name),
		Err: ErrScopeEscalation,
	}
}
