// Package policy holds the ownership guard applied before any single-resource
// read or mutation.
package policy

import (
	"fmt"

	"taskhub/internal/apperr"
	"taskhub/internal/model"
)

// Owned is a resource scoped to exactly one user.
type Owned interface {
	OwnerID() int64
}

// CanAccess reports whether principal owns resource.
func CanAccess(resource Owned, principal *model.User) bool {
	if resource == nil || principal == nil {
		return false
	}
	return resource.OwnerID() == principal.ID
}

// Authorize returns nil when principal may perform action on resource.
// A missing principal is Unauthenticated, a foreign resource is Forbidden.
func Authorize(principal *model.User, resource Owned, action, resourceName string) error {
	if principal == nil {
		return apperr.Unauthenticated("")
	}
	if !CanAccess(resource, principal) {
		return apperr.Forbidden(fmt.Sprintf("Unauthorized to %s this %s.", action, resourceName))
	}
	return nil
}

// RequirePrincipal is the check list and create operations run instead of
// Authorize.
func RequirePrincipal(principal *model.User) error {
	if principal == nil {
		return apperr.Unauthenticated("")
	}
	return nil
}
