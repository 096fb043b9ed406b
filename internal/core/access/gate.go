// Package access decides whether a viewer may edit a resource.
package access

import "errors"

var (
	// ErrNotAuthenticated is returned when the viewer has no valid session.
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrNotOwner is returned when the viewer is authenticated but does not own the resource.
	ErrNotOwner = errors.New("not the owner")
)

// Viewer is the authentication state the gate consults.
// *session.Session satisfies it.
type Viewer interface {
	IsAuthenticated() bool
	CurrentUserID() (string, bool)
}

// CanEdit reports whether viewer is authenticated and owns the resource owned by ownerID.
// An empty ownerID is never owned.
func CanEdit(viewer Viewer, ownerID string) bool {
	return AuthorizeEdit(viewer, ownerID) == nil
}

// AuthorizeEdit is CanEdit with the denial reason.
func AuthorizeEdit(viewer Viewer, ownerID string) error {
	if viewer == nil || !viewer.IsAuthenticated() {
		return ErrNotAuthenticated
	}
	id, ok := viewer.CurrentUserID()
	if !ok || id == "" {
		return ErrNotAuthenticated
	}
	if ownerID == "" || id != ownerID {
		return ErrNotOwner
	}
	return nil
}
