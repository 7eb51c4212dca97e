package core

type Role string

const (
	RoleAdmin       Role = "admin"
	RoleParent      Role = "parent"
	RoleParticipant Role = "participant"
)

// Actor is the authenticated identity on whose behalf an operation runs.
type Actor struct {
	ID        string `json:"id"`
	Name      string `json:"name,omitempty"`
	Role      Role   `json:"role"`
	SessionID string `json:"-"`
}

func (a Actor) IsAdmin() bool       { return a.Role == RoleAdmin }
func (a Actor) IsParent() bool      { return a.Role == RoleParent }
func (a Actor) IsParticipant() bool { return a.Role == RoleParticipant }

// IsZero reports whether no identity is attached.
func (a Actor) IsZero() bool { return a.ID == "" }

// RequireRole returns an AuthorizationError when the Actor does not hold the given role.
func (a Actor) RequireRole(role Role, reason string) error {
	if a.IsZero() || a.Role != role {
		return NewAuthorizationError(a, reason)
	}
	return nil
}
