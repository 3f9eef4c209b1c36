package domain

// Role defines a member's permission level within an organization
type Role string

const (
	RoleOwner  Role = "owner"  // Billing, members, connections
	RoleAdmin  Role = "admin"  // Members, connections
	RoleEditor Role = "editor" // Create and edit content
	RoleViewer Role = "viewer" // Read only
)

// Membership links a user to an organization with a role
type Membership struct {
	OrganizationID string `json:"organization_id"`
	UserID         string `json:"user_id"`
	Role           Role   `json:"role"`
}

// IsValid reports whether the role is one of the known roles.
func (r Role) IsValid() bool {
	switch r {
	case RoleOwner, RoleAdmin, RoleEditor, RoleViewer:
		return true
	}
	return false
}

// CanManageConnections checks if the role can create or remove provider connections
func (r Role) CanManageConnections() bool {
	return r == RoleOwner || r == RoleAdmin
}

// CanViewConnections checks if the role can list provider connections
func (r Role) CanViewConnections() bool {
	return r.IsValid()
}
