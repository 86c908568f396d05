package domain

// Principal is the verified identity of the caller of a request.
type Principal struct {
	// Subject is the token subject (the user's email).
	Subject string
	UserID  string
	Role    Role
}

// IsAdmin reports whether the principal holds the admin role.
func (p *Principal) IsAdmin() bool {
	return p != nil && p.Role == RoleAdmin
}
