package user

// Identity is the trusted view of the caller, derived from a verified token
// and the current user record. It is never built from client-supplied input.
type Identity struct {
	UserID      string        `json:"-"`
	ExternalID  string        `json:"userId"`
	Email       string        `json:"email"`
	Name        string        `json:"name"`
	Role        Role          `json:"role"`
	Status      Status        `json:"status"`
	ClientID    string        `json:"-"`
	Permissions PermissionSet `json:"permissions"`
	PropertyIDs []string      `json:"-"`
	Subscribed  bool          `json:"isSubscribed"`
	Token       string        `json:"-"`
}

// HasRole reports whether the identity holds any of the given roles.
func (id Identity) HasRole(roles ...Role) bool {
	for _, r := range roles {
		if id.Role == r {
			return true
		}
	}
	return false
}

// Can reports whether the identity may perform an action guarded by p.
// Client owners hold every permission implicitly.
func (id Identity) Can(p Permission) bool {
	if id.Role == RoleClient {
		return true
	}
	return id.Permissions.Has(p)
}

// CoversProperty reports whether propertyID is within the identity's staff scope.
// Clients cover every property of their own client.
func (id Identity) CoversProperty(propertyID string) bool {
	if id.Role == RoleClient {
		return true
	}
	for _, p := range id.PropertyIDs {
		if p == propertyID {
			return true
		}
	}
	return false
}

// IdentityFromUser builds an Identity from a freshly loaded user record.
func IdentityFromUser(u *User, subscribed bool, token string) Identity {
	perms := u.Permissions
	if perms == nil {
		perms = PermissionSet{}
	}
	return Identity{
		UserID:      u.ID,
		ExternalID:  u.ExternalID,
		Email:       u.Email,
		Name:        u.Name,
		Role:        u.Role,
		Status:      u.Status,
		ClientID:    u.ClientID,
		Permissions: perms,
		PropertyIDs: u.PropertyIDs,
		Subscribed:  subscribed,
		Token:       token,
	}
}
