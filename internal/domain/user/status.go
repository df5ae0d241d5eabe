package user

// Status is the lifecycle state of an account.
type Status string

const (
	StatusNew      Status = "NEW"
	StatusActive   Status = "ACTIVE"
	StatusInactive Status = "INACTIVE"
	StatusDeleted  Status = "DELETED"
)

// CanAuthenticate reports whether a user in this status may hold a live session.
func (s Status) CanAuthenticate() bool {
	return s == StatusNew || s == StatusActive
}
