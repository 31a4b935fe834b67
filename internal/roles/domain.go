package roles

// Role is a named bundle of permissions assignable to a user. Definitions
// are managed outside this service; this core only resolves and assigns.
type Role struct {
	ID          int64
	Name        string
	Description string
}
