package rbac

// Permission represents an atomic capability from the catalog. Entries with
// Allowed unset exist in the catalog but are excluded from every grant
// operation.
type Permission struct {
	ID      int64
	Name    string
	Allowed bool
}

// Principal describes the authenticated actor.
type Principal interface {
	GetID() int64
	IsSuperUser() bool
}

// Subject is the target account of a gated operation as the gate sees it.
type Subject struct {
	ID    int64
	Admin bool
}
