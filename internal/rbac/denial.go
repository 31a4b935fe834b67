package rbac

// DenialCode distinguishes gate outcomes for transport mapping.
type DenialCode string

const (
	// DenialNotFound signals that the target account does not exist.
	DenialNotFound DenialCode = "NOT_FOUND"
	// DenialForbidden signals a policy denial.
	DenialForbidden DenialCode = "FORBIDDEN"
	// DenialStorageFailure signals that the backing store rejected the
	// operation; reported as a denial rather than a fault so every
	// mutating call keeps the same "did not happen, here is why" shape.
	DenialStorageFailure DenialCode = "STORAGE_FAILURE"
)

// Denial is the value returned by the gate when a mutating operation must
// not proceed. It is a local, synchronous decision, not a fault: callers
// inspect it and decide the transport mapping themselves.
type Denial struct {
	Code    DenialCode
	Context string
	Message string
}

// Error lets a Denial travel through error-shaped plumbing when needed.
func (d *Denial) Error() string {
	if d.Context != "" {
		return string(d.Code) + ":" + d.Context + ": " + d.Message
	}
	return string(d.Code) + ": " + d.Message
}
