package models

// Principal is the authenticated account behind a request.
type Principal struct {
	Kind AccountKind `json:"kind"`
	ID   string      `json:"id"`
}

// Is reports whether the principal is the account kind/id pair.
func (p Principal) Is(kind AccountKind, id string) bool {
	return p.Kind == kind && p.ID == id
}
