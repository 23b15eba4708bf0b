package domain

import "github.com/google/uuid"

// Identity is the authenticated subject of a request, resolved from a verified
// token. It is not persisted by the task core.
type Identity struct {
	ID    uuid.UUID `json:"id"`
	Email string    `json:"email,omitempty"`
}

// IsZero reports whether the identity is unset.
func (i Identity) IsZero() bool {
	return i.ID == uuid.Nil
}
