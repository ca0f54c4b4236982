// Package issuer tracks registered issuer organizations. Consumed by the
// excluded admin layer; the core only guarantees DID uniqueness per issuer.
package issuer

import (
	"time"

	"github.com/google/uuid"
)

// Issuer is a registered credential issuer and its issuing DID.
type Issuer struct {
	ID        uuid.UUID
	Name      string
	DID       string
	CreatedAt time.Time
}
