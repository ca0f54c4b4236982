// Package user holds the user records DIDs may be owned by. The core only
// needs existence checks; account management lives in the excluded admin
// layer.
package user

import (
	"time"

	"github.com/google/uuid"
)

// User is the owning principal of a DID.
type User struct {
	ID        uuid.UUID
	Email     string
	FullName  string
	CreatedAt time.Time
}
