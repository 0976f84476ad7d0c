package broker

import (
	"encoding/base64"

	"github.com/google/uuid"
)

// NewClusterID returns a random cluster identifier in the broker's own
// format: the 22-character unpadded base64url encoding of a random UUID,
// the same form the distribution's random-uuid helper produces.
func NewClusterID() string {
	id := uuid.New()
	return base64.RawURLEncoding.EncodeToString(id[:])
}
