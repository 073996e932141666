// Package idgen assigns a clientId to connections whose CONNECT packet
// arrived with an empty ClientID.
package idgen

import "github.com/google/uuid"

// New returns a freshly generated RFC 4122 v4 UUID, used verbatim as the
// assigned clientId returned in CONNACK's AssignedClientIdentifier
// property.
func New() string {
	return uuid.NewString()
}
