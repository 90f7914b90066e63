package id

import (
	"crypto/rand"

	"github.com/oklog/ulid/v2"
)

// New generates a new ULID string. ULIDs are lexicographically sortable
// by creation time; visit ids use them as DynamoDB partition keys and Redis key suffixes.
func New() string {
	return ulid.MustNew(ulid.Now(), rand.Reader).String()
}
