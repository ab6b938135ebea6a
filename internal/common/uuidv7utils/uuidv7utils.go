package uuidv7utils

import (
	"encoding/binary"
	"time"

	"github.com/google/uuid"
)

// UUID7 returns a new UUIDv7, or a random UUID if the clock based generator fails.
func UUID7() uuid.UUID {
	u, err := uuid.NewV7()
	if err != nil {
		return uuid.New()
	}
	return u
}

// Timestamp extracts the creation time of a UUIDv7. The zero time is returned for
// other versions.
func Timestamp(u uuid.UUID) time.Time {
	if u.Version() != 7 {
		return time.Time{}
	}
	tsMillis := binary.BigEndian.Uint64(u[0:8]) >> 16 // top 48 bits are unix milliseconds
	return time.UnixMilli(int64(tsMillis))
}
