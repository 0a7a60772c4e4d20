package models

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
)

const (
	UserIDPrefix = "U"
	PostIDPrefix = "P"
)

const idAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// NewID builds a short human-readable id: prefix, the last four digits of
// the millisecond clock, then two random base36 characters (e.g. P4821QZ).
func NewID(prefix string, now time.Time) string {
	millis := now.UnixMilli() % 10000
	if millis < 0 {
		millis = -millis
	}
	suffix := make([]byte, 2)
	for i := range suffix {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(idAlphabet))))
		if err != nil {
			n = big.NewInt(now.UnixNano() % int64(len(idAlphabet)))
		}
		suffix[i] = idAlphabet[n.Int64()]
	}
	return fmt.Sprintf("%s%04d%s", prefix, millis, suffix)
}
