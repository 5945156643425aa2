package xid

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

// New returns an opaque identifier for audit rows and request tracing.
func New(prefix string) string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
	}
	return fmt.Sprintf("%s-%d-%s", prefix, time.Now().UnixNano(), hex.EncodeToString(buf))
}

// BillNumber formats a human-facing bill number, e.g. AM-SALE-20240315-0007.
func BillNumber(prefix string, date time.Time, seq int) string {
	return fmt.Sprintf("%s-%s-%04d", prefix, date.UTC().Format("20060102"), seq)
}
