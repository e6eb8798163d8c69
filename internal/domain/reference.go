package domain

import (
	"crypto/rand"
	"encoding/hex"
	"strings"
)

// NewReference returns PREFIX-XXXXXXXXXXXXXXXX built from 8 random bytes.
func NewReference(prefix string) string {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		panic("crypto/rand unavailable: " + err.Error())
	}
	return prefix + "-" + strings.ToUpper(hex.EncodeToString(b[:]))
}
