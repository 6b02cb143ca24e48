package ldap

import (
	"fmt"

	"github.com/bwmarrin/go-objectsid"
)

// SIDFromBytes converts a binary objectSid value to its S-1-5-21-... form.
func SIDFromBytes(raw []byte) (string, error) {
	// revision, sub-authority count, 6-byte identifier authority
	if len(raw) < 8 {
		return "", fmt.Errorf("invalid SID byte length: %d", len(raw))
	}
	if want := 8 + 4*int(raw[1]); len(raw) != want {
		return "", fmt.Errorf("invalid SID byte length: expected %d, got %d", want, len(raw))
	}

	sid := objectsid.Decode(raw)
	return sid.String(), nil
}
