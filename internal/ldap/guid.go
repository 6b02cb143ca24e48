package ldap

import (
	"fmt"

	"github.com/google/uuid"
)

// GUIDBytesLength is the size of a binary objectGUID value.
const GUIDBytesLength = 16

// Active Directory stores objectGUID in mixed-endian order: the first three
// groups (Data1..Data3) little-endian, the last 8 bytes (Data4) big-endian.
// swapGUIDOrder converts between that layout and RFC 4122 byte order; the
// permutation is its own inverse.
func swapGUIDOrder(src []byte) []byte {
	dst := make([]byte, GUIDBytesLength)

	dst[0], dst[1], dst[2], dst[3] = src[3], src[2], src[1], src[0]
	dst[4], dst[5] = src[5], src[4]
	dst[6], dst[7] = src[7], src[6]
	copy(dst[8:], src[8:])

	return dst
}

// GUIDFromBytes decodes a binary objectGUID value.
func GUIDFromBytes(raw []byte) (uuid.UUID, error) {
	if len(raw) != GUIDBytesLength {
		return uuid.Nil, fmt.Errorf("invalid GUID byte length: expected %d, got %d", GUIDBytesLength, len(raw))
	}

	id, err := uuid.FromBytes(swapGUIDOrder(raw))
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to decode GUID: %w", err)
	}
	return id, nil
}

// GUIDToBytes encodes a GUID in objectGUID wire order.
func GUIDToBytes(id uuid.UUID) []byte {
	return swapGUIDOrder(id[:])
}
