package odm

import "strings"

// AttributeKey is the case-folded identity of an attribute name, suitable as a map key.
type AttributeKey string

// AttributeName is an attribute name that compares case-insensitively. The
// original spelling is kept for writing.
type AttributeName struct {
	name string
	key  AttributeKey
}

// NewAttributeName wraps name.
func NewAttributeName(name string) AttributeName {
	return AttributeName{name: name, key: AttributeKey(strings.ToUpper(name))}
}

// String returns the name as declared.
func (a AttributeName) String() string {
	return a.name
}

// Key returns the case-folded identity.
func (a AttributeName) Key() AttributeKey {
	return a.key
}

// Equal reports whether both names are the same ignoring case.
func (a AttributeName) Equal(other AttributeName) bool {
	return a.key == other.key
}

// Compare orders names case-insensitively.
func (a AttributeName) Compare(other AttributeName) int {
	return strings.Compare(string(a.key), string(other.key))
}
