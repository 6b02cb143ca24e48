package ldap

import (
	"fmt"
	"strings"

	"github.com/go-ldap/ldap/v3"
)

// RDN is a single key=value component of a distinguished name.
type RDN struct {
	Key   string
	Value string
}

// String renders the component with its value escaped per RFC 4514.
func (r RDN) String() string {
	return r.Key + "=" + escapeRDNValue(r.Value)
}

// Name is an immutable distinguished name. Components are held in string order:
// index 0 is the most specific component (the leftmost one in "cn=a,ou=b,dc=c").
//
// Multi-valued RDNs ("cn=a+sn=b") are flattened by ParseName into consecutive
// components; Name is intended for the single-valued names the mapper builds.
type Name struct {
	rdns []RDN
}

// ParseName parses an RFC 4514 distinguished name. The empty string yields the empty Name.
func ParseName(dn string) (Name, error) {
	dn = strings.TrimSpace(dn)
	if dn == "" {
		return Name{}, nil
	}

	parsedDN, err := ldap.ParseDN(dn)
	if err != nil {
		return Name{}, fmt.Errorf("invalid DN syntax: %w", err)
	}

	var rdns []RDN
	for _, rdn := range parsedDN.RDNs {
		for _, attr := range rdn.Attributes {
			rdns = append(rdns, RDN{Key: attr.Type, Value: attr.Value})
		}
	}

	return Name{rdns: rdns}, nil
}

// MustParseName is like ParseName but panics if the DN cannot be parsed.
func MustParseName(dn string) Name {
	name, err := ParseName(dn)
	if err != nil {
		panic(err)
	}
	return name
}

// NewName builds a Name from components given most specific first.
func NewName(rdns ...RDN) Name {
	return Name{rdns: append([]RDN(nil), rdns...)}
}

// String renders the name in RFC 4514 form.
func (n Name) String() string {
	parts := make([]string, len(n.rdns))
	for i, rdn := range n.rdns {
		parts[i] = rdn.String()
	}
	return strings.Join(parts, ",")
}

// Normalized renders the name with upper-cased attribute types, matching
// Active Directory's canonical presentation.
func (n Name) Normalized() string {
	parts := make([]string, len(n.rdns))
	for i, rdn := range n.rdns {
		parts[i] = strings.ToUpper(rdn.Key) + "=" + escapeRDNValue(rdn.Value)
	}
	return strings.Join(parts, ",")
}

// Size returns the number of components.
func (n Name) Size() int {
	return len(n.rdns)
}

// IsEmpty reports whether the name has no components.
func (n Name) IsEmpty() bool {
	return len(n.rdns) == 0
}

// RDNs returns a copy of the components, most specific first.
func (n Name) RDNs() []RDN {
	return append([]RDN(nil), n.rdns...)
}

// Append returns a new name with key=value added as the most specific component.
func (n Name) Append(key, value string) Name {
	rdns := make([]RDN, 0, len(n.rdns)+1)
	rdns = append(rdns, RDN{Key: key, Value: value})
	rdns = append(rdns, n.rdns...)
	return Name{rdns: rdns}
}

// ValueAt returns the value of the component at position i, counting from the
// most specific component.
func (n Name) ValueAt(i int) (RDN, bool) {
	if i < 0 || i >= len(n.rdns) {
		return RDN{}, false
	}
	return n.rdns[i], true
}

// ValueOf returns the value of the first (most specific) component whose key
// matches key case-insensitively.
func (n Name) ValueOf(key string) (string, bool) {
	for _, rdn := range n.rdns {
		if strings.EqualFold(rdn.Key, key) {
			return rdn.Value, true
		}
	}
	return "", false
}

// Parent returns the name without its most specific component.
func (n Name) Parent() (Name, error) {
	if len(n.rdns) == 0 {
		return Name{}, fmt.Errorf("DN has no parent: %q", n.String())
	}
	return Name{rdns: append([]RDN(nil), n.rdns[1:]...)}, nil
}

// Equal compares names case-insensitively in both keys and values.
func (n Name) Equal(other Name) bool {
	if len(n.rdns) != len(other.rdns) {
		return false
	}
	for i := range n.rdns {
		if !strings.EqualFold(n.rdns[i].Key, other.rdns[i].Key) ||
			!strings.EqualFold(n.rdns[i].Value, other.rdns[i].Value) {
			return false
		}
	}
	return true
}

// IsDescendantOf reports whether n lies strictly below ancestor.
func (n Name) IsDescendantOf(ancestor Name) bool {
	if len(n.rdns) <= len(ancestor.rdns) {
		return false
	}
	tail := Name{rdns: n.rdns[len(n.rdns)-len(ancestor.rdns):]}
	return tail.Equal(ancestor)
}

// escapeRDNValue escapes an attribute value according to RFC 4514: the
// characters , + " \ < > ; always, # when leading, spaces when leading or
// trailing, and NUL as \00.
func escapeRDNValue(value string) string {
	if value == "" {
		return value
	}

	var b strings.Builder
	b.Grow(len(value) + 8)

	last := len(value) - 1
	for i := 0; i < len(value); i++ {
		c := value[i]
		switch {
		case c == ',' || c == '+' || c == '"' || c == '\\' || c == '<' || c == '>' || c == ';':
			b.WriteByte('\\')
			b.WriteByte(c)
		case c == '#' && i == 0:
			b.WriteString("\\#")
		case c == ' ' && (i == 0 || i == last):
			b.WriteString("\\ ")
		case c == 0:
			b.WriteString("\\00")
		default:
			b.WriteByte(c)
		}
	}

	return b.String()
}
