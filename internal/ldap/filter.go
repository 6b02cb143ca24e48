package ldap

import (
	"fmt"
	"strings"

	"github.com/go-ldap/ldap/v3"
)

// Filter is an LDAP search filter that renders to RFC 4515 string form.
type Filter interface {
	String() string
}

// EqualsFilter matches entries where Attribute has Value.
type EqualsFilter struct {
	Attribute string
	Value     string
}

// Equals returns an equality filter.
func Equals(attribute, value string) EqualsFilter {
	return EqualsFilter{Attribute: attribute, Value: value}
}

func (f EqualsFilter) String() string {
	return fmt.Sprintf("(%s=%s)", f.Attribute, ldap.EscapeFilter(f.Value))
}

// PresentFilter matches entries carrying any value for Attribute.
type PresentFilter struct {
	Attribute string
}

func (f PresentFilter) String() string {
	return fmt.Sprintf("(%s=*)", f.Attribute)
}

// RawFilter is a pre-rendered filter string, used as given.
type RawFilter string

func (f RawFilter) String() string {
	s := strings.TrimSpace(string(f))
	if s != "" && !strings.HasPrefix(s, "(") {
		return "(" + s + ")"
	}
	return s
}

// AndFilter is the conjunction of its operands.
type AndFilter struct {
	Filters []Filter
}

// And combines filters with logical AND. Nested conjunctions are flattened and
// nil operands are dropped; a single remaining operand is returned unchanged.
func And(filters ...Filter) Filter {
	var flat []Filter
	for _, f := range filters {
		switch v := f.(type) {
		case nil:
			continue
		case AndFilter:
			flat = append(flat, v.Filters...)
		case *AndFilter:
			if v != nil {
				flat = append(flat, v.Filters...)
			}
		default:
			flat = append(flat, f)
		}
	}
	if len(flat) == 1 {
		return flat[0]
	}
	return AndFilter{Filters: flat}
}

func (f AndFilter) String() string {
	return composite('&', f.Filters)
}

// OrFilter is the disjunction of its operands.
type OrFilter struct {
	Filters []Filter
}

// Or combines filters with logical OR.
func Or(filters ...Filter) Filter {
	var operands []Filter
	for _, f := range filters {
		if f != nil {
			operands = append(operands, f)
		}
	}
	if len(operands) == 1 {
		return operands[0]
	}
	return OrFilter{Filters: operands}
}

func (f OrFilter) String() string {
	return composite('|', f.Filters)
}

// NotFilter negates its operand.
type NotFilter struct {
	Filter Filter
}

// Not negates a filter.
func Not(f Filter) NotFilter {
	return NotFilter{Filter: f}
}

func (f NotFilter) String() string {
	return "(!" + f.Filter.String() + ")"
}

func composite(op byte, filters []Filter) string {
	var b strings.Builder
	b.WriteByte('(')
	b.WriteByte(op)
	for _, f := range filters {
		b.WriteString(f.String())
	}
	b.WriteByte(')')
	return b.String()
}

// ValidateFilter checks that a filter compiles to a well-formed LDAP filter.
func ValidateFilter(f Filter) error {
	if f == nil {
		return fmt.Errorf("filter cannot be nil")
	}
	if _, err := ldap.CompileFilter(f.String()); err != nil {
		return fmt.Errorf("invalid filter %q: %w", f.String(), err)
	}
	return nil
}
