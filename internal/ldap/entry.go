package ldap

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/go-ldap/ldap/v3"
)

// ObjectClassAttribute is the attribute holding an entry's schema classes.
const ObjectClassAttribute = "objectClass"

// Attribute is a named, possibly multi-valued directory attribute. Values are
// kept as raw bytes; text attributes hold their UTF-8 encoding.
type Attribute struct {
	Name   string
	Values [][]byte
}

// StringValues returns the attribute values as strings.
func (a *Attribute) StringValues() []string {
	values := make([]string, len(a.Values))
	for i, v := range a.Values {
		values[i] = string(v)
	}
	return values
}

// Entry is an in-memory directory entry: a distinguished name plus a bag of
// attributes looked up case-insensitively. Entries loaded from a search result
// track which attributes changed so they can be rendered as a ModifyRequest.
type Entry struct {
	dn       Name
	attrs    []*Attribute
	index    map[string]int
	existing bool
	changed  map[string]bool
}

// NewEntry creates an empty entry for an object that does not exist in the directory yet.
func NewEntry(dn Name) *Entry {
	return &Entry{
		dn:      dn,
		index:   make(map[string]int),
		changed: make(map[string]bool),
	}
}

// EntryFromLDAP wraps a search result entry. The returned entry is marked as
// existing: subsequent writes are recorded as modifications.
func EntryFromLDAP(entry *ldap.Entry) (*Entry, error) {
	if entry == nil {
		return nil, fmt.Errorf("LDAP entry cannot be nil")
	}

	dn, err := ParseName(entry.DN)
	if err != nil {
		return nil, fmt.Errorf("failed to parse entry DN %q: %w", entry.DN, err)
	}

	e := NewEntry(dn)
	for _, attr := range entry.Attributes {
		values := attr.ByteValues
		if len(values) == 0 && len(attr.Values) > 0 {
			values = make([][]byte, len(attr.Values))
			for i, v := range attr.Values {
				values[i] = []byte(v)
			}
		}
		e.put(attr.Name, cloneValues(values))
	}
	e.existing = true

	return e, nil
}

func cloneValues(values [][]byte) [][]byte {
	if values == nil {
		return nil
	}
	cloned := make([][]byte, len(values))
	for i, v := range values {
		cloned[i] = bytes.Clone(v)
	}
	return cloned
}

func attributeKey(name string) string {
	return strings.ToLower(name)
}

func (e *Entry) put(name string, values [][]byte) {
	key := attributeKey(name)
	if i, ok := e.index[key]; ok {
		e.attrs[i].Values = values
		return
	}
	e.index[key] = len(e.attrs)
	e.attrs = append(e.attrs, &Attribute{Name: name, Values: values})
}

// DN returns the entry's distinguished name.
func (e *Entry) DN() Name {
	return e.dn
}

// SetDN replaces the entry's distinguished name.
func (e *Entry) SetDN(dn Name) {
	e.dn = dn
}

// Existing reports whether the entry was loaded from the directory.
func (e *Entry) Existing() bool {
	return e.existing
}

// Attributes returns copies of the entry's attributes in insertion order.
// Removed attributes are omitted.
func (e *Entry) Attributes() []*Attribute {
	attrs := make([]*Attribute, 0, len(e.attrs))
	for _, attr := range e.attrs {
		if len(attr.Values) == 0 {
			continue
		}
		attrs = append(attrs, &Attribute{Name: attr.Name, Values: cloneValues(attr.Values)})
	}
	return attrs
}

// AttributeNames returns the names of all attributes currently holding values.
func (e *Entry) AttributeNames() []string {
	var names []string
	for _, attr := range e.attrs {
		if len(attr.Values) > 0 {
			names = append(names, attr.Name)
		}
	}
	return names
}

// Values returns a copy of the raw values of the named attribute, or nil if absent.
func (e *Entry) Values(name string) [][]byte {
	if i, ok := e.index[attributeKey(name)]; ok {
		return cloneValues(e.attrs[i].Values)
	}
	return nil
}

// StringValues returns the values of the named attribute as strings.
func (e *Entry) StringValues(name string) []string {
	values := e.Values(name)
	if values == nil {
		return nil
	}
	result := make([]string, len(values))
	for i, v := range values {
		result[i] = string(v)
	}
	return result
}

// ObjectClasses returns the values of the objectClass attribute.
func (e *Entry) ObjectClasses() []string {
	return e.StringValues(ObjectClassAttribute)
}

// SetValues replaces the values of the named attribute with a copy of values.
// A nil or empty slice removes the attribute.
func (e *Entry) SetValues(name string, values [][]byte) {
	key := attributeKey(name)
	previous := e.Values(name)

	if len(values) == 0 {
		if i, ok := e.index[key]; ok {
			if e.existing {
				e.attrs[i].Values = nil
			} else {
				e.remove(key)
			}
		}
		if len(previous) > 0 {
			e.changed[key] = true
		}
		return
	}

	e.put(name, cloneValues(values))
	if !sameValues(previous, values) {
		e.changed[key] = true
	}
}

// SetStringValues is SetValues for text attributes.
func (e *Entry) SetStringValues(name string, values []string) {
	if len(values) == 0 {
		e.SetValues(name, nil)
		return
	}
	raw := make([][]byte, len(values))
	for i, v := range values {
		raw[i] = []byte(v)
	}
	e.SetValues(name, raw)
}

// Remove deletes the named attribute.
func (e *Entry) Remove(name string) {
	e.SetValues(name, nil)
}

func (e *Entry) remove(key string) {
	i := e.index[key]
	e.attrs = append(e.attrs[:i], e.attrs[i+1:]...)
	delete(e.index, key)
	for k, pos := range e.index {
		if pos > i {
			e.index[k] = pos - 1
		}
	}
}

// Changed reports whether the named attribute was modified since the entry was loaded or created.
func (e *Entry) Changed(name string) bool {
	return e.changed[attributeKey(name)]
}

// AddRequest renders the entry as an LDAP add request.
func (e *Entry) AddRequest() *ldap.AddRequest {
	req := ldap.NewAddRequest(e.dn.String(), nil)
	for _, attr := range e.attrs {
		if len(attr.Values) == 0 {
			continue
		}
		req.Attribute(attr.Name, attr.StringValues())
	}
	return req
}

// ModifyRequest renders the changes recorded on an existing entry. The boolean
// is false when nothing changed.
func (e *Entry) ModifyRequest() (*ldap.ModifyRequest, bool) {
	req := ldap.NewModifyRequest(e.dn.String(), nil)
	for _, attr := range e.attrs {
		if !e.changed[attributeKey(attr.Name)] {
			continue
		}
		if len(attr.Values) == 0 {
			req.Delete(attr.Name, []string{})
			continue
		}
		req.Replace(attr.Name, attr.StringValues())
	}
	return req, len(req.Changes) > 0
}

func sameValues(a, b [][]byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !bytes.Equal(a[i], b[i]) {
			return false
		}
	}
	return true
}
