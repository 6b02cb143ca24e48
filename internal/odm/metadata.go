package odm

import (
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/isometry/ldapodm/internal/ldap"
)

// Meta is embedded in a mapped struct to declare its object classes and base DN:
//
//	type Person struct {
//		odm.Meta `objectclass:"top,person" base:"ou=people,dc=example,dc=com"`
//
//		DN   ldap.Name `ldap:",id"`
//		Name string    `ldap:"cn,dn,index=0"`
//		Mail []string  `ldap:"mail"`
//	}
//
// Without Meta the object class defaults to the Go type name.
type Meta struct{}

// Role classifies how a field takes part in mapping.
type Role int

const (
	RoleRegular Role = iota
	RoleIdentifier
	RoleTransient
	RoleDNComponent
	RoleObjectClass
)

func (r Role) String() string {
	switch r {
	case RoleRegular:
		return "regular"
	case RoleIdentifier:
		return "identifier"
	case RoleTransient:
		return "transient"
	case RoleDNComponent:
		return "dn_component"
	case RoleObjectClass:
		return "object_class"
	default:
		return "unknown"
	}
}

// Multiplicity distinguishes single from multi-valued attributes.
type Multiplicity int

const (
	SingleValued Multiplicity = iota
	MultiValued
)

// UnindexedDNComponent marks a DN component field without an explicit position.
const UnindexedDNComponent = -1

var (
	metaType  = reflect.TypeFor[Meta]()
	nameType  = reflect.TypeFor[ldap.Name]()
	bytesType = reflect.TypeFor[[]byte]()
	strType   = reflect.TypeFor[string]()
)

// AttributeDescriptor describes one field's directory mapping.
type AttributeDescriptor struct {
	Field        string        // Go field name
	Name         AttributeName // Directory attribute name
	Syntax       string        // Syntax hint passed to the converter
	Binary       bool          // Values are raw bytes
	ReadOnly     bool          // Read from the directory, never written
	Multiplicity Multiplicity
	Role         Role
	ElementType  reflect.Type // Scalar value type, pointer and slice stripped
	DNIndex      int          // Position for DN components, UnindexedDNComponent otherwise

	index     []int
	elemIsPtr bool
}

// IsMultiValued reports whether the field is a collection.
func (a *AttributeDescriptor) IsMultiValued() bool {
	return a.Multiplicity == MultiValued
}

// NativeType is the directory-side representation handed to the converter.
func (a *AttributeDescriptor) NativeType() reflect.Type {
	if a.Binary {
		return bytesType
	}
	return strType
}

// TypeDescriptor is the immutable mapping schema extracted from a struct type.
type TypeDescriptor struct {
	Type          reflect.Type
	ObjectClasses []AttributeName
	Base          ldap.Name

	attributes  []*AttributeDescriptor
	byField     map[string]*AttributeDescriptor
	id          *AttributeDescriptor
	objectClass *AttributeDescriptor
	dnParts     []*AttributeDescriptor
	dnIndexed   bool
}

// Attributes returns all field descriptors in declaration order.
func (d *TypeDescriptor) Attributes() []*AttributeDescriptor {
	return append([]*AttributeDescriptor(nil), d.attributes...)
}

// Attribute returns the descriptor of a Go field.
func (d *TypeDescriptor) Attribute(field string) (*AttributeDescriptor, bool) {
	a, ok := d.byField[field]
	return a, ok
}

// Identifier returns the identifier field descriptor.
func (d *TypeDescriptor) Identifier() *AttributeDescriptor {
	return d.id
}

// ObjectClassField returns the object-class marker field, or nil if the type has none.
func (d *TypeDescriptor) ObjectClassField() *AttributeDescriptor {
	return d.objectClass
}

// DNComponents returns the DN component fields, ordered by index when indexed.
func (d *TypeDescriptor) DNComponents() []*AttributeDescriptor {
	return append([]*AttributeDescriptor(nil), d.dnParts...)
}

// DNIndexed reports whether every DN component carries an explicit index, which
// is required for automatic DN calculation.
func (d *TypeDescriptor) DNIndexed() bool {
	return d.dnIndexed
}

// ObjectClassNames returns the declared object classes as strings.
func (d *TypeDescriptor) ObjectClassNames() []string {
	names := make([]string, len(d.ObjectClasses))
	for i, oc := range d.ObjectClasses {
		names[i] = oc.String()
	}
	return names
}

func (d *TypeDescriptor) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s objectClasses=%v base=%q", d.Type, d.ObjectClassNames(), d.Base.String())
	for _, a := range d.attributes {
		fmt.Fprintf(&b, "\n  %s -> %s role=%s", a.Field, a.Name, a.Role)
		if a.IsMultiValued() {
			b.WriteString(" multi")
		}
		if a.Binary {
			b.WriteString(" binary")
		}
		if a.ReadOnly {
			b.WriteString(" readonly")
		}
		if a.Role == RoleDNComponent && a.DNIndex != UnindexedDNComponent {
			fmt.Fprintf(&b, " index=%d", a.DNIndex)
		}
	}
	return b.String()
}

// fieldTag holds the parsed field-level mapping options.
type fieldTag struct {
	name      string
	id        bool
	dn        bool
	dnIndex   int
	binary    bool
	readOnly  bool
	transient bool
	syntax    string
}

func parseFieldTag(t reflect.Type, field, tag string) (fieldTag, error) {
	parsed := fieldTag{dnIndex: UnindexedDNComponent}
	if tag == "-" {
		parsed.transient = true
		return parsed, nil
	}

	parts := strings.Split(tag, ",")
	parsed.name = strings.TrimSpace(parts[0])

	for _, opt := range parts[1:] {
		opt = strings.TrimSpace(opt)
		key, value, hasValue := strings.Cut(opt, "=")
		switch key {
		case "":
			continue
		case "id":
			parsed.id = true
		case "dn":
			parsed.dn = true
		case "index":
			n, err := strconv.Atoi(value)
			if !hasValue || err != nil || n < 0 {
				return parsed, descriptorError(t, field, "invalid DN index %q", value)
			}
			parsed.dnIndex = n
		case "binary":
			parsed.binary = true
		case "readonly":
			parsed.readOnly = true
		case "transient":
			parsed.transient = true
		case "syntax":
			if !hasValue || value == "" {
				return parsed, descriptorError(t, field, "syntax option requires a value")
			}
			parsed.syntax = value
		default:
			return parsed, descriptorError(t, field, "unknown tag option %q", opt)
		}
	}

	if parsed.dnIndex != UnindexedDNComponent && !parsed.dn {
		return parsed, descriptorError(t, field, "index option requires dn")
	}

	return parsed, nil
}

// extractDescriptor builds the descriptor for struct type t. Extraction is
// all-or-nothing: any violation returns a descriptor error and no descriptor.
func extractDescriptor(t reflect.Type, config *Config) (*TypeDescriptor, error) {
	if t.Kind() != reflect.Struct {
		return nil, descriptorError(t, "", "mapped types must be structs, got %s", t.Kind())
	}

	d := &TypeDescriptor{
		Type:    t,
		byField: make(map[string]*AttributeDescriptor),
	}

	if err := readTypeDeclaration(t, d); err != nil {
		return nil, err
	}

	byName := make(map[AttributeKey]*AttributeDescriptor)

	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if f.Type == metaType || !f.IsExported() {
			continue
		}

		a, err := describeField(t, f, config)
		if err != nil {
			return nil, err
		}

		switch a.Role {
		case RoleIdentifier:
			if d.id != nil {
				return nil, descriptorError(t, f.Name, "duplicate identifier: %s is already the identifier", d.id.Field)
			}
			d.id = a
		case RoleObjectClass:
			d.objectClass = a
		case RoleDNComponent:
			d.dnParts = append(d.dnParts, a)
		}

		if a.Role != RoleIdentifier && a.Role != RoleTransient {
			if other, ok := byName[a.Name.Key()]; ok {
				return nil, descriptorError(t, f.Name, "attribute %s is already mapped by field %s", a.Name, other.Field)
			}
			byName[a.Name.Key()] = a
		}

		d.attributes = append(d.attributes, a)
		d.byField[a.Field] = a
	}

	if d.id == nil {
		return nil, descriptorError(t, "", "no identifier field; tag a ldap.Name field with `ldap:\",id\"`")
	}

	if err := checkDNComponents(t, d); err != nil {
		return nil, err
	}

	return d, nil
}

func readTypeDeclaration(t reflect.Type, d *TypeDescriptor) error {
	var classes []string
	var base string

	if f, ok := findMeta(t); ok {
		for _, oc := range strings.Split(f.Tag.Get("objectclass"), ",") {
			if oc = strings.TrimSpace(oc); oc != "" {
				classes = append(classes, oc)
			}
		}
		base = f.Tag.Get("base")
	}

	if len(classes) == 0 {
		classes = []string{t.Name()}
	}

	seen := make(map[AttributeKey]bool)
	for _, oc := range classes {
		name := NewAttributeName(oc)
		if seen[name.Key()] {
			continue
		}
		seen[name.Key()] = true
		d.ObjectClasses = append(d.ObjectClasses, name)
	}

	baseName, err := ldap.ParseName(base)
	if err != nil {
		return descriptorError(t, "", "invalid base DN %q: %v", base, err)
	}
	d.Base = baseName

	return nil
}

func findMeta(t reflect.Type) (reflect.StructField, bool) {
	for i := 0; i < t.NumField(); i++ {
		if f := t.Field(i); f.Anonymous && f.Type == metaType {
			return f, true
		}
	}
	return reflect.StructField{}, false
}

func describeField(t reflect.Type, f reflect.StructField, config *Config) (*AttributeDescriptor, error) {
	tag, err := parseFieldTag(t, f.Name, f.Tag.Get(config.TagKey))
	if err != nil {
		return nil, err
	}

	a := &AttributeDescriptor{
		Field:    f.Name,
		Name:     NewAttributeName(f.Name),
		Syntax:   tag.syntax,
		ReadOnly: tag.readOnly,
		DNIndex:  UnindexedDNComponent,
		index:    f.Index,
	}
	if tag.name != "" {
		a.Name = NewAttributeName(tag.name)
	}

	if tag.transient {
		a.Role = RoleTransient
		a.ElementType = f.Type
		return a, nil
	}

	if err := classifyType(t, f, a); err != nil {
		return nil, err
	}

	a.Binary = tag.binary || config.isBinaryAttribute(a.Name.String()) || a.ElementType == bytesType
	isObjectClass := strings.EqualFold(a.Name.String(), config.ObjectClassAttribute)

	switch {
	case tag.id:
		if tag.name != "" || tag.dn || isObjectClass {
			return nil, descriptorError(t, f.Name, "identifier field cannot also be an attribute")
		}
		if f.Type != nameType {
			return nil, descriptorError(t, f.Name, "identifier field must be of type ldap.Name, got %s", f.Type)
		}
		a.Role = RoleIdentifier

	case isObjectClass:
		if tag.dn {
			return nil, descriptorError(t, f.Name, "object class field cannot be a DN component")
		}
		if !a.IsMultiValued() || a.ElementType != strType || a.elemIsPtr {
			return nil, descriptorError(t, f.Name, "object class field must be []string, got %s", f.Type)
		}
		a.Role = RoleObjectClass

	case tag.dn:
		if a.IsMultiValued() || a.ElementType.Kind() != reflect.String {
			return nil, descriptorError(t, f.Name, "DN component field must be a string, got %s", f.Type)
		}
		a.Role = RoleDNComponent
		a.DNIndex = tag.dnIndex

	default:
		a.Role = RoleRegular
	}

	return a, nil
}

// classifyType determines multiplicity and element type. Slices are the only
// collection kind: maps would collapse the duplicate values an attribute may hold.
func classifyType(t reflect.Type, f reflect.StructField, a *AttributeDescriptor) error {
	ft := f.Type

	switch {
	case ft == bytesType:
		a.Multiplicity = SingleValued
		a.ElementType = ft

	case ft.Kind() == reflect.Slice:
		a.Multiplicity = MultiValued
		elem := ft.Elem()
		if elem.Kind() == reflect.Pointer {
			a.elemIsPtr = true
			elem = elem.Elem()
		}
		if elem.Kind() == reflect.Interface {
			return descriptorError(t, f.Name, "cannot determine element type of %s", ft)
		}
		if elem.Kind() == reflect.Slice && elem != bytesType {
			return descriptorError(t, f.Name, "nested collections are not supported: %s", ft)
		}
		a.ElementType = elem

	case ft.Kind() == reflect.Map:
		return descriptorError(t, f.Name, "set-like type %s is not supported; attributes may hold duplicate values, use a slice", ft)

	case ft.Kind() == reflect.Pointer:
		a.Multiplicity = SingleValued
		a.elemIsPtr = true
		a.ElementType = ft.Elem()

	case ft.Kind() == reflect.Interface:
		return descriptorError(t, f.Name, "cannot determine value type of %s", ft)

	default:
		a.Multiplicity = SingleValued
		a.ElementType = ft
	}

	if a.ElementType.Kind() == reflect.Interface {
		return descriptorError(t, f.Name, "cannot determine value type of %s", ft)
	}

	return nil
}

// checkDNComponents enforces all-or-nothing indexing and orders indexed components.
func checkDNComponents(t reflect.Type, d *TypeDescriptor) error {
	if len(d.dnParts) == 0 {
		return nil
	}

	indexed := 0
	for _, a := range d.dnParts {
		if a.DNIndex != UnindexedDNComponent {
			indexed++
		}
	}

	if indexed == 0 {
		return nil
	}
	if indexed != len(d.dnParts) {
		return descriptorError(t, "", "DN components must be either all indexed or all unindexed")
	}

	sort.SliceStable(d.dnParts, func(i, j int) bool {
		return d.dnParts[i].DNIndex < d.dnParts[j].DNIndex
	})
	for i := 1; i < len(d.dnParts); i++ {
		if d.dnParts[i].DNIndex == d.dnParts[i-1].DNIndex {
			return descriptorError(t, d.dnParts[i].Field, "DN index %d is already used by field %s",
				d.dnParts[i].DNIndex, d.dnParts[i-1].Field)
		}
	}
	d.dnIndexed = true

	return nil
}
