package odm

import (
	"context"
	"fmt"
	"reflect"
	"time"

	"github.com/isometry/ldapodm/internal/convert"
	"github.com/isometry/ldapodm/internal/ldap"
)

// Mapper converts between directory entries and struct types declared with
// `ldap` tags. A Mapper owns its descriptor cache and is safe for concurrent use
// once configured.
type Mapper struct {
	config    *Config
	converter convert.ValueConverter
	logger    ldap.Logger
	cache     *descriptorCache
}

// NewMapper creates a mapper. A nil config uses DefaultConfig. Logs are written
// to stderr as configured by LDAPODM_LOG; use SetLogger to log through a
// provider context instead.
func NewMapper(config *Config) (*Mapper, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid mapper config: %w", err)
	}

	m := &Mapper{
		config:    config,
		converter: convert.NewManager(),
		logger:    ldap.NewTFLogger(ldap.NewRootContext(context.Background()), config.LogSubsystem),
	}
	m.cache = newDescriptorCache(m.buildType)

	return m, nil
}

// SetConverter replaces the value converter. Call before the mapper is shared.
func (m *Mapper) SetConverter(converter convert.ValueConverter) {
	m.converter = converter
}

// SetLogger replaces the logger. Call before the mapper is shared.
func (m *Mapper) SetLogger(logger ldap.Logger) {
	m.logger = logger
}

// Config returns the mapper configuration.
func (m *Mapper) Config() *Config {
	return m.config
}

func (m *Mapper) buildType(t reflect.Type) (*cachedType, error) {
	start := time.Now()

	d, err := extractDescriptor(t, m.config)
	if err != nil {
		m.logger.Error("Type descriptor extraction failed", map[string]any{
			"type":  t.String(),
			"error": err.Error(),
		})
		return nil, err
	}

	classes := make([]ldap.Filter, len(d.ObjectClasses))
	for i, oc := range d.ObjectClasses {
		classes[i] = ldap.Equals(m.config.ObjectClassAttribute, oc.String())
	}

	m.logger.Debug("Type descriptor extracted", map[string]any{
		"type":           t.String(),
		"object_classes": d.ObjectClassNames(),
		"attributes":     len(d.attributes),
		"duration_ms":    time.Since(start).Milliseconds(),
	})

	return &cachedType{descriptor: d, filter: ldap.And(classes...)}, nil
}

func (m *Mapper) lookup(t reflect.Type) (*cachedType, error) {
	cached, result, err := m.cache.getOrCreate(t)
	if err != nil {
		return nil, err
	}
	switch result {
	case cacheHit:
		m.logger.Trace("Type descriptor cache hit", map[string]any{"type": t.String()})
	case cacheRaced:
		m.logger.Debug("Type descriptor discarded, concurrent extraction published first", map[string]any{"type": t.String()})
	}
	return cached, nil
}

// Descriptor returns the cached descriptor for t (or the struct t points to),
// extracting it on first use.
func (m *Mapper) Descriptor(t reflect.Type) (*TypeDescriptor, error) {
	t, err := structType(t)
	if err != nil {
		return nil, err
	}
	cached, err := m.lookup(t)
	if err != nil {
		return nil, err
	}
	return cached.descriptor, nil
}

// Register computes the descriptor for the type of v (a struct, a pointer to
// one, or a reflect.Type), verifies converters are available and returns the
// attribute names the type reads and writes, object class first.
func (m *Mapper) Register(v any) ([]string, error) {
	if t, ok := v.(reflect.Type); ok {
		return m.RegisterType(t)
	}
	return m.RegisterType(reflect.TypeOf(v))
}

// MustRegister is like Register but panics on error. It is intended for
// package initialization of statically declared types.
func (m *Mapper) MustRegister(v any) []string {
	names, err := m.Register(v)
	if err != nil {
		panic(err)
	}
	return names
}

// RegisterType is Register for a reflect.Type.
func (m *Mapper) RegisterType(t reflect.Type) ([]string, error) {
	d, err := m.Descriptor(t)
	if err != nil {
		return nil, err
	}

	if m.config.ValidateConverters {
		fields := map[string]any{"type": d.Type.String()}
		if err := ldap.LogOperation(m.logger, "check_converters", fields, func() error {
			return m.checkConverters(d)
		}); err != nil {
			return nil, err
		}
	}

	names := []string{m.config.ObjectClassAttribute}
	seen := map[AttributeKey]bool{NewAttributeName(m.config.ObjectClassAttribute).Key(): true}
	for _, a := range d.attributes {
		if a.Role == RoleIdentifier || a.Role == RoleTransient || seen[a.Name.Key()] {
			continue
		}
		seen[a.Name.Key()] = true
		names = append(names, a.Name.String())
	}

	m.logger.Debug("Type registered", map[string]any{
		"type":       d.Type.String(),
		"attributes": names,
	})

	return names, nil
}

func (m *Mapper) checkConverters(d *TypeDescriptor) error {
	for _, a := range d.attributes {
		if a.Role == RoleIdentifier || a.Role == RoleTransient || a.Role == RoleObjectClass {
			continue
		}

		native := a.NativeType()
		if !m.converter.CanConvert(native, a.Syntax, a.ElementType) {
			return &MappingError{
				Kind:      ErrorKindConversionUnavailable,
				Type:      d.Type,
				Field:     a.Field,
				Attribute: a.Name.String(),
				Message:   fmt.Sprintf("no conversion from %s to %s", native, a.ElementType),
			}
		}
		if !a.ReadOnly && !m.converter.CanConvert(a.ElementType, a.Syntax, native) {
			return &MappingError{
				Kind:      ErrorKindConversionUnavailable,
				Type:      d.Type,
				Field:     a.Field,
				Attribute: a.Name.String(),
				Message:   fmt.Sprintf("no conversion from %s to %s; mark the field readonly if it is never written", a.ElementType, native),
			}
		}
	}
	return nil
}

// ToEntry writes the attributes of obj into entry. Object classes are written
// only when the entry has none (a new entry); an existing entry keeps its
// established classes. Null single values are written as removals; nil
// elements of collections are skipped, and a nil collection is left untouched.
func (m *Mapper) ToEntry(obj any, entry *ldap.Entry) error {
	if entry == nil {
		return fmt.Errorf("target entry cannot be nil")
	}

	v, err := structValue(obj)
	if err != nil {
		return err
	}
	cached, err := m.lookup(v.Type())
	if err != nil {
		return err
	}
	d := cached.descriptor

	if len(entry.Values(m.config.ObjectClassAttribute)) == 0 {
		entry.SetStringValues(m.config.ObjectClassAttribute, d.ObjectClassNames())
	}

	for _, a := range d.attributes {
		if a.Role == RoleIdentifier || a.Role == RoleTransient || a.Role == RoleObjectClass || a.ReadOnly {
			continue
		}

		fv := v.FieldByIndex(a.index)

		if !a.IsMultiValued() {
			if isNull(fv) {
				entry.SetValues(a.Name.String(), nil)
				continue
			}
			raw, err := m.toNative(d, a, deref(fv))
			if err != nil {
				return err
			}
			entry.SetValues(a.Name.String(), [][]byte{raw})
			continue
		}

		if fv.IsNil() {
			continue
		}
		values := make([][]byte, 0, fv.Len())
		for i := 0; i < fv.Len(); i++ {
			elem := fv.Index(i)
			if isNull(elem) {
				continue
			}
			raw, err := m.toNative(d, a, deref(elem))
			if err != nil {
				return err
			}
			values = append(values, raw)
		}
		entry.SetValues(a.Name.String(), values)
	}

	return nil
}

func (m *Mapper) toNative(d *TypeDescriptor, a *AttributeDescriptor, value reflect.Value) ([]byte, error) {
	converted, err := m.converter.Convert(value.Interface(), a.Syntax, a.NativeType())
	if err != nil {
		m.logger.Warn("Attribute conversion failed", map[string]any{
			"type":      d.Type.String(),
			"field":     a.Field,
			"attribute": a.Name.String(),
			"error":     err.Error(),
		})
		return nil, mappingError(d.Type, a, "failed to convert field value", err)
	}

	switch native := converted.(type) {
	case string:
		return []byte(native), nil
	case []byte:
		return native, nil
	default:
		return nil, mappingError(d.Type, a, fmt.Sprintf("converter returned %T, want %s", converted, a.NativeType()), nil)
	}
}

// FromEntry builds a new instance of t (returned as a pointer) from entry. The
// boolean is false, with a nil error, when the entry's object classes do not
// cover those declared by t. An entry without any object class is malformed.
func (m *Mapper) FromEntry(entry *ldap.Entry, t reflect.Type) (any, bool, error) {
	if entry == nil {
		return nil, false, fmt.Errorf("source entry cannot be nil")
	}

	t, err := structType(t)
	if err != nil {
		return nil, false, err
	}
	cached, err := m.lookup(t)
	if err != nil {
		return nil, false, err
	}
	d := cached.descriptor

	attributes := make(map[AttributeKey][][]byte)
	for _, attr := range entry.Attributes() {
		key := NewAttributeName(attr.Name).Key()
		attributes[key] = append(attributes[key], attr.Values...)
	}

	classes := attributes[NewAttributeName(m.config.ObjectClassAttribute).Key()]
	if len(classes) == 0 {
		return nil, false, &MappingError{
			Kind:    ErrorKindMalformedEntry,
			Type:    t,
			Message: fmt.Sprintf("entry %q has no %s values", entry.DN().String(), m.config.ObjectClassAttribute),
		}
	}

	present := make(map[AttributeKey]bool, len(classes))
	for _, oc := range classes {
		present[NewAttributeName(string(oc)).Key()] = true
	}
	for _, oc := range d.ObjectClasses {
		if !present[oc.Key()] {
			m.logger.Debug("Entry does not match type object classes", map[string]any{
				"type":     t.String(),
				"dn":       entry.DN().String(),
				"missing":  oc.String(),
				"declared": d.ObjectClassNames(),
			})
			return nil, false, nil
		}
	}

	ptr := reflect.New(t)
	v := ptr.Elem()
	dn := entry.DN()

	for _, a := range d.attributes {
		fv := v.FieldByIndex(a.index)

		switch a.Role {
		case RoleTransient:
			continue

		case RoleIdentifier:
			id, err := m.converter.Convert(dn, "", a.ElementType)
			if err != nil {
				return nil, false, mappingError(t, a, "failed to convert entry DN", err)
			}
			if err := assign(fv, a, id); err != nil {
				return nil, false, mappingError(t, a, "failed to set identifier", err)
			}

		case RoleDNComponent:
			value, ok := dnComponentValue(d, a, dn)
			if !ok {
				continue
			}
			converted, err := m.converter.Convert(value, a.Syntax, a.ElementType)
			if err != nil {
				return nil, false, mappingError(t, a, "failed to convert DN component", err)
			}
			if err := assign(fv, a, converted); err != nil {
				return nil, false, mappingError(t, a, "failed to set DN component", err)
			}

		default:
			raw := attributes[a.Name.Key()]
			if len(raw) == 0 {
				continue
			}
			if err := m.fromNative(d, a, fv, raw); err != nil {
				return nil, false, err
			}
		}
	}

	return ptr.Interface(), true, nil
}

func (m *Mapper) fromNative(d *TypeDescriptor, a *AttributeDescriptor, fv reflect.Value, raw [][]byte) error {
	convertOne := func(value []byte) (any, error) {
		var native any = string(value)
		if a.Binary {
			native = value
		}
		converted, err := m.converter.Convert(native, a.Syntax, a.ElementType)
		if err != nil {
			m.logger.Warn("Attribute conversion failed", map[string]any{
				"type":      d.Type.String(),
				"field":     a.Field,
				"attribute": a.Name.String(),
				"error":     err.Error(),
			})
			return nil, mappingError(d.Type, a, "failed to convert attribute value", err)
		}
		return converted, nil
	}

	if !a.IsMultiValued() {
		converted, err := convertOne(raw[0])
		if err != nil {
			return err
		}
		if err := assign(fv, a, converted); err != nil {
			return mappingError(d.Type, a, "failed to set field", err)
		}
		return nil
	}

	slice := reflect.MakeSlice(fv.Type(), len(raw), len(raw))
	for i, value := range raw {
		converted, err := convertOne(value)
		if err != nil {
			return err
		}
		if err := assign(slice.Index(i), a, converted); err != nil {
			return mappingError(d.Type, a, "failed to set collection element", err)
		}
	}
	if !fv.CanSet() {
		return mappingError(d.Type, a, "field is not settable", nil)
	}
	fv.Set(slice)
	return nil
}

// dnComponentValue extracts a DN component field's value from dn: by position
// when the type's components are indexed and the key at that position matches,
// otherwise the most specific component carrying the field's attribute name.
func dnComponentValue(d *TypeDescriptor, a *AttributeDescriptor, dn ldap.Name) (string, bool) {
	if d.dnIndexed {
		if rdn, ok := dn.ValueAt(a.DNIndex); ok && NewAttributeName(rdn.Key).Equal(a.Name) {
			return rdn.Value, true
		}
	}
	return dn.ValueOf(a.Name.String())
}

// CalculatedID builds the DN of obj from its indexed DN component fields
// beneath the type's base: index 0 is the most specific component. The boolean
// is false when the type's DN components are absent or not indexed.
func (m *Mapper) CalculatedID(obj any) (ldap.Name, bool, error) {
	v, err := structValue(obj)
	if err != nil {
		return ldap.Name{}, false, err
	}
	cached, err := m.lookup(v.Type())
	if err != nil {
		return ldap.Name{}, false, err
	}
	d := cached.descriptor

	if !d.dnIndexed || len(d.dnParts) == 0 {
		return ldap.Name{}, false, nil
	}

	name := d.Base
	for i := len(d.dnParts) - 1; i >= 0; i-- {
		a := d.dnParts[i]
		fv := v.FieldByIndex(a.index)
		if isNull(fv) {
			return ldap.Name{}, false, mappingError(d.Type, a, "cannot build DN component from a null value", nil)
		}
		name = name.Append(a.Name.String(), deref(fv).String())
	}

	return name, true, nil
}

// FilterFor returns the object-class filter of t, ANDed with extra when given.
func (m *Mapper) FilterFor(t reflect.Type, extra ldap.Filter) (ldap.Filter, error) {
	t, err := structType(t)
	if err != nil {
		return nil, err
	}
	cached, err := m.lookup(t)
	if err != nil {
		return nil, err
	}
	if extra == nil {
		return cached.filter, nil
	}
	return ldap.And(cached.filter, extra), nil
}

// AttributeNameFor returns the directory attribute mapped by a Go field of t.
func (m *Mapper) AttributeNameFor(t reflect.Type, field string) (string, error) {
	d, err := m.Descriptor(t)
	if err != nil {
		return "", err
	}
	a, ok := d.Attribute(field)
	if !ok {
		return "", fmt.Errorf("type %s has no field %q: %w", d.Type, field, ErrUnknownField)
	}
	return a.Name.String(), nil
}

// ID returns the value of obj's identifier field.
func (m *Mapper) ID(obj any) (ldap.Name, error) {
	v, err := structValue(obj)
	if err != nil {
		return ldap.Name{}, err
	}
	d, err := m.Descriptor(v.Type())
	if err != nil {
		return ldap.Name{}, err
	}
	return v.FieldByIndex(d.id.index).Interface().(ldap.Name), nil
}

// SetID sets obj's identifier field. obj must be a pointer to a struct.
func (m *Mapper) SetID(obj any, dn ldap.Name) error {
	pv := reflect.ValueOf(obj)
	if pv.Kind() != reflect.Pointer || pv.IsNil() {
		return fmt.Errorf("SetID requires a non-nil pointer, got %T", obj)
	}
	v, err := structValue(obj)
	if err != nil {
		return err
	}
	d, err := m.Descriptor(v.Type())
	if err != nil {
		return err
	}
	v.FieldByIndex(d.id.index).Set(reflect.ValueOf(dn))
	return nil
}

// NewEntryFor creates a new entry for obj, named by its calculated DN or,
// when the type cannot calculate one, by its identifier field.
func (m *Mapper) NewEntryFor(obj any) (*ldap.Entry, error) {
	dn, ok, err := m.CalculatedID(obj)
	if err != nil {
		return nil, err
	}
	if !ok {
		if dn, err = m.ID(obj); err != nil {
			return nil, err
		}
	}
	if dn.IsEmpty() {
		return nil, fmt.Errorf("cannot create entry for %T: no DN", obj)
	}

	entry := ldap.NewEntry(dn)
	if err := m.ToEntry(obj, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// Load reads entry into a new T. It returns nil, nil when the entry does not
// represent a T.
func Load[T any](m *Mapper, entry *ldap.Entry) (*T, error) {
	obj, ok, err := m.FromEntry(entry, reflect.TypeFor[T]())
	if err != nil || !ok {
		return nil, err
	}
	return obj.(*T), nil
}

// assign stores converted into fv, allocating when the field holds pointers.
func assign(fv reflect.Value, a *AttributeDescriptor, converted any) error {
	if !fv.CanSet() {
		return fmt.Errorf("field %s is not settable", a.Field)
	}

	rv := reflect.ValueOf(converted)
	if !rv.IsValid() {
		return fmt.Errorf("converter returned nil for %s", a.ElementType)
	}
	if rv.Type() != a.ElementType {
		if !rv.Type().ConvertibleTo(a.ElementType) {
			return fmt.Errorf("converter returned %s, want %s", rv.Type(), a.ElementType)
		}
		rv = rv.Convert(a.ElementType)
	}

	if a.elemIsPtr {
		p := reflect.New(a.ElementType)
		p.Elem().Set(rv)
		fv.Set(p)
		return nil
	}
	fv.Set(rv)
	return nil
}

// isNull reports whether a field or element value maps to no directory value:
// nil pointers and interfaces, empty strings and empty byte slices.
func isNull(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Pointer, reflect.Interface:
		if v.IsNil() {
			return true
		}
		return isNull(v.Elem())
	case reflect.Slice, reflect.String:
		return v.Len() == 0
	}
	return false
}

func deref(v reflect.Value) reflect.Value {
	for v.Kind() == reflect.Pointer {
		v = v.Elem()
	}
	return v
}

func structType(t reflect.Type) (reflect.Type, error) {
	if t == nil {
		return nil, fmt.Errorf("type cannot be nil")
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, descriptorError(t, "", "mapped types must be structs, got %s", t.Kind())
	}
	return t, nil
}

func structValue(obj any) (reflect.Value, error) {
	v := reflect.ValueOf(obj)
	for v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return reflect.Value{}, fmt.Errorf("object cannot be a nil pointer")
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return reflect.Value{}, fmt.Errorf("object must be a struct or pointer to struct, got %T", obj)
	}
	return v, nil
}
