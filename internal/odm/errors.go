package odm

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
)

// ErrorKind represents the different categories of mapping errors.
type ErrorKind string

const (
	// ErrorKindDescriptor: the type declaration violates a structural rule.
	ErrorKindDescriptor ErrorKind = "descriptor"
	// ErrorKindConversionUnavailable: a required converter pair is missing.
	ErrorKindConversionUnavailable ErrorKind = "conversion_unavailable"
	// ErrorKindMapping: a concrete value failed to convert or could not be assigned.
	ErrorKindMapping ErrorKind = "mapping"
	// ErrorKindMalformedEntry: an entry presented for reading has no object classes.
	ErrorKindMalformedEntry ErrorKind = "malformed_entry"
)

// ErrUnknownField is returned when a field name does not exist on a mapped type.
var ErrUnknownField = errors.New("unknown field")

// MappingError provides context for failures of the object-directory mapper.
type MappingError struct {
	Kind      ErrorKind    // Error category
	Type      reflect.Type // Mapped type involved
	Field     string       // Go field name, if applicable
	Attribute string       // Directory attribute name, if applicable
	Message   string       // Human-readable cause
	Cause     error        // Underlying error
}

func (e *MappingError) Error() string {
	var parts []string

	if e.Type != nil {
		parts = append(parts, fmt.Sprintf("%s error on %s", e.Kind, e.Type))
	} else {
		parts = append(parts, fmt.Sprintf("%s error", e.Kind))
	}

	if e.Field != "" {
		parts = append(parts, fmt.Sprintf("field %s", e.Field))
	}

	if e.Attribute != "" {
		parts = append(parts, fmt.Sprintf("attribute %s", e.Attribute))
	}

	if e.Message != "" {
		parts = append(parts, e.Message)
	}

	msg := strings.Join(parts, " - ")
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *MappingError) Unwrap() error {
	return e.Cause
}

func descriptorError(t reflect.Type, field, format string, args ...any) *MappingError {
	return &MappingError{
		Kind:    ErrorKindDescriptor,
		Type:    t,
		Field:   field,
		Message: fmt.Sprintf(format, args...),
	}
}

func mappingError(t reflect.Type, attr *AttributeDescriptor, message string, cause error) *MappingError {
	err := &MappingError{
		Kind:    ErrorKindMapping,
		Type:    t,
		Message: message,
		Cause:   cause,
	}
	if attr != nil {
		err.Field = attr.Field
		err.Attribute = attr.Name.String()
	}
	return err
}

// GetErrorKind returns the kind of a mapping error, or "" for other errors.
func GetErrorKind(err error) ErrorKind {
	var mappingErr *MappingError
	if errors.As(err, &mappingErr) {
		return mappingErr.Kind
	}
	return ""
}

// IsDescriptorError checks if an error reports an invalid type declaration.
func IsDescriptorError(err error) bool {
	return GetErrorKind(err) == ErrorKindDescriptor
}

// IsConversionUnavailable checks if an error reports a missing converter.
func IsConversionUnavailable(err error) bool {
	return GetErrorKind(err) == ErrorKindConversionUnavailable
}

// IsMappingFailure checks if an error reports a per-call conversion or assignment failure.
func IsMappingFailure(err error) bool {
	return GetErrorKind(err) == ErrorKindMapping
}

// IsMalformedEntry checks if an error reports an entry without object classes.
func IsMalformedEntry(err error) bool {
	return GetErrorKind(err) == ErrorKindMalformedEntry
}
