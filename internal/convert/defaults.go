package convert

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/isometry/ldapodm/internal/ldap"
)

// SyntaxSID marks binary values holding a Windows security identifier.
const SyntaxSID = "sid"

// GeneralizedTimeLayout is the layout used when writing time values.
const GeneralizedTimeLayout = "20060102150405Z"

// generalizedTimeParseLayout accepts "Z" or a numeric zone and, when parsing,
// an optional fractional second ("20240101120000.0Z").
const generalizedTimeParseLayout = "20060102150405Z0700"

var (
	stringType = reflect.TypeFor[string]()
	bytesType  = reflect.TypeFor[[]byte]()
	boolType   = reflect.TypeFor[bool]()
	timeType   = reflect.TypeFor[time.Time]()
	nameType   = reflect.TypeFor[ldap.Name]()
	uuidType   = reflect.TypeFor[uuid.UUID]()

	intTypes = []reflect.Type{
		reflect.TypeFor[int](), reflect.TypeFor[int8](), reflect.TypeFor[int16](),
		reflect.TypeFor[int32](), reflect.TypeFor[int64](),
	}
	uintTypes = []reflect.Type{
		reflect.TypeFor[uint](), reflect.TypeFor[uint8](), reflect.TypeFor[uint16](),
		reflect.TypeFor[uint32](), reflect.TypeFor[uint64](),
	}
	floatTypes = []reflect.Type{reflect.TypeFor[float32](), reflect.TypeFor[float64]()}
)

func registerDefaults(m *Manager) {
	for _, t := range intTypes {
		m.Register(stringType, "", t, parseInt(t))
		m.Register(t, "", stringType, func(v any) (any, error) {
			return strconv.FormatInt(reflect.ValueOf(v).Int(), 10), nil
		})
	}

	for _, t := range uintTypes {
		m.Register(stringType, "", t, parseUint(t))
		m.Register(t, "", stringType, func(v any) (any, error) {
			return strconv.FormatUint(reflect.ValueOf(v).Uint(), 10), nil
		})
	}

	for _, t := range floatTypes {
		m.Register(stringType, "", t, parseFloat(t))
		m.Register(t, "", stringType, func(v any) (any, error) {
			return strconv.FormatFloat(reflect.ValueOf(v).Float(), 'g', -1, t.Bits()), nil
		})
	}

	m.Register(stringType, "", boolType, func(v any) (any, error) {
		s := strings.TrimSpace(v.(string))
		switch {
		case strings.EqualFold(s, "TRUE"):
			return true, nil
		case strings.EqualFold(s, "FALSE"):
			return false, nil
		}
		return strconv.ParseBool(s)
	})
	m.Register(boolType, "", stringType, func(v any) (any, error) {
		if v.(bool) {
			return "TRUE", nil
		}
		return "FALSE", nil
	})

	m.Register(stringType, "", timeType, func(v any) (any, error) {
		return time.Parse(generalizedTimeParseLayout, strings.TrimSpace(v.(string)))
	})
	m.Register(timeType, "", stringType, func(v any) (any, error) {
		return v.(time.Time).UTC().Format(GeneralizedTimeLayout), nil
	})

	m.Register(stringType, "", nameType, func(v any) (any, error) {
		return ldap.ParseName(v.(string))
	})
	m.Register(nameType, "", stringType, func(v any) (any, error) {
		return v.(ldap.Name).String(), nil
	})

	m.Register(stringType, "", uuidType, func(v any) (any, error) {
		return uuid.Parse(strings.TrimSpace(v.(string)))
	})
	m.Register(uuidType, "", stringType, func(v any) (any, error) {
		return v.(uuid.UUID).String(), nil
	})

	m.Register(stringType, "", bytesType, func(v any) (any, error) {
		return []byte(v.(string)), nil
	})
	m.Register(bytesType, "", stringType, func(v any) (any, error) {
		return string(v.([]byte)), nil
	})

	m.Register(bytesType, "", uuidType, func(v any) (any, error) {
		return ldap.GUIDFromBytes(v.([]byte))
	})
	m.Register(uuidType, "", bytesType, func(v any) (any, error) {
		return ldap.GUIDToBytes(v.(uuid.UUID)), nil
	})

	// SIDs are read-only: there is no encoder for the text form.
	m.Register(bytesType, SyntaxSID, stringType, func(v any) (any, error) {
		return ldap.SIDFromBytes(v.([]byte))
	})
}

func parseInt(t reflect.Type) Func {
	return func(v any) (any, error) {
		n, err := strconv.ParseInt(strings.TrimSpace(v.(string)), 10, t.Bits())
		if err != nil {
			return nil, fmt.Errorf("invalid integer: %w", err)
		}
		return reflect.ValueOf(n).Convert(t).Interface(), nil
	}
}

func parseUint(t reflect.Type) Func {
	return func(v any) (any, error) {
		n, err := strconv.ParseUint(strings.TrimSpace(v.(string)), 10, t.Bits())
		if err != nil {
			return nil, fmt.Errorf("invalid unsigned integer: %w", err)
		}
		return reflect.ValueOf(n).Convert(t).Interface(), nil
	}
}

func parseFloat(t reflect.Type) Func {
	return func(v any) (any, error) {
		f, err := strconv.ParseFloat(strings.TrimSpace(v.(string)), t.Bits())
		if err != nil {
			return nil, fmt.Errorf("invalid number: %w", err)
		}
		return reflect.ValueOf(f).Convert(t).Interface(), nil
	}
}
