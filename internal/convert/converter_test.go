package convert

import (
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/isometry/ldapodm/internal/ldap"
)

type status string

type level int

func TestManager_ConvertFromString(t *testing.T) {
	m := NewManager()

	tests := []struct {
		name     string
		input    string
		to       reflect.Type
		expected any
	}{
		{"int", "42", reflect.TypeFor[int](), 42},
		{"int64 negative", "-7", reflect.TypeFor[int64](), int64(-7)},
		{"uint16", "65535", reflect.TypeFor[uint16](), uint16(65535)},
		{"float64", "2.5", reflect.TypeFor[float64](), 2.5},
		{"bool upper", "TRUE", reflect.TypeFor[bool](), true},
		{"bool lower", "false", reflect.TypeFor[bool](), false},
		{"string identity", "Alice", reflect.TypeFor[string](), "Alice"},
		{"named string", "active", reflect.TypeFor[status](), status("active")},
		{"named int", "3", reflect.TypeFor[level](), level(3)},
		{"bytes", "raw", reflect.TypeFor[[]byte](), []byte("raw")},
		{
			"uuid",
			"12345678-1234-5678-9abc-def012345678",
			reflect.TypeFor[uuid.UUID](),
			uuid.MustParse("12345678-1234-5678-9abc-def012345678"),
		},
		{
			"generalized time",
			"20240102030405Z",
			reflect.TypeFor[time.Time](),
			time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.True(t, m.CanConvert(reflect.TypeFor[string](), "", tt.to))

			got, err := m.Convert(tt.input, "", tt.to)
			require.NoError(t, err)

			if expected, ok := tt.expected.(time.Time); ok {
				assert.True(t, expected.Equal(got.(time.Time)), "got %v", got)
				return
			}
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestManager_ConvertToString(t *testing.T) {
	m := NewManager()

	tests := []struct {
		name     string
		input    any
		expected string
	}{
		{"int", 42, "42"},
		{"uint8", uint8(7), "7"},
		{"float32", float32(1.5), "1.5"},
		{"bool", true, "TRUE"},
		{"named string", status("locked"), "locked"},
		{"named int", level(9), "9"},
		{"time in UTC", time.Date(2024, 1, 2, 4, 4, 5, 0, time.FixedZone("CET", 3600)), "20240102030405Z"},
		{"name", ldap.MustParseName("cn=Alice,dc=example"), "cn=Alice,dc=example"},
		{"uuid", uuid.MustParse("12345678-1234-5678-9abc-def012345678"), "12345678-1234-5678-9abc-def012345678"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := m.Convert(tt.input, "", reflect.TypeFor[string]())
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestManager_ParseTimeWithFraction(t *testing.T) {
	m := NewManager()

	got, err := m.Convert("20240102030405.5Z", "", reflect.TypeFor[time.Time]())
	require.NoError(t, err)
	assert.Equal(t, 500*time.Millisecond, time.Duration(got.(time.Time).Nanosecond()))
}

func TestManager_GUIDBinary(t *testing.T) {
	m := NewManager()
	id := uuid.MustParse("12345678-1234-5678-9abc-def012345678")

	raw, err := m.Convert(id, "", reflect.TypeFor[[]byte]())
	require.NoError(t, err)
	assert.Equal(t, ldap.GUIDToBytes(id), raw)

	back, err := m.Convert(raw, "", reflect.TypeFor[uuid.UUID]())
	require.NoError(t, err)
	assert.Equal(t, id, back)
}

func TestManager_SIDIsReadOnly(t *testing.T) {
	m := NewManager()
	bytesT := reflect.TypeFor[[]byte]()
	stringT := reflect.TypeFor[string]()

	raw := []byte{1, 2, 0, 0, 0, 0, 0, 5, 32, 0, 0, 0, 32, 2, 0, 0}

	sid, err := m.Convert(raw, SyntaxSID, stringT)
	require.NoError(t, err)
	assert.Equal(t, "S-1-5-32-544", sid)

	// Without the syntax hint binary values convert as raw text.
	text, err := m.Convert([]byte("abc"), "", stringT)
	require.NoError(t, err)
	assert.Equal(t, "abc", text)

	// The text form has no binary encoder under the SID syntax; the
	// syntax-less fallback applies instead.
	assert.True(t, m.CanConvert(stringT, SyntaxSID, bytesT))
}

func TestManager_SyntaxSpecificOverridesFallback(t *testing.T) {
	m := NewManager()
	stringT := reflect.TypeFor[string]()

	m.Register(stringT, "1.3.6.1.4.1.1466.115.121.1.44", stringT, func(v any) (any, error) {
		return strings.ToUpper(v.(string)), nil
	})

	got, err := m.Convert("printable", "1.3.6.1.4.1.1466.115.121.1.44", stringT)
	require.NoError(t, err)
	assert.Equal(t, "PRINTABLE", got)

	got, err = m.Convert("printable", "", stringT)
	require.NoError(t, err)
	assert.Equal(t, "printable", got)
}

func TestManager_MissingConversion(t *testing.T) {
	m := NewEmptyManager()
	stringT := reflect.TypeFor[string]()
	intT := reflect.TypeFor[int]()

	assert.True(t, m.CanConvert(stringT, "", stringT), "identity is always available")
	assert.False(t, m.CanConvert(stringT, "", intT))
	assert.False(t, m.CanConvert(nil, "", intT))

	_, err := m.Convert("1", "", intT)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoConverter)

	var convErr *ConversionError
	require.True(t, errors.As(err, &convErr))
	assert.Equal(t, stringT, convErr.From)
	assert.Equal(t, intT, convErr.To)
}

func TestManager_ConversionFailure(t *testing.T) {
	m := NewManager()

	tests := []struct {
		name  string
		input string
		to    reflect.Type
	}{
		{"not a number", "forty-two", reflect.TypeFor[int]()},
		{"overflow", "300", reflect.TypeFor[int8]()},
		{"negative unsigned", "-1", reflect.TypeFor[uint]()},
		{"not a bool", "maybe", reflect.TypeFor[bool]()},
		{"not a time", "yesterday", reflect.TypeFor[time.Time]()},
		{"not a uuid", "xyz", reflect.TypeFor[uuid.UUID]()},
		{"not a DN", "no-equals-sign", reflect.TypeFor[ldap.Name]()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.Convert(tt.input, "", tt.to)
			require.Error(t, err)

			var convErr *ConversionError
			require.True(t, errors.As(err, &convErr))
			assert.NotErrorIs(t, err, ErrNoConverter)
			assert.Equal(t, tt.input, convErr.Value)
		})
	}
}

func TestManager_NilValue(t *testing.T) {
	_, err := NewManager().Convert(nil, "", reflect.TypeFor[string]())
	assert.Error(t, err)
}

func TestConversionError_Error(t *testing.T) {
	err := &ConversionError{
		Syntax: SyntaxSID,
		From:   reflect.TypeFor[[]byte](),
		To:     reflect.TypeFor[string](),
		Cause:  errors.New("truncated"),
	}

	assert.Equal(t, "cannot convert []uint8 to string (syntax sid): truncated", err.Error())
}
