package odm

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAttributeName(t *testing.T) {
	tests := []struct {
		name  string
		a     string
		b     string
		equal bool
	}{
		{"same spelling", "mail", "mail", true},
		{"different case", "objectClass", "OBJECTCLASS", true},
		{"mixed case", "telephoneNumber", "TelephoneNumber", true},
		{"different names", "cn", "sn", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, b := NewAttributeName(tt.a), NewAttributeName(tt.b)

			assert.Equal(t, tt.equal, a.Equal(b))
			assert.Equal(t, tt.equal, a.Key() == b.Key())
			assert.Equal(t, tt.equal, a.Compare(b) == 0)
			assert.Equal(t, tt.a, a.String(), "original spelling is preserved")
		})
	}
}

func TestAttributeName_MapKey(t *testing.T) {
	values := map[AttributeKey]string{
		NewAttributeName("givenName").Key(): "Alice",
	}

	assert.Equal(t, "Alice", values[NewAttributeName("GIVENNAME").Key()])
	assert.Equal(t, "Alice", values[NewAttributeName("givenname").Key()])
}

func TestAttributeName_Compare(t *testing.T) {
	names := []AttributeName{
		NewAttributeName("sn"),
		NewAttributeName("CN"),
		NewAttributeName("mail"),
	}

	slices.SortFunc(names, AttributeName.Compare)

	assert.Equal(t, "CN", names[0].String())
	assert.Equal(t, "mail", names[1].String())
	assert.Equal(t, "sn", names[2].String())
}
