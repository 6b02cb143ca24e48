/*
Package odm maps Go structs to and from directory entries.

A mapped type declares its object classes and base DN through an embedded Meta
field and describes each field with an `ldap` struct tag:

	type Person struct {
		odm.Meta `objectclass:"top,person,organizationalPerson" base:"dc=example,dc=com"`

		DN          ldap.Name `ldap:",id"`
		CommonName  string    `ldap:"cn,dn,index=0"`
		Unit        string    `ldap:"ou,dn,index=1"`
		Surname     string    `ldap:"sn"`
		Mail        []string  `ldap:"mail"`
		ObjectGUID  uuid.UUID `ldap:"objectGUID,readonly"`
		LastChecked time.Time `ldap:"-"`
	}

Field tag options:

  - name: attribute name, defaults to the field name
  - id: the identifier; the field must be an ldap.Name holding the entry DN
  - dn, index=N: a DN component; index 0 is the most specific component
  - binary: values are raw bytes
  - syntax=OID: syntax hint passed to the value converter
  - readonly: read but never written
  - transient, or the tag "-": not mapped

Slices are multi-valued attributes; []byte is a single binary value. A field
named objectClass receives the entry's object classes and must be []string.

The Mapper extracts a TypeDescriptor per type on first use and caches it for
its lifetime. Declaration mistakes are reported as descriptor errors, missing
converters as conversion-unavailable errors, both at registration; per-value
failures are mapping errors. Reading an entry whose object classes do not
cover the type's is not an error: FromEntry reports the object as absent.
*/
package odm
