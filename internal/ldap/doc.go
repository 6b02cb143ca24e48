/*
Package ldap provides the directory-side primitives used by the object-directory mapper.

# Names

Name is an immutable distinguished name parsed with go-ldap's RFC 4514 parser.
Components are indexed from the most specific one:

	dn := ldap.MustParseName("cn=Alice,ou=people,dc=example,dc=com")
	rdn, _ := dn.ValueAt(0)            // cn=Alice
	ou, _ := dn.ValueOf("OU")          // "people"
	child := dn.Append("uid", "alice") // uid=alice,cn=Alice,...

# Entries

Entry is an in-memory directory entry whose attribute names are matched
case-insensitively. Entries created with NewEntry describe objects not yet in
the directory and render as an AddRequest; entries wrapped with EntryFromLDAP
record changes and render them as a ModifyRequest:

	entry, err := ldap.EntryFromLDAP(result.Entries[0])
	if err != nil {
		return err
	}
	entry.SetStringValues("description", []string{"updated"})
	if req, changed := entry.ModifyRequest(); changed {
		err = conn.Modify(req)
	}

# Filters

Filters compose equality, presence and boolean operators; values are escaped
with ldap.EscapeFilter:

	f := ldap.And(ldap.Equals("objectClass", "person"), ldap.Equals("cn", "Alice*"))
	f.String() // (&(objectClass=person)(cn=Alice\2a))

# Active Directory values

GUIDFromBytes/GUIDToBytes handle the mixed-endian objectGUID layout and
SIDFromBytes decodes binary objectSid values.
*/
package ldap
