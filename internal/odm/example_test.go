package odm_test

import (
	"fmt"
	"log"
	"reflect"

	goldap "github.com/go-ldap/ldap/v3"

	"github.com/isometry/ldapodm/internal/ldap"
	"github.com/isometry/ldapodm/internal/odm"
)

type Employee struct {
	odm.Meta `objectclass:"top,person,organizationalPerson" base:"ou=people,dc=example,dc=com"`

	DN      ldap.Name `ldap:",id"`
	Name    string    `ldap:"cn,dn,index=0"`
	Surname string    `ldap:"sn"`
	Mail    []string  `ldap:"mail"`
	Manager *string   `ldap:"manager"`
}

// ExampleMapper_NewEntryFor demonstrates rendering a new object as an LDAP add request.
func ExampleMapper_NewEntryFor() {
	mapper, err := odm.NewMapper(nil)
	if err != nil {
		log.Fatal(err)
	}

	entry, err := mapper.NewEntryFor(&Employee{
		Name:    "Alice",
		Surname: "Liddell",
		Mail:    []string{"alice@example.com"},
	})
	if err != nil {
		log.Fatal(err)
	}

	req := entry.AddRequest()
	fmt.Println(req.DN)
	for _, attr := range req.Attributes {
		fmt.Println(attr.Type, attr.Vals)
	}

	// Output:
	// cn=Alice,ou=people,dc=example,dc=com
	// objectClass [top person organizationalPerson]
	// cn [Alice]
	// sn [Liddell]
	// mail [alice@example.com]
}

// ExampleLoad demonstrates reading a search result entry and writing back a change.
func ExampleLoad() {
	mapper, err := odm.NewMapper(nil)
	if err != nil {
		log.Fatal(err)
	}

	// As returned by conn.Search
	result := goldap.NewEntry("cn=Alice,ou=people,dc=example,dc=com", map[string][]string{
		"objectClass": {"top", "person", "organizationalPerson", "inetOrgPerson"},
		"cn":          {"Alice"},
		"sn":          {"Liddell"},
		"manager":     {"cn=Bob,ou=people,dc=example,dc=com"},
	})

	entry, err := ldap.EntryFromLDAP(result)
	if err != nil {
		log.Fatal(err)
	}

	employee, err := odm.Load[Employee](mapper, entry)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(employee.Name, employee.Surname, *employee.Manager)

	employee.Manager = nil
	if err := mapper.ToEntry(employee, entry); err != nil {
		log.Fatal(err)
	}

	if req, changed := entry.ModifyRequest(); changed {
		for _, change := range req.Changes {
			fmt.Println(change.Operation, change.Modification.Type)
		}
	}

	// Output:
	// Alice Liddell cn=Bob,ou=people,dc=example,dc=com
	// 1 manager
}

// ExampleMapper_FilterFor demonstrates building a search filter for a mapped type.
func ExampleMapper_FilterFor() {
	mapper, err := odm.NewMapper(nil)
	if err != nil {
		log.Fatal(err)
	}

	filter, err := mapper.FilterFor(reflect.TypeFor[Employee](), ldap.Equals("mail", "*@example.com"))
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(filter)

	// Output:
	// (&(objectClass=top)(objectClass=person)(objectClass=organizationalPerson)(mail=\2a@example.com))
}
