package odm

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"testing"

	goldap "github.com/go-ldap/ldap/v3"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/isometry/ldapodm/internal/convert"
	"github.com/isometry/ldapodm/internal/ldap"
)

// Person is the main fixture: an indexed two-level DN below a fixed base.
type Person struct {
	Meta `objectclass:"top,person" base:"dc=example,dc=com"`

	DN             ldap.Name `ldap:",id"`
	CommonName     string    `ldap:"cn,dn,index=0"`
	Unit           string    `ldap:"ou,dn,index=1"`
	Surname        string    `ldap:"sn"`
	Mail           []string  `ldap:"mail"`
	Phone          *string   `ldap:"telephoneNumber"`
	EmployeeNumber int       `ldap:"employeeNumber"`
	Aliases        []*string `ldap:"uid"`
	ObjectGUID     uuid.UUID `ldap:"objectGUID,readonly"`
	Scratch        string    `ldap:"-"`
	Notes          string    `ldap:",transient"`
	internal       string
}

// Group uses unindexed DN components and an object-class marker field.
type Group struct {
	Meta `objectclass:"group"`

	DN          ldap.Name `ldap:",id"`
	Name        string    `ldap:"cn,dn"`
	Description string
	ObjectClass []string    `ldap:"objectClass"`
	ObjectSid   string      `ldap:"objectSid,syntax=sid,readonly"`
	Members     []ldap.Name `ldap:"member"`
}

// Device has no Meta marker and no DN components.
type Device struct {
	DN     ldap.Name `ldap:",id"`
	Serial string    `ldap:"serialNumber"`
}

// Location has no built-in conversion.
type Location struct {
	Lat, Lng float64
}

type Site struct {
	DN       ldap.Name `ldap:",id"`
	Location Location  `ldap:"location"`
}

// locationConverter extends the built-in conversions with "lat,lng" text.
func locationConverter() *convert.Manager {
	m := convert.NewManager()
	m.Register(reflect.TypeFor[string](), "", reflect.TypeFor[Location](), func(v any) (any, error) {
		lat, lng, ok := strings.Cut(v.(string), ",")
		if !ok {
			return nil, fmt.Errorf("invalid location %q", v)
		}
		var loc Location
		var err error
		if loc.Lat, err = strconv.ParseFloat(lat, 64); err != nil {
			return nil, err
		}
		if loc.Lng, err = strconv.ParseFloat(lng, 64); err != nil {
			return nil, err
		}
		return loc, nil
	})
	m.Register(reflect.TypeFor[Location](), "", reflect.TypeFor[string](), func(v any) (any, error) {
		loc := v.(Location)
		return strconv.FormatFloat(loc.Lat, 'f', -1, 64) + "," + strconv.FormatFloat(loc.Lng, 'f', -1, 64), nil
	})
	return m
}

type logRecord struct {
	level  string
	msg    string
	fields map[string]any
}

type recordingLogger struct {
	mu      sync.Mutex
	records []logRecord
}

func (l *recordingLogger) log(level, msg string, fields map[string]any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = append(l.records, logRecord{level: level, msg: msg, fields: fields})
}

func (l *recordingLogger) Debug(msg string, fields map[string]any) { l.log("debug", msg, fields) }
func (l *recordingLogger) Info(msg string, fields map[string]any)  { l.log("info", msg, fields) }
func (l *recordingLogger) Warn(msg string, fields map[string]any)  { l.log("warn", msg, fields) }
func (l *recordingLogger) Error(msg string, fields map[string]any) { l.log("error", msg, fields) }
func (l *recordingLogger) Trace(msg string, fields map[string]any) { l.log("trace", msg, fields) }

func (l *recordingLogger) messages(level string) []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	var msgs []string
	for _, r := range l.records {
		if r.level == level {
			msgs = append(msgs, r.msg)
		}
	}
	return msgs
}

func newTestMapper(t *testing.T) (*Mapper, *recordingLogger) {
	t.Helper()

	m, err := NewMapper(nil)
	require.NoError(t, err)

	logger := &recordingLogger{}
	m.SetLogger(logger)
	return m, logger
}

// fetchedEntry builds an entry as if returned by a directory search.
func fetchedEntry(t *testing.T, dn string, attrs map[string][]string) *ldap.Entry {
	t.Helper()

	entry, err := ldap.EntryFromLDAP(goldap.NewEntry(dn, attrs))
	require.NoError(t, err)
	return entry
}

func ptr[T any](v T) *T {
	return &v
}
