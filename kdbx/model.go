package kdbx

import (
	"encoding/base64"

	"github.com/google/uuid"
)

// metaRecord holds the recognized <Meta> leaf tags of spec §4.7. Unknown tags
// are not stored; they only produce a warning at parse time.
type metaRecord struct {
	generator                  string
	headerHash                 string
	databaseName               string
	databaseNameChanged        string
	databaseDescription        string
	databaseDescriptionChanged string
	defaultUserName            string
	defaultUserNameChanged     string
	maintenanceHistoryDays     string
	color                      string
	masterKeyChanged           string
	masterKeyChangeRec         int
	masterKeyChangeForce       int
	recycleBinEnabled          bool
	recycleBinUUID             string
	recycleBinChanged          string
	entryTemplatesGroup        string
	entryTemplatesGroupChanged string
	historyMaxItems            string
	historyMaxSize             string
	lastSelectedGroup          string
	lastTopVisibleGroup        string
}

// Group is one node of the database's group tree (§3, §4.8). Entries and
// subgroups preserve the order they appeared in the source XML.
type Group struct {
	uuid                string
	name                string
	iconID              int
	isExpanded          bool
	notes               string
	enableAutoType      string
	enableSearching     string
	lastTopVisibleEntry string
	entries             []*Entry
	groups              []*Group
}

// UUID returns the group's identifier. When the raw XML text decodes as a
// base64-encoded 16-byte UUID it is rendered in canonical dashed form;
// otherwise the raw text is returned unchanged.
func (g *Group) UUID() string { return g.uuid }

// Name returns the group's display name.
func (g *Group) Name() string { return g.name }

// IconID returns the group's icon identifier.
func (g *Group) IconID() int { return g.iconID }

// IsExpanded reports whether the group is expanded in the KeePass UI.
func (g *Group) IsExpanded() bool { return g.isExpanded }

// Notes returns the group's notes field, if present.
func (g *Group) Notes() string { return g.notes }

// EnableAutoType returns the group's EnableAutoType field, if present.
func (g *Group) EnableAutoType() string { return g.enableAutoType }

// EnableSearching returns the group's EnableSearching field, if present.
func (g *Group) EnableSearching() string { return g.enableSearching }

// LastTopVisibleEntry returns the group's LastTopVisibleEntry field, if present.
func (g *Group) LastTopVisibleEntry() string { return g.lastTopVisibleEntry }

// Entries returns the group's direct child entries, in document order.
func (g *Group) Entries() []*Entry { return g.entries }

// Groups returns the group's direct child subgroups, in document order.
func (g *Group) Groups() []*Group { return g.groups }

// Entry is one password entry: a UUID plus an ordered set of string fields,
// each with an independent protected flag (§3).
type Entry struct {
	uuid      string
	keys      []string
	values    map[string]string
	protected map[string]bool
}

func newEntry() *Entry {
	return &Entry{
		values:    make(map[string]string),
		protected: make(map[string]bool),
	}
}

// UUID returns the entry's identifier, formatted the same way as Group.UUID.
func (e *Entry) UUID() string { return e.uuid }

// Keys returns the entry's string field names, in the order they appeared
// in the source XML.
func (e *Entry) Keys() []string { return e.keys }

// GetString returns the value for key and whether it was present. Protected
// values return the literal placeholder "Protected" (§3, §9): the inner
// stream cipher that would recover the real value is out of scope.
func (e *Entry) GetString(key string) (string, bool) {
	v, ok := e.values[key]
	if !ok {
		return "", false
	}
	if e.protected[key] {
		return "Protected", true
	}
	return v, true
}

// setString records a string field. A repeated Key keeps its first value and
// position (a linear scan over <String> children returns the first match and
// never revisits later ones).
func (e *Entry) setString(key, value string, protected bool) {
	if _, exists := e.values[key]; exists {
		return
	}
	e.keys = append(e.keys, key)
	e.values[key] = value
	e.protected[key] = protected
}

// canonicalUUID renders a base64-encoded 16-byte UUID field in canonical
// dashed form via google/uuid. Any value that is not a valid base64-encoded
// 16-byte UUID is returned unchanged, exposing whatever raw text the XML
// node contained.
func canonicalUUID(raw string) string {
	decoded, err := base64.StdEncoding.DecodeString(raw)
	if err != nil || len(decoded) != 16 {
		return raw
	}
	id, err := uuid.FromBytes(decoded)
	if err != nil {
		return raw
	}
	return id.String()
}
