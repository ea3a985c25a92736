package kdbx

import (
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
)

// parseKeePassBool implements the single boolean convention used throughout
// the projected XML (§4.7): the literal string "True", case-sensitive, means
// true; anything else — including "false", "1", or an absent attribute —
// means false.
func parseKeePassBool(s string) bool {
	return s == "True"
}

// parseIntDefault parses s as a decimal integer, returning 0 for anything
// that does not parse, mirroring the forgiving pugixml accessors
// (as_int()) a malformed IconId/MasterKeyChangeRec/MasterKeyChangeForce
// text body would otherwise hit, which return 0 rather than failing the
// load.
func parseIntDefault(s string) int {
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return v
}

func wrapXMLErr(err error) error {
	if err == io.EOF {
		return fmt.Errorf("kdbx: unexpected end of XML document: %w", ErrXML)
	}
	return fmt.Errorf("kdbx: %w: %w", ErrXML, err)
}

// readLeafText accumulates character data until the end tag matching name is
// reached. Any unexpected nested element is skipped rather than rejected,
// keeping the projection tolerant of stray markup inside a leaf tag.
func readLeafText(dec *xml.Decoder, name string) (string, error) {
	var text string
	for {
		tok, err := dec.Token()
		if err != nil {
			return "", wrapXMLErr(err)
		}
		switch t := tok.(type) {
		case xml.CharData:
			text += string(t)
		case xml.StartElement:
			if err := dec.Skip(); err != nil {
				return "", wrapXMLErr(err)
			}
		case xml.EndElement:
			if t.Name.Local == name {
				return text, nil
			}
		}
	}
}

// parseXML projects the hashed-block byte stream as XML per §4.7: a single
// <KeePassFile> root with <Meta> and <Root> children. The projection is
// eager — the returned meta record and group tree are fully materialized.
func parseXML(r io.Reader) (*metaRecord, []*Group, []string, error) {
	dec := xml.NewDecoder(r)

	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, nil, nil, wrapXMLErr(err)
		}
		if se, ok := tok.(xml.StartElement); ok && se.Name.Local == "KeePassFile" {
			break
		}
	}

	var (
		meta     *metaRecord
		groups   []*Group
		warnings []string
	)
	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, nil, warnings, wrapXMLErr(err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "Meta":
				m, w, err := parseMeta(dec)
				if err != nil {
					return nil, nil, warnings, err
				}
				meta = m
				warnings = append(warnings, w...)
			case "Root":
				gs, w, err := parseRoot(dec)
				if err != nil {
					return nil, nil, warnings, err
				}
				groups = gs
				warnings = append(warnings, w...)
			default:
				if err := dec.Skip(); err != nil {
					return nil, nil, warnings, wrapXMLErr(err)
				}
			}
		case xml.EndElement:
			if t.Name.Local == "KeePassFile" {
				if meta == nil {
					return nil, nil, warnings, fmt.Errorf("kdbx: missing Meta element: %w", ErrXML)
				}
				return meta, groups, warnings, nil
			}
		}
	}
}

// parseMeta parses the body of <Meta>, whose start tag the caller has
// already consumed. Recognized tags are the 22 enumerated in §4.7; anything
// else produces a non-fatal warning.
func parseMeta(dec *xml.Decoder) (*metaRecord, []string, error) {
	m := &metaRecord{}
	var warnings []string
	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, warnings, wrapXMLErr(err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			name := t.Name.Local
			text, err := readLeafText(dec, name)
			if err != nil {
				return nil, warnings, err
			}
			switch name {
			case "Generator":
				m.generator = text
			case "HeaderHash":
				m.headerHash = text
			case "DatabaseName":
				m.databaseName = text
			case "DatabaseNameChanged":
				m.databaseNameChanged = text
			case "DatabaseDescription":
				m.databaseDescription = text
			case "DatabaseDescriptionChanged":
				m.databaseDescriptionChanged = text
			case "DefaultUserName":
				m.defaultUserName = text
			case "DefaultUserNameChanged":
				m.defaultUserNameChanged = text
			case "MaintenanceHistoryDays":
				m.maintenanceHistoryDays = text
			case "Color":
				m.color = text
			case "MasterKeyChanged":
				m.masterKeyChanged = text
			case "MasterKeyChangeRec":
				m.masterKeyChangeRec = parseIntDefault(text)
			case "MasterKeyChangeForce":
				m.masterKeyChangeForce = parseIntDefault(text)
			case "RecycleBinEnabled":
				m.recycleBinEnabled = parseKeePassBool(text)
			case "RecycleBinUUID":
				m.recycleBinUUID = text
			case "RecycleBinChanged":
				m.recycleBinChanged = text
			case "EntryTemplatesGroup":
				m.entryTemplatesGroup = text
			case "EntryTemplatesGroupChanged":
				m.entryTemplatesGroupChanged = text
			case "HistoryMaxItems":
				m.historyMaxItems = text
			case "HistoryMaxSize":
				m.historyMaxSize = text
			case "LastSelectedGroup":
				m.lastSelectedGroup = text
			case "LastTopVisibleGroup":
				m.lastTopVisibleGroup = text
			default:
				warnings = append(warnings, fmt.Sprintf("Unknown meta node: %s", name))
			}
		case xml.EndElement:
			if t.Name.Local == "Meta" {
				return m, warnings, nil
			}
		}
	}
}

// parseRoot parses the body of <Root>, whose start tag the caller has
// already consumed: zero or more <Group> children plus an optional,
// silently-ignored <DeletedObjects>.
func parseRoot(dec *xml.Decoder) ([]*Group, []string, error) {
	var groups []*Group
	var warnings []string
	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, warnings, wrapXMLErr(err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "Group":
				g, w, err := parseGroup(dec)
				if err != nil {
					return nil, warnings, err
				}
				groups = append(groups, g)
				warnings = append(warnings, w...)
			case "DeletedObjects":
				if err := dec.Skip(); err != nil {
					return nil, warnings, wrapXMLErr(err)
				}
			default:
				warnings = append(warnings, fmt.Sprintf("Unknown root node: %s", t.Name.Local))
				if err := dec.Skip(); err != nil {
					return nil, warnings, wrapXMLErr(err)
				}
			}
		case xml.EndElement:
			if t.Name.Local == "Root" {
				return groups, warnings, nil
			}
		}
	}
}

// parseGroup parses the body of <Group>, whose start tag the caller has
// already consumed, recursively descending into nested <Group> and <Entry>
// children in document order.
func parseGroup(dec *xml.Decoder) (*Group, []string, error) {
	g := &Group{}
	var warnings []string
	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, warnings, wrapXMLErr(err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "UUID":
				text, err := readLeafText(dec, "UUID")
				if err != nil {
					return nil, warnings, err
				}
				g.uuid = canonicalUUID(text)
			case "Name":
				text, err := readLeafText(dec, "Name")
				if err != nil {
					return nil, warnings, err
				}
				g.name = text
			case "IconId":
				text, err := readLeafText(dec, "IconId")
				if err != nil {
					return nil, warnings, err
				}
				g.iconID = parseIntDefault(text)
			case "IsExpanded":
				text, err := readLeafText(dec, "IsExpanded")
				if err != nil {
					return nil, warnings, err
				}
				g.isExpanded = parseKeePassBool(text)
			case "Notes":
				text, err := readLeafText(dec, "Notes")
				if err != nil {
					return nil, warnings, err
				}
				g.notes = text
			case "EnableAutoType":
				text, err := readLeafText(dec, "EnableAutoType")
				if err != nil {
					return nil, warnings, err
				}
				g.enableAutoType = text
			case "EnableSearching":
				text, err := readLeafText(dec, "EnableSearching")
				if err != nil {
					return nil, warnings, err
				}
				g.enableSearching = text
			case "LastTopVisibleEntry":
				text, err := readLeafText(dec, "LastTopVisibleEntry")
				if err != nil {
					return nil, warnings, err
				}
				g.lastTopVisibleEntry = text
			case "Entry":
				e, w, err := parseEntry(dec)
				if err != nil {
					return nil, warnings, err
				}
				g.entries = append(g.entries, e)
				warnings = append(warnings, w...)
			case "Group":
				child, w, err := parseGroup(dec)
				if err != nil {
					return nil, warnings, err
				}
				g.groups = append(g.groups, child)
				warnings = append(warnings, w...)
			default:
				if err := dec.Skip(); err != nil {
					return nil, warnings, wrapXMLErr(err)
				}
			}
		case xml.EndElement:
			if t.Name.Local == "Group" {
				return g, warnings, nil
			}
		}
	}
}

// parseEntry parses the body of <Entry>, whose start tag the caller has
// already consumed: a UUID plus zero or more <String> children.
func parseEntry(dec *xml.Decoder) (*Entry, []string, error) {
	e := newEntry()
	var warnings []string
	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, warnings, wrapXMLErr(err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "UUID":
				text, err := readLeafText(dec, "UUID")
				if err != nil {
					return nil, warnings, err
				}
				e.uuid = canonicalUUID(text)
			case "String":
				key, value, protected, err := parseStringElement(dec)
				if err != nil {
					return nil, warnings, err
				}
				e.setString(key, value, protected)
			default:
				if err := dec.Skip(); err != nil {
					return nil, warnings, wrapXMLErr(err)
				}
			}
		case xml.EndElement:
			if t.Name.Local == "Entry" {
				return e, warnings, nil
			}
		}
	}
}

// parseStringElement parses one <String><Key>K</Key><Value Protected="True|False">V</Value></String>,
// whose <String> start tag the caller has already consumed.
func parseStringElement(dec *xml.Decoder) (key, value string, protected bool, err error) {
	for {
		tok, terr := dec.Token()
		if terr != nil {
			return "", "", false, wrapXMLErr(terr)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "Key":
				key, err = readLeafText(dec, "Key")
				if err != nil {
					return "", "", false, err
				}
			case "Value":
				for _, attr := range t.Attr {
					if attr.Name.Local == "Protected" {
						protected = parseKeePassBool(attr.Value)
					}
				}
				value, err = readLeafText(dec, "Value")
				if err != nil {
					return "", "", false, err
				}
			default:
				if err := dec.Skip(); err != nil {
					return "", "", false, wrapXMLErr(err)
				}
			}
		case xml.EndElement:
			if t.Name.Local == "String" {
				return key, value, protected, nil
			}
		}
	}
}
