package kdbx

import (
	"compress/gzip"
	"fmt"
	"io"
)

// loadState records whether Load has been attempted; the intermediate stages
// of spec §5's load progression are not tracked separately. A Database is
// single-use: once Load has been attempted, successfully or not, a second
// call always fails rather than silently redoing work against keys that may
// since have been cleared.
type loadState int

const (
	stateFresh loadState = iota
	stateDone
)

// Database is the entry point of the library surface: construct one with
// New, push key material with PushKey, and call Load exactly once.
type Database struct {
	keys  *keySchedule
	state loadState

	header *header
	meta   *metaRecord
	groups []*Group

	warnings []string
}

// New returns an empty Database with no key material pushed and nothing
// loaded.
func New() *Database {
	return &Database{keys: newKeySchedule()}
}

// PushKey feeds one piece of key material (a password, or the contents of a
// key file) into the composite master key. Order matters and is entirely the
// caller's responsibility; calling PushKey after Load has no effect on an
// already-completed load.
func (d *Database) PushKey(material []byte) {
	d.keys.pushKey(material)
}

// ClearKeys discards every previously pushed key, as if none had ever been
// pushed.
func (d *Database) ClearKeys() {
	d.keys.clear()
}

// Load reads, authenticates, decompresses, and projects a KDBX v2/3 file
// from r, per the pipeline in spec §4. It may be called exactly once per
// Database; a second call returns an error without touching r.
func (d *Database) Load(r io.Reader) error {
	if d.state != stateFresh {
		return fmt.Errorf("kdbx: database already loaded")
	}
	d.state = stateDone

	br := newBinReader(r)

	h, err := parseHeader(br)
	if err != nil {
		return err
	}

	masterKey, err := d.keys.deriveMasterKey(h.transformSeed, h.transformRounds, h.masterSeed)
	if err != nil {
		return err
	}

	ciphertext, err := br.readToEnd()
	if err != nil {
		return err
	}

	plaintext, err := decryptBody(ciphertext, masterKey, h.encryptionIV, h.streamStartBytes)
	if err != nil {
		return err
	}

	blockStream := io.Reader(newHashedBlockReader(plaintext))
	if h.compressionFlags == compressionGzip {
		gz, err := gzip.NewReader(blockStream)
		if err != nil {
			return fmt.Errorf("kdbx: gzip: %w", err)
		}
		defer gz.Close()
		blockStream = gz
	}

	meta, groups, warnings, err := parseXML(blockStream)
	if err != nil {
		return err
	}

	d.header = h
	d.meta = meta
	d.groups = groups
	d.warnings = warnings
	return nil
}

// Warnings returns the non-fatal diagnostics accumulated while loading: one
// entry per unrecognized <Meta> tag or unrecognized <Root> child. It returns
// nil before Load succeeds.
func (d *Database) Warnings() []string {
	return d.warnings
}

// Groups returns the top-level groups of the loaded database, in document
// order. It returns nil before Load succeeds.
func (d *Database) Groups() []*Group {
	return d.groups
}

// --- Header scalar accessors (spec §3 "Header record", §6.2) ---

// Signature1 returns the file's first magic value.
func (d *Database) Signature1() uint32 { return d.header.signature1 }

// Signature2 returns the file's second magic value.
func (d *Database) Signature2() uint32 { return d.header.signature2 }

// FileVersion returns the raw packed file version field.
func (d *Database) FileVersion() uint32 { return d.header.fileVersion }

// FileVersionMajor returns the file's major version component.
func (d *Database) FileVersionMajor() uint16 { return d.header.majorVersion() }

// FileVersionMinor returns the file's minor version component.
func (d *Database) FileVersionMinor() uint16 { return d.header.minorVersion() }

// Comment returns the header's free-form comment field.
func (d *Database) Comment() []byte { return d.header.comment }

// CipherID returns the raw 16-byte cipher identifier.
func (d *Database) CipherID() []byte { return d.header.cipherID }

// CompressionFlags returns the raw compression flags field.
func (d *Database) CompressionFlags() uint32 { return d.header.compressionFlags }

// TransformRounds returns the number of AES rounds applied during key
// derivation.
func (d *Database) TransformRounds() uint64 { return d.header.transformRounds }

// InnerRandomStreamID returns the identifier of the inner stream cipher used
// to protect <Value Protected="True"> fields. Decrypting that stream is out
// of scope; this accessor only exposes which algorithm the file declares.
func (d *Database) InnerRandomStreamID() uint32 { return d.header.innerRandomStreamID }

// ProtectedStreamKey returns the raw seed of the inner stream cipher. It is
// exposed as parsed; nothing in this package uses it to decrypt values.
func (d *Database) ProtectedStreamKey() []byte { return d.header.protectedStreamKey }

// --- Meta accessors (spec §4.7's 22 recognized <Meta> tags) ---

// Generator returns the name of the application that wrote the file.
func (d *Database) Generator() string { return d.meta.generator }

// HeaderHash returns the base64 header hash the writer embedded for its own
// consistency check, if present.
func (d *Database) HeaderHash() string { return d.meta.headerHash }

// DatabaseName returns the user-visible database name.
func (d *Database) DatabaseName() string { return d.meta.databaseName }

// DatabaseNameChanged returns the last-modified timestamp of DatabaseName.
func (d *Database) DatabaseNameChanged() string { return d.meta.databaseNameChanged }

// DatabaseDescription returns the user-visible database description.
func (d *Database) DatabaseDescription() string { return d.meta.databaseDescription }

// DatabaseDescriptionChanged returns the last-modified timestamp of
// DatabaseDescription.
func (d *Database) DatabaseDescriptionChanged() string { return d.meta.databaseDescriptionChanged }

// DefaultUserName returns the default username offered for new entries.
func (d *Database) DefaultUserName() string { return d.meta.defaultUserName }

// DefaultUserNameChanged returns the last-modified timestamp of
// DefaultUserName.
func (d *Database) DefaultUserNameChanged() string { return d.meta.defaultUserNameChanged }

// MaintenanceHistoryDays returns the configured history retention window.
func (d *Database) MaintenanceHistoryDays() string { return d.meta.maintenanceHistoryDays }

// Color returns the database's UI accent color, if set.
func (d *Database) Color() string { return d.meta.color }

// MasterKeyChanged returns the last-changed timestamp of the master key.
func (d *Database) MasterKeyChanged() string { return d.meta.masterKeyChanged }

// MasterKeyChangeRec returns the recommended master key change interval, in
// days; 0 or negative values mean no recommendation.
func (d *Database) MasterKeyChangeRec() int { return d.meta.masterKeyChangeRec }

// MasterKeyChangeForce returns the enforced master key change interval, in
// days; 0 or negative values mean no enforcement.
func (d *Database) MasterKeyChangeForce() int { return d.meta.masterKeyChangeForce }

// RecycleBinEnabled reports whether deleted entries are routed to a recycle
// bin group rather than removed outright.
func (d *Database) RecycleBinEnabled() bool { return d.meta.recycleBinEnabled }

// RecycleBinUUID returns the UUID of the recycle bin group, if any.
func (d *Database) RecycleBinUUID() string { return d.meta.recycleBinUUID }

// RecycleBinChanged returns the last-modified timestamp of the recycle bin
// setting.
func (d *Database) RecycleBinChanged() string { return d.meta.recycleBinChanged }

// EntryTemplatesGroup returns the UUID of the group used for entry
// templates, if any.
func (d *Database) EntryTemplatesGroup() string { return d.meta.entryTemplatesGroup }

// EntryTemplatesGroupChanged returns the last-modified timestamp of
// EntryTemplatesGroup.
func (d *Database) EntryTemplatesGroupChanged() string { return d.meta.entryTemplatesGroupChanged }

// HistoryMaxItems returns the configured maximum number of history entries
// kept per entry.
func (d *Database) HistoryMaxItems() string { return d.meta.historyMaxItems }

// HistoryMaxSize returns the configured maximum total size of entry history.
func (d *Database) HistoryMaxSize() string { return d.meta.historyMaxSize }

// LastSelectedGroup returns the UUID of the group selected when the database
// was last saved.
func (d *Database) LastSelectedGroup() string { return d.meta.lastSelectedGroup }

// LastTopVisibleGroup returns the UUID of the top visible group when the
// database was last saved.
func (d *Database) LastTopVisibleGroup() string { return d.meta.lastTopVisibleGroup }

// HeaderInfo is the subset of header fields that can be reported without any
// key material, for diagnosing a file before attempting to unlock it.
type HeaderInfo struct {
	FileVersionMajor uint16
	FileVersionMinor uint16
	CipherID         []byte
	CompressionFlags uint32
	TransformRounds  uint64
}

// InspectHeader reads and validates the plaintext header of r without
// deriving a master key or touching the encrypted body, returning the
// fields useful for diagnosing a file before a password is available.
func InspectHeader(r io.Reader) (HeaderInfo, error) {
	h, err := parseHeader(newBinReader(r))
	if err != nil {
		return HeaderInfo{}, err
	}
	return HeaderInfo{
		FileVersionMajor: h.majorVersion(),
		FileVersionMinor: h.minorVersion(),
		CipherID:         h.cipherID,
		CompressionFlags: h.compressionFlags,
		TransformRounds:  h.transformRounds,
	}, nil
}
