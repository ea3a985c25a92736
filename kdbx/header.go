package kdbx

import "fmt"

// Fixed magic values identifying a KDBX file. The C3 header parser validates
// signature1/signature2 against these before reading anything else.
const (
	signature1Magic uint32 = 0x9AA2D903
	signature2Magic uint32 = 0xB54BFB67
)

// Header field ids, per spec §3/§4.3. This is the same field-id space used
// by every KDBX 2/3 implementation (gokeepasslib's FileHeaders.readFileHeader
// switch uses the identical ids).
const (
	fieldEndOfHeader         uint8 = 0
	fieldComment             uint8 = 1
	fieldCipherID            uint8 = 2
	fieldCompressionFlags    uint8 = 3
	fieldMasterSeed          uint8 = 4
	fieldTransformSeed       uint8 = 5
	fieldTransformRounds     uint8 = 6
	fieldEncryptionIV        uint8 = 7
	fieldProtectedStreamKey  uint8 = 8
	fieldStreamStartBytes    uint8 = 9
	fieldInnerRandomStreamID uint8 = 10
)

// Compression flag values (§3, §9).
const (
	compressionNone uint32 = 0
	compressionGzip uint32 = 1
)

// header holds every field described in spec §3's "Header record".
type header struct {
	signature1          uint32
	signature2          uint32
	fileVersion         uint32
	comment             []byte
	cipherID            []byte
	compressionFlags    uint32
	masterSeed          []byte
	transformSeed       []byte
	transformRounds     uint64
	encryptionIV        []byte
	protectedStreamKey  []byte
	streamStartBytes    []byte
	innerRandomStreamID uint32

	// set tracks which field ids have already been assigned, so a repeated
	// field id is reported as ErrMalformedHeader (spec §9 resolves the
	// duplicate-field open question this way) instead of silently
	// overwriting the earlier value.
	set map[uint8]bool
}

func (h *header) majorVersion() uint16 {
	return uint16(h.fileVersion >> 16)
}

func (h *header) minorVersion() uint16 {
	return uint16(h.fileVersion)
}

// parseHeader reads the fixed signature, the file version, and the typed TLV
// field loop, returning the populated header with the cursor left
// immediately after the END_OF_HEADER payload (§4.3).
func parseHeader(br *binReader) (*header, error) {
	h := &header{set: make(map[uint8]bool)}

	sig1, err := br.readU32()
	if err != nil {
		return nil, err
	}
	if sig1 != signature1Magic {
		return nil, fmt.Errorf("kdbx: invalid signature (0): %w", ErrSignatureMismatch)
	}
	h.signature1 = sig1

	sig2, err := br.readU32()
	if err != nil {
		return nil, err
	}
	if sig2 != signature2Magic {
		return nil, fmt.Errorf("kdbx: invalid signature (1): %w", ErrSignatureMismatch)
	}
	h.signature2 = sig2

	fileVersion, err := br.readU32()
	if err != nil {
		return nil, err
	}
	h.fileVersion = fileVersion

	major := h.majorVersion()
	if major < 1 || major > 3 {
		return nil, fmt.Errorf("kdbx: unsupported file version %d.%d: %w", major, h.minorVersion(), ErrUnsupportedVersion)
	}

	for {
		done, err := h.readField(br)
		if err != nil {
			return nil, err
		}
		if done {
			if err := h.checkRequiredFields(); err != nil {
				return nil, err
			}
			return h, nil
		}
	}
}

// requiredFields lists the field ids that must be set exactly once for a
// header to be usable; a header lacking any of these is a parse failure
// even though no duplicate or unknown field id was seen.
var requiredFields = []uint8{
	fieldCipherID,
	fieldMasterSeed,
	fieldTransformSeed,
	fieldTransformRounds,
	fieldEncryptionIV,
	fieldStreamStartBytes,
	fieldInnerRandomStreamID,
}

// checkRequiredFields reports ErrMalformedHeader if any field in
// requiredFields was never observed during the TLV loop.
func (h *header) checkRequiredFields() error {
	for _, id := range requiredFields {
		if !h.set[id] {
			return fmt.Errorf("kdbx: missing required header field %d: %w", id, ErrMalformedHeader)
		}
	}
	return nil
}

// readField reads one (field_id, length, data) triple and dispatches it into
// h. It reports done=true once the END_OF_HEADER field has been consumed.
func (h *header) readField(br *binReader) (done bool, err error) {
	id, err := br.readU8()
	if err != nil {
		return false, err
	}
	length, err := br.readU16()
	if err != nil {
		return false, err
	}

	if h.set[id] && id != fieldEndOfHeader {
		// Still must consume the payload so a later truncation error (if any)
		// is reported for the right reason, but a duplicate field is fatal
		// regardless.
		_ = br.skip(int(length))
		return false, fmt.Errorf("kdbx: duplicate header field %d: %w", id, ErrMalformedHeader)
	}

	switch id {
	case fieldEndOfHeader:
		if err := br.skip(int(length)); err != nil {
			return false, err
		}
		return true, nil

	case fieldComment:
		data, err := br.readBytes(int(length))
		if err != nil {
			return false, err
		}
		h.comment = data

	case fieldCipherID:
		data, err := br.readBytes(int(length))
		if err != nil {
			return false, err
		}
		if len(data) != 16 {
			return false, fmt.Errorf("kdbx: cipher id unknown format (length %d): %w", len(data), ErrMalformedHeader)
		}
		h.cipherID = data

	case fieldCompressionFlags:
		if length != 4 {
			return false, fmt.Errorf("kdbx: compression flags unknown format (length %d): %w", length, ErrMalformedHeader)
		}
		v, err := br.readU32()
		if err != nil {
			return false, err
		}
		if v != compressionNone && v != compressionGzip {
			return false, fmt.Errorf("kdbx: compression flags unknown value %d: %w", v, ErrMalformedHeader)
		}
		h.compressionFlags = v

	case fieldMasterSeed:
		if length != 32 {
			return false, fmt.Errorf("kdbx: master seed unknown format (length %d): %w", length, ErrMalformedHeader)
		}
		data, err := br.readBytes(32)
		if err != nil {
			return false, err
		}
		h.masterSeed = data

	case fieldTransformSeed:
		if length != 32 {
			return false, fmt.Errorf("kdbx: transform seed unknown format (length %d): %w", length, ErrMalformedHeader)
		}
		data, err := br.readBytes(32)
		if err != nil {
			return false, err
		}
		h.transformSeed = data

	case fieldTransformRounds:
		if length != 8 {
			return false, fmt.Errorf("kdbx: transform rounds unknown format (length %d): %w", length, ErrMalformedHeader)
		}
		v, err := br.readU64()
		if err != nil {
			return false, err
		}
		h.transformRounds = v

	case fieldEncryptionIV:
		data, err := br.readBytes(int(length))
		if err != nil {
			return false, err
		}
		if len(data) != 16 {
			return false, fmt.Errorf("kdbx: encryption iv unknown format (length %d): %w", len(data), ErrMalformedHeader)
		}
		h.encryptionIV = data

	case fieldProtectedStreamKey:
		data, err := br.readBytes(int(length))
		if err != nil {
			return false, err
		}
		h.protectedStreamKey = data

	case fieldStreamStartBytes:
		data, err := br.readBytes(int(length))
		if err != nil {
			return false, err
		}
		if len(data) != 32 {
			return false, fmt.Errorf("kdbx: stream start bytes unknown format (length %d): %w", len(data), ErrMalformedHeader)
		}
		h.streamStartBytes = data

	case fieldInnerRandomStreamID:
		if length != 4 {
			return false, fmt.Errorf("kdbx: inner random stream id unknown format (length %d): %w", length, ErrMalformedHeader)
		}
		v, err := br.readU32()
		if err != nil {
			return false, err
		}
		h.innerRandomStreamID = v

	default:
		// Unknown field id is fatal regardless of length: the payload is not
		// skipped because we cannot recover a sensible cursor position once
		// the field's shape is unknown to us.
		return false, fmt.Errorf("kdbx: unknown header field %d: %w", id, ErrMalformedHeader)
	}

	h.set[id] = true
	return false, nil
}
