package kdbx

import (
	"bytes"
	"errors"
	"testing"
)

func minimalHeaderBuf() *bytes.Buffer {
	var buf bytes.Buffer
	writeU32(&buf, signature1Magic)
	writeU32(&buf, signature2Magic)
	writeU32(&buf, 0x0003<<16|0x0001)
	return &buf
}

func TestParseHeader_UnsupportedVersion_ReturnsError(t *testing.T) {
	var buf bytes.Buffer
	writeU32(&buf, signature1Magic)
	writeU32(&buf, signature2Magic)
	writeU32(&buf, 0x0009<<16) // major version 9

	_, err := parseHeader(newBinReader(&buf))
	if !errors.Is(err, ErrUnsupportedVersion) {
		t.Errorf("parseHeader error = %v, want wrapping ErrUnsupportedVersion", err)
	}
}

func TestParseHeader_DuplicateField_ReturnsErrMalformedHeader(t *testing.T) {
	buf := minimalHeaderBuf()
	masterSeed := bytes.Repeat([]byte{0x11}, 32)
	writeField(buf, fieldMasterSeed, masterSeed)
	writeField(buf, fieldMasterSeed, masterSeed)
	writeField(buf, fieldEndOfHeader, []byte{0x0d, 0x0a})

	_, err := parseHeader(newBinReader(buf))
	if !errors.Is(err, ErrMalformedHeader) {
		t.Errorf("parseHeader error = %v, want wrapping ErrMalformedHeader", err)
	}
}

func TestParseHeader_UnknownFieldID_ReturnsErrMalformedHeader(t *testing.T) {
	buf := minimalHeaderBuf()
	writeField(buf, 99, []byte{0x01})

	_, err := parseHeader(newBinReader(buf))
	if !errors.Is(err, ErrMalformedHeader) {
		t.Errorf("parseHeader error = %v, want wrapping ErrMalformedHeader", err)
	}
}

func TestParseHeader_WrongLengthMasterSeed_ReturnsErrMalformedHeader(t *testing.T) {
	buf := minimalHeaderBuf()
	writeField(buf, fieldMasterSeed, bytes.Repeat([]byte{0x11}, 16)) // wrong length

	_, err := parseHeader(newBinReader(buf))
	if !errors.Is(err, ErrMalformedHeader) {
		t.Errorf("parseHeader error = %v, want wrapping ErrMalformedHeader", err)
	}
}

func TestParseHeader_MissingRequiredField_ReturnsErrMalformedHeader(t *testing.T) {
	buf := minimalHeaderBuf()
	// Every required field except fieldStreamStartBytes, followed by a
	// valid END_OF_HEADER: the loop completes normally, so only the
	// post-loop presence check can catch the gap.
	writeField(buf, fieldCipherID, bytes.Repeat([]byte{0x55}, 16))
	writeField(buf, fieldMasterSeed, bytes.Repeat([]byte{0x11}, 32))
	writeField(buf, fieldTransformSeed, bytes.Repeat([]byte{0x22}, 32))
	writeField(buf, fieldTransformRounds, u64Bytes(10))
	writeField(buf, fieldEncryptionIV, bytes.Repeat([]byte{0x33}, 16))
	writeField(buf, fieldInnerRandomStreamID, u32Bytes(2))
	writeField(buf, fieldEndOfHeader, []byte{0x0d, 0x0a})

	_, err := parseHeader(newBinReader(buf))
	if !errors.Is(err, ErrMalformedHeader) {
		t.Errorf("parseHeader error = %v, want wrapping ErrMalformedHeader", err)
	}
}

func TestParseHeader_AllRecognizedFields_RoundTrip(t *testing.T) {
	buf := minimalHeaderBuf()
	masterSeed := bytes.Repeat([]byte{0x11}, 32)
	transformSeed := bytes.Repeat([]byte{0x22}, 32)
	iv := bytes.Repeat([]byte{0x33}, 16)
	streamStart := bytes.Repeat([]byte{0x44}, 32)
	cipherID := bytes.Repeat([]byte{0x55}, 16)
	protectedKey := bytes.Repeat([]byte{0x66}, 32)

	writeField(buf, fieldComment, []byte("hello"))
	writeField(buf, fieldCipherID, cipherID)
	writeField(buf, fieldCompressionFlags, u32Bytes(compressionGzip))
	writeField(buf, fieldMasterSeed, masterSeed)
	writeField(buf, fieldTransformSeed, transformSeed)
	writeField(buf, fieldTransformRounds, u64Bytes(6000))
	writeField(buf, fieldEncryptionIV, iv)
	writeField(buf, fieldProtectedStreamKey, protectedKey)
	writeField(buf, fieldStreamStartBytes, streamStart)
	writeField(buf, fieldInnerRandomStreamID, u32Bytes(2))
	writeField(buf, fieldEndOfHeader, []byte{0x0d, 0x0a})

	h, err := parseHeader(newBinReader(buf))
	if err != nil {
		t.Fatalf("parseHeader: %v", err)
	}

	if h.majorVersion() != 3 || h.minorVersion() != 1 {
		t.Errorf("version = %d.%d, want 3.1", h.majorVersion(), h.minorVersion())
	}
	if string(h.comment) != "hello" {
		t.Errorf("comment = %q, want %q", h.comment, "hello")
	}
	if !bytes.Equal(h.cipherID, cipherID) {
		t.Error("cipherID round-trip mismatch")
	}
	if h.compressionFlags != compressionGzip {
		t.Errorf("compressionFlags = %d, want %d", h.compressionFlags, compressionGzip)
	}
	if !bytes.Equal(h.masterSeed, masterSeed) {
		t.Error("masterSeed round-trip mismatch")
	}
	if !bytes.Equal(h.transformSeed, transformSeed) {
		t.Error("transformSeed round-trip mismatch")
	}
	if h.transformRounds != 6000 {
		t.Errorf("transformRounds = %d, want 6000", h.transformRounds)
	}
	if !bytes.Equal(h.encryptionIV, iv) {
		t.Error("encryptionIV round-trip mismatch")
	}
	if !bytes.Equal(h.protectedStreamKey, protectedKey) {
		t.Error("protectedStreamKey round-trip mismatch")
	}
	if !bytes.Equal(h.streamStartBytes, streamStart) {
		t.Error("streamStartBytes round-trip mismatch")
	}
	if h.innerRandomStreamID != 2 {
		t.Errorf("innerRandomStreamID = %d, want 2", h.innerRandomStreamID)
	}
}

func TestKeySchedule_DoublingRounds_ChangesKey(t *testing.T) {
	// Not a timing assertion — confirms that doubling rounds changes the
	// derived key (i.e. every round is actually applied, none skipped) by
	// checking the two outputs differ.
	transformSeed := bytes.Repeat([]byte{0x22}, 32)
	masterSeed := bytes.Repeat([]byte{0x11}, 32)

	ks1 := newKeySchedule()
	ks1.pushKey([]byte("password"))
	low, err := ks1.deriveMasterKey(transformSeed, 1, masterSeed)
	if err != nil {
		t.Fatalf("deriveMasterKey: %v", err)
	}

	ks2 := newKeySchedule()
	ks2.pushKey([]byte("password"))
	high, err := ks2.deriveMasterKey(transformSeed, 2, masterSeed)
	if err != nil {
		t.Fatalf("deriveMasterKey: %v", err)
	}

	if bytes.Equal(low, high) {
		t.Error("deriveMasterKey with 1 round and 2 rounds produced identical output")
	}
}
