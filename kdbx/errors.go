package kdbx

import "errors"

// Sentinel error kinds. Errors returned by Load for the failures below wrap
// the matching sentinel via fmt.Errorf's %w verb, so callers can classify a
// failure with errors.Is without parsing message text. A hashed-block error
// raised while the XML is being read wraps both ErrXML and the block
// stream's own sentinel (ErrIntegrity or ErrTruncated). The error for a
// second Load call wraps none of these.
var (
	// ErrTruncated means the byte source ended before a required field could
	// be read in full.
	ErrTruncated = errors.New("kdbx: truncated input")

	// ErrSignatureMismatch means the fixed 8-byte file signature did not
	// match the KDBX magic values.
	ErrSignatureMismatch = errors.New("kdbx: signature mismatch")

	// ErrUnsupportedVersion means the file's major version is not 1, 2, or 3.
	ErrUnsupportedVersion = errors.New("kdbx: unsupported file version")

	// ErrMalformedHeader means a header field was unknown, duplicated, or had
	// the wrong fixed length for its field id.
	ErrMalformedHeader = errors.New("kdbx: malformed header")

	// ErrCipherFailure means the ciphertext length was not a multiple of the
	// cipher block size, or PKCS#7 unpadding failed.
	ErrCipherFailure = errors.New("kdbx: cipher failure")

	// ErrAuthentication means the stream start bytes did not match after
	// decryption — almost always an incorrect password, but indistinguishable
	// by design from random ciphertext corruption.
	ErrAuthentication = errors.New("kdbx: incorrect password")

	// ErrIntegrity means a hashed block's payload did not match its stored
	// SHA-256 digest, or its index was out of sequence.
	ErrIntegrity = errors.New("kdbx: integrity check failed")

	// ErrXML means the block stream did not contain well-formed XML, or was
	// missing a required element.
	ErrXML = errors.New("kdbx: XML error")
)
