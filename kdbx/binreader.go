package kdbx

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

// binReader wraps an io.Reader with the little-endian primitive and
// byte-block reads the header parser and body cipher stage build on. Every
// short read is reported as ErrTruncated (with the underlying read error,
// such as io.ErrUnexpectedEOF, wrapped alongside it), so callers upstream
// see one consistent error kind.
type binReader struct {
	r io.Reader
}

func newBinReader(r io.Reader) *binReader {
	return &binReader{r: r}
}

func (br *binReader) fail(field string, err error) error {
	return fmt.Errorf("kdbx: read %s: %w: %w", field, ErrTruncated, err)
}

func (br *binReader) readU8() (uint8, error) {
	var buf [1]byte
	if _, err := io.ReadFull(br.r, buf[:]); err != nil {
		return 0, br.fail("u8", err)
	}
	return buf[0], nil
}

func (br *binReader) readU16() (uint16, error) {
	var buf [2]byte
	if _, err := io.ReadFull(br.r, buf[:]); err != nil {
		return 0, br.fail("u16", err)
	}
	return binary.LittleEndian.Uint16(buf[:]), nil
}

func (br *binReader) readU32() (uint32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(br.r, buf[:]); err != nil {
		return 0, br.fail("u32", err)
	}
	return binary.LittleEndian.Uint32(buf[:]), nil
}

func (br *binReader) readU64() (uint64, error) {
	var buf [8]byte
	if _, err := io.ReadFull(br.r, buf[:]); err != nil {
		return 0, br.fail("u64", err)
	}
	return binary.LittleEndian.Uint64(buf[:]), nil
}

// readBytes returns an owned block of exactly n bytes.
func (br *binReader) readBytes(n int) ([]byte, error) {
	if n == 0 {
		return []byte{}, nil
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(br.r, buf); err != nil {
		return nil, br.fail(fmt.Sprintf("%d bytes", n), err)
	}
	return buf, nil
}

// skip discards n bytes.
func (br *binReader) skip(n int) error {
	if n == 0 {
		return nil
	}
	if _, err := io.CopyN(io.Discard, br.r, int64(n)); err != nil {
		return br.fail(fmt.Sprintf("skip %d bytes", n), err)
	}
	return nil
}

// readToEnd accumulates every remaining byte from the source via repeated
// bounded reads into a growing buffer, rather than one unbounded ReadAll.
func (br *binReader) readToEnd() ([]byte, error) {
	var out bytes.Buffer
	buf := make([]byte, 4096)
	for {
		n, err := br.r.Read(buf)
		if n > 0 {
			out.Write(buf[:n])
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, br.fail("remainder", err)
		}
		if n == 0 {
			break
		}
	}
	return out.Bytes(), nil
}
