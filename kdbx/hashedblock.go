package kdbx

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"io"
)

// hashedBlockReader treats its underlying source as a sequence of
// (index, sha256, length, data) blocks (§4.6) and exposes their concatenated
// payloads as a plain io.Reader. It is forward-only and non-restartable: once
// a block fails validation the reader is permanently broken and every
// subsequent Read returns the same error.
type hashedBlockReader struct {
	br        *binReader
	buf       []byte
	pos       int
	nextIndex uint32
	done      bool
	err       error
}

// newHashedBlockReader wraps a fully-decrypted, sentinel-stripped plaintext
// buffer as a hashed-block stream. Gzip decompression, when the header asks
// for it, is applied by Load to this reader's output.
func newHashedBlockReader(plaintext []byte) *hashedBlockReader {
	return &hashedBlockReader{br: newBinReader(bytes.NewReader(plaintext))}
}

func (h *hashedBlockReader) Read(p []byte) (int, error) {
	if h.err != nil {
		return 0, h.err
	}
	for h.pos >= len(h.buf) {
		if h.done {
			return 0, io.EOF
		}
		if err := h.refill(); err != nil {
			h.err = err
			return 0, err
		}
	}
	n := copy(p, h.buf[h.pos:])
	h.pos += n
	return n, nil
}

// refill reads the next block header and payload, validates it, and makes
// the payload available to Read. A zero-length block marks end of stream.
func (h *hashedBlockReader) refill() error {
	index, err := h.br.readU32()
	if err != nil {
		return err
	}
	blockHash, err := h.br.readBytes(32)
	if err != nil {
		return err
	}
	length, err := h.br.readU32()
	if err != nil {
		return err
	}

	if length == 0 {
		h.done = true
		h.buf, h.pos = nil, 0
		return nil
	}

	if index != h.nextIndex {
		return fmt.Errorf("kdbx: block index %d out of sequence (want %d): %w", index, h.nextIndex, ErrIntegrity)
	}

	data, err := h.br.readBytes(int(length))
	if err != nil {
		return err
	}

	sum := sha256.Sum256(data)
	if !bytes.Equal(sum[:], blockHash) {
		return fmt.Errorf("kdbx: block signature invalid (index %d): %w", index, ErrIntegrity)
	}

	h.nextIndex++
	h.buf, h.pos = data, 0
	return nil
}
