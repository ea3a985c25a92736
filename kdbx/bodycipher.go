package kdbx

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"fmt"
)

// decryptBody AES-256-CBC-decrypts ciphertext with masterKey/iv, verifies the
// leading streamStartBytes sentinel, and removes PKCS#7 padding (§4.5, §6.1).
// The sentinel is checked before the padding, so a wrong key is reported as
// ErrAuthentication rather than as a padding failure. On success it returns
// the plaintext with the sentinel stripped.
func decryptBody(ciphertext, masterKey, iv, streamStartBytes []byte) ([]byte, error) {
	block, err := aes.NewCipher(masterKey)
	if err != nil {
		return nil, fmt.Errorf("kdbx: body cipher: %w", err)
	}
	if len(ciphertext)%block.BlockSize() != 0 {
		return nil, fmt.Errorf("kdbx: ciphertext length %d is not a multiple of block size %d: %w",
			len(ciphertext), block.BlockSize(), ErrCipherFailure)
	}
	if len(ciphertext) == 0 {
		return nil, fmt.Errorf("kdbx: empty ciphertext: %w", ErrCipherFailure)
	}

	plaintext := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plaintext, ciphertext)

	if len(plaintext) < len(streamStartBytes) || !bytes.Equal(plaintext[:len(streamStartBytes)], streamStartBytes) {
		return nil, fmt.Errorf("kdbx: stream start bytes mismatch: %w", ErrAuthentication)
	}

	unpadded, err := pkcs7Unpad(plaintext, block.BlockSize())
	if err != nil {
		return nil, err
	}

	if len(unpadded) < len(streamStartBytes) {
		return nil, fmt.Errorf("kdbx: stream start bytes mismatch: %w", ErrAuthentication)
	}

	return unpadded[len(streamStartBytes):], nil
}

// pkcs7Unpad validates and strips PKCS#7 padding from a decrypted buffer
// whose length is already known to be a multiple of blockSize.
func pkcs7Unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, fmt.Errorf("kdbx: padding: invalid buffer length %d: %w", len(data), ErrCipherFailure)
	}
	padLen := int(data[len(data)-1])
	if padLen == 0 || padLen > blockSize || padLen > len(data) {
		return nil, fmt.Errorf("kdbx: padding: invalid pad length %d: %w", padLen, ErrCipherFailure)
	}
	for _, b := range data[len(data)-padLen:] {
		if int(b) != padLen {
			return nil, fmt.Errorf("kdbx: padding: malformed PKCS#7 trailer: %w", ErrCipherFailure)
		}
	}
	return data[:len(data)-padLen], nil
}
