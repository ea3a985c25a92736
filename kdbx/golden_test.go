package kdbx

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"encoding/binary"
)

// goldenOptions controls how buildGolden assembles an in-memory KDBX v3
// image. The zero value produces a minimal but valid database.
type goldenOptions struct {
	password             []byte
	transformRounds      uint64
	xmlBody              string
	corruptFirstBlock    bool
	truncateAfter        int // if > 0, truncate the final image to this many bytes
	badSignature1        bool
	omitStreamStartBytes bool // omit the stream_start_bytes header field entirely
}

// defaultGoldenXML is a small but representative projection body: one root
// group with a nested subgroup and an entry carrying a protected field.
const defaultGoldenXML = `<?xml version="1.0" encoding="utf-8"?>
<KeePassFile>
  <Meta>
    <Generator>golden-test</Generator>
    <DatabaseName>Test Vault</DatabaseName>
    <RecycleBinEnabled>True</RecycleBinEnabled>
    <MasterKeyChangeRec>-1</MasterKeyChangeRec>
  </Meta>
  <Root>
    <Group>
      <UUID>AAAAAAAAAAAAAAAAAAAAAA==</UUID>
      <Name>Root</Name>
      <IconId>48</IconId>
      <IsExpanded>True</IsExpanded>
      <Entry>
        <UUID>BBBBBBBBBBBBBBBBBBBBAA==</UUID>
        <String>
          <Key>Title</Key>
          <Value>example.com</Value>
        </String>
        <String>
          <Key>Password</Key>
          <Value Protected="True">encrypted-placeholder</Value>
        </String>
      </Entry>
      <Group>
        <UUID>CCCCCCCCCCCCCCCCCCCCAA==</UUID>
        <Name>Subgroup</Name>
      </Group>
    </Group>
  </Root>
</KeePassFile>`

// buildGolden assembles a complete little-endian KDBX v3.1 byte stream: the
// plaintext header followed by an AES-256-CBC-encrypted body whose plaintext
// is the stream-start sentinel followed by a single-block hashed-block
// stream wrapping the XML projection. It mirrors the write-side of the
// pipeline Load implements, built solely for test fixtures.
func buildGolden(opts goldenOptions) []byte {
	masterSeed := bytes.Repeat([]byte{0x11}, 32)
	transformSeed := bytes.Repeat([]byte{0x22}, 32)
	encryptionIV := bytes.Repeat([]byte{0x33}, 16)
	streamStartBytes := bytes.Repeat([]byte{0x44}, 32)
	cipherID := bytes.Repeat([]byte{0x55}, 16)
	protectedStreamKey := bytes.Repeat([]byte{0x66}, 32)

	rounds := opts.transformRounds
	if rounds == 0 {
		rounds = 4
	}

	var buf bytes.Buffer

	sig1 := signature1Magic
	if opts.badSignature1 {
		sig1 = 0xDEADBEEF
	}
	writeU32(&buf, sig1)
	writeU32(&buf, signature2Magic)
	writeU32(&buf, 0x0003<<16|0x0001) // version 3.1

	writeField(&buf, fieldCipherID, cipherID)
	writeField(&buf, fieldCompressionFlags, u32Bytes(compressionNone))
	writeField(&buf, fieldMasterSeed, masterSeed)
	writeField(&buf, fieldTransformSeed, transformSeed)
	writeField(&buf, fieldTransformRounds, u64Bytes(rounds))
	writeField(&buf, fieldEncryptionIV, encryptionIV)
	writeField(&buf, fieldProtectedStreamKey, protectedStreamKey)
	if !opts.omitStreamStartBytes {
		writeField(&buf, fieldStreamStartBytes, streamStartBytes)
	}
	writeField(&buf, fieldInnerRandomStreamID, u32Bytes(2))
	writeField(&buf, fieldEndOfHeader, []byte{0x0d, 0x0a})

	xmlBody := opts.xmlBody
	if xmlBody == "" {
		xmlBody = defaultGoldenXML
	}

	block := buildHashedBlockStream([]byte(xmlBody), opts.corruptFirstBlock)

	plaintext := append(append([]byte{}, streamStartBytes...), block...)

	masterKey := deriveGoldenMasterKey(opts.password, transformSeed, rounds, masterSeed)
	ciphertext := encryptCBC(masterKey, encryptionIV, plaintext)
	buf.Write(ciphertext)

	out := buf.Bytes()
	if opts.truncateAfter > 0 && opts.truncateAfter < len(out) {
		out = out[:opts.truncateAfter]
	}
	return out
}

// buildHashedBlockStream frames payload as a single hashed block plus the
// zero-length terminator block, matching the format hashedBlockReader reads.
func buildHashedBlockStream(payload []byte, corrupt bool) []byte {
	var buf bytes.Buffer
	writeU32(&buf, 0)
	sum := sha256.Sum256(payload)
	if corrupt {
		sum[0] ^= 0xff
	}
	buf.Write(sum[:])
	writeU32(&buf, uint32(len(payload)))
	buf.Write(payload)

	writeU32(&buf, 1)
	buf.Write(make([]byte, 32))
	writeU32(&buf, 0)
	return buf.Bytes()
}

// deriveGoldenMasterKey reimplements the key schedule independently of
// keySchedule so the fixture builder does not depend on the code under test.
func deriveGoldenMasterKey(password []byte, transformSeed []byte, rounds uint64, masterSeed []byte) []byte {
	sum := sha256.Sum256(password)
	composite := sha256.Sum256(sum[:])

	block, err := aes.NewCipher(transformSeed)
	if err != nil {
		panic(err)
	}
	transformed := composite[:]
	half1 := append([]byte{}, transformed[0:16]...)
	half2 := append([]byte{}, transformed[16:32]...)
	for i := uint64(0); i < rounds; i++ {
		block.Encrypt(half1, half1)
		block.Encrypt(half2, half2)
	}
	combined := append(append([]byte{}, half1...), half2...)
	afterRounds := sha256.Sum256(combined)

	mix := sha256.New()
	mix.Write(masterSeed)
	mix.Write(afterRounds[:])
	return mix.Sum(nil)
}

func encryptCBC(key, iv, plaintext []byte) []byte {
	block, err := aes.NewCipher(key)
	if err != nil {
		panic(err)
	}
	padded := pkcs7Pad(plaintext, block.BlockSize())
	out := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out, padded)
	return out
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	padLen := blockSize - len(data)%blockSize
	padding := bytes.Repeat([]byte{byte(padLen)}, padLen)
	return append(append([]byte{}, data...), padding...)
}

func writeU32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

func u32Bytes(v uint32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, v)
	return b
}

func u64Bytes(v uint64) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, v)
	return b
}

func writeField(buf *bytes.Buffer, id uint8, data []byte) {
	buf.WriteByte(id)
	var lenBuf [2]byte
	binary.LittleEndian.PutUint16(lenBuf[:], uint16(len(data)))
	buf.Write(lenBuf[:])
	buf.Write(data)
}
