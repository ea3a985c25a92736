package kdbx

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"fmt"
	"hash"
	"sync"
)

// keySchedule accumulates user key material into a composite SHA-256 state
// and, once a header is available, derives the AES-256 master key.
// Ordering of PushKey calls is significant and left entirely to the caller.
type keySchedule struct {
	composite hash.Hash
}

func newKeySchedule() *keySchedule {
	return &keySchedule{composite: sha256.New()}
}

// pushKey hashes material and feeds the digest into the running composite.
func (k *keySchedule) pushKey(material []byte) {
	sum := sha256.Sum256(material)
	k.composite.Write(sum[:])
}

// clear resets the composite hasher, discarding every previously pushed key.
func (k *keySchedule) clear() {
	k.composite = sha256.New()
}

// deriveMasterKey runs the three-step transform of spec §4.4:
//  1. AES-256-ECB-encrypt the composite key in place, transformRounds times,
//     under transformSeed as key.
//  2. transformed = SHA256(composite key after rounds)
//  3. masterKey = SHA256(masterSeed || transformed)
//
// The composite key's two 16-byte halves are independent under ECB, so step
// 1 is run concurrently across them (permitted, not required, by spec §5);
// the result is bit-exact with running the rounds sequentially over the full
// 32 bytes two blocks at a time.
func (k *keySchedule) deriveMasterKey(transformSeed []byte, rounds uint64, masterSeed []byte) ([]byte, error) {
	composite := k.composite.Sum(nil)

	block, err := aes.NewCipher(transformSeed)
	if err != nil {
		return nil, fmt.Errorf("kdbx: key transform cipher: %w", err)
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		transformHalf(block, composite[0:16], rounds)
	}()
	go func() {
		defer wg.Done()
		transformHalf(block, composite[16:32], rounds)
	}()
	wg.Wait()

	transformed := sha256.Sum256(composite)

	mix := sha256.New()
	mix.Write(masterSeed)
	mix.Write(transformed[:])
	return mix.Sum(nil), nil
}

// transformHalf repeatedly AES-ECB-encrypts one 16-byte block in place.
func transformHalf(block cipher.Block, half []byte, rounds uint64) {
	for i := uint64(0); i < rounds; i++ {
		block.Encrypt(half, half)
	}
}
