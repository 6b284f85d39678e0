// Package kdf expands master secrets into per-field HMAC key material
// using HKDF (RFC 5869). This is component C1 of the encoder: the
// Bloom encoder (pkg/bloom) never sees the master secrets directly,
// only the KeySet this package derives from them.
package kdf

import (
	"crypto/sha256"
	"crypto/sha512"
	"hash"
	"io"

	"github.com/pion/logging"
	"golang.org/x/crypto/hkdf"
)

// Algorithm selects the hash function HKDF is instantiated with.
type Algorithm string

const (
	SHA256 Algorithm = "SHA256"
	SHA512 Algorithm = "SHA512"

	// DefaultKeySize is the per-field, per-secret key length in bytes.
	DefaultKeySize = 64

	// numSecrets is the number of master secrets the encoder uses: one
	// two-party CLK invocation always derives exactly a (key_a, key_b)
	// pair per field (spec.md §3, KeySet).
	numSecrets = 2
)

func (a Algorithm) newHash() (func() hash.Hash, error) {
	switch a {
	case SHA256:
		return sha256.New, nil
	case SHA512:
		return sha512.New, nil
	default:
		return nil, &UnsupportedAlgorithmError{Algorithm: string(a)}
	}
}

// KeySet is the per-field, per-secret key material derived by Derive.
// Key(fieldIndex) returns the (key_a, key_b) pair the Bloom encoder uses
// for that field's double hashing.
type KeySet struct {
	keys [][numSecrets][]byte
}

// NumFields reports how many fields this KeySet has keys for.
func (k *KeySet) NumFields() int {
	return len(k.keys)
}

// Key returns the (key_a, key_b) pair for the given field index.
func (k *KeySet) Key(fieldIndex int) (keyA, keyB []byte) {
	pair := k.keys[fieldIndex]
	return pair[0], pair[1]
}

// Options configures key derivation.
type Options struct {
	// Algorithm is the HKDF hash function. Defaults to SHA256.
	Algorithm Algorithm

	// KeySize is the number of bytes derived per field per secret.
	// Defaults to DefaultKeySize.
	KeySize int

	// Salt and Info are passed through to HKDF-Extract/Expand.
	Salt []byte
	Info []byte

	// Legacy, when true, skips HKDF entirely and reuses the two master
	// secrets verbatim as (key_a, key_b) for every field. This
	// reproduces historical encodings and is insecure: every field
	// collides on the same key material. LoggerFactory is used to warn
	// once per call when this is set.
	Legacy bool

	// LoggerFactory creates the scoped logger used for the legacy-mode
	// warning. If nil, the warning is not logged.
	LoggerFactory logging.LoggerFactory
}

// UnsupportedAlgorithmError is returned when Options.Algorithm names an
// unrecognized hash function.
type UnsupportedAlgorithmError struct {
	Algorithm string
}

func (e *UnsupportedAlgorithmError) Error() string {
	return "kdf: unsupported algorithm " + e.Algorithm
}

// SecretCountError is returned when Derive is not given exactly two
// master secrets.
type SecretCountError struct {
	Got int
}

func (e *SecretCountError) Error() string {
	return "kdf: exactly 2 master secrets required (double-hash key_a/key_b), got a different count"
}

// Derive expands masterSecrets into a KeySet with numFields entries.
// Exactly two master secrets are required: one produces each field's
// key_a (consumed by the HMAC-SHA1 leg of double hashing), the other
// key_b (the HMAC-MD5 leg). See pkg/bloom.
func Derive(masterSecrets [][]byte, numFields int, opts Options) (*KeySet, error) {
	if len(masterSecrets) != numSecrets {
		return nil, &SecretCountError{Got: len(masterSecrets)}
	}

	keySize := opts.KeySize
	if keySize <= 0 {
		keySize = DefaultKeySize
	}

	var log logging.LeveledLogger
	if opts.LoggerFactory != nil {
		log = opts.LoggerFactory.NewLogger("kdf")
	}

	if opts.Legacy {
		if log != nil {
			log.Warn("kdf: legacy mode active — every field reuses the same key pair, this is insecure and exists only for reproducing historical encodings")
		}
		keys := make([][numSecrets][]byte, numFields)
		for f := 0; f < numFields; f++ {
			keys[f] = [numSecrets][]byte{masterSecrets[0], masterSecrets[1]}
		}
		return &KeySet{keys: keys}, nil
	}

	algo := opts.Algorithm
	if algo == "" {
		algo = SHA256
	}
	newHash, err := algo.newHash()
	if err != nil {
		return nil, err
	}

	// expanded[i] holds numFields*keySize bytes derived from secret i,
	// split into consecutive per-field keys.
	expanded := make([][]byte, numSecrets)
	for i, secret := range masterSecrets {
		reader := hkdf.New(newHash, secret, opts.Salt, opts.Info)
		buf := make([]byte, numFields*keySize)
		if _, err := io.ReadFull(reader, buf); err != nil {
			return nil, err
		}
		expanded[i] = buf
	}

	// Transpose: keys[f][i] = expanded[i][f*keySize : (f+1)*keySize].
	keys := make([][numSecrets][]byte, numFields)
	for f := 0; f < numFields; f++ {
		for i := 0; i < numSecrets; i++ {
			start := f * keySize
			keys[f][i] = expanded[i][start : start+keySize]
		}
	}

	return &KeySet{keys: keys}, nil
}

// DeriveFromText is a convenience wrapper accepting UTF-8 text secrets,
// for callers that hold secrets as strings rather than raw bytes.
func DeriveFromText(masterSecrets []string, numFields int, opts Options) (*KeySet, error) {
	raw := make([][]byte, len(masterSecrets))
	for i, s := range masterSecrets {
		raw[i] = []byte(s)
	}
	return Derive(raw, numFields, opts)
}
