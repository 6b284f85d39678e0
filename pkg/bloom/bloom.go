// Package bloom maps schema-driven tokens into a keyed Bloom filter
// using HMAC-based double hashing, honoring per-field insertion
// strategies and the schema's optional XOR-fold post-processing step.
package bloom

import (
	"crypto/hmac"
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"fmt"
	"hash"
	"math/big"

	"github.com/linkforge/clk/pkg/bitarray"
	"github.com/linkforge/clk/pkg/kdf"
	"github.com/linkforge/clk/pkg/schema"
	"github.com/linkforge/clk/pkg/tokenize"
)

// Encoder turns rows into Bloom-filter bit vectors under a fixed
// Schema and KeySet. An Encoder holds no per-row state and is safe for
// concurrent use by multiple goroutines, provided the underlying
// Schema and KeySet are not mutated (they are documented as immutable
// after construction).
type Encoder struct {
	Schema *schema.Schema
	Keys   *kdf.KeySet

	// PreventSingularity forces h2 = 1 whenever h2 mod L == 0, avoiding
	// all k probes of a token collapsing onto h1. Default on, matching
	// spec.md's "default on for doubleHash".
	PreventSingularity bool
}

// NewEncoder constructs an Encoder with singularity prevention enabled.
func NewEncoder(s *schema.Schema, keys *kdf.KeySet) *Encoder {
	return &Encoder{Schema: s, Keys: keys, PreventSingularity: true}
}

// EncodedRow is the result of encoding a single row: its bit vector,
// its position in the original input, and its Hamming weight.
type EncodedRow struct {
	Bits     *bitarray.BitArray
	Index    int
	Popcount int
}

// EncodeRow encodes one row. If validateInput is false, field
// validators are skipped and raw values are passed directly to their
// comparators, matching spec.md's `validate=false` escape hatch.
func (e *Encoder) EncodeRow(row []string, rowIndex int, validateInput bool) (EncodedRow, error) {
	fields := e.Schema.Fields
	if len(row) != len(fields) {
		return EncodedRow{}, &FormatError{
			RowIndex: rowIndex,
			Reason:   fmt.Sprintf("expected %d columns, got %d", len(fields), len(row)),
		}
	}

	bv, err := bitarray.New(e.Schema.L)
	if err != nil {
		return EncodedRow{}, err
	}

	for fieldIdx, field := range fields {
		if field.Ignored {
			continue
		}
		raw := row[fieldIdx]

		if field.MissingValue != nil && raw == field.MissingValue.Sentinel {
			if !field.MissingValue.HasReplace {
				continue
			}
			raw = field.MissingValue.ReplaceWith
		}

		if validateInput {
			formatted, ferr := field.Format.Format(raw)
			if ferr != nil {
				return EncodedRow{}, &InvalidEntryError{
					RowIndex: rowIndex,
					Field:    field.Identifier,
					Reason:   ferr.Error(),
				}
			}
			raw = formatted
		}

		tokens := tokenize.Collect(field.Comparator.Tokens(raw))
		if len(tokens) == 0 {
			continue
		}
		k := field.Strategy.BitsPerToken(len(tokens))
		if k <= 0 {
			continue
		}

		keyA, keyB := e.Keys.Key(fieldIdx)
		for _, tok := range tokens {
			if e.Schema.HashType == schema.BlakeHash {
				e.insertBlake(bv, keyA, tok, k)
			} else {
				e.insertDouble(bv, keyA, keyB, tok, k)
			}
		}
	}

	folded, err := Fold(bv, e.Schema.XorFolds)
	if err != nil {
		return EncodedRow{}, err
	}

	return EncodedRow{Bits: folded, Index: rowIndex, Popcount: folded.Popcount()}, nil
}

func (e *Encoder) insertDouble(bv *bitarray.BitArray, keyA, keyB []byte, token string, k int) {
	l := bv.Len()
	h1 := hmacMod(sha1.New, keyA, token, l)
	h2 := hmacMod(md5.New, keyB, token, l)
	if e.PreventSingularity && h2 == 0 {
		h2 = 1
	}
	for i := 0; i < k; i++ {
		pos := (h1 + i*h2) % l
		bv.Set(pos)
	}
}

func (e *Encoder) insertBlake(bv *bitarray.BitArray, keyA []byte, token string, k int) {
	l := bv.Len()
	for i := 0; i < k; i++ {
		pos := hmacMod(sha256.New, keyA, fmt.Sprintf("%s%d", token, i), l)
		bv.Set(pos)
	}
}

// hmacMod computes HMAC(key, data) under the given hash constructor,
// interprets the digest big-endian as an integer, and reduces it
// modulo mod.
func hmacMod(newHash func() hash.Hash, key []byte, data string, mod int) int {
	mac := hmac.New(newHash, key)
	mac.Write([]byte(data))
	sum := mac.Sum(nil)
	n := new(big.Int).SetBytes(sum)
	n.Mod(n, big.NewInt(int64(mod)))
	return int(n.Int64())
}
