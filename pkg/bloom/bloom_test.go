package bloom

import (
	"strconv"
	"testing"

	"github.com/linkforge/clk/pkg/kdf"
	"github.com/linkforge/clk/pkg/schema"
)

const s1SchemaJSON = `{
  "version": 1,
  "clkConfig": {"l": 1024, "hash": {"type": "doubleHash"}, "kdf": {}, "xorFolds": 0},
  "features": [{
    "identifier": "NAME",
    "format": {"type": "string"},
    "hashing": {
      "comparison": {"type": "ngram", "n": 2, "positional": false},
      "strategy": {"type": "bitsPerToken", "bitsPerToken": 20}
    }
  }]
}`

func mustSchema(t *testing.T, doc string) *schema.Schema {
	t.Helper()
	s, err := schema.Load([]byte(doc))
	if err != nil {
		t.Fatalf("schema.Load: %v", err)
	}
	return s
}

func mustKeys(t *testing.T, s *schema.Schema) *kdf.KeySet {
	t.Helper()
	keys, err := kdf.DeriveFromText([]string{"a", "b"}, len(s.Fields), kdf.Options{})
	if err != nil {
		t.Fatalf("kdf.DeriveFromText: %v", err)
	}
	return keys
}

// S1 (exact match): Schema with one String field (n=2, bitsPerToken=20),
// L=1024, xf=0, secrets=("a","b"). Encoding "Alice" twice yields
// identical vectors; popcount > 0; popcount <= 20*6 = 120.
func TestScenarioS1ExactMatch(t *testing.T) {
	s := mustSchema(t, s1SchemaJSON)
	keys := mustKeys(t, s)
	enc := NewEncoder(s, keys)

	r1, err := enc.EncodeRow([]string{"Alice"}, 0, true)
	if err != nil {
		t.Fatalf("EncodeRow: %v", err)
	}
	r2, err := enc.EncodeRow([]string{"Alice"}, 0, true)
	if err != nil {
		t.Fatalf("EncodeRow: %v", err)
	}
	if string(r1.Bits.Bytes()) != string(r2.Bits.Bytes()) {
		t.Error("encoding the same value twice produced different vectors")
	}
	if r1.Popcount <= 0 {
		t.Error("expected a non-zero popcount")
	}
	if r1.Popcount > 20*6 {
		t.Errorf("popcount %d exceeds the 20*6 upper bound", r1.Popcount)
	}
}

// S2 (missing value substitution): Schema with name (sentinel "null" ->
// "Bob") and integer age (sentinel "NA" -> "42"). Rows ["Bob","42"] and
// ["null","NA"] produce identical encodings.
func TestScenarioS2MissingValueSubstitution(t *testing.T) {
	doc := `{
	  "version": 1,
	  "clkConfig": {"l": 1024, "hash": {}, "kdf": {}},
	  "features": [
	    {
	      "identifier": "NAME",
	      "format": {"type": "string"},
	      "hashing": {
	        "comparison": {"type": "ngram", "n": 2},
	        "strategy": {"type": "bitsPerToken", "bitsPerToken": 15},
	        "missingValue": {"sentinel": "null", "replaceWith": "Bob"}
	      }
	    },
	    {
	      "identifier": "AGE",
	      "format": {"type": "integer"},
	      "hashing": {
	        "comparison": {"type": "ngram", "n": 1},
	        "strategy": {"type": "bitsPerToken", "bitsPerToken": 15},
	        "missingValue": {"sentinel": "NA", "replaceWith": "42"}
	      }
	    }
	  ]
	}`
	s := mustSchema(t, doc)
	keys := mustKeys(t, s)
	enc := NewEncoder(s, keys)

	direct, err := enc.EncodeRow([]string{"Bob", "42"}, 0, true)
	if err != nil {
		t.Fatalf("EncodeRow(direct): %v", err)
	}
	sentinel, err := enc.EncodeRow([]string{"null", "NA"}, 1, true)
	if err != nil {
		t.Fatalf("EncodeRow(sentinel): %v", err)
	}
	if string(direct.Bits.Bytes()) != string(sentinel.Bits.Bytes()) {
		t.Error("sentinel substitution did not reproduce the direct encoding")
	}
}

func TestEncodeRowRejectsColumnCountMismatch(t *testing.T) {
	s := mustSchema(t, s1SchemaJSON)
	keys := mustKeys(t, s)
	enc := NewEncoder(s, keys)

	_, err := enc.EncodeRow([]string{"Alice", "extra"}, 0, true)
	if err == nil {
		t.Fatal("expected a FormatError for a column-count mismatch")
	}
	if _, ok := err.(*FormatError); !ok {
		t.Errorf("expected *FormatError, got %T", err)
	}
}

func TestEncodeRowRejectsInvalidEntry(t *testing.T) {
	doc := `{
	  "version": 1,
	  "clkConfig": {"l": 64, "hash": {}, "kdf": {}},
	  "features": [{
	    "identifier": "AGE",
	    "format": {"type": "integer", "minimum": 0, "maximum": 120},
	    "hashing": {"comparison": {"type": "ngram", "n": 1}, "strategy": {"type": "bitsPerToken", "bitsPerToken": 5}}
	  }]
	}`
	s := mustSchema(t, doc)
	keys := mustKeys(t, s)
	enc := NewEncoder(s, keys)

	_, err := enc.EncodeRow([]string{"not-a-number"}, 0, true)
	if err == nil {
		t.Fatal("expected an InvalidEntryError")
	}
	if _, ok := err.(*InvalidEntryError); !ok {
		t.Errorf("expected *InvalidEntryError, got %T", err)
	}
}

func TestEncodeRowSkipsValidationWhenDisabled(t *testing.T) {
	doc := `{
	  "version": 1,
	  "clkConfig": {"l": 64, "hash": {}, "kdf": {}},
	  "features": [{
	    "identifier": "AGE",
	    "format": {"type": "integer", "minimum": 0, "maximum": 120},
	    "hashing": {"comparison": {"type": "ngram", "n": 1}, "strategy": {"type": "bitsPerToken", "bitsPerToken": 5}}
	  }]
	}`
	s := mustSchema(t, doc)
	keys := mustKeys(t, s)
	enc := NewEncoder(s, keys)

	// "not-a-number" would fail Integer validation, but validate=false
	// passes it straight to the comparator instead of raising.
	row, err := enc.EncodeRow([]string{"not-a-number"}, 0, false)
	if err != nil {
		t.Fatalf("EncodeRow with validation disabled: %v", err)
	}
	if row.Popcount == 0 {
		t.Error("expected some bits set even with an unvalidated value")
	}
}

// Weight monotonicity: increasing bits_per_token for a field weakly
// increases the popcount of the produced vector.
func TestWeightMonotonicity(t *testing.T) {
	build := func(k int) *EncodedRow {
		doc := `{
		  "version": 1,
		  "clkConfig": {"l": 2048, "hash": {}, "kdf": {}},
		  "features": [{
		    "identifier": "NAME",
		    "format": {"type": "string"},
		    "hashing": {
		      "comparison": {"type": "ngram", "n": 2},
		      "strategy": {"type": "bitsPerToken", "bitsPerToken": ` + strconv.Itoa(k) + `}
		    }
		  }]
		}`
		s := mustSchema(t, doc)
		keys := mustKeys(t, s)
		enc := NewEncoder(s, keys)
		row, err := enc.EncodeRow([]string{"Alexandria"}, 0, true)
		if err != nil {
			t.Fatalf("EncodeRow: %v", err)
		}
		return &row
	}

	prev := build(1)
	for _, k := range []int{2, 5, 10} {
		cur := build(k)
		if cur.Popcount < prev.Popcount {
			t.Errorf("k=%d popcount %d is less than smaller-k popcount %d", k, cur.Popcount, prev.Popcount)
		}
		prev = cur
	}
}

// Determinism: for a fixed (row, schema, secrets), EncodeRow returns
// identical bit vectors across repeated calls.
func TestDeterminism(t *testing.T) {
	s := mustSchema(t, s1SchemaJSON)
	keys := mustKeys(t, s)
	enc := NewEncoder(s, keys)

	var first string
	for i := 0; i < 5; i++ {
		row, err := enc.EncodeRow([]string{"Zanzibar"}, 0, true)
		if err != nil {
			t.Fatalf("EncodeRow: %v", err)
		}
		if i == 0 {
			first = string(row.Bits.Bytes())
			continue
		}
		if string(row.Bits.Bytes()) != first {
			t.Error("EncodeRow is not deterministic across repeated calls")
		}
	}
}
