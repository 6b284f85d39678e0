package schema

import "encoding/json"

// The wire* types mirror the on-disk schema JSON document (version 1)
// described by spec.md's External Interfaces section. They exist only
// to drive json.Unmarshal; Load converts them into the immutable Schema
// and FieldSpec types the rest of the package works with.

type wireDocument struct {
	Version   *int          `json:"version"`
	ClkConfig wireClkConfig `json:"clkConfig"`
	Features  []wireFeature `json:"features"`
}

type wireClkConfig struct {
	L        *int            `json:"l"`
	K        int             `json:"k"`
	Strategy json.RawMessage `json:"strategy"`
	Hash     wireHash        `json:"hash"`
	KDF      wireKDF         `json:"kdf"`
	Xf       int             `json:"xorFolds"`
}

type wireHash struct {
	Type string `json:"type"` // "doubleHash" (default) | "blakeHash"
}

type wireKDF struct {
	Type    string `json:"type"` // "standard" (default) | "legacy"
	Hash    string `json:"hash"` // "SHA256" (default) | "SHA512"
	Salt    string `json:"salt"`
	Info    string `json:"info"`
	KeySize int    `json:"keySize"`
}

type wireFeature struct {
	Identifier string           `json:"identifier"`
	Ignored    bool             `json:"ignored"`
	Format     wireFormat       `json:"format"`
	Hashing    *wireHashingSpec `json:"hashing"`
}

type wireFormat struct {
	Type string `json:"type"` // string | integer | date | enum | numeric

	// string
	Encoding  string `json:"encoding,omitempty"`
	Case      string `json:"case,omitempty"`
	Pattern   string `json:"pattern,omitempty"`
	MinLength int    `json:"minLength,omitempty"`
	MaxLength int    `json:"maxLength,omitempty"`

	// integer
	Minimum *int64 `json:"minimum,omitempty"`
	Maximum *int64 `json:"maximum,omitempty"`

	// date
	DatePattern string `json:"format,omitempty"`

	// enum
	Values []string `json:"values,omitempty"`
}

type wireHashingSpec struct {
	Comparison   json.RawMessage    `json:"comparison"`
	Strategy     json.RawMessage    `json:"strategy"`
	MissingValue *wireMissingValue  `json:"missingValue,omitempty"`
}

type wireMissingValue struct {
	Sentinel    string `json:"sentinel"`
	ReplaceWith string `json:"replaceWith"`
}

type wireTagged struct {
	Type string `json:"type"`
}
