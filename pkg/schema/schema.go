// Package schema loads and validates the JSON description of a CLK
// encoding: filter length, KDF configuration, and the ordered list of
// per-field formats, comparators, and insertion strategies.
package schema

import (
	"encoding/json"
	"os"
	"regexp"

	"github.com/linkforge/clk/pkg/tokenize"
	"github.com/linkforge/clk/pkg/validate"
)

// HashType selects how the Bloom encoder derives bit positions from a
// token.
type HashType string

const (
	DoubleHash HashType = "doubleHash"
	BlakeHash  HashType = "blakeHash"
)

// KDFConfig carries the key-derivation parameters recorded in a
// schema's clkConfig.kdf block.
type KDFConfig struct {
	Legacy  bool
	Hash    string // "SHA256" | "SHA512"
	Salt    []byte
	Info    []byte
	KeySize int
}

// MissingValue describes a field's sentinel-substitution policy: an
// input equal to Sentinel is replaced with ReplaceWith before
// tokenization (or dropped entirely, if ReplaceWith is empty and no
// replacement was configured).
type MissingValue struct {
	Sentinel    string
	ReplaceWith string
	HasReplace  bool
}

// FieldSpec describes one input column: its validator, its comparator,
// its bit-insertion strategy, and its missing-value policy.
type FieldSpec struct {
	Identifier string
	Ignored    bool

	Format     validate.Validator
	Comparator tokenize.Comparator
	Strategy   Strategy

	MissingValue *MissingValue
}

// Schema is the immutable, loaded description of how every column of a
// row is validated, tokenized, and inserted into the output filter.
type Schema struct {
	L        int
	HashType HashType
	KDF      KDFConfig
	XorFolds int

	Fields []FieldSpec
}

const supportedVersion = 1

// Load parses and validates a schema document.
func Load(jsonBytes []byte) (*Schema, error) {
	var doc wireDocument
	if err := json.Unmarshal(jsonBytes, &doc); err != nil {
		return nil, invalidf("malformed schema JSON: %v", err)
	}

	if doc.Version == nil {
		return nil, invalidf("schema is missing required field \"version\"")
	}
	if *doc.Version != supportedVersion {
		return nil, &UnsupportedSchemaVersionError{Version: *doc.Version}
	}

	if doc.ClkConfig.L == nil {
		return nil, invalidf("clkConfig is missing required field \"l\"")
	}
	l := *doc.ClkConfig.L
	if l <= 0 || l%8 != 0 {
		return nil, invalidf("clkConfig.l must be a positive multiple of 8, got %d", l)
	}

	xf := doc.ClkConfig.Xf
	if xf < 0 {
		return nil, invalidf("clkConfig.xorFolds must be non-negative, got %d", xf)
	}
	divisor := 1 << uint(xf)
	if l%divisor != 0 {
		return nil, invalidf("clkConfig.l (%d) is not evenly divisible by 2^xorFolds (2^%d)", l, xf)
	}
	if (l/divisor)%8 != 0 {
		return nil, invalidf("clkConfig.l (%d) folded %d times is %d bits, not a multiple of 8", l, xf, l/divisor)
	}

	hashType := HashType(doc.ClkConfig.Hash.Type)
	switch hashType {
	case "":
		hashType = DoubleHash
	case DoubleHash, BlakeHash:
	default:
		return nil, invalidf("unknown hash type %q", doc.ClkConfig.Hash.Type)
	}

	kdfHash := doc.ClkConfig.KDF.Hash
	if kdfHash == "" {
		kdfHash = "SHA256"
	}
	keySize := doc.ClkConfig.KDF.KeySize
	if keySize == 0 {
		keySize = 64
	}
	kdfCfg := KDFConfig{
		Legacy:  doc.ClkConfig.KDF.Type == "legacy",
		Hash:    kdfHash,
		Salt:    []byte(doc.ClkConfig.KDF.Salt),
		Info:    []byte(doc.ClkConfig.KDF.Info),
		KeySize: keySize,
	}

	if len(doc.Features) == 0 {
		return nil, invalidf("schema must declare at least one feature")
	}

	defaultStrategy, err := resolveDefaultStrategy(doc.ClkConfig.K, doc.ClkConfig.Strategy)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(doc.Features))
	fields := make([]FieldSpec, 0, len(doc.Features))
	for i, feat := range doc.Features {
		if feat.Identifier == "" {
			return nil, invalidf("feature %d is missing required field \"identifier\"", i)
		}
		if _, dup := seen[feat.Identifier]; dup {
			return nil, invalidf("duplicate feature identifier %q", feat.Identifier)
		}
		seen[feat.Identifier] = struct{}{}

		field, err := buildField(feat, defaultStrategy)
		if err != nil {
			return nil, invalidf("feature %q: %v", feat.Identifier, err)
		}
		fields = append(fields, field)
	}

	return &Schema{
		L:        l,
		HashType: hashType,
		KDF:      kdfCfg,
		XorFolds: xf,
		Fields:   fields,
	}, nil
}

// LoadFile reads a schema document from path and loads it. It is a
// convenience wrapper over Load for callers (such as the CLI) that
// have a filesystem path rather than an in-memory byte slice.
func LoadFile(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Load(data)
}

func buildField(feat wireFeature, defaultStrategy Strategy) (FieldSpec, error) {
	field := FieldSpec{
		Identifier: feat.Identifier,
		Ignored:    feat.Ignored,
	}

	if feat.Ignored {
		return field, nil
	}

	format, err := buildFormat(feat.Format)
	if err != nil {
		return FieldSpec{}, err
	}
	field.Format = format

	if feat.Hashing == nil {
		return FieldSpec{}, invalidf("non-ignored feature is missing required \"hashing\" block")
	}

	comparator, err := resolveComparator(feat.Hashing.Comparison)
	if err != nil {
		return FieldSpec{}, err
	}
	field.Comparator = comparator

	strategy, err := resolveStrategy(feat.Hashing.Strategy, defaultStrategy)
	if err != nil {
		return FieldSpec{}, err
	}
	field.Strategy = strategy

	if feat.Hashing.MissingValue != nil {
		mv := feat.Hashing.MissingValue
		field.MissingValue = &MissingValue{
			Sentinel:    mv.Sentinel,
			ReplaceWith: mv.ReplaceWith,
			HasReplace:  mv.ReplaceWith != "",
		}
	}

	return field, nil
}

func buildFormat(f wireFormat) (validate.Validator, error) {
	switch f.Type {
	case "string":
		v := &validate.StringValidator{
			MinLength: f.MinLength,
			MaxLength: f.MaxLength,
			Case:      f.Case,
		}
		if f.Case == "" {
			v.Case = validate.CaseMixed
		}
		switch f.Encoding {
		case "", "utf8", "utf-8", "UTF-8":
			v.Encoding = validate.EncodingUTF8
		case "ascii", "ASCII":
			v.Encoding = validate.EncodingASCII
		default:
			return nil, invalidf("unknown string encoding %q", f.Encoding)
		}
		if f.Pattern != "" {
			re, err := regexp.Compile(f.Pattern)
			if err != nil {
				return nil, invalidf("invalid string pattern %q: %v", f.Pattern, err)
			}
			v.Regex = re
		}
		return v, nil

	case "integer":
		v := &validate.IntegerValidator{}
		if f.Minimum != nil {
			v.HasMinimum = true
			v.Minimum = *f.Minimum
		}
		if f.Maximum != nil {
			v.HasMaximum = true
			v.Maximum = *f.Maximum
		}
		return v, nil

	case "date":
		if f.DatePattern == "" {
			return nil, invalidf("date format is missing required \"format\" strftime pattern")
		}
		return validate.NewDateValidator(f.DatePattern)

	case "enum":
		if len(f.Values) == 0 {
			return nil, invalidf("enum format must declare at least one value")
		}
		return validate.NewEnumValidator(f.Values), nil

	case "numeric":
		return validate.NumericValidator{}, nil

	default:
		return nil, invalidf("unknown format type %q", f.Type)
	}
}
