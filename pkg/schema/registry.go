package schema

import (
	"encoding/json"

	"github.com/linkforge/clk/pkg/tokenize"
)

// comparatorBuilders maps a hashing.comparison "type" tag to the
// constructor for the matching tokenize.Comparator. Mirrors the
// endpoint/cluster dispatch table pattern the teacher uses for routing
// IM operations by cluster tag.
var comparatorBuilders = map[string]func(json.RawMessage) (tokenize.Comparator, error){
	"ngram": func(raw json.RawMessage) (tokenize.Comparator, error) {
		var cfg struct {
			N          int  `json:"n"`
			Positional bool `json:"positional"`
		}
		if err := json.Unmarshal(raw, &cfg); err != nil {
			return nil, invalidf("comparison type \"ngram\": %v", err)
		}
		cmp, err := tokenize.NewNgramComparator(cfg.N, cfg.Positional)
		if err != nil {
			return nil, invalidf("comparison type \"ngram\": %v", err)
		}
		return cmp, nil
	},
	"exact": func(raw json.RawMessage) (tokenize.Comparator, error) {
		return tokenize.ExactComparator{}, nil
	},
	"numeric": func(raw json.RawMessage) (tokenize.Comparator, error) {
		var cfg struct {
			ThresholdDistance   float64 `json:"thresholdDistance"`
			Resolution          int     `json:"resolution"`
			FractionalPrecision int     `json:"fractionalPrecision"`
		}
		if err := json.Unmarshal(raw, &cfg); err != nil {
			return nil, invalidf("comparison type \"numeric\": %v", err)
		}
		cmp, err := tokenize.NewNumericComparator(cfg.ThresholdDistance, cfg.Resolution, cfg.FractionalPrecision)
		if err != nil {
			return nil, invalidf("comparison type \"numeric\": %v", err)
		}
		return cmp, nil
	},
	"none": func(raw json.RawMessage) (tokenize.Comparator, error) {
		return tokenize.NoneComparator{}, nil
	},
}

// strategyBuilders maps a hashing.strategy "type" tag to the matching
// Strategy constructor.
var strategyBuilders = map[string]func(json.RawMessage) (Strategy, error){
	"bitsPerToken": func(raw json.RawMessage) (Strategy, error) {
		var cfg struct {
			BitsPerToken int `json:"bitsPerToken"`
		}
		if err := json.Unmarshal(raw, &cfg); err != nil {
			return nil, invalidf("strategy type \"bitsPerToken\": %v", err)
		}
		return BitsPerTokenStrategy{K: cfg.BitsPerToken}, nil
	},
	"bitsPerFeature": func(raw json.RawMessage) (Strategy, error) {
		var cfg struct {
			Budget int `json:"budget"`
		}
		if err := json.Unmarshal(raw, &cfg); err != nil {
			return nil, invalidf("strategy type \"bitsPerFeature\": %v", err)
		}
		return BitsPerFeatureStrategy{Budget: cfg.Budget}, nil
	},
}

func resolveComparator(raw json.RawMessage) (tokenize.Comparator, error) {
	var tag wireTagged
	if err := json.Unmarshal(raw, &tag); err != nil {
		return nil, invalidf("hashing.comparison: %v", err)
	}
	build, ok := comparatorBuilders[tag.Type]
	if !ok {
		return nil, invalidf("unknown comparator tag %q", tag.Type)
	}
	return build(raw)
}

// resolveStrategy resolves a field's hashing.strategy block. A field
// that omits it falls back to fallback, the schema-level clkConfig
// default (itself resolved by resolveDefaultStrategy); a schema with
// neither is invalid, since every non-ignored field must have a
// strategy that sets a nonzero number of bits per token.
func resolveStrategy(raw json.RawMessage, fallback Strategy) (Strategy, error) {
	if len(raw) == 0 {
		if fallback != nil {
			return fallback, nil
		}
		return nil, invalidf("missing required \"strategy\" and clkConfig declares no default \"k\" or \"strategy\"")
	}
	var tag wireTagged
	if err := json.Unmarshal(raw, &tag); err != nil {
		return nil, invalidf("hashing.strategy: %v", err)
	}
	build, ok := strategyBuilders[tag.Type]
	if !ok {
		return nil, invalidf("unknown strategy tag %q", tag.Type)
	}
	return build(raw)
}

// resolveDefaultStrategy resolves clkConfig's own "k|strategy" default
// (spec.md §6), used by fields that omit a per-field strategy. An
// explicit clkConfig.strategy block takes precedence over clkConfig.k;
// a clkConfig with neither yields a nil default, meaning every field
// must declare its own strategy.
func resolveDefaultStrategy(k int, strategy json.RawMessage) (Strategy, error) {
	if len(strategy) > 0 {
		resolved, err := resolveStrategy(strategy, nil)
		if err != nil {
			return nil, invalidf("clkConfig.strategy: %v", err)
		}
		return resolved, nil
	}
	if k > 0 {
		return BitsPerTokenStrategy{K: k}, nil
	}
	return nil, nil
}
