// Package humanizer runs the cover letter critique/rewrite loop.
package humanizer

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/jonathan/resume-studio/internal/types"
)

// Defaults and bounds for the loop configuration.
const (
	DefaultMinNaturalnessScore = 75
	DefaultMaxAiRiskScore      = 35
	DefaultMaxRewritePasses    = 1
	DefaultDebugLogs           = true

	maxScore         = 100
	maxRewritePasses = 3
)

// DefaultConfig returns the configuration used when nothing is configured.
func DefaultConfig() types.HumanizerConfig {
	return types.HumanizerConfig{
		MinNaturalnessScore: DefaultMinNaturalnessScore,
		MaxAiRiskScore:      DefaultMaxAiRiskScore,
		MaxRewritePasses:    DefaultMaxRewritePasses,
		DebugLogs:           DefaultDebugLogs,
	}
}

// ResolveConfig reads the llm.coverLetterHumanizer block of a raw runtime
// config. It never fails: missing or unusable values take their defaults,
// numeric strings and "true"/"false" strings are coerced, and numbers are
// clamped to their ranges.
func ResolveConfig(raw map[string]any) types.HumanizerConfig {
	cfg := DefaultConfig()

	block := nested(raw, "llm", "coverLetterHumanizer")
	if block == nil {
		return cfg
	}

	if v, ok := toNumber(block["minNaturalnessScore"]); ok {
		cfg.MinNaturalnessScore = clampInt(v, 0, maxScore)
	}
	if v, ok := toNumber(block["maxAiRiskScore"]); ok {
		cfg.MaxAiRiskScore = clampInt(v, 0, maxScore)
	}
	if v, ok := toNumber(block["maxRewritePasses"]); ok {
		cfg.MaxRewritePasses = clampInt(v, 0, maxRewritePasses)
	}
	if v, ok := toBool(block["debugLogs"]); ok {
		cfg.DebugLogs = v
	}
	return cfg
}

func nested(raw map[string]any, path ...string) map[string]any {
	cur := raw
	for _, key := range path {
		next, ok := asMap(cur[key])
		if !ok {
			return nil
		}
		cur = next
	}
	return cur
}

func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case map[any]any:
		out := make(map[string]any, len(m))
		for k, val := range m {
			if ks, ok := k.(string); ok {
				out[ks] = val
			}
		}
		return out, true
	}
	return nil, false
}

func toNumber(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case int:
		f = float64(n)
	case int32:
		f = float64(n)
	case int64:
		f = float64(n)
	case uint:
		f = float64(n)
	case uint64:
		f = float64(n)
	case float32:
		f = float64(n)
	case float64:
		f = n
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func toBool(v any) (bool, bool) {
	switch b := v.(type) {
	case bool:
		return b, true
	case string:
		switch strings.ToLower(strings.TrimSpace(b)) {
		case "true":
			return true, true
		case "false":
			return false, true
		}
	}
	return false, false
}

func clampInt(v float64, lo, hi int) int {
	r := int(math.Round(v))
	if r < lo {
		return lo
	}
	if r > hi {
		return hi
	}
	return r
}
