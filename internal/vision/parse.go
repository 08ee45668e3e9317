package vision

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"camreview/internal/services"
	"camreview/internal/services/llm"
)

// Detection is a parsed animal-presence verdict. Confidence is nil when the
// model gave none or gave a non-numeric value.
type Detection struct {
	Critter    bool     `json:"critter"`
	Confidence *float64 `json:"confidence"`
}

var critterKeys = []string{"critter", "animalPresent", "animal_present"}

// ParseDetection decodes a model reply. The trimmed text is tried as JSON
// first, then the first balanced {...} inside it.
func ParseDetection(text string) (Detection, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return Detection{}, invalid("empty reply", nil)
	}
	var fields map[string]any
	if err := json.Unmarshal([]byte(trimmed), &fields); err != nil {
		object, ok := llm.FirstJSONObject(trimmed)
		if !ok {
			return Detection{}, invalid("no JSON object in reply", err)
		}
		if err := json.Unmarshal([]byte(object), &fields); err != nil {
			return Detection{}, invalid("decode extracted object", err)
		}
	}

	var (
		critter bool
		found   bool
	)
	for _, key := range critterKeys {
		if raw, ok := fields[key]; ok {
			if critter, found = boolish(raw); found {
				break
			}
		}
	}
	if !found {
		return Detection{}, invalid(fmt.Sprintf("no boolean animal flag in %s", strings.Join(critterKeys, "/")), nil)
	}
	return Detection{Critter: critter, Confidence: NormalizeConfidence(fields["confidence"])}, nil
}

// NormalizeConfidence maps a numeric confidence onto [0,1]. Values in (1,100]
// are treated as percentages; anything else out of range is clamped.
// Non-numeric values yield nil.
func NormalizeConfidence(raw any) *float64 {
	value, ok := raw.(float64)
	if !ok || math.IsNaN(value) || math.IsInf(value, 0) {
		return nil
	}
	if value > 1 && value <= 100 {
		value /= 100
	}
	value = math.Max(0, math.Min(1, value))
	return &value
}

func boolish(raw any) (bool, bool) {
	switch v := raw.(type) {
	case bool:
		return v, true
	case float64:
		return v > 0, true
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true", "yes":
			return true, true
		case "false", "no":
			return false, true
		}
		if n, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			return n > 0, true
		}
	}
	return false, false
}

func invalid(msg string, err error) error {
	return services.Wrap(services.ErrInvalidResponse, "vision", "parse detection", msg, err)
}
