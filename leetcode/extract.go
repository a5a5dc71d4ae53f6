package leetcode

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/tnicklin/leetcode_tracker/leetcode/client"
	"github.com/tnicklin/leetcode_tracker/models"
)

// Payload fields read from the API.
const (
	fieldReputation = "reputation"
	fieldRanking    = "ranking"
	fieldSolved     = "solvedProblem"
	fieldBadges     = "badges"
	fieldBadgeName  = "displayName"
)

// statField reads key from payload as a number. Missing keys and values that
// are not numbers or numeric strings are unavailable.
func statField(payload client.Payload, key string) models.Stat {
	v, ok := payload[key]
	if !ok {
		return models.Stat{}
	}
	return toStat(v)
}

func toStat(v any) models.Stat {
	var f float64
	switch n := v.(type) {
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return models.Stat{}
		}
		f = parsed
	case float64:
		f = n
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return models.Stat{}
		}
		f = parsed
	default:
		return models.Stat{}
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return models.Stat{}
	}
	return models.Available(f)
}

// badgeNames lists each badge's display name in payload order. Entries
// without a name become "N/A"; a missing or malformed list yields an empty,
// non-nil slice.
func badgeNames(payload client.Payload) []string {
	names := []string{}
	list, ok := payload[fieldBadges].([]any)
	if !ok {
		return names
	}
	for _, entry := range list {
		name := models.NotAvailable
		if badge, ok := entry.(map[string]any); ok {
			if s, ok := badge[fieldBadgeName].(string); ok {
				name = s
			}
		}
		names = append(names, name)
	}
	return names
}
