package photosync

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// NoteFields are the optional columns a structured note can carry.
type NoteFields struct {
	DamageType *string
	Severity   *string
	PhotoOrder *int
	ClaimID    *string
}

// ParseNotes reads structured fields out of a JSON object note. Free text,
// malformed JSON and fields of the wrong type yield nothing.
func ParseNotes(notes string) NoteFields {
	var fields NoteFields

	trimmed := strings.TrimSpace(notes)
	if !strings.HasPrefix(trimmed, "{") {
		return fields
	}

	var raw map[string]interface{}
	if err := json.Unmarshal([]byte(trimmed), &raw); err != nil {
		return fields
	}

	fields.DamageType = stringField(raw, "damageType", "damage_type")
	fields.Severity = stringField(raw, "severity")
	fields.PhotoOrder = intField(raw, "photoOrder", "photo_order")
	fields.ClaimID = stringField(raw, "claimId", "claim_id")
	return fields
}

func stringField(raw map[string]interface{}, keys ...string) *string {
	for _, key := range keys {
		if s, ok := raw[key].(string); ok && s != "" {
			return &s
		}
	}
	return nil
}

func intField(raw map[string]interface{}, keys ...string) *int {
	for _, key := range keys {
		switch v := raw[key].(type) {
		case float64:
			if v == math.Trunc(v) {
				n := int(v)
				return &n
			}
		case string:
			if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
				return &n
			}
		}
	}
	return nil
}
