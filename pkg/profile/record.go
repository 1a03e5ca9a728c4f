package profile

import (
	"encoding/json"
	"fmt"
)

// Record is one merged profile: the overview payload plus whatever categories
// succeeded. It is built once per identifier and not mutated after Fetch returns.
type Record map[string]any

// Record keys set by the merge.
const (
	KeyUsername       = "username"
	KeyURN            = "urn"
	KeyAbout          = "about"
	KeyPositions      = "positions"
	KeyEducation      = "education"
	KeyExperience     = "experience"
	KeySkills         = "skills"
	KeyCertifications = "certifications"
	KeyContactInfo    = "contactInfo"
)

// Username returns the identifier the record was fetched for.
func (r Record) Username() string {
	s, _ := r[KeyUsername].(string)
	return s
}

// URN returns the secondary key from the overview payload, if any.
func (r Record) URN() string {
	s, _ := r[KeyURN].(string)
	return s
}

// categoryResult is the arena slot one category task writes.
type categoryResult struct {
	ok   bool
	data any
}

// decodePayload unmarshals a category payload into a generic value.
func decodePayload(raw json.RawMessage) (any, error) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	return v, nil
}

// unwrap returns payload[key] when payload is an object, else payload itself.
// A missing key yields an empty list.
func unwrap(payload any, key string) any {
	obj, ok := payload.(map[string]any)
	if !ok {
		return payload
	}
	if v, ok := obj[key]; ok {
		return v
	}
	return []any{}
}

// checkPayload rejects payloads the merge cannot use for c.
func checkPayload(c Category, payload any) error {
	if c == CategoryDetails {
		if _, ok := payload.(map[string]any); !ok {
			return fmt.Errorf("details payload is %T, want object", payload)
		}
	}
	return nil
}

// mergeCategory folds one category payload into the record.
func (r Record) mergeCategory(c Category, payload any) {
	switch c {
	case CategoryDetails:
		obj, _ := payload.(map[string]any)
		r[KeyAbout] = valueOr(obj, KeyAbout, "")
		r[KeyPositions] = valueOr(obj, KeyPositions, []any{})
		r[KeyEducation] = valueOr(obj, KeyEducation, []any{})
	case CategoryExperience:
		r[KeyExperience] = unwrap(payload, KeyExperience)
	case CategoryEducation:
		r[KeyEducation] = unwrap(payload, KeyEducation)
	case CategorySkills:
		r[KeySkills] = unwrap(payload, KeySkills)
	case CategoryCertifications:
		r[KeyCertifications] = unwrap(payload, KeyCertifications)
	case CategoryContact:
		r[KeyContactInfo] = payload
	}
}

// merge applies the category results in fixed order, so Education always
// overrides the education list from Details.
func (r Record) merge(slots []categoryResult) {
	for i, c := range AllCategories {
		if i < len(slots) && slots[i].ok {
			r.mergeCategory(c, slots[i].data)
		}
	}
}

func valueOr(obj map[string]any, key string, def any) any {
	if v, ok := obj[key]; ok {
		return v
	}
	return def
}
