package profile

import (
	"fmt"
	"strings"

	"github.com/Sternrassler/profile-fetcher/pkg/client"
)

// Category is an optional secondary lookup. Overview is implicit and always performed.
type Category int

// Categories in merge order.
const (
	CategoryDetails Category = iota
	CategoryExperience
	CategoryEducation
	CategorySkills
	CategoryCertifications
	CategoryContact
)

// AllCategories lists every category in merge order.
var AllCategories = []Category{
	CategoryDetails,
	CategoryExperience,
	CategoryEducation,
	CategorySkills,
	CategoryCertifications,
	CategoryContact,
}

var categoryNames = [...]string{"details", "experience", "education", "skills", "certifications", "contact"}

var categoryLabels = [...]string{"Details", "Experience", "Education", "Skills", "Certifications", "Contact"}

var categoryPaths = [...]string{
	client.PathDetails,
	client.PathExperience,
	client.PathEducation,
	client.PathSkills,
	client.PathCertifications,
	client.PathContactInfo,
}

func (c Category) valid() bool {
	return c >= CategoryDetails && c <= CategoryContact
}

// String returns the lowercase name used on the command line and in metrics.
func (c Category) String() string {
	if !c.valid() {
		return fmt.Sprintf("category(%d)", int(c))
	}
	return categoryNames[c]
}

// Label returns the display name.
func (c Category) Label() string {
	if !c.valid() {
		return c.String()
	}
	return categoryLabels[c]
}

// Path returns the API endpoint path for the category.
func (c Category) Path() string {
	if !c.valid() {
		return ""
	}
	return categoryPaths[c]
}

// KeyedByIdentifier reports whether the lookup uses the identifier rather
// than the secondary key. Only Contact does.
func (c Category) KeyedByIdentifier() bool {
	return c == CategoryContact
}

// ParseCategory parses a lowercase category name.
func ParseCategory(s string) (Category, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for i, n := range categoryNames {
		if n == name {
			return Category(i), nil
		}
	}
	switch name {
	case "contact-info", "contactinfo", "contact_info":
		return CategoryContact, nil
	case "full-experience":
		return CategoryExperience, nil
	}
	return 0, fmt.Errorf("unknown category %q", s)
}

// CategorySet is a set of categories. The zero value is empty.
type CategorySet uint8

// NewCategorySet builds a set from the given categories.
func NewCategorySet(cats ...Category) CategorySet {
	var s CategorySet
	for _, c := range cats {
		s = s.Add(c)
	}
	return s
}

// AllCategorySet returns the set of every category.
func AllCategorySet() CategorySet {
	return NewCategorySet(AllCategories...)
}

// ParseCategories parses names such as "details,skills" or "all".
// Each element may itself be a comma-separated list. "overview" is accepted
// and ignored since it is always fetched.
func ParseCategories(names []string) (CategorySet, error) {
	var s CategorySet
	for _, raw := range names {
		for _, part := range strings.Split(raw, ",") {
			part = strings.ToLower(strings.TrimSpace(part))
			switch part {
			case "":
				continue
			case "all":
				s |= AllCategorySet()
				continue
			case "overview":
				continue
			}
			c, err := ParseCategory(part)
			if err != nil {
				return 0, err
			}
			s = s.Add(c)
		}
	}
	return s, nil
}

// Add returns the set with c included.
func (s CategorySet) Add(c Category) CategorySet {
	if !c.valid() {
		return s
	}
	return s | 1<<uint(c)
}

// Has reports whether c is in the set.
func (s CategorySet) Has(c Category) bool {
	return c.valid() && s&(1<<uint(c)) != 0
}

// Len returns the number of categories in the set.
func (s CategorySet) Len() int {
	n := 0
	for _, c := range AllCategories {
		if s.Has(c) {
			n++
		}
	}
	return n
}

// List returns the categories in merge order.
func (s CategorySet) List() []Category {
	out := make([]Category, 0, len(AllCategories))
	for _, c := range AllCategories {
		if s.Has(c) {
			out = append(out, c)
		}
	}
	return out
}

// String renders the set as "Overview + Details, Skills".
func (s CategorySet) String() string {
	if s.Len() == 0 {
		return "Overview"
	}
	labels := make([]string, 0, s.Len())
	for _, c := range s.List() {
		labels = append(labels, c.Label())
	}
	return "Overview + " + strings.Join(labels, ", ")
}
