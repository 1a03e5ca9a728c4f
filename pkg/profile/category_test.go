package profile

import (
	"reflect"
	"testing"

	"github.com/Sternrassler/profile-fetcher/pkg/client"
)

func TestParseCategory(t *testing.T) {
	tests := []struct {
		in      string
		want    Category
		wantErr bool
	}{
		{"details", CategoryDetails, false},
		{"Experience", CategoryExperience, false},
		{" education ", CategoryEducation, false},
		{"skills", CategorySkills, false},
		{"certifications", CategoryCertifications, false},
		{"contact", CategoryContact, false},
		{"contact-info", CategoryContact, false},
		{"overview", 0, true},
		{"hobbies", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseCategory(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseCategory(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ParseCategory(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseCategories(t *testing.T) {
	tests := []struct {
		name    string
		in      []string
		want    []Category
		wantErr bool
	}{
		{"empty", nil, []Category{}, false},
		{"all", []string{"all"}, AllCategories, false},
		{"comma separated", []string{"skills,details"}, []Category{CategoryDetails, CategorySkills}, false},
		{"overview ignored", []string{"overview", "contact"}, []Category{CategoryContact}, false},
		{"duplicates collapse", []string{"skills", "skills"}, []Category{CategorySkills}, false},
		{"unknown", []string{"details,bogus"}, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseCategories(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseCategories() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if !reflect.DeepEqual(got.List(), tt.want) {
				t.Errorf("List() = %v, want %v", got.List(), tt.want)
			}
		})
	}
}

func TestCategorySet(t *testing.T) {
	s := NewCategorySet(CategoryContact, CategoryDetails)

	if !s.Has(CategoryDetails) || !s.Has(CategoryContact) {
		t.Error("set should contain details and contact")
	}
	if s.Has(CategorySkills) {
		t.Error("set should not contain skills")
	}
	if s.Len() != 2 {
		t.Errorf("Len() = %d, want 2", s.Len())
	}
	if got := s.String(); got != "Overview + Details, Contact" {
		t.Errorf("String() = %q", got)
	}
	if got := CategorySet(0).String(); got != "Overview" {
		t.Errorf("empty String() = %q, want Overview", got)
	}
	if s.Add(Category(42)) != s {
		t.Error("adding an invalid category should not change the set")
	}
}

func TestCategory_Paths(t *testing.T) {
	tests := []struct {
		c    Category
		path string
	}{
		{CategoryDetails, client.PathDetails},
		{CategoryExperience, client.PathExperience},
		{CategoryEducation, client.PathEducation},
		{CategorySkills, client.PathSkills},
		{CategoryCertifications, client.PathCertifications},
		{CategoryContact, client.PathContactInfo},
	}

	for _, tt := range tests {
		if got := tt.c.Path(); got != tt.path {
			t.Errorf("%v.Path() = %q, want %q", tt.c, got, tt.path)
		}
	}
	if Category(99).Path() != "" {
		t.Error("invalid category should have no path")
	}
	if !CategoryContact.KeyedByIdentifier() || CategorySkills.KeyedByIdentifier() {
		t.Error("only contact is keyed by identifier")
	}
}
