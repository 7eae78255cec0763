package domain

import "fmt"

// GeneralSlug identifies the catch-all department. Its keywords are never
// used for routing so it cannot win a keyword match by false positive.
const GeneralSlug = "general"

// Department represents a county department reference entity.
// Departments are loaded once at startup and never mutated at runtime.
type Department struct {
	ID       string
	Name     string
	NameES   string
	Slug     string
	Keywords []string
	Phone    string
	Email    string
	URL      string
	Position int
}

// IsGeneral returns true if this is the catch-all department.
func (d *Department) IsGeneral() bool {
	return d.Slug == GeneralSlug
}

// LocalizedName returns the department name for the given language.
func (d *Department) LocalizedName(language string) string {
	if language == "es" && d.NameES != "" {
		return d.NameES
	}
	return d.Name
}

// ValidateDepartment validates a Department instance
func ValidateDepartment(d *Department) error {
	if d == nil {
		return fmt.Errorf("department cannot be nil")
	}

	if d.ID == "" {
		return fmt.Errorf("department ID is required")
	}

	if d.Name == "" {
		return fmt.Errorf("department Name is required")
	}

	if d.Slug == "" {
		return fmt.Errorf("department Slug is required")
	}

	return nil
}
