package domain

// Category identifies the metadata schema applied to a document.
type Category string

// Known document categories.
const (
	// CategoryCollege covers institution profiles.
	CategoryCollege Category = "college"

	// CategoryProgram covers degree and academic programs.
	CategoryProgram Category = "program"

	// CategoryScholarship covers scholarships and financial aid.
	CategoryScholarship Category = "scholarship"

	// CategoryGeneral is the fallback for anything else.
	CategoryGeneral Category = "general"
)

// FieldKind is the expected JSON type of a metadata fact.
type FieldKind int

const (
	// FieldString is a free-text fact.
	FieldString FieldKind = iota

	// FieldNumber is a numeric fact (statistics, amounts).
	FieldNumber
)

// metadataSchemas lists the fixed fact keys per category.
var metadataSchemas = map[Category]map[string]FieldKind{
	CategoryCollege: {
		"name":                 FieldString,
		"location":             FieldString,
		"type":                 FieldString,
		"acceptance_rate":      FieldNumber,
		"enrollment":           FieldNumber,
		"tuition":              FieldNumber,
		"median_sat":           FieldNumber,
		"median_act":           FieldNumber,
		"application_deadline": FieldString,
	},
	CategoryProgram: {
		"name":           FieldString,
		"college":        FieldString,
		"degree":         FieldString,
		"duration_years": FieldNumber,
		"tuition":        FieldNumber,
		"requirements":   FieldString,
	},
	CategoryScholarship: {
		"name":        FieldString,
		"provider":    FieldString,
		"amount":      FieldNumber,
		"deadline":    FieldString,
		"eligibility": FieldString,
	},
	CategoryGeneral: {
		"title":   FieldString,
		"summary": FieldString,
		"topic":   FieldString,
	},
}

// IsValid returns true if the category is recognised.
func (c Category) IsValid() bool {
	_, ok := metadataSchemas[c]
	return ok
}

// String returns the string representation.
func (c Category) String() string {
	return string(c)
}

// OrDefault returns the category, or CategoryGeneral when unset.
func (c Category) OrDefault() Category {
	if c == "" {
		return CategoryGeneral
	}
	return c
}

// MetadataSchema returns the allowed fact keys for a category.
// The returned map must not be modified.
func MetadataSchema(c Category) (map[string]FieldKind, bool) {
	schema, ok := metadataSchemas[c]
	return schema, ok
}

// AllCategories returns every known category.
func AllCategories() []Category {
	return []Category{CategoryCollege, CategoryProgram, CategoryScholarship, CategoryGeneral}
}
