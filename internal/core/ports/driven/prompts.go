package driven

// Prompt names used by the metadata oracle.
const (
	// PromptMetadataExtraction is the oracle's system instruction. It takes
	// two fmt placeholders: the category and the allowed field list.
	PromptMetadataExtraction = "metadata_extraction"
)

// PromptStore loads user-customisable prompt templates.
type PromptStore interface {
	// Load returns the prompt template for the given name.
	Load(name string) (string, error)
}
