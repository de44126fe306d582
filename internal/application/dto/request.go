// Package dto contains data transfer objects for application layer use cases.
package dto

// GenerateConfigRequest encapsulates all inputs needed to regenerate the CI configuration.
// Paths are relative to the repository root.
type GenerateConfigRequest struct {
	Paths   GeneratePaths
	Options GenerateOptions
}

// GeneratePaths locates the generator's inputs and output.
type GeneratePaths struct {
	CatalogPath  string
	TemplatePath string
	OutputPath   string
}

// GenerateOptions carries the command-line choices.
type GenerateOptions struct {
	// Pick selects a profile explicitly (implies Force)
	Pick string

	// HookMarker is the substring expected in the pre-commit hook
	HookMarker string

	// Force regenerates even if the tree is clean or the output already changed
	Force bool

	// Interactive asks for the profile when no Pick is given (implies Force)
	Interactive bool
}
