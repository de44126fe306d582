package dto

// GenerateConfigResponse reports what a generator run did.
type GenerateConfigResponse struct {
	// Profile is the chosen profile name (empty when skipped)
	Profile string

	// OutputPath is the absolute path of the rendered file
	OutputPath string

	// Skipped is true when the update gate decided not to regenerate
	Skipped bool

	// HookInstalled is false when the commit-hook advisory was printed
	HookInstalled bool
}
