// Package services contains application use cases.
package services

// UpdateInputs are the facts the update gate decides on.
type UpdateInputs struct {
	// Force is set by --force
	Force bool

	// PickSupplied is set when a profile was chosen on the command line
	PickSupplied bool

	// Dirty reports uncommitted changes in tracked files
	Dirty bool

	// OutputHasPendingDiff reports that the rendered file already differs from HEAD
	OutputHasPendingDiff bool
}

// ShouldUpdate decides whether the configuration should be regenerated.
//
// A forced run or an explicit pick always proceeds. Otherwise regeneration
// only happens for a dirty tree whose rendered file has not been touched yet:
// a pending diff on the output means it was already regenerated for the
// current changes.
func ShouldUpdate(in UpdateInputs) bool {
	if in.Force || in.PickSupplied {
		return true
	}
	if !in.Dirty {
		return false
	}
	return !in.OutputHasPendingDiff
}
