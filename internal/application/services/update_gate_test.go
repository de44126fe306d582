package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShouldUpdate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   UpdateInputs
		want bool
	}{
		{"force on clean tree", UpdateInputs{Force: true}, true},
		{"force with pending output", UpdateInputs{Force: true, Dirty: true, OutputHasPendingDiff: true}, true},
		{"pick on clean tree", UpdateInputs{PickSupplied: true}, true},
		{"pick with pending output", UpdateInputs{PickSupplied: true, Dirty: true, OutputHasPendingDiff: true}, true},
		{"clean tree", UpdateInputs{}, false},
		{"clean tree ignores pending flag", UpdateInputs{OutputHasPendingDiff: true}, false},
		{"dirty tree, output untouched", UpdateInputs{Dirty: true}, true},
		{"dirty tree, output already changed", UpdateInputs{Dirty: true, OutputHasPendingDiff: true}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, ShouldUpdate(tt.in))
		})
	}
}
