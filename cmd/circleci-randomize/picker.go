package main

import (
	"context"

	"github.com/charmbracelet/huh"
)

// formPicker asks for the profile on the terminal.
type formPicker struct{}

func (formPicker) PickProfile(ctx context.Context, names []string) (string, error) {
	var choice string
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Select a Circle CI configuration").
				Options(huh.NewOptions(names...)...).
				Value(&choice),
		),
	).RunWithContext(ctx)
	if err != nil {
		return "", err
	}
	return choice, nil
}
