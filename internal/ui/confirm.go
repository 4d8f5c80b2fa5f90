package ui

import (
	"errors"

	"github.com/charmbracelet/huh"
)

// ErrAborted is returned when the user abandons a prompt with ctrl+c.
var ErrAborted = errors.New("aborted")

// ConfirmPrompt asks a yes/no question on the terminal. The default answer
// is no.
func ConfirmPrompt(title, description string) (bool, error) {
	var confirmed bool
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(title).
				Description(description).
				Affirmative("Yes").
				Negative("No").
				Value(&confirmed),
		),
	)
	if err := form.Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return false, ErrAborted
		}
		return false, err
	}
	return confirmed, nil
}

// SelectPrompt lets the user pick one of options. Labels and values are
// parallel slices.
func SelectPrompt(title string, labels, values []string, selected string) (string, error) {
	options := make([]huh.Option[string], 0, len(values))
	for i, v := range values {
		label := v
		if i < len(labels) && labels[i] != "" {
			label = labels[i]
		}
		options = append(options, huh.NewOption(label, v))
	}

	value := selected
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title(title).
				Options(options...).
				Value(&value),
		),
	)
	if err := form.Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return "", ErrAborted
		}
		return "", err
	}
	return value, nil
}
