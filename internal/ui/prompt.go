package ui

import (
	"github.com/AlecAivazis/survey/v2"
)

// MultiSelect prompts the user to pick any number of options
func MultiSelect(message string, options []string) ([]string, error) {
	var selected []string
	prompt := &survey.MultiSelect{
		Message:  message,
		Options:  options,
		PageSize: 15,
	}
	if err := survey.AskOne(prompt, &selected); err != nil {
		return nil, err
	}
	return selected, nil
}

// Select prompts the user to pick exactly one option
func Select(message string, options []string) (string, error) {
	var selected string
	prompt := &survey.Select{
		Message:  message,
		Options:  options,
		PageSize: 15,
	}
	if err := survey.AskOne(prompt, &selected); err != nil {
		return "", err
	}
	return selected, nil
}

// Password prompts for a secret without echoing it
func Password(message string) (string, error) {
	var value string
	prompt := &survey.Password{Message: message}
	if err := survey.AskOne(prompt, &value); err != nil {
		return "", err
	}
	return value, nil
}

// Confirm asks a yes/no question
func Confirm(message string, defaultYes bool) (bool, error) {
	value := defaultYes
	prompt := &survey.Confirm{Message: message, Default: defaultYes}
	if err := survey.AskOne(prompt, &value); err != nil {
		return false, err
	}
	return value, nil
}
