package cli

import (
	"fmt"
	"strings"
)

type ErrorType int

const (
	ErrorTypeConfig ErrorType = iota
	ErrorTypeNetwork
	ErrorTypeRuntime
	ErrorTypeGeneral
)

// CLIError carries a category, suggestions, and related commands so a
// failed invocation tells the operator what to try next, not just what
// broke.
type CLIError struct {
	Type        ErrorType
	Message     string
	Cause       error
	Suggestions []string
	RelatedCmds []string
}

func (e *CLIError) Error() string {
	if e == nil {
		return "unknown error (nil CLIError)"
	}

	var parts []string

	switch e.Type {
	case ErrorTypeConfig:
		parts = append(parts, "Configuration Error:")
	case ErrorTypeNetwork:
		parts = append(parts, "Network Error:")
	case ErrorTypeRuntime:
		parts = append(parts, "Runtime Error:")
	default:
		parts = append(parts, "Error:")
	}

	message := e.Message
	if message == "" {
		message = "unknown error"
	}
	parts = append(parts, message)

	result := strings.Join(parts, " ")

	if e.Cause != nil {
		result += fmt.Sprintf("\n  Cause: %v", e.Cause)
	}

	if len(e.Suggestions) > 0 {
		result += "\n\nSuggestions:"
		for _, s := range e.Suggestions {
			result += "\n  - " + s
		}
	}

	if len(e.RelatedCmds) > 0 {
		result += "\n\nRelated commands:"
		for _, c := range e.RelatedCmds {
			result += "\n  " + c
		}
	}

	return result
}

func (e *CLIError) Unwrap() error { return e.Cause }

// HandleConfigError wraps a configuration load/parse failure with
// actionable next steps.
func HandleConfigError(err error, configPath string) error {
	if configPath == "" {
		configPath = "config.yaml"
	}

	return &CLIError{
		Type:    ErrorTypeConfig,
		Message: fmt.Sprintf("failed to load configuration from %s", configPath),
		Cause:   err,
		Suggestions: []string{
			"Check that the file exists and is readable",
			"Validate the YAML syntax",
			fmt.Sprintf("Generate a default configuration with: solution-gateway config init --output %s", configPath),
		},
		RelatedCmds: []string{
			"solution-gateway config init",
			"solution-gateway cache show",
		},
	}
}
