package core

import (
	"fmt"
	"strconv"
	"strings"
)

// Input names recognised by the action.
const (
	InputAsanaPAT      = "asana-pat"
	InputAsanaBaseURL  = "asana-base-url"
	InputAction        = "action"
	InputTriggerPhrase = "trigger-phrase"
	InputGitHubToken   = "github-token"
	InputLinkRequired  = "link-required"
	InputCommentID     = "comment-id"
	InputText          = "text"
	InputIsPinned      = "is-pinned"
	InputIsComplete    = "is-complete"
	InputTargets       = "targets"
)

// InputFunc returns the raw value of a named input, or "" when unset.
type InputFunc func(name string) string

// LoadConfig reads and validates the configuration for the requested action.
func LoadConfig(input InputFunc) (Config, error) {
	cfg := Config{
		AsanaPAT:      strings.TrimSpace(input(InputAsanaPAT)),
		AsanaBaseURL:  strings.TrimSpace(input(InputAsanaBaseURL)),
		Action:        strings.TrimSpace(input(InputAction)),
		TriggerPhrase: input(InputTriggerPhrase),
		GitHubToken:   strings.TrimSpace(input(InputGitHubToken)),
		CommentID:     strings.TrimSpace(input(InputCommentID)),
		Text:          input(InputText),
	}

	if cfg.AsanaPAT == "" {
		return cfg, fmt.Errorf("%w: %s", ErrMissingInput, InputAsanaPAT)
	}
	if cfg.Action == "" {
		return cfg, fmt.Errorf("%w: %s", ErrMissingInput, InputAction)
	}

	var err error
	if cfg.IsPinned, err = parseBool(input, InputIsPinned, false); err != nil {
		return cfg, err
	}

	if cfg.CommentID != "" && strings.ContainsAny(cfg.CommentID, "\r\n") {
		return cfg, fmt.Errorf("%w: %s must be a single line", ErrInvalidMarker, InputCommentID)
	}

	switch cfg.Action {
	case ActionAssertLink:
		if cfg.LinkRequired, err = parseBool(input, InputLinkRequired, true); err != nil {
			return cfg, err
		}
		if cfg.GitHubToken == "" {
			return cfg, fmt.Errorf("%w: %s", ErrMissingInput, InputGitHubToken)
		}
	case ActionAddComment:
		if cfg.Text == "" {
			return cfg, fmt.Errorf("%w: %s", ErrMissingInput, InputText)
		}
	case ActionRemoveComment:
		if cfg.CommentID == "" {
			return cfg, fmt.Errorf("%w: %s", ErrMissingInput, InputCommentID)
		}
	case ActionCompleteTask:
		if cfg.IsComplete, err = parseBool(input, InputIsComplete, true); err != nil {
			return cfg, err
		}
	case ActionMoveSection:
		raw := input(InputTargets)
		if strings.TrimSpace(raw) == "" {
			return cfg, fmt.Errorf("%w: %s", ErrMissingInput, InputTargets)
		}
		if cfg.Targets, err = ParseTargets(raw); err != nil {
			return cfg, err
		}
	default:
		return cfg, fmt.Errorf("%w: %q", ErrUnknownAction, cfg.Action)
	}

	return cfg, nil
}

func parseBool(input InputFunc, name string, required bool) (bool, error) {
	raw := strings.TrimSpace(input(name))
	if raw == "" {
		if required {
			return false, fmt.Errorf("%w: %s", ErrMissingInput, name)
		}
		return false, nil
	}

	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("input %s: %w", name, err)
	}
	return v, nil
}
