package core

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// ParseTargets decodes the targets input. Both the JSON array form and a YAML list are accepted.
func ParseTargets(raw string) ([]MoveTarget, error) {
	var targets []MoveTarget
	if err := yaml.Unmarshal([]byte(raw), &targets); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTargets, err)
	}

	if len(targets) == 0 {
		return nil, fmt.Errorf("%w: no targets given", ErrInvalidTargets)
	}

	for i, t := range targets {
		if t.Project == "" || t.Section == "" {
			return nil, fmt.Errorf("%w: entry %d needs both project and section", ErrInvalidTargets, i)
		}
	}

	return targets, nil
}
