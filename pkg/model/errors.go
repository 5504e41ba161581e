package model

import (
	"fmt"
	"strings"
)

// ConfigError reports invalid graph topology. Every problem found during
// construction is listed, not only the first.
type ConfigError struct {
	Problems []string
}

func (e *ConfigError) Error() string {
	switch len(e.Problems) {
	case 0:
		return "invalid graph config"
	case 1:
		return "invalid graph config: " + e.Problems[0]
	default:
		return fmt.Sprintf("invalid graph config (%d problems): %s",
			len(e.Problems), strings.Join(e.Problems, "; "))
	}
}

func (e *ConfigError) addf(format string, args ...any) {
	e.Problems = append(e.Problems, fmt.Sprintf(format, args...))
}

func (e *ConfigError) orNil() error {
	if len(e.Problems) == 0 {
		return nil
	}
	return e
}
