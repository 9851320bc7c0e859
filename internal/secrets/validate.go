package secrets

import (
	"fmt"
	"sort"
	"strings"
)

// ValidationError represents a validation failure for required secrets.
type ValidationError struct {
	Empty []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("empty values for required environment variables: %s", strings.Join(e.Empty, ", "))
}

// ValidateRequired checks that every named value is non-empty. Names in the
// returned ValidationError are sorted.
func ValidateRequired(secrets map[string]string) error {
	var empty []string
	for key, value := range secrets {
		if strings.TrimSpace(value) == "" {
			empty = append(empty, key)
		}
	}
	if len(empty) == 0 {
		return nil
	}
	sort.Strings(empty)
	return &ValidationError{Empty: empty}
}
