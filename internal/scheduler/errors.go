package scheduler

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ConfigurationError rejects an input before any placement is attempted.
type ConfigurationError struct {
	Problems   []string `json:"problems"`
	SectionIDs []string `json:"sectionIds,omitempty"`
}

func (e *ConfigurationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return "invalid scheduling input: " + strings.Join(e.Problems, "; ")
}

func (e *ConfigurationError) add(format string, args ...interface{}) {
	e.Problems = append(e.Problems, fmt.Sprintf(format, args...))
}

func (e *ConfigurationError) addSection(sectionID, format string, args ...interface{}) {
	e.add(format, args...)
	for _, id := range e.SectionIDs {
		if id == sectionID {
			return
		}
	}
	e.SectionIDs = append(e.SectionIDs, sectionID)
}

func (e *ConfigurationError) orNil() error {
	if len(e.Problems) == 0 {
		return nil
	}
	sort.Strings(e.SectionIDs)
	return e
}

// AsConfigurationError extracts a ConfigurationError from err's chain.
func AsConfigurationError(err error) (*ConfigurationError, bool) {
	var cfgErr *ConfigurationError
	if errors.As(err, &cfgErr) {
		return cfgErr, true
	}
	return nil, false
}
