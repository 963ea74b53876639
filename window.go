package energyagent

import (
	"regexp"

	"github.com/pkg/errors"
)

// Model answers look like {"recommended_orders": ["2025-09-04 00:00-06:00", ...]}.
// The first quoted element of the first bracketed list is the selected window.
var windowPattern = regexp.MustCompile(`\["(.*?)"\]`)

// ExtractTimeWindow pulls the first recommended time window out of a raw
// model response.
func ExtractTimeWindow(response string) (string, error) {
	match := windowPattern.FindStringSubmatch(response)
	if match == nil {
		return "", errors.New("could not parse recommended time window from agent response")
	}
	return match[1], nil
}
