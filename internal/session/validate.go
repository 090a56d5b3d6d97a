package session

import (
	"fmt"
	"regexp"
)

// Session names become directory names and are passed to crmd on its
// command line, so they may not start with a dash.
var nameRegexp = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{0,63}$`)

// ValidateName checks that name is a usable session name.
func ValidateName(name string) error {
	if !nameRegexp.MatchString(name) {
		return fmt.Errorf("invalid session name %q: use up to 64 of a-z, 0-9, '-' and '_', starting with a letter or digit", name)
	}
	return nil
}
