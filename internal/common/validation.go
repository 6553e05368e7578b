package common

import (
	"fmt"
	"slices"
	"strings"
)

// ValidateOutputFormat checks a requested output format against the
// configured list. An empty list places no restriction.
func ValidateOutputFormat(format string, supportedFormats []string) error {
	if len(supportedFormats) == 0 {
		return nil
	}
	if slices.Contains(supportedFormats, format) {
		return nil
	}
	return fmt.Errorf("unsupported output format %q (supported: %s)",
		format, strings.Join(supportedFormats, ", "))
}

// GetSupportedFormats returns a copy of the configured format list, so
// callers such as shell completion cannot disturb the configuration.
func GetSupportedFormats(supportedFormats []string) []string {
	return slices.Clone(supportedFormats)
}
