package spe

import (
	"fmt"
	"strings"
)

const maxNameLength = 255

var reservedNames = map[string]bool{
	"CON": true, "PRN": true, "AUX": true, "NUL": true,
	"COM1": true, "COM2": true, "COM3": true, "COM4": true, "COM5": true,
	"COM6": true, "COM7": true, "COM8": true, "COM9": true,
	"LPT1": true, "LPT2": true, "LPT3": true, "LPT4": true, "LPT5": true,
	"LPT6": true, "LPT7": true, "LPT8": true, "LPT9": true,
	".LOCK": true, "DESKTOP.INI": true,
}

// ValidateItemName checks a file or folder name against the rules SharePoint
// enforces. Errors wrap ErrValidation.
func ValidateItemName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: name cannot be empty", ErrValidation)
	}
	if len(name) > maxNameLength {
		return fmt.Errorf("%w: name too long (max %d characters)", ErrValidation, maxNameLength)
	}
	if i := strings.IndexAny(name, `"*:<>?/\|`); i >= 0 {
		return fmt.Errorf("%w: name contains invalid character '%c'", ErrValidation, name[i])
	}
	if strings.HasPrefix(name, "~$") {
		return fmt.Errorf("%w: name cannot start with ~$", ErrValidation)
	}

	upper := strings.ToUpper(name)
	base := upper
	if dot := strings.Index(upper, "."); dot > 0 {
		base = upper[:dot]
	}
	if reservedNames[upper] || reservedNames[base] {
		return fmt.Errorf("%w: name '%s' is reserved", ErrValidation, name)
	}
	if strings.HasSuffix(name, ".") || strings.HasSuffix(name, " ") || strings.HasPrefix(name, " ") {
		return fmt.Errorf("%w: name cannot start with a space or end with a period or space", ErrValidation)
	}
	return nil
}
