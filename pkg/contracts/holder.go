package contracts

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// NormalizeHolderID trims and NFC-normalizes an account identifier so that
// visually identical ids map to the same balance.
func NormalizeHolderID(id string) string {
	return norm.NFC.String(strings.TrimSpace(id))
}
