package protocol

import (
	"fmt"
	"strconv"
	"strings"
)

// DefaultIDPrefix is the fixed prefix of carriage identities ("BR01").
const DefaultIDPrefix = "BR"

// ParseOrdinal strips prefix from id and parses the decimal remainder.
func ParseOrdinal(id, prefix string) (int, error) {
	if !strings.HasPrefix(id, prefix) {
		return 0, fmt.Errorf("%w: %q lacks prefix %q", ErrMalformedIdentity, id, prefix)
	}
	rest := strings.TrimPrefix(id, prefix)
	if rest == "" {
		return 0, fmt.Errorf("%w: %q has no ordinal", ErrMalformedIdentity, id)
	}
	for _, r := range rest {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("%w: %q ordinal is not numeric", ErrMalformedIdentity, id)
		}
	}
	n, err := strconv.Atoi(rest)
	if err != nil {
		return 0, fmt.Errorf("%w: %q: %v", ErrMalformedIdentity, id, err)
	}
	return n, nil
}
