package group

import (
	"fmt"
	"strings"
)

// FromName returns the Group implementation matching the provided name.
func FromName(name string) (Group, error) {
	switch strings.ToLower(name) {
	case "modp2048", "modp":
		return NewRFC3526Group(), nil
	case "ristretto255":
		return NewRistretto255(), nil
	case "secp256k1":
		return NewSecp256k1(), nil
	default:
		return nil, fmt.Errorf("unsupported group: %s", name)
	}
}

// SupportedGroups lists the group identifiers understood by FromName.
func SupportedGroups() []string {
	return []string{"modp2048", "ristretto255", "secp256k1"}
}
