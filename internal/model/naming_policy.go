package model

import (
	"fmt"
	"strings"
)

// NamingPolicy selects how the local file name of a mirrored image is derived.
// A policy is chosen once per batch run and applied to every reference.
type NamingPolicy string

const (
	// NamingOriginal keeps the last path segment of the remote URL.
	NamingOriginal NamingPolicy = "original"

	// NamingAscending numbers images in order of appearance inside a document.
	// The counter restarts at zero for every document.
	NamingAscending NamingPolicy = "asc"

	// NamingUUID names every image with a random UUID.
	// Names differ between runs, so re-runs are not idempotent under this policy.
	NamingUUID NamingPolicy = "uuid"
)

// NamingPolicies returns all supported policies in display order.
func NamingPolicies() []NamingPolicy {
	return []NamingPolicy{NamingOriginal, NamingAscending, NamingUUID}
}

// ParseNamingPolicy converts a user supplied string into a NamingPolicy.
// Matching is case-insensitive and "ascending"/"random" are accepted as aliases.
func ParseNamingPolicy(s string) (NamingPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case string(NamingOriginal):
		return NamingOriginal, nil
	case string(NamingAscending), "ascending":
		return NamingAscending, nil
	case string(NamingUUID), "random":
		return NamingUUID, nil
	default:
		return "", fmt.Errorf("unknown naming policy %q (want one of %s)", s, policyList())
	}
}

// IsValid reports whether p is one of the supported policies.
func (p NamingPolicy) IsValid() bool {
	for _, known := range NamingPolicies() {
		if p == known {
			return true
		}
	}
	return false
}

// String returns the policy name.
func (p NamingPolicy) String() string {
	return string(p)
}

func policyList() string {
	names := make([]string, 0, len(NamingPolicies()))
	for _, p := range NamingPolicies() {
		names = append(names, string(p))
	}
	return strings.Join(names, ", ")
}
