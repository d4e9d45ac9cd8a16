package heartbeat

import "slices"

// ScopeAllows decides whether a supplied customer or product id is compatible
// with the ids associated to a license. An empty supplied id means absent.
func ScopeAllows(associated []string, strict bool, supplied string) bool {
	if len(associated) == 0 {
		return true
	}
	if supplied == "" {
		return !strict
	}
	return slices.Contains(associated, supplied)
}
