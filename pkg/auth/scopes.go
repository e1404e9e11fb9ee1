package auth

import "strings"

// ParseScopes splits the space-separated scope string stored on the
// access token row.
func ParseScopes(raw string) []string {
	return strings.Fields(raw)
}

// ScopesPublicStatuses, ScopesNotification and ScopesDefault are the
// per-endpoint required-scope sets from the Auth Resolver's scope
// selection table.
var (
	ScopesPublicStatuses = []string{"read", "read:statuses"}
	ScopesNotification   = []string{"read", "read:notifications"}
	ScopesDefault        = []string{"read", "read:statuses"}
)

// intersects reports whether required and have share at least one scope.
// An empty required set always intersects (nothing to check).
func intersects(required, have []string) bool {
	if len(required) == 0 {
		return true
	}
	set := make(map[string]struct{}, len(have))
	for _, s := range have {
		set[s] = struct{}{}
	}
	for _, r := range required {
		if _, ok := set[r]; ok {
			return true
		}
	}
	return false
}

// allowNotifications reports whether scopes permit notification delivery:
// {read, read:notifications} ∩ scopes ≠ ∅.
func allowNotifications(scopes []string) bool {
	return intersects(ScopesNotification, scopes)
}
