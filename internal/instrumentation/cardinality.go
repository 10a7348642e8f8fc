package instrumentation

import "strings"

// Label helpers that keep metric cardinality bounded.

// ExtractUserDomain returns the domain part of an email, or "unknown".
//
// Example:
//
//	ExtractUserDomain("jane@example.com")  // "example.com"
//	ExtractUserDomain("invalid")           // "unknown"
func ExtractUserDomain(email string) string {
	if email == "" {
		return "unknown"
	}

	parts := strings.Split(email, "@")
	if len(parts) == 2 && parts[1] != "" {
		return strings.ToLower(parts[1])
	}

	return "unknown"
}

// RouteLabel turns a ServeMux pattern into a path label. Message IDs stay in
// the pattern form ("{id}") so each message does not create a new series.
//
// Example:
//
//	RouteLabel("GET /api/v1/messages/{id}")  // "/api/v1/messages/{id}"
//	RouteLabel("")                           // "unmatched"
func RouteLabel(pattern string) string {
	if pattern == "" {
		return "unmatched"
	}
	if _, path, ok := strings.Cut(pattern, " "); ok {
		return path
	}
	return pattern
}
