package types

// ToNillableString returns a pointer to the string, or nil when empty, so
// optional request fields travel as absent rather than as "".
func ToNillableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// FromNillableString returns the string value, or "" when nil.
func FromNillableString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
