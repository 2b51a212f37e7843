package utils

// Pointer helpers for nullable database columns.

func StringPtr(s string) *string {
	return &s
}

func IntPtr(i int) *int {
	return &i
}

func Float64Ptr(f float64) *float64 {
	return &f
}

// StringPtrValue dereferences s, treating nil as empty.
func StringPtrValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
