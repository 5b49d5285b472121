package grid

// grow extends s to at least n elements, producing each new element with
// newT(index). Existing elements are left untouched.
func grow[T any](s []T, n int, newT func(i int) T) []T {
	for i := len(s); i < n; i++ {
		s = append(s, newT(i))
	}
	return s
}
