package utils

// RemoveElements removes up to count occurrences of v from s.
func RemoveElements[T comparable](s []T, v T, count int) []T {
	out := make([]T, 0, len(s))
	for _, e := range s {
		if e == v && count > 0 {
			count--
			continue
		}
		out = append(out, e)
	}
	return out
}

// RemoveAllElement removes every occurrence of v from s.
func RemoveAllElement[T comparable](s []T, v T) []T {
	out := make([]T, 0, len(s))
	for _, e := range s {
		if e != v {
			out = append(out, e)
		}
	}
	return out
}

// CountElement returns the number of occurrences of v in s.
func CountElement[T comparable](s []T, v T) int {
	count := 0
	for _, e := range s {
		if e == v {
			count++
		}
	}
	return count
}
