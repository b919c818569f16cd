package util

// Set is an unordered collection of comparable values
type Set[K comparable] map[K]struct{}

// SetOf builds a Set from the provided elements
func SetOf[K comparable](elements ...K) Set[K] {
	s := make(Set[K], len(elements))
	for _, e := range elements {
		s.Add(e)
	}
	return s
}

// Add inserts an element into the set
func (s Set[K]) Add(key K) {
	s[key] = struct{}{}
}

// Remove deletes an element from the set if present
func (s Set[K]) Remove(key K) {
	delete(s, key)
}

// Contains reports whether the element is in the set
func (s Set[K]) Contains(key K) bool {
	_, ok := s[key]
	return ok
}

// Len reports the number of elements in the set
func (s Set[K]) Len() int {
	return len(s)
}

// IsEmpty reports whether the set contains no elements
func (s Set[K]) IsEmpty() bool {
	return len(s) == 0
}
