package promo

// MapCodeSet implements CodeSet using a map for O(1) lookups. It is not safe
// for concurrent writes; sets are read-only once loaded.
type MapCodeSet struct {
	codes map[string]struct{}
}

// NewMapCodeSet creates a new map-based code set.
func NewMapCodeSet(capacity int) *MapCodeSet {
	return &MapCodeSet{
		codes: make(map[string]struct{}, capacity),
	}
}

// Contains checks if a code exists in the set.
func (s *MapCodeSet) Contains(code string) bool {
	_, exists := s.codes[code]
	return exists
}

// Size returns the number of codes in the set.
func (s *MapCodeSet) Size() int {
	return len(s.codes)
}

// Add adds a code to the set.
func (s *MapCodeSet) Add(code string) {
	s.codes[code] = struct{}{}
}
