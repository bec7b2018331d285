package library

// Record is implemented by pointers to the entity types a Store holds.
type Record interface {
	RecordID() int
	setRecordID(id int)
}

// Store is an insertion-ordered collection with its own ID counter.
// Lookups are linear scans; collections are small and listing order must be
// the insertion order.
type Store[R Record] struct {
	records []R
	nextID  int
}

// NewStore returns an empty store whose first ID is 1.
func NewStore[R Record]() *Store[R] {
	return &Store[R]{nextID: 1}
}

// Add assigns the next ID to r, appends it and returns the ID.
func (s *Store[R]) Add(r R) int {
	id := s.nextID
	s.nextID++
	r.setRecordID(id)
	s.records = append(s.records, r)
	return id
}

// FindByID returns the record with id, if any.
func (s *Store[R]) FindByID(id int) (R, bool) {
	if i := s.index(id); i >= 0 {
		return s.records[i], true
	}
	var zero R
	return zero, false
}

// Update applies fn to the record with id in place. It reports whether the
// record was found.
func (s *Store[R]) Update(id int, fn func(R)) bool {
	r, ok := s.FindByID(id)
	if !ok {
		return false
	}
	fn(r)
	return true
}

// Remove deletes the record with id. Freed IDs are never reused.
func (s *Store[R]) Remove(id int) bool {
	i := s.index(id)
	if i < 0 {
		return false
	}
	s.records = append(s.records[:i], s.records[i+1:]...)
	return true
}

// All returns the records in insertion order. The slice is a copy; the
// records are shared.
func (s *Store[R]) All() []R {
	return append([]R(nil), s.records...)
}

func (s *Store[R]) Len() int    { return len(s.records) }
func (s *Store[R]) NextID() int { return s.nextID }

// reset replaces the whole state, as a load from disk does.
func (s *Store[R]) reset(records []R, nextID int) {
	s.records = records
	s.nextID = nextID
}

func (s *Store[R]) index(id int) int {
	for i, r := range s.records {
		if r.RecordID() == id {
			return i
		}
	}
	return -1
}
