package memory

// recordStore guarda registros por id preservando el orden de insercion.
// No valida nada.
type recordStore[T any] struct {
	byID  map[string]T
	order []string
}

func newRecordStore[T any]() *recordStore[T] {
	return &recordStore[T]{byID: make(map[string]T)}
}

func (s *recordStore[T]) get(id string) (T, bool) {
	rec, ok := s.byID[id]
	return rec, ok
}

// put replaces in place when id exists, otherwise appends.
func (s *recordStore[T]) put(id string, rec T) {
	if _, ok := s.byID[id]; !ok {
		s.order = append(s.order, id)
	}
	s.byID[id] = rec
}

func (s *recordStore[T]) delete(id string) {
	if _, ok := s.byID[id]; !ok {
		return
	}
	delete(s.byID, id)
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

func (s *recordStore[T]) all() []T {
	out := make([]T, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.byID[id])
	}
	return out
}

func (s *recordStore[T]) len() int {
	return len(s.byID)
}
