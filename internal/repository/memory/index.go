package memory

import "fmt"

// uniqueIndex mapea clave normalizada -> id.
type uniqueIndex struct {
	ids map[string]string
}

func newUniqueIndex() *uniqueIndex {
	return &uniqueIndex{ids: make(map[string]string)}
}

func (x *uniqueIndex) lookup(key string) (string, bool) {
	id, ok := x.ids[key]
	return id, ok
}

func (x *uniqueIndex) insert(key, id string) error {
	if owner, ok := x.ids[key]; ok {
		return fmt.Errorf("key %q already owned by %q", key, owner)
	}
	x.ids[key] = id
	return nil
}

func (x *uniqueIndex) remove(key string) {
	delete(x.ids, key)
}

// rekey moves id from oldKey to newKey. It fails, leaving the map untouched,
// when newKey is owned by a different id. oldKey == newKey is a no-op.
func (x *uniqueIndex) rekey(oldKey, newKey, id string) error {
	if owner, ok := x.ids[newKey]; ok && owner != id {
		return fmt.Errorf("key %q already owned by %q", newKey, owner)
	}
	if oldKey == newKey {
		x.ids[newKey] = id
		return nil
	}
	if x.ids[oldKey] == id {
		delete(x.ids, oldKey)
	}
	x.ids[newKey] = id
	return nil
}

func (x *uniqueIndex) len() int {
	return len(x.ids)
}
