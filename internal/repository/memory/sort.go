package memory

import (
	"cmp"
	"fmt"
	"reflect"
	"slices"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// sorter ordena registros por un campo. Los valores nulos van primero en
// ambas direcciones; los empates se resuelven por id en la misma direccion.
type sorter[T any] struct {
	coll  *collate.Collator
	id    func(T) string
	field func(T) any
	desc  bool
}

// newCollator builds a numeric-aware collator. Collators keep internal
// buffers, so each List call gets its own.
func newCollator(tag language.Tag) *collate.Collator {
	return collate.New(tag, collate.Numeric)
}

func (s sorter[T]) sort(items []T) {
	if s.field == nil {
		if s.desc {
			slices.Reverse(items)
		}
		return
	}
	slices.SortStableFunc(items, s.compare)
}

func (s sorter[T]) compare(a, b T) int {
	va, vb := normalize(s.field(a)), normalize(s.field(b))
	switch {
	case va == nil && vb == nil:
	case va == nil:
		return -1
	case vb == nil:
		return 1
	default:
		if c := compareValues(s.coll, va, vb); c != 0 {
			return s.directed(c)
		}
	}
	return s.directed(s.coll.CompareString(s.id(a), s.id(b)))
}

func (s sorter[T]) directed(c int) int {
	if s.desc {
		return -c
	}
	return c
}

// normalize dereferences pointers and collapses nil pointers to nil.
func normalize(v any) any {
	if v == nil {
		return nil
	}
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	return rv.Interface()
}

// compareValues compares two non-nil values. Values of different kinds are
// collated by their printed form.
func compareValues(coll *collate.Collator, a, b any) int {
	switch x := a.(type) {
	case string:
		if y, ok := b.(string); ok {
			return coll.CompareString(x, y)
		}
	case time.Time:
		if y, ok := b.(time.Time); ok {
			return x.Compare(y)
		}
	case bool:
		if y, ok := b.(bool); ok {
			return compareBool(x, y)
		}
	}
	if fa, ok := toFloat(a); ok {
		if fb, ok := toFloat(b); ok {
			return cmp.Compare(fa, fb)
		}
	}
	ra, rb := reflect.ValueOf(a), reflect.ValueOf(b)
	if ra.Kind() == reflect.String && rb.Kind() == reflect.String {
		return coll.CompareString(ra.String(), rb.String())
	}
	return coll.CompareString(fmt.Sprint(a), fmt.Sprint(b))
}

func compareBool(a, b bool) int {
	switch {
	case a == b:
		return 0
	case !a:
		return -1
	default:
		return 1
	}
}

func toFloat(v any) (float64, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	default:
		return 0, false
	}
}
