package api

import "strings"

// Builder acumula handlers bajo un namespace opcional.
type Builder struct {
	namespace string
	tree      Tree
}

// Option configura un Builder.
type Option func(*Builder)

// WithNamespace nests every handler under ns.
func WithNamespace(ns string) Option {
	return func(b *Builder) { b.namespace = ns }
}

func NewBuilder(opts ...Option) *Builder {
	b := &Builder{tree: Tree{}}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Handle registra h en path ("a.b.c"). Un path repetido reemplaza al anterior.
func (b *Builder) Handle(path string, h Handler) *Builder {
	segs := splitPath(path)
	if len(segs) == 0 || h == nil {
		return b
	}
	insert(b.tree, segs, h)
	return b
}

// Build returns a copy of the accumulated tree.
func (b *Builder) Build() Tree {
	segs := splitPath(b.namespace)
	if len(segs) == 0 {
		return b.tree.Clone()
	}
	out := Tree{}
	node := out
	for _, seg := range segs[:len(segs)-1] {
		sub := Tree{}
		node[seg] = sub
		node = sub
	}
	node[segs[len(segs)-1]] = b.tree.Clone()
	return out
}

func splitPath(path string) []string {
	var segs []string
	for _, s := range strings.Split(path, ".") {
		if s = strings.TrimSpace(s); s != "" {
			segs = append(segs, s)
		}
	}
	return segs
}
