// Package api arma el arbol de handlers con nombres por puntos ("otp.send").
package api

import (
	"context"
	"encoding/json"
	"sort"
	"strings"

	"authkit/internal/repository"
)

// Handler atiende una llamada con el payload JSON crudo.
type Handler func(ctx context.Context, payload json.RawMessage) (any, error)

// Middleware envuelve un Handler; path es el nombre con puntos.
type Middleware func(path string, next Handler) Handler

// Typed adapts a typed function into a Handler. An empty or null payload
// leaves Req at its zero value.
func Typed[Req, Resp any](fn func(ctx context.Context, req Req) (Resp, error)) Handler {
	return func(ctx context.Context, payload json.RawMessage) (any, error) {
		var req Req
		if len(payload) > 0 && string(payload) != "null" {
			if err := json.Unmarshal(payload, &req); err != nil {
				return nil, repository.NewError(repository.CodeInvalidInput, "invalid payload", err)
			}
		}
		return fn(ctx, req)
	}
}

// Tree es un nodo del arbol: cada valor es un Handler o un Tree.
type Tree map[string]any

// Lookup resolves a dotted path to a Handler.
func (t Tree) Lookup(path string) (Handler, bool) {
	if path == "" {
		return nil, false
	}
	var node any = t
	for _, seg := range strings.Split(path, ".") {
		sub, ok := node.(Tree)
		if !ok {
			return nil, false
		}
		if node, ok = sub[seg]; !ok {
			return nil, false
		}
	}
	h, ok := node.(Handler)
	return h, ok
}

// Paths lista los nombres de todos los handlers, ordenados.
func (t Tree) Paths() []string {
	var out []string
	t.walk("", func(path string, _ Handler) { out = append(out, path) })
	sort.Strings(out)
	return out
}

func (t Tree) walk(prefix string, fn func(string, Handler)) {
	for k, v := range t {
		path := k
		if prefix != "" {
			path = prefix + "." + k
		}
		switch n := v.(type) {
		case Handler:
			fn(path, n)
		case Tree:
			n.walk(path, fn)
		}
	}
}

// Clone copies the tree structure. Handlers are shared.
func (t Tree) Clone() Tree {
	out := make(Tree, len(t))
	for k, v := range t {
		if sub, ok := v.(Tree); ok {
			out[k] = sub.Clone()
			continue
		}
		out[k] = v
	}
	return out
}

// Merge copies src into dst. Subtrees present on both sides merge
// recursively; anything else is replaced by the src value.
func Merge(dst, src Tree) Tree {
	if dst == nil {
		dst = Tree{}
	}
	for k, v := range src {
		srcSub, srcIsTree := v.(Tree)
		dstSub, dstIsTree := dst[k].(Tree)
		switch {
		case srcIsTree && dstIsTree:
			dst[k] = Merge(dstSub, srcSub)
		case srcIsTree:
			dst[k] = srcSub.Clone()
		default:
			dst[k] = v
		}
	}
	return dst
}

// insert sets value at the dotted path, creating intermediate nodes and
// replacing any handler found on the way.
func insert(t Tree, path []string, h Handler) {
	node := t
	for _, seg := range path[:len(path)-1] {
		sub, ok := node[seg].(Tree)
		if !ok {
			sub = Tree{}
			node[seg] = sub
		}
		node = sub
	}
	node[path[len(path)-1]] = h
}
