// Package store is a small hierarchical document store. Values live at
// slash separated paths, an update replaces the whole subtree at each of its
// paths and every backend applies an update atomically.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrInvalidPath      = errors.New("invalid path")
	ErrOverlappingPaths = errors.New("overlapping paths in one update")
)

// Store is the document store the publisher writes to and the viewer reads.
type Store interface {
	// Update atomically replaces the subtree at every path in updates with
	// the json encoding of its value, a nil value deletes the subtree.
	// Either every path is written or none is.
	Update(ctx context.Context, updates map[string]any) error
	// Get returns the json encoding of the subtree at path, false if nothing
	// is stored there.
	Get(ctx context.Context, path string) (json.RawMessage, bool, error)
	Close() error
}

const forbiddenPathChars = ".#$[]"

// CleanPath strips surrounding slashes from path and validates its segments.
func CleanPath(path string) (string, error) {
	cleaned := strings.Trim(path, "/")
	if cleaned == "" {
		return "", fmt.Errorf("%w: %q is empty", ErrInvalidPath, path)
	}
	for _, segment := range strings.Split(cleaned, "/") {
		if segment == "" {
			return "", fmt.Errorf("%w: %q has an empty segment", ErrInvalidPath, path)
		}
		if strings.ContainsAny(segment, forbiddenPathChars) {
			return "", fmt.Errorf("%w: %q contains one of %q", ErrInvalidPath, path, forbiddenPathChars)
		}
	}
	return cleaned, nil
}

// Join joins path segments with slashes.
func Join(segments ...string) string {
	return strings.Join(segments, "/")
}

func depth(path string) int {
	return strings.Count(path, "/")
}

// ancestors returns every proper ancestor of path, shallowest first.
func ancestors(path string) []string {
	var out []string
	for i := 0; i < len(path); i++ {
		if path[i] == '/' {
			out = append(out, path[:i])
		}
	}
	return out
}

func isAncestor(ancestor, path string) bool {
	return strings.HasPrefix(path, ancestor+"/")
}

// related reports whether row is an ancestor of, equal to or a descendant of path.
func related(row, path string) bool {
	return row == path || isAncestor(row, path) || isAncestor(path, row)
}

// tombstone is stored for deleted paths so that a value written earlier at
// an ancestor stops showing through.
var tombstone = []byte("null")

type write struct {
	path  string
	value []byte
}

// prepareWrites validates and encodes an update before a backend touches its
// storage, so a bad update never leaves partial state behind.
func prepareWrites(updates map[string]any) ([]write, error) {
	writes := make([]write, 0, len(updates))
	for path, value := range updates {
		cleaned, err := CleanPath(path)
		if err != nil {
			return nil, err
		}
		encoded := tombstone
		if value != nil {
			encoded, err = json.Marshal(value)
			if err != nil {
				return nil, fmt.Errorf("encode %s: %w", cleaned, err)
			}
		}
		writes = append(writes, write{path: cleaned, value: encoded})
	}

	sort.Slice(writes, func(i, j int) bool {
		return writes[i].path < writes[j].path
	})
	for i := 0; i < len(writes); i++ {
		for j := i + 1; j < len(writes); j++ {
			if writes[i].path == writes[j].path || isAncestor(writes[i].path, writes[j].path) {
				return nil, fmt.Errorf("%w: %s and %s", ErrOverlappingPaths, writes[i].path, writes[j].path)
			}
		}
	}
	return writes, nil
}

type row struct {
	path  string
	value []byte
}

func decode(value []byte) (any, error) {
	decoder := json.NewDecoder(strings.NewReader(string(value)))
	decoder.UseNumber()
	var out any
	err := decoder.Decode(&out)
	return out, err
}

func lookup(value any, segments []string) any {
	for _, segment := range segments {
		object, ok := value.(map[string]any)
		if !ok {
			return nil
		}
		value = object[segment]
	}
	return value
}

func setAt(root any, segments []string, value any) any {
	if len(segments) == 0 {
		return value
	}
	object, ok := root.(map[string]any)
	if !ok {
		if value == nil {
			return root
		}
		object = map[string]any{}
	}
	head := segments[0]
	child := setAt(object[head], segments[1:], value)
	if child == nil {
		delete(object, head)
	} else {
		object[head] = child
	}
	return object
}

func relative(path, target string) []string {
	if path == target {
		return nil
	}
	return strings.Split(strings.TrimPrefix(path, target+"/"), "/")
}

// assemble rebuilds the subtree at target out of the stored rows related to
// it. A deeper row is always newer than the shallower rows covering it, so
// rows are applied shallowest first.
func assemble(target string, rows []row) (json.RawMessage, bool, error) {
	sort.SliceStable(rows, func(i, j int) bool {
		return depth(rows[i].path) < depth(rows[j].path)
	})

	var root any
	for _, r := range rows {
		value, err := decode(r.value)
		if err != nil {
			return nil, false, fmt.Errorf("decode %s: %w", r.path, err)
		}
		switch {
		case isAncestor(r.path, target):
			root = lookup(value, relative(target, r.path))
		case r.path == target:
			root = value
		default:
			root = setAt(root, relative(r.path, target), value)
		}
	}

	if root == nil {
		return nil, false, nil
	}
	out, err := json.Marshal(root)
	if err != nil {
		return nil, false, err
	}
	return out, true, nil
}
