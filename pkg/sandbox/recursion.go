package sandbox

import "github.com/ghostwriter-web/go-ghostwriter/pkg/value"

// maxTraversalDepth bounds the detector's walk. A chain of containers deeper
// than this is treated as recursive whether or not a true cycle exists, which
// keeps the worst-case cost of detection proportional to the bound.
const maxTraversalDepth = 100

// isRecursive reports whether v is a self-referential composite or nests
// containers beyond the depth bound. The identity set tracks only containers
// currently on the traversal path, so shared-but-acyclic structures are not
// false positives. The detector never fails: it has no error path, and the
// depth bound doubles as its safety net.
func isRecursive(v value.Value) bool {
	seen := make(map[any]struct{})
	return checkRecursive(v, seen, 0)
}

func checkRecursive(v value.Value, seen map[any]struct{}, depth int) bool {
	if depth > maxTraversalDepth {
		return true
	}

	switch v.Kind() {
	case value.KindList:
		list, _ := v.AsList()
		if _, onPath := seen[list]; onPath {
			return true
		}
		seen[list] = struct{}{}
		defer delete(seen, list)
		for _, item := range list.Items {
			if checkRecursive(item, seen, depth+1) {
				return true
			}
		}
	case value.KindMap:
		mapping, _ := v.AsMap()
		if _, onPath := seen[mapping]; onPath {
			return true
		}
		seen[mapping] = struct{}{}
		defer delete(seen, mapping)
		for _, key := range mapping.Keys() {
			entry, _ := mapping.Get(key)
			if checkRecursive(entry, seen, depth+1) {
				return true
			}
		}
	}
	return false
}
