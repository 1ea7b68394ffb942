package session

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/mohae/deepcopy"
)

func cloneValues(src map[string]any) map[string]any {
	if src == nil {
		return make(map[string]any)
	}
	cloned, ok := deepcopy.Copy(src).(map[string]any)
	if !ok || cloned == nil {
		return make(map[string]any)
	}
	return cloned
}

func cloneSteps(steps []map[string]any) []map[string]any {
	out := make([]map[string]any, len(steps))
	for idx, step := range steps {
		out[idx] = cloneValues(step)
	}
	return out
}

// getPath resolves a dotted field id inside a nested value map. Numeric
// segments index into lists.
func getPath(root map[string]any, path string) (any, bool) {
	if root == nil || path == "" {
		return nil, false
	}
	var current any = root
	for _, segment := range strings.Split(path, ".") {
		switch node := current.(type) {
		case map[string]any:
			next, ok := node[segment]
			if !ok {
				return nil, false
			}
			current = next
		case []any:
			idx, err := strconv.Atoi(segment)
			if err != nil || idx < 0 || idx >= len(node) {
				return nil, false
			}
			current = node[idx]
		default:
			return nil, false
		}
	}
	return current, true
}

// setPath writes value at a dotted field id, creating intermediate maps and
// lists. A numeric segment addresses a list entry and grows the list with
// nils as needed.
func setPath(root map[string]any, path string, value any) error {
	if root == nil {
		return fmt.Errorf("session: values are nil")
	}
	if path == "" {
		return fmt.Errorf("session: empty field id")
	}
	segments := strings.Split(path, ".")
	head := segments[0]
	if len(segments) == 1 {
		root[head] = value
		return nil
	}
	updated, err := setIn(root[head], segments[1:], value, path)
	if err != nil {
		return err
	}
	root[head] = updated
	return nil
}

func setIn(container any, segments []string, value any, path string) (any, error) {
	segment := segments[0]
	last := len(segments) == 1

	if idx, err := strconv.Atoi(segment); err == nil {
		if idx < 0 {
			return nil, fmt.Errorf("session: negative index in %q", path)
		}
		list, _ := container.([]any)
		if len(list) <= idx {
			list = append(list, make([]any, idx+1-len(list))...)
		}
		if last {
			list[idx] = value
			return list, nil
		}
		child, err := setIn(list[idx], segments[1:], value, path)
		if err != nil {
			return nil, err
		}
		list[idx] = child
		return list, nil
	}

	object, ok := container.(map[string]any)
	if !ok {
		if container != nil {
			if _, isList := container.([]any); isList {
				return nil, fmt.Errorf("session: expected numeric segment, got %q in %q", segment, path)
			}
		}
		object = make(map[string]any)
	}
	if last {
		object[segment] = value
		return object, nil
	}
	child, err := setIn(object[segment], segments[1:], value, path)
	if err != nil {
		return nil, err
	}
	object[segment] = child
	return object, nil
}
