package model

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

const (
	FieldTaskID  = "task_id"
	FieldTask    = "task"
	FieldMeeting = "meeting"
	FieldProject = "project"

	FieldName        = "name"
	FieldDescription = "description"
)

// Fields is a form payload: field name to submitted value. Values come
// from JSON bodies, HTML forms or CLI flags, so numbers may arrive as
// float64, json.Number, ints or strings.
type Fields map[string]any

// Clone returns a shallow copy. A nil receiver yields an empty map.
func (f Fields) Clone() Fields {
	out := make(Fields, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

func (f Fields) Has(key string) bool {
	_, ok := f[key]
	return ok
}

// String returns the value at key as a string. The bool is false when the
// key is absent.
func (f Fields) String(key string) (string, bool) {
	v, ok := f[key]
	if !ok || v == nil {
		return "", ok
	}
	switch x := v.(type) {
	case string:
		return x, true
	case fmt.Stringer:
		return x.String(), true
	default:
		return fmt.Sprint(x), true
	}
}

// TaskID extracts task_id. Absent, empty and zero ids report false.
func (f Fields) TaskID() (TaskID, bool) {
	v, ok := f[FieldTaskID]
	if !ok || v == nil {
		return 0, false
	}
	id, err := parseID(v)
	if err != nil || id == 0 {
		return 0, false
	}
	return TaskID(id), true
}

func (f Fields) WithTaskID(id TaskID) Fields {
	out := f.Clone()
	out[FieldTaskID] = int64(id)
	return out
}

func parseID(v any) (int64, error) {
	switch x := v.(type) {
	case int:
		return int64(x), nil
	case int32:
		return int64(x), nil
	case int64:
		return x, nil
	case TaskID:
		return int64(x), nil
	case float64:
		if x != float64(int64(x)) {
			return 0, fmt.Errorf("non-integer id %v", x)
		}
		return int64(x), nil
	case json.Number:
		return x.Int64()
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return 0, nil
		}
		return strconv.ParseInt(s, 10, 64)
	default:
		return 0, fmt.Errorf("unsupported id type %T", v)
	}
}

// ParseTaskID parses a path or form id.
func ParseTaskID(s string) (TaskID, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid task id %q", s)
	}
	return TaskID(id), nil
}

func formatInt(v int64) string {
	return strconv.FormatInt(v, 10)
}
