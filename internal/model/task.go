package model

import (
	"time"
)

type TaskID int64

// Task is a row of the dashboard table. Meeting and Project hold the
// reference names shown in their columns.
type Task struct {
	ID      TaskID `json:"task_id"`
	Task    string `json:"task"`
	Meeting string `json:"meeting"`
	Project string `json:"project"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Field returns the value projected by a column accessor.
func (t Task) Field(name string) (string, bool) {
	switch name {
	case FieldTaskID:
		if t.ID == 0 {
			return "", true
		}
		return formatInt(int64(t.ID)), true
	case FieldTask:
		return t.Task, true
	case FieldMeeting:
		return t.Meeting, true
	case FieldProject:
		return t.Project, true
	default:
		return "", false
	}
}

// Fields returns the record as a form payload.
func (t Task) Fields() Fields {
	f := Fields{
		FieldTask:    t.Task,
		FieldMeeting: t.Meeting,
		FieldProject: t.Project,
	}
	if t.ID != 0 {
		f[FieldTaskID] = int64(t.ID)
	}
	return f
}
