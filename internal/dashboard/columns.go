package dashboard

import "taskdash/internal/model"

type Action string

const (
	ActionEdit   Action = "edit"
	ActionDelete Action = "delete"
)

// Column describes one table column. Accessor columns project a task field;
// action columns render a control per action for each row.
type Column struct {
	Header   string
	Accessor string
	Actions  []Action
}

func (c Column) IsAction() bool { return len(c.Actions) > 0 }

// Cell returns the text shown for t in this column. Action columns are empty.
func (c Column) Cell(t model.Task) string {
	if c.IsAction() {
		return ""
	}
	v, _ := t.Field(c.Accessor)
	return v
}

// Columns is the dashboard table layout.
func Columns() []Column {
	return []Column{
		{Header: "Task", Accessor: model.FieldTask},
		{Header: "Meeting", Accessor: model.FieldMeeting},
		{Header: "Project", Accessor: model.FieldProject},
		{Header: "Actions", Actions: []Action{ActionEdit, ActionDelete}},
	}
}

// DataColumns drops action columns, for exports and plain-text tables.
func DataColumns(cols []Column) []Column {
	out := make([]Column, 0, len(cols))
	for _, c := range cols {
		if !c.IsAction() {
			out = append(out, c)
		}
	}
	return out
}
