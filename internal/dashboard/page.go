package dashboard

import (
	"strconv"

	"github.com/a-h/templ"

	"taskdash/internal/model"
)

//go:generate templ generate

// PageData is everything the dashboard page renders from.
type PageData struct {
	Title     string
	Greeting  string
	Columns   []Column
	Tasks     []model.Task
	State     State
	AddTarget AddTarget
	LiveURL   string
}

func rowID(t model.Task) string {
	return strconv.FormatInt(int64(t.ID), 10)
}

func actionURL(a Action) templ.SafeURL {
	return templ.SafeURL("/dashboard/" + string(a))
}

func selected(s State) model.Task {
	if s.Selected == nil {
		return model.Task{}
	}
	return *s.Selected
}
