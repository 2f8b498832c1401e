package model

import "time"

type ProjectID int64

type Project struct {
	ID          ProjectID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ProjectFromFields copies the known project fields out of a form payload.
func ProjectFromFields(f Fields) Project {
	var p Project
	p.Name, _ = f.String(FieldName)
	p.Description, _ = f.String(FieldDescription)
	return p
}
