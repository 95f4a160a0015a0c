package models

import "time"

// Category groups related programs (e.g. "Recreational Gymnastics").
type Category struct {
	ID          string    `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Description string    `db:"description" json:"description"`
	Archived    bool      `db:"archived" json:"archived"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// Program represents a class/course offering within a category.
type Program struct {
	ID               string    `db:"id" json:"id"`
	CategoryID       string    `db:"category_id" json:"category_id"`
	Name             string    `db:"name" json:"name"`
	ShortDescription string    `db:"short_description" json:"short_description"`
	LongDescription  string    `db:"long_description" json:"long_description"`
	MinAge           *int      `db:"min_age" json:"min_age,omitempty"`
	MaxAge           *int      `db:"max_age" json:"max_age,omitempty"`
	Archived         bool      `db:"archived" json:"archived"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time `db:"updated_at" json:"updated_at"`
}

// ProgramDetail enriches Program with its category name.
type ProgramDetail struct {
	Program
	CategoryName string `db:"category_name" json:"category_name"`
}

// ProgramFilter narrows program listings.
type ProgramFilter struct {
	CategoryID      string
	IncludeArchived bool
	Search          string
	Page            int
	PageSize        int
}
