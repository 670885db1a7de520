package query

import (
	"time"

	"github.com/hitoshi/fitadmin/internal/model"
)

func text(s string) (string, bool) {
	return s, s != ""
}

func optText(s *string) (string, bool) {
	if s == nil {
		return "", false
	}
	return *s, *s != ""
}

func optNumber(n *int64) float64 {
	if n == nil {
		return 0
	}
	return float64(*n)
}

// Users はプロフィール一覧の記述子。nameの並び替えは「名 姓」で比較する。
var Users = Descriptor[*model.Profile]{
	Search: []TextField[*model.Profile]{
		func(p *model.Profile) (string, bool) { return text(p.Name) },
		func(p *model.Profile) (string, bool) { return text(p.LastName) },
		func(p *model.Profile) (string, bool) { return text(p.Email) },
		func(p *model.Profile) (string, bool) { return text(string(p.Role)) },
	},
	Filters: map[string]TextField[*model.Profile]{
		"role": func(p *model.Profile) (string, bool) { return text(string(p.Role)) },
	},
	Sorts: map[string]SortField[*model.Profile]{
		"name":       {Kind: SortText, Text: (*model.Profile).FullName},
		"email":      {Kind: SortText, Text: func(p *model.Profile) string { return p.Email }},
		"role":       {Kind: SortText, Text: func(p *model.Profile) string { return string(p.Role) }},
		"created_at": {Kind: SortTime, Time: func(p *model.Profile) time.Time { return p.CreatedAt }},
	},
	DefaultSort:  "created_at",
	DefaultOrder: OrderDesc,
}

// Exercises は運動一覧の記述子。
var Exercises = Descriptor[*model.Exercise]{
	Search: []TextField[*model.Exercise]{
		func(e *model.Exercise) (string, bool) { return text(e.Name) },
		func(e *model.Exercise) (string, bool) { return text(e.MuscleGroup) },
		func(e *model.Exercise) (string, bool) { return optText(e.Description) },
	},
	Filters: map[string]TextField[*model.Exercise]{
		"grupo_muscular": func(e *model.Exercise) (string, bool) { return text(e.MuscleGroup) },
		"dificultad":     func(e *model.Exercise) (string, bool) { return text(string(e.Difficulty)) },
	},
	Sorts: map[string]SortField[*model.Exercise]{
		"nombre":         {Kind: SortText, Text: func(e *model.Exercise) string { return e.Name }},
		"grupo_muscular": {Kind: SortText, Text: func(e *model.Exercise) string { return e.MuscleGroup }},
		"dificultad":     {Kind: SortText, Text: func(e *model.Exercise) string { return string(e.Difficulty) }},
		"created_at":     {Kind: SortTime, Time: func(e *model.Exercise) time.Time { return e.CreatedAt }},
	},
	DefaultSort:  "created_at",
	DefaultOrder: OrderDesc,
}

// Routines はルーティン一覧の記述子。
var Routines = Descriptor[*model.Routine]{
	Search: []TextField[*model.Routine]{
		func(r *model.Routine) (string, bool) { return text(r.Name) },
		func(r *model.Routine) (string, bool) { return optText(r.Description) },
		func(r *model.Routine) (string, bool) { return optText(r.Goal) },
	},
	Filters: map[string]TextField[*model.Routine]{
		"nivel": func(r *model.Routine) (string, bool) { return text(string(r.Level)) },
	},
	Sorts: map[string]SortField[*model.Routine]{
		"nombre":           {Kind: SortText, Text: func(r *model.Routine) string { return r.Name }},
		"nivel":            {Kind: SortText, Text: func(r *model.Routine) string { return string(r.Level) }},
		"duracion_semanas": {Kind: SortNumber, Number: func(r *model.Routine) float64 { return optNumber(r.DurationWeeks) }},
		"dias_semana":      {Kind: SortNumber, Number: func(r *model.Routine) float64 { return optNumber(r.DaysPerWeek) }},
		"created_at":       {Kind: SortTime, Time: func(r *model.Routine) time.Time { return r.CreatedAt }},
	},
	DefaultSort:  "created_at",
	DefaultOrder: OrderDesc,
}
