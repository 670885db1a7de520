package repository

import (
	"database/sql"

	"github.com/hitoshi/fitadmin/internal/model"
)

// ProfilesTable はprofilesテーブルの定義。
// auth_idはIdPのsubject IDで、作成後は変更できない。
var ProfilesTable = &Table[model.Profile]{
	Name:     "profiles",
	Resource: "usuario",
	Columns: []Column{
		{Name: "auth_id", Kind: KindText, Required: true, Immutable: true, MaxLen: 255},
		{Name: "name", Kind: KindText, Required: true, MaxLen: 255},
		{Name: "last_name", Kind: KindText, Required: true, MaxLen: 255},
		{Name: "email", Kind: KindText, Required: true, MaxLen: 320},
		{Name: "role", Kind: KindText, Required: true, Enum: model.Roles},
		{Name: "age", Kind: KindInteger, Range: &Range{Min: 0, Max: 150}},
		{Name: "weight", Kind: KindDecimal, Range: &Range{Min: 0, Max: 9999.99}}, // NUMERIC(6,2)
	},
	Scan: scanProfile,
}

// ExercisesTable はejerciciosテーブルの定義。
var ExercisesTable = &Table[model.Exercise]{
	Name:     "ejercicios",
	Resource: "ejercicio",
	Columns: []Column{
		{Name: "nombre", Kind: KindText, Required: true, MaxLen: 255, Sanitize: true},
		{Name: "descripcion", Kind: KindText, Sanitize: true},
		{Name: "grupo_muscular", Kind: KindText, Required: true, MaxLen: 100, Sanitize: true},
		{Name: "dificultad", Kind: KindText, Required: true, Enum: model.Difficulties},
		{Name: "imagen_url", Kind: KindText, URL: true},
		{Name: "video_url", Kind: KindText, URL: true},
		{Name: "instrucciones", Kind: KindText, Sanitize: true},
	},
	Scan: scanExercise,
}

// RoutinesTable はrutinasテーブルの定義。
var RoutinesTable = &Table[model.Routine]{
	Name:     "rutinas",
	Resource: "rutina",
	Columns: []Column{
		{Name: "nombre", Kind: KindText, Required: true, MaxLen: 255, Sanitize: true},
		{Name: "descripcion", Kind: KindText, Sanitize: true},
		{Name: "nivel", Kind: KindText, Required: true, Enum: model.Difficulties},
		{Name: "duracion_semanas", Kind: KindInteger, Range: &Range{Min: 1, Max: 520}},
		{Name: "dias_semana", Kind: KindInteger, Range: &Range{Min: 1, Max: 7}},
		{Name: "objetivo", Kind: KindText, Sanitize: true},
	},
	Scan: scanRoutine,
}

func scanProfile(row Scanner) (*model.Profile, error) {
	var (
		p      model.Profile
		role   string
		age    sql.NullInt64
		weight sql.NullFloat64
	)
	err := row.Scan(&p.ID, &p.AuthID, &p.Name, &p.LastName, &p.Email, &role, &age, &weight, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	p.Role = model.Role(role)
	if age.Valid {
		p.Age = &age.Int64
	}
	if weight.Valid {
		p.Weight = &weight.Float64
	}
	return &p, nil
}

func scanExercise(row Scanner) (*model.Exercise, error) {
	var (
		e                                    model.Exercise
		difficulty                           string
		description, image, video, instructs sql.NullString
	)
	err := row.Scan(&e.ID, &e.Name, &description, &e.MuscleGroup, &difficulty, &image, &video, &instructs, &e.CreatedAt)
	if err != nil {
		return nil, err
	}
	e.Difficulty = model.Difficulty(difficulty)
	e.Description = nullString(description)
	e.ImageURL = nullString(image)
	e.VideoURL = nullString(video)
	e.Instructions = nullString(instructs)
	return &e, nil
}

func scanRoutine(row Scanner) (*model.Routine, error) {
	var (
		r                 model.Routine
		level             string
		description, goal sql.NullString
		weeks, days       sql.NullInt64
	)
	err := row.Scan(&r.ID, &r.Name, &description, &level, &weeks, &days, &goal, &r.CreatedAt)
	if err != nil {
		return nil, err
	}
	r.Level = model.Difficulty(level)
	r.Description = nullString(description)
	r.Goal = nullString(goal)
	if weeks.Valid {
		r.DurationWeeks = &weeks.Int64
	}
	if days.Valid {
		r.DaysPerWeek = &days.Int64
	}
	return &r, nil
}

func nullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}
