package model

import "time"

// Difficulty は難易度を表す。ejercicios.dificultad と rutinas.nivel で共通。
type Difficulty string

const (
	DifficultyBeginner     Difficulty = "principiante"
	DifficultyIntermediate Difficulty = "intermedio"
	DifficultyAdvanced     Difficulty = "avanzado"
)

// Difficulties は許可された難易度の一覧。
var Difficulties = []string{
	string(DifficultyBeginner),
	string(DifficultyIntermediate),
	string(DifficultyAdvanced),
}

// Exercise はejerciciosテーブルの1行を表す。
type Exercise struct {
	ID           string     `json:"id"`
	Name         string     `json:"nombre"`
	Description  *string    `json:"descripcion"`
	MuscleGroup  string     `json:"grupo_muscular"`
	Difficulty   Difficulty `json:"dificultad"`
	ImageURL     *string    `json:"imagen_url"`
	VideoURL     *string    `json:"video_url"`
	Instructions *string    `json:"instrucciones"`
	CreatedAt    time.Time  `json:"created_at"`
}

// Routine はrutinasテーブルの1行を表す。
type Routine struct {
	ID            string     `json:"id"`
	Name          string     `json:"nombre"`
	Description   *string    `json:"descripcion"`
	Level         Difficulty `json:"nivel"`
	DurationWeeks *int64     `json:"duracion_semanas"`
	DaysPerWeek   *int64     `json:"dias_semana"`
	Goal          *string    `json:"objetivo"`
	CreatedAt     time.Time  `json:"created_at"`
}
