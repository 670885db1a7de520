package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/hitoshi/fitadmin/internal/model"
)

const testExerciseID = "6f1c2b8e-3d4a-4f5b-9c6d-7e8f9a0b1c2d"

var exerciseColumns = []string{"id", "nombre", "descripcion", "grupo_muscular", "dificultad", "imagen_url", "video_url", "instrucciones", "created_at"}

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmockの初期化に失敗: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func assertExpectations(t *testing.T, mock sqlmock.Sqlmock) {
	t.Helper()
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("未消化の期待値があります: %v", err)
	}
}

func assertAPIErrorCode(t *testing.T, err error, code string) *model.APIError {
	t.Helper()
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *model.APIError with code %s, got %v", code, err)
	}
	if apiErr.Code != code {
		t.Fatalf("Code = %q, want %q", apiErr.Code, code)
	}
	return apiErr
}

func TestResourceRepo_List_OrdersByCreatedAtDesc(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresResourceRepo(db, ExercisesTable)

	newer := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	older := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows(exerciseColumns).
		AddRow("id-2", "Squat", nil, "Piernas", "avanzado", nil, nil, nil, newer).
		AddRow("id-1", "Bench", "Press de banca", "Pecho", "intermedio", "https://cdn.example.com/b.png", nil, nil, older)

	mock.ExpectQuery(regexp.QuoteMeta("FROM ejercicios ORDER BY created_at DESC")).WillReturnRows(rows)

	got, err := repo.List(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].Name != "Squat" || got[1].Name != "Bench" {
		t.Errorf("順序が不正: %s, %s", got[0].Name, got[1].Name)
	}
	if got[0].Description != nil {
		t.Error("NULLのdescripcionはnilになるべき")
	}
	if got[1].Description == nil || *got[1].Description != "Press de banca" {
		t.Errorf("Description = %v", got[1].Description)
	}
	if got[1].Difficulty != model.DifficultyIntermediate {
		t.Errorf("Difficulty = %q", got[1].Difficulty)
	}
	assertExpectations(t, mock)
}

func TestResourceRepo_List_BackendError(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresResourceRepo(db, ExercisesTable)

	mock.ExpectQuery("FROM ejercicios").WillReturnError(errors.New("connection reset"))

	_, err := repo.List(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		t.Errorf("バックエンドエラーはAPIErrorではなくラップされたエラーであるべき: %v", err)
	}
	assertExpectations(t, mock)
}

func TestResourceRepo_Create_MissingRequiredFields(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresResourceRepo(db, ExercisesTable)

	_, err := repo.Create(context.Background(), model.Payload{
		"nombre":         "Bench",
		"grupo_muscular": "",
	})

	apiErr := assertAPIErrorCode(t, err, model.ErrCodeValidation)
	if len(apiErr.Fields) != 2 || apiErr.Fields[0] != "grupo_muscular" || apiErr.Fields[1] != "dificultad" {
		t.Errorf("Fields = %v, want [grupo_muscular dificultad]", apiErr.Fields)
	}
	// データベースへのアクセスがないこと
	assertExpectations(t, mock)
}

func TestResourceRepo_Create_InvalidEnum(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresResourceRepo(db, ExercisesTable)

	_, err := repo.Create(context.Background(), model.Payload{
		"nombre":         "Bench",
		"grupo_muscular": "Pecho",
		"dificultad":     "experto",
	})

	apiErr := assertAPIErrorCode(t, err, model.ErrCodeValidation)
	if apiErr.Fields[0] != "dificultad" {
		t.Errorf("Fields = %v", apiErr.Fields)
	}
	assertExpectations(t, mock)
}

func TestResourceRepo_Create_InsertsAndReturnsRow(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresResourceRepo(db, ExercisesTable)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return now }

	mock.ExpectQuery(regexp.QuoteMeta(
		"INSERT INTO ejercicios (id, nombre, grupo_muscular, dificultad, created_at) VALUES ($1, $2, $3, $4, $5) RETURNING",
	)).
		WithArgs(sqlmock.AnyArg(), "Bench", "Pecho", "intermedio", now).
		WillReturnRows(sqlmock.NewRows(exerciseColumns).
			AddRow(testExerciseID, "Bench", nil, "Pecho", "intermedio", nil, nil, nil, now))

	got, err := repo.Create(context.Background(), model.Payload{
		"nombre":         "Bench",
		"grupo_muscular": "Pecho",
		"dificultad":     "intermedio",
		"descripcion":    "",
		"desconocido":    "ignorado",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID != testExerciseID {
		t.Errorf("ID = %q", got.ID)
	}
	if !got.CreatedAt.Equal(now) {
		t.Errorf("CreatedAt = %v", got.CreatedAt)
	}
	assertExpectations(t, mock)
}

func TestResourceRepo_Create_ConvertsNumbers(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresResourceRepo(db, RoutinesTable)

	mock.ExpectQuery(regexp.QuoteMeta(
		"INSERT INTO rutinas (id, nombre, nivel, duracion_semanas, dias_semana, created_at)",
	)).
		WithArgs(sqlmock.AnyArg(), "Fuerza", "principiante", int64(8), int64(3), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "nombre", "descripcion", "nivel", "duracion_semanas", "dias_semana", "objetivo", "created_at"}).
			AddRow("r-1", "Fuerza", nil, "principiante", int64(8), int64(3), nil, time.Now()))

	got, err := repo.Create(context.Background(), model.Payload{
		"nombre":           "Fuerza",
		"nivel":            "principiante",
		"duracion_semanas": json.Number("8"),
		"dias_semana":      "3",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.DurationWeeks == nil || *got.DurationWeeks != 8 {
		t.Errorf("DurationWeeks = %v", got.DurationWeeks)
	}
	assertExpectations(t, mock)
}

func TestResourceRepo_Create_RejectsNonInteger(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresResourceRepo(db, RoutinesTable)

	_, err := repo.Create(context.Background(), model.Payload{
		"nombre":           "Fuerza",
		"nivel":            "principiante",
		"duracion_semanas": json.Number("2.5"),
	})

	assertAPIErrorCode(t, err, model.ErrCodeValidation)
	assertExpectations(t, mock)
}

func TestResourceRepo_Update_NothingToUpdate(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresResourceRepo(db, ExercisesTable)

	tests := []struct {
		name    string
		payload model.Payload
	}{
		{"空のPayload", model.Payload{}},
		{"空文字列とnullのみ", model.Payload{"nombre": "", "descripcion": nil}},
		{"未知の列のみ", model.Payload{"color": "rojo"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := repo.Update(context.Background(), testExerciseID, tt.payload)
			assertAPIErrorCode(t, err, model.ErrCodeNothingToUpdate)
		})
	}
	assertExpectations(t, mock)
}

func TestResourceRepo_Update_AppliesOnlyNonBlankFields(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresResourceRepo(db, ExercisesTable)

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE ejercicios SET nombre = $1 WHERE id = $2 RETURNING")).
		WithArgs("Press", testExerciseID).
		WillReturnRows(sqlmock.NewRows(exerciseColumns).
			AddRow(testExerciseID, "Press", "antes", "Pecho", "intermedio", nil, nil, nil, time.Now()))

	got, err := repo.Update(context.Background(), testExerciseID, model.Payload{
		"nombre":      "Press",
		"descripcion": "",
		"dificultad":  nil,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Name != "Press" {
		t.Errorf("Name = %q", got.Name)
	}
	if got.Description == nil || *got.Description != "antes" {
		t.Error("空文字列で送られたdescripcionは変更されないべき")
	}
	assertExpectations(t, mock)
}

func TestResourceRepo_Update_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresResourceRepo(db, ExercisesTable)

	mock.ExpectQuery("UPDATE ejercicios").
		WillReturnRows(sqlmock.NewRows(exerciseColumns))

	_, err := repo.Update(context.Background(), testExerciseID, model.Payload{"nombre": "Press"})
	assertAPIErrorCode(t, err, model.ErrCodeNotFound)
	assertExpectations(t, mock)
}

func TestResourceRepo_Update_InvalidIDIsNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresResourceRepo(db, ExercisesTable)

	_, err := repo.Update(context.Background(), "not-a-uuid", model.Payload{"nombre": "Press"})
	assertAPIErrorCode(t, err, model.ErrCodeNotFound)
	assertExpectations(t, mock)
}

func TestResourceRepo_Update_SkipsImmutableColumns(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresResourceRepo(db, ProfilesTable)

	_, err := repo.Update(context.Background(), testExerciseID, model.Payload{"auth_id": "other-subject"})
	assertAPIErrorCode(t, err, model.ErrCodeNothingToUpdate)
	assertExpectations(t, mock)
}

func TestResourceRepo_Delete(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresResourceRepo(db, ExercisesTable)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM ejercicios WHERE id = $1")).
		WithArgs(testExerciseID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM ejercicios WHERE id = $1")).
		WithArgs(testExerciseID).
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := repo.Delete(context.Background(), testExerciseID); err != nil {
		t.Fatalf("1回目の削除でエラー: %v", err)
	}

	// 2回目の削除はNotFound
	err := repo.Delete(context.Background(), testExerciseID)
	assertAPIErrorCode(t, err, model.ErrCodeNotFound)
	assertExpectations(t, mock)
}

func TestResourceRepo_FindByID_InvalidUUIDReturnsNil(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresResourceRepo(db, ExercisesTable)

	got, err := repo.FindByID(context.Background(), "abc")
	if err != nil || got != nil {
		t.Errorf("FindByID = %v, %v; want nil, nil", got, err)
	}
	assertExpectations(t, mock)
}

func TestResourceRepo_FindOneBy_UnknownColumn(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresResourceRepo(db, ExercisesTable)

	if _, err := repo.FindOneBy(context.Background(), "nombre; DROP TABLE x", "a"); err == nil {
		t.Error("未知の列はエラーになるべき")
	}
	assertExpectations(t, mock)
}

func TestProfileRepo_FindBySubjectID(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresProfileRepo(db)
	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("FROM profiles WHERE auth_id = $1")).
		WithArgs("sub-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "auth_id", "name", "last_name", "email", "role", "age", "weight", "created_at"}).
			AddRow("p-1", "sub-1", "Ana", "Ruiz", "ana@example.com", "admin", int64(30), float64(61.5), created))
	mock.ExpectQuery(regexp.QuoteMeta("FROM profiles WHERE auth_id = $1")).
		WithArgs("sub-unknown").
		WillReturnRows(sqlmock.NewRows([]string{"id", "auth_id", "name", "last_name", "email", "role", "age", "weight", "created_at"}))

	p, err := repo.FindBySubjectID(context.Background(), "sub-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Role != model.RoleAdmin || p.AuthID != "sub-1" {
		t.Errorf("profile = %+v", p)
	}
	if p.Age == nil || *p.Age != 30 || p.Weight == nil || *p.Weight != 61.5 {
		t.Errorf("age/weight = %v/%v", p.Age, p.Weight)
	}

	missing, err := repo.FindBySubjectID(context.Background(), "sub-unknown")
	if err != nil || missing != nil {
		t.Errorf("FindBySubjectID(unknown) = %v, %v; want nil, nil", missing, err)
	}

	empty, err := repo.FindBySubjectID(context.Background(), "")
	if err != nil || empty != nil {
		t.Errorf("空のsubject IDはnilを返すべき")
	}
	assertExpectations(t, mock)
}
