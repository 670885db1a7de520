//go:build integration

package repository

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/hitoshi/fitadmin/internal/database"
	"github.com/hitoshi/fitadmin/internal/model"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

var integrationDSN string

func TestMain(m *testing.M) {
	ctx := context.Background()
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: tc.ContainerRequest{
			Image:        "postgres:15-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "postgres",
				"POSTGRES_PASSWORD": "password",
				"POSTGRES_DB":       "fitadmin_test",
			},
			WaitingFor: wait.ForListeningPort("5432/tcp").WithStartupTimeout(2 * time.Minute),
		},
		Started: true,
	})
	if err != nil {
		panic(err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		panic(err)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		panic(err)
	}
	integrationDSN = fmt.Sprintf("postgres://postgres:password@%s:%s/fitadmin_test?sslmode=disable", host, port.Port())

	code := m.Run()
	_ = container.Terminate(ctx)
	os.Exit(code)
}

func openIntegrationDB(t *testing.T) *sql.DB {
	t.Helper()

	var (
		db  *sql.DB
		err error
	)
	// コンテナ起動直後は接続を拒否することがあるため数回試行する
	for i := 0; i < 10; i++ {
		db, err = database.Connect(context.Background(), integrationDSN, 5*time.Second)
		if err == nil {
			break
		}
		time.Sleep(time.Second)
	}
	if err != nil {
		t.Fatalf("データベースへの接続に失敗: %v", err)
	}
	if err := database.RunMigrations(integrationDSN); err != nil {
		t.Fatalf("マイグレーション実行に失敗: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestProfiles_BlankEmailUpdateKeepsStoredEmail は空のemailによる部分更新で保存値が変わらないことを検証する。
func TestProfiles_BlankEmailUpdateKeepsStoredEmail(t *testing.T) {
	db := openIntegrationDB(t)
	repo := NewPostgresProfileRepo(db)
	ctx := context.Background()

	created, err := repo.Create(ctx, model.Payload{
		"auth_id":   "sub-roundtrip",
		"name":      "Ana",
		"last_name": "Ruiz",
		"email":     "ana@example.com",
		"role":      "client",
	})
	if err != nil {
		t.Fatalf("作成に失敗: %v", err)
	}

	updated, err := repo.Update(ctx, created.ID, model.Payload{"name": "Ana María", "email": ""})
	if err != nil {
		t.Fatalf("更新に失敗: %v", err)
	}
	if updated.Name != "Ana María" {
		t.Errorf("Name = %q", updated.Name)
	}

	read, err := repo.FindByID(ctx, created.ID)
	if err != nil || read == nil {
		t.Fatalf("読み込みに失敗: %v", err)
	}
	if read.Email != "ana@example.com" {
		t.Errorf("Email = %q, want ana@example.com", read.Email)
	}

	bySubject, err := repo.FindBySubjectID(ctx, "sub-roundtrip")
	if err != nil || bySubject == nil || bySubject.ID != created.ID {
		t.Errorf("FindBySubjectID = %v, %v", bySubject, err)
	}
}

// TestProfiles_UniqueSubject は同一subject IDで2件目のプロフィールを作成できないことを検証する。
func TestProfiles_UniqueSubject(t *testing.T) {
	db := openIntegrationDB(t)
	repo := NewPostgresProfileRepo(db)
	ctx := context.Background()

	payload := model.Payload{
		"auth_id":   "sub-unique",
		"name":      "Luis",
		"last_name": "Pérez",
		"email":     "luis@example.com",
		"role":      "admin",
	}
	if _, err := repo.Create(ctx, payload); err != nil {
		t.Fatalf("1件目の作成に失敗: %v", err)
	}
	if _, err := repo.Create(ctx, payload); err == nil {
		t.Error("同一auth_idの2件目は拒否されるべき")
	}
}

// TestExercises_ListNewestFirstAndDeleteTwice は一覧順序と二重削除を検証する。
func TestExercises_ListNewestFirstAndDeleteTwice(t *testing.T) {
	db := openIntegrationDB(t)
	repo := NewPostgresResourceRepo(db, ExercisesTable)
	ctx := context.Background()

	first, err := repo.Create(ctx, model.Payload{"nombre": "Bench", "grupo_muscular": "Pecho", "dificultad": "intermedio"})
	if err != nil {
		t.Fatalf("作成に失敗: %v", err)
	}
	time.Sleep(10 * time.Millisecond)
	second, err := repo.Create(ctx, model.Payload{"nombre": "Squat", "grupo_muscular": "Piernas", "dificultad": "avanzado"})
	if err != nil {
		t.Fatalf("作成に失敗: %v", err)
	}

	list, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("一覧取得に失敗: %v", err)
	}
	if len(list) < 2 || list[0].ID != second.ID {
		t.Errorf("最新のレコードが先頭であるべき")
	}

	if err := repo.Delete(ctx, first.ID); err != nil {
		t.Fatalf("削除に失敗: %v", err)
	}
	if err := repo.Delete(ctx, first.ID); !model.HasCode(err, model.ErrCodeNotFound) {
		t.Errorf("2回目の削除はNOT_FOUNDであるべき: %v", err)
	}
}
