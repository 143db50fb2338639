package postgres

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
)

func TestProfileRepo_RoleOf(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery(`SELECT COALESCE\(role, ''\) FROM profiles`).
		WithArgs("user-1").
		WillReturnRows(pgxmock.NewRows([]string{"role"}).AddRow("petsitter"))
	mock.ExpectQuery(`SELECT COALESCE\(role, ''\) FROM profiles`).
		WithArgs("user-2").
		WillReturnError(pgx.ErrNoRows)

	repo := NewProfileRepo(mock)
	role, err := repo.RoleOf(context.Background(), "user-1")
	if err != nil || role != "petsitter" {
		t.Fatalf("expected petsitter, got %q (%v)", role, err)
	}
	role, err = repo.RoleOf(context.Background(), "user-2")
	if err != nil || role != "" {
		t.Fatalf("expected empty role, got %q (%v)", role, err)
	}
}

func TestProfileRepo_SaveTokens(t *testing.T) {
	mock := newMock(t)
	mock.ExpectExec(`INSERT INTO profiles \(user_id, owner_push_token\)`).
		WithArgs("user-1", "tok").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`INSERT INTO profiles \(user_id, sitter_push_token\)`).
		WithArgs("user-1", "tok").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`INSERT INTO profiles \(user_id, role\)`).
		WithArgs("user-1", "owner").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	repo := NewProfileRepo(mock)
	if err := repo.SaveOwnerPushToken(context.Background(), "user-1", "tok"); err != nil {
		t.Fatal(err)
	}
	if err := repo.SaveSitterPushToken(context.Background(), "user-1", "tok"); err != nil {
		t.Fatal(err)
	}
	if err := repo.SetRole(context.Background(), "user-1", "owner"); err != nil {
		t.Fatal(err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestMigrate(t *testing.T) {
	mock := newMock(t)
	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS walk_sessions`).WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS profiles`).WillReturnResult(pgxmock.NewResult("CREATE", 0))

	var applied []string
	if err := Migrate(context.Background(), mock, func(name string) { applied = append(applied, name) }); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if len(applied) != 2 || applied[0] != "migrations/001_walk_sessions.sql" {
		t.Errorf("unexpected order: %v", applied)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
