package seed

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spec-kit/repair-service/internal/auth"
	"github.com/spec-kit/repair-service/internal/domain"
	"github.com/spec-kit/repair-service/internal/repository"
)

const testCost = 4

func TestDefaultSeed(t *testing.T) {
	data, err := Default(testCost)
	if err != nil {
		t.Fatalf("Default: %v", err)
	}
	if len(data.Users) != 6 || len(data.Tickets) != 3 {
		t.Fatalf("users=%d tickets=%d", len(data.Users), len(data.Tickets))
	}
	admin := data.Users[0]
	if admin.ID != 1 || admin.Role != domain.RoleAdmin {
		t.Fatalf("admin = %+v", admin)
	}
	if err := auth.ComparePassword(admin.PasswordHash, "admin123"); err != nil {
		t.Fatalf("admin password not hashed from seed: %v", err)
	}
	rated := data.Tickets[2]
	if rated.Rating == nil || *rated.Rating != 5 || rated.RepairmanID == nil || *rated.RepairmanID != 4 {
		t.Fatalf("rated ticket = %+v", rated)
	}
	if rated.StudentName != "张三" {
		t.Fatalf("student name not denormalized: %q", rated.StudentName)
	}
	if !rated.UpdatedAt.Equal(*rated.EvaluatedAt) {
		t.Fatalf("updatedAt = %v, want latest timestamp", rated.UpdatedAt)
	}
}

func TestParseRejectsInconsistentTickets(t *testing.T) {
	users := `
users:
  - {username: s1, name: S, role: student, password: x}
  - {username: w1, name: W, role: repairman, password: x}
`
	cases := map[string]string{
		"processing without repairman": `
tickets:
  - {title: t, category: networkIssues, location: l, status: processing, student: s1, createdAt: 2025-01-01T00:00:00Z}`,
		"pending with repairman": `
tickets:
  - {title: t, category: networkIssues, location: l, status: pending, student: s1, repairman: w1, createdAt: 2025-01-01T00:00:00Z}`,
		"unknown category": `
tickets:
  - {title: t, category: plumbing, location: l, status: pending, student: s1, createdAt: 2025-01-01T00:00:00Z}`,
		"repairman as student": `
tickets:
  - {title: t, category: networkIssues, location: l, status: pending, student: w1, createdAt: 2025-01-01T00:00:00Z}`,
		"rating out of range": `
tickets:
  - {title: t, category: networkIssues, location: l, status: completed, student: s1, repairman: w1, rating: 9,
     createdAt: 2025-01-01T00:00:00Z, assignedAt: 2025-01-01T01:00:00Z, completedAt: 2025-01-01T02:00:00Z}`,
		"completed before assigned": `
tickets:
  - {title: t, category: networkIssues, location: l, status: to_be_evaluated, student: s1, repairman: w1,
     createdAt: 2025-01-01T00:00:00Z, assignedAt: 2025-01-01T03:00:00Z, completedAt: 2025-01-01T02:00:00Z}`,
	}
	for name, tickets := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := Parse([]byte(users+tickets), testCost); err == nil {
				t.Fatalf("expected %q to be rejected", name)
			}
		})
	}
}

func TestParseRejectsBadUsers(t *testing.T) {
	cases := map[string]string{
		"unknown role":       "users:\n  - {username: a, role: janitor, password: x}\n",
		"missing password":   "users:\n  - {username: a, role: student}\n",
		"duplicate username": "users:\n  - {username: a, role: student, password: x}\n  - {username: a, role: admin, password: y}\n",
		"not yaml":           "users: [",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := Parse([]byte(doc), testCost); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestLoadFileAndApplyUsers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dorm.yaml")
	doc := "users:\n  - {username: s9, name: Nine, role: student, password: pw}\n"
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatal(err)
	}
	data, err := LoadFile(path, testCost)
	if err != nil {
		t.Fatal(err)
	}

	repo := repository.NewMemoryUserRepository(nil)
	ctx := context.Background()
	if err := data.ApplyUsers(ctx, repo); err != nil {
		t.Fatal(err)
	}
	// Applying twice keeps the first account.
	if err := data.ApplyUsers(ctx, repo); err != nil {
		t.Fatal(err)
	}
	students, _ := repo.ListByRole(ctx, domain.RoleStudent)
	if len(students) != 1 || students[0].Name != "Nine" {
		t.Fatalf("students = %+v", students)
	}

	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"), testCost); err == nil || !strings.Contains(err.Error(), "read seed") {
		t.Fatalf("missing file err = %v", err)
	}
}
