package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/spec-kit/repair-service/internal/domain"
)

func TestMemoryUserInsertRejectsTakenUsername(t *testing.T) {
	repo := NewMemoryUserRepository([]domain.User{{ID: 5, Username: "2021001", Name: "张三", Role: domain.RoleStudent}})
	ctx := context.Background()

	fresh := domain.User{Username: "2021003", Name: "王五", Role: domain.RoleStudent}
	if err := repo.Insert(ctx, &fresh); err != nil {
		t.Fatal(err)
	}
	if fresh.ID != 6 {
		t.Fatalf("id = %d, want 6", fresh.ID)
	}

	taken := domain.User{Username: "2021001", Name: "冒名", Role: domain.RoleStudent}
	if err := repo.Insert(ctx, &taken); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("err = %v, want ErrDuplicate", err)
	}
	if taken.ID != 0 {
		t.Fatalf("duplicate insert assigned id %d", taken.ID)
	}
	stored, _ := repo.GetByUsername(ctx, "2021001")
	if stored.Name != "张三" {
		t.Fatalf("existing account overwritten: %+v", stored)
	}
}

func TestMemoryUserCreateLoadsExisting(t *testing.T) {
	repo := NewMemoryUserRepository([]domain.User{{ID: 1, Username: "admin", Name: "系统管理员", Role: domain.RoleAdmin}})
	again := domain.User{Username: "admin", Name: "other"}
	if err := repo.Create(context.Background(), &again); err != nil {
		t.Fatal(err)
	}
	if again.ID != 1 || again.Name != "系统管理员" {
		t.Fatalf("create = %+v, want the seeded account", again)
	}
}
