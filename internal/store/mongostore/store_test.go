package mongostore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"hrleave/internal/domain/auth"
	"hrleave/internal/domain/employee"
	"hrleave/internal/domain/errs"
	"hrleave/internal/domain/leave"
)

func TestTransitionSet(t *testing.T) {
	at := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	set := transitionSet(leave.Transition{Status: leave.StatusRejected, ActorID: "a1", ActorName: "Admin", At: at})
	if set["status"] != leave.StatusRejected || set["rejected_by"] != "a1" || set["rejected_at"] != at {
		t.Fatalf("unexpected set %v", set)
	}
	if _, ok := set["approved_by"]; ok {
		t.Fatal("rejection must not touch approval fields")
	}
}

func TestEmployeeSet(t *testing.T) {
	email := " New@Example.com "
	set := employeeSet(employee.Patch{
		Email:    &email,
		Balances: map[employee.BalanceKey]employee.Counter{employee.BalanceAnnual: {Balance: 21, Taken: 3}},
	})
	if set["email"] != "new@example.com" {
		t.Fatalf("expected normalized email, got %v", set["email"])
	}
	if set["balances.annual.balance"] != 21.0 || set["balances.annual.taken"] != 3.0 {
		t.Fatalf("unexpected balance set %v", set)
	}
	if len(set) != 3 {
		t.Fatalf("unexpected extra fields %v", set)
	}
}

func TestNormalize(t *testing.T) {
	dhaka := time.FixedZone("BST", 6*3600)
	req := normalize(leave.Request{From: time.Date(2025, 6, 3, 6, 0, 0, 0, dhaka)})
	if req.From.Location() != time.UTC || req.From.Day() != 3 || req.From.Hour() != 0 {
		t.Fatalf("unexpected from %v", req.From)
	}
	if req.Comments == nil {
		t.Fatal("expected non-nil comments")
	}
}

func TestTransitionAgainstReplicaSet(t *testing.T) {
	uri := os.Getenv("TEST_MONGO_URI")
	if uri == "" {
		t.Skip("TEST_MONGO_URI not set")
	}
	ctx := context.Background()
	store, err := Open(ctx, uri, fmt.Sprintf("hrleave_test_%d", time.Now().UnixNano()))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() {
		_ = store.employees.Database().Drop(context.Background())
		store.Close()
	})

	now := time.Now().UTC()
	emp, err := store.Create(ctx, employee.Record{Employee: employee.Employee{
		ID: "m-1", Email: "m1@example.com", Name: "Mongo One", Role: auth.RoleEmployee,
		Balances: employee.Balances{Sick: employee.Counter{Balance: 14}}, CreatedAt: now, UpdatedAt: now,
	}, PasswordHash: "x"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := store.Create(ctx, employee.Record{Employee: employee.Employee{ID: "m-2", Email: emp.Email, Name: "Dup"}}); !errors.Is(err, errs.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}

	req, err := store.CreateRequest(ctx, leave.Request{
		ID: "r-1", EmployeeID: emp.ID, Category: leave.CategorySick, From: leave.DateOnly(now), To: leave.DateOnly(now),
		TotalDays: 1, Reason: "fever", Priority: leave.PriorityHigh, Status: leave.StatusPending, CreatedAt: now, UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("create request: %v", err)
	}
	transition := leave.Transition{
		Status: leave.StatusApproved, ActorID: "admin", At: now,
		DebitBalance: true,
	}
	if _, err := store.TransitionRequest(ctx, req.ID, transition); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if _, err := store.TransitionRequest(ctx, req.ID, transition); !errors.Is(err, errs.ErrConflict) {
		t.Fatalf("expected conflict on second approval, got %v", err)
	}
	after, _ := store.FindByID(ctx, emp.ID)
	if after.Balances.Sick.Taken != 1 {
		t.Fatalf("expected one debit, got %v", after.Balances.Sick.Taken)
	}
}
