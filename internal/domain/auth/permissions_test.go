package auth

import (
	"context"
	"errors"
	"testing"

	"hrleave/internal/domain/errs"
)

func TestEveryActionHasRule(t *testing.T) {
	actions := []Action{
		ActionLeaveSubmit, ActionLeaveSubmitFor, ActionLeaveView, ActionLeaveApprove,
		ActionLeaveReject, ActionLeaveCancel, ActionLeaveUpdate, ActionLeaveDelete,
		ActionLeaveComment, ActionReportAll, ActionEmployeeView, ActionEmployeeManage,
		ActionSettingsEdit, ActionBalanceReset,
	}
	for _, action := range actions {
		if _, ok := actionRules[action]; !ok {
			t.Fatalf("action %s has no rule", action)
		}
	}
}

func TestCan(t *testing.T) {
	employee := Caller{ID: "e1", Role: RoleEmployee}
	other := Caller{ID: "e2", Role: RoleEmployee}
	admin := Caller{ID: "a1", Role: RoleAdmin}
	md := Caller{ID: "m1", Role: RoleMD}
	own := Resource{OwnerID: "e1"}

	tests := []struct {
		name   string
		caller Caller
		action Action
		res    Resource
		want   bool
	}{
		{"employee cannot approve", employee, ActionLeaveApprove, own, false},
		{"admin approves", admin, ActionLeaveApprove, own, true},
		{"md rejects", md, ActionLeaveReject, own, true},
		{"owner cancels", employee, ActionLeaveCancel, own, true},
		{"other employee cannot cancel", other, ActionLeaveCancel, own, false},
		{"admin cannot cancel for owner", admin, ActionLeaveCancel, own, false},
		{"admin cannot update for owner", admin, ActionLeaveUpdate, own, false},
		{"admin deletes", admin, ActionLeaveDelete, own, true},
		{"other employee cannot delete", other, ActionLeaveDelete, own, false},
		{"owner views", employee, ActionLeaveView, own, true},
		{"other employee cannot view", other, ActionLeaveView, own, false},
		{"employee cannot submit for others", employee, ActionLeaveSubmitFor, Resource{OwnerID: "e2"}, false},
		{"md submits for others", md, ActionLeaveSubmitFor, Resource{OwnerID: "e2"}, true},
		{"employee cannot reset balances", employee, ActionBalanceReset, Resource{}, false},
		{"empty caller denied", Caller{}, ActionLeaveSubmit, Resource{}, false},
		{"unknown role denied", Caller{ID: "x", Role: Role("hr")}, ActionLeaveSubmit, Resource{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Can(tt.caller, tt.action, tt.res); got != tt.want {
				t.Fatalf("Can(%v, %s) = %v, want %v", tt.caller, tt.action, got, tt.want)
			}
		})
	}
}

func TestAuthorizeWrapsForbidden(t *testing.T) {
	err := Authorize(Caller{ID: "e1", Role: RoleEmployee}, ActionLeaveApprove, Resource{})
	if !errors.Is(err, errs.ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestParseRole(t *testing.T) {
	role, err := ParseRole(" Admin ")
	if err != nil || role != RoleAdmin {
		t.Fatalf("expected admin, got %q (%v)", role, err)
	}
	if _, err := ParseRole("manager"); !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestRequireCaller(t *testing.T) {
	if _, err := RequireCaller(context.Background()); !errors.Is(err, errs.ErrUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	ctx := WithCaller(context.Background(), Caller{ID: "e1", Role: RoleEmployee})
	caller, err := RequireCaller(ctx)
	if err != nil || caller.ID != "e1" {
		t.Fatalf("unexpected caller %+v (%v)", caller, err)
	}
}
