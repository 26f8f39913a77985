package leave_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"hrleave/internal/domain/auth"
	"hrleave/internal/domain/employee"
	"hrleave/internal/domain/errs"
	"hrleave/internal/domain/leave"
	"hrleave/internal/store/memory"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []leave.Event
	fail   bool
}

func (p *recordingPublisher) Publish(_ context.Context, event leave.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	if p.fail {
		return errors.New("queue unavailable")
	}
	return nil
}

func (p *recordingPublisher) types() []leave.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]leave.EventType, 0, len(p.events))
	for _, event := range p.events {
		out = append(out, event.Type)
	}
	return out
}

type countingRecorder struct {
	mu    sync.Mutex
	count map[leave.EventType]int
}

func (r *countingRecorder) RecordTransition(_ leave.Category, eventType leave.EventType) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.count == nil {
		r.count = map[leave.EventType]int{}
	}
	r.count[eventType]++
}

type fixture struct {
	store     *memory.Store
	service   *leave.Service
	events    *recordingPublisher
	metrics   *countingRecorder
	employee  auth.Caller
	colleague auth.Caller
	admin     auth.Caller
}

var today = time.Date(2025, time.June, 2, 9, 0, 0, 0, time.UTC)

func newFixture(t *testing.T) fixture {
	t.Helper()
	store := memory.New()
	cal := leave.NewCalendar(leave.DefaultWeekly, []time.Time{time.Date(2025, time.June, 10, 0, 0, 0, 0, time.UTC)})
	service := leave.NewService(store, store, cal)
	service.Now = func() time.Time { return today }
	events := &recordingPublisher{}
	metrics := &countingRecorder{}
	service.Events = events
	service.Metrics = metrics

	f := fixture{store: store, service: service, events: events, metrics: metrics}
	f.employee = seed(t, store, "emp-1", "Rahim Uddin", auth.RoleEmployee)
	f.colleague = seed(t, store, "emp-2", "Karim Ahmed", auth.RoleEmployee)
	f.admin = seed(t, store, "adm-1", "Nadia Islam", auth.RoleAdmin)
	return f
}

func seed(t *testing.T, store *memory.Store, id, name string, role auth.Role) auth.Caller {
	t.Helper()
	email := id + "@example.com"
	_, err := store.Create(context.Background(), employee.Record{Employee: employee.Employee{
		ID:    id,
		Email: email,
		Name:  name,
		Role:  role,
		Balances: employee.Balances{
			Annual: employee.Counter{Balance: 20},
			FR:     employee.Counter{Balance: 10},
			Sick:   employee.Counter{Balance: 14},
		},
	}})
	if err != nil {
		t.Fatalf("seed %s: %v", id, err)
	}
	return auth.Caller{ID: id, Role: role, Email: email}
}

func as(caller auth.Caller) context.Context {
	return auth.WithCaller(context.Background(), caller)
}

func day(value string) time.Time {
	parsed, err := time.Parse(leave.DateLayout, value)
	if err != nil {
		panic(err)
	}
	return parsed
}

func annual(from, to string) leave.Submission {
	return leave.Submission{Category: leave.CategoryAnnual, From: day(from), To: day(to), Reason: "family visit"}
}

func TestSubmitComputesDaysAndSnapshotsName(t *testing.T) {
	f := newFixture(t)

	// 2025-06-08..12: Friday is not in range, 06-10 is a holiday.
	req, err := f.service.Submit(as(f.employee), annual("2025-06-08", "2025-06-12"))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if req.Status != leave.StatusPending {
		t.Fatalf("expected pending, got %s", req.Status)
	}
	if req.TotalDays != 4 {
		t.Fatalf("expected 4 days, got %v", req.TotalDays)
	}
	if req.EmployeeID != f.employee.ID || req.EmployeeName != "Rahim Uddin" {
		t.Fatalf("unexpected owner %s %q", req.EmployeeID, req.EmployeeName)
	}
	if req.Priority != leave.PriorityMedium {
		t.Fatalf("expected default priority, got %s", req.Priority)
	}
	if got := f.events.types(); len(got) != 1 || got[0] != leave.EventSubmitted {
		t.Fatalf("expected submitted event, got %v", got)
	}
	if f.events.events[0].EmployeeEmail != f.employee.Email {
		t.Fatalf("expected event to carry owner email")
	}
}

func TestSubmitHalfDay(t *testing.T) {
	f := newFixture(t)
	input := annual("2025-06-03", "2025-06-05")
	input.IsHalfDay = true
	input.HalfDayPeriod = leave.HalfDayAfternoon

	req, err := f.service.Submit(as(f.employee), input)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if req.TotalDays != 0.5 {
		t.Fatalf("expected 0.5 days, got %v", req.TotalDays)
	}
}

func TestSubmitForAnotherEmployee(t *testing.T) {
	f := newFixture(t)

	input := annual("2025-06-03", "2025-06-03")
	input.EmployeeID = f.colleague.ID
	if _, err := f.service.Submit(as(f.employee), input); !errors.Is(err, errs.ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}

	req, err := f.service.Submit(as(f.admin), input)
	if err != nil {
		t.Fatalf("admin submit: %v", err)
	}
	if req.EmployeeID != f.colleague.ID || req.EmployeeName != "Karim Ahmed" {
		t.Fatalf("expected request for colleague, got %+v", req)
	}

	input.EmployeeID = "ghost"
	if _, err := f.service.Submit(as(f.admin), input); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestSubmitRejectsInvalidInput(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name  string
		input leave.Submission
	}{
		{"missing reason", leave.Submission{Category: leave.CategoryAnnual, From: day("2025-06-03"), To: day("2025-06-03")}},
		{"unknown category", leave.Submission{Category: "vacation", From: day("2025-06-03"), To: day("2025-06-03"), Reason: "x"}},
		{"inverted range", leave.Submission{Category: leave.CategoryAnnual, From: day("2025-06-05"), To: day("2025-06-03"), Reason: "x"}},
		{"only friday", leave.Submission{Category: leave.CategoryAnnual, From: day("2025-06-06"), To: day("2025-06-06"), Reason: "x"}},
		{"backdated annual", leave.Submission{Category: leave.CategoryAnnual, From: day("2025-05-28"), To: day("2025-05-29"), Reason: "x"}},
		{"half day without period", leave.Submission{Category: leave.CategoryAnnual, From: day("2025-06-03"), To: day("2025-06-03"), Reason: "x", IsHalfDay: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := f.service.Submit(as(f.employee), tt.input); !errors.Is(err, errs.ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}

	list, err := f.service.List(as(f.admin), leave.Filter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if list.Total != 0 {
		t.Fatalf("invalid submissions must not be stored, found %d", list.Total)
	}
}

func TestSubmitBackdatedSickAllowed(t *testing.T) {
	f := newFixture(t)
	input := leave.Submission{Category: leave.CategorySick, From: day("2025-05-28"), To: day("2025-05-29"), Reason: "fever"}
	if _, err := f.service.Submit(as(f.employee), input); err != nil {
		t.Fatalf("expected backdated sick leave to be accepted, got %v", err)
	}
}

func TestSubmitRequiresCaller(t *testing.T) {
	f := newFixture(t)
	if _, err := f.service.Submit(context.Background(), annual("2025-06-03", "2025-06-03")); !errors.Is(err, errs.ErrUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestApproveDebitsBalanceOnce(t *testing.T) {
	f := newFixture(t)
	req, err := f.service.Submit(as(f.employee), annual("2025-06-03", "2025-06-05"))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	if _, err := f.service.Approve(as(f.employee), req.ID, ""); !errors.Is(err, errs.ErrForbidden) {
		t.Fatalf("expected forbidden for employee approver, got %v", err)
	}

	approved, err := f.service.Approve(as(f.admin), req.ID, "enjoy")
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if approved.Status != leave.StatusApproved || approved.ApprovedBy != f.admin.ID || approved.ApprovedByName != "Nadia Islam" {
		t.Fatalf("unexpected approval %+v", approved)
	}
	if approved.ApprovedAt == nil {
		t.Fatal("expected approvedAt")
	}
	if len(approved.Comments) != 1 || approved.Comments[0].Role != auth.RoleAdmin || approved.Comments[0].Text != "enjoy" {
		t.Fatalf("unexpected comments %+v", approved.Comments)
	}

	emp, err := f.store.FindByID(context.Background(), f.employee.ID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if emp.Balances.Annual.Taken != 3 || emp.Balances.Annual.Remaining() != 17 {
		t.Fatalf("expected 3 taken, got %+v", emp.Balances.Annual)
	}

	if _, err := f.service.Approve(as(f.admin), req.ID, ""); !errors.Is(err, errs.ErrConflict) {
		t.Fatalf("expected conflict on second approval, got %v", err)
	}
	if _, err := f.service.Reject(as(f.admin), req.ID, ""); !errors.Is(err, errs.ErrConflict) {
		t.Fatalf("expected conflict on reject after approval, got %v", err)
	}
	emp, _ = f.store.FindByID(context.Background(), f.employee.ID)
	if emp.Balances.Annual.Taken != 3 {
		t.Fatalf("balance must be debited once, got %v", emp.Balances.Annual.Taken)
	}
}

func TestApproveUncountedCategoryLeavesBalances(t *testing.T) {
	f := newFixture(t)
	input := annual("2025-06-03", "2025-06-04")
	input.Category = leave.CategoryNoPay
	req, err := f.service.Submit(as(f.employee), input)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := f.service.Approve(as(f.admin), req.ID, ""); err != nil {
		t.Fatalf("approve: %v", err)
	}
	emp, _ := f.store.FindByID(context.Background(), f.employee.ID)
	if emp.Balances.Annual.Taken != 0 || emp.Balances.FR.Taken != 0 || emp.Balances.Sick.Taken != 0 {
		t.Fatalf("expected untouched counters, got %+v", emp.Balances)
	}
}

func TestConcurrentApprovalsDebitOnce(t *testing.T) {
	f := newFixture(t)
	md := seed(t, f.store, "md-1", "Managing Director", auth.RoleMD)
	req, err := f.service.Submit(as(f.employee), annual("2025-06-03", "2025-06-04"))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	var wg sync.WaitGroup
	results := make(chan error, 8)
	for i := 0; i < 8; i++ {
		caller := f.admin
		if i%2 == 1 {
			caller = md
		}
		wg.Add(1)
		go func(caller auth.Caller) {
			defer wg.Done()
			_, err := f.service.Approve(as(caller), req.ID, "")
			results <- err
		}(caller)
	}
	wg.Wait()
	close(results)

	succeeded := 0
	for err := range results {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, errs.ErrConflict):
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if succeeded != 1 {
		t.Fatalf("expected exactly one approval, got %d", succeeded)
	}
	emp, _ := f.store.FindByID(context.Background(), f.employee.ID)
	if emp.Balances.Annual.Taken != 2 {
		t.Fatalf("expected 2 taken, got %v", emp.Balances.Annual.Taken)
	}
}

func TestRejectDefaultsComment(t *testing.T) {
	f := newFixture(t)
	req, _ := f.service.Submit(as(f.employee), annual("2025-06-03", "2025-06-03"))

	rejected, err := f.service.Reject(as(f.admin), req.ID, "   ")
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if rejected.Status != leave.StatusRejected || rejected.RejectedBy != f.admin.ID || rejected.RejectedAt == nil {
		t.Fatalf("unexpected rejection %+v", rejected)
	}
	if len(rejected.Comments) != 1 || rejected.Comments[0].Text != "Leave request rejected" {
		t.Fatalf("expected default comment, got %+v", rejected.Comments)
	}
	emp, _ := f.store.FindByID(context.Background(), f.employee.ID)
	if emp.Balances.Annual.Taken != 0 {
		t.Fatal("rejection must not debit")
	}
}

func TestCancelOwnerOnly(t *testing.T) {
	f := newFixture(t)
	req, _ := f.service.Submit(as(f.employee), annual("2025-06-03", "2025-06-03"))

	for _, caller := range []auth.Caller{f.admin, f.colleague} {
		if _, err := f.service.Cancel(as(caller), req.ID, ""); !errors.Is(err, errs.ErrForbidden) {
			t.Fatalf("expected forbidden for %s, got %v", caller.ID, err)
		}
	}

	cancelled, err := f.service.Cancel(as(f.employee), req.ID, "")
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if cancelled.Status != leave.StatusCancelled || cancelled.CancelledAt == nil {
		t.Fatalf("unexpected cancel %+v", cancelled)
	}
	last := cancelled.Comments[len(cancelled.Comments)-1]
	if last.Role != auth.RoleEmployee || last.Text != "Cancelled by employee" {
		t.Fatalf("unexpected cancel comment %+v", last)
	}
	if _, err := f.service.Cancel(as(f.employee), req.ID, "again"); !errors.Is(err, errs.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestGetHidesOtherEmployeesRequests(t *testing.T) {
	f := newFixture(t)
	req, _ := f.service.Submit(as(f.employee), annual("2025-06-03", "2025-06-03"))

	if _, err := f.service.Get(as(f.colleague), req.ID); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("expected not found for colleague, got %v", err)
	}
	if _, err := f.service.Get(as(f.admin), req.ID); err != nil {
		t.Fatalf("admin get: %v", err)
	}
	if _, err := f.service.Get(as(f.employee), req.ID); err != nil {
		t.Fatalf("owner get: %v", err)
	}
}

func TestListScoping(t *testing.T) {
	f := newFixture(t)
	if _, err := f.service.Submit(as(f.employee), annual("2025-06-03", "2025-06-03")); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := f.service.Submit(as(f.employee), annual("2025-07-01", "2025-07-01")); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := f.service.Submit(as(f.colleague), annual("2025-06-04", "2025-06-04")); err != nil {
		t.Fatalf("submit: %v", err)
	}

	own, err := f.service.List(as(f.employee), leave.Filter{EmployeeID: f.colleague.ID})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if own.Total != 2 {
		t.Fatalf("expected employee to see only own 2 requests, got %d", own.Total)
	}
	if !own.Requests[0].From.After(own.Requests[1].From) {
		t.Fatal("expected newest from first")
	}

	all, err := f.service.List(as(f.admin), leave.Filter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if all.Total != 3 {
		t.Fatalf("expected admin to see 3, got %d", all.Total)
	}

	if _, err := f.service.List(as(f.admin), leave.Filter{Status: "archived"}); !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestUpdateRecomputesDays(t *testing.T) {
	f := newFixture(t)
	req, _ := f.service.Submit(as(f.employee), annual("2025-06-03", "2025-06-03"))

	to := day("2025-06-05")
	updated, err := f.service.Update(as(f.employee), req.ID, leave.Patch{To: &to})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.TotalDays != 3 {
		t.Fatalf("expected 3 days after update, got %v", updated.TotalDays)
	}
	if updated.Reason != "family visit" {
		t.Fatalf("unpatched fields must survive, got %q", updated.Reason)
	}

	reason := "wedding"
	updated, err = f.service.Update(as(f.employee), req.ID, leave.Patch{Reason: &reason})
	if err != nil {
		t.Fatalf("update reason: %v", err)
	}
	if updated.Reason != "wedding" || updated.TotalDays != 3 {
		t.Fatalf("unexpected update %+v", updated)
	}

	bad := day("2025-06-01")
	if _, err := f.service.Update(as(f.employee), req.ID, leave.Patch{To: &bad}); !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	stored, _ := f.service.Get(as(f.employee), req.ID)
	if !stored.To.Equal(day("2025-06-05")) {
		t.Fatal("failed update must not be written")
	}

	if _, err := f.service.Update(as(f.admin), req.ID, leave.Patch{Reason: &reason}); !errors.Is(err, errs.ErrForbidden) {
		t.Fatalf("expected forbidden for admin, got %v", err)
	}
	if _, err := f.service.Update(as(f.employee), req.ID, leave.Patch{}); !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("expected validation error for empty patch, got %v", err)
	}

	if _, err := f.service.Approve(as(f.admin), req.ID, ""); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if _, err := f.service.Update(as(f.employee), req.ID, leave.Patch{Reason: &reason}); !errors.Is(err, errs.ErrConflict) {
		t.Fatalf("expected conflict after approval, got %v", err)
	}
}

func TestDelete(t *testing.T) {
	f := newFixture(t)
	mine, _ := f.service.Submit(as(f.employee), annual("2025-06-03", "2025-06-03"))
	other, _ := f.service.Submit(as(f.employee), annual("2025-06-04", "2025-06-04"))

	if err := f.service.Delete(as(f.colleague), mine.ID); !errors.Is(err, errs.ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if err := f.service.Delete(as(f.employee), mine.ID); err != nil {
		t.Fatalf("owner delete: %v", err)
	}
	if _, err := f.service.Get(as(f.employee), mine.ID); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("expected deleted request to be gone, got %v", err)
	}

	if _, err := f.service.Reject(as(f.admin), other.ID, "no"); err != nil {
		t.Fatalf("reject: %v", err)
	}
	if err := f.service.Delete(as(f.admin), other.ID); !errors.Is(err, errs.ErrConflict) {
		t.Fatalf("expected conflict deleting rejected request, got %v", err)
	}
}

func TestCommentAppends(t *testing.T) {
	f := newFixture(t)
	req, _ := f.service.Submit(as(f.employee), annual("2025-06-03", "2025-06-03"))

	if _, err := f.service.Comment(as(f.colleague), req.ID, "hi"); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("expected not found for outsider, got %v", err)
	}
	if _, err := f.service.Comment(as(f.employee), req.ID, " "); !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	first, err := f.service.Comment(as(f.employee), req.ID, "handover done")
	if err != nil {
		t.Fatalf("comment: %v", err)
	}
	second, err := f.service.Comment(as(f.admin), req.ID, "noted")
	if err != nil {
		t.Fatalf("comment: %v", err)
	}
	if len(first.Comments) != 1 || len(second.Comments) != 2 {
		t.Fatalf("expected append-only history, got %d then %d", len(first.Comments), len(second.Comments))
	}
	if second.Comments[0].Text != "handover done" || second.Comments[1].AuthorName != "Nadia Islam" {
		t.Fatalf("unexpected history %+v", second.Comments)
	}
}

func TestPublishFailureDoesNotFailOperation(t *testing.T) {
	f := newFixture(t)
	f.events.fail = true

	req, err := f.service.Submit(as(f.employee), annual("2025-06-03", "2025-06-03"))
	if err != nil {
		t.Fatalf("submit must succeed when publishing fails: %v", err)
	}
	if _, err := f.service.Approve(as(f.admin), req.ID, ""); err != nil {
		t.Fatalf("approve must succeed when publishing fails: %v", err)
	}
	if f.metrics.count[leave.EventSubmitted] != 1 || f.metrics.count[leave.EventApproved] != 1 {
		t.Fatalf("unexpected metrics %+v", f.metrics.count)
	}
}

func TestBackdatingUsesConfiguredTimezone(t *testing.T) {
	f := newFixture(t)
	dhaka, err := time.LoadLocation("Asia/Dhaka")
	if err != nil {
		t.Skipf("timezone data unavailable: %v", err)
	}
	// 20:00 UTC on June 2 is already June 3 in Dhaka.
	f.service.Now = func() time.Time { return time.Date(2025, time.June, 2, 20, 0, 0, 0, time.UTC) }
	f.service.Location = dhaka

	if _, err := f.service.Submit(as(f.employee), annual("2025-06-02", "2025-06-02")); !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("expected June 2 to be in the past in Dhaka, got %v", err)
	}
}
