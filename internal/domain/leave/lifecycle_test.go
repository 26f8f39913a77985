package leave_test

import (
	"context"
	"errors"
	"testing"

	"hrleave/internal/domain/errs"
	"hrleave/internal/domain/leave"
	"hrleave/internal/store/memory"
)

// editBeforeTransition runs beforeNext once, right before the next
// transition reaches the store.
type editBeforeTransition struct {
	*memory.Store
	beforeNext func()
}

func (s *editBeforeTransition) TransitionRequest(ctx context.Context, id string, t leave.Transition) (leave.Request, error) {
	if hook := s.beforeNext; hook != nil {
		s.beforeNext = nil
		hook()
	}
	return s.Store.TransitionRequest(ctx, id, t)
}

func TestApproveDebitsRequestAsStoredAtApproval(t *testing.T) {
	noPay := leave.CategoryNoPay
	to := day("2025-06-05")

	cases := []struct {
		name       string
		patch      leave.Patch
		wantAnnual float64
		wantDays   float64
	}{
		{name: "longer span", patch: leave.Patch{To: &to}, wantAnnual: 3, wantDays: 3},
		{name: "uncounted category", patch: leave.Patch{To: &to, Category: &noPay}, wantAnnual: 0, wantDays: 3},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			racing := &editBeforeTransition{Store: f.store}
			service := leave.NewService(racing, f.store, f.service.Calendar)
			service.Now = f.service.Now

			req, err := service.Submit(as(f.employee), annual("2025-06-03", "2025-06-03"))
			if err != nil {
				t.Fatalf("submit: %v", err)
			}
			racing.beforeNext = func() {
				if _, err := service.Update(as(f.employee), req.ID, tc.patch); err != nil {
					t.Errorf("interleaved update: %v", err)
				}
			}

			approved, err := service.Approve(as(f.admin), req.ID, "")
			if err != nil {
				t.Fatalf("approve: %v", err)
			}
			if approved.TotalDays != tc.wantDays {
				t.Fatalf("expected %v days on the approved request, got %v", tc.wantDays, approved.TotalDays)
			}
			emp, _ := f.store.FindByID(context.Background(), f.employee.ID)
			if emp.Balances.Annual.Taken != tc.wantAnnual {
				t.Fatalf("expected annual taken %v, got %v", tc.wantAnnual, emp.Balances.Annual.Taken)
			}
		})
	}
}

func TestDecisionsOnSettledRequestConflict(t *testing.T) {
	cases := []struct {
		name   string
		settle func(f fixture, id string) error
	}{
		{name: "approved", settle: func(f fixture, id string) error {
			_, err := f.service.Approve(as(f.admin), id, "")
			return err
		}},
		{name: "rejected", settle: func(f fixture, id string) error {
			_, err := f.service.Reject(as(f.admin), id, "")
			return err
		}},
		{name: "cancelled", settle: func(f fixture, id string) error {
			_, err := f.service.Cancel(as(f.employee), id, "")
			return err
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			req, err := f.service.Submit(as(f.employee), annual("2025-06-03", "2025-06-04"))
			if err != nil {
				t.Fatalf("submit: %v", err)
			}
			if err := tc.settle(f, req.ID); err != nil {
				t.Fatalf("settle: %v", err)
			}
			before, _ := f.store.FindByID(context.Background(), f.employee.ID)

			if _, err := f.service.Approve(as(f.admin), req.ID, ""); !errors.Is(err, errs.ErrConflict) {
				t.Fatalf("expected conflict on approve, got %v", err)
			}
			if _, err := f.service.Reject(as(f.admin), req.ID, ""); !errors.Is(err, errs.ErrConflict) {
				t.Fatalf("expected conflict on reject, got %v", err)
			}

			after, _ := f.store.FindByID(context.Background(), f.employee.ID)
			if after.Balances != before.Balances {
				t.Fatalf("balances moved: %+v -> %+v", before.Balances, after.Balances)
			}
			stored, _ := f.service.Get(as(f.admin), req.ID)
			if string(stored.Status) != tc.name {
				t.Fatalf("expected status %s, got %s", tc.name, stored.Status)
			}
		})
	}
}

func TestSubmitThenGetKeepsEveryField(t *testing.T) {
	f := newFixture(t)
	input := leave.Submission{
		Category:          leave.CategorySick,
		From:              day("2025-06-03"),
		To:                day("2025-06-03"),
		IsHalfDay:         true,
		HalfDayPeriod:     leave.HalfDayAfternoon,
		Reason:            "dentist",
		Replacement:       "Karim Ahmed",
		EmergencyContact:  "+8801700000000",
		AttachmentURL:     "https://files.example.com/note.pdf",
		DoctorCertificate: "DC-2025-0042",
		Priority:          leave.PriorityHigh,
	}
	created, err := f.service.Submit(as(f.employee), input)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	got, err := f.service.Get(as(f.employee), created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.EmployeeID != f.employee.ID || got.Category != input.Category || got.Reason != input.Reason {
		t.Fatalf("unexpected identity fields %+v", got)
	}
	if !got.From.Equal(input.From) || !got.To.Equal(input.To) {
		t.Fatalf("unexpected span %s..%s", got.From, got.To)
	}
	if !got.IsHalfDay || got.HalfDayPeriod != input.HalfDayPeriod || got.TotalDays != 0.5 {
		t.Fatalf("unexpected half day %v %q %v", got.IsHalfDay, got.HalfDayPeriod, got.TotalDays)
	}
	if got.Replacement != input.Replacement || got.EmergencyContact != input.EmergencyContact {
		t.Fatalf("unexpected contacts %q %q", got.Replacement, got.EmergencyContact)
	}
	if got.AttachmentURL != input.AttachmentURL || got.DoctorCertificate != input.DoctorCertificate {
		t.Fatalf("unexpected documents %q %q", got.AttachmentURL, got.DoctorCertificate)
	}
	if got.Priority != input.Priority || got.Status != leave.StatusPending {
		t.Fatalf("unexpected priority or status %q %q", got.Priority, got.Status)
	}
}

func TestUpdateRechecksBackdatingWhenExemptionChanges(t *testing.T) {
	annualCategory := leave.CategoryAnnual
	low := leave.PriorityLow
	reason := "still unwell"

	cases := []struct {
		name    string
		input   leave.Submission
		patch   leave.Patch
		wantErr bool
	}{
		{
			name:    "sick becomes annual",
			input:   leave.Submission{Category: leave.CategorySick, From: day("2025-05-20"), To: day("2025-05-20"), Reason: "fever"},
			patch:   leave.Patch{Category: &annualCategory},
			wantErr: true,
		},
		{
			name:    "urgent becomes low",
			input:   leave.Submission{Category: leave.CategoryAnnual, From: day("2025-05-28"), To: day("2025-05-28"), Reason: "flood", Priority: leave.PriorityUrgent},
			patch:   leave.Patch{Priority: &low},
			wantErr: true,
		},
		{
			name:  "reason only",
			input: leave.Submission{Category: leave.CategorySick, From: day("2025-05-20"), To: day("2025-05-20"), Reason: "fever"},
			patch: leave.Patch{Reason: &reason},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			req, err := f.service.Submit(as(f.employee), tc.input)
			if err != nil {
				t.Fatalf("submit: %v", err)
			}
			_, err = f.service.Update(as(f.employee), req.ID, tc.patch)
			if tc.wantErr {
				if !errors.Is(err, errs.ErrValidation) {
					t.Fatalf("expected validation error, got %v", err)
				}
				stored, _ := f.service.Get(as(f.employee), req.ID)
				if stored.Category != tc.input.Category || stored.Priority != req.Priority {
					t.Fatalf("rejected update was written: %+v", stored)
				}
				return
			}
			if err != nil {
				t.Fatalf("update: %v", err)
			}
		})
	}
}
