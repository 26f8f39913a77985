package employee

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"hrleave/internal/domain/auth"
	"hrleave/internal/domain/errs"
)

type Service struct {
	Store           StoreAPI
	Sealer          Sealer
	Defaults        BalanceDefaults
	AllowSelfSignup bool
	Now             func() time.Time
}

func NewService(store StoreAPI, defaults BalanceDefaults) *Service {
	return &Service{Store: store, Defaults: defaults, Now: time.Now}
}

// Register is the public sign-up path; the role is always employee.
func (s *Service) Register(ctx context.Context, input NewEmployee) (Employee, error) {
	if !s.AllowSelfSignup {
		return Employee{}, errs.Forbidden("self sign-up is disabled")
	}
	input.Role = auth.RoleEmployee
	input.Balances = nil
	input.Salary = 0
	return s.create(ctx, input)
}

func (s *Service) Create(ctx context.Context, input NewEmployee) (Employee, error) {
	caller, err := auth.RequireCaller(ctx)
	if err != nil {
		return Employee{}, err
	}
	if err := auth.Authorize(caller, auth.ActionEmployeeManage, auth.Resource{}); err != nil {
		return Employee{}, err
	}
	return s.create(ctx, input)
}

func (s *Service) create(ctx context.Context, input NewEmployee) (Employee, error) {
	if err := validateNew(input); err != nil {
		return Employee{}, err
	}
	hash, err := auth.HashPassword(input.Password)
	if err != nil {
		return Employee{}, err
	}

	now := s.now()
	emp := Employee{
		ID:               uuid.NewString(),
		Email:            NormalizeEmail(input.Email),
		Name:             strings.TrimSpace(input.Name),
		Role:             defaultRole(input.Role),
		EmployeeCode:     strings.TrimSpace(input.EmployeeCode),
		Designation:      strings.TrimSpace(input.Designation),
		JoinedDate:       input.JoinedDate,
		NationalID:       strings.TrimSpace(input.NationalID),
		Nationality:      strings.TrimSpace(input.Nationality),
		PresentAddress:   strings.TrimSpace(input.PresentAddress),
		PermanentAddress: strings.TrimSpace(input.PermanentAddress),
		EmergencyContact: strings.TrimSpace(input.EmergencyContact),
		Salary:           input.Salary,
		ImageURL:         strings.TrimSpace(input.ImageURL),
		Balances: Balances{
			Annual: Counter{Balance: s.Defaults.Annual},
			FR:     Counter{Balance: s.Defaults.FR},
			Sick:   Counter{Balance: s.Defaults.Sick},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if input.Balances != nil {
		emp.Balances = *input.Balances
	}
	if emp.NationalID, err = s.seal(emp.NationalID); err != nil {
		return Employee{}, err
	}

	created, err := s.Store.Create(ctx, Record{Employee: emp, PasswordHash: hash})
	if err != nil {
		return Employee{}, err
	}
	return s.open(created)
}

// Authenticate never distinguishes an unknown email from a wrong password.
func (s *Service) Authenticate(ctx context.Context, email, password string) (Employee, error) {
	creds, err := s.Store.Credentials(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return Employee{}, errs.Unauthorized("invalid credentials")
		}
		return Employee{}, err
	}
	if err := auth.CheckPassword(creds.PasswordHash, password); err != nil {
		return Employee{}, errs.Unauthorized("invalid credentials")
	}
	emp, err := s.Store.FindByID(ctx, creds.ID)
	if err != nil {
		return Employee{}, err
	}
	return s.open(emp)
}

func (s *Service) Get(ctx context.Context, id string) (Employee, error) {
	caller, err := auth.RequireCaller(ctx)
	if err != nil {
		return Employee{}, err
	}
	if err := auth.Authorize(caller, auth.ActionEmployeeView, auth.Resource{OwnerID: id}); err != nil {
		return Employee{}, err
	}
	emp, err := s.Store.FindByID(ctx, id)
	if err != nil {
		return Employee{}, err
	}
	return s.open(emp)
}

func (s *Service) List(ctx context.Context, filter ListFilter) (ListResult, error) {
	caller, err := auth.RequireCaller(ctx)
	if err != nil {
		return ListResult{}, err
	}
	if err := auth.Authorize(caller, auth.ActionEmployeeManage, auth.Resource{}); err != nil {
		return ListResult{}, err
	}
	result, err := s.Store.List(ctx, filter)
	if err != nil {
		return ListResult{}, err
	}
	for i := range result.Employees {
		if result.Employees[i], err = s.open(result.Employees[i]); err != nil {
			return ListResult{}, err
		}
	}
	return result, nil
}

func (s *Service) Directory(ctx context.Context, search string) ([]DirectoryEntry, error) {
	if _, err := auth.RequireCaller(ctx); err != nil {
		return nil, err
	}
	result, err := s.Store.List(ctx, ListFilter{Search: search, Limit: 500})
	if err != nil {
		return nil, err
	}
	entries := make([]DirectoryEntry, 0, len(result.Employees))
	for _, emp := range result.Employees {
		entries = append(entries, Directory(emp))
	}
	return entries, nil
}

func (s *Service) Update(ctx context.Context, id string, patch Patch) (Employee, error) {
	caller, err := auth.RequireCaller(ctx)
	if err != nil {
		return Employee{}, err
	}
	if err := auth.Authorize(caller, auth.ActionEmployeeManage, auth.Resource{OwnerID: id}); err != nil {
		return Employee{}, err
	}
	return s.update(ctx, id, patch)
}

func (s *Service) UpdateSettings(ctx context.Context, settings Settings) (Employee, error) {
	caller, err := auth.RequireCaller(ctx)
	if err != nil {
		return Employee{}, err
	}
	if err := auth.Authorize(caller, auth.ActionSettingsEdit, auth.Resource{OwnerID: caller.ID}); err != nil {
		return Employee{}, err
	}
	return s.update(ctx, caller.ID, settings.Patch())
}

func (s *Service) update(ctx context.Context, id string, patch Patch) (Employee, error) {
	if err := validatePatch(patch); err != nil {
		return Employee{}, err
	}
	if patch.Email != nil {
		email := NormalizeEmail(*patch.Email)
		patch.Email = &email
	}
	if patch.Role != nil {
		role := defaultRole(*patch.Role)
		patch.Role = &role
	}
	if patch.NationalID != nil {
		sealed, err := s.seal(strings.TrimSpace(*patch.NationalID))
		if err != nil {
			return Employee{}, err
		}
		patch.NationalID = &sealed
	}
	updated, err := s.Store.Update(ctx, id, patch)
	if err != nil {
		return Employee{}, err
	}
	return s.open(updated)
}

func (s *Service) ChangePassword(ctx context.Context, current, next string) error {
	caller, err := auth.RequireCaller(ctx)
	if err != nil {
		return err
	}
	if err := validatePassword(next); err != nil {
		return err
	}
	creds, err := s.Store.Credentials(ctx, NormalizeEmail(caller.Email))
	if err != nil {
		return err
	}
	if creds.ID != caller.ID {
		return errs.Forbidden("token does not match account")
	}
	if err := auth.CheckPassword(creds.PasswordHash, current); err != nil {
		return errs.Unauthorized("current password is incorrect")
	}
	hash, err := auth.HashPassword(next)
	if err != nil {
		return err
	}
	return s.Store.SetPasswordHash(ctx, caller.ID, hash)
}

func (s *Service) Delete(ctx context.Context, id string) error {
	caller, err := auth.RequireCaller(ctx)
	if err != nil {
		return err
	}
	if err := auth.Authorize(caller, auth.ActionEmployeeManage, auth.Resource{OwnerID: id}); err != nil {
		return err
	}
	if caller.ID == id {
		return errs.Conflict("cannot delete your own account")
	}
	return s.Store.Delete(ctx, id)
}

// ResetBalances starts a new entitlement period for annual and fr leave.
func (s *Service) ResetBalances(ctx context.Context) (int, error) {
	caller, err := auth.RequireCaller(ctx)
	if err != nil {
		return 0, err
	}
	if err := auth.Authorize(caller, auth.ActionBalanceReset, auth.Resource{}); err != nil {
		return 0, err
	}
	return s.Store.ResetCategoryBalances(ctx, s.Defaults)
}

func (s *Service) seal(value string) (string, error) {
	if s.Sealer == nil || value == "" {
		return value, nil
	}
	return s.Sealer.SealString(value)
}

func (s *Service) open(emp Employee) (Employee, error) {
	if s.Sealer == nil || emp.NationalID == "" {
		return emp, nil
	}
	plain, err := s.Sealer.OpenString(emp.NationalID)
	if err != nil {
		return Employee{}, err
	}
	emp.NationalID = plain
	return emp, nil
}

func (s *Service) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now().UTC()
}
