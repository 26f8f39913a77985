// Package memory keeps employees and leave requests in process memory. It is
// used by tests and by STORE_DRIVER=memory for local runs.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"hrleave/internal/domain/employee"
	"hrleave/internal/domain/errs"
	"hrleave/internal/domain/leave"
)

// Store implements employee.StoreAPI and leave.StoreAPI behind one lock, so a
// transition and its balance debit are applied together.
type Store struct {
	mu        sync.RWMutex
	employees map[string]employee.Record
	byEmail   map[string]string
	requests  map[string]leave.Request
}

func New() *Store {
	return &Store{
		employees: make(map[string]employee.Record),
		byEmail:   make(map[string]string),
		requests:  make(map[string]leave.Request),
	}
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() {}

// Employees

func (s *Store) FindByEmail(_ context.Context, email string) (employee.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byEmail[employee.NormalizeEmail(email)]
	if !ok {
		return employee.Employee{}, errs.NotFound("employee not found")
	}
	return s.employees[id].Employee, nil
}

func (s *Store) FindByID(_ context.Context, id string) (employee.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.employees[id]
	if !ok {
		return employee.Employee{}, errs.NotFound("employee not found")
	}
	return rec.Employee, nil
}

func (s *Store) Credentials(_ context.Context, email string) (employee.Credentials, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byEmail[employee.NormalizeEmail(email)]
	if !ok {
		return employee.Credentials{}, errs.NotFound("employee not found")
	}
	rec := s.employees[id]
	return employee.Credentials{ID: rec.ID, Email: rec.Email, Role: rec.Role, PasswordHash: rec.PasswordHash}, nil
}

func (s *Store) Create(_ context.Context, rec employee.Record) (employee.Employee, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	email := employee.NormalizeEmail(rec.Email)
	if _, taken := s.byEmail[email]; taken {
		return employee.Employee{}, errs.Conflict("email already registered")
	}
	if _, taken := s.employees[rec.ID]; taken {
		return employee.Employee{}, errs.Conflict("employee id already exists")
	}
	rec.Email = email
	s.employees[rec.ID] = rec
	s.byEmail[email] = rec.ID
	return rec.Employee, nil
}

func (s *Store) Update(_ context.Context, id string, patch employee.Patch) (employee.Employee, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.employees[id]
	if !ok {
		return employee.Employee{}, errs.NotFound("employee not found")
	}
	oldEmail := rec.Email
	patch.Apply(&rec.Employee)
	rec.Email = employee.NormalizeEmail(rec.Email)
	if rec.Email != oldEmail {
		if _, taken := s.byEmail[rec.Email]; taken {
			return employee.Employee{}, errs.Conflict("email already registered")
		}
		delete(s.byEmail, oldEmail)
		s.byEmail[rec.Email] = id
	}
	rec.UpdatedAt = time.Now().UTC()
	s.employees[id] = rec
	return rec.Employee, nil
}

func (s *Store) SetPasswordHash(_ context.Context, id, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.employees[id]
	if !ok {
		return errs.NotFound("employee not found")
	}
	rec.PasswordHash = hash
	s.employees[id] = rec
	return nil
}

func (s *Store) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.employees[id]
	if !ok {
		return errs.NotFound("employee not found")
	}
	delete(s.byEmail, rec.Email)
	delete(s.employees, id)
	return nil
}

func (s *Store) ResetCategoryBalances(_ context.Context, defaults employee.BalanceDefaults) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, rec := range s.employees {
		rec.Balances.Annual.Balance = defaults.Annual
		rec.Balances.FR.Balance = defaults.FR
		s.employees[id] = rec
	}
	return len(s.employees), nil
}

func (s *Store) List(_ context.Context, filter employee.ListFilter) (employee.ListResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	search := strings.ToLower(strings.TrimSpace(filter.Search))
	var matched []employee.Employee
	for _, rec := range s.employees {
		if filter.Role != "" && rec.Role != filter.Role {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(rec.Name), search) && !strings.Contains(rec.Email, search) {
			continue
		}
		matched = append(matched, rec.Employee)
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].Name != matched[j].Name {
			return matched[i].Name < matched[j].Name
		}
		return matched[i].ID < matched[j].ID
	})
	return employee.ListResult{Employees: page(matched, filter.Limit, filter.Offset), Total: len(matched)}, nil
}

// Leave requests

func (s *Store) CreateRequest(_ context.Context, req leave.Request) (leave.Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.requests[req.ID]; taken {
		return leave.Request{}, errs.Conflict("leave request id already exists")
	}
	req.Comments = append([]leave.Comment{}, req.Comments...)
	s.requests[req.ID] = req
	return req, nil
}

func (s *Store) GetRequest(_ context.Context, id string) (leave.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	req, ok := s.requests[id]
	if !ok {
		return leave.Request{}, errs.NotFound("leave request not found")
	}
	return req, nil
}

func (s *Store) ListRequests(_ context.Context, filter leave.Filter) (leave.ListResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var matched []leave.Request
	for _, req := range s.requests {
		if filter.EmployeeID != "" && req.EmployeeID != filter.EmployeeID {
			continue
		}
		if filter.Status != "" && req.Status != filter.Status {
			continue
		}
		if filter.Category != "" && req.Category != filter.Category {
			continue
		}
		if filter.FromStart != nil && req.From.Before(*filter.FromStart) {
			continue
		}
		if filter.FromEnd != nil && !req.From.Before(*filter.FromEnd) {
			continue
		}
		matched = append(matched, req)
	}
	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if !a.From.Equal(b.From) {
			if filter.Ascending {
				return a.From.Before(b.From)
			}
			return a.From.After(b.From)
		}
		return a.CreatedAt.Before(b.CreatedAt)
	})
	return leave.ListResult{Requests: page(matched, filter.Limit, filter.Offset), Total: len(matched)}, nil
}

func (s *Store) TransitionRequest(_ context.Context, id string, t leave.Transition) (leave.Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.requests[id]
	if !ok {
		return leave.Request{}, errs.NotFound("leave request not found")
	}
	if req.Status != leave.StatusPending {
		return leave.Request{}, errs.Conflict("leave request is already %s", req.Status)
	}
	if debit, ok := t.DebitFor(req); ok {
		rec, ok := s.employees[debit.EmployeeID]
		if !ok {
			return leave.Request{}, errs.NotFound("employee not found")
		}
		counter, _ := rec.Balances.Get(debit.Key)
		counter.Taken += debit.Days
		rec.Balances.Set(debit.Key, counter)
		s.employees[rec.ID] = rec
	}
	req = t.Apply(req)
	s.requests[id] = req
	return req, nil
}

func (s *Store) ReplacePending(_ context.Context, req leave.Request) (leave.Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.requests[req.ID]
	if !ok {
		return leave.Request{}, errs.NotFound("leave request not found")
	}
	if current.Status != leave.StatusPending {
		return leave.Request{}, errs.Conflict("leave request is already %s", current.Status)
	}
	// Identity, status and history are owned by the store.
	req.EmployeeID = current.EmployeeID
	req.EmployeeName = current.EmployeeName
	req.Status = current.Status
	req.Comments = current.Comments
	req.CreatedAt = current.CreatedAt
	s.requests[req.ID] = req
	return req, nil
}

func (s *Store) DeletePending(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.requests[id]
	if !ok {
		return errs.NotFound("leave request not found")
	}
	if req.Status != leave.StatusPending {
		return errs.Conflict("leave request is already %s", req.Status)
	}
	delete(s.requests, id)
	return nil
}

func (s *Store) AppendComment(_ context.Context, id string, comment leave.Comment) (leave.Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.requests[id]
	if !ok {
		return leave.Request{}, errs.NotFound("leave request not found")
	}
	req.Comments = append(append([]leave.Comment(nil), req.Comments...), comment)
	req.UpdatedAt = comment.CreatedAt
	s.requests[id] = req
	return req, nil
}

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return []T{}
	}
	if offset > 0 {
		items = items[offset:]
	}
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	out := make([]T, len(items))
	copy(out, items)
	return out
}
