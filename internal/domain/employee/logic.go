package employee

import (
	"net/mail"
	"strings"

	"hrleave/internal/domain/auth"
	"hrleave/internal/domain/errs"
)

const minPasswordLength = 8

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}

func validateNew(input NewEmployee) error {
	var fields errs.Fields
	if !validEmail(NormalizeEmail(input.Email)) {
		fields.Add("email", "must be a valid email address")
	}
	if strings.TrimSpace(input.Name) == "" {
		fields.Add("name", "is required")
	}
	if len(input.Password) < minPasswordLength {
		fields.Add("password", "must be at least 8 characters")
	}
	if input.Role != "" && !input.Role.Valid() {
		fields.Add("role", "must be one of employee, admin, md")
	}
	if input.Salary < 0 {
		fields.Add("salary", "must not be negative")
	}
	if input.Balances != nil {
		validateCounters(&fields, map[BalanceKey]Counter{
			BalanceAnnual: input.Balances.Annual,
			BalanceFR:     input.Balances.FR,
			BalanceSick:   input.Balances.Sick,
		})
	}
	return fields.Err()
}

func validatePatch(patch Patch) error {
	var fields errs.Fields
	if patch.Empty() {
		fields.Add("body", "at least one field is required")
	}
	if patch.Email != nil && !validEmail(NormalizeEmail(*patch.Email)) {
		fields.Add("email", "must be a valid email address")
	}
	if patch.Name != nil && strings.TrimSpace(*patch.Name) == "" {
		fields.Add("name", "must not be empty")
	}
	if patch.Role != nil && !patch.Role.Valid() {
		fields.Add("role", "must be one of employee, admin, md")
	}
	if patch.Salary != nil && *patch.Salary < 0 {
		fields.Add("salary", "must not be negative")
	}
	validateCounters(&fields, patch.Balances)
	return fields.Err()
}

func validateCounters(fields *errs.Fields, counters map[BalanceKey]Counter) {
	for key, counter := range counters {
		if _, ok := (Balances{}).Get(key); !ok {
			fields.Add("balances."+string(key), "unknown leave counter")
			continue
		}
		if counter.Balance < 0 || counter.Taken < 0 {
			fields.Add("balances."+string(key), "must not be negative")
		}
	}
}

func validatePassword(password string) error {
	if len(password) < minPasswordLength {
		return errs.Validation("password must be at least 8 characters")
	}
	return nil
}

// Directory strips everything but the fields colleagues need to pick a replacement.
func Directory(emp Employee) DirectoryEntry {
	return DirectoryEntry{
		ID:          emp.ID,
		Name:        emp.Name,
		Designation: emp.Designation,
		ImageURL:    emp.ImageURL,
	}
}

// defaultRole returns the canonical spelling of a validated role, or
// employee when none was given.
func defaultRole(role auth.Role) auth.Role {
	if role == "" {
		return auth.RoleEmployee
	}
	if parsed, err := auth.ParseRole(string(role)); err == nil {
		return parsed
	}
	return role
}
