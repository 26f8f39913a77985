package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"hrleave/internal/domain/auth"
	"hrleave/internal/domain/employee"
	"hrleave/internal/domain/errs"
)

const employeeColumns = `id, email, password_hash, name, role, employee_code, designation, joined_date,
    national_id, nationality, present_address, permanent_address, emergency_contact, salary, image_url,
    annual_balance, annual_taken, fr_balance, fr_taken, sick_balance, sick_taken, created_at, updated_at`

func scanEmployee(row pgx.Row) (employee.Record, error) {
	var rec employee.Record
	var role string
	err := row.Scan(
		&rec.ID, &rec.Email, &rec.PasswordHash, &rec.Name, &role, &rec.EmployeeCode, &rec.Designation, &rec.JoinedDate,
		&rec.NationalID, &rec.Nationality, &rec.PresentAddress, &rec.PermanentAddress, &rec.EmergencyContact, &rec.Salary, &rec.ImageURL,
		&rec.Balances.Annual.Balance, &rec.Balances.Annual.Taken,
		&rec.Balances.FR.Balance, &rec.Balances.FR.Taken,
		&rec.Balances.Sick.Balance, &rec.Balances.Sick.Taken,
		&rec.CreatedAt, &rec.UpdatedAt,
	)
	rec.Role = auth.Role(role)
	return rec, err
}

func (s *Store) findOne(ctx context.Context, where string, arg any) (employee.Record, error) {
	rec, err := scanEmployee(s.DB.QueryRow(ctx, "SELECT "+employeeColumns+" FROM employees WHERE "+where, arg))
	if err != nil {
		if isNoRows(err) {
			return employee.Record{}, errs.NotFound("employee not found")
		}
		return employee.Record{}, fmt.Errorf("select employee: %w", err)
	}
	return rec, nil
}

func (s *Store) FindByEmail(ctx context.Context, email string) (employee.Employee, error) {
	rec, err := s.findOne(ctx, "email = $1", employee.NormalizeEmail(email))
	return rec.Employee, err
}

func (s *Store) FindByID(ctx context.Context, id string) (employee.Employee, error) {
	rec, err := s.findOne(ctx, "id = $1", id)
	return rec.Employee, err
}

func (s *Store) Credentials(ctx context.Context, email string) (employee.Credentials, error) {
	var creds employee.Credentials
	var role string
	err := s.DB.QueryRow(ctx, `
    SELECT id, email, role, password_hash
    FROM employees
    WHERE email = $1
  `, employee.NormalizeEmail(email)).Scan(&creds.ID, &creds.Email, &role, &creds.PasswordHash)
	if err != nil {
		if isNoRows(err) {
			return employee.Credentials{}, errs.NotFound("employee not found")
		}
		return employee.Credentials{}, fmt.Errorf("select credentials: %w", err)
	}
	creds.Role = auth.Role(role)
	return creds, nil
}

func (s *Store) Create(ctx context.Context, rec employee.Record) (employee.Employee, error) {
	created, err := scanEmployee(s.DB.QueryRow(ctx, `
    INSERT INTO employees (`+employeeColumns+`)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23)
    RETURNING `+employeeColumns,
		rec.ID, employee.NormalizeEmail(rec.Email), rec.PasswordHash, rec.Name, string(rec.Role), rec.EmployeeCode, rec.Designation, rec.JoinedDate,
		rec.NationalID, rec.Nationality, rec.PresentAddress, rec.PermanentAddress, rec.EmergencyContact, rec.Salary, rec.ImageURL,
		rec.Balances.Annual.Balance, rec.Balances.Annual.Taken,
		rec.Balances.FR.Balance, rec.Balances.FR.Taken,
		rec.Balances.Sick.Balance, rec.Balances.Sick.Taken,
		rec.CreatedAt, rec.UpdatedAt,
	))
	if err != nil {
		if pgCode(err) == uniqueViolation {
			return employee.Employee{}, errs.Conflict("email already registered")
		}
		return employee.Employee{}, fmt.Errorf("insert employee: %w", err)
	}
	return created.Employee, nil
}

func (s *Store) Update(ctx context.Context, id string, patch employee.Patch) (employee.Employee, error) {
	set, err := employeeSetList(patch)
	if err != nil {
		return employee.Employee{}, err
	}
	set.clauses = append(set.clauses, "updated_at = now()")

	query := fmt.Sprintf("UPDATE employees SET %s WHERE id = %s RETURNING %s",
		strings.Join(set.clauses, ", "), set.arg(id), employeeColumns)
	rec, err := scanEmployee(s.DB.QueryRow(ctx, query, set.args...))
	if err != nil {
		if isNoRows(err) {
			return employee.Employee{}, errs.NotFound("employee not found")
		}
		if pgCode(err) == uniqueViolation {
			return employee.Employee{}, errs.Conflict("email already registered")
		}
		return employee.Employee{}, fmt.Errorf("update employee: %w", err)
	}
	return rec.Employee, nil
}

func employeeSetList(patch employee.Patch) (*setList, error) {
	set := &setList{}
	strs := []struct {
		column string
		value  *string
	}{
		{"name", patch.Name},
		{"employee_code", patch.EmployeeCode},
		{"designation", patch.Designation},
		{"national_id", patch.NationalID},
		{"nationality", patch.Nationality},
		{"present_address", patch.PresentAddress},
		{"permanent_address", patch.PermanentAddress},
		{"emergency_contact", patch.EmergencyContact},
		{"image_url", patch.ImageURL},
	}
	if patch.Email != nil {
		set.add("email", employee.NormalizeEmail(*patch.Email))
	}
	for _, field := range strs {
		if field.value != nil {
			set.add(field.column, *field.value)
		}
	}
	if patch.Role != nil {
		set.add("role", string(*patch.Role))
	}
	if patch.JoinedDate != nil {
		set.add("joined_date", *patch.JoinedDate)
	}
	if patch.Salary != nil {
		set.add("salary", *patch.Salary)
	}
	for _, key := range employee.BalanceKeys {
		counter, ok := patch.Balances[key]
		if !ok {
			continue
		}
		balanceCol, err := balanceColumn(key, "balance")
		if err != nil {
			return nil, err
		}
		takenCol, _ := balanceColumn(key, "taken")
		set.add(balanceCol, counter.Balance)
		set.add(takenCol, counter.Taken)
	}
	return set, nil
}

func (s *Store) SetPasswordHash(ctx context.Context, id, hash string) error {
	tag, err := s.DB.Exec(ctx, "UPDATE employees SET password_hash = $1, updated_at = now() WHERE id = $2", hash, id)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return errs.NotFound("employee not found")
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	tag, err := s.DB.Exec(ctx, "DELETE FROM employees WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete employee: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return errs.NotFound("employee not found")
	}
	return nil
}

func (s *Store) ResetCategoryBalances(ctx context.Context, defaults employee.BalanceDefaults) (int, error) {
	tag, err := s.DB.Exec(ctx, `
    UPDATE employees
    SET annual_balance = $1, fr_balance = $2, updated_at = now()
  `, defaults.Annual, defaults.FR)
	if err != nil {
		return 0, fmt.Errorf("reset balances: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func (s *Store) List(ctx context.Context, filter employee.ListFilter) (employee.ListResult, error) {
	where := &setList{}
	var conds []string
	if search := strings.TrimSpace(filter.Search); search != "" {
		pos := where.arg("%" + search + "%")
		conds = append(conds, fmt.Sprintf("(name ILIKE %s OR email ILIKE %s)", pos, pos))
	}
	if filter.Role != "" {
		conds = append(conds, "role = "+where.arg(string(filter.Role)))
	}
	clause := ""
	if len(conds) > 0 {
		clause = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := s.DB.QueryRow(ctx, "SELECT COUNT(1) FROM employees"+clause, where.args...).Scan(&total); err != nil {
		return employee.ListResult{}, fmt.Errorf("count employees: %w", err)
	}

	query := "SELECT " + employeeColumns + " FROM employees" + clause + " ORDER BY name, id"
	if filter.Limit > 0 {
		query += " LIMIT " + where.arg(filter.Limit)
	}
	if filter.Offset > 0 {
		query += " OFFSET " + where.arg(filter.Offset)
	}
	rows, err := s.DB.Query(ctx, query, where.args...)
	if err != nil {
		return employee.ListResult{}, fmt.Errorf("list employees: %w", err)
	}
	defer rows.Close()

	result := employee.ListResult{Employees: []employee.Employee{}, Total: total}
	for rows.Next() {
		rec, err := scanEmployee(rows)
		if err != nil {
			return employee.ListResult{}, err
		}
		result.Employees = append(result.Employees, rec.Employee)
	}
	return result, rows.Err()
}
