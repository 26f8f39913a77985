package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"hrleave/internal/domain/errs"
	"hrleave/internal/domain/leave"
)

const requestColumns = `id, employee_id, employee_name, category, from_date, to_date, is_half_day, half_day_period,
    total_days, reason, replacement, emergency_contact, attachment_url, doctor_certificate, priority, status,
    approved_by, approved_by_name, approved_at, rejected_by, rejected_by_name, rejected_at, cancelled_at,
    comments, created_at, updated_at`

func scanRequest(row pgx.Row) (leave.Request, error) {
	var req leave.Request
	var category, period, priority, status string
	var comments []byte
	err := row.Scan(
		&req.ID, &req.EmployeeID, &req.EmployeeName, &category, &req.From, &req.To, &req.IsHalfDay, &period,
		&req.TotalDays, &req.Reason, &req.Replacement, &req.EmergencyContact, &req.AttachmentURL, &req.DoctorCertificate, &priority, &status,
		&req.ApprovedBy, &req.ApprovedByName, &req.ApprovedAt, &req.RejectedBy, &req.RejectedByName, &req.RejectedAt, &req.CancelledAt,
		&comments, &req.CreatedAt, &req.UpdatedAt,
	)
	if err != nil {
		return leave.Request{}, err
	}
	req.Category = leave.Category(category)
	req.HalfDayPeriod = leave.HalfDayPeriod(period)
	req.Priority = leave.Priority(priority)
	req.Status = leave.Status(status)
	req.Comments = []leave.Comment{}
	if len(comments) > 0 {
		if err := json.Unmarshal(comments, &req.Comments); err != nil {
			return leave.Request{}, fmt.Errorf("decode comments: %w", err)
		}
	}
	return req, nil
}

func encodeComments(comments []leave.Comment) (string, error) {
	if comments == nil {
		comments = []leave.Comment{}
	}
	raw, err := json.Marshal(comments)
	if err != nil {
		return "", fmt.Errorf("encode comments: %w", err)
	}
	return string(raw), nil
}

func (s *Store) CreateRequest(ctx context.Context, req leave.Request) (leave.Request, error) {
	comments, err := encodeComments(req.Comments)
	if err != nil {
		return leave.Request{}, err
	}
	created, err := scanRequest(s.DB.QueryRow(ctx, `
    INSERT INTO leave_requests (`+requestColumns+`)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24,$25,$26)
    RETURNING `+requestColumns,
		req.ID, req.EmployeeID, req.EmployeeName, string(req.Category), req.From, req.To, req.IsHalfDay, string(req.HalfDayPeriod),
		req.TotalDays, req.Reason, req.Replacement, req.EmergencyContact, req.AttachmentURL, req.DoctorCertificate, string(req.Priority), string(req.Status),
		req.ApprovedBy, req.ApprovedByName, req.ApprovedAt, req.RejectedBy, req.RejectedByName, req.RejectedAt, req.CancelledAt,
		comments, req.CreatedAt, req.UpdatedAt,
	))
	if err != nil {
		switch pgCode(err) {
		case foreignKeyViolation:
			return leave.Request{}, errs.NotFound("employee not found")
		case uniqueViolation:
			return leave.Request{}, errs.Conflict("leave request id already exists")
		}
		return leave.Request{}, fmt.Errorf("insert leave request: %w", err)
	}
	return created, nil
}

func (s *Store) GetRequest(ctx context.Context, id string) (leave.Request, error) {
	return getRequest(ctx, s.DB, id, "")
}

type queryRower interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func getRequest(ctx context.Context, db queryRower, id, lock string) (leave.Request, error) {
	req, err := scanRequest(db.QueryRow(ctx, "SELECT "+requestColumns+" FROM leave_requests WHERE id = $1"+lock, id))
	if err != nil {
		if isNoRows(err) {
			return leave.Request{}, errs.NotFound("leave request not found")
		}
		return leave.Request{}, fmt.Errorf("select leave request: %w", err)
	}
	return req, nil
}

func (s *Store) ListRequests(ctx context.Context, filter leave.Filter) (leave.ListResult, error) {
	where := &setList{}
	var conds []string
	if filter.EmployeeID != "" {
		conds = append(conds, "employee_id = "+where.arg(filter.EmployeeID))
	}
	if filter.Status != "" {
		conds = append(conds, "status = "+where.arg(string(filter.Status)))
	}
	if filter.Category != "" {
		conds = append(conds, "category = "+where.arg(string(filter.Category)))
	}
	if filter.FromStart != nil {
		conds = append(conds, "from_date >= "+where.arg(*filter.FromStart))
	}
	if filter.FromEnd != nil {
		conds = append(conds, "from_date < "+where.arg(*filter.FromEnd))
	}
	clause := ""
	if len(conds) > 0 {
		clause = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := s.DB.QueryRow(ctx, "SELECT COUNT(1) FROM leave_requests"+clause, where.args...).Scan(&total); err != nil {
		return leave.ListResult{}, fmt.Errorf("count leave requests: %w", err)
	}

	order := "DESC"
	if filter.Ascending {
		order = "ASC"
	}
	query := "SELECT " + requestColumns + " FROM leave_requests" + clause + " ORDER BY from_date " + order + ", created_at ASC"
	if filter.Limit > 0 {
		query += " LIMIT " + where.arg(filter.Limit)
	}
	if filter.Offset > 0 {
		query += " OFFSET " + where.arg(filter.Offset)
	}
	rows, err := s.DB.Query(ctx, query, where.args...)
	if err != nil {
		return leave.ListResult{}, fmt.Errorf("list leave requests: %w", err)
	}
	defer rows.Close()

	result := leave.ListResult{Requests: []leave.Request{}, Total: total}
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return leave.ListResult{}, err
		}
		result.Requests = append(result.Requests, req)
	}
	return result, rows.Err()
}

// TransitionRequest locks the row, moves it out of pending and applies the
// debit in one transaction.
func (s *Store) TransitionRequest(ctx context.Context, id string, t leave.Transition) (leave.Request, error) {
	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return leave.Request{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	current, err := getRequest(ctx, tx, id, " FOR UPDATE")
	if err != nil {
		return leave.Request{}, err
	}
	if current.Status != leave.StatusPending {
		return leave.Request{}, errs.Conflict("leave request is already %s", current.Status)
	}

	next := t.Apply(current)
	comments, err := encodeComments(next.Comments)
	if err != nil {
		return leave.Request{}, err
	}
	updated, err := scanRequest(tx.QueryRow(ctx, `
    UPDATE leave_requests
    SET status = $2, approved_by = $3, approved_by_name = $4, approved_at = $5,
        rejected_by = $6, rejected_by_name = $7, rejected_at = $8, cancelled_at = $9,
        comments = $10, updated_at = $11
    WHERE id = $1 AND status = 'pending'
    RETURNING `+requestColumns,
		id, string(next.Status), next.ApprovedBy, next.ApprovedByName, next.ApprovedAt,
		next.RejectedBy, next.RejectedByName, next.RejectedAt, next.CancelledAt,
		comments, next.UpdatedAt,
	))
	if err != nil {
		if isNoRows(err) {
			return leave.Request{}, errs.Conflict("leave request is no longer pending")
		}
		return leave.Request{}, fmt.Errorf("transition leave request: %w", err)
	}

	if debit, ok := t.DebitFor(current); ok {
		column, err := balanceColumn(debit.Key, "taken")
		if err != nil {
			return leave.Request{}, err
		}
		tag, err := tx.Exec(ctx,
			fmt.Sprintf("UPDATE employees SET %[1]s = %[1]s + $1, updated_at = $2 WHERE id = $3", column),
			debit.Days, t.At, debit.EmployeeID)
		if err != nil {
			return leave.Request{}, fmt.Errorf("debit balance: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return leave.Request{}, errs.NotFound("employee not found")
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return leave.Request{}, err
	}
	return updated, nil
}

func (s *Store) ReplacePending(ctx context.Context, req leave.Request) (leave.Request, error) {
	updated, err := scanRequest(s.DB.QueryRow(ctx, `
    UPDATE leave_requests
    SET category = $2, from_date = $3, to_date = $4, is_half_day = $5, half_day_period = $6,
        total_days = $7, reason = $8, replacement = $9, emergency_contact = $10,
        attachment_url = $11, doctor_certificate = $12, priority = $13, updated_at = $14
    WHERE id = $1 AND status = 'pending'
    RETURNING `+requestColumns,
		req.ID, string(req.Category), req.From, req.To, req.IsHalfDay, string(req.HalfDayPeriod),
		req.TotalDays, req.Reason, req.Replacement, req.EmergencyContact,
		req.AttachmentURL, req.DoctorCertificate, string(req.Priority), req.UpdatedAt,
	))
	if err == nil {
		return updated, nil
	}
	if !isNoRows(err) {
		return leave.Request{}, fmt.Errorf("replace leave request: %w", err)
	}
	return leave.Request{}, s.notPending(ctx, req.ID)
}

func (s *Store) DeletePending(ctx context.Context, id string) error {
	tag, err := s.DB.Exec(ctx, "DELETE FROM leave_requests WHERE id = $1 AND status = 'pending'", id)
	if err != nil {
		return fmt.Errorf("delete leave request: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return s.notPending(ctx, id)
	}
	return nil
}

// notPending explains why a conditional write matched no row.
func (s *Store) notPending(ctx context.Context, id string) error {
	current, err := s.GetRequest(ctx, id)
	if err != nil {
		return err
	}
	return errs.Conflict("leave request is already %s", current.Status)
}

func (s *Store) AppendComment(ctx context.Context, id string, comment leave.Comment) (leave.Request, error) {
	entry, err := encodeComments([]leave.Comment{comment})
	if err != nil {
		return leave.Request{}, err
	}
	updated, err := scanRequest(s.DB.QueryRow(ctx, `
    UPDATE leave_requests
    SET comments = comments || $2::jsonb, updated_at = $3
    WHERE id = $1
    RETURNING `+requestColumns, id, entry, comment.CreatedAt))
	if err != nil {
		if isNoRows(err) {
			return leave.Request{}, errs.NotFound("leave request not found")
		}
		return leave.Request{}, fmt.Errorf("append comment: %w", err)
	}
	return updated, nil
}
