package leave

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"hrleave/internal/domain/auth"
	"hrleave/internal/domain/errs"
	"hrleave/internal/requestctx"
)

const (
	defaultRejectComment = "Leave request rejected"
	defaultCancelComment = "Cancelled by employee"
)

type Service struct {
	Store     StoreAPI
	Employees EmployeeLookup
	Calendar  Calendar
	Events    Publisher
	Metrics   TransitionRecorder
	Location  *time.Location
	Now       func() time.Time
}

func NewService(store StoreAPI, employees EmployeeLookup, cal Calendar) *Service {
	return &Service{Store: store, Employees: employees, Calendar: cal, Location: time.UTC, Now: time.Now}
}

func (s *Service) Submit(ctx context.Context, input Submission) (Request, error) {
	caller, err := auth.RequireCaller(ctx)
	if err != nil {
		return Request{}, err
	}
	employeeID := strings.TrimSpace(input.EmployeeID)
	if employeeID == "" {
		employeeID = caller.ID
	}
	action := auth.ActionLeaveSubmit
	if employeeID != caller.ID {
		action = auth.ActionLeaveSubmitFor
	}
	if err := auth.Authorize(caller, action, auth.Resource{OwnerID: employeeID}); err != nil {
		return Request{}, err
	}

	req := Request{
		EmployeeID:        employeeID,
		Category:          input.Category,
		From:              input.From,
		To:                input.To,
		IsHalfDay:         input.IsHalfDay,
		HalfDayPeriod:     input.HalfDayPeriod,
		Reason:            input.Reason,
		Replacement:       input.Replacement,
		EmergencyContact:  input.EmergencyContact,
		AttachmentURL:     input.AttachmentURL,
		DoctorCertificate: input.DoctorCertificate,
		Priority:          input.Priority,
	}
	trimRequest(&req)
	if err := validateRequest(s.Calendar, &req, s.today()); err != nil {
		return Request{}, err
	}

	owner, err := s.Employees.FindByID(ctx, employeeID)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return Request{}, errs.NotFound("employee not found")
		}
		return Request{}, err
	}

	now := s.now()
	req.ID = uuid.NewString()
	req.EmployeeName = owner.Name
	req.Status = StatusPending
	req.Comments = []Comment{}
	req.CreatedAt = now
	req.UpdatedAt = now

	created, err := s.Store.CreateRequest(ctx, req)
	if err != nil {
		return Request{}, err
	}
	s.publish(ctx, EventSubmitted, created, caller, s.actorName(ctx, caller), "")
	return created, nil
}

// Get hides requests the caller may not see behind ErrNotFound.
func (s *Service) Get(ctx context.Context, id string) (Request, error) {
	caller, err := auth.RequireCaller(ctx)
	if err != nil {
		return Request{}, err
	}
	return s.visible(ctx, caller, id)
}

// List scopes employees to their own requests. Privileged callers may
// narrow by EmployeeID.
func (s *Service) List(ctx context.Context, filter Filter) (ListResult, error) {
	caller, err := auth.RequireCaller(ctx)
	if err != nil {
		return ListResult{}, err
	}
	if !auth.Can(caller, auth.ActionReportAll, auth.Resource{}) {
		filter.EmployeeID = caller.ID
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return ListResult{}, errs.Validation("unknown status %q", filter.Status)
	}
	if filter.Category != "" && !filter.Category.Valid() {
		return ListResult{}, errs.Validation("unknown category %q", filter.Category)
	}
	return s.Store.ListRequests(ctx, filter)
}

func (s *Service) Approve(ctx context.Context, id, comment string) (Request, error) {
	caller, err := auth.RequireCaller(ctx)
	if err != nil {
		return Request{}, err
	}
	if err := auth.Authorize(caller, auth.ActionLeaveApprove, auth.Resource{}); err != nil {
		return Request{}, err
	}
	if _, err := s.pending(ctx, id); err != nil {
		return Request{}, err
	}

	actorName := s.actorName(ctx, caller)
	t := Transition{Status: StatusApproved, ActorID: caller.ID, ActorName: actorName, At: s.now(), DebitBalance: true}
	if text := strings.TrimSpace(comment); text != "" {
		t.Comment = &Comment{AuthorID: caller.ID, AuthorName: actorName, Role: caller.Role, Text: text, CreatedAt: t.At}
	}

	updated, err := s.Store.TransitionRequest(ctx, id, t)
	if err != nil {
		return Request{}, err
	}
	s.publish(ctx, EventApproved, updated, caller, actorName, strings.TrimSpace(comment))
	return updated, nil
}

func (s *Service) Reject(ctx context.Context, id, comment string) (Request, error) {
	caller, err := auth.RequireCaller(ctx)
	if err != nil {
		return Request{}, err
	}
	if err := auth.Authorize(caller, auth.ActionLeaveReject, auth.Resource{}); err != nil {
		return Request{}, err
	}
	if _, err := s.pending(ctx, id); err != nil {
		return Request{}, err
	}

	text := strings.TrimSpace(comment)
	if text == "" {
		text = defaultRejectComment
	}
	actorName := s.actorName(ctx, caller)
	at := s.now()
	updated, err := s.Store.TransitionRequest(ctx, id, Transition{
		Status:    StatusRejected,
		ActorID:   caller.ID,
		ActorName: actorName,
		At:        at,
		Comment:   &Comment{AuthorID: caller.ID, AuthorName: actorName, Role: caller.Role, Text: text, CreatedAt: at},
	})
	if err != nil {
		return Request{}, err
	}
	s.publish(ctx, EventRejected, updated, caller, actorName, text)
	return updated, nil
}

// Cancel is reserved to the request owner, privileged or not.
func (s *Service) Cancel(ctx context.Context, id, reason string) (Request, error) {
	caller, err := auth.RequireCaller(ctx)
	if err != nil {
		return Request{}, err
	}
	req, err := s.Store.GetRequest(ctx, id)
	if err != nil {
		return Request{}, err
	}
	if err := auth.Authorize(caller, auth.ActionLeaveCancel, auth.Resource{OwnerID: req.EmployeeID}); err != nil {
		return Request{}, err
	}
	if req.Status != StatusPending {
		return Request{}, errs.Conflict("only pending requests can be cancelled")
	}

	text := strings.TrimSpace(reason)
	if text == "" {
		text = defaultCancelComment
	}
	actorName := s.actorName(ctx, caller)
	at := s.now()
	updated, err := s.Store.TransitionRequest(ctx, id, Transition{
		Status:    StatusCancelled,
		ActorID:   caller.ID,
		ActorName: actorName,
		At:        at,
		Comment:   &Comment{AuthorID: caller.ID, AuthorName: actorName, Role: auth.RoleEmployee, Text: text, CreatedAt: at},
	})
	if err != nil {
		return Request{}, err
	}
	s.publish(ctx, EventCancelled, updated, caller, actorName, text)
	return updated, nil
}

// Update merges patch into a pending request owned by the caller and
// validates the result before writing.
func (s *Service) Update(ctx context.Context, id string, patch Patch) (Request, error) {
	caller, err := auth.RequireCaller(ctx)
	if err != nil {
		return Request{}, err
	}
	if patch.Empty() {
		var fields errs.Fields
		fields.Add("body", "at least one field is required")
		return Request{}, fields.Err()
	}
	req, err := s.Store.GetRequest(ctx, id)
	if err != nil {
		return Request{}, err
	}
	if err := auth.Authorize(caller, auth.ActionLeaveUpdate, auth.Resource{OwnerID: req.EmployeeID}); err != nil {
		return Request{}, err
	}
	if req.Status != StatusPending {
		return Request{}, errs.Conflict("only pending requests can be updated")
	}

	merged := patch.Apply(req)
	trimRequest(&merged)
	// An untouched past span stays valid, unless the fields that permit
	// backdating change.
	today := s.today()
	keepsRule := merged.Category == req.Category && merged.Priority == req.Priority
	if !patch.touchesSpan() && keepsRule && merged.From.Before(today) {
		today = merged.From
	}
	if err := validateRequest(s.Calendar, &merged, today); err != nil {
		return Request{}, err
	}
	if !patch.touchesSpan() {
		merged.TotalDays = req.TotalDays
	}
	merged.UpdatedAt = s.now()

	updated, err := s.Store.ReplacePending(ctx, merged)
	if err != nil {
		return Request{}, err
	}
	s.publish(ctx, EventUpdated, updated, caller, s.actorName(ctx, caller), "")
	return updated, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	caller, err := auth.RequireCaller(ctx)
	if err != nil {
		return err
	}
	req, err := s.Store.GetRequest(ctx, id)
	if err != nil {
		return err
	}
	if err := auth.Authorize(caller, auth.ActionLeaveDelete, auth.Resource{OwnerID: req.EmployeeID}); err != nil {
		return err
	}
	if req.Status != StatusPending {
		return errs.Conflict("only pending requests can be deleted")
	}
	if err := s.Store.DeletePending(ctx, id); err != nil {
		return err
	}
	s.publish(ctx, EventDeleted, req, caller, s.actorName(ctx, caller), "")
	return nil
}

func (s *Service) Comment(ctx context.Context, id, text string) (Request, error) {
	caller, err := auth.RequireCaller(ctx)
	if err != nil {
		return Request{}, err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		var fields errs.Fields
		fields.Add("text", "is required")
		return Request{}, fields.Err()
	}
	req, err := s.visible(ctx, caller, id)
	if err != nil {
		return Request{}, err
	}
	if err := auth.Authorize(caller, auth.ActionLeaveComment, auth.Resource{OwnerID: req.EmployeeID}); err != nil {
		return Request{}, err
	}

	actorName := s.actorName(ctx, caller)
	updated, err := s.Store.AppendComment(ctx, id, Comment{
		AuthorID:   caller.ID,
		AuthorName: actorName,
		Role:       caller.Role,
		Text:       text,
		CreatedAt:  s.now(),
	})
	if err != nil {
		return Request{}, err
	}
	s.publish(ctx, EventCommented, updated, caller, actorName, text)
	return updated, nil
}

func (s *Service) visible(ctx context.Context, caller auth.Caller, id string) (Request, error) {
	req, err := s.Store.GetRequest(ctx, id)
	if err != nil {
		return Request{}, err
	}
	if !auth.Can(caller, auth.ActionLeaveView, auth.Resource{OwnerID: req.EmployeeID}) {
		return Request{}, errs.NotFound("leave request not found")
	}
	return req, nil
}

func (s *Service) pending(ctx context.Context, id string) (Request, error) {
	req, err := s.Store.GetRequest(ctx, id)
	if err != nil {
		return Request{}, err
	}
	if req.Status != StatusPending {
		return Request{}, errs.Conflict("leave request is already %s", req.Status)
	}
	return req, nil
}

func (s *Service) actorName(ctx context.Context, caller auth.Caller) string {
	if s.Employees == nil {
		return caller.Email
	}
	emp, err := s.Employees.FindByID(ctx, caller.ID)
	if err != nil {
		return caller.Email
	}
	return emp.Name
}

func (s *Service) publish(ctx context.Context, eventType EventType, req Request, caller auth.Caller, actorName, comment string) {
	if s.Metrics != nil {
		s.Metrics.RecordTransition(req.Category, eventType)
	}
	if s.Events == nil {
		return
	}
	event := newEvent(eventType, req, caller.ID, actorName, s.now())
	event.Comment = comment
	if s.Employees != nil {
		if owner, err := s.Employees.FindByID(ctx, req.EmployeeID); err == nil {
			event.EmployeeEmail = owner.Email
		}
	}
	if err := s.Events.Publish(ctx, event); err != nil {
		requestctx.Logger(ctx).Warn("leave event publish failed", "err", err, "type", eventType, "request_id", req.ID)
	}
}

// today is the current calendar date in the organisation's timezone.
func (s *Service) today() time.Time {
	loc := s.Location
	if loc == nil {
		loc = time.UTC
	}
	return DateOnly(s.now().In(loc))
}

func (s *Service) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now().UTC()
}
