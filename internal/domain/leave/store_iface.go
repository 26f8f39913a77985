package leave

import (
	"context"

	"hrleave/internal/domain/employee"
)

// StoreAPI persists leave requests. Conditional writes fail with
// errs.ErrConflict when the stored status is no longer pending and with
// errs.ErrNotFound when the id is unknown.
type StoreAPI interface {
	CreateRequest(ctx context.Context, req Request) (Request, error)
	GetRequest(ctx context.Context, id string) (Request, error)
	ListRequests(ctx context.Context, filter Filter) (ListResult, error)
	// TransitionRequest moves a pending request and, in the same atomic unit,
	// applies the debit t implies for the row as stored at that moment.
	TransitionRequest(ctx context.Context, id string, t Transition) (Request, error)
	ReplacePending(ctx context.Context, req Request) (Request, error)
	DeletePending(ctx context.Context, id string) error
	AppendComment(ctx context.Context, id string, comment Comment) (Request, error)
}

type EmployeeLookup interface {
	FindByID(ctx context.Context, id string) (employee.Employee, error)
}

type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// TransitionRecorder receives one call per successful lifecycle change.
type TransitionRecorder interface {
	RecordTransition(category Category, eventType EventType)
}
