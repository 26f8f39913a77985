package employee

import "context"

// StoreAPI is implemented by every persistence adapter. Lookups fail with
// errs.ErrNotFound, Create and an email-changing Update fail with
// errs.ErrConflict on a duplicate email.
type StoreAPI interface {
	FindByEmail(ctx context.Context, email string) (Employee, error)
	FindByID(ctx context.Context, id string) (Employee, error)
	Credentials(ctx context.Context, email string) (Credentials, error)
	Create(ctx context.Context, rec Record) (Employee, error)
	Update(ctx context.Context, id string, patch Patch) (Employee, error)
	SetPasswordHash(ctx context.Context, id, hash string) error
	Delete(ctx context.Context, id string) error
	ResetCategoryBalances(ctx context.Context, defaults BalanceDefaults) (int, error)
	List(ctx context.Context, filter ListFilter) (ListResult, error)
}

// Sealer protects sensitive profile fields at rest.
type Sealer interface {
	SealString(plain string) (string, error)
	OpenString(sealed string) (string, error)
}
