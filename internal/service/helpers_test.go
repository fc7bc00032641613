package service

import (
	"context"
	"errors"
	"testing"

	"inkwell/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// assertCode asserts that err is an AppError carrying code.
func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %T: %v", err, err)
	assert.Equal(t, code, appErr.Code)
}

func assertValidationError(t *testing.T, err error) {
	t.Helper()
	assertCode(t, err, models.CodeInvalidArgument)
}

func assertUnauthorizedError(t *testing.T, err error) {
	t.Helper()
	assertCode(t, err, models.CodeUnauthenticated)
}

func assertNotFoundError(t *testing.T, err error) {
	t.Helper()
	assertCode(t, err, models.CodeNotFound)
}

// userRepoStub is a stub for repository.UserRepository.
type userRepoStub struct {
	getByIDFn    func(context.Context, string) (*models.User, error)
	getByEmailFn func(context.Context, string) (*models.User, error)
	createFn     func(context.Context, *models.User) error
}

func (s *userRepoStub) GetByID(ctx context.Context, id string) (*models.User, error) {
	return s.getByIDFn(ctx, id)
}
func (s *userRepoStub) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.getByEmailFn(ctx, email)
}
func (s *userRepoStub) Create(ctx context.Context, user *models.User) error {
	return s.createFn(ctx, user)
}

// memoryUserRepo keeps users in a map keyed by email.
func memoryUserRepo() *userRepoStub {
	byEmail := map[string]*models.User{}
	return &userRepoStub{
		getByIDFn: func(_ context.Context, id string) (*models.User, error) {
			for _, u := range byEmail {
				if u.ID == id {
					return u, nil
				}
			}
			return nil, models.NewNotFoundError("user not found")
		},
		getByEmailFn: func(_ context.Context, email string) (*models.User, error) {
			return byEmail[email], nil
		},
		createFn: func(_ context.Context, u *models.User) error {
			if _, ok := byEmail[u.Email]; ok {
				return models.NewConflictError("email already registered")
			}
			_ = u.BeforeCreate(nil)
			byEmail[u.Email] = u
			return nil
		},
	}
}

// postRepoStub is a stub for repository.PostRepository.
type postRepoStub struct {
	createFn         func(context.Context, *models.Post) error
	listByUserFn     func(context.Context, string) ([]*models.Post, error)
	getByIDForUserFn func(context.Context, string, string) (*models.Post, error)
	updateFn         func(context.Context, string, string, map[string]interface{}) error
	deleteFn         func(context.Context, string, string) (int64, error)
}

func (s *postRepoStub) Create(ctx context.Context, post *models.Post) error {
	return s.createFn(ctx, post)
}
func (s *postRepoStub) ListByUser(ctx context.Context, userID string) ([]*models.Post, error) {
	return s.listByUserFn(ctx, userID)
}
func (s *postRepoStub) GetByIDForUser(ctx context.Context, id, userID string) (*models.Post, error) {
	return s.getByIDForUserFn(ctx, id, userID)
}
func (s *postRepoStub) Update(ctx context.Context, id, userID string, updates map[string]interface{}) error {
	return s.updateFn(ctx, id, userID, updates)
}
func (s *postRepoStub) Delete(ctx context.Context, id, userID string) (int64, error) {
	return s.deleteFn(ctx, id, userID)
}

func noopPostRepo() *postRepoStub {
	return &postRepoStub{
		createFn:     func(_ context.Context, _ *models.Post) error { return nil },
		listByUserFn: func(_ context.Context, _ string) ([]*models.Post, error) { return []*models.Post{}, nil },
		getByIDForUserFn: func(_ context.Context, id, userID string) (*models.Post, error) {
			return &models.Post{ID: id, UserID: userID, Content: "existing"}, nil
		},
		updateFn: func(_ context.Context, _, _ string, _ map[string]interface{}) error { return nil },
		deleteFn: func(_ context.Context, _, _ string) (int64, error) { return 0, nil },
	}
}

// autosaveRepoStub is a stub for repository.AutosaveRepository.
type autosaveRepoStub struct {
	upsertFn    func(context.Context, *models.Autosave, bool) error
	getByUserFn func(context.Context, string) (*models.Autosave, error)
}

func (s *autosaveRepoStub) Upsert(ctx context.Context, draft *models.Autosave, replaceCover bool) error {
	return s.upsertFn(ctx, draft, replaceCover)
}
func (s *autosaveRepoStub) GetByUser(ctx context.Context, userID string) (*models.Autosave, error) {
	return s.getByUserFn(ctx, userID)
}

func noopAutosaveRepo() *autosaveRepoStub {
	return &autosaveRepoStub{
		upsertFn:    func(_ context.Context, _ *models.Autosave, _ bool) error { return nil },
		getByUserFn: func(_ context.Context, _ string) (*models.Autosave, error) { return nil, nil },
	}
}

func strPtr(s string) *string { return &s }
