package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/phrazzld/tasks-api/internal/domain"
	"github.com/phrazzld/tasks-api/internal/platform/logger"
	"github.com/phrazzld/tasks-api/internal/store"
)

// TaskAccess is an identity-scoped view of the task store. Every operation
// acts only on tasks owned by the identity the handle was built for.
type TaskAccess interface {
	// Identity returns the owner this handle is bound to.
	Identity() domain.Identity

	// List returns one page of the owner's tasks and the total match count.
	List(ctx context.Context, q domain.TaskQuery) (*domain.TaskPage, error)

	// Get returns a single task or ErrTaskNotFound.
	Get(ctx context.Context, id int64) (*domain.Task, error)

	// Create stores a new task owned by the identity.
	Create(ctx context.Context, title string, completed bool) (*domain.Task, error)

	// Update applies patch and returns the result, or ErrTaskNotFound.
	Update(ctx context.Context, id int64, patch domain.TaskPatch) (*domain.Task, error)

	// Delete removes the task or returns ErrTaskNotFound.
	Delete(ctx context.Context, id int64) error
}

// TaskService builds TaskAccess handles.
type TaskService struct {
	tasks  store.TaskStore
	logger *slog.Logger
}

// NewTaskService creates a TaskService over tasks.
func NewTaskService(tasks store.TaskStore, logger *slog.Logger) (*TaskService, error) {
	if tasks == nil {
		return nil, errors.New("task store cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &TaskService{
		tasks:  tasks,
		logger: logger.With(slog.String("component", "task_service")),
	}, nil
}

// For returns a handle scoped to identity.
func (s *TaskService) For(identity domain.Identity) (TaskAccess, error) {
	if identity.IsZero() {
		return nil, ErrNoIdentity
	}
	return &taskAccess{
		identity: identity,
		tasks:    s.tasks,
		logger:   s.logger.With(slog.String("owner_id", identity.ID.String())),
	}, nil
}

// Ping reports whether the task store is reachable.
func (s *TaskService) Ping(ctx context.Context) error {
	return s.tasks.Ping(ctx)
}

type taskAccess struct {
	identity domain.Identity
	tasks    store.TaskStore
	logger   *slog.Logger
}

var _ TaskAccess = (*taskAccess)(nil)

func (a *taskAccess) Identity() domain.Identity {
	return a.identity
}

func (a *taskAccess) List(ctx context.Context, q domain.TaskQuery) (*domain.TaskPage, error) {
	page, err := a.tasks.List(ctx, a.identity.ID, q.Normalize())
	if err != nil {
		return nil, a.wrap(ctx, "list", err)
	}
	return page, nil
}

func (a *taskAccess) Get(ctx context.Context, id int64) (*domain.Task, error) {
	task, err := a.tasks.GetByID(ctx, a.identity.ID, id)
	if err != nil {
		return nil, a.wrap(ctx, "get", err)
	}
	return task, nil
}

func (a *taskAccess) Create(ctx context.Context, title string, completed bool) (*domain.Task, error) {
	task, err := domain.NewTask(a.identity.ID, title, completed)
	if err != nil {
		return nil, err
	}
	if err := a.tasks.Create(ctx, task); err != nil {
		return nil, a.wrap(ctx, "create", err)
	}
	return task, nil
}

func (a *taskAccess) Update(ctx context.Context, id int64, patch domain.TaskPatch) (*domain.Task, error) {
	if err := patch.Validate(); err != nil {
		return nil, err
	}
	task, err := a.tasks.Update(ctx, a.identity.ID, id, patch)
	if err != nil {
		return nil, a.wrap(ctx, "update", err)
	}
	return task, nil
}

func (a *taskAccess) Delete(ctx context.Context, id int64) error {
	if err := a.tasks.Delete(ctx, a.identity.ID, id); err != nil {
		return a.wrap(ctx, "delete", err)
	}
	return nil
}

// wrap translates store errors. Not-found and validation errors pass through
// as sentinels; anything else is logged and wrapped.
func (a *taskAccess) wrap(ctx context.Context, op string, err error) error {
	switch {
	case store.IsNotFoundError(err):
		return ErrTaskNotFound
	case errors.Is(err, domain.ErrValidation):
		return err
	}

	logger.FromContextOrDefault(ctx, a.logger).Error("task operation failed",
		slog.String("operation", op),
		slog.String("error", err.Error()))
	return NewTaskServiceError(op, "store error", err)
}
