package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/phrazzld/tasks-api/internal/domain"
)

// TaskStore defines the interface for task persistence.
// Every operation is scoped to an owner: a task that exists but belongs to
// another owner is reported exactly like a task that does not exist.
type TaskStore interface {
	// List returns the owner's tasks ordered by ID ascending, filtered by a
	// case-insensitive title substring when q.Search is non-empty, and
	// windowed by q.Page and q.Limit. Total counts all matching tasks
	// regardless of the window.
	List(ctx context.Context, ownerID uuid.UUID, q domain.TaskQuery) (*domain.TaskPage, error)

	// GetByID retrieves a single task.
	// Returns ErrTaskNotFound if the task does not exist or is not owned by ownerID.
	GetByID(ctx context.Context, ownerID uuid.UUID, id int64) (*domain.Task, error)

	// Create inserts a new task and fills in its ID and timestamps.
	// Returns validation errors from the domain Task if data is invalid.
	Create(ctx context.Context, task *domain.Task) error

	// Update applies patch to the task and returns the stored result.
	// Fields left nil in patch are unchanged; UpdatedAt is always refreshed.
	// Returns ErrTaskNotFound if the task does not exist or is not owned by ownerID.
	Update(ctx context.Context, ownerID uuid.UUID, id int64, patch domain.TaskPatch) (*domain.Task, error)

	// Delete removes the task.
	// Returns ErrTaskNotFound if the task does not exist or is not owned by ownerID.
	Delete(ctx context.Context, ownerID uuid.UUID, id int64) error

	// Ping reports whether the backing database is reachable.
	Ping(ctx context.Context) error
}
