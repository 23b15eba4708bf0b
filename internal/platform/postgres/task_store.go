package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/tasks-api/internal/domain"
	"github.com/phrazzld/tasks-api/internal/platform/logger"
	"github.com/phrazzld/tasks-api/internal/store"
)

const taskColumns = `id, owner_id, title, completed, created_at, updated_at`

// PostgresTaskStore implements the store.TaskStore interface
// using a PostgreSQL database as the storage backend.
type PostgresTaskStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresTaskStore creates a new PostgreSQL implementation of the TaskStore interface.
// If logger is nil, a default logger will be used.
func NewPostgresTaskStore(db *sql.DB, logger *slog.Logger) *PostgresTaskStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresTaskStore{
		db:     db,
		logger: logger.With(slog.String("component", "task_store")),
	}
}

// Ensure PostgresTaskStore implements store.TaskStore interface
var _ store.TaskStore = (*PostgresTaskStore)(nil)

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*domain.Task, error) {
	var task domain.Task
	err := row.Scan(
		&task.ID,
		&task.OwnerID,
		&task.Title,
		&task.Completed,
		&task.CreatedAt,
		&task.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &task, nil
}

// List implements store.TaskStore.List
// The count and the page are read in one read-only transaction so that total
// and the window describe the same snapshot.
func (s *PostgresTaskStore) List(
	ctx context.Context,
	ownerID uuid.UUID,
	q domain.TaskQuery,
) (*domain.TaskPage, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)
	q = q.Normalize()

	where := "owner_id = $1"
	args := []any{ownerID}
	if q.Search != "" {
		where += ` AND title ILIKE $2 ESCAPE '\'`
		args = append(args, store.ContainsPattern(q.Search))
	}

	countQuery := `SELECT COUNT(*) FROM tasks WHERE ` + where
	pageQuery := fmt.Sprintf(
		`SELECT %s FROM tasks WHERE %s ORDER BY id ASC LIMIT $%d OFFSET $%d`,
		taskColumns, where, len(args)+1, len(args)+2,
	)

	page := &domain.TaskPage{Tasks: []*domain.Task{}}
	opts := &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true}
	err := store.RunInTransaction(ctx, s.db, opts, func(ctx context.Context, tx *sql.Tx) error {
		if err := tx.QueryRowContext(ctx, countQuery, args...).Scan(&page.Total); err != nil {
			return fmt.Errorf("count tasks: %w", err)
		}
		if q.PastEnd(page.Total) {
			return nil
		}

		rows, err := tx.QueryContext(ctx, pageQuery, append(args, q.Limit, q.Offset())...)
		if err != nil {
			return fmt.Errorf("select tasks: %w", err)
		}
		defer func() { _ = rows.Close() }()

		for rows.Next() {
			task, err := scanTask(rows)
			if err != nil {
				return fmt.Errorf("scan task: %w", err)
			}
			page.Tasks = append(page.Tasks, task)
		}
		return rows.Err()
	})
	if err != nil {
		log.Error("failed to list tasks",
			slog.String("error", err.Error()),
			slog.String("owner_id", ownerID.String()))
		return nil, store.NewStoreError("task", "list", "query failed", err)
	}

	log.Debug("tasks listed",
		slog.String("owner_id", ownerID.String()),
		slog.Int("page", q.Page),
		slog.Int("returned", len(page.Tasks)),
		slog.Int("total", page.Total))
	return page, nil
}

// GetByID implements store.TaskStore.GetByID
func (s *PostgresTaskStore) GetByID(ctx context.Context, ownerID uuid.UUID, id int64) (*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1 AND owner_id = $2`
	task, err := scanTask(s.db.QueryRowContext(ctx, query, id, ownerID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("task not found", slog.Int64("task_id", id))
			return nil, store.ErrTaskNotFound
		}
		log.Error("failed to get task by ID",
			slog.String("error", err.Error()),
			slog.Int64("task_id", id))
		return nil, MapError(err)
	}

	return task, nil
}

// Create implements store.TaskStore.Create
func (s *PostgresTaskStore) Create(ctx context.Context, task *domain.Task) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := task.Validate(); err != nil {
		log.Warn("task validation failed during create", slog.String("error", err.Error()))
		return err
	}

	now := time.Now().UTC()
	query := `
		INSERT INTO tasks (owner_id, title, completed, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`
	err := s.db.QueryRowContext(ctx, query, task.OwnerID, task.Title, task.Completed, now, now).
		Scan(&task.ID)
	if err != nil {
		log.Error("failed to create task",
			slog.String("error", err.Error()),
			slog.String("owner_id", task.OwnerID.String()))
		return MapError(err)
	}

	task.CreatedAt = now
	task.UpdatedAt = now

	log.Info("task created",
		slog.Int64("task_id", task.ID),
		slog.String("owner_id", task.OwnerID.String()))
	return nil
}

// Update implements store.TaskStore.Update
// The ownership check, the patch and the read-back happen in a single statement.
func (s *PostgresTaskStore) Update(
	ctx context.Context,
	ownerID uuid.UUID,
	id int64,
	patch domain.TaskPatch,
) (*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := patch.Validate(); err != nil {
		return nil, err
	}

	query := `
		UPDATE tasks
		SET title = COALESCE($3, title),
			completed = COALESCE($4, completed),
			updated_at = $5
		WHERE id = $1 AND owner_id = $2
		RETURNING ` + taskColumns

	task, err := scanTask(s.db.QueryRowContext(ctx, query,
		id, ownerID, patch.Title, patch.Completed, time.Now().UTC()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("task not found for update", slog.Int64("task_id", id))
			return nil, store.ErrTaskNotFound
		}
		log.Error("failed to update task",
			slog.String("error", err.Error()),
			slog.Int64("task_id", id))
		return nil, MapError(err)
	}

	log.Info("task updated", slog.Int64("task_id", id))
	return task, nil
}

// Delete implements store.TaskStore.Delete
func (s *PostgresTaskStore) Delete(ctx context.Context, ownerID uuid.UUID, id int64) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = $1 AND owner_id = $2`, id, ownerID)
	if err != nil {
		log.Error("failed to delete task",
			slog.String("error", err.Error()),
			slog.Int64("task_id", id))
		return MapError(err)
	}

	if err := CheckRowsAffected(result, store.ErrTaskNotFound); err != nil {
		return err
	}

	log.Info("task deleted", slog.Int64("task_id", id))
	return nil
}

// Ping implements store.TaskStore.Ping
func (s *PostgresTaskStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
