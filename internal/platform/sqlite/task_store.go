package sqlite

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/phrazzld/tasks-api/internal/domain"
	"github.com/phrazzld/tasks-api/internal/platform/logger"
	"github.com/phrazzld/tasks-api/internal/store"
	"gorm.io/gorm"
)

// TaskStore implements store.TaskStore with gorm over SQLite.
type TaskStore struct {
	db     *gorm.DB
	logger *slog.Logger
}

// NewTaskStore creates a TaskStore using db. If logger is nil, a default logger will be used.
func NewTaskStore(db *gorm.DB, logger *slog.Logger) *TaskStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &TaskStore{
		db:     db,
		logger: logger.With(slog.String("component", "task_store")),
	}
}

var _ store.TaskStore = (*TaskStore)(nil)

func ownedBy(ownerID uuid.UUID, search string) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		db = db.Where("owner_id = ?", ownerID.String())
		if search != "" {
			db = db.Where(`title_folded LIKE ? ESCAPE '\'`, store.ContainsPattern(strings.ToLower(search)))
		}
		return db
	}
}

// List implements store.TaskStore.List
func (s *TaskStore) List(ctx context.Context, ownerID uuid.UUID, q domain.TaskQuery) (*domain.TaskPage, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)
	q = q.Normalize()

	var total int64
	var records []taskRecord
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&taskRecord{}).Scopes(ownedBy(ownerID, q.Search)).Count(&total).Error; err != nil {
			return fmt.Errorf("count tasks: %w", err)
		}
		if q.PastEnd(int(total)) {
			return nil
		}
		return tx.Scopes(ownedBy(ownerID, q.Search)).
			Order("id ASC").
			Limit(q.Limit).
			Offset(q.Offset()).
			Find(&records).Error
	})
	if err != nil {
		log.Error("failed to list tasks",
			slog.String("error", err.Error()),
			slog.String("owner_id", ownerID.String()))
		return nil, store.NewStoreError("task", "list", "query failed", err)
	}

	page := &domain.TaskPage{Tasks: make([]*domain.Task, 0, len(records)), Total: int(total)}
	for i := range records {
		task, err := records[i].toDomain()
		if err != nil {
			return nil, store.NewStoreError("task", "list", "corrupt owner id", err)
		}
		page.Tasks = append(page.Tasks, task)
	}
	return page, nil
}

// GetByID implements store.TaskStore.GetByID
func (s *TaskStore) GetByID(ctx context.Context, ownerID uuid.UUID, id int64) (*domain.Task, error) {
	var rec taskRecord
	err := s.db.WithContext(ctx).
		Where("id = ? AND owner_id = ?", id, ownerID.String()).
		First(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, store.ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to find task: %w", mapError(err))
	}
	return rec.toDomain()
}

// Create implements store.TaskStore.Create
func (s *TaskStore) Create(ctx context.Context, task *domain.Task) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := task.Validate(); err != nil {
		return err
	}

	rec := newTaskRecord(task)
	if err := s.db.WithContext(ctx).Create(rec).Error; err != nil {
		log.Error("failed to create task", slog.String("error", err.Error()))
		return fmt.Errorf("failed to create task: %w", mapError(err))
	}

	task.ID = rec.ID
	task.CreatedAt = rec.CreatedAt.UTC()
	task.UpdatedAt = rec.UpdatedAt.UTC()

	log.Info("task created",
		slog.Int64("task_id", task.ID),
		slog.String("owner_id", task.OwnerID.String()))
	return nil
}

// Update implements store.TaskStore.Update
// The owned row is read and rewritten inside one transaction.
func (s *TaskStore) Update(
	ctx context.Context,
	ownerID uuid.UUID,
	id int64,
	patch domain.TaskPatch,
) (*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := patch.Validate(); err != nil {
		return nil, err
	}

	var updated *domain.Task
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rec taskRecord
		if err := tx.Where("id = ? AND owner_id = ?", id, ownerID.String()).First(&rec).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return store.ErrTaskNotFound
			}
			return mapError(err)
		}

		task, err := rec.toDomain()
		if err != nil {
			return err
		}
		patch.Apply(task)

		rec.setTitle(task.Title)
		rec.Completed = task.Completed
		if err := tx.Save(&rec).Error; err != nil {
			return mapError(err)
		}

		task.UpdatedAt = rec.UpdatedAt.UTC()
		updated = task
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info("task updated", slog.Int64("task_id", id))
	return updated, nil
}

// Delete implements store.TaskStore.Delete
func (s *TaskStore) Delete(ctx context.Context, ownerID uuid.UUID, id int64) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result := s.db.WithContext(ctx).Delete(&taskRecord{}, "id = ? AND owner_id = ?", id, ownerID.String())
	if err := result.Error; err != nil {
		return fmt.Errorf("failed to delete task: %w", mapError(err))
	}
	if result.RowsAffected == 0 {
		return store.ErrTaskNotFound
	}

	log.Info("task deleted", slog.Int64("task_id", id))
	return nil
}

// Ping implements store.TaskStore.Ping
func (s *TaskStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
