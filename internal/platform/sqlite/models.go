package sqlite

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/tasks-api/internal/domain"
)

type userRecord struct {
	ID             string `gorm:"primaryKey;size:36"`
	Email          string `gorm:"size:320;not null;uniqueIndex"`
	HashedPassword string `gorm:"not null"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (userRecord) TableName() string {
	return "users"
}

func newUserRecord(u *domain.User) *userRecord {
	return &userRecord{
		ID:             u.ID.String(),
		Email:          u.Email,
		HashedPassword: u.HashedPassword,
		CreatedAt:      u.CreatedAt,
		UpdatedAt:      u.UpdatedAt,
	}
}

func (r *userRecord) toDomain() (*domain.User, error) {
	id, err := uuid.Parse(r.ID)
	if err != nil {
		return nil, err
	}
	return &domain.User{
		ID:             id,
		Email:          r.Email,
		HashedPassword: r.HashedPassword,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}, nil
}

// taskRecord keeps a Unicode-lowercased copy of the title for search,
// since SQLite's LOWER and LIKE fold ASCII only.
type taskRecord struct {
	ID          int64  `gorm:"primaryKey;autoIncrement"`
	OwnerID     string `gorm:"size:36;not null;index:idx_tasks_owner_id_id,priority:1"`
	Title       string `gorm:"size:255;not null"`
	TitleFolded string `gorm:"not null;default:''"`
	Completed   bool   `gorm:"not null;default:false"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (taskRecord) TableName() string {
	return "tasks"
}

func newTaskRecord(t *domain.Task) *taskRecord {
	rec := &taskRecord{
		ID:        t.ID,
		OwnerID:   t.OwnerID.String(),
		Completed: t.Completed,
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
	}
	rec.setTitle(t.Title)
	return rec
}

func (r *taskRecord) setTitle(title string) {
	r.Title = title
	r.TitleFolded = strings.ToLower(title)
}

func (r *taskRecord) toDomain() (*domain.Task, error) {
	owner, err := uuid.Parse(r.OwnerID)
	if err != nil {
		return nil, err
	}
	return &domain.Task{
		ID:        r.ID,
		OwnerID:   owner,
		Title:     r.Title,
		Completed: r.Completed,
		CreatedAt: r.CreatedAt.UTC(),
		UpdatedAt: r.UpdatedAt.UTC(),
	}, nil
}
