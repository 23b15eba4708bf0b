package domain

import (
	"fmt"
	"math"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// Task limits and pagination defaults.
const (
	TitleMaxLength = 255
	DefaultPage    = 1
	DefaultLimit   = 10
	MaxLimit       = 100
)

// Task validation errors.
var (
	ErrEmptyTitle   = fmt.Errorf("%w: title cannot be empty", ErrValidation)
	ErrTitleTooLong = fmt.Errorf("%w: title must be at most %d characters", ErrValidation, TitleMaxLength)
	ErrEmptyOwnerID = fmt.Errorf("%w: owner ID cannot be empty", ErrValidation)
)

// Task is the sole resource managed by the API. Every task has exactly one
// owner, fixed at creation.
type Task struct {
	ID        int64     `json:"id"`
	OwnerID   uuid.UUID `json:"-"`
	Title     string    `json:"title"`
	Completed bool      `json:"completed"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewTask creates an unsaved Task owned by ownerID. The ID and timestamps are
// assigned by the store.
func NewTask(ownerID uuid.UUID, title string, completed bool) (*Task, error) {
	task := &Task{
		OwnerID:   ownerID,
		Title:     title,
		Completed: completed,
	}

	if err := task.Validate(); err != nil {
		return nil, err
	}

	return task, nil
}

// Validate checks the Task invariants.
func (t *Task) Validate() error {
	if t.OwnerID == uuid.Nil {
		return ErrEmptyOwnerID
	}
	return validateTitle(t.Title)
}

func validateTitle(title string) error {
	if title == "" {
		return ErrEmptyTitle
	}
	if utf8.RuneCountInString(title) > TitleMaxLength {
		return ErrTitleTooLong
	}
	return nil
}

// TaskPatch is a partial update. Nil fields are left unchanged.
type TaskPatch struct {
	Title     *string
	Completed *bool
}

// Validate checks the fields that are present.
func (p TaskPatch) Validate() error {
	if p.Title != nil {
		return validateTitle(*p.Title)
	}
	return nil
}

// IsEmpty reports whether the patch changes nothing.
func (p TaskPatch) IsEmpty() bool {
	return p.Title == nil && p.Completed == nil
}

// Apply copies the present fields onto t.
func (p TaskPatch) Apply(t *Task) {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Completed != nil {
		t.Completed = *p.Completed
	}
}

// TaskQuery selects a window of an owner's tasks.
type TaskQuery struct {
	// Search filters by case-insensitive substring match on the title.
	Search string
	Page   int
	Limit  int
}

// Normalize fills in defaults and clamps the limit. Stores call it before
// computing the window.
func (q TaskQuery) Normalize() TaskQuery {
	if q.Page < 1 {
		q.Page = DefaultPage
	}
	if q.Limit < 1 {
		q.Limit = DefaultLimit
	}
	if q.Limit > MaxLimit {
		q.Limit = MaxLimit
	}
	return q
}

// Offset is the number of matching rows skipped before the window. It
// saturates at math.MaxInt instead of overflowing for very large pages.
func (q TaskQuery) Offset() int {
	if q.Page <= 1 || q.Limit <= 0 {
		return 0
	}
	if q.Page-1 > math.MaxInt/q.Limit {
		return math.MaxInt
	}
	return (q.Page - 1) * q.Limit
}

// PastEnd reports whether the window starts beyond total matches, in which
// case the page is empty without querying rows.
func (q TaskQuery) PastEnd(total int) bool {
	offset := q.Offset()
	return offset > 0 && offset >= total
}

// TaskPage is one window of a listing plus the total number of matches.
type TaskPage struct {
	Tasks []*Task
	Total int
}
