package api

import (
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/tasks-api/internal/domain"
)

// taskIDPath is the {id} path parameter of the task item routes.
type taskIDPath struct {
	ID int64 `mapstructure:"id" validate:"gte=0" example:"1"`
}

// listTasksQuery holds the listing filters and window.
type listTasksQuery struct {
	Search string `mapstructure:"search" validate:"max=255"        example:"milk"`
	Page   int    `mapstructure:"page"   validate:"gte=1"          example:"1"`
	Limit  int    `mapstructure:"limit"  validate:"gte=1,lte=100"  example:"10"`
}

func (q *listTasksQuery) SetDefaults() {
	q.Page = domain.DefaultPage
	q.Limit = domain.DefaultLimit
}

// createTaskBody is the body of POST /tasks.
type createTaskBody struct {
	Title     string `mapstructure:"title"     validate:"required,min=1,max=255" example:"New task"`
	Completed *bool  `mapstructure:"completed"                                   example:"false"`
}

func (b *createTaskBody) SetDefaults() {
	completed := false
	b.Completed = &completed
}

// updateTaskBody is the body of PUT /tasks/{id}. Absent fields are left unchanged.
type updateTaskBody struct {
	Title     *string `mapstructure:"title"     validate:"omitempty,min=1,max=255" example:"Updated task"`
	Completed *bool   `mapstructure:"completed"                                    example:"true"`
}

func (b updateTaskBody) patch() domain.TaskPatch {
	return domain.TaskPatch{Title: b.Title, Completed: b.Completed}
}

// signUpBody is the body of POST /auth/signup.
type signUpBody struct {
	Email    string `mapstructure:"email"    validate:"required,email"          example:"user@example.com"`
	Password string `mapstructure:"password" validate:"required,strongpassword" example:"Sup3r-secret!"`
}

// tokenBody is the body of POST /auth/token.
type tokenBody struct {
	Email    string `mapstructure:"email"    validate:"required" example:"user@example.com"`
	Password string `mapstructure:"password" validate:"required" example:"Sup3r-secret!"`
}

// TaskResponse is the wire form of a task. The owner is never exposed.
type TaskResponse struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Completed bool      `json:"completed"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func taskToResponse(t *domain.Task) TaskResponse {
	return TaskResponse{
		ID:        t.ID,
		Title:     t.Title,
		Completed: t.Completed,
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
	}
}

// TaskListData is the data member of a list response.
type TaskListData struct {
	Tasks []TaskResponse `json:"tasks"`
}

// TaskData is the data member of single-task responses.
type TaskData struct {
	Task TaskResponse `json:"task"`
}

// MessageData is the data member of responses that only carry a message.
type MessageData struct {
	Message string `json:"message"`
}

// SignUpData is returned by POST /auth/signup.
type SignUpData struct {
	UserID uuid.UUID `json:"user_id"`
	Email  string    `json:"email"`
}

// UserData identifies the signed-in user.
type UserData struct {
	ID    uuid.UUID `json:"id"`
	Email string    `json:"email"`
}

// TokenData is returned by POST /auth/token.
type TokenData struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      UserData  `json:"user"`
}
