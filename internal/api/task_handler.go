package api

import (
	"fmt"
	"net/http"

	"github.com/phrazzld/tasks-api/internal/api/shared"
	"github.com/phrazzld/tasks-api/internal/api/validate"
	"github.com/phrazzld/tasks-api/internal/domain"
	"github.com/phrazzld/tasks-api/internal/service"
)

// taskHandler serves the task resource. Each method reads the values bound
// by earlier pipeline steps, makes one TaskAccess call and writes the envelope.
type taskHandler struct{}

func taskAccess(r *http.Request) (service.TaskAccess, error) {
	access, ok := service.TaskAccessFromContext(r.Context())
	if !ok {
		return nil, service.ErrNoIdentity
	}
	return access, nil
}

func (h *taskHandler) list(w http.ResponseWriter, r *http.Request) error {
	access, err := taskAccess(r)
	if err != nil {
		return err
	}
	q, err := validate.QueryValue[listTasksQuery](r.Context())
	if err != nil {
		return err
	}

	page, err := access.List(r.Context(), domain.TaskQuery{
		Search: q.Search,
		Page:   q.Page,
		Limit:  q.Limit,
	})
	if err != nil {
		return err
	}

	tasks := make([]TaskResponse, 0, len(page.Tasks))
	for _, t := range page.Tasks {
		tasks = append(tasks, taskToResponse(t))
	}
	shared.RespondWithSuccess(w, r, http.StatusOK, TaskListData{Tasks: tasks}, shared.Meta{
		"page":  q.Page,
		"limit": q.Limit,
		"total": page.Total,
	})
	return nil
}

func (h *taskHandler) get(w http.ResponseWriter, r *http.Request) error {
	access, err := taskAccess(r)
	if err != nil {
		return err
	}
	path, err := validate.PathValue[taskIDPath](r.Context())
	if err != nil {
		return err
	}

	task, err := access.Get(r.Context(), path.ID)
	if err != nil {
		return err
	}
	shared.RespondWithSuccess(w, r, http.StatusOK, TaskData{Task: taskToResponse(task)}, nil)
	return nil
}

func (h *taskHandler) create(w http.ResponseWriter, r *http.Request) error {
	access, err := taskAccess(r)
	if err != nil {
		return err
	}
	body, err := validate.BodyValue[createTaskBody](r.Context())
	if err != nil {
		return err
	}

	completed := body.Completed != nil && *body.Completed
	task, err := access.Create(r.Context(), body.Title, completed)
	if err != nil {
		return err
	}
	shared.RespondWithSuccess(w, r, http.StatusCreated, TaskData{Task: taskToResponse(task)}, nil)
	return nil
}

func (h *taskHandler) update(w http.ResponseWriter, r *http.Request) error {
	access, err := taskAccess(r)
	if err != nil {
		return err
	}
	path, err := validate.PathValue[taskIDPath](r.Context())
	if err != nil {
		return err
	}
	body, err := validate.BodyValue[updateTaskBody](r.Context())
	if err != nil {
		return err
	}

	task, err := access.Update(r.Context(), path.ID, body.patch())
	if err != nil {
		return err
	}
	shared.RespondWithSuccess(w, r, http.StatusOK, TaskData{Task: taskToResponse(task)}, nil)
	return nil
}

func (h *taskHandler) delete(w http.ResponseWriter, r *http.Request) error {
	access, err := taskAccess(r)
	if err != nil {
		return err
	}
	path, err := validate.PathValue[taskIDPath](r.Context())
	if err != nil {
		return err
	}

	if err := access.Delete(r.Context(), path.ID); err != nil {
		return err
	}
	shared.RespondWithSuccess(w, r, http.StatusOK, MessageData{
		Message: fmt.Sprintf("Task with id %d deleted", path.ID),
	}, nil)
	return nil
}
