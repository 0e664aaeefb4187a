package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"taskhub/internal/model"
	"taskhub/internal/service/task"
)

const taskNotFound = "Task not found."

type TaskHandler struct {
	tasks  *task.Service
	logger *zap.Logger
}

func NewTaskHandler(tasks *task.Service, logger *zap.Logger) *TaskHandler {
	return &TaskHandler{tasks: tasks, logger: logger}
}

// Index handles GET /tasks?status=&priority=
func (h *TaskHandler) Index(c *gin.Context) {
	filter := model.TaskFilter{
		Status:   c.Query("status"),
		Priority: c.Query("priority"),
	}

	tasks, err := h.tasks.List(c.Request.Context(), Principal(c), filter)
	if err != nil {
		WriteError(c, h.logger, err, "Failed to fetch tasks.")
		return
	}
	success(c, http.StatusOK, gin.H{"tasks": tasks})
}

// Store handles POST /tasks
func (h *TaskHandler) Store(c *gin.Context) {
	var in task.CreateInput
	if err := bindJSON(c, &in); err != nil {
		WriteError(c, h.logger, err, "Failed to create task.")
		return
	}

	t, err := h.tasks.Create(c.Request.Context(), Principal(c), in)
	if err != nil {
		WriteError(c, h.logger, err, "Failed to create task.")
		return
	}
	success(c, http.StatusCreated, gin.H{
		"message": "Task created successfully",
		"task":    t,
	})
}

// Show handles GET /tasks/:id
func (h *TaskHandler) Show(c *gin.Context) {
	id, ok := parseID(c, taskNotFound)
	if !ok {
		return
	}

	t, err := h.tasks.Get(c.Request.Context(), Principal(c), id)
	if err != nil {
		WriteError(c, h.logger, err, "Failed to fetch task.")
		return
	}
	success(c, http.StatusOK, gin.H{"task": t})
}

// Update handles PUT/PATCH /tasks/:id
func (h *TaskHandler) Update(c *gin.Context) {
	id, ok := parseID(c, taskNotFound)
	if !ok {
		return
	}

	var in task.UpdateInput
	if err := bindJSON(c, &in); err != nil {
		WriteError(c, h.logger, err, "Failed to update task.")
		return
	}

	t, err := h.tasks.Update(c.Request.Context(), Principal(c), id, in)
	if err != nil {
		WriteError(c, h.logger, err, "Failed to update task.")
		return
	}
	success(c, http.StatusOK, gin.H{
		"message": "Task updated",
		"task":    t,
	})
}

// Destroy handles DELETE /tasks/:id
func (h *TaskHandler) Destroy(c *gin.Context) {
	id, ok := parseID(c, taskNotFound)
	if !ok {
		return
	}

	if err := h.tasks.Delete(c.Request.Context(), Principal(c), id); err != nil {
		WriteError(c, h.logger, err, "Failed to delete task.")
		return
	}
	success(c, http.StatusOK, gin.H{"message": "Task deleted"})
}
