package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"taskhub/internal/service/project"
)

const projectNotFound = "Project not found."

type ProjectHandler struct {
	projects *project.Service
	logger   *zap.Logger
}

func NewProjectHandler(projects *project.Service, logger *zap.Logger) *ProjectHandler {
	return &ProjectHandler{projects: projects, logger: logger}
}

// Index handles GET /projects
func (h *ProjectHandler) Index(c *gin.Context) {
	projects, err := h.projects.List(c.Request.Context(), Principal(c))
	if err != nil {
		WriteError(c, h.logger, err, "Failed to fetch projects.")
		return
	}
	success(c, http.StatusOK, gin.H{"projects": projects})
}

// Store handles POST /projects
func (h *ProjectHandler) Store(c *gin.Context) {
	var in project.CreateInput
	if err := bindJSON(c, &in); err != nil {
		WriteError(c, h.logger, err, "Failed to create project.")
		return
	}

	p, err := h.projects.Create(c.Request.Context(), Principal(c), in)
	if err != nil {
		WriteError(c, h.logger, err, "Failed to create project.")
		return
	}
	success(c, http.StatusCreated, gin.H{
		"message": "Project created successfully",
		"project": p,
	})
}

// Show handles GET /projects/:id
func (h *ProjectHandler) Show(c *gin.Context) {
	id, ok := parseID(c, projectNotFound)
	if !ok {
		return
	}

	p, err := h.projects.Get(c.Request.Context(), Principal(c), id)
	if err != nil {
		WriteError(c, h.logger, err, "Failed to fetch project.")
		return
	}
	success(c, http.StatusOK, gin.H{"project": p})
}

// Update handles PUT/PATCH /projects/:id
func (h *ProjectHandler) Update(c *gin.Context) {
	id, ok := parseID(c, projectNotFound)
	if !ok {
		return
	}

	var in project.UpdateInput
	if err := bindJSON(c, &in); err != nil {
		WriteError(c, h.logger, err, "Failed to update project.")
		return
	}

	p, err := h.projects.Update(c.Request.Context(), Principal(c), id, in)
	if err != nil {
		WriteError(c, h.logger, err, "Failed to update project.")
		return
	}
	success(c, http.StatusOK, gin.H{
		"message": "Project updated",
		"project": p,
	})
}

// Destroy handles DELETE /projects/:id
func (h *ProjectHandler) Destroy(c *gin.Context) {
	id, ok := parseID(c, projectNotFound)
	if !ok {
		return
	}

	if err := h.projects.Delete(c.Request.Context(), Principal(c), id); err != nil {
		WriteError(c, h.logger, err, "Failed to delete project.")
		return
	}
	success(c, http.StatusOK, gin.H{"message": "Project deleted"})
}
