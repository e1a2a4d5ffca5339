package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/hackclub/stonepheus/internal/relay"
	apperrors "github.com/hackclub/stonepheus/pkg/util"
)

// ProjectsHandler exposes showcase project lookups for debugging unfurls.
type ProjectsHandler struct {
	projects relay.ProjectSource
}

// NewProjectsHandler returns a new handler instance.
func NewProjectsHandler(projects relay.ProjectSource) *ProjectsHandler {
	return &ProjectsHandler{projects: projects}
}

// Get resolves a numeric project id to its preview metadata.
func (h *ProjectsHandler) Get(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil || id < 0 {
		return apperrors.NewValidationError("project id must be a non-negative integer",
			map[string]any{"id": c.Params("id")})
	}

	project, err := h.projects.GetProjectInfo(c.UserContext(), id)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	if project == nil {
		return apperrors.NewNotFound("project", map[string]any{"id": id})
	}
	return c.JSON(fiber.Map{
		"title":          project.Title,
		"week":           project.Week,
		"description":    project.Description,
		"demo_url":       project.DemoURL,
		"repo_url":       project.RepoURL,
		"screenshot_url": project.ScreenshotURL,
		"time_text":      project.TimeText,
	})
}
