package controllers

import (
	"net/http"

	"github.com/aimagehq/aimage-backend/api/responses"
	"github.com/aimagehq/aimage-backend/api/validators"
	"github.com/aimagehq/aimage-backend/internal/generation"
	"github.com/aimagehq/aimage-backend/internal/projects"
	"github.com/aimagehq/aimage-backend/pkg/enums"
	pkgerrors "github.com/aimagehq/aimage-backend/pkg/errors"
	"github.com/aimagehq/aimage-backend/pkg/logger"
)

type generateRequest struct {
	Title           string  `json:"title" validate:"required,max=200"`
	Description     *string `json:"description,omitempty"`
	Mode            string  `json:"mode" validate:"required"`
	DurationSeconds int     `json:"duration_seconds" validate:"required,gt=0"`
}

type generateResponse struct {
	Project *projects.ProjectDTO `json:"project"`
	Task    *generation.TaskDTO  `json:"task"`
}

// Generate prices the request, deducts credits and dispatches the job to
// the worker queue in one call.
func Generate(svc generation.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "generation service unavailable"))
			return
		}

		userID, ok := requireUser(w, r, logg)
		if !ok {
			return
		}

		var body generateRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		mode, err := enums.ParseGenerationMode(body.Mode)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid generation mode"))
			return
		}

		result, err := svc.Generate(r.Context(), generation.GenerateInput{
			UserID:          userID,
			Title:           validators.SanitizeString(body.Title, 200),
			Description:     body.Description,
			Mode:            mode,
			DurationSeconds: body.DurationSeconds,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusAccepted, generateResponse{
			Project: projects.FromModel(result.Project),
			Task:    generation.FromTaskModel(result.Task),
		})
	}
}

// GenerationTaskDetail reports the task behind a project for polling clients.
func GenerationTaskDetail(svc generation.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "generation service unavailable"))
			return
		}

		userID, ok := requireUser(w, r, logg)
		if !ok {
			return
		}

		projectID, ok := projectIDParam(w, r, logg)
		if !ok {
			return
		}

		task, err := svc.TaskForProject(r.Context(), userID, projectID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, generation.FromTaskModel(task))
	}
}
