package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/aimagehq/aimage-backend/api/responses"
	"github.com/aimagehq/aimage-backend/api/validators"
	"github.com/aimagehq/aimage-backend/internal/digitalhumans"
	"github.com/aimagehq/aimage-backend/internal/generation"
	"github.com/aimagehq/aimage-backend/internal/projects"
	"github.com/aimagehq/aimage-backend/pkg/enums"
	pkgerrors "github.com/aimagehq/aimage-backend/pkg/errors"
	"github.com/aimagehq/aimage-backend/pkg/logger"
)

type digitalHumanRequest struct {
	Name             string         `json:"name" validate:"required,max=100"`
	AvatarURL        *string        `json:"avatar_url,omitempty"`
	DigitalHumanType string         `json:"digital_human_type" validate:"required"`
	VoiceConfig      map[string]any `json:"voice_config,omitempty"`
	AppearanceConfig map[string]any `json:"appearance_config,omitempty"`
}

type digitalHumanVideoRequest struct {
	Text     string `json:"text" validate:"required,max=1000"`
	Duration int    `json:"duration,omitempty"`
}

func DigitalHumanCreate(svc digitalhumans.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireUser(w, r, logg)
		if !ok {
			return
		}

		body, kind, ok := decodeDigitalHuman(w, r, logg)
		if !ok {
			return
		}

		human, err := svc.Create(r.Context(), digitalhumans.CreateInput{
			UserID:           userID,
			Name:             validators.SanitizeString(body.Name, 100),
			AvatarURL:        body.AvatarURL,
			Kind:             kind,
			VoiceConfig:      body.VoiceConfig,
			AppearanceConfig: body.AppearanceConfig,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, digitalhumans.FromModel(human))
	}
}

func DigitalHumanList(svc digitalhumans.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireUser(w, r, logg)
		if !ok {
			return
		}

		humans, err := svc.List(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{"digital_humans": digitalhumans.FromModels(humans)})
	}
}

func DigitalHumanDetail(svc digitalhumans.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireUser(w, r, logg)
		if !ok {
			return
		}

		humanID, ok := digitalHumanIDParam(w, r, logg)
		if !ok {
			return
		}

		human, err := svc.Get(r.Context(), userID, humanID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, digitalhumans.FromModel(human))
	}
}

func DigitalHumanUpdate(svc digitalhumans.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireUser(w, r, logg)
		if !ok {
			return
		}

		humanID, ok := digitalHumanIDParam(w, r, logg)
		if !ok {
			return
		}

		body, kind, ok := decodeDigitalHuman(w, r, logg)
		if !ok {
			return
		}

		human, err := svc.Update(r.Context(), userID, humanID, digitalhumans.UpdateInput{
			Name:             validators.SanitizeString(body.Name, 100),
			AvatarURL:        body.AvatarURL,
			Kind:             kind,
			VoiceConfig:      body.VoiceConfig,
			AppearanceConfig: body.AppearanceConfig,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, digitalhumans.FromModel(human))
	}
}

func DigitalHumanDelete(svc digitalhumans.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireUser(w, r, logg)
		if !ok {
			return
		}

		humanID, ok := digitalHumanIDParam(w, r, logg)
		if !ok {
			return
		}

		if err := svc.Delete(r.Context(), userID, humanID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

// DigitalHumanGenerateVideo charges the flat cost and dispatches the render
// to the worker queue in one call.
func DigitalHumanGenerateVideo(svc digitalhumans.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireUser(w, r, logg)
		if !ok {
			return
		}

		humanID, ok := digitalHumanIDParam(w, r, logg)
		if !ok {
			return
		}

		var body digitalHumanVideoRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.GenerateVideo(r.Context(), digitalhumans.GenerateVideoInput{
			UserID:          userID,
			DigitalHumanID:  humanID,
			Text:            body.Text,
			DurationSeconds: body.Duration,
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

func decodeDigitalHuman(w http.ResponseWriter, r *http.Request, logg *logger.Logger) (digitalHumanRequest, enums.DigitalHumanKind, bool) {
	var body digitalHumanRequest
	if err := validators.DecodeJSONBody(r, &body); err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return body, "", false
	}
	kind, err := enums.ParseDigitalHumanKind(body.DigitalHumanType)
	if err != nil {
		responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid digital human type"))
		return body, "", false
	}
	return body, kind, true
}

func digitalHumanIDParam(w http.ResponseWriter, r *http.Request, logg *logger.Logger) (uuid.UUID, bool) {
	raw := chi.URLParam(r, "digitalHumanId")
	id, err := uuid.Parse(raw)
	if err != nil {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid digital human id"))
		return uuid.Nil, false
	}
	return id, true
}
