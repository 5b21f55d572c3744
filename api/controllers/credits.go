package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/aimagehq/aimage-backend/api/middleware"
	"github.com/aimagehq/aimage-backend/api/responses"
	"github.com/aimagehq/aimage-backend/api/validators"
	"github.com/aimagehq/aimage-backend/internal/credits"
	"github.com/aimagehq/aimage-backend/pkg/enums"
	pkgerrors "github.com/aimagehq/aimage-backend/pkg/errors"
	"github.com/aimagehq/aimage-backend/pkg/logger"
)

type purchaseRequest struct {
	PackageID     string `json:"package_id" validate:"required"`
	PaymentMethod string `json:"payment_method" validate:"required"`
}

type refundRequest struct {
	Amount      int     `json:"amount" validate:"required,gt=0"`
	Description string  `json:"description" validate:"required"`
	ProjectID   *string `json:"project_id,omitempty"`
}

// CreditPackages lists the purchasable bundles. Public, no auth required.
func CreditPackages() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, map[string]any{"packages": credits.Packages()})
	}
}

func CreditBalance(svc credits.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireUser(w, r, logg)
		if !ok {
			return
		}

		balance, err := svc.Balance(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]int{"balance": balance})
	}
}

func CreditTransactions(svc credits.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireUser(w, r, logg)
		if !ok {
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", 50, 1, 100)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		offset, err := validators.ParseQueryInt(r, "offset", 0, 0, 100000)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		txs, err := svc.ListTransactions(r.Context(), userID, limit, offset)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{"transactions": credits.FromTransactionModels(txs)})
	}
}

func CreditPurchase(svc credits.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireUser(w, r, logg)
		if !ok {
			return
		}

		var body purchaseRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		method, err := enums.ParsePaymentMethod(body.PaymentMethod)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment method"))
			return
		}

		result, err := svc.Purchase(r.Context(), credits.PurchaseInput{
			UserID:        userID,
			PackageID:     body.PackageID,
			PaymentMethod: method,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

func CreditRefund(svc credits.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireUser(w, r, logg)
		if !ok {
			return
		}

		var body refundRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var projectID *uuid.UUID
		if body.ProjectID != nil && *body.ProjectID != "" {
			parsed, err := uuid.Parse(*body.ProjectID)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid project id"))
				return
			}
			projectID = &parsed
		}

		result, err := svc.Refund(r.Context(), credits.MutationInput{
			UserID:           userID,
			Amount:           body.Amount,
			Description:      body.Description,
			RelatedProjectID: projectID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]int{
			"credits_refunded": body.Amount,
			"new_balance":      result.NewBalance,
		})
	}
}

func requireUser(w http.ResponseWriter, r *http.Request, logg *logger.Logger) (uuid.UUID, bool) {
	userID := middleware.UserUUIDFromContext(r.Context())
	if userID == uuid.Nil {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
		return uuid.Nil, false
	}
	return userID, true
}
