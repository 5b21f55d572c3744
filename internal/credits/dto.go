package credits

import (
	"time"

	"github.com/google/uuid"

	"github.com/aimagehq/aimage-backend/pkg/db/models"
	"github.com/aimagehq/aimage-backend/pkg/enums"
)

// TransactionDTO is the transport shape of one ledger entry.
type TransactionDTO struct {
	ID               uuid.UUID             `json:"id"`
	Amount           int                   `json:"amount"`
	Type             enums.TransactionType `json:"type"`
	Description      string                `json:"description"`
	RelatedProjectID *uuid.UUID            `json:"related_project_id,omitempty"`
	BalanceAfter     int                   `json:"balance_after"`
	CreatedAt        time.Time             `json:"created_at"`
}

func FromTransactionModel(tx models.CreditTransaction) TransactionDTO {
	return TransactionDTO{
		ID:               tx.ID,
		Amount:           tx.Amount,
		Type:             tx.Type,
		Description:      tx.Description,
		RelatedProjectID: tx.RelatedProjectID,
		BalanceAfter:     tx.BalanceAfter,
		CreatedAt:        tx.CreatedAt,
	}
}

func FromTransactionModels(txs []models.CreditTransaction) []TransactionDTO {
	out := make([]TransactionDTO, 0, len(txs))
	for _, tx := range txs {
		out = append(out, FromTransactionModel(tx))
	}
	return out
}
