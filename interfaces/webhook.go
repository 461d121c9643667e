package interfaces

import (
	"context"

	"github.com/customeros/mailbridge/internal/models"
)

type WebhookService interface {
	DeliverMail(ctx context.Context, record *models.MessageRecord) error
}
