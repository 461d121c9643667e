package interfaces

import (
	"github.com/customeros/mailbridge/internal/models"
)

// EmailProcessor turns a raw fetched message into the normalized record
// handed to the forwarder.
type EmailProcessor interface {
	BuildMessageRecord(raw *models.RawMessage) (*models.MessageRecord, error)
}
