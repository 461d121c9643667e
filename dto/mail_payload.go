package dto

import (
	"github.com/customeros/mailbridge/internal/models"
)

const MailPayloadType = "mail"

// MailPayload is the envelope POSTed to the delivery endpoint. The wire
// shape is fixed by the downstream consumer: name and from are null when
// the message carries no subject or from header.
type MailPayload struct {
	Type string          `json:"type"`
	Data MailPayloadData `json:"data"`
}

type MailPayloadData struct {
	Name *string          `json:"name"`
	From *string          `json:"from"`
	Body string           `json:"body"`
	Head models.HeaderMap `json:"head"`
}

func NewMailPayload(record *models.MessageRecord) MailPayload {
	return MailPayload{
		Type: MailPayloadType,
		Data: MailPayloadData{
			Name: record.Subject(),
			From: record.From(),
			Body: record.Body,
			Head: record.Headers,
		},
	}
}
