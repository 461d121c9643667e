package email_processor

import (
	"github.com/pkg/errors"

	"github.com/customeros/mailbridge/interfaces"
	er "github.com/customeros/mailbridge/internal/errors"
	"github.com/customeros/mailbridge/internal/logger"
	"github.com/customeros/mailbridge/internal/models"
)

// Processor turns one raw fetched message into the normalized record the
// forwarder consumes. A message it cannot parse fails alone; the caller
// decides whether to skip it or abort the cycle.
type Processor struct {
	log logger.Logger
}

func NewProcessor(log logger.Logger) interfaces.EmailProcessor {
	return &Processor{log: log}
}

func (p *Processor) BuildMessageRecord(raw *models.RawMessage) (*models.MessageRecord, error) {
	if raw == nil {
		return nil, er.NewParseError(0, errors.New("nil message"))
	}
	if len(raw.Raw) == 0 {
		return nil, er.NewParseError(raw.UID, errors.New("empty message payload"))
	}

	headers, err := ParseHeaders(raw.Raw)
	if err != nil {
		return nil, er.NewParseError(raw.UID, err)
	}

	return &models.MessageRecord{
		SeqNum:     raw.SeqNum,
		UID:        raw.UID,
		Headers:    headers,
		Body:       string(raw.Raw),
		Attributes: raw.Attributes,
	}, nil
}
