package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"

	"github.com/customeros/mailbridge/config"
	"github.com/customeros/mailbridge/dto"
	"github.com/customeros/mailbridge/interfaces"
	er "github.com/customeros/mailbridge/internal/errors"
	"github.com/customeros/mailbridge/internal/logger"
	"github.com/customeros/mailbridge/internal/models"
	"github.com/customeros/mailbridge/internal/tracing"
)

const deliveryPath = "/api/data/mail"

type webhookService struct {
	cfg *config.WebhookConfig
	log logger.Logger
}

func NewWebhookService(log logger.Logger, cfg *config.WebhookConfig) interfaces.WebhookService {
	return &webhookService{
		cfg: cfg,
		log: log,
	}
}

// DeliverMail POSTs the mail envelope to the delivery endpoint. Anything
// other than a 2xx response is a DeliveryError; the message then stays
// unseen and is picked up again on a later cycle.
func (s *webhookService) DeliverMail(ctx context.Context, record *models.MessageRecord) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "webhookService.DeliverMail")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.TagMessageUid(span, record.UID)

	payload, err := json.Marshal(dto.NewMailPayload(record))
	if err != nil {
		tracing.TraceErr(span, err)
		return er.NewDeliveryError(record.UID, 0, errors.Wrap(err, "failed to marshal payload"))
	}

	url := strings.TrimSuffix(s.cfg.BaseURL, "/") + deliveryPath
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(payload))
	if err != nil {
		tracing.TraceErr(span, err)
		return er.NewDeliveryError(record.UID, 0, errors.Wrap(err, "failed to create request"))
	}

	req.Header.Set("Content-Type", "application/json")
	if s.cfg.APIKey != "" {
		req.Header.Set("X-Api-Key", s.cfg.APIKey)
	}
	tracing.InjectSpanContextIntoHTTPRequest(req, span)

	client := &http.Client{
		Timeout: s.cfg.Timeout,
	}
	// Execute the request
	resp, err := client.Do(req)
	if err != nil {
		deliveryErr := er.NewDeliveryError(record.UID, 0, errors.Wrap(err, "request failed"))
		tracing.TraceErr(span, deliveryErr)
		return deliveryErr
	}
	defer resp.Body.Close()

	// Read response body
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		deliveryErr := er.NewDeliveryError(record.UID, resp.StatusCode, errors.Wrap(err, "unable to read response body"))
		tracing.TraceErr(span, deliveryErr)
		return deliveryErr
	}

	// Check status code
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		deliveryErr := er.NewDeliveryError(record.UID, resp.StatusCode, fmt.Errorf("request failed with status code %d: %s", resp.StatusCode, string(body)))
		s.log.Warnf("webhook rejected message uid %d with status %d", record.UID, resp.StatusCode)
		tracing.TraceErr(span, deliveryErr)
		return deliveryErr
	}

	span.SetTag("response.status", resp.StatusCode)
	return nil
}
