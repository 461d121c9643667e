package services

import (
	"github.com/customeros/mailbridge/config"
	"github.com/customeros/mailbridge/interfaces"
	"github.com/customeros/mailbridge/internal/logger"
	"github.com/customeros/mailbridge/services/bridge"
	"github.com/customeros/mailbridge/services/email_processor"
	"github.com/customeros/mailbridge/services/imap"
	"github.com/customeros/mailbridge/services/webhook"
)

type Services struct {
	IMAPService    interfaces.SessionFactory
	EmailProcessor interfaces.EmailProcessor
	WebhookService interfaces.WebhookService
	BridgeService  interfaces.BridgeService
}

func InitServices(cfg *config.Config, log logger.Logger) (*Services, error) {
	imapService := imap.NewIMAPService(log, cfg.IMAPConfig, cfg.BridgeConfig.FetchBatchSize)
	processor := email_processor.NewProcessor(log)
	webhookService := webhook.NewWebhookService(log, cfg.WebhookConfig)

	services := Services{
		IMAPService:    imapService,
		EmailProcessor: processor,
		WebhookService: webhookService,
		BridgeService: bridge.NewBridgeService(
			log,
			cfg.BridgeConfig,
			cfg.IMAPConfig,
			imapService,
			processor,
			webhookService,
		),
	}

	return &services, nil
}
