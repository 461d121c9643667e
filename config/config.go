package config

import "time"

const (
	OnMessageErrorSkip  = "skip"
	OnMessageErrorAbort = "abort"
)

type AppConfig struct {
	APIPort string `env:"PORT" envDefault:"11011"`
	APIKey  string `env:"MAILBRIDGE_API_KEY,required"`
}

type IMAPConfig struct {
	Host     string `env:"IMAP_HOST,required"`
	Port     int    `env:"IMAP_PORT" envDefault:"993"`
	Username string `env:"IMAP_USERNAME,required"`
	Password string `env:"IMAP_PASSWORD,required"`
	TLS      bool   `env:"IMAP_TLS" envDefault:"true"`
	Mailbox  string `env:"IMAP_MAILBOX" envDefault:"INBOX"`
}

type WebhookConfig struct {
	BaseURL string        `env:"WEBHOOK_BASE_URL,required"`
	APIKey  string        `env:"WEBHOOK_API_KEY"`
	Timeout time.Duration `env:"WEBHOOK_TIMEOUT" envDefault:"30s"`
}

type BridgeConfig struct {
	PollInterval   time.Duration `env:"BRIDGE_POLL_INTERVAL" envDefault:"60s"`
	RetryBackoff   time.Duration `env:"BRIDGE_RETRY_BACKOFF" envDefault:"30s"`
	OnMessageError string        `env:"BRIDGE_ON_MESSAGE_ERROR" envDefault:"skip"`
	FetchBatchSize uint32        `env:"BRIDGE_FETCH_BATCH_SIZE" envDefault:"50"`
}
