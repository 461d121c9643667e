package config

import (
	"log"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"

	"github.com/customeros/mailbridge/internal/logger"
	"github.com/customeros/mailbridge/internal/tracing"
	"github.com/customeros/mailbridge/internal/utils"
)

type Config struct {
	AppConfig     *AppConfig
	IMAPConfig    *IMAPConfig
	WebhookConfig *WebhookConfig
	BridgeConfig  *BridgeConfig
	Logger        *logger.Config
	Tracing       *tracing.JaegerConfig
}

func InitConfig(envFiles ...string) (*Config, error) {
	config := &Config{
		AppConfig:     &AppConfig{},
		IMAPConfig:    &IMAPConfig{},
		WebhookConfig: &WebhookConfig{},
		BridgeConfig:  &BridgeConfig{},
		Logger:        &logger.Config{},
		Tracing:       &tracing.JaegerConfig{},
	}

	err := godotenv.Load(envFiles...)
	if err != nil {
		log.Print("Unable to load .env file")
	}

	err = env.Parse(config)
	if err != nil {
		log.Fatalf("Error loading mailbridge config: %v", err)
	}

	if !utils.IsStringInSlice(config.BridgeConfig.OnMessageError, []string{OnMessageErrorSkip, OnMessageErrorAbort}) {
		return nil, errors.Errorf("invalid BRIDGE_ON_MESSAGE_ERROR value: %s", config.BridgeConfig.OnMessageError)
	}

	return config, nil
}
