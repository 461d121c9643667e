package imap

import (
	"context"

	"github.com/opentracing/opentracing-go"

	"github.com/customeros/mailbridge/config"
	"github.com/customeros/mailbridge/interfaces"
	"github.com/customeros/mailbridge/internal/logger"
	"github.com/customeros/mailbridge/internal/tracing"
)

// IMAPService builds one authenticated mail session per forward cycle. The
// session owns the underlying connection exclusively until Close.
type IMAPService struct {
	cfg            *config.IMAPConfig
	log            logger.Logger
	fetchBatchSize uint32
}

func NewIMAPService(log logger.Logger, cfg *config.IMAPConfig, fetchBatchSize uint32) interfaces.SessionFactory {
	if fetchBatchSize == 0 {
		fetchBatchSize = 50
	}
	return &IMAPService{
		cfg:            cfg,
		log:            log,
		fetchBatchSize: fetchBatchSize,
	}
}

func (s *IMAPService) NewSession(ctx context.Context) (interfaces.MailSession, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "IMAPService.NewSession")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.SetTag("server", s.cfg.Host)
	span.SetTag("port", s.cfg.Port)
	span.SetTag("tls", s.cfg.TLS)

	c, err := s.connect(ctx, span)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	return &mailSession{
		cfg:            s.cfg,
		log:            s.log,
		client:         c,
		fetchBatchSize: s.fetchBatchSize,
	}, nil
}
