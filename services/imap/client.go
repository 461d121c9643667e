package imap

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"time"

	"github.com/emersion/go-imap/client"
	"github.com/opentracing/opentracing-go"

	"github.com/customeros/mailbridge/config"
	er "github.com/customeros/mailbridge/internal/errors"
	"github.com/customeros/mailbridge/internal/logger"
	"github.com/customeros/mailbridge/internal/tracing"
)

// mailSession wraps one live IMAP connection. It is handed to exactly one
// cycle and torn down with Close on every exit path.
type mailSession struct {
	cfg            *config.IMAPConfig
	log            logger.Logger
	client         *client.Client
	fetchBatchSize uint32
	mailbox        string
}

// connect dials the server, checks capabilities and logs in. Any failure
// closes the half-open connection before returning.
func (s *IMAPService) connect(ctx context.Context, span opentracing.Span) (*client.Client, error) {
	serverAddr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)

	// Set up connection with timeout
	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	var c *client.Client
	var err error

	if s.cfg.TLS {
		tlsConfig := &tls.Config{
			ServerName: s.cfg.Host,
		}
		c, err = client.DialWithDialerTLS(dialer, serverAddr, tlsConfig)
	} else {
		c, err = client.DialWithDialer(dialer, serverAddr)
	}

	if err != nil {
		return nil, er.NewConnectionError(fmt.Errorf("failed to connect to %s: %w", serverAddr, err))
	}

	caps, err := c.Capability()
	if err != nil {
		// Close the connection before returning
		c.Logout()
		return nil, er.NewConnectionError(fmt.Errorf("failed to get capabilities: %w", err))
	}
	s.log.Debugf("[%s] server capabilities: %v", serverAddr, caps)

	loginSpan := opentracing.StartSpan(
		"IMAPService.login",
		opentracing.ChildOf(span.Context()),
	)
	loginSpan.SetTag("username", s.cfg.Username)

	// Set client timeout for login
	c.Timeout = 30 * time.Second

	err = c.Login(s.cfg.Username, s.cfg.Password)
	if err != nil {
		c.Logout()

		loginSpan.SetTag("error", true)
		tracing.TraceErr(loginSpan, err)
		loginSpan.Finish()

		return nil, er.NewConnectionError(fmt.Errorf("failed to login as %s: %w", s.cfg.Username, err))
	}

	loginSpan.SetTag("success", true)
	loginSpan.Finish()

	// Reset client timeout to default
	c.Timeout = 0

	s.log.Infof("connected and logged in to %s as %s", serverAddr, s.cfg.Username)
	return c, nil
}

// Close logs the session out, bounded so a dead server cannot hang the
// cycle teardown.
func (s *mailSession) Close(ctx context.Context) {
	span := opentracing.StartSpan("mailSession.Close")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	if s.client == nil {
		return
	}

	logoutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s.client.Timeout = 5 * time.Second

	done := make(chan error, 1)
	go func() {
		done <- s.client.Logout()
		close(done)
	}()

	select {
	case err := <-done:
		if err != nil {
			s.log.Warnf("error during logout: %v", err)
			span.SetTag("error", true)
			tracing.TraceErr(span, err)
		}
	case <-logoutCtx.Done():
		s.log.Warnf("logout timed out")
		span.SetTag("timeout", true)
	}

	s.client = nil
}
