package bridge

import (
	"context"
	"runtime/debug"
	"sync"
	"time"

	"github.com/opentracing/opentracing-go"
	tracingLog "github.com/opentracing/opentracing-go/log"
	"github.com/pkg/errors"

	"github.com/customeros/mailbridge/config"
	"github.com/customeros/mailbridge/interfaces"
	"github.com/customeros/mailbridge/internal/enum"
	"github.com/customeros/mailbridge/internal/logger"
	"github.com/customeros/mailbridge/internal/models"
	"github.com/customeros/mailbridge/internal/tracing"
	"github.com/customeros/mailbridge/internal/utils"
)

// BridgeService runs the forward loop: connect, open mailbox, search
// unseen, then forward and flag each message in searcher order. One
// goroutine owns the loop; cycles never overlap and every session is
// released before the next sleep.
type BridgeService struct {
	cfg       *config.BridgeConfig
	imapCfg   *config.IMAPConfig
	log       logger.Logger
	sessions  interfaces.SessionFactory
	processor interfaces.EmailProcessor
	webhook   interfaces.WebhookService

	cycleMu sync.Mutex

	mu      sync.RWMutex
	status  interfaces.BridgeStatus
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}

	triggerCh chan struct{}
}

func NewBridgeService(
	log logger.Logger,
	cfg *config.BridgeConfig,
	imapCfg *config.IMAPConfig,
	sessions interfaces.SessionFactory,
	processor interfaces.EmailProcessor,
	webhook interfaces.WebhookService,
) *BridgeService {
	return &BridgeService{
		cfg:       cfg,
		imapCfg:   imapCfg,
		log:       log,
		sessions:  sessions,
		processor: processor,
		webhook:   webhook,
		status: interfaces.BridgeStatus{
			State:   enum.CycleStateIdle,
			Mailbox: imapCfg.Mailbox,
		},
		triggerCh: make(chan struct{}, 1),
	}
}

func (s *BridgeService) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return errors.New("bridge already running")
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	s.mu.Unlock()

	s.log.Infof("starting bridge for mailbox %s (poll %s, backoff %s)",
		s.imapCfg.Mailbox, s.cfg.PollInterval, s.cfg.RetryBackoff)

	go s.run(ctx)
	return nil
}

func (s *BridgeService) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	close(s.stopCh)
	done := s.doneCh
	s.mu.Unlock()

	select {
	case <-done:
		return nil
	case <-time.After(10 * time.Second):
		return errors.New("bridge did not stop in time")
	}
}

// TriggerNow wakes a sleeping loop so the next cycle starts immediately.
// It never blocks; at most one wake-up is kept pending.
func (s *BridgeService) TriggerNow() {
	select {
	case s.triggerCh <- struct{}{}:
	default:
	}
}

func (s *BridgeService) Status() interfaces.BridgeStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

func (s *BridgeService) run(ctx context.Context) {
	defer close(s.doneCh)
	defer s.setState(enum.CycleStateIdle)

	for {
		report := s.RunOnce(ctx)

		s.setState(enum.CycleStateSleeping)
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case <-s.triggerCh:
			// wake early, poll requested
		case <-time.After(s.nextDelay(report)):
		}
	}
}

// nextDelay picks the fixed poll interval after a clean cycle and the
// distinct fixed back-off delay after an aborted one. No jitter, no
// exponential growth.
func (s *BridgeService) nextDelay(report interfaces.CycleReport) time.Duration {
	if report.Outcome == enum.CycleOutcomeAborted {
		return s.cfg.RetryBackoff
	}
	return s.cfg.PollInterval
}

// RunOnce executes a single connect→search→process→teardown pass and
// records it in the bridge status. Cycles are serialized: a concurrent
// caller waits for the running cycle to finish.
func (s *BridgeService) RunOnce(ctx context.Context) interfaces.CycleReport {
	s.cycleMu.Lock()
	defer s.cycleMu.Unlock()

	report := s.runCycle(ctx)
	s.recordCycle(report)
	return report
}

func (s *BridgeService) runCycle(ctx context.Context) (report interfaces.CycleReport) {
	cycleID := utils.GenerateNanoIDWithPrefix("cycle", 12)

	span, ctx := tracing.StartTracerSpan(ctx, "BridgeService.runCycle")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.TagCycleId(span, cycleID)
	tracing.TagMailbox(span, s.imapCfg.Mailbox)

	report = interfaces.CycleReport{
		CycleID:   cycleID,
		Outcome:   enum.CycleOutcomeCompleted,
		StartedAt: time.Now(),
	}

	// A panicking cycle must not kill the poll loop: recover here and
	// report the cycle as aborted.
	defer func() {
		if r := recover(); r != nil {
			stack := string(debug.Stack())
			s.log.Errorf("cycle %s panicked: %v\n%s", cycleID, r, stack)
			span.SetTag("error", true)
			span.LogKV("event", "error", "error.object", r, "stack", stack)

			report.Outcome = enum.CycleOutcomeAborted
			report.Err = errors.Errorf("cycle panicked: %v", r)
			report.FinishedAt = time.Now()
		}
	}()

	s.setState(enum.CycleStateConnecting)
	session, err := s.sessions.NewSession(ctx)
	if err != nil {
		return s.abortCycle(span, report, err)
	}
	defer func() {
		s.setState(enum.CycleStateTeardown)
		session.Close(ctx)
	}()

	s.setState(enum.CycleStateMailboxOpen)
	if err := session.OpenMailbox(ctx, s.imapCfg.Mailbox); err != nil {
		return s.abortCycle(span, report, err)
	}

	s.setState(enum.CycleStateSearching)
	uids, err := session.SearchUnseen(ctx)
	if err != nil {
		return s.abortCycle(span, report, err)
	}

	report.Unseen = len(uids)
	span.LogFields(tracingLog.Int("unseen.count", len(uids)))

	if len(uids) == 0 {
		report.Outcome = enum.CycleOutcomeEmpty
		report.FinishedAt = time.Now()
		return report
	}

	s.setState(enum.CycleStateProcessing)
	rawMessages, err := session.FetchMessages(ctx, uids)
	if err != nil {
		return s.abortCycle(span, report, err)
	}

	for _, raw := range rawMessages {
		err := s.processMessage(ctx, session, raw, &report)
		if err == nil {
			continue
		}

		report.Failed++
		s.log.Errorf("cycle %s: message uid %d failed: %v", cycleID, raw.UID, err)
		tracing.TraceErr(span, err)

		if s.cfg.OnMessageError == config.OnMessageErrorAbort {
			return s.abortCycle(span, report, err)
		}
	}

	report.FinishedAt = time.Now()
	s.log.Infof("cycle %s completed: %d unseen, %d forwarded, %d flagged, %d failed",
		cycleID, report.Unseen, report.Forwarded, report.Flagged, report.Failed)
	return report
}

// processMessage forwards one message and, only after a successful
// delivery, flags it seen. A flag failure is logged and left alone: the
// message stays unseen server-side and will be redelivered, which the
// downstream consumer must tolerate.
func (s *BridgeService) processMessage(ctx context.Context, session interfaces.MailSession, raw *models.RawMessage, report *interfaces.CycleReport) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "BridgeService.processMessage")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.TagMessageUid(span, raw.UID)

	record, err := s.processor.BuildMessageRecord(raw)
	if err != nil {
		tracing.TraceErr(span, err)
		return err
	}

	if err := s.webhook.DeliverMail(ctx, record); err != nil {
		tracing.TraceErr(span, err)
		return err
	}
	report.Forwarded++

	if err := session.AddSeenFlag(ctx, record.UID); err != nil {
		s.log.Warnf("message uid %d delivered but not flagged, will be redelivered: %v", record.UID, err)
		tracing.TraceErr(span, err)
		return nil
	}
	report.Flagged++

	return nil
}

func (s *BridgeService) abortCycle(span opentracing.Span, report interfaces.CycleReport, err error) interfaces.CycleReport {
	report.Outcome = enum.CycleOutcomeAborted
	report.Err = err
	report.FinishedAt = time.Now()

	s.log.Errorf("cycle %s aborted: %v", report.CycleID, err)
	tracing.TraceErr(span, err)
	return report
}

func (s *BridgeService) setState(state enum.CycleState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status.State = state
}

func (s *BridgeService) recordCycle(report interfaces.CycleReport) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.status.LastCycleID = report.CycleID
	s.status.LastCycleAt = report.StartedAt
	s.status.LastOutcome = report.Outcome.String()
	s.status.MessagesForwarded += uint64(report.Forwarded)
	s.status.MessagesFlagged += uint64(report.Flagged)
	s.status.MessageFailures += uint64(report.Failed)

	if report.Outcome == enum.CycleOutcomeAborted {
		s.status.CyclesAborted++
	} else {
		s.status.CyclesCompleted++
	}

	if report.Err != nil {
		s.status.LastError = report.Err.Error()
	} else {
		s.status.LastError = ""
	}
}
