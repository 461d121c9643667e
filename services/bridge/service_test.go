package bridge

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/customeros/mailbridge/config"
	"github.com/customeros/mailbridge/interfaces"
	"github.com/customeros/mailbridge/internal/enum"
	er "github.com/customeros/mailbridge/internal/errors"
	"github.com/customeros/mailbridge/internal/logger"
	"github.com/customeros/mailbridge/internal/models"
	"github.com/customeros/mailbridge/services/email_processor"
)

func getLogger() logger.Logger {
	appLogger := logger.NewAppLogger(&logger.Config{
		DevMode: true,
	})
	appLogger.InitLogger()
	return appLogger
}

type fakeSession struct {
	uids      []uint32
	messages  map[uint32]*models.RawMessage
	openErr   error
	searchErr error
	fetchErr  error
	flagErrs  map[uint32]error

	openedWith string
	fetchCalls int
	flagged    []uint32
	closed     bool
}

func (f *fakeSession) OpenMailbox(ctx context.Context, name string) error {
	f.openedWith = name
	return f.openErr
}

func (f *fakeSession) SearchUnseen(ctx context.Context) ([]uint32, error) {
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.uids, nil
}

func (f *fakeSession) FetchMessages(ctx context.Context, uids []uint32) ([]*models.RawMessage, error) {
	f.fetchCalls++
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	out := make([]*models.RawMessage, 0, len(uids))
	for _, uid := range uids {
		if msg, ok := f.messages[uid]; ok {
			out = append(out, msg)
		}
	}
	return out, nil
}

func (f *fakeSession) AddSeenFlag(ctx context.Context, uid uint32) error {
	if err, ok := f.flagErrs[uid]; ok {
		return err
	}
	f.flagged = append(f.flagged, uid)
	return nil
}

func (f *fakeSession) Close(ctx context.Context) {
	f.closed = true
}

type fakeSessionFactory struct {
	session *fakeSession
	err     error
}

func (f *fakeSessionFactory) NewSession(ctx context.Context) (interfaces.MailSession, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.session, nil
}

type fakeWebhook struct {
	failUIDs  map[uint32]error
	delivered []uint32
}

func (f *fakeWebhook) DeliverMail(ctx context.Context, record *models.MessageRecord) error {
	if err, ok := f.failUIDs[record.UID]; ok {
		return err
	}
	f.delivered = append(f.delivered, record.UID)
	return nil
}

// panickingWebhook panics on the first panicUntil deliveries and succeeds
// afterwards.
type panickingWebhook struct {
	panicUntil int
	calls      int
	delivered  []uint32
}

func (f *panickingWebhook) DeliverMail(ctx context.Context, record *models.MessageRecord) error {
	f.calls++
	if f.calls <= f.panicUntil {
		panic("delivery exploded")
	}
	f.delivered = append(f.delivered, record.UID)
	return nil
}

func rawMessage(seq, uid uint32) *models.RawMessage {
	text := fmt.Sprintf("From: sender@example.com\r\nTo: inbox@example.com\r\nSubject: message %d\r\nDate: Tue, 01 Jul 2025 10:00:00 +0000\r\n\r\nbody %d\r\n", uid, uid)
	return &models.RawMessage{
		SeqNum:     seq,
		UID:        uid,
		Raw:        []byte(text),
		Attributes: models.JSONMap{"uid": uid, "seq_num": seq},
	}
}

func sessionWithMessages(uids ...uint32) *fakeSession {
	messages := make(map[uint32]*models.RawMessage, len(uids))
	for i, uid := range uids {
		messages[uid] = rawMessage(uint32(i+1), uid)
	}
	return &fakeSession{uids: uids, messages: messages}
}

func newTestBridge(factory *fakeSessionFactory, hook interfaces.WebhookService, cfg *config.BridgeConfig) *BridgeService {
	log := getLogger()
	if cfg == nil {
		cfg = &config.BridgeConfig{
			PollInterval:   time.Minute,
			RetryBackoff:   30 * time.Second,
			OnMessageError: config.OnMessageErrorSkip,
			FetchBatchSize: 50,
		}
	}
	return NewBridgeService(
		log,
		cfg,
		&config.IMAPConfig{Mailbox: "INBOX"},
		factory,
		email_processor.NewProcessor(log),
		hook,
	)
}

func TestRunOnce_ForwardsAndFlagsAllUnseen(t *testing.T) {
	// Arrange
	session := sessionWithMessages(11, 12, 13)
	hook := &fakeWebhook{}
	bridge := newTestBridge(&fakeSessionFactory{session: session}, hook, nil)

	// Act
	report := bridge.RunOnce(context.Background())

	// Assert
	assert.Equal(t, enum.CycleOutcomeCompleted, report.Outcome)
	assert.Equal(t, 3, report.Unseen)
	assert.Equal(t, 3, report.Forwarded)
	assert.Equal(t, 3, report.Flagged)
	assert.Equal(t, 0, report.Failed)
	assert.NoError(t, report.Err)

	assert.Equal(t, "INBOX", session.openedWith)
	assert.Equal(t, []uint32{11, 12, 13}, hook.delivered)
	assert.Equal(t, []uint32{11, 12, 13}, session.flagged)
	assert.True(t, session.closed)
}

func TestRunOnce_FailedDeliveryLeavesMessageUnseen(t *testing.T) {
	// Arrange: seven unseen messages, delivery of the fifth fails with a 500
	uids := []uint32{101, 102, 103, 104, 105, 106, 107}
	session := sessionWithMessages(uids...)
	hook := &fakeWebhook{
		failUIDs: map[uint32]error{
			105: er.NewDeliveryError(105, 500, errors.New("internal server error")),
		},
	}
	bridge := newTestBridge(&fakeSessionFactory{session: session}, hook, nil)

	// Act
	report := bridge.RunOnce(context.Background())

	// Assert: the failed message is not flagged and the rest still go through
	assert.Equal(t, enum.CycleOutcomeCompleted, report.Outcome)
	assert.Equal(t, 7, report.Unseen)
	assert.Equal(t, 6, report.Forwarded)
	assert.Equal(t, 6, report.Flagged)
	assert.Equal(t, 1, report.Failed)

	assert.NotContains(t, session.flagged, uint32(105))
	assert.Contains(t, hook.delivered, uint32(106))
	assert.Contains(t, hook.delivered, uint32(107))
	assert.Contains(t, session.flagged, uint32(107))

	// A message is flagged only when its delivery succeeded
	assert.Equal(t, hook.delivered, session.flagged)
}

func TestRunOnce_EmptyMailbox(t *testing.T) {
	// Arrange
	session := sessionWithMessages()
	hook := &fakeWebhook{}
	bridge := newTestBridge(&fakeSessionFactory{session: session}, hook, nil)

	// Act
	report := bridge.RunOnce(context.Background())

	// Assert: no fetch, no delivery, straight to sleep
	assert.Equal(t, enum.CycleOutcomeEmpty, report.Outcome)
	assert.Equal(t, 0, report.Unseen)
	assert.Equal(t, 0, session.fetchCalls)
	assert.Empty(t, hook.delivered)
	assert.True(t, session.closed)
}

func TestRunOnce_AuthFailureAborts(t *testing.T) {
	// Arrange: the session cannot even be established
	factory := &fakeSessionFactory{
		err: er.NewConnectionError(errors.New("LOGIN failed")),
	}
	hook := &fakeWebhook{}
	bridge := newTestBridge(factory, hook, nil)

	// Act
	report := bridge.RunOnce(context.Background())

	// Assert: nothing downstream ran
	assert.Equal(t, enum.CycleOutcomeAborted, report.Outcome)
	require.Error(t, report.Err)
	assert.True(t, er.IsConnectionError(report.Err))
	assert.Empty(t, hook.delivered)

	status := bridge.Status()
	assert.Equal(t, "aborted", status.LastOutcome)
	assert.Equal(t, uint64(1), status.CyclesAborted)
	assert.Equal(t, uint64(0), status.CyclesCompleted)
	assert.NotEmpty(t, status.LastError)
}

func TestRunOnce_SearchErrorAborts(t *testing.T) {
	// Arrange
	session := sessionWithMessages(21, 22)
	session.searchErr = er.NewSearchError(errors.New("BAD search"))
	hook := &fakeWebhook{}
	bridge := newTestBridge(&fakeSessionFactory{session: session}, hook, nil)

	// Act
	report := bridge.RunOnce(context.Background())

	// Assert: session is still released on abort
	assert.Equal(t, enum.CycleOutcomeAborted, report.Outcome)
	assert.True(t, er.IsSearchError(report.Err))
	assert.Equal(t, 0, session.fetchCalls)
	assert.Empty(t, hook.delivered)
	assert.True(t, session.closed)
}

func TestRunOnce_FetchErrorAborts(t *testing.T) {
	session := sessionWithMessages(31, 32)
	session.fetchErr = er.NewConnectionError(errors.New("connection reset"))
	hook := &fakeWebhook{}
	bridge := newTestBridge(&fakeSessionFactory{session: session}, hook, nil)

	report := bridge.RunOnce(context.Background())

	assert.Equal(t, enum.CycleOutcomeAborted, report.Outcome)
	assert.Empty(t, hook.delivered)
	assert.True(t, session.closed)
}

func TestRunOnce_FlagErrorDoesNotFailMessage(t *testing.T) {
	// Arrange: delivery works but the seen flag cannot be stored
	session := sessionWithMessages(41, 42)
	session.flagErrs = map[uint32]error{
		41: er.NewFlagError(41, errors.New("STORE failed")),
	}
	hook := &fakeWebhook{}
	bridge := newTestBridge(&fakeSessionFactory{session: session}, hook, nil)

	// Act
	report := bridge.RunOnce(context.Background())

	// Assert: the message counts as forwarded, stays unflagged, cycle completes
	assert.Equal(t, enum.CycleOutcomeCompleted, report.Outcome)
	assert.Equal(t, 2, report.Forwarded)
	assert.Equal(t, 1, report.Flagged)
	assert.Equal(t, 0, report.Failed)
	assert.Equal(t, []uint32{42}, session.flagged)
}

func TestRunOnce_AbortPolicyStopsOnMessageFailure(t *testing.T) {
	// Arrange
	cfg := &config.BridgeConfig{
		PollInterval:   time.Minute,
		RetryBackoff:   30 * time.Second,
		OnMessageError: config.OnMessageErrorAbort,
		FetchBatchSize: 50,
	}
	session := sessionWithMessages(51, 52, 53)
	hook := &fakeWebhook{
		failUIDs: map[uint32]error{
			52: er.NewDeliveryError(52, 500, errors.New("internal server error")),
		},
	}
	bridge := newTestBridge(&fakeSessionFactory{session: session}, hook, cfg)

	// Act
	report := bridge.RunOnce(context.Background())

	// Assert: processing stops at the failed message
	assert.Equal(t, enum.CycleOutcomeAborted, report.Outcome)
	assert.Equal(t, 1, report.Forwarded)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, []uint32{51}, hook.delivered)
	assert.NotContains(t, hook.delivered, uint32(53))
}

func TestRunOnce_PanickingCycleIsAborted(t *testing.T) {
	// Arrange: delivery panics instead of returning an error
	session := sessionWithMessages(61, 62)
	hook := &panickingWebhook{panicUntil: 1}
	bridge := newTestBridge(&fakeSessionFactory{session: session}, hook, nil)

	// Act
	report := bridge.RunOnce(context.Background())

	// Assert: the panic is contained and the cycle reports aborted
	assert.Equal(t, enum.CycleOutcomeAborted, report.Outcome)
	require.Error(t, report.Err)
	assert.Contains(t, report.Err.Error(), "panicked")
	assert.Equal(t, 0, report.Forwarded)
	assert.Empty(t, hook.delivered)
	assert.True(t, session.closed, "session is still released on panic")

	status := bridge.Status()
	assert.Equal(t, "aborted", status.LastOutcome)
	assert.Equal(t, uint64(1), status.CyclesAborted)
}

func TestNextDelay(t *testing.T) {
	cfg := &config.BridgeConfig{
		PollInterval:   time.Minute,
		RetryBackoff:   15 * time.Second,
		OnMessageError: config.OnMessageErrorSkip,
	}
	bridge := newTestBridge(&fakeSessionFactory{}, &fakeWebhook{}, cfg)

	assert.Equal(t, time.Minute, bridge.nextDelay(interfaces.CycleReport{Outcome: enum.CycleOutcomeCompleted}))
	assert.Equal(t, time.Minute, bridge.nextDelay(interfaces.CycleReport{Outcome: enum.CycleOutcomeEmpty}))
	assert.Equal(t, 15*time.Second, bridge.nextDelay(interfaces.CycleReport{Outcome: enum.CycleOutcomeAborted}))
}

func TestStartAndStop(t *testing.T) {
	// Arrange: fast loop over an empty mailbox
	cfg := &config.BridgeConfig{
		PollInterval:   5 * time.Millisecond,
		RetryBackoff:   5 * time.Millisecond,
		OnMessageError: config.OnMessageErrorSkip,
		FetchBatchSize: 50,
	}
	session := sessionWithMessages()
	bridge := newTestBridge(&fakeSessionFactory{session: session}, &fakeWebhook{}, cfg)

	// Act
	require.NoError(t, bridge.Start(context.Background()))

	// Assert: cycles keep running until stopped
	require.Eventually(t, func() bool {
		return bridge.Status().CyclesCompleted >= 2
	}, 2*time.Second, time.Millisecond)

	assert.Error(t, bridge.Start(context.Background()), "second start must be rejected")

	require.NoError(t, bridge.Stop())
	assert.Equal(t, enum.CycleStateIdle, bridge.Status().State)

	// Stopping an already stopped bridge is a no-op
	assert.NoError(t, bridge.Stop())
}

func TestTriggerNowWakesSleepingLoop(t *testing.T) {
	// Arrange: poll interval far longer than the test
	cfg := &config.BridgeConfig{
		PollInterval:   time.Hour,
		RetryBackoff:   time.Hour,
		OnMessageError: config.OnMessageErrorSkip,
		FetchBatchSize: 50,
	}
	session := sessionWithMessages()
	bridge := newTestBridge(&fakeSessionFactory{session: session}, &fakeWebhook{}, cfg)

	require.NoError(t, bridge.Start(context.Background()))
	defer bridge.Stop()

	require.Eventually(t, func() bool {
		return bridge.Status().CyclesCompleted >= 1
	}, 2*time.Second, time.Millisecond)

	// Act
	bridge.TriggerNow()

	// Assert: a second cycle runs without waiting out the poll interval
	require.Eventually(t, func() bool {
		return bridge.Status().CyclesCompleted >= 2
	}, 2*time.Second, time.Millisecond)
}

func TestStart_LoopSurvivesPanickingCycle(t *testing.T) {
	// Arrange: the first delivery panics, later ones succeed
	cfg := &config.BridgeConfig{
		PollInterval:   5 * time.Millisecond,
		RetryBackoff:   5 * time.Millisecond,
		OnMessageError: config.OnMessageErrorSkip,
		FetchBatchSize: 50,
	}
	session := sessionWithMessages(71)
	hook := &panickingWebhook{panicUntil: 1}
	bridge := newTestBridge(&fakeSessionFactory{session: session}, hook, cfg)

	// Act
	require.NoError(t, bridge.Start(context.Background()))
	defer bridge.Stop()

	// Assert: the panicking cycle is recorded as aborted and polling goes on
	require.Eventually(t, func() bool {
		return bridge.Status().CyclesAborted >= 1
	}, 2*time.Second, time.Millisecond)
	require.Eventually(t, func() bool {
		return bridge.Status().CyclesCompleted >= 1
	}, 2*time.Second, time.Millisecond)
}
