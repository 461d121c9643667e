package interfaces

import (
	"context"
	"time"

	"github.com/customeros/mailbridge/internal/enum"
)

type BridgeService interface {
	Start(ctx context.Context) error
	Stop() error
	RunOnce(ctx context.Context) CycleReport
	TriggerNow()
	Status() BridgeStatus
}

// CycleReport summarizes one connect→search→process→teardown pass.
type CycleReport struct {
	CycleID    string
	Outcome    enum.CycleOutcome
	Unseen     int
	Forwarded  int
	Flagged    int
	Failed     int
	StartedAt  time.Time
	FinishedAt time.Time
	Err        error
}

type BridgeStatus struct {
	State             enum.CycleState `json:"state"`
	Mailbox           string          `json:"mailbox"`
	LastCycleID       string          `json:"lastCycleId"`
	LastCycleAt       time.Time       `json:"lastCycleAt"`
	LastOutcome       string          `json:"lastOutcome"`
	LastError         string          `json:"lastError,omitempty"`
	CyclesCompleted   uint64          `json:"cyclesCompleted"`
	CyclesAborted     uint64          `json:"cyclesAborted"`
	MessagesForwarded uint64          `json:"messagesForwarded"`
	MessagesFlagged   uint64          `json:"messagesFlagged"`
	MessageFailures   uint64          `json:"messageFailures"`
}
