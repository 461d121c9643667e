package enum

type CycleState string

const (
	CycleStateIdle        CycleState = "idle"
	CycleStateConnecting  CycleState = "connecting"
	CycleStateMailboxOpen CycleState = "mailbox_open"
	CycleStateSearching   CycleState = "searching"
	CycleStateProcessing  CycleState = "processing"
	CycleStateTeardown    CycleState = "teardown"
	CycleStateSleeping    CycleState = "sleeping"
)

func (t CycleState) String() string {
	return string(t)
}

type CycleOutcome string

const (
	CycleOutcomeCompleted CycleOutcome = "completed"
	CycleOutcomeEmpty     CycleOutcome = "empty"
	CycleOutcomeAborted   CycleOutcome = "aborted"
)

func (t CycleOutcome) String() string {
	return string(t)
}
