package cron

import (
	"context"
	"os"

	"github.com/caarlos0/env/v6"
	cronv3 "github.com/robfig/cron/v3"

	"github.com/customeros/mailbridge/interfaces"
	cron_config "github.com/customeros/mailbridge/internal/cron/config"
	"github.com/customeros/mailbridge/internal/logger"
	"github.com/customeros/mailbridge/internal/tracing"
)

type CronManager struct {
	log    logger.Logger
	cron   *cronv3.Cron
	stopCh chan struct{}
	jobIDs map[string]cronv3.EntryID
	bridge interfaces.BridgeService
}

func NewCronManager(log logger.Logger, bridge interfaces.BridgeService) *CronManager {
	return &CronManager{
		log:    log,
		stopCh: make(chan struct{}),
		jobIDs: make(map[string]cronv3.EntryID),
		bridge: bridge,
	}
}

// Start initializes and starts the cron scheduler
func (cm *CronManager) Start() {
	cm.log.Info("Starting cron manager")
	// Create a new cron with seconds field enabled and panic recovery
	cronOptions := []cronv3.Option{
		cronv3.WithSeconds(),
		cronv3.WithChain(
			cronv3.SkipIfStillRunning(cronv3.DefaultLogger), // Skip if still running
			cronv3.Recover(cronv3.DefaultLogger),            // Default recovery as backup
		),
	}
	c := cronv3.New(cronOptions...)
	cm.registerJobs(c)
	c.Start()
	cm.cron = c
}

// Stop gracefully stops the cron manager
func (cm *CronManager) Stop() {
	if cm.cron != nil {
		cm.log.Info("Stopping cron manager")
		ctx := cm.cron.Stop()
		// Wait for jobs to finish
		<-ctx.Done()
	}
	close(cm.stopCh)
}

// registerJobs adds all cron jobs to the scheduler
func (cm *CronManager) registerJobs(c *cronv3.Cron) {
	// Load cron config from environment variables
	var cronConfig cron_config.Config
	if err := env.Parse(&cronConfig); err != nil {
		cm.log.Fatalf("Failed to parse cron config from environment: %v", err)
	}

	// Register heartbeat job
	if cronConfig.CronScheduleHeartbeat != "" {
		hostName, err := os.Hostname()
		if err != nil || hostName == "" {
			hostName = "local"
		}
		id, err := c.AddFunc(cronConfig.CronScheduleHeartbeat, func() {
			defer tracing.RecoverAndLogToJaeger(cm.log)
			cm.log.Infof("Cron heartbeat from host: %s", hostName)
		})
		if err != nil {
			cm.log.Fatalf("Could not add heartbeat cron job: %v", err)
		}
		cm.jobIDs["heartbeat"] = id
		cm.log.Infof("Registered heartbeat job with schedule: %s", cronConfig.CronScheduleHeartbeat)
	}

	// Register bridge status report job
	if cronConfig.CronScheduleBridgeStatus != "" {
		id, err := c.AddFunc(cronConfig.CronScheduleBridgeStatus, func() {
			defer tracing.RecoverAndLogToJaeger(cm.log)
			cm.reportBridgeStatus()
		})
		if err != nil {
			cm.log.Fatalf("Could not add bridge status cron job: %v", err)
		}
		cm.jobIDs["bridge_status"] = id
		cm.log.Infof("Registered bridge status job with schedule: %s", cronConfig.CronScheduleBridgeStatus)
	}
}

func (cm *CronManager) reportBridgeStatus() {
	ctx := context.Background()

	span, _ := tracing.StartTracerSpan(ctx, "CronManager.reportBridgeStatus")
	defer span.Finish()
	tracing.TagComponentCronJob(span)

	status := cm.bridge.Status()
	tracing.LogObjectAsJson(span, "status", status)

	cm.log.Infof("bridge status: state=%s mailbox=%s cycles=%d aborted=%d forwarded=%d flagged=%d failures=%d lastError=%q",
		status.State, status.Mailbox, status.CyclesCompleted, status.CyclesAborted,
		status.MessagesForwarded, status.MessagesFlagged, status.MessageFailures, status.LastError)
}
