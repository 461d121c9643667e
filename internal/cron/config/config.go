package cron_config

type Config struct {
	// Heartbeat check, every minute
	CronScheduleHeartbeat string `env:"CRON_SCHEDULE_HEARTBEAT" envDefault:"0 * * * * *"`
	// Bridge status report, every five minutes
	CronScheduleBridgeStatus string `env:"CRON_SCHEDULE_BRIDGE_STATUS" envDefault:"0 */5 * * * *"`
}
