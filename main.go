package main

import (
	"fmt"
	"log"
	"os"

	"github.com/opentracing/opentracing-go"
	"github.com/urfave/cli/v2"

	"github.com/customeros/mailbridge/config"
	"github.com/customeros/mailbridge/internal/enum"
	"github.com/customeros/mailbridge/internal/logger"
	"github.com/customeros/mailbridge/internal/tracing"
	"github.com/customeros/mailbridge/server"
	"github.com/customeros/mailbridge/services"
)

func main() {
	app := &cli.App{
		Name:  "mailbridge",
		Usage: "Forward unseen IMAP mail to an HTTP webhook",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "env-file",
				Usage: "load environment variables from `FILE` before reading config",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "server",
				Usage:  "Start the bridge server with polling loop and REST API",
				Action: runServer,
			},
			{
				Name:   "once",
				Usage:  "Run a single poll cycle and exit",
				Action: runOnce,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func initConfig(c *cli.Context) (*config.Config, error) {
	var envFiles []string
	if file := c.String("env-file"); file != "" {
		envFiles = append(envFiles, file)
	}
	return config.InitConfig(envFiles...)
}

func runServer(c *cli.Context) error {
	cfg, err := initConfig(c)
	if err != nil {
		return fmt.Errorf("config initialization failed: %w", err)
	}

	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	log.Println("MailBridge starting up...")

	srv, err := server.NewServer(cfg)
	if err != nil {
		return fmt.Errorf("server setup failed: %w", err)
	}

	if err := srv.Run(); err != nil {
		return fmt.Errorf("server startup failed: %w", err)
	}

	log.Println("Shutdown complete")
	return nil
}

func runOnce(c *cli.Context) error {
	cfg, err := initConfig(c)
	if err != nil {
		return fmt.Errorf("config initialization failed: %w", err)
	}

	appLogger := logger.NewAppLogger(cfg.Logger)
	appLogger.InitLogger()
	appLogger.WithName("mailbridge")

	tracer, closer, err := tracing.NewJaegerTracer(cfg.Tracing, appLogger)
	if err != nil {
		return fmt.Errorf("could not initialize jaeger tracer: %w", err)
	}
	defer closer.Close()
	opentracing.SetGlobalTracer(tracer)

	svcs, err := services.InitServices(cfg, appLogger)
	if err != nil {
		return err
	}

	report := svcs.BridgeService.RunOnce(c.Context)
	if report.Outcome == enum.CycleOutcomeAborted {
		return cli.Exit(fmt.Sprintf("cycle %s aborted: %v", report.CycleID, report.Err), 1)
	}

	appLogger.Infof("cycle %s finished: outcome=%s unseen=%d forwarded=%d flagged=%d failed=%d",
		report.CycleID, report.Outcome, report.Unseen, report.Forwarded, report.Flagged, report.Failed)
	return nil
}
