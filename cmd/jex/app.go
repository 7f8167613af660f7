// File: cmd/jex/app.go
package main

import (
	"github.com/urfave/cli/v2"

	"github.com/iyunix/go-jex/internal/capture"
	"github.com/iyunix/go-jex/internal/config"
	"github.com/iyunix/go-jex/internal/logger"
	"github.com/iyunix/go-jex/internal/report"
)

const serviceName = "jex"

// Application aggregates the pieces every command needs
type Application struct {
	Config    *config.Config
	Logger    logger.Logger
	Transport *probeTransport
	Reporter  *report.Reporter
	Guard     *capture.Guard
}

// Provider functions

func ProvideConfig(cctx *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(logger.FromEnv(serviceName))
	if err != nil {
		return nil, err
	}
	// flags win over the environment
	if cctx.IsSet("destination") {
		cfg.Destination = cctx.String("destination")
	}
	if cctx.IsSet("context") {
		cfg.Context = cctx.String("context")
	}
	if cctx.IsSet("timeout") {
		cfg.Timeout = cctx.Duration("timeout")
	}
	if cctx.IsSet("log-level") {
		cfg.LogLevel = cctx.String("log-level")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func ProvideLogger(cfg *config.Config) logger.Logger {
	return logger.New(serviceName, cfg.Environment, cfg.LogLevel)
}

func ProvideTransport(cfg *config.Config) *probeTransport {
	return &probeTransport{next: report.DetectTransport(nil, true, cfg.Timeout)}
}

func ProvideReporter(cfg *config.Config, log logger.Logger, tr report.Transport) *report.Reporter {
	r := report.New(cfg.Options(), log, tr)
	r.SetTimeout(cfg.Timeout)
	return r
}

func ProvideGuard(r *report.Reporter) *capture.Guard {
	return capture.New(r)
}

func NewApplication(cctx *cli.Context) (*Application, error) {
	cfg, err := ProvideConfig(cctx)
	if err != nil {
		return nil, err
	}
	log := ProvideLogger(cfg)
	tr := ProvideTransport(cfg)
	rep := ProvideReporter(cfg, log, tr)
	return &Application{
		Config:    cfg,
		Logger:    log,
		Transport: tr,
		Reporter:  rep,
		Guard:     ProvideGuard(rep),
	}, nil
}
