// File: cmd/jex/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/iyunix/go-jex/internal/report"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "jex: %v\n", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "jex",
		Usage: "capture failures and forward them to a log endpoint",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "destination",
				Aliases: []string{"d"},
				Usage:   "URL reports are sent to with GET ?log=...&context=...",
				EnvVars: []string{"JEX_DESTINATION"},
			},
			&cli.StringFlag{
				Name:    "context",
				Aliases: []string{"c"},
				Usage:   "context string attached to every report",
				EnvVars: []string{"JEX_CONTEXT"},
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "upper bound for a single delivery",
				Value: report.DefaultTimeout,
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "debug, info, warn or error",
				EnvVars: []string{"LOG_LEVEL"},
			},
		},
		Commands: []*cli.Command{
			sendCmd,
			execCmd,
			configCmd,
		},
	}
}

var sendCmd = &cli.Command{
	Name:      "send",
	Usage:     "send one report and wait for it to be delivered",
	ArgsUsage: "<message>",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "file", Usage: "source file recorded in the report"},
		&cli.IntFlag{Name: "line", Usage: "line number recorded in the report"},
	},
	Action: func(cctx *cli.Context) error {
		if cctx.NArg() == 0 {
			return cli.Exit("a message is required", 2)
		}
		app, err := NewApplication(cctx)
		if err != nil {
			return err
		}
		if !app.Config.Options().HasDestination() {
			return cli.Exit(report.ErrNoDestination.Error(), 2)
		}

		rep := app.Reporter.Send(report.Failure{
			Message: strings.Join(cctx.Args().Slice(), " "),
			File:    cctx.String("file"),
			Line:    cctx.Int("line"),
		})
		if err := waitDelivery(cctx.Context, app); err != nil {
			return cli.Exit(fmt.Sprintf("report %s not delivered: %v", rep.ID, err), 1)
		}
		fmt.Fprintf(cctx.App.Writer, "report %s delivered to %s\n", rep.ID, app.Config.Destination)
		return nil
	},
}

var execCmd = &cli.Command{
	Name:      "exec",
	Usage:     "run a command and report it when it fails",
	ArgsUsage: "-- <command> [args...]",
	Action: func(cctx *cli.Context) error {
		args := cctx.Args().Slice()
		if len(args) == 0 {
			return cli.Exit("a command is required", 2)
		}
		app, err := NewApplication(cctx)
		if err != nil {
			return err
		}
		defer app.Guard.Recover()

		tail := &tailWriter{}
		cmd := exec.CommandContext(cctx.Context, args[0], args[1:]...)
		cmd.Stdin = os.Stdin
		cmd.Stdout = cctx.App.Writer
		cmd.Stderr = io.MultiWriter(cctx.App.ErrWriter, tail)

		code, runErr := runCommand(cmd)
		if runErr == nil {
			return nil
		}

		message := tail.LastLine()
		if message == "" {
			message = runErr.Error()
		}
		app.Guard.HandleError(message, strings.Join(args, " "), code, runErr)
		if err := waitDelivery(cctx.Context, app); err != nil {
			app.Logger.Warn("report not delivered", "error", err)
		}
		return cli.Exit("", code)
	},
}

var configCmd = &cli.Command{
	Name:  "config",
	Usage: "print the resolved configuration",
	Action: func(cctx *cli.Context) error {
		app, err := NewApplication(cctx)
		if err != nil {
			return err
		}
		w := cctx.App.Writer
		destination := app.Config.Destination
		if destination == "" {
			destination = "(none, reports are logged locally)"
		}
		fmt.Fprintf(w, "destination: %s\n", destination)
		fmt.Fprintf(w, "context:     %s\n", app.Config.Context)
		fmt.Fprintf(w, "timeout:     %s\n", app.Config.Timeout)
		fmt.Fprintf(w, "environment: %s\n", app.Config.Environment)
		return nil
	},
}

// runCommand returns the exit code of cmd. A command that cannot be started
// gets 127, as shells do.
func runCommand(cmd *exec.Cmd) (int, error) {
	err := cmd.Run()
	if err == nil {
		return 0, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), err
	}
	return 127, err
}

// waitDelivery blocks until started deliveries finish and returns the last
// delivery error, if any.
func waitDelivery(parent context.Context, app *Application) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithTimeout(parent, app.Config.Timeout+time.Second)
	defer cancel()
	if err := app.Reporter.Flush(ctx); err != nil {
		return err
	}
	_, err := app.Transport.Result()
	return err
}
