package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"launchbox/internal/config"
	"launchbox/internal/infrastructure/logging"
)

var (
	version = "development"
)

// state is shared between the global flags and the commands.
type state struct {
	cfg    *config.Config
	logger *logging.ZapLogger
}

func (s *state) log() logging.Logger {
	if s.logger == nil {
		return logging.NewNopLogger()
	}
	return s.logger
}

func main() {
	app := newApp()
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	cfg := config.DefaultConfig()
	cfg.LoadFromEnvironment()
	st := &state{cfg: cfg}

	return &cli.App{
		Name:    "launchbox-cli",
		Usage:   "Inspect shortcut folders and the icons Launchbox shows for them",
		Version: version,

		Action: func(c *cli.Context) error {
			return cli.ShowAppHelp(c)
		},

		Flags: []cli.Flag{
			&cli.StringFlag{
				Destination: &cfg.Log.Level,
				EnvVars:     []string{"LAUNCHBOX_LOG_LEVEL"},
				Name:        "log-level",
				Usage:       "logging level",
				Value:       cfg.Log.Level,
			},

			&cli.StringFlag{
				Destination: &cfg.Log.Mode,
				EnvVars:     []string{"LAUNCHBOX_LOG_MODE"},
				Name:        "log-mode",
				Usage:       "logging mode",
				Value:       cfg.Log.Mode,
			},

			&cli.StringFlag{
				Destination: &cfg.Environment,
				EnvVars:     []string{"LAUNCHBOX_ENVIRONMENT"},
				Name:        "environment",
				Usage:       "settings preset: development, production or test",
				Value:       cfg.Environment,
			},
		},

		Before: func(c *cli.Context) error {
			l, err := logging.NewLogger(cfg.Log)
			if err != nil {
				fmt.Fprintf(os.Stderr, "failed to configure the logging: %s\n", err)
				return err
			}
			st.logger = l
			return nil
		},

		After: func(c *cli.Context) error {
			if st.logger != nil {
				_ = st.logger.Sync()
			}
			return nil
		},

		Commands: []*cli.Command{
			CommandIcons(st),
			CommandCheck(st),
			CommandWatch(st),
			CommandHelp(),
		},
	}
}

func CommandHelp() *cli.Command {
	return &cli.Command{
		Usage: "show the list of commands or help for one command",
		Name:  "help",

		Action: func(clictx *cli.Context) error {
			return cli.ShowAppHelp(clictx)
		},
	}
}
