package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"launchbox/internal/app"
	"launchbox/internal/fsys"
	"launchbox/internal/infrastructure/logging"
	"launchbox/internal/metrics"
	"launchbox/internal/pathsec"
	"launchbox/internal/services"
)

func CommandWatch(st *state) *cli.Command {
	var (
		metricsAddr string
		debounce    time.Duration
		persist     bool
	)

	return &cli.Command{
		Name:      "watch",
		Usage:     "rescan a folder whenever it changes, keeping icons warm",
		ArgsUsage: "[folder]",

		Flags: []cli.Flag{
			&cli.StringFlag{
				Category:    "Monitoring:",
				Destination: &metricsAddr,
				EnvVars:     []string{"LAUNCHBOX_METRICS_ADDR"},
				Name:        "metrics-addr",
				Usage:       "serve Prometheus metrics at `host:port`",
			},

			&cli.DurationFlag{
				Category:    "Watching:",
				Destination: &debounce,
				Name:        "debounce",
				Usage:       "wait `duration` after the last change before rescanning",
				Value:       app.DefaultDebounce,
			},

			&cli.BoolFlag{
				Category:    "Watching:",
				Destination: &persist,
				Name:        "persist",
				Usage:       "reuse and update the persistent icon store",
			},
		},

		Action: func(c *cli.Context) error {
			ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()

			folder := folderArg(c, st.cfg)
			logger := st.log()
			m := metrics.New()

			icons, closeStore := newIconService(c, st.cfg, persist, m, logger)
			defer closeStore()
			shortcuts := services.NewShortcutService(fsys.NewOSFileSystem(), logger)

			rescan := func() {
				files, found := shortcuts.GetShortcutFiles(folder, services.AllowedExtensions)
				pruned := icons.PruneCache(files)
				if _, err := icons.PruneStore(ctx, files); err != nil {
					logger.Warn("Failed to prune icon store", "error", pathsec.SafeErrorMessage(err))
				}
				withIcon := 0
				for _, r := range icons.ExtractAll(ctx, files, st.cfg.Concurrency) {
					if r.OK {
						withIcon++
					}
				}
				logger.Info("Rescanned shortcuts",
					"found", found,
					"shortcuts", len(files),
					"icons", withIcon,
					"pruned", pruned)
			}
			rescan()

			w, err := app.NewWatcher(folder, debounce, rescan, logger)
			if err != nil {
				return err
			}
			defer w.Close()

			if metricsAddr != "" {
				srv := serveMetrics(metricsAddr, m, logger)
				defer func() {
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					_ = srv.Shutdown(shutdownCtx)
				}()
			}

			logger.Info("Watching shortcuts folder", "path", pathsec.RedactPath(folder))
			<-ctx.Done()
			return nil
		},
	}
}

func serveMetrics(addr string, m *metrics.IconMetrics, logger logging.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Metrics server failed", "error", err.Error())
		}
	}()
	return srv
}
