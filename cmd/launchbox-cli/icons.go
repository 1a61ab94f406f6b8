package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v2"

	"launchbox/internal/app"
	"launchbox/internal/config"
	"launchbox/internal/fsys"
	"launchbox/internal/imageheader"
	"launchbox/internal/infrastructure/logging"
	"launchbox/internal/metrics"
	"launchbox/internal/pathsec"
	"launchbox/internal/platform"
	"launchbox/internal/services"
	"launchbox/internal/winpath"
)

func CommandIcons(st *state) *cli.Command {
	var (
		out     string
		toPNG   bool
		persist bool
	)

	return &cli.Command{
		Name:      "icons",
		Usage:     "export the icon of every shortcut in a folder",
		ArgsUsage: "[folder]",

		Flags: []cli.Flag{
			&cli.StringFlag{
				Category:    "Output:",
				Destination: &out,
				Name:        "out",
				Required:    true,
				Usage:       "write icons into `directory`",
			},

			&cli.BoolFlag{
				Category:    "Output:",
				Destination: &toPNG,
				Name:        "png",
				Usage:       "convert ICO icons to PNG",
			},

			&cli.IntFlag{
				Category:    "Extraction:",
				Destination: &st.cfg.Concurrency,
				EnvVars:     []string{"LAUNCHBOX_CONCURRENCY"},
				Name:        "concurrency",
				Usage:       "extract up to `n` icons in parallel",
				Value:       st.cfg.Concurrency,
			},

			&cli.BoolFlag{
				Category:    "Extraction:",
				Destination: &persist,
				Name:        "persist",
				Usage:       "reuse and update the persistent icon store",
			},
		},

		Action: func(c *cli.Context) error {
			folder := folderArg(c, st.cfg)
			logger := st.log()

			icons, closeStore := newIconService(c, st.cfg, persist, nil, logger)
			defer closeStore()

			fs := fsys.NewOSFileSystem()
			files, found := services.NewShortcutService(fs, logger).GetShortcutFiles(folder, services.AllowedExtensions)
			if !found {
				return cli.Exit(fmt.Sprintf("shortcuts folder not found: %s", pathsec.RedactPath(folder)), 1)
			}

			if err := os.MkdirAll(out, 0o755); err != nil {
				return err
			}

			results := icons.ExtractAll(c.Context, files, st.cfg.Concurrency)
			n, err := exportIcons(out, results, toPNG)
			if err != nil {
				return err
			}
			fmt.Fprintf(c.App.Writer, "exported %d of %d icons\n", n, len(results))
			return nil
		},
	}
}

func folderArg(c *cli.Context, cfg *config.Config) string {
	if c.Args().Present() {
		return c.Args().First()
	}
	return cfg.ShortcutsPath
}

// newIconService builds an icon service on the host filesystem. The
// returned function releases the store, if one was opened.
func newIconService(c *cli.Context, cfg *config.Config, persist bool, m *metrics.IconMetrics, logger logging.Logger) (*services.IconService, func()) {
	svcCfg := services.DefaultIconServiceConfig()
	svcCfg.IconSize = cfg.IconSize
	svcCfg.MaxIconFileSize = cfg.MaxIconFileSize
	svcCfg.MetadataTTL = cfg.MetadataTTL
	svcCfg.Metrics = m

	closeStore := func() {}
	if persist {
		dbService, repo, err := app.OpenIconStore(c.Context, cfg.Environment, logger)
		if err != nil {
			logging.LogStoreError(logger, err, "open_icon_store", nil)
		} else {
			svcCfg.Store = repo
			closeStore = func() { dbService.Close() }
		}
	}

	icons := services.NewIconServiceWithConfig(fsys.NewOSFileSystem(), platform.NewShellIconExtractor(), svcCfg, logger)
	return icons, closeStore
}

// exportIcons writes every resolved icon into dir, named after its
// shortcut, and returns how many were written.
func exportIcons(dir string, results []services.IconResult, toPNG bool) (int, error) {
	written := 0
	for _, r := range results {
		if !r.OK {
			continue
		}

		data, ext := r.Icon, iconExt(r.Icon)
		if ext == ".ico" && toPNG {
			converted, err := platform.ConvertICOToPNG(data)
			if err != nil {
				return written, fmt.Errorf("convert %s: %w", pathsec.RedactPath(r.Path), err)
			}
			data, ext = converted, ".png"
		}

		name := winpath.Stem(r.Path) + ext
		if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
			return written, err
		}
		written++
	}
	return written, nil
}

// iconExt guesses a file extension from the icon header.
func iconExt(data []byte) string {
	if _, ok := imageheader.PNGDimensions(bytes.NewReader(data)); ok {
		return ".png"
	}
	if _, ok := imageheader.MaxICODimensions(bytes.NewReader(data)); ok {
		return ".ico"
	}
	return ".bin"
}
