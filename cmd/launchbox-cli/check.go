package main

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"launchbox/internal/fsys"
	"launchbox/internal/pathsec"
	"launchbox/internal/services"
)

func CommandCheck(st *state) *cli.Command {
	var resolve bool

	return &cli.Command{
		Name:      "check",
		Usage:     "report whether paths are safe to touch",
		ArgsUsage: "path [path...]",

		Flags: []cli.Flag{
			&cli.BoolFlag{
				Destination: &resolve,
				Name:        "resolve",
				Usage:       "also print the file whose icon each safe shortcut uses",
			},
		},

		Action: func(c *cli.Context) error {
			if !c.Args().Present() {
				return cli.ShowSubcommandHelp(c)
			}

			var icons *services.IconService
			if resolve {
				icons = services.NewIconService(fsys.NewOSFileSystem(), nil, st.log())
			}

			unsafe := 0
			for _, p := range c.Args().Slice() {
				if pathsec.IsUnsafePath(p) {
					unsafe++
					fmt.Fprintf(c.App.Writer, "unsafe\t%s\n", pathsec.RedactPath(p))
					continue
				}
				if icons == nil {
					fmt.Fprintf(c.App.Writer, "safe\t%s\n", p)
					continue
				}
				fmt.Fprintf(c.App.Writer, "safe\t%s\t%s\n", p, icons.ResolveIconPath(p))
			}

			if unsafe > 0 {
				return cli.Exit(fmt.Sprintf("%d unsafe path(s)", unsafe), 2)
			}
			return nil
		},
	}
}
