package main

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/urfave/cli/v2"

	"github.com/HerbHall/wificomp/internal/services"
)

func (e *cliEnv) commandSessions() *cli.Command {
	return &cli.Command{
		Name:  "sessions",
		Usage: "Browse saved sessions",
		Subcommands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List cataloged sessions, newest first",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "adapter", Usage: "Only sessions recorded with this adapter"},
					&cli.IntFlag{Name: "limit", Value: 50, Usage: "Maximum rows"},
					&cli.IntFlag{Name: "offset", Usage: "Rows to skip"},
				},
				Action: e.runSessionsList,
			},
			{
				Name:  "adapters",
				Usage: "List adapters with saved sessions",
				Action: func(c *cli.Context) error {
					be, err := e.openBackend(c.Context)
					if err != nil {
						return err
					}
					defer be.Close()

					adapters, err := be.catalog.Adapters(c.Context)
					if err != nil {
						return err
					}
					for _, a := range adapters {
						fmt.Fprintf(c.App.Writer, "%-32s %d sessions\n", a.Name, a.SessionCount)
					}
					return nil
				},
			},
			{
				Name:  "reindex",
				Usage: "Rebuild the catalog from the session files on disk",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "quarantine-empty", Usage: "Move sessions without scans to quarantine"},
				},
				Action: func(c *cli.Context) error {
					be, err := e.openBackend(c.Context)
					if err != nil {
						return err
					}
					defer be.Close()

					n, err := e.sessionDir().Reindex(c.Context, be.catalog, c.Bool("quarantine-empty"))
					if err != nil {
						return err
					}
					fmt.Fprintf(c.App.Writer, "indexed %d sessions\n", n)
					return nil
				},
			},
			{
				Name:      "delete",
				Usage:     "Delete a session file and its catalog entry",
				ArgsUsage: "<file>",
				Action: func(c *cli.Context) error {
					if c.NArg() != 1 {
						return cli.Exit("usage: wificomp sessions delete <file>", 2)
					}
					path, err := filepath.Abs(c.Args().First())
					if err != nil {
						return err
					}
					be, err := e.openBackend(c.Context)
					if err != nil {
						return err
					}
					defer be.Close()

					if err := e.sessionDir().Delete(path); err != nil {
						return err
					}
					info, err := be.catalog.GetByPath(c.Context, path)
					switch {
					case errors.Is(err, services.ErrNotFound):
					case err != nil:
						return err
					default:
						if err := be.catalog.Delete(c.Context, info.ID); err != nil {
							return err
						}
					}
					fmt.Fprintf(c.App.Writer, "deleted %s\n", path)
					return nil
				},
			},
		},
	}
}

func (e *cliEnv) runSessionsList(c *cli.Context) error {
	be, err := e.openBackend(c.Context)
	if err != nil {
		return err
	}
	defer be.Close()

	res, err := be.catalog.List(c.Context, c.String("adapter"), services.ListOptions{
		Limit:  c.Int("limit"),
		Offset: c.Int("offset"),
	})
	if err != nil {
		return err
	}
	if res.Total == 0 {
		dimColor.Fprintln(c.App.Writer, "no sessions cataloged; run `wificomp sessions reindex`")
		return nil
	}

	headerColor.Fprintf(c.App.Writer, "%-19s  %-24s %6s %5s  %s\n", "STARTED", "ADAPTER", "SCANS", "APS", "PATH")
	for _, s := range res.Items {
		line := fmt.Sprintf("%-19s  %-24s %6d %5d  %s",
			s.StartedAt.Local().Format("2006-01-02 15:04:05"), truncate(s.AdapterName, 24),
			s.ScanCount, s.APCount, s.Path)
		if s.Quarantined {
			dimColor.Fprintln(c.App.Writer, line+"  (quarantined)")
			continue
		}
		fmt.Fprintln(c.App.Writer, line)
	}
	if shown := c.Int("offset") + len(res.Items); shown < res.Total {
		dimColor.Fprintf(c.App.Writer, "%d of %d shown\n", shown, res.Total)
	}
	return nil
}
