package main

import (
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/HerbHall/wificomp/internal/backup"
)

func (e *cliEnv) commandBackup() *cli.Command {
	return &cli.Command{
		Name:  "backup",
		Usage: "Archive the database, session files and config",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Output file path (default: wificomp-backup-{timestamp}.tar.gz)",
			},
		},
		Action: func(c *cli.Context) error {
			output := c.String("output")
			if output == "" {
				output = fmt.Sprintf("wificomp-backup-%s.tar.gz", time.Now().Format("20060102-150405"))
			}
			if err := backup.Backup(c.Context, e.settings.DataDir, e.configPath, output); err != nil {
				return fmt.Errorf("backup failed: %w", err)
			}
			fmt.Fprintf(c.App.Writer, "Backup created: %s\n", output)
			return nil
		},
	}
}

func (e *cliEnv) commandRestore() *cli.Command {
	return &cli.Command{
		Name:      "restore",
		Usage:     "Restore a backup archive into the data directory",
		ArgsUsage: "<archive>",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "force",
				Usage: "Overwrite existing files",
			},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return cli.Exit("usage: wificomp restore [--force] <archive>", 2)
			}
			n, err := backup.Restore(c.Context, c.Args().First(), e.settings.DataDir, e.configPath, c.Bool("force"))
			if err != nil {
				return fmt.Errorf("restore failed: %w", err)
			}
			fmt.Fprintf(c.App.Writer, "Restore complete: %d files restored to %s\n", n, e.settings.DataDir)
			return nil
		},
	}
}
