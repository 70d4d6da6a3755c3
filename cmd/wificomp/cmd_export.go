package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v2"

	"github.com/HerbHall/wificomp/internal/export"
	"github.com/HerbHall/wificomp/internal/scanner"
	"github.com/HerbHall/wificomp/pkg/models"
)

func (e *cliEnv) commandExport() *cli.Command {
	return &cli.Command{
		Name:      "export",
		Usage:     "Export a session as JSON, YAML or CSV",
		ArgsUsage: "<file>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Value: "csv", Usage: "json, yaml or csv"},
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "Output file or directory (default: stdout)"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return cli.Exit("usage: wificomp export [--format csv] [--output PATH] <file>", 2)
			}
			f, err := export.ParseFormat(c.String("format"))
			if err != nil {
				return err
			}
			s, _, err := e.sessionDir().Load(c.Args().First())
			if err != nil {
				return err
			}
			exp := export.New(e.logger)

			output := c.String("output")
			if output == "" {
				return exp.WriteSession(c.App.Writer, s, f)
			}
			if fi, err := os.Stat(output); err == nil && fi.IsDir() {
				output = filepath.Join(output, export.FileName(s, f))
			}
			file, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("create %s: %w", output, err)
			}
			if err := exp.WriteSession(file, s, f); err != nil {
				file.Close()
				return err
			}
			if err := file.Close(); err != nil {
				return err
			}
			fmt.Fprintf(c.App.Writer, "exported %s\n", output)
			return nil
		},
	}
}

func (e *cliEnv) commandImport() *cli.Command {
	return &cli.Command{
		Name:      "import",
		Usage:     "Import a session CSV export into the data directory",
		ArgsUsage: "<file.csv>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "interface", Aliases: []string{"i"}, Required: true, Usage: "Interface the data was recorded on"},
			&cli.StringFlag{Name: "driver", Usage: "Kernel driver of the adapter"},
			&cli.StringFlag{Name: "chipset", Usage: "Chipset name (default: derived from --driver)"},
			&cli.StringFlag{Name: "label", Usage: "Name this adapter in comparisons"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return cli.Exit("usage: wificomp import --interface IFACE <file.csv>", 2)
			}
			adapter := models.AdapterInfo{
				Interface: c.String("interface"),
				Driver:    c.String("driver"),
				Chipset:   c.String("chipset"),
				Label:     c.String("label"),
			}
			if adapter.Chipset == "" {
				adapter.Chipset = scanner.ChipsetForDriver(adapter.Driver)
			}

			in, err := os.Open(c.Args().First())
			if err != nil {
				return err
			}
			defer in.Close()
			s, err := export.New(e.logger).ReadSessionCSV(in, adapter)
			if err != nil {
				return err
			}

			be, err := e.openBackend(c.Context)
			if err != nil {
				return err
			}
			defer be.Close()
			path, err := e.saveSession(c.Context, e.sessionDir(), be, s)
			if err != nil {
				return err
			}
			fmt.Fprintf(c.App.Writer, "imported %d scans to %s\n", len(s.Scans), path)
			return nil
		},
	}
}
