package main

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/HerbHall/wificomp/internal/config"
	"github.com/HerbHall/wificomp/internal/scanner"
	"github.com/HerbHall/wificomp/internal/version"
)

func (e *cliEnv) commandAdapters() *cli.Command {
	return &cli.Command{
		Name:  "adapters",
		Usage: "List wireless interfaces",
		Action: func(c *cli.Context) error {
			adapters, err := scanner.NewDetector(e.logger).Detect(c.Context)
			if err != nil {
				return err
			}
			if len(adapters) == 0 {
				warnColor.Fprintln(c.App.Writer, "no wireless interfaces found")
				return nil
			}
			for _, a := range adapters {
				fmt.Fprintf(c.App.Writer, "%-12s %-28s driver=%s\n", a.Interface, a.DisplayName(), a.Driver)
			}
			return nil
		},
	}
}

func (e *cliEnv) commandConfig() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Show or change saved settings",
		Subcommands: []*cli.Command{
			{
				Name:  "show",
				Usage: "Print the effective settings",
				Action: func(c *cli.Context) error {
					values := e.settings.Values()
					fmt.Fprintf(c.App.Writer, "# %s\n", e.configPath)
					for _, k := range slices.Sorted(maps.Keys(values)) {
						fmt.Fprintf(c.App.Writer, "%s = %v\n", k, values[k])
					}
					return nil
				},
			},
			{
				Name:      "set",
				Usage:     "Change one setting and save it",
				ArgsUsage: "<key> <value>",
				Action: func(c *cli.Context) error {
					if c.NArg() != 2 {
						return cli.Exit("usage: wificomp config set <key> <value>", 2)
					}
					s, err := e.settings.With(c.Args().Get(0), c.Args().Get(1))
					if err != nil {
						return err
					}
					if err := config.Save(e.configPath, s); err != nil {
						return err
					}
					e.settings = s
					fmt.Fprintf(c.App.Writer, "saved %s\n", e.configPath)
					return nil
				},
			},
		},
	}
}

func (e *cliEnv) commandVersion() *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "Print version information",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "format",
				Usage: "Output format: text, json or yaml",
				Value: "text",
			},
		},
		Action: func(c *cli.Context) error {
			switch c.String("format") {
			case "json":
				enc := json.NewEncoder(c.App.Writer)
				enc.SetIndent("", "  ")
				return enc.Encode(version.Get())
			case "yaml":
				return yaml.NewEncoder(c.App.Writer).Encode(version.Get())
			default:
				fmt.Fprintln(c.App.Writer, version.Info())
				return nil
			}
		},
	}
}
