// Command wificomp records WiFi scan sessions per adapter and compares
// adapters against each other.
package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	"github.com/HerbHall/wificomp/internal/version"
)

func main() {
	env := &cliEnv{}
	app := &cli.App{
		Name:                 "wificomp",
		Usage:                "Record and compare WiFi adapter reception",
		Version:              version.Short(),
		EnableBashCompletion: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Load configuration from `FILE`",
				EnvVars: []string{"WIFICOMP_CONFIG"},
			},
			&cli.StringFlag{
				Name:  "data-dir",
				Usage: "Override the data directory",
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Enable development logging at debug level",
			},
			&cli.BoolFlag{
				Name:  "no-color",
				Usage: "Disable colored output",
			},
		},
		Before: env.setup,
		After:  env.teardown,
		Commands: []*cli.Command{
			env.commandAdapters(),
			env.commandRecord(),
			env.commandSessions(),
			env.commandHistory(),
			env.commandCompare(),
			env.commandExport(),
			env.commandImport(),
			env.commandExclude(),
			env.commandConfig(),
			env.commandBackup(),
			env.commandRestore(),
			env.commandVersion(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("error: %v", err))
		os.Exit(1)
	}
}
