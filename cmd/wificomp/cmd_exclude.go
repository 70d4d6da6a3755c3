package main

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/HerbHall/wificomp/internal/exclusion"
)

func (e *cliEnv) commandExclude() *cli.Command {
	keyAction := func(add bool) cli.ActionFunc {
		return func(c *cli.Context) error {
			if c.NArg() == 0 {
				return cli.Exit("usage: wificomp exclude add|remove <bssid|ssid:name>...", 2)
			}
			be, err := e.openBackend(c.Context)
			if err != nil {
				return err
			}
			defer be.Close()

			for _, arg := range c.Args().Slice() {
				key, err := exclusion.ParseKey(arg)
				if err != nil {
					return err
				}
				if add {
					err = be.exclusions.AddPermanent(c.Context, key)
				} else {
					err = be.exclusions.RemovePermanent(c.Context, key)
				}
				if err != nil {
					return err
				}
				fmt.Fprintln(c.App.Writer, key)
			}
			return nil
		}
	}

	return &cli.Command{
		Name:  "exclude",
		Usage: "Manage permanently hidden access points",
		Subcommands: []*cli.Command{
			{
				Name:      "add",
				Usage:     "Hide access points everywhere",
				ArgsUsage: "<bssid|ssid:name>...",
				Action:    keyAction(true),
			},
			{
				Name:      "remove",
				Usage:     "Stop hiding access points",
				ArgsUsage: "<bssid|ssid:name>...",
				Action:    keyAction(false),
			},
			{
				Name:  "list",
				Usage: "List permanent exclusions",
				Action: func(c *cli.Context) error {
					be, err := e.openBackend(c.Context)
					if err != nil {
						return err
					}
					defer be.Close()

					keys := be.exclusions.Permanent()
					if len(keys) == 0 {
						dimColor.Fprintln(c.App.Writer, "no exclusions")
					}
					for _, k := range keys {
						fmt.Fprintln(c.App.Writer, k)
					}
					return nil
				},
			},
		},
	}
}
