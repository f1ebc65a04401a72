// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to configuration file",
		Value:   "config.toml",
	}
}

// libraryCommand handles cache loading, inspection, and blacklist operations
func libraryCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "library",
		Aliases: []string{"lib"},
		Usage:   "Library cache operations",
		Commands: []*cli.Command{
			{
				Name:  "load",
				Usage: "Load the library snapshot for the active profile",
				Flags: []cli.Flag{
					configFlag(),
					&cli.BoolFlag{
						Name:  "force",
						Usage: "Bypass the cache and reload from storage",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output snapshot counts as JSON",
					},
				},
				Action: r.LibraryLoad,
			},
			{
				Name:  "stats",
				Usage: "Print snapshot sizes for the active profile",
				Flags: []cli.Flag{
					configFlag(),
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output stats as JSON",
					},
				},
				Action: r.LibraryStats,
			},
			{
				Name:  "export",
				Usage: "Export the library snapshot to a file",
				Flags: []cli.Flag{
					configFlag(),
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Export format: csv, markdown, or text",
						Value:   "text",
					},
					&cli.StringFlag{
						Name:    "out",
						Aliases: []string{"o"},
						Usage:   "Output file path (defaults to <profile>_library.<ext>)",
					},
				},
				Action: r.LibraryExport,
			},
			{
				Name:  "watch",
				Usage: "Watch configured folders and invalidate the cache on changes",
				Flags: []cli.Flag{
					configFlag(),
				},
				Action: r.LibraryWatch,
			},
			{
				Name:  "blacklist",
				Usage: "Manage and validate folder exclusions",
				Commands: []*cli.Command{
					{
						Name:  "add",
						Usage: "Blacklist a folder for a profile",
						Flags: []cli.Flag{
							configFlag(),
							&cli.StringFlag{
								Name:     "path",
								Usage:    "Folder path to exclude",
								Required: true,
							},
							&cli.StringFlag{
								Name:  "profile",
								Usage: "Profile ID (defaults to the active profile)",
							},
						},
						Action: r.BlacklistAdd,
					},
					{
						Name:  "validate",
						Usage: "List tracks surviving the blacklist",
						Flags: []cli.Flag{
							configFlag(),
							&cli.StringFlag{
								Name:  "profile",
								Usage: "Profile ID (defaults to the active profile)",
							},
							&cli.BoolFlag{
								Name:  "json",
								Usage: "Output surviving tracks as JSON",
							},
						},
						Action: r.BlacklistValidate,
					},
				},
			},
		},
	}
}
