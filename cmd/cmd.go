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

// setupCommand handles setup operations for configuration and the database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:    "database",
				Aliases: []string{"db"},
				Usage:   "Create config file, initialize database and run migrations",
				Flags:   []cli.Flag{configFlag()},
				Action:  r.SetupDatabase,
			},
			{
				Name:  "cookie",
				Usage: "Store the account cookie from a copied cURL command",
				Flags: []cli.Flag{
					configFlag(),
					&cli.StringFlag{
						Name:  "curl",
						Usage: "cURL command from browser DevTools (Copy as cURL)",
					},
					&cli.StringFlag{
						Name:  "curl-file",
						Usage: "Path to a file containing the cURL command",
					},
				},
				Action: r.SetupCookie,
			},
		},
	}
}

// generateCommand submits a generation request and optionally waits for audio.
func generateCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "generate",
		Aliases: []string{"gen"},
		Usage:   "Generate tracks from a prompt",
		Flags: []cli.Flag{
			configFlag(),
			&cli.StringFlag{
				Name:     "prompt",
				Aliases:  []string{"p"},
				Usage:    "Song description, or lyrics in custom mode",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "tags",
				Usage: "Style tags (custom mode)",
			},
			&cli.StringFlag{
				Name:    "title",
				Aliases: []string{"t"},
				Usage:   "Track title (custom mode)",
			},
			&cli.StringFlag{
				Name:  "negative-tags",
				Usage: "Styles to avoid",
			},
			&cli.StringFlag{
				Name:    "model",
				Aliases: []string{"m"},
				Usage:   "Model version (e.g. chirp-v3-5)",
			},
			&cli.BoolFlag{
				Name:  "custom",
				Usage: "Custom mode: treat the prompt as lyrics",
			},
			&cli.BoolFlag{
				Name:  "instrumental",
				Usage: "Generate without vocals",
			},
			&cli.BoolFlag{
				Name:    "wait",
				Aliases: []string{"w"},
				Usage:   "Poll until audio is ready",
				Value:   true,
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
			&cli.BoolFlag{
				Name:  "pretty",
				Usage: "Pretty-print output",
			},
		},
		Action: r.Generate,
	}
}

// tracksCommand lists locally saved generations.
func tracksCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tracks",
		Aliases: []string{"ls"},
		Usage:   "List saved generations",
		Flags: []cli.Flag{
			configFlag(),
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of tracks to return",
				Value: 50,
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Output format: table, csv, markdown or json",
				Value:   "table",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Write csv/markdown output to a file instead of stdout",
			},
			&cli.StringFlag{
				Name:  "status",
				Usage: "Only show tracks with this status",
			},
		},
		Action: r.Tracks,
	}
}

// statusCommand fetches the current state of clips by id.
func statusCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "Fetch clip state from the feed",
		Arguments: []cli.Argument{
			&cli.StringArgs{
				Name: "ids",
				Max:  -1,
			},
		},
		Flags: []cli.Flag{
			configFlag(),
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
			&cli.BoolFlag{
				Name:  "pretty",
				Usage: "Pretty-print output",
			},
			&cli.BoolFlag{
				Name:  "save",
				Usage: "Persist fetched clips to the local database",
			},
		},
		Action: r.Status,
	}
}

// creditsCommand prints the account's remaining allowance.
func creditsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "credits",
		Usage: "Show remaining generation credits",
		Flags: []cli.Flag{
			configFlag(),
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
		},
		Action: r.Credits,
	}
}

// lyricsCommand generates standalone lyrics from a prompt.
func lyricsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "lyrics",
		Usage: "Generate lyrics from a prompt",
		Arguments: []cli.Argument{
			&cli.StringArg{
				Name: "prompt",
			},
		},
		Flags: []cli.Flag{
			configFlag(),
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
		},
		Action: r.Lyrics,
	}
}

// concatCommand joins an extended clip with its source.
func concatCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "concat",
		Usage: "Concatenate an extended clip into a full track",
		Arguments: []cli.Argument{
			&cli.StringArg{
				Name: "id",
			},
		},
		Flags: []cli.Flag{
			configFlag(),
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
		},
		Action: r.Concat,
	}
}

// serveCommand runs the HTTP API.
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the generation HTTP API",
		Flags: []cli.Flag{
			configFlag(),
			&cli.StringFlag{
				Name:  "host",
				Usage: "Host to bind (overrides config)",
			},
			&cli.IntFlag{
				Name:  "port",
				Usage: "Port to bind (overrides config)",
			},
		},
		Action: r.Serve,
	}
}

// tuiCommand launches the interactive track browser.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "tui",
		Usage:  "Browse saved tracks interactively",
		Flags:  []cli.Flag{configFlag()},
		Action: r.TUI,
	}
}
