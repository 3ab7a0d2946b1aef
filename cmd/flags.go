package cmd

import "github.com/urfave/cli/v3"

// generationFlags are shared by generate and plan
func generationFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringSliceFlag{
			Name:    "extraction",
			Aliases: []string{"e"},
			Usage:   "Only process the named extraction (repeatable)",
		},
		&cli.StringFlag{Name: "filter", Usage: "Only list extractions with this destination type"},
		&cli.BoolFlag{Name: "all", Usage: "Ignore the destination type filter"},
		&cli.BoolFlag{Name: "force-destination-type", Usage: "Add the destination parameter to run URLs"},
		&cli.IntFlag{Name: "sliding-days", Usage: "Days covered by sliding-window files"},
		&cli.StringSliceFlag{Name: "sliding-column", Usage: "Date column that gets a sliding-window file (repeatable)"},
		&cli.StringFlag{Name: "template", Aliases: []string{"t"}, Usage: "Template RSD file"},
		&cli.StringFlag{Name: "output-dir", Aliases: []string{"o"}, Usage: "Directory for generated files"},
	}
}

// filterFlags select which extractions are listed
func filterFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "filter", Usage: "Only list extractions with this destination type"},
		&cli.BoolFlag{Name: "all", Usage: "Ignore the destination type filter"},
	}
}
