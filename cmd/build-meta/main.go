// Command build-meta writes a dataset descriptor file (§6): the
// two-line `path\n<datatype> {C|FORTRAN} d1 d2 ... dN` format build-index
// reads to locate and interpret a variable's raw values.
package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/urfave/cli/v2"

	"ridx/univ"
)

func main() {
	app := &cli.App{
		Name:        "build-meta",
		Usage:       "write a dataset descriptor file for a variable's raw values",
		Description: "Writes the two-line dataset descriptor format build-index consumes: the values file path, then its datatype, memory order and dimensions.",
		ArgsUsage:   "<output-path>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "values", Usage: "path (or URL) to the raw values file", Required: true},
			&cli.StringFlag{Name: "datatype", Usage: "one of uint8|uint16|uint32|uint64|int8|int16|int32|int64|float32|float64|string", Required: true},
			&cli.StringFlag{Name: "order", Usage: "C or FORTRAN", Value: "C"},
			&cli.StringFlag{Name: "dims", Usage: "comma-separated dimension sizes, e.g. 1000000", Required: true},
		},
		Action: func(c *cli.Context) error {
			outPath := c.Args().Get(0)
			if outPath == "" {
				return cli.Exit("missing <output-path>", 1)
			}
			if _, err := univ.DatatypeByName(c.String("datatype")); err != nil {
				return cli.Exit(err, 1)
			}
			order := c.String("order")
			if order != "C" && order != "FORTRAN" {
				return cli.Exit(fmt.Errorf("build-meta: order must be C or FORTRAN, got %q", order), 1)
			}
			dims, err := parseDims(c.String("dims"))
			if err != nil {
				return cli.Exit(err, 1)
			}

			var b strings.Builder
			fmt.Fprintf(&b, "%s\n", c.String("values"))
			fmt.Fprintf(&b, "%s %s", c.String("datatype"), order)
			for _, d := range dims {
				fmt.Fprintf(&b, " %d", d)
			}
			b.WriteString("\n")

			if err := os.WriteFile(outPath, []byte(b.String()), 0644); err != nil {
				return cli.Exit(fmt.Errorf("build-meta: write %s: %w", outPath, err), 1)
			}
			fmt.Printf("wrote dataset descriptor to %s\n", outPath)
			return nil
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func parseDims(s string) ([]int, error) {
	fields := strings.Split(s, ",")
	dims := make([]int, 0, len(fields))
	for _, f := range fields {
		d, err := strconv.Atoi(strings.TrimSpace(f))
		if err != nil {
			return nil, fmt.Errorf("build-meta: dimension %q: %w", f, err)
		}
		dims = append(dims, d)
	}
	return dims, nil
}
