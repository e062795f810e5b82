// Command query evaluates a postfix region-math query over one or more
// variables' partitioned index files and prints the matching RIDs per
// partition, streaming through a Cursor (§4.8).
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"ridx/dataset"
	"ridx/encoding"
	"ridx/partition"
	"ridx/query"
)

func main() {
	app := &cli.App{
		Name:        "query",
		Usage:       "evaluate a region query over one or more partitioned index files",
		Description: "Each --source binds a variable name to its partitioned index file; each --constraint answers one variable's [lb,ub) range; --op combines more than one constraint.",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{Name: "source", Usage: "varname=indexfile, repeatable"},
			&cli.StringSliceFlag{Name: "constraint", Usage: "varname=lb,ub (half-open, same datatype as the variable's index), repeatable"},
			&cli.StringFlag{Name: "op", Usage: "union|intersect|difference|symmetric-difference, required when more than one constraint is given"},
			&cli.StringFlag{Name: "policy", Usage: "auto|always|never (direct-vs-complement plan policy)", Value: "auto"},
			&cli.Uint64Flag{Name: "domain-lo", Usage: "lowest RID to include"},
			&cli.Uint64Flag{Name: "domain-hi", Usage: "RID upper bound (exclusive); 0 means no bound"},
			&cli.BoolFlag{Name: "print-rids", Usage: "print every matching RID per partition, not just counts"},
		},
		Action: runQuery,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runQuery(c *cli.Context) error {
	sourceFlags := c.StringSlice("source")
	constraintFlags := c.StringSlice("constraint")
	if len(sourceFlags) == 0 || len(constraintFlags) == 0 {
		return cli.Exit("at least one --source and one --constraint are required", 1)
	}

	sources := make(query.Sources, len(sourceFlags))
	closers := make([]*os.File, 0, len(sourceFlags))
	defer func() {
		for _, f := range closers {
			f.Close()
		}
	}()
	for _, sf := range sourceFlags {
		name, path, ok := strings.Cut(sf, "=")
		if !ok {
			return cli.Exit(fmt.Errorf("query: malformed --source %q, want varname=indexfile", sf), 1)
		}
		f, err := os.Open(path)
		if err != nil {
			return cli.Exit(fmt.Errorf("query: open %s: %w", path, err), 1)
		}
		closers = append(closers, f)
		reader, err := partition.Open(f)
		if err != nil {
			return cli.Exit(fmt.Errorf("query: open index %s: %w", path, err), 1)
		}
		sources[name] = reader
	}

	q, err := buildQuery(sources, constraintFlags, c.String("op"))
	if err != nil {
		return cli.Exit(err, 1)
	}
	policy, err := parsePolicy(c.String("policy"))
	if err != nil {
		return cli.Exit(err, 1)
	}

	cursor, err := query.NewCursor(sources, q, policy, c.Uint64("domain-lo"), c.Uint64("domain-hi"))
	if err != nil {
		return cli.Exit(err, 1)
	}

	printRIDs := c.Bool("print-rids")
	var totalMatched uint64
	for {
		res, ok, err := cursor.Next()
		if err != nil {
			return cli.Exit(err, 1)
		}
		if !ok {
			break
		}
		n := res.Result.ElementCount()
		totalMatched += uint64(n)
		fmt.Printf("partition %d [%d,%d): %d matches (bytes_read=%d regions_read=%d coalesced_reads=%d)\n",
			res.PartitionID, res.DomainOffset, res.DomainOffset+res.DomainLength, n,
			res.Stats.BytesRead, res.Stats.RegionsRead, res.Stats.CoalescedReads)
		if printRIDs {
			for _, rid := range res.Result.ConvertToRIDs() {
				fmt.Println(rid + uint32(res.DomainOffset))
			}
		}
	}
	fmt.Printf("total matches: %d\n", totalMatched)
	return nil
}

// buildQuery turns --constraint flags into a query.Query: one
// ConstraintTerm per flag, combined by a single top-level NAryTerm when
// there is more than one.
func buildQuery(sources query.Sources, constraintFlags []string, opFlag string) (query.Query, error) {
	var q query.Query
	for _, cf := range constraintFlags {
		name, bounds, ok := strings.Cut(cf, "=")
		if !ok {
			return nil, fmt.Errorf("query: malformed --constraint %q, want varname=lb,ub", cf)
		}
		reader, ok := sources[name]
		if !ok {
			return nil, fmt.Errorf("query: --constraint references unbound variable %q", name)
		}
		lbStr, ubStr, ok := strings.Cut(bounds, ",")
		if !ok {
			return nil, fmt.Errorf("query: malformed --constraint bounds %q, want lb,ub", bounds)
		}
		meta, err := reader.Metadata(0)
		if err != nil {
			return nil, fmt.Errorf("query: --constraint %q: %w", name, err)
		}
		dt := meta.Datatype
		lb, err := dataset.ParseValue(strings.TrimSpace(lbStr), dt)
		if err != nil {
			return nil, fmt.Errorf("query: --constraint %q lower bound: %w", name, err)
		}
		ub, err := dataset.ParseValue(strings.TrimSpace(ubStr), dt)
		if err != nil {
			return nil, fmt.Errorf("query: --constraint %q upper bound: %w", name, err)
		}
		q = append(q, query.ConstraintTerm(name, lb, ub))
	}
	if len(constraintFlags) > 1 {
		op, err := parseOp(opFlag)
		if err != nil {
			return nil, err
		}
		q = append(q, query.NAryTerm(op, len(constraintFlags)))
	}
	return q, nil
}

func parseOp(s string) (encoding.NAryOp, error) {
	switch s {
	case "union":
		return encoding.OpUnion, nil
	case "intersect":
		return encoding.OpIntersect, nil
	case "difference":
		return encoding.OpDifference, nil
	case "symmetric-difference":
		return encoding.OpSymmetricDifference, nil
	case "":
		return 0, fmt.Errorf("query: --op is required when more than one --constraint is given")
	default:
		return 0, fmt.Errorf("query: unknown --op %q", s)
	}
}

func parsePolicy(s string) (query.Policy, error) {
	switch s {
	case "auto", "":
		return query.Auto, nil
	case "always":
		return query.Always, nil
	case "never":
		return query.Never, nil
	default:
		return 0, fmt.Errorf("query: unknown --policy %q", s)
	}
}
