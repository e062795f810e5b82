// Command build-index reads a dataset descriptor (§6), builds a binned,
// re-encoded index over its values, splits the domain into partitions,
// and writes them to a single partitioned index file — serially or, with
// --parallel, with one writer rank per partition.
package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v2"

	"ridx/dataset"
	"ridx/engineconfig"
	"ridx/logging"
	"ridx/parallelgen"
	"ridx/quant"
	"ridx/univ"
)

func main() {
	app := &cli.App{
		Name:        "build-index",
		Usage:       "build a partitioned index file over a variable's values",
		Description: "Reads a dataset descriptor, streams its values, builds a binned-and-re-encoded index per partition, and writes them into one shared partitioned index file.",
		ArgsUsage:   "<dataset-descriptor-path> <output-path>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Usage: "engine defaults YAML file (§6); built-in defaults are used if omitted"},
			&cli.StringFlag{Name: "region-type", Usage: "override config's region_type"},
			&cli.StringFlag{Name: "index-encoding", Usage: "override config's index_encoding"},
			&cli.StringFlag{Name: "binning-strategy", Usage: "override config's binning_strategy (sigbits|precision|explicit)"},
			&cli.IntFlag{Name: "binning-parameter", Usage: "override config's binning_parameter"},
			&cli.StringFlag{Name: "explicit-boundaries", Usage: "comma-separated bin boundary values, required when binning-strategy resolves to explicit"},
			&cli.IntFlag{Name: "partitions", Usage: "number of partitions to split the domain into", Value: 1},
			&cli.BoolFlag{Name: "parallel", Usage: "build partitions concurrently, one writer rank per partition"},
			&cli.BoolFlag{Name: "verbose", Usage: "development-mode (human readable) logging"},
		},
		Action: runBuildIndex,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runBuildIndex(c *cli.Context) error {
	descPath := c.Args().Get(0)
	outPath := c.Args().Get(1)
	if descPath == "" || outPath == "" {
		return cli.Exit("usage: build-index [flags] <dataset-descriptor-path> <output-path>", 1)
	}

	mode := logging.Production
	if c.Bool("verbose") {
		mode = logging.Development
	}
	logger, err := logging.New(mode)
	if err != nil {
		return cli.Exit(err, 1)
	}
	defer logger.Sync()

	cfg, err := loadConfig(c.String("config"))
	if err != nil {
		return cli.Exit(err, 1)
	}
	applyOverrides(cfg, c)

	descFile, err := os.Open(descPath)
	if err != nil {
		return cli.Exit(fmt.Errorf("build-index: open descriptor: %w", err), 1)
	}
	desc, err := engineconfig.ParseDatasetDescriptor(descFile)
	descFile.Close()
	if err != nil {
		return cli.Exit(err, 1)
	}

	dt, err := univ.DatatypeByName(desc.Datatype)
	if err != nil {
		return cli.Exit(err, 1)
	}
	domainSize := 1
	for _, d := range desc.Dims {
		domainSize *= d
	}

	regionType, err := cfg.ResolveRegionType()
	if err != nil {
		return cli.Exit(err, 1)
	}
	enc, err := cfg.ResolveIndexEncoding()
	if err != nil {
		return cli.Exit(err, 1)
	}
	quantizer, err := resolveQuantizer(cfg, dt, c.String("explicit-boundaries"))
	if err != nil {
		return cli.Exit(err, 1)
	}

	values, err := readValues(desc.Path, dt, domainSize)
	if err != nil {
		return cli.Exit(err, 1)
	}
	if len(values) != domainSize {
		return cli.Exit(fmt.Errorf("build-index: descriptor declares %d values but %s has %d", domainSize, desc.Path, len(values)), 1)
	}

	numPartitions := c.Int("partitions")
	if numPartitions < 1 {
		numPartitions = 1
	}
	ranges := splitDomain(domainSize, numPartitions)

	out, err := os.Create(outPath)
	if err != nil {
		return cli.Exit(fmt.Errorf("build-index: create %s: %w", outPath, err), 1)
	}
	defer out.Close()

	build := parallelgen.BuildSerial
	if c.Bool("parallel") {
		build = parallelgen.BuildParallel
	}

	bar := progressbar.NewOptions(len(ranges),
		progressbar.OptionSetDescription("building partitions"),
		progressbar.OptionShowCount(),
	)
	defer bar.Finish()
	logger.Infow("build-index: starting", "partitions", len(ranges), "region_type", regionType.String(), "index_encoding", enc.Name(), "parallel", c.Bool("parallel"))

	if err := build(values, dt, regionType, quantizer, enc, ranges, out, logger); err != nil {
		return cli.Exit(fmt.Errorf("build-index: %w", err), 1)
	}
	bar.Add(len(ranges))

	logger.Infow("build-index: finished", "output", outPath)
	fmt.Printf("wrote %d partitions to %s\n", len(ranges), outPath)
	return nil
}

func loadConfig(path string) (*engineconfig.EngineConfig, error) {
	if path == "" {
		return engineconfig.Default(), nil
	}
	return engineconfig.Load(path)
}

func applyOverrides(cfg *engineconfig.EngineConfig, c *cli.Context) {
	if v := c.String("region-type"); v != "" {
		cfg.RegionType = v
	}
	if v := c.String("index-encoding"); v != "" {
		cfg.IndexEncoding = v
	}
	if v := c.String("binning-strategy"); v != "" {
		cfg.BinningStrategy = v
	}
	if c.IsSet("binning-parameter") {
		cfg.BinningParameter = c.Int("binning-parameter")
	}
}

func resolveQuantizer(cfg *engineconfig.EngineConfig, dt univ.Datatype, explicitBoundaries string) (quant.Quantizer, error) {
	if cfg.BinningStrategy != "explicit" {
		return cfg.ResolveQuantizer(dt)
	}
	if explicitBoundaries == "" {
		return nil, fmt.Errorf("build-index: binning-strategy explicit requires --explicit-boundaries")
	}
	fields := strings.Split(explicitBoundaries, ",")
	boundaries := make([]univ.Value, 0, len(fields))
	for _, f := range fields {
		v, err := dataset.ParseValue(strings.TrimSpace(f), dt)
		if err != nil {
			return nil, fmt.Errorf("build-index: explicit boundary %q: %w", f, err)
		}
		boundaries = append(boundaries, v)
	}
	return quant.NewExplicitQuantizer(dt, boundaries)
}

// readValues streams desc's values file into memory, one value per line
// (§12's TextStream; raw/HDF5 formats remain out of scope per §13).
func readValues(path string, dt univ.Datatype, domainSize int) ([]univ.Value, error) {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		data, err := dataset.Fetch(path)
		if err != nil {
			return nil, err
		}
		stream := dataset.NewTextStream(strings.NewReader(string(data)), dt)
		return dataset.ReadAll(stream)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("build-index: open values file %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("build-index: stat values file %s: %w", path, err)
	}
	readBar := progressbar.DefaultBytes(info.Size(), "reading "+path)
	reader := progressbar.NewReader(bufio.NewReader(f), readBar)
	stream := dataset.NewTextStream(&reader, dt)
	values, err := dataset.ReadAll(stream)
	readBar.Finish()
	return values, err
}

// splitDomain divides [0, domainSize) into n roughly-equal half-open
// ranges; the last range absorbs any remainder (§6's per-partition RID
// range).
func splitDomain(domainSize, n int) []parallelgen.ValueRange {
	if n > domainSize {
		n = domainSize
	}
	if n < 1 {
		n = 1
	}
	base := domainSize / n
	ranges := make([]parallelgen.ValueRange, 0, n)
	lo := 0
	for i := 0; i < n; i++ {
		hi := lo + base
		if i == n-1 {
			hi = domainSize
		}
		ranges = append(ranges, parallelgen.ValueRange{Lo: lo, Hi: hi})
		lo = hi
	}
	return ranges
}
