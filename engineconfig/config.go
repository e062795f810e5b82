// Package engineconfig holds the engine-wide defaults (region
// representation, index encoding, binning strategy, CBLQ shape,
// partition sizing) loadable from YAML, and the two tiny external text
// formats (§6): the dataset descriptor and the database descriptor.
package engineconfig

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"ridx/encoding"
	"ridx/quant"
	"ridx/region"
	"ridx/univ"
)

// EngineConfig is the build-time defaults a `build-index` run starts
// from before CLI flags override individual fields (§6's CLI surface).
type EngineConfig struct {
	RegionType          string `yaml:"region_type"`
	IndexEncoding       string `yaml:"index_encoding"`
	BinningStrategy     string `yaml:"binning_strategy"`
	BinningParameter    int    `yaml:"binning_parameter"`
	CBLQDenseSuffix     bool   `yaml:"cblq_dense_suffix"`
	PartitionSizeTarget int64  `yaml:"partition_size_target"`
}

// Default returns the engine's built-in defaults.
func Default() *EngineConfig {
	return &EngineConfig{
		RegionType:          "wah",
		IndexEncoding:       "range",
		BinningStrategy:     "explicit",
		BinningParameter:    0,
		CBLQDenseSuffix:     true,
		PartitionSizeTarget: 64 << 20,
	}
}

// Load reads an EngineConfig from a YAML file, starting from Default
// and overriding only the fields present in the file.
func Load(path string) (*EngineConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("engineconfig: load %s: %w", path, err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("engineconfig: load %s: %w", path, err)
	}
	return cfg, nil
}

// ResolveRegionType maps the config's region_type name to a region.Type
// (§6's `ii|cii|wah|cblq-2|cblq-3|cblq-4`).
func (c *EngineConfig) ResolveRegionType() (region.Type, error) {
	switch c.RegionType {
	case "ii":
		return region.TypeII, nil
	case "cii":
		return region.TypeCII, nil
	case "bitmap":
		return region.TypeBitmap, nil
	case "wah":
		return region.TypeWAH, nil
	case "cblq-2":
		return region.TypeCBLQ2, nil
	case "cblq-3":
		return region.TypeCBLQ3, nil
	case "cblq-4":
		return region.TypeCBLQ4, nil
	default:
		return 0, fmt.Errorf("engineconfig: unknown region_type %q", c.RegionType)
	}
}

// ResolveIndexEncoding maps the config's index_encoding name to an
// encoding.IndexEncoding (§6's `flat|range|interval|hier|binarycomp`;
// `flat` and `hier` are this package's names for `equality`/`hierarchical`).
func (c *EngineConfig) ResolveIndexEncoding() (encoding.IndexEncoding, error) {
	switch c.IndexEncoding {
	case "flat", "equality":
		return encoding.Equality{}, nil
	case "range":
		return encoding.Range{}, nil
	case "interval":
		return encoding.Interval{}, nil
	case "hier", "hierarchical":
		return encoding.Hierarchical{}, nil
	case "binarycomp", "binary-component":
		return encoding.BinaryComponent{}, nil
	default:
		return nil, fmt.Errorf("engineconfig: unknown index_encoding %q", c.IndexEncoding)
	}
}

// ResolveQuantizer maps the config's binning_strategy and
// binning_parameter to a quant.Quantizer over dt (§3/§6). The explicit
// strategy needs caller-supplied boundaries rather than a config-derived
// parameter, so it is not resolved here.
func (c *EngineConfig) ResolveQuantizer(dt univ.Datatype) (quant.Quantizer, error) {
	switch c.BinningStrategy {
	case "sigbits":
		return quant.NewSigbitsQuantizer(dt, c.BinningParameter)
	case "precision":
		return quant.NewPrecisionQuantizer(dt, c.BinningParameter)
	default:
		return nil, fmt.Errorf("engineconfig: binning_strategy %q is not config-resolvable; build explicit quantizers directly", c.BinningStrategy)
	}
}
