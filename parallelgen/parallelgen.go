// Package parallelgen implements the parallel index generator (C8): it
// splits a dataset by RID range, builds one binned-and-re-encoded index
// per range, and writes every range's partition into one shared
// partitioned index file — either serially (one range after another,
// the baseline a parallel run must agree with per §8 Scenario F) or
// concurrently across goroutines coordinated by package alloc's
// master/client allocator.
package parallelgen

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"ridx/alloc"
	"ridx/encoding"
	"ridx/indexing"
	"ridx/logging"
	"ridx/metrics"
	"ridx/partition"
	"ridx/quant"
	"ridx/region"
	"ridx/univ"
)

// ValueRange is a half-open RID range [Lo, Hi) of the dataset this
// generator splits work by.
type ValueRange struct {
	Lo, Hi int
}

// buildRangeIndex builds and re-encodes one range's binned index.
func buildRangeIndex(values []univ.Value, rng ValueRange, regionType region.Type, quantizer quant.Quantizer, enc encoding.IndexEncoding, logger *zap.SugaredLogger) (*indexing.EncodedIndex, error) {
	startedAt := time.Now()
	defer func() {
		metrics.BuildLatencyHistogram.WithLabelValues(regionType.String(), enc.Name()).Observe(time.Since(startedAt).Seconds())
	}()
	slice := values[rng.Lo:rng.Hi]
	b := indexing.NewBuilder(regionType, len(slice), quantizer, logger)
	for _, v := range slice {
		if err := b.Add(v); err != nil {
			return nil, fmt.Errorf("parallelgen: build range [%d,%d): %w", rng.Lo, rng.Hi, err)
		}
	}
	idx, err := b.Finish()
	if err != nil {
		return nil, fmt.Errorf("parallelgen: build range [%d,%d): %w", rng.Lo, rng.Hi, err)
	}
	encIdx, err := indexing.ReEncode(idx, enc)
	if err != nil {
		return nil, fmt.Errorf("parallelgen: re-encode range [%d,%d): %w", rng.Lo, rng.Hi, err)
	}
	return encIdx, nil
}

func metadataFor(datatype univ.Datatype, rng ValueRange, encIdx *indexing.EncodedIndex) *partition.Metadata {
	return &partition.Metadata{
		Datatype:     datatype,
		DomainOffset: uint64(rng.Lo),
		DomainLength: uint64(rng.Hi - rng.Lo),
		Encoding:     encIdx.Encoding,
		RegionType:   encIdx.RegionType,
		Binning:      encIdx.Binning,
	}
}

// BuildSerial builds every range's index and writes it to backing with a
// single writer, one range after another (§4.5/§4.6's single-writer
// path; the baseline §8 Scenario F's parallel build must match).
func BuildSerial(values []univ.Value, datatype univ.Datatype, regionType region.Type, quantizer quant.Quantizer, enc encoding.IndexEncoding, ranges []ValueRange, backing partition.Backing, logger *zap.SugaredLogger) error {
	w := partition.NewWriter(backing, alloc.NewSerial(16), logger)
	for _, rng := range ranges {
		encIdx, err := buildRangeIndex(values, rng, regionType, quantizer, enc, logger)
		if err != nil {
			return err
		}
		if _, err := w.WritePartition(metadataFor(datatype, rng, encIdx), encIdx.Regions); err != nil {
			return fmt.Errorf("parallelgen: build serial: %w", err)
		}
	}
	if err := w.Finalize(); err != nil {
		return fmt.Errorf("parallelgen: build serial: %w", err)
	}
	return nil
}

// BuildParallel builds every range's index concurrently, one goroutine
// (client rank) per range, all writing into the same backing through
// package alloc's master/client allocator (§4.7). Building is CPU-bound
// and fully concurrent; only the shared allocator serializes the actual
// byte-range reservations. The footer is written once, by this
// function acting as the master rank, only if every client rank
// succeeded — matching §4.7's failure model ("the file is only
// well-formed once the master successfully writes the footer").
func BuildParallel(values []univ.Value, datatype univ.Datatype, regionType region.Type, quantizer quant.Quantizer, enc encoding.IndexEncoding, ranges []ValueRange, backing partition.Backing, logger *zap.SugaredLogger) error {
	log := logging.OrNop(logger)
	master := alloc.NewMaster(16, logger)

	var mu sync.Mutex
	var records []partition.PartitionRecord

	eg := new(errgroup.Group)
	for _, rng := range ranges {
		rng := rng
		eg.Go(func() error {
			client := master.NewClient()
			w := partition.NewWriter(backing, client, logger)

			encIdx, buildErr := buildRangeIndex(values, rng, regionType, quantizer, enc, logger)
			var writeErr error
			if buildErr == nil {
				_, writeErr = w.WritePartition(metadataFor(datatype, rng, encIdx), encIdx.Regions)
			}
			rankErr := buildErr
			if rankErr == nil {
				rankErr = writeErr
			}
			client.Close(rankErr)

			if rankErr == nil {
				mu.Lock()
				records = append(records, w.Committed()...)
				mu.Unlock()
			}
			return rankErr
		})
	}
	rangeErr := eg.Wait()

	master.CloseSelf()
	if err := master.Finalize(); err != nil {
		return fmt.Errorf("parallelgen: build parallel: %w", err)
	}
	if rangeErr != nil {
		return fmt.Errorf("parallelgen: build parallel: %w", rangeErr)
	}

	log.Infow("parallelgen: finalizing merged file", "ranges", len(ranges))
	if err := partition.FinalizeMerged(backing, records); err != nil {
		return fmt.Errorf("parallelgen: build parallel: %w", err)
	}
	return nil
}
