// Command stats prints summary statistics for a partitioned index file
// (§4.6): per-partition domain range, region representation and index
// encoding, plus per-encoding and per-region-type partition counts — the same tabular-report
// shape this tool's teacher used for segment statistics, applied to
// partitions instead.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"ridx/partition"
)

func main() {
	path := flag.String("path", "", "Path to the partitioned index file")
	flag.Parse()

	if *path == "" {
		log.Fatalf("Input file path must be specified using the -path flag")
	}

	f, err := os.Open(*path)
	if err != nil {
		log.Fatalf("Error opening %s: %v", *path, err)
	}
	defer f.Close()

	reader, err := partition.Open(f)
	if err != nil {
		log.Fatalf("Error opening index %s: %v", *path, err)
	}

	printStats(reader)
}

func printStats(reader *partition.Reader) {
	fmt.Printf("\n+============== Stats ===============\n\n")
	fmt.Printf("Total Partitions: %d\n\n", reader.NumPartitions())

	fmt.Printf("Partition\tDomain\t\tRegion Type\tIndex Encoding\n")
	fmt.Printf("---------\t------\t\t-----------\t--------------\n")

	encodingCounts := make(map[string]int)
	regionTypeCounts := make(map[string]int)

	for i := 0; i < reader.NumPartitions(); i++ {
		meta, err := reader.Metadata(i)
		if err != nil {
			log.Fatalf("Error reading partition %d metadata: %v", i, err)
		}
		domain := fmt.Sprintf("[%d,%d)", meta.DomainOffset, meta.DomainOffset+meta.DomainLength)
		fmt.Printf("%d\t\t%-15s\t%-11s\t%s\n", i, domain, meta.RegionType.String(), meta.Encoding.Name())
		encodingCounts[meta.Encoding.Name()]++
		regionTypeCounts[meta.RegionType.String()]++
	}

	fmt.Printf("\nPartitions by index encoding:\n")
	for name, count := range encodingCounts {
		fmt.Printf("  %-15s %d\n", name, count)
	}

	fmt.Printf("\nPartitions by region type:\n")
	for name, count := range regionTypeCounts {
		fmt.Printf("  %-15s %d\n", name, count)
	}
}
