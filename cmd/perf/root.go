package perf

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/VictoriaMetrics/metrics"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/unguarded/rcu/cmd/util"
	"github.com/unguarded/rcu/lib/rcu"
	"github.com/unguarded/rcu/lib/rcu/graceful"
)

var (
	PerfCmd = &cobra.Command{
		Use:     "perf",
		Short:   "Benchmark the container variants in process",
		Long:    "",
		RunE:    run,
		PreRunE: processPerfConfig,
	}
	perfVariants    = make([]string, 0)
	perfSkip        = make([]string, 0)
	perfNumThreads  = 10
	perfShowMetrics = false
)

// payload is the value the benchmarks read and update. Both fields are
// written on every update so a torn publish would be visible.
type payload struct {
	A, B int
}

// sink keeps the compiler from eliding benchmark reads.
var sink int

func init() {
	// add flags
	key := "variants"
	PerfCmd.Flags().String(key, "all", util.WrapString("Variants to benchmark (comma separated - e.g. cell,sync-rcu,graceful)"))
	key = "skip"
	PerfCmd.Flags().String(key, "", util.WrapString("Benchmarks to skip (comma separated - e.g. deref,mixed)"))
	key = "threads"
	PerfCmd.Flags().Int(key, 10, util.WrapString("Number of threads to use for the thread-safe benchmarks"))
	key = "csv"
	PerfCmd.Flags().String(key, "", util.WrapString("Optional path to save benchmark results as CSV"))
	key = "show-metrics"
	PerfCmd.Flags().Bool(key, false, util.WrapString("Print the collected domain metrics in Prometheus format after the run"))
}

func processPerfConfig(cmd *cobra.Command, _ []string) error {
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}

	// Read the configuration from the command line flags and environment variables
	perfVariants = strings.Split(viper.GetString("variants"), ",")
	perfSkip = strings.Split(viper.GetString("skip"), ",")
	perfNumThreads = viper.GetInt("threads")
	perfShowMetrics = viper.GetBool("show-metrics")

	return nil
}

func run(_ *cobra.Command, _ []string) error {

	fmt.Println("Benchmark tool for the rcu container variants")

	// Print configuration
	fmt.Println()
	fmt.Println("Configuration:")
	fmt.Printf("Variants: %s\n", strings.Join(perfVariants, ","))
	fmt.Printf("Threads:  %d\n", perfNumThreads)
	fmt.Println()

	fmt.Println("starting benchmarks...")

	// Create results map
	results := make(map[string]testing.BenchmarkResult)

	for _, tgt := range makeTargets() {
		if !variantSelected(tgt.name) {
			continue
		}
		runTarget(tgt, results)
	}

	if variantSelected("graceful") {
		runGraceful(results)
	}

	// Write results to csv if specified
	if csvPath := viper.GetString("csv"); csvPath != "" {
		fmt.Printf("\nExporting results to CSV: %s\n", csvPath)
		if err := writeResultsToCSV(csvPath, results); err != nil {
			return fmt.Errorf("failed to export results to CSV: %v", err)
		}
		fmt.Println("Export complete")
	}

	// Dump domain metrics if requested
	if perfShowMetrics {
		fmt.Println()
		metrics.WritePrometheus(os.Stdout, false)
	}

	return nil
}

// --------------------------------------------------------------------------
// Benchmarks
// --------------------------------------------------------------------------

// target pairs a container instance with what the benchmarks may do
// with it. clone is nil for exclusive containers; threadSafe gates the
// parallel read benchmark.
type target struct {
	name       string
	threadSafe bool
	ptr        rcu.Pointer[payload]
	clone      func() rcu.Pointer[payload]
}

func makeTargets() []target {
	cell := rcu.NewCell(payload{})
	sharedCell := rcu.NewSharedCell(payload{})
	syncCell := rcu.NewSyncCell(payload{})
	plain := rcu.NewRcu(payload{})
	sharedRcu := rcu.NewSharedRcu(payload{})
	syncRcu := rcu.NewSyncRcu(payload{})

	return []target{
		{name: "cell", ptr: cell},
		{name: "shared-cell", ptr: sharedCell, clone: func() rcu.Pointer[payload] { return sharedCell.Clone() }},
		{name: "sync-cell", threadSafe: true, ptr: syncCell, clone: func() rcu.Pointer[payload] { return syncCell.Clone() }},
		{name: "rcu", ptr: plain},
		{name: "shared-rcu", ptr: sharedRcu, clone: func() rcu.Pointer[payload] { return sharedRcu.Clone() }},
		{name: "sync-rcu", threadSafe: true, ptr: syncRcu, clone: func() rcu.Pointer[payload] { return syncRcu.Clone() }},
	}
}

func runTarget(tgt target, results map[string]testing.BenchmarkResult) {
	if !shouldSkip("deref") {
		res := testing.Benchmark(func(b *testing.B) { benchDeref(b, tgt) })
		record(results, tgt.name+"/deref", res)
	}
	if !shouldSkip("update") {
		res := testing.Benchmark(func(b *testing.B) { benchUpdate(b, tgt) })
		record(results, tgt.name+"/update", res)
	}
	if !shouldSkip("mixed") {
		res := testing.Benchmark(func(b *testing.B) { benchMixed(b, tgt) })
		record(results, tgt.name+"/mixed", res)
	}
}

func benchDeref(b *testing.B, tgt target) {
	if tgt.threadSafe {
		b.SetParallelism(perfNumThreads)
		b.RunParallel(func(pb *testing.PB) {
			local := tgt.clone()
			for pb.Next() {
				sink = local.Deref().A
			}
			local.Clean()
		})
		return
	}
	for i := 0; i < b.N; i++ {
		sink = tgt.ptr.Deref().A
	}
}

// benchUpdate runs updates from a single goroutine. Shared variants
// tolerate only one update in flight, so there is no parallel version.
func benchUpdate(b *testing.B, tgt target) {
	for i := 0; i < b.N; i++ {
		g := tgt.ptr.Update()
		v := g.Value()
		v.A++
		v.B = v.A
		g.Release()
		tgt.ptr.Clean()
	}
}

// benchMixed interleaves one update into every eight operations, the
// read-mostly shape these containers are built for.
func benchMixed(b *testing.B, tgt target) {
	for i := 0; i < b.N; i++ {
		if i%8 == 0 {
			g := tgt.ptr.Update()
			v := g.Value()
			v.A++
			v.B = v.A
			g.Release()
			tgt.ptr.Clean()
		} else {
			sink = tgt.ptr.Deref().A
		}
	}
}

func runGraceful(results map[string]testing.BenchmarkResult) {
	if !shouldSkip("read") {
		res := testing.Benchmark(func(b *testing.B) {
			d := graceful.NewDomain(graceful.WithName("perf"))
			defer d.Close()
			r := graceful.New(d, payload{})

			b.SetParallelism(perfNumThreads)
			b.ResetTimer()
			b.RunParallel(func(pb *testing.PB) {
				for pb.Next() {
					g := d.Acquire()
					sink = r.Read(g).A
					g.Release()
				}
			})
		})
		record(results, "graceful/read", res)
	}
	if !shouldSkip("update") {
		res := testing.Benchmark(func(b *testing.B) {
			d := graceful.NewDomain(graceful.WithName("perf"))
			defer d.Close()
			r := graceful.New(d, payload{})

			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				r.Update(func(v *payload) {
					v.A++
					v.B = v.A
				})
			}
		})
		record(results, "graceful/update", res)
	}
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

func variantSelected(name string) bool {
	for _, v := range perfVariants {
		if v == "all" || v == name {
			return true
		}
	}
	return false
}

func shouldSkip(test string) bool {
	// Check if the test is in the skip list
	for _, skip := range perfSkip {
		if test == skip {
			return true
		}
	}
	return false
}

func record(results map[string]testing.BenchmarkResult, name string, result testing.BenchmarkResult) {
	results[name] = result
	printResult(name, result)
}

// printResult prints the result of a benchmark test in a formatted way
func printResult(test string, result testing.BenchmarkResult) {
	if result.NsPerOp() == 0 {
		fmt.Printf("%-24sskipped\n", test)
		return
	}

	nsPerOp := math.Max(float64(result.NsPerOp()), 1) // prevent division by zero
	opsPerSec := 1.0 / (nsPerOp / 1e9)

	// Print the formatted result
	fmt.Printf("%-24s%.0fns/op (%s/op)\t%.0f ops/sec\n", test, nsPerOp, time.Duration(nsPerOp), opsPerSec)
}

// writeResultsToCSV writes benchmark results to a CSV file
func writeResultsToCSV(csvPath string, results map[string]testing.BenchmarkResult) error {
	file, err := os.Create(csvPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %v", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	// Write header
	header := []string{
		"Test", "NsPerOp", "DurationPerOp", "OpsPerSec", "Skipped", "Threads",
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %v", err)
	}

	// Write test results in a stable order
	names := make([]string, 0, len(results))
	for name := range results {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, test := range names {
		result := results[test]

		var nsPerOp float64
		var opsPerSec float64
		var skipped string

		if result.NsPerOp() == 0 {
			skipped = "true"
			nsPerOp = 0
			opsPerSec = 0
		} else {
			skipped = "false"
			nsPerOp = math.Max(float64(result.NsPerOp()), 1)
			opsPerSec = 1.0 / (nsPerOp / 1e9)
		}

		row := []string{
			test,
			fmt.Sprintf("%.0f", nsPerOp),
			time.Duration(nsPerOp).String(),
			fmt.Sprintf("%.0f", opsPerSec),
			skipped,
			strconv.Itoa(perfNumThreads),
		}

		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write row for test %s: %v", test, err)
		}
	}

	return nil
}
