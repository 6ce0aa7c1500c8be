package utils

import (
	"fmt"
	"io"
	"os"
	"time"
)

// Verbose controls whether progress and timing statistics are printed.
var Verbose = false

// Output is the writer where progress and timing statistics are printed.
// Defaults to os.Stdout.
var Output io.Writer = os.Stdout

// TimingStats holds timing information for a training or inference run
type TimingStats struct {
	TotalTime       time.Duration
	DataLoadingTime time.Duration
	ModelInitTime   time.Duration
	ShuffleTime     time.Duration
	EpochTime       time.Duration
	InferenceTime   time.Duration
	HEInitTime      time.Duration
	EncryptionTime  time.Duration
	ServerTime      time.Duration
	DecryptionTime  time.Duration
}

// Logf prints a progress line when Verbose is set.
func Logf(format string, args ...any) {
	if !Verbose {
		return
	}
	fmt.Fprintf(Output, format, args...)
}

func percent(part, total time.Duration) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) / float64(total) * 100
}

// PrintTimingStats prints detailed timing statistics.
// Respects the Verbose flag - does nothing if Verbose is false.
func PrintTimingStats(stats *TimingStats, epochs int) {
	if !Verbose {
		return
	}
	fmt.Fprintln(Output, "\n=== TIMING STATISTICS ===")
	fmt.Fprintf(Output, "Total time: %v\n", stats.TotalTime)
	if epochs > 0 {
		fmt.Fprintf(Output, "Average time per epoch: %v\n", stats.EpochTime/time.Duration(epochs))
		fmt.Fprintf(Output, "Epochs completed: %d\n", epochs)
	}
	fmt.Fprintln(Output, "\nBreakdown by operation:")
	fmt.Fprintf(Output, "  Data loading: %v (%.1f%%)\n", stats.DataLoadingTime, percent(stats.DataLoadingTime, stats.TotalTime))
	fmt.Fprintf(Output, "  Model initialization: %v (%.1f%%)\n", stats.ModelInitTime, percent(stats.ModelInitTime, stats.TotalTime))
	fmt.Fprintf(Output, "  Shuffling: %v (%.1f%%)\n", stats.ShuffleTime, percent(stats.ShuffleTime, stats.TotalTime))
	fmt.Fprintf(Output, "  Epochs: %v (%.1f%%)\n", stats.EpochTime, percent(stats.EpochTime, stats.TotalTime))
	fmt.Fprintf(Output, "  Inference: %v (%.1f%%)\n", stats.InferenceTime, percent(stats.InferenceTime, stats.TotalTime))
	if stats.HEInitTime+stats.EncryptionTime+stats.ServerTime+stats.DecryptionTime == 0 {
		return
	}
	fmt.Fprintln(Output, "\nSplit inference breakdown:")
	fmt.Fprintf(Output, "  HE initialization: %v (%.1f%%)\n", stats.HEInitTime, percent(stats.HEInitTime, stats.TotalTime))
	fmt.Fprintf(Output, "  Encryption: %v (%.1f%%)\n", stats.EncryptionTime, percent(stats.EncryptionTime, stats.TotalTime))
	fmt.Fprintf(Output, "  Server: %v (%.1f%%)\n", stats.ServerTime, percent(stats.ServerTime, stats.TotalTime))
	fmt.Fprintf(Output, "  Decryption: %v (%.1f%%)\n", stats.DecryptionTime, percent(stats.DecryptionTime, stats.TotalTime))
}

// DurationUS converts any time.Duration to micro-seconds as float64
func DurationUS(d time.Duration) float64 {
	return float64(d.Nanoseconds()) / 1_000.0
}
