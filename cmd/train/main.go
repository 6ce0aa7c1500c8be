// fcnet-train: trains a sigmoid network on a label-first CSV file
//
// Usage:
//
//	fcnet-train --data=train.csv --arch="784 64 10" --epochs=30 --batch=10 --output=model.gob
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"fcnet/nn"
	"fcnet/tensor"
	"fcnet/utils"
)

var (
	dataFile     = flag.String("data", "", "Training CSV (label first, then features)")
	arch         = flag.String("arch", "", "Layer sizes, e.g. \"784 64 10\"")
	epochs       = flag.Int("epochs", 100, "Number of training epochs")
	batchSize    = flag.Int("batch", 10, "Mini-batch size, must divide the sample count")
	learningRate = flag.Float64("lr", 0.5, "Initial learning rate")
	lamb         = flag.Float64("lambda", 0, "L2 regularization")
	decay        = flag.Float64("decay", 1, "Learning rate decay per epoch")
	scale        = flag.Float64("scale", 1, "Divide every feature by this value")
	standardize  = flag.Bool("standardize", false, "Standardize features and save the statistics with the model")
	seed         = flag.Uint64("seed", 42, "Random seed for initialization and shuffling")
	verbose      = flag.Bool("verbose", false, "Verbose output")
	outputFile   = flag.String("output", "model.gob", "Output model file")
	weightsFile  = flag.String("weights", "", "Optional JSON weights export")
)

func main() {
	flag.Parse()
	utils.Verbose = *verbose
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	sizes, err := utils.ParseArchitecture(*arch)
	if err != nil {
		return err
	}
	if err := utils.ValidateArchitecture(sizes); err != nil {
		return err
	}
	cfg := utils.TrainConfig{
		MaxIter:   *epochs,
		BatchSize: *batchSize,
		Alpha:     *learningRate,
		Lamb:      *lamb,
		Decay:     *decay,
		Seed:      *seed,
	}
	if err := utils.ValidateTrainConfig(&cfg); err != nil {
		return err
	}

	fmt.Printf("Configuration:\n")
	fmt.Printf("  Architecture:  %v\n", sizes)
	fmt.Printf("  Epochs:        %d\n", cfg.MaxIter)
	fmt.Printf("  Batch size:    %d\n", cfg.BatchSize)
	fmt.Printf("  Learning Rate: %.4f (decay %.4f)\n", cfg.Alpha, cfg.Decay)
	fmt.Printf("  Lambda:        %.4f\n", cfg.Lamb)
	fmt.Println()

	totalStart := time.Now()
	start := time.Now()
	ds, err := tensor.LoadCSV(*dataFile, sizes[0], *scale)
	if err != nil {
		return err
	}
	y, err := ds.Targets(sizes[len(sizes)-1])
	if err != nil {
		return err
	}
	loadTime := time.Since(start)
	fmt.Printf("Loaded %d samples from %s\n", ds.Len(), *dataFile)

	clf, err := nn.New(sizes, nn.WithSeed(*seed))
	if err != nil {
		return err
	}
	if *standardize {
		mean, std := tensor.Standardize(ds.X)
		if err := clf.SetStandardization(mean, std); err != nil {
			return err
		}
		fmt.Println("Features standardized")
	}
	if err := clf.Train(ds.X, y, cfg); err != nil {
		return err
	}

	labels, err := clf.PredictLabel(ds.X)
	if err != nil {
		return err
	}
	p, err := clf.PredictProb(ds.X)
	if err != nil {
		return err
	}
	fmt.Printf("Training loss: %.6f, accuracy: %.2f%%\n", nn.LogisticLoss(p, y), nn.Accuracy(labels, ds.Labels)*100)

	f, err := os.Create(*outputFile)
	if err != nil {
		return err
	}
	if err := nn.Dump(f, clf); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Printf("Model saved to %s\n", *outputFile)

	if *weightsFile != "" {
		if err := utils.SaveWeights(*weightsFile, utils.ParamsToWeights(clf.Sizes(), clf.Params())); err != nil {
			return err
		}
		fmt.Printf("Weights saved to %s\n", *weightsFile)
	}

	stats := clf.Stats
	stats.DataLoadingTime = loadTime
	stats.TotalTime = time.Since(totalStart)
	utils.PrintTimingStats(&stats, cfg.MaxIter)
	return nil
}
