// fcnet-infer: runs a trained model over a label-first CSV file, optionally
// with the first layer evaluated under CKKS encryption
//
// Usage:
//
//	fcnet-infer --model=model.gob --data=test.csv --encrypted
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"fcnet/core/ckkswrapper"
	"fcnet/nn"
	"fcnet/split"
	"fcnet/tensor"
	"fcnet/utils"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

var (
	modelFile   = flag.String("model", "", "Model file written by fcnet-train")
	weightsFile = flag.String("weights", "", "JSON weights file, used when no model file is given")
	dataFile    = flag.String("data", "", "CSV to classify (label first, then features)")
	scale       = flag.Float64("scale", 1, "Divide every feature by this value")
	encrypted   = flag.Bool("encrypted", false, "Evaluate the first layer under CKKS")
	verbose     = flag.Bool("verbose", false, "Verbose output")
	show        = flag.Int("show", 10, "Predictions to print")
)

func main() {
	flag.Parse()
	utils.Verbose = *verbose
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadModel() (*nn.Classifier, error) {
	if *modelFile != "" {
		f, err := os.Open(*modelFile)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return nn.Load(f)
	}
	if *weightsFile == "" {
		return nil, errors.New("one of -model or -weights is required")
	}
	w, err := utils.LoadWeights(*weightsFile)
	if err != nil {
		return nil, err
	}
	sizes, params, err := utils.WeightsToParams(w)
	if err != nil {
		return nil, err
	}
	return nn.FromParams(sizes, params)
}

func run() error {
	totalStart := time.Now()
	clf, err := loadModel()
	if err != nil {
		return err
	}
	sizes := clf.Sizes()
	fmt.Printf("Loaded model %v\n", sizes)

	start := time.Now()
	ds, err := tensor.LoadCSV(*dataFile, sizes[0], *scale)
	if err != nil {
		return err
	}
	stats := utils.TimingStats{DataLoadingTime: time.Since(start)}
	if mean, std := clf.Standardization(); mean != nil {
		tensor.ApplyStandardization(ds.X, mean, std)
	}

	var p *mat.Dense
	if *encrypted {
		p, err = encryptedPredict(clf, ds.X, &stats)
	} else {
		start = time.Now()
		p, err = clf.PredictProb(ds.X)
		stats.InferenceTime = time.Since(start)
	}
	if err != nil {
		return err
	}

	labels := nn.Argmax(p)
	for i := 0; i < len(labels) && i < *show; i++ {
		fmt.Printf("  sample %d: predicted %d (p=%.4f), actual %d\n", i, labels[i], p.At(i, labels[i]), ds.Labels[i])
	}
	fmt.Printf("Accuracy: %.2f%% over %d samples\n", nn.Accuracy(labels, ds.Labels)*100, ds.Len())
	perSample := stats.InferenceTime + stats.EncryptionTime + stats.ServerTime + stats.DecryptionTime
	fmt.Printf("Latency: %.1fµs per sample\n", utils.DurationUS(perSample)/float64(ds.Len()))

	stats.TotalTime = time.Since(totalStart)
	utils.PrintTimingStats(&stats, 0)
	return nil
}

func encryptedPredict(clf *nn.Classifier, x mat.Matrix, stats *utils.TimingStats) (*mat.Dense, error) {
	fmt.Println("Initializing HE context...")
	start := time.Now()
	he, err := ckkswrapper.NewHeContext(ckkswrapper.DefaultLiteral)
	if err != nil {
		return nil, err
	}
	kit, err := he.GenServerKit(clf.Sizes()[0] + 1)
	if err != nil {
		return nil, err
	}
	stats.HEInitTime = time.Since(start)
	fmt.Printf("HE initialization: %.2fs\n", stats.HEInitTime.Seconds())

	head, restSizes, restParams := split.Partition(clf.Sizes(), clf.Params())
	server, err := split.NewServer(kit, head)
	if err != nil {
		return nil, err
	}
	client, err := split.NewClient(he, restSizes, restParams)
	if err != nil {
		return nil, err
	}
	fmt.Printf("Server evaluates layer %d→%d under encryption\n", server.Features(), server.Units())
	p, err := split.RunLocal(server, client, x)
	if err != nil {
		return nil, err
	}
	stats.EncryptionTime = client.Stats.EncryptionTime
	stats.DecryptionTime = client.Stats.DecryptionTime
	stats.ServerTime = client.Stats.ServerTime
	stats.InferenceTime = client.Stats.InferenceTime
	return p, nil
}
