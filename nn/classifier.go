// Package nn wraps an mlp.Network in a classifier that owns the multi-epoch
// training loop, inference defaults and model persistence.
package nn

import (
	"math"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"fcnet/mlp"
	"fcnet/utils"
)

// EpochStats is reported after every training epoch.
type EpochStats struct {
	Epoch     int     // zero-based
	Alpha     float64 // learning rate the epoch ran with
	NextAlpha float64 // learning rate after decay
	Loss      float64 // training loss after the epoch, NaN unless requested
}

type config struct {
	seed       uint64
	onEpoch    func(EpochStats)
	reportLoss bool
}

// Option configures a Classifier.
type Option func(*config)

// WithSeed seeds parameter initialization.
func WithSeed(seed uint64) Option {
	return func(c *config) { c.seed = seed }
}

// WithEpochHook registers fn to run after every training epoch. When loss is
// set the training loss is computed for it, at the cost of one extra forward
// pass over the dataset.
func WithEpochHook(fn func(EpochStats), loss bool) Option {
	return func(c *config) {
		c.onEpoch = fn
		c.reportLoss = loss
	}
}

// Classifier is a multi-label sigmoid network. It is not safe for concurrent
// use.
type Classifier struct {
	net   *mlp.Network
	cfg   config
	batch int // inference chunk size, 0 until trained or set

	mean, std []float64 // feature statistics kept with the model

	Stats utils.TimingStats
}

// New creates a classifier for the given layer sizes with random parameters.
func New(sizes []int, opts ...Option) (*Classifier, error) {
	c := &Classifier{cfg: config{seed: 1}}
	for _, opt := range opts {
		opt(&c.cfg)
	}

	start := time.Now()
	net, err := mlp.NewNetwork(sizes, c.cfg.seed)
	if err != nil {
		return nil, err
	}
	c.Stats.ModelInitTime = time.Since(start)
	c.net = net
	return c, nil
}

// FromParams creates a classifier with the given parameters.
func FromParams(sizes []int, params []mlp.LayerParams, opts ...Option) (*Classifier, error) {
	c := &Classifier{cfg: config{seed: 1}}
	for _, opt := range opts {
		opt(&c.cfg)
	}
	net, err := mlp.FromParams(sizes, params)
	if err != nil {
		return nil, err
	}
	c.net = net
	return c, nil
}

func (c *Classifier) Sizes() []int { return c.net.Sizes() }

// BatchSize is the chunk size PredictProb forwards with. 0 means the whole
// input at once.
func (c *Classifier) BatchSize() int { return c.batch }

// SetBatchSize overrides the inference chunk size.
func (c *Classifier) SetBatchSize(n int) error {
	if n < 0 {
		return errors.Wrapf(mlp.ErrInvalidConfiguration, "batch size must not be negative, got %d", n)
	}
	c.batch = n
	return nil
}

// Standardization returns the per-feature mean and standard deviation stored
// with the model, or nils. The classifier does not apply them; callers
// transform features before PredictProb.
func (c *Classifier) Standardization() (mean, std []float64) {
	return c.mean, c.std
}

// SetStandardization stores feature statistics to be saved with the model.
// Both must be empty or have one entry per feature.
func (c *Classifier) SetStandardization(mean, std []float64) error {
	if len(mean) == 0 && len(std) == 0 {
		c.mean, c.std = nil, nil
		return nil
	}
	if n := c.net.NumFeatures(); len(mean) != n || len(std) != n {
		return errors.Wrapf(mlp.ErrShapeMismatch, "standardization has %d means and %d deviations for %d features", len(mean), len(std), n)
	}
	c.mean = append([]float64(nil), mean...)
	c.std = append([]float64(nil), std...)
	return nil
}

// Train runs cfg.MaxIter epochs of mini-batch gradient descent. Every epoch
// shuffles the rows with a source seeded from cfg.Seed, so a run is
// reproducible, then multiplies the learning rate by cfg.Decay.
//
// All checks happen before the first epoch. After that an error is not
// expected and parameters are left as the last batch wrote them.
func (c *Classifier) Train(x, y mat.Matrix, cfg utils.TrainConfig) error {
	if err := utils.ValidateTrainConfig(&cfg); err != nil {
		return err
	}
	n, err := c.checkDataset(x, y)
	if err != nil {
		return err
	}
	if n%cfg.BatchSize != 0 {
		return errors.Wrapf(mlp.ErrInvalidConfiguration, "%d samples do not divide into batches of %d", n, cfg.BatchSize)
	}

	start := time.Now()
	xs, ys := mat.DenseCopyOf(x), mat.DenseCopyOf(y)
	rnd := rand.New(rand.NewSource(cfg.Seed))
	alpha := cfg.Alpha

	utils.Logf("Training %v on %d samples: %d epochs, batch %d, alpha %g, lamb %g, decay %g\n",
		c.net.Sizes(), n, cfg.MaxIter, cfg.BatchSize, cfg.Alpha, cfg.Lamb, cfg.Decay)

	for epoch := 0; epoch < cfg.MaxIter; epoch++ {
		t := time.Now()
		perm := rnd.Perm(n)
		xs.PermuteRows(perm, false)
		ys.PermuteRows(perm, false)
		c.Stats.ShuffleTime += time.Since(t)

		t = time.Now()
		if err := c.net.Epoch(xs, ys, cfg.BatchSize, alpha, cfg.Lamb); err != nil {
			return errors.Wrapf(err, "epoch %d", epoch)
		}
		c.Stats.EpochTime += time.Since(t)

		stats := EpochStats{Epoch: epoch, Alpha: alpha, NextAlpha: alpha * cfg.Decay, Loss: math.NaN()}
		if c.cfg.reportLoss || utils.Verbose {
			p, err := c.net.Predict(xs, cfg.BatchSize)
			if err != nil {
				return err
			}
			stats.Loss = LogisticLoss(p, ys)
		}
		utils.Logf("Epoch %d: alpha %.6g, loss %.6f\n", epoch+1, alpha, stats.Loss)
		if c.cfg.onEpoch != nil {
			c.cfg.onEpoch(stats)
		}
		alpha = stats.NextAlpha
	}

	c.batch = cfg.BatchSize
	c.Stats.TotalTime += time.Since(start)
	return nil
}

func (c *Classifier) checkDataset(x, y mat.Matrix) (int, error) {
	xr, xc := x.Dims()
	yr, yc := y.Dims()
	switch {
	case xc != c.net.NumFeatures():
		return 0, errors.Wrapf(mlp.ErrShapeMismatch, "features have %d columns, network expects %d", xc, c.net.NumFeatures())
	case yc != c.net.NumLabels():
		return 0, errors.Wrapf(mlp.ErrShapeMismatch, "labels have %d columns, network expects %d", yc, c.net.NumLabels())
	case xr != yr:
		return 0, errors.Wrapf(mlp.ErrShapeMismatch, "%d feature rows but %d label rows", xr, yr)
	case xr == 0:
		return 0, errors.Wrap(mlp.ErrShapeMismatch, "dataset has no rows")
	}
	return xr, nil
}

// PredictProb returns one row of per-label probabilities for every row of x.
// The rows are independent sigmoid outputs and need not sum to 1.
func (c *Classifier) PredictProb(x mat.Matrix) (*mat.Dense, error) {
	start := time.Now()
	batch := c.batch
	if batch == 0 {
		batch, _ = x.Dims()
	}
	if batch == 0 {
		return nil, errors.Wrap(mlp.ErrShapeMismatch, "features have no rows")
	}
	p, err := c.net.Predict(x, batch)
	if err != nil {
		return nil, err
	}
	c.Stats.InferenceTime += time.Since(start)
	return p, nil
}

// PredictLabel returns the index of the most probable label for every row of
// x. Ties go to the lowest index.
func (c *Classifier) PredictLabel(x mat.Matrix) ([]int, error) {
	p, err := c.PredictProb(x)
	if err != nil {
		return nil, err
	}
	return Argmax(p), nil
}

// Argmax returns the column of the first maximum of every row of p.
func Argmax(p *mat.Dense) []int {
	r, _ := p.Dims()
	labels := make([]int, r)
	for i := range labels {
		labels[i] = floats.MaxIdx(p.RawRowView(i))
	}
	return labels
}

// Params returns copies of the parameters of every layer, output layer
// included.
func (c *Classifier) Params() []mlp.LayerParams { return c.net.Params() }

// SetParams replaces all parameters, or none when any shape disagrees.
func (c *Classifier) SetParams(params []mlp.LayerParams) error {
	return c.net.SetParams(params)
}
