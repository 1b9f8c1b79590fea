package mitigation

import (
	"fmt"
	"math"
	"math/rand/v2"
	"runtime"
	"sort"

	"github.com/montanaflynn/stats"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/meridianbio/riskcore/internal/bayes"
	"github.com/meridianbio/riskcore/internal/numerics"
)

// chunkSize is the number of samples drawn from one seeded source. Chunked
// seeding keeps results bit-identical for a given seed regardless of how many
// workers run the chunks.
const chunkSize = 500

// SimulationConfig tunes the Monte Carlo propagation. Samples is a
// latency/precision trade-off: the standard error of the reported median
// shrinks proportionally to 1/sqrt(samples).
type SimulationConfig struct {
	Samples int    `json:"samples"`
	Seed    uint64 `json:"seed"`
	Workers int    `json:"workers"`
	Batches int    `json:"batches"`
}

// DefaultSimulationConfig trades some precision for bounded response time.
func DefaultSimulationConfig(seed uint64) SimulationConfig {
	return SimulationConfig{
		Samples: 5000,
		Seed:    seed,
		Workers: runtime.GOMAXPROCS(0),
		Batches: 20,
	}
}

// SimulationResult summarizes the mitigated-risk distribution. MedianSE is a
// convergence diagnostic, not an error condition: callers judge whether to
// rerun with more samples.
type SimulationResult struct {
	Samples    int         `json:"samples"`
	Mean       float64     `json:"mean"`
	Median     float64     `json:"median"`
	CILow      float64     `json:"ci_low"`
	CIHigh     float64     `json:"ci_high"`
	MedianSE   float64     `json:"median_se"`
	MergeTrace []MergeStep `json:"merge_trace"`
}

// SimulateMitigatedRisk propagates uncertainty through the correlated
// combination: each draw samples a baseline rate from the Beta posterior and
// each strategy's relative risk from a LogNormal matched to its reported
// interval, then folds the draws along the same deterministic merge order the
// point combination uses. Chunks are embarrassingly parallel.
func SimulateMitigatedRisk(post bayes.Posterior, strategies []Strategy, corr *CorrelationMatrix, cfg SimulationConfig) (SimulationResult, error) {
	if post.Alpha <= 0 || post.Beta <= 0 {
		return SimulationResult{}, fmt.Errorf("%w: posterior beta(%g, %g)", numerics.ErrInvalidParameters, post.Alpha, post.Beta)
	}
	if cfg.Samples <= 0 {
		cfg.Samples = DefaultSimulationConfig(cfg.Seed).Samples
	}
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.GOMAXPROCS(0)
	}
	if cfg.Batches <= 1 {
		cfg.Batches = 20
	}

	// The merge order is fixed up front from the point estimates and reused
	// for every draw; only the sampled values vary.
	combination, err := CombineStrategies(strategies, corr)
	if err != nil {
		return SimulationResult{}, err
	}

	// Strategies are sampled in sorted-id order within each draw so the
	// stream of variates is reproducible.
	ordered := make([]Strategy, len(strategies))
	copy(ordered, strategies)
	sortStrategies(ordered)

	lognormals := make([]struct {
		id        string
		mu, sigma float64
	}, len(ordered))
	for i, s := range ordered {
		mu, sigma, err := numerics.LogNormalFromCI(s.RelativeRisk, s.CILow, s.CIHigh)
		if err != nil {
			return SimulationResult{}, fmt.Errorf("strategy %s: %w", s.ID, err)
		}
		lognormals[i].id = s.ID
		lognormals[i].mu = mu
		lognormals[i].sigma = sigma
	}

	pooled := make([]float64, cfg.Samples)
	numChunks := (cfg.Samples + chunkSize - 1) / chunkSize

	var g errgroup.Group
	g.SetLimit(cfg.Workers)
	for chunk := 0; chunk < numChunks; chunk++ {
		start := chunk * chunkSize
		end := start + chunkSize
		if end > cfg.Samples {
			end = cfg.Samples
		}
		src := rand.NewPCG(cfg.Seed, uint64(chunk))
		g.Go(func() error {
			baseline := distuv.Beta{Alpha: post.Alpha, Beta: post.Beta, Src: src}
			draws := make(map[string]float64, len(lognormals)+len(combination.MergeTrace))
			for i := start; i < end; i++ {
				rate := baseline.Rand()
				for _, ln := range lognormals {
					draws[ln.id] = distuv.LogNormal{Mu: ln.mu, Sigma: ln.sigma, Src: src}.Rand()
				}
				risk := rate * applyTrace(draws, combination.MergeTrace)
				if risk > 1 {
					risk = 1
				}
				pooled[i] = risk
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return SimulationResult{}, err
	}

	return summarize(pooled, cfg, combination.MergeTrace)
}

// applyTrace folds sampled relative risks along the recorded merge order.
func applyTrace(draws map[string]float64, trace []MergeStep) float64 {
	var last float64
	for _, step := range trace {
		combined := combineRR(draws[step.Left], draws[step.Right], step.Rho)
		draws[step.ResultID] = combined
		last = combined
	}
	return last
}

// combineRR is the pairwise formula without input validation; sampled values
// are positive by construction and rho was validated when the matrix was built.
func combineRR(a, b, rho float64) float64 {
	switch rho {
	case 0:
		return a * b
	case 1:
		return math.Min(a, b)
	}
	return math.Pow(a*b, 1-rho) * math.Pow(math.Min(a, b), rho)
}

func summarize(pooled []float64, cfg SimulationConfig, trace []MergeStep) (SimulationResult, error) {
	mean, err := stats.Mean(pooled)
	if err != nil {
		return SimulationResult{}, fmt.Errorf("%w: %v", numerics.ErrNumericalInstability, err)
	}
	median, err := stats.Median(pooled)
	if err != nil {
		return SimulationResult{}, fmt.Errorf("%w: %v", numerics.ErrNumericalInstability, err)
	}
	low, err := stats.Percentile(pooled, 2.5)
	if err != nil {
		return SimulationResult{}, fmt.Errorf("%w: %v", numerics.ErrNumericalInstability, err)
	}
	high, err := stats.Percentile(pooled, 97.5)
	if err != nil {
		return SimulationResult{}, fmt.Errorf("%w: %v", numerics.ErrNumericalInstability, err)
	}

	se, err := batchMedianSE(pooled, cfg.Batches)
	if err != nil {
		return SimulationResult{}, err
	}

	return SimulationResult{
		Samples:    len(pooled),
		Mean:       mean,
		Median:     median,
		CILow:      low,
		CIHigh:     high,
		MedianSE:   se,
		MergeTrace: trace,
	}, nil
}

// batchMedianSE estimates the standard error of the reported median by batch
// means: the pooled samples are split into consecutive batches, and the
// spread of per-batch medians gives the diagnostic.
func batchMedianSE(pooled []float64, batches int) (float64, error) {
	if batches > len(pooled) {
		batches = len(pooled)
	}
	size := len(pooled) / batches
	medians := make([]float64, 0, batches)
	for b := 0; b < batches; b++ {
		start := b * size
		end := start + size
		if b == batches-1 {
			end = len(pooled)
		}
		m, err := stats.Median(pooled[start:end])
		if err != nil {
			return 0, fmt.Errorf("%w: %v", numerics.ErrNumericalInstability, err)
		}
		medians = append(medians, m)
	}

	sd, err := stats.StandardDeviationSample(medians)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", numerics.ErrNumericalInstability, err)
	}
	return sd / math.Sqrt(float64(batches)), nil
}

func sortStrategies(strategies []Strategy) {
	sort.Slice(strategies, func(i, j int) bool { return strategies[i].ID < strategies[j].ID })
}
