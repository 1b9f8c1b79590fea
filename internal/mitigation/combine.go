package mitigation

import (
	"fmt"
	"math"
	"sort"
)

// CombineCorrelatedRR combines two relative risks under mechanistic overlap
// rho:
//
//	rr = (a*b)^(1-rho) * min(a,b)^rho
//
// At rho=0 this is the independent multiplicative product; at rho=1 the two
// interventions are fully redundant and the better one wins.
func CombineCorrelatedRR(a, b, rho float64) (float64, error) {
	if a <= 0 || b <= 0 {
		return 0, fmt.Errorf("%w: relative risks (%g, %g)", ErrInvalidStrategy, a, b)
	}
	if rho < 0 || rho > 1 {
		return 0, fmt.Errorf("%w: rho = %g", ErrInvalidCorrelation, rho)
	}

	// Evaluate the boundaries exactly rather than through Pow, so rho=0 and
	// rho=1 reproduce the product and the minimum bit-for-bit.
	switch rho {
	case 0:
		return a * b, nil
	case 1:
		return math.Min(a, b), nil
	}
	return math.Pow(a*b, 1-rho) * math.Pow(math.Min(a, b), rho), nil
}

// workingStrategy carries a possibly synthetic strategy through the greedy
// reduction. leaves are the original strategy ids folded into it; the
// correlation of two composites is the maximum correlation across their
// leaf pairs, since overlap with either mechanism is overlap with the
// composite.
type workingStrategy struct {
	id     string
	rr     float64
	leaves []string
}

// CombineStrategies greedily merges the pair with the highest correlation
// until one synthetic strategy remains, recording every merge. Ties on
// correlation break on the lexically smallest pair of ids, which makes the
// merge order, and therefore the result, deterministic.
func CombineStrategies(strategies []Strategy, corr *CorrelationMatrix) (CombinationResult, error) {
	if len(strategies) < 2 {
		return CombinationResult{}, fmt.Errorf("%w: got %d", ErrInsufficientStrategies, len(strategies))
	}

	working := make([]workingStrategy, 0, len(strategies))
	seen := make(map[string]bool, len(strategies))
	for _, s := range strategies {
		if err := s.Validate(); err != nil {
			return CombinationResult{}, err
		}
		if seen[s.ID] {
			return CombinationResult{}, fmt.Errorf("%w: duplicate id %q", ErrInvalidStrategy, s.ID)
		}
		seen[s.ID] = true
		working = append(working, workingStrategy{id: s.ID, rr: s.RelativeRisk, leaves: []string{s.ID}})
	}
	sortByID(working)

	var trace []MergeStep
	for len(working) > 1 {
		li, ri := selectPair(working, corr)
		left, right := working[li], working[ri]
		rho := compositeRho(corr, left, right)

		combined, err := CombineCorrelatedRR(left.rr, right.rr, rho)
		if err != nil {
			return CombinationResult{}, err
		}

		merged := workingStrategy{
			id:     left.id + "+" + right.id,
			rr:     combined,
			leaves: append(append([]string{}, left.leaves...), right.leaves...),
		}
		trace = append(trace, MergeStep{
			Left:       left.id,
			Right:      right.id,
			Rho:        rho,
			CombinedRR: combined,
			ResultID:   merged.id,
		})

		// Remove the higher index first so the lower one stays valid.
		working = append(working[:ri], working[ri+1:]...)
		working[li] = merged
		sortByID(working)
	}

	return CombinationResult{
		CombinedRR: working[0].rr,
		MergeTrace: trace,
	}, nil
}

func sortByID(working []workingStrategy) {
	sort.Slice(working, func(i, j int) bool { return working[i].id < working[j].id })
}

// selectPair returns the indices of the pair with the highest correlation.
// working is sorted by id, so scanning i<j visits candidate pairs in lexical
// order and a strict > comparison implements the tie-break.
func selectPair(working []workingStrategy, corr *CorrelationMatrix) (int, int) {
	bestI, bestJ := 0, 1
	bestRho := math.Inf(-1)
	for i := 0; i < len(working); i++ {
		for j := i + 1; j < len(working); j++ {
			rho := compositeRho(corr, working[i], working[j])
			if rho > bestRho {
				bestI, bestJ, bestRho = i, j, rho
			}
		}
	}
	return bestI, bestJ
}

func compositeRho(corr *CorrelationMatrix, a, b workingStrategy) float64 {
	best := 0.0
	for _, x := range a.leaves {
		for _, y := range b.leaves {
			if r := corr.Rho(x, y); r > best {
				best = r
			}
		}
	}
	return best
}
