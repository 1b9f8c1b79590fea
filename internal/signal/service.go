package signal

// SignalStrength is the consensus classification across the three measures.
type SignalStrength string

const (
	StrengthStrong   SignalStrength = "strong"
	StrengthModerate SignalStrength = "moderate"
	StrengthWeak     SignalStrength = "weak"
	StrengthNone     SignalStrength = "none"
)

// ClassifySignal grades a signal by simple majority of the three measures:
// 3/3 strong, 2/3 moderate, 1/3 weak, 0/3 none.
func ClassifySignal(prr, ror, ebgm bool) SignalStrength {
	count := 0
	for _, s := range []bool{prr, ror, ebgm} {
		if s {
			count++
		}
	}
	switch count {
	case 3:
		return StrengthStrong
	case 2:
		return StrengthModerate
	case 1:
		return StrengthWeak
	default:
		return StrengthNone
	}
}

// Config holds signal detection configuration.
type Config struct {
	EBGM EBGMConfig
}

// DefaultConfig returns default configuration.
func DefaultConfig() Config {
	return Config{EBGM: DefaultEBGMConfig()}
}

// Service evaluates all three disproportionality measures plus the consensus
// classification in one call.
type Service struct {
	config Config
}

// NewService creates a new signal detection service.
func NewService(config Config) *Service {
	if config.EBGM.MaxIter <= 0 {
		config.EBGM.MaxIter = DefaultEBGMConfig().MaxIter
	}
	if config.EBGM.Tol <= 0 {
		config.EBGM.Tol = DefaultEBGMConfig().Tol
	}
	return &Service{config: config}
}

// Assessment bundles the three measures and their consensus. A measure that
// could not be computed carries insufficient_data status and does not count
// toward the consensus.
type Assessment struct {
	Table     ContingencyTable `json:"table"`
	PRR       PRRResult        `json:"prr"`
	ROR       RORResult        `json:"ror"`
	EBGM      EBGMResult       `json:"ebgm"`
	Consensus SignalStrength   `json:"consensus"`
}

// Evaluate runs PRR, ROR and EBGM on the table and classifies the consensus.
func (s *Service) Evaluate(table ContingencyTable) (Assessment, error) {
	prr, err := ComputePRR(table)
	if err != nil {
		return Assessment{}, err
	}
	ror, err := ComputeROR(table)
	if err != nil {
		return Assessment{}, err
	}
	ebgm, err := ComputeEBGM(table, s.config.EBGM)
	if err != nil {
		return Assessment{}, err
	}

	return Assessment{
		Table:     table,
		PRR:       prr,
		ROR:       ror,
		EBGM:      ebgm,
		Consensus: ClassifySignal(prr.Signal, ror.Signal, ebgm.Signal),
	}, nil
}
