// Package evolution derives a trader's longitudinal assessment (level,
// phase and bottleneck) from the trade history.
package evolution

import (
	"github.com/rustyeddy/tradejournal/journal"
	"github.com/rustyeddy/tradejournal/rules"
	"github.com/rustyeddy/tradejournal/settings"
	"github.com/shopspring/decimal"
)

type Phase string

const (
	PhaseExploration   Phase = "exploration"
	PhaseConsolidation Phase = "consolidation"
	PhaseConsistency   Phase = "consistency"
	PhaseOptimization  Phase = "optimization"
)

var phaseNames = map[Phase]string{
	PhaseExploration:   "Exploration",
	PhaseConsolidation: "Consolidation",
	PhaseConsistency:   "Consistency",
	PhaseOptimization:  "Optimization",
}

// Dimension names a progress score. The string is what Bottleneck reports.
type Dimension string

const (
	DrawdownControl        Dimension = "drawdownControl"
	GreenMonths            Dimension = "greenMonths"
	OperationalConsistency Dimension = "operationalConsistency"
	RiskRespect            Dimension = "riskRespect"
)

// Dimensions in tie-break order.
var Dimensions = []Dimension{DrawdownControl, GreenMonths, OperationalConsistency, RiskRespect}

// Progress scores are percentages in [0, 100].
type Progress struct {
	DrawdownControl        float64 `json:"drawdownControl"`
	GreenMonths            float64 `json:"greenMonths"`
	OperationalConsistency float64 `json:"operationalConsistency"`
	RiskRespect            float64 `json:"riskRespect"`

	// ConsistencyIndeterminate is set when there are too few months to
	// judge consistency; OperationalConsistency is then 0.
	ConsistencyIndeterminate bool `json:"consistencyIndeterminate"`
}

func (p Progress) Score(d Dimension) float64 {
	switch d {
	case DrawdownControl:
		return p.DrawdownControl
	case GreenMonths:
		return p.GreenMonths
	case OperationalConsistency:
		return p.OperationalConsistency
	case RiskRespect:
		return p.RiskRespect
	}
	return 0
}

func (p Progress) min() float64 {
	m := p.Score(Dimensions[0])
	for _, d := range Dimensions[1:] {
		if v := p.Score(d); v < m {
			m = v
		}
	}
	return m
}

type Metrics struct {
	TotalMonths     int     `json:"totalMonths"`
	GreenMonths     int     `json:"greenMonths"`
	CurrentDrawdown float64 `json:"currentDrawdown"`
	MaxDrawdown     float64 `json:"maxDrawdown"`
	WinRate         float64 `json:"winRate"`
	AvgRMultiple    float64 `json:"avgRMultiple"`
	ClosedTrades    int     `json:"closedTrades"`
}

type Result struct {
	Level      int      `json:"level"`
	LevelName  string   `json:"levelName"`
	Phase      Phase    `json:"phase"`
	PhaseName  string   `json:"phaseName"`
	Bottleneck *string  `json:"bottleneck"`
	Progress   Progress `json:"progress"`
	Metrics    Metrics  `json:"metrics"`
}

// Classify runs ClassifyWith using DefaultConfig.
func Classify(all []journal.Trade, s settings.Settings) (Result, error) {
	return ClassifyWith(all, s, DefaultConfig())
}

// ClassifyWith assesses the whole history. Only closed trades count; with
// none the result is level 1, exploration, no bottleneck and zero scores.
// A malformed trade anywhere in the history is an error.
func ClassifyWith(all []journal.Trade, s settings.Settings, cfg Config) (Result, error) {
	if err := journal.ValidateAll(all); err != nil {
		return Result{}, err
	}

	var closed []journal.Trade
	for _, t := range all {
		if t.IsClosed() {
			closed = append(closed, t)
		}
	}
	if len(closed) == 0 {
		return baseline(cfg), nil
	}

	evaluations, err := rules.EvaluateAll(all, s)
	if err != nil {
		return Result{}, err
	}

	months := bucketMonths(closed, s.Location())
	initial := decimal.NewFromFloat(s.Balance())
	currentDD, maxDD := journal.Drawdowns(journal.EquityCurve(closed, initial, zeroTime), initial)

	m := Metrics{
		TotalMonths:     len(months),
		GreenMonths:     countGreen(months),
		CurrentDrawdown: round2(currentDD),
		MaxDrawdown:     round2(maxDD),
		WinRate:         round2(winRate(closed)),
		AvgRMultiple:    round2(avgR(closed)),
		ClosedTrades:    len(closed),
	}

	bound := cfg.DefaultMaxDrawdown
	if rm := s.RiskManagement(); rm != nil && rm.MaxDrawdown != nil && *rm.MaxDrawdown > 0 {
		bound = *rm.MaxDrawdown
	}

	p := Progress{
		DrawdownControl: drawdownControl(currentDD, bound),
		GreenMonths:     clamp(100 * float64(m.GreenMonths) / float64(m.TotalMonths)),
		RiskRespect:     riskRespect(closed, evaluations),
	}
	if len(months) < cfg.MinConsistencyMonths {
		p.ConsistencyIndeterminate = true
	} else {
		p.OperationalConsistency = consistency(months, cfg.MaxCoefficientOfVariation)
	}
	p = roundProgress(p)

	level := LevelFor(p, m.TotalMonths, cfg)
	phase := PhaseFor(level.Level, cfg)
	return Result{
		Level:      level.Level,
		LevelName:  level.Name,
		Phase:      phase,
		PhaseName:  phaseNames[phase],
		Bottleneck: Bottleneck(p, cfg.BalancedThreshold),
		Progress:   p,
		Metrics:    m,
	}, nil
}

func baseline(cfg Config) Result {
	first := LevelThreshold{Level: 1, Name: "Novice"}
	if len(cfg.Levels) > 0 {
		first = cfg.Levels[0]
	}
	phase := PhaseFor(first.Level, cfg)
	return Result{
		Level:     first.Level,
		LevelName: first.Name,
		Phase:     phase,
		PhaseName: phaseNames[phase],
	}
}

// LevelFor walks the thresholds in order and stops at the first one not
// met, so a level is never skipped.
func LevelFor(p Progress, totalMonths int, cfg Config) LevelThreshold {
	if len(cfg.Levels) == 0 {
		return LevelThreshold{Level: 1, Name: "Novice"}
	}
	lowest := p.min()
	level := cfg.Levels[0]
	for _, th := range cfg.Levels[1:] {
		if totalMonths < th.MinMonths || lowest < th.MinScore {
			break
		}
		level = th
	}
	return level
}

func PhaseFor(level int, cfg Config) Phase {
	if len(cfg.PhaseByLevel) == 0 {
		return PhaseExploration
	}
	if level >= len(cfg.PhaseByLevel) {
		level = len(cfg.PhaseByLevel) - 1
	}
	for ; level >= 0; level-- {
		if ph := cfg.PhaseByLevel[level]; ph != "" {
			return ph
		}
	}
	return PhaseExploration
}

// Bottleneck names the lowest score, earlier dimensions winning ties. It is
// nil when every score is at or above balanced.
func Bottleneck(p Progress, balanced float64) *string {
	if p.min() >= balanced {
		return nil
	}
	worst := Dimensions[0]
	for _, d := range Dimensions[1:] {
		if p.Score(d) < p.Score(worst) {
			worst = d
		}
	}
	name := string(worst)
	return &name
}
