package evolution

// LevelThreshold is the bar for one level: every progress score must be at
// least MinScore and the history must span at least MinMonths months.
type LevelThreshold struct {
	Level     int
	Name      string
	MinMonths int
	MinScore  float64
}

// Config holds the classifier's tunable constants.
type Config struct {
	// Levels in ascending order. Level 1 has no requirement.
	Levels []LevelThreshold

	// PhaseByLevel maps a level to its phase; levels above the table
	// keep the last phase.
	PhaseByLevel []Phase

	// BalancedThreshold: no bottleneck is reported when every score is at
	// or above it.
	BalancedThreshold float64

	// MinConsistencyMonths below which operational consistency is indeterminate.
	MinConsistencyMonths int

	// MaxCoefficientOfVariation of monthly P/L that still scores above zero.
	MaxCoefficientOfVariation float64

	// DefaultMaxDrawdown is used when the settings do not bound drawdown.
	DefaultMaxDrawdown float64
}

// DefaultConfig returns the documented thresholds:
//
//	level  name          months  min score
//	1      Novice        -       -
//	2      Apprentice    3       20
//	3      Developing    4       35
//	4      Competent     6       50
//	5      Proficient    9       65
//	6      Advanced      12      75
//	7      Expert        18      85
//
// Phases: levels 1-2 exploration, 3-4 consolidation, 5-6 consistency,
// 7 optimization.
func DefaultConfig() Config {
	return Config{
		Levels: []LevelThreshold{
			{Level: 1, Name: "Novice"},
			{Level: 2, Name: "Apprentice", MinMonths: 3, MinScore: 20},
			{Level: 3, Name: "Developing", MinMonths: 4, MinScore: 35},
			{Level: 4, Name: "Competent", MinMonths: 6, MinScore: 50},
			{Level: 5, Name: "Proficient", MinMonths: 9, MinScore: 65},
			{Level: 6, Name: "Advanced", MinMonths: 12, MinScore: 75},
			{Level: 7, Name: "Expert", MinMonths: 18, MinScore: 85},
		},
		PhaseByLevel: []Phase{
			1: PhaseExploration,
			2: PhaseExploration,
			3: PhaseConsolidation,
			4: PhaseConsolidation,
			5: PhaseConsistency,
			6: PhaseConsistency,
			7: PhaseOptimization,
		},
		BalancedThreshold:         80,
		MinConsistencyMonths:      3,
		MaxCoefficientOfVariation: 2,
		DefaultMaxDrawdown:        20,
	}
}
