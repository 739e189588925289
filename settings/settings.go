package settings

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Settings is the host settings document. The engine reads it, never writes it.
type Settings struct {
	// Timezone is the IANA zone that defines calendar days, weeks and
	// months. Empty means the host's local zone.
	Timezone string `json:"timezone,omitempty" yaml:"timezone,omitempty"`

	// InitialBalance is the account size drawdown percentages are taken against.
	InitialBalance float64 `json:"initialBalance,omitempty" yaml:"initialBalance,omitempty"`

	Advanced *AdvancedSettings `json:"advanced,omitempty" yaml:"advanced,omitempty"`
}

// AdvancedSettings groups the rule configuration. Every section may be nil.
type AdvancedSettings struct {
	TradingRules   *TradingRules   `json:"tradingRules,omitempty" yaml:"tradingRules,omitempty"`
	RiskManagement *RiskManagement `json:"riskManagement,omitempty" yaml:"riskManagement,omitempty"`
	Discipline     *Discipline     `json:"discipline,omitempty" yaml:"discipline,omitempty"`
	Sessions       *SessionRules   `json:"sessions,omitempty" yaml:"sessions,omitempty"`
	RuleEngine     *RuleEngine     `json:"ruleEngine,omitempty" yaml:"ruleEngine,omitempty"`
}

type TradingRules struct {
	MaxTradesPerDay    *int                `json:"maxTradesPerDay,omitempty" yaml:"maxTradesPerDay,omitempty"`
	MaxTradesPerWeek   *int                `json:"maxTradesPerWeek,omitempty" yaml:"maxTradesPerWeek,omitempty"`
	AllowedHours       *HourWindow         `json:"allowedHours,omitempty" yaml:"allowedHours,omitempty"`
	MaxLotSize         *float64            `json:"maxLotSize,omitempty" yaml:"maxLotSize,omitempty"`
	DailyProfitTarget  *float64            `json:"dailyProfitTarget,omitempty" yaml:"dailyProfitTarget,omitempty"`
	DailyLossLimit     *float64            `json:"dailyLossLimit,omitempty" yaml:"dailyLossLimit,omitempty"`
	PsychologicalRules []PsychologicalRule `json:"psychologicalRules,omitempty" yaml:"psychologicalRules,omitempty"`
}

// HourWindow is [StartHour, EndHour) in the settings timezone. A window
// with StartHour > EndHour wraps past midnight.
type HourWindow struct {
	Enabled   bool `json:"enabled" yaml:"enabled"`
	StartHour int  `json:"startHour" yaml:"startHour"`
	EndHour   int  `json:"endHour" yaml:"endHour"`
}

// PsychologicalRule is a reminder shown to the trader. Never checked.
type PsychologicalRule struct {
	ID   string `json:"id" yaml:"id"`
	Text string `json:"text" yaml:"text"`
}

type DrawdownMode string

const (
	DrawdownWarning DrawdownMode = "warning"
	DrawdownPause   DrawdownMode = "pause"
	DrawdownStop    DrawdownMode = "stop"
)

// RiskManagement bounds are percentages of the account.
type RiskManagement struct {
	MaxRiskPerTrade *float64     `json:"maxRiskPerTrade,omitempty" yaml:"maxRiskPerTrade,omitempty"`
	MaxRiskPerDay   *float64     `json:"maxRiskPerDay,omitempty" yaml:"maxRiskPerDay,omitempty"`
	MaxRiskPerWeek  *float64     `json:"maxRiskPerWeek,omitempty" yaml:"maxRiskPerWeek,omitempty"`
	MaxDrawdown     *float64     `json:"maxDrawdown,omitempty" yaml:"maxDrawdown,omitempty"`
	DrawdownMode    DrawdownMode `json:"drawdownMode,omitempty" yaml:"drawdownMode,omitempty"`
}

type Discipline struct {
	// CooldownAfterLoss is in minutes.
	CooldownAfterLoss      *int `json:"cooldownAfterLoss,omitempty" yaml:"cooldownAfterLoss,omitempty"`
	MaxConsecutiveLosses   *int `json:"maxConsecutiveLosses,omitempty" yaml:"maxConsecutiveLosses,omitempty"`
	CloseSessionOnCritical bool `json:"closeSessionOnCritical,omitempty" yaml:"closeSessionOnCritical,omitempty"`
}

type Session string

const (
	SessionAsian   Session = "asian"
	SessionLondon  Session = "london"
	SessionNewYork Session = "new-york"
	SessionOverlap Session = "overlap"
	SessionOther   Session = "other"
)

// AllSessions in display order.
var AllSessions = []Session{SessionAsian, SessionLondon, SessionOverlap, SessionNewYork, SessionOther}

// SessionRules toggle sessions and weekdays. A key missing from a non-empty
// map counts as disabled; an empty map turns that check off.
type SessionRules struct {
	Sessions            map[Session]bool `json:"sessions,omitempty" yaml:"sessions,omitempty"`
	Days                map[string]bool  `json:"days,omitempty" yaml:"days,omitempty"`
	BlockOutsideSession bool             `json:"blockOutsideSession,omitempty" yaml:"blockOutsideSession,omitempty"`
}

// SessionEnabled looks name up case-insensitively. When several keys fold
// to the same name, any false among them wins.
func (r SessionRules) SessionEnabled(name Session) bool {
	want := strings.ToLower(string(name))
	found, enabled := false, true
	for k, on := range r.Sessions {
		if strings.ToLower(string(k)) == want {
			found = true
			enabled = enabled && on
		}
	}
	return found && enabled
}

// DayAllowed is SessionEnabled for SessionRules.Days.
func (r SessionRules) DayAllowed(day string) bool {
	want := strings.ToLower(day)
	found, allowed := false, true
	for k, on := range r.Days {
		if strings.ToLower(k) == want {
			found = true
			allowed = allowed && on
		}
	}
	return found && allowed
}

type RuleEngine struct {
	Enabled bool         `json:"enabled" yaml:"enabled"`
	Rules   []CustomRule `json:"rules,omitempty" yaml:"rules,omitempty"`
}

// CustomRule passes when `Metric Operator Value` holds for the trade.
type CustomRule struct {
	ID       string  `json:"id" yaml:"id"`
	Name     string  `json:"name,omitempty" yaml:"name,omitempty"`
	Enabled  bool    `json:"enabled" yaml:"enabled"`
	Metric   string  `json:"metric" yaml:"metric"`
	Operator string  `json:"operator" yaml:"operator"`
	Value    float64 `json:"value" yaml:"value"`
}

// Location resolves Timezone. Unknown names fall back to time.Local so a
// bad setting never stops evaluation.
func (s Settings) Location() *time.Location {
	if s.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// Section accessors are nil safe so callers can chain without guards.

// DefaultInitialBalance stands in for an unset InitialBalance.
const DefaultInitialBalance = 10000

// Balance is InitialBalance, or DefaultInitialBalance when it is not positive.
func (s Settings) Balance() float64 {
	if s.InitialBalance > 0 {
		return s.InitialBalance
	}
	return DefaultInitialBalance
}

func (s Settings) TradingRules() *TradingRules {
	if s.Advanced == nil {
		return nil
	}
	return s.Advanced.TradingRules
}

func (s Settings) RiskManagement() *RiskManagement {
	if s.Advanced == nil {
		return nil
	}
	return s.Advanced.RiskManagement
}

func (s Settings) Discipline() *Discipline {
	if s.Advanced == nil {
		return nil
	}
	return s.Advanced.Discipline
}

func (s Settings) Sessions() *SessionRules {
	if s.Advanced == nil {
		return nil
	}
	return s.Advanced.Sessions
}

func (s Settings) RuleEngine() *RuleEngine {
	if s.Advanced == nil {
		return nil
	}
	return s.Advanced.RuleEngine
}

// LoadFromFile loads settings from a YAML or JSON file.
func LoadFromFile(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read settings file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML, falling back to JSON.
func Parse(data []byte) (*Settings, error) {
	s := &Settings{}
	if err := yaml.Unmarshal(data, s); err != nil {
		s = &Settings{}
		if err := json.Unmarshal(data, s); err != nil {
			return nil, fmt.Errorf("parse settings (tried YAML and JSON): %w", err)
		}
	}
	return s, nil
}

// SaveToFile writes YAML for .yaml/.yml paths and indented JSON otherwise.
func (s *Settings) SaveToFile(path string) error {
	var (
		data []byte
		err  error
	)
	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		data, err = yaml.Marshal(s)
	} else {
		data, err = json.MarshalIndent(s, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write settings file: %w", err)
	}
	return nil
}

func intPtr(v int) *int { return &v }
func floatPtr(v float64) *float64 { return &v }

// Default returns a conservative starting configuration.
func Default() *Settings {
	return &Settings{
		InitialBalance: DefaultInitialBalance,
		Advanced: &AdvancedSettings{
			TradingRules: &TradingRules{
				MaxTradesPerDay:   intPtr(3),
				MaxTradesPerWeek:  intPtr(10),
				AllowedHours:      &HourWindow{Enabled: false, StartHour: 8, EndHour: 17},
				MaxLotSize:        floatPtr(1),
				DailyProfitTarget: floatPtr(300),
				DailyLossLimit:    floatPtr(200),
				PsychologicalRules: []PsychologicalRule{
					{ID: "no-revenge", Text: "No revenge trading after a loss"},
					{ID: "plan-first", Text: "Only take setups written in the plan"},
				},
			},
			RiskManagement: &RiskManagement{
				MaxRiskPerTrade: floatPtr(1),
				MaxRiskPerDay:   floatPtr(3),
				MaxRiskPerWeek:  floatPtr(6),
				MaxDrawdown:     floatPtr(20),
				DrawdownMode:    DrawdownWarning,
			},
			Discipline: &Discipline{
				CooldownAfterLoss:    intPtr(30),
				MaxConsecutiveLosses: intPtr(3),
			},
			Sessions: &SessionRules{
				Sessions: map[Session]bool{
					SessionAsian:   false,
					SessionLondon:  true,
					SessionOverlap: true,
					SessionNewYork: true,
					SessionOther:   false,
				},
				Days: map[string]bool{
					"monday": true, "tuesday": true, "wednesday": true,
					"thursday": true, "friday": true,
					"saturday": false, "sunday": false,
				},
			},
			RuleEngine: &RuleEngine{Enabled: false},
		},
	}
}
