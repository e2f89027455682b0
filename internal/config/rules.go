package config

// Rule группа сигналов, которая включается целиком
type Rule string

const (
	RuleTrailFlip      Rule = "luxalgo_flip"
	RuleRSIExtremes    Rule = "rsi_extremes"
	RuleRSISMACross    Rule = "rsi_sma_cross"
	RuleDivergence     Rule = "divergence"
	RuleWaveTrend      Rule = "wavetrend_confluence"
	RuleHighConviction Rule = "high_conviction_buy"
	RuleKiwiHunt       Rule = "kiwihunt"
	RuleGoldenPocket   Rule = "golden_pocket"
)

// AllRules все известные правила
var AllRules = []Rule{
	RuleTrailFlip,
	RuleRSIExtremes,
	RuleRSISMACross,
	RuleDivergence,
	RuleWaveTrend,
	RuleHighConviction,
	RuleKiwiHunt,
	RuleGoldenPocket,
}

// ruleEnv переменные окружения, которыми можно включить или выключить правило
var ruleEnv = map[Rule]string{
	RuleTrailFlip:      "ALERT_LUXALGO_FLIP_ENABLED",
	RuleRSIExtremes:    "ALERT_RSI_EXTREMES_ENABLED",
	RuleRSISMACross:    "ALERT_RSI_SMA_CROSS_ENABLED",
	RuleDivergence:     "ALERT_DIVERGENCE_ENABLED",
	RuleWaveTrend:      "ALERT_WAVETREND_CONFLUENCE_ENABLED",
	RuleHighConviction: "ALERT_HIGH_CONVICTION_BUY_ENABLED",
	RuleKiwiHunt:       "ALERT_KIWIHUNT_ENABLED",
	RuleGoldenPocket:   "ALERT_GOLDEN_POCKET_ENABLED",
}

func knownRule(r Rule) bool {
	_, ok := ruleEnv[r]
	return ok
}

// RulesConfig неизменяемый набор {правило: включено}.
// Отсутствующее правило считается выключенным.
type RulesConfig struct {
	enabled map[Rule]bool
}

// NewRules копирует переданную карту
func NewRules(m map[Rule]bool) RulesConfig {
	cp := make(map[Rule]bool, len(m))
	for k, v := range m {
		cp[k] = v
	}
	return RulesConfig{enabled: cp}
}

// AllEnabled включает все правила
func AllEnabled() RulesConfig {
	m := make(map[Rule]bool, len(AllRules))
	for _, r := range AllRules {
		m[r] = true
	}
	return RulesConfig{enabled: m}
}

// Enabled сообщает, включено ли правило
func (r RulesConfig) Enabled(rule Rule) bool {
	return r.enabled[rule]
}

// With возвращает копию с измененным правилом
func (r RulesConfig) With(rule Rule, on bool) RulesConfig {
	cp := NewRules(r.enabled)
	cp.enabled[rule] = on
	return cp
}
