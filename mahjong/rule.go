package mahjong

import (
	"github.com/spf13/viper"
	"github.com/topfreegames/pitaya/v3/pkg/logger"
)

// Rule is the tunable match configuration. The zero value is replaced by
// defaults when a controller is built.
type Rule struct {
	PileSize        int     `mapstructure:"pile_size"`
	HandSize        int     `mapstructure:"hand_size"`
	CelestialCopies int     `mapstructure:"celestial_copies"`
	TurnSeconds     float64 `mapstructure:"turn_seconds"`
}

func DefaultRule() Rule {
	return Rule{
		PileSize:        8,
		HandSize:        14,
		CelestialCopies: 2,
		TurnSeconds:     60,
	}
}

func (r Rule) withDefaults() Rule {
	def := DefaultRule()
	if r.PileSize <= 0 {
		r.PileSize = def.PileSize
	}
	if r.HandSize <= 0 {
		r.HandSize = def.HandSize
	}
	if r.CelestialCopies <= 0 {
		r.CelestialCopies = def.CelestialCopies
	}
	if r.TurnSeconds <= 0 {
		r.TurnSeconds = def.TurnSeconds
	}
	return r
}

// LoadRule reads mahsjong.yaml from the given directories, falling back to
// defaults when no file exists.
func LoadRule(paths ...string) Rule {
	v := viper.New()
	v.SetConfigName("mahsjong")
	v.SetConfigType("yaml")
	for _, p := range paths {
		v.AddConfigPath(p)
	}
	def := DefaultRule()
	v.SetDefault("pile_size", def.PileSize)
	v.SetDefault("hand_size", def.HandSize)
	v.SetDefault("celestial_copies", def.CelestialCopies)
	v.SetDefault("turn_seconds", def.TurnSeconds)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			logger.Log.Errorf("rule config unreadable: %v", err)
		}
		return def
	}
	var r Rule
	if err := v.Unmarshal(&r); err != nil {
		logger.Log.Errorf("rule config malformed: %v", err)
		return def
	}
	return r.withDefaults()
}
