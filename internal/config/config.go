// Package config provides simulation configuration loading from YAML files,
// defaults, and pre-run validation.
package config

import (
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/talgya/micro-society/internal/society"
)

// MinPopulation is the smallest population a run is allowed to start with.
const MinPopulation = 50

// ClassDistribution is the share of the population in each tier. Shares must
// sum to 1 within tolerance.
type ClassDistribution struct {
	Low    float64 `yaml:"low" json:"low"`
	Middle float64 `yaml:"middle" json:"middle"`
	High   float64 `yaml:"high" json:"high"`
}

// Config holds every recognized simulation option.
type Config struct {
	TotalPopulation   int               `yaml:"total_population" json:"total_population"`
	GenderRatio       float64           `yaml:"gender_ratio" json:"gender_ratio"` // male share
	ClassDistribution ClassDistribution `yaml:"class_distribution" json:"class_distribution"`

	MaleCareSkillMean          float64 `yaml:"male_care_skill_mean" json:"male_care_skill_mean"`
	MaleCompetitionSkillMean   float64 `yaml:"male_competition_skill_mean" json:"male_competition_skill_mean"`
	FemaleCareSkillMean        float64 `yaml:"female_care_skill_mean" json:"female_care_skill_mean"`
	FemaleCompetitionSkillMean float64 `yaml:"female_competition_skill_mean" json:"female_competition_skill_mean"`
	SkillStdDev                float64 `yaml:"skill_std_dev" json:"skill_std_dev"`

	Levers society.PolicyLevers `yaml:"policy_levers" json:"policy_levers"`

	BaseGrowthRate           float64 `yaml:"base_growth_rate" json:"base_growth_rate"`
	LearningRate             float64 `yaml:"learning_rate" json:"learning_rate"`
	SanctionTriggerThreshold float64 `yaml:"sanction_trigger_threshold" json:"sanction_trigger_threshold"`

	// PeriodicInterval is the cadence (in rounds) of the slow mechanisms:
	// learning, ideology conversion, elite rebuild, class mobility.
	PeriodicInterval int `yaml:"periodic_interval" json:"periodic_interval"`

	MaxRounds  int   `yaml:"max_rounds" json:"max_rounds"`
	RandomSeed int64 `yaml:"random_seed" json:"random_seed"`

	// TrackHistory enables per-member wealth/power/ideology audit trails.
	// Costs memory on long runs over large populations.
	TrackHistory bool `yaml:"track_history" json:"track_history"`
}

// Default returns the baseline configuration.
func Default() Config {
	return Config{
		TotalPopulation: 200,
		GenderRatio:     0.5,
		ClassDistribution: ClassDistribution{
			Low:    0.6,
			Middle: 0.3,
			High:   0.1,
		},
		MaleCareSkillMean:          0.4,
		MaleCompetitionSkillMean:   0.6,
		FemaleCareSkillMean:        0.6,
		FemaleCompetitionSkillMean: 0.4,
		SkillStdDev:                0.15,
		Levers: society.PolicyLevers{
			CompetitionReward: 1.0,
			CareReward:        1.0,
			TaxRedistribution: 0.2,
			AttributionBias:   0.0,
			SocialSanction:    0.3,
		},
		BaseGrowthRate:           0.01,
		LearningRate:             0.1,
		SanctionTriggerThreshold: 0.4,
		PeriodicInterval:         10,
		MaxRounds:                200,
		RandomSeed:               42,
		TrackHistory:             true,
	}
}

// Load reads a YAML config file over the defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// Validate returns every validation failure as a descriptive message. An
// empty slice means the config can start a run.
func (c *Config) Validate() []string {
	var failures []string

	classSum := c.ClassDistribution.Low + c.ClassDistribution.Middle + c.ClassDistribution.High
	if math.Abs(classSum-1.0) > 0.01 {
		failures = append(failures, fmt.Sprintf("class distribution must sum to 1.0, got %.2f", classSum))
	}

	if c.GenderRatio < 0 || c.GenderRatio > 1 {
		failures = append(failures, fmt.Sprintf("gender ratio must be in [0, 1], got %.2f", c.GenderRatio))
	}

	if c.TotalPopulation < MinPopulation {
		failures = append(failures, fmt.Sprintf("total population must be at least %d, got %d", MinPopulation, c.TotalPopulation))
	}

	if c.MaleCareSkillMean+c.MaleCompetitionSkillMean > 1.8 {
		failures = append(failures, "male skill means sum too high (max 1.8)")
	}
	if c.FemaleCareSkillMean+c.FemaleCompetitionSkillMean > 1.8 {
		failures = append(failures, "female skill means sum too high (max 1.8)")
	}

	if c.PeriodicInterval < 1 {
		failures = append(failures, fmt.Sprintf("periodic interval must be at least 1, got %d", c.PeriodicInterval))
	}
	if c.MaxRounds < 1 {
		failures = append(failures, fmt.Sprintf("max rounds must be at least 1, got %d", c.MaxRounds))
	}

	return failures
}
