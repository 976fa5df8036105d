package model

import "time"

// VersionedRecord captures schema and codec evolution for persistent data.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version" yaml:"schema_version,omitempty"`
	CodecVersion  int `json:"codec_version" yaml:"codec_version,omitempty"`
}

// Scenario is the declarative description of one stock: dimensions, initial
// state, natural mortality and the sub-models linked into the population.
// All mortality, numbers and recruitment parameters are on the log scale.
type Scenario struct {
	VersionedRecord `yaml:",inline"`
	ID              string    `json:"id" yaml:"id" validate:"required"`
	Description     string    `json:"description,omitempty" yaml:"description,omitempty"`
	NYears          int       `json:"n_years" yaml:"n_years" validate:"gte=1"`
	Ages            []float64 `json:"ages" yaml:"ages" validate:"min=2"`
	// LogM holds one value (broadcast) or NYears*NAges values, year-major.
	LogM        []float64       `json:"log_m" yaml:"log_m" validate:"min=1"`
	LogInitNAA  []float64       `json:"log_init_naa" yaml:"log_init_naa" validate:"min=2"`
	Growth      GrowthSpec      `json:"growth" yaml:"growth"`
	Maturity    CurveSpec       `json:"maturity" yaml:"maturity"`
	Recruitment RecruitmentSpec `json:"recruitment" yaml:"recruitment"`
	Fleets      []FleetSpec     `json:"fleets" yaml:"fleets" validate:"min=1,dive"`
}

// CurveSpec parameterizes a logistic or double-logistic curve. Each vector has
// one value (broadcast over years) or one value per year.
type CurveSpec struct {
	Form                string    `json:"form" yaml:"form" validate:"required,knownform"`
	InflectionPoint     []float64 `json:"inflection_point" yaml:"inflection_point" validate:"min=1"`
	Slope               []float64 `json:"slope" yaml:"slope" validate:"min=1"`
	InflectionPointDesc []float64 `json:"inflection_point_desc,omitempty" yaml:"inflection_point_desc,omitempty"`
	SlopeDesc           []float64 `json:"slope_desc,omitempty" yaml:"slope_desc,omitempty"`
}

type GrowthSpec struct {
	Form string `json:"form" yaml:"form" validate:"required,knownform"`
	// Weights are empirical weights aligned with Scenario.Ages.
	Weights []float64 `json:"weights,omitempty" yaml:"weights,omitempty"`
	// WeightsCSV names a two-column age,weight table used when Weights is empty.
	WeightsCSV string `json:"weights_csv,omitempty" yaml:"weights_csv,omitempty"`
	// Von Bertalanffy parameters are pointers so an omitted field is
	// distinguishable from zero.
	LInf *float64 `json:"l_inf,omitempty" yaml:"l_inf,omitempty"`
	K    *float64 `json:"k,omitempty" yaml:"k,omitempty"`
	T0   *float64 `json:"t0,omitempty" yaml:"t0,omitempty"`
	A    *float64 `json:"a,omitempty" yaml:"a,omitempty"`
	B    *float64 `json:"b,omitempty" yaml:"b,omitempty"`
}

// VonBertalanffyFields returns the von Bertalanffy parameters in declaration
// order, keyed by their scenario field names.
func (g GrowthSpec) VonBertalanffyFields() []NamedValue {
	return []NamedValue{
		{Name: "l_inf", Value: g.LInf},
		{Name: "k", Value: g.K},
		{Name: "t0", Value: g.T0},
		{Name: "a", Value: g.A},
		{Name: "b", Value: g.B},
	}
}

// NamedValue is an optional scalar with its field name.
type NamedValue struct {
	Name  string
	Value *float64
}

// Float returns a pointer to v.
func Float(v float64) *float64 { return &v }

type RecruitmentSpec struct {
	Form      string  `json:"form" yaml:"form" validate:"required,knownform"`
	LogRZero  float64 `json:"log_rzero" yaml:"log_rzero"`
	Steepness float64 `json:"steepness" yaml:"steepness" validate:"gt=0.2"`
	Process   string  `json:"process" yaml:"process" validate:"omitempty,knownform"`
	// LogDevs may be empty for deterministic recruitment.
	LogDevs     []float64 `json:"log_devs,omitempty" yaml:"log_devs,omitempty"`
	LogR        []float64 `json:"log_r,omitempty" yaml:"log_r,omitempty"`
	LogSigma    float64   `json:"log_sigma,omitempty" yaml:"log_sigma,omitempty"`
	BiasCorrect bool      `json:"bias_correct,omitempty" yaml:"bias_correct,omitempty"`
	SumToZero   bool      `json:"sum_to_zero,omitempty" yaml:"sum_to_zero,omitempty"`
}

type FleetSpec struct {
	Name        string    `json:"name" yaml:"name" validate:"required"`
	IsSurvey    bool      `json:"is_survey,omitempty" yaml:"is_survey,omitempty"`
	LogFMort    []float64 `json:"log_fmort,omitempty" yaml:"log_fmort,omitempty"`
	LogQ        []float64 `json:"log_q,omitempty" yaml:"log_q,omitempty"`
	Selectivity CurveSpec `json:"selectivity" yaml:"selectivity"`
	CatchUnits  string    `json:"catch_units,omitempty" yaml:"catch_units,omitempty" validate:"omitempty,oneof=weight numbers"`
	IndexUnits  string    `json:"index_units,omitempty" yaml:"index_units,omitempty" validate:"omitempty,oneof=weight numbers"`
	NLengths    int       `json:"n_lengths,omitempty" yaml:"n_lengths,omitempty" validate:"gte=0"`
	// AgeToLength is row-major [age][length]; each row sums to one.
	AgeToLength []float64 `json:"age_to_length,omitempty" yaml:"age_to_length,omitempty"`
	// AgeToLengthCSV names an age-by-length-bin table used when AgeToLength is empty.
	AgeToLengthCSV string `json:"age_to_length_csv,omitempty" yaml:"age_to_length_csv,omitempty"`
}

// PopulationOutput is a plain-value snapshot of every derived quantity of an
// evaluation.
type PopulationOutput struct {
	Name                    string        `json:"name"`
	NYears                  int           `json:"n_years"`
	NAges                   int           `json:"n_ages"`
	Ages                    []float64     `json:"ages"`
	Phi0                    float64       `json:"phi0"`
	NumbersAtAge            []float64     `json:"numbers_at_age"`
	Biomass                 []float64     `json:"biomass"`
	SpawningBiomass         []float64     `json:"spawning_biomass"`
	ExpectedRecruitment     []float64     `json:"expected_recruitment"`
	M                       []float64     `json:"m"`
	MortalityF              []float64     `json:"mortality_f"`
	MortalityZ              []float64     `json:"mortality_z"`
	WeightAtAge             []float64     `json:"weight_at_age"`
	MaturityAtAge           []float64     `json:"maturity_at_age"`
	UnfishedNumbersAtAge    []float64     `json:"unfished_numbers_at_age"`
	UnfishedBiomass         []float64     `json:"unfished_biomass"`
	UnfishedSpawningBiomass []float64     `json:"unfished_spawning_biomass"`
	Fleets                  []FleetOutput `json:"fleets"`
}

type FleetOutput struct {
	Name                           string    `json:"name"`
	IsSurvey                       bool      `json:"is_survey"`
	NLengths                       int       `json:"n_lengths,omitempty"`
	FMort                          []float64 `json:"fmort"`
	Q                              []float64 `json:"q"`
	CatchNumbersAtAge              []float64 `json:"catch_numbers_at_age"`
	CatchWeightAtAge               []float64 `json:"catch_weight_at_age"`
	ExpectedCatch                  []float64 `json:"expected_catch"`
	ExpectedIndex                  []float64 `json:"expected_index"`
	LogExpectedIndex               []float64 `json:"log_expected_index"`
	IndexNumbersAtAge              []float64 `json:"index_numbers_at_age"`
	ProportionCatchNumbersAtAge    []float64 `json:"proportion_catch_numbers_at_age"`
	ProportionIndexNumbersAtAge    []float64 `json:"proportion_index_numbers_at_age"`
	CatchNumbersAtLength           []float64 `json:"catch_numbers_at_length,omitempty"`
	ProportionCatchNumbersAtLength []float64 `json:"proportion_catch_numbers_at_length,omitempty"`
}

// RunRecord is one persisted evaluation of a scenario.
type RunRecord struct {
	VersionedRecord
	ID                      string           `json:"id"`
	ScenarioID              string           `json:"scenario_id"`
	CreatedAt               time.Time        `json:"created_at"`
	DurationMillis          int64            `json:"duration_ms"`
	TerminalSpawningBiomass float64          `json:"terminal_spawning_biomass"`
	TerminalBiomass         float64          `json:"terminal_biomass"`
	Depletion               float64          `json:"depletion"`
	TotalCatch              float64          `json:"total_catch"`
	Output                  PopulationOutput `json:"output"`
}

// SensitivityRecord is the derivative of one output with respect to one
// parameter.
type SensitivityRecord struct {
	VersionedRecord
	Parameter        string  `json:"parameter"`
	Value            float64 `json:"value"`
	Output           string  `json:"output"`
	Derivative       float64 `json:"derivative"`
	FiniteDifference float64 `json:"finite_difference,omitempty"`
	RelativeError    float64 `json:"relative_error,omitempty"`
}
