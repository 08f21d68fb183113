package dfm

import "github.com/chazu/dfmcheck/pkg/kernel"

// Config holds every threshold the checks use. Lengths are in mm, angles in
// degrees.
type Config struct {
	// Mold pull and print build directions.
	PullDirection  kernel.Vec3 `yaml:"pull_direction" json:"pull_direction"`
	BuildDirection kernel.Vec3 `yaml:"build_direction" json:"build_direction"`

	// Wall thickness sampling.
	WallSamples        int     `yaml:"wall_samples" json:"wall_samples" validate:"gte=1"`
	ThicknessProbe     float64 `yaml:"thickness_probe" json:"thickness_probe" validate:"gt=0"`
	MinWallThickness   float64 `yaml:"min_wall_thickness" json:"min_wall_thickness" validate:"gt=0"`
	ThicknessVariation float64 `yaml:"thickness_variation" json:"thickness_variation" validate:"gt=0"`

	DraftWarning   float64 `yaml:"draft_warning" json:"draft_warning" validate:"gte=0"`
	DraftCaution   float64 `yaml:"draft_caution" json:"draft_caution" validate:"gtefield=DraftWarning"`
	UndercutLimit  float64 `yaml:"undercut_limit" json:"undercut_limit" validate:"lt=0,gte=-1"`
	UndercutSevere float64 `yaml:"undercut_severe" json:"undercut_severe" validate:"ltfield=UndercutLimit,gte=-1"`
	MaxOverhang    float64 `yaml:"max_overhang" json:"max_overhang" validate:"gt=0,lt=90"`

	CornerProbe  float64 `yaml:"corner_probe" json:"corner_probe" validate:"gt=0"`
	ParallelDot  float64 `yaml:"parallel_dot" json:"parallel_dot" validate:"gt=0,lte=1"`
	FilletRadius float64 `yaml:"fillet_radius" json:"fillet_radius" validate:"gt=0"`

	DeepHoleRatio       float64 `yaml:"deep_hole_ratio" json:"deep_hole_ratio" validate:"gt=0"`
	SevereHoleRatio     float64 `yaml:"severe_hole_ratio" json:"severe_hole_ratio" validate:"gtefield=DeepHoleRatio"`
	SmallHoleDiameter   float64 `yaml:"small_hole_diameter" json:"small_hole_diameter" validate:"gte=0"`
	TapTolerance        float64 `yaml:"tap_tolerance" json:"tap_tolerance" validate:"gt=0"`
	HoleClearanceFactor float64 `yaml:"hole_clearance_factor" json:"hole_clearance_factor" validate:"gt=0"`
	BossRatio           float64 `yaml:"boss_ratio" json:"boss_ratio" validate:"gt=0"`
	RibRatio            float64 `yaml:"rib_ratio" json:"rib_ratio" validate:"gt=0,lt=1"`

	SmallFeature    float64 `yaml:"small_feature" json:"small_feature" validate:"gt=0"`
	EfficiencyLimit float64 `yaml:"efficiency_limit" json:"efficiency_limit" validate:"gt=0"`

	InterferenceVolume float64 `yaml:"interference_volume" json:"interference_volume" validate:"gte=0"`
	InterferenceSevere float64 `yaml:"interference_severe" json:"interference_severe" validate:"gt=0"`
	MinClearance       float64 `yaml:"min_clearance" json:"min_clearance" validate:"gt=0"`

	// Workers bounds the goroutines used for pairwise assembly checks.
	Workers int `yaml:"workers" json:"workers" validate:"gte=0,lte=64"`
}

// DefaultConfig returns the documented default thresholds.
func DefaultConfig() Config {
	return Config{
		PullDirection:  kernel.Vec3{Z: 1},
		BuildDirection: kernel.Vec3{Z: 1},

		WallSamples:        20,
		ThicknessProbe:     0.01,
		MinWallThickness:   0.8,
		ThicknessVariation: 0.5,

		DraftWarning:   0.5,
		DraftCaution:   1.0,
		UndercutLimit:  -0.05,
		UndercutSevere: -0.7,
		MaxOverhang:    45,

		CornerProbe:  0.1,
		ParallelDot:  0.999,
		FilletRadius: 0.5,

		DeepHoleRatio:       5,
		SevereHoleRatio:     10,
		SmallHoleDiameter:   1.5,
		TapTolerance:        0.05,
		HoleClearanceFactor: 1.5,
		BossRatio:           3,
		RibRatio:            0.4,

		SmallFeature:    0.5,
		EfficiencyLimit: 10,

		InterferenceVolume: 1e-6,
		InterferenceSevere: 0.01,
		MinClearance:       0.5,

		Workers: 1,
	}
}
