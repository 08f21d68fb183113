package dfm

import (
	"errors"
	"testing"

	"github.com/chazu/dfmcheck/pkg/kernel"
	"github.com/google/go-cmp/cmp"
)

func TestParseProcess(t *testing.T) {
	tests := []struct {
		in   string
		want Process
	}{
		{"CNC_MACHINING", CNCMachining},
		{"cnc", CNCMachining},
		{"injection-molding", InjectionMolding},
		{" im ", InjectionMolding},
		{"fdm_3d_printing", FDMPrinting},
		{"FDM", FDMPrinting},
	}
	for _, tt := range tests {
		got, err := ParseProcess(tt.in)
		if err != nil {
			t.Errorf("ParseProcess(%q) error: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseProcess(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}

	if _, err := ParseProcess("waterjet"); !errors.Is(err, ErrUnknownProcess) {
		t.Errorf("ParseProcess(waterjet) error = %v, want ErrUnknownProcess", err)
	}
}

func TestRulesOrder(t *testing.T) {
	tests := []struct {
		process Process
		want    []string
	}{
		{CNCMachining, []string{"CNC_001", "CNC_002", "CNC_003", "CNC_004", "CNC_005", "GEN_001", "GEN_002", "ASM_001", "ASM_002", "GEN_003"}},
		{InjectionMolding, []string{"IM_001", "IM_002", "IM_003", "IM_004", "IM_005", "IM_006", "IM_007", "GEN_001", "GEN_002", "ASM_001", "ASM_002", "GEN_003"}},
		{FDMPrinting, []string{"FDM_001", "FDM_002", "FDM_003", "GEN_001", "GEN_002", "ASM_001", "ASM_002", "GEN_003"}},
		{Process("WATERJET"), []string{"GEN_001", "GEN_002", "ASM_001", "ASM_002", "GEN_003"}},
	}
	for _, tt := range tests {
		var got []string
		for _, r := range Rules(tt.process) {
			got = append(got, r.ID)
		}
		if diff := cmp.Diff(tt.want, got); diff != "" {
			t.Errorf("Rules(%s) mismatch (-want +got):\n%s", tt.process, diff)
		}
	}
}

func TestOnlyPocketAccessIsUnimplemented(t *testing.T) {
	for _, r := range catalog {
		if r.Name == "" {
			t.Errorf("rule %s has no name", r.ID)
		}
		if r.Implemented != (r.ID != RulePocketAccess) {
			t.Errorf("rule %s implemented = %v", r.ID, r.Implemented)
		}
	}
	if got := ruleName("NOPE"); got != "NOPE" {
		t.Errorf("ruleName(NOPE) = %q", got)
	}
}

// The defaults are part of the documented behavior; changing one must be a
// deliberate edit here too.
func TestDefaultConfig(t *testing.T) {
	want := Config{
		PullDirection:       kernel.Vec3{Z: 1},
		BuildDirection:      kernel.Vec3{Z: 1},
		WallSamples:         20,
		ThicknessProbe:      0.01,
		MinWallThickness:    0.8,
		ThicknessVariation:  0.5,
		DraftWarning:        0.5,
		DraftCaution:        1.0,
		UndercutLimit:       -0.05,
		UndercutSevere:      -0.7,
		MaxOverhang:         45,
		CornerProbe:         0.1,
		ParallelDot:         0.999,
		FilletRadius:        0.5,
		DeepHoleRatio:       5,
		SevereHoleRatio:     10,
		SmallHoleDiameter:   1.5,
		TapTolerance:        0.05,
		HoleClearanceFactor: 1.5,
		BossRatio:           3,
		RibRatio:            0.4,
		SmallFeature:        0.5,
		EfficiencyLimit:     10,
		InterferenceVolume:  1e-6,
		InterferenceSevere:  0.01,
		MinClearance:        0.5,
		Workers:             1,
	}
	if diff := cmp.Diff(want, DefaultConfig()); diff != "" {
		t.Errorf("DefaultConfig mismatch (-want +got):\n%s", diff)
	}
}
