package dfm

import (
	"context"
	"testing"

	"github.com/chazu/dfmcheck/pkg/analysis"
	"github.com/chazu/dfmcheck/pkg/kernel"
	"github.com/chazu/dfmcheck/pkg/kernel/sdfx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func box(t *testing.T, x, y, z float64) kernel.Solid {
	t.Helper()
	s, err := sdfx.New().Box(x, y, z)
	require.NoError(t, err)
	return s
}

func drilled(t *testing.T, hx, hy float64) kernel.Model {
	t.Helper()
	k := sdfx.New()
	s, err := k.Box(20, 20, 10)
	require.NoError(t, err)
	s, err = k.Drill(s, hx, hy, 5)
	require.NoError(t, err)
	return sdfx.Model(s)
}

func cubesAt(t *testing.T, xs ...float64) kernel.Model {
	t.Helper()
	k := sdfx.New()
	var solids []kernel.Solid
	for _, x := range xs {
		s, err := k.Box(10, 10, 10)
		require.NoError(t, err)
		s, err = k.Translate(s, x, 0, 0)
		require.NoError(t, err)
		solids = append(solids, s)
	}
	return sdfx.Model(solids...)
}

func ruleIDs(issues []Issue) []string {
	var out []string
	for _, i := range issues {
		out = append(out, i.RuleID)
	}
	return out
}

func check(m kernel.Model, p Process) Result {
	return NewChecker(DefaultConfig(), nil).Run(context.Background(), m, p)
}

func TestFDMBoxHasNoIssues(t *testing.T) {
	r := check(sdfx.Model(box(t, 50, 30, 20)), FDMPrinting)

	assert.Empty(t, r.Issues)
	assert.NotNil(t, r.Issues)
	assert.Zero(t, r.SkippedTotal())
	assert.Equal(t, 1, r.SolidCount)
}

func TestCNCCenteredHole(t *testing.T) {
	r := check(drilled(t, 10, 10), CNCMachining)

	require.Len(t, r.Issues, 1)
	tap := r.Issues[0]
	assert.Equal(t, RuleHoleMachining, tap.RuleID)
	assert.Equal(t, TypePotentialTappedHole, tap.Type)
	assert.Equal(t, SeverityInfo, tap.Severity)
	assert.Contains(t, tap.Recommendation, "M6")
	assert.Equal(t, []string{RulePocketAccess}, r.Unimplemented)
}

func TestCNCOffCenterHole(t *testing.T) {
	r := check(drilled(t, 6, 10), CNCMachining)

	require.Equal(t, []string{RuleHoleMachining, RuleCNCHoleClearance}, ruleIDs(r.Issues))
	clear := r.Issues[1]
	assert.Equal(t, TypeHoleEdgeClearance, clear.Type)
	assert.Equal(t, SeverityError, clear.Severity)
	assert.Equal(t, "Hole F6 is too close to an edge (3.50mm). Recommend at least 7.50mm clearance.", clear.Recommendation)
}

func TestMoldedBlock(t *testing.T) {
	r := check(sdfx.Model(box(t, 50, 30, 20)), InjectionMolding)

	want := []string{RuleDraft, RuleDraft, RuleDraft, RuleDraft, RuleUndercut, RuleWallUniformity}
	require.Equal(t, want, ruleIDs(r.Issues))
	for _, i := range r.Issues[:4] {
		assert.Equal(t, SeverityWarning, i.Severity)
		assert.Equal(t, "WARNING: Minimal draft - ejection difficult. Recommend 1-2°.", i.Recommendation)
	}
	assert.Equal(t, []string{"F2"}, r.Issues[0].AffectedFeatures)

	under := r.Issues[4]
	assert.Equal(t, SeverityError, under.Severity)
	assert.Equal(t, []string{"F0"}, under.AffectedFeatures)
}

func TestThinPlate(t *testing.T) {
	tests := []struct {
		process Process
		rule    string
		sev     Severity
	}{
		{CNCMachining, RuleCNCMinWall, SeverityError},
		{InjectionMolding, RuleIMMinWall, SeverityError},
		{FDMPrinting, RuleFDMMinWall, SeverityWarning},
	}
	for _, tt := range tests {
		t.Run(string(tt.process), func(t *testing.T) {
			r := check(sdfx.Model(box(t, 40, 40, 0.5)), tt.process)

			var found *Issue
			for i := range r.Issues {
				if r.Issues[i].RuleID == tt.rule {
					found = &r.Issues[i]
				}
			}
			require.NotNil(t, found, "rules: %v", ruleIDs(r.Issues))
			assert.Equal(t, tt.sev, found.Severity)
			assert.Equal(t, TypeThinWall, found.Type)
			assert.Equal(t, "Minimum wall thickness is 0.50mm (below 0.8mm)", found.Description)
		})
	}
}

func TestAssemblyChecksFollowUniversal(t *testing.T) {
	r := check(cubesAt(t, 0, 5), CNCMachining)

	ids := ruleIDs(r.Issues)
	require.Contains(t, ids, RuleInterference)
	in := r.Issues[len(ids)-1]
	assert.Equal(t, RuleInterference, in.RuleID)
	assert.Equal(t, SeverityError, in.Severity)
	assert.Equal(t, []string{"S0", "S1"}, in.AffectedFeatures)
	assert.Contains(t, in.Description, "500.00 mm³")
	assert.Equal(t, 2, r.SolidCount)
}

func TestLowClearance(t *testing.T) {
	r := check(cubesAt(t, 0, 10.3), Process("WATERJET"))

	require.Equal(t, []string{RuleClearance}, ruleIDs(r.Issues))
	assert.Equal(t, SeverityWarning, r.Issues[0].Severity)
	assert.Equal(t, "Clearance between S0 and S1 is 0.300mm", r.Issues[0].Description)
}

func TestUnknownProcessRunsUniversalChecksOnly(t *testing.T) {
	r := check(drilled(t, 6, 10), Process("WATERJET"))

	assert.Empty(t, r.Issues)
	assert.Empty(t, r.Unimplemented)
	assert.Equal(t, Process("WATERJET"), r.Process)
}

func TestEmptyModel(t *testing.T) {
	for _, m := range []kernel.Model{nil, sdfx.Model()} {
		r := check(m, CNCMachining)
		assert.Empty(t, r.Issues)
		assert.NotNil(t, r.Issues)
		assert.Zero(t, r.SolidCount)
		assert.Empty(t, r.Unimplemented)
	}
}

// degenerateFace fails every normal query.
type degenerateFace struct{ kernel.Face }

func (degenerateFace) NormalAt(kernel.Vec3) (kernel.Vec3, error) {
	return kernel.Vec3{}, &kernel.QueryError{Op: "normal", Err: kernel.ErrDegenerate}
}

// panickyFace panics when its area is read.
type panickyFace struct{ kernel.Face }

func (panickyFace) Area() float64 { panic("area unavailable") }

// firstFacePanics breaks only the first face of a solid.
type firstFacePanics struct{ kernel.Solid }

func (s firstFacePanics) Faces() []kernel.Face {
	faces := append([]kernel.Face(nil), s.Solid.Faces()...)
	faces[0] = panickyFace{faces[0]}
	return faces
}

type wrappedSolid struct {
	kernel.Solid
	wrap func(kernel.Face) kernel.Face
}

func (s wrappedSolid) Faces() []kernel.Face {
	var out []kernel.Face
	for _, f := range s.Solid.Faces() {
		out = append(out, s.wrap(f))
	}
	return out
}

func TestFailedQueriesAreSkipped(t *testing.T) {
	s := wrappedSolid{box(t, 50, 30, 20), func(f kernel.Face) kernel.Face { return degenerateFace{f} }}
	r := check(sdfx.Model(s), InjectionMolding)

	assert.Equal(t, 6, r.Skipped["draft"])
	assert.Equal(t, 6, r.Skipped["undercut"])
	for _, i := range r.Issues {
		assert.NotEqual(t, RuleDraft, i.RuleID)
		assert.NotEqual(t, RuleUndercut, i.RuleID)
	}
}

func TestPanickingFacesAreContained(t *testing.T) {
	s := wrappedSolid{box(t, 50, 30, 20), func(f kernel.Face) kernel.Face { return panickyFace{f} }}
	r := check(sdfx.Model(s), Process("WATERJET"))

	assert.Equal(t, 6, r.Skipped[analysis.CheckSmallFeatures])
	assert.Zero(t, r.Skipped[RuleSmallFeature])
	assert.Empty(t, r.Issues)
}

func TestPanickingFaceSkipsOnlyThatFace(t *testing.T) {
	s := firstFacePanics{box(t, 0.4, 0.4, 0.4)}
	r := check(sdfx.Model(s), Process("WATERJET"))

	assert.Equal(t, 1, r.Skipped[analysis.CheckSmallFeatures])
	require.Len(t, r.Issues, 5)
	for _, i := range r.Issues {
		assert.Equal(t, RuleSmallFeature, i.RuleID)
	}
	assert.Equal(t, []string{"F1"}, r.Issues[0].AffectedFeatures)
}

func TestPinThroughDrilledPlate(t *testing.T) {
	k := sdfx.New()
	plate, err := k.Drill(box(t, 20, 20, 10), 10, 10, 5)
	require.NoError(t, err)
	pin, err := k.Cylinder(20, 2.2)
	require.NoError(t, err)
	pin, err = k.Translate(pin, 10, 10, -5)
	require.NoError(t, err)

	r := check(sdfx.Model(plate, pin), CNCMachining)

	assert.NotContains(t, ruleIDs(r.Issues), RuleInterference)
	var found []Issue
	for _, i := range r.Issues {
		if i.RuleID == RuleClearance {
			found = append(found, i)
		}
	}
	require.Len(t, found, 1)
	cl := found[0]
	assert.Equal(t, SeverityWarning, cl.Severity)
	assert.Equal(t, "Clearance between S0 and S1 is 0.300mm", cl.Description)
	assert.Equal(t, []string{"S0", "S1"}, cl.AffectedFeatures)
}

func TestIssuesAreComplete(t *testing.T) {
	models := []kernel.Model{
		drilled(t, 6, 10),
		sdfx.Model(box(t, 50, 30, 20)),
		sdfx.Model(box(t, 40, 40, 0.5)),
		cubesAt(t, 0, 5),
	}
	for _, m := range models {
		for _, p := range Processes {
			for _, i := range check(m, p).Issues {
				assert.NotEmpty(t, i.RuleID)
				assert.NotEmpty(t, i.RuleName)
				assert.NotEmpty(t, i.Recommendation)
				assert.Contains(t, Severities, i.Severity)
				assert.NotNil(t, i.AffectedFeatures)
			}
		}
	}
}

func TestCountBySeverity(t *testing.T) {
	got := CountBySeverity([]Issue{
		{Severity: SeverityError},
		{Severity: SeverityInfo},
		{Severity: SeverityError},
	})
	assert.Equal(t, map[Severity]int{SeverityError: 2, SeverityWarning: 0, SeverityInfo: 1}, got)
}

func TestRuleIDs(t *testing.T) {
	got := RuleIDs([]Issue{{RuleID: "IM_002"}, {RuleID: "IM_001"}, {RuleID: "IM_002"}})
	assert.Equal(t, []string{"IM_001", "IM_002"}, got)
}
