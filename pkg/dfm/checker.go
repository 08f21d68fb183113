package dfm

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/chazu/dfmcheck/pkg/analysis"
	"github.com/chazu/dfmcheck/pkg/kernel"
	"go.uber.org/zap"
)

// Result is the outcome of one check run.
type Result struct {
	Process Process `json:"process"`
	Issues  []Issue `json:"issues"`
	// Skipped counts geometry queries that failed, by check name.
	Skipped map[string]int `json:"skipped,omitempty"`
	// Unimplemented lists rule IDs that ran as extension points without
	// producing findings.
	Unimplemented []string `json:"unimplemented,omitempty"`
	SolidCount    int      `json:"solid_count"`
	InvalidSolids int      `json:"invalid_solids"`
}

// SkippedTotal sums the skipped query counts.
func (r Result) SkippedTotal() int {
	n := 0
	for _, v := range r.Skipped {
		n += v
	}
	return n
}

// Checker runs the rule set for a process. It holds only its configuration
// and is safe for concurrent use on different models.
type Checker struct {
	cfg    Config
	logger *zap.Logger
}

// NewChecker returns a Checker with the given thresholds. A nil logger
// discards output.
func NewChecker(cfg Config, logger *zap.Logger) *Checker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Checker{cfg: cfg, logger: logger}
}

// Config returns the checker's thresholds.
func (c *Checker) Config() Config { return c.cfg }

// Run checks m for process p. The process-specific checks run first, then
// complex surface, material efficiency, the assembly checks when there is
// more than one solid, and small features. An unsupported process runs only
// the universal and assembly checks. No failure aborts the run; failed
// queries are counted in Result.Skipped.
func (c *Checker) Run(ctx context.Context, m kernel.Model, p Process) Result {
	if m == nil {
		m = kernel.ModelOf(nil)
	}
	r := &run{
		ctx:    ctx,
		cfg:    c.cfg,
		model:  m,
		an:     analysis.New(c.logger),
		logger: c.logger,
		result: Result{Process: p, Issues: make([]Issue, 0)},
	}

	census := r.an.Census(m)
	r.result.SolidCount = census.Solids
	r.result.InvalidSolids = census.Invalid
	if census.Solids == 0 {
		c.logger.Info("empty model, nothing to check", zap.String("process", string(p)))
		return r.result
	}
	if census.Invalid > 0 {
		c.logger.Warn("model has invalid solids, analysing best-effort",
			zap.Int("invalid", census.Invalid))
	}

	switch p {
	case CNCMachining:
		r.guard(RuleSharpCorner, r.sharpCorners)
		r.guard(RuleHoleMachining, r.holeMachinability)
		r.guard(RuleCNCHoleClearance, func() { r.holeClearance(RuleCNCHoleClearance) })
		r.guard(RulePocketAccess, r.pocketAccessibility)
		r.guard(RuleCNCMinWall, func() { r.minWall(RuleCNCMinWall, SeverityError, cncWallAdvice) })
	case InjectionMolding:
		r.guard(RuleDraft, r.draft)
		r.guard(RuleUndercut, r.undercuts)
		r.guard(RuleBoss, r.bosses)
		r.guard(RuleRib, r.ribs)
		r.guard(RuleIMHoleClearance, func() { r.holeClearance(RuleIMHoleClearance) })
		r.guard(RuleIMMinWall, func() { r.minWall(RuleIMMinWall, SeverityError, moldWallAdvice) })
		r.guard(RuleWallUniformity, r.wallUniformity)
	case FDMPrinting:
		r.guard(RuleOverhang, r.overhangs)
		r.guard(RuleFeatureSpacing, func() { r.holeClearance(RuleFeatureSpacing) })
		r.guard(RuleFDMMinWall, func() { r.minWall(RuleFDMMinWall, SeverityWarning, printWallAdvice) })
	default:
		c.logger.Warn("unsupported process, running universal checks only",
			zap.String("process", string(p)))
	}

	r.guard(RuleComplexSurface, r.complexSurfaces)
	r.guard(RuleMaterialEfficiency, r.efficiency)
	if census.IsAssembly {
		r.guard(RuleInterference, r.interference)
		r.guard(RuleClearance, r.clearance)
	}
	r.guard(RuleSmallFeature, r.smallFeatures)

	r.result.Skipped = r.an.Skipped()
	c.logger.Info("dfm check complete",
		zap.String("process", string(p)),
		zap.Int("solids", census.Solids),
		zap.Int("issues", len(r.result.Issues)),
		zap.Int("skipped", r.result.SkippedTotal()),
	)
	return r.result
}

// run carries the state of one Checker.Run call.
type run struct {
	ctx    context.Context
	cfg    Config
	model  kernel.Model
	an     *analysis.Analyzer
	logger *zap.Logger
	result Result

	wall     *analysis.WallThickness
	features []analysis.Feature
	featured bool
}

// guard runs one rule and turns a panic into a skipped entry for that rule.
func (r *run) guard(rule string, fn func()) {
	defer func() {
		if v := recover(); v != nil {
			r.an.Skip(rule, "*", fmt.Errorf("check panicked: %v", v))
		}
	}()
	fn()
}

func (r *run) add(rule, typ string, sev Severity, desc string, affected []string, rec string) {
	if affected == nil {
		affected = []string{}
	}
	r.result.Issues = append(r.result.Issues, Issue{
		RuleID:           rule,
		RuleName:         ruleName(rule),
		Type:             typ,
		Severity:         sev,
		Description:      desc,
		AffectedFeatures: affected,
		Recommendation:   rec,
	})
}

func (r *run) wallThickness() analysis.WallThickness {
	if r.wall == nil {
		w := r.an.WallThickness(r.model, r.cfg.WallSamples, r.cfg.ThicknessProbe)
		r.wall = &w
	}
	return *r.wall
}

func (r *run) holesAndBosses() []analysis.Feature {
	if !r.featured {
		r.features = r.an.HolesAndBosses(r.model)
		r.featured = true
	}
	return r.features
}

func severity(severe bool) Severity {
	if severe {
		return SeverityError
	}
	return SeverityWarning
}

func (r *run) sharpCorners() {
	for _, c := range r.an.SharpInternalCorners(r.model, r.cfg.CornerProbe, r.cfg.ParallelDot, r.cfg.FilletRadius) {
		r.add(RuleSharpCorner, TypeSharpInternal, SeverityWarning,
			fmt.Sprintf("Edge %s between %s and %s is a sharp internal corner", c.EdgeID, c.Faces[0], c.Faces[1]),
			[]string{c.EdgeID},
			fmt.Sprintf("Concave corner (angle %.1f°) detected. Consider adding a fillet (min R%gmm).", c.Angle, c.RecommendedRadius))
		r.result.Issues[len(r.result.Issues)-1].AutoFixAvailable = true
	}
}

func (r *run) holeMachinability() {
	lim := analysis.HoleLimits{
		DeepRatio:   r.cfg.DeepHoleRatio,
		SevereRatio: r.cfg.SevereHoleRatio,
		SmallDia:    r.cfg.SmallHoleDiameter,
		TapTol:      r.cfg.TapTolerance,
	}
	for _, h := range r.an.HoleMachinability(r.holesAndBosses(), lim) {
		ids := []string{h.FaceID}
		switch h.Issue {
		case analysis.DeepHole:
			r.add(RuleHoleMachining, TypeDeepHole, severity(h.Severe),
				fmt.Sprintf("Hole %s is %.2fmm deep with a %.2fmm diameter (L/D %.1f)", h.FaceID, h.Depth, h.Diameter, h.Ratio),
				ids,
				fmt.Sprintf("Hole L/D ratio is %.1f. Ratios > %g require special drills; > %g are very difficult.",
					h.Ratio, r.cfg.DeepHoleRatio, r.cfg.SevereHoleRatio))
		case analysis.SmallHole:
			r.add(RuleHoleMachining, TypeSmallHole, SeverityWarning,
				fmt.Sprintf("Hole %s has a %.2fmm diameter", h.FaceID, h.Diameter),
				ids,
				fmt.Sprintf("Hole diameter %.2fmm is small. Ensure availability of micro-drills.", h.Diameter))
		case analysis.TappedHole:
			r.add(RuleHoleMachining, TypePotentialTappedHole, SeverityInfo,
				fmt.Sprintf("Hole %s (%.2fmm) matches the %s tap drill", h.FaceID, h.Diameter, h.Tap),
				ids,
				fmt.Sprintf("Hole matches tap drill size for %s. Ensure appropriate thread clearance and depth.", h.Tap))
		}
	}
}

func (r *run) holeClearance(rule string) {
	for _, h := range r.an.HoleEdgeClearance(r.model, r.holesAndBosses(), r.cfg.HoleClearanceFactor) {
		r.add(rule, TypeHoleEdgeClearance, severity(h.Severe),
			fmt.Sprintf("Hole %s (%.2fmm) is %.2fmm from the nearest face", h.FaceID, h.Diameter, h.Clearance),
			[]string{h.FaceID},
			fmt.Sprintf("Hole %s is too close to an edge (%.2fmm). Recommend at least %.2fmm clearance.", h.FaceID, h.Clearance, h.Target))
	}
}

func (r *run) pocketAccessibility() {
	_, err := r.an.PocketAccessibility(r.model)
	if errors.Is(err, analysis.ErrNotImplemented) {
		r.result.Unimplemented = append(r.result.Unimplemented, RulePocketAccess)
		r.logger.Debug("rule not implemented", zap.String("rule", RulePocketAccess))
	}
}

const (
	cncWallAdvice   = "Metal parts typically require >%gmm wall thickness for CNC machining."
	moldWallAdvice  = "Increase wall thickness to at least %gmm-1.0mm for injection molding."
	printWallAdvice = "Wall thickness below %gmm may be fragile or fail to print correctly on FDM machines."
)

func (r *run) minWall(rule string, sev Severity, advice string) {
	w := r.wallThickness()
	limit := r.cfg.MinWallThickness
	if w.Min >= limit {
		return
	}
	var ids []string
	for _, s := range w.Below(limit) {
		ids = append(ids, s.FaceID)
	}
	if len(ids) == 0 {
		for i := range r.model.Solids() {
			ids = append(ids, analysis.SolidID(i))
		}
	}
	r.add(rule, TypeThinWall, sev,
		fmt.Sprintf("Minimum wall thickness is %.2fmm (below %gmm)", w.Min, limit),
		ids, fmt.Sprintf(advice, limit))
}

func (r *run) wallUniformity() {
	w := r.wallThickness()
	if w.Min <= 0 {
		return
	}
	variation := (w.Max - w.Min) / w.Min
	if variation <= r.cfg.ThicknessVariation {
		return
	}
	r.add(RuleWallUniformity, TypeThicknessVariation, SeverityWarning,
		fmt.Sprintf("Wall thickness ranges from %.2fmm to %.2fmm (%.0f%% variation)", w.Min, w.Max, variation*100),
		nil,
		"Wall thickness varies significantly. Aim for uniform thickness to prevent warping and sink marks.")
}

func draftAdvice(c analysis.DraftClass) string {
	switch c {
	case analysis.DraftCritical:
		return "CRITICAL: Negative draft - part will not eject. Add positive draft."
	case analysis.DraftNeeded:
		return "WARNING: Minimal draft - ejection difficult. Recommend 1-2°."
	case analysis.DraftCaution:
		return "CAUTION: Low draft - may cause ejection marks. Consider 2°+."
	default:
		return "OK"
	}
}

func (r *run) draft() {
	for _, d := range r.an.Draft(r.model, r.cfg.PullDirection, r.cfg.DraftWarning, r.cfg.DraftCaution) {
		if d.Class != analysis.DraftNeeded && d.Class != analysis.DraftCritical {
			continue
		}
		r.add(RuleDraft, TypeLackOfDraft, severity(d.Angle < 0),
			fmt.Sprintf("Face %s has draft angle of %.1f°", d.FaceID, d.Angle),
			[]string{d.FaceID}, draftAdvice(d.Class))
	}
}

func (r *run) undercuts() {
	for _, u := range r.an.Undercuts(r.model, r.cfg.PullDirection, r.cfg.UndercutLimit, r.cfg.UndercutSevere) {
		r.add(RuleUndercut, TypeUndercut, severity(u.Severe),
			fmt.Sprintf("Face %s faces against the pull direction (n·d = %.2f)", u.FaceID, u.Dot),
			[]string{u.FaceID},
			"Avoid features that face opposite to the pull direction, or use a complex mold with side-actions.")
	}
}

func (r *run) bosses() {
	for _, b := range r.an.TallBosses(r.holesAndBosses(), r.cfg.BossRatio) {
		r.add(RuleBoss, TypeTallBoss, SeverityWarning,
			fmt.Sprintf("Boss %s is %.2fmm tall with a %.2fmm diameter", b.FaceID, b.Height, b.Diameter),
			[]string{b.FaceID},
			fmt.Sprintf("Boss height-to-diameter ratio is %.1f. Recommend keeping H/D <= %.1f to prevent breakage.", b.Ratio, r.cfg.BossRatio))
	}
}

func (r *run) ribs() {
	w := r.wallThickness()
	if w.Fallback || !analysis.ThinRib(w, r.cfg.RibRatio) {
		return
	}
	var ids []string
	for _, s := range w.Below(r.cfg.RibRatio * w.Avg) {
		ids = append(ids, s.FaceID)
	}
	r.add(RuleRib, TypeThinRib, SeverityWarning,
		fmt.Sprintf("Thinnest wall %.2fmm is below %.0f%% of the %.2fmm average", w.Min, r.cfg.RibRatio*100, w.Avg),
		ids,
		fmt.Sprintf("Thin feature detected (%.2fmm). If this is a rib, ensure it is 50-70%% of wall thickness (%.2fmm) to balance strength and sink marks.", w.Min, w.Avg))
}

func (r *run) overhangs() {
	for _, o := range r.an.Overhangs(r.model, r.cfg.BuildDirection, r.cfg.MaxOverhang) {
		r.add(RuleOverhang, TypeOverhang, SeverityWarning,
			fmt.Sprintf("Overhang of %.1f° on %s exceeds %g°. Requires support material.", o.Angle, o.FaceID, r.cfg.MaxOverhang),
			[]string{o.FaceID},
			"Add support structure or redesign to reduce overhang")
	}
}

func (r *run) complexSurfaces() {
	for _, s := range r.an.SurfaceComplexity(r.model) {
		if s.Complexity != analysis.ComplexityHigh {
			continue
		}
		r.add(RuleComplexSurface, TypeComplexSurface, SeverityInfo,
			fmt.Sprintf("Face %s is a %s surface with high manufacturing complexity", s.FaceID, s.Type),
			[]string{s.FaceID},
			fmt.Sprintf("Consider simplifying this %s surface to reduce manufacturing cost.", s.Type))
	}
}

func (r *run) efficiency() {
	e := r.an.SurfaceEfficiency(r.model, r.cfg.EfficiencyLimit)
	if e.Efficient {
		return
	}
	r.add(RuleMaterialEfficiency, TypeMaterialEfficiency, SeverityInfo,
		fmt.Sprintf("Normalized surface-to-volume ratio is %.1f (limit %g)", e.Normalized, r.cfg.EfficiencyLimit),
		nil,
		"High surface-to-volume ratio. Consider simplifying geometry or increasing thickness.")
}

func (r *run) interference() {
	for _, in := range r.an.Interference(r.ctx, r.model, r.cfg.InterferenceVolume, r.cfg.InterferenceSevere, r.cfg.Workers) {
		ids := []string{in.Solids[0], in.Solids[1]}
		if in.Potential {
			r.add(RuleInterference, TypePotentialInterference, SeverityWarning,
				fmt.Sprintf("Could not compute the intersection of %s and %s", ids[0], ids[1]),
				ids, "Verify the solids do not overlap.")
			continue
		}
		r.add(RuleInterference, TypeInterference, severity(in.Severe),
			fmt.Sprintf("Solids %s and %s overlap by %.2f mm³ (%.1f%% of the smaller solid)", ids[0], ids[1], in.Volume, in.Relative*100),
			ids, "Redesign to remove interference.")
	}
}

func (r *run) clearance() {
	for _, c := range r.an.Clearance(r.ctx, r.model, r.cfg.MinClearance, r.cfg.Workers) {
		ids := []string{c.Solids[0], c.Solids[1]}
		r.add(RuleClearance, TypeLowClearance, severity(c.Severe),
			fmt.Sprintf("Clearance between %s and %s is %.3fmm", ids[0], ids[1], c.Distance),
			ids, fmt.Sprintf("Increase the gap to at least %gmm.", r.cfg.MinClearance))
	}
}

func (r *run) smallFeatures() {
	for _, f := range r.an.SmallFeatures(r.model, r.cfg.SmallFeature) {
		r.add(RuleSmallFeature, TypeSmallFace, SeverityInfo,
			fmt.Sprintf("Face %s has an area of %.3f mm²", f.FaceID, f.Area),
			[]string{f.FaceID},
			fmt.Sprintf("Face area (%.3f mm²) is very small. Verify if it's intentional or a modeling artifact.", f.Area))
	}
}

// CountBySeverity tallies issues per severity.
func CountBySeverity(issues []Issue) map[Severity]int {
	out := make(map[Severity]int, len(Severities))
	for _, s := range Severities {
		out[s] = 0
	}
	for _, i := range issues {
		out[i.Severity]++
	}
	return out
}

// RuleIDs returns the distinct rule IDs in issues, sorted.
func RuleIDs(issues []Issue) []string {
	seen := make(map[string]bool)
	var out []string
	for _, i := range issues {
		if !seen[i.RuleID] {
			seen[i.RuleID] = true
			out = append(out, i.RuleID)
		}
	}
	sort.Strings(out)
	return out
}
