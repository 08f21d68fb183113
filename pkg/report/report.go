// Package report combines the checker's issues, the model's physical
// properties and the detailed per-feature analysis into one document.
package report

import (
	"context"
	"time"

	"github.com/chazu/dfmcheck/pkg/analysis"
	"github.com/chazu/dfmcheck/pkg/dfm"
	"github.com/chazu/dfmcheck/pkg/kernel"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Report is the full outcome of analysing one model.
type Report struct {
	ID          string      `json:"id"`
	GeneratedAt time.Time   `json:"generated_at"`
	Process     dfm.Process `json:"process"`
	// Parts names the solids in order: Parts[i] is solid S<i>.
	Parts         []string          `json:"parts,omitempty"`
	Summary       Summary           `json:"summary"`
	Issues        []dfm.Issue       `json:"issues"`
	Physical      analysis.Physical `json:"physical_properties"`
	Analysis      Details           `json:"detailed_analysis"`
	Skipped       map[string]int    `json:"skipped_queries,omitempty"`
	Unimplemented []string          `json:"unimplemented_rules,omitempty"`
}

// Summary counts issues by severity. Critical issues are the ERROR ones; a
// model without them is considered manufacturable.
type Summary struct {
	Total          int  `json:"total_issues"`
	Errors         int  `json:"errors"`
	Warnings       int  `json:"warnings"`
	Info           int  `json:"info"`
	Critical       int  `json:"critical"`
	Manufacturable bool `json:"manufacturable"`
}

// Details is the per-feature analysis behind the issues.
type Details struct {
	WallThickness analysis.WallThickness     `json:"wall_thickness"`
	Draft         []analysis.FaceDraft       `json:"draft,omitempty"`
	Undercuts     []analysis.Undercut        `json:"undercuts,omitempty"`
	Overhangs     []analysis.Overhang        `json:"overhangs,omitempty"`
	Holes         []analysis.Feature         `json:"holes_and_bosses,omitempty"`
	Surfaces      []analysis.SurfaceFinding  `json:"surfaces,omitempty"`
	Efficiency    analysis.Efficiency        `json:"surface_efficiency"`
	Fillets       []analysis.FilletCandidate `json:"fillet_candidates,omitempty"`
	Assembly      analysis.Census            `json:"assembly"`
}

// Summarize counts issues.
func Summarize(issues []dfm.Issue) Summary {
	c := dfm.CountBySeverity(issues)
	return Summary{
		Total:          len(issues),
		Errors:         c[dfm.SeverityError],
		Warnings:       c[dfm.SeverityWarning],
		Info:           c[dfm.SeverityInfo],
		Critical:       c[dfm.SeverityError],
		Manufacturable: c[dfm.SeverityError] == 0,
	}
}

// Composer builds reports.
type Composer struct {
	checker *dfm.Checker
	density float64
	logger  *zap.Logger
	now     func() time.Time
}

// NewComposer returns a Composer that checks with c and computes mass at
// density g/cm³.
func NewComposer(c *dfm.Checker, density float64, logger *zap.Logger) *Composer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Composer{checker: c, density: density, logger: logger, now: time.Now}
}

// Compose runs the checker on m and gathers the physical properties and the
// detailed analysis. Skipped queries from the detail pass are not merged
// into the checker's counts.
func (c *Composer) Compose(ctx context.Context, m kernel.Model, p dfm.Process) Report {
	if m == nil {
		m = kernel.ModelOf(nil)
	}
	res := c.checker.Run(ctx, m, p)

	a := analysis.New(c.logger.Named("details"))
	r := Report{
		ID:            uuid.NewString(),
		GeneratedAt:   c.now().UTC(),
		Process:       p,
		Summary:       Summarize(res.Issues),
		Issues:        res.Issues,
		Physical:      a.Physical(m, c.density),
		Analysis:      c.details(a, m, p),
		Skipped:       res.Skipped,
		Unimplemented: res.Unimplemented,
	}
	if named, ok := m.(interface{ Names() []string }); ok {
		r.Parts = named.Names()
	}
	return r
}

func (c *Composer) details(a *analysis.Analyzer, m kernel.Model, p dfm.Process) Details {
	cfg := c.checker.Config()
	d := Details{
		WallThickness: a.WallThickness(m, cfg.WallSamples, cfg.ThicknessProbe),
		Holes:         a.HolesAndBosses(m),
		Surfaces:      a.SurfaceComplexity(m),
		Efficiency:    a.SurfaceEfficiency(m, cfg.EfficiencyLimit),
		Fillets:       a.FilletCandidates(m),
		Assembly:      a.Census(m),
	}
	switch p {
	case dfm.InjectionMolding:
		d.Draft = a.Draft(m, cfg.PullDirection, cfg.DraftWarning, cfg.DraftCaution)
		d.Undercuts = a.Undercuts(m, cfg.PullDirection, cfg.UndercutLimit, cfg.UndercutSevere)
	case dfm.FDMPrinting:
		d.Overhangs = a.Overhangs(m, cfg.BuildDirection, cfg.MaxOverhang)
	}
	return d
}
