package main

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/chazu/dfmcheck/pkg/config"
	"github.com/chazu/dfmcheck/pkg/dfm"
	"github.com/chazu/dfmcheck/pkg/engine"
	"github.com/chazu/dfmcheck/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestApp(t *testing.T, rec *metrics.Recorder) *App {
	t.Helper()
	return NewApp(config.Default(), nil, rec)
}

// TestE2EBracket exercises the full pipeline: Lisp source → engine → graph
// → solids → report.
func TestE2EBracket(t *testing.T) {
	app := newTestApp(t, nil)

	r, err := app.CheckFile(context.Background(), "examples/bracket.lisp", dfm.CNCMachining)
	require.NoError(t, err)

	assert.Equal(t, []string{"bracket"}, r.Parts)
	assert.Zero(t, r.Summary.Errors)
	assert.Zero(t, r.Summary.Warnings)
	assert.True(t, r.Summary.Manufacturable)
	assert.Len(t, r.Analysis.Holes, 2)
	assert.InDelta(t, 60*40*6-2*math.Pi*9*6, r.Physical.Volume, 1e-6)
}

func TestE2EInterference(t *testing.T) {
	rec, err := metrics.New()
	require.NoError(t, err)
	app := newTestApp(t, rec)

	r, err := app.CheckFile(context.Background(), "examples/colliding.lisp", dfm.CNCMachining)
	require.NoError(t, err)

	assert.Equal(t, []string{"base", "block"}, r.Parts)
	var found bool
	for _, i := range r.Issues {
		if i.RuleID == dfm.RuleInterference {
			found = true
			assert.Equal(t, dfm.SeverityError, i.Severity)
			assert.Contains(t, i.Description, "500.00 mm³")
			assert.Equal(t, []string{"S0", "S1"}, i.AffectedFeatures)
		}
	}
	assert.True(t, found, "expected an interference issue")
	assert.False(t, r.Summary.Manufacturable)

	expected := `
# HELP dfm_model_solids Solids in the last analysed model.
# TYPE dfm_model_solids gauge
dfm_model_solids 2
`
	assert.NoError(t, testutil.GatherAndCompare(rec.Registry(), strings.NewReader(expected), "dfm_model_solids"))
}

func TestE2EFixturePhysical(t *testing.T) {
	app := newTestApp(t, nil)

	m, err := app.LoadFile(context.Background(), "examples/fixture.lisp")
	require.NoError(t, err)
	assert.Equal(t, []string{"plate", "pin", "pin"}, m.Names())

	p := app.Physical(m)
	assert.InDelta(t, 80*40*8+166*math.Pi, p.Volume, 1e-6)
	assert.InDelta(t, p.Volume*2.7/1000, p.Mass, 1e-9)
	assert.Len(t, p.Solids, 3)
}

func TestE2EEmptySource(t *testing.T) {
	app := newTestApp(t, nil)

	for _, src := range []string{"", "   \n\t", ";; only a comment\n"} {
		r, err := app.Check(context.Background(), src, dfm.FDMPrinting)
		require.NoError(t, err)
		assert.Empty(t, r.Issues)
		assert.True(t, r.Summary.Manufacturable)
		assert.Zero(t, r.Physical.Volume)
	}
}

func TestE2EScriptError(t *testing.T) {
	app := newTestApp(t, nil)

	_, err := app.Check(context.Background(), "(defpart \"p\" (box 1 1 1)\n(part \"q\")", dfm.CNCMachining)
	var se *ScriptError
	require.ErrorAs(t, err, &se)
	assert.NotEmpty(t, se.Errors)
	assert.True(t, strings.HasPrefix(err.Error(), "script: "))
}

func TestE2EUndefinedPart(t *testing.T) {
	app := newTestApp(t, nil)

	_, err := app.Check(context.Background(), `(assembly "a" (part "missing"))`, dfm.CNCMachining)
	var se *ScriptError
	require.ErrorAs(t, err, &se)
	assert.Contains(t, err.Error(), `no part named "missing"`)
}

func TestE2EInvalidModel(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"zero dimension", `(box 10 0 5)`, "box dimension Y"},
		{"negative radius", `(cylinder :height 5 :radius -2)`, "cylinder radius"},
		{"hole breaks out", `(drill (box 10 10 2) :at (vec3 1 5 0) :diameter 4)`, "breaks out"},
		{"drilled cylinder", `(drill (cylinder 10 5) :at (vec3 0 0 0) :diameter 2)`, "only boxes can be drilled"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newTestApp(t, nil).Check(context.Background(), tt.src, dfm.CNCMachining)
			var ie *InvalidModelError
			require.ErrorAs(t, err, &ie)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestE2ECancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestApp(t, nil).Check(ctx, `(box 10 10 10)`, dfm.CNCMachining)
	if err != nil {
		assert.True(t, errors.Is(err, context.Canceled), "err = %v", err)
	}
}

func TestE2ENoTimeout(t *testing.T) {
	cfg := config.Default()
	cfg.Timeout = 0
	app := NewApp(cfg, nil, nil)

	r, err := app.Check(context.Background(), `(box 10 10 10)`, dfm.FDMPrinting)
	require.NoError(t, err)
	assert.Equal(t, 1, r.Analysis.Assembly.Solids)
}

func TestE2ETimeoutIsReported(t *testing.T) {
	cfg := config.Default()
	cfg.Timeout = time.Nanosecond
	app := NewApp(cfg, nil, nil)

	// A nanosecond is too short for anything but the fastest path; when it
	// does expire the error must say so.
	_, err := app.Check(context.Background(), `(box 10 10 10)`, dfm.FDMPrinting)
	if err != nil {
		assert.ErrorIs(t, err, engine.ErrTimeout)
	}
}

func TestLoadFileMissing(t *testing.T) {
	_, err := newTestApp(t, nil).LoadFile(context.Background(), filepath.Join(t.TempDir(), "nope.lisp"))
	assert.ErrorContains(t, err, "read model")
	assert.True(t, errors.Is(err, os.ErrNotExist))
}
