// Package dfm turns geometric findings into manufacturability issues for a
// chosen manufacturing process.
package dfm

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownProcess is returned by ParseProcess for unrecognized names.
var ErrUnknownProcess = errors.New("dfm: unknown manufacturing process")

// Process selects which rules and thresholds apply.
type Process string

const (
	CNCMachining     Process = "CNC_MACHINING"
	InjectionMolding Process = "INJECTION_MOLDING"
	FDMPrinting      Process = "FDM_3D_PRINTING"
)

// Processes lists the supported processes.
var Processes = []Process{CNCMachining, InjectionMolding, FDMPrinting}

// Valid reports whether p is a supported process.
func (p Process) Valid() bool {
	for _, q := range Processes {
		if p == q {
			return true
		}
	}
	return false
}

// processAliases maps short names accepted on the command line.
var processAliases = map[string]Process{
	"CNC": CNCMachining,
	"IM":  InjectionMolding,
	"FDM": FDMPrinting,
}

// ParseProcess accepts a process name in any case, with '-' or '_'
// separators, or one of the short forms cnc, im and fdm.
func ParseProcess(s string) (Process, error) {
	name := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), "-", "_"))
	if p, ok := processAliases[name]; ok {
		return p, nil
	}
	if p := Process(name); p.Valid() {
		return p, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownProcess, s)
}

// Severity grades an issue.
type Severity string

const (
	SeverityError   Severity = "ERROR"
	SeverityWarning Severity = "WARNING"
	SeverityInfo    Severity = "INFO"
)

// Severities lists severities from most to least serious.
var Severities = []Severity{SeverityError, SeverityWarning, SeverityInfo}

// Issue is one manufacturability problem. Issues are not deduplicated: a
// feature may appear in several issues from different rules.
type Issue struct {
	RuleID           string   `json:"ruleId"`
	RuleName         string   `json:"ruleName"`
	Type             string   `json:"type"`
	Severity         Severity `json:"severity"`
	Description      string   `json:"description"`
	AffectedFeatures []string `json:"affectedFeatures"`
	Recommendation   string   `json:"recommendation"`
	AutoFixAvailable bool     `json:"autoFixAvailable"`
}

// Issue types.
const (
	TypeSharpInternal         = "SHARP_INTERNAL"
	TypeDeepHole              = "DEEP_HOLE"
	TypeSmallHole             = "SMALL_HOLE"
	TypePotentialTappedHole   = "POTENTIAL_TAPPED_HOLE"
	TypeHoleEdgeClearance     = "HOLE_EDGE_CLEARANCE"
	TypeThinWall              = "THIN_WALL"
	TypeThicknessVariation    = "THICKNESS_VARIATION"
	TypeLackOfDraft           = "LACK_OF_DRAFT"
	TypeUndercut              = "UNDERCUT"
	TypeTallBoss              = "TALL_BOSS"
	TypeThinRib               = "THIN_RIB"
	TypeOverhang              = "OVERHANG"
	TypeComplexSurface        = "COMPLEX_SURFACE"
	TypeMaterialEfficiency    = "MATERIAL_EFFICIENCY"
	TypeSmallFace             = "SMALL_FACE"
	TypeInterference          = "INTERFERENCE"
	TypePotentialInterference = "POTENTIAL_INTERFERENCE"
	TypeLowClearance          = "LOW_CLEARANCE"
)
