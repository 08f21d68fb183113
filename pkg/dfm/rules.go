package dfm

// Rule describes one check in the catalog.
type Rule struct {
	ID   string `json:"ruleId"`
	Name string `json:"ruleName"`
	// Scope is the process the rule belongs to, or "UNIVERSAL" and
	// "ASSEMBLY".
	Scope       string `json:"scope"`
	Implemented bool   `json:"implemented"`
}

const (
	scopeUniversal = "UNIVERSAL"
	scopeAssembly  = "ASSEMBLY"
)

// Rule IDs.
const (
	RuleSharpCorner        = "CNC_001"
	RuleHoleMachining      = "CNC_002"
	RuleCNCHoleClearance   = "CNC_003"
	RulePocketAccess       = "CNC_004"
	RuleCNCMinWall         = "CNC_005"
	RuleDraft              = "IM_001"
	RuleUndercut           = "IM_002"
	RuleBoss               = "IM_003"
	RuleRib                = "IM_004"
	RuleIMHoleClearance    = "IM_005"
	RuleIMMinWall          = "IM_006"
	RuleWallUniformity     = "IM_007"
	RuleOverhang           = "FDM_001"
	RuleFeatureSpacing     = "FDM_002"
	RuleFDMMinWall         = "FDM_003"
	RuleComplexSurface     = "GEN_001"
	RuleMaterialEfficiency = "GEN_002"
	RuleSmallFeature       = "GEN_003"
	RuleInterference       = "ASM_001"
	RuleClearance          = "ASM_002"
)

// catalog is ordered as the checks run.
var catalog = []Rule{
	{RuleSharpCorner, "Sharp Internal Corner", string(CNCMachining), true},
	{RuleHoleMachining, "Hole Machinability", string(CNCMachining), true},
	{RuleCNCHoleClearance, "Hole Edge Clearance", string(CNCMachining), true},
	{RulePocketAccess, "Pocket Accessibility", string(CNCMachining), false},
	{RuleCNCMinWall, "Minimum Wall Thickness", string(CNCMachining), true},
	{RuleDraft, "Insufficient Draft Angle", string(InjectionMolding), true},
	{RuleUndercut, "Undercut Detected", string(InjectionMolding), true},
	{RuleBoss, "Boss Proportions", string(InjectionMolding), true},
	{RuleRib, "Rib Proportions", string(InjectionMolding), true},
	{RuleIMHoleClearance, "Hole Edge Clearance", string(InjectionMolding), true},
	{RuleIMMinWall, "Wall Too Thin", string(InjectionMolding), true},
	{RuleWallUniformity, "Wall Thickness Variation", string(InjectionMolding), true},
	{RuleOverhang, "Overhang Requires Support", string(FDMPrinting), true},
	{RuleFeatureSpacing, "Feature Spacing", string(FDMPrinting), true},
	{RuleFDMMinWall, "Minimum Wall Thickness", string(FDMPrinting), true},
	{RuleComplexSurface, "Complex Surface", scopeUniversal, true},
	{RuleMaterialEfficiency, "Material Efficiency", scopeUniversal, true},
	{RuleInterference, "Solid Interference", scopeAssembly, true},
	{RuleClearance, "Insufficient Clearance", scopeAssembly, true},
	{RuleSmallFeature, "Small Feature", scopeUniversal, true},
}

// Rules returns the rules that run for p, in execution order: process
// rules, then the universal and assembly rules. An unsupported process gets
// only the universal and assembly rules. Assembly rules apply to models
// with more than one solid.
func Rules(p Process) []Rule {
	var out []Rule
	for _, r := range catalog {
		if r.Scope == string(p) {
			out = append(out, r)
		}
	}
	for _, r := range catalog {
		if r.Scope == scopeUniversal || r.Scope == scopeAssembly {
			out = append(out, r)
		}
	}
	return out
}

// ruleName returns the catalog name for id.
func ruleName(id string) string {
	for _, r := range catalog {
		if r.ID == id {
			return r.Name
		}
	}
	return id
}
