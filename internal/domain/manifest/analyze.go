package manifest

import (
	"slices"
	"sort"

	"github.com/GriffinCanCode/SolarSense/backend/internal/shared/utils"
)

// Duplicate is a module declared more than once
type Duplicate struct {
	Module       string       `json:"module"`
	Versions     []string     `json:"versions"`
	Declarations []Dependency `json:"declarations"`
	// Conflict is set when the declarations disagree on version. The build
	// tool resolves it to a single version; the report is informational.
	Conflict     bool         `json:"conflict"`
}

// Duplicates finds modules declared more than once. Only dependencies with
// known coordinates take part, so resolve catalog aliases first.
func (m *Manifest) Duplicates() []Duplicate {
	byModule := make(map[string][]Dependency)
	var order []string
	for _, d := range m.Dependencies {
		mod := d.Module()
		if mod == "" {
			continue
		}
		if _, ok := byModule[mod]; !ok {
			order = append(order, mod)
		}
		byModule[mod] = append(byModule[mod], d)
	}

	var out []Duplicate
	for _, mod := range order {
		decls := byModule[mod]
		if len(decls) < 2 {
			continue
		}
		var versions []string
		for _, d := range decls {
			if d.Version != "" && !slices.Contains(versions, d.Version) {
				versions = append(versions, d.Version)
			}
		}
		sort.Strings(versions)
		out = append(out, Duplicate{
			Module:       mod,
			Versions:     versions,
			Declarations: decls,
			Conflict:     len(versions) > 1,
		})
	}
	return out
}

// Redundant returns capabilities served by more than one distinct module,
// such as two HTTP clients. Like Duplicates it skips aliases without
// coordinates, since an alias and a direct declaration may name one library.
func (m *Manifest) Redundant() map[Capability][]string {
	out := make(map[Capability][]string)
	for capability, deps := range m.ByCapability() {
		var modules []string
		for _, d := range deps {
			if mod := d.Module(); mod != "" && !slices.Contains(modules, mod) {
				modules = append(modules, mod)
			}
		}
		if len(modules) > 1 {
			out[capability] = modules
		}
	}
	return out
}

// Unresolved lists catalog aliases that have no coordinates yet
func (m *Manifest) Unresolved() []string {
	var out []string
	for _, d := range m.Dependencies {
		if d.Alias != "" && !d.Resolved() {
			out = append(out, d.Alias)
		}
	}
	return out
}

// Report is the full analysis of a manifest
type Report struct {
	Manifest    *Manifest               `json:"manifest"`
	Fingerprint string                  `json:"fingerprint"`
	Valid       bool                    `json:"valid"`
	Issues      []Issue                 `json:"issues,omitempty"`
	Duplicates  []Duplicate             `json:"duplicates,omitempty"`
	Redundant   map[Capability][]string `json:"redundant,omitempty"`
	Unresolved  []string                `json:"unresolved,omitempty"`
}

// Inspect validates and analyzes m
func Inspect(m *Manifest) (*Report, error) {
	fp, err := utils.Fingerprint(m)
	if err != nil {
		return nil, err
	}
	issues := m.Issues()
	return &Report{
		Manifest:    m,
		Fingerprint: fp,
		Valid:       len(issues) == 0,
		Issues:      issues,
		Duplicates:  m.Duplicates(),
		Redundant:   m.Redundant(),
		Unresolved:  m.Unresolved(),
	}, nil
}
