package manifest

import (
	"fmt"
	"strings"
)

// Configuration is the dependency scope a library is declared in
type Configuration string

const (
	Implementation            Configuration = "implementation"
	TestImplementation        Configuration = "testImplementation"
	AndroidTestImplementation Configuration = "androidTestImplementation"
)

// Capability is the role a dependency plays in the app
type Capability string

const (
	CapUICompat            Capability = "ui-compat"
	CapMaterial            Capability = "material-components"
	CapActivity            Capability = "activity"
	CapLayout              Capability = "constraint-layout"
	CapHTTPClient          Capability = "http-client"
	CapCardView            Capability = "card-view"
	CapUnitTest            Capability = "unit-test"
	CapInstrumentationTest Capability = "instrumentation-test"
	CapUITest              Capability = "ui-test"
)

// Identity names the application
type Identity struct {
	Namespace     string `json:"namespace" toml:"namespace" yaml:"namespace"`
	ApplicationID string `json:"application_id" toml:"application_id" yaml:"application_id"`
	VersionCode   int    `json:"version_code" toml:"version_code" yaml:"version_code"`
	VersionName   string `json:"version_name" toml:"version_name" yaml:"version_name"`
}

// PlatformRange is the supported SDK range
type PlatformRange struct {
	MinSDK     int `json:"min_sdk" toml:"min_sdk" yaml:"min_sdk"`
	TargetSDK  int `json:"target_sdk" toml:"target_sdk" yaml:"target_sdk"`
	CompileSDK int `json:"compile_sdk" toml:"compile_sdk" yaml:"compile_sdk"`
}

// BuildVariant is a build type such as "release"
type BuildVariant struct {
	Name          string   `json:"name" toml:"name" yaml:"name"`
	MinifyEnabled bool     `json:"minify_enabled" toml:"minify_enabled" yaml:"minify_enabled"`
	ProguardFiles []string `json:"proguard_files,omitempty" toml:"proguard_files,omitempty" yaml:"proguard_files,omitempty"`
}

// Dependency is one declared library. Either Alias (a catalog accessor such
// as "espresso.core") or Group and Artifact identify it.
type Dependency struct {
	Alias         string        `json:"alias,omitempty" toml:"alias,omitempty" yaml:"alias,omitempty"`
	Group         string        `json:"group,omitempty" toml:"group,omitempty" yaml:"group,omitempty"`
	Artifact      string        `json:"artifact,omitempty" toml:"artifact,omitempty" yaml:"artifact,omitempty"`
	Version       string        `json:"version,omitempty" toml:"version,omitempty" yaml:"version,omitempty"`
	Configuration Configuration `json:"configuration" toml:"configuration" yaml:"configuration"`
	Capability    Capability    `json:"capability" toml:"capability" yaml:"capability"`
}

// Module returns "group:artifact", or "" for an unresolved alias
func (d Dependency) Module() string {
	if d.Group == "" || d.Artifact == "" {
		return ""
	}
	return d.Group + ":" + d.Artifact
}

// Resolved reports whether the dependency has full coordinates
func (d Dependency) Resolved() bool {
	return d.Module() != "" && d.Version != ""
}

// Key identifies the library regardless of how it was declared
func (d Dependency) Key() string {
	if m := d.Module(); m != "" {
		return m
	}
	return "libs." + d.Alias
}

func (d Dependency) String() string {
	switch {
	case d.Resolved():
		return fmt.Sprintf("%s(%q)", d.Configuration, d.Module()+":"+d.Version)
	case d.Module() != "":
		return fmt.Sprintf("%s(%q)", d.Configuration, d.Module())
	default:
		return fmt.Sprintf("%s(libs.%s)", d.Configuration, d.Alias)
	}
}

// Manifest is the full declared build surface
type Manifest struct {
	Identity            Identity       `json:"identity" toml:"identity" yaml:"identity"`
	Platform            PlatformRange  `json:"platform" toml:"platform" yaml:"platform"`
	SourceCompatibility int            `json:"source_compatibility" toml:"source_compatibility" yaml:"source_compatibility"`
	TargetCompatibility int            `json:"target_compatibility" toml:"target_compatibility" yaml:"target_compatibility"`
	TestRunner          string         `json:"test_runner" toml:"test_runner" yaml:"test_runner"`
	Plugins             []string       `json:"plugins,omitempty" toml:"plugins,omitempty" yaml:"plugins,omitempty"`
	Variants            []BuildVariant `json:"variants,omitempty" toml:"variants,omitempty" yaml:"variants,omitempty"`
	Dependencies        []Dependency   `json:"dependencies" toml:"dependencies" yaml:"dependencies"`
}

// Default returns the manifest the app ships with
func Default() *Manifest {
	return &Manifest{
		Identity: Identity{
			Namespace:     "com.example.solarsenseapp",
			ApplicationID: "com.example.solarsenseapp",
			VersionCode:   1,
			VersionName:   "1.0",
		},
		Platform: PlatformRange{
			MinSDK:     24,
			TargetSDK:  34,
			CompileSDK: 34,
		},
		SourceCompatibility: 11,
		TargetCompatibility: 11,
		TestRunner:          "androidx.test.runner.AndroidJUnitRunner",
		Plugins:             []string{"android.application"},
		Variants: []BuildVariant{{
			Name:          "release",
			MinifyEnabled: false,
			ProguardFiles: []string{"proguard-android-optimize.txt", "proguard-rules.pro"},
		}},
		Dependencies: []Dependency{
			{Alias: "appcompat", Configuration: Implementation, Capability: CapUICompat},
			{Alias: "material", Configuration: Implementation, Capability: CapMaterial},
			{Alias: "activity", Configuration: Implementation, Capability: CapActivity},
			{Alias: "constraintlayout", Configuration: Implementation, Capability: CapLayout},
			{Alias: "volley", Configuration: Implementation, Capability: CapHTTPClient},
			{Alias: "junit", Configuration: TestImplementation, Capability: CapUnitTest},
			{Alias: "ext.junit", Configuration: AndroidTestImplementation, Capability: CapInstrumentationTest},
			{Alias: "espresso.core", Configuration: AndroidTestImplementation, Capability: CapUITest},
			{Alias: "okhttp", Configuration: Implementation, Capability: CapHTTPClient},
			{Group: "com.squareup.okhttp3", Artifact: "okhttp", Version: "4.12.0", Configuration: Implementation, Capability: CapHTTPClient},
			{Group: "androidx.cardview", Artifact: "cardview", Version: "1.0.0", Configuration: Implementation, Capability: CapCardView},
			{Group: "com.google.android.material", Artifact: "material", Version: "1.6.0", Configuration: Implementation, Capability: CapMaterial},
		},
	}
}

// Clone returns a deep copy of m
func (m *Manifest) Clone() *Manifest {
	c := *m
	c.Plugins = append([]string(nil), m.Plugins...)
	c.Dependencies = append([]Dependency(nil), m.Dependencies...)
	c.Variants = make([]BuildVariant, len(m.Variants))
	for i, v := range m.Variants {
		v.ProguardFiles = append([]string(nil), v.ProguardFiles...)
		c.Variants[i] = v
	}
	return &c
}

// ByCapability groups dependencies by capability, in declaration order
func (m *Manifest) ByCapability() map[Capability][]Dependency {
	out := make(map[Capability][]Dependency)
	for _, d := range m.Dependencies {
		out[d.Capability] = append(out[d.Capability], d)
	}
	return out
}

// Variant returns the named build variant
func (m *Manifest) Variant(name string) (BuildVariant, bool) {
	for _, v := range m.Variants {
		if strings.EqualFold(v.Name, name) {
			return v, true
		}
	}
	return BuildVariant{}, false
}
