package manifest

import (
	"cmp"
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"
)

var ErrInvalidManifest = errors.New("invalid manifest")

// reverseDomain matches identifiers like com.example.app: two or more
// dot-separated segments, each starting with a letter.
var reverseDomain = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*(\.[A-Za-z][A-Za-z0-9_]*)+$`)

// Issue is a single validation failure
type Issue struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (i Issue) String() string {
	return i.Field + ": " + i.Message
}

// ValidationError carries every issue found in a manifest
type ValidationError struct {
	Issues []Issue
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Issues))
	for i, issue := range e.Issues {
		parts[i] = issue.String()
	}
	return fmt.Sprintf("invalid manifest: %s", strings.Join(parts, "; "))
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidManifest
}

// IsReverseDomain reports whether s is a valid reverse-domain identifier
func IsReverseDomain(s string) bool {
	return reverseDomain.MatchString(s)
}

// Issues lists every problem with m. An empty result means m is valid.
func (m *Manifest) Issues() []Issue {
	var issues []Issue
	add := func(field, format string, args ...any) {
		issues = append(issues, Issue{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	if !IsReverseDomain(m.Identity.Namespace) {
		add("identity.namespace", "%q is not a reverse-domain identifier", m.Identity.Namespace)
	}
	if !IsReverseDomain(m.Identity.ApplicationID) {
		add("identity.application_id", "%q is not a reverse-domain identifier", m.Identity.ApplicationID)
	}
	if m.Identity.VersionCode <= 0 {
		add("identity.version_code", "must be positive, got %d", m.Identity.VersionCode)
	}
	if strings.TrimSpace(m.Identity.VersionName) == "" {
		add("identity.version_name", "is required")
	}

	p := m.Platform
	for field, v := range map[string]int{"platform.min_sdk": p.MinSDK, "platform.target_sdk": p.TargetSDK, "platform.compile_sdk": p.CompileSDK} {
		if v <= 0 {
			add(field, "must be positive, got %d", v)
		}
	}
	if p.MinSDK > p.TargetSDK {
		add("platform.min_sdk", "min SDK %d exceeds target SDK %d", p.MinSDK, p.TargetSDK)
	}
	if p.MinSDK > p.CompileSDK {
		add("platform.min_sdk", "min SDK %d exceeds compile SDK %d", p.MinSDK, p.CompileSDK)
	}

	for i, d := range m.Dependencies {
		field := fmt.Sprintf("dependencies[%d]", i)
		if d.Configuration == "" {
			add(field, "configuration is required")
		}
		if d.Alias == "" && d.Module() == "" {
			add(field, "needs a catalog alias or group and artifact")
		}
	}

	seen := make(map[string]bool)
	for i, v := range m.Variants {
		name := strings.ToLower(v.Name)
		if name == "" {
			add(fmt.Sprintf("variants[%d]", i), "name is required")
			continue
		}
		if seen[name] {
			add(fmt.Sprintf("variants[%d]", i), "duplicate variant %q", v.Name)
		}
		seen[name] = true
	}

	sortIssues(issues)
	return issues
}

// Validate returns a *ValidationError listing every issue, or nil
func (m *Manifest) Validate() error {
	if issues := m.Issues(); len(issues) > 0 {
		return &ValidationError{Issues: issues}
	}
	return nil
}

// sortIssues orders by field so map iteration above stays deterministic
func sortIssues(issues []Issue) {
	slices.SortStableFunc(issues, func(a, b Issue) int {
		return cmp.Compare(a.Field, b.Field)
	})
}
