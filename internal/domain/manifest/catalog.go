package manifest

import (
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// Library is a resolved catalog entry
type Library struct {
	Group    string `json:"group"`
	Artifact string `json:"artifact"`
	Version  string `json:"version,omitempty"`
}

// Catalog is a Gradle version catalog (libs.versions.toml) keyed by the
// accessor a build script uses, so "espresso-core" is stored as
// "espresso.core".
type Catalog struct {
	Versions  map[string]string
	Libraries map[string]Library
	Plugins   map[string]string
}

type rawCatalog struct {
	Versions  map[string]any `toml:"versions"`
	Libraries map[string]any `toml:"libraries"`
	Plugins   map[string]any `toml:"plugins"`
}

var accessorReplacer = strings.NewReplacer("-", ".", "_", ".")

// Accessor converts a catalog key to its build-script accessor
func Accessor(key string) string {
	return accessorReplacer.Replace(key)
}

// LoadCatalog reads a version catalog file
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	return ParseCatalog(data)
}

// ParseCatalog parses version catalog TOML
func ParseCatalog(data []byte) (*Catalog, error) {
	var raw rawCatalog
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode catalog: %w", err)
	}

	c := &Catalog{
		Versions:  make(map[string]string, len(raw.Versions)),
		Libraries: make(map[string]Library, len(raw.Libraries)),
		Plugins:   make(map[string]string, len(raw.Plugins)),
	}

	for key, v := range raw.Versions {
		c.Versions[key] = richVersion(v)
	}

	for key, v := range raw.Libraries {
		lib, err := c.parseLibrary(v)
		if err != nil {
			return nil, fmt.Errorf("library %q: %w", key, err)
		}
		c.Libraries[Accessor(key)] = lib
	}

	for key, v := range raw.Plugins {
		switch p := v.(type) {
		case string:
			id, _, _ := strings.Cut(p, ":")
			c.Plugins[Accessor(key)] = id
		case map[string]any:
			id, _ := p["id"].(string)
			c.Plugins[Accessor(key)] = id
		}
	}

	return c, nil
}

func (c *Catalog) parseLibrary(v any) (Library, error) {
	switch entry := v.(type) {
	case string:
		parts := strings.Split(entry, ":")
		if len(parts) < 2 || len(parts) > 3 {
			return Library{}, fmt.Errorf("expected group:artifact[:version], got %q", entry)
		}
		lib := Library{Group: parts[0], Artifact: parts[1]}
		if len(parts) == 3 {
			lib.Version = parts[2]
		}
		return lib, nil
	case map[string]any:
		var lib Library
		if module, ok := entry["module"].(string); ok {
			group, artifact, found := strings.Cut(module, ":")
			if !found {
				return Library{}, fmt.Errorf("module %q is not group:artifact", module)
			}
			lib.Group, lib.Artifact = group, artifact
		} else {
			lib.Group, _ = entry["group"].(string)
			lib.Artifact, _ = entry["name"].(string)
		}
		if lib.Group == "" || lib.Artifact == "" {
			return Library{}, fmt.Errorf("missing group or name")
		}
		version, err := c.version(entry["version"])
		if err != nil {
			return Library{}, err
		}
		lib.Version = version
		return lib, nil
	default:
		return Library{}, fmt.Errorf("unexpected entry type %T", v)
	}
}

// version resolves a library version: a literal, a rich version table or a
// version.ref into the [versions] section.
func (c *Catalog) version(v any) (string, error) {
	switch ver := v.(type) {
	case nil:
		return "", nil
	case string:
		return ver, nil
	case map[string]any:
		if ref, ok := ver["ref"].(string); ok {
			resolved, found := c.Versions[ref]
			if !found {
				return "", fmt.Errorf("unknown version ref %q", ref)
			}
			return resolved, nil
		}
		return richVersion(ver), nil
	default:
		return "", fmt.Errorf("unexpected version type %T", v)
	}
}

func richVersion(v any) string {
	switch ver := v.(type) {
	case string:
		return ver
	case map[string]any:
		for _, key := range []string{"strictly", "require", "prefer"} {
			if s, ok := ver[key].(string); ok {
				return s
			}
		}
	}
	return ""
}

// Resolve returns a copy of m with catalog aliases filled in from c, plus the
// aliases c does not define.
func (m *Manifest) Resolve(c *Catalog) (*Manifest, []string) {
	out := m.Clone()
	var missing []string
	for i, d := range out.Dependencies {
		if d.Alias == "" {
			continue
		}
		lib, ok := c.Libraries[d.Alias]
		if !ok {
			missing = append(missing, d.Alias)
			continue
		}
		if d.Group == "" {
			d.Group = lib.Group
		}
		if d.Artifact == "" {
			d.Artifact = lib.Artifact
		}
		if d.Version == "" {
			d.Version = lib.Version
		}
		out.Dependencies[i] = d
	}
	return out, missing
}
