// Package manifest models the tracker app's build manifest: the application
// identity, the supported platform range, build variants and the declared
// library dependencies grouped by capability.
//
// The manifest is data. It is validated (SDK ordering, reverse-domain IDs),
// analyzed for duplicate and redundant declarations, and can be loaded from
// TOML, YAML or JSON. Catalog aliases ("libs.appcompat") carry no
// coordinates until resolved against a Gradle version catalog.
package manifest
