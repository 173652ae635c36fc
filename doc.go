// Package main implements the rema CLI.
//
// rema cuts a release of one package in a repository that may hold several
// packages. It lists the published releases (through the GitHub CLI), finds
// the latest version of each package from tags such as "web@v1.4.0" or
// "v2.0.0", computes the next version, writes it into the package's local
// manifests (package.json and package-lock.json, Cargo.toml, pyproject.toml,
// Chart.yaml, pubspec.yaml, go.mod), commits, pushes, publishes the release
// and fetches the new tag. When any of those steps fails, the completed ones
// are undone in reverse order.
//
// Command Usage:
//
//	rema list
//	rema release [flags]
//	rema releases export <file>
//	rema version
//
// Release flags:
//
//	--package, -p: Package to release. Optional when the repository has a single package.
//	--bump:        major, minor, patch, pre, pre-new or retain.
//	--pre-kind:    alpha, beta or rc, for pre-new.
//	--pre-base:    major, minor, patch or retain: the bump applied before a new pre-release.
//	--title:       Release title and commit message. Defaults to the tag.
//	--notes:       Release notes.
//	--yes, -y:     Skip the confirmation prompt.
//	--dry-run:     Print the plan without changing anything.
//
// Global flags are --config, --dir, --log-level, --releases-file and
// --timeout. Every setting can also come from .rema.yaml or a REMA_*
// environment variable, e.g. REMA_STRICT_TAG_SYNC=true.
//
// Examples:
//
//	# Bump the minor version of web (web@v1.2.3 → web@v1.3.0)
//	rema release -p web --bump minor
//
//	# Start a beta of the next major (web@v1.2.3 → web@v2.0.0-beta.1)
//	rema release -p web --bump pre-new --pre-kind beta --pre-base major
//
//	# Continue the beta (web@v2.0.0-beta.1 → web@v2.0.0-beta.2)
//	rema release -p web --bump pre
//
//	# Publish the version already in an unreleased package's manifest
//	rema release -p api --bump retain
//
//	# Plan offline from an exported release list
//	rema releases export releases.json
//	rema release -p web --bump patch --dry-run --releases-file releases.json
package main
