package rema

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrRetainRequiresUnreleased is returned when RetainIfUnreleased is
	// requested for a package that already has a published release.
	ErrRetainRequiresUnreleased = errors.New("retaining the version is only allowed for unreleased packages")

	// ErrNoPreReleaseKinds indicates every pre-release kind already exists for the target version.
	ErrNoPreReleaseKinds = errors.New("no new pre-release types available for this version; bump an existing pre-release or the major, minor or patch")

	// ErrDirtyWorkingTree indicates uncommitted changes outside the release's own files.
	ErrDirtyWorkingTree = errors.New("working directory is dirty")

	// ErrUnsupportedTool indicates an external tool is missing or outside the supported version range.
	ErrUnsupportedTool = errors.New("unsupported tool version")
)

// MalformedTagError reports a release tag whose version part is not valid semver.
type MalformedTagError struct {
	Tag string
	Err error
}

func (e *MalformedTagError) Error() string {
	return fmt.Sprintf("invalid version format for tag %q: %v", e.Tag, e.Err)
}

func (e *MalformedTagError) Unwrap() error { return e.Err }

// NoPackageSelectedError reports a bump requested for a package that is not known.
type NoPackageSelectedError struct {
	Package string
}

func (e *NoPackageSelectedError) Error() string {
	if e.Package == "" {
		return "no package selected"
	}
	return fmt.Sprintf("no version known for package %q", e.Package)
}

// InvalidPreReleaseFormatError reports a pre-release identifier that cannot be incremented.
type InvalidPreReleaseFormatError struct {
	PreRelease string
}

func (e *InvalidPreReleaseFormatError) Error() string {
	return fmt.Sprintf("invalid pre-release format %q: expected <kind>.<number>, e.g. 'beta.1'", e.PreRelease)
}

// PreReleaseLineageError reports a new pre-release that would duplicate or
// regress an existing pre-release of the same kind for the same version.
type PreReleaseLineageError struct {
	Package   string
	Candidate Version
	Conflict  ReleaseRecord
}

func (e *PreReleaseLineageError) Error() string {
	return fmt.Sprintf("failed to generate pre-release %s for %q: %s already exists or is newer",
		e.Candidate, e.Package, e.Conflict.Version)
}

// ManifestError reports a failure to read, parse or write a manifest file.
type ManifestError struct {
	Path string
	Op   string // "read", "parse", "edit", "write", "restore"
	Err  error
}

func (e *ManifestError) Error() string {
	return fmt.Sprintf("manifest %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *ManifestError) Unwrap() error { return e.Err }

// ExternalProcessError wraps a failed VCS or release-host invocation.
type ExternalProcessError struct {
	Command string
	Stderr  string
	Err     error
}

func (e *ExternalProcessError) Error() string {
	msg := fmt.Sprintf("%s failed: %v", e.Command, e.Err)
	if s := strings.TrimSpace(e.Stderr); s != "" {
		msg += ", detail: " + s
	}
	return msg
}

func (e *ExternalProcessError) Unwrap() error { return e.Err }

// CompensationFailure is one rollback step that could not be completed.
type CompensationFailure struct {
	Step string
	Err  error
}

func (f CompensationFailure) Error() string {
	return fmt.Sprintf("%s: %v", f.Step, f.Err)
}

func (f CompensationFailure) Unwrap() error { return f.Err }

// RollbackResult describes what the coordinator managed to undo.
type RollbackResult struct {
	Attempted []string
	Failures  []CompensationFailure
}

// FullyReverted reports whether every compensation succeeded.
func (r RollbackResult) FullyReverted() bool {
	return len(r.Failures) == 0
}

func (r RollbackResult) String() string {
	if r.FullyReverted() {
		return "fully reverted"
	}
	parts := make([]string, 0, len(r.Failures))
	for _, f := range r.Failures {
		parts = append(parts, f.Error())
	}
	return "partially reverted, manual intervention required: " + strings.Join(parts, "; ")
}

// TransactionError is returned when a release transaction fails after it
// started mutating state.
type TransactionError struct {
	Step     State // the forward step that failed
	Err      error
	Rollback RollbackResult
}

func (e *TransactionError) Error() string {
	return fmt.Sprintf("release failed at %s: %v (%s)", e.Step.Step(), e.Err, e.Rollback)
}

func (e *TransactionError) Unwrap() []error {
	errs := []error{e.Err}
	for _, f := range e.Rollback.Failures {
		errs = append(errs, f)
	}
	return errs
}

// PartiallyReverted reports whether the failure needs manual follow-up.
func (e *TransactionError) PartiallyReverted() bool {
	return !e.Rollback.FullyReverted()
}
