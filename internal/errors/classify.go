package errors

import (
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/ariel-frischer/changeset/internal/changeset"
	"github.com/ariel-frischer/changeset/internal/config"
	"github.com/ariel-frischer/changeset/internal/git"
	"github.com/ariel-frischer/changeset/internal/graph"
	"github.com/ariel-frischer/changeset/internal/release"
	"github.com/ariel-frischer/changeset/internal/resolve"
	"github.com/ariel-frischer/changeset/internal/verify"
)

// Kind is the classified failure behind an error.
type Kind int

const (
	KindInternal Kind = iota
	KindInvalidArgument
	KindConfig
	KindDuplicatePackage
	KindCyclicDependency
	KindInvalidManifest
	KindUnknownPackage
	KindMalformedChangeset
	KindRevisionNotFound
	KindCoverageFailure
	KindDeletedChangesets
	KindWriteValidation
	KindDirtyWorkingTree
)

var kindNames = map[Kind]string{
	KindInternal:           "internal",
	KindInvalidArgument:    "invalid-argument",
	KindConfig:             "config",
	KindDuplicatePackage:   "duplicate-package",
	KindCyclicDependency:   "cyclic-dependency",
	KindInvalidManifest:    "invalid-manifest",
	KindUnknownPackage:     "unknown-package",
	KindMalformedChangeset: "malformed-changeset",
	KindRevisionNotFound:   "revision-not-found",
	KindCoverageFailure:    "coverage-failure",
	KindDeletedChangesets:  "deleted-changesets",
	KindWriteValidation:    "write-validation",
	KindDirtyWorkingTree:   "dirty-working-tree",
}

// String returns the kebab-case name of the kind.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Classify returns the kind of err by inspecting its chain. Errors the
// engine does not type are KindInternal.
func Classify(err error) Kind {
	if err == nil {
		return KindInternal
	}

	var cliErr *CLIError
	if stderrors.As(err, &cliErr) {
		return cliErr.Kind
	}

	var (
		duplicate   *graph.DuplicatePackageError
		cycle       *graph.CyclicDependencyError
		manifest    *graph.InvalidManifestError
		unknown     *resolve.UnknownPackageError
		malformed   *changeset.MalformedError
		coverage    *verify.CoverageError
		deleted     *verify.DeletedChangesetsError
		writes      *release.WriteValidationError
		configValue *config.ValidationError
	)

	switch {
	case stderrors.As(err, &duplicate):
		return KindDuplicatePackage
	case stderrors.As(err, &cycle):
		return KindCyclicDependency
	case stderrors.As(err, &manifest):
		return KindInvalidManifest
	case stderrors.As(err, &unknown):
		return KindUnknownPackage
	case stderrors.As(err, &malformed):
		return KindMalformedChangeset
	case stderrors.As(err, &coverage):
		return KindCoverageFailure
	case stderrors.As(err, &deleted):
		return KindDeletedChangesets
	case stderrors.As(err, &writes):
		return KindWriteValidation
	case stderrors.As(err, &configValue):
		return KindConfig
	case stderrors.Is(err, git.ErrRevisionNotFound):
		return KindRevisionNotFound
	case stderrors.Is(err, release.ErrDirtyWorkingTree):
		return KindDirtyWorkingTree
	default:
		return KindInternal
	}
}

// Present converts err into a CLIError with category and remediation for
// display. A CLIError is returned unchanged.
func Present(err error) *CLIError {
	if err == nil {
		return nil
	}
	if cliErr := AsCLIError(err); cliErr != nil {
		return cliErr
	}

	kind := Classify(err)
	cliErr := &CLIError{
		Kind:     kind,
		Category: categoryOf(kind),
		Message:  err.Error(),
		Err:      err,
	}

	switch kind {
	case KindDuplicatePackage:
		cliErr.Remediation = []string{
			"Rename one of the packages in its package.yaml",
			"Or narrow the 'packages' globs in .changeset/config.yml",
		}
	case KindCyclicDependency:
		var cycle *graph.CyclicDependencyError
		stderrors.As(err, &cycle)
		cliErr.Remediation = []string{
			fmt.Sprintf("Break the cycle between: %s", strings.Join(cycle.Packages, ", ")),
			"Dev dependencies do not take part in cycles; mark test-only edges with 'kind: dev' under dependencies",
		}
	case KindInvalidManifest:
		cliErr.Remediation = []string{
			"Fix the field named above in the package's package.yaml",
			"Versions must be semver (1.2.3) and requirements semver constraints (^1.2.0)",
		}
	case KindUnknownPackage:
		var unknown *resolve.UnknownPackageError
		stderrors.As(err, &unknown)
		cliErr.Remediation = []string{
			fmt.Sprintf("Check the spelling of: %s", strings.Join(unknown.Packages(), ", ")),
			"Run 'changeset status' to list the workspace packages",
		}
	case KindMalformedChangeset:
		cliErr.Remediation = []string{
			"Changesets start with YAML front matter between '---' lines",
			"Each entry maps a package to patch, minor or major",
			"Create a well-formed changeset with 'changeset add'",
		}
	case KindRevisionNotFound:
		cliErr.Remediation = []string{
			"Fetch the base branch (git fetch origin main)",
			"Or pass an existing ref with --base",
		}
	case KindCoverageFailure:
		var coverage *verify.CoverageError
		stderrors.As(err, &coverage)
		cliErr.Remediation = []string{
			fmt.Sprintf("Add a changeset: changeset add --package %s --bump patch -m \"...\"",
				strings.Join(coverage.Packages, ",")),
			"Or list files that never need a changeset under 'ignore' in .changeset/config.yml",
		}
		var deleted *verify.DeletedChangesetsError
		if stderrors.As(err, &deleted) {
			cliErr.Remediation = append(cliErr.Remediation, "Restore the deleted changeset files")
		}
	case KindDeletedChangesets:
		cliErr.Remediation = []string{
			"Restore the deleted changeset files",
			"Or pass --allow-deleted-changesets if the removal is intended",
		}
	case KindWriteValidation:
		cliErr.Remediation = []string{
			"Nothing was written; fix the problems listed above and run the release again",
		}
	case KindDirtyWorkingTree:
		cliErr.Remediation = []string{
			"Commit or stash your changes before releasing",
			"Or pass --no-commit to write the release files without committing",
		}
	case KindConfig:
		cliErr.Remediation = []string{
			"Check .changeset/config.yml and CHANGESET_* environment variables",
			"Run 'changeset init --force' to regenerate a documented default config",
		}
	}

	return cliErr
}

func categoryOf(kind Kind) ErrorCategory {
	switch kind {
	case KindInvalidArgument, KindRevisionNotFound:
		return Argument
	case KindConfig:
		return Configuration
	case KindDuplicatePackage, KindCyclicDependency, KindInvalidManifest:
		return Workspace
	case KindUnknownPackage, KindMalformedChangeset:
		return Changeset
	case KindCoverageFailure, KindDeletedChangesets:
		return Verification
	case KindWriteValidation, KindDirtyWorkingTree:
		return Release
	default:
		return Runtime
	}
}
