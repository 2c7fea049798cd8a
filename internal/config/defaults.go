package config

// GetDefaultConfigTemplate returns a fully commented config template for `changeset init`.
// All options are documented with their default values.
func GetDefaultConfigTemplate() string {
	return `# changeset configuration
# Values can be overridden with CHANGESET_* environment variables
# (e.g. CHANGESET_BASE_BRANCH, CHANGESET_GIT_TAGS).

# Ref that verify compares HEAD against
base_branch: main

# Directory holding pending changesets
changeset_dir: .changeset

# Globs matched against directories containing a package.yaml
packages:
  - "."
  - "packages/*"

# Files that never require a changeset (doublestar globs)
ignore: []
#  - "docs/**"
#  - "**/*_test.go"

# Lowest bump applied to a dependent whose requirement a release breaks
min_cascade: patch                    # patch, minor, major

# How bumps apply to 0.x versions
#   literal: a major bump on 0.3.1 gives 1.0.0
#   shift:   major -> minor and minor -> patch while below 1.0.0
zero_version: literal

# Changelog file name inside each package directory
changelog: CHANGELOG.md

# Pass verify even when a pending changeset is deleted
allow_deleted_changesets: false

git:
  commit: true                        # Commit the release
  tags: true                          # Tag each released package
  commit_message: "chore(release): {releases}"
`
}

// GetDefaults returns the default configuration values
func GetDefaults() map[string]interface{} {
	return map[string]interface{}{
		"base_branch":   "main",
		"changeset_dir": ".changeset",
		"packages":      []string{".", "packages/*"},
		"ignore":        []string{},
		// min_cascade: a breaking dependency bump still only forces a patch on dependents.
		"min_cascade":              "patch",
		"zero_version":             "literal",
		"changelog":                "CHANGELOG.md",
		"allow_deleted_changesets": false,
		"git": map[string]interface{}{
			"commit":         true,
			"tags":           true,
			"commit_message": "chore(release): {releases}",
		},
	}
}
