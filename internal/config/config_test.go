package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/ariel-frischer/changeset/internal/changeset"
	"github.com/ariel-frischer/changeset/internal/version"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeProjectFile(t *testing.T, root, name, content string) {
	t.Helper()
	dir := filepath.Join(root, changeset.DefaultDir)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestLoadDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := LoadWithOptions(LoadOptions{Root: t.TempDir(), SkipUserConfig: true})
	require.NoError(t, err)

	assert.Equal(t, "main", cfg.BaseBranch)
	assert.Equal(t, ".changeset", cfg.ChangesetDir)
	assert.Equal(t, []string{".", "packages/*"}, cfg.Packages)
	assert.Empty(t, cfg.Ignore)
	assert.Equal(t, "patch", cfg.MinCascade)
	assert.Equal(t, "literal", cfg.ZeroVersion)
	assert.Equal(t, "CHANGELOG.md", cfg.Changelog)
	assert.False(t, cfg.AllowDeletedChangesets)
	assert.True(t, cfg.Git.Commit)
	assert.True(t, cfg.Git.Tags)
	assert.Equal(t, "chore(release): {releases}", cfg.Git.CommitMessage)
}

func TestLoadProjectYAML(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeProjectFile(t, root, "config.yml", `base_branch: develop
min_cascade: minor
zero_version: shift
ignore:
  - "docs/**"
git:
  tags: false
`)

	cfg, err := LoadWithOptions(LoadOptions{Root: root, SkipUserConfig: true})
	require.NoError(t, err)

	assert.Equal(t, "develop", cfg.BaseBranch)
	assert.Equal(t, "minor", cfg.MinCascade)
	assert.Equal(t, "shift", cfg.ZeroVersion)
	assert.Equal(t, []string{"docs/**"}, cfg.Ignore)
	assert.False(t, cfg.Git.Tags)
	assert.True(t, cfg.Git.Commit, "unset nested keys keep their defaults")
}

func TestLoadProjectJSON(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeProjectFile(t, root, "config.json", `{"base_branch": "trunk", "git": {"commit": false}}`)

	cfg, err := LoadWithOptions(LoadOptions{Root: root, SkipUserConfig: true})
	require.NoError(t, err)

	assert.Equal(t, "trunk", cfg.BaseBranch)
	assert.False(t, cfg.Git.Commit)
}

func TestLoadYAMLWinsOverJSON(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeProjectFile(t, root, "config.yml", "base_branch: from-yaml\n")
	writeProjectFile(t, root, "config.json", `{"base_branch": "from-json"}`)

	var warnings bytes.Buffer
	cfg, err := LoadWithOptions(LoadOptions{Root: root, SkipUserConfig: true, WarningWriter: &warnings})
	require.NoError(t, err)

	assert.Equal(t, "from-yaml", cfg.BaseBranch)
	assert.Contains(t, warnings.String(), "config.json ignored")
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	root := t.TempDir()
	writeProjectFile(t, root, "config.yml", "base_branch: develop\n")

	t.Setenv("CHANGESET_BASE_BRANCH", "release")
	t.Setenv("CHANGESET_GIT_TAGS", "false")
	t.Setenv("CHANGESET_IGNORE", "docs/**, *.txt")
	t.Setenv("CHANGESET_ALLOW_DELETED_CHANGESETS", "true")

	cfg, err := LoadWithOptions(LoadOptions{Root: root, SkipUserConfig: true})
	require.NoError(t, err)

	assert.Equal(t, "release", cfg.BaseBranch)
	assert.False(t, cfg.Git.Tags)
	assert.Equal(t, []string{"docs/**", "*.txt"}, cfg.Ignore)
	assert.True(t, cfg.AllowDeletedChangesets)
}

func TestLoadUserConfig(t *testing.T) {
	home := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", home)
	t.Setenv("HOME", home)

	userPath, err := UserConfigPath()
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(filepath.Dir(userPath), 0o755))
	require.NoError(t, os.WriteFile(userPath, []byte("min_cascade: major\nbase_branch: user\n"), 0o644))

	root := t.TempDir()
	writeProjectFile(t, root, "config.yml", "base_branch: project\n")

	cfg, err := Load(root)
	require.NoError(t, err)

	assert.Equal(t, "major", cfg.MinCascade)
	assert.Equal(t, "project", cfg.BaseBranch, "project config overrides user config")
}

func TestLoadErrors(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		content string
		errMsg  string
	}{
		"invalid yaml": {
			content: "base_branch: [unclosed\n",
			errMsg:  "validating YAML syntax",
		},
		"unknown min cascade": {
			content: "min_cascade: huge\n",
			errMsg:  "min_cascade",
		},
		"unknown zero policy": {
			content: "zero_version: round\n",
			errMsg:  "must be one of: literal, shift",
		},
		"empty commit message": {
			content: "git:\n  commit_message: \"\"\n",
			errMsg:  "git.commit_message",
		},
		"bad ignore glob": {
			content: "ignore:\n  - \"docs/[\"\n",
			errMsg:  "invalid glob",
		},
		"absolute changeset dir": {
			content: "changeset_dir: /tmp/changes\n",
			errMsg:  "must be relative",
		},
	}

	for name, tt := range tests {
		tt := tt
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			root := t.TempDir()
			writeProjectFile(t, root, "config.yml", tt.content)

			_, err := LoadWithOptions(LoadOptions{Root: root, SkipUserConfig: true})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestResolveOptions(t *testing.T) {
	t.Parallel()

	cfg := &Configuration{MinCascade: "minor", ZeroVersion: "shift"}
	opts, err := cfg.ResolveOptions()
	require.NoError(t, err)
	assert.Equal(t, changeset.Minor, opts.MinCascade)
	assert.Equal(t, version.ZeroShift, opts.ZeroPolicy)

	_, err = (&Configuration{MinCascade: "tiny"}).ResolveOptions()
	assert.Error(t, err)
}

func TestChangesetPath(t *testing.T) {
	t.Parallel()

	cfg := &Configuration{ChangesetDir: ".changeset"}
	assert.Equal(t, filepath.Join("/repo", ".changeset"), cfg.ChangesetPath("/repo"))
}

func TestDefaultTemplateLoads(t *testing.T) {
	t.Parallel()

	require.NoError(t, ValidateYAMLSyntaxFromBytes([]byte(GetDefaultConfigTemplate()), "template"))

	root := t.TempDir()
	writeProjectFile(t, root, "config.yml", GetDefaultConfigTemplate())

	cfg, err := LoadWithOptions(LoadOptions{Root: root, SkipUserConfig: true})
	require.NoError(t, err)
	assert.Equal(t, "main", cfg.BaseBranch)
	assert.Equal(t, "CHANGELOG.md", cfg.Changelog)
}

func TestValidateYAMLSyntax(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		content string
		create  bool
		wantErr bool
	}{
		"missing file":    {create: false},
		"empty file":      {content: "  \n", create: true},
		"valid mapping":   {content: "base_branch: main\n", create: true},
		"unclosed flow":   {content: "ignore: [docs\nbase_branch: main\n", create: true, wantErr: true},
		"bad indentation": {content: "git:\n  commit: true\n bad: x\n", create: true, wantErr: true},
	}

	for name, tt := range tests {
		tt := tt
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			path := filepath.Join(t.TempDir(), "config.yml")
			if tt.create {
				require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o644))
			}

			err := ValidateYAMLSyntax(path)
			if !tt.wantErr {
				require.NoError(t, err)
				return
			}
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, path, verr.FilePath)
			assert.Positive(t, verr.Line)
		})
	}
}
