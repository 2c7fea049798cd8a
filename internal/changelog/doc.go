// Package changelog turns a version plan and the changesets behind it into
// per-package changelog entries, and renders them.
//
// This package implements:
//   - Aggregation of changeset summaries per released package, grouped by
//     the severity each changeset declared for that package
//   - Markdown rendering following the Keep a Changelog format
//   - Insertion of a rendered release block into an existing CHANGELOG.md
//   - Colored terminal previews for dry runs
package changelog
