package revision

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/daveohlh/scopemigrate/internal/scope"
)

// ScopeDir returns the revision directory for a scope under the
// migrations root.
func ScopeDir(root string, s scope.Scope) string {
	return filepath.Join(root, string(s))
}

// LoadScopeDir reads every revision artifact in the scope's directory.
// Files not matching the artifact naming pattern are skipped. A missing
// directory means the scope has no revisions yet and is not an error.
// Returned revisions are unordered; callers build a Graph to order them.
func LoadScopeDir(root string, s scope.Scope) ([]Revision, error) {
	dir := ScopeDir(root, s)

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}

		return nil, fmt.Errorf("reading revision directory %s: %w", dir, err)
	}

	var revisions []Revision

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		matches := filenamePattern.FindStringSubmatch(entry.Name())
		if matches == nil {
			continue
		}

		path := filepath.Join(dir, entry.Name())

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading revision artifact %s: %w", path, err)
		}

		rev, err := Unmarshal(data)
		if err != nil {
			return nil, fmt.Errorf("artifact %s: %w", path, err)
		}

		if rev.ID != matches[1] {
			return nil, fmt.Errorf(
				"artifact %s: filename id %s does not match revision id %s",
				path, matches[1], rev.ID,
			)
		}

		rev.Scope = s
		rev.FilePath = path
		revisions = append(revisions, rev)
	}

	return revisions, nil
}

// Write persists the revision artifact into the scope's directory under the
// migrations root, creating the directory if needed. The revision's
// FilePath is set on success.
func Write(root string, r *Revision) error {
	dir := ScopeDir(root, r.Scope)

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating revision directory %s: %w", dir, err)
	}

	data, err := Marshal(r)
	if err != nil {
		return err
	}

	path := filepath.Join(dir, r.Filename())

	if err := os.WriteFile(path, data, 0o644); err != nil { //nolint:gosec // revision artifacts are project files
		return fmt.Errorf("writing revision artifact %s: %w", path, err)
	}

	r.FilePath = path

	return nil
}

// RemoveAll deletes every revision artifact for the scope. Non-artifact
// files in the directory are left alone.
func RemoveAll(root string, s scope.Scope) error {
	dir := ScopeDir(root, s)

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}

		return fmt.Errorf("reading revision directory %s: %w", dir, err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !filenamePattern.MatchString(entry.Name()) {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		if err := os.Remove(path); err != nil {
			return fmt.Errorf("removing revision artifact %s: %w", path, err)
		}
	}

	return nil
}
