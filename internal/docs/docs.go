// Package docs manages the on-disk artifacts of a writing project: planning
// documents, manuscript chapters, and critique records. All paths are scoped
// under a single output root, one directory per project.
package docs

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"inkwell/pkg/state"
)

// Project subdirectories created on project setup.
var projectSubdirs = []string{"planning", "manuscript", "critiques"}

// Mode selects write behavior for an existing file.
type Mode string

const (
	// ModeCreate writes a new file and fails if it already exists.
	ModeCreate Mode = "create"
	// ModeAppend adds content to the end of the file, creating it if absent.
	ModeAppend Mode = "append"
	// ModeOverwrite replaces the entire file content.
	ModeOverwrite Mode = "overwrite"
)

// ParseMode validates a mode string from tool arguments.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeCreate, ModeAppend, ModeOverwrite:
		return Mode(s), nil
	default:
		return "", state.NewValidationError("invalid mode %q: use 'create', 'append', or 'overwrite'", s)
	}
}

var unsafeNameChars = regexp.MustCompile(`[^\w\-]`)

// SanitizeName makes a project name filesystem safe: spaces become
// underscores, everything outside [A-Za-z0-9_-] is dropped.
func SanitizeName(name string) string {
	name = strings.ReplaceAll(strings.TrimSpace(name), " ", "_")
	name = unsafeNameChars.ReplaceAllString(name, "")
	name = strings.Trim(name, "-_")
	if name == "" {
		name = "untitled_project"
	}
	return name
}

// ChapterFile returns the manuscript-relative filename for chapter n.
func ChapterFile(n int) string {
	return fmt.Sprintf("manuscript/chapter_%02d.md", n)
}

// Store is a project-scoped document store rooted at a single output
// directory.
type Store struct {
	root string
}

// NewStore creates a store rooted at root. The root directory is created on
// first write.
func NewStore(root string) *Store {
	return &Store{root: root}
}

// Root returns the output root directory.
func (s *Store) Root() string {
	return s.root
}

// ProjectDir returns the directory holding projectID's artifacts.
func (s *Store) ProjectDir(projectID string) string {
	return filepath.Join(s.root, SanitizeName(projectID))
}

// EnsureProject creates the project directory and its planning, manuscript,
// and critiques subdirectories. Existing directories are left untouched.
func (s *Store) EnsureProject(projectID string) error {
	dir := s.ProjectDir(projectID)
	for _, sub := range projectSubdirs {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			return fmt.Errorf("create project directory: %w", err)
		}
	}
	return nil
}

// resolve joins name under the project directory, rejecting escapes.
func (s *Store) resolve(projectID, name string) (string, error) {
	if name == "" {
		return "", state.NewValidationError("filename is required")
	}
	if filepath.IsAbs(name) {
		return "", state.NewValidationError("filename must be relative: %q", name)
	}
	cleaned := filepath.Clean(name)
	if cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(filepath.Separator)) {
		return "", state.NewValidationError("filename escapes project directory: %q", name)
	}
	return filepath.Join(s.ProjectDir(projectID), cleaned), nil
}

// Exists reports whether the named file exists in the project.
func (s *Store) Exists(projectID, name string) bool {
	path, err := s.resolve(projectID, name)
	if err != nil {
		return false
	}
	_, statErr := os.Stat(path)
	return statErr == nil
}

// Read returns the content of the named project file.
func (s *Store) Read(projectID, name string) (string, error) {
	path, err := s.resolve(projectID, name)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", &state.NotFoundError{Kind: "file", Name: name}
		}
		return "", fmt.Errorf("read %s: %w", name, err)
	}
	return string(data), nil
}

// Write stores content under the named project file according to mode.
// Create fails if the file already exists; append and overwrite create it if
// absent. Parent directories are created as needed.
func (s *Store) Write(projectID, name, content string, mode Mode) error {
	path, err := s.resolve(projectID, name)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create parent directory: %w", err)
	}

	switch mode {
	case ModeCreate:
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err != nil {
			if os.IsExist(err) {
				return state.NewValidationError("file %q already exists: use 'append' or 'overwrite' mode to modify it", name)
			}
			return fmt.Errorf("create %s: %w", name, err)
		}
		if _, err := f.WriteString(content); err != nil {
			f.Close()
			return fmt.Errorf("write %s: %w", name, err)
		}
		return f.Close()
	case ModeAppend:
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("open %s for append: %w", name, err)
		}
		if _, err := f.WriteString(content); err != nil {
			f.Close()
			return fmt.Errorf("append %s: %w", name, err)
		}
		return f.Close()
	case ModeOverwrite:
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			return fmt.Errorf("overwrite %s: %w", name, err)
		}
		return nil
	default:
		return state.NewValidationError("invalid mode %q: use 'create', 'append', or 'overwrite'", string(mode))
	}
}

// List returns the project's file paths relative to the project directory,
// sorted, skipping dotfiles and dot directories.
func (s *Store) List(projectID string) ([]string, error) {
	dir := s.ProjectDir(projectID)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return nil, nil
	}

	var files []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		files = append(files, rel)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list project files: %w", err)
	}
	sort.Strings(files)
	return files, nil
}
