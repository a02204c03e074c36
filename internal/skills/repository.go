package skills

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
)

// Repository reads skills from a root directory.
type Repository struct {
	root string
}

// NewRepository creates a Repository rooted at dir.
func NewRepository(dir string) *Repository {
	return &Repository{root: dir}
}

// Root returns the storage root.
func (r *Repository) Root() string {
	return r.root
}

// ownerDir returns the directory holding owner's skills.
func (r *Repository) ownerDir(owner string) (string, error) {
	if owner == "" {
		return r.root, nil
	}
	if !ValidName(owner) {
		return "", fmt.Errorf("%w: owner %q", ErrInvalidName, owner)
	}
	return filepath.Join(r.root, owner), nil
}

func (r *Repository) skillDir(owner, name string) (string, error) {
	if !ValidName(name) {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	base, err := r.ownerDir(owner)
	if err != nil {
		return "", err
	}
	return filepath.Join(base, name), nil
}

// List returns the metadata of every skill visible to owner, sorted by name.
// Directories without a readable SKILL.md are skipped.
func (r *Repository) List(owner string) ([]Metadata, error) {
	base, err := r.ownerDir(owner)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(base)
	if errors.Is(err, fs.ErrNotExist) {
		return []Metadata{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read skill directory: %w", err)
	}

	out := make([]Metadata, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() || !ValidName(e.Name()) {
			continue
		}
		s, err := r.Load(owner, e.Name())
		if err != nil {
			continue
		}
		out = append(out, s.Metadata)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Load parses the SKILL.md of a skill. A missing name in the front matter
// defaults to the directory name.
func (r *Repository) Load(owner, name string) (*Skill, error) {
	data, err := r.ReadFile(owner, name, SkillFile)
	if err != nil {
		return nil, err
	}
	s, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("skill %q: %w", name, err)
	}
	if s.Name == "" {
		s.Name = name
	}
	return s, nil
}

// ReadFile returns a file inside a skill directory. Paths that are
// absolute or that leave the skill directory, including through symlinks,
// are rejected.
func (r *Repository) ReadFile(owner, name, file string) ([]byte, error) {
	dir, err := r.skillDir(owner, name)
	if err != nil {
		return nil, err
	}
	rel, err := cleanRelative(file)
	if err != nil {
		return nil, err
	}

	root, err := os.OpenRoot(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: skill %q", ErrNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("open skill %q: %w", name, err)
	}
	defer root.Close()

	f, err := root.Open(rel)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, file)
	}
	if err != nil {
		// os.Root reports escapes as plain errors.
		return nil, fmt.Errorf("%w: %s", ErrInvalidPath, file)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", file, err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%w: %s is not a regular file", ErrInvalidPath, file)
	}
	if info.Size() > MaxFileSize {
		return nil, fmt.Errorf("%w: %s", ErrTooLarge, file)
	}
	return io.ReadAll(io.LimitReader(f, MaxFileSize+1))
}

// ListFiles returns the regular files of a skill as slash-separated paths
// relative to the skill directory, sorted.
func (r *Repository) ListFiles(owner, name string) ([]string, error) {
	dir, err := r.skillDir(owner, name)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(dir); errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: skill %q", ErrNotFound, name)
	}

	var files []string
	err = filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list skill %q: %w", name, err)
	}
	sort.Strings(files)
	return files, nil
}

// cleanRelative validates a client-supplied relative path.
func cleanRelative(file string) (string, error) {
	if file == "" || strings.ContainsRune(file, 0) {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, file)
	}
	slashed := filepath.ToSlash(file)
	if path.IsAbs(slashed) || filepath.IsAbs(file) || filepath.VolumeName(file) != "" {
		return "", fmt.Errorf("%w: %q is absolute", ErrInvalidPath, file)
	}
	cleaned := path.Clean(slashed)
	if cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", fmt.Errorf("%w: %q escapes the skill directory", ErrInvalidPath, file)
	}
	return filepath.FromSlash(cleaned), nil
}
