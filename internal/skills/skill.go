package skills

import (
	"bytes"
	"errors"
	"fmt"
	"regexp"

	"gopkg.in/yaml.v3"
)

// SkillFile is the name of the manifest inside a skill directory.
const SkillFile = "SKILL.md"

// MaxFileSize bounds any file returned to a client.
const MaxFileSize = 1 << 20

var namePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]*$`)

// Errors returned by Repository.
var (
	ErrInvalidName = errors.New("invalid skill name")
	ErrInvalidPath = errors.New("invalid file path")
	ErrNotFound    = errors.New("not found")
	ErrTooLarge    = errors.New("file too large")
)

// ValidName reports whether s can name a skill or an owner directory.
func ValidName(s string) bool {
	return len(s) <= 128 && namePattern.MatchString(s) && s != "." && s != ".."
}

// Metadata is the front matter of a SKILL.md.
type Metadata struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
}

// Skill is a parsed SKILL.md.
type Skill struct {
	Metadata
	Body string `json:"body"`
}

var frontMatterDelim = []byte("---")

// Parse parses a SKILL.md. A file without front matter is all body.
func Parse(data []byte) (*Skill, error) {
	data = bytes.TrimPrefix(data, []byte("\ufeff"))
	rest, ok := cutLine(data, frontMatterDelim)
	if !ok {
		return &Skill{Body: string(data)}, nil
	}

	header, body, ok := splitFrontMatter(rest)
	if !ok {
		return nil, errors.New("unterminated front matter")
	}

	var meta Metadata
	if err := yaml.Unmarshal(header, &meta); err != nil {
		return nil, fmt.Errorf("parse front matter: %w", err)
	}
	return &Skill{Metadata: meta, Body: string(body)}, nil
}

// splitFrontMatter splits data at the first line equal to the delimiter.
func splitFrontMatter(data []byte) (header, body []byte, ok bool) {
	for off := 0; off < len(data); {
		line, next := nextLine(data, off)
		if bytes.Equal(bytes.TrimRight(line, "\r"), frontMatterDelim) {
			return data[:off], data[next:], true
		}
		off = next
	}
	return nil, nil, false
}

// cutLine returns data after its first line if that line equals want.
func cutLine(data, want []byte) ([]byte, bool) {
	line, next := nextLine(data, 0)
	if !bytes.Equal(bytes.TrimRight(line, "\r"), want) {
		return nil, false
	}
	return data[next:], true
}

// nextLine returns the line starting at off (without "\n") and the offset
// of the following line.
func nextLine(data []byte, off int) ([]byte, int) {
	if off >= len(data) {
		return nil, off
	}
	i := bytes.IndexByte(data[off:], '\n')
	if i < 0 {
		return data[off:], len(data)
	}
	return data[off : off+i], off + i + 1
}
