package storage

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("resume not found")

// Prefix is the first segment of every stored resume path, as it appears in
// the applicant's resume field and under /media/.
const Prefix = "resumes"

// Resumes keeps uploaded resume files on local disk. Stored paths look like
// "resumes/<uuid>_<original name>".
type Resumes struct {
	dir string
}

func NewResumes(dir string) (*Resumes, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create resume dir: %w", err)
	}
	return &Resumes{dir: dir}, nil
}

// Save writes data and returns the stored path.
func (s *Resumes) Save(name string, data []byte) (string, error) {
	base := sanitize(filepath.Base(name))
	file := uuid.NewString() + "_" + base
	if err := os.WriteFile(filepath.Join(s.dir, file), data, 0o644); err != nil {
		return "", fmt.Errorf("save resume: %w", err)
	}
	return path.Join(Prefix, file), nil
}

// Read returns the content of a stored path.
func (s *Resumes) Read(stored string) ([]byte, error) {
	full, err := s.resolve(stored)
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(full)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	return b, err
}

// Path maps a stored path to its file on disk.
func (s *Resumes) Path(stored string) (string, error) {
	return s.resolve(stored)
}

func (s *Resumes) Remove(stored string) error {
	full, err := s.resolve(stored)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func (s *Resumes) resolve(stored string) (string, error) {
	name, ok := strings.CutPrefix(path.Clean(stored), Prefix+"/")
	if !ok || name == "" || strings.Contains(name, "/") || name == ".." {
		return "", ErrNotFound
	}
	return filepath.Join(s.dir, name), nil
}

// OriginalName strips the uuid prefix Save added.
func OriginalName(stored string) string {
	base := path.Base(stored)
	if i := strings.IndexByte(base, '_'); i == 36 {
		return base[i+1:]
	}
	return base
}

func sanitize(name string) string {
	name = strings.Map(func(r rune) rune {
		switch {
		case r == '/' || r == '\\' || r < 0x20:
			return '_'
		}
		return r
	}, name)
	if name == "" || name == "." || name == ".." {
		return "resume"
	}
	return name
}
