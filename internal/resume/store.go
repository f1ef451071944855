package resume

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ErrFileNotFound is returned by Open for a missing or disallowed name
var ErrFileNotFound = errors.New("resume file not found")

// Store writes uploaded resumes to a directory on disk
type Store struct {
	dir string
}

// NewStore creates the upload directory if needed
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

// StoredName is the on-disk name for a candidate's upload: the email with '@'
// replaced by '_', then '_' and the base of the client's filename.
func StoredName(email, filename string) string {
	base := filepath.Base(strings.ReplaceAll(filename, `\`, "/"))
	return namePrefix(email) + base
}

// OwnedBy reports whether a stored name belongs to the candidate with this email
func OwnedBy(name, email string) bool {
	return email != "" && strings.HasPrefix(strings.ToLower(name), strings.ToLower(namePrefix(email)))
}

func namePrefix(email string) string {
	return strings.ReplaceAll(email, "@", "_") + "_"
}

// Save writes r under the candidate's stored name and returns that name
func (s *Store) Save(email, filename string, r io.Reader) (string, error) {
	name := StoredName(email, filename)
	if !validName(name) {
		return "", fmt.Errorf("invalid resume filename %q", filename)
	}

	tmp, err := os.CreateTemp(s.dir, ".upload-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write resume: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close resume: %w", err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(s.dir, name)); err != nil {
		return "", fmt.Errorf("store resume: %w", err)
	}
	return name, nil
}

// Open returns a stored resume. Names that would leave the upload directory are refused.
func (s *Store) Open(name string) (*os.File, error) {
	if !validName(name) {
		return nil, ErrFileNotFound
	}
	f, err := os.Open(filepath.Join(s.dir, name))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrFileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("open resume: %w", err)
	}
	return f, nil
}

func validName(name string) bool {
	return name != "" &&
		name != "." && name != ".." &&
		!strings.ContainsAny(name, `/\`) &&
		!strings.HasPrefix(name, ".") &&
		filepath.Base(name) == name
}
