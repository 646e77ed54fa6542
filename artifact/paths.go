// Package artifact derives per-job file paths inside the working directory and
// removes them once a job no longer needs them.
package artifact

import (
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-hclog"
)

const maxNameLen = 50

var (
	ErrInvalidName = errors.New("invalid filename")
	ErrNotFound    = errors.New("file not found")
)

type Manager struct {
	dir         string
	bitrateKbps int
	logger      hclog.Logger
}

func NewManager(dir string, bitrateKbps int, logger hclog.Logger) *Manager {
	return &Manager{dir: dir, bitrateKbps: bitrateKbps, logger: logger}
}

func (m *Manager) Dir() string {
	return m.dir
}

// EnsureDir creates the working directory if it does not exist yet.
func (m *Manager) EnsureDir() error {
	if err := os.MkdirAll(m.dir, 0o755); err != nil {
		return fmt.Errorf("could not create working directory: %w", err)
	}
	return nil
}

// InputPath is where the fetched, not yet transcoded media of a job lives.
func (m *Manager) InputPath(jobID, remoteID string) string {
	return filepath.Join(m.dir, fmt.Sprintf("%s_%s.src", safeName(jobID), shortHash(remoteID)))
}

// UploadPath is where a directly uploaded file of a job lives.
func (m *Manager) UploadPath(jobID string) string {
	return filepath.Join(m.dir, safeName(jobID)+"_upload.src")
}

// OutputPath is where the transcoded artifact of a job lives.
func (m *Manager) OutputPath(jobID string) string {
	return filepath.Join(m.dir, fmt.Sprintf("%s_%dkbps.mp3", safeName(jobID), m.bitrateKbps))
}

// Resolve maps a delivered file name back to its path in the working directory.
// Only transcoded artifacts resolve; job inputs and uploads never do.
func (m *Manager) Resolve(name string) (string, error) {
	clean := filepath.Base(name)
	if clean != name || clean == "." || clean == ".." || strings.HasPrefix(clean, ".") {
		return "", ErrInvalidName
	}
	if !m.IsArtifactName(clean) {
		return "", ErrInvalidName
	}

	full := filepath.Join(m.dir, clean)
	if _, err := os.Stat(full); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", ErrNotFound
		}
		return "", err
	}
	return full, nil
}

// IsArtifactName reports whether name has the form of a transcoded artifact.
func (m *Manager) IsArtifactName(name string) bool {
	suffix := fmt.Sprintf("_%dkbps.mp3", m.bitrateKbps)
	return len(name) > len(suffix) && strings.HasSuffix(name, suffix)
}

// Cleanup removes paths. Missing files are ignored and other failures are only
// logged, so it is safe to call more than once.
func (m *Manager) Cleanup(paths ...string) {
	for _, p := range paths {
		if p == "" {
			continue
		}
		err := os.Remove(p)
		if err == nil {
			m.logger.Debug("removed artifact", "path", p)
			continue
		}
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		m.logger.Warn("cleanup failed", "path", p, "error", err)
	}
}

// safeName keeps ids usable as file names. When characters had to be replaced
// or the id was truncated, a hash of the raw id keeps distinct ids apart.
func safeName(id string) string {
	var b strings.Builder
	changed := false
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
			changed = true
		}
	}
	name := b.String()
	if len(name) > maxNameLen {
		name = name[:maxNameLen]
		changed = true
	}
	if name == "" || changed {
		name += "-" + shortHash(id)
	}
	return name
}

func shortHash(s string) string {
	sum := sha1.Sum([]byte(s))
	return hex.EncodeToString(sum[:4])
}
