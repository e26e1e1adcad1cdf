package server

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"example.com/a429kit/internal/a429"
	"example.com/a429kit/internal/common"
	"example.com/a429kit/internal/dict"
	"example.com/a429kit/internal/layouts"
)

// Server holds the daemon's shared state: the label dictionary, the default
// layout and the artifacts produced by scans.
type Server struct {
	artifacts     *ArtifactStore
	workDir       string
	uploadsDir    string
	dict          *dict.Store
	defaultLayout *a429.Layout
	audit         *common.AuditLog
	metrics       *common.Metrics
}

// Options configures server creation.
type Options struct {
	StorageDir    string
	Dictionary    *dict.Store
	DefaultLayout string
	AuditLog      string
	Metrics       *common.Metrics
}

// Artifact represents a file generated or stored by the daemon.
type Artifact struct {
	ID          string
	Path        string
	Name        string
	ContentType string
	Size        int64
	Kind        string
}

// ArtifactRef is the public representation returned in API responses.
type ArtifactRef struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	ContentType string `json:"contentType,omitempty"`
	Size        int64  `json:"size,omitempty"`
	Kind        string `json:"kind,omitempty"`
}

type ArtifactStore struct {
	mu      sync.RWMutex
	entries map[string]Artifact
}

// NewServer constructs a Server rooted at a temporary workspace directory
// under opts.StorageDir.
func NewServer(opts Options) (*Server, error) {
	var def *a429.Layout
	if id := strings.TrimSpace(opts.DefaultLayout); id != "" {
		e, ok := layouts.Lookup(id)
		if !ok {
			return nil, fmt.Errorf("default layout %q not in catalog", id)
		}
		def = e.Layout
	}
	storageDir := opts.StorageDir
	if storageDir == "" {
		storageDir = os.TempDir()
	}
	if err := os.MkdirAll(storageDir, 0o755); err != nil {
		return nil, err
	}
	workDir, err := os.MkdirTemp(storageDir, "a429d-")
	if err != nil {
		return nil, err
	}
	uploadsDir := filepath.Join(workDir, "uploads")
	if err := os.MkdirAll(uploadsDir, 0o755); err != nil {
		os.RemoveAll(workDir)
		return nil, err
	}
	s := &Server{
		artifacts:     &ArtifactStore{entries: make(map[string]Artifact)},
		workDir:       workDir,
		uploadsDir:    uploadsDir,
		dict:          opts.Dictionary,
		defaultLayout: def,
		metrics:       opts.Metrics,
	}
	if opts.AuditLog != "" {
		s.audit = common.NewAuditLog(opts.AuditLog)
	}
	if s.metrics == nil {
		s.metrics = common.NewMetrics()
	}
	return s, nil
}

// Close removes any temporary state associated with the server.
func (s *Server) Close() error {
	if s == nil || s.workDir == "" {
		return nil
	}
	return os.RemoveAll(s.workDir)
}

// Metrics returns the counters the handlers update.
func (s *Server) Metrics() *common.Metrics {
	return s.metrics
}

func (s *Server) tempPath(pattern string) (string, error) {
	f, err := os.CreateTemp(s.workDir, pattern)
	if err != nil {
		return "", err
	}
	name := f.Name()
	f.Close()
	return name, nil
}

func (s *Server) addArtifact(path, displayName, contentType, kind string) (Artifact, error) {
	if path == "" {
		return Artifact{}, errors.New("empty path")
	}
	info, err := os.Stat(path)
	if err != nil {
		return Artifact{}, err
	}
	art := Artifact{
		ID:          randomID(),
		Path:        path,
		Name:        displayName,
		ContentType: contentType,
		Size:        info.Size(),
		Kind:        kind,
	}
	if art.Name == "" {
		art.Name = filepath.Base(path)
	}
	if art.ContentType == "" {
		art.ContentType = guessContentType(art.Name)
	}
	s.artifacts.mu.Lock()
	s.artifacts.entries[art.ID] = art
	s.artifacts.mu.Unlock()
	return art, nil
}

func (s *Server) getArtifact(id string) (Artifact, bool) {
	s.artifacts.mu.RLock()
	art, ok := s.artifacts.entries[id]
	s.artifacts.mu.RUnlock()
	return art, ok
}

func toRef(art Artifact) ArtifactRef {
	return ArtifactRef{
		ID:          art.ID,
		Name:        art.Name,
		ContentType: art.ContentType,
		Size:        art.Size,
		Kind:        art.Kind,
	}
}

func guessContentType(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json":
		return "application/json"
	case ".ndjson":
		return "application/x-ndjson"
	case ".pdf":
		return "application/pdf"
	default:
		return "application/octet-stream"
	}
}

func randomID() string {
	var b [12]byte
	if _, err := rand.Read(b[:]); err != nil {
		now := time.Now().UTC()
		return fmt.Sprintf("%d%06d", now.UnixNano(), os.Getpid())
	}
	return hex.EncodeToString(b[:])
}
