package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
)

const maxUploadBytes = 512 << 20

// receiveUpload stores the multipart file in field and registers it as an
// artifact.
func (s *Server) receiveUpload(r *http.Request, field string) (Artifact, error) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		return Artifact{}, fmt.Errorf("parse multipart: %w", err)
	}
	src, fh, err := r.FormFile(field)
	if err != nil {
		return Artifact{}, fmt.Errorf("form file %q: %w", field, err)
	}
	defer src.Close()
	if fh.Size > maxUploadBytes {
		return Artifact{}, fmt.Errorf("upload %s: %d bytes exceeds limit", fh.Filename, fh.Size)
	}
	pattern := "upload-*"
	if ext := filepath.Ext(fh.Filename); ext != "" {
		pattern = "upload-*" + ext
	}
	dest, err := os.CreateTemp(s.uploadsDir, pattern)
	if err != nil {
		return Artifact{}, err
	}
	if _, err := io.Copy(dest, src); err != nil {
		dest.Close()
		os.Remove(dest.Name())
		return Artifact{}, err
	}
	if err := dest.Close(); err != nil {
		return Artifact{}, err
	}
	name := filepath.Base(fh.Filename)
	if name == "" || name == "." {
		return Artifact{}, errors.New("upload has no file name")
	}
	return s.addArtifact(dest.Name(), name, "", "upload")
}
