package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"example.com/a429kit/internal/a429"
	"example.com/a429kit/internal/ch10"
	"example.com/a429kit/internal/common"
	"example.com/a429kit/internal/layouts"
	"example.com/a429kit/internal/report"
)

const maxBodyBytes = 1 << 20

type fieldInfo struct {
	Name   string `json:"name"`
	LSB    uint   `json:"lsb"`
	MSB    uint   `json:"msb"`
	Kind   string `json:"kind"`
	Type   string `json:"type"`
	Signed bool   `json:"signed,omitempty"`
	Scale  string `json:"scale,omitempty"`
}

type layoutInfo struct {
	ID          string      `json:"id"`
	Label       string      `json:"label,omitempty"`
	Description string      `json:"description"`
	Fields      []fieldInfo `json:"fields"`
}

type decodeRequest struct {
	Layout string `json:"layout"`
	Word   string `json:"word"`
}

type decodeResponse struct {
	Layout string              `json:"layout"`
	Word   string              `json:"word"`
	Label  string              `json:"label"`
	SDI    uint8               `json:"sdi"`
	Name   string              `json:"name,omitempty"`
	Fields []report.FieldEntry `json:"fields"`
}

type encodeRequest struct {
	Layout string            `json:"layout"`
	Word   string            `json:"word"`
	Set    map[string]string `json:"set"`
}

type overflowInfo struct {
	Field     string `json:"field"`
	Requested string `json:"requested"`
	Stored    string `json:"stored"`
}

type encodeResponse struct {
	Layout    string              `json:"layout"`
	Before    string              `json:"before"`
	Word      string              `json:"word"`
	Fields    []report.FieldEntry `json:"fields"`
	Overflows []overflowInfo      `json:"overflows,omitempty"`
}

type scanResponse struct {
	Summary   report.Summary `json:"summary"`
	Digest    string         `json:"digest"`
	Artifacts []ArtifactRef  `json:"artifacts"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
		return
	}
	snap := s.metrics.Snapshot()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"words":     snap.Words,
		"overflows": snap.Overflows,
		"resyncs":   snap.Resyncs,
	})
}

func (s *Server) handleLayouts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
		return
	}
	entries := layouts.All()
	out := make([]layoutInfo, 0, len(entries))
	for _, e := range entries {
		info := layoutInfo{ID: e.ID, Description: e.Description}
		if e.Label != 0 {
			info.Label = report.FormatLabel(e.Label)
		}
		for _, d := range e.Layout.Fields() {
			fi := fieldInfo{
				Name:   string(d.Name),
				LSB:    d.LSB,
				MSB:    d.MSB,
				Kind:   d.Kind.String(),
				Type:   d.ValueType().String(),
				Signed: d.Signed,
			}
			if d.Kind == a429.KindScaled {
				fi.Scale = d.Scale.String()
			}
			info.Fields = append(info.Fields, fi)
		}
		out = append(out, info)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleDecode(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
		return
	}
	var req decodeRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	raw, err := layouts.ParseWord(req.Word)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	rep := report.Decode([]ch10.A429Word{{DataWord: raw}}, s.defaultLayout, s.dict)
	entry := rep.Words[0]
	if id := strings.TrimSpace(req.Layout); id != "" {
		e, ok := layouts.Lookup(id)
		if !ok {
			writeError(w, http.StatusNotFound, fmt.Errorf("layout %q not found", id))
			return
		}
		entry.Layout = e.ID
		entry.Fields = report.Fields(e.Layout.New(raw))
		entry.Error = ""
	}
	if entry.Error != "" {
		writeError(w, http.StatusUnprocessableEntity, errors.New(entry.Error))
		return
	}
	s.metrics.AddWords(1)
	writeJSON(w, http.StatusOK, decodeResponse{
		Layout: entry.Layout,
		Word:   entry.Raw,
		Label:  entry.Label,
		SDI:    entry.SDI,
		Name:   entry.Name,
		Fields: entry.Fields,
	})
}

func (s *Server) handleEncode(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
		return
	}
	var req encodeRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	e, ok := layouts.Lookup(strings.TrimSpace(req.Layout))
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Errorf("layout %q not found", req.Layout))
		return
	}
	base, err := layouts.ParseWord(req.Word)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	assignments := layouts.OrderedAssignments(e.Layout, req.Set)
	res, err := layouts.Apply(e.Layout, base, assignments)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, a429.ErrNotFound) {
			status = http.StatusUnprocessableEntity
		}
		writeError(w, status, err)
		return
	}

	resp := encodeResponse{
		Layout: e.ID,
		Before: common.WordHex(res.Before),
		Word:   common.WordHex(res.Word.Raw()),
		Fields: report.Fields(res.Word),
	}
	overflowNames := make([]string, 0, len(res.Overflows))
	for _, oe := range res.Overflows {
		s.metrics.IncOverflow()
		resp.Overflows = append(resp.Overflows, overflowInfo{
			Field:     string(oe.Field),
			Requested: report.FormatValue(oe.Requested),
			Stored:    report.FormatValue(oe.Stored),
		})
		overflowNames = append(overflowNames, string(oe.Field))
	}
	s.metrics.AddWords(1)
	if s.audit != nil {
		entry := common.EncodeEntry{
			Layout:    e.ID,
			Set:       layouts.FieldSets(assignments),
			BeforeHex: resp.Before,
			AfterHex:  resp.Word,
			Overflows: overflowNames,
			Source:    "a429d",
		}
		if err := s.audit.Append(entry); err != nil {
			common.Logf("audit append: %v", err)
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleScan decodes an uploaded Chapter 10 recording. With ?format=ndjson
// the word entries are streamed; otherwise JSON and PDF reports are stored
// as artifacts.
func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
		return
	}
	upload, err := s.receiveUpload(r, "file")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	def := s.defaultLayout
	if id := strings.TrimSpace(r.FormValue("layout")); id != "" {
		e, ok := layouts.Lookup(id)
		if !ok {
			writeError(w, http.StatusNotFound, fmt.Errorf("layout %q not found", id))
			return
		}
		def = e.Layout
	}
	words, err := ch10.ReadA429Words(upload.Path, s.metrics)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, fmt.Errorf("read %s: %w", upload.Name, err))
		return
	}
	rep := report.Decode(words, def, s.dict)
	rep.Source = upload.Name
	if sum, _, err := common.Sha256OfFile(upload.Path); err == nil {
		rep.SourceSHA256 = sum
	}
	common.Logf("scan %s: %d words, %d decoded, %d errors", upload.Name, rep.Summary.Words, rep.Summary.Decoded, rep.Summary.Errors)

	if r.URL.Query().Get("format") == "ndjson" {
		w.Header().Set("Content-Type", "application/x-ndjson")
		w.WriteHeader(http.StatusOK)
		nd := NewNDJSONWriter(w)
		for _, entry := range rep.Words {
			if err := nd.WriteObject(entry); err != nil {
				common.Logf("scan stream: %v", err)
				return
			}
		}
		return
	}

	digest, err := rep.Digest()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	jsonPath, err := s.tempPath("report-*.json")
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Errorf("report temp: %w", err))
		return
	}
	if err := report.SaveJSON(rep, jsonPath); err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Errorf("write report: %w", err))
		return
	}
	pdfPath, err := s.tempPath("report-*.pdf")
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Errorf("report pdf temp: %w", err))
		return
	}
	if err := report.SavePDF(rep, pdfPath); err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Errorf("write report pdf: %w", err))
		return
	}
	resp := scanResponse{Summary: rep.Summary, Digest: digest}
	for _, a := range []struct{ path, name, kind string }{
		{jsonPath, "report.json", "report"},
		{pdfPath, "report.pdf", "report-pdf"},
	} {
		art, err := s.addArtifact(a.path, a.name, "", a.kind)
		if err != nil {
			writeError(w, http.StatusInternalServerError, fmt.Errorf("register %s: %w", a.name, err))
			return
		}
		resp.Artifacts = append(resp.Artifacts, toRef(art))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleArtifactDownload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/artifacts/")
	art, ok := s.getArtifact(id)
	if id == "" || !ok {
		writeError(w, http.StatusNotFound, fmt.Errorf("artifact %q not found", id))
		return
	}
	f, err := os.Open(art.Path)
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Errorf("open artifact: %w", err))
		return
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Errorf("stat artifact: %w", err))
		return
	}
	if art.ContentType != "" {
		w.Header().Set("Content-Type", art.ContentType)
	}
	w.Header().Set("Content-Length", fmt.Sprintf("%d", info.Size()))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", art.Name))
	io.Copy(w, f)
}

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid json: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
