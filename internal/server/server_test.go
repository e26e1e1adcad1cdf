package server

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"example.com/a429kit/internal/a429"
	"example.com/a429kit/internal/ch10"
	"example.com/a429kit/internal/common"
	"example.com/a429kit/internal/dict"
	"example.com/a429kit/internal/layouts"
	"example.com/a429kit/internal/report"
)

func newTestServer(t *testing.T, opts Options) (*Server, *httptest.Server) {
	t.Helper()
	if opts.StorageDir == "" {
		opts.StorageDir = t.TempDir()
	}
	srv, err := NewServer(opts)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	t.Cleanup(func() { srv.Close() })
	ts := httptest.NewServer(NewRouter(srv))
	t.Cleanup(ts.Close)
	return srv, ts
}

func postJSON(t *testing.T, url string, body any, out any) int {
	t.Helper()
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode response: %v", err)
		}
	}
	return resp.StatusCode
}

func fieldValue(fields []report.FieldEntry, name string) string {
	for _, f := range fields {
		if f.Name == name {
			return f.Value
		}
	}
	return ""
}

func TestLayoutsEndpoint(t *testing.T) {
	_, ts := newTestServer(t, Options{})
	resp, err := http.Get(ts.URL + "/layouts")
	if err != nil {
		t.Fatalf("GET /layouts: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var got []layoutInfo
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != len(layouts.IDs()) {
		t.Fatalf("got %d layouts, want %d", len(got), len(layouts.IDs()))
	}
	for _, l := range got {
		if l.ID == "heading-320" {
			if l.Label != "320" || len(l.Fields) != 4 || l.Fields[2].Scale != "180/32768" {
				t.Fatalf("heading layout = %+v", l)
			}
			return
		}
	}
	t.Fatalf("heading-320 missing")
}

func TestEncodeThenDecode(t *testing.T) {
	audit := filepath.Join(t.TempDir(), "audit.jsonl")
	srv, ts := newTestServer(t, Options{AuditLog: audit})

	var enc encodeResponse
	status := postJSON(t, ts.URL+"/encode", encodeRequest{
		Layout: "altitude-203",
		Set:    map[string]string{"label": "0o203", "altitude": "35000", "ssm": "3"},
	}, &enc)
	if status != http.StatusOK {
		t.Fatalf("encode status = %d", status)
	}
	if enc.Before != "00000000" || len(enc.Overflows) != 0 {
		t.Fatalf("encode = %+v", enc)
	}

	var dec decodeResponse
	status = postJSON(t, ts.URL+"/decode", decodeRequest{Layout: "altitude-203", Word: "0x" + enc.Word}, &dec)
	if status != http.StatusOK {
		t.Fatalf("decode status = %d", status)
	}
	if dec.Label != "203" || fieldValue(dec.Fields, "altitude") != "35000" || fieldValue(dec.Fields, "ssm") != "NO" {
		t.Fatalf("decode = %+v", dec)
	}

	entries, err := common.ReadAuditLog(audit)
	if err != nil {
		t.Fatalf("ReadAuditLog: %v", err)
	}
	if len(entries) != 1 || entries[0].AfterHex != enc.Word || entries[0].Source != "a429d" {
		t.Fatalf("audit = %+v", entries)
	}
	var order []string
	for _, fs := range entries[0].Set {
		order = append(order, fs.Field)
	}
	if strings.Join(order, ",") != "label,altitude,ssm" {
		t.Fatalf("audit set order = %v, want layout order", order)
	}
	if snap := srv.Metrics().Snapshot(); snap.Words != 2 {
		t.Fatalf("words = %d, want 2", snap.Words)
	}
}

func TestEncodeOverflow(t *testing.T) {
	srv, ts := newTestServer(t, Options{})
	var enc encodeResponse
	status := postJSON(t, ts.URL+"/encode", encodeRequest{
		Layout: "heading-320",
		Set:    map[string]string{"heading": "180"},
	}, &enc)
	if status != http.StatusOK {
		t.Fatalf("status = %d, want 200", status)
	}
	if len(enc.Overflows) != 1 || enc.Overflows[0].Field != "heading" || enc.Overflows[0].Requested != "180" {
		t.Fatalf("overflows = %+v", enc.Overflows)
	}
	if snap := srv.Metrics().Snapshot(); snap.Overflows != 1 {
		t.Fatalf("overflow count = %d, want 1", snap.Overflows)
	}
}

func TestErrorResponses(t *testing.T) {
	_, ts := newTestServer(t, Options{})
	tests := []struct {
		name   string
		path   string
		body   any
		status int
	}{
		{name: "unknown layout", path: "/encode", body: encodeRequest{Layout: "nope"}, status: http.StatusNotFound},
		{name: "unknown field", path: "/encode", body: encodeRequest{Layout: "example", Set: map[string]string{"x": "1"}}, status: http.StatusUnprocessableEntity},
		{name: "bad value", path: "/encode", body: encodeRequest{Layout: "example", Set: map[string]string{"ssm": "many"}}, status: http.StatusBadRequest},
		{name: "bad word", path: "/decode", body: decodeRequest{Layout: "example", Word: "0xZZ"}, status: http.StatusBadRequest},
		{name: "no layout", path: "/decode", body: decodeRequest{Word: "0x1"}, status: http.StatusUnprocessableEntity},
		{name: "unknown json field", path: "/decode", body: map[string]string{"wrd": "1"}, status: http.StatusBadRequest},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var out map[string]string
			status := postJSON(t, ts.URL+tc.path, tc.body, &out)
			if status != tc.status {
				t.Fatalf("status = %d, want %d", status, tc.status)
			}
			if out["error"] == "" {
				t.Fatalf("missing error message: %v", out)
			}
		})
	}

	resp, err := http.Get(ts.URL + "/encode")
	if err != nil {
		t.Fatalf("GET /encode: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("GET /encode status = %d, want 405", resp.StatusCode)
	}
}

func TestDecodeUsesDictionary(t *testing.T) {
	store, err := dict.FromJSON(dict.JSONFile{A429: []dict.JSONA429Entry{{Label: 0o320, Name: "Heading", Layout: "heading-320"}}})
	if err != nil {
		t.Fatalf("FromJSON: %v", err)
	}
	_, ts := newTestServer(t, Options{Dictionary: store})
	e, _ := layouts.Lookup("heading-320")
	w := e.Layout.New(0)
	a429.Set(&w, a429.LabelField, 0o320)
	a429.Set(&w, layouts.Heading, 90)

	var dec decodeResponse
	if status := postJSON(t, ts.URL+"/decode", decodeRequest{Word: "0x" + common.WordHex(w.Raw())}, &dec); status != http.StatusOK {
		t.Fatalf("status = %d", status)
	}
	if dec.Name != "Heading" || dec.Layout != "heading-320" || fieldValue(dec.Fields, "heading") != "90" {
		t.Fatalf("decode = %+v", dec)
	}
}

func scanRequest(t *testing.T, url string, data []byte) *http.Response {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", "capture.ch10")
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	fw.Write(data)
	mw.WriteField("layout", "bnr-generic")
	mw.Close()
	resp, err := http.Post(url, mw.FormDataContentType(), &body)
	if err != nil {
		t.Fatalf("POST scan: %v", err)
	}
	return resp
}

func TestScanUpload(t *testing.T) {
	_, ts := newTestServer(t, Options{})
	pkt, err := ch10.BuildA429Packet(1, 0, []ch10.A429Word{{DataWord: 0x6000_01C1}, {DataWord: 0x6000_0061}})
	if err != nil {
		t.Fatalf("BuildA429Packet: %v", err)
	}

	resp := scanRequest(t, ts.URL+"/scan", pkt)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		t.Fatalf("status = %d: %s", resp.StatusCode, b)
	}
	var out scanResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Summary.Words != 2 || out.Summary.Decoded != 2 || len(out.Digest) != 64 || len(out.Artifacts) != 2 {
		t.Fatalf("scan = %+v", out)
	}

	dl, err := http.Get(ts.URL + "/artifacts/" + out.Artifacts[0].ID)
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	defer dl.Body.Close()
	var rep report.Report
	if err := json.NewDecoder(dl.Body).Decode(&rep); err != nil {
		t.Fatalf("decode artifact: %v", err)
	}
	if rep.Source != "capture.ch10" || len(rep.Words) != 2 || rep.Words[0].Label != "203" {
		t.Fatalf("report = %+v", rep)
	}

	resp404, err := http.Get(ts.URL + "/artifacts/missing")
	if err != nil {
		t.Fatalf("GET missing: %v", err)
	}
	resp404.Body.Close()
	if resp404.StatusCode != http.StatusNotFound {
		t.Fatalf("missing artifact status = %d", resp404.StatusCode)
	}
}

func TestScanNDJSON(t *testing.T) {
	_, ts := newTestServer(t, Options{})
	pkt, err := ch10.BuildA429Packet(1, 0, []ch10.A429Word{{DataWord: 1}, {DataWord: 2}, {DataWord: 3}})
	if err != nil {
		t.Fatalf("BuildA429Packet: %v", err)
	}
	resp := scanRequest(t, ts.URL+"/scan?format=ndjson", pkt)
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "application/x-ndjson") {
		t.Fatalf("content type = %q", ct)
	}
	lines := 0
	sc := bufio.NewScanner(resp.Body)
	for sc.Scan() {
		var entry report.WordEntry
		if err := json.Unmarshal(sc.Bytes(), &entry); err != nil {
			t.Fatalf("line %d: %v", lines+1, err)
		}
		lines++
	}
	if lines != 3 {
		t.Fatalf("got %d lines, want 3", lines)
	}
}

func TestNewServerUnknownDefaultLayout(t *testing.T) {
	if _, err := NewServer(Options{StorageDir: t.TempDir(), DefaultLayout: "nope"}); err == nil {
		t.Fatalf("expected error for unknown default layout")
	}
}
