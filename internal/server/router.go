package server

import "net/http"

// NewRouter wires HTTP routes to the server's handlers.
func NewRouter(s *Server) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/layouts", s.handleLayouts)
	mux.HandleFunc("/decode", s.handleDecode)
	mux.HandleFunc("/encode", s.handleEncode)
	mux.HandleFunc("/scan", s.handleScan)
	mux.HandleFunc("/artifacts/", s.handleArtifactDownload)
	return mux
}
