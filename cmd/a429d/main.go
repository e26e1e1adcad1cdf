package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"gopkg.in/yaml.v3"

	"example.com/a429kit/internal/common"
	"example.com/a429kit/internal/dict"
	"example.com/a429kit/internal/layouts"
	"example.com/a429kit/internal/server"
)

type config struct {
	Port          int              `yaml:"port"`
	StorageDir    string           `yaml:"storageDir"`
	Dictionary    string           `yaml:"dictionary"`
	DefaultLayout string           `yaml:"defaultLayout"`
	AuditLog      string           `yaml:"auditLog"`
	Logs          common.LogConfig `yaml:"logs"`
}

func loadConfig(path string) (config, error) {
	var cfg config
	f, err := os.Open(path)
	if err != nil {
		return cfg, err
	}
	defer f.Close()
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return cfg, err
	}
	baseDir := filepath.Dir(path)
	resolvePath := func(p string) string {
		p = strings.TrimSpace(p)
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Clean(filepath.Join(baseDir, p))
	}
	if cfg.Port == 0 {
		cfg.Port = 8080
	}
	if cfg.Port < 0 || cfg.Port > 65535 {
		return cfg, fmt.Errorf("port %d out of range", cfg.Port)
	}
	if cfg.StorageDir == "" {
		cfg.StorageDir = filepath.Join(".", "data")
	}
	cfg.StorageDir = resolvePath(cfg.StorageDir)
	cfg.Dictionary = resolvePath(cfg.Dictionary)
	cfg.AuditLog = resolvePath(cfg.AuditLog)
	if cfg.DefaultLayout != "" {
		if _, ok := layouts.Lookup(cfg.DefaultLayout); !ok {
			return cfg, fmt.Errorf("defaultLayout %q not in catalog", cfg.DefaultLayout)
		}
	}
	if cfg.Logs.Directory == "" {
		cfg.Logs.Directory = filepath.Join(cfg.StorageDir, "logs")
	}
	cfg.Logs.Directory = resolvePath(cfg.Logs.Directory)
	if cfg.Logs.FileName == "" {
		cfg.Logs.FileName = "a429d.log"
	}
	if cfg.Logs.MaxSizeMB <= 0 {
		cfg.Logs.MaxSizeMB = 25
	}
	if cfg.Logs.MaxAgeDays <= 0 {
		cfg.Logs.MaxAgeDays = 7
	}
	if cfg.Logs.MaxBackups <= 0 {
		cfg.Logs.MaxBackups = 5
	}
	return cfg, nil
}

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to configuration file")
	addr := flag.String("addr", "", "listen address (overrides config port)")
	readTimeout := flag.Duration("read-timeout", 60*time.Second, "HTTP read timeout")
	writeTimeout := flag.Duration("write-timeout", 60*time.Second, "HTTP write timeout")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		common.Fatalf("load config: %v", err)
	}
	if err := os.MkdirAll(cfg.StorageDir, 0o755); err != nil {
		common.Fatalf("storage dir: %v", err)
	}
	rotator, err := common.SetupLogging(cfg.Logs)
	if err != nil {
		common.Fatalf("setup logging: %v", err)
	}
	defer rotator.Close()

	var store *dict.Store
	if cfg.Dictionary != "" {
		store, err = dict.EnsureLoaded(cfg.Dictionary)
		if err != nil {
			common.Fatalf("dictionary: %v", err)
		}
		common.Logf("loaded %d dictionary entries from %s", len(store.Entries()), cfg.Dictionary)
	}

	listenAddr := fmt.Sprintf(":%d", cfg.Port)
	if *addr != "" {
		listenAddr = *addr
	}
	srv, err := server.NewServer(server.Options{
		StorageDir:    cfg.StorageDir,
		Dictionary:    store,
		DefaultLayout: cfg.DefaultLayout,
		AuditLog:      cfg.AuditLog,
	})
	if err != nil {
		common.Fatalf("server init: %v", err)
	}
	defer srv.Close()

	httpServer := &http.Server{
		Addr:         listenAddr,
		Handler:      server.NewRouter(srv),
		ReadTimeout:  *readTimeout,
		WriteTimeout: *writeTimeout,
	}

	common.Logf("a429d listening on %s", listenAddr)
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			common.Fatalf("listen: %v", err)
		}
	}()

	<-shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		common.Logf("shutdown: %v", err)
	}
	snap := srv.Metrics().Snapshot()
	common.Logf("a429d stopped after %d words, %d overflows", snap.Words, snap.Overflows)
}
