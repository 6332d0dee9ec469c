package main

import (
	"net"
	"os"
	"path/filepath"

	"github.com/leonardcser/web-offline/internal/cache"
	"github.com/leonardcser/web-offline/internal/logger"
)

func main() {
	if err := logger.InitFromEnv(); err != nil {
		panic(err)
	}
	defer logger.Close()

	sock := defaultString(os.Getenv("WEB_OFFLINE_CACHE_SOCKET"), filepath.Join(dataDir(), "cache.sock"))
	db := defaultString(os.Getenv("WEB_OFFLINE_CACHE_DB"), filepath.Join(dataDir(), "cache.bbolt"))

	// Ensure socket dir exists and remove stale socket
	_ = os.MkdirAll(filepath.Dir(sock), 0o755)
	_ = os.MkdirAll(filepath.Dir(db), 0o755)
	_ = os.Remove(sock)

	l, err := net.Listen("unix", sock)
	if err != nil {
		panic(err)
	}
	defer l.Close()
	_ = os.Chmod(sock, 0o600)

	store, err := cache.Open(db, cache.Options{})
	if err != nil {
		panic(err)
	}
	defer store.Close()

	logger.Infof("Cache daemon serving %s on %s", db, sock)
	if err := cache.Serve(l, store); err != nil {
		logger.Errorf("cache daemon: %v", err)
	}
}

func dataDir() string {
	if d := os.Getenv("WEB_OFFLINE_DATA_DIR"); d != "" {
		return d
	}
	home, _ := os.UserHomeDir()
	if home == "" {
		home = "."
	}
	return filepath.Join(home, ".cache", "web-offline")
}

func defaultString(v, d string) string {
	if v == "" {
		return d
	}
	return v
}
