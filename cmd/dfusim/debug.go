package main

import (
	"encoding/json"
	"log/slog"
	"net/http"

	_ "github.com/mkevac/debugcharts"

	"github.com/usbarmory/dfucore/bootloader"
)

// startDebugServer registers a JSON stats.json endpoint alongside
// mkevac/debugcharts's live memory/goroutine charts (registered on
// http.DefaultServeMux by its own init) and serves both on addr. It never
// blocks; serve errors are logged and do not stop the simulator.
func startDebugServer(addr string, b *bootloader.Bootloader, logger *slog.Logger) {
	http.HandleFunc("/stats.json", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(b.StatsSnapshot())
	})

	go func() {
		logger.Info("debug server listening", slog.String("addr", addr), slog.String("charts", "/debug/charts"))
		if err := http.ListenAndServe(addr, nil); err != nil {
			logger.Error("debug server exited", slog.Any("error", err))
		}
	}()
}
