package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"glitzhit/internal/database"
	"glitzhit/internal/filesystem"
	"glitzhit/internal/handlers"
	"glitzhit/internal/jobs"
	"glitzhit/internal/logging"
	"glitzhit/internal/memory"
	"glitzhit/internal/metrics"
	"glitzhit/internal/middleware"
	"glitzhit/internal/startup"
	"glitzhit/internal/transcoder"

	"github.com/gorilla/mux"
)

const (
	statsInterval   = 15 * time.Second
	shutdownTimeout = 30 * time.Second
	encoderGrace    = 10 * time.Second
)

func main() {
	startTime := time.Now()

	// Must run before anything allocates heavily.
	memory.ConfigureFromEnv()

	config, err := startup.LoadConfig()
	if err != nil {
		startup.LogFatal("Configuration error: %v", err)
	}

	metrics.InitializeMetrics()
	metrics.AppInfo.WithLabelValues(startup.Version, startup.Commit, startup.GoVersion).Set(1)
	filesystem.SetObserver(metrics.NewFilesystemObserver())
	filesystem.SetDefaultVolumeResolver(filesystem.NewVolumeResolver(map[string]string{
		"uploads":  config.UploadDir,
		"output":   config.OutputDir,
		"database": config.DatabaseDir,
	}))

	var history handlers.History
	var db *database.Database
	if config.HistoryEnabled {
		dbStart := time.Now()
		db, err = database.New(context.Background(), config.DatabasePath)
		startup.LogDatabaseInit(time.Since(dbStart), err)
		if err == nil {
			history = db
		}
	}

	retry := filesystem.DefaultRetryConfig()
	store := jobs.NewStore(jobs.Layout{UploadDir: config.UploadDir, OutputDir: config.OutputDir}, jobs.NewSweeper(retry))

	startup.LogTranscoderInit(config.FFmpegPath, config.FFprobePath)
	trans := transcoder.New(store, transcoderConfig(config, retry))
	if db != nil {
		trans.SetRecorder(db)
	}

	collector := metrics.NewCollector(store, statsInterval)
	collector.Start()

	monitor := memory.NewMonitor(memory.DefaultConfig())
	monitor.Start()

	h := handlers.New(store, trans, history, config)
	h.SetMemoryMonitor(monitor)
	router := setupRouter(h, config)
	startup.LogHTTPRoutes(router, config.LogStaticFiles, config.LogHealthChecks)

	loggingConfig := middleware.DefaultLoggingConfig()
	loggingConfig.LogStaticFiles = config.LogStaticFiles
	loggingConfig.LogHealthChecks = config.LogHealthChecks
	router.Use(
		middleware.Logger(loggingConfig),
		middleware.Metrics(middleware.DefaultMetricsConfig()),
	)
	handler := middleware.Compression(middleware.DefaultCompressionConfig())(router)

	srv := &http.Server{
		Addr:              ":" + config.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		// Uploads can be large and progress streams are long-lived.
		ReadTimeout:  5 * time.Minute,
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}

	var metricsSrv *http.Server
	if config.MetricsEnabled {
		metricsSrv = startMetricsServer(config.MetricsPort)
	}

	done := make(chan struct{})
	go func() {
		handleShutdown(srv, metricsSrv, collector, monitor, trans, db)
		close(done)
	}()

	startup.LogServerStarted(startup.ServerConfig{
		Port:            config.Port,
		MetricsPort:     config.MetricsPort,
		MetricsEnabled:  config.MetricsEnabled,
		StartupDuration: time.Since(startTime),
	})
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		startup.LogFatal("Server error: %v", err)
	}
	<-done
}

func transcoderConfig(config *startup.Config, retry filesystem.RetryConfig) transcoder.Config {
	tc := transcoder.DefaultConfig()
	tc.FFmpegPath = config.FFmpegPath
	tc.FFprobePath = config.FFprobePath
	tc.VideoCodec = config.VideoCodec
	tc.AudioCodec = config.AudioCodec
	tc.Audio = jobs.AudioParams{
		SampleFormat: config.AudioSampleFormat,
		SampleRate:   config.AudioSampleRate,
		Channels:     config.AudioChannels,
	}
	tc.ProgressBuffer = config.ProgressBuffer
	tc.Retry = retry
	return tc
}

func setupRouter(h *handlers.Handlers, config *startup.Config) *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/health", h.HealthCheck).Methods("GET")
	r.HandleFunc("/livez", h.LivenessCheck).Methods("GET", "HEAD")
	r.HandleFunc("/readyz", h.ReadinessCheck).Methods("GET")
	r.HandleFunc("/version", h.GetVersion).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/jobs", h.ListJobs).Methods("GET")
	api.HandleFunc("/jobs/upload", h.UploadJob).Methods("POST")
	api.HandleFunc("/jobs/synthesize", h.SynthesizeJob).Methods("POST")
	api.HandleFunc("/jobs/{id}", h.GetJob).Methods("GET")
	api.HandleFunc("/jobs/{id}", h.DeleteJob).Methods("DELETE")
	api.HandleFunc("/jobs/{id}/progress", h.StreamProgress).Methods("GET")
	api.HandleFunc("/jobs/{id}/cancel", h.CancelJob).Methods("POST")
	api.HandleFunc("/jobs/{id}/video", h.GetVideo).Methods("GET", "HEAD")
	api.HandleFunc("/jobs/{id}/audio", h.GetAudio).Methods("GET")
	api.HandleFunc("/jobs/{id}/info", h.GetInfo).Methods("GET")
	api.HandleFunc("/jobs/{id}/preview", h.GetPreview).Methods("GET")
	api.HandleFunc("/history", h.GetHistory).Methods("GET")

	// Form-era endpoints kept for existing browser clients.
	r.HandleFunc("/start-conversion", h.UploadJob).Methods("POST")
	r.HandleFunc("/cancel-job", h.CancelJobLegacy).Methods("POST")
	r.HandleFunc("/stream-progress", h.StreamProgressLegacy).Methods("GET")

	r.PathPrefix("/static/output/").Handler(
		http.StripPrefix("/static/output/", http.FileServer(http.Dir(config.OutputDir))),
	).Methods("GET", "HEAD")

	return r
}

func startMetricsServer(port string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", handlers.MetricsHandler())

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.Error("Metrics server error: %v", err)
		}
	}()
	return srv
}

func handleShutdown(srv, metricsSrv *http.Server, collector *metrics.Collector, monitor *memory.Monitor, trans *transcoder.Transcoder, db *database.Database) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan

	startup.LogShutdownInitiated(sig.String())

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	startup.LogShutdownStep("Stopping metrics collector")
	collector.Stop()
	startup.LogShutdownStepComplete("Metrics collector stopped")

	startup.LogShutdownStep("Stopping memory monitor")
	monitor.Stop()
	startup.LogShutdownStepComplete("Memory monitor stopped")

	startup.LogShutdownStep("Stopping encoders")
	if trans.Cleanup(encoderGrace) {
		startup.LogShutdownStepComplete("Encoders stopped and artifacts swept")
	} else {
		logging.Warn("  Encoders did not exit within %v", encoderGrace)
	}

	if metricsSrv != nil {
		startup.LogShutdownStep("Shutting down metrics server")
		if err := metricsSrv.Shutdown(ctx); err != nil {
			logging.Warn("Metrics server shutdown error: %v", err)
		} else {
			startup.LogShutdownStepComplete("Metrics server stopped")
		}
	}

	startup.LogShutdownStep("Shutting down HTTP server")
	if err := srv.Shutdown(ctx); err != nil {
		logging.Warn("Server shutdown error: %v", err)
	} else {
		startup.LogShutdownStepComplete("HTTP server stopped")
	}

	if db != nil {
		startup.LogShutdownStep("Closing database")
		if err := db.Close(); err != nil {
			logging.Warn("Database close error: %v", err)
		} else {
			startup.LogShutdownStepComplete("Database closed")
		}
	}

	startup.LogShutdownComplete()
}
