package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"finecho-go/internal/config"
	"finecho-go/internal/duration"
	"finecho-go/internal/ingestion"
	"finecho-go/internal/logger"
	"finecho-go/internal/pipeline"
	"finecho-go/internal/queue"
	"finecho-go/internal/report"
	"finecho-go/internal/semantic"
	"finecho-go/internal/store"
	"finecho-go/internal/transcribe"
	"finecho-go/internal/types"
)

const maxUploadBytes = 100 << 20

func main() {
	_ = godotenv.Load() // loads .env

	log := logger.New()
	log.WithField("service", "finecho-go").Info("starting service")

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("failed to load configuration")
	}

	if err := os.MkdirAll(cfg.UploadDir, 0o755); err != nil {
		log.WithError(err).Fatal("failed to create upload dir")
	}

	st, err := store.Open(cfg.DBPath)
	if err != nil {
		log.WithError(err).Fatal("failed to open call store")
	}
	defer st.Close()
	log.WithField("db_path", cfg.DBPath).Info("call store ready")

	runner := pipeline.New(
		st,
		ingestion.New(cfg),
		transcribe.New(cfg),
		semantic.New(cfg),
		ingestion.SegmentConfidence,
	)
	prober := duration.New(cfg)

	q := queue.New(cfg.QueueSize, cfg.WorkerCount, cfg.RunTimeout)
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	q.Start(ctx)

	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "ok")
	})
	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("POST /api/calls/upload", func(w http.ResponseWriter, r *http.Request) {
		reqLog := logger.New().WithRequest(r).WithField("handler", "upload")
		reqLog.Info("upload request received")

		r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			httpError(w, http.StatusBadRequest, "invalid multipart form")
			return
		}
		clientID := r.FormValue("client_id")
		if clientID == "" {
			clientID = r.FormValue("clientId")
		}
		if clientID == "" {
			httpError(w, http.StatusBadRequest, "client_id required")
			return
		}

		file, fh, err := r.FormFile("audio")
		if err != nil {
			httpError(w, http.StatusBadRequest, "audio file required")
			return
		}
		defer file.Close()

		ext := filepath.Ext(fh.Filename)
		if ext == "" {
			ext = ".webm"
		}
		id := uuid.New().String()
		audioPath := filepath.Join(cfg.UploadDir, id+ext)
		dst, err := os.Create(audioPath)
		if err != nil {
			reqLog.WithError(err).Error("failed to create upload file")
			httpError(w, http.StatusInternalServerError, "upload failed")
			return
		}
		if _, err := io.Copy(dst, file); err != nil {
			dst.Close()
			os.Remove(audioPath)
			reqLog.WithError(err).Error("failed to write upload file")
			httpError(w, http.StatusInternalServerError, "upload failed")
			return
		}
		dst.Close()

		durationSec := 0
		if sec, err := prober.Seconds(r.Context(), audioPath); err == nil {
			durationSec = sec
		} else {
			reqLog.WithError(err).Warn("duration probe failed")
		}

		call := &types.Call{
			ID:              id,
			ClientID:        clientID,
			AdvisorID:       r.FormValue("advisor_id"),
			AudioPath:       audioPath,
			DurationSeconds: durationSec,
			Status:          types.StatusUploaded,
		}
		if notes := r.FormValue("notes"); notes != "" {
			call.Notes = &notes
		}
		if err := st.Insert(r.Context(), call); err != nil {
			os.Remove(audioPath)
			reqLog.WithError(err).Error("failed to insert call")
			httpError(w, http.StatusInternalServerError, "upload failed")
			return
		}

		if !q.Enqueue(queue.Job{CallID: id, Work: func(jobCtx context.Context) {
			runner.Run(jobCtx, id, audioPath)
		}}) {
			reqLog.WithField("call_id", id).Warn("pipeline job rejected")
		}

		writeJSON(w, http.StatusCreated, map[string]interface{}{
			"success": true,
			"call": map[string]interface{}{
				"id":         call.ID,
				"status":     call.Status,
				"created_at": call.CreatedAt,
			},
		})
	})

	mux.HandleFunc("GET /api/calls", func(w http.ResponseWriter, r *http.Request) {
		reqLog := logger.New().WithRequest(r).WithField("handler", "list")
		calls, err := st.List(r.Context())
		if err != nil {
			reqLog.WithError(err).Error("list failed")
			httpError(w, http.StatusInternalServerError, "calls list failed")
			return
		}
		if calls == nil {
			calls = []*types.Call{}
		}
		writeJSON(w, http.StatusOK, calls)
	})

	mux.HandleFunc("GET /api/calls/report", func(w http.ResponseWriter, r *http.Request) {
		reqLog := logger.New().WithRequest(r).WithField("handler", "report")
		calls, err := st.List(r.Context())
		if err != nil {
			reqLog.WithError(err).Error("report query failed")
			httpError(w, http.StatusInternalServerError, "report failed")
			return
		}
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition",
			fmt.Sprintf(`attachment; filename="compliance-%s.xlsx"`, time.Now().Format("20060102")))
		if err := report.Write(w, calls); err != nil {
			reqLog.WithError(err).Error("report render failed")
		}
	})

	mux.HandleFunc("GET /api/calls/{id}", func(w http.ResponseWriter, r *http.Request) {
		reqLog := logger.New().WithRequest(r).WithField("handler", "get")
		call, err := st.Get(r.Context(), r.PathValue("id"))
		if errors.Is(err, store.ErrNotFound) {
			httpError(w, http.StatusNotFound, "call not found")
			return
		}
		if err != nil {
			reqLog.WithError(err).Error("get failed")
			httpError(w, http.StatusInternalServerError, "call fetch failed")
			return
		}
		writeJSON(w, http.StatusOK, call)
	})

	mux.HandleFunc("DELETE /api/calls/{id}", func(w http.ResponseWriter, r *http.Request) {
		reqLog := logger.New().WithRequest(r).WithField("handler", "delete")
		err := st.Delete(r.Context(), r.PathValue("id"))
		if errors.Is(err, store.ErrNotFound) {
			httpError(w, http.StatusNotFound, "call not found")
			return
		}
		if err != nil {
			reqLog.WithError(err).Error("delete failed")
			httpError(w, http.StatusInternalServerError, "call delete failed")
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"success": true})
	})

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		<-ctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.WithField("addr", addr).Info("listening")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.WithError(err).Fatal("server terminated")
	}

	drainCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	q.Stop(drainCtx)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func httpError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
