package cli

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/evanofslack/adsmutate/internal/apierr"
	"github.com/evanofslack/adsmutate/internal/metrics"
	"github.com/evanofslack/adsmutate/internal/response"
	"github.com/evanofslack/adsmutate/internal/workflow"
)

const maxPayload = 1 << 20

type dispatcher interface {
	Dispatch(ctx context.Context, name string, payload []byte) (workflow.Summarizer, error)
}

func newServeCmd(a *app) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve workflows, metrics and health checks over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.load(); err != nil {
				return err
			}
			defer a.close()
			if addr == "" {
				addr = a.cfg.Server.Addr
			}
			return serve(cmd.Context(), addr, newHandler(a.service(), a.metrics))
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (defaults to server.addr)")
	return cmd
}

func serve(ctx context.Context, addr string, h http.Handler) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Starting server", "address", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-errCh:
		if err != nil {
			slog.Error("Server failed", "error", err)
		}
		return err
	case <-sigCtx.Done():
	}

	slog.Info("Shutdown signal received")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server shutdown error", "error", err)
		return err
	}
	slog.Info("Service shutdown complete")
	return nil
}

func newHandler(d dispatcher, m *metrics.Metrics) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", m.Handler())
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, response.Success(map[string]string{"health": "ok"}, ""))
	})
	mux.HandleFunc("GET /v1/workflows", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, response.Success(workflow.Names(), ""))
	})
	mux.HandleFunc("POST /v1/workflows/{name}", func(w http.ResponseWriter, r *http.Request) {
		name := r.PathValue("name")
		payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxPayload))
		if err != nil {
			writeJSON(w, http.StatusRequestEntityTooLarge, response.Error("read request body: "+err.Error(), nil))
			return
		}
		res, err := d.Dispatch(r.Context(), name, payload)
		if err != nil {
			slog.WarnContext(r.Context(), "Workflow failed", "workflow", name, "error", err)
			writeJSON(w, statusFor(err), failureBody(err, res))
			return
		}
		writeJSON(w, http.StatusOK, response.Success(res, res.Summary()))
	})
	return mux
}

// failureBody attaches the result only when the workflow committed part of
// its work; otherwise the result holds nothing worth reporting.
func failureBody(err error, res workflow.Summarizer) string {
	switch apierr.KindOf(err) {
	case apierr.KindPartialFailure, apierr.KindStageAbort:
		return response.Failure(err, res)
	}
	return response.Failure(err, nil)
}

func statusFor(err error) int {
	if errors.Is(err, workflow.ErrUnknownWorkflow) {
		return http.StatusNotFound
	}
	switch apierr.KindOf(err) {
	case apierr.KindLocalValidation:
		return http.StatusBadRequest
	case apierr.KindPartialFailure, apierr.KindStageAbort:
		return http.StatusMultiStatus
	case apierr.KindConnectorInit:
		return http.StatusServiceUnavailable
	case apierr.KindRemoteBatch:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, code int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if _, err := io.WriteString(w, body); err != nil {
		slog.Error("Failed to write response", "error", err)
	}
}
