// Package flink dispatches jobs to an Apache Flink cluster through its REST API.
package flink

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/JaimeStill/cohort/internal/criteria"
	"github.com/JaimeStill/cohort/pkg/lifecycle"
)

var (
	// ErrNoJar indicates no job jar is available on the cluster.
	ErrNoJar = errors.New("flink job jar not configured")
	// ErrRejected indicates the cluster returned a non-success status.
	ErrRejected = errors.New("flink request rejected")
	// ErrNoHandle indicates a run response carried no job id.
	ErrNoHandle = errors.New("flink response missing jobid")
)

type runRequest struct {
	EntryClass      string   `json:"entry-class"`
	ProgramArgsList []string `json:"programArgsList"`
	Parallelism     int      `json:"parallelism"`
}

type runResponse struct {
	JobID string `json:"jobid"`
}

type uploadResponse struct {
	Filename string `json:"filename"`
	Status   string `json:"status"`
}

// Executor submits pipeline runs to a Flink cluster.
type Executor struct {
	cfg    *Config
	client *http.Client
	logger *slog.Logger

	mu    sync.RWMutex
	jarID string
}

// New creates a Flink executor. client may be nil, in which case a client
// bounded by the configured timeout is used.
func New(cfg *Config, client *http.Client, logger *slog.Logger) (*Executor, error) {
	if cfg.JarID == "" && cfg.JarPath == "" {
		return nil, ErrNoJar
	}
	if client == nil {
		client = &http.Client{Timeout: cfg.TimeoutDuration()}
	}

	return &Executor{
		cfg:    cfg,
		client: client,
		logger: logger.With("system", "flink"),
		jarID:  cfg.JarID,
	}, nil
}

// Register adds jar upload and removal hooks when a local jar is configured.
func (e *Executor) Register(lc *lifecycle.Coordinator) error {
	if e.cfg.JarPath == "" {
		return nil
	}

	lc.OnStartup("flink", func(ctx context.Context) error {
		id, err := e.upload(ctx, e.cfg.JarPath)
		if err != nil {
			e.logger.Error("flink jar upload failed", "path", e.cfg.JarPath, "error", err)
			return err
		}

		e.mu.Lock()
		e.jarID = id
		e.mu.Unlock()
		e.logger.Info("flink jar uploaded", "jar", id)
		return nil
	})

	lc.OnShutdown("flink", func(ctx context.Context) error {
		id := e.jar()
		if id == "" {
			return nil
		}
		if err := e.remove(ctx, id); err != nil {
			e.logger.Warn("flink jar removal failed", "jar", id, "error", err)
			return err
		}
		e.logger.Info("flink jar removed", "jar", id)
		return nil
	})

	return nil
}

// Start runs the configured jar for jobUID. The criterion is not sent; the
// pipeline reads it back through the job API using callbackURL's host.
func (e *Executor) Start(ctx context.Context, jobUID uuid.UUID, _ criteria.Node, callbackURL string) (string, error) {
	jar := e.jar()
	if jar == "" {
		return "", ErrNoJar
	}

	body, err := json.Marshal(runRequest{
		EntryClass: e.cfg.EntryClass,
		ProgramArgsList: []string{
			"--runner=FlinkRunner",
			"--callback=" + callbackURL,
			"--jobid=" + strings.ToLower(jobUID.String()),
		},
		Parallelism: e.cfg.Parallelism,
	})
	if err != nil {
		return "", fmt.Errorf("encode run request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint("jars", jar, "run"), bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build run request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var resp runResponse
	if err := e.do(req, &resp); err != nil {
		return "", fmt.Errorf("run jar %s: %w", jar, err)
	}
	if resp.JobID == "" {
		return "", ErrNoHandle
	}

	e.logger.Info("flink job started", "job", jobUID, "flink_job", resp.JobID)
	return resp.JobID, nil
}

func (e *Executor) upload(ctx context.Context, jarPath string) (string, error) {
	f, err := os.Open(jarPath)
	if err != nil {
		return "", fmt.Errorf("open jar: %w", err)
	}
	defer f.Close()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	part, err := mw.CreatePart(map[string][]string{
		"Content-Disposition": {fmt.Sprintf(`form-data; name="jarfile"; filename="%s"`, filepath.Base(jarPath))},
		"Content-Type":        {"application/x-java-archive"},
	})
	if err != nil {
		return "", fmt.Errorf("create multipart part: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return "", fmt.Errorf("read jar: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("close multipart: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint("jars", "upload"), &buf)
	if err != nil {
		return "", fmt.Errorf("build upload request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var resp uploadResponse
	if err := e.do(req, &resp); err != nil {
		return "", fmt.Errorf("upload jar: %w", err)
	}
	if resp.Filename == "" {
		return "", fmt.Errorf("upload jar: %w: missing filename", ErrRejected)
	}

	return path.Base(resp.Filename), nil
}

func (e *Executor) remove(ctx context.Context, jar string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, e.endpoint("jars", jar), nil)
	if err != nil {
		return fmt.Errorf("build delete request: %w", err)
	}
	return e.do(req, nil)
}

func (e *Executor) do(req *http.Request, out any) error {
	resp, err := e.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: %s: %s", ErrRejected, resp.Status, strings.TrimSpace(string(detail)))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (e *Executor) endpoint(segments ...string) string {
	return strings.TrimSuffix(e.cfg.RestEndpoint, "/") + "/" + path.Join(segments...)
}

func (e *Executor) jar() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.jarID
}
