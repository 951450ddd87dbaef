package renderer

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"

	"github.com/russross/blackfriday/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/incident-report-service/internal/config"
)

// Renderer converts assembled report text into a paginated binary document.
type Renderer interface {
	Render(ctx context.Context, markdown string) ([]byte, error)
	ContentType() string
}

// commonBinaryPaths is the probe order when WKHTMLTOPDF_PATH is unset.
var commonBinaryPaths = []string{
	"/usr/local/bin/wkhtmltopdf",
	"/usr/bin/wkhtmltopdf",
}

// Wkhtmltopdf renders markdown to PDF by converting to HTML and piping it
// through the wkhtmltopdf binary.
type Wkhtmltopdf struct {
	binaryPath string
	pageSize   string
	marginMM   int
	logger     *zap.Logger
}

// NewWkhtmltopdf constructs the renderer from configuration.
func NewWkhtmltopdf(cfg config.RendererConfig, logger *zap.Logger) *Wkhtmltopdf {
	return &Wkhtmltopdf{
		binaryPath: cfg.BinaryPath,
		pageSize:   cfg.PageSize,
		marginMM:   cfg.MarginMM,
		logger:     logger,
	}
}

// ContentType identifies the rendered output format.
func (w *Wkhtmltopdf) ContentType() string {
	return "application/pdf"
}

// Render converts the report body into PDF bytes. Conversion failures are
// returned to the caller; retrying is not this layer's responsibility.
func (w *Wkhtmltopdf) Render(ctx context.Context, markdown string) ([]byte, error) {
	binary, err := w.resolveBinary()
	if err != nil {
		return nil, err
	}

	html := wrapHTML(blackfriday.Run([]byte(markdown), blackfriday.WithExtensions(blackfriday.CommonExtensions)))

	margin := fmt.Sprintf("%dmm", w.marginMM)
	args := []string{
		"--quiet",
		"--encoding", "utf-8",
		"--page-size", w.pageSize,
		"--margin-top", margin,
		"--margin-right", margin,
		"--margin-bottom", margin,
		"--margin-left", margin,
		"-", "-",
	}

	cmd := exec.CommandContext(ctx, binary, args...)
	cmd.Stdin = bytes.NewReader(html)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if w.logger != nil {
			w.logger.Error("wkhtmltopdf failed", zap.Error(err), zap.String("stderr", stderr.String()))
		}
		return nil, fmt.Errorf("wkhtmltopdf: %w: %s", err, stderr.String())
	}
	if stdout.Len() == 0 {
		return nil, fmt.Errorf("wkhtmltopdf produced no output")
	}
	return stdout.Bytes(), nil
}

// resolveBinary locates wkhtmltopdf: explicit config path first, then
// common installation paths, then $PATH.
func (w *Wkhtmltopdf) resolveBinary() (string, error) {
	if w.binaryPath != "" {
		if _, err := os.Stat(w.binaryPath); err == nil {
			return w.binaryPath, nil
		}
		return "", fmt.Errorf("configured wkhtmltopdf path %q not found", w.binaryPath)
	}
	for _, path := range commonBinaryPaths {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	if path, err := exec.LookPath("wkhtmltopdf"); err == nil {
		return path, nil
	}
	return "", fmt.Errorf("wkhtmltopdf not found: install it and set WKHTMLTOPDF_PATH or add it to PATH")
}

func wrapHTML(body []byte) []byte {
	var buf bytes.Buffer
	buf.WriteString("<!DOCTYPE html><html><head><meta charset=\"utf-8\"><style>")
	buf.WriteString("body{font-family:sans-serif;margin:0}table{border-collapse:collapse;width:100%}td,th{border:1px solid #ccc;padding:4px 8px;text-align:left}")
	buf.WriteString("</style></head><body>")
	buf.Write(body)
	buf.WriteString("</body></html>")
	return buf.Bytes()
}
