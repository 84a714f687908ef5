package report

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
)

// ════════════════════════════════════════════════════════════════════
// PDF Export (HTML → PDF via wkhtmltopdf / chromium headless)
// ════════════════════════════════════════════════════════════════════

// ErrNoPDFEngine is returned when neither wkhtmltopdf nor chromium is on PATH.
var ErrNoPDFEngine = errors.New("report: no PDF engine available")

// PDFEngine specifies which engine to use for HTML→PDF conversion.
type PDFEngine string

const (
	EngineWKHTML   PDFEngine = "wkhtmltopdf"
	EngineChromium PDFEngine = "chromium"
	EngineNone     PDFEngine = "none"
)

var chromiumBinaries = []string{"chromium-browser", "chromium", "google-chrome", "google-chrome-stable"}

// PDFConfig holds configuration for PDF generation.
type PDFConfig struct {
	Engine       PDFEngine // default: auto-detect
	PageSize     string    // default: "A4"
	Orientation  string    // "portrait" (default) or "landscape"
	MarginTop    string    // default: "15mm"
	MarginBottom string    // default: "15mm"
	MarginLeft   string    // default: "10mm"
	MarginRight  string    // default: "10mm"
}

// DefaultPDFConfig returns sensible defaults for PDF generation.
func DefaultPDFConfig() PDFConfig {
	return PDFConfig{
		PageSize:     "A4",
		Orientation:  "portrait",
		MarginTop:    "15mm",
		MarginBottom: "15mm",
		MarginLeft:   "10mm",
		MarginRight:  "10mm",
	}
}

// lookPath is swapped in tests.
var lookPath = exec.LookPath

// DetectPDFEngine checks which PDF engine is available on the system.
func DetectPDFEngine() PDFEngine {
	if _, err := lookPath("wkhtmltopdf"); err == nil {
		return EngineWKHTML
	}
	if chromiumBinary() != "" {
		return EngineChromium
	}
	return EngineNone
}

func chromiumBinary() string {
	for _, name := range chromiumBinaries {
		if path, err := lookPath(name); err == nil {
			return path
		}
	}
	return ""
}

// ExportPDF converts the HTML report at htmlPath into pdfPath. The HTML file
// is rendered in place so relative chart links resolve against its directory.
func ExportPDF(ctx context.Context, htmlPath, pdfPath string, cfg PDFConfig) error {
	if pdfPath == "" {
		return fmt.Errorf("output path is required")
	}
	absHTML, err := filepath.Abs(htmlPath)
	if err != nil {
		return fmt.Errorf("resolving html path: %w", err)
	}
	absPDF, err := filepath.Abs(pdfPath)
	if err != nil {
		return fmt.Errorf("resolving output path: %w", err)
	}

	engine := cfg.Engine
	if engine == "" || engine == EngineNone {
		engine = DetectPDFEngine()
	}

	var bin string
	var args []string
	switch engine {
	case EngineWKHTML:
		bin, args = "wkhtmltopdf", wkhtmlArgs(absHTML, absPDF, cfg)
	case EngineChromium:
		bin = chromiumBinary()
		if bin == "" {
			return fmt.Errorf("%w: chromium not found in PATH", ErrNoPDFEngine)
		}
		args = chromiumArgs(absHTML, absPDF, cfg)
	case EngineNone:
		return ErrNoPDFEngine
	default:
		return fmt.Errorf("unsupported PDF engine: %s", engine)
	}

	cmd := exec.CommandContext(ctx, bin, args...)
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s failed: %w\nOutput: %s", engine, err, strings.TrimSpace(string(output)))
	}
	return nil
}

func wkhtmlArgs(htmlPath, pdfPath string, cfg PDFConfig) []string {
	return []string{
		"--page-size", cfg.PageSize,
		"--orientation", cfg.Orientation,
		"--margin-top", cfg.MarginTop,
		"--margin-bottom", cfg.MarginBottom,
		"--margin-left", cfg.MarginLeft,
		"--margin-right", cfg.MarginRight,
		"--encoding", "UTF-8",
		"--enable-local-file-access",
		"--quiet",
		htmlPath,
		pdfPath,
	}
}

func chromiumArgs(htmlPath, pdfPath string, cfg PDFConfig) []string {
	args := []string{
		"--headless",
		"--disable-gpu",
		"--no-sandbox",
		"--print-to-pdf=" + pdfPath,
		"--print-to-pdf-no-header",
	}
	if strings.EqualFold(cfg.Orientation, "landscape") {
		args = append(args, "--landscape")
	}
	return append(args, "file://"+filepath.ToSlash(htmlPath))
}
