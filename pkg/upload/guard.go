// Package upload gates externally supplied artifacts before they reach a
// session's execution context. Every upload runs through the admission
// pipeline: quota, filename containment, extension allow-list, bounded
// receive with a size cap, executable-header sniffing, malware scan, and
// finally an atomic commit into the session's upload directory.
package upload

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog/log"

	"github.com/kaimana/seachat/internal/config"
)

// Rejection reasons, detectable with errors.Is
var (
	ErrQuotaExceeded       = errors.New("upload limit reached for session")
	ErrFileTooLarge        = errors.New("file too large")
	ErrExtensionNotAllowed = errors.New("file type not allowed")
	ErrExecutableContent   = errors.New("executable file detected")
	ErrInfected            = errors.New("potential threat detected")
	ErrUnsafeFilename      = errors.New("filename escapes session directory")
	ErrNotFound            = errors.New("file not found")
)

const (
	receiveChunkSize = 8192
	tempPrefix       = "temp_"
)

// Artifact describes a committed upload
type Artifact struct {
	Filename   string `json:"filename"`
	Size       int64  `json:"size"`
	Path       string `json:"path"`
	ScanResult string `json:"scan_result"`
}

// FileInfo describes one committed file in a session's upload directory
type FileInfo struct {
	Name string `json:"name"`
	Size int64  `json:"size"`
	Path string `json:"path"`
}

// Guard admits or rejects uploads for a session
type Guard struct {
	cfg     config.UploadConfig
	scanner Scanner
}

// NewGuard creates an upload guard. A nil scanner disables scanning;
// uploads then carry a "scan skipped" verdict.
func NewGuard(cfg config.UploadConfig, scanner Scanner) *Guard {
	return &Guard{cfg: cfg, scanner: scanner}
}

// validateFilename rejects names that could resolve outside the session
// upload directory.
func validateFilename(name string) error {
	if name == "" || name == "." || name == ".." {
		return ErrUnsafeFilename
	}
	if strings.Contains(name, "..") {
		return ErrUnsafeFilename
	}
	if strings.ContainsAny(name, "/\\") {
		return ErrUnsafeFilename
	}
	if strings.Contains(name, "\x00") {
		return ErrUnsafeFilename
	}
	return nil
}

// securePath joins name onto dir and verifies the result is a descendant
// of dir. Called before any filesystem mutation.
func securePath(dir, name string) (string, error) {
	if err := validateFilename(name); err != nil {
		return "", err
	}
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve upload directory: %w", err)
	}
	resolved := filepath.Join(absDir, name)
	if resolved == absDir || !strings.HasPrefix(resolved, absDir+string(os.PathSeparator)) {
		return "", ErrUnsafeFilename
	}
	return resolved, nil
}

// CountFiles returns the number of committed files in the directory
func CountFiles(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read upload directory: %w", err)
	}

	count := 0
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), tempPrefix) {
			continue
		}
		count++
	}
	return count, nil
}

// Admit runs the admission pipeline for one upload and, on success,
// commits the file into dir. On every rejection path any bytes already
// written to the temporary location are removed before returning.
func (g *Guard) Admit(ctx context.Context, dir, filename string, body io.Reader) (*Artifact, error) {
	// Quota is checked before a single byte is received.
	count, err := CountFiles(dir)
	if err != nil {
		return nil, err
	}
	if count >= g.cfg.MaxFilesPerSession {
		return nil, fmt.Errorf("%w: maximum %d files", ErrQuotaExceeded, g.cfg.MaxFilesPerSession)
	}

	finalPath, err := securePath(dir, filename)
	if err != nil {
		return nil, err
	}

	ext := strings.ToLower(filepath.Ext(filename))
	if !g.extensionAllowed(ext) {
		return nil, fmt.Errorf("%w: allowed types: %s", ErrExtensionNotAllowed, strings.Join(g.cfg.AllowedExtensions, ", "))
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}

	tempPath, err := securePath(dir, tempPrefix+gonanoid.Must(8)+"_"+filename)
	if err != nil {
		return nil, err
	}

	size, err := g.receive(tempPath, body)
	if err != nil {
		g.discard(tempPath)
		return nil, err
	}

	if err := g.checkExecutableHeader(tempPath); err != nil {
		g.discard(tempPath)
		return nil, err
	}

	scanResult, err := g.scan(ctx, tempPath)
	if err != nil {
		g.discard(tempPath)
		return nil, err
	}

	if err := os.Rename(tempPath, finalPath); err != nil {
		g.discard(tempPath)
		return nil, fmt.Errorf("failed to commit upload: %w", err)
	}

	log.Info().
		Str("filename", filename).
		Int64("size", size).
		Str("scan_result", scanResult).
		Msg("Upload admitted")

	return &Artifact{
		Filename:   filename,
		Size:       size,
		Path:       filename,
		ScanResult: scanResult,
	}, nil
}

func (g *Guard) extensionAllowed(ext string) bool {
	for _, allowed := range g.cfg.AllowedExtensions {
		if ext == allowed {
			return true
		}
	}
	return false
}

// receive writes the body to tempPath in bounded chunks, aborting
// mid-stream as soon as the cumulative size exceeds the cap.
func (g *Guard) receive(tempPath string, body io.Reader) (int64, error) {
	file, err := os.OpenFile(tempPath, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0644)
	if err != nil {
		return 0, fmt.Errorf("failed to create temporary file: %w", err)
	}
	defer file.Close()

	var size int64
	buf := make([]byte, receiveChunkSize)
	for {
		n, readErr := body.Read(buf)
		if n > 0 {
			size += int64(n)
			if size > g.cfg.MaxFileBytes {
				return 0, fmt.Errorf("%w: maximum size %dMB", ErrFileTooLarge, g.cfg.MaxFileBytes/1024/1024)
			}
			if _, err := file.Write(buf[:n]); err != nil {
				return 0, fmt.Errorf("failed to write temporary file: %w", err)
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return 0, fmt.Errorf("failed to read upload body: %w", readErr)
		}
	}

	if err := file.Sync(); err != nil {
		return 0, fmt.Errorf("failed to sync temporary file: %w", err)
	}

	return size, nil
}

// checkExecutableHeader rejects native executables regardless of their
// extension: MZ (Windows) and \x7fELF (Linux) magic bytes.
func (g *Guard) checkExecutableHeader(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open temporary file: %w", err)
	}
	defer file.Close()

	header := make([]byte, 4)
	n, err := file.Read(header)
	if err != nil && err != io.EOF {
		return fmt.Errorf("failed to read file header: %w", err)
	}
	header = header[:n]

	if bytes.HasPrefix(header, []byte("MZ")) || bytes.HasPrefix(header, []byte("\x7fELF")) {
		return ErrExecutableContent
	}
	return nil
}

// scan asks the verdict provider about the file. An unavailable scanner
// degrades to an explicit "skipped" verdict rather than blocking the
// upload; the verdict string is surfaced to the caller either way.
func (g *Guard) scan(ctx context.Context, path string) (string, error) {
	if g.scanner == nil {
		return "Virus scan skipped (scanner disabled)", nil
	}

	verdict, err := g.scanner.Scan(ctx, path)
	if err != nil {
		log.Warn().Err(err).Msg("Scanner unavailable, skipping scan")
		return "Virus scan skipped (scanner unavailable)", nil
	}
	if !verdict.Clean {
		return "", fmt.Errorf("%w: %s", ErrInfected, verdict.Detail)
	}
	return verdict.Detail, nil
}

func (g *Guard) discard(tempPath string) {
	if err := os.Remove(tempPath); err != nil && !os.IsNotExist(err) {
		log.Error().Err(err).Str("path", tempPath).Msg("Failed to remove temporary upload")
	}
}
