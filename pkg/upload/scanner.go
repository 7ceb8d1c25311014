package upload

import (
	"bufio"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"os"
	"strings"
	"time"

	"github.com/kaimana/seachat/internal/config"
)

// Verdict is the outcome of a malware scan
type Verdict struct {
	Clean  bool
	Detail string
}

// Scanner decides whether a file is safe to keep
type Scanner interface {
	Scan(ctx context.Context, path string) (Verdict, error)
}

const (
	clamdChunkSize   = 2048
	clamdDialTimeout = 5 * time.Second
	clamdScanTimeout = 30 * time.Second
)

// ClamdScanner streams files to a clamd daemon over TCP using the
// INSTREAM command.
type ClamdScanner struct {
	addr string
}

// NewScanner builds a scanner from config. Returns nil when scanning is
// disabled, which the guard treats as "skip".
func NewScanner(cfg config.ScannerConfig) Scanner {
	if !cfg.Enabled {
		return nil
	}
	return &ClamdScanner{addr: cfg.Addr}
}

// Scan streams the file to clamd and parses the verdict line. Protocol:
// "zINSTREAM\x00" followed by length-prefixed chunks, terminated by a
// zero-length chunk; clamd answers "stream: OK" or "stream: <sig> FOUND".
func (s *ClamdScanner) Scan(ctx context.Context, path string) (Verdict, error) {
	file, err := os.Open(path)
	if err != nil {
		return Verdict{}, fmt.Errorf("failed to open file for scanning: %w", err)
	}
	defer file.Close()

	dialer := net.Dialer{Timeout: clamdDialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", s.addr)
	if err != nil {
		return Verdict{}, fmt.Errorf("failed to connect to clamd at %s: %w", s.addr, err)
	}
	defer conn.Close()

	deadline := time.Now().Add(clamdScanTimeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}
	if err := conn.SetDeadline(deadline); err != nil {
		return Verdict{}, fmt.Errorf("failed to set clamd deadline: %w", err)
	}

	if _, err := conn.Write([]byte("zINSTREAM\x00")); err != nil {
		return Verdict{}, fmt.Errorf("failed to start clamd stream: %w", err)
	}

	buf := make([]byte, clamdChunkSize)
	lengthPrefix := make([]byte, 4)
	for {
		n, readErr := file.Read(buf)
		if n > 0 {
			binary.BigEndian.PutUint32(lengthPrefix, uint32(n))
			if _, err := conn.Write(lengthPrefix); err != nil {
				return Verdict{}, fmt.Errorf("failed to write clamd chunk: %w", err)
			}
			if _, err := conn.Write(buf[:n]); err != nil {
				return Verdict{}, fmt.Errorf("failed to write clamd chunk: %w", err)
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return Verdict{}, fmt.Errorf("failed to read file for scanning: %w", readErr)
		}
	}

	binary.BigEndian.PutUint32(lengthPrefix, 0)
	if _, err := conn.Write(lengthPrefix); err != nil {
		return Verdict{}, fmt.Errorf("failed to finish clamd stream: %w", err)
	}

	reply, err := bufio.NewReader(conn).ReadString('\x00')
	if err != nil && err != io.EOF {
		return Verdict{}, fmt.Errorf("failed to read clamd reply: %w", err)
	}
	reply = strings.TrimRight(strings.TrimSpace(reply), "\x00")

	switch {
	case strings.HasSuffix(reply, "OK"):
		return Verdict{Clean: true, Detail: "Virus scan passed"}, nil
	case strings.HasSuffix(reply, "FOUND"):
		return Verdict{Clean: false, Detail: reply}, nil
	default:
		return Verdict{}, fmt.Errorf("unexpected clamd reply: %q", reply)
	}
}
