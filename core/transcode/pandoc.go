// Package transcode runs the pandoc executable to move between the pandoc
// JSON AST and every other format pandoc understands.
package transcode

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/phuslu/log"

	"github.com/gaurav-prasanna/flatdoc/core"
	"github.com/gaurav-prasanna/flatdoc/core/logging"
)

// DefaultTimeout bounds one pandoc run.
const DefaultTimeout = 60 * time.Second

// ErrNotInstalled is returned when the pandoc executable cannot be found.
var ErrNotInstalled = errors.New("pandoc not installed")

// Pandoc is a core.Transcoder backed by the pandoc command.
type Pandoc struct {
	Path    string
	Timeout time.Duration
	Logger  *log.Logger
}

var _ core.Transcoder = (*Pandoc)(nil)

// New creates a Pandoc transcoder. An empty path means "pandoc" on PATH and a
// zero timeout means DefaultTimeout.
func New(path string, timeout time.Duration) *Pandoc {
	if path == "" {
		path = "pandoc"
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Pandoc{Path: path, Timeout: timeout}
}

// Available reports whether the configured executable can be run.
func (p *Pandoc) Available() bool {
	_, err := exec.LookPath(p.Path)
	return err == nil
}

// Transcode pipes input through pandoc -f from -t to and returns stdout.
func (p *Pandoc) Transcode(ctx context.Context, input []byte, from, to string) ([]byte, error) {
	bin, err := exec.LookPath(p.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNotInstalled, p.Path)
	}

	ctx, cancel := context.WithTimeout(ctx, p.Timeout)
	defer cancel()

	// "-o -" makes pandoc write binary formats such as docx to stdout too.
	cmd := exec.CommandContext(ctx, bin, "-f", from, "-t", to, "-o", "-")
	cmd.Stdin = bytes.NewReader(input)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	logger := logging.OrNop(p.Logger)
	logger.Debug().Str("from", from).Str("to", to).Int("bytes", len(input)).Msg("running pandoc")
	start := time.Now()

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("pandoc %s -> %s: %w", from, to, ctx.Err())
		}
		msg := strings.TrimSpace(stderr.String())
		return nil, fmt.Errorf("pandoc %s -> %s failed: %w: %s", from, to, err, msg)
	}

	logger.Debug().Str("to", to).Int("bytes", stdout.Len()).Int64("took_ms", time.Since(start).Milliseconds()).Msg("pandoc done")
	return stdout.Bytes(), nil
}
