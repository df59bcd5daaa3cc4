package analysis

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/umputun/grcnews/pkg/domain"
)

// Fabric rates articles with the fabric command line tool.
// The formatted article is piped to the command stdin and the result is read from a temporary
// output file. Calls are serialized, fabric is not assumed to be safe for concurrent runs.
type Fabric struct {
	command string
	pattern string
	timeout time.Duration
	tempDir string
	mu      sync.Mutex
}

// FabricParams configures Fabric
type FabricParams struct {
	Command string        // executable, "fabric" if empty
	Pattern string        // "label_and_rate" if empty
	Timeout time.Duration // bounded wait per article
	TempDir string        // directory for output files, os.TempDir if empty
}

// NewFabric makes Fabric analyzer
func NewFabric(p FabricParams) *Fabric {
	if p.Command == "" {
		p.Command = "fabric"
	}
	if p.Pattern == "" {
		p.Pattern = "label_and_rate"
	}
	if p.Timeout == 0 {
		p.Timeout = 30 * time.Second
	}
	return &Fabric{command: p.Command, pattern: p.Pattern, timeout: p.Timeout, tempDir: p.TempDir}
}

// Analyze runs fabric for the content and parses its JSON output
func (f *Fabric) Analyze(ctx context.Context, c *domain.ExtractedContent) (*domain.AnalysisResult, error) {
	if c == nil {
		return nil, errors.New("no content to analyze")
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	outFile, err := os.CreateTemp(f.tempDir, "grcnews-fabric-*.md")
	if err != nil {
		return nil, fmt.Errorf("create output file: %w", err)
	}
	outPath := outFile.Name()
	defer os.Remove(outPath) //nolint:errcheck // best effort, file is in temp dir
	if err := outFile.Close(); err != nil {
		return nil, fmt.Errorf("close output file: %w", err)
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, f.command, "-p", f.pattern, "-o", outPath) //nolint:gosec // command comes from config
	cmd.Stdin = strings.NewReader(FormatBlock(c))
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = time.Second

	if err := cmd.Run(); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("fabric timed out after %v for %s", f.timeout, c.URL)
		}
		if ctx.Err() != nil {
			return nil, fmt.Errorf("fabric for %s: %w", c.URL, ctx.Err())
		}
		return nil, fmt.Errorf("run fabric for %s: %w: %s", c.URL, err, strings.TrimSpace(stderr.String()))
	}

	out, err := os.ReadFile(outPath) //nolint:gosec // path made by os.CreateTemp
	if err != nil {
		return nil, fmt.Errorf("read fabric output: %w", err)
	}
	if len(bytes.TrimSpace(out)) == 0 {
		out = stdout.Bytes()
	}

	res, err := ParseResult(out)
	if err != nil {
		return nil, fmt.Errorf("parse fabric output for %s: %w", c.URL, err)
	}
	return res, nil
}
