package analysis

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/umputun/grcnews/pkg/domain"
)

const fabricResult = `{"one-sentence-summary": "Ransomware hits a hospital.", "labels": "Cybersecurity", "rating": "A Tier",
"rating-explanation": ["a", "b"], "quality-score": 80, "quality-score-explanation": ["c"]}`

// fakeFabric writes a shell script standing in for fabric, body runs after "-o" is parsed into $out
func fakeFabric(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts are not supported on windows")
	}
	dir := t.TempDir()
	script := "#!/bin/sh\n" +
		"out=''\n" +
		"while [ $# -gt 0 ]; do\n" +
		"  case \"$1\" in\n" +
		"    -o) out=\"$2\"; shift ;;\n" +
		"    -p) echo \"$2\" > \"" + dir + "/pattern.txt\"; shift ;;\n" +
		"  esac\n" +
		"  shift\n" +
		"done\n" +
		"cat > \"" + dir + "/input.txt\"\n" +
		body + "\n"
	path := filepath.Join(dir, "fabric")
	require.NoError(t, os.WriteFile(path, []byte(script), 0o700)) //nolint:gosec // test script must be executable
	return path
}

func testContent() *domain.ExtractedContent {
	return &domain.ExtractedContent{Title: "Hospital hit", Authors: []string{"Jane Doe"}, Summary: "A hospital was hit.", URL: "http://u"}
}

func TestFabric_Analyze(t *testing.T) {
	cmd := fakeFabric(t, "cat > \"$out\" <<'EOF'\n"+fabricResult+"\nEOF")
	tmpDir := t.TempDir()

	f := NewFabric(FabricParams{Command: cmd, Timeout: 5 * time.Second, TempDir: tmpDir})
	res, err := f.Analyze(context.Background(), testContent())
	require.NoError(t, err)
	assert.Equal(t, "Ransomware hits a hospital.", res.OneSentenceSummary)
	assert.Equal(t, "A Tier", res.Rating)
	assert.Equal(t, []string{"a", "b"}, res.RatingExplanation)
	assert.Equal(t, "80", res.QualityScore)

	// input piped to stdin and default pattern used
	scriptDir := filepath.Dir(cmd)
	input, err := os.ReadFile(filepath.Join(scriptDir, "input.txt")) //nolint:gosec // test file
	require.NoError(t, err)
	assert.Equal(t, FormatBlock(testContent()), string(input))
	pattern, err := os.ReadFile(filepath.Join(scriptDir, "pattern.txt")) //nolint:gosec // test file
	require.NoError(t, err)
	assert.Equal(t, "label_and_rate\n", string(pattern))

	assertEmptyDir(t, tmpDir)
}

func TestFabric_AnalyzeStdout(t *testing.T) {
	cmd := fakeFabric(t, "echo '"+`{"rating": "B Tier", "quality-score": 55}`+"'")
	tmpDir := t.TempDir()

	f := NewFabric(FabricParams{Command: cmd, Pattern: "custom", Timeout: 5 * time.Second, TempDir: tmpDir})
	res, err := f.Analyze(context.Background(), testContent())
	require.NoError(t, err)
	assert.Equal(t, "B Tier", res.Rating)
	assert.Equal(t, "55", res.QualityScore)
	assertEmptyDir(t, tmpDir)
}

func TestFabric_AnalyzeFailures(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		errMsg string
	}{
		{name: "command fails", body: "echo 'pattern not found' >&2; exit 1", errMsg: "pattern not found"},
		{name: "not json", body: "echo 'sorry, no rating' > \"$out\"", errMsg: "no json object"},
		{name: "timeout", body: "exec sleep 5", errMsg: "timed out"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := fakeFabric(t, tt.body)
			tmpDir := t.TempDir()

			f := NewFabric(FabricParams{Command: cmd, Timeout: 500 * time.Millisecond, TempDir: tmpDir})
			st := time.Now()
			res, err := f.Analyze(context.Background(), testContent())
			require.Error(t, err)
			assert.Nil(t, res)
			assert.Contains(t, err.Error(), tt.errMsg)
			assert.Less(t, time.Since(st), 4*time.Second)
			assertEmptyDir(t, tmpDir)
		})
	}
}

func TestFabric_AnalyzeMissingCommand(t *testing.T) {
	f := NewFabric(FabricParams{Command: filepath.Join(t.TempDir(), "no-such-fabric"), Timeout: time.Second})
	_, err := f.Analyze(context.Background(), testContent())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run fabric")

	_, err = f.Analyze(context.Background(), nil)
	require.Error(t, err)
}

func assertEmptyDir(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "temporary files left in %s", dir)
}
