package upload

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kaimana/seachat/internal/config"
)

func testUploadConfig() config.UploadConfig {
	return config.UploadConfig{
		MaxFileBytes:       1024,
		MaxFilesPerSession: 3,
		AllowedExtensions:  []string{".csv", ".txt", ".json"},
	}
}

func newTestGuard(scanner Scanner) *Guard {
	return NewGuard(testUploadConfig(), scanner)
}

// fakeScanner returns a fixed verdict or error
type fakeScanner struct {
	verdict Verdict
	err     error
	scanned []string
}

func (s *fakeScanner) Scan(_ context.Context, path string) (Verdict, error) {
	s.scanned = append(s.scanned, path)
	return s.verdict, s.err
}

func TestAdmitCommitsCleanFile(t *testing.T) {
	dir := t.TempDir()
	guard := newTestGuard(nil)

	artifact, err := guard.Admit(context.Background(), dir, "data.csv", strings.NewReader("a,b,c\n1,2,3\n"))
	require.NoError(t, err)

	assert.Equal(t, "data.csv", artifact.Filename)
	assert.Equal(t, int64(12), artifact.Size)
	assert.Contains(t, artifact.ScanResult, "skipped")

	content, err := os.ReadFile(filepath.Join(dir, "data.csv"))
	require.NoError(t, err)
	assert.Equal(t, "a,b,c\n1,2,3\n", string(content))

	// No temporary leftovers
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestAdmitEnforcesQuota(t *testing.T) {
	dir := t.TempDir()
	guard := newTestGuard(nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := guard.Admit(ctx, dir, fmt.Sprintf("f%d.txt", i), strings.NewReader("x"))
		require.NoError(t, err)
	}

	_, err := guard.Admit(ctx, dir, "overflow.txt", strings.NewReader("x"))
	assert.ErrorIs(t, err, ErrQuotaExceeded)
}

func TestAdmitQuotaIgnoresTempFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(dir, 0755))
	for i := 0; i < 5; i++ {
		name := filepath.Join(dir, fmt.Sprintf("temp_stale%d.txt", i))
		require.NoError(t, os.WriteFile(name, []byte("x"), 0644))
	}

	guard := newTestGuard(nil)
	_, err := guard.Admit(context.Background(), dir, "real.txt", strings.NewReader("x"))
	assert.NoError(t, err)
}

func TestAdmitRejectsOversizeMidStream(t *testing.T) {
	dir := t.TempDir()
	guard := newTestGuard(nil)

	body := strings.NewReader(strings.Repeat("x", 2048))
	_, err := guard.Admit(context.Background(), dir, "big.txt", body)
	assert.ErrorIs(t, err, ErrFileTooLarge)

	// Nothing left behind, partial bytes included
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestAdmitRejectsDisallowedExtension(t *testing.T) {
	dir := t.TempDir()
	guard := newTestGuard(nil)

	_, err := guard.Admit(context.Background(), dir, "payload.exe", strings.NewReader("x"))
	assert.ErrorIs(t, err, ErrExtensionNotAllowed)

	_, err = guard.Admit(context.Background(), dir, "noext", strings.NewReader("x"))
	assert.ErrorIs(t, err, ErrExtensionNotAllowed)
}

func TestAdmitExtensionCheckIsCaseInsensitive(t *testing.T) {
	dir := t.TempDir()
	guard := newTestGuard(nil)

	_, err := guard.Admit(context.Background(), dir, "DATA.CSV", strings.NewReader("x"))
	assert.NoError(t, err)
}

func TestAdmitRejectsUnsafeFilenames(t *testing.T) {
	dir := t.TempDir()
	guard := newTestGuard(nil)
	ctx := context.Background()

	for _, name := range []string{"../escape.csv", "a/b.csv", `a\b.csv`, "..", "", "a\x00b.csv"} {
		_, err := guard.Admit(ctx, dir, name, strings.NewReader("x"))
		assert.ErrorIs(t, err, ErrUnsafeFilename, "filename %q", name)
	}
}

func TestAdmitRejectsExecutableHeaders(t *testing.T) {
	dir := t.TempDir()
	guard := newTestGuard(nil)
	ctx := context.Background()

	_, err := guard.Admit(ctx, dir, "windows.csv", strings.NewReader("MZ\x90\x00rest"))
	assert.ErrorIs(t, err, ErrExecutableContent)

	_, err = guard.Admit(ctx, dir, "linux.csv", strings.NewReader("\x7fELF\x02rest"))
	assert.ErrorIs(t, err, ErrExecutableContent)

	entries, readErr := os.ReadDir(dir)
	require.NoError(t, readErr)
	assert.Empty(t, entries)
}

func TestAdmitRejectsInfectedFile(t *testing.T) {
	dir := t.TempDir()
	scanner := &fakeScanner{verdict: Verdict{Clean: false, Detail: "stream: Eicar-Test-Signature FOUND"}}
	guard := newTestGuard(scanner)

	_, err := guard.Admit(context.Background(), dir, "bad.txt", strings.NewReader("x"))
	assert.ErrorIs(t, err, ErrInfected)

	entries, readErr := os.ReadDir(dir)
	require.NoError(t, readErr)
	assert.Empty(t, entries)
}

func TestAdmitDegradesWhenScannerUnavailable(t *testing.T) {
	dir := t.TempDir()
	scanner := &fakeScanner{err: fmt.Errorf("connection refused")}
	guard := newTestGuard(scanner)

	artifact, err := guard.Admit(context.Background(), dir, "ok.txt", strings.NewReader("x"))
	require.NoError(t, err)
	assert.Contains(t, artifact.ScanResult, "skipped")
}

func TestAdmitReportsScanVerdict(t *testing.T) {
	dir := t.TempDir()
	scanner := &fakeScanner{verdict: Verdict{Clean: true, Detail: "Virus scan passed"}}
	guard := newTestGuard(scanner)

	artifact, err := guard.Admit(context.Background(), dir, "ok.txt", strings.NewReader("x"))
	require.NoError(t, err)
	assert.Equal(t, "Virus scan passed", artifact.ScanResult)
	assert.Len(t, scanner.scanned, 1)
}

func TestListAndDelete(t *testing.T) {
	dir := t.TempDir()
	guard := newTestGuard(nil)
	ctx := context.Background()

	_, err := guard.Admit(ctx, dir, "a.csv", strings.NewReader("aa"))
	require.NoError(t, err)
	_, err = guard.Admit(ctx, dir, "b.txt", strings.NewReader("bbb"))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "temp_inflight.txt"), []byte("x"), 0644))

	files, err := List(dir)
	require.NoError(t, err)
	require.Len(t, files, 2)

	require.NoError(t, Delete(dir, "a.csv"))
	files, err = List(dir)
	require.NoError(t, err)
	assert.Len(t, files, 1)
	assert.Equal(t, "b.txt", files[0].Name)

	err = Delete(dir, "a.csv")
	assert.ErrorIs(t, err, ErrNotFound)

	err = Delete(dir, "../outside.txt")
	assert.ErrorIs(t, err, ErrUnsafeFilename)
}

func TestListMissingDirectory(t *testing.T) {
	files, err := List(filepath.Join(t.TempDir(), "nope"))
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestDeleteAll(t *testing.T) {
	dir := t.TempDir()
	guard := newTestGuard(nil)
	ctx := context.Background()

	_, err := guard.Admit(ctx, dir, "a.csv", strings.NewReader("x"))
	require.NoError(t, err)
	_, err = guard.Admit(ctx, dir, "b.txt", strings.NewReader("x"))
	require.NoError(t, err)

	removed, err := DeleteAll(dir)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	// The emptied directory is removed with its contents
	_, err = os.Stat(dir)
	assert.True(t, os.IsNotExist(err))

	files, err := List(dir)
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestDeleteAllMissingDirectory(t *testing.T) {
	removed, err := DeleteAll(filepath.Join(t.TempDir(), "nope"))
	require.NoError(t, err)
	assert.Zero(t, removed)
}
