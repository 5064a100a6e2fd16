package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"checkround/services/auth"
	"checkround/services/checklist"
	"checkround/services/snapshot"
)

type harness struct {
	t       *testing.T
	dataDir string
	backend string
}

func newHarness(t *testing.T, backend string) *harness {
	t.Helper()
	t.Setenv("CHECKROUND_BCRYPT_COST", "4")
	t.Setenv("CHECKROUND_LOG_LEVEL", "error")
	t.Setenv("CHECKROUND_TIMEZONE", "UTC")
	t.Setenv("CHECKROUND_METRICS_TEXTFILE", "")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	t.Setenv("AGE_SECRET_KEY", "")
	t.Setenv("AGE_PUBLIC_KEY", "")
	return &harness{t: t, dataDir: t.TempDir(), backend: backend}
}

func (h *harness) run(args ...string) (string, error) {
	h.t.Helper()
	var out, logs bytes.Buffer
	full := append([]string{"--backend", h.backend, "--data-dir", h.dataDir}, args...)
	err := Run(context.Background(), full, &out, &logs)
	return out.String(), err
}

func (h *harness) mustRun(args ...string) string {
	h.t.Helper()
	out, err := h.run(args...)
	require.NoError(h.t, err, "checkround %v", args)
	return out
}

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestInspectionRound(t *testing.T) {
	h := newHarness(t, "sqlite")

	out := h.mustRun("seed")
	assert.Contains(t, out, "seeded demo machines and checklist items")
	assert.Contains(t, out, "seeded demo users")
	assert.Contains(t, h.mustRun("seed"), "store already seeded")

	_, err := h.run("machines", "list")
	require.ErrorIs(t, err, auth.ErrNotSignedIn)

	out = h.mustRun("login", "operator1", "--password", "password123")
	assert.Contains(t, out, "John Operator (operator1, operator)")

	out = h.mustRun("machines", "find", "CNC001")
	assert.Contains(t, out, "CNC Machine 01")
	assert.Contains(t, out, "Check Belt Condition")

	_, err = h.run("machines", "find", "NOPE")
	require.Error(t, err)

	incomplete := writeFile(t, "partial.yaml", "- item: 1\n  status: OK\n")
	_, err = h.run("reports", "submit", "CNC001", "--file", incomplete)
	require.ErrorContains(t, err, "incomplete: 2 item(s)")

	answers := writeFile(t, "answers.yaml", `
- item: 3
  status: OK
- item: 1
  status: OK
- item: 2
  status: Not OK
  note: belt frayed
  photo: file:///photos/belt.jpg
`)
	out = h.mustRun("reports", "submit", "CNC001", "--file", answers)
	assert.Equal(t, "submitted report 1 for CNC Machine 01 (3 answers)\n", out)

	out = h.mustRun("reports", "show", "1")
	assert.Contains(t, out, "Operator:  John Operator")
	assert.Contains(t, out, "belt frayed")

	out = h.mustRun("stats")
	assert.Contains(t, out, "Not OK items:")
	assert.Contains(t, out, "CNC Machine 01")
	assert.NotContains(t, out, "Active operators:")

	h.mustRun("logout")
	h.mustRun("login", "operator2", "--password", "password123")
	_, err = h.run("reports", "show", "1")
	require.ErrorIs(t, err, auth.ErrForbidden)
	assert.Contains(t, h.mustRun("reports", "list"), "no reports")

	h.mustRun("login", "supervisor1", "--password", "password123")
	spindle := writeFile(t, "spindle.yaml", "- item: 6\n  status: OK\n")
	out = h.mustRun("reports", "submit", "MIL003", "--file", spindle)
	assert.Equal(t, "submitted report 2 for Milling Machine 03 (1 answers)\n", out)

	out = h.mustRun("reports", "list")
	assert.Contains(t, out, "John Operator")
	assert.Contains(t, out, "Jane Supervisor")
	assert.Less(t, strings.Index(out, "Milling Machine 03"), strings.Index(out, "CNC Machine 01"), "newest report first")

	out = h.mustRun("stats")
	assert.Contains(t, out, "Total reports:")
	assert.Contains(t, out, "Active operators:")
	assert.Contains(t, out, "CNC Machine 01")
}

func TestLoginRejectsBadPassword(t *testing.T) {
	h := newHarness(t, "badger")
	h.mustRun("seed")

	_, err := h.run("login", "operator1", "--password", "wrong")
	require.ErrorIs(t, err, auth.ErrInvalidCredentials)

	_, err = h.run("whoami")
	require.ErrorIs(t, err, auth.ErrNotSignedIn)
}

func TestSupervisorMaintainsChecklists(t *testing.T) {
	h := newHarness(t, "badger")
	h.mustRun("seed")
	h.mustRun("login", "supervisor1", "--password", "password123")

	out := h.mustRun("machines", "add", "--name", "Press 04", "--barcode", "PRS004", "--location", "Workshop C")
	assert.Contains(t, out, "PRS004")

	out = h.mustRun("items", "add", "4", "--prompt", "Check Hydraulic Pressure")
	assert.Equal(t, "added item 7 at position 1\n", out)

	out = h.mustRun("items", "list", "4")
	assert.Contains(t, out, "Press 04 (PRS004, Workshop C)")
	assert.Contains(t, out, "Check Hydraulic Pressure")

	_, err := h.run("items", "list", "abc")
	require.ErrorContains(t, err, `invalid machine id "abc"`)
}

func TestSnapshotMovesStoreBetweenBackends(t *testing.T) {
	keys, err := snapshot.GenerateKeys()
	require.NoError(t, err)

	src := newHarness(t, "badger")
	t.Setenv("AGE_SECRET_KEY", keys.SecretKey)
	t.Setenv("AGE_PUBLIC_KEY", keys.PublicKey)

	src.mustRun("seed")
	src.mustRun("login", "supervisor1", "--password", "password123")
	archive := filepath.Join(t.TempDir(), "store.tar.zst")
	out := src.mustRun("snapshot", "export", "--output", archive)
	assert.Contains(t, out, "wrote snapshot")

	out = src.mustRun("snapshot", "verify", "--file", archive)
	assert.Contains(t, out, "machines")
	assert.NotContains(t, out, string(auth.SessionContainer))

	dst := &harness{t: t, dataDir: t.TempDir(), backend: "sqlite"}
	dst.mustRun("seed")
	dst.mustRun("login", "operator1", "--password", "password123")
	out = dst.mustRun("snapshot", "import", "--file", archive)
	assert.Contains(t, out, "verified snapshot")
	assert.NotContains(t, out, "signed out")

	assert.Contains(t, dst.mustRun("whoami"), "operator1")
	assert.Contains(t, dst.mustRun("machines", "list"), "MIL003")
}

func TestKeygenRunsWithoutStore(t *testing.T) {
	var out bytes.Buffer
	err := Run(context.Background(), []string{"--backend", "nope", "snapshot", "keygen"}, &out, &bytes.Buffer{})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "AGE_SECRET_KEY=AGE-SECRET-KEY-1")
	assert.Contains(t, out.String(), "AGE_PUBLIC_KEY=")
}

func TestSortNewestFirst(t *testing.T) {
	base := time.Date(2025, time.March, 14, 8, 0, 0, 0, time.UTC)
	reports := []checklist.ChecklistReport{
		{ID: 1, InspectedAt: base},
		{ID: 2, InspectedAt: base.Add(2 * time.Hour)},
		{ID: 3, InspectedAt: base.Add(time.Hour)},
		{ID: 4, InspectedAt: base.Add(2 * time.Hour)},
	}
	sortNewestFirst(reports)

	var ids []int
	for _, r := range reports {
		ids = append(ids, r.ID)
	}
	assert.Equal(t, []int{2, 4, 3, 1}, ids)
}
