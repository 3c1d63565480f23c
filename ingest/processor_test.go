package ingest_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/payments-engine/engine"
	"github.com/warp/payments-engine/ingest"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func runBatch(t *testing.T, input string) (string, *ingest.Processor) {
	t.Helper()
	eng := engine.New(0)
	proc := ingest.NewProcessor(eng, nil)
	require.NoError(t, proc.Process(strings.NewReader(input)))

	var out bytes.Buffer
	require.NoError(t, proc.WriteResults(&out))
	return out.String(), proc
}

// =============================================================================
// END-TO-END BATCH SCENARIOS
// =============================================================================

func TestProcessor_BasicFlow(t *testing.T) {
	input := strings.Join([]string{
		"type,client,tx,amount",
		"deposit,1,1,1.0",
		"deposit,2,2,2.0",
		"deposit,1,3,2.0",
		"withdrawal,1,4,1.5",
		"withdrawal,2,5,3.0", // insufficient, rejected
	}, "\n")

	out, proc := runBatch(t, input)
	processed, skipped := proc.Counts()
	assert.Equal(t, 4, processed)
	assert.Equal(t, 1, skipped)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "client,available,held,total,locked", lines[0])
	assert.Equal(t, "1,1.5000,0.0000,1.5000,false", lines[1])
	assert.Equal(t, "2,2.0000,0.0000,2.0000,false", lines[2])
}

func TestProcessor_DisputeScenario(t *testing.T) {
	// deposit 100, withdraw 50, dispute the deposit:
	// available goes negative, total is preserved
	input := strings.Join([]string{
		"deposit,1,1,100.0",
		"withdrawal,1,2,50.0",
		"dispute,1,1",
	}, "\n")

	out, _ := runBatch(t, input)
	assert.Contains(t, out, "1,-50.0000,100.0000,50.0000,false")
}

func TestProcessor_ChargebackScenario(t *testing.T) {
	input := strings.Join([]string{
		"deposit,1,1,100.0",
		"withdrawal,1,2,50.0",
		"dispute,1,1",
		"chargeback,1,1",
		"deposit,1,3,1000.0", // locked, rejected
	}, "\n")

	out, proc := runBatch(t, input)
	assert.Contains(t, out, "1,-50.0000,0.0000,-50.0000,true")

	_, skipped := proc.Counts()
	assert.Equal(t, 1, skipped)
}

func TestProcessor_MalformedRowsAreSkipped(t *testing.T) {
	input := strings.Join([]string{
		"deposit,1,1,1.0",
		"this is not a record at all,,",
		"deposit,x,2,1.0",
		"deposit,2,2,2.0",
	}, "\n")

	out, proc := runBatch(t, input)
	processed, skipped := proc.Counts()
	assert.Equal(t, 2, processed)
	assert.Equal(t, 2, skipped)
	assert.Contains(t, out, "1,1.0000,0.0000,1.0000,false")
	assert.Contains(t, out, "2,2.0000,0.0000,2.0000,false")
}

func TestProcessor_ReferencedClientsAlwaysReported(t *testing.T) {
	// A rejected withdrawal still creates (and reports) the account.
	out, _ := runBatch(t, "withdrawal,9,1,50.0\n")
	assert.Contains(t, out, "9,0.0000,0.0000,0.0000,false")
}

func TestProcessor_EmptyInputYieldsHeaderOnly(t *testing.T) {
	out, _ := runBatch(t, "")
	assert.Equal(t, "client,available,held,total,locked\n", out)
}

func TestProcessor_FourDecimalPrecision(t *testing.T) {
	input := strings.Join([]string{
		"deposit,1,1,1.1234",
		"deposit,1,2,2.0001",
	}, "\n")

	out, _ := runBatch(t, input)
	assert.Contains(t, out, "1,3.1235,0.0000,3.1235,false")
}

// =============================================================================
// FILE HANDLING
// =============================================================================

func TestProcessor_ProcessFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "transactions.csv")
	require.NoError(t, os.WriteFile(path, []byte("deposit,1,1,0.5\ndeposit,2,2,2.0\n"), 0o644))

	eng := engine.New(0)
	proc := ingest.NewProcessor(eng, nil)
	require.NoError(t, proc.ProcessFile(path))

	var out bytes.Buffer
	require.NoError(t, proc.WriteResults(&out))
	assert.Contains(t, out.String(), "1,0.5000")
	assert.Contains(t, out.String(), "2,2.0000")
}

func TestProcessor_MissingFileFails(t *testing.T) {
	eng := engine.New(0)
	proc := ingest.NewProcessor(eng, nil)

	err := proc.ProcessFile("nonexistent_file.csv")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}
