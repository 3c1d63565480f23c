package server_test

import (
	"context"
	"io"
	"net"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/payments-engine/engine"
	"github.com/warp/payments-engine/server"
)

// =============================================================================
// TEST SETUP
// =============================================================================

// startServer binds an ephemeral port and serves until test cleanup.
func startServer(t *testing.T, eng *engine.Engine) net.Addr {
	t.Helper()

	srv := server.New("127.0.0.1:0", 16, eng, nil)
	require.NoError(t, srv.Listen())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = srv.Serve(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Fatal("server did not stop")
		}
	})

	return srv.Addr()
}

// sendStream plays one full connection: write the records, half-close,
// read the snapshot response to EOF.
func sendStream(t *testing.T, addr net.Addr, records string) string {
	t.Helper()

	conn, err := net.Dial("tcp", addr.String())
	require.NoError(t, err)
	defer conn.Close()

	_, err = io.WriteString(conn, records)
	require.NoError(t, err)
	require.NoError(t, conn.(*net.TCPConn).CloseWrite())

	resp, err := io.ReadAll(conn)
	require.NoError(t, err)
	return string(resp)
}

// =============================================================================
// CONNECTION BEHAVIOR
// =============================================================================

func TestServer_RoundTrip(t *testing.T) {
	eng := engine.New(0)
	addr := startServer(t, eng)

	resp := sendStream(t, addr, "type,client,tx,amount\ndeposit,1,1,10.0\nwithdrawal,1,2,4.0\n")

	lines := strings.Split(strings.TrimSpace(resp), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "client,available,held,total,locked", lines[0])
	assert.Equal(t, "1,6.0000,0.0000,6.0000,false", lines[1])
}

func TestServer_SharedLedgerAcrossConnections(t *testing.T) {
	// GIVEN: a first connection deposited for client 1
	// WHEN: a second connection sends nothing and half-closes
	// THEN: it still receives the full snapshot, client 1 included
	eng := engine.New(0)
	addr := startServer(t, eng)

	sendStream(t, addr, "deposit,1,1,25.0\n")
	resp := sendStream(t, addr, "")

	assert.Contains(t, resp, "1,25.0000,0.0000,25.0000,false")
}

func TestServer_DisputeAcrossConnections(t *testing.T) {
	// A dispute from one connection can reference a transaction that a
	// different connection created: the ledger is global.
	eng := engine.New(0)
	addr := startServer(t, eng)

	sendStream(t, addr, "deposit,3,30,100.0\n")
	resp := sendStream(t, addr, "dispute,3,30\n")

	assert.Contains(t, resp, "3,0.0000,100.0000,100.0000,false")
}

func TestServer_MalformedRowsDoNotKillConnection(t *testing.T) {
	eng := engine.New(0)
	addr := startServer(t, eng)

	resp := sendStream(t, addr, "garbage,x,y\ndeposit,1,1,5.0\n")

	assert.Contains(t, resp, "1,5.0000,0.0000,5.0000,false")
}

func TestServer_ConcurrentConnections(t *testing.T) {
	// Ten clients deposit concurrently on separate connections; the
	// shared ledger must end up with every deposit applied exactly once.
	eng := engine.New(0)
	addr := startServer(t, eng)

	var wg sync.WaitGroup
	for i := 1; i <= 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			records := strings.Join([]string{
				// each connection uses a disjoint tx range
				"deposit," + strconv.Itoa(i) + "," + strconv.Itoa(i*100) + ",10.0",
				"deposit," + strconv.Itoa(i) + "," + strconv.Itoa(i*100+1) + ",5.0",
			}, "\n") + "\n"
			sendStream(t, addr, records)
		}(i)
	}
	wg.Wait()

	snapshot := eng.Snapshot()
	require.Len(t, snapshot, 10)
	for _, acct := range snapshot {
		assert.Equal(t, "15.0000", acct.Available.StringFixed(4))
		assert.False(t, acct.Locked)
	}
}
