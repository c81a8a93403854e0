package relay_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tve/cwop-relay/internal/adapter/auditlog"
	"github.com/tve/cwop-relay/internal/adapter/cwop"
	"github.com/tve/cwop-relay/internal/domain"
	"github.com/tve/cwop-relay/internal/observability"
	"github.com/tve/cwop-relay/internal/relay"
)

const feedLine = "APTW01,TCPIP*,qAC,FIRST:@092345z4903.50N/07201.75W_220/004g005t077r000p000P000h50b09900X1w"

var station = domain.Station{
	Callsign:      "N6TVE-11",
	Passcode:      "11394",
	ClientName:    "beaglebone-1w",
	ClientVersion: "1.00",
}

// --- mocks ---

type scriptedSender struct {
	replies map[string]int   // server -> status code
	fails   map[string]error // server -> connection error
	calls   []string
	bodies  []string
}

func (s *scriptedSender) Post(_ context.Context, server string, payload []byte) (cwop.Response, error) {
	s.calls = append(s.calls, server)
	s.bodies = append(s.bodies, string(payload))
	if err, ok := s.fails[server]; ok {
		return cwop.Response{}, err
	}
	code, ok := s.replies[server]
	if !ok {
		code = http.StatusInternalServerError
	}
	return cwop.Response{StatusCode: code, Message: http.StatusText(code)}, nil
}

type memLog struct {
	entries []string
	err     error
}

func (m *memLog) Append(entry string) error {
	if m.err != nil {
		return m.err
	}
	m.entries = append(m.entries, entry)
	return nil
}

type recordingPublisher struct {
	mu   sync.Mutex
	msgs []domain.Message
	err  error
}

func (r *recordingPublisher) Publish(_ context.Context, msg domain.Message, _ time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msg)
	return r.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newPoster(servers []string, sender relay.Sender, log relay.Appender, pub relay.Publisher) *relay.Poster {
	return relay.NewPoster(station, servers, sender, log, pub, discardLogger(), observability.NewMetricsForTesting())
}

// --- tests ---

func TestRelay_AllServersFail_TriesEveryServerInOrder(t *testing.T) {
	servers := []string{"a.aprs2.net", "b.aprs2.net", "c.aprs2.net", "d.aprs2.net"}
	sender := &scriptedSender{
		replies: map[string]int{"a.aprs2.net": 503, "c.aprs2.net": 404},
		fails:   map[string]error{"b.aprs2.net": errors.New("connection refused"), "d.aprs2.net": context.DeadlineExceeded},
	}
	log := &memLog{}

	out := newPoster(servers, sender, log, nil).Relay(context.Background(), feedLine)

	assert.Equal(t, domain.Exhausted, out.Status)
	assert.Empty(t, out.Server)
	if diff := cmp.Diff(servers, sender.calls); diff != "" {
		t.Fatalf("attempt order mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, servers, out.Servers())
	assert.Len(t, log.entries, 1)
}

func TestRelay_StopsAtFirstSuccess(t *testing.T) {
	servers := []string{"s1", "s2", "s3", "s4", "s5"}

	for k := 1; k <= len(servers); k++ {
		sender := &scriptedSender{
			replies: map[string]int{servers[k-1]: http.StatusOK},
			fails:   map[string]error{"s1": errors.New("timeout")},
		}
		if k == 1 {
			sender.fails = nil
		}

		out := newPoster(servers, sender, &memLog{}, nil).Relay(context.Background(), feedLine)

		assert.Equal(t, domain.Delivered, out.Status, "k=%d", k)
		assert.Equal(t, servers[k-1], out.Server, "k=%d", k)
		if diff := cmp.Diff(servers[:k], sender.calls); diff != "" {
			t.Fatalf("k=%d: attempts mismatch (-want +got):\n%s", k, diff)
		}
	}
}

func TestRelay_PayloadIsHeaderPlusReport(t *testing.T) {
	sender := &scriptedSender{replies: map[string]int{"only": http.StatusOK}}

	newPoster([]string{"only"}, sender, &memLog{}, nil).Relay(context.Background(), feedLine)

	require.Len(t, sender.bodies, 1)
	assert.Equal(t,
		"user N6TVE-11 pass 11394 vers beaglebone-1w 1.00\r\nN6TVE-11>"+feedLine+"\r\n",
		sender.bodies[0])
}

func TestRelay_LogsOnceRegardlessOfOutcome(t *testing.T) {
	fake := clockwork.NewFakeClockAt(time.Date(2013, time.March, 7, 9, 5, 3, 0, time.Local))
	domain.SetClock(fake)
	t.Cleanup(func() { domain.SetClock(nil) })

	for _, code := range []int{http.StatusOK, http.StatusBadGateway} {
		log := &memLog{}
		sender := &scriptedSender{replies: map[string]int{"x": code, "y": code}}

		newPoster([]string{"x", "y"}, sender, log, nil).Relay(context.Background(), feedLine)

		require.Len(t, log.entries, 1, "status %d", code)
		assert.Equal(t, "13/03/07 09:05:03 N6TVE-11>"+feedLine+"\r\n", log.entries[0])
	}
}

func TestRelay_LogFailureDoesNotBlockDelivery(t *testing.T) {
	sender := &scriptedSender{replies: map[string]int{"x": http.StatusOK}}
	log := &memLog{err: errors.New("disk full")}
	metrics := observability.NewMetricsForTesting()

	p := relay.NewPoster(station, []string{"x"}, sender, log, nil, discardLogger(), metrics)
	out := p.Relay(context.Background(), feedLine)

	assert.Equal(t, domain.Delivered, out.Status)
	assert.Equal(t, []string{"x"}, sender.calls)
}

func TestRelay_PublishesAuditCopy(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("broker down")}
	sender := &scriptedSender{replies: map[string]int{"x": http.StatusOK}}

	out := newPoster([]string{"x"}, sender, &memLog{}, pub).Relay(context.Background(), feedLine)

	assert.Equal(t, domain.Delivered, out.Status)
	require.Len(t, pub.msgs, 1)
	assert.Equal(t, "N6TVE-11>"+feedLine+"\r\n", pub.msgs[0].Report)
}

func TestRelay_ServerListIsCopied(t *testing.T) {
	servers := []string{"x", "y"}
	sender := &scriptedSender{}
	p := newPoster(servers, sender, &memLog{}, nil)
	servers[0] = "mutated"

	p.Relay(context.Background(), feedLine)
	assert.Equal(t, []string{"x", "y"}, sender.calls)
}

func TestRelay_CancelledContextStopsFailover(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	sender := &scriptedSender{fails: map[string]error{"x": context.Canceled}}

	out := newPoster([]string{"x", "y"}, sender, &memLog{}, nil).Relay(ctx, feedLine)

	assert.Equal(t, domain.Exhausted, out.Status)
	assert.Equal(t, []string{"x"}, sender.calls)
}

// TestRelay_RealMirrors runs the poster against HTTP test servers through the
// real CWOP client and audit log file.
func TestRelay_RealMirrors(t *testing.T) {
	var mu sync.Mutex
	var hits []string
	mirror := func(name string, code int) *httptest.Server {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			mu.Lock()
			hits = append(hits, name)
			mu.Unlock()
			w.WriteHeader(code)
			_, _ = w.Write([]byte("thanks"))
		}))
		t.Cleanup(srv.Close)
		return srv
	}
	host := func(s *httptest.Server) string { return strings.TrimPrefix(s.URL, "http://") }

	first := mirror("first", http.StatusServiceUnavailable)
	second := mirror("second", http.StatusOK)
	third := mirror("third", http.StatusOK)

	logPath := filepath.Join(t.TempDir(), "cwop.log")
	client := cwop.NewClient(8080, time.Second, 2*time.Second)
	p := newPoster([]string{host(first), host(second), host(third)}, client, auditlog.NewFile(logPath), nil)

	out := p.Relay(context.Background(), feedLine)

	assert.Equal(t, domain.Delivered, out.Status)
	assert.Equal(t, host(second), out.Server)
	assert.Equal(t, []string{"first", "second"}, hits)
	require.Len(t, out.Attempts, 2)
	assert.Equal(t, http.StatusServiceUnavailable, out.Attempts[0].StatusCode)
	assert.Equal(t, http.StatusOK, out.Attempts[1].StatusCode)

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(string(data), " N6TVE-11>"+feedLine+"\r\n"))
	assert.Equal(t, 1, strings.Count(string(data), "\n"))
}
