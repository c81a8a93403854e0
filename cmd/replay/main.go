// Command replay runs a captured APRS feed through the relay filter offline.
// For every line that would be relayed it prints the exact CWOP payload.
// With -post it relays for real using the configured server list.
//
// Usage:
//
//	go run ./cmd/replay -input capture.txt
//	go run ./cmd/replay -input capture.txt -post -servers aprs2-servers
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/tve/cwop-relay/internal/adapter/auditlog"
	"github.com/tve/cwop-relay/internal/adapter/cwop"
	"github.com/tve/cwop-relay/internal/config"
	"github.com/tve/cwop-relay/internal/domain"
	"github.com/tve/cwop-relay/internal/observability"
	"github.com/tve/cwop-relay/internal/pipeline"
	"github.com/tve/cwop-relay/internal/relay"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("replay", flag.ContinueOnError)
	fs.SetOutput(stderr)
	input := fs.String("input", "-", "captured feed file, - for stdin")
	post := fs.Bool("post", false, "relay matching lines to the CWOP servers")
	servers := fs.String("servers", "", "CWOP server list used with -post (default $SERVERS_FILE)")
	echo := fs.Bool("echo", false, "echo every feed line like the live relay")
	if err := fs.Parse(args); err != nil {
		return 1
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(stderr, "FATAL: config: %v\n", err)
		return 1
	}

	src, closeSrc, err := openInput(*input, stdin)
	if err != nil {
		fmt.Fprintf(stderr, "FATAL: open input: %v\n", err)
		return 1
	}
	defer closeSrc()

	station := domain.Station{
		Callsign:      cfg.Callsign,
		Passcode:      cfg.Passcode,
		ClientName:    cfg.ClientName,
		ClientVersion: cfg.ClientVersion,
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	metrics := observability.NewMetricsForTesting()

	var relayer pipeline.Relayer = &dryRun{station: station, out: stdout}
	if *post {
		if *servers == "" {
			*servers = cfg.ServersFile
		}
		list, err := config.LoadServers(*servers)
		if err != nil {
			fmt.Fprintf(stderr, "FATAL: %v\n", err)
			return 1
		}
		client := cwop.NewClient(cfg.CWOPPort, cfg.ConnectTimeout, cfg.ReadTimeout)
		relayer = &reporting{
			poster: relay.NewPoster(station, list, client, auditlog.NewFile(cfg.LogPath), nil, logger, metrics),
			out:    stdout,
		}
	}

	console := io.Discard
	if *echo {
		console = stdout
	}

	fmt.Fprintln(stdout, "=== CWOP Replay ===")
	source := newLineSource(src)
	counts := &tally{next: relayer}
	p := pipeline.New(source, counts, console, logger, metrics)
	if err := p.Run(context.Background()); err != nil {
		fmt.Fprintf(stderr, "FATAL: %v\n", err)
		return 1
	}

	fmt.Fprintln(stdout, "\n=== Summary ===")
	fmt.Fprintf(stdout, "  read:      %d\n", source.lines)
	fmt.Fprintf(stdout, "  matched:   %d\n", counts.matched)
	if *post {
		fmt.Fprintf(stdout, "  delivered: %d\n", counts.delivered)
		fmt.Fprintf(stdout, "  exhausted: %d\n", counts.matched-counts.delivered)
	}
	return 0
}

func openInput(path string, stdin io.Reader) (io.Reader, func(), error) {
	if path == "-" {
		return stdin, func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	return f, func() { _ = f.Close() }, nil
}

// lineSource adapts a captured feed to pipeline.Extractor.
type lineSource struct {
	sc    *bufio.Scanner
	lines int
}

func newLineSource(r io.Reader) *lineSource {
	return &lineSource{sc: bufio.NewScanner(r)}
}

func (l *lineSource) Extract(_ context.Context) (string, error) {
	if l.sc.Scan() {
		l.lines++
		return domain.CleanLine(l.sc.Text()), nil
	}
	if err := l.sc.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}

// tally counts what reaches the relayer.
type tally struct {
	next      pipeline.Relayer
	matched   int
	delivered int
}

func (t *tally) Relay(ctx context.Context, line string) domain.Outcome {
	t.matched++
	out := t.next.Relay(ctx, line)
	if out.Status == domain.Delivered {
		t.delivered++
	}
	return out
}

// dryRun prints the payload instead of posting it.
type dryRun struct {
	station domain.Station
	out     io.Writer
}

func (d *dryRun) Relay(_ context.Context, line string) domain.Outcome {
	msg := domain.NewMessage(d.station, line)
	fmt.Fprintln(d.out, "\n--- report ---")
	fmt.Fprintf(d.out, "  log:     %s\n", strconv.Quote(msg.LogEntry(domain.Now())))
	fmt.Fprintf(d.out, "  payload: %s\n", strconv.Quote(string(msg.Payload())))
	return domain.Outcome{Status: domain.Exhausted}
}

// reporting wraps the real poster and prints each outcome.
type reporting struct {
	poster *relay.Poster
	out    io.Writer
}

func (r *reporting) Relay(ctx context.Context, line string) domain.Outcome {
	out := r.poster.Relay(ctx, line)
	for i, a := range out.Attempts {
		status := strconv.Itoa(a.StatusCode)
		if a.Err != nil {
			status = a.Err.Error()
		}
		fmt.Fprintf(r.out, "  [%d] %-30s %s (%s)\n", i+1, a.Server, status, a.Duration.Round(time.Millisecond))
	}
	fmt.Fprintf(r.out, "  => %s %s\n", out.Status, out.Server)
	return out
}
