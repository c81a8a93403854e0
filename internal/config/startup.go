package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
)

// DefaultServersFile is the CWOP mirror list read from the working directory.
const DefaultServersFile = "aprs2-servers"

var (
	// ErrUsage means the command line was not exactly "<hostname> <port>".
	ErrUsage = errors.New("usage: relay hostname port")
	// ErrNoServers means the server file is missing, unreadable or empty.
	ErrNoServers = errors.New("no CWOP servers configured")
)

var portPattern = regexp.MustCompile(`^\d+$`)

// Feed is the TCP endpoint of the APRS feed.
type Feed struct {
	Host string
	Port string
}

// Addr returns host:port suitable for net.Dial.
func (f Feed) Addr() string {
	return f.Host + ":" + f.Port
}

// ParseArgs validates the positional arguments (without the program name).
func ParseArgs(args []string) (Feed, error) {
	if len(args) != 2 || !portPattern.MatchString(args[1]) {
		return Feed{}, ErrUsage
	}
	return Feed{Host: args[0], Port: args[1]}, nil
}

// LoadServers reads one hostname per line. Order is failover priority.
// Blank lines are skipped.
func LoadServers(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("server file %q: %w", path, errors.Join(ErrNoServers, err))
	}
	defer f.Close()

	var servers []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		s := strings.TrimSpace(sc.Text())
		if s == "" {
			continue
		}
		servers = append(servers, s)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read server file %q: %w", path, err)
	}
	if len(servers) == 0 {
		return nil, fmt.Errorf("server file %q: %w", path, ErrNoServers)
	}
	return servers, nil
}
