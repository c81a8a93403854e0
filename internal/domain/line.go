package domain

import (
	"regexp"
	"strings"
)

var weatherReport = regexp.MustCompile(`^APTW01,TCPIP.*X1w`)

// CleanLine strips the line terminator and any stray carriage returns.
func CleanLine(line string) string {
	line = strings.TrimRight(line, "\r\n")
	return strings.ReplaceAll(line, "\r", "")
}

// IsWeatherReport reports whether a cleaned feed line is a packet from the
// 1-Wire weather node. Other stations on the feed are ignored.
func IsWeatherReport(line string) bool {
	return weatherReport.MatchString(line)
}
