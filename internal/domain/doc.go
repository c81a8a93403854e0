// Package domain models APRS weather reports and their CWOP submission form.
//
// # Data Source
//
// The relay listens to a raw APRS-IS style TCP feed: plain text, one packet
// per line, lines terminated by CRLF or LF, no login and no framing. Every
// station on the feed is visible, so the relay filters for a single station
// format and ignores everything else.
//
// # Station Filter
//
// Only packets produced by the 1-Wire weather node are relayed:
//
//	APTW01,TCPIP*,qAC,FIRST:@092345z4903.50N/07201.75W_220/004g005t077X1w
//	^^^^^^^^^^^^                                                    ^^^
//	destination + path prefix                          node software tag
//
// A line matches when it starts with "APTW01,TCPIP" and contains "X1w"
// anywhere after that prefix. See [IsWeatherReport].
//
// # CWOP Submission
//
// CWOP mirrors accept HTTP POSTs on port 8080 whose body is an APRS-IS login
// line followed by the packet:
//
//	user N6TVE-11 pass 11394 vers beaglebone-1w 1.00\r\n
//	N6TVE-11>APTW01,TCPIP*,qAC,FIRST:...X1w\r\n
//
// The second line is the report: the station callsign, ">", and the feed line
// verbatim. See [Message].
//
// # Audit Log
//
// Every report is appended to a local log prefixed with the local time as
// "YY/MM/DD HH:MM:SS ". See [Message.LogEntry].
package domain
