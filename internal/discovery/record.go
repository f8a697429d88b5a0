package discovery

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// errNoLocation marks a datagram that cannot lead to a device description
var errNoLocation = errors.New("datagram has no LOCATION header")

// Record is one SSDP answer or advertisement
type Record struct {
	// SearchTarget is the ST header (NT for NOTIFY advertisements)
	SearchTarget string

	// Location is the URL of the device description (e.g., "http://192.168.1.20:8200/rootDesc.xml")
	Location string

	// USN is the unique service name (e.g., "uuid:4d69...::urn:schemas-upnp-org:device:MediaServer:1")
	USN string

	// Server is the SERVER header (e.g., "Linux/5.10 UPnP/1.0 MiniDLNA/1.3.0")
	Server string

	// Headers holds every header of the datagram, keyed by upper-case name
	Headers map[string]string

	// From is the address the datagram came from
	From string

	// ReceivedAt is when the datagram was received
	ReceivedAt time.Time
}

// String returns a human-readable string representation of the record
func (r *Record) String() string {
	return fmt.Sprintf("%s at %s (from %s)", r.SearchTarget, r.Location, r.From)
}

// Header returns a header value by name, case-insensitively
func (r *Record) Header(name string) string {
	if r.Headers == nil {
		return ""
	}
	return r.Headers[strings.ToUpper(name)]
}

// Host returns the host:port part of Location, or "" if it does not parse
func (r *Record) Host() string {
	u, err := url.Parse(r.Location)
	if err != nil {
		return ""
	}
	return u.Host
}

// UDN returns the "uuid:..." prefix of the USN
func (r *Record) UDN() string {
	udn, _, _ := strings.Cut(r.USN, "::")
	return udn
}

// ParseRecord parses one SSDP datagram: either an M-SEARCH response
// ("HTTP/1.1 200 OK") or a NOTIFY advertisement.
// Datagrams without a LOCATION header are rejected.
func ParseRecord(data []byte, from net.Addr) (*Record, error) {
	// Some stacks omit the blank line that terminates the header block
	buf := make([]byte, 0, len(data)+4)
	buf = append(buf, data...)
	buf = append(buf, "\r\n\r\n"...)
	r := bufio.NewReader(bytes.NewReader(buf))

	var header http.Header
	if bytes.HasPrefix(data, []byte("HTTP/")) {
		resp, err := http.ReadResponse(r, nil)
		if err != nil {
			return nil, fmt.Errorf("malformed SSDP response: %w", err)
		}
		_ = resp.Body.Close()
		header = resp.Header
	} else {
		req, err := http.ReadRequest(r)
		if err != nil {
			return nil, fmt.Errorf("malformed SSDP request: %w", err)
		}
		header = req.Header
	}

	location := strings.TrimSpace(header.Get("Location"))
	if location == "" {
		return nil, errNoLocation
	}

	headers := make(map[string]string, len(header))
	for name, values := range header {
		headers[strings.ToUpper(name)] = strings.TrimSpace(strings.Join(values, ", "))
	}

	st := strings.TrimSpace(header.Get("St"))
	if st == "" {
		st = strings.TrimSpace(header.Get("Nt"))
	}

	record := &Record{
		SearchTarget: st,
		Location:     location,
		USN:          strings.TrimSpace(header.Get("Usn")),
		Server:       strings.TrimSpace(header.Get("Server")),
		Headers:      headers,
		ReceivedAt:   time.Now(),
	}
	if from != nil {
		record.From = from.String()
	}

	return record, nil
}
