package discovery

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/net/ipv4"

	"github.com/muurk/upnpcp/internal/logging"
)

const (
	// MulticastAddr is the SSDP multicast group and port
	MulticastAddr = "239.255.255.250:1900"

	// DefaultSearchTarget asks every device and service to answer
	DefaultSearchTarget = "ssdp:all"

	// DefaultMaxWait is the default response window
	DefaultMaxWait = 3 * time.Second

	// DefaultTTL is the default multicast hop limit
	DefaultTTL = 4

	// DefaultUserAgent is sent in the USER-AGENT header of M-SEARCH requests
	DefaultUserAgent = "Go/1 UPnP/1.1 upnp-cp/1.0"

	// DefaultFriendlyName is sent in the CPFN.UPNP.ORG header
	DefaultFriendlyName = "upnp-cp"

	maxDatagramSize = 8192
)

var multicastGroup = net.IPv4(239, 255, 255, 250)

// Scanner runs SSDP search rounds
type Scanner struct {
	// TTL is the multicast hop limit used when Search is called with ttl <= 0
	TTL int

	// UserAgent is sent as USER-AGENT
	UserAgent string

	// FriendlyName is sent as CPFN.UPNP.ORG (omitted when empty)
	FriendlyName string

	// ControlPointUUID is sent as CPUUID.UPNP.ORG (omitted when empty)
	ControlPointUUID string

	// Interface selects the multicast interface (nil = system default)
	Interface *net.Interface
}

// NewScanner creates a new SSDP scanner with default settings and a fresh
// control point UUID
func NewScanner() *Scanner {
	return &Scanner{
		TTL:              DefaultTTL,
		UserAgent:        DefaultUserAgent,
		FriendlyName:     DefaultFriendlyName,
		ControlPointUUID: uuid.NewString(),
	}
}

// Search multicasts one M-SEARCH and collects every answer that arrives
// within maxWait. Zero answers is not an error. Failing to set up the
// multicast socket fails the whole search.
//
// If ctx is cancelled before the window closes, the records gathered so far
// are returned together with ctx.Err().
func (s *Scanner) Search(ctx context.Context, searchType string, maxWait time.Duration, ttl int) ([]*Record, error) {
	if searchType == "" {
		searchType = DefaultSearchTarget
	}
	if maxWait <= 0 {
		maxWait = DefaultMaxWait
	}
	if ttl <= 0 {
		ttl = s.TTL
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	conn, err := net.ListenPacket("udp4", "0.0.0.0:0")
	if err != nil {
		return nil, fmt.Errorf("failed to open SSDP socket: %w", err)
	}
	defer func() { _ = conn.Close() }()

	if err := s.configure(ipv4.NewPacketConn(conn), ttl); err != nil {
		return nil, err
	}

	dst, err := net.ResolveUDPAddr("udp4", MulticastAddr)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve SSDP group: %w", err)
	}

	logging.Info("Starting SSDP search",
		zap.String("st", searchType),
		zap.Duration("max_wait", maxWait),
		zap.Int("ttl", ttl),
	)

	records, err := exchange(ctx, conn, dst, s.buildRequest(searchType, maxWait), maxWait)

	logging.Info("SSDP search finished", zap.Int("records", len(records)))

	return records, err
}

// configure joins the SSDP group and applies the multicast options
func (s *Scanner) configure(p *ipv4.PacketConn, ttl int) error {
	if err := p.JoinGroup(s.Interface, &net.UDPAddr{IP: multicastGroup}); err != nil {
		return fmt.Errorf("failed to join SSDP multicast group: %w", err)
	}
	if s.Interface != nil {
		if err := p.SetMulticastInterface(s.Interface); err != nil {
			return fmt.Errorf("failed to set multicast interface %s: %w", s.Interface.Name, err)
		}
	}
	if err := p.SetMulticastLoopback(false); err != nil {
		return fmt.Errorf("failed to disable multicast loopback: %w", err)
	}
	if err := p.SetMulticastTTL(ttl); err != nil {
		return fmt.Errorf("failed to set multicast TTL: %w", err)
	}
	if err := p.SetTTL(ttl); err != nil {
		return fmt.Errorf("failed to set TTL: %w", err)
	}
	return nil
}

// buildRequest renders the M-SEARCH request
func (s *Scanner) buildRequest(searchType string, maxWait time.Duration) []byte {
	var b strings.Builder

	b.WriteString("M-SEARCH * HTTP/1.1\r\n")
	fmt.Fprintf(&b, "HOST: %s\r\n", MulticastAddr)
	b.WriteString("MAN: \"ssdp:discover\"\r\n")
	fmt.Fprintf(&b, "MX: %d\r\n", mxSeconds(maxWait))
	fmt.Fprintf(&b, "ST: %s\r\n", searchType)
	if s.UserAgent != "" {
		fmt.Fprintf(&b, "USER-AGENT: %s\r\n", s.UserAgent)
	}
	if s.FriendlyName != "" {
		fmt.Fprintf(&b, "CPFN.UPNP.ORG: %s\r\n", s.FriendlyName)
	}
	if s.ControlPointUUID != "" {
		fmt.Fprintf(&b, "CPUUID.UPNP.ORG: %s\r\n", s.ControlPointUUID)
	}
	b.WriteString("\r\n")

	return []byte(b.String())
}

// mxSeconds is the MX header value: whole seconds rounded up, at least 1
func mxSeconds(maxWait time.Duration) int {
	mx := int(math.Ceil(maxWait.Seconds()))
	if mx < 1 {
		mx = 1
	}
	return mx
}

// exchange sends req to dst and reads answers until maxWait elapses or ctx
// is done. The caller owns conn.
func exchange(ctx context.Context, conn net.PacketConn, dst net.Addr, req []byte, maxWait time.Duration) ([]*Record, error) {
	logging.LogDatagram("send", dst.String(), req)

	if _, err := conn.WriteTo(req, dst); err != nil {
		return nil, fmt.Errorf("failed to send M-SEARCH: %w", err)
	}

	if err := conn.SetReadDeadline(time.Now().Add(maxWait)); err != nil {
		return nil, fmt.Errorf("failed to set read deadline: %w", err)
	}

	// Unblock ReadFrom as soon as ctx is done
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.SetReadDeadline(time.Now())
		case <-done:
		}
	}()

	records := make([]*Record, 0)
	buf := make([]byte, maxDatagramSize)

	for {
		n, from, err := conn.ReadFrom(buf)
		if err != nil {
			if ctx.Err() != nil {
				return records, ctx.Err()
			}
			if errors.Is(err, os.ErrDeadlineExceeded) {
				return records, nil
			}
			return records, fmt.Errorf("failed to read SSDP response: %w", err)
		}

		peer := ""
		if from != nil {
			peer = from.String()
		}
		logging.LogDatagram("recv", peer, buf[:n])

		record, err := ParseRecord(buf[:n], from)
		if err != nil {
			logging.Debug("Dropping SSDP datagram",
				zap.String("from", peer),
				zap.Error(err),
			)
			continue
		}

		records = append(records, record)
	}
}
