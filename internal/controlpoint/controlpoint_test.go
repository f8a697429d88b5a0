package controlpoint

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/muurk/upnpcp/internal/discovery"
	"github.com/muurk/upnpcp/internal/transport"
)

type fakeSearcher struct {
	records []*discovery.Record
	err     error

	searchType string
	maxWait    time.Duration
	ttl        int
}

func (f *fakeSearcher) Search(ctx context.Context, searchType string, maxWait time.Duration, ttl int) ([]*discovery.Record, error) {
	f.searchType = searchType
	f.maxWait = maxWait
	f.ttl = ttl
	return f.records, f.err
}

const mediaServerDescription = `<?xml version="1.0"?>
<root xmlns="urn:schemas-upnp-org:device-1-0">
  <specVersion><major>1</major><minor>0</minor></specVersion>
  <device>
    <deviceType>urn:schemas-upnp-org:device:MediaServer:1</deviceType>
    <friendlyName>Test Server</friendlyName>
    <UDN>uuid:media-server</UDN>
    <serviceList>
      <service>
        <serviceType>urn:schemas-upnp-org:service:ContentDirectory:1</serviceType>
        <serviceId>urn:upnp-org:serviceId:ContentDirectory</serviceId>
        <SCPDURL>/cd.xml</SCPDURL>
        <controlURL>/ctl/cd</controlURL>
        <eventSubURL>/evt/cd</eventSubURL>
      </service>
    </serviceList>
    <deviceList>
      <device>
        <deviceType>urn:schemas-upnp-org:device:Sub:1</deviceType>
        <UDN>uuid:sub-device</UDN>
        <serviceList>
          <service>
            <serviceType>urn:schemas-upnp-org:service:Broken:1</serviceType>
            <serviceId>urn:upnp-org:serviceId:Broken</serviceId>
            <SCPDURL>/missing.xml</SCPDURL>
            <controlURL>/ctl/broken</controlURL>
            <eventSubURL></eventSubURL>
          </service>
        </serviceList>
      </device>
    </deviceList>
  </device>
</root>`

const contentDirectorySCPD = `<?xml version="1.0"?>
<scpd xmlns="urn:schemas-upnp-org:service-1-0">
  <specVersion><major>1</major><minor>0</minor></specVersion>
  <actionList>
    <action>
      <name>GetSystemUpdateID</name>
      <argumentList>
        <argument><name>Id</name><direction>out</direction><relatedStateVariable>SystemUpdateID</relatedStateVariable></argument>
      </argumentList>
    </action>
  </actionList>
  <serviceStateTable>
    <stateVariable sendEvents="yes"><name>SystemUpdateID</name><dataType>ui4</dataType></stateVariable>
  </serviceStateTable>
</scpd>`

const systemUpdateIDResponse = `<?xml version="1.0"?>
<s:Envelope xmlns:s="http://schemas.xmlsoap.org/soap/envelope/" s:encodingStyle="http://schemas.xmlsoap.org/soap/encoding/">
<s:Body><u:GetSystemUpdateIDResponse xmlns:u="urn:schemas-upnp-org:service:ContentDirectory:1"><Id>1</Id></u:GetSystemUpdateIDResponse></s:Body>
</s:Envelope>`

// newDeviceServer serves the media server documents and answers GetSystemUpdateID
func newDeviceServer(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/desc.xml", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, mediaServerDescription)
	})
	mux.HandleFunc("/cd.xml", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, contentDirectorySCPD)
	})
	mux.HandleFunc("/ctl/cd", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if got := r.Header.Get("SOAPACTION"); got != `"urn:schemas-upnp-org:service:ContentDirectory:1#GetSystemUpdateID"` {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", `text/xml; charset="utf-8"`)
		_, _ = io.WriteString(w, systemUpdateIDResponse)
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestControlPoint_EndToEnd(t *testing.T) {
	server := newDeviceServer(t)
	location := server.URL + "/desc.xml"

	searcher := &fakeSearcher{records: []*discovery.Record{
		{SearchTarget: "upnp:rootdevice", Location: location, USN: "uuid:media-server::upnp:rootdevice"},
		{SearchTarget: "urn:schemas-upnp-org:device:MediaServer:1", Location: location, USN: "uuid:media-server::urn:schemas-upnp-org:device:MediaServer:1"},
	}}

	client := transport.NewClient()
	client.CacheDuration = 0
	cp := New(DefaultConfig(), searcher, client)

	ctx := context.Background()
	devices, err := cp.FindDevices(ctx, "ssdp:all", time.Second, 2)
	if err != nil {
		t.Fatalf("FindDevices() error = %v", err)
	}
	if searcher.searchType != "ssdp:all" || searcher.maxWait != time.Second || searcher.ttl != 2 {
		t.Errorf("search called with %q %v %d", searcher.searchType, searcher.maxWait, searcher.ttl)
	}
	if len(devices) != 1 {
		t.Fatalf("devices = %d, want 1 (duplicate LOCATION fetched once)", len(devices))
	}

	device := devices[0]
	if device.Err != nil {
		t.Fatalf("device.Err = %v", device.Err)
	}
	if device.FriendlyName() != "Test Server" || device.UDN() != "uuid:media-server" {
		t.Errorf("device = %q %q", device.FriendlyName(), device.UDN())
	}
	if device.BaseURL != server.URL+"/" {
		t.Errorf("BaseURL = %q, want %q", device.BaseURL, server.URL+"/")
	}

	services, err := cp.FindServices(ctx)
	if err != nil {
		t.Fatalf("FindServices() error = %v", err)
	}
	if len(services) != 2 {
		t.Fatalf("services = %d, want 2 (root + embedded)", len(services))
	}

	cd, err := cp.Service("ContentDirectory")
	if err != nil {
		t.Fatalf("Service() error = %v", err)
	}
	if cd.State() != StateBound {
		t.Fatalf("ContentDirectory state = %v, err = %v", cd.State(), cd.Err())
	}
	if cd.SCPDURL != server.URL+"/cd.xml" {
		t.Errorf("SCPDURL = %q", cd.SCPDURL)
	}
	if cd.DeviceUDN != "uuid:media-server" {
		t.Errorf("DeviceUDN = %q", cd.DeviceUDN)
	}

	out, err := cd.Invoke(ctx, "GetSystemUpdateID")
	if err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}
	if len(out) != 1 || out["Id"] != int64(1) {
		t.Errorf("GetSystemUpdateID() = %#v, want {Id: int64(1)}", out)
	}

	broken, err := cp.Service("urn:upnp-org:serviceId:Broken")
	if err != nil {
		t.Fatalf("Service(Broken) error = %v", err)
	}
	if broken.State() != StateFailed {
		t.Errorf("Broken state = %v, want failed", broken.State())
	}
	if broken.DeviceUDN != "uuid:sub-device" {
		t.Errorf("Broken DeviceUDN = %q", broken.DeviceUDN)
	}

	failures := cp.Failures()
	if len(failures) != 1 || failures[0].ServiceID != "urn:upnp-org:serviceId:Broken" {
		t.Errorf("Failures() = %v", failures)
	}
	if len(device.Services) != 2 {
		t.Errorf("device.Services = %d, want 2", len(device.Services))
	}
}

func TestControlPoint_FindServicesNoDevices(t *testing.T) {
	cp := New(DefaultConfig(), &fakeSearcher{}, &fakeTransport{})

	services, err := cp.FindServices(context.Background())
	if err != nil {
		t.Fatalf("FindServices() error = %v", err)
	}
	if services == nil || len(services) != 0 {
		t.Errorf("FindServices() = %v, want empty", services)
	}
	if len(cp.Services()) != 0 {
		t.Error("Services() should be empty")
	}
}

func TestControlPoint_SearchFailureIsFatal(t *testing.T) {
	searchErr := errors.New("failed to join SSDP multicast group")
	cp := New(DefaultConfig(), &fakeSearcher{err: searchErr}, &fakeTransport{})

	devices, err := cp.FindDevices(context.Background(), "ssdp:all", time.Second, 4)
	if !errors.Is(err, searchErr) {
		t.Errorf("FindDevices() error = %v, want wrapped search error", err)
	}
	if devices != nil {
		t.Errorf("devices = %v, want nil", devices)
	}
}

func TestControlPoint_DeviceFailuresIsolated(t *testing.T) {
	ft := &fakeTransport{docs: map[string]string{
		"http://10.0.0.1/desc.xml": mediaServerDescription,
		"http://10.0.0.2/desc.xml": "<root><broken",
		"http://10.0.0.1/cd.xml":   contentDirectorySCPD,
	}}
	searcher := &fakeSearcher{records: []*discovery.Record{
		{Location: "http://10.0.0.1/desc.xml"},
		{Location: "http://10.0.0.2/desc.xml"},
		{Location: "http://10.0.0.3/desc.xml"},
	}}
	cp := New(Config{FetchConcurrency: 2}, searcher, ft)

	devices, err := cp.FindDevices(context.Background(), "", 0, 0)
	if err != nil {
		t.Fatalf("FindDevices() error = %v", err)
	}
	if len(devices) != 3 {
		t.Fatalf("devices = %d, want 3", len(devices))
	}

	var ok, failed int
	for _, d := range devices {
		if d.Err != nil {
			failed++
			if d.FriendlyName() != d.Location {
				t.Errorf("failed device FriendlyName() = %q, want location", d.FriendlyName())
			}
		} else {
			ok++
		}
	}
	if ok != 1 || failed != 2 {
		t.Errorf("ok = %d, failed = %d, want 1 and 2", ok, failed)
	}
	if len(cp.Failures()) != 2 {
		t.Errorf("Failures() = %v, want 2 device failures", cp.Failures())
	}

	services, err := cp.FindServices(context.Background())
	if err != nil {
		t.Fatalf("FindServices() error = %v", err)
	}
	if len(services) != 2 {
		t.Errorf("services = %d, want 2 from the healthy device", len(services))
	}

	// two device failures plus the embedded service with a missing SCPD
	if got := len(cp.Failures()); got != 3 {
		t.Errorf("Failures() = %d, want 3", got)
	}
}

func TestControlPoint_ServiceLookup(t *testing.T) {
	ft := &fakeTransport{docs: map[string]string{
		"http://10.0.0.1/desc.xml": mediaServerDescription,
		"http://10.0.0.1/cd.xml":   contentDirectorySCPD,
	}}
	cp := New(DefaultConfig(), &fakeSearcher{records: []*discovery.Record{{Location: "http://10.0.0.1/desc.xml"}}}, ft)

	if _, err := cp.FindDevices(context.Background(), "ssdp:all", time.Second, 4); err != nil {
		t.Fatalf("FindDevices() error = %v", err)
	}
	if _, err := cp.FindServices(context.Background()); err != nil {
		t.Fatalf("FindServices() error = %v", err)
	}

	keys := []string{
		"urn:upnp-org:serviceId:ContentDirectory",
		"urn:schemas-upnp-org:service:ContentDirectory:1",
		"ContentDirectory:1",
		"ContentDirectory",
	}
	for _, key := range keys {
		svc, err := cp.Service(key)
		if err != nil {
			t.Errorf("Service(%q) error = %v", key, err)
			continue
		}
		if svc.ServiceID != "urn:upnp-org:serviceId:ContentDirectory" {
			t.Errorf("Service(%q) = %s", key, svc.ServiceID)
		}
	}

	if _, err := cp.Service("AVTransport"); !errors.Is(err, ErrServiceNotFound) {
		t.Errorf("Service(AVTransport) error = %v, want ErrServiceNotFound", err)
	}
}

func TestControlPoint_FaultPolicyFromConfig(t *testing.T) {
	faultBody := `<s:Envelope xmlns:s="http://schemas.xmlsoap.org/soap/envelope/"><s:Body><s:Fault>` +
		`<faultcode>s:Client</faultcode><faultstring>UPnPError</faultstring>` +
		`<detail><UPnPError xmlns="urn:schemas-upnp-org:control-1-0"><errorCode>501</errorCode>` +
		`<errorDescription>Action Failed</errorDescription></UPnPError></detail></s:Fault></s:Body></s:Envelope>`

	for _, raise := range []bool{true, false} {
		t.Run(fmt.Sprintf("raise=%v", raise), func(t *testing.T) {
			mux := http.NewServeMux()
			mux.HandleFunc("/desc.xml", func(w http.ResponseWriter, r *http.Request) {
				_, _ = io.WriteString(w, mediaServerDescription)
			})
			mux.HandleFunc("/cd.xml", func(w http.ResponseWriter, r *http.Request) {
				_, _ = io.WriteString(w, contentDirectorySCPD)
			})
			mux.HandleFunc("/ctl/cd", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = io.WriteString(w, faultBody)
			})
			server := httptest.NewServer(mux)
			defer server.Close()

			searcher := &fakeSearcher{records: []*discovery.Record{{Location: server.URL + "/desc.xml"}}}
			cp := New(Config{RaiseOnRemoteError: raise}, searcher, transport.NewClient())

			ctx := context.Background()
			if _, err := cp.FindDevices(ctx, "ssdp:all", time.Second, 4); err != nil {
				t.Fatalf("FindDevices() error = %v", err)
			}
			if _, err := cp.FindServices(ctx); err != nil {
				t.Fatalf("FindServices() error = %v", err)
			}
			cd, err := cp.Service("ContentDirectory")
			if err != nil {
				t.Fatalf("Service() error = %v", err)
			}

			out, err := cd.Invoke(ctx, "GetSystemUpdateID")
			if raise {
				var fault *ActionFault
				if !errors.As(err, &fault) {
					t.Fatalf("Invoke() error = %v, want *ActionFault", err)
				}
				if fault.StatusCode != http.StatusInternalServerError {
					t.Errorf("StatusCode = %d", fault.StatusCode)
				}
				if string(fault.Body) != faultBody {
					t.Errorf("Body = %q", fault.Body)
				}
				return
			}

			if err != nil {
				t.Fatalf("Invoke() error = %v, want degraded result", err)
			}
			if out["errorCode"] != int64(501) || out["errorDescription"] != "Action Failed" {
				t.Errorf("result = %#v", out)
			}
		})
	}
}

const nestedRendererDescription = `<?xml version="1.0"?>
<root xmlns="urn:schemas-upnp-org:device-1-0">
  <specVersion><major>1</major><minor>1</minor></specVersion>
  <device>
    <deviceType>urn:schemas-upnp-org:device:MediaRenderer:1</deviceType>
    <friendlyName>Nested Renderer</friendlyName>
    <UDN>uuid:nested-renderer</UDN>
    <serviceList>
      <service>
        <serviceType>urn:schemas-upnp-org:service:RenderingControl:1</serviceType>
        <serviceId>urn:upnp-org:serviceId:RenderingControl</serviceId>
        <SCPDURL>rc.xml</SCPDURL>
        <controlURL>/ctl/rc</controlURL>
        <eventSubURL>evt/rc</eventSubURL>
      </service>
    </serviceList>
  </device>
</root>`

func TestControlPoint_FindServicesNestedLocation(t *testing.T) {
	ft := &fakeTransport{docs: map[string]string{
		"http://10.0.0.5:80/dev/desc.xml": nestedRendererDescription,
		"http://10.0.0.5:80/dev/rc.xml":   renderingControlSCPD,
	}}
	searcher := &fakeSearcher{records: []*discovery.Record{
		{Location: "http://10.0.0.5:80/dev/desc.xml"},
	}}
	cp := New(DefaultConfig(), searcher, ft)

	devices, err := cp.FindDevices(context.Background(), "", 0, 0)
	if err != nil {
		t.Fatalf("FindDevices() error = %v", err)
	}
	if got := devices[0].BaseURL; got != "http://10.0.0.5:80/dev/" {
		t.Errorf("BaseURL = %q, want directory of LOCATION", got)
	}

	services, err := cp.FindServices(context.Background())
	if err != nil {
		t.Fatalf("FindServices() error = %v", err)
	}
	if len(services) != 1 {
		t.Fatalf("services = %d, want 1", len(services))
	}

	svc := services[0]
	if svc.State() != StateBound {
		t.Fatalf("state = %s, err = %v; want bound", svc.State(), svc.Err())
	}

	tests := []struct {
		field string
		got   string
		want  string
	}{
		{"SCPDURL", svc.SCPDURL, "http://10.0.0.5:80/dev/rc.xml"},
		{"ControlURL", svc.ControlURL, "http://10.0.0.5:80/ctl/rc"},
		{"EventSubURL", svc.EventSubURL, "http://10.0.0.5:80/dev/evt/rc"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s = %q, want %q", tt.field, tt.got, tt.want)
		}
	}

	if len(cp.Failures()) != 0 {
		t.Errorf("Failures() = %v, want none", cp.Failures())
	}
}
