package description

import (
	"testing"

	"github.com/muurk/upnpcp/internal/transport"
)

const mediaServerDescription = `<?xml version="1.0"?>
<root xmlns="urn:schemas-upnp-org:device-1-0">
  <specVersion><major>1</major><minor>0</minor></specVersion>
  <device>
    <deviceType>urn:schemas-upnp-org:device:MediaServer:1</deviceType>
    <friendlyName> Living Room NAS </friendlyName>
    <manufacturer>Acme</manufacturer>
    <modelName>NAS-1</modelName>
    <UDN>uuid:4d696e69-444c-164e-9d41-001122334455</UDN>
    <serviceList>
      <service>
        <serviceType>urn:schemas-upnp-org:service:ContentDirectory:1</serviceType>
        <serviceId>urn:upnp-org:serviceId:ContentDirectory</serviceId>
        <SCPDURL>/cd.xml</SCPDURL>
        <controlURL>/ctl/cd</controlURL>
        <eventSubURL>/evt/cd</eventSubURL>
      </service>
      <service>
        <serviceType>urn:schemas-upnp-org:service:ConnectionManager:1</serviceType>
        <serviceId>urn:upnp-org:serviceId:ConnectionManager</serviceId>
        <SCPDURL>/cm.xml</SCPDURL>
        <controlURL>/ctl/cm</controlURL>
        <eventSubURL>/evt/cm</eventSubURL>
      </service>
    </serviceList>
    <deviceList>
      <device>
        <deviceType>urn:schemas-upnp-org:device:Embedded:1</deviceType>
        <friendlyName>Embedded</friendlyName>
        <UDN>uuid:embedded</UDN>
        <serviceList>
          <service>
            <serviceType>urn:schemas-upnp-org:service:Extra:1</serviceType>
            <serviceId>urn:upnp-org:serviceId:Extra</serviceId>
            <SCPDURL>extra.xml</SCPDURL>
            <controlURL>ctl/extra</controlURL>
            <eventSubURL></eventSubURL>
          </service>
        </serviceList>
      </device>
    </deviceList>
  </device>
</root>`

func TestParseDeviceDescription(t *testing.T) {
	desc, err := ParseDeviceDescription([]byte(mediaServerDescription))
	if err != nil {
		t.Fatalf("ParseDeviceDescription() error = %v", err)
	}

	if desc.SpecVersion.String() != "1.0" {
		t.Errorf("SpecVersion = %q, want 1.0", desc.SpecVersion.String())
	}
	if desc.URLBase != "" {
		t.Errorf("URLBase = %q, want empty", desc.URLBase)
	}
	if desc.Device.FriendlyName != "Living Room NAS" {
		t.Errorf("FriendlyName = %q, want trimmed name", desc.Device.FriendlyName)
	}
	if len(desc.Device.Services) != 2 {
		t.Fatalf("root services = %d, want 2", len(desc.Device.Services))
	}
	if got := desc.Device.Services[0].SCPDURL; got != "/cd.xml" {
		t.Errorf("SCPDURL = %q, want /cd.xml", got)
	}
	if len(desc.Device.Devices) != 1 {
		t.Fatalf("embedded devices = %d, want 1", len(desc.Device.Devices))
	}
}

func TestParseDeviceDescription_SingleService(t *testing.T) {
	raw := `<root><specVersion><major>1</major><minor>1</minor></specVersion>
<URLBase>http://10.0.0.5:8200/</URLBase>
<device><UDN>uuid:x</UDN><serviceList><service>
<serviceType>urn:schemas-upnp-org:service:RenderingControl:1</serviceType>
<serviceId>urn:upnp-org:serviceId:RenderingControl</serviceId>
<SCPDURL>/rc.xml</SCPDURL><controlURL>/ctl/rc</controlURL><eventSubURL>/evt/rc</eventSubURL>
</service></serviceList></device></root>`

	desc, err := ParseDeviceDescription([]byte(raw))
	if err != nil {
		t.Fatalf("ParseDeviceDescription() error = %v", err)
	}

	if len(desc.Device.Services) != 1 {
		t.Fatalf("services = %d, want 1", len(desc.Device.Services))
	}
	if desc.URLBase != "http://10.0.0.5:8200/" {
		t.Errorf("URLBase = %q", desc.URLBase)
	}
	if got := desc.BaseURL("http://10.0.0.9:1900/desc.xml"); got != "http://10.0.0.5:8200/" {
		t.Errorf("BaseURL() = %q, want URLBase", got)
	}
}

func TestDeviceDescription_BaseURLFallback(t *testing.T) {
	desc, err := ParseDeviceDescription([]byte(mediaServerDescription))
	if err != nil {
		t.Fatalf("ParseDeviceDescription() error = %v", err)
	}

	if got := desc.BaseURL("http://192.168.1.20:8200/rootDesc.xml"); got != "http://192.168.1.20:8200/" {
		t.Errorf("BaseURL() = %q, want directory of location", got)
	}
	if got := desc.BaseURL("http://192.168.1.20:8200/dev/rootDesc.xml"); got != "http://192.168.1.20:8200/dev/" {
		t.Errorf("BaseURL() = %q, want directory of nested location", got)
	}
}

func TestDeviceDescription_ResolveURL(t *testing.T) {
	withBase := &DeviceDescription{URLBase: "http://10.0.0.5:8200/dev/"}
	if got := withBase.ResolveURL("http://10.0.0.9/x/desc.xml", "/cd.xml"); got != "http://10.0.0.5:8200/dev/cd.xml" {
		t.Errorf("ResolveURL() with URLBase = %q", got)
	}

	noBase := &DeviceDescription{}
	tests := []struct {
		ref  string
		want string
	}{
		{"rc.xml", "http://10.0.0.5:80/dev/rc.xml"},
		{"/ctl/rc", "http://10.0.0.5:80/ctl/rc"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := noBase.ResolveURL("http://10.0.0.5:80/dev/desc.xml", tt.ref); got != tt.want {
			t.Errorf("ResolveURL(%q) = %q, want %q", tt.ref, got, tt.want)
		}
	}
}

func TestAllServices_IncludesEmbedded(t *testing.T) {
	desc, err := ParseDeviceDescription([]byte(mediaServerDescription))
	if err != nil {
		t.Fatalf("ParseDeviceDescription() error = %v", err)
	}

	services := desc.AllServices()
	want := []string{
		"urn:upnp-org:serviceId:ContentDirectory",
		"urn:upnp-org:serviceId:ConnectionManager",
		"urn:upnp-org:serviceId:Extra",
	}
	if len(services) != len(want) {
		t.Fatalf("AllServices() = %d entries, want %d", len(services), len(want))
	}
	for i, id := range want {
		if services[i].ServiceID != id {
			t.Errorf("services[%d].ServiceID = %q, want %q", i, services[i].ServiceID, id)
		}
	}

	if devices := desc.AllDevices(); len(devices) != 2 {
		t.Errorf("AllDevices() = %d, want 2", len(devices))
	}
}

func TestParseDeviceDescription_Errors(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"empty", ""},
		{"whitespace", "  \n "},
		{"not xml", "this is not xml"},
		{"wrong root", "<scpd><actionList/></scpd>"},
		{"no device", "<root><specVersion><major>1</major></specVersion></root>"},
		{"truncated", "<root><device><UDN>uuid:x</UDN>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseDeviceDescription([]byte(tt.raw))
			if err == nil {
				t.Fatal("ParseDeviceDescription() expected error")
			}
			if !transport.IsParseError(err) {
				t.Errorf("error = %v, want parse error", err)
			}
		})
	}
}

func TestParseDeviceDescription_Latin1(t *testing.T) {
	raw := "<?xml version=\"1.0\" encoding=\"ISO-8859-1\"?>\n" +
		"<root><device><friendlyName>Caf\xe9</friendlyName><UDN>uuid:latin</UDN></device></root>"

	desc, err := ParseDeviceDescription([]byte(raw))
	if err != nil {
		t.Fatalf("ParseDeviceDescription() error = %v", err)
	}
	if desc.Device.FriendlyName != "Café" {
		t.Errorf("FriendlyName = %q, want Café", desc.Device.FriendlyName)
	}
}

const contentDirectorySCPD = `<?xml version="1.0"?>
<scpd xmlns="urn:schemas-upnp-org:service-1-0">
  <specVersion><major>1</major><minor>0</minor></specVersion>
  <actionList>
    <action>
      <name>GetSystemUpdateID</name>
      <argumentList>
        <argument>
          <name>Id</name>
          <direction>out</direction>
          <relatedStateVariable>SystemUpdateID</relatedStateVariable>
        </argument>
      </argumentList>
    </action>
    <action>
      <name>Browse</name>
      <argumentList>
        <argument><name>ObjectID</name><direction>in</direction><relatedStateVariable>A_ARG_TYPE_ObjectID</relatedStateVariable></argument>
        <argument><name>BrowseFlag</name><direction>in</direction><relatedStateVariable>A_ARG_TYPE_BrowseFlag</relatedStateVariable></argument>
        <argument><name>Result</name><direction>out</direction><relatedStateVariable>A_ARG_TYPE_Result</relatedStateVariable></argument>
        <argument><name>NumberReturned</name><direction> OUT </direction><relatedStateVariable>A_ARG_TYPE_Count</relatedStateVariable></argument>
      </argumentList>
    </action>
    <action>
      <name>GetSearchCapabilities</name>
    </action>
  </actionList>
  <serviceStateTable>
    <stateVariable sendEvents="yes">
      <name>SystemUpdateID</name>
      <dataType>ui4</dataType>
    </stateVariable>
    <stateVariable sendEvents="no">
      <name>A_ARG_TYPE_BrowseFlag</name>
      <dataType>string</dataType>
      <allowedValueList>
        <allowedValue>BrowseMetadata</allowedValue>
        <allowedValue>BrowseDirectChildren</allowedValue>
      </allowedValueList>
    </stateVariable>
    <stateVariable sendEvents="no">
      <name>A_ARG_TYPE_Count</name>
      <dataType>ui4</dataType>
      <allowedValueRange><minimum>0</minimum><maximum>1000</maximum></allowedValueRange>
    </stateVariable>
  </serviceStateTable>
</scpd>`

func TestParseSCPD(t *testing.T) {
	scpd, err := ParseSCPD([]byte(contentDirectorySCPD))
	if err != nil {
		t.Fatalf("ParseSCPD() error = %v", err)
	}

	if scpd.SpecVersion.String() != "1.0" {
		t.Errorf("SpecVersion = %q", scpd.SpecVersion.String())
	}
	if len(scpd.Actions) != 3 {
		t.Fatalf("actions = %d, want 3", len(scpd.Actions))
	}
	if len(scpd.StateTable) != 3 {
		t.Fatalf("state variables = %d, want 3", len(scpd.StateTable))
	}

	browse := scpd.Action("Browse")
	if browse == nil {
		t.Fatal("Action(Browse) = nil")
	}
	if in := browse.InArguments(); len(in) != 2 || in[0].Name != "ObjectID" || in[1].Name != "BrowseFlag" {
		t.Errorf("Browse in-arguments = %+v", in)
	}
	out := browse.OutArguments()
	if len(out) != 2 || out[1].Name != "NumberReturned" {
		t.Errorf("Browse out-arguments = %+v, want direction normalized", out)
	}

	if caps := scpd.Action("GetSearchCapabilities"); caps == nil || len(caps.Arguments) != 0 {
		t.Errorf("GetSearchCapabilities = %+v, want no arguments", caps)
	}

	sv := scpd.StateVariable("SystemUpdateID")
	if sv == nil || sv.DataType != "ui4" || sv.SendEvents != "yes" {
		t.Errorf("SystemUpdateID = %+v", sv)
	}
	if flag := scpd.StateVariable("A_ARG_TYPE_BrowseFlag"); flag == nil || len(flag.AllowedValues) != 2 {
		t.Errorf("A_ARG_TYPE_BrowseFlag = %+v, want 2 allowed values", flag)
	}
	if count := scpd.StateVariable("A_ARG_TYPE_Count"); count == nil || count.AllowedRange == nil || count.AllowedRange.Maximum != "1000" {
		t.Errorf("A_ARG_TYPE_Count = %+v, want range", count)
	}
	if scpd.StateVariable("Missing") != nil {
		t.Error("StateVariable(Missing) should be nil")
	}
	if scpd.Action("Missing") != nil {
		t.Error("Action(Missing) should be nil")
	}
}

func TestParseSCPD_SingleEntries(t *testing.T) {
	raw := `<scpd><actionList><action><name>Ping</name></action></actionList>
<serviceStateTable><stateVariable><name>X</name><dataType>boolean</dataType></stateVariable></serviceStateTable></scpd>`

	scpd, err := ParseSCPD([]byte(raw))
	if err != nil {
		t.Fatalf("ParseSCPD() error = %v", err)
	}
	if len(scpd.Actions) != 1 || scpd.Actions[0].Name != "Ping" {
		t.Errorf("Actions = %+v", scpd.Actions)
	}
	if len(scpd.StateTable) != 1 || scpd.StateTable[0].DataType != "boolean" {
		t.Errorf("StateTable = %+v", scpd.StateTable)
	}
}

func TestParseSCPD_Empty(t *testing.T) {
	scpd, err := ParseSCPD([]byte(`<scpd xmlns="urn:schemas-upnp-org:service-1-0"></scpd>`))
	if err != nil {
		t.Fatalf("ParseSCPD() error = %v", err)
	}
	if len(scpd.Actions) != 0 || len(scpd.StateTable) != 0 {
		t.Errorf("expected no actions or state, got %+v", scpd)
	}
}

func TestParseSCPD_Errors(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"empty", ""},
		{"not xml", "<<<"},
		{"wrong root", "<root><device/></root>"},
		{"duplicate action", `<scpd><actionList><action><name>Play</name></action><action><name> Play </name></action></actionList></scpd>`},
		{"unnamed action", `<scpd><actionList><action><name></name></action></actionList></scpd>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseSCPD([]byte(tt.raw))
			if err == nil {
				t.Fatal("ParseSCPD() expected error")
			}
			if !transport.IsParseError(err) {
				t.Errorf("error = %v, want parse error", err)
			}
		})
	}
}

func TestShortServiceType(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"urn:schemas-upnp-org:service:ContentDirectory:1", "ContentDirectory:1"},
		{"urn:schemas-sony-com:service:ScalarWebAPI:1", "ScalarWebAPI:1"},
		{"custom", "custom"},
	}

	for _, tt := range tests {
		if got := ShortServiceType(tt.in); got != tt.want {
			t.Errorf("ShortServiceType(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
