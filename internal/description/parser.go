package description

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"

	"golang.org/x/net/html/charset"

	"github.com/muurk/upnpcp/internal/transport"
	"github.com/muurk/upnpcp/internal/urls"
)

type rawRoot struct {
	XMLName     xml.Name    `xml:"root"`
	SpecVersion SpecVersion `xml:"specVersion"`
	URLBase     string      `xml:"URLBase"`
	Device      *Device     `xml:"device"`
}

type rawSCPD struct {
	XMLName     xml.Name        `xml:"scpd"`
	SpecVersion SpecVersion     `xml:"specVersion"`
	Actions     []Action        `xml:"actionList>action"`
	StateTable  []StateVariable `xml:"serviceStateTable>stateVariable"`
}

// decode unmarshals an XML document, accepting the non-UTF-8 encodings
// (ISO-8859-1 and friends) that device firmware likes to declare.
func decode(raw []byte, v any) error {
	dec := xml.NewDecoder(bytes.NewReader(raw))
	dec.CharsetReader = charset.NewReaderLabel
	return dec.Decode(v)
}

// ParseDeviceDescription parses a device description document.
// Single and repeated service/device entries both decode into slices.
func ParseDeviceDescription(raw []byte) (*DeviceDescription, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, transport.NewParseError("empty device description", nil)
	}

	var root rawRoot
	if err := decode(raw, &root); err != nil {
		return nil, transport.NewParseError("malformed device description", err)
	}

	if root.Device == nil {
		return nil, transport.NewParseError("device description has no <device> element", nil)
	}

	desc := &DeviceDescription{
		SpecVersion: trimVersion(root.SpecVersion),
		URLBase:     strings.TrimSpace(root.URLBase),
		Device:      *root.Device,
	}
	desc.Device.walk(normalizeDevice)

	return desc, nil
}

// ParseSCPD parses a service description into its spec version, state table
// and action list. Duplicate action names are rejected.
func ParseSCPD(raw []byte) (*SCPD, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, transport.NewParseError("empty service description", nil)
	}

	var doc rawSCPD
	if err := decode(raw, &doc); err != nil {
		return nil, transport.NewParseError("malformed service description", err)
	}

	scpd := &SCPD{
		SpecVersion: trimVersion(doc.SpecVersion),
		Actions:     doc.Actions,
		StateTable:  doc.StateTable,
	}

	for i := range scpd.StateTable {
		normalizeStateVariable(&scpd.StateTable[i])
	}

	seen := make(map[string]bool, len(scpd.Actions))
	for i := range scpd.Actions {
		action := &scpd.Actions[i]
		action.Name = strings.TrimSpace(action.Name)
		if action.Name == "" {
			return nil, transport.NewParseError(fmt.Sprintf("action #%d has no name", i+1), nil)
		}
		if seen[action.Name] {
			return nil, transport.NewParseError(fmt.Sprintf("duplicate action %q", action.Name), nil)
		}
		seen[action.Name] = true

		for j := range action.Arguments {
			normalizeArgument(&action.Arguments[j])
		}
	}

	return scpd, nil
}

// BaseURL returns the base for resolving service URLs: URLBase when the
// description carries one, otherwise the directory of the LOCATION it was
// fetched from.
func (d *DeviceDescription) BaseURL(location string) string {
	if d.URLBase != "" {
		return d.URLBase
	}
	return urls.BaseFromLocation(location)
}

// ResolveURL resolves a serviceList URL. With URLBase present it is joined
// by urls.Build; without, it is resolved against location.
func (d *DeviceDescription) ResolveURL(location, ref string) string {
	if d.URLBase != "" {
		return urls.Build(d.URLBase, ref)
	}
	return urls.ResolveReference(location, ref)
}

func trimVersion(v SpecVersion) SpecVersion {
	return SpecVersion{
		Major: strings.TrimSpace(v.Major),
		Minor: strings.TrimSpace(v.Minor),
	}
}

func normalizeDevice(dev *Device) {
	dev.DeviceType = strings.TrimSpace(dev.DeviceType)
	dev.FriendlyName = strings.TrimSpace(dev.FriendlyName)
	dev.Manufacturer = strings.TrimSpace(dev.Manufacturer)
	dev.ModelName = strings.TrimSpace(dev.ModelName)
	dev.ModelNumber = strings.TrimSpace(dev.ModelNumber)
	dev.SerialNumber = strings.TrimSpace(dev.SerialNumber)
	dev.UDN = strings.TrimSpace(dev.UDN)

	for i := range dev.Services {
		s := &dev.Services[i]
		s.ServiceType = strings.TrimSpace(s.ServiceType)
		s.ServiceID = strings.TrimSpace(s.ServiceID)
		s.SCPDURL = strings.TrimSpace(s.SCPDURL)
		s.ControlURL = strings.TrimSpace(s.ControlURL)
		s.EventSubURL = strings.TrimSpace(s.EventSubURL)
	}
}

func normalizeArgument(arg *Argument) {
	arg.Name = strings.TrimSpace(arg.Name)
	arg.Direction = Direction(strings.ToLower(strings.TrimSpace(string(arg.Direction))))
	arg.RelatedStateVariable = strings.TrimSpace(arg.RelatedStateVariable)
}

func normalizeStateVariable(sv *StateVariable) {
	sv.Name = strings.TrimSpace(sv.Name)
	sv.DataType = strings.TrimSpace(sv.DataType)
	sv.SendEvents = strings.TrimSpace(sv.SendEvents)
	for i := range sv.AllowedValues {
		sv.AllowedValues[i] = strings.TrimSpace(sv.AllowedValues[i])
	}
}
