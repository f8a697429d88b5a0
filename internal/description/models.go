package description

import "strings"

// SpecVersion is the UPnP architecture version a document declares
type SpecVersion struct {
	Major string `xml:"major" json:"major"`
	Minor string `xml:"minor" json:"minor"`
}

// String returns "major.minor", or "" when the document carried no version
func (v SpecVersion) String() string {
	if v.Major == "" && v.Minor == "" {
		return ""
	}
	return v.Major + "." + v.Minor
}

// DeviceDescription is a parsed device description document (<root>)
type DeviceDescription struct {
	SpecVersion SpecVersion `json:"spec_version"`
	URLBase     string      `json:"url_base,omitempty"` // Deprecated in UPnP 1.1 but still common
	Device      Device      `json:"device"`
}

// Device is a root or embedded device entry
type Device struct {
	DeviceType       string            `xml:"deviceType" json:"device_type"`
	FriendlyName     string            `xml:"friendlyName" json:"friendly_name"`
	Manufacturer     string            `xml:"manufacturer" json:"manufacturer,omitempty"`
	ManufacturerURL  string            `xml:"manufacturerURL" json:"manufacturer_url,omitempty"`
	ModelDescription string            `xml:"modelDescription" json:"model_description,omitempty"`
	ModelName        string            `xml:"modelName" json:"model_name,omitempty"`
	ModelNumber      string            `xml:"modelNumber" json:"model_number,omitempty"`
	SerialNumber     string            `xml:"serialNumber" json:"serial_number,omitempty"`
	UDN              string            `xml:"UDN" json:"udn"`
	PresentationURL  string            `xml:"presentationURL" json:"presentation_url,omitempty"`
	Services         []ServiceListInfo `xml:"serviceList>service" json:"services,omitempty"`
	Devices          []Device          `xml:"deviceList>device" json:"devices,omitempty"`
}

// ServiceListInfo is the per-service fragment of a device's serviceList.
// URLs are as published by the device: usually relative to the base URL.
type ServiceListInfo struct {
	ServiceType string `xml:"serviceType" json:"service_type"`
	ServiceID   string `xml:"serviceId" json:"service_id"`
	SCPDURL     string `xml:"SCPDURL" json:"scpd_url"`
	ControlURL  string `xml:"controlURL" json:"control_url"`
	EventSubURL string `xml:"eventSubURL" json:"event_sub_url"`
}

// Direction of an action argument
type Direction string

const (
	DirectionIn  Direction = "in"
	DirectionOut Direction = "out"
)

// SCPD is a parsed service control protocol description
type SCPD struct {
	SpecVersion SpecVersion     `json:"spec_version"`
	Actions     []Action        `json:"actions"`
	StateTable  []StateVariable `json:"state_table"`
}

// Action is one remotely invocable operation
type Action struct {
	Name      string     `xml:"name" json:"name"`
	Arguments []Argument `xml:"argumentList>argument" json:"arguments,omitempty"`
}

// Argument is one declared action argument
type Argument struct {
	Name                 string    `xml:"name" json:"name"`
	Direction            Direction `xml:"direction" json:"direction"`
	RelatedStateVariable string    `xml:"relatedStateVariable" json:"related_state_variable"`
}

// StateVariable is one entry of a service's serviceStateTable
type StateVariable struct {
	Name          string        `xml:"name" json:"name"`
	DataType      string        `xml:"dataType" json:"data_type"`
	SendEvents    string        `xml:"sendEvents,attr" json:"send_events,omitempty"`
	DefaultValue  string        `xml:"defaultValue" json:"default_value,omitempty"`
	AllowedValues []string      `xml:"allowedValueList>allowedValue" json:"allowed_values,omitempty"`
	AllowedRange  *AllowedRange `xml:"allowedValueRange" json:"allowed_range,omitempty"`
}

// AllowedRange is a stateVariable's allowedValueRange
type AllowedRange struct {
	Minimum string `xml:"minimum" json:"minimum"`
	Maximum string `xml:"maximum" json:"maximum"`
	Step    string `xml:"step" json:"step,omitempty"`
}

// InArguments returns the arguments with direction "in", in declaration order
func (a *Action) InArguments() []Argument {
	return a.argumentsWithDirection(DirectionIn)
}

// OutArguments returns the arguments with direction "out", in declaration order
func (a *Action) OutArguments() []Argument {
	return a.argumentsWithDirection(DirectionOut)
}

func (a *Action) argumentsWithDirection(dir Direction) []Argument {
	var args []Argument
	for _, arg := range a.Arguments {
		if arg.Direction == dir {
			args = append(args, arg)
		}
	}
	return args
}

// Action looks up an action by name
func (s *SCPD) Action(name string) *Action {
	for i := range s.Actions {
		if s.Actions[i].Name == name {
			return &s.Actions[i]
		}
	}
	return nil
}

// StateVariable looks up a state variable by name
func (s *SCPD) StateVariable(name string) *StateVariable {
	for i := range s.StateTable {
		if s.StateTable[i].Name == name {
			return &s.StateTable[i]
		}
	}
	return nil
}

// AllServices returns the services of the root device followed by those of
// every embedded device, depth-first in document order.
func (d *DeviceDescription) AllServices() []ServiceListInfo {
	var services []ServiceListInfo
	d.Device.walk(func(dev *Device) {
		services = append(services, dev.Services...)
	})
	return services
}

// AllDevices returns the root device and every embedded device, depth-first
func (d *DeviceDescription) AllDevices() []*Device {
	var devices []*Device
	d.Device.walk(func(dev *Device) {
		devices = append(devices, dev)
	})
	return devices
}

func (dev *Device) walk(fn func(*Device)) {
	fn(dev)
	for i := range dev.Devices {
		dev.Devices[i].walk(fn)
	}
}

// ShortServiceType strips the "urn:...:service:" prefix: "ContentDirectory:1"
func ShortServiceType(serviceType string) string {
	if idx := strings.Index(serviceType, ":service:"); idx >= 0 {
		return serviceType[idx+len(":service:"):]
	}
	return serviceType
}
