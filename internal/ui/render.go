package ui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/muurk/upnpcp/internal/controlpoint"
	"github.com/muurk/upnpcp/internal/description"
	"github.com/muurk/upnpcp/internal/transport"
)

// NameFunc maps a device UDN to a display name, falling back to the given name
type NameFunc func(udn, fallback string) string

// RenderDevices renders one block per discovered device.
// namer may be nil.
func RenderDevices(devices []*controlpoint.Device, namer NameFunc) string {
	if len(devices) == 0 {
		return MutedStyle.Render("  No devices found")
	}

	var b strings.Builder
	for i, dev := range devices {
		if i > 0 {
			b.WriteString("\n")
		}

		name := dev.FriendlyName()
		if name == "" {
			name = dev.Location
		}
		if namer != nil {
			name = namer(dev.UDN(), name)
		}

		marker := SuccessMarker
		if dev.Err != nil {
			marker = FailureMarker
		}

		b.WriteString(fmt.Sprintf("  %s %s\n", marker, NameStyle.Render(name)))
		if udn := dev.UDN(); udn != "" {
			b.WriteString("    " + MutedStyle.Render(udn) + "\n")
		}
		if dev.Description != nil && dev.Description.Device.DeviceType != "" {
			b.WriteString("    " + dev.Description.Device.DeviceType + "\n")
		}
		b.WriteString("    " + MutedStyle.Render(dev.Location) + "\n")
		if dev.Err != nil {
			b.WriteString("    " + ErrorMessageStyle.Render(transport.GetShortErrorMessage(dev.Err)) + "\n")
		}
	}

	return strings.TrimRight(b.String(), "\n")
}

// RenderServices renders one line per service with its state and action count
func RenderServices(services []*controlpoint.Service) string {
	if len(services) == 0 {
		return MutedStyle.Render("  No services")
	}

	lines := make([]string, 0, len(services))
	for _, svc := range services {
		var marker, note string
		switch svc.State() {
		case controlpoint.StateBound:
			marker = SuccessMarker
			note = fmt.Sprintf("%d actions", len(svc.ActionNames()))
		case controlpoint.StateFailed:
			marker = FailureMarker
			note = transport.GetShortErrorMessage(svc.Err())
		default:
			marker = StepMarkerPending
			note = svc.State().String()
		}

		lines = append(lines, fmt.Sprintf("  %s %-28s %s  %s",
			marker,
			NameStyle.Render(description.ShortServiceType(svc.ServiceType)),
			MutedStyle.Render(svc.ServiceID),
			StepNoteStyle.Render("("+note+")"),
		))
	}

	return strings.Join(lines, "\n")
}

// RenderActions renders each action of a bound service with its arguments
// and their data types.
func RenderActions(svc *controlpoint.Service) string {
	names := svc.ActionNames()
	if len(names) == 0 {
		return MutedStyle.Render("  No actions")
	}

	var b strings.Builder
	for _, name := range names {
		action, _ := svc.ActionDefinition(name)
		b.WriteString("  " + NameStyle.Render(action.Name) + "\n")

		for _, arg := range action.Arguments {
			marker := InMarker
			if arg.Direction == description.DirectionOut {
				marker = OutMarker
			}

			dataType := "?"
			if sv, ok := svc.StateVariable(arg.RelatedStateVariable); ok && sv.DataType != "" {
				dataType = sv.DataType
			}

			line := fmt.Sprintf("    %s %s %s", marker, arg.Name, MutedStyle.Render(dataType))
			if sv, ok := svc.StateVariable(arg.RelatedStateVariable); ok && len(sv.AllowedValues) > 0 {
				line += " " + StepNoteStyle.Render("["+strings.Join(sv.AllowedValues, "|")+"]")
			}
			b.WriteString(line + "\n")
		}
	}

	return strings.TrimRight(b.String(), "\n")
}

// RenderValues renders an action result map sorted by key
func RenderValues(values map[string]any) string {
	if len(values) == 0 {
		return MutedStyle.Render("  (no output values)")
	}

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, "  "+ResultKeyStyle.Render(k)+" "+
			ResultValueStyle.Render(fmt.Sprintf("%v", values[k]))+
			" "+MutedStyle.Render(fmt.Sprintf("(%T)", values[k])))
	}

	return strings.Join(lines, "\n")
}
