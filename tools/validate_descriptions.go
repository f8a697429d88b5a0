//go:build ignore

package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/muurk/upnpcp/internal/coerce"
	"github.com/muurk/upnpcp/internal/description"
)

// Statistics tracks parsing results
type Statistics struct {
	TotalFiles     int
	Devices        int
	SCPDs          int
	Actions        int
	ParseFailure   int
	DataTypes      map[string]int
	UnknownTypes   map[string]int
	FailedFiles    []FailedFile
	MissingStateRV []string // "file: action/argument -> variable"
}

// FailedFile stores information about parsing failures
type FailedFile struct {
	File  string
	Error string
}

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: validate_descriptions <directory-or-file>")
		fmt.Println("Example: validate_descriptions captures/")
		fmt.Println("         validate_descriptions captures/RenderingControl.xml")
		os.Exit(1)
	}

	path := os.Args[1]

	stats := Statistics{
		DataTypes:    make(map[string]int),
		UnknownTypes: make(map[string]int),
	}

	info, err := os.Stat(path)
	if err != nil {
		fmt.Printf("Error accessing path: %v\n", err)
		os.Exit(1)
	}

	var files []string
	if info.IsDir() {
		files, err = filepath.Glob(filepath.Join(path, "*.xml"))
		if err != nil {
			fmt.Printf("Error finding XML files: %v\n", err)
			os.Exit(1)
		}
		if len(files) == 0 {
			fmt.Printf("No XML files found in %s\n", path)
			os.Exit(1)
		}
	} else {
		files = []string{path}
	}

	fmt.Printf("=== UPnP Description Validator ===\n")
	fmt.Printf("Files to process: %d\n\n", len(files))

	for _, file := range files {
		processFile(file, &stats)
	}

	printStatistics(&stats)

	if stats.ParseFailure > 0 {
		os.Exit(1)
	}
}

func processFile(filename string, stats *Statistics) {
	stats.TotalFiles++

	data, err := os.ReadFile(filename)
	if err != nil {
		fmt.Printf("Error reading file %s: %v\n", filename, err)
		return
	}

	// The root element decides which parser applies
	if bytes.Contains(data, []byte("<scpd")) {
		processSCPD(filename, data, stats)
		return
	}

	desc, err := description.ParseDeviceDescription(data)
	if err != nil {
		stats.ParseFailure++
		stats.FailedFiles = append(stats.FailedFiles, FailedFile{File: filename, Error: err.Error()})
		return
	}

	stats.Devices += len(desc.AllDevices())
	fmt.Printf("%s: %q, %d device(s), %d service(s)\n",
		filepath.Base(filename), desc.Device.FriendlyName, len(desc.AllDevices()), len(desc.AllServices()))
}

func processSCPD(filename string, data []byte, stats *Statistics) {
	scpd, err := description.ParseSCPD(data)
	if err != nil {
		stats.ParseFailure++
		stats.FailedFiles = append(stats.FailedFiles, FailedFile{File: filename, Error: err.Error()})
		return
	}

	stats.SCPDs++
	stats.Actions += len(scpd.Actions)

	for _, sv := range scpd.StateTable {
		stats.DataTypes[sv.DataType]++
		if coerce.KindOf(sv.DataType) == coerce.KindUnknown {
			stats.UnknownTypes[sv.DataType]++
		}
	}

	// Out-arguments whose state variable is missing are dropped at call time
	for _, action := range scpd.Actions {
		for _, arg := range action.Arguments {
			if scpd.StateVariable(arg.RelatedStateVariable) == nil {
				stats.MissingStateRV = append(stats.MissingStateRV,
					fmt.Sprintf("%s: %s/%s -> %q", filepath.Base(filename), action.Name, arg.Name, arg.RelatedStateVariable))
			}
		}
	}

	fmt.Printf("%s: spec %s, %d action(s), %d state variable(s)\n",
		filepath.Base(filename), scpd.SpecVersion, len(scpd.Actions), len(scpd.StateTable))
}

func printStatistics(stats *Statistics) {
	fmt.Printf("\n=== Results ===\n")
	fmt.Printf("Files:           %d\n", stats.TotalFiles)
	fmt.Printf("Devices:         %d\n", stats.Devices)
	fmt.Printf("Service docs:    %d\n", stats.SCPDs)
	fmt.Printf("Actions:         %d\n", stats.Actions)
	fmt.Printf("Parse failures:  %d\n", stats.ParseFailure)

	if len(stats.DataTypes) > 0 {
		fmt.Printf("\nData types:\n")
		for _, dt := range sortedKeys(stats.DataTypes) {
			marker := ""
			if stats.UnknownTypes[dt] > 0 {
				marker = "  (returned as string)"
			}
			fmt.Printf("  %-14s %5d%s\n", dt, stats.DataTypes[dt], marker)
		}
	}

	if len(stats.MissingStateRV) > 0 {
		fmt.Printf("\nArguments with undeclared state variables:\n")
		for _, m := range stats.MissingStateRV {
			fmt.Printf("  %s\n", m)
		}
	}

	if len(stats.FailedFiles) > 0 {
		fmt.Printf("\nFailures:\n")
		for _, f := range stats.FailedFiles {
			fmt.Printf("  %s: %s\n", f.File, f.Error)
		}
	}
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
