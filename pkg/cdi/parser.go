package cdi

import (
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strconv"
	"strings"
)

// readMode is the section of the report the scanner is currently in
type readMode int

const (
	modeStart readMode = iota
	modeControllerMap
	modeDiskList
	modeDriveData
	modeSmart
	modeIdentify
	modeSmartReadData
	modeSmartReadThreshold
)

// sectionHeaders switch the scanner mode; checked before anything else on every line
var sectionHeaders = []struct {
	prefix string
	mode   readMode
}{
	{"-- Controller Map", modeControllerMap},
	{"-- Disk List", modeDiskList},
	{"-- S.M.A.R.T. ", modeSmart},
	{"-- IDENTIFY_DEVICE ", modeIdentify},
	{"-- SMART_READ_DATA ", modeSmartReadData},
	{"-- SMART_READ_THRESHOLD ", modeSmartReadThreshold},
}

var hexSections = map[readMode]string{
	modeIdentify:           SectionIdentifyDevice,
	modeSmartReadData:      SectionSmartReadData,
	modeSmartReadThreshold: SectionSmartReadThreshold,
}

var (
	versionPattern     = regexp.MustCompile(`^CrystalDiskInfo (\d+\.\d+\.\d+)`)
	osPattern          = regexp.MustCompile(`^    OS : (.*)$`)
	diskListPattern    = regexp.MustCompile(`^ \((\d+)\) (.*) : (.*) \[(.*)/\d+/.*$`)
	driveHeaderPattern = regexp.MustCompile(`^ \((\d+)\) (.*)$`)
	sataSmartPattern   = regexp.MustCompile(`^([A-F0-9]{2}) _*(\d*) _*(\d*) _*(\d*) ([A-F0-9]{12}) (.*)$`)
	nvmeSmartPattern   = regexp.MustCompile(`^([A-F0-9]{2}) ([A-F0-9]{12}) (.*)$`)
)

const (
	controllerPrefix     = " + "
	controllerDiskPrefix = "   - "
	diskListTerminator   = "-----------------"
	hexHeaderIndent      = "    "
)

// Parser converts CrystalDiskInfo plaintext exports into Records.
// The zero value is ready to use and never fails on content.
type Parser struct {
	// Strict makes Parse fail with ErrNoDisks when the report lists no disks
	Strict bool
	Logger *slog.Logger
}

// ParseText parses a report permissively
func ParseText(text string) *Record {
	return scan(text)
}

// ParseFile reads and parses a report file
func ParseFile(path string) (*Record, error) {
	return Parser{}.ParseFile(path)
}

// ParseAndPersist parses text and writes the record as JSON to jsonPath
func ParseAndPersist(text, jsonPath string) (*Record, error) {
	return Parser{}.ParseAndPersist(text, jsonPath)
}

// Parse parses one report
func (p Parser) Parse(text string) (*Record, error) {
	rec := scan(text)
	if p.Strict && len(rec.Disks) == 0 {
		return nil, ErrNoDisks
	}
	p.logger().Debug("parsed report",
		"tool_version", rec.ToolVersion,
		"controllers", len(rec.Controllers),
		"disks", len(rec.Disks))
	return rec, nil
}

// ParseFile reads path and parses it. A missing file surfaces the os error unchanged.
func (p Parser) ParseFile(path string) (*Record, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- report path comes from configuration
	if err != nil {
		return nil, err
	}
	rec, err := p.Parse(string(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	rec.Source = path
	return rec, nil
}

// ParseAndPersist parses text and writes the record to jsonPath,
// creating parent directories as needed
func (p Parser) ParseAndPersist(text, jsonPath string) (*Record, error) {
	rec, err := p.Parse(text)
	if err != nil {
		return nil, err
	}
	if err := WriteRecord(jsonPath, rec); err != nil {
		return nil, err
	}
	p.logger().Info("snapshot written", "path", jsonPath, "disks", len(rec.Disks))
	return rec, nil
}

// ParseFileAndPersist parses txtPath and writes the record to jsonPath
func (p Parser) ParseFileAndPersist(txtPath, jsonPath string) (*Record, error) {
	rec, err := p.ParseFile(txtPath)
	if err != nil {
		return nil, err
	}
	if err := WriteRecord(jsonPath, rec); err != nil {
		return nil, err
	}
	p.logger().Info("snapshot written", "source", txtPath, "path", jsonPath, "disks", len(rec.Disks))
	return rec, nil
}

func (p Parser) logger() *slog.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return slog.Default()
}

// scanState is the cursor threaded through one scan
type scanState struct {
	rec        *Record
	mode       readMode
	diskIndex  string
	controller int
}

// disk returns the entry addressed by the current drive header, or nil when
// no header was seen or it points past the disk list
func (s *scanState) disk() *DiskEntry {
	if s.diskIndex == "" {
		return nil
	}
	n, err := strconv.Atoi(s.diskIndex)
	if err != nil || n < 1 || n > len(s.rec.Disks) {
		return nil
	}
	return &s.rec.Disks[n-1]
}

func scan(text string) *Record {
	s := &scanState{rec: &Record{}, mode: modeStart, controller: -1}

	text = strings.TrimPrefix(text, "\ufeff")
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	for _, line := range strings.Split(text, "\n") {
		if line == "" {
			continue
		}
		s.line(line)
	}
	return s.rec
}

func (s *scanState) line(line string) {
	for _, h := range sectionHeaders {
		if strings.HasPrefix(line, h.prefix) {
			s.mode = h.mode
			return
		}
	}

	if m := versionPattern.FindStringSubmatch(line); m != nil {
		s.rec.ToolVersion = m[1]
		return
	}
	if m := osPattern.FindStringSubmatch(line); m != nil {
		s.rec.OSVersion = m[1]
		return
	}

	switch s.mode {
	case modeControllerMap:
		s.controllerLine(line)
		return
	case modeDiskList:
		if m := diskListPattern.FindStringSubmatch(line); m != nil {
			s.rec.Disks = append(s.rec.Disks, newDiskEntry(m[1], m[2], m[3], m[4]))
		} else if strings.HasPrefix(line, diskListTerminator) {
			s.mode = modeDriveData
		}
		return
	}

	if m := driveHeaderPattern.FindStringSubmatch(line); m != nil {
		s.mode = modeDriveData
		s.diskIndex = m[1]
		return
	}

	switch s.mode {
	case modeDriveData:
		parts := strings.Split(line, " : ")
		if len(parts) < 2 {
			return
		}
		if disk := s.disk(); disk != nil {
			disk.Set(strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1]))
		}
	case modeSmart:
		s.smartLine(line)
	case modeIdentify, modeSmartReadData, modeSmartReadThreshold:
		s.hexLine(hexSections[s.mode], line)
	}
}

func (s *scanState) controllerLine(line string) {
	switch {
	case strings.HasPrefix(line, controllerPrefix):
		name := line[len(controllerPrefix):]
		for i := range s.rec.Controllers {
			if s.rec.Controllers[i].Name == name {
				s.rec.Controllers[i].Disks = []string{}
				s.controller = i
				return
			}
		}
		s.rec.Controllers = append(s.rec.Controllers, StorageController{Name: name, Disks: []string{}})
		s.controller = len(s.rec.Controllers) - 1
	case strings.HasPrefix(line, controllerDiskPrefix):
		if s.controller < 0 {
			return
		}
		c := &s.rec.Controllers[s.controller]
		c.Disks = append(c.Disks, line[len(controllerDiskPrefix):])
	}
}

func (s *scanState) smartLine(line string) {
	disk := s.disk()
	if disk == nil {
		return
	}
	if disk.Smart == nil {
		disk.Smart = []SmartAttribute{}
	}

	if m := sataSmartPattern.FindStringSubmatch(line); m != nil {
		cur, wor, thr := m[2], m[3], m[4]
		disk.Smart = append(disk.Smart, SmartAttribute{
			ID:        m[1],
			Current:   &cur,
			Worst:     &wor,
			Threshold: &thr,
			RawValue:  m[5],
			Name:      m[6],
		})
		return
	}
	if m := nvmeSmartPattern.FindStringSubmatch(line); m != nil {
		disk.Smart = append(disk.Smart, SmartAttribute{
			ID:       m[1],
			RawValue: m[2],
			Name:     m[3],
		})
	}
}

// hexLine appends one dump row, dropping its leading offset label
func (s *scanState) hexLine(section, line string) {
	disk := s.disk()
	if disk == nil || strings.HasPrefix(line, hexHeaderIndent) {
		return
	}
	tokens := strings.Split(line, " ")
	if disk.Sections == nil {
		disk.Sections = make(map[string]string)
	}
	disk.Sections[section] += strings.Join(tokens[1:], "")
}
