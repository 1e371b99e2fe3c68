// Package cdi turns CrystalDiskInfo text exports into structured records,
// persists them as snapshots and evaluates SMART pass/fail criteria between them.
package cdi

import (
	"fmt"
	"strings"
)

// Raw hex dump sections captured per disk
const (
	SectionIdentifyDevice     = "IDENTIFY_DEVICE"
	SectionSmartReadData      = "SMART_READ_DATA"
	SectionSmartReadThreshold = "SMART_READ_THRESHOLD"
)

// JSON keys of a persisted disk entry
const (
	keyDiskNum         = "DiskNum"
	keyModel           = "Model"
	keyDiskSize        = "Disk Size"
	keyPhysicalDriveID = "Physical Drive ID"
	keySmart           = "S.M.A.R.T."

	// KeyDriveLetter is the drive-data key matched by drive selectors
	KeyDriveLetter = "Drive Letter"
)

// Record is the parsed representation of one disk-health export
type Record struct {
	ToolVersion string
	OSVersion   string
	Controllers []StorageController
	Disks       []DiskEntry

	// Source is the file the record was read from, used in error messages only
	Source string
}

// StorageController lists the disks attached to one storage controller
type StorageController struct {
	Name  string
	Disks []string
}

// DiskEntry holds everything parsed for one physical disk
type DiskEntry struct {
	Ordinal         string
	Model           string
	SizeLabel       string
	PhysicalDriveID string

	// Attributes holds the free-form "key : value" drive-data lines
	Attributes map[string]string

	// Smart is nil until a S.M.A.R.T. section was seen for this disk
	Smart []SmartAttribute

	// Sections holds concatenated hex dumps keyed by section name
	Sections map[string]string
}

// SmartAttribute is one SMART row.
// Fields are declared in JSON key order so encoded rows are key-sorted.
type SmartAttribute struct {
	Name      string  `json:"Attribute Name"`
	Current   *string `json:"Cur,omitempty"`
	ID        string  `json:"ID"`
	RawValue  string  `json:"RawValues"`
	Threshold *string `json:"Thr,omitempty"`
	Worst     *string `json:"Wor,omitempty"`
}

func newDiskEntry(ordinal, model, size, phyID string) DiskEntry {
	return DiskEntry{
		Ordinal:         ordinal,
		Model:           model,
		SizeLabel:       size,
		PhysicalDriveID: phyID,
		Attributes:      make(map[string]string),
		Sections:        make(map[string]string),
	}
}

func isReservedKey(key string) bool {
	switch key {
	case keySmart, SectionIdentifyDevice, SectionSmartReadData, SectionSmartReadThreshold:
		return true
	}
	return false
}

// Set stores a drive-data value. The disk-list keys (DiskNum, Model, Disk Size,
// Physical Drive ID) overwrite the matching fields; structural keys are ignored.
func (d *DiskEntry) Set(key, value string) {
	switch key {
	case keyDiskNum:
		d.Ordinal = value
	case keyModel:
		d.Model = value
	case keyDiskSize:
		d.SizeLabel = value
	case keyPhysicalDriveID:
		d.PhysicalDriveID = value
	default:
		if isReservedKey(key) {
			return
		}
		if d.Attributes == nil {
			d.Attributes = make(map[string]string)
		}
		d.Attributes[key] = value
	}
}

// Get returns a field by its persisted JSON key
func (d *DiskEntry) Get(key string) (string, bool) {
	switch key {
	case keyDiskNum:
		return d.Ordinal, true
	case keyModel:
		return d.Model, true
	case keyDiskSize:
		return d.SizeLabel, true
	case keyPhysicalDriveID:
		return d.PhysicalDriveID, true
	case SectionIdentifyDevice, SectionSmartReadData, SectionSmartReadThreshold:
		v, ok := d.Sections[key]
		return v, ok
	}
	v, ok := d.Attributes[key]
	return v, ok
}

// DriveLetter returns the "Drive Letter" drive-data value, if any
func (d *DiskEntry) DriveLetter() string {
	return d.Attributes[KeyDriveLetter]
}

// Attribute returns the first SMART row with the given attribute name
func (d *DiskEntry) Attribute(name string) (SmartAttribute, bool) {
	for _, attr := range d.Smart {
		if attr.Name == name {
			return attr, true
		}
	}
	return SmartAttribute{}, false
}

// FindDisk returns the first disk whose drive letter contains selector
func (r *Record) FindDisk(selector string) (*DiskEntry, error) {
	for i := range r.Disks {
		if strings.Contains(r.Disks[i].DriveLetter(), selector) {
			return &r.Disks[i], nil
		}
	}
	return nil, &DriveNotFoundError{Selector: selector, Source: r.Source}
}

// DriveInfo returns one field of the disk matched by selector, e.g.
// DriveInfo("C:", "Serial Number")
func (r *Record) DriveInfo(selector, key string) (string, error) {
	disk, err := r.FindDisk(selector)
	if err != nil {
		return "", err
	}
	v, ok := disk.Get(key)
	if !ok {
		return "", fmt.Errorf("drive %q has no field %q", selector, key)
	}
	return v, nil
}

// ControllerDisks returns the disks of the named controller
func (r *Record) ControllerDisks(name string) ([]string, bool) {
	for _, c := range r.Controllers {
		if c.Name == name {
			return c.Disks, true
		}
	}
	return nil, false
}
