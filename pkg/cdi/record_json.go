package cdi

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// MarshalJSON encodes the record in the persisted snapshot layout. Keys are
// sorted everywhere except inside controllers_disks, which keeps document order.
func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(`{"CDI":`)
	if err := writeVersion(&buf, r.ToolVersion); err != nil {
		return nil, err
	}
	buf.WriteString(`,"OS":`)
	if err := writeVersion(&buf, r.OSVersion); err != nil {
		return nil, err
	}

	buf.WriteString(`,"controllers_disks":{`)
	for i, c := range r.Controllers {
		if i > 0 {
			buf.WriteByte(',')
		}
		name, err := json.Marshal(c.Name)
		if err != nil {
			return nil, err
		}
		disks := c.Disks
		if disks == nil {
			disks = []string{}
		}
		list, err := json.Marshal(disks)
		if err != nil {
			return nil, err
		}
		buf.Write(name)
		buf.WriteByte(':')
		buf.Write(list)
	}
	buf.WriteString(`},"disks":`)

	disks := r.Disks
	if disks == nil {
		disks = []DiskEntry{}
	}
	encoded, err := json.Marshal(disks)
	if err != nil {
		return nil, err
	}
	buf.Write(encoded)
	buf.WriteByte('}')

	return buf.Bytes(), nil
}

func writeVersion(buf *bytes.Buffer, version string) error {
	obj := map[string]string{}
	if version != "" {
		obj["version"] = version
	}
	data, err := json.Marshal(obj)
	if err != nil {
		return err
	}
	buf.Write(data)
	return nil
}

// UnmarshalJSON decodes a persisted snapshot
func (r *Record) UnmarshalJSON(data []byte) error {
	var raw struct {
		CDI         map[string]string `json:"CDI"`
		OS          map[string]string `json:"OS"`
		Controllers json.RawMessage   `json:"controllers_disks"`
		Disks       []DiskEntry       `json:"disks"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	controllers, err := decodeControllers(raw.Controllers)
	if err != nil {
		return fmt.Errorf("controllers_disks: %w", err)
	}

	r.ToolVersion = raw.CDI["version"]
	r.OSVersion = raw.OS["version"]
	r.Controllers = controllers
	r.Disks = raw.Disks
	if len(r.Disks) == 0 {
		r.Disks = nil
	}
	return nil
}

// decodeControllers reads the controller object token by token so member
// order survives the round trip.
func decodeControllers(data json.RawMessage) ([]StorageController, error) {
	if len(data) == 0 || string(data) == "null" {
		return nil, nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("expected object, got %v", tok)
	}

	var controllers []StorageController
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		name, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("expected controller name, got %v", tok)
		}
		disks := []string{}
		if err := dec.Decode(&disks); err != nil {
			return nil, fmt.Errorf("controller %q: %w", name, err)
		}
		if disks == nil {
			disks = []string{}
		}
		controllers = append(controllers, StorageController{Name: name, Disks: disks})
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return controllers, nil
}

// MarshalJSON flattens the disk into a single key-sorted object
func (d DiskEntry) MarshalJSON() ([]byte, error) {
	obj := make(map[string]interface{}, len(d.Attributes)+len(d.Sections)+5)
	for k, v := range d.Attributes {
		obj[k] = v
	}
	for k, v := range d.Sections {
		obj[k] = v
	}
	obj[keyDiskNum] = d.Ordinal
	obj[keyModel] = d.Model
	obj[keyDiskSize] = d.SizeLabel
	obj[keyPhysicalDriveID] = d.PhysicalDriveID
	if d.Smart != nil {
		obj[keySmart] = d.Smart
	}
	return json.Marshal(obj)
}

// UnmarshalJSON splits a flat disk object back into fixed fields,
// SMART rows, hex sections and free-form attributes
func (d *DiskEntry) UnmarshalJSON(data []byte) error {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}

	*d = newDiskEntry("", "", "", "")
	for key, value := range obj {
		if key == keySmart {
			attrs := []SmartAttribute{}
			if err := json.Unmarshal(value, &attrs); err != nil {
				return fmt.Errorf("%s: %w", keySmart, err)
			}
			if attrs == nil {
				attrs = []SmartAttribute{}
			}
			d.Smart = attrs
			continue
		}

		var s string
		if err := json.Unmarshal(value, &s); err != nil {
			return fmt.Errorf("disk field %q: %w", key, err)
		}

		switch key {
		case SectionIdentifyDevice, SectionSmartReadData, SectionSmartReadThreshold:
			d.Sections[key] = s
		default:
			d.Set(key, s)
		}
	}
	return nil
}
