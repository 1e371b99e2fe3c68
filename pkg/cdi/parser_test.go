package cdi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadFixture(t *testing.T) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", "DiskInfo.txt"))
	require.NoError(t, err)
	return string(data)
}

const minimalReport = `CrystalDiskInfo 9.0.0
-- Controller Map ----------------------------------------------------------
 + NVMe Controller
   - Model X
-- Disk List ---------------------------------------------------------------
 (1) Model X : 500.0 GB [0/0/0, pd1]
-----------------
 (1) Model X
    Drive Letter : C:
-- S.M.A.R.T. --------------------------------------------------------------
01 000000000005 Power Cycles
`

func TestParseMinimalReport(t *testing.T) {
	rec := ParseText(minimalReport)

	assert.Equal(t, "9.0.0", rec.ToolVersion)
	require.Len(t, rec.Disks, 1)
	disk := rec.Disks[0]
	assert.Equal(t, "1", disk.Ordinal)
	assert.Equal(t, "Model X", disk.Model)
	assert.Equal(t, "500.0 GB", disk.SizeLabel)
	assert.Equal(t, "0", disk.PhysicalDriveID)

	require.Len(t, disk.Smart, 1)
	assert.Equal(t, SmartAttribute{ID: "01", RawValue: "000000000005", Name: "Power Cycles"}, disk.Smart[0])

	require.Len(t, rec.Controllers, 1)
	assert.Equal(t, StorageController{Name: "NVMe Controller", Disks: []string{"Model X"}}, rec.Controllers[0])
}

func TestParseFixture(t *testing.T) {
	rec := ParseText(loadFixture(t))

	assert.Equal(t, "9.0.0", rec.ToolVersion)
	assert.Equal(t, "Windows 11 Professional [10.0 Build 22631] (x64)", rec.OSVersion)

	require.Len(t, rec.Controllers, 3)
	assert.Equal(t, "Standard NVM Express Controller [SCSI]", rec.Controllers[0].Name)
	assert.Equal(t, []string{"Samsung SSD 980 PRO 1TB"}, rec.Controllers[0].Disks)
	assert.Equal(t, []string{"CT500MX500SSD1"}, rec.Controllers[1].Disks)
	assert.Empty(t, rec.Controllers[2].Disks)
	assert.NotNil(t, rec.Controllers[2].Disks)

	require.Len(t, rec.Disks, 2)

	nvme := rec.Disks[0]
	assert.Equal(t, "01", nvme.Ordinal)
	assert.Equal(t, "1000.2 GB", nvme.SizeLabel)
	assert.Equal(t, "0", nvme.PhysicalDriveID)
	assert.Equal(t, "C:", nvme.DriveLetter())
	assert.Equal(t, "S5GXNX0R123456A", nvme.Attributes["Serial Number"])
	assert.Equal(t, "PCIe 4.0 x4 | PCIe 4.0 x4", nvme.Attributes["Transfer Mode"])
	require.Len(t, nvme.Smart, 7)
	assert.Nil(t, nvme.Smart[0].Current)
	assert.Equal(t, "Media and Data Integrity Errors", nvme.Smart[6].Name)
	assert.Equal(t, "4D144D14533547584E58305231323334", nvme.Sections[SectionIdentifyDevice])

	sata := rec.Disks[1]
	assert.Equal(t, "02", sata.Ordinal)
	assert.Equal(t, "1", sata.PhysicalDriveID)
	assert.Equal(t, "D: E:", sata.DriveLetter())
	require.Len(t, sata.Smart, 5, "malformed SMART line must be skipped")

	realloc := sata.Smart[1]
	assert.Equal(t, "05", realloc.ID)
	require.NotNil(t, realloc.Current)
	require.NotNil(t, realloc.Worst)
	require.NotNil(t, realloc.Threshold)
	assert.Equal(t, "100", *realloc.Current)
	assert.Equal(t, "100", *realloc.Worst)
	assert.Equal(t, "10", *realloc.Threshold)

	temp := sata.Smart[4]
	assert.Equal(t, "062", *temp.Current)
	assert.Equal(t, "052", *temp.Worst)
	assert.Equal(t, "0", *temp.Threshold)
	assert.Equal(t, "0021000E0026", temp.RawValue)

	assert.Equal(t, "1000012F006464000000000000000533", sata.Sections[SectionSmartReadData])
	assert.Equal(t, "1000010000000000", sata.Sections[SectionSmartReadThreshold])
	_, ok := sata.Sections[SectionIdentifyDevice]
	assert.False(t, ok)
}

func TestParseMalformedSmartLineSkipped(t *testing.T) {
	malformed := strings.Replace(minimalReport,
		"01 000000000005 Power Cycles\n",
		"01 000000000005 Power Cycles\nZZ not a smart row\n0C 12345 Too Short\n", 1)

	rec := ParseText(malformed)
	require.Len(t, rec.Disks, 1)
	assert.Len(t, rec.Disks[0].Smart, 1)
}

func TestParseDropsLinesWithoutDisk(t *testing.T) {
	text := `-- S.M.A.R.T. --------------------------------------------------------------
01 000000000005 Power Cycles
-- IDENTIFY_DEVICE ---------------------------------------------------------
000: 00 11 22 33
 (3) Ghost Disk
    Drive Letter : Z:
-- S.M.A.R.T. --------------------------------------------------------------
01 000000000005 Power Cycles
`
	rec := ParseText(text)
	assert.Empty(t, rec.Disks)

	_, err := Parser{Strict: true}.Parse(text)
	assert.ErrorIs(t, err, ErrNoDisks)
}

func TestParseControllerEdgeCases(t *testing.T) {
	text := `-- Controller Map ----------------------------------------------------------
   - orphan disk
 + Controller A
   - disk 1
 + Controller B
 + Controller A
   - disk 2
`
	rec := ParseText(text)
	require.Len(t, rec.Controllers, 2)
	assert.Equal(t, StorageController{Name: "Controller A", Disks: []string{"disk 2"}}, rec.Controllers[0])
	assert.Equal(t, StorageController{Name: "Controller B", Disks: []string{}}, rec.Controllers[1])
}

func TestParseLineEndings(t *testing.T) {
	crlf := "\ufeff" + strings.ReplaceAll(minimalReport, "\n", "\r\n")
	assert.Equal(t, ParseText(minimalReport), ParseText(crlf))
}

func TestParseOrdering(t *testing.T) {
	var b strings.Builder
	b.WriteString("-- Disk List ---------------------------------------------------------------\n")
	for i := 1; i <= 12; i++ {
		fmt.Fprintf(&b, " (%02d) Disk %d : 1.0 TB [%d/0/0, pd%d]\n", i, i, i, i)
	}
	b.WriteString("----------------------------------------------------------------------------\n")
	for i := 12; i >= 1; i-- {
		fmt.Fprintf(&b, " (%02d) Disk %d\n", i, i)
		fmt.Fprintf(&b, "    Drive Letter : %c:\n", 'C'+i)
		b.WriteString("-- S.M.A.R.T. --------------------------------------------------------------\n")
		fmt.Fprintf(&b, "0C %012X Power Cycles\n", i)
	}

	rec := ParseText(b.String())
	require.Len(t, rec.Disks, 12)
	for i, disk := range rec.Disks {
		assert.Equal(t, fmt.Sprintf("%02d", i+1), disk.Ordinal)
		assert.Equal(t, fmt.Sprintf("%c:", 'C'+i+1), disk.DriveLetter())
		require.Len(t, disk.Smart, 1)
		assert.Equal(t, fmt.Sprintf("%012X", i+1), disk.Smart[0].RawValue)
	}
}

func TestParseIdempotent(t *testing.T) {
	text := loadFixture(t)
	assert.Equal(t, ParseText(text), ParseText(text))
}

func TestRecordJSONRoundTrip(t *testing.T) {
	for name, text := range map[string]string{
		"fixture": loadFixture(t),
		"minimal": minimalReport,
		"empty":   "",
	} {
		t.Run(name, func(t *testing.T) {
			rec := ParseText(text)

			data, err := json.Marshal(rec)
			require.NoError(t, err)

			var decoded Record
			require.NoError(t, json.Unmarshal(data, &decoded))
			assert.Equal(t, rec, &decoded)

			again, err := json.Marshal(&decoded)
			require.NoError(t, err)
			assert.JSONEq(t, string(data), string(again))
		})
	}
}

func TestRecordJSONLayout(t *testing.T) {
	data, err := json.Marshal(ParseText(minimalReport))
	require.NoError(t, err)

	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &doc))

	assert.Equal(t, map[string]interface{}{"version": "9.0.0"}, doc["CDI"])
	assert.Equal(t, map[string]interface{}{}, doc["OS"])
	assert.Equal(t, map[string]interface{}{"NVMe Controller": []interface{}{"Model X"}}, doc["controllers_disks"])

	disks := doc["disks"].([]interface{})
	require.Len(t, disks, 1)
	disk := disks[0].(map[string]interface{})
	assert.Equal(t, "1", disk["DiskNum"])
	assert.Equal(t, "Model X", disk["Model"])
	assert.Equal(t, "500.0 GB", disk["Disk Size"])
	assert.Equal(t, "0", disk["Physical Drive ID"])
	assert.Equal(t, "C:", disk["Drive Letter"])
	assert.Equal(t, []interface{}{
		map[string]interface{}{"ID": "01", "RawValues": "000000000005", "Attribute Name": "Power Cycles"},
	}, disk["S.M.A.R.T."])
}

func TestRecordJSONControllerOrder(t *testing.T) {
	text := "-- Controller Map\n + Zeta\n   - z1\n + Alpha\n   - a1\n + Mid\n"
	data, err := json.Marshal(ParseText(text))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"controllers_disks":{"Zeta":["z1"],"Alpha":["a1"],"Mid":[]}`)
}

func TestRawValueHexProperty(t *testing.T) {
	rec := ParseText(loadFixture(t))
	for _, disk := range rec.Disks {
		for _, attr := range disk.Smart {
			v, err := RawValue(attr.RawValue)
			require.NoError(t, err, attr.Name)
			assert.GreaterOrEqual(t, v, int64(0))
			assert.Equal(t, attr.RawValue, fmt.Sprintf("%012X", v), attr.Name)
		}
	}
}

func TestParseFileMissing(t *testing.T) {
	_, err := ParseFile(filepath.Join(t.TempDir(), "missing.txt"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, fs.ErrNotExist))
}

func TestParseAndPersist(t *testing.T) {
	jsonPath := filepath.Join(t.TempDir(), "nested", "dir", "DiskInfo.json")

	rec, err := ParseAndPersist(loadFixture(t), jsonPath)
	require.NoError(t, err)

	loaded, err := ReadRecord(jsonPath)
	require.NoError(t, err)
	assert.Equal(t, jsonPath, loaded.Source)
	loaded.Source = ""
	assert.Equal(t, rec, loaded)

	data, err := os.ReadFile(jsonPath)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "{\n    \"CDI\""))
}

func TestParseFileAndPersist(t *testing.T) {
	dir := t.TempDir()
	jsonPath := filepath.Join(dir, "DiskInfo.json")

	rec, err := Parser{Strict: true}.ParseFileAndPersist(filepath.Join("testdata", "DiskInfo.txt"), jsonPath)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("testdata", "DiskInfo.txt"), rec.Source)
	assert.FileExists(t, jsonPath)
}
