package clean_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ferrumhealth/assetsync/pkg/clean"
)

func TestTag(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"valid tag", "ABC123", "ABC123"},
		{"repeated digits", "0000000000", ""},
		{"empty", "", ""},
		{"too short", "ab", ""},
		{"placeholder", "To Be Filled By O.E.M.", ""},
		{"system placeholder", "System Serial Number", ""},
		{"azure serial", "7783-7084-3265-9085-8269-3286-77", ""},
		{"bosch camera", "DIP-5244-8HD", ""},
		{"sequential digits", "0123456789AB", ""},
		{"unsafe characters stripped", `SN+42%"quoted"`, "SN42quoted"},
		{"series suffix truncated", "PowerEdge Series 9000", "PowerEdge"},
		{"whitespace trimmed", "  SN12345  ", "SN12345"},
		{"not available", "Not Available", ""},
		{"case-insensitive deny list", "UNKNOWN", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, clean.Tag(tt.input))
		})
	}
}

func TestMAC(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"valid global address", "00:1B:44:11:22:33", "00:1B:44:11:22:33"},
		{"virtualization oui rejected", "0A:00:27:12:34:56", ""},
		{"lowercase normalized", "00:1b:44:11:22:33", "00:1B:44:11:22:33"},
		{"dashes accepted", "00-1B-44-11-22-33", "00:1B:44:11:22:33"},
		{"bare hex accepted", "001B44112233", "00:1B:44:11:22:33"},
		{"all zero", "00:00:00:00:00:00", ""},
		{"broadcast", "FF:FF:FF:FF:FF:FF", ""},
		{"too short", "00:1B:44:11:22", ""},
		{"empty", "", ""},
		{"randomized second nibble 2", "02:00:00:AA:BB:CC", ""},
		{"randomized second nibble 6", "06:00:00:AA:BB:CC", ""},
		{"randomized second nibble E", "0E:00:00:AA:BB:CC", ""},
		{"allow-listed private prefix", "82:B7:7F:AA:BB:CC", "82:B7:7F:AA:BB:CC"},
		{"belkin dongle", "00:17:3F:10:20:30", ""},
		{"realtek dongle", "00:E0:4C:01:02:03", ""},
		{"vmware desktop", "00:50:56:C0:00:08", ""},
		{"cisco anyconnect full match", "00:05:9A:3C:7A:00", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, clean.MAC(tt.input))
		})
	}
}

func TestMACKeepingVendors(t *testing.T) {
	// The dongle screen is skipped, randomization screening is not.
	assert.Equal(t, "00:E0:4C:01:02:03", clean.MACKeepingVendors("00:E0:4C:01:02:03"))
	assert.Equal(t, "", clean.MACKeepingVendors("0A:00:27:12:34:56"))
}

func TestManufacturer(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"DELL", "Dell Inc."},
		{"Dell Computer Corporation", "Dell Inc."},
		{"apple inc", "Apple"},
		{"HPE ProLiant", "Hewlett Packard Enterprise"},
		{"Hewlett Packard Enterprise", "Hewlett Packard Enterprise"},
		{"HP Inc.", "Hewlett-Packard"},
		{"LENOVO", "Lenovo"},
		{"Super Micro Computer Inc", "Super Micro Computer, Inc."},
		{"GETAC", "Getac"},
		{"ge", "GE"},
		{"General Electric Co", "GE"},
		{"", ""},
		{"Unknown", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, clean.Manufacturer(tt.input))
		})
	}
}

func TestIP(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"10.20.30.40", "10.20.30.40"},
		{"10.20.30.40 ", "10.20.30.40"},
		{"127.0.0.1", ""},
		{"127.1.1.1", ""},
		{"169.254.10.10", ""},
		{"224.0.0.5", ""},
		{"239.1.2.3", ""},
		{"255.1.2.3", ""},
		{"10.0.30.40", ""},   // octet 0 not allowed
		{"10.255.30.40", ""}, // octet 255 not allowed
		{"10.20.30", ""},
		{"10.20.30.40.50", ""},
		{"a.b.c.d", ""},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, clean.IP(tt.input))
		})
	}
}

func TestUser(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"jsmith", "jsmith"},
		{"JSMITH", "jsmith"},
		{"jsmith@example.org", "jsmith"},
		{`EXAMPLE\jsmith`, "jsmith"},
		{"root", ""},
		{"system", ""},
		{"vuln-scanner", ""},
		{"localadmin", ""},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, clean.User(tt.input))
		})
	}
}

func TestList(t *testing.T) {
	// Filter falsy, dedupe, sort.
	got := clean.List([]string{"b", "", "a", "b", "c", ""})
	assert.Equal(t, []string{"a", "b", "c"}, got)

	assert.Empty(t, clean.List(nil))
	assert.Empty(t, clean.List([]string{"", ""}))
}

func TestListFirst(t *testing.T) {
	assert.Equal(t, "a", clean.ListFirst([]string{"c", "a", "b"}))
	assert.Equal(t, "", clean.ListFirst([]string{""}))
}

func TestHostname(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"ws-0421", "WS-0421"},
		{"srv01.example.org", "SRV01"},
		{"-leading", ""},
		{"trailing-", ""},
		{"", ""},
		{"a", "A"},
		{strings.Repeat("a", 64), ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, clean.Hostname(tt.input))
		})
	}
}

func TestOSHelpers(t *testing.T) {
	assert.Equal(t, "RedHat", clean.OS("Red Hat"))
	assert.Equal(t, "macOS", clean.OS("macOS Monterey 12.4"))
	assert.Equal(t, "Mac OS X", clean.OS("Mac OS 10.15.7"))
	assert.Equal(t, "Windows 10 Pro", clean.OS("Microsoft Windows 10 Pro"))

	assert.Equal(t, "Windows", clean.OSType("Windows Server 2019"))
	assert.Equal(t, "Linux", clean.OSType("Ubuntu 22.04"))
	assert.Equal(t, "Other", clean.OSType("macOS"))
	assert.Equal(t, "Proprietary", clean.OSType("HP FutureSmart"))
	assert.Equal(t, "", clean.OSType("HAL 9000 OS"))

	assert.Equal(t, "Windows 11 Pro", clean.ValidateOS("Microsoft Windows 11 Pro", nil))
	assert.Equal(t, "", clean.ValidateOS("TempleOS", nil))
}

func TestValidateCategory(t *testing.T) {
	assert.Equal(t, "Computers", clean.ValidateCategory("Computers", nil))
	assert.Equal(t, "", clean.ValidateCategory("Kitchen Appliances", nil))
	assert.Equal(t, "", clean.ValidateCategory("", nil))
}

func TestEDR(t *testing.T) {
	assert.Equal(t, "CrowdStrike Falcon", clean.EDR("CrowdStrike Falcon"))
	assert.Equal(t, "", clean.EDR("Totally Real AV"))
	assert.Equal(t, "", clean.EDR(""))
}

func TestBool(t *testing.T) {
	assert.True(t, clean.Bool("yes"))
	assert.True(t, clean.Bool("Y"))
	assert.True(t, clean.Bool("TRUE"))
	assert.True(t, clean.Bool("1"))
	assert.False(t, clean.Bool("no"))
	assert.False(t, clean.Bool(""))
}

func TestOUTable(t *testing.T) {
	table, err := clean.ReadOUTable(strings.NewReader(
		"Research/Imaging,Radiology,Imaging Lab\nResearch,Research Admin,\nClinical,Clinical Ops,\n"))
	assert.NoError(t, err)

	// Longest-prefix match walks up the OU path.
	assert.Equal(t, "Radiology", table.Department("Research/Imaging/Workstations"))
	assert.Equal(t, "Imaging Lab", table.Lab("Research/Imaging/Workstations"))
	assert.Equal(t, "Research Admin", table.Department("Research/Genomics"))
	assert.Equal(t, "", table.Department("Finance/Payroll"))
}
