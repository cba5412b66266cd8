package clean

import (
	"regexp"
	"strings"
)

// DefaultValidOS is the curated list of operating system names the remote
// system of record accepts. Upstream sources report free-form OS strings;
// anything not on this list is dropped rather than written.
var DefaultValidOS = []string{
	"AlmaLinux", "Android", "Android 6", "Android 7", "APC AOS", "Axis OS", "BSD", "CentOS",
	"C Executive OS", "ChromeOS 13020.97", "Cisco IOS", "Cisco IOS Software",
	"Cisco IOS Software [Bengaluru]", "Cisco IOS Software [Cupertino]", "Cisco IOS Software [Denali]",
	"Cisco IOS Software [Dublin]", "Cisco IOS Software [Everest]", "Cisco IOS Software [Fuji]",
	"Cisco IOS Software [Gibraltar]", "Cisco IOS XE", "Cisco NX-OS", "CoBos", "CollabOS", "Debian", "DSM",
	"Embedded Linux", "Embedded Windows 7", "ENEA OSE 4.5.2", "Evolution OS", "Fedora", "Fire OS",
	"FortiOS", "FreeBSD", "HELiOS", "HP FutureSmart", "HP ProCurve", "iOS", "IOS XE", "JunOS", "Link-OS",
	"Linux", "Linux Embedded OS", "Linux Embedded RTOS", "Linux Yocto", "macOS", "Mac OS X", "Meraki OS",
	"OpenVMS", "OS X", "PAN-OS", "Pump OS", "QNX RTOS", "QTS", "RedHat", "Ricoh-OS", "RokuOS",
	"SonicOS", "SRS", "SUSE", "TC7", "Telium2", "Tizen", "Total Access 924e (2nd Gen),", "tvOS", "Ubuntu",
	"Uniform-OS", "VxWorks", "watchOS", "webOS", "Windows", "Windows 7", "Windows 7 Enterprise",
	"Windows 7 Professional", "Windows 7 Ultimate", "Windows 8", "Windows 8.1", "Windows 8.1 Pro",
	"Windows 10", "Windows 10 Education", "Windows 10 Enterprise", "Windows 10 Enterprise 2015 LTSB",
	"Windows 10 Enterprise 2016 LTSB", "Windows 10 Enterprise LTSC", "Windows 10 Enterprise N",
	"Windows 10 IoT Enterprise", "Windows 10 IoT Enterprise LTSC", "Windows 10 Pro",
	"Windows 10 Pro for Workstations", "Windows 11", "Windows 11 Enterprise",
	"Windows 11 Enterprise multi-session", "Windows 11 Enterprise N", "Windows 11 Pro",
	"Windows 11 Pro for Workstations", "Windows 2000", "Windows CE", "Windows Embedded Standard",
	"Windows Server 2008", "Windows Server 2008 R2 Standard", "Windows Server 2012 R2",
	"Windows Server 2012 R2 Datacenter", "Windows Server 2012 R2 Standard", "Windows Server 2012 Standard",
	"Windows Server 2016", "Windows Server 2016 Datacenter", "Windows Server 2016 Standard",
	"Windows Server 2019", "Windows Server 2019 Datacenter", "Windows Server 2019 Standard",
	"Windows Server 2022", "Windows Server 2022 Datacenter", "Windows Server 2022 Standard",
	"Windows Storage Server 2012 R2 Standard", "Windows Storage Server 2012 R2 Workgroup",
	"Windows Storage Server 2016 Standard", "Windows Storage Server 2016 Workgroup", "Windows XP",
	"Windows XP 64bit", "Windows XP Professional",
}

// DefaultValidCategories is the curated list of asset categories accepted by
// the remote system of record.
var DefaultValidCategories = []string{
	"Control", "Process", "Hospital Information System", "Conference Rooms", "Clinical Lab",
	"Building Management", "Imaging", "Clinical IoT", "Network", "Surgery", "Physical Security",
	"Communication", "Mobile Devices", "Patient Devices", "General IoT", "Servers", "Computers",
}

// validEDR is the allow-list of endpoint-protection product names.
var validEDR = []string{
	"Antivirus (Manual)",
	"Avast Antivirus",
	"Bitdefender EDR Agent",
	"Carbon Black",
	"Check Point Endpoint Security",
	"Cortex XDR",
	"CrowdStrike Falcon",
	"Cylance OPTICS",
	"Cylance PROTECT",
	"Defender ATP",
	"Digital Guardian Agent",
	"ESET Endpoint Antivirus",
	"F-Secure Protection Service",
	"FireEye Endpoint Agent",
	"FortiClient",
	"Intercept X",
	"Kaspersky Endpoint Security",
	"Malwarebytes Client",
	"McAfee Agent",
	"Microsoft Defender ATP",
	"N/A (Manual)",
	"Norton 360",
	"SentinelOne",
	"Symantec Endpoint Protection",
	"Tanium Client",
	"Tenable Nessus",
	"Trend Micro Security Agent",
	"XProtect",
}

// OS normalizes vendor spellings of operating system names.
func OS(operatingSystem string) string {
	if operatingSystem == "Red Hat" {
		return "RedHat"
	}
	if strings.Contains(operatingSystem, "Monterey") {
		return "macOS"
	}
	if strings.HasPrefix(operatingSystem, "Mac OS 10") {
		return "Mac OS X"
	}
	if strings.HasPrefix(operatingSystem, "Microsoft ") {
		return operatingSystem[len("Microsoft "):]
	}
	return operatingSystem
}

// OSType buckets an operating system string into the coarse OS Type
// categories the remote field expects. Returns "" when nothing matches.
func OSType(operatingSystem string) string {
	os := strings.ToLower(operatingSystem)
	if strings.Contains(os, "windows") {
		return "Windows"
	}
	for _, marker := range []string{
		"linux", "ubuntu", "debian", "redhat", "red hat", "centos",
		"fedora", "suse", "alma", "rhel", "evolution",
	} {
		if strings.Contains(os, marker) {
			return "Linux"
		}
	}
	for _, marker := range []string{
		"mac", "android", "tvos", "watchos", "bsd", "cisco", "chrome",
		"vxworks", "other",
	} {
		if strings.Contains(os, marker) || os == "ios" {
			return "Other"
		}
	}
	for _, marker := range []string{
		"apc", "axis", "cobos", "enea", "futuresmart", "pump", "roku",
		"proprietary",
	} {
		if strings.Contains(os, marker) {
			return "Proprietary"
		}
	}
	return ""
}

// ValidateOS normalizes an OS name and accepts it only if it appears on the
// valid list. A nil list means DefaultValidOS.
func ValidateOS(operatingSystem string, valid []string) string {
	operatingSystem = OS(operatingSystem)
	if valid == nil {
		valid = DefaultValidOS
	}
	for _, v := range valid {
		if operatingSystem == v {
			return operatingSystem
		}
	}
	return ""
}

// ValidateCategory accepts a category only if it appears on the valid list.
// A nil list means DefaultValidCategories.
func ValidateCategory(category string, valid []string) string {
	if category == "" {
		return ""
	}
	if valid == nil {
		valid = DefaultValidCategories
	}
	for _, v := range valid {
		if category == v {
			return category
		}
	}
	return ""
}

// EDR accepts an endpoint-protection product name only if it appears on the
// curated allow-list.
func EDR(value string) string {
	if value == "" {
		return ""
	}
	for _, v := range validEDR {
		if value == v {
			return value
		}
	}
	return ""
}

var (
	shortHostnameRe = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9-]{0,61}[A-Za-z0-9]$|^[A-Za-z0-9]$`)
	fqdnRe          = regexp.MustCompile(`^([a-zA-Z0-9-]{1,63}\.)+[a-zA-Z]{2,63}\.?$`)
)

// Hostname validates a short hostname or FQDN, uppercases it, and truncates
// an FQDN to its first label. Names that are not valid hostnames return "".
func Hostname(hostname string) string {
	hostname = strings.ToUpper(strings.TrimSpace(hostname))
	if hostname == "" {
		return ""
	}
	if strings.HasPrefix(hostname, "-") || strings.HasSuffix(hostname, "-") {
		return ""
	}
	if shortHostnameRe.MatchString(hostname) {
		return hostname
	}
	if fqdnRe.MatchString(hostname) {
		return strings.Split(hostname, ".")[0]
	}
	return ""
}
