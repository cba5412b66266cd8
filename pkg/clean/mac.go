package clean

import "strings"

// ValidPrivatePrefixes allow-lists locally-administered MAC prefixes that
// are known to belong to real, stable hardware on our networks. Everything
// else with the locally-administered bit set is a randomized or virtual
// address and useless as an identity anchor.
var ValidPrivatePrefixes = []string{"82B77F", "BC2411"}

// badVendorPrefixes lists OUI prefixes (and a few full addresses) that must
// never be used to identify an asset: USB network dongles and docking
// stations travel between machines, and virtualization adapters repeat
// across hosts. Prefix lengths vary from /20 OUI-28 blocks to full /48s.
var badVendorPrefixes = []string{
	// VMware desktop products assign these consecutively.
	"005056C0",
	// Belkin USB network adapters.
	"00173F", "001CDF", "002275", "08863B", "149182", "24F5A2", "302303", "58EF68",
	"6038E0", "80691A", "94103E", "944452", "B4750E", "C05627", "C4411E", "D8EC5E",
	"E89F80", "EC1A59",
	"001150", "0030BD",
	// Ce Link USB network adapters.
	"6C6E07", "70B3D554", "A0CEC8",
	// Cable Matters USB network adapters.
	"F44DAD", "5C857E30", "70886B80",
	// Cisco AnyConnect virtual adapters.
	"00059A3C7A00", "00059A3C7800",
	// Apple USB dongles.
	"5CF7E68B",
	"AC7F3EE6DDE5",
	// Microsoft USB dongles.
	"F01DBCF2",
	// ASIX USB dongles.
	"F8E43B",
	// BizLink (Kunshan) USB dongles.
	"9CEBE8",
	// Speed Dragon Multimedia USB dongles.
	"00133B",
	// AuKey (Dongguan Kingtron Electronics) USB dongles.
	"98FC84E",
	"34298F7",
	// Wistron Infocomm (Zhongshan) dongles.
	"98EECBB21088",
	// OmniKey RFID dongles generate these serially; they are not unique.
	"00189E",
	// Realtek USB dongles.
	"00E04C",
	// Cisco-Linksys dongles.
	"C8D719C3426D",
	// Dell USB dongles.
	"509A4C1B0BC4",
	"605B3021",
	"C025A5ED7191",
	"3C2C30F82A34",
	// Luxshare Precision Industry dongles.
	"3C18A0",
	// TP-Link USB adapters.
	"984827",
	"34E894",
	// Shenzhen Cudy Technology adapters.
	"B44BD62",
	// Shenzhen Century Xinyang adapters.
	"90DE80",
	// Good Way Ind. docking stations.
	"0050B6",
	// TRENDnet adapters.
	"782D7E",
	// Wistron InfoComm (Kunshan) - Lenovo docking stations.
	"54EE75",
	// Hon Hai Precision adapters.
	"FC017C",
}

// MAC cleans a MAC address into canonical colon-separated uppercase form.
// It strips separators, rejects addresses that cannot identify a physical
// asset (locally-administered/randomized addresses, the all-zero and
// broadcast addresses, and known USB-dongle or virtualization vendor
// prefixes) and returns "" for anything rejected.
func MAC(mac string) string {
	return cleanMAC(mac, true)
}

// MACKeepingVendors is MAC without the bad-vendor prefix rejection. Used
// when the caller wants randomization and zero/broadcast screening only.
func MACKeepingVendors(mac string) string {
	return cleanMAC(mac, false)
}

func cleanMAC(mac string, removeBadVendors bool) string {
	if mac == "" {
		return ""
	}

	var b strings.Builder
	for _, c := range strings.ToUpper(mac) {
		if (c >= '0' && c <= '9') || (c >= 'A' && c <= 'F') {
			b.WriteRune(c)
		}
	}
	hex := b.String()
	if len(hex) != 12 {
		return ""
	}

	// x2, x6, xA, xE second nibbles mark locally-administered addresses:
	// Microsoft Loopback, VirtualBox, GlobalProtect and Apple Private
	// addresses all land here.
	switch hex[1] {
	case '2', '6', 'A', 'E':
		if !hasAllowedPrivatePrefix(hex) {
			return ""
		}
	}

	if hex == "000000000000" || hex == "FFFFFFFFFFFF" {
		return ""
	}

	if removeBadVendors && hasBadVendorPrefix(hex) {
		return ""
	}

	parts := make([]string, 0, 6)
	for i := 0; i < 12; i += 2 {
		parts = append(parts, hex[i:i+2])
	}
	return strings.Join(parts, ":")
}

func hasAllowedPrivatePrefix(hex string) bool {
	for _, p := range ValidPrivatePrefixes {
		if strings.HasPrefix(hex, p) {
			return true
		}
	}
	return false
}

func hasBadVendorPrefix(hex string) bool {
	for _, p := range badVendorPrefixes {
		if strings.HasPrefix(hex, p) {
			return true
		}
	}
	return false
}
