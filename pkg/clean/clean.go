// Package clean provides pure normalization and validation helpers for the
// identifying tokens that upstream inventory sources report: serial numbers,
// asset tags, MAC addresses, IP addresses, manufacturer names, hostnames and
// usernames. Upstream data is low quality; vendors ship placeholder serials,
// USB dongles leak shared MAC addresses, and manufacturer names arrive in a
// dozen spellings. Everything here rejects garbage rather than guessing.
package clean

import (
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// invalidTags is a deny-list of placeholder values vendors ship instead of
// a real serial number or asset tag. Compared lowercase.
var invalidTags = map[string]struct{}{
	"not available":                    {},
	"default string":                   {},
	"not specified":                    {},
	"null":                             {},
	"none":                             {},
	"empty":                            {},
	"unknown":                          {},
	"main board":                       {},
	"0000000000":                       {},
	"______________":                   {},
	"123-1234-123":                     {},
	"..................":               {},
	"type3serialnumber":                {},
	"simatic":                          {},
	"system product name":              {},
	"system manufacturer":              {},
	"no asset tag":                     {},
	"chassis serial number":            {},
	"undefined serial number":          {},
	"chassis asset tag":                {},
	// Azure VMs all report the same serial number.
	"7783-7084-3265-9085-8269-3286-77": {},
	"varian":                           {},
	"tangent197":                       {},
	"isd_pcs":                          {},
	"unidentified system":              {},
	"cbx3___":                          {},
	"n/a":                              {},
}

// Tag cleans a serial number or asset tag. It strips characters that are
// unsafe in the remote query syntax (+ is mangled, % is a wildcard, quotes
// delimit strings), rejects known placeholder values and anything shorter
// than three characters, and truncates trailing "series" marketing suffixes.
// Returns "" when the value is unusable.
func Tag(value string) string {
	if value == "" {
		return ""
	}

	replacer := strings.NewReplacer("+", "", "%", "", `"`, "", "'", "")
	value = strings.TrimSpace(replacer.Replace(value))
	lower := strings.ToLower(value)

	if len(lower) < 3 {
		return ""
	}
	if _, bad := invalidTags[lower]; bad {
		return ""
	}

	// Trailing space in "system " is intentional so we don't reject
	// legitimate tags that merely contain the word.
	if strings.Contains(lower, "to be filled") ||
		strings.Contains(lower, "system ") ||
		strings.Contains(lower, "123456789") ||
		// All Bosch camera systems share the same serial.
		strings.HasPrefix(lower, "dip-") {
		return ""
	}

	if idx := strings.Index(lower, "series"); idx >= 0 {
		value = value[:idx]
	}

	return strings.TrimSpace(value)
}

// manufacturerAlias maps a recognizer over the lowercased vendor string to
// the canonical legal name. Order matters: more specific entries (HPE) must
// run before their generic prefixes (HP).
type manufacturerAlias struct {
	match func(s string) bool
	name  string
}

func prefix(p string) func(string) bool {
	return func(s string) bool { return strings.HasPrefix(s, p) }
}

func prefixAnd(p, substr string) func(string) bool {
	return func(s string) bool { return strings.HasPrefix(s, p) && strings.Contains(s, substr) }
}

var manufacturerAliases = []manufacturerAlias{
	{prefix("apple"), "Apple"},
	{func(s string) bool { return strings.HasPrefix(s, "dell") || strings.HasSuffix(s, "ell inc.") }, "Dell Inc."},
	{prefix("aaeon"), "AAEON Technology Inc."},
	{prefix("apc"), "APC"},
	{func(s string) bool { return strings.HasPrefix(s, "alaris") || s == "becton dickinson" }, "BD"},
	{prefix("asix"), "ASIX Electronics Corporation"},
	{prefix("advansus"), "Advansus Corp."},
	{prefix("advantech"), "Advantech Co., Ltd."},
	{prefix("andover"), "Andover Controls Corporation"},
	{prefix("armorlin"), "Armorlink Co., Ltd."},
	{prefix("asrock"), "ASRock Incorporation"},
	{prefix("axiom"), "Axiom Technology Co., Ltd."},
	{prefix("asus"), "ASUSTeK Computer Inc."},
	{prefix("azurewav"), "AzureWave Technologies, Inc."},
	{prefix("b&r"), "BR Industrial Automation"},
	{prefix("belkin"), "Belkin International Inc."},
	{prefix("bizlink"), "BizLink (Kunshan) Co.,Ltd"},
	{prefix("brady"), "Brady Corporation"},
	{prefix("broadcom"), "Broadcom Inc."},
	{prefix("buffalo"), "Buffalo Inc."},
	{prefixAnd("ce", "link"), "Ce Link Limited"},
	{prefix("chongqin"), "Chongqing Fugui Electronics Co.,Ltd."},
	{prefix("cisco"), "Cisco Systems, Inc."},
	{prefixAnd("cloud", "net"), "Cloud Network Technology (Samoa) Limited"},
	{prefix("cyberpow"), "Cyber Power Systems, Inc."},
	{prefix("cybernet"), "Cybernet Manufacturing Inc."},
	{prefix("dfi"), "DFI Inc."},
	{prefix("flytech"), "Flytech Technology Co., Ltd."},
	{prefix("fujitsu"), "Fujitsu"},
	// Do not match on GETAC.
	{func(s string) bool { return s == "ge" || strings.Contains(s, "general elec") }, "GE"},
	{func(s string) bool { return strings.HasPrefix(s, "gigabyte") || strings.HasPrefix(s, "giga-byte") }, "Gigabyte Technology Co., Ltd."},
	{prefix("gigamon"), "Gigamon Systems LLC"},
	{prefixAnd("good", "way"), "Good Way Technology Co., Ltd."},
	// HPE before HP.
	{func(s string) bool {
		return strings.HasPrefix(s, "hpe") ||
			(strings.Contains(s, "hewlett") && strings.Contains(s, "enterprise"))
	}, "Hewlett Packard Enterprise"},
	{func(s string) bool { return strings.HasPrefix(s, "hp") || strings.HasPrefix(s, "hewlett") }, "Hewlett-Packard"},
	{prefix("hitachi"), "Hitachi"},
	{prefixAnd("huizhou", "d"), "Huizhou Dehong Technology Co., Ltd."},
	{prefixAnd("hon", "hai"), "Hon Hai Precision Ind. Co.,Ltd."},
	{prefix("intel"), "Intel Corporation"},
	{prefix("ibm"), "IBM"},
	{prefix("juniper"), "Juniper"},
	{prefixAnd("jump", "indu"), "JUMPtec Industrielle Computertechnik AG"},
	{prefixAnd("jetway", "in"), "Jetway Information Co., Ltd."},
	{prefix("kcodes"), "KCodes Corporation"},
	{prefix("lcfc"), "LCFC(HeFei) Electronics Technology Co., Ltd."},
	{prefix("lenovo"), "Lenovo"},
	{prefix("luxshare"), "Luxshare Precision Industry Co., Ltd."},
	{prefix("liteon"), "Liteon Technology Corporation"},
	{prefix("lg"), "LG Electronics"},
	{prefix("micro-star"), "Micro-Star International Co., Ltd."},
	{prefix("microsof"), "Microsoft Corporation"},
	{prefix("mitac"), "Mitac International Corp."},
	{prefix("nec"), "NEC Corporation"},
	{prefix("oracle"), "Oracle Corporation"},
	{prefix("parallels"), "Parallels Software International Inc."},
	{prefixAnd("pc", "partne"), "PC Partner Ltd."},
	{prefix("palo alto"), "Palo Alto Networks"},
	{prefix("panasonic"), "Panasonic"},
	{prefix("pioneer"), "Pioneer"},
	{prefix("realtek"), "Realtek Semiconductor Corp."},
	{func(s string) bool { return strings.Contains(s, "schneider electric") }, "Schneider Electric"},
	{prefix("siemens"), "Siemens AG"},
	{prefix("samsung"), "Samsung"},
	{prefix("summit"), "Summit Data Communications"},
	{prefix("sony"), "Sony Corporation"},
	{prefixAnd("super", "micro"), "Super Micro Computer, Inc."},
	{prefix("tangent"), "Tangent, Inc."},
	{prefix("toshiba"), "Toshiba Corporation"},
	{prefixAnd("texas", "ins"), "Texas Instruments"},
	{prefix("tyan"), "Tyan Computer Corp."},
	{prefix("vmware"), "VMware, Inc."},
	{prefix("variscit"), "Variscite LTD"},
	{prefix("wistron"), "Wistron Corporation"},
	{prefix("zebra"), "Zebra Technologies Inc."},
	{prefix("congatec"), "congatec AG"},
	{func(s string) bool {
		return strings.HasPrefix(s, "3s") && (strings.Contains(s, "system") || strings.Contains(s, "vision"))
	}, "3S System Tech Inc."},
	{prefixAnd("speed", "dra"), "Speed Dragon Multimedia Limited"},
}

var titleCaser = cases.Title(language.English)

// Manufacturer collapses manufacturer-name variants to one canonical legal
// name so that "DELL", "Dell Computer Corp" and "dell inc." all resolve to
// the same remote Manufacturer record. Unrecognized vendors fall back to a
// cleaned, title-cased form of the input.
func Manufacturer(manufacturer string) string {
	if manufacturer == "" {
		return ""
	}

	lower := strings.ToLower(strings.TrimSpace(manufacturer))
	for _, alias := range manufacturerAliases {
		if alias.match(lower) {
			return alias.name
		}
	}

	cleaned := Tag(manufacturer)
	if cleaned == "" {
		return ""
	}
	if cleaned == strings.ToLower(cleaned) || cleaned == strings.ToUpper(cleaned) {
		// Uniform casing is vendor sloppiness, not a brand style.
		return titleCaser.String(strings.ToLower(cleaned))
	}
	return cleaned
}

// IP validates an IPv4 address for inventory purposes. Every octet must be
// in [1,254]; loopback, link-local, broadcast and multicast ranges are
// rejected because they identify nothing.
func IP(ip string) string {
	ip = strings.TrimSpace(ip)
	if ip == "" {
		return ""
	}

	parts := strings.Split(ip, ".")
	if len(parts) != 4 {
		return ""
	}

	octets := make([]int, 4)
	for i, part := range parts {
		octet, err := strconv.Atoi(part)
		if err != nil || octet < 1 || octet > 254 {
			return ""
		}
		octets[i] = octet
	}

	if octets[0] == 127 || octets[0] == 255 {
		return ""
	}
	if octets[0] == 169 && octets[1] == 254 {
		return ""
	}
	if octets[0] >= 224 && octets[0] <= 239 {
		return ""
	}

	return strconv.Itoa(octets[0]) + "." + strconv.Itoa(octets[1]) + "." +
		strconv.Itoa(octets[2]) + "." + strconv.Itoa(octets[3])
}

// invalidUsers are account names that identify tooling, not people.
var invalidUsers = map[string]struct{}{
	"not available":  {},
	"default string": {},
	"not specified":  {},
	"null":           {},
	"none":           {},
	"empty":          {},
	"unknown":        {},
	"root":           {},
	"system":         {},
}

// User cleans a username observed as the last logged-in account. Service and
// scanner accounts are rejected; domain prefixes (DOMAIN\user) and UPN
// suffixes (user@domain) are stripped.
func User(user string) string {
	user = strings.ToLower(strings.TrimSpace(user))
	if user == "" {
		return ""
	}
	if _, bad := invalidUsers[user]; bad {
		return ""
	}
	if strings.Contains(user, "scanner") || strings.Contains(user, "admin") {
		return ""
	}
	if idx := strings.Index(user, "@"); idx >= 0 {
		user = user[:idx]
	}
	if idx := strings.LastIndex(user, `\`); idx >= 0 {
		user = user[idx+1:]
	}
	return user
}

// List filters falsy entries out of a list, removes duplicates and sorts the
// result. This is the core of the accumulating-field merge: determinism here
// is what makes repeated reconciliation idempotent.
func List(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v == "" {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// ListFirst returns the first entry of the filtered, sorted list, or "".
func ListFirst(values []string) string {
	filtered := List(values)
	if len(filtered) == 0 {
		return ""
	}
	return filtered[0]
}

// Bool interprets common truthy spellings from spreadsheet and form data.
func Bool(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "yes", "true", "1", "y":
		return true
	}
	return false
}
