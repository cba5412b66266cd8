package inventory

import (
	"fmt"
	"html"
	"strings"

	"github.com/ferrumhealth/assetsync/pkg/clean"
)

// Semantic field names used by the reconciliation engine. Each is backed by
// an opaque remote column key declared in the custom-field definitions.
const (
	FieldStorage   = "Storage"
	FieldOSVersion = "OS Version"
	FieldOSBuild   = "OS Build"
	FieldOSType    = "OS Type"
	FieldInternet  = "Internet"
	FieldPII       = "PII"
	FieldPHI       = "PHI"
	FieldEDR       = "EDR"
	FieldMgmt      = "Management"
	FieldCPU       = "CPU"
	FieldRAM       = "RAM"
	FieldOS        = "Operating System"
	FieldLastUser  = "Last User"
	FieldDept      = "Department"
	FieldIP        = "IP Address"
	FieldSwitches  = "Switches"
	FieldSwitchPrt = "Switch Port"
	FieldSSID      = "SSID"
	FieldVLAN      = "VLAN"
	FieldVLANName  = "VLAN Name"
	FieldDomain    = "Domain"
	FieldOrgUnit   = "Org. Unit"
	FieldLab       = "Lab"
)

// Field formats declared by the remote field definitions.
const (
	FormatAny     = "ANY"
	FormatNumeric = "NUMERIC"
	FormatMAC     = "MAC"
	FormatIP      = "IP"
)

// TagDelimiter joins the entries of an accumulating field.
const TagDelimiter = ", "

// DefaultMACSlots is the number of pre-provisioned MAC-address columns.
// Deployments with more provisioned columns configure a larger pool.
const DefaultMACSlots = 4

// CustomFieldDef declares one remote custom field: its human name, the
// opaque column key writes must use, and its declared format.
type CustomFieldDef struct {
	Name    string `yaml:"name"`
	Column  string `yaml:"column"`
	Format  string `yaml:"format"`
	Element string `yaml:"element"`
}

// DefaultFieldDefs returns the custom-field declarations for the standard
// fieldset, with macSlots MAC-address columns (0 means DefaultMACSlots).
// Slot order here is pool order for MAC allocation.
func DefaultFieldDefs(macSlots int) []CustomFieldDef {
	if macSlots <= 0 {
		macSlots = DefaultMACSlots
	}

	defs := []CustomFieldDef{
		{Name: FieldStorage, Column: "_snipeit_storage_20", Format: FormatNumeric, Element: "text"},
		{Name: FieldOSVersion, Column: "_snipeit_os_version_15", Format: FormatAny, Element: "text"},
		{Name: FieldOSBuild, Column: "_snipeit_os_build_16", Format: FormatAny, Element: "text"},
		{Name: FieldOSType, Column: "_snipeit_os_type_17", Format: FormatAny, Element: "text"},
		{Name: FieldInternet, Column: "_snipeit_internet_21", Format: FormatAny, Element: "radio"},
		{Name: FieldPII, Column: "_snipeit_pii_22", Format: FormatAny, Element: "radio"},
		{Name: FieldPHI, Column: "_snipeit_phi_23", Format: FormatAny, Element: "checkbox"},
		{Name: FieldEDR, Column: "_snipeit_edr_24", Format: FormatAny, Element: "checkbox"},
		{Name: FieldMgmt, Column: "_snipeit_management_25", Format: FormatAny, Element: "checkbox"},
		{Name: FieldCPU, Column: "_snipeit_cpu_18", Format: FormatAny, Element: "text"},
		{Name: FieldRAM, Column: "_snipeit_ram_19", Format: FormatNumeric, Element: "text"},
		{Name: FieldOS, Column: "_snipeit_operating_system_14", Format: FormatAny, Element: "text"},
		{Name: FieldLastUser, Column: "_snipeit_last_user_13", Format: FormatAny, Element: "text"},
		{Name: FieldDept, Column: "_snipeit_department_12", Format: FormatAny, Element: "text"},
	}

	for i := 1; i <= macSlots; i++ {
		defs = append(defs, CustomFieldDef{
			Name:    fmt.Sprintf("MAC Address %d", i),
			Column:  fmt.Sprintf("_snipeit_mac_address_%d_%d", i, i),
			Format:  FormatMAC,
			Element: "text",
		})
	}

	defs = append(defs,
		CustomFieldDef{Name: FieldIP, Column: "_snipeit_ip_address_5", Format: FormatIP, Element: "text"},
		CustomFieldDef{Name: FieldSwitches, Column: "_snipeit_switches_6", Format: FormatAny, Element: "text"},
		CustomFieldDef{Name: FieldSwitchPrt, Column: "_snipeit_switch_port_7", Format: FormatAny, Element: "text"},
		CustomFieldDef{Name: FieldSSID, Column: "_snipeit_ssid_8", Format: FormatAny, Element: "text"},
		CustomFieldDef{Name: FieldVLAN, Column: "_snipeit_vlan_9", Format: FormatAny, Element: "text"},
		CustomFieldDef{Name: FieldVLANName, Column: "_snipeit_vlan_name_10", Format: FormatAny, Element: "text"},
		CustomFieldDef{Name: FieldDomain, Column: "_snipeit_domain_11", Format: FormatAny, Element: "text"},
		CustomFieldDef{Name: FieldOrgUnit, Column: "_snipeit_org_unit_26", Format: FormatAny, Element: "text"},
		CustomFieldDef{Name: FieldLab, Column: "_snipeit_lab_27", Format: FormatAny, Element: "text"},
	)

	return defs
}

// CustomField is one custom-field slot on an asset.
type CustomField struct {
	Name    string
	Column  string
	Format  string
	Element string
	Value   string
}

// CustomFields is an asset's ordered set of custom-field slots. Order
// matters: MAC slots are allocated in declaration order.
type CustomFields struct {
	fields   []*CustomField
	byName   map[string]*CustomField
	byColumn map[string]*CustomField
}

// NewCustomFields builds a slot set from field declarations.
func NewCustomFields(defs []CustomFieldDef) *CustomFields {
	cf := &CustomFields{
		byName:   make(map[string]*CustomField, len(defs)),
		byColumn: make(map[string]*CustomField, len(defs)),
	}
	for _, def := range defs {
		cf.add(&CustomField{
			Name:    def.Name,
			Column:  def.Column,
			Format:  def.Format,
			Element: def.Element,
		})
	}
	return cf
}

func (cf *CustomFields) add(f *CustomField) {
	cf.fields = append(cf.fields, f)
	cf.byName[f.Name] = f
	cf.byColumn[f.Column] = f
}

// Set stores a value under the field's human name, coercing it to the
// field's declared format. Unknown names are ignored; the remote fieldset
// defines what exists.
func (cf *CustomFields) Set(name, value string) {
	f, ok := cf.byName[name]
	if !ok {
		return
	}
	f.Value = coerceFieldValue(f.Format, value)
}

// Get returns the value stored under the field's human name.
func (cf *CustomFields) Get(name string) string {
	if f, ok := cf.byName[name]; ok {
		return f.Value
	}
	return ""
}

// SetColumn stores a value under the raw remote column key.
func (cf *CustomFields) SetColumn(column, value string) {
	f, ok := cf.byColumn[column]
	if !ok {
		return
	}
	f.Value = coerceFieldValue(f.Format, value)
}

// Columns returns column→value for every slot, empty values included; the
// remote update contract expects the full column set.
func (cf *CustomFields) Columns() map[string]string {
	out := make(map[string]string, len(cf.fields))
	for _, f := range cf.fields {
		out[f.Column] = f.Value
	}
	return out
}

// MACSlots returns the MAC-format slots in pool order.
func (cf *CustomFields) MACSlots() []*CustomField {
	var out []*CustomField
	for _, f := range cf.fields {
		if f.Format == FormatMAC {
			out = append(out, f)
		}
	}
	return out
}

// MACs returns the MAC addresses currently occupying slots, uppercased.
func (cf *CustomFields) MACs() []string {
	var out []string
	for _, f := range cf.MACSlots() {
		if f.Value != "" {
			out = append(out, strings.ToUpper(f.Value))
		}
	}
	return out
}

// All returns the slots in declaration order.
func (cf *CustomFields) All() []*CustomField {
	return cf.fields
}

// coerceFieldValue applies the format-declared coercion to a raw value.
func coerceFieldValue(format, value string) string {
	value = html.UnescapeString(value)
	switch format {
	case FormatMAC:
		return clean.MAC(value)
	default:
		return value
	}
}
