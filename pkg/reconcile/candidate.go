// Package reconcile binds candidate hardware observations to remote asset
// records and merges new evidence into them: identity resolution through an
// ordered lookup cascade, union merging for accumulating fields, MAC slot
// allocation, and lifecycle status transitions.
package reconcile

import (
	"fmt"
	"strings"

	"github.com/ferrumhealth/assetsync/pkg/clean"
	"github.com/ferrumhealth/assetsync/pkg/errors"
)

// Candidate is one observation of a host from an upstream source, before
// normalization. Field values are untrusted: serials may be vendor
// placeholders, MACs may belong to virtual adapters, names may be FQDNs.
type Candidate struct {
	// Identity anchors, in cascade precedence order.
	Serial       string   `yaml:"serial" json:"serial"`
	AssetTag     string   `yaml:"asset_tag" json:"asset_tag"`
	MACAddresses []string `yaml:"mac_addresses" json:"mac_addresses"`
	Name         string   `yaml:"name" json:"name"`

	// Classification.
	Manufacturer string `yaml:"manufacturer" json:"manufacturer"`
	ModelName    string `yaml:"model" json:"model"`

	// Observed attributes.
	OSName    string `yaml:"os" json:"os"`
	OSVersion string `yaml:"os_version" json:"os_version"`
	OSBuild   string `yaml:"os_build" json:"os_build"`
	OSType    string `yaml:"os_type" json:"os_type"`
	CPU       string `yaml:"cpu" json:"cpu"`
	RAM       string `yaml:"ram" json:"ram"`
	Storage   string `yaml:"storage" json:"storage"`
	IPAddress string `yaml:"ip_address" json:"ip_address"`
	Domain    string `yaml:"domain" json:"domain"`
	LastUser  string `yaml:"last_user" json:"last_user"`
	OrgUnit   string `yaml:"org_unit" json:"org_unit"`
	EDR       string `yaml:"edr" json:"edr"`

	// Procurement data, present on spreadsheet-sourced candidates.
	PurchaseDate   string `yaml:"purchase_date" json:"purchase_date"`
	PurchaseCost   string `yaml:"purchase_cost" json:"purchase_cost"`
	OrderNumber    string `yaml:"order_number" json:"order_number"`
	WarrantyMonths string `yaml:"warranty_months" json:"warranty_months"`

	// Management names the tool that produced this observation; it
	// accumulates on the record across sources.
	Management string `yaml:"management" json:"management"`

	// Source labels the upstream feed for logging.
	Source string `yaml:"source" json:"source"`
}

// Normalize returns a cleaned copy of the candidate: placeholder serials
// and tags dropped, virtual and malformed MACs rejected, hostname reduced
// to its short uppercase form, manufacturer collapsed to its canonical
// alias.
func (c Candidate) Normalize() Candidate {
	out := c

	out.Serial = clean.Tag(c.Serial)
	out.AssetTag = clean.Tag(c.AssetTag)
	out.Name = clean.Hostname(c.Name)
	out.MACAddresses = cleanMACs(c.MACAddresses)
	out.Manufacturer = clean.Manufacturer(c.Manufacturer)
	out.IPAddress = clean.IP(c.IPAddress)
	out.LastUser = clean.User(c.LastUser)
	out.EDR = clean.EDR(c.EDR)
	out.ModelName = strings.TrimSpace(c.ModelName)
	out.Domain = strings.ToUpper(strings.TrimSpace(c.Domain))
	out.OrgUnit = strings.TrimSpace(c.OrgUnit)
	out.Management = strings.TrimSpace(c.Management)

	return out
}

func cleanMACs(macs []string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, mac := range macs {
		cleaned := clean.MAC(mac)
		if cleaned == "" {
			continue
		}
		if _, dup := seen[cleaned]; dup {
			continue
		}
		seen[cleaned] = struct{}{}
		out = append(out, cleaned)
	}
	return out
}

// HasAnchor reports whether at least one identity anchor survived
// normalization. A candidate with no anchor can never be bound or safely
// created.
func (c Candidate) HasAnchor() bool {
	return c.Serial != "" || c.AssetTag != "" || len(c.MACAddresses) > 0 || c.Name != ""
}

// Anchor returns the strongest surviving identity anchor, for log context.
func (c Candidate) Anchor() string {
	switch {
	case c.Serial != "":
		return c.Serial
	case c.AssetTag != "":
		return c.AssetTag
	case len(c.MACAddresses) > 0:
		return c.MACAddresses[0]
	default:
		return c.Name
	}
}

// Validate rejects candidates that carry no usable identity.
func (c Candidate) Validate() error {
	if !c.HasAnchor() {
		return fmt.Errorf("candidate from %q: serial, asset tag, MAC and name all empty after normalization: %w",
			c.Source, errors.ErrNoIdentity)
	}
	return nil
}
