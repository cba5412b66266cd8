package reconcile

import (
	"strings"

	"github.com/ferrumhealth/assetsync/pkg/clean"
	"github.com/ferrumhealth/assetsync/pkg/inventory"
)

// UnionTags merges new entries into a delimited accumulating field: split
// the current value, append the additions, drop empties, dedupe, sort.
// The result is a deterministic superset of both inputs.
func UnionTags(current string, additions ...string) string {
	entries := strings.Split(current, ",")
	entries = append(entries, additions...)
	for i := range entries {
		entries[i] = strings.TrimSpace(entries[i])
	}
	return strings.Join(clean.List(entries), inventory.TagDelimiter)
}

// MergeField unions additions into the asset's named accumulating field.
func MergeField(a *inventory.Asset, name string, additions ...string) {
	a.SetField(name, UnionTags(a.Field(name), additions...))
}

// AssignMACSlots places new MAC addresses into the asset's free slots:
// MACs already occupying a slot are dropped, the rest are sorted and
// assigned to empty slots in pool order until either list runs out. MACs
// beyond capacity are discarded. Occupied slots are never rewritten.
// Returns the MACs that were actually placed.
func AssignMACSlots(a *inventory.Asset, macs []string) []string {
	if a.Fields == nil || len(macs) == 0 {
		return nil
	}

	occupied := make(map[string]struct{})
	for _, have := range a.MACs() {
		occupied[have] = struct{}{}
	}

	var fresh []string
	for _, mac := range macs {
		mac = strings.ToUpper(strings.TrimSpace(mac))
		if mac == "" {
			continue
		}
		if _, taken := occupied[mac]; taken {
			continue
		}
		occupied[mac] = struct{}{}
		fresh = append(fresh, mac)
	}
	if len(fresh) == 0 {
		return nil
	}
	fresh = clean.List(fresh)

	var empty []*inventory.CustomField
	for _, slot := range a.Fields.MACSlots() {
		if slot.Value == "" {
			empty = append(empty, slot)
		}
	}

	var placed []string
	for i, mac := range fresh {
		if i >= len(empty) {
			break
		}
		empty[i].Value = mac
		placed = append(placed, mac)
	}
	return placed
}
