package reconcile

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ferrumhealth/assetsync/pkg/errors"
	"github.com/ferrumhealth/assetsync/pkg/inventory"
)

func TestUnionTagsIsSupersetDedupedAndSorted(t *testing.T) {
	merged := UnionTags("SCCM, Tanium", "Intune", "SCCM")
	assert.Equal(t, "Intune, SCCM, Tanium", merged)

	// Union is stable: merging again changes nothing.
	assert.Equal(t, merged, UnionTags(merged, "Intune", "Tanium"))
}

func TestUnionTagsDropsEmptyEntries(t *testing.T) {
	assert.Equal(t, "SCCM", UnionTags("", "SCCM", "", "  "))
	assert.Equal(t, "", UnionTags("", ""))
}

func newSlotAsset(t *testing.T, occupied ...string) *inventory.Asset {
	t.Helper()
	a := &inventory.Asset{Fields: inventory.NewCustomFields(inventory.DefaultFieldDefs(4))}
	slots := a.Fields.MACSlots()
	require.GreaterOrEqual(t, len(slots), len(occupied))
	for i, mac := range occupied {
		slots[i].Value = mac
	}
	return a
}

func TestAssignMACSlotsFillsEmptySlotsInOrder(t *testing.T) {
	a := newSlotAsset(t, "00:1B:44:11:22:33")

	placed := AssignMACSlots(a, []string{"D4:BE:D9:00:00:02", "D4:BE:D9:00:00:01"})
	assert.Equal(t, []string{"D4:BE:D9:00:00:01", "D4:BE:D9:00:00:02"}, placed)

	slots := a.Fields.MACSlots()
	assert.Equal(t, "00:1B:44:11:22:33", slots[0].Value, "occupied slot untouched")
	assert.Equal(t, "D4:BE:D9:00:00:01", slots[1].Value)
	assert.Equal(t, "D4:BE:D9:00:00:02", slots[2].Value)
	assert.Equal(t, "", slots[3].Value)
}

func TestAssignMACSlotsSkipsKnownMACs(t *testing.T) {
	a := newSlotAsset(t, "00:1B:44:11:22:33")

	placed := AssignMACSlots(a, []string{"00:1b:44:11:22:33"})
	assert.Empty(t, placed, "a MAC already in a slot must not be placed again")
	assert.Equal(t, []string{"00:1B:44:11:22:33"}, a.MACs())
}

func TestAssignMACSlotsDiscardsBeyondCapacity(t *testing.T) {
	a := newSlotAsset(t, "00:00:5E:00:00:01", "00:00:5E:00:00:02", "00:00:5E:00:00:03")

	placed := AssignMACSlots(a, []string{"D4:BE:D9:00:00:01", "D4:BE:D9:00:00:02"})
	assert.Equal(t, []string{"D4:BE:D9:00:00:01"}, placed)
	assert.Len(t, a.MACs(), 4)
}

func TestAssignMACSlotsNeverDuplicates(t *testing.T) {
	a := newSlotAsset(t)
	AssignMACSlots(a, []string{"D4:BE:D9:00:00:01", "d4:be:d9:00:00:01"})

	seen := map[string]int{}
	for _, mac := range a.MACs() {
		seen[mac]++
	}
	for mac, n := range seen {
		assert.Equal(t, 1, n, "MAC %s duplicated across slots", mac)
	}
	assert.Len(t, a.MACs(), 1)
}

func TestNextStatusTransitions(t *testing.T) {
	ids := DefaultStatusIDs()

	// Domain evidence deploys a pending host.
	assert.Equal(t, ids.Deployed, NextStatus(ids.Pending, ids, Evidence{Domain: "ROCHESTER"}))

	// Deployed never falls back to pending.
	assert.Equal(t, ids.Deployed, NextStatus(ids.Deployed, ids, Evidence{}))

	// Research unit with an EDR agent is compliant.
	assert.Equal(t, ids.ResearchCompliant,
		NextStatus(ids.Deployed, ids, Evidence{OrgUnit: "Research Computing/Imaging", EDR: "CrowdStrike Falcon"}))

	// Research unit without one is not.
	assert.Equal(t, ids.ResearchNonCompliant,
		NextStatus(ids.Pending, ids, Evidence{OrgUnit: "Hospital/Lab Services"}))

	// No evidence leaves the state alone.
	assert.Equal(t, ids.Pending, NextStatus(ids.Pending, ids, Evidence{}))
}

func TestIsResearchUnitMatchesSegments(t *testing.T) {
	assert.True(t, isResearchUnit("Research Computing/Imaging"))
	assert.True(t, isResearchUnit("Hospital/Lab"))
	assert.False(t, isResearchUnit("Labor Relations"))
	assert.False(t, isResearchUnit(""))
}

func TestNormalizeCleansAnchors(t *testing.T) {
	c := Candidate{
		Serial:       "To Be Filled By O.E.M.",
		AssetTag:     "  ABC123 ",
		Name:         "lab-ws-01.corp.example.com",
		MACAddresses: []string{"0A:00:27:12:34:56", "00:1B:44:11:22:33", "001b44112233"},
		Manufacturer: "hewlett-packard",
		LastUser:     `CORP\dsmith`,
		IPAddress:    "10.20.30.40",
	}.Normalize()

	assert.Equal(t, "", c.Serial, "vendor placeholder serial must be dropped")
	assert.Equal(t, "ABC123", c.AssetTag)
	assert.Equal(t, "LAB-WS-01", c.Name, "FQDN reduced to short uppercase hostname")
	assert.Equal(t, []string{"00:1B:44:11:22:33"}, c.MACAddresses, "virtual adapter rejected, duplicate collapsed")
	assert.Equal(t, "Hewlett-Packard", c.Manufacturer)
	assert.Equal(t, "dsmith", c.LastUser)
	assert.Equal(t, "10.20.30.40", c.IPAddress)
}

func TestValidateRequiresAnchor(t *testing.T) {
	empty := Candidate{Source: "scanner", OSName: "Windows 11"}.Normalize()
	err := empty.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrNoIdentity))

	ok := Candidate{Serial: "5CD1234XYZ"}.Normalize()
	assert.NoError(t, ok.Validate())
}

func TestAnchorPrecedence(t *testing.T) {
	c := Candidate{Serial: "S1", AssetTag: "T1", Name: "N1"}
	assert.Equal(t, "S1", c.Anchor())
	assert.Equal(t, "T1", Candidate{AssetTag: "T1", Name: "N1"}.Anchor())
	assert.Equal(t, "N1", Candidate{Name: "N1"}.Anchor())
}

func TestMergeFieldOnAsset(t *testing.T) {
	a := newSlotAsset(t)
	a.SetField(inventory.FieldMgmt, "SCCM")

	MergeField(a, inventory.FieldMgmt, "Tanium")
	MergeField(a, inventory.FieldMgmt, "SCCM")

	parts := strings.Split(a.Field(inventory.FieldMgmt), ", ")
	assert.Equal(t, []string{"SCCM", "Tanium"}, parts)
}
