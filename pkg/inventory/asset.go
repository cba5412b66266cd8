package inventory

import (
	"context"
	"fmt"
	"html"
	"net/http"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"github.com/ferrumhealth/assetsync/pkg/errors"
	"github.com/ferrumhealth/assetsync/pkg/logging"
)

// Asset is a hardware record in the asset-of-record service.
type Asset struct {
	record

	AssetTag string
	Serial   string

	StatusID      int
	ModelID       int
	LocationID    int
	RTDLocationID int
	SupplierID    int

	PurchaseDate   string
	PurchaseCost   float64
	OrderNumber    string
	Notes          string
	WarrantyMonths int

	Archived    bool
	Requestable bool
	BYOD        bool

	// Read-only projections of remote relations, never written back.
	StatusName     string
	ModelName      string
	AssignedToID   int
	AssignedToName string

	Fields *CustomFields
}

// NewAsset returns an unidentified asset with the session's custom-field
// slots.
func (s *Session) NewAsset() *Asset {
	return &Asset{Fields: s.newFields()}
}

// Endpoint returns the hardware collection endpoint.
func (a *Asset) Endpoint() string { return "hardware" }

// Payload serializes the asset. Identity and classification fields are
// always present; descriptive fields only when set, so creating a sparse
// record does not null out server-side defaults. Custom-field columns are
// always carried in full.
func (a *Asset) Payload() map[string]any {
	p := map[string]any{
		"asset_tag": a.AssetTag,
		"name":      a.Name,
		"status_id": a.StatusID,
		"model_id":  a.ModelID,
	}

	if a.Serial != "" {
		p["serial"] = a.Serial
	}
	if a.PurchaseDate != "" {
		p["purchase_date"] = a.PurchaseDate
	}
	if a.PurchaseCost != 0 {
		p["purchase_cost"] = a.PurchaseCost
	}
	if a.OrderNumber != "" {
		p["order_number"] = a.OrderNumber
	}
	if a.Notes != "" {
		p["notes"] = a.Notes
	}
	if a.WarrantyMonths != 0 {
		p["warranty_months"] = a.WarrantyMonths
	}
	if a.LocationID != 0 {
		p["location_id"] = a.LocationID
	}
	if a.RTDLocationID != 0 {
		p["rtd_location_id"] = a.RTDLocationID
	}
	if a.SupplierID != 0 {
		p["supplier_id"] = a.SupplierID
	}
	if a.Archived {
		p["archived"] = true
	}
	if a.Requestable {
		p["requestable"] = true
	}
	if a.BYOD {
		p["byod"] = true
	}

	if a.Fields != nil {
		for column, value := range a.Fields.Columns() {
			p[column] = value
		}
	}
	return p
}

// Populate fills the asset from a remote hardware row and stores the state
// snapshot so subsequent upserts diff against what the service returned.
func (a *Asset) Populate(raw json.RawMessage) error {
	r, err := decodeRow(raw)
	if err != nil {
		return errors.NewContractError("hardware", "", string(raw))
	}

	a.ID = r.fieldInt("id")
	a.Name = html.UnescapeString(r.fieldString("name"))
	a.AssetTag = r.fieldString("asset_tag")
	a.Serial = r.fieldString("serial")

	a.StatusID = r.fieldRef("status_label")
	a.StatusName = r.fieldRefName("status_label")
	a.ModelID = r.fieldRef("model")
	a.ModelName = r.fieldRefName("model")
	a.LocationID = r.fieldRef("location")
	a.RTDLocationID = r.fieldRef("rtd_location")
	a.SupplierID = r.fieldRef("supplier")
	a.AssignedToID = r.fieldRef("assigned_to")
	a.AssignedToName = r.fieldRefName("assigned_to")

	a.PurchaseDate = r.fieldDate("purchase_date")
	a.PurchaseCost = r.fieldFloat("purchase_cost")
	a.OrderNumber = r.fieldString("order_number")
	a.Notes = html.UnescapeString(r.fieldString("notes"))
	a.WarrantyMonths = r.fieldInt("warranty_months")

	a.Archived = r.fieldBool("archived")
	a.Requestable = r.fieldBool("requestable")
	a.BYOD = r.fieldBool("byod")

	a.CreatedAt = r.fieldDate("created_at")
	a.UpdatedAt = r.fieldDate("updated_at")

	if a.Fields != nil {
		if err := a.populateFields(r); err != nil {
			return err
		}
	}

	StoreState(a)
	return nil
}

// populateFields maps the remote custom_fields object onto the asset's
// slots. The remote shape is name → {field, value, field_format}.
func (a *Asset) populateFields(r row) error {
	raw, ok := r["custom_fields"]
	if !ok {
		return nil
	}

	var remote map[string]struct {
		Field  string          `json:"field"`
		Value  json.RawMessage `json:"value"`
		Format string          `json:"field_format"`
	}
	if err := json.Unmarshal(raw, &remote); err != nil {
		// An empty custom_fields object arrives as [] on some versions.
		return nil
	}

	for _, entry := range remote {
		a.Fields.SetColumn(entry.Field, rawToString(entry.Value))
	}
	return nil
}

// rawToString renders a remote scalar as a string; null becomes empty.
func rawToString(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return strconv.FormatFloat(n, 'f', -1, 64)
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		if b {
			return "true"
		}
		return "false"
	}
	return strings.Trim(string(raw), `"`)
}

// Field returns the named custom-field value.
func (a *Asset) Field(name string) string {
	if a.Fields == nil {
		return ""
	}
	return a.Fields.Get(name)
}

// SetField stores a custom-field value under its human name, applying the
// field's format coercion.
func (a *Asset) SetField(name, value string) {
	if a.Fields == nil {
		return
	}
	a.Fields.Set(name, value)
}

// MACs returns the MAC addresses occupying the asset's slots.
func (a *Asset) MACs() []string {
	if a.Fields == nil {
		return nil
	}
	return a.Fields.MACs()
}

// HasMAC reports whether any slot holds mac, compared case-insensitively.
func (a *Asset) HasMAC(mac string) bool {
	mac = strings.ToUpper(strings.TrimSpace(mac))
	if mac == "" {
		return false
	}
	for _, have := range a.MACs() {
		if have == mac {
			return true
		}
	}
	return false
}

// FindAssetBySerial resolves an asset by its serial number through the
// dedicated byserial endpoint. Returns nil without error when no record
// matches; more than one match is an AmbiguousMatchError.
func FindAssetBySerial(ctx context.Context, s *Session, serial string) (*Asset, error) {
	serial = strings.TrimSpace(serial)
	if serial == "" {
		return nil, nil
	}

	raw, err := s.api.Call(ctx, http.MethodGet, "hardware/byserial/"+serial, nil)
	if err != nil {
		return nil, err
	}

	var page struct {
		Total int               `json:"total"`
		Rows  []json.RawMessage `json:"rows"`
	}
	if err := json.Unmarshal(raw, &page); err != nil {
		return nil, errors.NewContractError("hardware/byserial", "total", string(raw))
	}

	switch page.Total {
	case 0:
		return nil, nil
	case 1:
		asset := s.NewAsset()
		if err := asset.Populate(page.Rows[0]); err != nil {
			return nil, err
		}
		return asset, nil
	default:
		return nil, errors.NewAmbiguousMatchError("serial", serial, page.Total)
	}
}

// FindAssetByTag resolves an asset by its asset tag through the dedicated
// bytag endpoint, which answers with a single object when the tag exists.
func FindAssetByTag(ctx context.Context, s *Session, tag string) (*Asset, error) {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return nil, nil
	}

	raw, err := s.api.Call(ctx, http.MethodGet, "hardware/bytag/"+tag, nil)
	if err != nil {
		return nil, err
	}

	r, err := decodeRow(raw)
	if err != nil {
		return nil, errors.NewContractError("hardware/bytag", "", string(raw))
	}
	if _, ok := r["id"]; !ok {
		return nil, nil
	}

	asset := s.NewAsset()
	if err := asset.Populate(raw); err != nil {
		return nil, err
	}
	return asset, nil
}

// FindAssetByMAC resolves an asset holding mac in one of its MAC slots. The
// free-text search over-matches (it also hits notes and partial values), so
// every candidate row is verified against its actual slots before it counts.
func FindAssetByMAC(ctx context.Context, s *Session, mac string) (*Asset, error) {
	mac = strings.ToUpper(strings.TrimSpace(mac))
	if mac == "" {
		return nil, nil
	}

	page, err := s.api.Search(ctx, "hardware", mac)
	if err != nil {
		return nil, err
	}

	var matches []*Asset
	for _, row := range page.Rows {
		asset := s.NewAsset()
		if err := asset.Populate(row); err != nil {
			return nil, err
		}
		if asset.HasMAC(mac) {
			matches = append(matches, asset)
		}
	}

	switch len(matches) {
	case 0:
		return nil, nil
	case 1:
		return matches[0], nil
	default:
		return nil, errors.NewAmbiguousMatchError("mac", mac, len(matches))
	}
}

// FindAssetByName resolves an asset by exact name. Search is substring-based
// on the remote side, so results are filtered to exact, case-insensitive,
// unescaped matches.
func FindAssetByName(ctx context.Context, s *Session, name string) (*Asset, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, nil
	}

	page, err := s.api.Search(ctx, "hardware", name)
	if err != nil {
		return nil, err
	}

	var matches []*Asset
	for _, row := range page.Rows {
		asset := s.NewAsset()
		if err := asset.Populate(row); err != nil {
			return nil, err
		}
		if strings.EqualFold(asset.Name, name) {
			matches = append(matches, asset)
		}
	}

	switch len(matches) {
	case 0:
		return nil, nil
	case 1:
		return matches[0], nil
	default:
		return nil, errors.NewAmbiguousMatchError("name", name, len(matches))
	}
}

// CheckoutToUser assigns the asset to a user.
func (a *Asset) CheckoutToUser(ctx context.Context, s *Session, userID int) error {
	if !a.Identified() {
		return errors.NewValidationError("id", a.ID, "cannot check out an unsaved asset")
	}
	endpoint := fmt.Sprintf("hardware/%d/checkout", a.ID)
	_, err := s.api.Mutate(ctx, http.MethodPost, endpoint, map[string]any{
		"checkout_to_type": "user",
		"assigned_user":    userID,
	})
	if err != nil {
		return errors.NewResourceError("checkout", "hardware", strconv.Itoa(a.ID), err)
	}
	a.AssignedToID = userID
	logging.Ctx(ctx).Info().Int("asset_id", a.ID).Int("user_id", userID).Msg("Checked out asset")
	return nil
}

// Checkin releases the asset from its current assignment.
func (a *Asset) Checkin(ctx context.Context, s *Session) error {
	if !a.Identified() {
		return errors.NewValidationError("id", a.ID, "cannot check in an unsaved asset")
	}
	endpoint := fmt.Sprintf("hardware/%d/checkin", a.ID)
	if _, err := s.api.Mutate(ctx, http.MethodPost, endpoint, nil); err != nil {
		return errors.NewResourceError("checkin", "hardware", strconv.Itoa(a.ID), err)
	}
	a.AssignedToID = 0
	a.AssignedToName = ""
	logging.Ctx(ctx).Info().Int("asset_id", a.ID).Msg("Checked in asset")
	return nil
}
