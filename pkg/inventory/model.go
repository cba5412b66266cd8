package inventory

import (
	"context"
	"html"
	"strings"

	"github.com/goccy/go-json"

	"github.com/ferrumhealth/assetsync/pkg/clean"
	"github.com/ferrumhealth/assetsync/pkg/errors"
)

// Model is a hardware model definition: the link between an asset and its
// manufacturer, category and fieldset.
type Model struct {
	record

	ModelNumber    string
	ManufacturerID int
	CategoryID     int
	FieldsetID     int

	ManufacturerName string
	CategoryName     string
}

// Endpoint returns the models collection endpoint.
func (m *Model) Endpoint() string { return "models" }

// Payload serializes the model. The fieldset link is optional; everything
// else is required by the remote service.
func (m *Model) Payload() map[string]any {
	p := map[string]any{
		"name":            m.Name,
		"manufacturer_id": m.ManufacturerID,
		"category_id":     m.CategoryID,
	}
	if m.ModelNumber != "" {
		p["model_number"] = m.ModelNumber
	}
	if m.FieldsetID != 0 {
		p["fieldset_id"] = m.FieldsetID
	}
	return p
}

// Populate fills the model from a remote row.
func (m *Model) Populate(raw json.RawMessage) error {
	r, err := decodeRow(raw)
	if err != nil {
		return errors.NewContractError("models", "", string(raw))
	}

	m.ID = r.fieldInt("id")
	m.Name = html.UnescapeString(r.fieldString("name"))
	m.ModelNumber = r.fieldString("model_number")
	m.ManufacturerID = r.fieldRef("manufacturer")
	m.ManufacturerName = r.fieldRefName("manufacturer")
	m.CategoryID = r.fieldRef("category")
	m.CategoryName = r.fieldRefName("category")
	m.FieldsetID = r.fieldRef("fieldset")
	m.CreatedAt = r.fieldDate("created_at")
	m.UpdatedAt = r.fieldDate("updated_at")

	StoreState(m)
	return nil
}

// FindModelByName resolves a model whose name or model number matches
// exactly, case-insensitively. Free-text search over-matches, so rows are
// verified before they count; the first verified match wins.
func FindModelByName(ctx context.Context, s *Session, name string) (*Model, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, nil
	}
	if id, ok := s.modelIDs[strings.ToLower(name)]; ok {
		return s.Model(ctx, id)
	}

	page, err := s.api.Search(ctx, "models", name)
	if err != nil {
		return nil, err
	}
	for _, row := range page.Rows {
		model := &Model{}
		if err := model.Populate(row); err != nil {
			return nil, err
		}
		if strings.EqualFold(model.Name, name) || strings.EqualFold(model.ModelNumber, name) {
			s.rememberModel(model)
			return model, nil
		}
	}
	return nil, nil
}

// Manufacturer is a hardware vendor.
type Manufacturer struct {
	record
	URL        string
	SupportURL string
}

// Endpoint returns the manufacturers collection endpoint.
func (m *Manufacturer) Endpoint() string { return "manufacturers" }

func (m *Manufacturer) Payload() map[string]any {
	p := map[string]any{"name": m.Name}
	if m.URL != "" {
		p["url"] = m.URL
	}
	if m.SupportURL != "" {
		p["support_url"] = m.SupportURL
	}
	return p
}

func (m *Manufacturer) Populate(raw json.RawMessage) error {
	r, err := decodeRow(raw)
	if err != nil {
		return errors.NewContractError("manufacturers", "", string(raw))
	}
	m.ID = r.fieldInt("id")
	m.Name = html.UnescapeString(r.fieldString("name"))
	m.URL = r.fieldString("url")
	m.SupportURL = r.fieldString("support_url")
	m.CreatedAt = r.fieldDate("created_at")
	m.UpdatedAt = r.fieldDate("updated_at")

	StoreState(m)
	return nil
}

// FindManufacturerByName resolves a manufacturer by its canonical name. The
// raw vendor string is normalized first, so "Hewlett-Packard" and "HP Inc."
// resolve to the same record.
func FindManufacturerByName(ctx context.Context, s *Session, name string) (*Manufacturer, error) {
	name = clean.Manufacturer(name)
	if name == "" {
		return nil, nil
	}
	if id, ok := s.manufacturerIDs[strings.ToLower(name)]; ok {
		return s.Manufacturer(ctx, id)
	}

	page, err := s.api.Search(ctx, "manufacturers", name)
	if err != nil {
		return nil, err
	}
	for _, row := range page.Rows {
		m := &Manufacturer{}
		if err := m.Populate(row); err != nil {
			return nil, err
		}
		if strings.EqualFold(m.Name, name) {
			s.rememberManufacturer(m)
			return m, nil
		}
	}
	return nil, nil
}

// EnsureManufacturer resolves a manufacturer, creating it when absent.
func EnsureManufacturer(ctx context.Context, s *Session, name string) (*Manufacturer, error) {
	name = clean.Manufacturer(name)
	if name == "" {
		return nil, errors.NewValidationError("manufacturer", name, "empty after normalization")
	}

	m, err := FindManufacturerByName(ctx, s, name)
	if err != nil || m != nil {
		return m, err
	}

	m = &Manufacturer{record: record{Name: name}}
	if err := Create(ctx, s, m); err != nil {
		return nil, err
	}
	s.rememberManufacturer(m)
	return m, nil
}

// Category classifies assets (Workstation, Laptop, Server, ...).
type Category struct {
	record
	CategoryType string
}

// Endpoint returns the categories collection endpoint. The client maps the
// singular form, so either spelling reaches the same place.
func (c *Category) Endpoint() string { return "categories" }

func (c *Category) Payload() map[string]any {
	categoryType := c.CategoryType
	if categoryType == "" {
		categoryType = "asset"
	}
	return map[string]any{
		"name":          c.Name,
		"category_type": categoryType,
	}
}

func (c *Category) Populate(raw json.RawMessage) error {
	r, err := decodeRow(raw)
	if err != nil {
		return errors.NewContractError("categories", "", string(raw))
	}
	c.ID = r.fieldInt("id")
	c.Name = html.UnescapeString(r.fieldString("name"))
	c.CategoryType = r.fieldString("category_type")
	c.CreatedAt = r.fieldDate("created_at")
	c.UpdatedAt = r.fieldDate("updated_at")

	StoreState(c)
	return nil
}

// FindCategoryByName resolves a category by exact name.
func FindCategoryByName(ctx context.Context, s *Session, name string) (*Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, nil
	}

	page, err := s.api.Search(ctx, "categories", name)
	if err != nil {
		return nil, err
	}
	for _, row := range page.Rows {
		c := &Category{}
		if err := c.Populate(row); err != nil {
			return nil, err
		}
		if strings.EqualFold(c.Name, name) {
			return c, nil
		}
	}
	return nil, nil
}

// FieldSet groups custom-field definitions; models point at one.
type FieldSet struct {
	record
}

// Endpoint returns the fieldsets collection endpoint.
func (f *FieldSet) Endpoint() string { return "fieldsets" }

func (f *FieldSet) Payload() map[string]any {
	return map[string]any{"name": f.Name}
}

func (f *FieldSet) Populate(raw json.RawMessage) error {
	r, err := decodeRow(raw)
	if err != nil {
		return errors.NewContractError("fieldsets", "", string(raw))
	}
	f.ID = r.fieldInt("id")
	f.Name = html.UnescapeString(r.fieldString("name"))
	f.CreatedAt = r.fieldDate("created_at")
	f.UpdatedAt = r.fieldDate("updated_at")

	StoreState(f)
	return nil
}

// FindFieldSetByName resolves a fieldset by exact name. The fieldsets
// endpoint has no search parameter, so the full (small) list is scanned.
func FindFieldSetByName(ctx context.Context, s *Session, name string) (*FieldSet, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, nil
	}

	page, err := s.api.List(ctx, "fieldsets")
	if err != nil {
		return nil, err
	}
	for _, row := range page.Rows {
		f := &FieldSet{}
		if err := f.Populate(row); err != nil {
			return nil, err
		}
		if strings.EqualFold(f.Name, name) {
			return f, nil
		}
	}
	return nil, nil
}

// StatusLabel is a lifecycle state an asset can be in.
type StatusLabel struct {
	record
	StatusType string
}

// Endpoint returns the statuslabels collection endpoint.
func (l *StatusLabel) Endpoint() string { return "statuslabels" }

func (l *StatusLabel) Payload() map[string]any {
	statusType := l.StatusType
	if statusType == "" {
		statusType = "deployable"
	}
	return map[string]any{
		"name": l.Name,
		"type": statusType,
	}
}

func (l *StatusLabel) Populate(raw json.RawMessage) error {
	r, err := decodeRow(raw)
	if err != nil {
		return errors.NewContractError("statuslabels", "", string(raw))
	}
	l.ID = r.fieldInt("id")
	l.Name = html.UnescapeString(r.fieldString("name"))
	l.StatusType = r.fieldString("type")
	l.CreatedAt = r.fieldDate("created_at")
	l.UpdatedAt = r.fieldDate("updated_at")

	StoreState(l)
	return nil
}

// FindStatusLabelByName resolves a status label by exact name.
func FindStatusLabelByName(ctx context.Context, s *Session, name string) (*StatusLabel, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, nil
	}

	page, err := s.api.List(ctx, "statuslabels")
	if err != nil {
		return nil, err
	}
	for _, row := range page.Rows {
		l := &StatusLabel{}
		if err := l.Populate(row); err != nil {
			return nil, err
		}
		if strings.EqualFold(l.Name, name) {
			return l, nil
		}
	}
	return nil, nil
}
