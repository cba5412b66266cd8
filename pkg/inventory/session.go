package inventory

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/ferrumhealth/assetsync/pkg/errors"
	"github.com/ferrumhealth/assetsync/pkg/snipe"
)

// Session scopes one reconciliation run: it carries the API client, the
// custom-field declarations, and per-run identity caches so each remote
// object is fetched at most once and cross-references resolve to the same
// in-memory instance. Cycles in the remote graph (a user's department, the
// department's location, the location's parent) terminate because the cache
// is consulted before any fetch.
//
// A Session is not safe for concurrent use.
type Session struct {
	api       *snipe.Client
	fieldDefs []CustomFieldDef

	entities        map[entityKey]Entity
	manufacturerIDs map[string]int
	modelIDs        map[string]int
	userIDs         map[string]int
}

type entityKey struct {
	kind string
	id   int
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithFieldDefs replaces the default custom-field declarations.
func WithFieldDefs(defs []CustomFieldDef) SessionOption {
	return func(s *Session) { s.fieldDefs = defs }
}

// WithMACSlots sets the number of MAC-address columns on the default
// declarations.
func WithMACSlots(n int) SessionOption {
	return func(s *Session) { s.fieldDefs = DefaultFieldDefs(n) }
}

// NewSession builds a run-scoped session over api.
func NewSession(api *snipe.Client, opts ...SessionOption) *Session {
	s := &Session{
		api:             api,
		fieldDefs:       DefaultFieldDefs(DefaultMACSlots),
		entities:        make(map[entityKey]Entity),
		manufacturerIDs: make(map[string]int),
		modelIDs:        make(map[string]int),
		userIDs:         make(map[string]int),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// API exposes the underlying client.
func (s *Session) API() *snipe.Client { return s.api }

func (s *Session) newFields() *CustomFields {
	return NewCustomFields(s.fieldDefs)
}

// load returns the cached entity for (kind, id), fetching and populating a
// fresh one from the factory on first use.
func (s *Session) load(ctx context.Context, id int, factory func() Entity) (Entity, error) {
	if id <= 0 {
		return nil, errors.NewValidationError("id", id, "id must be positive")
	}

	e := factory()
	key := entityKey{kind: e.Endpoint(), id: id}
	if cached, ok := s.entities[key]; ok {
		return cached, nil
	}

	endpoint := fmt.Sprintf("%s/%d", e.Endpoint(), id)
	raw, err := s.api.Call(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	if err := e.Populate(raw); err != nil {
		return nil, err
	}
	if e.EntityID() == 0 {
		return nil, errors.NewResourceError("fetch", key.kind, fmt.Sprint(id), errors.ErrNotFound)
	}

	s.entities[key] = e
	return e, nil
}

// Asset fetches the asset with the given id, serving repeats from cache.
func (s *Session) Asset(ctx context.Context, id int) (*Asset, error) {
	e, err := s.load(ctx, id, func() Entity { return s.NewAsset() })
	if err != nil {
		return nil, err
	}
	return e.(*Asset), nil
}

// Model fetches the model with the given id, serving repeats from cache.
func (s *Session) Model(ctx context.Context, id int) (*Model, error) {
	e, err := s.load(ctx, id, func() Entity { return &Model{} })
	if err != nil {
		return nil, err
	}
	m := e.(*Model)
	s.rememberModel(m)
	return m, nil
}

// Manufacturer fetches the manufacturer with the given id.
func (s *Session) Manufacturer(ctx context.Context, id int) (*Manufacturer, error) {
	e, err := s.load(ctx, id, func() Entity { return &Manufacturer{} })
	if err != nil {
		return nil, err
	}
	m := e.(*Manufacturer)
	s.rememberManufacturer(m)
	return m, nil
}

// Category fetches the category with the given id.
func (s *Session) Category(ctx context.Context, id int) (*Category, error) {
	e, err := s.load(ctx, id, func() Entity { return &Category{} })
	if err != nil {
		return nil, err
	}
	return e.(*Category), nil
}

// FieldSet fetches the fieldset with the given id.
func (s *Session) FieldSet(ctx context.Context, id int) (*FieldSet, error) {
	e, err := s.load(ctx, id, func() Entity { return &FieldSet{} })
	if err != nil {
		return nil, err
	}
	return e.(*FieldSet), nil
}

// StatusLabel fetches the status label with the given id.
func (s *Session) StatusLabel(ctx context.Context, id int) (*StatusLabel, error) {
	e, err := s.load(ctx, id, func() Entity { return &StatusLabel{} })
	if err != nil {
		return nil, err
	}
	return e.(*StatusLabel), nil
}

// User fetches the user with the given id.
func (s *Session) User(ctx context.Context, id int) (*User, error) {
	e, err := s.load(ctx, id, func() Entity { return &User{} })
	if err != nil {
		return nil, err
	}
	u := e.(*User)
	s.rememberUser(u)
	return u, nil
}

// Department fetches the department with the given id.
func (s *Session) Department(ctx context.Context, id int) (*Department, error) {
	e, err := s.load(ctx, id, func() Entity { return &Department{} })
	if err != nil {
		return nil, err
	}
	return e.(*Department), nil
}

// Company fetches the company with the given id.
func (s *Session) Company(ctx context.Context, id int) (*Company, error) {
	e, err := s.load(ctx, id, func() Entity { return &Company{} })
	if err != nil {
		return nil, err
	}
	return e.(*Company), nil
}

// Location fetches the location with the given id.
func (s *Session) Location(ctx context.Context, id int) (*Location, error) {
	e, err := s.load(ctx, id, func() Entity { return &Location{} })
	if err != nil {
		return nil, err
	}
	return e.(*Location), nil
}

// Remember hooks keep the name→id side caches warm so by-name lookups skip
// the search round trip once an object has been seen.

func (s *Session) rememberModel(m *Model) {
	if m.ID > 0 && m.Name != "" {
		s.modelIDs[strings.ToLower(m.Name)] = m.ID
	}
	if m.ID > 0 && m.ModelNumber != "" {
		s.modelIDs[strings.ToLower(m.ModelNumber)] = m.ID
	}
	s.cache(m)
}

func (s *Session) rememberManufacturer(m *Manufacturer) {
	if m.ID > 0 && m.Name != "" {
		s.manufacturerIDs[strings.ToLower(m.Name)] = m.ID
	}
	s.cache(m)
}

func (s *Session) rememberUser(u *User) {
	if u.ID > 0 && u.Username != "" {
		s.userIDs[strings.ToLower(u.Username)] = u.ID
	}
	s.cache(u)
}

// cache stores an already-populated entity under its identity so later
// id-based loads reuse it.
func (s *Session) cache(e Entity) {
	if e.EntityID() > 0 {
		s.entities[entityKey{kind: e.Endpoint(), id: e.EntityID()}] = e
	}
}
