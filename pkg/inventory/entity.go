// Package inventory provides typed representations of the remote
// asset-of-record objects (assets, models, manufacturers, users, ...) with
// per-field serialization rules, lazy id-based cross-reference resolution
// through a per-run Session, and snapshot/diff support so that writes only
// carry the fields that actually changed.
package inventory

import (
	"context"
	"fmt"
	"html"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/ferrumhealth/assetsync/pkg/errors"
	"github.com/ferrumhealth/assetsync/pkg/logging"
)

// Entity is a remote object that can be serialized, diffed and written
// back. Implementations hold a numeric remote id; an id of zero means the
// entity only exists in memory and an upsert will create it.
type Entity interface {
	// EntityID returns the bound remote id, or 0 when unidentified.
	EntityID() int

	// Endpoint returns the collection endpoint, e.g. "hardware".
	Endpoint() string

	// Payload returns the serializable form of the entity, honoring each
	// field's serialization rule.
	Payload() map[string]any

	// Populate fills the entity from a remote row.
	Populate(row json.RawMessage) error

	// snapshot accessors are package-internal: all entities live here.
	storedState() map[string]any
	storeState(state map[string]any)
}

// record carries the fields and snapshot state shared by every entity.
type record struct {
	ID   int
	Name string

	// Remote bookkeeping, never serialized back.
	CreatedAt string
	UpdatedAt string

	snapshot map[string]any
}

// EntityID returns the bound remote id, or 0 when unidentified.
func (r *record) EntityID() int { return r.ID }

func (r *record) storedState() map[string]any     { return r.snapshot }
func (r *record) storeState(state map[string]any) { r.snapshot = state }

// Identified reports whether the entity is bound to a remote record.
func (r *record) Identified() bool { return r.ID > 0 }

// StoreState captures the entity's current serializable form. A later
// Upsert diffs against this snapshot and only writes the difference.
func StoreState(e Entity) {
	e.storeState(e.Payload())
}

// Changed reports whether the entity's current serializable form differs
// from its stored snapshot. Unsaved entities always count as changed.
func Changed(e Entity) bool {
	if e.EntityID() == 0 {
		return true
	}
	return len(diffState(e.storedState(), e.Payload())) > 0
}

// Upsert writes the entity to the remote service. With a bound id it sends
// a partial update containing only fields that differ from the stored
// snapshot, skipping the network entirely when nothing changed. Without an
// id it creates the record with the full serializable form.
func Upsert(ctx context.Context, s *Session, e Entity) error {
	if e.EntityID() == 0 {
		return Create(ctx, s, e)
	}

	diff := diffState(e.storedState(), e.Payload())
	if len(diff) == 0 {
		logging.Ctx(ctx).Debug().Str("endpoint", e.Endpoint()).Int("id", e.EntityID()).Msg("No changes to save")
		return nil
	}

	endpoint := fmt.Sprintf("%s/%d", e.Endpoint(), e.EntityID())
	payload, err := s.api.Mutate(ctx, http.MethodPatch, endpoint, diff)
	if err != nil {
		return errors.NewResourceError("update", e.Endpoint(), strconv.Itoa(e.EntityID()), err)
	}
	return e.Populate(payload)
}

// Create creates the entity remotely and populates it from the response,
// binding its id.
func Create(ctx context.Context, s *Session, e Entity) error {
	if e.EntityID() != 0 {
		logging.Ctx(ctx).Debug().Str("endpoint", e.Endpoint()).Int("id", e.EntityID()).Msg("Object already exists")
		return nil
	}

	payload, err := s.api.Mutate(ctx, http.MethodPost, e.Endpoint(), e.Payload())
	if err != nil {
		return errors.NewResourceError("create", e.Endpoint(), "", err)
	}
	return e.Populate(payload)
}

// diffState returns the subset of current whose values differ from the
// snapshot. HTML-escaping differences are not differences: the remote
// service escapes text fields on the way out.
func diffState(snapshot, current map[string]any) map[string]any {
	diff := make(map[string]any)
	for key, value := range current {
		old, ok := snapshot[key]
		if !ok || !stateEqual(old, value) {
			diff[key] = value
		}
	}
	return diff
}

// stateEqual compares two serialized values, unescaping HTML entities so
// that "AT&amp;T" and "AT&T" compare equal.
func stateEqual(a, b any) bool {
	as, aok := a.(string)
	bs, bok := b.(string)
	if aok && bok {
		return html.UnescapeString(as) == html.UnescapeString(bs)
	}
	return fmt.Sprintf("%v", a) == fmt.Sprintf("%v", b)
}

// row is the intermediate decoded form of a remote object.
type row map[string]json.RawMessage

func decodeRow(raw json.RawMessage) (row, error) {
	var r row
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, err
	}
	return r, nil
}

// Central coercion helpers. Remote rows carry inconsistently typed values:
// numbers as strings with currency noise, dates as bare strings or
// {date, formatted} wrappers, relations as {id, name} sub-objects. Each
// helper coerces one declared semantic type.

// fieldString extracts a trimmed string.
func (r row) fieldString(key string) string {
	raw, ok := r[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	// Tolerate numeric values where strings are expected.
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return strconv.FormatFloat(n, 'f', -1, 64)
	}
	return ""
}

// fieldInt extracts an integer, accepting numeric strings with separators.
func (r row) fieldInt(key string) int {
	raw, ok := r[key]
	if !ok {
		return 0
	}
	var n int
	if err := json.Unmarshal(raw, &n); err == nil {
		return n
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return int(f)
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return coerceInt(s)
	}
	return 0
}

// fieldFloat extracts a float, accepting currency-formatted strings.
func (r row) fieldFloat(key string) float64 {
	raw, ok := r[key]
	if !ok {
		return 0
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return coerceFloat(s)
	}
	return 0
}

// fieldBool extracts a boolean.
func (r row) fieldBool(key string) bool {
	raw, ok := r[key]
	if !ok {
		return false
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return b
	}
	return false
}

// fieldRef extracts the id from an {id, name, ...} sub-object, or a bare
// numeric id.
func (r row) fieldRef(key string) int {
	raw, ok := r[key]
	if !ok {
		return 0
	}
	var ref struct {
		ID int `json:"id"`
	}
	if err := json.Unmarshal(raw, &ref); err == nil && ref.ID != 0 {
		return ref.ID
	}
	var n int
	if err := json.Unmarshal(raw, &n); err == nil {
		return n
	}
	return 0
}

// fieldRefName extracts the name from an {id, name} sub-object.
func (r row) fieldRefName(key string) string {
	raw, ok := r[key]
	if !ok {
		return ""
	}
	var ref struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(raw, &ref); err == nil {
		return html.UnescapeString(ref.Name)
	}
	return ""
}

// fieldDate extracts a date, accepting bare strings, ISO datetimes and
// {date, datetime, formatted} wrappers, normalized to YYYY-MM-DD.
func (r row) fieldDate(key string) string {
	raw, ok := r[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return coerceDate(s)
	}
	var wrapper struct {
		Date     string `json:"date"`
		Datetime string `json:"datetime"`
	}
	if err := json.Unmarshal(raw, &wrapper); err == nil {
		if wrapper.Date != "" {
			return coerceDate(wrapper.Date)
		}
		return coerceDate(wrapper.Datetime)
	}
	return ""
}

// CoerceInt parses an int out of raw input, dropping grouping separators
// and unit suffixes ("36 months" parses as 36).
func CoerceInt(s string) int { return coerceInt(s) }

// CoerceFloat parses a float out of raw input, tolerating currency noise
// ("$1,234.50" parses as 1234.5).
func CoerceFloat(s string) float64 { return coerceFloat(s) }

// CoerceDate normalizes raw date input to YYYY-MM-DD.
func CoerceDate(s string) string { return coerceDate(s) }

// coerceInt parses an int out of a string, dropping grouping separators and
// unit suffixes ("36 months" parses as 36).
func coerceInt(s string) int {
	s = strings.TrimSpace(strings.ReplaceAll(strings.ReplaceAll(s, ",", ""), "$", ""))
	if s == "" || s == "None" {
		return 0
	}
	if idx := strings.IndexByte(s, ' '); idx >= 0 {
		s = s[:idx]
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return int(f)
}

// coerceFloat parses a float out of a string, keeping only digits and the
// decimal point so that "$1,234.50" parses as 1234.5.
func coerceFloat(s string) float64 {
	var b strings.Builder
	for _, c := range s {
		if (c >= '0' && c <= '9') || c == '.' {
			b.WriteRune(c)
		}
	}
	f, err := strconv.ParseFloat(b.String(), 64)
	if err != nil {
		return 0
	}
	return f
}

// coerceDate normalizes a date string to YYYY-MM-DD. The remote service
// returns ISO datetimes but expects bare dates back.
func coerceDate(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if strings.HasSuffix(s, "Z") {
		s = s[:len(s)-1] + "+00:00"
	}
	for _, layout := range []string{
		"2006-01-02T15:04:05-07:00",
		"2006-01-02T15:04:05.999999-07:00",
		"2006-01-02 15:04:05",
		"2006-01-02",
	} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("2006-01-02")
		}
	}
	return s
}
