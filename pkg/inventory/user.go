package inventory

import (
	"context"
	"html"
	"net/http"
	"strings"

	"github.com/goccy/go-json"

	"github.com/ferrumhealth/assetsync/pkg/clean"
	"github.com/ferrumhealth/assetsync/pkg/errors"
)

// User is a person assets can be checked out to.
type User struct {
	record

	Username  string
	FirstName string
	LastName  string
	Email     string
	Employee  string

	DepartmentID   int
	DepartmentName string
	CompanyID      int
	LocationID     int
}

// Endpoint returns the users collection endpoint.
func (u *User) Endpoint() string { return "users" }

func (u *User) Payload() map[string]any {
	p := map[string]any{
		"username":   u.Username,
		"first_name": u.FirstName,
	}
	if u.LastName != "" {
		p["last_name"] = u.LastName
	}
	if u.Email != "" {
		p["email"] = u.Email
	}
	if u.Employee != "" {
		p["employee_num"] = u.Employee
	}
	if u.DepartmentID != 0 {
		p["department_id"] = u.DepartmentID
	}
	if u.CompanyID != 0 {
		p["company_id"] = u.CompanyID
	}
	if u.LocationID != 0 {
		p["location_id"] = u.LocationID
	}
	return p
}

func (u *User) Populate(raw json.RawMessage) error {
	r, err := decodeRow(raw)
	if err != nil {
		return errors.NewContractError("users", "", string(raw))
	}
	u.ID = r.fieldInt("id")
	u.Name = html.UnescapeString(r.fieldString("name"))
	u.Username = r.fieldString("username")
	u.FirstName = html.UnescapeString(r.fieldString("first_name"))
	u.LastName = html.UnescapeString(r.fieldString("last_name"))
	u.Email = r.fieldString("email")
	u.Employee = r.fieldString("employee_num")
	u.DepartmentID = r.fieldRef("department")
	u.DepartmentName = r.fieldRefName("department")
	u.CompanyID = r.fieldRef("company")
	u.LocationID = r.fieldRef("location")
	u.CreatedAt = r.fieldDate("created_at")
	u.UpdatedAt = r.fieldDate("updated_at")

	StoreState(u)
	return nil
}

// FindUserByUsername resolves a user by exact username. Service-account and
// placeholder names are rejected by normalization before any request.
func FindUserByUsername(ctx context.Context, s *Session, username string) (*User, error) {
	username = clean.User(username)
	if username == "" {
		return nil, nil
	}
	if id, ok := s.userIDs[strings.ToLower(username)]; ok {
		return s.User(ctx, id)
	}

	raw, err := s.api.Call(ctx, http.MethodGet, "users", map[string]any{"username": username})
	if err != nil {
		return nil, err
	}

	var page struct {
		Total int               `json:"total"`
		Rows  []json.RawMessage `json:"rows"`
	}
	if err := json.Unmarshal(raw, &page); err != nil {
		return nil, errors.NewContractError("users", "total", string(raw))
	}

	for _, row := range page.Rows {
		u := &User{}
		if err := u.Populate(row); err != nil {
			return nil, err
		}
		if strings.EqualFold(u.Username, username) {
			s.rememberUser(u)
			return u, nil
		}
	}
	return nil, nil
}

// Department is an organizational unit users belong to.
type Department struct {
	record
	CompanyID  int
	LocationID int
}

// Endpoint returns the departments collection endpoint.
func (d *Department) Endpoint() string { return "departments" }

func (d *Department) Payload() map[string]any {
	p := map[string]any{"name": d.Name}
	if d.CompanyID != 0 {
		p["company_id"] = d.CompanyID
	}
	if d.LocationID != 0 {
		p["location_id"] = d.LocationID
	}
	return p
}

func (d *Department) Populate(raw json.RawMessage) error {
	r, err := decodeRow(raw)
	if err != nil {
		return errors.NewContractError("departments", "", string(raw))
	}
	d.ID = r.fieldInt("id")
	d.Name = html.UnescapeString(r.fieldString("name"))
	d.CompanyID = r.fieldRef("company")
	d.LocationID = r.fieldRef("location")
	d.CreatedAt = r.fieldDate("created_at")
	d.UpdatedAt = r.fieldDate("updated_at")

	StoreState(d)
	return nil
}

// FindDepartmentByName resolves a department by exact name.
func FindDepartmentByName(ctx context.Context, s *Session, name string) (*Department, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, nil
	}

	page, err := s.api.Search(ctx, "departments", name)
	if err != nil {
		return nil, err
	}
	for _, row := range page.Rows {
		d := &Department{}
		if err := d.Populate(row); err != nil {
			return nil, err
		}
		if strings.EqualFold(d.Name, name) {
			return d, nil
		}
	}
	return nil, nil
}

// Company is a legal entity assets and users belong to.
type Company struct {
	record
}

// Endpoint returns the companies collection endpoint. The client maps the
// singular form.
func (c *Company) Endpoint() string { return "companies" }

func (c *Company) Payload() map[string]any {
	return map[string]any{"name": c.Name}
}

func (c *Company) Populate(raw json.RawMessage) error {
	r, err := decodeRow(raw)
	if err != nil {
		return errors.NewContractError("companies", "", string(raw))
	}
	c.ID = r.fieldInt("id")
	c.Name = html.UnescapeString(r.fieldString("name"))
	c.CreatedAt = r.fieldDate("created_at")
	c.UpdatedAt = r.fieldDate("updated_at")

	StoreState(c)
	return nil
}

// Location is a physical site.
type Location struct {
	record
	Address  string
	City     string
	State    string
	Country  string
	ParentID int
}

// Endpoint returns the locations collection endpoint.
func (l *Location) Endpoint() string { return "locations" }

func (l *Location) Payload() map[string]any {
	p := map[string]any{"name": l.Name}
	if l.Address != "" {
		p["address"] = l.Address
	}
	if l.City != "" {
		p["city"] = l.City
	}
	if l.State != "" {
		p["state"] = l.State
	}
	if l.Country != "" {
		p["country"] = l.Country
	}
	if l.ParentID != 0 {
		p["parent_id"] = l.ParentID
	}
	return p
}

func (l *Location) Populate(raw json.RawMessage) error {
	r, err := decodeRow(raw)
	if err != nil {
		return errors.NewContractError("locations", "", string(raw))
	}
	l.ID = r.fieldInt("id")
	l.Name = html.UnescapeString(r.fieldString("name"))
	l.Address = r.fieldString("address")
	l.City = r.fieldString("city")
	l.State = r.fieldString("state")
	l.Country = r.fieldString("country")
	l.ParentID = r.fieldRef("parent")
	l.CreatedAt = r.fieldDate("created_at")
	l.UpdatedAt = r.fieldDate("updated_at")

	StoreState(l)
	return nil
}

// FindLocationByName resolves a location by exact name.
func FindLocationByName(ctx context.Context, s *Session, name string) (*Location, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, nil
	}

	page, err := s.api.Search(ctx, "locations", name)
	if err != nil {
		return nil, err
	}
	for _, row := range page.Rows {
		l := &Location{}
		if err := l.Populate(row); err != nil {
			return nil, err
		}
		if strings.EqualFold(l.Name, name) {
			return l, nil
		}
	}
	return nil, nil
}
