package clean

import (
	"encoding/csv"
	"io"
	"os"
	"strings"
)

// OUTable maps directory organizational units to the department and lab
// that own assets under them. Lookups walk the OU path from most to least
// specific, so "Research/Imaging/Workstations" falls back to
// "Research/Imaging" and then "Research".
type OUTable struct {
	depts map[string]string
	labs  map[string]string
}

// NewOUTable creates an empty OUTable.
func NewOUTable() *OUTable {
	return &OUTable{
		depts: make(map[string]string),
		labs:  make(map[string]string),
	}
}

// LoadOUTable reads an OU mapping from a CSV file with rows of
// ou,department,lab. The lab column is optional.
func LoadOUTable(path string) (*OUTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadOUTable(f)
}

// ReadOUTable reads an OU mapping from CSV data.
func ReadOUTable(r io.Reader) (*OUTable, error) {
	table := NewOUTable()

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if len(row) < 2 {
			continue
		}
		table.depts[row[0]] = row[1]
		if len(row) > 2 {
			table.labs[row[0]] = row[2]
		}
	}

	return table, nil
}

// Add registers an OU with its department and lab.
func (t *OUTable) Add(ou, dept, lab string) {
	t.depts[ou] = dept
	t.labs[ou] = lab
}

// Department returns the department owning the given OU, walking up the OU
// path until a mapping is found. Returns "" when no ancestor is mapped.
func (t *OUTable) Department(ou string) string {
	return lookupByPrefix(t.depts, ou)
}

// Lab returns the lab owning the given OU, walking up the OU path.
func (t *OUTable) Lab(ou string) string {
	return lookupByPrefix(t.labs, ou)
}

func lookupByPrefix(m map[string]string, ou string) string {
	for ou != "" {
		if v, ok := m[ou]; ok {
			return v
		}
		idx := strings.LastIndex(ou, "/")
		if idx < 0 {
			return ""
		}
		ou = ou[:idx]
	}
	return ""
}
