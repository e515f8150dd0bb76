// Package refdata loads the security master: the table of listed securities
// (id, canonical name, industry) that entity matching and display names are
// built from. A builtin table of widely covered names keeps the system
// useful before any reference file has been provisioned.
package refdata

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Security is one row of the security master.
type Security struct {
	ID       string
	Name     string
	Industry string
}

// Table is an indexed, immutable view over the security master.
type Table struct {
	list []Security
	byID map[string]Security
}

// NewTable indexes the given securities. Later duplicates of an id replace
// earlier ones.
func NewTable(secs []Security) *Table {
	byID := make(map[string]Security, len(secs))
	for _, s := range secs {
		byID[s.ID] = s
	}
	list := make([]Security, 0, len(byID))
	for _, s := range byID {
		list = append(list, s)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return &Table{list: list, byID: byID}
}

// All returns the securities sorted by id.
func (t *Table) All() []Security {
	return t.list
}

// Get looks up one security by id.
func (t *Table) Get(id string) (Security, bool) {
	s, ok := t.byID[id]
	return s, ok
}

// NameOf returns the canonical name for id, or the id itself when the
// master has no row for it.
func (t *Table) NameOf(id string) string {
	if s, ok := t.byID[id]; ok && s.Name != "" {
		return s.Name
	}
	return id
}

// IndustryOf returns the industry tag for id, empty when unknown.
func (t *Table) IndustryOf(id string) string {
	return t.byID[id].Industry
}

// Len returns the number of securities in the table.
func (t *Table) Len() int {
	return len(t.list)
}

// ---------------------------------------------------------------------------
// CSV loading
// ---------------------------------------------------------------------------

// Load builds the security master from dir, layering any CSV rows over the
// builtin table. A missing or unreadable file degrades to the builtin table
// with a logged warning; it is never an error.
func Load(dir string, log *slog.Logger) *Table {
	merged := Builtin()

	path, err := findLatestFile(dir, "securities")
	if err != nil {
		log.Warn("no securities reference file, using builtin table", "dir", dir, "error", err)
		return NewTable(merged)
	}

	rows, err := readSecuritiesCSV(path)
	if err != nil {
		log.Warn("failed to load securities reference file, using builtin table", "path", path, "error", err)
		return NewTable(merged)
	}

	log.Info("loaded securities reference file", "path", path, "rows", len(rows))
	return NewTable(append(merged, rows...))
}

// findLatestFile locates the newest dated reference file
// (<prefix>_YYYY-MM-DD.csv) in dir, falling back to the undated
// <prefix>.csv.
func findLatestFile(dir, prefix string) (string, error) {
	pattern := filepath.Join(dir, prefix+"_????-??-??.csv")
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return "", err
	}
	if len(matches) > 0 {
		sort.Strings(matches)
		return matches[len(matches)-1], nil
	}

	fallback := filepath.Join(dir, prefix+".csv")
	if _, err := os.Stat(fallback); err != nil {
		return "", fmt.Errorf("no reference file matching %s", pattern)
	}
	return fallback, nil
}

// readSecuritiesCSV parses a security master CSV. The header row names the
// columns (security_id, canonical_name, industry in any order). Rows missing
// an id or a name are skipped.
func readSecuritiesCSV(path string) ([]Security, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	idCol, nameCol, industryCol := -1, -1, -1
	for i, col := range header {
		switch strings.ToLower(strings.TrimSpace(col)) {
		case "security_id", "stock_id", "id":
			idCol = i
		case "canonical_name", "name":
			nameCol = i
		case "industry":
			industryCol = i
		}
	}
	if idCol < 0 || nameCol < 0 {
		return nil, fmt.Errorf("header %v missing security_id or canonical_name", header)
	}

	var rows []Security
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if idCol >= len(record) || nameCol >= len(record) {
			continue
		}
		id := strings.TrimSpace(record[idCol])
		name := strings.TrimSpace(record[nameCol])
		if id == "" || name == "" {
			continue
		}
		s := Security{ID: id, Name: name}
		if industryCol >= 0 && industryCol < len(record) {
			s.Industry = strings.TrimSpace(record[industryCol])
		}
		rows = append(rows, s)
	}
	return rows, nil
}
