// core/record/record.go
// Package record models one row of a tabular compound catalog and maps
// header columns to the fields the sieve needs.
package record

import (
	"fmt"
	"strconv"
	"strings"
)

// Record is one catalog row. Immutable once parsed; derived metrics are
// computed by the sieve, not stored here.
type Record struct {
	SMILES         string
	Identifier     string
	HBonds         int
	RotatableBonds int
	MW             float64
	HeavyAtoms     int
	Raw            string
}

// Mapping resolves the required columns of a tab-separated header.
// HBonds may be a single column or the sum of HBA+HBD.
type Mapping struct {
	smilesCol string
	idCol     string

	smiles int
	id     int
	hbonds int // -1 when split into hba/hbd
	hba    int
	hbd    int
	rota   int
	mw     int
	hac    int
	ncols  int
}

var aliases = map[string][]string{
	"smiles": {"SMILES", "smiles", "CXSMILES"},
	"id":     {"Identifier", "identifier", "ID", "id", "Catalog_ID"},
	"hbonds": {"HBonds", "hbonds"},
	"hba":    {"HBA", "hba"},
	"hbd":    {"HBD", "hbd"},
	"rota":   {"Rotatable_Bonds", "RotBonds", "rotatable_bonds"},
	"mw":     {"MW", "Molecular_Weight", "mw"},
	"hac":    {"HAC", "Heavy_Atoms", "hac"},
}

func findCol(cols []string, key string) int {
	for _, name := range aliases[key] {
		for i, c := range cols {
			if c == name {
				return i
			}
		}
	}
	return -1
}

// MapHeader parses a tab-separated header line. A missing required column
// is an error: the whole input is unusable (fatal, not per-record).
func MapHeader(header string) (Mapping, error) {
	cols := strings.Split(strings.TrimRight(header, "\r\n"), "\t")
	m := Mapping{ncols: len(cols)}

	if m.smiles = findCol(cols, "smiles"); m.smiles < 0 {
		return m, fmt.Errorf("header: no SMILES column in %q", header)
	}
	if m.id = findCol(cols, "id"); m.id < 0 {
		return m, fmt.Errorf("header: no Identifier column in %q", header)
	}
	m.hbonds = findCol(cols, "hbonds")
	if m.hbonds < 0 {
		m.hba = findCol(cols, "hba")
		m.hbd = findCol(cols, "hbd")
		if m.hba < 0 || m.hbd < 0 {
			return m, fmt.Errorf("header: no HBonds (or HBA+HBD) columns in %q", header)
		}
	}
	if m.rota = findCol(cols, "rota"); m.rota < 0 {
		return m, fmt.Errorf("header: no Rotatable_Bonds column in %q", header)
	}
	if m.mw = findCol(cols, "mw"); m.mw < 0 {
		return m, fmt.Errorf("header: no MW column in %q", header)
	}
	if m.hac = findCol(cols, "hac"); m.hac < 0 {
		return m, fmt.Errorf("header: no HAC column in %q", header)
	}
	m.smilesCol = cols[m.smiles]
	m.idCol = cols[m.id]
	return m, nil
}

// SMILESName and IdentifierName return the original header names of the
// structure and identifier columns, passed through to chunk outputs.
func (m Mapping) SMILESName() string     { return m.smilesCol }
func (m Mapping) IdentifierName() string { return m.idCol }

func intField(fields []string, idx int, what string) (int, error) {
	// Some catalogs ship counts as floats ("3.0").
	v, err := strconv.ParseFloat(strings.TrimSpace(fields[idx]), 64)
	if err != nil {
		return 0, fmt.Errorf("bad %s %q: %w", what, fields[idx], err)
	}
	return int(v), nil
}

// ParseRow parses one data line. Errors are per-record faults: the caller
// records them and moves on.
func (m Mapping) ParseRow(line string) (Record, error) {
	fields := strings.Split(strings.TrimRight(line, "\r\n"), "\t")
	if len(fields) < m.ncols {
		return Record{}, fmt.Errorf("bad row: %d fields, want %d", len(fields), m.ncols)
	}
	rec := Record{
		SMILES:     fields[m.smiles],
		Identifier: fields[m.id],
		Raw:        line,
	}
	var err error
	if m.hbonds >= 0 {
		if rec.HBonds, err = intField(fields, m.hbonds, "HBonds"); err != nil {
			return Record{}, err
		}
	} else {
		hba, err := intField(fields, m.hba, "HBA")
		if err != nil {
			return Record{}, err
		}
		hbd, err := intField(fields, m.hbd, "HBD")
		if err != nil {
			return Record{}, err
		}
		rec.HBonds = hba + hbd
	}
	if rec.RotatableBonds, err = intField(fields, m.rota, "Rotatable_Bonds"); err != nil {
		return Record{}, err
	}
	if rec.MW, err = strconv.ParseFloat(strings.TrimSpace(fields[m.mw]), 64); err != nil {
		return Record{}, fmt.Errorf("bad MW %q: %w", fields[m.mw], err)
	}
	if rec.HeavyAtoms, err = intField(fields, m.hac, "HAC"); err != nil {
		return Record{}, err
	}
	return rec, nil
}
