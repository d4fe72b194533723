package record

import (
	"strings"
	"testing"
)

const enamineHeader = "SMILES\tIdentifier\tMW\tHAC\tHBA\tHBD\tRotatable_Bonds"

func TestMapHeader_SplitHBonds(t *testing.T) {
	m, err := MapHeader(enamineHeader)
	if err != nil {
		t.Fatalf("map: %v", err)
	}
	rec, err := m.ParseRow("CCO\tZ1\t46.07\t3\t1\t1\t0")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if rec.HBonds != 2 {
		t.Fatalf("HBonds = %d, want HBA+HBD = 2", rec.HBonds)
	}
	if rec.SMILES != "CCO" || rec.Identifier != "Z1" {
		t.Fatalf("bad columns: %+v", rec)
	}
	if rec.HeavyAtoms != 3 || rec.RotatableBonds != 0 || rec.MW != 46.07 {
		t.Fatalf("bad numerics: %+v", rec)
	}
}

func TestMapHeader_CombinedHBonds(t *testing.T) {
	m, err := MapHeader("CXSMILES\tID\tHBonds\tRotatable_Bonds\tMW\tHAC")
	if err != nil {
		t.Fatalf("map: %v", err)
	}
	if m.SMILESName() != "CXSMILES" || m.IdentifierName() != "ID" {
		t.Fatalf("pass-through names wrong: %q %q", m.SMILESName(), m.IdentifierName())
	}
	rec, err := m.ParseRow("c1ccccc1\tZ2\t4\t1\t78.11\t6")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if rec.HBonds != 4 {
		t.Fatalf("HBonds = %d", rec.HBonds)
	}
}

func TestMapHeader_MissingColumn(t *testing.T) {
	for _, h := range []string{
		"Identifier\tMW\tHAC\tHBA\tHBD\tRotatable_Bonds", // no SMILES
		"SMILES\tIdentifier\tMW\tHAC\tRotatable_Bonds",   // no HBonds at all
		"SMILES\tIdentifier\tHAC\tHBonds\tRotatable_Bonds",
	} {
		if _, err := MapHeader(h); err == nil {
			t.Errorf("MapHeader(%q): expected error", h)
		}
	}
}

func TestParseRow_Faults(t *testing.T) {
	m, err := MapHeader(enamineHeader)
	if err != nil {
		t.Fatalf("map: %v", err)
	}
	cases := []string{
		"CCO\tZ1\t46.07",                    // short row
		"CCO\tZ1\tnot-a-number\t3\t1\t1\t0", // bad MW
		"CCO\tZ1\t46.07\tthree\t1\t1\t0",    // bad HAC
	}
	for _, line := range cases {
		if _, err := m.ParseRow(line); err == nil {
			t.Errorf("ParseRow(%q): expected error", line)
		}
	}
}

func TestParseRow_FloatCounts(t *testing.T) {
	m, err := MapHeader(enamineHeader)
	if err != nil {
		t.Fatalf("map: %v", err)
	}
	rec, err := m.ParseRow("CCO\tZ1\t46.07\t3.0\t1.0\t1.0\t0.0")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if rec.HeavyAtoms != 3 || rec.HBonds != 2 {
		t.Fatalf("float counts mishandled: %+v", rec)
	}
}

func TestParseRow_KeepsRaw(t *testing.T) {
	m, _ := MapHeader(enamineHeader)
	line := "CCO\tZ1\t46.07\t3\t1\t1\t0"
	rec, err := m.ParseRow(line)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !strings.HasPrefix(rec.Raw, "CCO\t") {
		t.Fatalf("Raw not kept: %q", rec.Raw)
	}
}
