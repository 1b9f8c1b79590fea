package signal

import (
	"errors"
	"fmt"
)

var ErrInvalidTable = errors.New("invalid contingency table")

// ResultStatus distinguishes "no signal" from "cannot be computed".
type ResultStatus string

const (
	StatusComputed         ResultStatus = "computed"
	StatusInsufficientData ResultStatus = "insufficient_data"
)

// ContingencyTable is a 2x2 exposure/outcome table from a spontaneous-report
// database:
//
//	A: target drug, target event    B: target drug, other events
//	C: other drugs, target event    D: other drugs, other events
type ContingencyTable struct {
	A int `json:"a"`
	B int `json:"b"`
	C int `json:"c"`
	D int `json:"d"`
}

// Validate rejects negative cells and an all-zero table.
func (t ContingencyTable) Validate() error {
	if t.A < 0 || t.B < 0 || t.C < 0 || t.D < 0 {
		return fmt.Errorf("%w: negative cell in (%d, %d, %d, %d)", ErrInvalidTable, t.A, t.B, t.C, t.D)
	}
	if t.A+t.B+t.C+t.D == 0 {
		return fmt.Errorf("%w: all cells zero", ErrInvalidTable)
	}
	return nil
}

// Total returns the grand total of reports.
func (t ContingencyTable) Total() int {
	return t.A + t.B + t.C + t.D
}

// ExpectedA returns the expected count of the target cell under row-column
// independence: (a+b)(a+c)/n.
func (t ContingencyTable) ExpectedA() float64 {
	n := float64(t.Total())
	if n == 0 {
		return 0
	}
	return float64(t.A+t.B) * float64(t.A+t.C) / n
}
