// Package domain holds the wire-level types shared by the batch, nest and
// lifecycle services, plus the error taxonomy used across the module.
package domain

import (
	"encoding/json"
	"fmt"
)

// Batch is a physical sheet-cutting lot. SheetName is the identity used for
// joins; the remaining fields are metadata carried through to clients
// unchanged.
type Batch struct {
	SheetName      string  `json:"sheetName"`
	MaterialMaster string  `json:"materialMaster"`
	Qty            int     `json:"qty"`
	Weight         float64 `json:"weight,omitempty"`
	Heat           string  `json:"heat,omitempty"`
	PO             string  `json:"po,omitempty"`
}

// Sheet describes the stock a program is nested on.
type Sheet struct {
	SheetName string  `json:"sheetName"`
	Material  string  `json:"material"`
	Thickness float64 `json:"thickness"`
	Qty       int     `json:"qty"`
}

// Nest is the assignment of a cut program to a sheet. Built per request
// from the database, never cached.
type Nest struct {
	Program       string  `json:"program"`
	Sheet         Sheet   `json:"sheet"`
	NestedArea    float64 `json:"nestedArea"`
	ScrapFraction float64 `json:"scrapFraction"`
}

// ProgramSummary is one row of the per-machine program listing.
type ProgramSummary struct {
	Program     string  `json:"program"`
	Repeats     int     `json:"repeats"`
	CuttingTime float64 `json:"cuttingTime"`
}

// ProgramState is the client-asserted lifecycle state of a program.
type ProgramState string

const (
	StateInitiated  ProgramState = "Initiated"
	StateProcessing ProgramState = "Processing"
	StateComplete   ProgramState = "Complete"
	StateCancelled  ProgramState = "Cancelled"
)

// ParseProgramState validates a state string from a client payload.
func ParseProgramState(s string) (ProgramState, error) {
	switch ProgramState(s) {
	case StateInitiated, StateProcessing, StateComplete, StateCancelled:
		return ProgramState(s), nil
	}
	return "", fmt.Errorf("unknown program state %q", s)
}

// UnmarshalJSON rejects states outside the lifecycle set at decode time.
func (p *ProgramState) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	state, err := ParseProgramState(raw)
	if err != nil {
		return err
	}
	*p = state
	return nil
}
