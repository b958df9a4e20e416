package domain

import (
	"fmt"
	"strings"
)

// Variant selects the variant dependent defaults of a job.
type Variant string

const (
	// VariantTOML reports are TOML documents; removal distance 2.4.
	VariantTOML Variant = "toml"
	// VariantText reports are kept as plain text; removal distance 0.0.
	VariantText Variant = "text"
)

// ParseVariant accepts "toml" or "text" (case insensitive).
func ParseVariant(s string) (Variant, error) {
	switch v := Variant(strings.ToLower(strings.TrimSpace(s))); v {
	case VariantTOML, VariantText:
		return v, nil
	case "":
		return VariantTOML, nil
	default:
		return "", fmt.Errorf("unsupported variant %q, expected %q or %q", s, VariantTOML, VariantText)
	}
}

// Resolution modes accepted by the detection algorithm.
const (
	ResolutionLow    = "Low"
	ResolutionMedium = "Medium"
	ResolutionHigh   = "High"
	ResolutionOff    = "Off"
)

// Settings holds the detection algorithm parameters.
type Settings struct {
	Modes       Modes    `json:"modes"`
	StepSize    StepSize `json:"step_size"`
	Probes      Probes   `json:"probes"`
	Cutoffs     Cutoffs  `json:"cutoffs"`
	VisibleBox  Box      `json:"visiblebox"`
	InternalBox Box      `json:"internalbox"`
}

type Modes struct {
	WholeProteinMode bool   `json:"whole_protein_mode"`
	BoxMode          bool   `json:"box_mode"`
	ResolutionMode   string `json:"resolution_mode"`
	SurfaceMode      bool   `json:"surface_mode"`
	KVPMode          bool   `json:"kvp_mode"`
	LigandMode       bool   `json:"ligand_mode"`
}

type StepSize struct {
	StepSize float64 `json:"step_size"`
}

type Probes struct {
	ProbeIn  float64 `json:"probe_in"`
	ProbeOut float64 `json:"probe_out"`
}

type Cutoffs struct {
	VolumeCutoff    float64 `json:"volume_cutoff"`
	LigandCutoff    float64 `json:"ligand_cutoff"`
	RemovalDistance float64 `json:"removal_distance"`
}

// Box is described by four corner points.
type Box struct {
	P1 Point `json:"p1"`
	P2 Point `json:"p2"`
	P3 Point `json:"p3"`
	P4 Point `json:"p4"`
}

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// DefaultSettings returns the fixed parameter set attached to every job.
func DefaultSettings(v Variant) Settings {
	removal := 2.4
	if v == VariantText {
		removal = 0.0
	}
	return Settings{
		Modes: Modes{
			WholeProteinMode: true,
			BoxMode:          false,
			ResolutionMode:   ResolutionLow,
			SurfaceMode:      true,
			KVPMode:          false,
			LigandMode:       false,
		},
		StepSize: StepSize{StepSize: 0.0},
		Probes: Probes{
			ProbeIn:  1.4,
			ProbeOut: 4.0,
		},
		Cutoffs: Cutoffs{
			VolumeCutoff:    5.0,
			LigandCutoff:    5.0,
			RemovalDistance: removal,
		},
		VisibleBox: Box{},
		InternalBox: Box{
			P1: Point{X: -4.0, Y: -4.0, Z: -4.0},
			P2: Point{X: 4.0, Y: -4.0, Z: -4.0},
			P3: Point{X: -4.0, Y: 4.0, Z: -4.0},
			P4: Point{X: -4.0, Y: -4.0, Z: 4.0},
		},
	}
}

// Validate checks the input against the limits the service enforces, so an
// invalid job fails before it is sent. Box coordinates are not checked
// against the structure boundaries.
func (in Input) Validate() error {
	s := in.Settings
	hasLigand := in.PDBLigand != nil

	var violation string
	switch {
	case in.PDB == "":
		violation = "protein structure is empty"
	case s.Modes.WholeProteinMode == s.Modes.BoxMode:
		violation = "whole protein and box modes cannot be equal"
	case s.Modes.ResolutionMode != ResolutionLow:
		violation = "resolution mode is restricted to Low"
	case s.Probes.ProbeIn < 0 || s.Probes.ProbeIn > 5:
		violation = "probe in must be between 0 and 5"
	case s.Probes.ProbeOut < 0 || s.Probes.ProbeOut > 50:
		violation = "probe out must be between 0 and 50"
	case s.Probes.ProbeOut < s.Probes.ProbeIn:
		violation = "probe out must be greater than probe in"
	case s.Cutoffs.RemovalDistance < 0 || s.Cutoffs.RemovalDistance > 10:
		violation = "removal distance must be between 0 and 10"
	case s.Cutoffs.VolumeCutoff < 0:
		violation = "volume cutoff must be greater than 0"
	case s.Modes.KVPMode:
		violation = "kvp mode must be false"
	case s.Modes.LigandMode && !hasLigand:
		violation = "a ligand must be provided when ligand mode is set"
	case !s.Modes.LigandMode && hasLigand:
		violation = "ligand mode must be set when providing a ligand"
	case s.Cutoffs.LigandCutoff <= 0:
		violation = "ligand cutoff must be greater than 0"
	default:
		return nil
	}
	return fmt.Errorf("%w: %s", ErrInvalidSettings, violation)
}
