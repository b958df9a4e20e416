package domain_test

import (
	"testing"

	"kvclient/internal/core/domain"

	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	t.Parallel()
	lig := "HETATM"

	valid := func() domain.Input {
		return domain.Input{PDB: protein, Settings: domain.DefaultSettings(domain.VariantTOML)}
	}

	require.NoError(t, valid().Validate())

	var testCases = []struct {
		name   string
		modify func(*domain.Input)
		msg    string
	}{
		{"empty pdb", func(in *domain.Input) { in.PDB = "" }, "protein structure is empty"},
		{"modes equal", func(in *domain.Input) { in.Settings.Modes.BoxMode = true }, "whole protein and box modes cannot be equal"},
		{"resolution", func(in *domain.Input) { in.Settings.Modes.ResolutionMode = domain.ResolutionHigh }, "resolution mode is restricted to Low"},
		{"probe in", func(in *domain.Input) { in.Settings.Probes.ProbeIn = 5.1 }, "probe in must be between 0 and 5"},
		{"probe out", func(in *domain.Input) { in.Settings.Probes.ProbeOut = 51 }, "probe out must be between 0 and 50"},
		{"probes order", func(in *domain.Input) { in.Settings.Probes.ProbeOut = 1.0 }, "probe out must be greater than probe in"},
		{"removal", func(in *domain.Input) { in.Settings.Cutoffs.RemovalDistance = 11 }, "removal distance must be between 0 and 10"},
		{"volume", func(in *domain.Input) { in.Settings.Cutoffs.VolumeCutoff = -1 }, "volume cutoff must be greater than 0"},
		{"kvp", func(in *domain.Input) { in.Settings.Modes.KVPMode = true }, "kvp mode must be false"},
		{"ligand mode without ligand", func(in *domain.Input) { in.Settings.Modes.LigandMode = true }, "a ligand must be provided when ligand mode is set"},
		{"ligand without ligand mode", func(in *domain.Input) { in.PDBLigand = &lig }, "ligand mode must be set when providing a ligand"},
		{"ligand cutoff", func(in *domain.Input) { in.Settings.Cutoffs.LigandCutoff = 0 }, "ligand cutoff must be greater than 0"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			in := valid()
			tc.modify(&in)
			err := in.Validate()
			require.ErrorIs(t, err, domain.ErrInvalidSettings)
			require.EqualError(t, err, "invalid job settings: "+tc.msg)
		})
	}

	t.Run("ligand with ligand mode", func(t *testing.T) {
		in := valid()
		in.PDBLigand = &lig
		in.Settings.Modes.LigandMode = true
		require.NoError(t, in.Validate())
	})
}
