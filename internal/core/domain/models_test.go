package domain_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"kvclient/internal/core/domain"

	"github.com/stretchr/testify/require"
)

const protein = `ATOM      1  N   GLU E  13     -13.296  -9.932 -17.866  1.00 72.71           N
ATOM      2  CA  GLU E  13     -12.937 -10.935 -16.852  1.00 72.71           C
END
`

const ligand = `HETATM 2935  C1  ADN E   1      -2.157   1.520 -10.436  1.00 41.28           C
END
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestNewJob(t *testing.T) {
	t.Parallel()
	path := writeFile(t, "protein.pdb", protein)

	job, err := domain.NewJob(path)
	require.NoError(t, err)
	require.Equal(t, protein, job.Input.PDB)
	require.Nil(t, job.Input.PDBLigand)
	require.Empty(t, job.ID)
	require.Nil(t, job.Output)
	require.False(t, job.Completed())
	require.Equal(t, domain.DefaultSettings(domain.VariantTOML), job.Input.Settings)

	raw, err := json.Marshal(job.Input)
	require.NoError(t, err)
	var body map[string]any
	require.NoError(t, json.Unmarshal(raw, &body))
	require.Contains(t, body, "pdb")
	require.Contains(t, body, "settings")
	require.NotContains(t, body, "pdb_ligand")
}

func TestNewJob_Ligand(t *testing.T) {
	t.Parallel()
	proteinPath := writeFile(t, "protein.pdb", protein)
	ligandPath := writeFile(t, "ligand.pdb", ligand)

	job, err := domain.NewJob(proteinPath, domain.WithLigand(ligandPath))
	require.NoError(t, err)
	require.True(t, job.HasLigand())
	require.Equal(t, ligand, *job.Input.PDBLigand)
	// supplying a ligand does not change the defaults
	require.False(t, job.Input.Settings.Modes.LigandMode)

	raw, err := json.Marshal(job.Input)
	require.NoError(t, err)
	var body map[string]any
	require.NoError(t, json.Unmarshal(raw, &body))
	require.Equal(t, ligand, body["pdb_ligand"])

	require.True(t, job.EnableLigandMode())
	require.True(t, job.Input.Settings.Modes.LigandMode)
	require.False(t, job.EnableLigandMode())
}

func TestNewJob_Errors(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	t.Run("missing protein", func(t *testing.T) {
		_, err := domain.NewJob(filepath.Join(dir, "missing.pdb"))
		require.ErrorIs(t, err, domain.ErrFileAccess)
		require.ErrorIs(t, err, os.ErrNotExist)
	})
	t.Run("missing ligand", func(t *testing.T) {
		path := writeFile(t, "protein.pdb", protein)
		_, err := domain.NewJob(path, domain.WithLigand(filepath.Join(dir, "missing.pdb")))
		require.ErrorIs(t, err, domain.ErrFileAccess)
	})
	t.Run("empty protein", func(t *testing.T) {
		path := writeFile(t, "empty.pdb", "")
		_, err := domain.NewJob(path)
		require.ErrorIs(t, err, domain.ErrEmptyStructure)
	})
}

func TestDefaultSettings(t *testing.T) {
	t.Parallel()
	origin := domain.Point{}

	for _, tc := range []struct {
		variant domain.Variant
		removal float64
	}{
		{domain.VariantTOML, 2.4},
		{domain.VariantText, 0.0},
	} {
		t.Run(string(tc.variant), func(t *testing.T) {
			s := domain.DefaultSettings(tc.variant)
			require.Equal(t, domain.Modes{
				WholeProteinMode: true,
				ResolutionMode:   "Low",
				SurfaceMode:      true,
			}, s.Modes)
			require.Equal(t, 0.0, s.StepSize.StepSize)
			require.Equal(t, domain.Probes{ProbeIn: 1.4, ProbeOut: 4.0}, s.Probes)
			require.Equal(t, 5.0, s.Cutoffs.VolumeCutoff)
			require.Equal(t, 5.0, s.Cutoffs.LigandCutoff)
			require.Equal(t, tc.removal, s.Cutoffs.RemovalDistance)
			for _, p := range []domain.Point{s.VisibleBox.P1, s.VisibleBox.P2, s.VisibleBox.P3, s.VisibleBox.P4} {
				require.Equal(t, origin, p)
			}
			require.Equal(t, domain.Point{X: -4, Y: -4, Z: -4}, s.InternalBox.P1)
			require.Equal(t, domain.Point{X: 4, Y: -4, Z: -4}, s.InternalBox.P2)
			require.Equal(t, domain.Point{X: -4, Y: 4, Z: -4}, s.InternalBox.P3)
			require.Equal(t, domain.Point{X: -4, Y: -4, Z: 4}, s.InternalBox.P4)
		})
	}
}

func TestSettingsJSON(t *testing.T) {
	t.Parallel()
	raw, err := json.Marshal(domain.DefaultSettings(domain.VariantTOML))
	require.NoError(t, err)
	require.JSONEq(t, `{
		"modes": {"whole_protein_mode": true, "box_mode": false, "resolution_mode": "Low",
		          "surface_mode": true, "kvp_mode": false, "ligand_mode": false},
		"step_size": {"step_size": 0},
		"probes": {"probe_in": 1.4, "probe_out": 4},
		"cutoffs": {"volume_cutoff": 5, "ligand_cutoff": 5, "removal_distance": 2.4},
		"visiblebox": {"p1": {"x": 0, "y": 0, "z": 0}, "p2": {"x": 0, "y": 0, "z": 0},
		               "p3": {"x": 0, "y": 0, "z": 0}, "p4": {"x": 0, "y": 0, "z": 0}},
		"internalbox": {"p1": {"x": -4, "y": -4, "z": -4}, "p2": {"x": 4, "y": -4, "z": -4},
		                "p3": {"x": -4, "y": 4, "z": -4}, "p4": {"x": -4, "y": -4, "z": 4}}
	}`, string(raw))
}

func TestAccessors(t *testing.T) {
	t.Parallel()
	job := &domain.Job{}
	require.Empty(t, job.Cavity())
	require.Empty(t, job.Log())
	require.Empty(t, job.Status())
	require.Equal(t, domain.Report{}, job.Report())

	var result domain.Result
	err := json.Unmarshal([]byte(`{"status":"completed","output":{"pdb_kv":"ATOM...","report":"<text>","log":"done"}}`), &result)
	require.NoError(t, err)
	job.Output = &result

	require.True(t, job.Completed())
	require.Equal(t, domain.StatusCompleted, job.Status())
	require.Equal(t, "ATOM...", job.Cavity())
	require.Equal(t, "<text>", job.Report().Raw)
	require.Nil(t, job.Report().Data)
	require.Equal(t, "done", job.Log())
}

func TestParseVariant(t *testing.T) {
	t.Parallel()
	v, err := domain.ParseVariant("TOML")
	require.NoError(t, err)
	require.Equal(t, domain.VariantTOML, v)

	v, err = domain.ParseVariant("text")
	require.NoError(t, err)
	require.Equal(t, domain.VariantText, v)

	v, err = domain.ParseVariant("")
	require.NoError(t, err)
	require.Equal(t, domain.VariantTOML, v)

	_, err = domain.ParseVariant("yaml")
	require.Error(t, err)
}

func TestStatus(t *testing.T) {
	t.Parallel()
	require.True(t, domain.IsPending(domain.StatusQueued))
	require.True(t, domain.IsPending(domain.StatusRunning))
	require.False(t, domain.IsPending(domain.StatusCompleted))
	require.True(t, domain.IsFailed(domain.StatusFailed))
	require.True(t, domain.IsFailed(domain.StatusTimedOut))
	require.False(t, domain.IsFailed("unknown"))
}
