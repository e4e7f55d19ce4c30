package metadata

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-qa4sm/internal/domain"
)

func TestDefaultGrammar(t *testing.T) {
	g := testGrammar(t)

	assert.Equal(t, "1.0.0", g.Version())
	assert.Equal(t,
		[]domain.Group{domain.GroupTripleCollocation, domain.GroupPairwise, domain.GroupCommon},
		g.Groups())
	assert.Equal(t, []string{"n_obs"}, g.GroupMetrics(domain.GroupCommon))
	assert.Equal(t, []string{"snr", "err_std", "beta"}, g.GroupMetrics(domain.GroupTripleCollocation))
	assert.Nil(t, g.GroupMetrics(domain.GroupNone))

	assert.False(t, g.HasCI(domain.GroupCommon))
	assert.True(t, g.HasCI(domain.GroupPairwise))
	assert.True(t, g.HasCI(domain.GroupTripleCollocation))

	again, err := Default()
	require.NoError(t, err)
	assert.Same(t, g, again, "default grammar is built once")
}

func TestGrammar_MetricGroup(t *testing.T) {
	g := testGrammar(t)

	tests := []struct {
		metric string
		want   domain.Group
	}{
		{"n_obs", domain.GroupCommon},
		{"R", domain.GroupPairwise},
		{"p_tau", domain.GroupPairwise},
		{"snr", domain.GroupTripleCollocation},
		{"beta", domain.GroupTripleCollocation},
		{"lat", domain.GroupNone},
	}
	for _, tt := range tests {
		t.Run(tt.metric, func(t *testing.T) {
			assert.Equal(t, tt.want, g.MetricGroup(tt.metric))
		})
	}
}

func TestGrammar_Catalogue(t *testing.T) {
	g := testGrammar(t)

	t.Run("known metric", func(t *testing.T) {
		name, err := g.PrettyName("rho")
		require.NoError(t, err)
		assert.Equal(t, "Spearman's ρ", name)

		def, err := g.Catalogue("R")
		require.NoError(t, err)
		require.NotNil(t, def.Range.Min)
		require.NotNil(t, def.Range.Max)
		assert.Equal(t, -1.0, *def.Range.Min)
		assert.Equal(t, 1.0, *def.Range.Max)
	})

	t.Run("unknown metric with suggestion", func(t *testing.T) {
		_, err := g.Catalogue("rmsd")
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrUnknownMetric)

		var merr *domain.MetricError
		require.True(t, errors.As(err, &merr))
		assert.Equal(t, "rmsd", merr.Metric)
		assert.Equal(t, "RMSD", merr.Suggestion)
		assert.Contains(t, err.Error(), `did you mean "RMSD"?`)
	})

	t.Run("unknown metric without suggestion", func(t *testing.T) {
		_, err := g.PrettyName("completely_unrelated")
		var merr *domain.MetricError
		require.True(t, errors.As(err, &merr))
		assert.Empty(t, merr.Suggestion)
	})
}

func TestGrammar_Description(t *testing.T) {
	g := testGrammar(t)

	tests := []struct {
		metric string
		ref    string
		want   string
	}{
		{"RMSD", "ERA5", "in m³/m³"},
		{"mse", "ASCAT", "in (percentage of saturation)²"},
		{"snr", "ERA5", "in dB"},
		{"R", "ERA5", ""},
		{"BIAS", "UNKNOWN", "in "},
	}
	for _, tt := range tests {
		t.Run(tt.metric+"/"+tt.ref, func(t *testing.T) {
			got, err := g.Description(tt.metric, tt.ref)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	assert.Equal(t, "m³/m³", g.Unit("ISMN"))
	assert.Empty(t, g.Unit("nope"))
}

func TestGrammar_VariableName(t *testing.T) {
	g := testGrammar(t)
	ref := domain.DatasetRef{ID: 5, Dataset: domain.Dataset{ShortName: "ERA5"}}
	c3s := domain.DatasetRef{ID: 2, Dataset: domain.Dataset{ShortName: "C3S"}}
	ascat := domain.DatasetRef{ID: 3, Dataset: domain.Dataset{ShortName: "ASCAT"}}

	tests := []struct {
		name    string
		group   domain.Group
		args    NameArgs
		want    string
		wantErr error
	}{
		{
			name:  "common",
			group: domain.GroupCommon,
			args:  NameArgs{Metric: "n_obs"},
			want:  "n_obs",
		},
		{
			name:  "pairwise",
			group: domain.GroupPairwise,
			args: NameArgs{Metric: "R", Refs: map[domain.Role]domain.DatasetRef{
				domain.RoleReference: ref, domain.RoleSatellite0: c3s,
			}},
			want: "R_between_5-ERA5_and_2-C3S",
		},
		{
			name:  "pairwise ci",
			group: domain.GroupPairwise,
			args: NameArgs{Metric: "BIAS", Bound: domain.BoundLower, Refs: map[domain.Role]domain.DatasetRef{
				domain.RoleReference: ref, domain.RoleSatellite0: c3s,
			}},
			want: "BIAS_ci_lower_between_5-ERA5_and_2-C3S",
		},
		{
			name:  "triple collocation",
			group: domain.GroupTripleCollocation,
			args: NameArgs{Metric: "snr", Refs: map[domain.Role]domain.DatasetRef{
				domain.RoleMetric: ascat, domain.RoleReference: ref,
				domain.RoleSatellite0: c3s, domain.RoleSatellite1: ascat,
			}},
			want: "snr_3-ASCAT_between_5-ERA5_and_2-C3S_and_3-ASCAT",
		},
		{
			name:    "common has no ci",
			group:   domain.GroupCommon,
			args:    NameArgs{Metric: "n_obs", Bound: domain.BoundUpper},
			wantErr: ErrNoCITemplate,
		},
		{
			name:    "missing role",
			group:   domain.GroupPairwise,
			args:    NameArgs{Metric: "R", Refs: map[domain.Role]domain.DatasetRef{domain.RoleReference: ref}},
			wantErr: ErrTemplateField,
		},
		{
			name:    "unknown group",
			group:   domain.GroupNone,
			args:    NameArgs{Metric: "R"},
			wantErr: ErrUnknownGroup,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := g.VariableName(tt.group, tt.args)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeDefinition_RejectsUnknownFields(t *testing.T) {
	_, err := DecodeDefinition([]byte("version: \"1\"\nunexpected: true\n"))
	assert.Error(t, err)
}

func TestNewGrammar_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Definition)
	}{
		{
			name:   "group metric without catalogue entry",
			mutate: func(d *Definition) { d.Groups[0].Metrics = append(d.Groups[0].Metrics, "ghost") },
		},
		{
			name:   "template without metric field",
			mutate: func(d *Definition) { d.Groups[0].Template = "{name}" },
		},
		{
			name: "pairwise template without satellite id",
			mutate: func(d *Definition) {
				d.Groups[1].Template = "{metric}_between_{ref_id:d}-{ref_ds}"
			},
		},
		{
			name: "ci template without bound",
			mutate: func(d *Definition) {
				d.Groups[1].CITemplate = "{metric}_ci_between_{ref_id:d}-{ref_ds}_and_{sat_id0:d}-{sat_ds0}"
			},
		},
		{
			name:   "template syntax",
			mutate: func(d *Definition) { d.Groups[0].Template = "{metric" },
		},
		{
			name:   "group missing from priority",
			mutate: func(d *Definition) { d.Priority = d.Priority[:2] },
		},
		{
			name:   "priority repeats group",
			mutate: func(d *Definition) { d.Priority = append(d.Priority, "common") },
		},
		{
			name:   "unknown group name",
			mutate: func(d *Definition) { d.Groups[0].Name = "quadruple" },
		},
		{
			name:   "duplicate group",
			mutate: func(d *Definition) { d.Groups = append(d.Groups, d.Groups[0]) },
		},
		{
			name:   "unknown pretty field",
			mutate: func(d *Definition) { d.Groups[0].PrettyName = "{metric} vs {nobody}" },
		},
		{
			name:   "key template without index",
			mutate: func(d *Definition) { d.Attributes.ShortName = "val_dc_dataset{n:d}" },
		},
		{
			name:   "missing ci prefix",
			mutate: func(d *Definition) { d.CIPrefix = "" },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			def, err := DefaultDefinition()
			require.NoError(t, err)
			tt.mutate(&def)

			_, err = NewGrammar(def)
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrInvalidConfiguration)
		})
	}
}

func TestNewGrammar_ReportsAllSemanticErrors(t *testing.T) {
	def, err := DefaultDefinition()
	require.NoError(t, err)
	def.Groups[0].Metrics = append(def.Groups[0].Metrics, "ghost")
	def.Groups[1].Template = "{metric}_between_{ref_id:d}-{ref_ds}"

	_, err = NewGrammar(def)
	var verr *domain.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "grammar", verr.Entity)
	assert.GreaterOrEqual(t, len(verr.Errors), 2)
}
