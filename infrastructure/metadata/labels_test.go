package metadata

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-qa4sm/internal/domain"
)

func TestLabels(t *testing.T) {
	g := testGrammar(t)
	reg := era5Registry(t, g)
	l := NewLabels(g)

	common := resolveName(t, g, reg, "n_obs")
	pairwise := resolveName(t, g, reg, "R_between_5-ERA5_and_2-C3S")
	tc := resolveName(t, g, reg, "snr_2-C3S_between_5-ERA5_and_2-C3S_and_3-ASCAT")

	t.Run("box caption", func(t *testing.T) {
		got, err := l.BoxCaption(pairwise, false)
		require.NoError(t, err)
		assert.Equal(t, "2-C3S\n(v201812)", got)

		got, err = l.BoxCaption(tc, true)
		require.NoError(t, err)
		assert.Equal(t, "Other Data:\n3-H-SAF ASCAT SSM CDR\n(H113)", got)

		_, err = l.BoxCaption(common, false)
		assert.ErrorIs(t, err, ErrLabelDataset)
	})

	t.Run("titles", func(t *testing.T) {
		tests := []struct {
			kind LabelKind
			v    domain.MetricVariable
			want string
		}{
			{BoxplotBasic, common, "Intercomparison of \n# observations \nwith 5-ERA5 (v20190613) \nas the reference"},
			{BoxplotTC, tc, "Intercomparison of \nTC: Signal-to-noise ratio \nfor 2-C3S (v201812) \nwith 5-ERA5 (v20190613) \nas the reference"},
			{MapplotBasic, pairwise, "Pearson's r for 2-C3S (v201812) with 5-ERA5 (v20190613) as the reference"},
			{MapplotTC, tc, "TC: Signal-to-noise ratio for 2-C3S (v201812) with 5-ERA5 (v20190613) and 3-H-SAF ASCAT SSM CDR (H113) as the references"},
		}
		for _, tt := range tests {
			t.Run(string(tt.kind), func(t *testing.T) {
				got, err := l.Title(tt.v, tt.kind)
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
			})
		}
	})

	t.Run("filenames", func(t *testing.T) {
		for _, tt := range []struct {
			kind LabelKind
			tc   bool
			want string
		}{
			{BoxplotBasic, false, "boxplot_R"},
			{BoxplotTC, true, "boxplot_snr_for_2-C3S"},
			{MapplotCommon, false, "overview_R"},
			{MapplotDouble, false, "overview_R_2-C3S_and_5-ERA5"},
			{MapplotTC, true, "overview_snr_for_2-C3S_with_5-ERA5_and_3-ASCAT"},
		} {
			t.Run(string(tt.kind), func(t *testing.T) {
				v := pairwise
				if tt.tc {
					v = tc
				}
				got, err := l.Filename(v, tt.kind)
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
			})
		}
	})

	t.Run("errors", func(t *testing.T) {
		_, err := l.Title(pairwise, "histogram")
		assert.ErrorIs(t, err, ErrUnknownLabelKind)

		_, err = l.Filename(pairwise, "histogram")
		assert.ErrorIs(t, err, ErrUnknownLabelKind)

		_, err = l.Title(common, MapplotBasic)
		assert.ErrorIs(t, err, ErrLabelDataset)

		_, err = l.Title(pairwise, MapplotTC)
		assert.ErrorIs(t, err, ErrLabelDataset)

		_, err = l.Filename(pairwise, MapplotTC)
		assert.ErrorIs(t, err, ErrLabelDataset)
	})
}
