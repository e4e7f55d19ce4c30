package metadata

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-qa4sm/internal/domain"
	"github.com/ahrav/go-qa4sm/internal/testutils"
)

func TestRegistry_ERA5Scenario(t *testing.T) {
	g := testGrammar(t)
	reg := era5Registry(t, g)

	assert.Equal(t, -1, reg.Offset())
	assert.Equal(t, 4, reg.ReferenceIndex())
	assert.Equal(t, 4, reg.Count())

	ref := reg.Reference()
	assert.Equal(t, 5, ref.ID)
	assert.Equal(t, "ERA5", ref.Dataset.ShortName)
	assert.Equal(t, "ERA5 (v20190613)", ref.Dataset.PrettyTitle())

	others := reg.Others()
	require.Len(t, others, 3)
	assert.Equal(t, "2-C3S", others[0].String())
	assert.Equal(t, "3-ASCAT", others[1].String())
	assert.Equal(t, "4-SMOS", others[2].String())

	all := reg.All()
	require.Len(t, all, 4)
	assert.Equal(t, ref, all[0])

	t.Run("lookup applies the inverse offset", func(t *testing.T) {
		for _, tt := range []struct {
			id   int
			want string
		}{{2, "C3S"}, {3, "ASCAT"}, {4, "SMOS"}, {5, "ERA5"}} {
			ds, err := reg.Lookup(tt.id)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ds.ShortName, "id %d", tt.id)
			assert.Equal(t, tt.id+reg.Offset(), reg.IndexOf(tt.id))
		}
	})

	t.Run("id one maps to the unused index zero", func(t *testing.T) {
		_, err := reg.Lookup(1)
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrUnknownDatasetID)

		var derr *domain.DatasetError
		require.True(t, errors.As(err, &derr))
		assert.Equal(t, 1, derr.ID)
		assert.Equal(t, 0, derr.Index)
	})

	t.Run("field access", func(t *testing.T) {
		v, err := reg.Field(3, domain.FieldPrettyTitle)
		require.NoError(t, err)
		assert.Equal(t, "H-SAF ASCAT SSM CDR (H113)", v)

		_, err = reg.Field(3, "colour")
		assert.ErrorIs(t, err, domain.ErrUnknownField)

		_, err = reg.Field(42, domain.FieldShortName)
		assert.ErrorIs(t, err, domain.ErrUnknownDatasetID)
	})
}

func TestRegistry_ReferenceAtZero(t *testing.T) {
	g := testGrammar(t)
	attrs := testutils.NewAttributeBuilder().
		WithDataset(testutils.NewDatasetSpec(0, "ISMN")).
		WithDataset(testutils.NewDatasetSpec(1, "C3S")).
		WithDataset(testutils.NewDatasetSpec(2, "SMAP")).
		WithReference(0).
		Build()

	reg, err := NewRegistry(g, attrs)
	require.NoError(t, err)

	assert.Equal(t, 0, reg.Offset())
	assert.Equal(t, 0, reg.Reference().ID)
	ds, err := reg.Lookup(1)
	require.NoError(t, err)
	assert.Equal(t, "C3S", ds.ShortName)
	assert.Equal(t, 2, reg.IDOf(2))
}

func TestRegistry_OthersSortedByIndex(t *testing.T) {
	g := testGrammar(t)
	b := testutils.NewAttributeBuilder().WithReference(1)
	// Lexical key order would put 10 before 2.
	for _, idx := range []int{1, 2, 10, 3} {
		b.WithDataset(testutils.NewDatasetSpec(idx, fmt.Sprintf("DS%d", idx)))
	}

	reg, err := NewRegistry(g, b.Build())
	require.NoError(t, err)

	var ids []int
	for _, o := range reg.Others() {
		ids = append(ids, o.ID)
	}
	assert.Equal(t, []int{3, 4, 11}, ids)
}

func TestNewRegistry_Errors(t *testing.T) {
	g := testGrammar(t)

	tests := []struct {
		name    string
		attrs   *testutils.AttributeBuilder
		wantErr error
		wantKey string
	}{
		{
			name:    "missing reference attribute",
			attrs:   testutils.ERA5ScenarioAttributes().Without(testutils.ReferenceKey),
			wantErr: domain.ErrMissingReferenceAttribute,
			wantKey: testutils.ReferenceKey,
		},
		{
			name:    "reference attribute names no dataset key",
			attrs:   testutils.ERA5ScenarioAttributes().With(testutils.ReferenceKey, "ERA5"),
			wantErr: domain.ErrMissingReferenceAttribute,
			wantKey: testutils.ReferenceKey,
		},
		{
			name:    "reference dataset fields missing",
			attrs:   testutils.ERA5ScenarioAttributes().Without("val_dc_dataset_pretty_name4"),
			wantErr: domain.ErrMissingAttribute,
			wantKey: "val_dc_dataset_pretty_name4",
		},
		{
			name:    "other dataset version missing",
			attrs:   testutils.ERA5ScenarioAttributes().Without("val_dc_version_pretty_name2"),
			wantErr: domain.ErrMissingAttribute,
			wantKey: "val_dc_version_pretty_name2",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRegistry(g, tt.attrs.Build())
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)

			var aerr *domain.AttributeError
			require.True(t, errors.As(err, &aerr))
			assert.Equal(t, tt.wantKey, aerr.Key)
		})
	}
}

func TestRegistry_NumericAttributes(t *testing.T) {
	g := testGrammar(t)
	attrs := testutils.ERA5ScenarioAttributes().
		With("val_dc_version_pretty_name1", 201812).
		Build()

	reg, err := NewRegistry(g, attrs)
	require.NoError(t, err)
	ds, err := reg.Lookup(2)
	require.NoError(t, err)
	assert.Equal(t, "201812", ds.PrettyVersion)
}

// TestRegistry_CountAndOffset checks every layout the generator produces:
// the registry sees all n datasets and the offset is zero exactly when the
// reference sits at index zero.
func TestRegistry_CountAndOffset(t *testing.T) {
	g := testGrammar(t)

	for n := 1; n <= 6; n++ {
		for _, refIndex := range []int{0, 1, n} {
			t.Run(fmt.Sprintf("n=%d/ref=%d", n, refIndex), func(t *testing.T) {
				f, err := testutils.GenerateResultFile(n, refIndex, int64(n*31+refIndex))
				require.NoError(t, err)

				reg, err := NewRegistry(g, f.AttributeMap())
				require.NoError(t, err)

				assert.Equal(t, n, reg.Count())
				assert.Equal(t, refIndex == 0, reg.Offset() == 0)
				assert.Equal(t, f.Offset, reg.Offset())
				assert.Equal(t, f.Reference.ShortName, reg.Reference().Dataset.ShortName)

				for _, o := range f.Others {
					ds, err := reg.Lookup(f.ID(o.Index))
					require.NoError(t, err)
					assert.Equal(t, o.Dataset(), ds)
				}
			})
		}
	}
}

func TestRegistry_ConcurrentReaders(t *testing.T) {
	g := testGrammar(t)
	reg := era5Registry(t, g)

	var wg sync.WaitGroup
	for i := range 16 {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for range 100 {
				_, _ = reg.Lookup(id)
				_ = reg.Others()
			}
		}(2 + i%4)
	}
	wg.Wait()
}
