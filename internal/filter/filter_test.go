package filter

import (
	"testing"
	"time"

	"github.com/KaramelBytes/sheetscope-cli/internal/dataset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(d int) time.Time { return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC) }

func fixture() *dataset.Dataset {
	return dataset.MustNew("sales",
		dataset.Column{Name: "Date", Values: []dataset.Value{
			dataset.Time(date(1)), dataset.Time(date(2)), dataset.Null(), dataset.Time(date(4)), dataset.Time(date(5)),
		}},
		dataset.Column{Name: "Region", Values: []dataset.Value{
			dataset.Text("North"), dataset.Text("South"), dataset.Text("North"), dataset.Text("East"), dataset.Null(),
		}},
		dataset.Column{Name: "Sales", Values: []dataset.Value{
			dataset.Number(10), dataset.Null(), dataset.Number(30), dataset.Number(40), dataset.Number(50),
		}},
	)
}

func ptr(t time.Time) *time.Time { return &t }

func TestApplyEmptySpecReturnsInput(t *testing.T) {
	ds := fixture()
	out, err := Apply(ds, Spec{CategoryColumn: "Region"})
	require.NoError(t, err)
	assert.True(t, out.Equal(ds))
	assert.True(t, Spec{CategoryColumn: "Region", Categories: []string{}}.IsEmpty())
	assert.Equal(t, "none", Spec{}.String())
}

func TestApplyDateRangeInclusive(t *testing.T) {
	ds := fixture()
	out, err := Apply(ds, Spec{DateColumn: "Date", From: ptr(date(2)), To: ptr(date(4))})
	require.NoError(t, err)
	require.Equal(t, 2, out.Rows())
	got, _ := out.At(0, 0).Time()
	assert.True(t, got.Equal(date(2)))
	got, _ = out.At(1, 0).Time()
	assert.True(t, got.Equal(date(4)))

	// open lower bound still drops the null date
	out, err = Apply(ds, Spec{DateColumn: "Date", To: ptr(date(2))})
	require.NoError(t, err)
	assert.Equal(t, 2, out.Rows())
}

func TestApplyCategoryAndMissingCompose(t *testing.T) {
	ds := fixture()
	out, err := Apply(ds, Spec{CategoryColumn: "Region", Categories: []string{"North", "South"}})
	require.NoError(t, err)
	assert.Equal(t, 3, out.Rows())

	out, err = Apply(ds, Spec{CategoryColumn: "Region", Categories: []string{"North", "South"}, MissingOnly: true})
	require.NoError(t, err)
	// South row has null Sales, second North row has null Date
	assert.Equal(t, 2, out.Rows())

	out, err = Apply(ds, Spec{MissingOnly: true})
	require.NoError(t, err)
	assert.Equal(t, 3, out.Rows())
}

func TestApplyIsIdempotent(t *testing.T) {
	ds := fixture()
	specs := []Spec{
		{DateColumn: "Date", From: ptr(date(1)), To: ptr(date(4))},
		{CategoryColumn: "Region", Categories: []string{"North"}},
		{MissingOnly: true},
		{DateColumn: "Date", From: ptr(date(2)), CategoryColumn: "Region", Categories: []string{"East", "South"}},
	}
	for _, s := range specs {
		once, err := Apply(ds, s)
		require.NoError(t, err)
		twice, err := Apply(once, s)
		require.NoError(t, err)
		assert.True(t, once.Equal(twice), "spec %s", s)
	}
	assert.Equal(t, 5, ds.Rows(), "source untouched")
}

func TestApplyUnknownColumn(t *testing.T) {
	_, err := Apply(fixture(), Spec{CategoryColumn: "Nope", Categories: []string{"x"}})
	assert.ErrorIs(t, err, ErrUnknownColumn)
	_, err = Apply(fixture(), Spec{DateColumn: "Nope", From: ptr(date(1))})
	assert.ErrorIs(t, err, ErrUnknownColumn)
}

func TestSpecString(t *testing.T) {
	s := Spec{DateColumn: "Date", From: ptr(date(1)), CategoryColumn: "Region", Categories: []string{"North"}, MissingOnly: true}
	assert.Equal(t, "Date in [2024-01-01, *] AND Region in {North} AND rows with missing values", s.String())
}
