package reference

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matsen/bibnet/internal/datasource"
)

func TestRecordRoundTrip(t *testing.T) {
	ref := Reference{
		ID:         "abc",
		DOI:        "10.1093/ve/vey016",
		Title:      "Bayesian phylogenetic and phylodynamic data integration",
		Authors:    []Author{{ID: "1", First: "Marc A.", Last: "Suchard"}},
		Published:  PublicationDate{Year: 2018, Month: 6},
		References: []string{"def", "ghi"},
		Source:     ImportSource{Type: "s2", ID: "abc"},
	}

	rec, err := ref.ToRecord()
	require.NoError(t, err)
	assert.Equal(t, "abc", rec["id"])
	assert.Equal(t, []any{"def", "ghi"}, rec["references"])

	back, err := FromRecord(rec)
	require.NoError(t, err)
	assert.Equal(t, ref, back)
}

func TestFromRecord_PartialAndBadTypes(t *testing.T) {
	ref, err := FromRecord(datasource.Record{"title": "Only a title", "extra": 1})
	require.NoError(t, err)
	assert.Equal(t, "Only a title", ref.Title)

	_, err = FromRecord(datasource.Record{"title": 42})
	assert.Error(t, err)
}

func TestAuthorKey(t *testing.T) {
	tests := []struct {
		author Author
		want   string
	}{
		{Author{ID: "42", First: "Ada", Last: "Lovelace"}, "42"},
		{Author{First: "Ada", Last: "Lovelace"}, "Ada Lovelace"},
		{Author{Last: "Madonna"}, "Madonna"},
	}
	for _, tt := range tests {
		if got := tt.author.Key(); got != tt.want {
			t.Errorf("Key() = %q, want %q", got, tt.want)
		}
	}
}

func TestText(t *testing.T) {
	assert.Equal(t, "T", Reference{Title: "T"}.Text())
	assert.Equal(t, "T\nA", Reference{Title: "T", Abstract: "A"}.Text())
}
