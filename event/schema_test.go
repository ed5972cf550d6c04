package event

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/foldfile/pkg/errors"
)

var testCatalog = []FieldInfo{
	{Name: "Cluster_eta", Kind: KindJagged},
	{Name: "Cluster_pt", Kind: KindJagged},
	{Name: "MET_pt", Kind: KindScalar},
	{Name: "Track_d0", Kind: KindJagged},
	{Name: "eventNumber", Kind: KindScalar},
	{Name: "weight", Kind: KindScalar},
}

func TestNewSchema(t *testing.T) {
	s, err := NewSchema(testCatalog,
		[]string{"weight", "eventNumber", "weight"},
		[]Collection{{Name: "Cluster", Attributes: []string{"pt", "eta"}}})
	require.NoError(t, err)

	assert.Equal(t, []string{"weight", "eventNumber"}, s.Scalars)
	assert.Equal(t, []string{"weight", "eventNumber", "Cluster_pt", "Cluster_eta"}, s.Fields())

	kind, ok := s.Kind("Cluster_pt")
	assert.True(t, ok)
	assert.Equal(t, KindJagged, kind)
}

func TestNewSchemaErrors(t *testing.T) {
	tests := []struct {
		name        string
		scalars     []string
		collections []Collection
		missing     bool
	}{
		{"missing scalar", []string{"runNumber"}, nil, true},
		{"missing attribute", nil, []Collection{{Name: "Cluster", Attributes: []string{"pt", "phi"}}}, true},
		{"scalar is jagged", []string{"Cluster_pt"}, nil, false},
		{"attribute is scalar", nil, []Collection{{Name: "MET", Attributes: []string{"pt"}}}, false},
		{"no attributes", nil, []Collection{{Name: "Cluster"}}, false},
		{"duplicate attribute", nil, []Collection{{Name: "Cluster", Attributes: []string{"pt", "pt"}}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSchema(testCatalog, tt.scalars, tt.collections)
			require.Error(t, err)
			assert.True(t, errors.IsConfigError(err))
			var mErr *errors.MissingFieldError
			assert.Equal(t, tt.missing, errors.As(err, &mErr))
		})
	}
}

func TestCollectionAttributes(t *testing.T) {
	assert.Equal(t, []string{"eta", "pt"}, CollectionAttributes(testCatalog, "Cluster"))
	assert.Equal(t, []string{"d0"}, CollectionAttributes(testCatalog, "Track"))
	assert.Empty(t, CollectionAttributes(testCatalog, "MET"), "scalar fields are not attributes")
	assert.Empty(t, CollectionAttributes(testCatalog, "Clus"))

	catalog := []FieldInfo{
		{Name: "Large_R_Jet_pt", Kind: KindJagged},
		{Name: "Large_R_Jet_m", Kind: KindJagged},
		{Name: "Large_R_Jet", Kind: KindScalar},
	}
	assert.Equal(t, []string{"pt", "m"}, CollectionAttributes(catalog, "Large_R_Jet"))
}
