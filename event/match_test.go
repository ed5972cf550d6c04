package event

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/foldfile/pkg/errors"
)

func TestPatternMatch(t *testing.T) {
	tests := []struct {
		pattern string
		name    string
		want    bool
	}{
		{"Cluster_*", "Cluster_pt", true},
		{"Cluster_*", "Track_pt", false},
		{"*_pt", "Track_pt", true},
		{"*_pt", "Track_eta", false},
		{"*ust*", "Cluster_pt", true},
		{"*", "anything", true},
		{"weight", "weight", true},
		{"weight", "weights", false},
	}
	for _, tt := range tests {
		t.Run(tt.pattern+"/"+tt.name, func(t *testing.T) {
			p, err := ParsePattern(tt.pattern)
			require.NoError(t, err)
			assert.Equal(t, tt.want, p.Match(tt.name))
		})
	}
}

func TestParsePatternRejects(t *testing.T) {
	for _, s := range []string{"", "Clu*ster", "a*b*"} {
		_, err := ParsePattern(s)
		var vErr *errors.ValidationError
		assert.ErrorAs(t, err, &vErr, "pattern %q", s)
	}
}

func TestResolve(t *testing.T) {
	catalog := []FieldInfo{
		{Name: "Cluster_eta", Kind: KindJagged},
		{Name: "Cluster_pt", Kind: KindJagged},
		{Name: "eventNumber", Kind: KindScalar},
		{Name: "weight", Kind: KindScalar},
	}

	got, err := Resolve(catalog, []string{"weight", "Cluster_*", "*_pt"})
	require.NoError(t, err)
	names := make([]string, len(got))
	for i, f := range got {
		names[i] = f.Name
	}
	assert.Equal(t, []string{"weight", "Cluster_eta", "Cluster_pt"}, names)

	_, err = Resolve(catalog, []string{"Track_*"})
	var mErr *errors.MissingFieldError
	require.ErrorAs(t, err, &mErr)
	assert.Equal(t, "Track_*", mErr.Field)
}
