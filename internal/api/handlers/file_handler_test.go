package handlers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormBool(t *testing.T) {
	tests := []struct {
		raw  string
		want bool
	}{
		{"", false},
		{"on", true},
		{"ON", true},
		{"yes", true},
		{"true", true},
		{"1", true},
		{" True ", true},
		{"off", false},
		{"no", false},
		{"false", false},
		{"0", false},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := formBool(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	for _, raw := range []string{"maybe", "private", "2"} {
		_, err := formBool(raw)
		assert.Error(t, err, raw)
	}
}

func TestFormList(t *testing.T) {
	assert.Equal(t, []string{"coach", "client"}, formList(`["coach","client"]`))
	assert.Equal(t, []string{"coach", "client"}, formList(" coach, ,client "))
	assert.Empty(t, formList(""))
}
