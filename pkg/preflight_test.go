package rema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToolVersion(t *testing.T) {
	tests := []struct {
		output string
		want   string
	}{
		{"git version 2.39.3 (Apple Git-146)", "2.39.3"},
		{"gh version 2.40.1 (2023-12-13)\nhttps://github.com/cli/cli/releases/tag/v2.40.1\n", "2.40.1"},
		{"git version 2.43.windows.1", "2.43.0"},
	}
	for _, tc := range tests {
		v, err := ToolVersion(tc.output)
		require.NoError(t, err, tc.output)
		assert.Equal(t, tc.want, v.String())
	}

	_, err := ToolVersion("command not found")
	assert.Error(t, err)
}

func TestCheckToolVersion(t *testing.T) {
	v, err := CheckToolVersion("git", "git version 2.39.3", "2.30.0", "3.0.0")
	require.NoError(t, err)
	assert.Equal(t, "2.39.3", v.String())

	_, err = CheckToolVersion("git", "git version 2.20.1", "2.30.0", "")
	assert.ErrorIs(t, err, ErrUnsupportedTool)

	_, err = CheckToolVersion("gh", "gh version 3.0.0", "", "3.0.0")
	assert.ErrorIs(t, err, ErrUnsupportedTool)

	_, err = CheckToolVersion("gh", "gh version 1.0.0", "", "")
	assert.NoError(t, err)

	_, err = CheckToolVersion("gh", "garbage", "", "")
	assert.ErrorIs(t, err, ErrUnsupportedTool)

	_, err = CheckToolVersion("gh", "gh version 2.0.0", "two", "")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrUnsupportedTool)
}
