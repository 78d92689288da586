package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSort(t *testing.T) {
	spec, err := ParseSort("")
	require.NoError(t, err)
	assert.Equal(t, DefaultSort, spec)

	spec, err = ParseSort("-updated_date")
	require.NoError(t, err)
	assert.Equal(t, SortSpec{Field: "updated_date", Descending: true}, spec)
	assert.Equal(t, "-updated_date", spec.String())

	spec, err = ParseSort("title")
	require.NoError(t, err)
	assert.Equal(t, SortSpec{Field: "title"}, spec)

	for _, bad := range []string{"-", "title; drop table", "Title", "data->>x", "--x"} {
		_, err := ParseSort(bad)
		assert.ErrorIs(t, err, ErrInvalidSort, bad)
	}
}

func TestPatch_Validate(t *testing.T) {
	assert.NoError(t, Patch{"title": "x", "content": "y"}.Validate())

	for _, field := range []string{"id", "workspace_id", "created_date", "updated_date"} {
		err := Patch{field: "x"}.Validate()
		assert.ErrorIs(t, err, ErrImmutableField, field)
	}
}

func TestIsClientPreferenceKey(t *testing.T) {
	assert.True(t, IsClientPreferenceKey("draft:123"))
	assert.True(t, IsClientPreferenceKey("tutorial:onboarding"))
	assert.True(t, IsClientPreferenceKey("ui:sidebar"))
	assert.False(t, IsClientPreferenceKey("draft:"))
	assert.False(t, IsClientPreferenceKey(PrefActiveWorkspaceID))
	assert.False(t, IsClientPreferenceKey(PrefCurrentUser))
}
