package visibility

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markdave123-py/CoachHub/internal/models"
)

func decodeFile(t *testing.T, raw string) models.File {
	t.Helper()
	var f models.File
	require.NoError(t, json.Unmarshal([]byte(raw), &f))
	return f
}

func TestIsVisible(t *testing.T) {
	coach := models.Viewer{Email: "coach@example.com", Role: models.RoleCoach}
	practitioner := models.Viewer{Email: "pr@example.com", Role: models.RolePractitioner}

	tests := []struct {
		name     string
		raw      string
		viewer   models.Viewer
		expected bool
	}{
		{
			name:     "owner sees private file",
			raw:      `{"created_by":"coach@example.com","isPrivate":true}`,
			viewer:   coach,
			expected: true,
		},
		{
			name:     "private hides from shared role",
			raw:      `{"created_by":"x@example.com","isPrivate":true,"sharedWithRoles":"[\"coach\"]"}`,
			viewer:   coach,
			expected: false,
		},
		{
			name:     "role share grants access",
			raw:      `{"created_by":"x@example.com","isPrivate":false,"sharedWithRoles":"[\"coach\",\"client\"]"}`,
			viewer:   coach,
			expected: true,
		},
		{
			name:     "role not in share list",
			raw:      `{"created_by":"x@example.com","isPrivate":false,"sharedWithRoles":"[\"coach\",\"client\"]"}`,
			viewer:   practitioner,
			expected: false,
		},
		{
			name:     "user share grants access",
			raw:      `{"created_by":"x@example.com","sharedWithUsers":"[\"pr@example.com\"]"}`,
			viewer:   practitioner,
			expected: true,
		},
		{
			name:     "malformed roles falls through to users",
			raw:      `{"created_by":"x@example.com","sharedWithRoles":"[coach","sharedWithUsers":"[\"pr@example.com\"]"}`,
			viewer:   practitioner,
			expected: true,
		},
		{
			name:     "malformed everything is not visible",
			raw:      `{"created_by":"x@example.com","sharedWithRoles":"{","sharedWithUsers":"nope"}`,
			viewer:   practitioner,
			expected: false,
		},
		{
			name:     "no shares",
			raw:      `{"created_by":"x@example.com"}`,
			viewer:   coach,
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsVisible(decodeFile(t, tt.raw), tt.viewer))
		})
	}
}

func TestIsVisible_MalformedEqualsEmpty(t *testing.T) {
	viewer := models.Viewer{Email: "v@example.com", Role: models.RoleClient}
	malformed := decodeFile(t, `{"created_by":"o@example.com","sharedWithRoles":"[[","sharedWithUsers":"}"}`)
	empty := decodeFile(t, `{"created_by":"o@example.com","sharedWithRoles":"[]","sharedWithUsers":null}`)
	assert.Equal(t, IsVisible(empty, viewer), IsVisible(malformed, viewer))
}

func TestIsVisible_NotesShareRules(t *testing.T) {
	note := models.Note{
		Meta:            models.Meta{ID: "n1", CreatedBy: "coach@example.com"},
		SharedWithUsers: models.StringList{"client@example.com"},
	}
	assert.True(t, IsVisible(note, models.Viewer{Email: "client@example.com", Role: models.RoleClient}))
	assert.False(t, IsVisible(note, models.Viewer{Email: "other@example.com", Role: models.RoleClient}))

	note.IsPrivate = true
	assert.False(t, IsVisible(note, models.Viewer{Email: "client@example.com", Role: models.RoleClient}))
	assert.True(t, IsVisible(note, models.Viewer{Email: "coach@example.com", Role: models.RoleCoach}))
}

func TestFilter_KeepsOrder(t *testing.T) {
	viewer := models.Viewer{Email: "me@example.com", Role: models.RoleClient}
	files := []models.File{
		{Meta: models.Meta{ID: "a", CreatedBy: "me@example.com"}, IsPrivate: true},
		{Meta: models.Meta{ID: "b", CreatedBy: "x@example.com"}, IsPrivate: true},
		{Meta: models.Meta{ID: "c", CreatedBy: "x@example.com"}, SharedWithRoles: models.StringList{"client"}},
		{Meta: models.Meta{ID: "d", CreatedBy: "x@example.com"}},
	}

	got := Filter(files, viewer)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].ID)
	assert.Equal(t, "c", got[1].ID)
}

func TestCanModify(t *testing.T) {
	f := models.File{Meta: models.Meta{CreatedBy: "owner@example.com"}}
	assert.True(t, CanModify(f, models.Viewer{Email: "owner@example.com", Role: models.RoleClient}))
	assert.True(t, CanModify(f, models.Viewer{Email: "root@example.com", Role: models.RoleAdmin}))
	assert.False(t, CanModify(f, models.Viewer{Email: "coach@example.com", Role: models.RoleCoach}))
}
