package message

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZertGraf/gerrit-automerge/internal/domain"
)

func TestLoadDefaults(t *testing.T) {
	tmpls, err := Load(nil)
	require.NoError(t, err)

	change := &domain.Change{Project: "infra/tools", Number: 7, Topic: "T"}

	detected, err := tmpls.Render(AtomicReviewDetected, &Data{Change: change})
	require.NoError(t, err)
	assert.Contains(t, detected, `Atomic review detected`)
	assert.Contains(t, detected, `"T"`)

	blocked, err := tmpls.Render(AtomicReviewsSameRepo, &Data{Change: change})
	require.NoError(t, err)
	assert.Contains(t, blocked, "infra/tools")
}

func TestCantMergeListsUnmergeableMembers(t *testing.T) {
	tmpls, err := Load(nil)
	require.NoError(t, err)

	out, err := tmpls.Render(CantMerge, &Data{
		Change: &domain.Change{Project: "a", Number: 1, Topic: "T"},
		Unmergeable: []domain.ChangeRef{
			{Project: "b", Number: 2},
			{Project: "c", Number: 3},
		},
	})
	require.NoError(t, err)
	assert.Contains(t, out, "2 change(s)")
	assert.Contains(t, out, "* b~2")
	assert.Contains(t, out, "* c~3")
	assert.NotContains(t, out, "a~1")
}

func TestLoadOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "detected.txt")
	require.NoError(t, os.WriteFile(path, []byte(`topic {{ .Change.Topic | upper }}`), 0o644))

	tmpls, err := Load(map[Ref]string{AtomicReviewDetected: path})
	require.NoError(t, err)

	out, err := tmpls.Render(AtomicReviewDetected, &Data{Change: &domain.Change{Topic: "abc"}})
	require.NoError(t, err)
	assert.Equal(t, "topic ABC", out)

	// untouched refs keep the built-in text
	out, err = tmpls.Render(CantMerge, &Data{Change: &domain.Change{Topic: "abc"}})
	require.NoError(t, err)
	assert.Contains(t, out, "cannot be merged cleanly")
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(map[Ref]string{CantMerge: filepath.Join(t.TempDir(), "missing.txt")})
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "broken.txt")
	require.NoError(t, os.WriteFile(path, []byte(`{{ .Change.Topic `), 0o644))
	_, err = Load(map[Ref]string{CantMerge: path})
	assert.Error(t, err)
}

func TestRenderUnknownRef(t *testing.T) {
	tmpls, err := Load(nil)
	require.NoError(t, err)

	_, err = tmpls.Render(Ref("nope"), &Data{})
	assert.Error(t, err)
}
