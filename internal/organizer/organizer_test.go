package organizer

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func viewOf(dir string, names ...string) *DirView {
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	return NewDirView(dir, set)
}

func TestParseCollisionPolicy(t *testing.T) {
	for in, want := range map[string]CollisionPolicy{
		"":       PolicySuffix,
		"suffix": PolicySuffix,
		" SKIP ": PolicySkip,
		"skip":   PolicySkip,
		"Suffix": PolicySuffix,
	} {
		got, err := ParseCollisionPolicy(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseCollisionPolicy("overwrite")
	assert.True(t, errors.Is(err, ErrUnknownPolicy))
}

func TestPlanRename_FreeTarget(t *testing.T) {
	view := viewOf("/music", "Track#1.mp3", "other.mp3")

	plan, err := PlanRename(view, []byte("Track#1.mp3"), []byte("TrackNo.1.mp3"), false, PolicySuffix)
	require.NoError(t, err)
	assert.Equal(t, "TrackNo.1.mp3", string(plan.To))
	assert.False(t, plan.IsDuplicate)
	assert.Equal(t, filepath.Join("/music", "Track#1.mp3"), plan.Source())
	assert.Equal(t, filepath.Join("/music", "TrackNo.1.mp3"), plan.Destination())

	assert.False(t, view.Has("Track#1.mp3"))
	assert.True(t, view.Has("TrackNo.1.mp3"))
	assert.Equal(t, 2, view.Len())
}

func TestPlanRename_SuffixPolicy(t *testing.T) {
	view := viewOf("/music", "a:b.mp3", "a/b.mp3", "a-b.mp3")

	first, err := PlanRename(view, []byte("a:b.mp3"), []byte("a-b.mp3"), false, PolicySuffix)
	require.NoError(t, err)
	assert.True(t, first.IsDuplicate)
	assert.Equal(t, "a-b_duplicate.mp3", string(first.To))
	assert.Equal(t, "a-b.mp3", string(first.Requested))

	second, err := PlanRename(view, []byte("a/b.mp3"), []byte("a-b.mp3"), false, PolicySuffix)
	require.NoError(t, err)
	assert.Equal(t, "a-b_duplicate_2.mp3", string(second.To))
}

func TestPlanRename_SkipPolicy(t *testing.T) {
	view := viewOf("/music", "F#.mp3", "F sharp.mp3")

	_, err := PlanRename(view, []byte("F#.mp3"), []byte("F sharp.mp3"), false, PolicySkip)
	require.Error(t, err)

	var renameErr *RenameError
	require.True(t, errors.As(err, &renameErr))
	assert.Equal(t, DestinationExists, renameErr.Type)
	assert.True(t, view.Has("F#.mp3"))
}

func TestRename_MovesEntry(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "old.mp3"), []byte("audio"), 0644))

	plan := &Plan{Dir: dir, From: []byte("old.mp3"), To: []byte("new.mp3")}
	require.NoError(t, Rename(plan))

	assert.False(t, Exists(filepath.Join(dir, "old.mp3")))
	data, err := os.ReadFile(filepath.Join(dir, "new.mp3"))
	require.NoError(t, err)
	assert.Equal(t, "audio", string(data))
}

func TestRename_NeverOverwrites(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.mp3"), []byte("a"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.mp3"), []byte("b"), 0644))

	err := Rename(&Plan{Dir: dir, From: []byte("a.mp3"), To: []byte("b.mp3")})
	var renameErr *RenameError
	require.True(t, errors.As(err, &renameErr))
	assert.Equal(t, DestinationExists, renameErr.Type)

	data, err := os.ReadFile(filepath.Join(dir, "b.mp3"))
	require.NoError(t, err)
	assert.Equal(t, "b", string(data))
}

func TestRename_SourceMissing(t *testing.T) {
	dir := t.TempDir()

	err := Rename(&Plan{Dir: dir, From: []byte("gone.mp3"), To: []byte("x.mp3")})
	var renameErr *RenameError
	require.True(t, errors.As(err, &renameErr))
	assert.Equal(t, SourceNotFound, renameErr.Type)
	assert.True(t, errors.Is(err, os.ErrNotExist))
	assert.Contains(t, err.Error(), "SOURCE_NOT_FOUND")
}

func TestRename_Directory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "Live [1999]", "disc"), 0755))

	plan := &Plan{Dir: dir, From: []byte("Live [1999]"), To: []byte("Live 1999"), IsDir: true}
	require.NoError(t, Rename(plan))
	assert.True(t, Exists(filepath.Join(dir, "Live 1999", "disc")))
}

func TestNewDirView_CopiesNames(t *testing.T) {
	names := map[string]struct{}{"a": {}}
	view := NewDirView("/d", names)
	names["b"] = struct{}{}

	assert.False(t, view.Has("b"))
	view.Add("c")
	assert.True(t, view.Has("c"))
	assert.Equal(t, "/d", view.Dir())
}
