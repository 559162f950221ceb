package store

import (
	"context"
	"testing"
	"time"

	"github.com/MichaelFlanagan/SystemFifty/pkg/apperr"

	"github.com/oapi-codegen/nullable"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPicksCurrentEmpty(t *testing.T) {
	s := newTestStore(t)

	p, err := s.Picks.Current(context.Background())
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestPicksCreateThenCurrent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	before := time.Now()
	created, err := s.Picks.Create(ctx, NewPick{Title: "Lakers -5.5", Content: "Take the Lakers"})
	require.NoError(t, err)

	assert.NotEmpty(t, created.ID)
	assert.Nil(t, created.ImageURL)
	assert.WithinDuration(t, before, created.CreatedAt, 5*time.Second)

	cur, err := s.Picks.Current(ctx)
	require.NoError(t, err)
	require.NotNil(t, cur)
	assert.Equal(t, created.ID, cur.ID)
	assert.Equal(t, "Lakers -5.5", cur.Title)
	assert.Equal(t, "Take the Lakers", cur.Content)
	assert.Nil(t, cur.ImageURL)
	assert.True(t, created.CreatedAt.Equal(cur.CreatedAt))
}

func TestPicksCurrentBreaksTimestampTies(t *testing.T) {
	s := newTestStore(t)
	same := time.Date(2025, 3, 1, 18, 0, 0, 0, time.UTC)
	s.Picks.WithClock(func() time.Time { return same })
	ctx := context.Background()

	var maxID string
	for _, title := range []string{"a", "b", "c", "d"} {
		p, err := s.Picks.Create(ctx, NewPick{Title: title, Content: "body"})
		require.NoError(t, err)
		if p.ID > maxID {
			maxID = p.ID
		}
	}
	for i := 0; i < 3; i++ {
		cur, err := s.Picks.Current(ctx)
		require.NoError(t, err)
		assert.Equal(t, maxID, cur.ID)
	}
}

func TestPicksCurrentFollowsLatestNotDeleted(t *testing.T) {
	s := newTestStore(t)
	s.Picks.WithClock(stepClock(time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)))
	ctx := context.Background()

	var ids []string
	for _, title := range []string{"first", "second", "third"} {
		p, err := s.Picks.Create(ctx, NewPick{Title: title, Content: "body"})
		require.NoError(t, err)
		ids = append(ids, p.ID)

		cur, err := s.Picks.Current(ctx)
		require.NoError(t, err)
		assert.Equal(t, p.ID, cur.ID)
	}

	_, err := s.Picks.Delete(ctx, ids[2])
	require.NoError(t, err)
	cur, err := s.Picks.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, ids[1], cur.ID)

	_, err = s.Picks.Delete(ctx, ids[0])
	require.NoError(t, err)
	cur, err = s.Picks.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, ids[1], cur.ID)

	_, err = s.Picks.Delete(ctx, ids[1])
	require.NoError(t, err)
	cur, err = s.Picks.Current(ctx)
	require.NoError(t, err)
	assert.Nil(t, cur)
}

func TestPicksCreateValidation(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.Picks.Create(ctx, NewPick{Title: "  ", Content: "x"})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = s.Picks.Create(ctx, NewPick{Title: "x", Content: ""})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	cur, err := s.Picks.Current(ctx)
	require.NoError(t, err)
	assert.Nil(t, cur)
}

func TestPicksCreateNormalizesEmptyImage(t *testing.T) {
	s := newTestStore(t)

	p, err := s.Picks.Create(context.Background(), NewPick{Title: "t", Content: "c", ImageURL: strPtr("")})
	require.NoError(t, err)
	assert.Nil(t, p.ImageURL)
}

func TestPicksUpdatePartial(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	img := "/uploads/1-2-pick.png"

	p, err := s.Picks.Create(ctx, NewPick{Title: "old", Content: "line one\nline two", ImageURL: &img})
	require.NoError(t, err)

	t.Run("title only", func(t *testing.T) {
		out, replaced, err := s.Picks.Update(ctx, p.ID, PickPatch{Title: nullable.NewNullableWithValue("X")})
		require.NoError(t, err)
		assert.Equal(t, "X", out.Title)
		assert.Equal(t, "line one\nline two", out.Content)
		require.NotNil(t, out.ImageURL)
		assert.Equal(t, img, *out.ImageURL)
		assert.Empty(t, replaced)
		assert.True(t, p.CreatedAt.Equal(out.CreatedAt))
		assert.Equal(t, p.ID, out.ID)
	})

	t.Run("explicit empty content", func(t *testing.T) {
		out, _, err := s.Picks.Update(ctx, p.ID, PickPatch{Content: nullable.NewNullableWithValue("")})
		require.NoError(t, err)
		assert.Equal(t, "", out.Content)
		assert.Equal(t, "X", out.Title)
	})

	t.Run("replace image", func(t *testing.T) {
		out, replaced, err := s.Picks.Update(ctx, p.ID, PickPatch{ImageURL: nullable.NewNullableWithValue("/uploads/3-4-new.png")})
		require.NoError(t, err)
		assert.Equal(t, "/uploads/3-4-new.png", *out.ImageURL)
		assert.Equal(t, []string{img}, replaced)
	})

	t.Run("clear image", func(t *testing.T) {
		out, replaced, err := s.Picks.Update(ctx, p.ID, PickPatch{ImageURL: nullable.NewNullNullable[string]()})
		require.NoError(t, err)
		assert.Nil(t, out.ImageURL)
		assert.Equal(t, []string{"/uploads/3-4-new.png"}, replaced)
	})

	t.Run("null title rejected", func(t *testing.T) {
		_, _, err := s.Picks.Update(ctx, p.ID, PickPatch{Title: nullable.NewNullNullable[string]()})
		assert.ErrorIs(t, err, apperr.ErrValidation)
	})

	t.Run("empty patch is a read", func(t *testing.T) {
		out, _, err := s.Picks.Update(ctx, p.ID, PickPatch{})
		require.NoError(t, err)
		assert.Equal(t, "X", out.Title)
	})
}

func TestPicksUnknownID(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, _, err := s.Picks.Update(ctx, "missing", PickPatch{Title: nullable.NewNullableWithValue("X")})
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = s.Picks.Delete(ctx, "missing")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	cur, err := s.Picks.Current(ctx)
	require.NoError(t, err)
	assert.Nil(t, cur, "NotFound must not create a substitute record")
}

func TestPicksDeleteReturnsImage(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p, err := s.Picks.Create(ctx, NewPick{Title: "t", Content: "c", ImageURL: strPtr("/uploads/a.png")})
	require.NoError(t, err)

	replaced, err := s.Picks.Delete(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"/uploads/a.png"}, replaced)

	_, err = s.Picks.Get(ctx, p.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}
