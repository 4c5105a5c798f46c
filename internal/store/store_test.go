package store

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/aescanero/dago-node-template/internal/markup"
)

func newStore(t *testing.T, opts ...Option) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStore(client, zap.NewNop(), opts...), mr
}

func TestSaveLoad(t *testing.T) {
	s, mr := newStore(t)
	ctx := context.Background()

	tmpl := markup.New("T")
	_, err := tmpl.AddParam("1", markup.Text("x"), true)
	require.NoError(t, err)
	_, err = tmpl.AddParam("name", markup.Nested(markup.NewText("a"), markup.New("b")), false)
	require.NoError(t, err)

	require.NoError(t, s.Save(ctx, "page-1", tmpl))
	assert.True(t, mr.Exists(DefaultPrefix+"page-1"))

	loaded, err := s.Load(ctx, "page-1")
	require.NoError(t, err)
	assert.Equal(t, "{{T|x|name=a{{b}}}}", loaded.Rebuild())

	ok, err := s.Exists(ctx, "page-1")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, s.Delete(ctx, "page-1"))
	_, err = s.Load(ctx, "page-1")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestSaveRequiresID(t *testing.T) {
	s, _ := newStore(t)
	require.Error(t, s.Save(context.Background(), "", markup.NewText("x")))
}

func TestLoadRejectsDeepTemplates(t *testing.T) {
	s, mr := newStore(t, WithMaxDepth(1))
	require.NoError(t, mr.Set(DefaultPrefix+"deep",
		`{"title":"a","params":[{"name":"1","index":true,"value":[{"title":"b"}]}]}`))

	_, err := s.Load(context.Background(), "deep")
	require.ErrorIs(t, err, markup.ErrNestingTooDeep)
}

func TestTTL(t *testing.T) {
	s, mr := newStore(t, WithTTL(time.Minute), WithPrefix("tpl:"))
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, "a", markup.NewText("x")))
	assert.Equal(t, time.Minute, mr.TTL("tpl:a"))

	require.NoError(t, s.SetTTL(ctx, "a", time.Hour))
	assert.Equal(t, time.Hour, mr.TTL("tpl:a"))
}

func TestList(t *testing.T) {
	s, mr := newStore(t)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, "a", markup.NewText("x")))
	require.NoError(t, s.Save(ctx, "b", markup.NewText("y")))
	require.NoError(t, mr.Set("other:key", "z"))

	ids, err := s.List(ctx)
	require.NoError(t, err)
	sort.Strings(ids)
	assert.Equal(t, []string{"a", "b"}, ids)
}
