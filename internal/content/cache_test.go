package content

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newCached(t *testing.T, next Catalog) *CachedCatalog {
	t.Helper()
	c, err := NewCachedCatalog(next, 16, time.Minute)
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c
}

func TestCachedCatalogServesRepeatedReadsFromCache(t *testing.T) {
	cat := newCatalog()
	c := newCached(t, cat)
	ctx := context.Background()

	for range 3 {
		topics, err := c.ListTopics(ctx)
		require.NoError(t, err)
		require.Equal(t, []string{"кот", "пусто", "собака"}, topics)

		links, err := c.LinksForSinger(ctx, "queen")
		require.NoError(t, err)
		require.Equal(t, []string{"https://music.example/queen"}, links)
	}
	require.Equal(t, 1, cat.count("topics"))
	require.Equal(t, 1, cat.count("singer:queen"))

	c.Invalidate()
	_, err := c.ListTopics(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, cat.count("topics"))
}

func TestCachedCatalogKeepsTermsApart(t *testing.T) {
	cat := newCatalog()
	c := newCached(t, cat)
	ctx := context.Background()

	cats, err := c.LinksForTopic(ctx, "кот")
	require.NoError(t, err)
	dogs, err := c.LinksForTopic(ctx, "собака")
	require.NoError(t, err)
	require.Equal(t, cat.topics["кот"], cats)
	require.Equal(t, cat.topics["собака"], dogs)

	empty, err := c.LinksForTopic(ctx, "пусто")
	require.NoError(t, err)
	require.Empty(t, empty)
	_, err = c.LinksForTopic(ctx, "пусто")
	require.NoError(t, err)
	require.Equal(t, 1, cat.count("topic:пусто"))
}

func TestCachedCatalogDoesNotCacheErrors(t *testing.T) {
	cat := newCatalog()
	cat.err = errors.New("db down")
	c := newCached(t, cat)
	ctx := context.Background()

	_, err := c.MemePool(ctx)
	require.ErrorIs(t, err, cat.err)

	cat.mu.Lock()
	cat.err = nil
	cat.mu.Unlock()

	links, err := c.MemePool(ctx)
	require.NoError(t, err)
	require.Len(t, links, 3)
	require.Equal(t, 2, cat.count("pool:meme"))
}

func TestCachedCatalogConcurrentReads(t *testing.T) {
	cat := newCatalog()
	c := newCached(t, cat)

	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			links, err := c.MusicPool(context.Background())
			require.NoError(t, err)
			require.Len(t, links, 3)
		}()
	}
	wg.Wait()
	require.LessOrEqual(t, cat.count("pool:music"), 16)
	require.GreaterOrEqual(t, cat.count("pool:music"), 1)
}

// blockingCatalog holds ListTopics until release is closed and records the context
// state the query saw.
type blockingCatalog struct {
	*fakeCatalog
	started chan struct{}
	release chan struct{}
	ctxErr  chan error
}

func (b *blockingCatalog) ListTopics(ctx context.Context) ([]string, error) {
	close(b.started)
	<-b.release
	b.ctxErr <- ctx.Err()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return b.fakeCatalog.ListTopics(ctx)
}

func TestCachedCatalogSharedQuerySurvivesCallerCancel(t *testing.T) {
	cat := &blockingCatalog{
		fakeCatalog: newCatalog(),
		started:     make(chan struct{}),
		release:     make(chan struct{}),
		ctxErr:      make(chan error, 1),
	}
	c := newCached(t, cat)

	first, cancel := context.WithCancel(context.Background())
	firstDone := make(chan error, 1)
	go func() {
		_, err := c.ListTopics(first)
		firstDone <- err
	}()
	<-cat.started

	secondDone := make(chan []string, 1)
	go func() {
		topics, err := c.ListTopics(context.Background())
		if err != nil {
			t.Error(err)
		}
		secondDone <- topics
	}()

	cancel()
	close(cat.release)

	require.NoError(t, <-cat.ctxErr)
	require.NoError(t, <-firstDone)
	require.Equal(t, []string{"кот", "пусто", "собака"}, <-secondDone)
}

func TestNewCachedCatalogValidates(t *testing.T) {
	_, err := NewCachedCatalog(nil, 1, time.Minute)
	require.Error(t, err)
	_, err = NewCachedCatalog(newCatalog(), 1, 0)
	require.Error(t, err)
}
