package api

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/larsson/sokmotor/pkg/analytics"
	"github.com/larsson/sokmotor/pkg/cache"
	"github.com/larsson/sokmotor/pkg/core"
	"github.com/larsson/sokmotor/pkg/index"
)

// fakeService is a hand-written stand-in for *core.Orchestrator, covering
// just the Service surface the handlers call.
type fakeService struct {
	searchResult *core.ResultSet
	searchErr    error
	suggestions  []string
	related      []string
}

func (f *fakeService) Search(string, int, int, core.Strategy, time.Time) (*core.ResultSet, error) {
	return f.searchResult, f.searchErr
}

func (f *fakeService) Suggestions(string, int) ([]string, error) { return f.suggestions, nil }
func (f *fakeService) Related(index.PageID, int) ([]string, error) { return f.related, nil }
func (f *fakeService) CacheStats() cache.Stats                     { return cache.Stats{} }
func (f *fakeService) AnalyticsSnapshot() analytics.Snapshot       { return analytics.Snapshot{} }
func (f *fakeService) IndexStats() index.Stats                     { return index.Stats{} }

func TestNew_ValidConfig(t *testing.T) {
	cfg := Config{Listen: ":8080"}

	a, err := New(cfg, &fakeService{})

	require.NoError(t, err)
	assert.NotNil(t, a)
}

func TestNew_EmptyListen(t *testing.T) {
	_, err := New(Config{}, &fakeService{})

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "listen address must be specified")
}

func TestRun_GracefulShutdown(t *testing.T) {
	cfg := Config{Listen: "127.0.0.1:0"}

	a, err := New(cfg, &fakeService{})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(t.Context())

	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()

	err = a.Run(ctx)
	assert.NoError(t, err)
}
