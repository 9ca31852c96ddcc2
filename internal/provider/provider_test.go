package provider

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rxscan/verify-cli/internal/model"
)

func TestRankFollowsPriorityOrder(t *testing.T) {
	assert.Equal(t, 0, Rank(NameFDANDC))
	assert.Less(t, Rank(NameRxNorm), Rank(NameWebRef))
	assert.Equal(t, len(PriorityOrder), Rank("unknown"), "unknown ranks below everything")
}

func TestReliabilityCoversEveryProvider(t *testing.T) {
	for _, name := range PriorityOrder {
		rel, ok := Reliability[name]
		require.True(t, ok, name)
		assert.GreaterOrEqual(t, rel, 1, name)
		assert.LessOrEqual(t, rel, 10, name)
	}
}

type stubClient struct {
	name string
}

func (c stubClient) Name() string     { return c.name }
func (c stubClient) Reliability() int { return Reliability[c.name] }
func (c stubClient) Search(context.Context, []model.SearchStrategy) *model.SourceResult {
	return nil
}

func TestRegistryListSortsByPriority(t *testing.T) {
	r := NewRegistry()
	r.Register(stubClient{name: NameWebRef})
	r.Register(stubClient{name: NameRxNorm})
	r.Register(stubClient{name: NameFDANDC})

	list := r.List()
	require.Len(t, list, 3)
	assert.Equal(t, NameFDANDC, list[0].Name())
	assert.Equal(t, NameRxNorm, list[1].Name())
	assert.Equal(t, NameWebRef, list[2].Name())
}

func TestRegistryGet(t *testing.T) {
	r := NewRegistry()
	r.Register(stubClient{name: NameRxNorm})

	assert.NotNil(t, r.Get(NameRxNorm))
	assert.Nil(t, r.Get(NameFDANDC))
}

func strategies(kinds ...model.StrategyKind) []model.SearchStrategy {
	out := make([]model.SearchStrategy, 0, len(kinds))
	for i, k := range kinds {
		out = append(out, model.SearchStrategy{Kind: k, Value: "q" + string(rune('0'+i)), Priority: i + 1})
	}
	return out
}

func TestSearchStopsAtFirstMatch(t *testing.T) {
	var attempts []model.StrategyKind
	sr := search(context.Background(), NameFDANDC, time.Second,
		strategies(model.StrategyNDC, model.StrategyBrandName, model.StrategyGenericName),
		func(_ context.Context, s model.SearchStrategy) (any, int, bool, error) {
			attempts = append(attempts, s.Kind)
			if s.Kind == model.StrategyBrandName {
				return "payload", 4, true, nil
			}
			return nil, 0, false, nil
		})

	require.NotNil(t, sr)
	assert.Equal(t, model.SourceSuccess, sr.Status)
	assert.Equal(t, "payload", sr.Raw)
	assert.Equal(t, 4, sr.DataPoints)
	assert.Equal(t, Reliability[NameFDANDC], sr.Reliability)
	require.NotNil(t, sr.Strategy)
	assert.Equal(t, model.StrategyBrandName, sr.Strategy.Kind)
	assert.Equal(t, []model.StrategyKind{model.StrategyNDC, model.StrategyBrandName}, attempts,
		"remaining strategies are not tried")
}

func TestSearchAllEmptyReturnsNil(t *testing.T) {
	sr := search(context.Background(), NameRxNorm, time.Second,
		strategies(model.StrategyNDC, model.StrategyBrandName),
		func(context.Context, model.SearchStrategy) (any, int, bool, error) {
			return nil, 0, false, nil
		})
	assert.Nil(t, sr)
}

func TestSearchErrorThenMatchSucceeds(t *testing.T) {
	sr := search(context.Background(), NameDailyMed, time.Second,
		strategies(model.StrategyNDC, model.StrategyBrandName),
		func(_ context.Context, s model.SearchStrategy) (any, int, bool, error) {
			if s.Kind == model.StrategyNDC {
				return nil, 0, false, assert.AnError
			}
			return "spl", 2, true, nil
		})

	require.NotNil(t, sr)
	assert.Equal(t, model.SourceSuccess, sr.Status)
}

func TestSearchAllErrorsReturnsFailure(t *testing.T) {
	sr := search(context.Background(), NameDailyMed, time.Second,
		strategies(model.StrategyNDC, model.StrategyBrandName),
		func(context.Context, model.SearchStrategy) (any, int, bool, error) {
			return nil, 0, false, assert.AnError
		})

	require.NotNil(t, sr)
	assert.Equal(t, model.SourceFailed, sr.Status)
	assert.Equal(t, assert.AnError.Error(), sr.Error)
	assert.Equal(t, Reliability[NameDailyMed], sr.Reliability)
}

func TestSearchStopsOnContextExpiry(t *testing.T) {
	calls := 0
	sr := search(context.Background(), NamePubMed, time.Nanosecond,
		strategies(model.StrategyNDC, model.StrategyBrandName, model.StrategyGenericName),
		func(ctx context.Context, _ model.SearchStrategy) (any, int, bool, error) {
			calls++
			<-ctx.Done()
			return nil, 0, false, ctx.Err()
		})

	require.NotNil(t, sr)
	assert.Equal(t, model.SourceFailed, sr.Status)
	assert.Equal(t, 1, calls, "no further attempts after the budget expires")
}
