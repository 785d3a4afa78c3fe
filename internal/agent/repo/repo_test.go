package repo

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/cloudwego/eino/schema"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/esg-screener/server/internal/agent/model"
	errx "github.com/esg-screener/server/internal/core/error"
	pkgredis "github.com/esg-screener/server/pkg/redis"
)

func sampleRanking() *model.Ranking {
	return &model.Ranking{
		Criteria: model.CriteriaSpec{{Attribute: model.AttrBeta, Weight: -1}},
		Results: []model.ScoredRecord{{
			Record: &model.CompanyRecord{Ticker: "NEE", Name: "NextEra Energy", Sector: "Utilities",
				Metrics: map[model.Attribute]float64{model.AttrBeta: 0.45}},
			Score:      1,
			Components: map[model.Attribute]float64{model.AttrBeta: 0},
			Rank:       1,
		}},
		TopN:      15,
		CreatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

// exerciseRepository runs the shared repository contract.
func exerciseRepository(t *testing.T, r model.ConversationRepository) {
	ctx := context.Background()
	id := uuid.NewString()

	h, err := r.LoadHistory(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, h.Messages)

	ranking, err := r.LoadRanking(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, ranking)

	require.NoError(t, r.AddMessage(ctx, id, schema.UserMessage("top utilities")))
	require.NoError(t, r.AddMessage(ctx, id, schema.AssistantMessage("Here are the top 1 companies", nil)))

	n, err := r.GetMessageCount(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	h, err = r.LoadHistory(ctx, id)
	require.NoError(t, err)
	require.Len(t, h.Messages, 2)
	assert.Equal(t, schema.User, h.Messages[0].Role)
	assert.Equal(t, "Here are the top 1 companies", h.Messages[1].Content)

	want := sampleRanking()
	require.NoError(t, r.SaveRanking(ctx, id, want))
	got, err := r.LoadRanking(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, want.Criteria, got.Criteria)
	assert.Equal(t, "NEE", got.Results[0].Record.Ticker)
	assert.Equal(t, 0.45, got.Results[0].Record.Metrics[model.AttrBeta])
	assert.True(t, want.CreatedAt.Equal(got.CreatedAt))

	require.NoError(t, r.ClearHistory(ctx, id))
	n, err = r.GetMessageCount(ctx, id)
	require.NoError(t, err)
	assert.Zero(t, n)
	got, err = r.LoadRanking(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestMemoryConversationRepository(t *testing.T) {
	exerciseRepository(t, NewMemoryConversationRepository(time.Hour))
}

func TestMemoryConversationRepository_Expiry(t *testing.T) {
	r := NewMemoryConversationRepository(time.Minute)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return now }

	ctx := context.Background()
	require.NoError(t, r.SaveRanking(ctx, "c1", sampleRanking()))

	now = now.Add(59 * time.Second)
	got, _ := r.LoadRanking(ctx, "c1")
	assert.NotNil(t, got)

	now = now.Add(2 * time.Second)
	got, _ = r.LoadRanking(ctx, "c1")
	assert.Nil(t, got)
}

func newRedisRepository(t *testing.T, ttl time.Duration) (*RedisConversationRepository, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	cfg := pkgredis.Config{URL: "redis://" + mr.Addr(), ReadTimeout: 1, WriteTimeout: 1, DialTimeout: 1}
	client := cfg.MustNew()
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisConversationRepository(client, ttl), mr
}

func TestRedisConversationRepository(t *testing.T) {
	r, _ := newRedisRepository(t, time.Minute)
	exerciseRepository(t, r)
}

func TestRedisConversationRepository_TTL(t *testing.T) {
	r, mr := newRedisRepository(t, time.Minute)
	ctx := context.Background()

	require.NoError(t, r.AddMessage(ctx, "c1", schema.UserMessage("rank by beta")))
	require.NoError(t, r.SaveRanking(ctx, "c1", sampleRanking()))
	assert.Equal(t, time.Minute, mr.TTL("conversation:c1:messages"))
	assert.Equal(t, time.Minute, mr.TTL("conversation:c1:ranking"))

	mr.FastForward(61 * time.Second)

	got, err := r.LoadRanking(ctx, "c1")
	require.NoError(t, err)
	assert.Nil(t, got)
	n, err := r.GetMessageCount(ctx, "c1")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRedisConversationRepository_CorruptRanking(t *testing.T) {
	r, mr := newRedisRepository(t, time.Minute)
	require.NoError(t, mr.Set("conversation:c1:ranking", "{not json"))

	_, err := r.LoadRanking(context.Background(), "c1")
	assert.ErrorContains(t, err, "unmarshal ranking")
}

func TestRedisConversationRepository_ServerDown(t *testing.T) {
	r, mr := newRedisRepository(t, time.Minute)
	mr.Close()

	err := r.SaveRanking(context.Background(), "c1", sampleRanking())
	require.Error(t, err)
	assert.Equal(t, http.StatusBadGateway, errx.StatusOf(err))
}
