package usecase_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"lexrag/internal/domain"
	"lexrag/internal/usecase"
)

type MockEmbedder struct {
	mock.Mock
}

func (m *MockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]float32), args.Error(1)
}

func (m *MockEmbedder) Version() string {
	return "mock-embedder-v1"
}

type MockFragmentStore struct {
	mock.Mock
}

func (m *MockFragmentStore) Match(ctx context.Context, queryEmbedding []float32, threshold float64, count int) ([]domain.RankedFragment, error) {
	args := m.Called(ctx, queryEmbedding, threshold, count)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.RankedFragment), args.Error(1)
}

func rankedFragment(sourceID uuid.UUID, citation string, similarity float64) domain.RankedFragment {
	return domain.RankedFragment{
		Fragment: domain.Fragment{
			ID:       uuid.New(),
			SourceID: sourceID,
			Content:  "the relevant passage",
		},
		Similarity: similarity,
		Citation:   citation,
		Court:      "High Court",
	}
}

func TestRetrieve_RankOrderAndDefaults(t *testing.T) {
	embedder := new(MockEmbedder)
	store := new(MockFragmentStore)
	uc := usecase.NewRetrieveFragmentsUsecase(store, embedder)

	ctx := context.Background()
	vec := []float32{0.1, 0.2}
	docA, docB := uuid.New(), uuid.New()
	embedder.On("Embed", ctx, "duty of care").Return(vec, nil)
	store.On("Match", ctx, vec, usecase.DefaultSimilarityThreshold, usecase.DefaultMatchCount).Return([]domain.RankedFragment{
		rankedFragment(docA, "Smith v Jones [2008] UKHL 12", 0.93),
		rankedFragment(docB, "Donoghue v Stevenson [1932] AC 562", 0.88),
	}, nil)

	matches, err := uc.Retrieve(ctx, "duty of care", usecase.RetrieveOptions{})

	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, 0.93, matches[0].Similarity)
	assert.Equal(t, 0.88, matches[1].Similarity)
}

func TestRetrieve_MatchCountCapped(t *testing.T) {
	embedder := new(MockEmbedder)
	store := new(MockFragmentStore)
	uc := usecase.NewRetrieveFragmentsUsecase(store, embedder)

	ctx := context.Background()
	vec := []float32{0.5}
	embedder.On("Embed", ctx, "q").Return(vec, nil)
	store.On("Match", ctx, vec, 0.8, usecase.MaxMatchCount).Return([]domain.RankedFragment{}, nil)

	_, err := uc.Retrieve(ctx, "q", usecase.RetrieveOptions{Threshold: 0.8, MatchCount: 5000})

	require.NoError(t, err)
	store.AssertExpectations(t)
}

func TestRetrieve_FiltersBelowThreshold(t *testing.T) {
	embedder := new(MockEmbedder)
	store := new(MockFragmentStore)
	uc := usecase.NewRetrieveFragmentsUsecase(store, embedder)

	ctx := context.Background()
	vec := []float32{0.5}
	embedder.On("Embed", ctx, "q").Return(vec, nil)
	store.On("Match", ctx, vec, 0.9, 3).Return([]domain.RankedFragment{
		rankedFragment(uuid.New(), "A v B", 0.95),
		rankedFragment(uuid.New(), "C v D", 0.85),
	}, nil)

	matches, err := uc.Retrieve(ctx, "q", usecase.RetrieveOptions{Threshold: 0.9, MatchCount: 3})

	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "A v B", matches[0].Citation)
}

func TestRetrieve_EmptyQuery(t *testing.T) {
	uc := usecase.NewRetrieveFragmentsUsecase(new(MockFragmentStore), new(MockEmbedder))

	_, err := uc.Retrieve(context.Background(), "   ", usecase.RetrieveOptions{})

	assert.Error(t, err)
}

func TestRetrieveSources_DegradesOnEmbedderFailure(t *testing.T) {
	embedder := new(MockEmbedder)
	store := new(MockFragmentStore)
	uc := usecase.NewRetrieveFragmentsUsecase(store, embedder)

	ctx := context.Background()
	embedder.On("Embed", ctx, "q").Return(nil, errors.New("embedding service unreachable"))

	sources := uc.RetrieveSources(ctx, "q", usecase.RetrieveOptions{})

	assert.Empty(t, sources, "retrieval failure must degrade to no sources, not an error")
	store.AssertNotCalled(t, "Match")
}

func TestRetrieveSources_NumbersInRankOrder(t *testing.T) {
	embedder := new(MockEmbedder)
	store := new(MockFragmentStore)
	uc := usecase.NewRetrieveFragmentsUsecase(store, embedder)

	ctx := context.Background()
	vec := []float32{0.1}
	embedder.On("Embed", ctx, "q").Return(vec, nil)
	store.On("Match", ctx, vec, usecase.DefaultSimilarityThreshold, usecase.DefaultMatchCount).Return([]domain.RankedFragment{
		rankedFragment(uuid.New(), "A v B", 0.91),
		rankedFragment(uuid.New(), "C v D", 0.82),
	}, nil)

	sources := uc.RetrieveSources(ctx, "q", usecase.RetrieveOptions{})

	require.Len(t, sources, 2)
	assert.Equal(t, 1, sources[0].ID)
	assert.Equal(t, "A v B", sources[0].Citation)
	assert.Equal(t, 91, sources[0].Similarity)
	assert.Equal(t, 2, sources[1].ID)
}

func TestRetrieveGrouped_CollapsesToBestPerDocument(t *testing.T) {
	embedder := new(MockEmbedder)
	store := new(MockFragmentStore)
	uc := usecase.NewRetrieveFragmentsUsecase(store, embedder)

	ctx := context.Background()
	vec := []float32{0.1}
	docA, docB := uuid.New(), uuid.New()
	embedder.On("Embed", ctx, "q").Return(vec, nil)
	store.On("Match", ctx, vec, usecase.DefaultSimilarityThreshold, usecase.DefaultMatchCount).Return([]domain.RankedFragment{
		rankedFragment(docA, "A v B", 0.95),
		rankedFragment(docB, "C v D", 0.90),
		rankedFragment(docA, "A v B", 0.85),
		rankedFragment(docB, "C v D", 0.93),
	}, nil)

	grouped, err := uc.RetrieveGrouped(ctx, "q", usecase.RetrieveOptions{})

	require.NoError(t, err)
	require.Len(t, grouped, 2)
	assert.Equal(t, docA, grouped[0].SourceID)
	assert.Equal(t, 0.95, grouped[0].Similarity)
	assert.Equal(t, docB, grouped[1].SourceID)
	assert.Equal(t, 0.93, grouped[1].Similarity, "best fragment per document wins")
}
