package runner

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xhad/amp/internal/models"
)

type fakeStore struct {
	backlog []models.Document
	pingErr error
	listErr error
	created []models.Document
}

func (f *fakeStore) Ping(context.Context) error { return f.pingErr }

func (f *fakeStore) ListUnenhanced(context.Context) ([]models.Document, error) {
	return f.backlog, f.listErr
}

func (f *fakeStore) Create(_ context.Context, doc models.Document) (models.Document, error) {
	f.created = append(f.created, doc)
	return doc, nil
}

func (f *fakeStore) Close() {}

type fakeEnricher struct {
	failOn map[string]error
	store  *fakeStore
	seen   []string
}

func (f *fakeEnricher) Enrich(ctx context.Context, doc models.Document) (*models.Document, error) {
	f.seen = append(f.seen, doc.ID)
	if err, ok := f.failOn[doc.ID]; ok {
		return nil, err
	}
	enriched := models.Document{
		ID:         "enriched-" + doc.ID,
		Title:      doc.Title + " (Enhanced)",
		IsEnhanced: true,
		ParentID:   doc.ID,
	}
	if f.store != nil {
		f.store.Create(ctx, enriched)
	}
	return &enriched, nil
}

func backlog(ids ...string) []models.Document {
	docs := make([]models.Document, len(ids))
	for i, id := range ids {
		docs[i] = models.Document{ID: id, Title: "Post " + id}
	}
	return docs
}

func TestRunPartialFailure(t *testing.T) {
	store := &fakeStore{backlog: backlog("1", "2", "3")}
	enricher := &fakeEnricher{
		store:  store,
		failOn: map[string]error{"2": errors.New("model quota exceeded")},
	}

	r := New(Config{}, store, enricher)

	summary, err := r.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, summary.Processed)
	assert.Equal(t, 2, summary.Succeeded)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, []string{"1", "2", "3"}, enricher.seen, "a failure must not stop the batch")

	// Documents 1 and 3 were persisted as enriched.
	require.Len(t, store.created, 2)
	assert.Equal(t, "enriched-1", store.created[0].ID)
	assert.Equal(t, "enriched-3", store.created[1].ID)

	require.Len(t, summary.Outcomes, 3)
	assert.NoError(t, summary.Outcomes[0].Err)
	assert.EqualError(t, summary.Outcomes[1].Err, "model quota exceeded")
	assert.NoError(t, summary.Outcomes[2].Err)
}

func TestRunEmptyBacklog(t *testing.T) {
	store := &fakeStore{}
	r := New(Config{}, store, &fakeEnricher{})

	summary, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Processed)
	assert.Empty(t, summary.Outcomes)
}

func TestRunStoreUnreachable(t *testing.T) {
	store := &fakeStore{pingErr: errors.New("connection refused")}
	enricher := &fakeEnricher{}
	r := New(Config{}, store, enricher)

	summary, err := r.Run(context.Background())
	require.Error(t, err)
	assert.Nil(t, summary)
	assert.Empty(t, enricher.seen)
}

func TestRunListFailure(t *testing.T) {
	store := &fakeStore{listErr: errors.New("relation does not exist")}
	r := New(Config{}, store, &fakeEnricher{})

	summary, err := r.Run(context.Background())
	require.Error(t, err)
	assert.Nil(t, summary)
}

func TestRunReportsProgress(t *testing.T) {
	store := &fakeStore{backlog: backlog("1", "2")}
	enricher := &fakeEnricher{failOn: map[string]error{"2": errors.New("boom")}}

	var outcomes []models.EnrichmentOutcome
	r := New(Config{
		OnProgress: func(outcome models.EnrichmentOutcome) {
			outcomes = append(outcomes, outcome)
		},
	}, store, enricher)

	_, err := r.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, outcomes, 2)
	assert.Equal(t, "1", outcomes[0].DocumentID)
	assert.NoError(t, outcomes[0].Err)
	assert.Error(t, outcomes[1].Err)
}
