package store_test

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xhad/amp/internal/models"
	"github.com/xhad/amp/pkg/store"
)

// Integration tests run only against a real database.
func getTestStore(t *testing.T) *store.DocumentStore {
	t.Helper()

	connString := os.Getenv("TEST_DATABASE_URL")
	if connString == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	s, err := store.NewWithConfig(store.StoreConfig{
		ConnString: connString,
		TableName:  "test_documents",
	})
	require.NoError(t, err)
	t.Cleanup(s.Close)

	return s
}

func testDocument(sourceURL string) models.Document {
	return models.Document{
		Title:       "Test Document",
		Content:     "<p>Body</p>",
		Excerpt:     "Body",
		Author:      "Tester",
		PublishedAt: time.Now(),
		SourceURL:   sourceURL,
		Tags:        []string{"test"},
	}
}

func TestCreateAndList(t *testing.T) {
	s := getTestStore(t)
	ctx := context.Background()

	sourceURL := fmt.Sprintf("https://example.com/%d", time.Now().UnixNano())
	created, err := s.Create(ctx, testDocument(sourceURL))
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)

	docs, err := s.ListUnenhanced(ctx)
	require.NoError(t, err)

	var found bool
	for _, doc := range docs {
		if doc.ID == created.ID {
			found = true
			assert.Equal(t, "Test Document", doc.Title)
			assert.Equal(t, []string{"test"}, doc.Tags)
			assert.False(t, doc.IsEnhanced)
			assert.Empty(t, doc.ParentID)
		}
	}
	assert.True(t, found, "created document must appear in the backlog")
}

func TestCreateRejectsDuplicateURL(t *testing.T) {
	s := getTestStore(t)
	ctx := context.Background()

	sourceURL := fmt.Sprintf("https://example.com/dup-%d", time.Now().UnixNano())
	_, err := s.Create(ctx, testDocument(sourceURL))
	require.NoError(t, err)

	_, err = s.Create(ctx, testDocument(sourceURL))
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrDuplicateURL)
}

func TestEnhancedDocumentsLeaveBacklog(t *testing.T) {
	s := getTestStore(t)
	ctx := context.Background()

	doc := testDocument(fmt.Sprintf("https://example.com/enh-%d", time.Now().UnixNano()))
	doc.IsEnhanced = true
	doc.ParentID = "some-parent"
	doc.Citations = []models.Citation{{Title: "Ref", URL: "https://ref.com"}}
	doc.Annotations = []models.ChangeAnnotation{
		{Kind: models.AnnotationAddition, NewText: "n", Reason: "r"},
	}

	created, err := s.Create(ctx, doc)
	require.NoError(t, err)

	docs, err := s.ListUnenhanced(ctx)
	require.NoError(t, err)
	for _, d := range docs {
		assert.NotEqual(t, created.ID, d.ID, "enhanced documents are not backlog items")
	}
}

func TestPing(t *testing.T) {
	s := getTestStore(t)
	assert.NoError(t, s.Ping(context.Background()))
}
