package search

import (
	"encoding/json"
	"fmt"
	"html"
	"strconv"
	"strings"

	"github.com/anonto42/social-graph/backend/pkg/logger"
	"github.com/meilisearch/meilisearch-go"
	"github.com/microcosm-cc/bluemonday"
)

const postsIndex = "posts"

// PostDocument is the indexed shape of a post.
type PostDocument struct {
	ID             uint     `json:"id"`
	Title          string   `json:"title"`
	Content        string   `json:"content"`
	Tags           []string `json:"tags"`
	AuthorID       uint     `json:"author_id"`
	AuthorUsername string   `json:"author_username"`
	CreatedAt      int64    `json:"created_at"`
}

// PostIndex is a full-text index over posts. Search returns post ids in
// relevance order.
type PostIndex interface {
	IndexPost(doc PostDocument) error
	DeletePost(id uint) error
	SearchPostIDs(query string, limit int) ([]uint, error)
}

type meiliPostIndex struct {
	client    meilisearch.ServiceManager
	sanitizer *bluemonday.Policy
}

func NewMeiliPostIndex(host, apiKey string) PostIndex {
	if !strings.HasPrefix(host, "http") {
		host = "http://" + host
	}
	return &meiliPostIndex{
		client:    meilisearch.New(host, meilisearch.WithAPIKey(apiKey)),
		sanitizer: bluemonday.StrictPolicy(),
	}
}

// Setup configures index attributes. Failures are logged; the index still
// accepts documents with default settings.
func (s *meiliPostIndex) Setup() {
	index := s.client.Index(postsIndex)

	searchable := []string{"title", "content", "tags", "author_username"}
	if _, err := index.UpdateSearchableAttributes(&searchable); err != nil {
		logger.Warnf("meilisearch: update searchable attributes: %v", err)
	}

	filterable := []any{"author_id", "tags"}
	if _, err := index.UpdateFilterableAttributes(&filterable); err != nil {
		logger.Warnf("meilisearch: update filterable attributes: %v", err)
	}

	sortable := []string{"created_at"}
	if _, err := index.UpdateSortableAttributes(&sortable); err != nil {
		logger.Warnf("meilisearch: update sortable attributes: %v", err)
	}
}

// Configure runs Setup when idx is backed by MeiliSearch.
func Configure(idx PostIndex) {
	if m, ok := idx.(*meiliPostIndex); ok {
		m.Setup()
	}
}

func (s *meiliPostIndex) IndexPost(doc PostDocument) error {
	doc.Title = s.clean(doc.Title)
	doc.Content = s.clean(doc.Content)
	pk := "id"
	task, err := s.client.Index(postsIndex).AddDocuments([]PostDocument{doc}, &pk)
	if err != nil {
		return fmt.Errorf("index post %d: %w", doc.ID, err)
	}
	logger.Debugf("meilisearch: indexed post %d, task %d", doc.ID, task.TaskUID)
	return nil
}

func (s *meiliPostIndex) DeletePost(id uint) error {
	if _, err := s.client.Index(postsIndex).DeleteDocument(strconv.FormatUint(uint64(id), 10)); err != nil {
		return fmt.Errorf("delete post %d from index: %w", id, err)
	}
	return nil
}

func (s *meiliPostIndex) SearchPostIDs(query string, limit int) ([]uint, error) {
	raw, err := s.client.Index(postsIndex).SearchRaw(query, &meilisearch.SearchRequest{
		Limit:                int64(limit),
		AttributesToRetrieve: []string{"id"},
	})
	if err != nil {
		return nil, fmt.Errorf("search posts: %w", err)
	}
	return decodeHitIDs(*raw)
}

func decodeHitIDs(raw []byte) ([]uint, error) {
	var resp struct {
		Hits []struct {
			ID uint `json:"id"`
		} `json:"hits"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}
	ids := make([]uint, 0, len(resp.Hits))
	for _, h := range resp.Hits {
		ids = append(ids, h.ID)
	}
	return ids, nil
}

func (s *meiliPostIndex) clean(content string) string {
	content = strings.NewReplacer("</p>", " ", "<br>", " ", "</div>", " ").Replace(content)
	text := html.UnescapeString(s.sanitizer.Sanitize(content))
	return strings.Join(strings.Fields(text), " ")
}
