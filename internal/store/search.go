// internal/store/search.go
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	apperrors "rts-portal/internal/common/errors"
	"rts-portal/internal/common/logger"
	"rts-portal/internal/models"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

var (
	ErrSearchQueryFailed = errors.New("SEARCH_QUERY_FAILED")
	ErrSearchIndexFailed = errors.New("SEARCH_INDEX_FAILED")
	ErrIndexNotFound     = errors.New("INDEX_NOT_FOUND")
)

const DefaultSearchIndex = "applications"

// SearchDocument is the redacted envelope kept in Elasticsearch. Contact
// details never leave Postgres.
type SearchDocument struct {
	TrackingCode    string     `json:"trackingCode"`
	ApplicationType string     `json:"applicationType"`
	FormName        string     `json:"formName"`
	Status          string     `json:"status"`
	Priority        string     `json:"priority"`
	ApplicantName   string     `json:"applicantName"`
	Area            string     `json:"area,omitempty"`
	City            string     `json:"city,omitempty"`
	District        string     `json:"district,omitempty"`
	Landmark        string     `json:"landmark,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       *time.Time `json:"updatedAt,omitempty"`
}

func NewSearchDocument(app *models.Application) SearchDocument {
	return SearchDocument{
		TrackingCode:    app.TrackingCode,
		ApplicationType: string(app.Type),
		FormName:        app.FormName,
		Status:          app.Status,
		Priority:        app.Priority,
		ApplicantName:   app.FullName(),
		Area:            app.Address.Area,
		City:            app.Address.City,
		District:        app.Address.District,
		Landmark:        app.Address.Landmark,
		CreatedAt:       app.CreatedAt,
		UpdatedAt:       app.UpdatedAt,
	}
}

type SearchQuery struct {
	Q      string `json:"q,omitempty"`
	Type   string `json:"type,omitempty"`
	Status string `json:"status,omitempty"`
	Page   int    `json:"page"`
	Size   int    `json:"size"`
}

func (q SearchQuery) Normalize() SearchQuery {
	q.Q = strings.TrimSpace(q.Q)
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Size < 1 {
		q.Size = models.DefaultPageSize
	}
	if q.Size > models.MaxPageSize {
		q.Size = models.MaxPageSize
	}
	return q
}

type SearchResult struct {
	Items     []SearchDocument `json:"items"`
	TotalHits int64            `json:"totalHits"`
	MaxScore  float64          `json:"maxScore"`
	Took      int64            `json:"took"`
	Query     SearchQuery      `json:"query"`
}

// SearchIndex keeps the applications index in step with the store and serves staff search.
type SearchIndex struct {
	client *elasticsearch.Client
	index  string
	logger logger.Logger
}

func NewSearchIndex(client *elasticsearch.Client, index string, log logger.Logger) *SearchIndex {
	if index == "" {
		index = DefaultSearchIndex
	}
	return &SearchIndex{
		client: client,
		index:  index,
		logger: log.WithFields(map[string]interface{}{"component": "search-index", "index": index}),
	}
}

var indexMapping = map[string]interface{}{
	"mappings": map[string]interface{}{
		"properties": map[string]interface{}{
			"trackingCode":    map[string]interface{}{"type": "keyword"},
			"applicationType": map[string]interface{}{"type": "keyword"},
			"formName":        map[string]interface{}{"type": "text"},
			"status":          map[string]interface{}{"type": "keyword"},
			"priority":        map[string]interface{}{"type": "keyword"},
			"applicantName":   map[string]interface{}{"type": "text"},
			"area":            map[string]interface{}{"type": "text"},
			"city":            map[string]interface{}{"type": "text"},
			"district":        map[string]interface{}{"type": "text"},
			"landmark":        map[string]interface{}{"type": "text"},
			"createdAt":       map[string]interface{}{"type": "date"},
			"updatedAt":       map[string]interface{}{"type": "date"},
		},
	},
}

// EnsureIndex creates the index with its mapping when it does not exist yet.
func (s *SearchIndex) EnsureIndex(ctx context.Context) error {
	exists := esapi.IndicesExistsRequest{Index: []string{s.index}}
	res, err := exists.Do(ctx, s.client)
	if err != nil {
		return fmt.Errorf("%w: exists: %v", ErrSearchIndexFailed, err)
	}
	res.Body.Close()
	if res.StatusCode == http.StatusOK {
		return nil
	}

	body, _ := json.Marshal(indexMapping)
	create := esapi.IndicesCreateRequest{Index: s.index, Body: bytes.NewReader(body)}
	res, err = create.Do(ctx, s.client)
	if err != nil {
		return fmt.Errorf("%w: create: %v", ErrSearchIndexFailed, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("%w: create: %s", ErrSearchIndexFailed, res.String())
	}

	s.logger.Info("Search index created", nil)
	return nil
}

func (s *SearchIndex) Index(ctx context.Context, app *models.Application) error {
	body, err := json.Marshal(NewSearchDocument(app))
	if err != nil {
		return fmt.Errorf("%w: encode: %v", ErrSearchIndexFailed, err)
	}

	req := esapi.IndexRequest{
		Index:      s.index,
		DocumentID: app.TrackingCode,
		Body:       bytes.NewReader(body),
	}
	res, err := req.Do(ctx, s.client)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSearchIndexFailed, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("%w: %s", ErrSearchIndexFailed, res.String())
	}
	return nil
}

// Remove deletes the document; a missing document is not an error.
func (s *SearchIndex) Remove(ctx context.Context, code string) error {
	req := esapi.DeleteRequest{Index: s.index, DocumentID: code}
	res, err := req.Do(ctx, s.client)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSearchIndexFailed, err)
	}
	defer res.Body.Close()
	if res.IsError() && res.StatusCode != http.StatusNotFound {
		return fmt.Errorf("%w: %s", ErrSearchIndexFailed, res.String())
	}
	return nil
}

func (s *SearchIndex) Search(ctx context.Context, q SearchQuery) (*SearchResult, error) {
	q = q.Normalize()
	from := (q.Page - 1) * q.Size
	size := q.Size

	body, _ := json.Marshal(buildSearchQuery(q))
	req := esapi.SearchRequest{
		Index: []string{s.index},
		Body:  strings.NewReader(string(body)),
		From:  &from,
		Size:  &size,
	}

	start := time.Now()
	res, err := req.Do(ctx, s.client)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSearchQueryFailed, err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return nil, ErrIndexNotFound
	}
	if res.IsError() {
		return nil, fmt.Errorf("%w: %s", ErrSearchQueryFailed, res.String())
	}

	var r searchResponse
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrSearchQueryFailed, err)
	}

	items := make([]SearchDocument, 0, len(r.Hits.Hits))
	for _, hit := range r.Hits.Hits {
		items = append(items, hit.Source)
	}

	s.logger.Debug("Search executed", map[string]interface{}{
		"q":         q.Q,
		"totalHits": r.Hits.Total.Value,
	})

	var maxScore float64
	if r.Hits.MaxScore != nil {
		maxScore = *r.Hits.MaxScore
	}
	return &SearchResult{
		Items:     items,
		TotalHits: r.Hits.Total.Value,
		MaxScore:  maxScore,
		Took:      time.Since(start).Milliseconds(),
		Query:     q,
	}, nil
}

type searchResponse struct {
	Hits struct {
		Total struct {
			Value int64 `json:"value"`
		} `json:"total"`
		MaxScore *float64 `json:"max_score"`
		Hits     []struct {
			Source SearchDocument `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

func buildSearchQuery(q SearchQuery) map[string]interface{} {
	mustClauses := []interface{}{}
	filterClauses := []interface{}{}

	if q.Q != "" {
		mustClauses = append(mustClauses, map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":  q.Q,
				"fields": []string{"trackingCode^4", "applicantName^3", "area^2", "landmark^2", "city", "district", "formName"},
				"type":   "best_fields",
			},
		})
	}
	if q.Type != "" {
		filterClauses = append(filterClauses, map[string]interface{}{
			"term": map[string]interface{}{"applicationType": q.Type},
		})
	}
	if q.Status != "" {
		filterClauses = append(filterClauses, map[string]interface{}{
			"term": map[string]interface{}{"status": q.Status},
		})
	}

	query := map[string]interface{}{
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"must":   mustClauses,
				"filter": filterClauses,
			},
		},
	}
	if q.Q == "" {
		query["sort"] = []interface{}{
			map[string]interface{}{"createdAt": map[string]interface{}{"order": "desc"}},
		}
	}
	return query
}

// Indexer is the part of SearchIndex the IndexedStore needs.
type Indexer interface {
	Index(ctx context.Context, app *models.Application) error
	Remove(ctx context.Context, code string) error
}

// IndexedStore mirrors writes into the search index. Index failures are logged
// and never fail the write.
type IndexedStore struct {
	Store
	index  Indexer
	logger logger.Logger
}

func NewIndexedStore(next Store, index Indexer, log logger.Logger) *IndexedStore {
	return &IndexedStore{
		Store:  next,
		index:  index,
		logger: log.WithFields(map[string]interface{}{"component": "indexed-store"}),
	}
}

func (s *IndexedStore) Insert(ctx context.Context, app *models.Application) (*models.Application, error) {
	out, err := s.Store.Insert(ctx, app)
	if err != nil {
		return nil, err
	}
	s.reindex(ctx, out)
	return out, nil
}

func (s *IndexedStore) UpdateFlag(ctx context.Context, code, updatedBy string) error {
	if err := s.Store.UpdateFlag(ctx, code, updatedBy); err != nil {
		return err
	}
	s.refresh(ctx, code)
	return nil
}

func (s *IndexedStore) UpdateFlagWithDocuments(ctx context.Context, code, updatedBy string, docs []models.Document) error {
	if err := s.Store.UpdateFlagWithDocuments(ctx, code, updatedBy, docs); err != nil {
		return err
	}
	s.refresh(ctx, code)
	return nil
}

func (s *IndexedStore) SoftDelete(ctx context.Context, code, deletedBy string) error {
	if err := s.Store.SoftDelete(ctx, code, deletedBy); err != nil {
		return err
	}
	if err := s.index.Remove(ctx, code); err != nil {
		s.indexFailure("Search index removal failed", code, err)
	}
	return nil
}

func (s *IndexedStore) refresh(ctx context.Context, code string) {
	app, err := s.Store.GetByTrackingCode(ctx, code)
	if err != nil {
		s.logger.Warn("Search index refresh skipped", map[string]interface{}{
			"trackingCode": code,
			"error":        err.Error(),
		})
		return
	}
	s.reindex(ctx, app)
}

func (s *IndexedStore) reindex(ctx context.Context, app *models.Application) {
	if err := s.index.Index(ctx, app); err != nil {
		s.indexFailure("Search indexing failed", app.TrackingCode, err)
	}
}

func (s *IndexedStore) indexFailure(msg, code string, err error) {
	stdErr := apperrors.NewSearchIndexFailedError(err)
	s.logger.Warn(msg, map[string]interface{}{
		"trackingCode": code,
		"errorCode":    stdErr.Code,
		"retryable":    stdErr.Retryable,
		"error":        err.Error(),
	})
}
