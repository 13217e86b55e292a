package rag

import (
	"context"
	"fmt"
	"strings"

	"github.com/verdantlabs/corpusd/internal/config"
	"github.com/verdantlabs/corpusd/internal/embedding"
	"github.com/verdantlabs/corpusd/internal/vectorstore"
)

// Retriever answers queries from the vector index: embed the query, search
// under the owner's filter, page the ranked matches and synthesize an
// answer over the page's context.
type Retriever struct {
	store     vectorstore.Store
	embedder  embedding.Provider
	generator Generator

	defaultTopK     int
	maxTopK         int
	defaultPageSize int
}

func NewRetriever(store vectorstore.Store, embedder embedding.Provider, g Generator, cfg config.RetrievalConfig) *Retriever {
	return &Retriever{
		store:           store,
		embedder:        embedder,
		generator:       g,
		defaultTopK:     cfg.DefaultTopK,
		maxTopK:         cfg.MaxTopK,
		defaultPageSize: cfg.DefaultPageSize,
	}
}

type RetrieveRequest struct {
	Query    string `json:"query"`
	OwnerID  string `json:"-"`
	TopK     int    `json:"top_k,omitempty"`
	Page     int    `json:"page,omitempty"`
	PageSize int    `json:"page_size,omitempty"`
}

type RetrievalResult struct {
	Answer     string              `json:"answer"`
	Documents  []vectorstore.Match `json:"documents"`
	Pagination Pagination          `json:"pagination"`
}

func (r *Retriever) Retrieve(ctx context.Context, req RetrieveRequest) (*RetrievalResult, error) {
	if req.OwnerID == "" {
		return nil, fmt.Errorf("retrieve: missing owner id")
	}
	if strings.TrimSpace(req.Query) == "" {
		return nil, fmt.Errorf("retrieve: empty query")
	}

	topK := req.TopK
	if topK <= 0 {
		topK = r.defaultTopK
	}
	if topK > r.maxTopK {
		topK = r.maxTopK
	}
	page := req.Page
	if page <= 0 {
		page = 1
	}
	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = r.defaultPageSize
	}

	queryVec, err := r.embedder.EmbedQuery(ctx, req.Query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	// The owner filter is applied index-side, so topK counts matches the
	// owner is allowed to see.
	matches, err := r.store.Search(ctx, queryVec, topK, vectorstore.Filter{OwnerID: req.OwnerID})
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	pageMatches, pagination := paginate(matches, page, pageSize)
	if len(pageMatches) == 0 {
		return &RetrievalResult{
			Answer:     noMatchesAnswer,
			Documents:  []vectorstore.Match{},
			Pagination: pagination,
		}, nil
	}

	texts := make([]string, len(pageMatches))
	for i, m := range pageMatches {
		texts[i] = m.Text
	}
	contextText := strings.Join(texts, contextSeparator)

	return &RetrievalResult{
		Answer:     answer(ctx, r.generator, req.Query, contextText),
		Documents:  pageMatches,
		Pagination: pagination,
	}, nil
}
