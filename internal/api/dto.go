package api

import (
	"github.com/starford/atelier/internal/catalog"
	"github.com/starford/atelier/internal/index"
)

// DependenciesResponse wraps dependency issues.
type DependenciesResponse struct {
	Issues []catalog.DependencyIssue `json:"issues" validate:"required"`
}

// MissingBlocksResponse wraps the ids of blocks the catalog lacks.
type MissingBlocksResponse struct {
	Missing []string `json:"missing" example:"cta.banner.v1" validate:"required"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []index.SearchResult `json:"results" validate:"required"`
}

// BlocksResponse wraps a category listing.
type BlocksResponse struct {
	Blocks []index.BlockRow `json:"blocks" validate:"required"`
}
