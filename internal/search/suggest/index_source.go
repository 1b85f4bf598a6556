package suggest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/elastic/go-elasticsearch/v8"

	apperrors "catalog-search/internal/common/errors"
	"catalog-search/internal/models"
)

var suggestFields = []string{"name^3", "brand^2", "category"}

var suggestSource = []string{"id", "name", "price", "brand", "category", "img"}

// IndexSource queries the Elasticsearch products index.
type IndexSource struct {
	client  *elasticsearch.Client
	index   string
	timeout time.Duration
}

func NewIndexSource(client *elasticsearch.Client, index string, timeout time.Duration) *IndexSource {
	return &IndexSource{client: client, index: index, timeout: timeout}
}

func (s *IndexSource) Name() string { return "index" }

func (s *IndexSource) Suggest(ctx context.Context, q string, limit int) ([]models.Suggestion, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	body, err := json.Marshal(buildSuggestQuery(q, limit))
	if err != nil {
		return nil, apperrors.NewIndexError("encode query", err)
	}

	res, err := s.client.Search(
		s.client.Search.WithContext(ctx),
		s.client.Search.WithIndex(s.index),
		s.client.Search.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return nil, apperrors.NewIndexError("search", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, apperrors.NewIndexError("search", fmt.Errorf("elasticsearch error: %s", res.Status()))
	}

	var parsed searchResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, apperrors.NewIndexError("decode response", err)
	}

	out := make([]models.Suggestion, 0, len(parsed.Hits.Hits))
	for _, hit := range parsed.Hits.Hits {
		id := int64(hit.Source.ID)
		if id == 0 {
			id, _ = strconv.ParseInt(hit.ID, 10, 64)
		}
		out = append(out, models.Suggestion{
			ID:       id,
			Name:     string(hit.Source.Name),
			Price:    string(hit.Source.Price),
			Brand:    string(hit.Source.Brand),
			Category: string(hit.Source.Category),
			Img:      string(hit.Source.Img),
		})
	}
	return out, nil
}

func buildSuggestQuery(q string, limit int) map[string]interface{} {
	return map[string]interface{}{
		"size":    limit,
		"_source": suggestSource,
		"query": map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":  q,
				"type":   "bool_prefix",
				"fields": suggestFields,
			},
		},
	}
}

type searchResponse struct {
	Hits struct {
		Hits []struct {
			ID     string   `json:"_id"`
			Source indexDoc `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

type indexDoc struct {
	ID       flexID   `json:"id"`
	Name     flexText `json:"name"`
	Price    flexText `json:"price"`
	Brand    flexText `json:"brand"`
	Category flexText `json:"category"`
	Img      flexText `json:"img"`
}

// flexID accepts a JSON number or a numeric string. Documents indexed by
// different importers disagree on the type.
type flexID int64

func (f *flexID) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err == nil {
		v, err := n.Int64()
		if err != nil {
			return err
		}
		*f = flexID(v)
		return nil
	}

	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == "" {
		return nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return err
	}
	*f = flexID(v)
	return nil
}

// flexText accepts a string, a number or null.
type flexText string

func (f *flexText) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*f = flexText(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexText(n.String())
	return nil
}
