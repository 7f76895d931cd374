package services

import (
	"bytes"
	"context"
	"encoding/json"
	"log"
	"strconv"

	model "github.com/tannerws/SiteLine/models"
)

// indexRfi pushes an RFI into the search index. Indexing is best-effort: a
// failure is logged and never fails the mutation that triggered it.
func (s *RfiService) indexRfi(rfi model.Rfi) {
	if s.esClient == nil {
		return
	}
	doc := map[string]interface{}{
		"project_id": rfi.ProjectID,
		"number":     rfi.Number,
		"title":      rfi.Title,
		"question":   rfi.Question,
		"status":     rfi.Status,
		"priority":   rfi.Priority,
		"discipline": rfi.Discipline,
		"location":   rfi.Location,
	}
	body, err := json.Marshal(doc)
	if err != nil {
		log.Printf("[indexRfi] Error marshaling RFI %d: %v", rfi.ID, err)
		return
	}
	res, err := s.esClient.Index(
		"rfis",
		bytes.NewReader(body),
		s.esClient.Index.WithDocumentID(strconv.FormatUint(uint64(rfi.ID), 10)),
		s.esClient.Index.WithContext(context.Background()),
	)
	if err != nil {
		log.Printf("[indexRfi] Error indexing RFI %d: %v", rfi.ID, err)
		return
	}
	defer res.Body.Close()
	if res.IsError() {
		log.Printf("[indexRfi] Elasticsearch rejected RFI %d: %s", rfi.ID, res.String())
	}
}

// searchRfiIDs resolves a free-text query to RFI ids through Elasticsearch.
// The second return is false when the index is unavailable, which tells the
// caller to fall back to SQL matching.
func (s *RfiService) searchRfiIDs(projectID uint, query string) ([]uint, bool) {
	if s.esClient == nil {
		return nil, false
	}
	searchQuery := map[string]interface{}{
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"must": map[string]interface{}{
					"multi_match": map[string]interface{}{
						"query":  query,
						"fields": []string{"title", "question", "discipline", "location"},
					},
				},
				"filter": map[string]interface{}{
					"term": map[string]interface{}{"project_id": projectID},
				},
			},
		},
	}
	body, err := json.Marshal(searchQuery)
	if err != nil {
		log.Printf("[searchRfiIDs] Error marshaling query: %v", err)
		return nil, false
	}

	res, err := s.esClient.Search(
		s.esClient.Search.WithContext(context.Background()),
		s.esClient.Search.WithIndex("rfis"),
		s.esClient.Search.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		log.Printf("[searchRfiIDs] Search request failed: %v", err)
		return nil, false
	}
	defer res.Body.Close()
	if res.IsError() {
		log.Printf("[searchRfiIDs] Elasticsearch search failed: %s", res.String())
		return nil, false
	}

	var result map[string]interface{}
	if err := json.NewDecoder(res.Body).Decode(&result); err != nil {
		log.Printf("[searchRfiIDs] Error decoding search response: %v", err)
		return nil, false
	}
	hitsMap, ok := result["hits"].(map[string]interface{})
	if !ok {
		return nil, false
	}
	hitsArray, ok := hitsMap["hits"].([]interface{})
	if !ok {
		return nil, false
	}

	ids := make([]uint, 0, len(hitsArray))
	for _, hit := range hitsArray {
		hitMap, ok := hit.(map[string]interface{})
		if !ok {
			continue
		}
		idStr, ok := hitMap["_id"].(string)
		if !ok {
			continue
		}
		id, err := strconv.ParseUint(idStr, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, uint(id))
	}
	return ids, true
}
