package repository

import (
	"testing"

	"matesl-go/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildProcedureQuery(t *testing.T) {
	q := buildProcedureQuery(ProcedureFilter{
		Query:    "pass*port",
		Tokens:   []string{"pass", "port"},
		Stems:    []string{"pass", "port"},
		Category: model.CategoryPassports,
		Language: model.LanguageTA,
		Limit:    10,
		Offset:   20,
	})

	assert.Equal(t, 20, q["from"])
	assert.Equal(t, 10, q["size"])

	boolQuery := q["query"].(map[string]interface{})["bool"].(map[string]interface{})
	assert.Equal(t, 1, boolQuery["minimum_should_match"])

	filter := boolQuery["filter"].([]map[string]interface{})
	require.Len(t, filter, 2)
	assert.Equal(t, map[string]interface{}{"category": "PASSPORTS"}, filter[1]["term"])

	should := boolQuery["should"].([]map[string]interface{})
	require.Len(t, should, 4)
	title := should[0]["wildcard"].(map[string]interface{})["title"].(map[string]interface{})
	assert.Equal(t, `*pass\*port*`, title["value"])
	assert.Contains(t, should[1]["wildcard"], "title_ta")
}

func TestBuildProcedureQueryWithoutTerms(t *testing.T) {
	q := buildProcedureQuery(ProcedureFilter{Query: "x", Limit: 5})
	boolQuery := q["query"].(map[string]interface{})["bool"].(map[string]interface{})

	assert.Len(t, boolQuery["filter"], 1)
	assert.Len(t, boolQuery["should"], 1)
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `100\%\_a\\b`, escapeLike(`100%_a\b`))
	assert.Equal(t, `%nic%`, containsPattern("nic"))
}
