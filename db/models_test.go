package db

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEntityType(t *testing.T) {
	for _, code := range []int{0, 1, 2, 3, 4, 5, 6, 7, 13, 17, 18, 19, 20} {
		entityType, err := ParseEntityType(code)
		require.NoError(t, err, "code %d", code)
		assert.Equal(t, code, int(entityType))
	}

	for _, code := range []int{-1, 8, 12, 14, 21, 99} {
		_, err := ParseEntityType(code)
		assert.Error(t, err, "code %d", code)
	}
}

func TestEntityTypeGroups(t *testing.T) {
	assert.True(t, EntityTypeSpecificCompetency.IsCompetency())
	assert.True(t, EntityTypeLearningOutcome.IsCompetency())
	assert.False(t, EntityTypeKeyCompetency.IsCompetency())

	assert.True(t, EntityTypeBasicKnowledge.IsKnowledge())
	assert.True(t, EntityTypeContent.IsKnowledge())
	assert.False(t, EntityTypeEvaluationCriterion.IsKnowledge())

	assert.Equal(t, "evaluation_criterion", EntityTypeEvaluationCriterion.String())
	assert.Equal(t, "unknown(9)", EntityType(9).String())
}

func TestEntityJSON(t *testing.T) {
	code := "CE1"
	encoded, err := json.Marshal(Entity{Type: EntityTypeSpecificCompetency, Code: &code, Name: "Comunicarse", TempId: "comp_1"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":20,"code":"CE1","name":"Comunicarse","tempId":"comp_1"}`, string(encoded))

	encoded, err = json.Marshal(Entity{Type: EntityTypeEvaluationCriterion, Name: "Criterio", TempId: "crit"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":2,"code":null,"name":"Criterio","tempId":"crit"}`, string(encoded))

	var decoded Entity
	assert.Error(t, json.Unmarshal([]byte(`{"type":11,"name":"x","tempId":"x"}`), &decoded))
}
