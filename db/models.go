package db

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

type EntityType int

// Codes are shared with the generation prompts and must not change.
const (
	EntityTypeSubject             EntityType = 0
	EntityTypeBlock               EntityType = 1
	EntityTypeEvaluationCriterion EntityType = 2
	EntityTypeContent             EntityType = 3
	EntityTypeStandard            EntityType = 4
	EntityTypeKeyCompetency       EntityType = 5
	EntityTypeAreaObjective       EntityType = 6
	EntityTypeStageObjective      EntityType = 7
	EntityTypeLearningOutcome     EntityType = 13
	EntityTypeIndicator           EntityType = 17
	EntityTypeBasicKnowledge      EntityType = 18
	EntityTypeDescriptor          EntityType = 19
	EntityTypeSpecificCompetency  EntityType = 20
)

// EntityTypes lists every type code in ascending order.
var EntityTypes = []EntityType{
	EntityTypeSubject,
	EntityTypeBlock,
	EntityTypeEvaluationCriterion,
	EntityTypeContent,
	EntityTypeStandard,
	EntityTypeKeyCompetency,
	EntityTypeAreaObjective,
	EntityTypeStageObjective,
	EntityTypeLearningOutcome,
	EntityTypeIndicator,
	EntityTypeBasicKnowledge,
	EntityTypeDescriptor,
	EntityTypeSpecificCompetency,
}

var entityTypeNames = map[EntityType]string{
	EntityTypeSubject:             "subject",
	EntityTypeBlock:               "block",
	EntityTypeEvaluationCriterion: "evaluation_criterion",
	EntityTypeContent:             "content",
	EntityTypeStandard:            "standard",
	EntityTypeKeyCompetency:       "key_competency",
	EntityTypeAreaObjective:       "area_objective",
	EntityTypeStageObjective:      "stage_objective",
	EntityTypeLearningOutcome:     "learning_outcome",
	EntityTypeIndicator:           "indicator",
	EntityTypeBasicKnowledge:      "basic_knowledge",
	EntityTypeDescriptor:          "descriptor",
	EntityTypeSpecificCompetency:  "specific_competency",
}

func ParseEntityType(code int) (EntityType, error) {
	entityType := EntityType(code)
	if !entityType.Valid() {
		return 0, fmt.Errorf("unknown entity type code %d", code)
	}
	return entityType, nil
}

func (t EntityType) Valid() bool {
	_, ok := entityTypeNames[t]
	return ok
}

func (t EntityType) String() string {
	if name, ok := entityTypeNames[t]; ok {
		return name
	}
	return "unknown(" + strconv.Itoa(int(t)) + ")"
}

func (t *EntityType) UnmarshalJSON(data []byte) error {
	var code int
	if err := json.Unmarshal(data, &code); err != nil {
		return err
	}
	entityType, err := ParseEntityType(code)
	if err != nil {
		return err
	}
	*t = entityType
	return nil
}

func (t EntityType) IsCompetency() bool {
	return t == EntityTypeSpecificCompetency || t == EntityTypeLearningOutcome
}

func (t EntityType) IsKnowledge() bool {
	return t == EntityTypeBasicKnowledge || t == EntityTypeContent
}

type Entity struct {
	Type   EntityType `json:"type" yaml:"type"`
	Code   *string    `json:"code" yaml:"code"`
	Name   string     `json:"name" yaml:"name"`
	TempId string     `json:"tempId" yaml:"tempId"`
}

type Relation struct {
	SourceTempId string `json:"sourceTempId" yaml:"sourceTempId"`
	TargetTempId string `json:"targetTempId" yaml:"targetTempId"`
	Kind         string `json:"kind" yaml:"kind"`
}

type EvaluableItem struct {
	Parent   Entity   `json:"parent" yaml:"parent"`
	Children []Entity `json:"children" yaml:"children"`
}

type CurricularItems struct {
	Competencies []string `json:"competencies" yaml:"competencies"`
	Criteria     []string `json:"criteria" yaml:"criteria"`
	Knowledge    []string `json:"knowledge" yaml:"knowledge"`
}

const (
	CollectionScripts         = "scripts"
	CollectionEvaluableItems  = "evaluable_items"
	CollectionCurricularItems = "curricular_items"
)

type Document struct {
	Id         string    `json:"id" yaml:"id"`
	UserId     string    `json:"userId" yaml:"userId"`
	Collection string    `json:"collection" yaml:"collection"`
	Title      string    `json:"title" yaml:"title"`
	Body       string    `json:"body" yaml:"body"`
	CreatedAt  time.Time `json:"createdAt" yaml:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt" yaml:"updatedAt"`
}

// GraphIds maps the parse-local temp ids to the ids assigned on insert.
type GraphIds struct {
	Entities  map[string]string
	Relations int
}
