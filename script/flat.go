package script

import "github.com/brequin/brequin/curriculum/db"

type nameSet struct {
	seen  map[string]struct{}
	names []string
}

func newNameSet() *nameSet {
	return &nameSet{seen: make(map[string]struct{}), names: []string{}}
}

func (s *nameSet) add(name string) {
	if _, ok := s.seen[name]; ok {
		return
	}
	s.seen[name] = struct{}{}
	s.names = append(s.names, name)
}

// CurricularItems buckets entities by type code without looking at relations.
// Names are deduplicated by exact value.
func CurricularItems(entities []db.Entity) db.CurricularItems {
	competencies := newNameSet()
	criteria := newNameSet()
	knowledge := newNameSet()

	for _, entity := range entities {
		switch {
		case entity.Type.IsCompetency():
			competencies.add(entity.Name)
		case entity.Type == db.EntityTypeEvaluationCriterion:
			criteria.add(entity.Name)
		case entity.Type.IsKnowledge():
			knowledge.add(entity.Name)
		}
	}

	return db.CurricularItems{
		Competencies: competencies.names,
		Criteria:     criteria.names,
		Knowledge:    knowledge.names,
	}
}
