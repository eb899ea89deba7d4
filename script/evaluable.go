package script

import "github.com/brequin/brequin/curriculum/db"

// EvaluableItems pairs every specific competency and learning outcome with the
// evaluation criteria reachable from it. Ancestors without criteria are left
// out: they have nothing to grade.
func (g *Graph) EvaluableItems() []db.EvaluableItem {
	items := []db.EvaluableItem{}

	for _, entity := range g.nodes {
		if !entity.Type.IsCompetency() {
			continue
		}

		children := uniqueByTempId(g.Descendants(entity.TempId, db.EntityTypeEvaluationCriterion))
		if len(children) == 0 {
			continue
		}
		items = append(items, db.EvaluableItem{Parent: entity, Children: children})
	}

	return items
}

func uniqueByTempId(entities []db.Entity) []db.Entity {
	seen := make(map[string]struct{}, len(entities))
	unique := make([]db.Entity, 0, len(entities))
	for _, entity := range entities {
		if _, ok := seen[entity.TempId]; ok {
			continue
		}
		seen[entity.TempId] = struct{}{}
		unique = append(unique, entity)
	}
	return unique
}
