// Package script reads the SQL scripts a generation model writes for a
// curriculum: INSERT INTO entities rows wired together by INSERT INTO
// relations rows that reference each other through temp_id.
package script

import "github.com/brequin/brequin/curriculum/db"

// Report describes what a parse had to drop or overwrite. None of it is an
// error; the output simply gets smaller.
type Report struct {
	Entities   int           `json:"entities" yaml:"entities"`
	Relations  int           `json:"relations" yaml:"relations"`
	Skipped    []Skip        `json:"skipped,omitempty" yaml:"skipped,omitempty"`
	Duplicates []string      `json:"duplicates,omitempty" yaml:"duplicates,omitempty"`
	Dangling   []db.Relation `json:"dangling,omitempty" yaml:"dangling,omitempty"`
}

func (r Report) Clean() bool {
	return len(r.Skipped) == 0 && len(r.Duplicates) == 0 && len(r.Dangling) == 0
}

// Parse builds the entity graph of a script.
func Parse(text string) (*Graph, Report) {
	tuples := Match(text)
	graph := BuildGraph(tuples.Entities, tuples.Relations)

	report := Report{
		Entities:   graph.Len(),
		Relations:  len(tuples.Relations) - len(graph.Dangling),
		Skipped:    tuples.Skipped,
		Duplicates: graph.Duplicates,
		Dangling:   graph.Dangling,
	}
	return graph, report
}

// EvaluableItems returns the competencies and learning outcomes of the script
// with their reachable evaluation criteria.
func EvaluableItems(text string) []db.EvaluableItem {
	graph, _ := Parse(text)
	return graph.EvaluableItems()
}

// FlatItems returns the competency, criterion and knowledge names of the
// script.
func FlatItems(text string) db.CurricularItems {
	return CurricularItems(Match(text).Entities)
}
