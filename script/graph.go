package script

import "github.com/brequin/brequin/curriculum/db"

// Graph owns the entities of one parse. Nodes live in an arena indexed by
// insertion order and edges are adjacency lists of arena indices, in the order
// the relations appeared in the text.
type Graph struct {
	nodes []db.Entity
	index map[string]int
	edges [][]int
	kinds [][]string

	// Duplicates lists temp ids that were declared more than once; the last
	// declaration replaced the earlier ones in place.
	Duplicates []string
	// Dangling lists relations with an endpoint that names no entity.
	Dangling []db.Relation
}

func NewGraph() *Graph {
	return &Graph{index: make(map[string]int)}
}

// BuildGraph adds every entity before any relation so that relations may
// precede the entities they reference in the text.
func BuildGraph(entities []db.Entity, relations []db.Relation) *Graph {
	graph := NewGraph()
	for _, entity := range entities {
		graph.AddEntity(entity)
	}
	for _, relation := range relations {
		graph.AddRelation(relation)
	}
	return graph
}

func (g *Graph) AddEntity(entity db.Entity) {
	if node, exists := g.index[entity.TempId]; exists {
		g.nodes[node] = entity
		g.Duplicates = append(g.Duplicates, entity.TempId)
		return
	}
	g.index[entity.TempId] = len(g.nodes)
	g.nodes = append(g.nodes, entity)
	g.edges = append(g.edges, nil)
	g.kinds = append(g.kinds, nil)
}

// AddRelation reports whether both endpoints were known.
func (g *Graph) AddRelation(relation db.Relation) bool {
	source, sourceFound := g.index[relation.SourceTempId]
	target, targetFound := g.index[relation.TargetTempId]
	if !sourceFound || !targetFound {
		g.Dangling = append(g.Dangling, relation)
		return false
	}
	g.edges[source] = append(g.edges[source], target)
	g.kinds[source] = append(g.kinds[source], relation.Kind)
	return true
}

func (g *Graph) Len() int {
	return len(g.nodes)
}

func (g *Graph) Entity(tempId string) (db.Entity, bool) {
	node, ok := g.index[tempId]
	if !ok {
		return db.Entity{}, false
	}
	return g.nodes[node], true
}

// Entities returns the entities in insertion order.
func (g *Graph) Entities() []db.Entity {
	entities := make([]db.Entity, len(g.nodes))
	copy(entities, g.nodes)
	return entities
}

// Relations returns the resolved relations grouped by source, sources in
// insertion order.
func (g *Graph) Relations() []db.Relation {
	var relations []db.Relation
	for source, targets := range g.edges {
		for i, target := range targets {
			relations = append(relations, db.Relation{
				SourceTempId: g.nodes[source].TempId,
				TargetTempId: g.nodes[target].TempId,
				Kind:         g.kinds[source][i],
			})
		}
	}
	return relations
}

// Children returns the direct targets of tempId in relation order.
func (g *Graph) Children(tempId string) []db.Entity {
	node, ok := g.index[tempId]
	if !ok {
		return nil
	}
	children := make([]db.Entity, 0, len(g.edges[node]))
	for _, target := range g.edges[node] {
		children = append(children, g.nodes[target])
	}
	return children
}
