package script

import "github.com/brequin/brequin/curriculum/db"

type frame struct {
	node  int
	child int
}

// Descendants returns every entity of entityType reachable from start by
// following zero or more relations, whatever the types in between.
//
// Visited tracking is per path: a node already on the current path is not
// entered again, which ends every cycle, but a node reached through two
// sibling branches is reported twice. Callers deduplicate.
//
// The walk costs one step per path, not per node: every layer of two parallel
// branches that join again doubles it.
func (g *Graph) Descendants(start string, entityType db.EntityType) []db.Entity {
	root, ok := g.index[start]
	if !ok {
		return nil
	}

	var found []db.Entity
	onPath := make([]bool, len(g.nodes))

	enter := func(node int) frame {
		onPath[node] = true
		if g.nodes[node].Type == entityType {
			found = append(found, g.nodes[node])
		}
		return frame{node: node}
	}

	stack := []frame{enter(root)}
	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		targets := g.edges[top.node]

		if top.child == len(targets) {
			onPath[top.node] = false
			stack = stack[:len(stack)-1]
			continue
		}

		next := targets[top.child]
		top.child++
		if onPath[next] {
			continue
		}
		stack = append(stack, enter(next))
	}

	return found
}
