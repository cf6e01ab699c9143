package graph

import "fmt"

type edgeKey struct {
	source, target, label string
}

// Build turns the analysis engine's node list into a normalized Graph.
//
// Each reference becomes one edge: outgoing references start at the owning
// node, incoming ones end there. Edges with an endpoint that is not in the
// input are dropped, duplicates (same source, target and label) are merged.
// Every edge touching a secondary node is marked secondary. A node that
// declared outgoing references none of which resolved is flagged DeadEnd, as
// is one the engine marked explicitly.
//
// Later inputs repeating an already seen ID are ignored.
func Build(inputs []InputNode) *Graph {
	g := New()

	accepted := make([]InputNode, 0, len(inputs))
	for _, in := range inputs {
		if in.ID == "" || g.HasNode(in.ID) {
			continue
		}
		g.AddNode(nodeFromInput(in))
		accepted = append(accepted, in)
	}

	seen := make(map[edgeKey]bool)
	for _, in := range accepted {
		declared, resolved := 0, 0

		for _, ref := range in.References {
			source, target := in.ID, ref.Key
			if !ref.IsOutgoing {
				source, target = ref.Key, in.ID
			} else {
				declared++
			}

			if !g.HasNode(source) || !g.HasNode(target) {
				continue
			}
			if ref.IsOutgoing {
				resolved++
			}

			key := edgeKey{source: source, target: target, label: ref.Label}
			if seen[key] {
				continue
			}
			seen[key] = true

			g.AddEdge(&Edge{
				ID:        fmt.Sprintf("e%d", g.EdgeCount()),
				Source:    source,
				Target:    target,
				Label:     ref.Label,
				IsPrimary: true,
			})
		}

		if in.DeadEnd || (declared > 0 && resolved == 0) {
			g.Node(in.ID).DeadEnd = true
		}
	}

	for _, n := range g.Nodes() {
		if n.IsPrimary {
			continue
		}
		for _, e := range g.EdgesOf(n.ID) {
			e.IsPrimary = false
		}
	}

	return g
}

func nodeFromInput(in InputNode) *Node {
	label := in.Name
	if label == "" {
		label = in.ID
	}
	display := in.EntityTypeDisplayName
	if display == "" {
		display = in.EntityType
	}

	var loc *Location
	if in.Location != nil {
		l := *in.Location
		loc = &l
	}

	return &Node{
		ID:                    in.ID,
		Label:                 label,
		IsPrimary:             in.IsPrimary,
		EntityType:            in.EntityType,
		Abbreviation:          in.Abbreviation,
		EntityTypeDisplayName: display,
		Details:               append([]Detail(nil), in.Details...),
		Location:              loc,
	}
}
