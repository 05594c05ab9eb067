package model

import "sort"

type idSet map[ID]struct{}

// Graph records references between entities. out[a] holds what a's
// definitions reference; in[b] holds the back-links, who references b.
type Graph struct {
	out map[ID]idSet
	in  map[ID]idSet
}

func NewGraph() *Graph {
	return &Graph{out: make(map[ID]idSet), in: make(map[ID]idSet)}
}

func (g *Graph) Link(from, to ID) {
	if g.out[from] == nil {
		g.out[from] = make(idSet)
	}
	if g.in[to] == nil {
		g.in[to] = make(idSet)
	}
	g.out[from][to] = struct{}{}
	g.in[to][from] = struct{}{}
}

// Unlink drops every reference contributed by from.
func (g *Graph) Unlink(from ID) {
	for to := range g.out[from] {
		delete(g.in[to], from)
		if len(g.in[to]) == 0 {
			delete(g.in, to)
		}
	}
	delete(g.out, from)
}

// Remove drops id and every edge touching it.
func (g *Graph) Remove(id ID) {
	g.Unlink(id)
	for from := range g.in[id] {
		delete(g.out[from], id)
		if len(g.out[from]) == 0 {
			delete(g.out, from)
		}
	}
	delete(g.in, id)
}

// References reports whether from references to.
func (g *Graph) References(from, to ID) bool {
	_, ok := g.out[from][to]
	return ok
}

// Referrers returns the back-links of id.
func (g *Graph) Referrers(id ID) []ID {
	return sortedIDs(g.in[id])
}

// Referenced returns what id references.
func (g *Graph) Referenced(id ID) []ID {
	return sortedIDs(g.out[id])
}

func (g *Graph) HasReferrers(id ID) bool { return len(g.in[id]) > 0 }

// Edges returns the number of references.
func (g *Graph) Edges() int {
	n := 0
	for _, s := range g.out {
		n += len(s)
	}
	return n
}

func sortedIDs(s idSet) []ID {
	out := make([]ID, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
