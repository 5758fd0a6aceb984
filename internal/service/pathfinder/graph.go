package pathfinder

import (
	"sort"

	"github.com/Domenick1991/flightcore/internal/domain"
	"github.com/google/uuid"
)

// Graph is a read-only snapshot of one departure date: nodes are airports,
// edges are that date's flights keyed by source airport. Adjacency lists are
// sorted so enumeration over an unchanged flight set is deterministic.
type Graph struct {
	edges map[string][]domain.Flight
}

// BuildGraphs partitions flights into per-date graphs, keyed by the UTC
// departure date.
func BuildGraphs(flights []domain.Flight) map[string]*Graph {
	graphs := make(map[string]*Graph)
	for _, f := range flights {
		date := f.DepartureDate()
		g, ok := graphs[date]
		if !ok {
			g = &Graph{edges: make(map[string][]domain.Flight)}
			graphs[date] = g
		}
		g.edges[f.Source] = append(g.edges[f.Source], f)
	}
	for _, g := range graphs {
		for _, adjacent := range g.edges {
			sort.Slice(adjacent, func(i, j int) bool {
				if !adjacent[i].DepartureTS.Equal(adjacent[j].DepartureTS) {
					return adjacent[i].DepartureTS.Before(adjacent[j].DepartureTS)
				}
				return adjacent[i].ID.String() < adjacent[j].ID.String()
			})
		}
	}
	return graphs
}

// Paths enumerates every simple path from source to destination within the
// hop bound, by backtracking. A flight already on the path under construction
// is never reused; the prohibition is scoped to that path only.
func (g *Graph) Paths(source, destination string, maxHops int) [][]domain.Flight {
	var all [][]domain.Flight
	used := make(map[uuid.UUID]bool)
	var path []domain.Flight

	var walk func(airport string)
	walk = func(airport string) {
		if airport == destination {
			all = append(all, append([]domain.Flight(nil), path...))
			return
		}
		if len(path) >= maxHops {
			return
		}
		for _, f := range g.edges[airport] {
			if used[f.ID] {
				continue
			}
			used[f.ID] = true
			path = append(path, f)
			walk(f.Destination)
			path = path[:len(path)-1]
			used[f.ID] = false
		}
	}
	walk(source)
	return all
}

func pathPrice(path []domain.Flight) int64 {
	var total int64
	for _, f := range path {
		total += f.PriceCents
	}
	return total
}
