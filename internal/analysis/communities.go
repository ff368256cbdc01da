package analysis

import (
	"context"
	"math/rand"
	"sort"

	"github.com/matsen/bibnet/internal/graph"
)

// DefaultMaxIterations bounds label propagation.
const DefaultMaxIterations = 100

// Community is a group of nodes sharing a label.
type Community struct {
	ID      int      `json:"id"`
	Members []string `json:"members"`
}

// CommunityOptions tunes label propagation.
type CommunityOptions struct {
	MaxIterations int
	Weight        string // edge attribute used as vote weight
	Seed          int64  // seeds the visiting order
}

// Communities detects communities by asynchronous label propagation: every
// node starts with its own label and repeatedly adopts the label with the
// largest summed edge weight among its neighbors, keeping its current label
// on ties when it is among the best and otherwise taking the smallest. Edge
// direction is ignored. Communities are returned largest first, ties broken
// by first member, and numbered from 0.
func Communities(ctx context.Context, g *graph.Graph, opts CommunityOptions) ([]Community, error) {
	if opts.MaxIterations <= 0 {
		opts.MaxIterations = DefaultMaxIterations
	}
	nodes := g.Nodes()
	labels := make(map[string]string, len(nodes))
	for _, n := range nodes {
		labels[n] = n
	}

	rng := rand.New(rand.NewSource(opts.Seed))
	order := append([]string(nil), nodes...)
	for iter := 0; iter < opts.MaxIterations; iter++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })

		changed := false
		for _, n := range order {
			if l := vote(g, n, labels, opts.Weight); l != labels[n] {
				labels[n] = l
				changed = true
			}
		}
		if !changed {
			break
		}
	}
	return group(labels), nil
}

func vote(g *graph.Graph, n string, labels map[string]string, weight string) string {
	votes := map[string]float64{}
	for _, m := range g.Neighbors(n) {
		if m == n {
			continue
		}
		w := Weight(g, n, m, weight)
		if g.Directed() && !g.HasEdge(n, m) {
			w = Weight(g, m, n, weight)
		}
		votes[labels[m]] += w
	}
	if len(votes) == 0 {
		return labels[n]
	}

	best := 0.0
	for _, v := range votes {
		if v > best {
			best = v
		}
	}
	if votes[labels[n]] == best {
		return labels[n]
	}
	var winners []string
	for l, v := range votes {
		if v == best {
			winners = append(winners, l)
		}
	}
	sort.Strings(winners)
	return winners[0]
}

func group(labels map[string]string) []Community {
	byLabel := map[string][]string{}
	for n, l := range labels {
		byLabel[l] = append(byLabel[l], n)
	}
	out := make([]Community, 0, len(byLabel))
	for _, members := range byLabel {
		sort.Strings(members)
		out = append(out, Community{Members: members})
	}
	sort.Slice(out, func(i, j int) bool {
		if len(out[i].Members) != len(out[j].Members) {
			return len(out[i].Members) > len(out[j].Members)
		}
		return out[i].Members[0] < out[j].Members[0]
	})
	for i := range out {
		out[i].ID = i
	}
	return out
}

// Membership maps every node to its community id.
func Membership(communities []Community) map[string]int {
	out := map[string]int{}
	for _, c := range communities {
		for _, m := range c.Members {
			out[m] = c.ID
		}
	}
	return out
}
