package worldgraph

import (
	"fmt"
	"sort"
	"strings"
)

// ListActions returns every distinct 'action:*' local token present in the
// graph, sorted.
func (g *WorldGraph) ListActions() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	seen := map[string]bool{}
	for _, b := range g.bindings {
		if tok := b.hasTagPrefix("action:"); tok != "" {
			seen[tok] = true
		}
	}
	out := make([]string, 0, len(seen))
	for t := range seen {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// ActionCounts returns, for each distinct action token, how many bindings
// carry it.
func (g *WorldGraph) ActionCounts() map[string]int {
	g.mu.RLock()
	defer g.mu.RUnlock()

	counts := map[string]int{}
	for _, b := range g.bindings {
		if tok := b.hasTagPrefix("action:"); tok != "" {
			counts[tok]++
		}
	}
	return counts
}

// ActionEdge describes one edge whose source binding carries an action tag.
type ActionEdge struct {
	Action string
	From   string
	To     string
	Label  string
}

// EdgesWithAction returns every edge whose source binding is tagged with
// the given action token (without the "action:" prefix). If token is "",
// edges from every action-tagged binding are returned.
func (g *WorldGraph) EdgesWithAction(token string) []ActionEdge {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var out []ActionEdge
	ids := make([]string, 0, len(g.bindings))
	for id := range g.bindings {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		b := g.bindings[id]
		act := b.hasTagPrefix("action:")
		if act == "" {
			continue
		}
		if token != "" && act != token {
			continue
		}
		for _, e := range b.Edges {
			out = append(out, ActionEdge{Action: act, From: id, To: e.To, Label: e.Label})
		}
	}
	return out
}

// ActionMetric aggregates per-action outcome statistics recorded under the
// "reward" and "status" keys of action bindings' metadata. Edge metadata is
// not read.
type ActionMetric struct {
	Count        int
	Successes    int
	Failures     int
	Errors       int
	TotalReward  float64
	AverageReward float64
}

// ActionMetrics aggregates outcome statistics per action token, reading
// "status" ("success"|"fail"|"error") and "reward" from each action
// binding's Meta.
func (g *WorldGraph) ActionMetrics() map[string]ActionMetric {
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := map[string]ActionMetric{}
	for _, b := range g.bindings {
		act := b.hasTagPrefix("action:")
		if act == "" {
			continue
		}
		m := out[act]
		m.Count++
		if status, ok := b.Meta["status"].(string); ok {
			switch status {
			case "success":
				m.Successes++
			case "fail":
				m.Failures++
			case "error":
				m.Errors++
			}
		}
		if reward, ok := asFloat(b.Meta["reward"]); ok {
			m.TotalReward += reward
		}
		out[act] = m
	}
	for act, m := range out {
		if m.Count > 0 {
			m.AverageReward = m.TotalReward / float64(m.Count)
		}
		out[act] = m
	}
	return out
}

func asFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	}
	return 0, false
}

// ActionSummaryText renders ActionMetrics as a human-readable, stably
// ordered report suitable for console/log output.
func (g *WorldGraph) ActionSummaryText() string {
	metrics := g.ActionMetrics()
	if len(metrics) == 0 {
		return "(no actions recorded)"
	}
	tokens := make([]string, 0, len(metrics))
	for t := range metrics {
		tokens = append(tokens, t)
	}
	sort.Strings(tokens)

	var sb strings.Builder
	for _, t := range tokens {
		m := metrics[t]
		fmt.Fprintf(&sb, "action:%-24s n=%-4d ok=%-4d fail=%-4d err=%-4d avg_reward=%.3f\n",
			t, m.Count, m.Successes, m.Failures, m.Errors, m.AverageReward)
	}
	return strings.TrimRight(sb.String(), "\n")
}

// PrettyPath renders a planner path as an arrow-joined string of binding
// tag summaries, for log/console display.
func (g *WorldGraph) PrettyPath(path []string) string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	parts := make([]string, 0, len(path))
	for _, id := range path {
		b, ok := g.bindings[id]
		if !ok {
			parts = append(parts, id+"?")
			continue
		}
		tags := b.sortedTags()
		label := id
		if len(tags) > 0 {
			label = fmt.Sprintf("%s[%s]", id, strings.Join(tags, ","))
		}
		parts = append(parts, label)
	}
	return strings.Join(parts, " -> ")
}

// PlanPretty plans from src to the given predicate token and renders the
// result with PrettyPath, or "(no path)" if unreachable.
func (g *WorldGraph) PlanPretty(src, predToken string) string {
	path := g.PlanToPredicate(src, predToken)
	if path == nil {
		return "(no path)"
	}
	return g.PrettyPath(path)
}
