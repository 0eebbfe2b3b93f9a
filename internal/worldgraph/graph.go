// Package worldgraph implements the symbolic episode index for cca8: a
// directed graph of tagged Bindings connected by weakly-causal Edges. It is
// a fast index and planner substrate (~5% of information); rich content
// lives in column engrams (~95%) and bindings point to them. Planning is a
// simple BFS/Dijkstra over binding edges to a target predicate tag.
package worldgraph

import (
	"container/heap"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"

	"cca8/internal/lexicon"
	"cca8/internal/logging"
)

// MemoryMode selects whether AddPredicate/AddCue create a fresh binding
// every call (episodic) or consolidate identical tags onto one binding
// (semantic).
type MemoryMode = string

const (
	MemoryEpisodic MemoryMode = "episodic"
	MemorySemantic MemoryMode = "semantic"
)

// WorldGraph is the directed episode graph for predicates, cues, actions,
// and anchors, connected by weakly-causal edges. Locking follows the
// teacher's "Locked"-suffix convention: exported methods take the lock and
// call private xxxLocked helpers that assume it is already held, so
// internal call chains never attempt to re-acquire it.
type WorldGraph struct {
	mu sync.RWMutex

	bindings        map[string]*Binding
	anchors         map[string]string
	latestBindingID string
	nextID          int

	tagPolicy lexicon.Policy
	stage     lexicon.Stage
	lex       *lexicon.Lexicon

	planStrategy string // "bfs" | "dijkstra"

	memoryMode       string // "episodic" | "semantic"
	semanticTagIndex map[string]string
}

// New constructs an empty WorldGraph. memoryMode is "episodic" (default,
// every add_predicate/add_cue call creates a fresh binding) or "semantic"
// (identical tags are consolidated onto a single binding). The initial
// planner strategy is BFS unless the CCA8_PLANNER environment variable is
// set to "dijkstra" at construction time.
func New(memoryMode string, lex *lexicon.Lexicon) *WorldGraph {
	if lex == nil {
		lex = lexicon.New()
	}
	g := &WorldGraph{
		bindings:         map[string]*Binding{},
		anchors:          map[string]string{},
		nextID:           1,
		tagPolicy:        lexicon.PolicyWarn,
		stage:            lexicon.StageNeonate,
		lex:              lex,
		planStrategy:     "bfs",
		memoryMode:       MemoryEpisodic,
		semanticTagIndex: map[string]string{},
	}
	if env := strings.ToLower(strings.TrimSpace(os.Getenv("CCA8_PLANNER"))); env != "" {
		if err := g.SetPlanner(env); err != nil {
			logging.Get(logging.CategoryWorldGraph).Warn("ignoring invalid CCA8_PLANNER=%q: %v", env, err)
		}
	}
	if err := g.SetMemoryMode(memoryMode); err != nil {
		logging.Get(logging.CategoryWorldGraph).Warn("ignoring invalid memory_mode=%q: %v", memoryMode, err)
	}
	return g
}

func (g *WorldGraph) nextIDLocked() string {
	id := fmt.Sprintf("b%d", g.nextID)
	g.nextID++
	return id
}

// --- stage / tag policy -----------------------------------------------------

func (g *WorldGraph) SetStage(stage lexicon.Stage) error {
	for _, s := range lexicon.StageOrder {
		if s == stage {
			g.mu.Lock()
			g.stage = stage
			g.mu.Unlock()
			return nil
		}
	}
	return fmt.Errorf("worldgraph: unknown stage %q", stage)
}

func (g *WorldGraph) SetTagPolicy(p lexicon.Policy) error {
	switch p {
	case lexicon.PolicyAllow, lexicon.PolicyWarn, lexicon.PolicyStrict:
		g.mu.Lock()
		g.tagPolicy = p
		g.mu.Unlock()
		return nil
	}
	return fmt.Errorf("worldgraph: policy must be allow|warn|strict, got %q", p)
}

func (g *WorldGraph) enforceTagLocked(family lexicon.Family, token string) error {
	if err := g.lex.Enforce(g.tagPolicy, family, token, g.stage); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidTag, err)
	}
	return nil
}

// --- planner -----------------------------------------------------------------

func (g *WorldGraph) SetPlanner(strategy string) error {
	s := strings.ToLower(strings.TrimSpace(strategy))
	if s == "" {
		s = "bfs"
	}
	if s != "bfs" && s != "dijkstra" {
		return fmt.Errorf("worldgraph: planner strategy must be bfs|dijkstra, got %q", strategy)
	}
	g.mu.Lock()
	g.planStrategy = s
	g.mu.Unlock()
	return nil
}

func (g *WorldGraph) GetPlanner() string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.planStrategy
}

// --- memory mode ---------------------------------------------------------

func (g *WorldGraph) SetMemoryMode(mode string) error {
	m := strings.ToLower(strings.TrimSpace(mode))
	if m == "" {
		m = MemoryEpisodic
	}
	if m != MemoryEpisodic && m != MemorySemantic {
		return fmt.Errorf("worldgraph: unknown memory_mode %q", mode)
	}
	g.mu.Lock()
	g.memoryMode = m
	g.rebuildSemanticIndexLocked()
	g.mu.Unlock()
	return nil
}

func (g *WorldGraph) GetMemoryMode() string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.memoryMode
}

func (g *WorldGraph) rebuildSemanticIndexLocked() {
	g.semanticTagIndex = map[string]string{}
	if g.memoryMode != MemorySemantic {
		return
	}
	ids := make([]string, 0, len(g.bindings))
	for id := range g.bindings {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return bidNum(ids[i]) < bidNum(ids[j]) })
	for _, id := range ids {
		g.semanticIndexLocked(id)
	}
}

func bidNum(bid string) int {
	if len(bid) > 1 && bid[0] == 'b' {
		if n, err := strconv.Atoi(bid[1:]); err == nil {
			return n
		}
	}
	return 1 << 30
}

func (g *WorldGraph) semanticLookupLocked(tag string) (string, bool) {
	if g.memoryMode != MemorySemantic {
		return "", false
	}
	bid, ok := g.semanticTagIndex[tag]
	if !ok {
		return "", false
	}
	if _, exists := g.bindings[bid]; !exists {
		return "", false
	}
	return bid, true
}

func (g *WorldGraph) semanticIndexLocked(bid string) {
	if g.memoryMode != MemorySemantic {
		return
	}
	b, ok := g.bindings[bid]
	if !ok {
		return
	}
	for t := range b.Tags {
		if strings.HasPrefix(t, "pred:") || strings.HasPrefix(t, "cue:") {
			if _, seen := g.semanticTagIndex[t]; !seen {
				g.semanticTagIndex[t] = bid
			}
		}
	}
}

// --- anchors -----------------------------------------------------------------

// EnsureAnchor creates (if absent) a named anchor binding (e.g. "NOW") and
// returns its id. Anchor creation does not change latest.
func (g *WorldGraph) EnsureAnchor(name string) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.ensureAnchorLocked(name)
}

func (g *WorldGraph) ensureAnchorLocked(name string) string {
	if bid, ok := g.anchors[name]; ok {
		return bid
	}
	bid := g.nextIDLocked()
	g.bindings[bid] = newBinding(bid, []string{"anchor:" + name})
	g.anchors[name] = bid
	return bid
}

// SetNow re-points the NOW anchor to an existing binding, returning the
// previous NOW binding id (empty if none). tag adds 'anchor:NOW' to the new
// binding; cleanPrevious removes it from the old one.
func (g *WorldGraph) SetNow(bid string, tag, cleanPrevious bool) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.bindings[bid]; !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownBinding, bid)
	}
	prev := g.anchors["NOW"]
	if cleanPrevious && prev != "" && prev != bid {
		if pb, ok := g.bindings[prev]; ok {
			delete(pb.Tags, "anchor:NOW")
		}
	}
	g.anchors["NOW"] = bid
	if tag {
		g.bindings[bid].Tags["anchor:NOW"] = true
	}
	return prev, nil
}

// --- creation ------------------------------------------------------------

// AddBinding creates a binding with the given tags/meta/engrams and returns
// its id. Prefer AddPredicate/AddCue/AddAction for the common cases.
func (g *WorldGraph) AddBinding(tags []string, meta, engrams map[string]interface{}) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	bid := g.nextIDLocked()
	b := newBinding(bid, tags)
	if meta != nil {
		b.Meta = copyMap(meta)
	}
	if engrams != nil {
		b.Engrams = copyMap(engrams)
	}
	g.bindings[bid] = b
	g.latestBindingID = bid
	return bid
}

// Attach describes how a newly-created binding links into the episode.
type Attach string

const (
	AttachNone   Attach = ""
	AttachNow    Attach = "now"
	AttachLatest Attach = "latest"
)

func normalizeAttach(attach string) (Attach, error) {
	a := Attach(strings.ToLower(strings.TrimSpace(attach)))
	if a == "none" {
		a = AttachNone
	}
	switch a {
	case AttachNone, AttachNow, AttachLatest:
		return a, nil
	}
	return "", fmt.Errorf("%w: attach must be none|now|latest, got %q", ErrInvalidEdge, attach)
}

func edgeExistsLocked(b *Binding, dst, label string) bool {
	for _, e := range b.Edges {
		if e.To == dst && e.Label == label {
			return true
		}
	}
	return false
}

// AddPredicate creates a 'pred:<token>' binding (token without the 'pred:'
// prefix). In semantic memory mode, an identical pred:* binding is reused
// instead of creating a new one.
func (g *WorldGraph) AddPredicate(token string, attach string, meta, engrams map[string]interface{}) (string, error) {
	return g.addTagged("pred", lexicon.FamilyPred, token, attach, meta, engrams)
}

// AddCue creates a 'cue:<token>' binding (token without the 'cue:' prefix).
func (g *WorldGraph) AddCue(token string, attach string, meta, engrams map[string]interface{}) (string, error) {
	return g.addTagged("cue", lexicon.FamilyCue, token, attach, meta, engrams)
}

func (g *WorldGraph) addTagged(prefix string, fam lexicon.Family, token, attach string, meta, engrams map[string]interface{}) (string, error) {
	norm := strings.TrimPrefix(strings.TrimSpace(token), prefix+":")
	tag := prefix + ":" + norm

	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.enforceTagLocked(fam, norm); err != nil {
		return "", err
	}
	att, err := normalizeAttach(attach)
	if err != nil {
		return "", err
	}

	if existing, ok := g.semanticLookupLocked(tag); ok {
		prevLatest := g.latestBindingID
		g.latestBindingID = existing
		if len(meta) > 0 {
			eb := g.bindings[existing]
			cons, _ := eb.Meta["_consolidated"].(map[string]interface{})
			if cons == nil {
				cons = map[string]interface{}{}
			}
			seen, _ := cons["seen"].(int)
			cons["seen"] = seen + 1
			cons["last_meta"] = copyMap(meta)
			eb.Meta["_consolidated"] = cons
		}
		switch att {
		case AttachNow:
			src := g.ensureAnchorLocked("NOW")
			if src != existing && !edgeExistsLocked(g.bindings[src], existing, "then") {
				g.addEdgeLocked(src, existing, "then", meta, false)
			}
		case AttachLatest:
			if prevLatest != "" && prevLatest != existing {
				if pb, ok := g.bindings[prevLatest]; ok && !edgeExistsLocked(pb, existing, "then") {
					g.addEdgeLocked(prevLatest, existing, "then", meta, false)
				}
			}
		}
		return existing, nil
	}

	prevLatest := g.latestBindingID
	bid := g.nextIDLocked()
	b := newBinding(bid, []string{tag})
	if meta != nil {
		b.Meta = copyMap(meta)
	}
	if engrams != nil {
		b.Engrams = copyMap(engrams)
	}

	if fam == lexicon.FamilyPred {
		for _, alias := range g.lex.AliasesFor(norm) {
			b.Tags[prefix+":"+alias] = true
		}
	}

	g.bindings[bid] = b
	g.latestBindingID = bid

	switch att {
	case AttachNow:
		src := g.ensureAnchorLocked("NOW")
		g.addEdgeLocked(src, bid, "then", meta, false)
	case AttachLatest:
		if prevLatest != "" {
			g.addEdgeLocked(prevLatest, bid, "then", meta, false)
		}
	}

	g.semanticIndexLocked(bid)
	return bid, nil
}

// AddAction creates an 'action:<token>' binding; token may be given with or
// without the 'action:' prefix. Default attach is "latest".
func (g *WorldGraph) AddAction(token string, attach string, meta, engrams map[string]interface{}) (string, error) {
	tok := strings.TrimSpace(token)
	local := strings.TrimPrefix(tok, "action:")

	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.enforceTagLocked(lexicon.FamilyAction, local); err != nil {
		return "", err
	}
	if attach == "" {
		attach = "latest"
	}
	att, err := normalizeAttach(attach)
	if err != nil {
		return "", err
	}

	prevLatest := g.latestBindingID
	bid := g.nextIDLocked()
	b := newBinding(bid, []string{"action:" + local})
	if meta != nil {
		b.Meta = copyMap(meta)
	}
	if engrams != nil {
		b.Engrams = copyMap(engrams)
	}
	g.bindings[bid] = b
	g.latestBindingID = bid

	switch att {
	case AttachNow:
		src := g.ensureAnchorLocked("NOW")
		g.addEdgeLocked(src, bid, "then", meta, false)
	case AttachLatest:
		if prevLatest != "" {
			g.addEdgeLocked(prevLatest, bid, "then", meta, false)
		}
	}
	return bid, nil
}

// --- edges -----------------------------------------------------------------

// AddEdge adds a directed src->dst edge labeled label.
func (g *WorldGraph) AddEdge(src, dst, label string, meta map[string]interface{}, allowSelfLoop bool) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.bindings[src]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownBinding, src)
	}
	if _, ok := g.bindings[dst]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownBinding, dst)
	}
	if src == dst && !allowSelfLoop {
		return fmt.Errorf("%w: self-loop rejected for %s", ErrInvalidEdge, src)
	}
	g.addEdgeLocked(src, dst, label, meta, allowSelfLoop)
	return nil
}

// edgeMeta copies meta for an edge, deriving meta.created_by = "policy:<name>"
// from the originating binding's meta.policy ("policy:<name>") when the
// edge's own meta doesn't already carry a created_by. Bindings created by a
// policy are stamped meta.policy; the edges auto-linked alongside them get
// the distinct meta.created_by key instead.
func edgeMeta(meta map[string]interface{}) map[string]interface{} {
	out := copyMap(meta)
	if _, ok := out["created_by"]; ok {
		return out
	}
	if policy, ok := out["policy"].(string); ok && policy != "" {
		out["created_by"] = policy
	}
	return out
}

func (g *WorldGraph) addEdgeLocked(src, dst, label string, meta map[string]interface{}, _ bool) {
	g.bindings[src].Edges = append(g.bindings[src].Edges, Edge{To: dst, Label: label, Meta: edgeMeta(meta)})
}

// DeleteEdge removes edges matching (src -> dst [, label]); label == "" means
// any label. Returns the number removed.
func (g *WorldGraph) DeleteEdge(src, dst, label string) (int, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	b, ok := g.bindings[src]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownBinding, src)
	}
	before := len(b.Edges)
	kept := b.Edges[:0:0]
	for _, e := range b.Edges {
		match := e.To == dst && (label == "" || e.Label == label)
		if !match {
			kept = append(kept, e)
		}
	}
	b.Edges = kept
	return before - len(kept), nil
}

// DeleteBinding removes a binding. If pruneIncoming, all edges pointing to
// it are removed; if pruneAnchors, any anchor pointing to it is removed.
// Returns false if bid did not exist.
func (g *WorldGraph) DeleteBinding(bid string, pruneIncoming, pruneAnchors bool) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.bindings[bid]; !ok {
		return false
	}
	if pruneIncoming {
		for _, b := range g.bindings {
			kept := b.Edges[:0:0]
			for _, e := range b.Edges {
				if e.To != bid {
					kept = append(kept, e)
				}
			}
			b.Edges = kept
		}
	}
	if pruneAnchors {
		for name, aid := range g.anchors {
			if aid == bid {
				delete(g.anchors, name)
			}
		}
	}
	delete(g.bindings, bid)
	if g.latestBindingID == bid {
		g.latestBindingID = ""
	}
	for t, xid := range g.semanticTagIndex {
		if xid == bid {
			delete(g.semanticTagIndex, t)
		}
	}
	return true
}

// --- planning ----------------------------------------------------------------

// PlanToPredicate finds a path from src to the first binding carrying
// 'pred:<token>', using the configured planner strategy (bfs or dijkstra).
// Returns nil if no path exists.
func (g *WorldGraph) PlanToPredicate(src, token string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	target := token
	if !strings.HasPrefix(target, "pred:") {
		target = "pred:" + target
	}
	b0, ok := g.bindings[src]
	if !ok {
		return nil
	}
	if b0.Tags[target] {
		return []string{src}
	}

	if g.planStrategy == "dijkstra" {
		return g.planDijkstraLocked(src, target)
	}
	return g.planBFSLocked(src, target)
}

func (g *WorldGraph) planBFSLocked(src, target string) []string {
	queue := []string{src}
	parent := map[string]string{src: ""}
	visited := map[string]bool{src: true}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		b, ok := g.bindings[cur]
		if !ok {
			continue
		}
		for _, e := range b.Edges {
			nxt := e.To
			if nxt == "" || visited[nxt] {
				continue
			}
			if _, exists := g.bindings[nxt]; !exists {
				continue
			}
			visited[nxt] = true
			parent[nxt] = cur
			if g.bindings[nxt].Tags[target] {
				return reconstructPath(parent, nxt)
			}
			queue = append(queue, nxt)
		}
	}
	return nil
}

func edgeCost(e Edge) float64 {
	for _, k := range []string{"weight", "cost", "distance", "duration_s"} {
		if v, ok := e.Meta[k]; ok {
			switch n := v.(type) {
			case float64:
				return n
			case int:
				return float64(n)
			}
		}
	}
	return 1.0
}

type pqItem struct {
	dist float64
	node string
}
type priorityQueue []pqItem

func (pq priorityQueue) Len() int            { return len(pq) }
func (pq priorityQueue) Less(i, j int) bool  { return pq[i].dist < pq[j].dist }
func (pq priorityQueue) Swap(i, j int)       { pq[i], pq[j] = pq[j], pq[i] }
func (pq *priorityQueue) Push(x interface{}) { *pq = append(*pq, x.(pqItem)) }
func (pq *priorityQueue) Pop() interface{} {
	old := *pq
	n := len(old)
	item := old[n-1]
	*pq = old[:n-1]
	return item
}

func (g *WorldGraph) planDijkstraLocked(src, target string) []string {
	dist := map[string]float64{src: 0.0}
	parent := map[string]string{src: ""}
	seen := map[string]bool{}

	pq := &priorityQueue{{dist: 0.0, node: src}}
	heap.Init(pq)

	for pq.Len() > 0 {
		cur := heap.Pop(pq).(pqItem)
		u := cur.node
		if seen[u] {
			continue
		}
		seen[u] = true

		bu, ok := g.bindings[u]
		if ok && bu.Tags[target] {
			return reconstructPath(parent, u)
		}
		if !ok {
			continue
		}
		for _, e := range bu.Edges {
			v := e.To
			if v == "" {
				continue
			}
			if _, exists := g.bindings[v]; !exists {
				continue
			}
			w := edgeCost(e)
			if w < 0 {
				continue
			}
			nd := dist[u] + w
			if cur, ok := dist[v]; !ok || nd < cur {
				dist[v] = nd
				parent[v] = u
				heap.Push(pq, pqItem{dist: nd, node: v})
			}
		}
	}
	return nil
}

func reconstructPath(parent map[string]string, goal string) []string {
	var path []string
	cur := goal
	for {
		path = append(path, cur)
		p, ok := parent[cur]
		if !ok || p == "" {
			break
		}
		cur = p
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

// --- invariants ---------------------------------------------------------

// CheckInvariants validates basic graph invariants (NOW anchor sanity,
// latest-binding existence, edges resolving to known destinations) and
// returns a list of human-readable issues. If raiseOnError is set and any
// issues were found, it also returns a non-nil error.
func (g *WorldGraph) CheckInvariants(raiseOnError bool) ([]string, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var issues []string

	if nowID, ok := g.anchors["NOW"]; ok {
		if b, exists := g.bindings[nowID]; !exists {
			issues = append(issues, "anchors['NOW'] points to unknown binding id")
		} else if !b.Tags["anchor:NOW"] {
			issues = append(issues, "NOW binding missing 'anchor:NOW' tag")
		}
	}

	if g.latestBindingID != "" {
		if _, ok := g.bindings[g.latestBindingID]; !ok {
			issues = append(issues, "latest binding id is not present in bindings")
		}
	}

	for src, b := range g.bindings {
		for _, e := range b.Edges {
			if e.To == "" {
				issues = append(issues, fmt.Sprintf("edge %s -> %q points to unknown binding", src, e.To))
				continue
			}
			if _, ok := g.bindings[e.To]; !ok {
				issues = append(issues, fmt.Sprintf("edge %s -> %s points to unknown binding", src, e.To))
			}
		}
	}

	if raiseOnError && len(issues) > 0 {
		return issues, fmt.Errorf("worldgraph invariant violations:\n  - %s", strings.Join(issues, "\n  - "))
	}
	return issues, nil
}

// --- accessors ---------------------------------------------------------------

// Binding returns a read-only snapshot of one binding, or false if unknown.
func (g *WorldGraph) Binding(bid string) (bindingDTO, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	b, ok := g.bindings[bid]
	if !ok {
		return bindingDTO{}, false
	}
	return b.toDTO(), true
}

func (g *WorldGraph) Latest() string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.latestBindingID
}

func (g *WorldGraph) Anchor(name string) (string, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	bid, ok := g.anchors[name]
	return bid, ok
}

func (g *WorldGraph) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.bindings)
}

// ReachableTag reports whether some binding carrying tag is reachable from
// src within maxHops edge traversals (src itself counts as 0 hops).
func (g *WorldGraph) ReachableTag(src, tag string, maxHops int) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()

	type frontierItem struct {
		id   string
		hops int
	}
	visited := map[string]bool{src: true}
	queue := []frontierItem{{src, 0}}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		b, ok := g.bindings[cur.id]
		if !ok {
			continue
		}
		if b.Tags[tag] {
			return true
		}
		if cur.hops >= maxHops {
			continue
		}
		for _, e := range b.Edges {
			if !visited[e.To] {
				visited[e.To] = true
				queue = append(queue, frontierItem{e.To, cur.hops + 1})
			}
		}
	}
	return false
}

// BindingsByTag returns a read-only snapshot of every binding carrying tag,
// newest first (by binding id number, the same recency proxy the reference
// implementation uses). Callers that need "the freshest pointer of this
// kind" — e.g. MapSurface's snapshot lookup — take index 0.
func (g *WorldGraph) BindingsByTag(tag string) []bindingDTO {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var out []bindingDTO
	for _, b := range g.bindings {
		if b.Tags[tag] {
			out = append(out, b.toDTO())
		}
	}
	sort.Slice(out, func(i, j int) bool { return bidNum(out[i].ID) > bidNum(out[j].ID) })
	return out
}
