// Package lexicon implements the stage-cumulative tag vocabulary gating
// WorldGraph's add_predicate/add_cue/add_action calls: neonate ⊂ infant ⊂
// juvenile ⊂ adult. Membership is backed by a Mangle fact base
// (lexicon_allows(Stage, Family, Token)) queried through
// github.com/google/mangle's ast/factstore packages, the same EDB-as-
// factstore idiom the teacher uses for its own tag/predicate store — scoped
// down here to plain membership queries with no rule evaluation, since the
// lexicon itself has no derived facts.
package lexicon

import (
	"fmt"
	"sort"
	"sync"

	"github.com/google/mangle/ast"
	"github.com/google/mangle/factstore"

	"cca8/internal/logging"
)

// Family namespaces a tag token: "pred", "cue", "anchor", or "action".
type Family string

const (
	FamilyPred   Family = "pred"
	FamilyCue    Family = "cue"
	FamilyAnchor Family = "anchor"
	FamilyAction Family = "action"
)

// Stage is a developmental stage. Stages are cumulative: later stages admit
// every token admitted by earlier stages.
type Stage string

const (
	StageNeonate  Stage = "neonate"
	StageInfant   Stage = "infant"
	StageJuvenile Stage = "juvenile"
	StageAdult    Stage = "adult"
)

// StageOrder lists stages from least to most developmentally advanced.
var StageOrder = []Stage{StageNeonate, StageInfant, StageJuvenile, StageAdult}

// Policy controls enforcement strictness for out-of-lexicon tokens.
type Policy string

const (
	PolicyAllow  Policy = "allow"  // off: never reject, never warn
	PolicyWarn   Policy = "warn"   // default: log a warning, still admit
	PolicyStrict Policy = "strict" // reject with an error
)

var lexiconAllowsSym = ast.PredicateSym{Symbol: "lexicon_allows", Arity: 3}

// base lists the tokens newly introduced at each stage, per family. Stages
// are cumulative: infant's effective set is neonate's ∪ infant's own
// additions, and so on. Only "neonate" carries tokens in this domain; later
// stages are placeholders for future development, mirroring the reference
// implementation's own empty "juvenile"/"adult" entries.
var base = map[Stage]map[Family][]string{
	StageNeonate: {
		FamilyPred: {
			"posture:standing",
			"posture:fallen",
			"proximity:mom:close",
			"proximity:mom:far",
			"proximity:shelter:near",
			"proximity:shelter:far",
			"hazard:cliff:near",
			"hazard:cliff:far",
			"nipple:found",
			"nipple:latched",
			"milk:drinking",
			"resting",
			"alert",
			"seeking_mom",
			"stand",
			"valence:like",
			"valence:hate",
		},
		FamilyAction: {
			"push_up",
			"extend_legs",
			"look_around",
			"orient_to_mom",
		},
		FamilyCue: {
			"vision:silhouette:mom",
			"scent:milk",
			"sound:bleat:mom",
			"terrain:rocky",
			"vestibular:fall",
			"touch:flank_on_ground",
			"drive:hunger_high",
		},
		FamilyAnchor: {
			"NOW",
			"NOW_ORIGIN",
			"HERE",
		},
	},
	StageInfant:   {},
	StageJuvenile: {},
	StageAdult:    {},
}

// Lexicon is a stage-gated tag vocabulary. Membership facts are asserted
// into a Mangle fact store at construction (queryable via Facts, e.g. for a
// future CLI introspection command); IsAllowed itself is served from the
// in-memory cumulative index built alongside the same assertion pass, since
// hot-path tag gating on every add_predicate/add_cue call should not pay a
// linear GetFacts scan.
type Lexicon struct {
	mu          sync.RWMutex
	store       factstore.FactStore
	allowed     map[Stage]map[Family]map[string]bool // cumulative per stage
	legacyAlias map[string]string                     // legacy local token -> preferred local token (pred family only)
}

// New builds a Lexicon, asserting every (stage, family, token) membership
// fact for every cumulative stage into a fresh in-memory Mangle store.
func New() *Lexicon {
	lx := &Lexicon{
		store:   factstore.NewSimpleInMemoryStore(),
		allowed: map[Stage]map[Family]map[string]bool{},
		// Empty by default, as in the reference TagLexicon.LEGACY_MAP ("no
		// state:* tokens left"); the lookup API stays live so a future
		// stage addition is a data change, not a code change.
		legacyAlias: map[string]string{},
	}

	acc := map[Family]map[string]bool{
		FamilyPred:   {},
		FamilyCue:    {},
		FamilyAnchor: {},
		FamilyAction: {},
	}
	for _, stage := range StageOrder {
		for fam, toks := range base[stage] {
			for _, t := range toks {
				acc[fam][t] = true
			}
		}
		snapshot := map[Family]map[string]bool{}
		for fam, set := range acc {
			famSet := map[string]bool{}
			for tok := range set {
				famSet[tok] = true
				atom := ast.NewAtom("lexicon_allows", ast.String(string(stage)), ast.String(string(fam)), ast.String(tok))
				lx.store.Add(atom)
			}
			snapshot[fam] = famSet
		}
		lx.allowed[stage] = snapshot
	}
	return lx
}

// Facts returns every (stage, family, token) membership atom asserted for
// this lexicon, via the underlying Mangle fact store — a direct analogue of
// the teacher's store.GetFacts(ast.NewQuery(pred), ...) query idiom.
func (lx *Lexicon) Facts() []ast.Atom {
	var out []ast.Atom
	lx.store.GetFacts(ast.NewQuery(lexiconAllowsSym), func(a ast.Atom) error {
		out = append(out, a)
		return nil
	})
	return out
}

// IsAllowed reports whether token is permitted (directly or via legacy
// alias) for family at stage.
func (lx *Lexicon) IsAllowed(family Family, token string, stage Stage) bool {
	lx.mu.RLock()
	defer lx.mu.RUnlock()

	if _, legacy := lx.legacyAlias[token]; legacy {
		return true
	}
	fams, ok := lx.allowed[stage]
	if !ok {
		return false
	}
	return fams[family][token]
}

// PreferredOf returns the canonical token for a legacy alias, or "" if token
// is not a legacy form.
func (lx *Lexicon) PreferredOf(token string) string {
	lx.mu.RLock()
	defer lx.mu.RUnlock()
	return lx.legacyAlias[token]
}

// AliasesFor returns legacy aliases (family-local) for a canonical pred
// token, sorted for determinism.
func (lx *Lexicon) AliasesFor(preferredLocal string) []string {
	lx.mu.RLock()
	defer lx.mu.RUnlock()
	var out []string
	for legacy, preferred := range lx.legacyAlias {
		if preferred == preferredLocal {
			out = append(out, legacy)
		}
	}
	sort.Strings(out)
	return out
}

// Enforce applies policy to a (family, token) pair at stage: it logs a
// warning under PolicyWarn, returns an error under PolicyStrict, and is a
// silent no-op under PolicyAllow. The token is always returned unmodified —
// legacy tokens are accepted, never auto-rewritten.
func (lx *Lexicon) Enforce(policy Policy, family Family, token string, stage Stage) error {
	if lx.IsAllowed(family, token, stage) {
		if pref := lx.PreferredOf(token); pref != "" && pref != token && policy != PolicyAllow {
			logging.Get(logging.CategoryLexicon).Warn("legacy %s:%s — prefer %s:%s (kept legacy)", family, token, family, pref)
		}
		return nil
	}
	msg := fmt.Sprintf("%s:%s not allowed at stage=%s", family, token, stage)
	switch policy {
	case PolicyStrict:
		return fmt.Errorf("lexicon: %s", msg)
	case PolicyWarn:
		logging.Get(logging.CategoryLexicon).Warn("[tags] %s (allowing)", msg)
	}
	return nil
}
