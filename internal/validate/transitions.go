package validate

import (
	"k8s.io/apimachinery/pkg/util/sets"

	"github.com/ito-project/ito/pkg/model"
)

// graph maps a status to the statuses it may move to.
type graph map[string]sets.Set[string]

func (g graph) allow(from string, to ...string) {
	g[from] = sets.New(to...)
}

var transitions = map[model.EntityKind]graph{
	model.EntityTask:   taskGraph(),
	model.EntityChange: changeGraph(),
	model.EntityModule: moduleGraph(),
	model.EntityWave:   waveGraph(),
}

func taskGraph() graph {
	g := graph{}
	g.allow("pending", "in-progress", "complete", "shelved")
	g.allow("in-progress", "pending", "complete", "shelved")
	g.allow("complete", "in-progress", "pending")
	g.allow("shelved", "pending", "in-progress")
	return g
}

func changeGraph() graph {
	g := graph{}
	g.allow("draft", "active")
	g.allow("active", "draft", "complete")
	g.allow("complete", "active", "archived")
	return g
}

func moduleGraph() graph {
	g := graph{}
	g.allow("planned", "active")
	g.allow("active", "planned", "complete")
	g.allow("complete", "active")
	return g
}

func waveGraph() graph {
	g := graph{}
	g.allow("locked", "unlocked")
	g.allow("unlocked", "locked")
	return g
}

// Constrained reports whether kind has a lifecycle graph. Planning and
// config entities move freely.
func Constrained(kind model.EntityKind) bool {
	_, ok := transitions[kind]
	return ok
}

// LegalTransition reports whether kind may move from one status to another.
// Unconstrained kinds allow every transition.
func LegalTransition(kind model.EntityKind, from, to string) bool {
	g, ok := transitions[kind]
	if !ok {
		return true
	}
	return g[from].Has(to)
}
