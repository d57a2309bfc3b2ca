package schedule

import "testing"

func wi(id string, deps ...Ref) WorkItem {
	return WorkItem{Ref: Ref{Type: "issue", ID: id}, Title: id, DependsOn: deps}
}

func iref(id string) Ref {
	return Ref{Type: "issue", ID: id}
}

func TestBuildGraphCollectsDangling(t *testing.T) {
	g, dangling := buildGraph([]WorkItem{
		wi("A"),
		wi("B", iref("A"), iref("ghost")),
	})
	if len(dangling) != 1 || dangling[0].To != iref("ghost") || dangling[0].From != iref("B") {
		t.Fatalf("dangling %+v", dangling)
	}
	if len(g.succ[iref("A")]) != 1 || g.succ[iref("A")][0] != iref("B") {
		t.Fatalf("succ %+v", g.succ)
	}
	if len(g.pred[iref("B")]) != 1 {
		t.Fatalf("ghost edge must be dropped, pred %+v", g.pred[iref("B")])
	}
}

func TestDetectCycles(t *testing.T) {
	g, _ := buildGraph([]WorkItem{
		wi("A", iref("B")),
		wi("B", iref("A")),
		wi("C", iref("A")),
	})
	has, members := g.detectCycles()
	if !has {
		t.Fatalf("expected cycle")
	}
	if !members[iref("A")] || !members[iref("B")] {
		t.Fatalf("members %+v", members)
	}
	if members[iref("C")] {
		t.Fatalf("C only depends on the cycle, it is not part of it")
	}
}

func TestDetectCyclesSelfDependency(t *testing.T) {
	g, _ := buildGraph([]WorkItem{wi("A", iref("A"))})
	has, members := g.detectCycles()
	if !has || !members[iref("A")] {
		t.Fatalf("self-dependency is a one-node cycle, got %v %+v", has, members)
	}
}

func TestDetectCyclesAcyclic(t *testing.T) {
	g, _ := buildGraph([]WorkItem{
		wi("A"),
		wi("B", iref("A")),
		wi("C", iref("A"), iref("B")),
	})
	if has, members := g.detectCycles(); has || len(members) != 0 {
		t.Fatalf("unexpected cycle: %+v", members)
	}
}

func TestTopoOrderRespectsEdgesAndInputOrder(t *testing.T) {
	g, _ := buildGraph([]WorkItem{
		wi("C", iref("A")),
		wi("B"),
		wi("A", iref("B")),
	})
	order := g.topoOrder(nil)
	pos := map[Ref]int{}
	for i, n := range order {
		pos[n] = i
	}
	if pos[iref("B")] > pos[iref("A")] || pos[iref("A")] > pos[iref("C")] {
		t.Fatalf("order %v violates edges", order)
	}
}

func TestTopoOrderPlacesCycleMembersLast(t *testing.T) {
	g, _ := buildGraph([]WorkItem{
		wi("X", iref("Y")),
		wi("Y", iref("X")),
		wi("Z"),
	})
	_, members := g.detectCycles()
	order := g.topoOrder(members)
	if len(order) != 3 {
		t.Fatalf("all nodes must be ordered, got %v", order)
	}
	if order[0] != iref("Z") {
		t.Fatalf("acyclic portion first, got %v", order)
	}
	if order[1] != iref("X") || order[2] != iref("Y") {
		t.Fatalf("cycle members keep input order, got %v", order)
	}
}

func TestTopoOrderPlacesCycleDependentsAfterMembers(t *testing.T) {
	// C only depends on the cycle and is declared before it.
	g, _ := buildGraph([]WorkItem{
		wi("C", iref("A")),
		wi("A", iref("B")),
		wi("B", iref("A")),
	})
	_, members := g.detectCycles()
	order := g.topoOrder(members)
	pos := map[Ref]int{}
	for i, n := range order {
		pos[n] = i
	}
	if len(order) != 3 {
		t.Fatalf("all nodes must be ordered, got %v", order)
	}
	if pos[iref("C")] < pos[iref("A")] {
		t.Fatalf("C must order after its dependency A, got %v", order)
	}
	if pos[iref("A")] > pos[iref("B")] {
		t.Fatalf("cycle members keep input order, got %v", order)
	}
}
