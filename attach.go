package memarena

import "github.com/eapache/queue"

// attachments is the per-pool forest recording which allocations are freed
// together with a parent. It is kept apart from the Block so the bump path
// never consults it.
type attachments struct {
	parent   map[refKey]refKey
	children map[refKey][]refKey
	freed    map[refKey]struct{}
}

func newAttachments() *attachments {
	return &attachments{
		parent:   make(map[refKey]refKey),
		children: make(map[refKey][]refKey),
		freed:    make(map[refKey]struct{}),
	}
}

// attach links child under parent, moving it if it already had a parent.
func (t *attachments) attach(child, parent refKey) {
	if child == parent {
		violation("cannot attach an allocation to itself (off=%d)", child.off)
	}
	if t.isFreed(child) || t.isFreed(parent) {
		violation("cannot attach freed allocation (child off=%d, parent off=%d)", child.off, parent.off)
	}
	for p, ok := parent, true; ok; p, ok = t.parent[p] {
		if p == child {
			violation("attaching off=%d under off=%d would create a cycle", child.off, parent.off)
		}
	}
	if old, ok := t.parent[child]; ok {
		if old == parent {
			return
		}
		t.unlink(child, old)
	}
	t.parent[child] = parent
	t.children[parent] = append(t.children[parent], child)
}

// free marks root and every allocation attached below it as freed and drops
// them from the forest. It returns how many allocations were newly freed;
// freeing an already freed allocation returns 0.
func (t *attachments) free(root refKey) int {
	if t.isFreed(root) {
		return 0
	}
	if p, ok := t.parent[root]; ok {
		t.unlink(root, p)
	}

	n := 0
	pending := queue.New()
	pending.Add(root)
	for pending.Length() > 0 {
		k := pending.Remove().(refKey)
		if t.isFreed(k) {
			continue
		}
		t.freed[k] = struct{}{}
		n++
		for _, c := range t.children[k] {
			pending.Add(c)
		}
		delete(t.children, k)
		delete(t.parent, k)
	}
	return n
}

func (t *attachments) unlink(child, parent refKey) {
	siblings := t.children[parent]
	for i, s := range siblings {
		if s == child {
			siblings = append(siblings[:i], siblings[i+1:]...)
			break
		}
	}
	if len(siblings) == 0 {
		delete(t.children, parent)
	} else {
		t.children[parent] = siblings
	}
	delete(t.parent, child)
}

func (t *attachments) isFreed(k refKey) bool {
	_, ok := t.freed[k]
	return ok
}

func (t *attachments) parentOf(k refKey) (refKey, bool) {
	p, ok := t.parent[k]
	return p, ok
}

// size returns the number of live attachment edges.
func (t *attachments) size() int {
	return len(t.parent)
}

// clear forgets everything; used when the pool generation changes.
func (t *attachments) clear() {
	clear(t.parent)
	clear(t.children)
	clear(t.freed)
}
