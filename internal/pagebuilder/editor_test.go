package pagebuilder_test

import (
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"

	"storefront/internal/domain"
	"storefront/internal/pagebuilder"
)

func seqIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("el-%d", n)
	}
}

func heading(text string) domain.PageElement {
	return domain.PageElement{Type: domain.ElementHeading, Props: domain.Props{"text": text}}
}

func paragraph(text string) domain.PageElement {
	return domain.PageElement{Type: domain.ElementParagraph, Props: domain.Props{"text": text}}
}

func container() domain.PageElement {
	return domain.PageElement{Type: domain.ElementContainer, Props: domain.Props{"padding": 8}}
}

// containerWithTwoParagraphs builds roots [h1, box[p1, p2]] and returns
// the editor plus the ids of box, p1 and p2.
func containerWithTwoParagraphs(t *testing.T) (*pagebuilder.Editor, string, string, string) {
	t.Helper()
	e := pagebuilder.NewEditor(nil, pagebuilder.WithIDGenerator(seqIDs()))
	if _, ok := e.AddElement(heading("Top"), ""); !ok {
		t.Fatal("add heading")
	}
	box, ok := e.AddElement(container(), "")
	if !ok {
		t.Fatal("add container")
	}
	p1, _ := e.AddElement(paragraph("first"), box)
	p2, _ := e.AddElement(paragraph("second"), box)
	return e, box, p1, p2
}

func TestNewEditor_Defaults(t *testing.T) {
	e := pagebuilder.NewEditor(nil)
	c := e.Content()

	if len(c.Elements) != 0 {
		t.Fatalf("expected no elements, got %d", len(c.Elements))
	}
	if c.Settings.Title != "Nova Página" || c.Settings.Theme != "light" || c.Settings.Description == "" {
		t.Errorf("unexpected default settings: %+v", c.Settings)
	}
	if e.CanUndo() || e.CanRedo() {
		t.Error("fresh editor must have nothing to undo or redo")
	}
	if e.Undo() || e.Redo() {
		t.Error("undo/redo on a fresh editor must be no-ops")
	}
}

func TestNewEditor_CopiesInitial(t *testing.T) {
	initial := domain.PageContent{
		Elements: []domain.PageElement{{ID: "a", Type: domain.ElementHeading, Props: domain.Props{"text": "x"}}},
		Settings: domain.DefaultSettings(),
	}
	e := pagebuilder.NewEditor(&initial)
	initial.Elements[0].Props["text"] = "mutated"

	got, _, ok := e.Find("a")
	if !ok {
		t.Fatal("element a not found")
	}
	if got.Props["text"] != "x" {
		t.Errorf("editor aliased the initial content: %v", got.Props["text"])
	}
}

func TestAddUndoRedo_Heading(t *testing.T) {
	e := pagebuilder.NewEditor(nil)

	id, ok := e.AddElement(heading("Hi"), "")
	if !ok || id == "" {
		t.Fatalf("AddElement() = %q, %v", id, ok)
	}
	c := e.Content()
	if len(c.Elements) != 1 {
		t.Fatalf("expected 1 root element, got %d", len(c.Elements))
	}
	if c.Elements[0].Type != domain.ElementHeading || c.Elements[0].Props["text"] != "Hi" || c.Elements[0].ID != id {
		t.Fatalf("unexpected element: %+v", c.Elements[0])
	}

	if !e.Undo() {
		t.Fatal("expected undo to succeed")
	}
	if n := len(e.Content().Elements); n != 0 {
		t.Fatalf("after undo expected empty page, got %d elements", n)
	}

	if !e.Redo() {
		t.Fatal("expected redo to succeed")
	}
	c = e.Content()
	if len(c.Elements) != 1 || c.Elements[0].ID != id {
		t.Fatalf("redo did not restore the same element: %+v", c.Elements)
	}
}

func TestAddElement_AppendsPreservingOrder(t *testing.T) {
	e := pagebuilder.NewEditor(nil, pagebuilder.WithIDGenerator(seqIDs()))
	var ids []string
	for _, text := range []string{"a", "b", "c", "d"} {
		id, _ := e.AddElement(paragraph(text), "")
		ids = append(ids, id)
	}

	var got []string
	for _, el := range e.Content().Elements {
		got = append(got, el.ID)
	}
	if diff := cmp.Diff(ids, got); diff != "" {
		t.Errorf("root order mismatch (-want +got):\n%s", diff)
	}
}

func TestAddElement_ReplacesSuppliedIDs(t *testing.T) {
	e := pagebuilder.NewEditor(nil, pagebuilder.WithIDGenerator(seqIDs()))
	first, _ := e.AddElement(heading("one"), "")

	box := container()
	box.ID = first
	box.Children = []domain.PageElement{{ID: first, Type: domain.ElementParagraph}}
	id, ok := e.AddElement(box, "")
	if !ok {
		t.Fatal("add failed")
	}
	if id == first {
		t.Fatal("supplied id must be replaced")
	}
	added, _, _ := e.Find(id)
	if added.Children[0].ID == first || added.Children[0].ID == id {
		t.Errorf("child kept a colliding id: %q", added.Children[0].ID)
	}
}

func TestAddElement_ToParent(t *testing.T) {
	e, box, p1, p2 := containerWithTwoParagraphs(t)

	got, parent, ok := e.Find(box)
	if !ok || parent != "" {
		t.Fatalf("container lookup = %v, parent %q", ok, parent)
	}
	if len(got.Children) != 2 || got.Children[0].ID != p1 || got.Children[1].ID != p2 {
		t.Fatalf("unexpected children: %+v", got.Children)
	}
	if _, parent, _ := e.Find(p2); parent != box {
		t.Errorf("Find(p2) parent = %q, want %q", parent, box)
	}
	if got.Children[1].ParentID != box {
		t.Errorf("ParentID = %q, want %q", got.Children[1].ParentID, box)
	}
}

func TestAddElement_UnknownParentIsNoop(t *testing.T) {
	e, _, _, _ := containerWithTwoParagraphs(t)
	before := e.Content()

	id, ok := e.AddElement(paragraph("orphan"), "missing")
	if ok || id != "" {
		t.Fatalf("AddElement() = %q, %v; want no-op", id, ok)
	}
	if diff := cmp.Diff(before, e.Content()); diff != "" {
		t.Errorf("tree changed (-before +after):\n%s", diff)
	}
}

func TestRemoveElement_SecondChild(t *testing.T) {
	e, box, p1, p2 := containerWithTwoParagraphs(t)
	before, _, _ := e.Find(p1)

	if !e.RemoveElement(p2) {
		t.Fatal("RemoveElement() = false")
	}
	got, _, _ := e.Find(box)
	if len(got.Children) != 1 {
		t.Fatalf("expected 1 child, got %d", len(got.Children))
	}
	if diff := cmp.Diff(before, got.Children[0]); diff != "" {
		t.Errorf("first paragraph changed (-want +got):\n%s", diff)
	}
	if _, _, ok := e.Find(p2); ok {
		t.Error("removed element still present")
	}
	if n := len(e.Content().Elements); n != 2 {
		t.Errorf("root count = %d, want 2", n)
	}
}

func TestRemoveElement_RemovesSubtree(t *testing.T) {
	e, box, p1, _ := containerWithTwoParagraphs(t)
	if !e.RemoveElement(box) {
		t.Fatal("RemoveElement() = false")
	}
	if _, _, ok := e.Find(p1); ok {
		t.Error("child of removed container still reachable")
	}
	if e.Len() != 1 {
		t.Errorf("Len() = %d, want 1", e.Len())
	}
}

func TestRemoveElement_MissingID(t *testing.T) {
	e, _, _, _ := containerWithTwoParagraphs(t)
	before := e.Content()
	if e.RemoveElement("nope") {
		t.Fatal("expected no-op")
	}
	if diff := cmp.Diff(before, e.Content()); diff != "" {
		t.Errorf("tree changed:\n%s", diff)
	}
}

func TestUpdateElement_MergesProps(t *testing.T) {
	e := pagebuilder.NewEditor(nil)
	id, _ := e.AddElement(domain.PageElement{
		Type:  domain.ElementButton,
		Props: domain.Props{"text": "Buy", "url": "/x", "color": "blue"},
	}, "")

	if !e.UpdateElement(id, pagebuilder.ElementPatch{Props: domain.Props{"color": "red"}}) {
		t.Fatal("UpdateElement() = false")
	}
	got, _, _ := e.Find(id)
	want := domain.Props{"text": "Buy", "url": "/x", "color": "red"}
	if diff := cmp.Diff(want, got.Props); diff != "" {
		t.Errorf("props mismatch (-want +got):\n%s", diff)
	}
}

func TestUpdateElement_NestedTypeAndChildren(t *testing.T) {
	e, box, p1, p2 := containerWithTwoParagraphs(t)

	newType := domain.ElementHeading
	if !e.UpdateElement(p2, pagebuilder.ElementPatch{Type: &newType}) {
		t.Fatal("nested update failed")
	}
	got, _, _ := e.Find(p2)
	if got.Type != domain.ElementHeading || got.Props["text"] != "second" {
		t.Errorf("unexpected element after type change: %+v", got)
	}

	children := []domain.PageElement{
		{ID: p1, Type: domain.ElementParagraph, Props: domain.Props{"text": "kept id"}},
		{ID: box, Type: domain.ElementParagraph},
		{Type: domain.ElementSpacer},
	}
	if !e.UpdateElement(box, pagebuilder.ElementPatch{Children: &children}) {
		t.Fatal("children update failed")
	}
	updated, _, _ := e.Find(box)
	if len(updated.Children) != 3 {
		t.Fatalf("expected 3 children, got %d", len(updated.Children))
	}
	if updated.Children[0].ID != p1 {
		t.Errorf("child id %q should be kept", p1)
	}
	if updated.Children[1].ID == box || updated.Children[2].ID == "" {
		t.Errorf("colliding or empty ids not re-keyed: %q %q", updated.Children[1].ID, updated.Children[2].ID)
	}
	if _, _, ok := e.Find(p2); ok {
		t.Error("replaced child still present")
	}
}

func TestDuplicateElement_InsertsCopyAfterOriginal(t *testing.T) {
	e, box, p1, p2 := containerWithTwoParagraphs(t)

	copyID, ok := e.DuplicateElement(box)
	if !ok || copyID == "" || copyID == box {
		t.Fatalf("DuplicateElement() = %q, %v", copyID, ok)
	}
	roots := e.Content().Elements
	if len(roots) != 3 || roots[1].ID != box || roots[2].ID != copyID {
		t.Fatalf("copy not inserted after original: %+v", roots)
	}
	dup := roots[2]
	if len(dup.Children) != 2 {
		t.Fatalf("copy lost children: %+v", dup.Children)
	}
	for _, c := range dup.Children {
		if c.ID == p1 || c.ID == p2 {
			t.Errorf("copied child reused id %q", c.ID)
		}
		if c.ParentID != copyID {
			t.Errorf("copied child parent = %q, want %q", c.ParentID, copyID)
		}
	}
	if dup.Children[0].Props["text"] != "first" {
		t.Errorf("copy props differ: %v", dup.Children[0].Props)
	}
}

func TestDuplicateElement_Nested(t *testing.T) {
	e, box, p1, p2 := containerWithTwoParagraphs(t)
	copyID, ok := e.DuplicateElement(p1)
	if !ok {
		t.Fatal("duplicate failed")
	}
	got, _, _ := e.Find(box)
	ids := []string{got.Children[0].ID, got.Children[1].ID, got.Children[2].ID}
	if diff := cmp.Diff([]string{p1, copyID, p2}, ids); diff != "" {
		t.Errorf("sibling order (-want +got):\n%s", diff)
	}
}

func TestMoveElement(t *testing.T) {
	tests := []struct {
		name     string
		move     func(e *pagebuilder.Editor, box, p1, p2 string) bool
		wantOK   bool
		wantRoot int
	}{
		{
			name: "reorder within container",
			move: func(e *pagebuilder.Editor, box, p1, p2 string) bool { return e.MoveElement(p2, 0, box) },
			wantOK: true, wantRoot: 2,
		},
		{
			name: "index clamped to end",
			move: func(e *pagebuilder.Editor, box, p1, p2 string) bool { return e.MoveElement(p1, 99, box) },
			wantOK: true, wantRoot: 2,
		},
		{
			name: "child moved to root",
			move: func(e *pagebuilder.Editor, box, p1, p2 string) bool { return e.MoveElement(p1, 0, "") },
			wantOK: true, wantRoot: 3,
		},
		{
			name: "into own subtree",
			move: func(e *pagebuilder.Editor, box, p1, p2 string) bool { return e.MoveElement(box, 0, p1) },
			wantOK: false, wantRoot: 2,
		},
		{
			name: "missing parent",
			move: func(e *pagebuilder.Editor, box, p1, p2 string) bool { return e.MoveElement(p1, 0, "missing") },
			wantOK: false, wantRoot: 2,
		},
		{
			name: "missing element",
			move: func(e *pagebuilder.Editor, box, p1, p2 string) bool { return e.MoveElement("missing", 0, "") },
			wantOK: false, wantRoot: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, box, p1, p2 := containerWithTwoParagraphs(t)
			if got := tt.move(e, box, p1, p2); got != tt.wantOK {
				t.Fatalf("MoveElement() = %v, want %v", got, tt.wantOK)
			}
			if n := len(e.Content().Elements); n != tt.wantRoot {
				t.Errorf("root count = %d, want %d", n, tt.wantRoot)
			}
			if e.Len() != 4 {
				t.Errorf("element count = %d, want 4", e.Len())
			}
		})
	}
}

func TestMoveElement_Positions(t *testing.T) {
	e, box, p1, p2 := containerWithTwoParagraphs(t)

	e.MoveElement(p2, 0, box)
	got, _, _ := e.Find(box)
	if got.Children[0].ID != p2 || got.Children[1].ID != p1 {
		t.Fatalf("reorder failed: %+v", got.Children)
	}

	e.MoveElement(p1, -5, "")
	roots := e.Content().Elements
	if roots[0].ID != p1 || roots[0].ParentID != "" {
		t.Fatalf("p1 should be first root with no parent: %+v", roots[0])
	}

	e.MoveElement(box, 0, "")
	roots = e.Content().Elements
	if roots[0].ID != box || roots[1].ID != p1 {
		t.Errorf("root order after move: %s, %s", roots[0].ID, roots[1].ID)
	}
}

func TestOperationThenUndoRestoresTree(t *testing.T) {
	newType := domain.ElementCard
	promo := "Promo"
	ops := map[string]func(e *pagebuilder.Editor, box, p1, p2 string){
		"add root":        func(e *pagebuilder.Editor, _, _, _ string) { e.AddElement(heading("new"), "") },
		"add child":       func(e *pagebuilder.Editor, box, _, _ string) { e.AddElement(paragraph("new"), box) },
		"add missing":     func(e *pagebuilder.Editor, _, _, _ string) { e.AddElement(paragraph("new"), "missing") },
		"remove":          func(e *pagebuilder.Editor, box, _, _ string) { e.RemoveElement(box) },
		"remove missing":  func(e *pagebuilder.Editor, _, _, _ string) { e.RemoveElement("missing") },
		"update props":    func(e *pagebuilder.Editor, _, p1, _ string) { e.UpdateElement(p1, pagebuilder.ElementPatch{Props: domain.Props{"text": "x"}}) },
		"update type":     func(e *pagebuilder.Editor, box, _, _ string) { e.UpdateElement(box, pagebuilder.ElementPatch{Type: &newType}) },
		"duplicate":       func(e *pagebuilder.Editor, box, _, _ string) { e.DuplicateElement(box) },
		"move":            func(e *pagebuilder.Editor, box, p1, _ string) { e.MoveElement(p1, 1, "") },
		"update settings": func(e *pagebuilder.Editor, _, _, _ string) { e.UpdateSettings(pagebuilder.SettingsPatch{Title: &promo}) },
	}

	for name, op := range ops {
		t.Run(name, func(t *testing.T) {
			e, box, p1, p2 := containerWithTwoParagraphs(t)
			before := e.Content()

			op(e, box, p1, p2)
			after := e.Content()

			if !e.Undo() {
				t.Fatal("undo failed")
			}
			if diff := cmp.Diff(before, e.Content()); diff != "" {
				t.Errorf("undo did not restore tree (-want +got):\n%s", diff)
			}
			if !e.Redo() {
				t.Fatal("redo failed")
			}
			if diff := cmp.Diff(after, e.Content()); diff != "" {
				t.Errorf("redo did not restore tree (-want +got):\n%s", diff)
			}
		})
	}
}

func TestNewEditAfterUndoDropsRedo(t *testing.T) {
	e := pagebuilder.NewEditor(nil)
	e.AddElement(heading("a"), "")
	e.AddElement(heading("b"), "")
	e.AddElement(heading("c"), "")

	e.Undo()
	e.Undo()
	if !e.CanRedo() {
		t.Fatal("expected redo to be available")
	}

	e.AddElement(heading("d"), "")
	if e.CanRedo() {
		t.Fatal("redo entries must be discarded after a new edit")
	}
	if e.Redo() {
		t.Fatal("Redo() must be a no-op")
	}

	var texts []any
	for _, el := range e.Content().Elements {
		texts = append(texts, el.Props["text"])
	}
	if diff := cmp.Diff([]any{"a", "d"}, texts); diff != "" {
		t.Errorf("unexpected tree (-want +got):\n%s", diff)
	}
}

func TestSnapshotsNeverAliasLiveTree(t *testing.T) {
	e := pagebuilder.NewEditor(nil)
	id, _ := e.AddElement(domain.PageElement{
		Type:  domain.ElementList,
		Props: domain.Props{"items": []any{"one", "two"}},
	}, "")

	out := e.Content()
	out.Elements[0].Props["items"].([]any)[0] = "changed"
	out.Elements[0].Props["extra"] = true

	e.UpdateElement(id, pagebuilder.ElementPatch{Props: domain.Props{"ordered": true}})
	e.Undo()

	got, _, _ := e.Find(id)
	want := domain.Props{"items": []any{"one", "two"}}
	if diff := cmp.Diff(want, got.Props); diff != "" {
		t.Errorf("snapshot was aliased (-want +got):\n%s", diff)
	}
}

type columnSpec struct {
	Widths []int
	Label  *string
}

func TestSnapshotsCopyTypedPropValues(t *testing.T) {
	e := pagebuilder.NewEditor(nil)
	label := "main"
	widths := []int{1, 2, 3}
	id, _ := e.AddElement(domain.PageElement{
		Type: domain.ElementColumns,
		Props: domain.Props{
			"ratios": []float64{1, 2},
			"labels": map[string]string{"left": "a"},
			"spec":   columnSpec{Widths: widths, Label: &label},
			"grid":   [2][]int{{1}, {2}},
		},
	}, "")
	e.UpdateElement(id, pagebuilder.ElementPatch{Props: domain.Props{"gap": 4}})

	// Writes through the caller's values, Content() and Find() stay local.
	widths[0] = 99
	label = "changed"
	out := e.Content()
	out.Elements[0].Props["ratios"].([]float64)[0] = 42
	out.Elements[0].Props["labels"].(map[string]string)["left"] = "z"
	found, _, _ := e.Find(id)
	found.Props["spec"].(columnSpec).Widths[1] = 77
	found.Props["grid"].([2][]int)[0][0] = 5

	e.Undo()

	got, _, _ := e.Find(id)
	want := domain.Props{
		"ratios": []float64{1, 2},
		"labels": map[string]string{"left": "a"},
		"spec":   columnSpec{Widths: []int{1, 2, 3}, Label: ptr("main")},
		"grid":   [2][]int{{1}, {2}},
	}
	if diff := cmp.Diff(want, got.Props); diff != "" {
		t.Errorf("typed prop values were shared (-want +got):\n%s", diff)
	}

	e.Redo()
	got, _, _ = e.Find(id)
	if got.Props["gap"] != 4 {
		t.Errorf("redo lost the update: %v", got.Props)
	}
}

func ptr[T any](v T) *T { return &v }

func TestGeneratedIDsAreUnique(t *testing.T) {
	e := pagebuilder.NewEditor(nil, pagebuilder.WithHistoryLimit(2))
	seen := make(map[string]bool, 10000)
	for i := 0; i < 10000; i++ {
		id, ok := e.AddElement(domain.PageElement{Type: domain.ElementSpacer}, "")
		if !ok || id == "" {
			t.Fatalf("add %d failed", i)
		}
		if seen[id] {
			t.Fatalf("duplicate id %q after %d adds", id, i)
		}
		seen[id] = true
	}
}

func TestIDGeneratorCollisionsAreSkipped(t *testing.T) {
	ids := []string{"x", "x", "", "y"}
	i := 0
	gen := func() string {
		id := ids[i%len(ids)]
		i++
		return id
	}
	e := pagebuilder.NewEditor(nil, pagebuilder.WithIDGenerator(gen))
	a, _ := e.AddElement(heading("a"), "")
	b, _ := e.AddElement(heading("b"), "")
	if a != "x" || b != "y" {
		t.Errorf("got ids %q, %q; want x, y", a, b)
	}
}

func TestHistoryLimit(t *testing.T) {
	e := pagebuilder.NewEditor(nil, pagebuilder.WithHistoryLimit(3))
	for _, s := range []string{"a", "b", "c", "d", "e"} {
		e.AddElement(heading(s), "")
	}

	undos := 0
	for e.Undo() {
		undos++
	}
	if undos != 2 {
		t.Fatalf("undo steps = %d, want 2", undos)
	}
	if n := len(e.Content().Elements); n != 3 {
		t.Errorf("oldest kept snapshot has %d elements, want 3", n)
	}
}

func TestSnapshotAndRestore(t *testing.T) {
	e, _, _, _ := containerWithTwoParagraphs(t)
	e.Undo()
	state := e.Snapshot()
	if state.Cursor != len(state.Entries)-2 {
		t.Fatalf("cursor = %d with %d entries", state.Cursor, len(state.Entries))
	}

	restored := pagebuilder.RestoreEditor(state, pagebuilder.WithIDGenerator(seqIDs()))
	if diff := cmp.Diff(e.Content(), restored.Content()); diff != "" {
		t.Fatalf("restored live tree differs:\n%s", diff)
	}
	if !restored.CanRedo() || !restored.CanUndo() {
		t.Error("restored editor lost history")
	}

	e.Redo()
	restored.Redo()
	if diff := cmp.Diff(e.Content(), restored.Content()); diff != "" {
		t.Errorf("redo after restore differs:\n%s", diff)
	}
}

func TestRestoreEditor_Empty(t *testing.T) {
	e := pagebuilder.RestoreEditor(domain.HistoryState{})
	if e.CanUndo() || len(e.Content().Elements) != 0 {
		t.Error("empty state should give a fresh editor")
	}
}

func TestUpdateSettings(t *testing.T) {
	e := pagebuilder.NewEditor(nil)
	theme := "dark"
	css := ".hero{color:red}"
	e.UpdateSettings(pagebuilder.SettingsPatch{Theme: &theme, CustomCSS: &css})

	s := e.Content().Settings
	if s.Theme != "dark" || s.CustomCSS != css || s.Title != domain.DefaultPageTitle {
		t.Errorf("unexpected settings: %+v", s)
	}
}
