package store

import (
	"errors"
	"strings"
	"testing"
)

func newTestTemplates(t *testing.T) (*TemplateManager, *Store) {
	t.Helper()
	s := newTestStore(t)
	return NewTemplates(s), s
}

// ============================================================
// Coercion
// ============================================================

func TestCoerceInt(t *testing.T) {
	cases := []struct {
		in   string
		want *int
	}{
		{"3", intPtr(3)},
		{" 42 ", intPtr(42)},
		{"0", intPtr(0)},
		{"-5", intPtr(-5)},
		{"", nil},
		{"abc", nil},
		{"3.5", nil},
	}
	for _, tc := range cases {
		got := CoerceInt(tc.in)
		switch {
		case tc.want == nil && got != nil:
			t.Errorf("CoerceInt(%q) = %d, want nil", tc.in, *got)
		case tc.want != nil && got == nil:
			t.Errorf("CoerceInt(%q) = nil, want %d", tc.in, *tc.want)
		case tc.want != nil && got != nil && *got != *tc.want:
			t.Errorf("CoerceInt(%q) = %d, want %d", tc.in, *got, *tc.want)
		}
	}
}

// ============================================================
// Create
// ============================================================

func TestTemplateCreateTask(t *testing.T) {
	m, _ := newTestTemplates(t)

	tmpl, err := m.Create(TemplateInput{
		Name:      "Weekly review",
		Type:      TemplateTask,
		DueOffset: "3",
		Priority:  "high",
	})
	if err != nil {
		t.Fatal(err)
	}
	if tmpl.DueOffset == nil || *tmpl.DueOffset != 3 {
		t.Fatalf("dueOffset not coerced: %+v", tmpl.DueOffset)
	}
	if tmpl.Priority != "high" {
		t.Fatalf("priority lost: %q", tmpl.Priority)
	}
	if !strings.HasPrefix(tmpl.ID, "tmpl_") {
		t.Fatalf("unexpected id prefix: %s", tmpl.ID)
	}
}

func TestTemplateCreateTaskBlankOffset(t *testing.T) {
	m, _ := newTestTemplates(t)

	tmpl, err := m.Create(TemplateInput{Name: "Someday", Type: TemplateTask, DueOffset: ""})
	if err != nil {
		t.Fatal(err)
	}
	if tmpl.DueOffset != nil {
		t.Fatalf("blank offset should coerce to nil, got %d", *tmpl.DueOffset)
	}
}

func TestTemplateCreateRoutineDerivesEstimate(t *testing.T) {
	m, _ := newTestTemplates(t)

	tmpl, err := m.Create(TemplateInput{
		Name: "Workout",
		Type: TemplateRoutine,
		Steps: []StepInput{
			{Name: "warmup", Duration: intPtr(300)},
			{Name: "lift", Duration: intPtr(1200)},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	if tmpl.EstimatedDuration == nil || *tmpl.EstimatedDuration != 1500 {
		t.Fatalf("estimate not derived from steps: %+v", tmpl.EstimatedDuration)
	}
	for i, st := range tmpl.Steps {
		if st.Order != i {
			t.Fatalf("step order not densified: %+v", tmpl.Steps)
		}
	}
}

func TestTemplateCreateRoutineExplicitEstimate(t *testing.T) {
	m, _ := newTestTemplates(t)

	tmpl, err := m.Create(TemplateInput{
		Name:              "Estimated",
		Type:              TemplateRoutine,
		Steps:             []StepInput{{Name: "x", Duration: intPtr(60)}},
		EstimatedDuration: "900",
	})
	if err != nil {
		t.Fatal(err)
	}
	if tmpl.EstimatedDuration == nil || *tmpl.EstimatedDuration != 900 {
		t.Fatalf("explicit estimate overridden: %+v", tmpl.EstimatedDuration)
	}
}

func TestTemplateCreateUnknownType(t *testing.T) {
	m, _ := newTestTemplates(t)

	if _, err := m.Create(TemplateInput{Name: "Odd", Type: "widget"}); err == nil {
		t.Fatal("expected error for unknown template type")
	}
}

// ============================================================
// List / delete
// ============================================================

func TestTemplateListFiltersByType(t *testing.T) {
	m, _ := newTestTemplates(t)

	m.Create(TemplateInput{Name: "t1", Type: TemplateTask})
	m.Create(TemplateInput{Name: "r1", Type: TemplateRoutine, Steps: []StepInput{{Name: "x"}}})

	all, err := m.List("")
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 templates, got %d", len(all))
	}

	tasks, _ := m.List(TemplateTask)
	if len(tasks) != 1 || tasks[0].Name != "t1" {
		t.Fatalf("type filter wrong: %v", tasks)
	}
}

func TestTemplateUpdate(t *testing.T) {
	m, _ := newTestTemplates(t)

	tmpl, _ := m.Create(TemplateInput{
		Name:  "Old",
		Type:  TemplateRoutine,
		Steps: []StepInput{{Name: "x", Duration: intPtr(60)}},
	})

	name := "New"
	steps := []Step{{Name: "y", Duration: 300}, {Name: "z", Duration: 60}}
	got, err := m.Update(tmpl.ID, TemplateUpdate{Name: &name, Steps: &steps})
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != "New" {
		t.Fatalf("name not updated: %q", got.Name)
	}
	if got.EstimatedDuration == nil || *got.EstimatedDuration != 360 {
		t.Fatalf("estimate not re-derived: %+v", got.EstimatedDuration)
	}
	for i, st := range got.Steps {
		if st.Order != i {
			t.Fatalf("steps not normalized: %+v", got.Steps)
		}
	}
}

func TestTemplateUpdateTaskFields(t *testing.T) {
	m, _ := newTestTemplates(t)

	tmpl, _ := m.Create(TemplateInput{Name: "Chore", Type: TemplateTask, Priority: "low"})

	due := "5"
	prio := "high"
	got, err := m.Update(tmpl.ID, TemplateUpdate{DueOffset: &due, Priority: &prio})
	if err != nil {
		t.Fatal(err)
	}
	if got.DueOffset == nil || *got.DueOffset != 5 || got.Priority != "high" {
		t.Fatalf("task fields not updated: %+v", got)
	}
}

func TestTemplateDelete(t *testing.T) {
	m, _ := newTestTemplates(t)

	tmpl, _ := m.Create(TemplateInput{Name: "Gone", Type: TemplateTask})
	if err := m.Delete(tmpl.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Get(tmpl.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

// ============================================================
// Instantiation
// ============================================================

func TestInstantiateRoutine(t *testing.T) {
	m, s := newTestTemplates(t)
	rm := NewRoutines(s)

	tmpl, _ := m.Create(TemplateInput{
		Name: "Morning shell",
		Type: TemplateRoutine,
		Steps: []StepInput{
			{Name: "a", Duration: intPtr(120)},
			{Name: "b", Duration: intPtr(60)},
		},
	})

	rt, err := m.InstantiateRoutine(tmpl.ID, rm)
	if err != nil {
		t.Fatal(err)
	}
	if rt.Name != "Morning shell" {
		t.Fatalf("name not carried: %q", rt.Name)
	}
	if rt.TotalDuration != 180 {
		t.Fatalf("total not derived: %d", rt.TotalDuration)
	}
	if len(rt.Steps) != 2 || rt.Steps[0].ID == tmpl.Steps[0].ID {
		t.Fatal("routine steps must get fresh ids")
	}

	// The template stays untouched
	again, _ := m.Get(tmpl.ID)
	if len(again.Steps) != 2 {
		t.Fatalf("template mutated by instantiation: %+v", again)
	}
}

func TestInstantiateTaskTemplateFails(t *testing.T) {
	m, s := newTestTemplates(t)
	rm := NewRoutines(s)

	tmpl, _ := m.Create(TemplateInput{Name: "Just a task", Type: TemplateTask})
	if _, err := m.InstantiateRoutine(tmpl.ID, rm); err == nil {
		t.Fatal("expected error instantiating a task template")
	}
}

// ============================================================
// Export / import
// ============================================================

func TestTemplateImportSkipsUnknownType(t *testing.T) {
	m, _ := newTestTemplates(t)

	res, err := m.Import(&TemplatePayload{
		Version: "1",
		Records: []Template{
			{Name: "ok", Type: TemplateTask},
			{Name: "bad", Type: "widget"},
			{Name: "", Type: TemplateTask},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.Imported != 1 || res.Skipped != 2 || len(res.Errors) != 2 {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestTemplateImportStructural(t *testing.T) {
	m, _ := newTestTemplates(t)

	_, err := m.Import(&TemplatePayload{Version: "1"})
	if !errors.Is(err, ErrMalformedImport) || !strings.Contains(err.Error(), "missing templates array") {
		t.Fatalf("expected missing templates array, got %v", err)
	}
}
