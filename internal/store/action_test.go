package store

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
)

func TestActionRepository_CRUD(t *testing.T) {
	s := newTestStore(t)
	repo := s.Actions()
	ctx := context.Background()

	a := &Action{
		Label:      "Yes",
		PluginName: "keyboard",
		ActionName: "press",
		Config:     json.RawMessage(`{"key":"enter"}`),
		Enabled:    true,
	}
	if err := repo.Create(ctx, a); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if a.ID == "" {
		t.Fatal("Create() should assign an ID")
	}

	got, err := repo.GetByID(ctx, a.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.Label != "Yes" || got.PluginName != "keyboard" || !got.Enabled {
		t.Errorf("GetByID() = %+v", got)
	}
	if string(got.Config) != `{"key":"enter"}` {
		t.Errorf("Config = %s", got.Config)
	}

	got.Enabled = false
	got.ActionName = "release"
	if err := repo.Update(ctx, got); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	bound, err := repo.GetByLabel(ctx, "Yes")
	if err != nil {
		t.Fatalf("GetByLabel() error = %v", err)
	}
	if bound == nil || bound.Enabled || bound.ActionName != "release" {
		t.Errorf("GetByLabel() = %+v, want disabled release action", bound)
	}

	if err := repo.Delete(ctx, a.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := repo.GetByID(ctx, a.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetByID() after delete error = %v, want ErrNotFound", err)
	}
}

func TestActionRepository_GetByLabel_Unbound(t *testing.T) {
	s := newTestStore(t)

	a, err := s.Actions().GetByLabel(context.Background(), "No")
	if err != nil {
		t.Fatalf("GetByLabel() error = %v", err)
	}
	if a != nil {
		t.Errorf("GetByLabel() = %+v, want nil", a)
	}
}

func TestActionRepository_LabelUnique(t *testing.T) {
	s := newTestStore(t)
	repo := s.Actions()
	ctx := context.Background()

	if err := repo.Create(ctx, &Action{Label: "smiley", PluginName: "p", ActionName: "a"}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := repo.Create(ctx, &Action{Label: "smiley", PluginName: "q", ActionName: "b"}); err == nil {
		t.Error("second action for the same label should fail")
	}
}

func TestActionRepository_DefaultConfig(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a := &Action{Label: "No", PluginName: "p", ActionName: "a", Enabled: true}
	if err := s.Actions().Create(ctx, a); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	list, err := s.Actions().List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("List() len = %d, want 1", len(list))
	}
	if string(list[0].Config) != "{}" {
		t.Errorf("Config = %s, want {}", list[0].Config)
	}
}

func TestActionRepository_MissingRows(t *testing.T) {
	s := newTestStore(t)
	repo := s.Actions()
	ctx := context.Background()

	if err := repo.Update(ctx, &Action{ID: "nope"}); !errors.Is(err, ErrNotFound) {
		t.Errorf("Update() error = %v, want ErrNotFound", err)
	}
	if err := repo.Delete(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Delete() error = %v, want ErrNotFound", err)
	}
}
