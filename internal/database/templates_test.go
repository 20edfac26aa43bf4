package database

import "testing"

func TestTemplateForTransition(t *testing.T) {
	db := setupTestDB(t)

	tmpl := &MessageTemplate{
		Name:            "CV on scope",
		Text:            "Hi {{.Manager.FirstName}}",
		StateTransition: "scope",
		Language:        "en",
		AttachCV:        true,
	}
	if err := db.Templates.Create(tmpl); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	stored, err := db.Templates.ForTransition("scope")
	if err != nil {
		t.Fatalf("ForTransition failed: %v", err)
	}
	if stored == nil || stored.Name != "CV on scope" {
		t.Errorf("Expected bound template, got %+v", stored)
	}
	if !stored.AttachCV {
		t.Error("Expected attach_cv to round-trip")
	}

	unbound, err := db.Templates.ForTransition("finish")
	if err != nil {
		t.Fatalf("ForTransition failed: %v", err)
	}
	if unbound != nil {
		t.Errorf("Expected no template for finish, got %+v", unbound)
	}
}

func TestTemplateTransitionUnique(t *testing.T) {
	db := setupTestDB(t)

	first := &MessageTemplate{Name: "a", Text: "x", StateTransition: "sign"}
	if err := db.Templates.Create(first); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	// Only one template may be bound to a transition.
	second := &MessageTemplate{Name: "b", Text: "y", StateTransition: "sign"}
	if err := db.Templates.Create(second); err == nil {
		t.Error("Expected unique constraint violation for duplicate transition")
	}

	// Unbound templates are not limited.
	for _, name := range []string{"c", "d"} {
		if err := db.Templates.Create(&MessageTemplate{Name: name, Text: "z"}); err != nil {
			t.Errorf("Expected unbound template %s to be allowed: %v", name, err)
		}
	}
}
