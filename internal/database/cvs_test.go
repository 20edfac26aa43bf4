package database

import "testing"

func TestCVLatestForProject(t *testing.T) {
	db := setupTestDB(t)
	person := seedPerson(t, db, "jane@acme.com")
	project := seedProject(t, db, "Need a contractor", person.ID)

	exists, err := db.CVs.ExistsForProject(project.ID)
	if err != nil {
		t.Fatalf("ExistsForProject failed: %v", err)
	}
	if exists {
		t.Error("Expected no CV for a fresh project")
	}

	first := &CV{ProjectID: project.ID, FullName: "John Smith", Title: "Developer"}
	second := &CV{ProjectID: project.ID, FullName: "John Smith", Title: "Consultant", Document: []byte("%PDF-1.4")}
	for _, cv := range []*CV{first, second} {
		if err := db.CVs.Create(cv); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}

	latest, err := db.CVs.LatestForProject(project.ID)
	if err != nil {
		t.Fatalf("LatestForProject failed: %v", err)
	}
	if latest == nil || latest.ID != second.ID {
		t.Errorf("Expected latest CV %d, got %+v", second.ID, latest)
	}
	if string(latest.Document) != "%PDF-1.4" {
		t.Error("Expected document blob to round-trip")
	}

	exists, err = db.CVs.ExistsForProject(project.ID)
	if err != nil {
		t.Fatalf("ExistsForProject failed: %v", err)
	}
	if !exists {
		t.Error("Expected CVs to be found")
	}
}
