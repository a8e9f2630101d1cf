package pipeline

import (
	"testing"

	"github.com/ppiankov/lexharvest/internal/model"
)

func TestAssembleAct(t *testing.T) {
	meta := &model.LawMetadata{
		ID:          "rw-law-2020-1",
		Title:       "Law N° 1/2020 governing tests",
		ShortName:   "Law 1 of 2020",
		Status:      model.StatusInForce,
		IssuedDate:  "2020-01-02",
		InForceDate: model.SentinelDate,
		URL:         "https://rwandalii.org/akn/rw/act/law/2020/1/eng",
		SourceType:  model.SourceAKN,
	}
	provisions := []model.Provision{
		{ProvisionRef: "art1", Section: "1", Title: "Purpose", Content: "short"},
		{ProvisionRef: "art2", Section: "2", Title: "Definitions", Content: `1° "tester" means a person who runs tests;`},
		{ProvisionRef: "art1", Section: "1", Title: "Purpose", Content: "a much longer purpose text"},
	}

	act := AssembleAct(meta, provisions, 0)

	if act.ID != meta.ID || act.Type != ActType {
		t.Errorf("id/type = %q/%q", act.ID, act.Type)
	}
	if act.TitleEN != meta.Title {
		t.Errorf("TitleEN = %q", act.TitleEN)
	}
	if len(act.Provisions) != 2 {
		t.Fatalf("Expected 2 provisions after dedupe, got %d", len(act.Provisions))
	}
	if act.Provisions[0].Content != "a much longer purpose text" {
		t.Errorf("longer duplicate should win, got %q", act.Provisions[0].Content)
	}
	if act.Provisions[1].ProvisionRef != "art2" {
		t.Errorf("order changed: %+v", act.Provisions)
	}
	if len(act.Definitions) != 1 || act.Definitions[0].Term != "tester" {
		t.Errorf("definitions = %+v", act.Definitions)
	}
	if act.Definitions[0].SourceProvision != "art2" {
		t.Errorf("source provision = %q", act.Definitions[0].SourceProvision)
	}
}

func TestAssembleAct_NoDefinitionsIsEmptySlice(t *testing.T) {
	meta := &model.LawMetadata{ID: "x", Title: "X"}
	act := AssembleAct(meta, []model.Provision{{ProvisionRef: "art1", Section: "1", Title: "Scope", Content: "text"}}, 10)
	if act.Definitions == nil {
		t.Error("Definitions should be an empty slice, not nil")
	}
}
