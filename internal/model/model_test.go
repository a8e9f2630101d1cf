package model

import (
	"testing"
	"time"
)

func TestNormalizeHref(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"/akn/rw/act/law/2021/58/eng@2021-10-15", "/akn/rw/act/law/2021/58/eng"},
		{"/akn/rw/act/law/2021/58/eng", "/akn/rw/act/law/2021/58/eng"},
		{" /akn/rw/act/law/2021/58/eng/?tab=history#x ", "/akn/rw/act/law/2021/58/eng"},
		{"/akn/rw/act/law/2018/68/eng@", "/akn/rw/act/law/2018/68/eng"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := NormalizeHref(tt.in); got != tt.want {
			t.Errorf("NormalizeHref(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestWorkPath(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"/akn/rw/act/law/2021/58/eng@2021-10-15", "/akn/rw/act/law/2021/58"},
		{"/akn/rw/act/law/2021/58/fra", "/akn/rw/act/law/2021/58"},
		{"/akn/rw/act/law/2021/58", "/akn/rw/act/law/2021/58"},
	}
	for _, tt := range tests {
		if got := WorkPath(tt.in); got != tt.want {
			t.Errorf("WorkPath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestDedupeProvisions(t *testing.T) {
	in := []Provision{
		{ProvisionRef: "art1", Content: "short"},
		{ProvisionRef: "art2", Content: "second"},
		{ProvisionRef: "art1", Content: "the longer one"},
		{ProvisionRef: "art2", Content: "x"},
	}

	out := DedupeProvisions(in)
	if len(out) != 2 {
		t.Fatalf("Expected 2 provisions, got %d", len(out))
	}
	if out[0].ProvisionRef != "art1" || out[0].Content != "the longer one" {
		t.Errorf("first = %+v", out[0])
	}
	if out[1].Content != "second" {
		t.Errorf("shorter duplicate replaced the original: %+v", out[1])
	}

	if again := DedupeProvisions(out); len(again) != len(out) {
		t.Error("dedupe should be idempotent")
	}
}

func TestRunReport_Record(t *testing.T) {
	r := NewRunReport("run", time.Now())
	r.Record(DocumentOutcome{Status: OutcomeOK, SourceType: SourceAKN, Provisions: 10, Definitions: 2})
	r.Record(DocumentOutcome{Status: OutcomeOK, SourceType: SourcePDF, Provisions: 5})
	r.Record(DocumentOutcome{Status: OutcomeSkipped, SourceType: SourcePDF, Provisions: 99})
	r.Record(DocumentOutcome{Status: OutcomeFailed})

	if r.Success != 2 || r.Skipped != 1 || r.Failed != 1 {
		t.Errorf("counters = %d/%d/%d", r.Success, r.Skipped, r.Failed)
	}
	if r.SuccessBySource[SourceAKN] != 1 || r.SuccessBySource[SourcePDF] != 1 {
		t.Errorf("by source = %v", r.SuccessBySource)
	}
	if r.TotalProvisions != 15 || r.TotalDefinitions != 2 {
		t.Errorf("totals = %d/%d", r.TotalProvisions, r.TotalDefinitions)
	}
	if r.Total() != 4 || r.HardFailures() != 1 {
		t.Errorf("Total/HardFailures = %d/%d", r.Total(), r.HardFailures())
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.HTTP.MinInterval < time.Second {
		t.Errorf("MinInterval = %v, portal needs at least a second between requests", cfg.HTTP.MinInterval)
	}
	if cfg.Cache.Dir == "" {
		t.Error("cache dir should default under the XDG cache home")
	}
	if cfg.PDF.BandMin >= cfg.PDF.BandMax {
		t.Errorf("band %v..%v", cfg.PDF.BandMin, cfg.PDF.BandMax)
	}
}
