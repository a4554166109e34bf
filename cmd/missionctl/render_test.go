package main

import (
	"strings"
	"testing"

	"DopamineBreaker/internal/model"
	"DopamineBreaker/internal/service"
)

func TestRenderOutcome(t *testing.T) {
	tests := []struct {
		outcome service.Outcome
		want    []string
	}{
		{service.Outcome{Status: service.OutcomeCreated, Date: "2024-06-01"}, []string{"created", "2024-06-01"}},
		{service.Outcome{Status: service.OutcomeAlreadyExists, Date: "2024-06-01", Reason: "refresh in progress"}, []string{"already_exists", "refresh in progress"}},
		{service.Outcome{Status: service.OutcomeFailed, Date: "2024-06-01", Reason: "generation failed"}, []string{"failed", "generation failed"}},
	}
	for _, tt := range tests {
		got := renderOutcome(tt.outcome)
		for _, w := range tt.want {
			if !strings.Contains(got, w) {
				t.Errorf("renderOutcome(%+v) = %q, missing %q", tt.outcome, got, w)
			}
		}
	}
}

func TestRenderMissions(t *testing.T) {
	if got := renderMissions(nil); !strings.Contains(got, "(none)") {
		t.Fatalf("empty = %q", got)
	}

	got := renderMissions([]model.MissionItem{
		{ID: 1, Title: "Stretch", Duration: 3, Tier: model.TierBronze, Category: "health"},
		{ID: 12, Title: "Cold shower", Duration: 30, Tier: model.TierGold, Category: "physical"},
	})
	lines := strings.Split(got, "\n")
	if len(lines) != 2 {
		t.Fatalf("lines = %d: %q", len(lines), got)
	}
	for i, want := range []string{"Stretch", "Cold shower"} {
		if !strings.Contains(lines[i], want) {
			t.Errorf("line %d = %q, missing %q", i, lines[i], want)
		}
	}
	if !strings.Contains(lines[1], "30 min") {
		t.Errorf("duration missing: %q", lines[1])
	}
}

func TestResolveDate(t *testing.T) {
	day, err := resolveDate("2024-06-01")
	if err != nil {
		t.Fatal(err)
	}
	if day.Format("2006-01-02") != "2024-06-01" {
		t.Fatalf("day = %v", day)
	}
	if _, err := resolveDate("06/01/2024"); err == nil {
		t.Fatal("expected error for bad date")
	}
	if _, err := resolveDate(""); err != nil {
		t.Fatal(err)
	}
}
