package models

import (
	"testing"

	"github.com/Vodeneev/livebet/internal/pkg/enums"
)

func intPtr(v int) *int { return &v }

func TestGameStateProgress(t *testing.T) {
	tests := []struct {
		elapsed int
		want    float64
	}{
		{0, 0},
		{45, 0.5},
		{90, 1},
		{120, 1},
		{-5, 0},
	}
	for _, tt := range tests {
		got := GameState{Elapsed: tt.elapsed}.Progress()
		if got != tt.want {
			t.Errorf("Progress(elapsed=%d) = %v, want %v", tt.elapsed, got, tt.want)
		}
	}
}

func TestMatchSnapshotState(t *testing.T) {
	m := MatchSnapshot{
		Status:  enums.StatusFinished,
		Elapsed: intPtr(90),
		Score:   Score{Home: 2, Away: 1},
	}
	got := m.State()
	want := GameState{Home: 2, Away: 1, Elapsed: 90, Finished: true}
	if got != want {
		t.Errorf("State() = %+v, want %+v", got, want)
	}

	notStarted := MatchSnapshot{Status: enums.StatusNotStarted}
	if notStarted.Minute() != 0 {
		t.Errorf("Minute() before kickoff = %d, want 0", notStarted.Minute())
	}
	if notStarted.CanActivateHedging() {
		t.Error("hedging must not be active before kickoff")
	}
}
