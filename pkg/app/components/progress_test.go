package components

import (
	"errors"
	"strings"
	"testing"

	"github.com/kerbaras/stonkers/pkg/services"
)

func TestNewProgressTracker(t *testing.T) {
	tracker := NewProgressTracker(80)

	if tracker == nil {
		t.Fatal("Expected tracker to be created")
	}

	if tracker.width != 80 {
		t.Errorf("Expected width 80, got %d", tracker.width)
	}

	if tracker.Len() != 0 {
		t.Errorf("Expected 0 tickers, got %d", tracker.Len())
	}
}

func TestUpdate(t *testing.T) {
	tracker := NewProgressTracker(80)

	tracker.Update(services.Progress{Ticker: "GME", Step: 2, Steps: 5, Status: services.StatusRunning})

	if !tracker.HasActive() {
		t.Error("Expected tracker to have active wheels")
	}

	if tracker.Len() != 1 {
		t.Errorf("Expected 1 ticker, got %d", tracker.Len())
	}
}

func TestUpdateIgnoresStaleSteps(t *testing.T) {
	tracker := NewProgressTracker(80)

	tracker.Update(services.Progress{Ticker: "GME", Step: 3, Steps: 5, Status: services.StatusRunning})
	tracker.Update(services.Progress{Ticker: "GME", Step: 2, Steps: 5, Status: services.StatusRunning})

	got, _ := tracker.Get("GME")
	if got.Step != 3 {
		t.Errorf("Expected step 3, got %d", got.Step)
	}

	tracker.Update(services.Progress{Ticker: "GME", Step: 5, Steps: 5, Status: services.StatusDone})
	tracker.Update(services.Progress{Ticker: "GME", Step: 4, Steps: 5, Status: services.StatusRunning})

	got, _ = tracker.Get("GME")
	if got.Status != services.StatusDone {
		t.Errorf("Expected done to stick, got %s", got.Status)
	}
}

func TestHasActive(t *testing.T) {
	tracker := NewProgressTracker(80)

	if tracker.HasActive() {
		t.Error("Expected no active wheels initially")
	}

	tracker.Update(services.Progress{Ticker: "GME", Status: services.StatusLoading})
	tracker.Update(services.Progress{Ticker: "AMC", Status: services.StatusDone})

	if !tracker.HasActive() {
		t.Error("Expected active wheels after update")
	}

	tracker.Update(services.Progress{Ticker: "GME", Status: services.StatusError, Err: errors.New("boom")})

	if tracker.HasActive() {
		t.Error("Expected no active wheels once all are final")
	}

	tracker.Clear()

	if tracker.Len() != 0 {
		t.Error("Expected no tickers after clear")
	}
}

func TestView(t *testing.T) {
	tracker := NewProgressTracker(80)

	if tracker.View() != "" {
		t.Error("Expected empty view without progress")
	}

	tracker.Update(services.Progress{Ticker: "GME", Step: 1, Steps: 5, Status: services.StatusRunning})
	tracker.Update(services.Progress{Ticker: "AMC", Steps: 5, Status: services.StatusError, Err: errors.New("no quote")})

	view := tracker.View()

	if !strings.Contains(view, "GME") || !strings.Contains(view, "AMC") {
		t.Errorf("Expected view to list both tickers, got %q", view)
	}
	if strings.Index(view, "GME") > strings.Index(view, "AMC") {
		t.Error("Expected tickers in the order they were first seen")
	}
	if !strings.Contains(view, "Error: no quote") {
		t.Error("Expected view to show the error")
	}
}

func TestFraction(t *testing.T) {
	tests := []struct {
		name     string
		progress services.Progress
		want     float64
	}{
		{"no steps", services.Progress{}, 0},
		{"halfway", services.Progress{Step: 2, Steps: 4, Status: services.StatusRunning}, 0.5},
		{"done", services.Progress{Step: 1, Steps: 4, Status: services.StatusDone}, 1},
		{"overflow", services.Progress{Step: 6, Steps: 4, Status: services.StatusRunning}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := fraction(tt.progress); got != tt.want {
				t.Errorf("fraction() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSetWidth(t *testing.T) {
	tracker := NewProgressTracker(80)
	tracker.SetWidth(200)

	if tracker.bar.Width != 40 {
		t.Errorf("Expected bar width 40, got %d", tracker.bar.Width)
	}

	tracker.SetWidth(20)

	if tracker.bar.Width != 10 {
		t.Errorf("Expected bar width 10, got %d", tracker.bar.Width)
	}
}
