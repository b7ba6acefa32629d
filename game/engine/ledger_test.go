package engine

import "testing"

func TestScoreboard_Apply(t *testing.T) {
	var s Scoreboard
	if d := s.Apply(PartyPlayer, 400, true); d != 400 {
		t.Errorf("Expected +400, got %d", d)
	}
	if d := s.Apply(PartyPlayer, 600, false); d != -600 {
		t.Errorf("Expected -600, got %d", d)
	}
	s.Apply(PartyAI, 200, true)

	if s.Player != -200 {
		t.Errorf("Expected player score to go negative (-200), got %d", s.Player)
	}
	if s.AI != 200 {
		t.Errorf("Expected AI score 200, got %d", s.AI)
	}
	if s.Leader() != PartyAI {
		t.Errorf("Expected AI to lead, got %q", s.Leader())
	}
	if (Scoreboard{}).Leader() != "" {
		t.Error("Expected no leader on a tie")
	}
}

func TestRunStats_Record(t *testing.T) {
	ms := func(v int64) *int64 { return &v }
	var r RunStats

	r.Record(true, 200, ms(5000), 1)
	r.Record(true, 600, ms(3000), 1)
	r.Record(false, 400, ms(1000), 2)
	r.Record(true, 400, ms(4000), 2)
	r.Record(false, 200, nil, 2)

	if r.Correct != 3 || r.Incorrect != 2 {
		t.Errorf("Expected 3/2, got %d/%d", r.Correct, r.Incorrect)
	}
	if r.Streak != 0 {
		t.Errorf("Expected streak reset to 0, got %d", r.Streak)
	}
	if r.BestStreak != 2 {
		t.Errorf("Expected best streak 2, got %d", r.BestStreak)
	}
	if r.BestValue != 600 {
		t.Errorf("Expected best value 600, got %d", r.BestValue)
	}
	if r.FastestMs == nil || *r.FastestMs != 3000 {
		t.Errorf("Expected fastest 3000 from correct answers only, got %v", r.FastestMs)
	}

	c1, c2 := r.PerCity[1], r.PerCity[2]
	if c1.Correct != 2 || c1.Incorrect != 0 || c1.Money != 800 {
		t.Errorf("Unexpected city 1 stats %+v", *c1)
	}
	if c2.Correct != 1 || c2.Incorrect != 2 || c2.Money != -200 {
		t.Errorf("Unexpected city 2 stats %+v", *c2)
	}
	if r.Accuracy() != 60 {
		t.Errorf("Expected 60%% accuracy, got %d", r.Accuracy())
	}
}

func TestRunStats_TimeoutHasNoFastest(t *testing.T) {
	var r RunStats
	r.Record(false, 200, nil, 1)
	if r.FastestMs != nil {
		t.Errorf("Expected no fastest time, got %d", *r.FastestMs)
	}
	if r.Accuracy() != 0 {
		t.Errorf("Expected 0%% accuracy, got %d", r.Accuracy())
	}
	if (RunStats{}).Accuracy() != 0 {
		t.Error("Expected 0 accuracy with no answers")
	}
}
