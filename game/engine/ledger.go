package engine

// Apply adds value to the party's total when correct and subtracts it
// otherwise. It returns the signed delta.
func (s *Scoreboard) Apply(party Party, value int, correct bool) int {
	delta := value
	if !correct {
		delta = -value
	}
	switch party {
	case PartyPlayer:
		s.Player += delta
	case PartyAI:
		s.AI += delta
	}
	return delta
}

// Leader returns the party ahead, or "" on a tie
func (s Scoreboard) Leader() Party {
	switch {
	case s.Player > s.AI:
		return PartyPlayer
	case s.AI > s.Player:
		return PartyAI
	}
	return ""
}

// Record folds one player answer into the run stats. elapsedMs is nil for
// timeouts and only counts toward FastestMs on correct answers.
func (r *RunStats) Record(correct bool, value int, elapsedMs *int64, level int) {
	if r.PerCity == nil {
		r.PerCity = map[int]*CityStats{}
	}
	city := r.PerCity[level]
	if city == nil {
		city = &CityStats{}
		r.PerCity[level] = city
	}

	if correct {
		r.Correct++
		r.Streak++
		if r.Streak > r.BestStreak {
			r.BestStreak = r.Streak
		}
		if value > r.BestValue {
			r.BestValue = value
		}
		if elapsedMs != nil && (r.FastestMs == nil || *elapsedMs < *r.FastestMs) {
			ms := *elapsedMs
			r.FastestMs = &ms
		}
		city.Correct++
		city.Money += value
		return
	}

	r.Incorrect++
	r.Streak = 0
	city.Incorrect++
	city.Money -= value
}

// Answered returns the number of player answers recorded
func (r RunStats) Answered() int {
	return r.Correct + r.Incorrect
}

// Accuracy returns the percentage of correct answers rounded to an integer
func (r RunStats) Accuracy() int {
	n := r.Answered()
	if n == 0 {
		return 0
	}
	return (r.Correct*100 + n/2) / n
}
