package scenario

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/mwhitfield/skytalk/store"
)

// recentScoreWindow is how many trailing feedback scores feed the
// completion rate.
const recentScoreWindow = 3

// FeedbackEntry records one completed training run.
type FeedbackEntry struct {
	Timestamp    time.Time `json:"timestamp"`
	Summary      string    `json:"summary"`
	Strengths    []string  `json:"strengths"`
	Improvements []string  `json:"improvements"`
	Score        int       `json:"score"`
}

// Progress is the per-scenario practice record. CompletionRate is
// always the rounded mean of the most recent feedback scores; it is
// recomputed on every completion and never set directly.
type Progress struct {
	ScenarioID     string          `json:"scenarioId"`
	Attempts       int             `json:"attempts"`
	LastPracticed  *time.Time      `json:"lastPracticed,omitempty"`
	KeyPhrasesUsed []string        `json:"keyPhrasesUsed"`
	CompletionRate int             `json:"completionRate"`
	Feedback       []FeedbackEntry `json:"feedback"`
}

// CompletionInput is the payload recorded when a training run ends.
type CompletionInput struct {
	Summary        string
	Strengths      []string
	Improvements   []string
	Score          int
	KeyPhrasesUsed []string
}

// Tracker maintains per-scenario practice statistics in the document
// store, independent of session data. Single writer; every mutation
// is a read-modify-write of the whole progress document.
type Tracker struct {
	mu    sync.Mutex
	store store.Store
	now   func() time.Time
}

func NewTracker(st store.Store) *Tracker {
	return &Tracker{store: st, now: time.Now}
}

func newProgress(scenarioID string) Progress {
	return Progress{
		ScenarioID:     scenarioID,
		KeyPhrasesUsed: []string{},
		Feedback:       []FeedbackEntry{},
	}
}

func (t *Tracker) load() (map[string]Progress, error) {
	data, found, err := t.store.Load(store.KeyScenarioProgress)
	if err != nil {
		return nil, err
	}
	all := make(map[string]Progress)
	if !found {
		return all, nil
	}
	if err := json.Unmarshal(data, &all); err != nil {
		// Corrupt progress falls back to empty, same policy as the
		// session store.
		return make(map[string]Progress), nil
	}
	return all, nil
}

func (t *Tracker) save(all map[string]Progress) error {
	raw, err := json.Marshal(all)
	if err != nil {
		return fmt.Errorf("failed to encode progress: %w", err)
	}
	return t.store.Save(store.KeyScenarioProgress, raw)
}

// Start records the beginning of a training run.
func (t *Tracker) Start(scenarioID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	all, err := t.load()
	if err != nil {
		return err
	}

	p, ok := all[scenarioID]
	if !ok {
		p = newProgress(scenarioID)
	}
	p.Attempts++
	now := t.now()
	p.LastPracticed = &now

	all[scenarioID] = p
	return t.save(all)
}

// Complete records feedback for a finished run, unions the key
// phrases observed, and recomputes the completion rate from the last
// three scores.
func (t *Tracker) Complete(scenarioID string, in CompletionInput) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	all, err := t.load()
	if err != nil {
		return err
	}

	p, ok := all[scenarioID]
	if !ok {
		p = newProgress(scenarioID)
	}

	p.Feedback = append(p.Feedback, FeedbackEntry{
		Timestamp:    t.now(),
		Summary:      in.Summary,
		Strengths:    in.Strengths,
		Improvements: in.Improvements,
		Score:        in.Score,
	})

	p.KeyPhrasesUsed = unionPhrases(p.KeyPhrasesUsed, in.KeyPhrasesUsed)
	p.CompletionRate = completionRate(p.Feedback)

	all[scenarioID] = p
	return t.save(all)
}

func unionPhrases(existing, used []string) []string {
	seen := make(map[string]struct{}, len(existing))
	out := make([]string, 0, len(existing)+len(used))
	for _, phrase := range existing {
		if _, dup := seen[phrase]; dup {
			continue
		}
		seen[phrase] = struct{}{}
		out = append(out, phrase)
	}
	for _, phrase := range used {
		if _, dup := seen[phrase]; dup {
			continue
		}
		seen[phrase] = struct{}{}
		out = append(out, phrase)
	}
	return out
}

func completionRate(feedback []FeedbackEntry) int {
	if len(feedback) == 0 {
		return 0
	}
	start := len(feedback) - recentScoreWindow
	if start < 0 {
		start = 0
	}
	recent := feedback[start:]
	sum := 0
	for _, f := range recent {
		sum += f.Score
	}
	return int(math.Round(float64(sum) / float64(len(recent))))
}

// Progress returns the practice record for a scenario, zero-valued
// when it was never touched.
func (t *Tracker) Progress(scenarioID string) (Progress, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	all, err := t.load()
	if err != nil {
		return Progress{}, err
	}
	if p, ok := all[scenarioID]; ok {
		return p, nil
	}
	return newProgress(scenarioID), nil
}

// ScenarioStats are the derived per-scenario training statistics.
// ScoreTrend is the difference between the last two scores; positive
// means improvement.
type ScenarioStats struct {
	Attempts       int        `json:"attempts"`
	CompletionRate int        `json:"completionRate"`
	AverageScore   int        `json:"averageScore"`
	LatestScore    int        `json:"latestScore"`
	ScoreTrend     int        `json:"scoreTrend"`
	TotalFeedback  int        `json:"totalFeedback"`
	KeyPhrasesUsed int        `json:"keyPhrasesUsed"`
	LastPracticed  *time.Time `json:"lastPracticed,omitempty"`
}

// Stats derives the training history statistics for one scenario.
// Unlike CompletionRate, AverageScore covers every recorded score.
func (t *Tracker) Stats(scenarioID string) (ScenarioStats, error) {
	p, err := t.Progress(scenarioID)
	if err != nil {
		return ScenarioStats{}, err
	}

	stats := ScenarioStats{
		Attempts:       p.Attempts,
		CompletionRate: p.CompletionRate,
		TotalFeedback:  len(p.Feedback),
		KeyPhrasesUsed: len(p.KeyPhrasesUsed),
		LastPracticed:  p.LastPracticed,
	}

	if n := len(p.Feedback); n > 0 {
		sum := 0
		for _, f := range p.Feedback {
			sum += f.Score
		}
		stats.AverageScore = int(math.Round(float64(sum) / float64(n)))
		stats.LatestScore = p.Feedback[n-1].Score
		if n >= 2 {
			stats.ScoreTrend = p.Feedback[n-1].Score - p.Feedback[n-2].Score
		}
	}
	return stats, nil
}

// All returns every stored practice record keyed by scenario ID.
func (t *Tracker) All() (map[string]Progress, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.load()
}

// Reset removes one scenario's progress.
func (t *Tracker) Reset(scenarioID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	all, err := t.load()
	if err != nil {
		return err
	}
	delete(all, scenarioID)
	return t.save(all)
}

// ResetAll wipes the whole progress document.
func (t *Tracker) ResetAll() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.store.Delete(store.KeyScenarioProgress)
}

// OverallStats is the progress rollup across all scenarios.
type OverallStats struct {
	TotalScenarios     int `json:"totalScenarios"`
	PracticeCount      int `json:"practiceCount"`
	AverageCompletion  int `json:"averageCompletion"`
	ScenariosStarted   int `json:"scenariosStarted"`
	ScenariosCompleted int `json:"scenariosCompleted"`
}

// completedThreshold is the completion rate at which a scenario counts
// as mastered.
const completedThreshold = 80

// Overall computes aggregate statistics across all tracked scenarios.
func (t *Tracker) Overall() (OverallStats, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	all, err := t.load()
	if err != nil {
		return OverallStats{}, err
	}

	stats := OverallStats{TotalScenarios: len(all)}
	totalCompletion := 0
	for _, p := range all {
		stats.PracticeCount += p.Attempts
		totalCompletion += p.CompletionRate
		if p.Attempts > 0 {
			stats.ScenariosStarted++
		}
		if p.CompletionRate >= completedThreshold {
			stats.ScenariosCompleted++
		}
	}
	if len(all) > 0 {
		stats.AverageCompletion = int(math.Round(float64(totalCompletion) / float64(len(all))))
	}
	return stats, nil
}

// Recommend orders scenarios for the learner: never-attempted ones by
// ascending difficulty first, then attempted ones by ascending
// completion rate, ties broken by least recent practice. It returns
// at most limit scenarios.
func (t *Tracker) Recommend(all []Scenario, limit int) ([]Scenario, error) {
	progress, err := t.All()
	if err != nil {
		return nil, err
	}

	sorted := make([]Scenario, len(all))
	copy(sorted, all)

	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		// Any stored record counts as attempted, even a completion
		// recorded without an explicit start.
		pa, attemptedA := progress[a.ID]
		pb, attemptedB := progress[b.ID]

		if !attemptedA && !attemptedB {
			return a.Difficulty.Rank() < b.Difficulty.Rank()
		}
		if !attemptedA {
			return true
		}
		if !attemptedB {
			return false
		}

		if pa.CompletionRate != pb.CompletionRate {
			return pa.CompletionRate < pb.CompletionRate
		}

		return practiceTime(pa) < practiceTime(pb)
	})

	if limit > 0 && len(sorted) > limit {
		sorted = sorted[:limit]
	}
	return sorted, nil
}

func practiceTime(p Progress) int64 {
	if p.LastPracticed == nil {
		return 0
	}
	return p.LastPracticed.UnixMilli()
}
