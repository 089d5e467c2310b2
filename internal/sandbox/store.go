// Package sandbox simulates the research and synthesis job services in memory.
//
// Every status read advances a job one step through its scenario, which makes
// runs deterministic for tests and quick for local development of the CLI.
package sandbox

import (
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/upgrowplan/upgrowplan/pkg/types/jobs"
)

// Store errors
var (
	ErrNotFound    = errors.New("job not found")
	ErrNotReady    = errors.New("job result is not ready")
	ErrUnavailable = errors.New("backend temporarily unavailable")
	ErrBadResult   = errors.New("unknown result path")
	ErrBadScenario = errors.New("invalid scenario")
)

// Submission parameters understood by the sandbox
const (
	ParamSimulate      = "simulate"        // final status: completed, failed or needs_adjustment
	ParamFlaky         = "flaky"           // number of upcoming status reads answered with 503
	ParamStepsPerStage = "steps_per_stage" // status reads spent in each stage
	ParamTopic         = "topic"
)

// Stages reported while a job is in progress
var Stages = []string{"collecting", "analyzing", "writing"}

// DefaultStepsPerStage is used when neither the store nor the submission set it
const DefaultStepsPerStage = 1

type simJob struct {
	kind          jobs.Kind
	id            jobs.JobID
	numericID     bool
	final         jobs.Status
	stepsPerStage int
	flaky         int
	params        map[string]interface{}
	step          int
	job           jobs.Job
	createdAt     time.Time
}

// Store keeps simulated jobs in memory
type Store struct {
	kinds         *jobs.Registry
	stepsPerStage int

	mu     sync.Mutex
	jobs   map[string]*simJob
	nextID int64
}

// NewStore creates an empty store serving the given kinds
func NewStore(kinds *jobs.Registry, stepsPerStage int) *Store {
	if stepsPerStage <= 0 {
		stepsPerStage = DefaultStepsPerStage
	}
	return &Store{
		kinds:         kinds,
		stepsPerStage: stepsPerStage,
		jobs:          make(map[string]*simJob),
	}
}

func storeKey(collection string, id jobs.JobID) string {
	return collection + "/" + id.String()
}

// Submit creates a job in the given collection and returns its initial record
func (s *Store) Submit(collection string, params map[string]interface{}) (map[string]interface{}, error) {
	kind, err := s.kinds.ByCollection(collection)
	if err != nil {
		return nil, err
	}

	sj := &simJob{
		kind:          kind,
		final:         jobs.StatusCompleted,
		stepsPerStage: s.stepsPerStage,
		params:        params,
		createdAt:     time.Now().UTC(),
	}

	if v, ok := params[ParamSimulate]; ok {
		str, _ := v.(string)
		final, err := jobs.ParseStatus(str)
		if err != nil || !final.Terminal() {
			return nil, fmt.Errorf("%w: simulate must be completed, failed or needs_adjustment", ErrBadScenario)
		}
		sj.final = final
	}
	if sj.flaky, err = intParam(params, ParamFlaky); err != nil {
		return nil, err
	}
	steps, err := intParam(params, ParamStepsPerStage)
	if err != nil {
		return nil, err
	}
	if steps > 0 {
		sj.stepsPerStage = steps
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Research jobs get integer ids like the social plan backend, the rest get uuids
	if kind.Name == jobs.KindResearch {
		s.nextID++
		sj.id = jobs.JobID(strconv.FormatInt(s.nextID, 10))
		sj.numericID = true
	} else {
		sj.id = jobs.JobID(uuid.New().String())
	}

	sj.job = jobs.Job{ID: sj.id, Status: jobs.StatusPending}
	s.jobs[storeKey(collection, sj.id)] = sj

	return sj.wire(), nil
}

// Advance moves the job one step forward and returns its record
func (s *Store) Advance(collection string, id jobs.JobID) (map[string]interface{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sj, ok := s.jobs[storeKey(collection, id)]
	if !ok {
		return nil, ErrNotFound
	}

	if sj.flaky > 0 {
		sj.flaky--
		return nil, ErrUnavailable
	}

	if !sj.job.Status.Terminal() {
		sj.step++
		sj.apply()
	}
	return sj.wire(), nil
}

// Get returns the job record without advancing it
func (s *Store) Get(collection string, id jobs.JobID) (jobs.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sj, ok := s.jobs[storeKey(collection, id)]
	if !ok {
		return jobs.Job{}, ErrNotFound
	}
	return sj.job, nil
}

// Result returns the result payload of a completed job
func (s *Store) Result(collection string, id jobs.JobID, resultPath string) (interface{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sj, ok := s.jobs[storeKey(collection, id)]
	if !ok {
		return nil, ErrNotFound
	}
	if resultPath != sj.kind.ResultPath {
		return nil, fmt.Errorf("%w: %s serves %q", ErrBadResult, sj.kind.Collection, sj.kind.ResultPath)
	}
	if sj.job.Status != jobs.StatusCompleted {
		return nil, fmt.Errorf("%w: job is %s", ErrNotReady, sj.job.Status)
	}
	return sj.result(), nil
}

// apply derives the job record from the current step
func (sj *simJob) apply() {
	active := len(Stages) * sj.stepsPerStage
	if sj.step <= active {
		sj.job.Status = jobs.StatusInProgress
		sj.job.CurrentStage = Stages[(sj.step-1)/sj.stepsPerStage]
		sj.job.Progress = float64(sj.step * 90 / active)
		return
	}

	sj.job.Status = sj.final
	sj.job.CurrentStage = ""
	switch sj.final {
	case jobs.StatusCompleted:
		sj.job.Progress = 100
	case jobs.StatusFailed:
		sj.job.Error = "generation failed: language model unavailable"
	case jobs.StatusNeedsAdjustment:
		sj.job.Error = "budget too low"
	}
}

// wire renders the job as the backend sends it, including domain fields
func (sj *simJob) wire() map[string]interface{} {
	out := map[string]interface{}{
		"id":         sj.id.String(),
		"status":     sj.job.Status,
		"progress":   sj.job.Progress,
		"created_at": sj.createdAt.Format(time.RFC3339),
	}
	if sj.numericID {
		n, _ := strconv.ParseInt(sj.id.String(), 10, 64)
		out["id"] = n
	}
	if sj.job.CurrentStage != "" {
		out["current_stage"] = sj.job.CurrentStage
	}
	if sj.job.Error != "" {
		out["error"] = sj.job.Error
	}
	if topic, ok := sj.params[ParamTopic]; ok {
		out["topic"] = topic
	}
	if sj.job.Status == jobs.StatusNeedsAdjustment && sj.kind.SupportsRecommendations {
		out["recommendations"] = []jobs.Recommendation{{
			Field:     "budget",
			Current:   sj.params["budget"],
			Suggested: 5000,
			Reason:    "the market entry costs exceed the current budget",
		}}
	}
	return out
}

func (sj *simJob) topic() string {
	if topic, ok := sj.params[ParamTopic].(string); ok && topic != "" {
		return topic
	}
	return "untitled"
}

func (sj *simJob) result() interface{} {
	switch sj.kind.Name {
	case jobs.KindResearch:
		return jobs.ResearchDetail{
			ID:      sj.id,
			Topic:   sj.topic(),
			Summary: fmt.Sprintf("Market research for %s", sj.topic()),
			Sources: []jobs.ResearchSource{
				{Title: "Regional statistics", URL: "https://example.com/stats"},
			},
			Sections: []jobs.Section{
				{Title: "Audience", Content: "Target audience overview"},
				{Title: "Competitors", Content: "Competitor landscape"},
			},
		}
	case jobs.KindSynthesis:
		return jobs.SynthesisResult{
			ID:           sj.id,
			Title:        sj.topic(),
			DocumentPath: fmt.Sprintf("/documents/%s.docx", sj.id),
			Format:       "docx",
		}
	case jobs.KindPlan:
		return jobs.PlanReport{
			ID:    sj.id,
			Title: fmt.Sprintf("Business plan: %s", sj.topic()),
			Sections: []jobs.Section{
				{Title: "Summary", Content: "Executive summary"},
				{Title: "Finance", Content: "Financial plan"},
			},
			GeneratedAt: time.Now().UTC(),
		}
	default:
		return map[string]interface{}{"id": sj.id, "params": sj.params}
	}
}

// intParam reads a non-negative integer parameter decoded from JSON
func intParam(params map[string]interface{}, key string) (int, error) {
	v, ok := params[key]
	if !ok {
		return 0, nil
	}
	f, ok := v.(float64)
	if !ok || f < 0 || f != float64(int(f)) {
		return 0, fmt.Errorf("%w: %s must be a non-negative integer", ErrBadScenario, key)
	}
	return int(f), nil
}
