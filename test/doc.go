// Package test provides infrastructure for integration testing of the job poller.
//
// A Suite runs the sandbox job service behind a real HTTP server and connects a real
// API client and Tracker to it, so tests cover the whole path from the HTTP wire
// format to the polling outcome.
//
// Example Usage:
//
//	func TestExample(t *testing.T) {
//	    s := test.NewSuite(t)
//	    defer s.Cleanup()
//
//	    job := s.Submit(jobs.KindResearch, map[string]interface{}{"flaky": 2})
//	    report, err := s.Tracker.Watch(s.Context(), s.Kind(jobs.KindResearch), job.ID, poller.WatchOptions{})
//	}
package test
