package handlers

import (
	"testing"

	"github.com/pavelbre/copycheck/internal/constants"
)

func TestJobManagerCreateAndGet(t *testing.T) {
	m := NewJobManager()

	options := CheckJobOptions{Provider: "openai", Threshold: 0.85, MaxMatches: 5}
	job := m.CreateJob("job-1", 3, options)

	if job.Status != JobStatusPending {
		t.Errorf("new job status = %q; want pending", job.Status)
	}
	if job.TotalImages != 3 {
		t.Errorf("TotalImages = %d; want 3", job.TotalImages)
	}

	got := m.GetJob("job-1")
	if got != job {
		t.Error("GetJob did not return the created job")
	}
	if m.GetJob("no-such-job") != nil {
		t.Error("GetJob returned a job for unknown ID")
	}
}

func TestJobManagerDelete(t *testing.T) {
	m := NewJobManager()
	m.CreateJob("job-1", 1, CheckJobOptions{})

	m.DeleteJob("job-1")

	if m.GetJob("job-1") != nil {
		t.Error("job still present after DeleteJob")
	}
}

func TestJobManagerList(t *testing.T) {
	m := NewJobManager()
	m.CreateJob("job-1", 1, CheckJobOptions{})
	m.CreateJob("job-2", 2, CheckJobOptions{})

	jobs := m.ListJobs()
	if len(jobs) != 2 {
		t.Errorf("ListJobs returned %d jobs; want 2", len(jobs))
	}
}

func TestEventBroadcasterDeliversToAllListeners(t *testing.T) {
	var b EventBroadcaster

	ch1 := b.AddListener()
	ch2 := b.AddListener()

	b.SendEvent(JobEvent{Type: "progress"})

	for i, ch := range []chan JobEvent{ch1, ch2} {
		select {
		case event := <-ch:
			if event.Type != "progress" {
				t.Errorf("listener %d got event type %q", i, event.Type)
			}
		default:
			t.Errorf("listener %d received no event", i)
		}
	}
}

func TestEventBroadcasterRemoveListenerClosesChannel(t *testing.T) {
	var b EventBroadcaster

	ch := b.AddListener()
	b.RemoveListener(ch)

	if _, ok := <-ch; ok {
		t.Error("channel not closed after RemoveListener")
	}

	// Sending after removal must not panic.
	b.SendEvent(JobEvent{Type: "progress"})
}

func TestEventBroadcasterSkipsFullBuffers(t *testing.T) {
	var b EventBroadcaster
	ch := b.AddListener()

	for i := 0; i < constants.EventChannelBuffer+10; i++ {
		b.SendEvent(JobEvent{Type: "progress"})
	}

	if len(ch) != constants.EventChannelBuffer {
		t.Errorf("buffered events = %d; want %d", len(ch), constants.EventChannelBuffer)
	}
}

func TestCheckJobCancelSetsStatus(t *testing.T) {
	m := NewJobManager()
	job := m.CreateJob("job-1", 1, CheckJobOptions{})

	job.Cancel()

	if job.GetStatus() != JobStatusCancelled {
		t.Errorf("status after cancel = %q; want cancelled", job.GetStatus())
	}
}

func TestIsJobTerminal(t *testing.T) {
	tests := []struct {
		status JobStatus
		want   bool
	}{
		{JobStatusPending, false},
		{JobStatusRunning, false},
		{JobStatusCompleted, true},
		{JobStatusFailed, true},
		{JobStatusCancelled, true},
	}

	for _, tc := range tests {
		if got := isJobTerminal(tc.status); got != tc.want {
			t.Errorf("isJobTerminal(%q) = %v; want %v", tc.status, got, tc.want)
		}
	}
}
