package domain

import "testing"

func TestValidProjectStatus(t *testing.T) {
	for _, s := range []string{
		StatusDraft, StatusSpecSubmitted, StatusPendingConversion,
		StatusCTOCharter, StatusPMBacklog, StatusDevQA, StatusDevOps,
		StatusCompleted, StatusFailed, StatusRunning, StatusStopped, StatusAccepted,
	} {
		if !ValidProjectStatus(s) {
			t.Errorf("ValidProjectStatus(%q) = false", s)
		}
	}
	for _, s := range []string{"", "DRAFT", "halfway_done", "archived"} {
		if ValidProjectStatus(s) {
			t.Errorf("ValidProjectStatus(%q) = true", s)
		}
	}
}

func TestRunnable(t *testing.T) {
	for _, s := range RunnableStatuses {
		if !Runnable(s) {
			t.Errorf("Runnable(%q) = false", s)
		}
	}
	// running, terminal and mid-pipeline statuses are not restartable
	for _, s := range []string{StatusRunning, StatusAccepted, StatusCompleted, StatusDevQA, StatusDevOps, ""} {
		if Runnable(s) {
			t.Errorf("Runnable(%q) = true", s)
		}
	}
}
