package logging

import "testing"

func TestProgressSamplerBuckets(t *testing.T) {
	s := NewProgressSampler(5)

	if !s.ShouldLog(0, "downloading") {
		t.Fatal("first event should log")
	}
	if s.ShouldLog(1, "downloading") {
		t.Fatal("same bucket should be suppressed")
	}
	if s.ShouldLog(4.9, "downloading") {
		t.Fatal("still same bucket")
	}
	if !s.ShouldLog(5.1, "downloading") {
		t.Fatal("new bucket should log")
	}
	if !s.ShouldLog(100, "downloading") {
		t.Fatal("completion should log")
	}
}

func TestProgressSamplerStatusChange(t *testing.T) {
	s := NewProgressSampler(5)
	s.ShouldLog(42, "downloading")
	if !s.ShouldLog(42, "finished") {
		t.Fatal("status change should log")
	}
}

func TestProgressSamplerUnknownPercent(t *testing.T) {
	s := NewProgressSampler(5)
	if !s.ShouldLog(-1, "downloading") {
		t.Fatal("first unknown-percent event should log (status change)")
	}
	if s.ShouldLog(-1, "downloading") {
		t.Fatal("repeated unknown-percent events should be suppressed")
	}
}

func TestProgressSamplerReset(t *testing.T) {
	s := NewProgressSampler(5)
	s.ShouldLog(90, "downloading")
	s.Reset()
	if !s.ShouldLog(1, "downloading") {
		t.Fatal("reset sampler should log again")
	}
}

func TestNilSamplerAlwaysLogs(t *testing.T) {
	var s *ProgressSampler
	if !s.ShouldLog(1, "downloading") {
		t.Fatal("nil sampler must not suppress")
	}
	s.Reset()
}
