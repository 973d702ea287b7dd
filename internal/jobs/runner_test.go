package jobs

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func counterValue(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	for _, f := range families {
		if f.GetName() != name {
			continue
		}
		for _, m := range f.GetMetric() {
			if matches(m, labels) {
				return m.GetCounter().GetValue()
			}
		}
	}
	return 0
}

func matches(m *dto.Metric, labels map[string]string) bool {
	found := 0
	for _, lp := range m.GetLabel() {
		if v, ok := labels[lp.GetName()]; ok {
			if v != lp.GetValue() {
				return false
			}
			found++
		}
	}
	return found == len(labels)
}

func TestMetrics_Register(t *testing.T) {
	m := NewMetrics()
	reg := prometheus.NewRegistry()
	if err := m.Register(reg); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if err := m.Register(reg); err == nil {
		t.Error("second Register() succeeded, want duplicate error")
	}
	if got := len(m.Collectors()); got != 3 {
		t.Errorf("Collectors() returned %d, want 3", got)
	}
}

func TestRunner_Run(t *testing.T) {
	boom := errors.New("boom")
	tests := []struct {
		name      string
		fn        Func
		timeout   time.Duration
		wantErr   error
		wantState string
		wantKind  string
	}{
		{
			name:      "success",
			fn:        func(context.Context) error { return nil },
			wantState: StatusSuccess,
		},
		{
			name:      "failure",
			fn:        func(context.Context) error { return boom },
			wantErr:   boom,
			wantState: StatusFailure,
			wantKind:  ErrorTypeFailed,
		},
		{
			name: "timeout",
			fn: func(ctx context.Context) error {
				<-ctx.Done()
				return ctx.Err()
			},
			timeout:   10 * time.Millisecond,
			wantErr:   context.DeadlineExceeded,
			wantState: StatusFailure,
			wantKind:  ErrorTypeTimeout,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMetrics()
			reg := prometheus.NewRegistry()
			if err := m.Register(reg); err != nil {
				t.Fatal(err)
			}
			r := NewRunner(m, quietLogger())

			err := r.Run(t.Context(), JobTypeVocabularyInit, tt.timeout, tt.fn)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Run() error = %v, want %v", err, tt.wantErr)
			}

			got := counterValue(t, reg, MetricBackgroundJobsTotal, map[string]string{
				"job_type": JobTypeVocabularyInit, "status": tt.wantState,
			})
			if got != 1 {
				t.Errorf("%s{status=%s} = %v, want 1", MetricBackgroundJobsTotal, tt.wantState, got)
			}
			if tt.wantKind != "" {
				got := counterValue(t, reg, MetricBackgroundJobErrorsTotal, map[string]string{
					"job_type": JobTypeVocabularyInit, "error_type": tt.wantKind,
				})
				if got != 1 {
					t.Errorf("%s{error_type=%s} = %v, want 1", MetricBackgroundJobErrorsTotal, tt.wantKind, got)
				}
			}
		})
	}
}

func TestRunner_NilMetrics(t *testing.T) {
	r := NewRunner(nil, nil)
	if err := r.Run(t.Context(), JobTypeRateLimitCleanup, 0, func(context.Context) error { return nil }); err != nil {
		t.Errorf("Run() error = %v", err)
	}
}

func TestRunner_RunPeriodic(t *testing.T) {
	r := NewRunner(nil, quietLogger())
	ctx, cancel := context.WithCancel(t.Context())

	var runs atomic.Int32
	done := make(chan struct{})
	go func() {
		defer close(done)
		r.RunPeriodic(ctx, JobTypeRateLimitCleanup, 5*time.Millisecond, func(context.Context) error {
			if runs.Add(1) == 2 {
				return errors.New("transient")
			}
			return nil
		})
	}()

	deadline := time.After(2 * time.Second)
	for runs.Load() < 3 {
		select {
		case <-deadline:
			t.Fatalf("only %d runs before deadline", runs.Load())
		case <-time.After(time.Millisecond):
		}
	}
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("RunPeriodic did not return after cancel")
	}
}
