package health

import (
	"context"
	"testing"
	"time"
)

func TestSchedulerChecker(t *testing.T) {
	interval := time.Minute

	tests := []struct {
		name    string
		last    time.Time
		wantErr bool
	}{
		{"just ticked", time.Now(), false},
		{"within tolerance", time.Now().Add(-2 * time.Minute), false},
		{"stalled", time.Now().Add(-5 * time.Minute), true},
		{"never ticked", time.Time{}, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			checker := NewSchedulerChecker(func() time.Time { return tc.last }, interval)
			err := checker.Check(context.Background())
			if (err != nil) != tc.wantErr {
				t.Errorf("Check() error = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestSchedulerChecker_NotConfigured(t *testing.T) {
	checker := NewSchedulerChecker(nil, time.Minute)
	if err := checker.Check(context.Background()); err == nil {
		t.Error("expected error when lastTick is nil")
	}
}

func TestSQLiteChecker_NilDB(t *testing.T) {
	checker := NewSQLiteChecker(nil)
	if err := checker.Check(context.Background()); err == nil {
		t.Error("expected error when db is nil")
	}
}
