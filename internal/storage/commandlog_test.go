package storage

import (
	"context"
	"path/filepath"
	"testing"
)

func openTestLog(t *testing.T) *CommandLog {
	t.Helper()
	t.Setenv(envCommandLogDBPath, filepath.Join(t.TempDir(), "records.sqlite"))
	commandLog, err := OpenCommandLog()
	if err != nil {
		t.Fatalf("OpenCommandLog returned error: %v", err)
	}
	t.Cleanup(func() { commandLog.Close() })
	return commandLog
}

func TestCommandLogAppendAndRecent(t *testing.T) {
	commandLog := openTestLog(t)
	ctx := context.Background()

	success := true
	checks := []CommandCheck{
		{RecordID: "rec-1", SettingCode: "gridInjectionLimit", Success: true, ControlResult: &success, CurrentValue: "5000", CheckedAt: 100},
		{RecordID: "rec-2", SettingCode: "batteryTimeArray", ErrorMessage: "timeout waiting for command completion", CheckedAt: 200},
	}
	for _, check := range checks {
		if err := commandLog.Append(ctx, check); err != nil {
			t.Fatalf("Append returned error: %v", err)
		}
	}

	got, err := commandLog.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent returned error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(got))
	}
	if got[0].RecordID != "rec-2" || got[1].RecordID != "rec-1" {
		t.Fatalf("expected newest first, got %v", got)
	}
	if got[1].ControlResult == nil || !*got[1].ControlResult {
		t.Fatalf("expected controlResult true on rec-1, got %+v", got[1])
	}
	if got[0].ControlResult != nil {
		t.Fatalf("expected nil controlResult on rec-2, got %+v", got[0])
	}
}

func TestCommandLogRecentLimit(t *testing.T) {
	commandLog := openTestLog(t)
	ctx := context.Background()

	for i := int64(0); i < 5; i++ {
		if err := commandLog.Append(ctx, CommandCheck{RecordID: "rec", CheckedAt: i + 1}); err != nil {
			t.Fatalf("Append returned error: %v", err)
		}
	}
	got, err := commandLog.Recent(ctx, 3)
	if err != nil {
		t.Fatalf("Recent returned error: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(got))
	}
	if got[0].CheckedAt != 5 {
		t.Fatalf("expected newest row first, got %+v", got[0])
	}
}

func TestCommandLogAppendDefaultsCheckedAt(t *testing.T) {
	commandLog := openTestLog(t)

	if err := commandLog.Append(context.Background(), CommandCheck{RecordID: "rec-3"}); err != nil {
		t.Fatalf("Append returned error: %v", err)
	}
	got, err := commandLog.Recent(context.Background(), 1)
	if err != nil {
		t.Fatalf("Recent returned error: %v", err)
	}
	if len(got) != 1 || got[0].CheckedAt == 0 {
		t.Fatalf("expected CheckedAt to default to now, got %v", got)
	}
}
