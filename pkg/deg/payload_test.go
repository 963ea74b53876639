package deg

import (
	"strings"
	"testing"
)

func TestBuildSearchPayload(t *testing.T) {
	payload, err := BuildSearchPayload("2025-09-04 00:00-06:00", 10)
	if err != nil {
		t.Fatalf("BuildSearchPayload returned error: %v", err)
	}

	ctx := payload.Context
	if ctx.Domain != "energy" || ctx.Action != "search" || ctx.Version != "1.1.0" {
		t.Fatalf("unexpected context: %+v", ctx)
	}
	if ctx.TransactionID == "" || ctx.TransactionID != ctx.MessageID {
		t.Fatalf("expected transaction and message id to match, got %q / %q", ctx.TransactionID, ctx.MessageID)
	}
	if !strings.HasSuffix(ctx.Timestamp, "Z") {
		t.Fatalf("expected UTC timestamp, got %q", ctx.Timestamp)
	}

	intent := payload.Message.Intent
	if got := intent.Item.Quantity.Selected.Measure; got.Value != "10" || got.Unit != "kWH" {
		t.Fatalf("unexpected quantity: %+v", got)
	}
	if len(intent.Fulfillment.Stops) != 1 {
		t.Fatalf("expected one stop, got %d", len(intent.Fulfillment.Stops))
	}
	window := intent.Fulfillment.Stops[0].Time.Range
	if window.Start != "2025-09-04T00:00" || window.End != "2025-09-04T06:00" {
		t.Fatalf("unexpected window: %+v", window)
	}
}

func TestBuildSearchPayloadNormalizesBareHours(t *testing.T) {
	payload, err := BuildSearchPayload("2025-09-04 0-6", 5)
	if err != nil {
		t.Fatalf("BuildSearchPayload returned error: %v", err)
	}
	window := payload.Message.Intent.Fulfillment.Stops[0].Time.Range
	if window.Start != "2025-09-04T0:00" || window.End != "2025-09-04T6:00" {
		t.Fatalf("unexpected window: %+v", window)
	}
}

func TestBuildSearchPayloadStripsModelArtifacts(t *testing.T) {
	payload, err := BuildSearchPayload(`2025-09-04 22:00-23:59",`, 5)
	if err != nil {
		t.Fatalf("BuildSearchPayload returned error: %v", err)
	}
	window := payload.Message.Intent.Fulfillment.Stops[0].Time.Range
	if window.End != "2025-09-04T23:59" {
		t.Fatalf("expected trailing quote and comma stripped, got %q", window.End)
	}
}

func TestBuildSearchPayloadDateOnlyFallsBack(t *testing.T) {
	payload, err := BuildSearchPayload("2025-09-04", 5)
	if err != nil {
		t.Fatalf("BuildSearchPayload returned error: %v", err)
	}
	window := payload.Message.Intent.Fulfillment.Stops[0].Time.Range
	if window.Start != "2025-09-04T00:00" || window.End != "2025-09-04T01:00" {
		t.Fatalf("expected one-hour fallback window, got %+v", window)
	}
}

func TestBuildSearchPayloadEmptyWindow(t *testing.T) {
	if _, err := BuildSearchPayload("   ", 5); err == nil {
		t.Fatal("expected error for empty window")
	}
}

func TestBuildSearchPayloadUniqueTransactionIDs(t *testing.T) {
	first, err := BuildSearchPayload("2025-09-04 00:00-06:00", 10)
	if err != nil {
		t.Fatal(err)
	}
	second, err := BuildSearchPayload("2025-09-04 00:00-06:00", 10)
	if err != nil {
		t.Fatal(err)
	}
	if first.Context.TransactionID == second.Context.TransactionID {
		t.Fatal("expected distinct transaction ids per payload")
	}
}
