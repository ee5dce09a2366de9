package app

import "testing"

func TestNeedsPostgres(t *testing.T) {
	if needsPostgres("trade") {
		t.Error("trade mode runs without durable storage")
	}
	if needsPostgres("monitor") {
		t.Error("monitor mode runs without durable storage")
	}
	if !needsPostgres("full") {
		t.Error("full mode persists decisions and fills")
	}
}
