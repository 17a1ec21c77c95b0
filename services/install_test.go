package services

import (
	"strings"
	"testing"

	"anycastweb/models"
)

func TestRunInstallCompletesAllStages(t *testing.T) {
	runner, db := testRunner(t)
	user := createUser(t, db)
	entryPoint := createEntryPoint(t, db, user.ID)

	runner.RunInstall(InstallJob{
		EntryPointID: entryPoint.ID,
		Payload: models.CreateEntryPointRequest{
			Name:     "fra-1",
			IP:       "203.0.113.5",
			Location: "Frankfurt",
		},
	})

	var updated models.EntryPoint
	if err := db.First(&updated, entryPoint.ID).Error; err != nil {
		t.Fatalf("reload entry point: %v", err)
	}
	if updated.Status != models.EntryPointOnline {
		t.Errorf("expected status online, got %s", updated.Status)
	}
	if updated.LastSeen == nil {
		t.Error("expected last_seen to be set")
	}
	if !strings.HasPrefix(updated.WgIP, "10.0.0.") {
		t.Errorf("expected auto-assigned mesh address, got %q", updated.WgIP)
	}
	if updated.WgPubkey == "" {
		t.Error("expected generated mesh public key")
	}

	var events []models.InstallEvent
	db.Where("entry_point_id = ?", entryPoint.ID).
		Order("created_at asc, id asc").Find(&events)
	if len(events) != len(models.InstallStages) {
		t.Fatalf("expected %d events, got %d", len(models.InstallStages), len(events))
	}
	for i, event := range events {
		if event.Stage != models.InstallStages[i] {
			t.Errorf("event %d: expected stage %s, got %s", i, models.InstallStages[i], event.Stage)
		}
		if event.Status != models.InstallCompleted {
			t.Errorf("stage %s: expected completed, got %s", event.Stage, event.Status)
		}
	}

	if got := countAlerts(t, db, models.AlertSuccess); got != 1 {
		t.Errorf("expected 1 success alert, got %d", got)
	}

	var samples int64
	db.Model(&models.Stat{}).Where("entry_point_id = ?", entryPoint.ID).Count(&samples)
	if samples == 0 {
		t.Error("expected seeded utilization samples")
	}
}

func TestRunInstallKeepsCallerMeshAddress(t *testing.T) {
	runner, db := testRunner(t)
	user := createUser(t, db)
	entryPoint := createEntryPoint(t, db, user.ID)

	runner.RunInstall(InstallJob{
		EntryPointID: entryPoint.ID,
		Payload: models.CreateEntryPointRequest{
			Name:     "fra-1",
			IP:       "203.0.113.5",
			Location: "Frankfurt",
			WgIP:     "10.0.0.7",
		},
	})

	var updated models.EntryPoint
	db.First(&updated, entryPoint.ID)
	if updated.WgIP != "10.0.0.7" {
		t.Errorf("expected caller-supplied mesh address, got %q", updated.WgIP)
	}
}

func TestRunInstallMissingEntryPointAborts(t *testing.T) {
	runner, db := testRunner(t)

	runner.RunInstall(InstallJob{EntryPointID: 999})

	var alerts int64
	db.Model(&models.Alert{}).Count(&alerts)
	if alerts != 0 {
		t.Errorf("expected no alerts for missing entry point, got %d", alerts)
	}
}

func TestRunRestartBringsEntryPointBackOnline(t *testing.T) {
	runner, db := testRunner(t)
	user := createUser(t, db)
	entryPoint := createEntryPoint(t, db, user.ID)
	setStatus(t, db, entryPoint.ID, models.EntryPointOnline)

	runner.RunRestart(RestartJob{EntryPointID: entryPoint.ID})

	var updated models.EntryPoint
	db.First(&updated, entryPoint.ID)
	if updated.Status != models.EntryPointOnline {
		t.Errorf("expected status online after restart, got %s", updated.Status)
	}
	if updated.LastSeen == nil {
		t.Error("expected last_seen set after restart")
	}
	if got := countAlerts(t, db, models.AlertInfo); got != 1 {
		t.Errorf("expected 1 info alert, got %d", got)
	}
}
