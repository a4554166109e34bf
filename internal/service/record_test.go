package service

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"DopamineBreaker/internal/model"
	"DopamineBreaker/internal/model/dto"
	"DopamineBreaker/internal/repository"
	"DopamineBreaker/pkg/errors"
)

func newRecordFixture(t *testing.T) (*RecordService, *catalogFixture, *recordingPublisher) {
	t.Helper()
	f := newCatalogFixture(t, june1)
	f.seed(t, "2024-06-01")
	events := &recordingPublisher{}
	svc := NewRecordService(RecordDeps{
		Records: f.records,
		Catalog: f.svc,
		Clock:   fixedClock(june1),
		Events:  events,
	})
	return svc, f, events
}

func TestCompletePresetFillsFromCatalog(t *testing.T) {
	svc, _, events := newRecordFixture(t)

	rec, err := svc.CompletePreset(context.Background(), model.Authenticated(5), &dto.PresetRecordRequest{
		PresetMissionID: intPtr(1),
		Notes:           strPtr("<b>felt good</b>"),
	})
	if err != nil {
		t.Fatal(err)
	}
	if rec.ID == 0 || rec.ActualDuration != 3 {
		t.Errorf("record = %+v", rec)
	}
	if rec.Tier == nil || *rec.Tier != "bronze" || rec.Title == nil || *rec.Title != "Stretch" {
		t.Errorf("snapshot not filled: tier=%v title=%v", rec.Tier, rec.Title)
	}
	if rec.Notes == nil || *rec.Notes != "felt good" {
		t.Errorf("notes = %v", rec.Notes)
	}
	if rec.UserID == nil || *rec.UserID != 5 {
		t.Errorf("user = %v", rec.UserID)
	}
	if !rec.CompletedAt.Equal(june1) {
		t.Errorf("completed_at = %v", rec.CompletedAt)
	}

	if len(events.records) != 1 || !events.records[0].Succeeded || events.records[0].Anonymous {
		t.Errorf("published = %+v", events.records)
	}
}

func TestCompletePresetKeepsClientSnapshot(t *testing.T) {
	svc, _, _ := newRecordFixture(t)

	rec, err := svc.CompletePreset(context.Background(), model.Anonymous(), &dto.PresetRecordRequest{
		PresetMissionID: intPtr(6),
		Tier:            strPtr("silver"),
		Title:           strPtr("Walk <script>x</script>outside"),
		Duration:        intPtr(14),
	})
	if err != nil {
		t.Fatal(err)
	}
	if rec.ActualDuration != 14 || *rec.Tier != "silver" {
		t.Errorf("record = %+v", rec)
	}
	if *rec.Title == "Walk <script>x</script>outside" {
		t.Error("title should be sanitized")
	}
	if rec.Description == nil || *rec.Description != "description" {
		t.Errorf("description should come from catalog, got %v", rec.Description)
	}
}

func TestPresetRecordValidation(t *testing.T) {
	svc, _, _ := newRecordFixture(t)
	ctx := context.Background()

	tests := []struct {
		name string
		req  *dto.PresetRecordRequest
		code string
	}{
		{"missing id", &dto.PresetRecordRequest{}, errors.InvalidRequest.Code},
		{"id zero", &dto.PresetRecordRequest{PresetMissionID: intPtr(0)}, errors.PresetMissionInvalid.Code},
		{"id too large", &dto.PresetRecordRequest{PresetMissionID: intPtr(14)}, errors.PresetMissionInvalid.Code},
		{"negative duration", &dto.PresetRecordRequest{PresetMissionID: intPtr(2), Duration: intPtr(-1)}, errors.InvalidRequest.Code},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CompletePreset(ctx, model.Anonymous(), tt.req)
			var def errors.Definition
			if !stderrors.As(err, &def) || def.Code != tt.code {
				t.Errorf("expected %s, got %v", tt.code, err)
			}
		})
	}
}

func TestCompletePresetWithoutCatalogNeedsDuration(t *testing.T) {
	f := newCatalogFixture(t, june1)
	svc := NewRecordService(RecordDeps{Records: f.records, Catalog: f.svc, Clock: fixedClock(june1)})

	_, err := svc.CompletePreset(context.Background(), model.Anonymous(), &dto.PresetRecordRequest{PresetMissionID: intPtr(1)})
	var def errors.Definition
	if !stderrors.As(err, &def) || def.Code != errors.InvalidRequest.Code {
		t.Errorf("expected INVALID_REQUEST, got %v", err)
	}

	rec, err := svc.CompletePreset(context.Background(), model.Anonymous(), &dto.PresetRecordRequest{PresetMissionID: intPtr(1), Duration: intPtr(4)})
	if err != nil {
		t.Fatal(err)
	}
	if rec.Tier != nil {
		t.Errorf("tier should stay empty without a catalog, got %v", *rec.Tier)
	}
}

func TestFailPreset(t *testing.T) {
	svc, f, events := newRecordFixture(t)
	ctx := context.Background()

	rec, err := svc.FailPreset(ctx, model.Anonymous(), &dto.PresetRecordRequest{
		PresetMissionID: intPtr(7),
		Duration:        intPtr(15),
		Notes:           strPtr("gave up"),
	})
	if err != nil {
		t.Fatal(err)
	}
	if rec.ActualDuration != 0 || rec.Notes == nil || *rec.Notes != model.FailedNote {
		t.Errorf("record = %+v", rec)
	}
	if len(events.records) != 1 || events.records[0].Succeeded || !events.records[0].Anonymous {
		t.Errorf("published = %+v", events.records)
	}

	available, err := f.svc.AvailableToday(ctx)
	if err != nil {
		t.Fatal(err)
	}
	for _, m := range available {
		if m.ID == 7 {
			t.Error("failed mission should no longer be available")
		}
	}
}

func TestCompleteCustom(t *testing.T) {
	db := newTestDB(t)
	missions := NewMissionService(repository.NewCustomMissionRepository(db), fixedClock(june1))
	records := NewRecordService(RecordDeps{Records: repository.NewRecordRepository(db), Clock: fixedClock(june1)})
	ctx := context.Background()

	mission, err := missions.Create(ctx, &dto.CreateMissionRequest{Title: strPtr("Journal"), Duration: intPtr(15)})
	if err != nil {
		t.Fatal(err)
	}

	rec, err := records.CompleteCustom(ctx, model.Anonymous(), mission, nil)
	if err != nil {
		t.Fatal(err)
	}
	if rec.ActualDuration != 15 || rec.MissionID == nil || *rec.MissionID != mission.ID || rec.Mission == nil {
		t.Errorf("record = %+v", rec)
	}

	rec, err = records.CompleteCustom(ctx, model.Anonymous(), mission, &dto.CompleteMissionRequest{ActualDuration: intPtr(9), Notes: strPtr("short")})
	if err != nil {
		t.Fatal(err)
	}
	if rec.ActualDuration != 9 || *rec.Notes != "short" {
		t.Errorf("record = %+v", rec)
	}

	if _, err := records.CompleteCustom(ctx, model.Anonymous(), mission, &dto.CompleteMissionRequest{ActualDuration: intPtr(-2)}); err == nil {
		t.Error("negative duration should be rejected")
	}

	page, err := records.List(ctx, 0, -5)
	if err != nil {
		t.Fatal(err)
	}
	if page.Total != 2 || page.Limit != 10 || page.Offset != 0 || len(page.Records) != 2 {
		t.Errorf("page = %+v", page)
	}
	if page.Records[0].Mission == nil || page.Records[0].Mission.Title != "Journal" {
		t.Error("records should include the custom mission")
	}
}

func TestCompletedAtTruncated(t *testing.T) {
	f := newCatalogFixture(t, june1)
	now := june1.Add(123456789 * time.Nanosecond)
	svc := NewRecordService(RecordDeps{Records: f.records, Clock: fixedClock(now)})

	rec, err := svc.FailPreset(context.Background(), model.Anonymous(), &dto.PresetRecordRequest{PresetMissionID: intPtr(2)})
	if err != nil {
		t.Fatal(err)
	}
	if rec.CompletedAt.Nanosecond()%1000 != 0 {
		t.Errorf("completed_at not truncated: %v", rec.CompletedAt)
	}
}
