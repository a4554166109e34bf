package service

import (
	"context"
	stderrors "errors"
	"strings"
	"sync"
	"testing"
	"time"

	"DopamineBreaker/internal/generator"
	"DopamineBreaker/internal/model"
	"DopamineBreaker/internal/repository"
)

var june1 = time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)

func newRefresh(t *testing.T, gen MissionGenerator, locker Locker) (*RefreshService, repository.CatalogRepository, *memoryCache, *recordingPublisher) {
	t.Helper()
	catalogs := repository.NewCatalogRepository(newTestDB(t))
	cache := newMemoryCache()
	events := &recordingPublisher{}
	svc := NewRefreshService(RefreshDeps{
		Catalogs:  catalogs,
		Generator: gen,
		Clock:     fixedClock(june1),
		Location:  time.UTC,
		Locker:    locker,
		Cache:     cache,
		Events:    events,
	})
	return svc, catalogs, cache, events
}

func TestRefreshTodayIdempotent(t *testing.T) {
	gen := &fakeGenerator{}
	svc, catalogs, cache, events := newRefresh(t, gen, nil)
	ctx := context.Background()

	first := svc.RefreshToday(ctx)
	if first.Status != OutcomeCreated || first.Date != "2024-06-01" {
		t.Fatalf("first outcome = %+v", first)
	}
	if first.Entry == nil || !first.Entry.Complete() {
		t.Fatal("created outcome should carry a complete entry")
	}

	second := svc.RefreshToday(ctx)
	if second.Status != OutcomeAlreadyExists {
		t.Fatalf("second outcome = %+v", second)
	}
	if gen.calls != 1 {
		t.Errorf("generator called %d times, want 1", gen.calls)
	}

	stored, err := catalogs.GetByDate(ctx, "2024-06-01")
	if err != nil {
		t.Fatal(err)
	}
	if stored.ID != first.Entry.ID {
		t.Error("existing entry must not be replaced")
	}
	meta, _ := stored.Metadata()
	if meta.Source != model.SourceGemini || meta.RunID == "" {
		t.Errorf("meta = %+v", meta)
	}

	if got := cache.data["2024-06-01"]; len(got) != model.SlotsPerDay {
		t.Errorf("cached %d missions after create", len(got))
	}
	if len(events.catalogs) != 1 || events.catalogs[0].Date != "2024-06-01" {
		t.Errorf("published = %+v", events.catalogs)
	}
}

func TestRefreshTodayPassesPreviousEntry(t *testing.T) {
	gen := &fakeGenerator{}
	svc, catalogs, _, _ := newRefresh(t, gen, nil)
	ctx := context.Background()

	if err := catalogs.Create(ctx, &model.CatalogEntry{Date: "2024-05-31", Slots: fullSlots()}); err != nil {
		t.Fatal(err)
	}

	outcome := svc.RefreshToday(ctx)
	if outcome.Status != OutcomeCreated {
		t.Fatalf("outcome = %+v", outcome)
	}
	if len(gen.previous) != 1 || gen.previous[0] == nil || gen.previous[0].Date != "2024-05-31" {
		t.Fatalf("previous entry not passed: %+v", gen.previous)
	}
	meta, _ := outcome.Entry.Metadata()
	if meta.PreviousDate != "2024-05-31" {
		t.Errorf("meta.PreviousDate = %q", meta.PreviousDate)
	}
}

func TestRefreshTodayFallback(t *testing.T) {
	fallback, err := generator.LoadFallback("")
	if err != nil {
		t.Fatal(err)
	}
	gen := generator.New(failingClient{}, fallback, true)
	svc, _, _, _ := newRefresh(t, gen, nil)

	outcome := svc.RefreshToday(context.Background())
	if outcome.Status != OutcomeCreated {
		t.Fatalf("outcome = %+v", outcome)
	}
	if !outcome.Entry.Complete() {
		t.Error("fallback entry should be complete")
	}
	for _, slot := range outcome.Entry.Slots {
		spec, _ := slot.Tier.Spec()
		if !spec.Contains(slot.Duration) {
			t.Errorf("slot %d duration %d outside %s bounds", slot.Position, slot.Duration, slot.Tier)
		}
	}
	meta, _ := outcome.Entry.Metadata()
	if meta.Source != model.SourceFallback || !strings.Contains(meta.FallbackReason, "service unavailable") {
		t.Errorf("meta = %+v", meta)
	}
	if outcome.Reason == "" {
		t.Error("fallback reason should be reported")
	}
}

type failingClient struct{}

func (failingClient) GenerateContent(context.Context, string) (string, error) {
	return "", stderrors.New("service unavailable")
}

func (failingClient) Model() string { return "fake" }

func TestRefreshTodayFailHard(t *testing.T) {
	gen := &fakeGenerator{err: stderrors.New("boom")}
	svc, catalogs, _, events := newRefresh(t, gen, nil)
	ctx := context.Background()

	outcome := svc.RefreshToday(ctx)
	if outcome.Status != OutcomeFailed || !strings.Contains(outcome.Reason, "boom") {
		t.Fatalf("outcome = %+v", outcome)
	}
	if exists, _ := catalogs.Exists(ctx, "2024-06-01"); exists {
		t.Error("failed refresh must not write an entry")
	}
	if len(events.catalogs) != 0 {
		t.Error("failed refresh must not publish")
	}
}

func TestRefreshTodayRejectsOutOfRangeCatalog(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(slots []model.CatalogSlot)
	}{
		{"bronze duration 99", func(slots []model.CatalogSlot) { slots[0].Duration = 99 }},
		{"gold duration 5", func(slots []model.CatalogSlot) { slots[12].Duration = 5 }},
		{"empty description", func(slots []model.CatalogSlot) { slots[6].Description = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := &fakeGenerator{mutate: tt.mutate}
			svc, catalogs, cache, events := newRefresh(t, gen, nil)
			ctx := context.Background()

			outcome := svc.RefreshToday(ctx)
			if outcome.Status != OutcomeFailed || outcome.Entry != nil {
				t.Fatalf("outcome = %+v", outcome)
			}
			if _, err := catalogs.GetByDate(ctx, "2024-06-01"); err == nil {
				t.Error("invalid catalog must not be persisted")
			}
			if _, cached := cache.data["2024-06-01"]; cached || len(events.catalogs) != 0 {
				t.Error("invalid catalog must not publish or touch the cache")
			}
		})
	}
}

func TestRefreshTodayLockContention(t *testing.T) {
	gen := &fakeGenerator{}
	locker := &fakeLocker{acquired: false}
	svc, _, _, _ := newRefresh(t, gen, locker)

	outcome := svc.RefreshToday(context.Background())
	if outcome.Status != OutcomeAlreadyExists || outcome.Reason == "" {
		t.Fatalf("outcome = %+v", outcome)
	}
	if gen.calls != 0 {
		t.Error("generator must not run without the lock")
	}
	if len(locker.unlocked) != 0 {
		t.Error("lock not held must not be released")
	}
}

func TestRefreshTodayLockErrorContinues(t *testing.T) {
	gen := &fakeGenerator{}
	locker := &fakeLocker{err: stderrors.New("redis down")}
	svc, _, _, _ := newRefresh(t, gen, locker)

	outcome := svc.RefreshToday(context.Background())
	if outcome.Status != OutcomeCreated {
		t.Fatalf("outcome = %+v", outcome)
	}
	if len(locker.unlocked) != 1 || locker.unlocked[0] != "catalog:refresh:2024-06-01" {
		t.Errorf("unlocked = %v", locker.unlocked)
	}
}

// racingCatalogs 模拟另一个进程在 Exists 之后抢先写入
type racingCatalogs struct {
	repository.CatalogRepository
}

func (racingCatalogs) Exists(context.Context, string) (bool, error) { return false, nil }

func TestRefreshTodayDuplicateIsAlreadyExists(t *testing.T) {
	store := repository.NewCatalogRepository(newTestDB(t))
	ctx := context.Background()
	if err := store.Create(ctx, &model.CatalogEntry{Date: "2024-06-01", Slots: fullSlots()}); err != nil {
		t.Fatal(err)
	}

	events := &recordingPublisher{}
	svc := NewRefreshService(RefreshDeps{
		Catalogs:  racingCatalogs{store},
		Generator: &fakeGenerator{},
		Clock:     fixedClock(june1),
		Location:  time.UTC,
		Events:    events,
	})

	outcome := svc.RefreshToday(ctx)
	if outcome.Status != OutcomeAlreadyExists {
		t.Fatalf("outcome = %+v", outcome)
	}
	if len(events.catalogs) != 0 {
		t.Error("duplicate must not publish")
	}
}

func TestRefreshTodayConcurrent(t *testing.T) {
	gen := &fakeGenerator{}
	svc, catalogs, _, _ := newRefresh(t, gen, nil)
	ctx := context.Background()

	const workers = 8
	outcomes := make([]Outcome, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			outcomes[i] = svc.RefreshToday(ctx)
		}(i)
	}
	wg.Wait()

	created := 0
	for _, o := range outcomes {
		switch o.Status {
		case OutcomeCreated:
			created++
		case OutcomeAlreadyExists:
		default:
			t.Errorf("unexpected outcome %+v", o)
		}
	}
	if created != 1 {
		t.Errorf("created = %d, want 1", created)
	}

	dates, err := catalogs.ListDates(ctx, 10)
	if err != nil || len(dates) != 1 {
		t.Errorf("dates = %v, %v", dates, err)
	}
}

func TestRefreshUsesConfiguredTimezone(t *testing.T) {
	loc := time.FixedZone("UTC+8", 8*3600)
	// UTC 5 月 31 日 16:30 在 UTC+8 已是 6 月 1 日
	svc := NewRefreshService(RefreshDeps{
		Clock:    fixedClock(time.Date(2024, 5, 31, 16, 30, 0, 0, time.UTC)),
		Location: loc,
	})
	if got := svc.Today(); got != "2024-06-01" {
		t.Errorf("Today = %q", got)
	}
}
