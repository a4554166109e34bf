package service

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"DopamineBreaker/internal/model"
	"DopamineBreaker/pkg/errors"
)

func TestMedalsExcludeFailures(t *testing.T) {
	f := newCatalogFixture(t, june1)
	f.record(t, 1, june1, 3, nil)
	f.record(t, 2, june1, 0, nil)
	f.record(t, 6, june1, 0, nil)
	f.record(t, 11, june1, 25, nil)

	medals, err := NewMedalService(f.records).Medals(context.Background(), model.Anonymous())
	if err != nil {
		t.Fatal(err)
	}
	if medals != (model.MedalTally{Bronze: 1, Gold: 1}) {
		t.Errorf("medals = %+v", medals)
	}
}

func TestHistoryContinuityAcrossLogin(t *testing.T) {
	f := newCatalogFixture(t, june1)
	alice, bob := int64(1), int64(2)

	f.record(t, 1, june1, 3, nil)                      // 登录前的匿名记录
	f.record(t, 6, june1.Add(time.Minute), 12, &alice) // 登录后本人的记录
	f.record(t, 11, june1.Add(2*time.Minute), 30, &bob)

	svc := NewMedalService(f.records)
	ctx := context.Background()

	medals, err := svc.Medals(ctx, model.Authenticated(alice))
	if err != nil {
		t.Fatal(err)
	}
	if medals != (model.MedalTally{Bronze: 1, Silver: 1}) {
		t.Errorf("alice medals = %+v", medals)
	}

	recent, err := svc.Recent(ctx, model.Authenticated(alice), 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(recent) != 2 || *recent[0].PresetMissionID != 6 || *recent[1].PresetMissionID != 1 {
		t.Errorf("alice recent = %+v", recent)
	}
	for _, r := range recent {
		if r.UserID != nil && *r.UserID == bob {
			t.Error("other user's record leaked")
		}
	}

	all, err := svc.Medals(ctx, model.Anonymous())
	if err != nil {
		t.Fatal(err)
	}
	if all != (model.MedalTally{Bronze: 1, Silver: 1, Gold: 1}) {
		t.Errorf("anonymous medals = %+v", all)
	}
}

func TestByTier(t *testing.T) {
	f := newCatalogFixture(t, june1)
	f.record(t, 6, june1, 12, nil)
	f.record(t, 7, june1.Add(time.Minute), 0, nil)
	f.record(t, 1, june1, 3, nil)

	svc := NewMedalService(f.records)
	silver, err := svc.ByTier(context.Background(), model.Anonymous(), "silver")
	if err != nil {
		t.Fatal(err)
	}
	if len(silver) != 1 || *silver[0].PresetMissionID != 6 {
		t.Errorf("silver = %+v", silver)
	}

	_, err = svc.ByTier(context.Background(), model.Anonymous(), "diamond")
	if !stderrors.Is(err, errors.InvalidTier) {
		t.Errorf("expected InvalidTier, got %v", err)
	}
}
