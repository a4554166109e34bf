package router

import (
	"bytes"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/ut"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"DopamineBreaker/config"
	"DopamineBreaker/internal/generator"
	"DopamineBreaker/internal/handler"
	"DopamineBreaker/internal/middleware"
	"DopamineBreaker/internal/model"
	"DopamineBreaker/internal/model/dto"
	"DopamineBreaker/internal/repository"
	"DopamineBreaker/internal/service"
	"DopamineBreaker/pkg/snowflake"
	"DopamineBreaker/pkg/token"
	"DopamineBreaker/storage/database"
	"DopamineBreaker/storage/redis"
)

const adminToken = "test-admin-token"

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error struct {
		Code string `json:"code"`
	} `json:"error"`
}

type testServer struct {
	t *testing.T
	h *server.Hertz
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Open(sqlite.Open("file::memory:"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatal(err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	redis.SetClient(nil)
	prevAdmin := config.Cfg.AdminToken
	config.Cfg.AdminToken = adminToken
	t.Cleanup(func() {
		config.Cfg.AdminToken = prevAdmin
		handler.Use(nil)
	})

	if err := snowflake.Init(1, 1); err != nil {
		t.Fatal(err)
	}
	if err := token.Init(); err != nil {
		t.Fatal(err)
	}
	if err := middleware.Init(); err != nil {
		t.Fatal(err)
	}

	db := newTestDB(t)
	clock := service.ClockFunc(func() time.Time {
		return time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	})
	fallback, err := generator.LoadFallback("")
	if err != nil {
		t.Fatal(err)
	}

	records := repository.NewRecordRepository(db)
	catalog := service.NewCatalogService(service.CatalogDeps{
		Catalogs: repository.NewCatalogRepository(db),
		Records:  records,
		Clock:    clock,
		Location: time.UTC,
	})
	handler.Use(&handler.Services{
		Auth:    service.NewAuthService(repository.NewUserRepository(db), nil),
		Catalog: catalog,
		Refresh: service.NewRefreshService(service.RefreshDeps{
			Catalogs:  repository.NewCatalogRepository(db),
			Generator: generator.New(nil, fallback, true),
			Clock:     clock,
			Location:  time.UTC,
		}),
		Record:  service.NewRecordService(service.RecordDeps{Records: records, Catalog: catalog, Clock: clock}),
		Medal:   service.NewMedalService(records),
		Mission: service.NewMissionService(repository.NewCustomMissionRepository(db), clock),
	})

	h := server.New()
	Register(h)
	return &testServer{t: t, h: h}
}

func (s *testServer) do(method, path string, body interface{}, headers ...ut.Header) (int, envelope) {
	s.t.Helper()

	var reqBody *ut.Body
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			s.t.Fatal(err)
		}
		reqBody = &ut.Body{Body: bytes.NewReader(raw), Len: len(raw)}
		headers = append(headers, ut.Header{Key: "Content-Type", Value: "application/json"})
	}

	resp := ut.PerformRequest(s.h.Engine, method, path, reqBody, headers...).Result()
	var env envelope
	if len(resp.Body()) > 0 {
		if err := json.Unmarshal(resp.Body(), &env); err != nil {
			s.t.Fatalf("%s %s: decode %q: %v", method, path, resp.Body(), err)
		}
	}
	return resp.StatusCode(), env
}

func decode(t *testing.T, raw json.RawMessage, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(raw, v); err != nil {
		t.Fatalf("decode %s: %v", raw, err)
	}
}

func admin() ut.Header {
	return ut.Header{Key: middleware.AdminTokenHeader, Value: adminToken}
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	if status, _ := s.do(http.MethodGet, "/health", nil); status != http.StatusOK {
		t.Fatalf("status = %d", status)
	}
}

func TestDailyFlow(t *testing.T) {
	s := newTestServer(t)

	status, env := s.do(http.MethodGet, "/api/missions/daily", nil)
	if status != http.StatusNotFound || env.Error.Code != "CATALOG_NOT_GENERATED" {
		t.Fatalf("before generation: %d %s", status, env.Error.Code)
	}

	if status, _ := s.do(http.MethodPost, "/api/missions/generate-daily", nil); status != http.StatusForbidden {
		t.Fatalf("generate without token: %d", status)
	}

	status, env = s.do(http.MethodPost, "/api/missions/generate-daily", nil, admin())
	if status != http.StatusCreated {
		t.Fatalf("generate: %d", status)
	}
	var generated dto.GenerateDailyResponse
	decode(t, env.Data, &generated)
	if generated.Status != "created" || generated.Date != "2024-06-01" || len(generated.Missions) != model.SlotsPerDay {
		t.Fatalf("generated = %+v", generated)
	}

	status, env = s.do(http.MethodPost, "/api/missions/generate-daily", nil, admin())
	if status != http.StatusOK {
		t.Fatalf("second generate: %d", status)
	}
	decode(t, env.Data, &generated)
	if generated.Status != "already_exists" {
		t.Fatalf("second generate status = %s", generated.Status)
	}

	status, env = s.do(http.MethodGet, "/api/missions/daily", nil)
	if status != http.StatusOK {
		t.Fatalf("daily: %d", status)
	}
	var daily dto.DailyCatalogResponse
	decode(t, env.Data, &daily)
	if daily.Date != "2024-06-01" || len(daily.Missions) != model.SlotsPerDay {
		t.Fatalf("daily = %+v", daily)
	}
	for i, m := range daily.Missions {
		if m.ID != i+1 {
			t.Fatalf("mission %d has id %d", i, m.ID)
		}
	}

	status, env = s.do(http.MethodPost, "/api/missions/presets/complete", map[string]interface{}{"preset_mission_id": 1})
	if status != http.StatusCreated {
		t.Fatalf("complete: %d %s", status, env.Error.Code)
	}
	status, _ = s.do(http.MethodPost, "/api/missions/presets/fail", map[string]interface{}{"preset_mission_id": 13})
	if status != http.StatusCreated {
		t.Fatalf("fail: %d", status)
	}
	status, env = s.do(http.MethodPost, "/api/missions/presets/complete", map[string]interface{}{"preset_mission_id": 14})
	if status != http.StatusBadRequest || env.Error.Code != "PRESET_MISSION_INVALID" {
		t.Fatalf("invalid preset: %d %s", status, env.Error.Code)
	}

	_, env = s.do(http.MethodGet, "/api/missions/presets", nil)
	var presets struct {
		Missions []model.MissionItem `json:"missions"`
	}
	decode(t, env.Data, &presets)
	if len(presets.Missions) != model.SlotsPerDay-2 {
		t.Fatalf("available = %d", len(presets.Missions))
	}
	for _, m := range presets.Missions {
		if m.ID == 1 || m.ID == 13 {
			t.Fatalf("attempted mission %d still available", m.ID)
		}
	}

	_, env = s.do(http.MethodGet, "/api/missions/medals", nil)
	var medals dto.MedalsResponse
	decode(t, env.Data, &medals)
	if medals.Medals != (model.MedalTally{Bronze: 1}) {
		t.Fatalf("medals = %+v", medals.Medals)
	}

	if status, env := s.do(http.MethodGet, "/api/missions/by-tier/platinum", nil); status != http.StatusBadRequest || env.Error.Code != "INVALID_TIER" {
		t.Fatalf("invalid tier: %d %s", status, env.Error.Code)
	}
	if status, _ := s.do(http.MethodGet, "/api/missions/by-tier/bronze", nil); status != http.StatusOK {
		t.Fatalf("by tier: %d", status)
	}

	_, env = s.do(http.MethodGet, "/api/missions/records?limit=1", nil)
	var page dto.RecordPage
	decode(t, env.Data, &page)
	if page.Total != 2 || len(page.Records) != 1 || page.Limit != 1 {
		t.Fatalf("page = %+v", page)
	}
}

func TestCustomMissionFlow(t *testing.T) {
	s := newTestServer(t)

	status, env := s.do(http.MethodPost, "/api/missions", map[string]interface{}{"title": "Read a chapter", "duration": 20})
	if status != http.StatusCreated {
		t.Fatalf("create: %d %s", status, env.Error.Code)
	}
	var mission model.CustomMission
	decode(t, env.Data, &mission)
	if mission.ID == 0 || mission.Title != "Read a chapter" {
		t.Fatalf("mission = %+v", mission)
	}

	if status, env := s.do(http.MethodPost, "/api/missions", map[string]interface{}{"title": "No duration"}); status != http.StatusBadRequest || env.Error.Code != "MISSION_FIELDS_MISSING" {
		t.Fatalf("missing fields: %d %s", status, env.Error.Code)
	}
	if status, _ := s.do(http.MethodGet, "/api/missions/abc", nil); status != http.StatusNotFound {
		t.Fatalf("non-numeric id: %d", status)
	}
	if status, _ := s.do(http.MethodGet, "/api/missions/999", nil); status != http.StatusNotFound {
		t.Fatalf("missing id: %d", status)
	}

	path := "/api/missions/" + jsonNumber(mission.ID)
	if status, _ := s.do(http.MethodPost, path+"/start", nil); status != http.StatusOK {
		t.Fatalf("start: %d", status)
	}
	status, env = s.do(http.MethodPost, path+"/complete", map[string]interface{}{"actual_duration": 25})
	if status != http.StatusCreated {
		t.Fatalf("complete: %d %s", status, env.Error.Code)
	}
	var rec dto.RecordResponse
	decode(t, env.Data, &rec)
	if rec.Record == nil || rec.Record.ActualDuration != 25 {
		t.Fatalf("record = %+v", rec.Record)
	}

	_, env = s.do(http.MethodGet, "/api/missions", nil)
	var list struct {
		Missions []model.CustomMission `json:"missions"`
	}
	decode(t, env.Data, &list)
	if len(list.Missions) != 1 {
		t.Fatalf("missions = %d", len(list.Missions))
	}
}

func TestAuthFlow(t *testing.T) {
	s := newTestServer(t)

	register := map[string]string{"username": "alice", "email": "Alice@Example.com", "password": "correct-horse"}
	if status, env := s.do(http.MethodPost, "/api/auth/register", register); status != http.StatusCreated {
		t.Fatalf("register: %d %s", status, env.Error.Code)
	}
	if status, env := s.do(http.MethodPost, "/api/auth/register", register); status != http.StatusConflict {
		t.Fatalf("duplicate register: %d %s", status, env.Error.Code)
	}

	if status, _ := s.do(http.MethodPost, "/api/auth/login", map[string]string{"username": "alice", "password": "wrong"}); status != http.StatusUnauthorized {
		t.Fatalf("bad login: %d", status)
	}

	status, env := s.do(http.MethodPost, "/api/auth/login", map[string]string{"username": "alice", "password": "correct-horse"})
	if status != http.StatusOK {
		t.Fatalf("login: %d %s", status, env.Error.Code)
	}
	var tokens dto.AuthTokenResponse
	decode(t, env.Data, &tokens)
	if tokens.AccessToken == "" || tokens.RefreshToken == "" {
		t.Fatalf("tokens = %+v", tokens)
	}

	bearer := ut.Header{Key: "Authorization", Value: "Bearer " + tokens.AccessToken}
	status, env = s.do(http.MethodGet, "/api/auth/me", nil, bearer)
	if status != http.StatusOK {
		t.Fatalf("me: %d", status)
	}
	var me dto.UserSnapshot
	decode(t, env.Data, &me)
	if me.Username != "alice" || me.Email != "alice@example.com" {
		t.Fatalf("me = %+v", me)
	}
	if status, _ := s.do(http.MethodGet, "/api/auth/me", nil); status != http.StatusUnauthorized {
		t.Fatalf("me without token: %d", status)
	}

	status, env = s.do(http.MethodPost, "/api/auth/token/refresh", map[string]string{"refresh_token": tokens.RefreshToken})
	if status != http.StatusOK {
		t.Fatalf("refresh: %d %s", status, env.Error.Code)
	}
	if status, _ := s.do(http.MethodPost, "/api/auth/token/refresh", map[string]string{"refresh_token": tokens.AccessToken}); status != http.StatusUnauthorized {
		t.Fatalf("refresh with access token: %d", status)
	}
}

func jsonNumber(v int64) string {
	raw, _ := json.Marshal(v)
	return string(raw)
}
