package router_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"esteemed/backend/internal/db"
	"esteemed/backend/internal/handler"
	"esteemed/backend/internal/logger"
	"esteemed/backend/internal/repository"
	"esteemed/backend/internal/router"
	"esteemed/backend/internal/service"
)

type authResponse struct {
	Token string `json:"token"`
	User  struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	} `json:"user"`
}

type urgeEnvelope struct {
	Urge struct {
		ID      string `json:"id"`
		Trigger string `json:"trigger"`
		Victory string `json:"victory"`
	} `json:"urge"`
}

type urgeListEnvelope struct {
	Urges []struct {
		ID      string `json:"id"`
		Trigger string `json:"trigger"`
		Victory string `json:"victory"`
	} `json:"urges"`
}

type relapseListEnvelope struct {
	Relapses []struct {
		Reason string `json:"reason"`
	} `json:"relapses"`
}

type profileEnvelope struct {
	User struct {
		StreakStartDate *string `json:"streakStartDate"`
		DaysOnPlatform  int     `json:"daysOnPlatform"`
		PanicClicks     int     `json:"panicClicks"`
		UrgeCount       int     `json:"urgeCount"`
		RelapseCount    int     `json:"relapseCount"`
	} `json:"user"`
}

type statsEnvelope struct {
	Stats struct {
		StreakDays   int `json:"streakDays"`
		UrgesWon     int `json:"urgesWon"`
		StreakBroken int `json:"streakBroken"`
		UrgeSeries   []struct {
			Date  string `json:"date"`
			Count int    `json:"count"`
		} `json:"urgeSeries"`
		TopTriggers []struct {
			Category string `json:"category"`
			Count    int    `json:"count"`
		} `json:"topTriggers"`
		Heatmap []struct {
			Day       int     `json:"day"`
			Slot      int     `json:"slot"`
			Intensity float64 `json:"intensity"`
		} `json:"heatmap"`
	} `json:"stats"`
}

type apiErrorEnvelope struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func TestUrgeRoundTripPreservesText(t *testing.T) {
	engine := setupTestEngine(t)
	user := registerUser(t, engine, "roundtrip@example.com", "123456")

	trigger := "  late night  scrolling "
	victory := " went  outside "
	status, body := requestJSON(t, engine, http.MethodPost, "/api/urge", user.Token, map[string]string{
		"trigger": trigger,
		"victory": victory,
	})
	if status != http.StatusCreated {
		t.Fatalf("expected 201 on log urge, got %d: %s", status, string(body))
	}

	var created urgeEnvelope
	if err := json.Unmarshal(body, &created); err != nil {
		t.Fatalf("unmarshal urge response: %v", err)
	}
	if created.Urge.Trigger != trigger || created.Urge.Victory != victory {
		t.Fatalf("stored text was altered: %q / %q", created.Urge.Trigger, created.Urge.Victory)
	}

	status, body = requestJSON(t, engine, http.MethodGet, "/api/urge", user.Token, nil)
	if status != http.StatusOK {
		t.Fatalf("expected 200 on list urges, got %d", status)
	}

	var list urgeListEnvelope
	if err := json.Unmarshal(body, &list); err != nil {
		t.Fatalf("unmarshal urge list: %v", err)
	}
	if len(list.Urges) != 1 {
		t.Fatalf("expected exactly one urge, got %d", len(list.Urges))
	}
	if list.Urges[0].ID != created.Urge.ID {
		t.Fatalf("listed urge id %s does not match created %s", list.Urges[0].ID, created.Urge.ID)
	}
	if list.Urges[0].Trigger != trigger || list.Urges[0].Victory != victory {
		t.Fatalf("round-trip altered text: %q / %q", list.Urges[0].Trigger, list.Urges[0].Victory)
	}
}

func TestUrgeValidationAndIdempotentReplay(t *testing.T) {
	engine := setupTestEngine(t)
	user := registerUser(t, engine, "idem@example.com", "123456")

	status, body := requestJSON(t, engine, http.MethodPost, "/api/urge", user.Token, map[string]string{
		"trigger": "   ",
		"victory": "breathing",
	})
	if status != http.StatusBadRequest {
		t.Fatalf("expected 400 for blank trigger, got %d", status)
	}
	var apiErr apiErrorEnvelope
	if err := json.Unmarshal(body, &apiErr); err != nil {
		t.Fatalf("unmarshal error response: %v", err)
	}
	if apiErr.Error.Code != "invalid_trigger" {
		t.Fatalf("expected invalid_trigger, got %s", apiErr.Error.Code)
	}

	payload := map[string]string{
		"trigger":   "Stress",
		"victory":   "cold shower",
		"requestId": "req-double-tap-1",
	}
	status, body = requestJSON(t, engine, http.MethodPost, "/api/urge", user.Token, payload)
	if status != http.StatusCreated {
		t.Fatalf("expected 201 on first submit, got %d: %s", status, string(body))
	}
	var first urgeEnvelope
	if err := json.Unmarshal(body, &first); err != nil {
		t.Fatalf("unmarshal first urge: %v", err)
	}

	status, body = requestJSON(t, engine, http.MethodPost, "/api/urge", user.Token, payload)
	if status != http.StatusOK {
		t.Fatalf("expected 200 on replay, got %d", status)
	}
	var replay urgeEnvelope
	if err := json.Unmarshal(body, &replay); err != nil {
		t.Fatalf("unmarshal replayed urge: %v", err)
	}
	if replay.Urge.ID != first.Urge.ID {
		t.Fatalf("replay created a new event: %s vs %s", replay.Urge.ID, first.Urge.ID)
	}

	status, body = requestJSON(t, engine, http.MethodGet, "/api/urge", user.Token, nil)
	if status != http.StatusOK {
		t.Fatalf("expected 200 on list urges, got %d", status)
	}
	var list urgeListEnvelope
	if err := json.Unmarshal(body, &list); err != nil {
		t.Fatalf("unmarshal urge list: %v", err)
	}
	if len(list.Urges) != 1 {
		t.Fatalf("expected double-tap to collapse to one event, got %d", len(list.Urges))
	}
}

func TestStreakLifecycle(t *testing.T) {
	engine := setupTestEngine(t)
	user := registerUser(t, engine, "streak@example.com", "123456")

	status, _ := requestJSON(t, engine, http.MethodPost, "/api/streak/start", user.Token, nil)
	if status != http.StatusOK {
		t.Fatalf("expected 200 on start, got %d", status)
	}

	// Starting again while active must be rejected, not silently overwritten.
	status, body := requestJSON(t, engine, http.MethodPost, "/api/streak/start", user.Token, nil)
	if status != http.StatusConflict {
		t.Fatalf("expected 409 on second start, got %d", status)
	}
	var conflict apiErrorEnvelope
	if err := json.Unmarshal(body, &conflict); err != nil {
		t.Fatalf("unmarshal conflict: %v", err)
	}
	if conflict.Error.Code != "streak_active" {
		t.Fatalf("expected streak_active, got %s", conflict.Error.Code)
	}

	status, _ = requestJSON(t, engine, http.MethodPost, "/api/streak/reset", user.Token, map[string]string{
		"reason": "rough day",
	})
	if status != http.StatusOK {
		t.Fatalf("expected 200 on reset, got %d", status)
	}

	profile := getProfile(t, engine, user.Token)
	if profile.User.StreakStartDate != nil {
		t.Fatal("expected streak start cleared after relapse")
	}
	if profile.User.RelapseCount != 1 {
		t.Fatalf("expected exactly one relapse event, got %d", profile.User.RelapseCount)
	}

	status, body = requestJSON(t, engine, http.MethodGet, "/api/relapse", user.Token, nil)
	if status != http.StatusOK {
		t.Fatalf("expected 200 on list relapses, got %d", status)
	}
	var relapses relapseListEnvelope
	if err := json.Unmarshal(body, &relapses); err != nil {
		t.Fatalf("unmarshal relapse list: %v", err)
	}
	if len(relapses.Relapses) != 1 || relapses.Relapses[0].Reason != "rough day" {
		t.Fatalf("unexpected relapse list: %+v", relapses.Relapses)
	}

	// Reset without a reason stores the documented default.
	status, _ = requestJSON(t, engine, http.MethodPost, "/api/streak/reset", user.Token, nil)
	if status != http.StatusOK {
		t.Fatalf("expected 200 on reasonless reset, got %d", status)
	}
	status, body = requestJSON(t, engine, http.MethodGet, "/api/relapse", user.Token, nil)
	if status != http.StatusOK {
		t.Fatalf("expected 200 on list relapses, got %d", status)
	}
	if err := json.Unmarshal(body, &relapses); err != nil {
		t.Fatalf("unmarshal relapse list: %v", err)
	}
	if len(relapses.Relapses) != 2 || relapses.Relapses[1].Reason != "No reason provided" {
		t.Fatalf("expected default reason on second relapse: %+v", relapses.Relapses)
	}
}

func TestStatsEndpointAndUserIsolation(t *testing.T) {
	engine := setupTestEngine(t)
	user1 := registerUser(t, engine, "stats1@example.com", "123456")
	user2 := registerUser(t, engine, "stats2@example.com", "123456")

	for _, trigger := range []string{"Stress", " stress ", "Boredom", "Stress"} {
		status, body := requestJSON(t, engine, http.MethodPost, "/api/urge", user1.Token, map[string]string{
			"trigger": trigger,
			"victory": "walked it off",
		})
		if status != http.StatusCreated {
			t.Fatalf("log urge %q failed with %d: %s", trigger, status, string(body))
		}
	}

	status, _ := requestJSON(t, engine, http.MethodPost, "/api/streak/start", user1.Token, nil)
	if status != http.StatusOK {
		t.Fatalf("expected 200 on start, got %d", status)
	}

	status, body := requestJSON(t, engine, http.MethodGet, "/api/stats", user1.Token, nil)
	if status != http.StatusOK {
		t.Fatalf("expected 200 on stats, got %d", status)
	}
	var view statsEnvelope
	if err := json.Unmarshal(body, &view); err != nil {
		t.Fatalf("unmarshal stats: %v", err)
	}
	if view.Stats.UrgesWon != 4 {
		t.Fatalf("expected 4 urges won, got %d", view.Stats.UrgesWon)
	}
	if view.Stats.StreakBroken != 0 {
		t.Fatalf("expected 0 relapses, got %d", view.Stats.StreakBroken)
	}
	if len(view.Stats.UrgeSeries) != 7 {
		t.Fatalf("expected 7 weekly buckets, got %d", len(view.Stats.UrgeSeries))
	}
	if len(view.Stats.Heatmap) != 28 {
		t.Fatalf("expected 28 heatmap cells, got %d", len(view.Stats.Heatmap))
	}
	if len(view.Stats.TopTriggers) != 3 {
		t.Fatalf("expected 3 distinct triggers, got %d", len(view.Stats.TopTriggers))
	}
	if view.Stats.TopTriggers[0].Category != "Stress" || view.Stats.TopTriggers[0].Count != 2 {
		t.Fatalf("unexpected top trigger: %+v", view.Stats.TopTriggers[0])
	}

	// user2 sees none of user1's data.
	status, body = requestJSON(t, engine, http.MethodGet, "/api/stats", user2.Token, nil)
	if status != http.StatusOK {
		t.Fatalf("expected 200 on user2 stats, got %d", status)
	}
	if err := json.Unmarshal(body, &view); err != nil {
		t.Fatalf("unmarshal user2 stats: %v", err)
	}
	if view.Stats.UrgesWon != 0 || view.Stats.StreakDays != 0 {
		t.Fatalf("user2 sees foreign data: %+v", view.Stats)
	}
}

func TestWipeAll(t *testing.T) {
	engine := setupTestEngine(t)
	user := registerUser(t, engine, "wipe@example.com", "123456")

	requestJSON(t, engine, http.MethodPost, "/api/streak/start", user.Token, nil)
	requestJSON(t, engine, http.MethodPost, "/api/urge", user.Token, map[string]string{
		"trigger": "Stress",
		"victory": "pushups",
	})

	status, _ := requestJSON(t, engine, http.MethodPost, "/api/user/wipe", user.Token, nil)
	if status != http.StatusOK {
		t.Fatalf("expected 200 on wipe, got %d", status)
	}

	profile := getProfile(t, engine, user.Token)
	if profile.User.UrgeCount != 0 || profile.User.RelapseCount != 0 {
		t.Fatalf("expected empty event log after wipe, got %+v", profile.User)
	}
	if profile.User.StreakStartDate != nil {
		t.Fatal("expected streak cleared after wipe")
	}

	// The account keeps working.
	status, _ = requestJSON(t, engine, http.MethodPost, "/api/streak/start", user.Token, nil)
	if status != http.StatusOK {
		t.Fatalf("expected 200 on start after wipe, got %d", status)
	}
}

func TestUsageAndPanicCounters(t *testing.T) {
	engine := setupTestEngine(t)
	user := registerUser(t, engine, "counters@example.com", "123456")

	for i := 0; i < 2; i++ {
		status, _ := requestJSON(t, engine, http.MethodPost, "/api/user/usage", user.Token, nil)
		if status != http.StatusOK {
			t.Fatalf("expected 200 on usage, got %d", status)
		}
	}
	profile := getProfile(t, engine, user.Token)
	if profile.User.DaysOnPlatform != 1 {
		t.Fatalf("expected same-day usage to count once, got %d", profile.User.DaysOnPlatform)
	}

	for i := 0; i < 3; i++ {
		status, _ := requestJSON(t, engine, http.MethodPost, "/api/user/panic", user.Token, nil)
		if status != http.StatusOK {
			t.Fatalf("expected 200 on panic, got %d", status)
		}
	}
	profile = getProfile(t, engine, user.Token)
	if profile.User.PanicClicks != 3 {
		t.Fatalf("expected 3 panic clicks, got %d", profile.User.PanicClicks)
	}
}

func TestPublicEndpoints(t *testing.T) {
	engine := setupTestEngine(t)

	// Feedback works without a session.
	status, _ := requestJSON(t, engine, http.MethodPost, "/api/feedback", "", map[string]string{
		"feedback": "love the app",
	})
	if status != http.StatusOK {
		t.Fatalf("expected 200 on anonymous feedback, got %d", status)
	}

	status, body := requestJSON(t, engine, http.MethodPost, "/api/feedback", "", map[string]string{
		"feedback": "",
	})
	if status != http.StatusBadRequest {
		t.Fatalf("expected 400 on empty feedback, got %d: %s", status, string(body))
	}

	status, _ = requestJSON(t, engine, http.MethodPost, "/api/track-visit", "", map[string]string{
		"visitorId": "visitor-1",
		"userAgent": "test-agent",
	})
	if status != http.StatusCreated {
		t.Fatalf("expected 201 on track-visit, got %d", status)
	}

	status, body = requestJSON(t, engine, http.MethodPost, "/api/track-visit", "", map[string]string{})
	if status != http.StatusBadRequest {
		t.Fatalf("expected 400 on missing visitorId, got %d: %s", status, string(body))
	}

	// Protected routes reject missing tokens.
	status, _ = requestJSON(t, engine, http.MethodGet, "/api/stats", "", nil)
	if status != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", status)
	}
}

func TestEarlyAccessValidation(t *testing.T) {
	engine := setupTestEngine(t)
	user := registerUser(t, engine, "early@example.com", "123456")

	status, body := requestJSON(t, engine, http.MethodPost, "/api/early-access", user.Token, map[string]string{
		"email": "not-an-email",
	})
	if status != http.StatusBadRequest {
		t.Fatalf("expected 400 on bad email, got %d: %s", status, string(body))
	}

	status, _ = requestJSON(t, engine, http.MethodPost, "/api/early-access", user.Token, map[string]string{
		"email": "early@example.com",
	})
	if status != http.StatusCreated {
		t.Fatalf("expected 201 on early access signup, got %d", status)
	}
}

func TestCORSPreflight(t *testing.T) {
	engine := setupTestEngine(t)
	req := httptest.NewRequest(http.MethodOptions, "/api/auth/login", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "POST")
	recorder := httptest.NewRecorder()

	engine.ServeHTTP(recorder, req)

	if recorder.Code != http.StatusNoContent {
		t.Fatalf("expected 204 for preflight, got %d", recorder.Code)
	}
	if recorder.Header().Get("Access-Control-Allow-Origin") != "http://localhost:3000" {
		t.Fatalf("unexpected allow-origin header: %s", recorder.Header().Get("Access-Control-Allow-Origin"))
	}
}

func setupTestEngine(t *testing.T) http.Handler {
	t.Helper()

	database, err := db.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		_ = database.Close()
	})

	_, currentFile, _, _ := runtime.Caller(0)
	migrationsDir := filepath.Join(filepath.Dir(currentFile), "..", "..", "migrations")
	if err := db.RunMigrations(database, migrationsDir); err != nil {
		t.Fatalf("run migrations: %v", err)
	}

	log := logger.NewNop()
	userRepo := repository.NewUserRepository(database)
	eventRepo := repository.NewEventRepository(database)
	engagementRepo := repository.NewEngagementRepository(database)

	authService := service.NewAuthService(userRepo, "test-secret", 24*time.Hour, log)
	habitService := service.NewHabitService(userRepo, eventRepo, time.UTC, log)
	engagementService := service.NewEngagementService(engagementRepo, log)

	authHandler := handler.NewAuthHandler(authService)
	habitHandler := handler.NewHabitHandler(habitService)
	engagementHandler := handler.NewEngagementHandler(engagementService)

	return router.New(authService, authHandler, habitHandler, engagementHandler, []string{"http://localhost:3000"}, log)
}

func registerUser(t *testing.T, server http.Handler, email, password string) authResponse {
	t.Helper()
	status, body := requestJSON(t, server, http.MethodPost, "/api/auth/register", "", map[string]string{
		"email":    email,
		"password": password,
	})
	if status != http.StatusCreated {
		t.Fatalf("register %s failed with status %d: %s", email, status, string(body))
	}
	var resp authResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		t.Fatalf("unmarshal register response: %v", err)
	}
	if resp.Token == "" {
		t.Fatalf("empty token for user %s", email)
	}
	return resp
}

func getProfile(t *testing.T, server http.Handler, token string) profileEnvelope {
	t.Helper()
	status, body := requestJSON(t, server, http.MethodGet, "/api/user", token, nil)
	if status != http.StatusOK {
		t.Fatalf("get profile failed with status %d: %s", status, string(body))
	}
	var resp profileEnvelope
	if err := json.Unmarshal(body, &resp); err != nil {
		t.Fatalf("unmarshal profile response: %v", err)
	}
	return resp
}

func requestJSON(
	t *testing.T,
	server http.Handler,
	method, path, token string,
	body interface{},
) (int, []byte) {
	t.Helper()

	var payload []byte
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		payload = raw
	}

	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	recorder := httptest.NewRecorder()
	server.ServeHTTP(recorder, req)
	return recorder.Code, recorder.Body.Bytes()
}
