package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/snappy-loop/shadowtwin/internal/auth"
	"github.com/snappy-loop/shadowtwin/internal/avatar"
	"github.com/snappy-loop/shadowtwin/internal/database"
	"github.com/snappy-loop/shadowtwin/internal/models"
	"github.com/snappy-loop/shadowtwin/internal/pipeline"
	"github.com/snappy-loop/shadowtwin/internal/quota"
	"github.com/snappy-loop/shadowtwin/internal/services"
)

type fakeAuth struct{}

func (fakeAuth) SignUp(ctx context.Context, req models.SignUpRequest) (*models.AuthResponse, error) {
	switch req.Email {
	case "taken@example.com":
		return nil, database.ErrEmailTaken
	case "bad":
		return nil, auth.ErrInvalidEmail
	}
	return &models.AuthResponse{Token: "t", User: models.User{ID: uuid.New(), Email: req.Email}}, nil
}

func (fakeAuth) SignIn(ctx context.Context, req models.SignUpRequest) (*models.AuthResponse, error) {
	return nil, auth.ErrInvalidCredentials
}

func (fakeAuth) CurrentUser(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	return &models.User{ID: userID, Email: "ana@example.com"}, nil
}

type fakeSimulations struct {
	avatarErr   error
	gotImage    []byte
	created     []models.SimulationInput
	listed      int
	listedLimit int
}

func (f *fakeSimulations) Create(ctx context.Context, userID uuid.UUID, in models.SimulationInput, progress pipeline.ProgressFunc) (*models.Simulation, error) {
	if in.SubjectName == "" {
		return nil, fmt.Errorf("%w: at least one field is required", services.ErrInvalidInput)
	}
	f.created = append(f.created, in)
	id := uuid.New()
	if progress != nil {
		progress(models.StageEvent{SimulationID: id, Stage: models.StageTimeline, Status: models.StageStarted})
		progress(models.StageEvent{SimulationID: id, Stage: models.StageTimeline, Status: models.StageSucceeded})
	}
	return &models.Simulation{
		ID:     id,
		UserID: userID,
		State:  "presenting",
		Input:  in,
		Result: &models.PipelineResult{Errors: []models.StageError{}},
	}, nil
}

func (f *fakeSimulations) GenerateAvatar(ctx context.Context, userID, simulationID uuid.UUID, image []byte) (string, error) {
	f.gotImage = image
	if f.avatarErr != nil {
		return "", f.avatarErr
	}
	return "https://cdn.example/video.mp4", nil
}

func (f *fakeSimulations) Get(ctx context.Context, userID, simulationID uuid.UUID) (*models.Simulation, error) {
	return nil, services.ErrNotFound
}

func (f *fakeSimulations) List(ctx context.Context, userID uuid.UUID, limit int, cursor *time.Time) (*services.SimulationPage, error) {
	f.listedLimit = limit
	page := &services.SimulationPage{Simulations: make([]*models.Simulation, f.listed)}
	for i := range page.Simulations {
		page.Simulations[i] = &models.Simulation{ID: uuid.New(), UserID: userID, CreatedAt: time.Date(2026, 1, 1, 0, 0, i, 0, time.UTC)}
	}
	if f.listed > 0 && f.listed == limit {
		next := page.Simulations[f.listed-1].CreatedAt
		page.NextCursor = &next
	}
	return page, nil
}

// pagedSimulations is a simulation store that holds n rows for every user.
type pagedSimulations struct {
	n        int
	gotLimit int
}

func (p *pagedSimulations) Create(ctx context.Context, s *models.Simulation) error { return nil }
func (p *pagedSimulations) UpdateState(ctx context.Context, id uuid.UUID, state string) error {
	return nil
}
func (p *pagedSimulations) SaveResult(ctx context.Context, id uuid.UUID, state string, result *models.PipelineResult) error {
	return nil
}
func (p *pagedSimulations) SetVideoURL(ctx context.Context, id uuid.UUID, url string) error {
	return nil
}
func (p *pagedSimulations) GetByID(ctx context.Context, id uuid.UUID) (*models.Simulation, error) {
	return nil, database.ErrNotFound
}
func (p *pagedSimulations) ListByUser(ctx context.Context, userID uuid.UUID, limit int, cursor *time.Time) ([]*models.Simulation, error) {
	p.gotLimit = limit
	var out []*models.Simulation
	for i := 0; i < p.n && i < limit; i++ {
		out = append(out, &models.Simulation{ID: uuid.New(), UserID: userID, CreatedAt: time.Date(2026, 1, 1, 0, 0, i, 0, time.UTC)})
	}
	return out, nil
}

type fakeProfiles struct{}

func (fakeProfiles) Get(ctx context.Context, userID uuid.UUID) (*models.Profile, error) {
	return &models.Profile{UserID: userID, DisplayName: "Ana"}, nil
}

func (fakeProfiles) Update(ctx context.Context, userID uuid.UUID, req *models.UpdateProfileRequest) (*models.Profile, error) {
	return &models.Profile{UserID: userID, DisplayName: *req.DisplayName}, nil
}

func (fakeProfiles) UploadAvatar(ctx context.Context, userID uuid.UUID, image []byte) (*models.Profile, error) {
	url := fmt.Sprintf("https://cdn.example/%d", len(image))
	return &models.Profile{UserID: userID, AvatarURL: &url}, nil
}

type fakeConversations struct {
	id uuid.UUID
}

func (f *fakeConversations) Start(ctx context.Context, userID uuid.UUID, req *models.CreateConversationRequest) (uuid.UUID, error) {
	return f.id, nil
}

func (f *fakeConversations) Submit(ctx context.Context, userID, conversationID uuid.UUID, text string) (models.ConversationTurn, error) {
	if conversationID != f.id {
		return models.ConversationTurn{}, services.ErrNotFound
	}
	return models.ConversationTurn{ID: uuid.New(), Speaker: models.SpeakerTwin, Text: "echo: " + text}, nil
}

func (f *fakeConversations) Transcript(userID, conversationID uuid.UUID) ([]models.ConversationTurn, error) {
	if conversationID != f.id {
		return nil, services.ErrNotFound
	}
	return []models.ConversationTurn{{Speaker: models.SpeakerUser, Text: "hi"}}, nil
}

func (f *fakeConversations) End(userID, conversationID uuid.UUID) error { return nil }

type fakeHealth struct{ err error }

func (f fakeHealth) Health(ctx context.Context) error { return f.err }

var testUser = uuid.New()

// withTestUser authenticates every request as testUser unless X-Anonymous is set.
func withTestUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Anonymous") != "" {
			writeJSONError(w, http.StatusUnauthorized, "missing authorization header")
			return
		}
		next.ServeHTTP(w, r.WithContext(auth.WithUserID(r.Context(), testUser)))
	})
}

func newTestRouter(sims *fakeSimulations, conv *fakeConversations, health healthChecker) *mux.Router {
	h := NewHandler(fakeAuth{}, sims, fakeProfiles{}, conv, health, 1024)
	return h.Router(withTestUser)
}

func do(t *testing.T, router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestAuthRoutes(t *testing.T) {
	router := newTestRouter(&fakeSimulations{}, &fakeConversations{}, nil)
	tests := []struct {
		name   string
		path   string
		body   string
		status int
	}{
		{"signup", "/auth/signup", `{"email":"ana@example.com","password":"longenough"}`, http.StatusCreated},
		{"signup taken", "/auth/signup", `{"email":"taken@example.com","password":"longenough"}`, http.StatusConflict},
		{"signup bad email", "/auth/signup", `{"email":"bad","password":"longenough"}`, http.StatusBadRequest},
		{"signup invalid body", "/auth/signup", `{invalid`, http.StatusBadRequest},
		{"signin wrong", "/auth/signin", `{"email":"ana@example.com","password":"nope"}`, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, router, http.MethodPost, tt.path, tt.body)
			if rec.Code != tt.status {
				t.Errorf("expected %d, got %d: %s", tt.status, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestSession_Unauthorized(t *testing.T) {
	router := newTestRouter(&fakeSimulations{}, &fakeConversations{}, nil)
	req := httptest.NewRequest(http.MethodGet, "/v1/session", nil)
	req.Header.Set("X-Anonymous", "1")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}

	rec = do(t, router, http.MethodGet, "/v1/session", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), testUser.String()) {
		t.Errorf("session: %d %s", rec.Code, rec.Body.String())
	}
}

func TestCreateSimulation(t *testing.T) {
	sims := &fakeSimulations{}
	router := newTestRouter(sims, &fakeConversations{}, nil)

	rec := do(t, router, http.MethodPost, "/v1/simulations", `{"subject_name":"Ana","unpursued_dreams":"painter"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var sim models.Simulation
	if err := json.NewDecoder(rec.Body).Decode(&sim); err != nil {
		t.Fatal(err)
	}
	if sim.UserID != testUser || sim.Result == nil || sim.Input.UnpursuedDreams != "painter" {
		t.Errorf("sim = %+v", sim)
	}

	rec = do(t, router, http.MethodPost, "/v1/simulations", `{}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("empty input: expected 400, got %d", rec.Code)
	}
}

func TestGetSimulation(t *testing.T) {
	router := newTestRouter(&fakeSimulations{}, &fakeConversations{}, nil)
	if rec := do(t, router, http.MethodGet, "/v1/simulations/not-a-uuid", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("bad id: expected 400, got %d", rec.Code)
	}
	if rec := do(t, router, http.MethodGet, "/v1/simulations/"+uuid.New().String(), ""); rec.Code != http.StatusNotFound {
		t.Errorf("missing: expected 404, got %d", rec.Code)
	}
}

func TestListSimulations_Cursor(t *testing.T) {
	sims := &fakeSimulations{listed: 2}
	router := newTestRouter(sims, &fakeConversations{}, nil)

	rec := do(t, router, http.MethodGet, "/v1/simulations?limit=2", "")
	var body struct {
		Simulations []models.Simulation `json:"simulations"`
		NextCursor  string              `json:"next_cursor"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if sims.listedLimit != 2 || len(body.Simulations) != 2 || body.NextCursor == "" {
		t.Errorf("limit = %d, body = %+v", sims.listedLimit, body)
	}

	sims.listed = 0
	rec = do(t, router, http.MethodGet, "/v1/simulations", "")
	if !strings.Contains(rec.Body.String(), `"simulations":[]`) || strings.Contains(rec.Body.String(), "next_cursor") {
		t.Errorf("empty list body = %s", rec.Body.String())
	}
}

func TestListSimulations_ClampedLimitStillPaginates(t *testing.T) {
	repo := &pagedSimulations{n: 250}
	svc := services.NewSimulationService(repo, nil, nil, nil)
	router := NewHandler(fakeAuth{}, svc, fakeProfiles{}, &fakeConversations{}, nil, 1024).Router(withTestUser)

	for _, query := range []string{"?limit=500", "?limit=0", ""} {
		rec := do(t, router, http.MethodGet, "/v1/simulations"+query, "")
		if rec.Code != http.StatusOK {
			t.Fatalf("%q: expected 200, got %d", query, rec.Code)
		}
		var body struct {
			Simulations []models.Simulation `json:"simulations"`
			NextCursor  string              `json:"next_cursor"`
		}
		if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
			t.Fatal(err)
		}
		if len(body.Simulations) != repo.gotLimit || body.NextCursor == "" {
			t.Errorf("%q: %d rows of %d, next_cursor %q", query, len(body.Simulations), repo.gotLimit, body.NextCursor)
		}
	}
	if repo.gotLimit != 20 {
		t.Errorf("default limit = %d, want 20", repo.gotLimit)
	}
}

func multipartImage(t *testing.T, field string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, "portrait.png")
	if err != nil {
		t.Fatal(err)
	}
	fw.Write(data)
	mw.Close()
	return &buf, mw.FormDataContentType()
}

func TestGenerateAvatarVideo_Statuses(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"ok", nil, http.StatusOK},
		{"not configured", &pipeline.ConfigurationError{Missing: "avatar video"}, http.StatusServiceUnavailable},
		{"bad image", &pipeline.ImageError{ContentType: "text/plain"}, http.StatusBadRequest},
		{"timeout", &avatar.Error{Kind: avatar.KindPollTimeout, Message: "timed out"}, http.StatusGatewayTimeout},
		{"vendor failed", &avatar.Error{Kind: avatar.KindFailed, Message: "render failed"}, http.StatusBadGateway},
		{"not found", services.ErrNotFound, http.StatusNotFound},
		{"quota", quota.ErrExceeded, http.StatusTooManyRequests},
		{"internal", errors.New("db down"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sims := &fakeSimulations{avatarErr: tt.err}
			router := newTestRouter(sims, &fakeConversations{}, nil)

			body, ct := multipartImage(t, "image", []byte("png-bytes"))
			req := httptest.NewRequest(http.MethodPost, "/v1/simulations/"+uuid.New().String()+"/avatar", body)
			req.Header.Set("Content-Type", ct)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			if rec.Code != tt.status {
				t.Errorf("expected %d, got %d: %s", tt.status, rec.Code, rec.Body.String())
			}
			if string(sims.gotImage) != "png-bytes" {
				t.Errorf("image = %q", sims.gotImage)
			}
			if tt.status == http.StatusInternalServerError && strings.Contains(rec.Body.String(), "db down") {
				t.Error("internal error details leaked")
			}
		})
	}
}

func TestGenerateAvatarVideo_NoImageUsesStoredPortrait(t *testing.T) {
	sims := &fakeSimulations{}
	router := newTestRouter(sims, &fakeConversations{}, nil)
	req := httptest.NewRequest(http.MethodPost, "/v1/simulations/"+uuid.New().String()+"/avatar", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || sims.gotImage != nil {
		t.Errorf("expected 200 with nil image, got %d (%d bytes)", rec.Code, len(sims.gotImage))
	}
}

func TestUploadProfileAvatar(t *testing.T) {
	router := newTestRouter(&fakeSimulations{}, &fakeConversations{}, nil)

	body, ct := multipartImage(t, "image", []byte("0123456789"))
	req := httptest.NewRequest(http.MethodPost, "/v1/profile/avatar", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "https://cdn.example/10") {
		t.Errorf("upload: %d %s", rec.Code, rec.Body.String())
	}

	body, ct = multipartImage(t, "file", []byte("x"))
	req = httptest.NewRequest(http.MethodPost, "/v1/profile/avatar", body)
	req.Header.Set("Content-Type", ct)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("wrong field: expected 400, got %d", rec.Code)
	}

	body, ct = multipartImage(t, "image", bytes.Repeat([]byte("x"), 2048))
	req = httptest.NewRequest(http.MethodPost, "/v1/profile/avatar", body)
	req.Header.Set("Content-Type", ct)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("oversized: expected 413, got %d", rec.Code)
	}
}

func TestConversationRoutes(t *testing.T) {
	conv := &fakeConversations{id: uuid.New()}
	router := newTestRouter(&fakeSimulations{}, conv, nil)

	rec := do(t, router, http.MethodPost, "/v1/conversations", `{"input":{"subject_name":"Ana"}}`)
	if rec.Code != http.StatusCreated || !strings.Contains(rec.Body.String(), conv.id.String()) {
		t.Fatalf("create: %d %s", rec.Code, rec.Body.String())
	}

	rec = do(t, router, http.MethodPost, "/v1/conversations/"+conv.id.String()+"/turns", `{"text":"hello"}`)
	var turn models.ConversationTurn
	json.NewDecoder(rec.Body).Decode(&turn)
	if rec.Code != http.StatusOK || turn.Text != "echo: hello" {
		t.Errorf("turn: %d %+v", rec.Code, turn)
	}

	if rec := do(t, router, http.MethodGet, "/v1/conversations/"+conv.id.String(), ""); rec.Code != http.StatusOK {
		t.Errorf("get: %d", rec.Code)
	}
	if rec := do(t, router, http.MethodGet, "/v1/conversations/"+uuid.New().String(), ""); rec.Code != http.StatusNotFound {
		t.Errorf("unknown: %d", rec.Code)
	}
	if rec := do(t, router, http.MethodDelete, "/v1/conversations/"+conv.id.String(), ""); rec.Code != http.StatusNoContent {
		t.Errorf("delete: %d", rec.Code)
	}
}

func TestHealth(t *testing.T) {
	if rec := do(t, newTestRouter(&fakeSimulations{}, &fakeConversations{}, fakeHealth{}), http.MethodGet, "/healthz", ""); rec.Code != http.StatusOK {
		t.Errorf("healthy: %d", rec.Code)
	}
	unhealthy := newTestRouter(&fakeSimulations{}, &fakeConversations{}, fakeHealth{err: errors.New("down")})
	if rec := do(t, unhealthy, http.MethodGet, "/healthz", ""); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("unhealthy: %d", rec.Code)
	}
}

func TestSimulationsWS_StreamsEventsThenResult(t *testing.T) {
	sims := &fakeSimulations{}
	srv := httptest.NewServer(newTestRouter(sims, &fakeConversations{}, nil))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/simulations/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if err := conn.WriteJSON(map[string]interface{}{"type": "run", "input": map[string]string{"subject_name": "Ana"}}); err != nil {
		t.Fatal(err)
	}
	var types []string
	for {
		var msg simulationsWSOutMessage
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read: %v", err)
		}
		types = append(types, msg.Type)
		if msg.Type == "result" {
			if msg.Error != "" || msg.Simulation == nil || msg.Simulation.Input.SubjectName != "Ana" {
				t.Errorf("result = %+v", msg)
			}
			break
		}
		if msg.Event == nil {
			t.Errorf("event message without event: %+v", msg)
		}
	}
	if strings.Join(types, ",") != "event,event,result" {
		t.Errorf("messages = %v", types)
	}

	if err := conn.WriteJSON(map[string]string{"type": "unknown"}); err != nil {
		t.Fatal(err)
	}
	var msg simulationsWSOutMessage
	if err := conn.ReadJSON(&msg); err != nil || msg.Error != "expected type: run" {
		t.Errorf("unknown type reply = %+v, %v", msg, err)
	}
}
