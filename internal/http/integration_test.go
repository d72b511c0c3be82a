package http

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"strings"
	"testing"
	"time"

	"clubhub/internal/auth"
	"clubhub/internal/config"
	"clubhub/internal/db"
	"clubhub/internal/model"
	"clubhub/internal/testdb"
)

func TestMain(m *testing.M) {
	code := m.Run()
	testdb.Terminate()
	os.Exit(code)
}

func integrationServer(t *testing.T) (http.Handler, *db.Store, config.Config) {
	t.Helper()
	store := testdb.Store(t)
	cfg := testConfig()
	return NewServer(cfg, store, nil, nil, nil).Router(), store, cfg
}

// dataOf re-decodes the envelope payload into out.
func dataOf(t *testing.T, env envelope, out interface{}) {
	t.Helper()
	raw, err := json.Marshal(env.Data)
	if err != nil {
		t.Fatalf("marshal data: %v", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		t.Fatalf("unmarshal data %s: %v", raw, err)
	}
}

func mustToken(t *testing.T, cfg config.Config, user model.User) string {
	t.Helper()
	token, err := auth.NewAccessToken(cfg.JWTSecret, cfg.JWTIssuer, time.Hour, user.ID, user.Email)
	if err != nil {
		t.Fatalf("token error: %v", err)
	}
	return token
}

func TestRegisterLoginScenario(t *testing.T) {
	router, store, _ := integrationServer(t)

	register := map[string]string{
		"email":     "Alice@Example.com",
		"password":  "secret123",
		"firstName": "A",
		"lastName":  "B",
	}
	rec, env := serve(t, router, http.MethodPost, "/api/auth/register", "", register)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d %s", rec.Code, rec.Body.String())
	}
	var session sessionResponse
	dataOf(t, env, &session)
	if session.Token == "" || session.User.Role != model.RoleMember || session.User.Email != "alice@example.com" {
		t.Fatalf("unexpected session: %+v", session)
	}

	rec, env = serve(t, router, http.MethodPost, "/api/auth/register", "", register)
	if rec.Code != http.StatusBadRequest || env.Code != "email_taken" {
		t.Fatalf("expected email_taken, got %d %+v", rec.Code, env)
	}

	rec, env = serve(t, router, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "alice@example.com", "password": "wrong-password",
	})
	if rec.Code != http.StatusUnauthorized || env.Code != "invalid_credentials" {
		t.Fatalf("expected invalid_credentials, got %d %+v", rec.Code, env)
	}

	rec, env = serve(t, router, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "alice@example.com", "password": "secret123",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d %s", rec.Code, rec.Body.String())
	}
	dataOf(t, env, &session)

	rec, env = serve(t, router, http.MethodGet, "/api/auth/me", session.Token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 from /me, got %d %s", rec.Code, rec.Body.String())
	}
	var me struct {
		User userResponse `json:"user"`
	}
	dataOf(t, env, &me)
	if me.User.Email != "alice@example.com" || me.User.LastLogin == nil {
		t.Fatalf("unexpected profile: %+v", me.User)
	}

	if _, err := store.Pool.Exec(context.Background(), `UPDATE users SET is_active = false WHERE id = $1`, me.User.ID); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	rec, env = serve(t, router, http.MethodGet, "/api/auth/me", session.Token, nil)
	if rec.Code != http.StatusUnauthorized || env.Code != "user_inactive" {
		t.Fatalf("expected user_inactive, got %d %+v", rec.Code, env)
	}
}

func TestExamRoundTripOverHTTP(t *testing.T) {
	router, store, cfg := integrationServer(t)

	exec, err := store.Queries.CreateUser(context.Background(), db.CreateUserParams{
		Email: "exec@club.test", PasswordHash: "x", FirstName: "E", LastName: "X", Role: model.RoleExecutive,
	})
	if err != nil {
		t.Fatalf("create executive: %v", err)
	}
	member, err := store.Queries.CreateUser(context.Background(), db.CreateUserParams{
		Email: "member@club.test", PasswordHash: "x", FirstName: "M", LastName: "X", Role: model.RoleMember,
	})
	if err != nil {
		t.Fatalf("create member: %v", err)
	}
	execToken := mustToken(t, cfg, exec)
	memberToken := mustToken(t, cfg, member)

	exam := map[string]interface{}{
		"title":           "Club history quiz",
		"durationMinutes": 30,
		"passingScore":    60,
		"questions": []map[string]interface{}{
			{"questionText": "Founding year?", "questionType": "multiple_choice", "options": []string{"1999", "2004"}, "correctAnswer": "2004", "points": 5},
			{"questionText": "The club has a charter.", "questionType": "true_false", "correctAnswer": "true", "points": 10},
			{"questionText": "Name the first president.", "questionType": "short_answer", "correctAnswer": "Ada", "points": 15},
		},
	}
	rec, _ := serve(t, router, http.MethodPost, "/api/exams", memberToken, exam)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected members to be forbidden, got %d", rec.Code)
	}
	rec, env := serve(t, router, http.MethodPost, "/api/exams", execToken, exam)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d %s", rec.Code, rec.Body.String())
	}
	var created struct {
		Exam          examResponse `json:"exam"`
		QuestionCount int          `json:"questionCount"`
	}
	dataOf(t, env, &created)
	if created.QuestionCount != 3 || created.Exam.MaxAttempts == nil || *created.Exam.MaxAttempts != 1 {
		t.Fatalf("unexpected created exam: %+v", created)
	}
	examPath := "/api/exams/" + created.Exam.ID

	rec, env = serve(t, router, http.MethodGet, examPath, memberToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d %s", rec.Code, rec.Body.String())
	}
	if strings.Contains(rec.Body.String(), "correctAnswer") || strings.Contains(rec.Body.String(), "Ada") {
		t.Fatalf("exam detail leaks answers: %s", rec.Body.String())
	}
	var detail struct {
		Questions   []questionResponse `json:"questions"`
		CanTakeExam bool               `json:"canTakeExam"`
	}
	dataOf(t, env, &detail)
	if len(detail.Questions) != 3 || !detail.CanTakeExam {
		t.Fatalf("unexpected detail: %+v", detail)
	}
	for i, q := range detail.Questions {
		if q.OrderIndex != i+1 {
			t.Fatalf("question %d has order %d", i, q.OrderIndex)
		}
	}

	rec, env = serve(t, router, http.MethodPost, examPath+"/start", memberToken, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 on start, got %d %s", rec.Code, rec.Body.String())
	}
	var started struct {
		ResultID      string `json:"resultId"`
		AttemptNumber int    `json:"attemptNumber"`
	}
	dataOf(t, env, &started)
	if started.AttemptNumber != 1 {
		t.Fatalf("expected first attempt, got %d", started.AttemptNumber)
	}

	rec, env = serve(t, router, http.MethodPost, examPath+"/start", memberToken, nil)
	if rec.Code != http.StatusConflict || env.Code != "attempt_in_progress" {
		t.Fatalf("expected attempt_in_progress, got %d %+v", rec.Code, env)
	}

	submit := map[string]interface{}{
		"resultId": started.ResultID,
		"answers": map[string]string{
			detail.Questions[0].ID: "1999",
			detail.Questions[1].ID: "true",
			detail.Questions[2].ID: "Ada",
		},
	}
	rec, env = serve(t, router, http.MethodPost, examPath+"/submit", memberToken, submit)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 on submit, got %d %s", rec.Code, rec.Body.String())
	}
	var scored struct {
		Score       int     `json:"score"`
		TotalPoints int     `json:"totalPoints"`
		Percentage  float64 `json:"percentage"`
		Passed      bool    `json:"passed"`
	}
	dataOf(t, env, &scored)
	if scored.Score != 25 || scored.TotalPoints != 30 || scored.Percentage != 83.33 || !scored.Passed {
		t.Fatalf("unexpected score: %+v", scored)
	}

	rec, env = serve(t, router, http.MethodPost, examPath+"/submit", memberToken, submit)
	if rec.Code != http.StatusConflict || env.Code != "attempt_already_submitted" {
		t.Fatalf("expected attempt_already_submitted, got %d %+v", rec.Code, env)
	}

	rec, env = serve(t, router, http.MethodPost, examPath+"/start", memberToken, nil)
	if rec.Code != http.StatusBadRequest || env.Code != "max_attempts_reached" {
		t.Fatalf("expected max_attempts_reached, got %d %+v", rec.Code, env)
	}

	rec, env = serve(t, router, http.MethodGet, examPath+"/results", memberToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected results, got %d %s", rec.Code, rec.Body.String())
	}
	var results struct {
		Results []resultResponse `json:"results"`
	}
	dataOf(t, env, &results)
	if len(results.Results) != 1 || results.Results[0].Status != model.ExamPassed {
		t.Fatalf("unexpected results: %+v", results.Results)
	}

	rec, env = serve(t, router, http.MethodGet, examPath+"/results", execToken, nil)
	if rec.Code != http.StatusNotFound || env.Code != "no_results" {
		t.Fatalf("expected no_results for executive, got %d %+v", rec.Code, env)
	}
}

func TestPartnersOverHTTP(t *testing.T) {
	router, store, cfg := integrationServer(t)
	exec, err := store.Queries.CreateUser(context.Background(), db.CreateUserParams{
		Email: "exec@club.test", PasswordHash: "x", FirstName: "E", LastName: "X", Role: model.RoleExecutive,
	})
	if err != nil {
		t.Fatalf("create executive: %v", err)
	}
	token := mustToken(t, cfg, exec)

	rec, env := serve(t, router, http.MethodPost, "/api/partners", token, map[string]interface{}{
		"name":        "Campus Library",
		"description": "Study rooms",
		"website":     "https://library.example",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d %s", rec.Code, rec.Body.String())
	}
	var created struct {
		Partner partnerResponse `json:"partner"`
	}
	dataOf(t, env, &created)

	rec, _ = serve(t, router, http.MethodGet, "/api/partners/"+created.Partner.ID, "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected public partner, got %d", rec.Code)
	}

	rec, _ = serve(t, router, http.MethodDelete, "/api/partners/"+created.Partner.ID, token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected delete 200, got %d", rec.Code)
	}
	rec, env = serve(t, router, http.MethodGet, "/api/partners/"+created.Partner.ID, "", nil)
	if rec.Code != http.StatusNotFound || env.Code != "partner_not_found" {
		t.Fatalf("expected hidden partner, got %d %+v", rec.Code, env)
	}
}
