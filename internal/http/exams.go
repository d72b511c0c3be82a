package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"clubhub/internal/db"
	"clubhub/internal/exams"
	"clubhub/internal/model"
	"clubhub/internal/operations"
)

const (
	defaultMaxAttempts  = 1
	defaultPassingScore = 60
)

type examResponse struct {
	ID              string     `json:"id"`
	Title           string     `json:"title"`
	Description     *string    `json:"description"`
	Instructions    *string    `json:"instructions"`
	DurationMinutes int        `json:"durationMinutes"`
	MaxAttempts     *int       `json:"maxAttempts"`
	PassingScore    int        `json:"passingScore"`
	StartDate       *time.Time `json:"startDate"`
	EndDate         *time.Time `json:"endDate"`
	CreatedAt       time.Time  `json:"createdAt"`
}

func toExam(e model.Exam) examResponse {
	return examResponse{
		ID:              e.ID,
		Title:           e.Title,
		Description:     e.Description,
		Instructions:    e.Instructions,
		DurationMinutes: e.DurationMinutes,
		MaxAttempts:     e.MaxAttempts,
		PassingScore:    e.PassingScore,
		StartDate:       e.StartDate,
		EndDate:         e.EndDate,
		CreatedAt:       e.CreatedAt,
	}
}

type resultResponse struct {
	ID               string          `json:"id"`
	AttemptNumber    int             `json:"attemptNumber"`
	Status           string          `json:"status"`
	Score            int             `json:"score"`
	TotalPoints      int             `json:"totalPoints"`
	Percentage       float64         `json:"percentage"`
	StartedAt        time.Time       `json:"startedAt"`
	CompletedAt      *time.Time      `json:"completedAt"`
	TimeTakenMinutes *int            `json:"timeTakenMinutes"`
	Answers          json.RawMessage `json:"answers,omitempty"`
}

func toResult(r model.ExamResult) resultResponse {
	resp := resultResponse{
		ID:               r.ID,
		AttemptNumber:    r.AttemptNumber,
		Status:           r.Status,
		Score:            r.Score,
		TotalPoints:      r.TotalPoints,
		Percentage:       exams.RoundPercentage(r.Percentage),
		StartedAt:        r.StartedAt,
		CompletedAt:      r.CompletedAt,
		TimeTakenMinutes: r.TimeTakenMinutes,
	}
	if len(r.Answers) > 0 {
		resp.Answers = json.RawMessage(r.Answers)
	}
	return resp
}

// questionResponse never carries the correct answer.
type questionResponse struct {
	ID           string          `json:"id"`
	QuestionText string          `json:"questionText"`
	QuestionType string          `json:"questionType"`
	Options      json.RawMessage `json:"options"`
	Points       int             `json:"points"`
	OrderIndex   int             `json:"orderIndex"`
}

func toQuestion(q model.ExamQuestion) questionResponse {
	options := json.RawMessage("null")
	if len(q.Options) > 0 {
		options = json.RawMessage(q.Options)
	}
	return questionResponse{
		ID:           q.ID,
		QuestionText: q.QuestionText,
		QuestionType: q.QuestionType,
		Options:      options,
		Points:       q.Points,
		OrderIndex:   q.OrderIndex,
	}
}

type examListingResponse struct {
	examResponse
	QuestionCount int             `json:"questionCount"`
	AttemptsTaken int             `json:"attemptsTaken"`
	CanTakeExam   bool            `json:"canTakeExam"`
	LastAttempt   *resultResponse `json:"lastAttempt"`
}

func (s *Server) handleListExams(w http.ResponseWriter, r *http.Request) {
	p := parsePage(r, 10)
	status := r.URL.Query().Get("status")
	if status == "" {
		status = "active"
	}
	if status != "active" && status != "all" {
		invalidField(w, "status", "must be one of: active, all")
		return
	}
	caller := currentUser(r.Context())
	listings, total, err := s.store.Queries.ListExams(r.Context(), db.ListExamsParams{
		UserID:   caller.ID,
		OpenOnly: status == "active",
		Now:      s.now(),
		Limit:    p.Limit,
		Offset:   p.Offset,
	})
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	out := make([]examListingResponse, 0, len(listings))
	for _, l := range listings {
		item := examListingResponse{
			examResponse:  toExam(l.Exam),
			QuestionCount: l.QuestionCount,
			AttemptsTaken: l.AttemptsTaken,
			CanTakeExam:   exams.CanAttempt(l.AttemptsTaken, l.MaxAttempts),
		}
		if l.LastAttempt != nil {
			last := toResult(*l.LastAttempt)
			item.LastAttempt = &last
		}
		out = append(out, item)
	}
	writeData(w, http.StatusOK, "", map[string]interface{}{"exams": out, "pagination": p.of(total)})
}

// loadOpenExam fetches an active exam and checks its window, writing the failure response itself.
func (s *Server) loadOpenExam(w http.ResponseWriter, r *http.Request) (model.Exam, bool) {
	examID, ok := pathID(r, "examID")
	if !ok {
		writeError(w, http.StatusNotFound, operations.ErrExamNotFound)
		return model.Exam{}, false
	}
	exam, err := s.store.Queries.GetExam(r.Context(), examID)
	if err != nil {
		if db.IsNotFound(err) {
			writeError(w, http.StatusNotFound, operations.ErrExamNotFound)
			return model.Exam{}, false
		}
		s.serverError(w, r, err)
		return model.Exam{}, false
	}
	if !exam.IsActive {
		writeError(w, http.StatusNotFound, operations.ErrExamNotFound)
		return model.Exam{}, false
	}
	switch err := exams.CheckWindow(s.now(), exam.StartDate, exam.EndDate); {
	case errors.Is(err, exams.ErrNotOpen):
		writeError(w, http.StatusBadRequest, operations.ErrExamNotOpen)
		return model.Exam{}, false
	case errors.Is(err, exams.ErrClosed):
		writeError(w, http.StatusBadRequest, operations.ErrExamClosed)
		return model.Exam{}, false
	}
	return exam, true
}

func (s *Server) handleGetExam(w http.ResponseWriter, r *http.Request) {
	exam, ok := s.loadOpenExam(w, r)
	if !ok {
		return
	}
	caller := currentUser(r.Context())
	questions, err := s.store.Queries.ListExamQuestions(r.Context(), exam.ID)
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	results, err := s.store.Queries.ListExamResults(r.Context(), caller.ID, exam.ID)
	if err != nil {
		s.serverError(w, r, err)
		return
	}

	qs := make([]questionResponse, 0, len(questions))
	for _, q := range questions {
		qs = append(qs, toQuestion(q))
	}
	attempts := make([]resultResponse, 0, len(results))
	var inProgress *string
	for _, res := range results {
		attempts = append(attempts, toResult(res))
		if res.Status == model.ExamInProgress {
			id := res.ID
			inProgress = &id
		}
	}
	writeData(w, http.StatusOK, "", map[string]interface{}{
		"exam":               toExam(exam),
		"questions":          qs,
		"attempts":           attempts,
		"canTakeExam":        exams.CanAttempt(len(results), exam.MaxAttempts),
		"hasPassed":          exams.HasPassed(results),
		"inProgressResultId": inProgress,
	})
}

type questionRequest struct {
	QuestionText  string   `json:"questionText" validate:"required"`
	QuestionType  string   `json:"questionType" validate:"required,oneof=multiple_choice true_false short_answer"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correctAnswer" validate:"required"`
	Points        int      `json:"points" validate:"omitempty,min=1"`
}

type createExamRequest struct {
	Title           string            `json:"title" validate:"required,min=5,max=255"`
	Description     *string           `json:"description" validate:"omitempty,min=10"`
	Instructions    *string           `json:"instructions"`
	DurationMinutes int               `json:"durationMinutes" validate:"required,min=1,max=480"`
	MaxAttempts     *int              `json:"maxAttempts" validate:"omitempty,min=1,max=5"`
	PassingScore    *int              `json:"passingScore" validate:"omitempty,min=0,max=100"`
	StartDate       *time.Time        `json:"startDate"`
	EndDate         *time.Time        `json:"endDate"`
	Questions       []questionRequest `json:"questions" validate:"dive"`
}

func (s *Server) handleCreateExam(w http.ResponseWriter, r *http.Request) {
	var req createExamRequest
	if !bind(w, r, &req) {
		return
	}
	if req.StartDate != nil && req.EndDate != nil && !req.EndDate.After(*req.StartDate) {
		invalidField(w, "endDate", "must be after startDate")
		return
	}
	maxAttempts := defaultMaxAttempts
	if req.MaxAttempts != nil {
		maxAttempts = *req.MaxAttempts
	}
	passingScore := defaultPassingScore
	if req.PassingScore != nil {
		passingScore = *req.PassingScore
	}

	input := operations.CreateExamInput{
		Title:           strings.TrimSpace(req.Title),
		Description:     optionalString(req.Description),
		Instructions:    optionalString(req.Instructions),
		DurationMinutes: req.DurationMinutes,
		MaxAttempts:     &maxAttempts,
		PassingScore:    passingScore,
		StartDate:       req.StartDate,
		EndDate:         req.EndDate,
	}
	for _, q := range req.Questions {
		input.Questions = append(input.Questions, operations.QuestionInput{
			QuestionText:  strings.TrimSpace(q.QuestionText),
			QuestionType:  q.QuestionType,
			Options:       q.Options,
			CorrectAnswer: q.CorrectAnswer,
			Points:        q.Points,
		})
	}

	exam, err := operations.CreateExam(r.Context(), s.store, currentUser(r.Context()).ID, input)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, "Exam created", map[string]interface{}{
		"exam":          toExam(exam),
		"questionCount": len(input.Questions),
	})
}

func (s *Server) handleStartExam(w http.ResponseWriter, r *http.Request) {
	examID, ok := pathID(r, "examID")
	if !ok {
		writeError(w, http.StatusNotFound, operations.ErrExamNotFound)
		return
	}
	result, exam, err := operations.StartAttempt(r.Context(), s.store, currentUser(r.Context()).ID, examID, s.now())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, "Exam started", map[string]interface{}{
		"resultId":        result.ID,
		"attemptNumber":   result.AttemptNumber,
		"durationMinutes": exam.DurationMinutes,
		"startedAt":       result.StartedAt,
	})
}

type submitRequest struct {
	ResultID string            `json:"resultId" validate:"required,uuid"`
	Answers  map[string]string `json:"answers"`
}

func (s *Server) handleSubmitExam(w http.ResponseWriter, r *http.Request) {
	examID, ok := pathID(r, "examID")
	if !ok {
		writeError(w, http.StatusNotFound, operations.ErrExamNotFound)
		return
	}
	var req submitRequest
	if !bind(w, r, &req) {
		return
	}
	if req.Answers == nil {
		req.Answers = map[string]string{}
	}
	submission, err := operations.SubmitAttempt(r.Context(), s.store, currentUser(r.Context()).ID, examID,
		uuid.MustParse(req.ResultID).String(), req.Answers, s.now())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeData(w, http.StatusOK, "Exam submitted", map[string]interface{}{
		"score":            submission.Outcome.Score,
		"totalPoints":      submission.Outcome.TotalPoints,
		"percentage":       exams.RoundPercentage(submission.Outcome.Percentage),
		"status":           submission.Outcome.Status,
		"passed":           submission.Outcome.Status == model.ExamPassed,
		"timeTakenMinutes": submission.Result.TimeTakenMinutes,
	})
}

func (s *Server) handleExamResults(w http.ResponseWriter, r *http.Request) {
	examID, ok := pathID(r, "examID")
	if !ok {
		writeError(w, http.StatusNotFound, operations.ErrExamNotFound)
		return
	}
	results, err := s.store.Queries.ListExamResults(r.Context(), currentUser(r.Context()).ID, examID)
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	if len(results) == 0 {
		writeError(w, http.StatusNotFound, "no_results")
		return
	}
	out := make([]resultResponse, 0, len(results))
	for _, res := range results {
		out = append(out, toResult(res))
	}
	writeData(w, http.StatusOK, "", map[string]interface{}{"results": out})
}
