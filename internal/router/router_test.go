package router

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/exam-paper/internal/config"
	"github.com/stemsi/exam-paper/internal/database"
	"github.com/stemsi/exam-paper/internal/events"
	"github.com/stemsi/exam-paper/internal/handler"
	"github.com/stemsi/exam-paper/internal/repository"
	"github.com/stemsi/exam-paper/internal/response"
	"github.com/stemsi/exam-paper/internal/service"
	"github.com/stemsi/exam-paper/internal/validator"
)

func newTestRouter(t *testing.T, rateLimit int) *gin.Engine {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	validator.Setup()
	log := zerolog.Nop()

	db, err := database.NewSQLite(ctx, ":memory:", log)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	pub := events.NopPublisher{}
	exams := service.NewExamService(repository.NewSQLiteExamRepository(db), nil, pub, time.Minute, log)
	questions := service.NewQuestionService(repository.NewSQLiteQuestionRepository(db), exams, pub, log)
	papers := service.NewPaperService(exams)

	handlers := &Handlers{
		Exam:     handler.NewExamHandler(exams, log),
		Question: handler.NewQuestionHandler(exams, questions, log),
		Paper:    handler.NewPaperHandler(papers, log),
		UI:       handler.NewUIHandler(exams, questions, log),
		WS:       handler.NewWSHandler(nil, log, nil),
		System:   handler.NewSystemHandler(db.PingContext, nil, log),
	}
	cfg := &config.Config{GinMode: gin.TestMode, RateLimitPerMinute: rateLimit}
	return SetupRouter(ctx, handlers, cfg, log)
}

func doJSON(t *testing.T, r http.Handler, method, path string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var env map[string]interface{}
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
			t.Fatalf("%s %s: decode %q: %v", method, path, w.Body.String(), err)
		}
	}
	return w, env
}

func postForm(t *testing.T, r http.Handler, path string, values url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func get(t *testing.T, r http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func errorCode(env map[string]interface{}) string {
	errBody, _ := env["error"].(map[string]interface{})
	code, _ := errBody["code"].(string)
	return code
}

func examCount(t *testing.T, r http.Handler) int {
	t.Helper()
	w, env := doJSON(t, r, http.MethodGet, "/exams", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list status = %d", w.Code)
	}
	exams, ok := env["exams"].([]interface{})
	if !ok {
		t.Fatalf("exams is not an array: %#v", env["exams"])
	}
	return len(exams)
}

func createExam(t *testing.T, r http.Handler, title, subject string) int {
	t.Helper()
	w, env := doJSON(t, r, http.MethodPost, "/exams", map[string]string{"title": title, "subject": subject})
	if w.Code != http.StatusOK {
		t.Fatalf("create exam status = %d: %s", w.Code, w.Body.String())
	}
	body := env["body"].(map[string]interface{})
	return int(body["id"].(float64))
}

// ─── JSON API ───────────────────────────────────────────────────────

func TestExamQuestionPaperFlow(t *testing.T) {
	r := newTestRouter(t, 1000)

	if n := examCount(t, r); n != 0 {
		t.Fatalf("fresh store has %d exams", n)
	}

	id := createExam(t, r, "Midterm", "Science")

	questions := []map[string]interface{}{
		{"examId": id, "questionType": "MCQ", "question": "Largest planet?", "mcqOptions": []string{"Mars", "Jupiter"}},
		{"examId": id, "questionType": "True/False", "question": "The sun is a star.", "answerCols": 7},
		{"examId": id, "questionType": "Q&A", "question": "Explain photosynthesis.", "answerCols": "3"},
	}
	for _, q := range questions {
		w, env := doJSON(t, r, http.MethodPost, "/questions", q)
		if w.Code != http.StatusOK {
			t.Fatalf("create question status = %d: %s", w.Code, w.Body.String())
		}
		if _, ok := env["body"].(map[string]interface{}); !ok {
			t.Fatalf("missing body in %s", w.Body.String())
		}
	}

	w, env := doJSON(t, r, http.MethodGet, "/questions?examId="+itoa(id), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get questions status = %d", w.Code)
	}
	exam := env["exam"].(map[string]interface{})
	if exam["title"] != "Midterm" || exam["subject"] != "Science" {
		t.Errorf("exam = %#v", exam)
	}
	got := exam["questions"].([]interface{})
	if len(got) != 3 {
		t.Fatalf("got %d questions, want 3", len(got))
	}
	wantTypes := []string{"MCQ", "True/False", "Q&A"}
	for i, raw := range got {
		q := raw.(map[string]interface{})
		if q["questionType"] != wantTypes[i] {
			t.Errorf("question %d type = %v, want %s", i, q["questionType"], wantTypes[i])
		}
	}
	if tf := got[1].(map[string]interface{}); tf["answerCols"] != float64(1) {
		t.Errorf("true/false kept stale answerCols: %v", tf["answerCols"])
	}
	if qa := got[2].(map[string]interface{}); qa["answerCols"] != float64(3) {
		t.Errorf("q&a answerCols = %v, want 3", qa["answerCols"])
	}

	html := get(t, r, "/exams/"+itoa(id)+"/paper")
	if html.Code != http.StatusOK || !strings.HasPrefix(html.Header().Get("Content-Type"), "text/html") {
		t.Fatalf("paper status = %d, type %q", html.Code, html.Header().Get("Content-Type"))
	}
	for _, want := range []string{"Midterm", "Jupiter", "Explain photosynthesis."} {
		if !strings.Contains(html.Body.String(), want) {
			t.Errorf("paper missing %q", want)
		}
	}
	if strings.Contains(html.Body.String(), "window.print") {
		t.Error("preview must not open the print dialog")
	}

	printed := get(t, r, "/exams/"+itoa(id)+"/paper?mode=print")
	if !strings.Contains(printed.Body.String(), "window.print") {
		t.Error("print mode must open the print dialog")
	}

	pdf := get(t, r, "/exams/"+itoa(id)+"/paper.pdf")
	if pdf.Code != http.StatusOK || !bytes.HasPrefix(pdf.Body.Bytes(), []byte("%PDF")) {
		t.Fatalf("pdf status = %d", pdf.Code)
	}
	if cd := pdf.Header().Get("Content-Disposition"); !strings.Contains(cd, "exam-"+itoa(id)+"-Midterm.pdf") {
		t.Errorf("Content-Disposition = %q", cd)
	}

	w, env = doJSON(t, r, http.MethodDelete, "/exams", map[string]interface{}{"id": itoa(id)})
	if w.Code != http.StatusOK {
		t.Fatalf("delete status = %d: %s", w.Code, w.Body.String())
	}
	if examCount(t, r) != 0 {
		t.Error("exam still listed after delete")
	}
	w, _ = doJSON(t, r, http.MethodGet, "/questions?examId="+itoa(id), nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("questions of deleted exam status = %d, want 404", w.Code)
	}
}

func TestCreateExamValidation(t *testing.T) {
	r := newTestRouter(t, 1000)

	w, env := doJSON(t, r, http.MethodPost, "/exams", map[string]string{"title": "a", "subject": "Science"})
	if w.Code != http.StatusBadRequest || errorCode(env) != string(response.ErrValidation) {
		t.Fatalf("status = %d, code = %q", w.Code, errorCode(env))
	}
	fields := env["error"].(map[string]interface{})["fields"].(map[string]interface{})
	if _, ok := fields["title"]; !ok {
		t.Errorf("fields = %v, want title", fields)
	}
	if examCount(t, r) != 0 {
		t.Error("invalid exam was stored")
	}

	req := httptest.NewRequest(http.MethodPost, "/exams", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest || !strings.Contains(rec.Body.String(), string(response.ErrInvalidPayload)) {
		t.Errorf("malformed body: status = %d, body = %s", rec.Code, rec.Body.String())
	}
}

func TestCreateExamTrimsBeforeValidating(t *testing.T) {
	r := newTestRouter(t, 1000)

	tests := []struct {
		name    string
		title   string
		subject string
		field   string
	}{
		{"blank title", "   ", "Science", "title"},
		{"one char title after trim", " a ", "Science", "title"},
		{"one char subject after trim", "Midterm", "  x  ", "subject"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, env := doJSON(t, r, http.MethodPost, "/exams", map[string]string{"title": tt.title, "subject": tt.subject})
			if w.Code != http.StatusBadRequest || errorCode(env) != string(response.ErrValidation) {
				t.Fatalf("status = %d, code = %q", w.Code, errorCode(env))
			}
			fields := env["error"].(map[string]interface{})["fields"].(map[string]interface{})
			if _, ok := fields[tt.field]; !ok {
				t.Errorf("fields = %v, want %s", fields, tt.field)
			}
		})
	}
	if examCount(t, r) != 0 {
		t.Error("invalid exam was stored")
	}

	w, env := doJSON(t, r, http.MethodPost, "/exams", map[string]string{"title": "  Midterm  ", "subject": " Science "})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	body := env["body"].(map[string]interface{})
	if body["title"] != "Midterm" || body["subject"] != "Science" {
		t.Errorf("stored %q / %q, want trimmed values", body["title"], body["subject"])
	}
}

func TestDeleteMissingExam(t *testing.T) {
	r := newTestRouter(t, 1000)
	createExam(t, r, "Midterm", "Science")

	w, env := doJSON(t, r, http.MethodDelete, "/exams", map[string]int{"id": 999})
	if w.Code != http.StatusNotFound || errorCode(env) != string(response.ErrExamNotFound) {
		t.Fatalf("status = %d, code = %q", w.Code, errorCode(env))
	}
	if examCount(t, r) != 1 {
		t.Error("exam list changed")
	}
}

func TestQuestionErrors(t *testing.T) {
	r := newTestRouter(t, 1000)
	id := createExam(t, r, "Midterm", "Science")

	cases := []struct {
		name   string
		body   map[string]interface{}
		status int
		code   response.ErrCode
	}{
		{"unknown exam", map[string]interface{}{"examId": 999, "questionType": "True/False", "question": "Q?"}, http.StatusNotFound, response.ErrExamNotFound},
		{"unknown type", map[string]interface{}{"examId": id, "questionType": "Essay", "question": "Q?"}, http.StatusBadRequest, response.ErrValidation},
		{"mcq without options", map[string]interface{}{"examId": id, "questionType": "MCQ", "question": "Q?"}, http.StatusBadRequest, response.ErrValidation},
		{"blank option", map[string]interface{}{"examId": id, "questionType": "MCQ", "question": "Q?", "mcqOptions": []string{"A", " "}}, http.StatusBadRequest, response.ErrValidation},
		{"too many rows", map[string]interface{}{"examId": id, "questionType": "Q&A", "question": "Q?", "answerCols": 51}, http.StatusBadRequest, response.ErrValidation},
		{"blank prompt", map[string]interface{}{"examId": id, "questionType": "True/False", "question": "   "}, http.StatusBadRequest, response.ErrValidation},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w, env := doJSON(t, r, http.MethodPost, "/questions", tc.body)
			if w.Code != tc.status || errorCode(env) != string(tc.code) {
				t.Errorf("status = %d, code = %q, want %d %s", w.Code, errorCode(env), tc.status, tc.code)
			}
		})
	}

	w, env := doJSON(t, r, http.MethodDelete, "/questions?id=999", nil)
	if w.Code != http.StatusNotFound || errorCode(env) != string(response.ErrNotFound) {
		t.Errorf("delete missing question: status = %d, code = %q", w.Code, errorCode(env))
	}
}

func TestInvalidIDs(t *testing.T) {
	r := newTestRouter(t, 1000)

	for _, path := range []string{"/questions?examId=abc", "/questions", "/exams/0/paper", "/exams/x/paper.pdf"} {
		w, env := doJSON(t, r, http.MethodGet, path, nil)
		if w.Code != http.StatusBadRequest || errorCode(env) != string(response.ErrInvalidID) {
			t.Errorf("%s: status = %d, code = %q", path, w.Code, errorCode(env))
		}
	}

	id := createExam(t, r, "Midterm", "Science")
	w, env := doJSON(t, r, http.MethodGet, "/exams/"+itoa(id)+"/paper?mode=poster", nil)
	if w.Code != http.StatusBadRequest || errorCode(env) != string(response.ErrValidation) {
		t.Errorf("bad mode: status = %d, code = %q", w.Code, errorCode(env))
	}
	w, env = doJSON(t, r, http.MethodGet, "/exams/999/paper", nil)
	if w.Code != http.StatusNotFound || errorCode(env) != string(response.ErrExamNotFound) {
		t.Errorf("missing exam paper: status = %d, code = %q", w.Code, errorCode(env))
	}
}

func TestAPIPrefixMount(t *testing.T) {
	r := newTestRouter(t, 1000)

	w, env := doJSON(t, r, http.MethodPost, "/api/exams", map[string]string{"title": "Final", "subject": "Mathematics"})
	if w.Code != http.StatusOK {
		t.Fatalf("POST /api/exams status = %d", w.Code)
	}
	if env["requestId"] == "" || w.Header().Get(response.HeaderRequestID) == "" {
		t.Error("request id missing")
	}
	if w.Header().Get("Cache-Control") != "no-store" {
		t.Errorf("Cache-Control = %q", w.Header().Get("Cache-Control"))
	}
	if examCount(t, r) != 1 {
		t.Error("exam created under /api not visible at the root mount")
	}
}

func TestRateLimitOnMutations(t *testing.T) {
	r := newTestRouter(t, 2)

	for i := 0; i < 2; i++ {
		createExam(t, r, "Exam "+itoa(i+1), "Science")
	}
	w, env := doJSON(t, r, http.MethodPost, "/exams", map[string]string{"title": "Third", "subject": "Science"})
	if w.Code != http.StatusTooManyRequests || errorCode(env) != string(response.ErrRateLimitExceeded) {
		t.Fatalf("status = %d, code = %q", w.Code, errorCode(env))
	}

	// Reads are not limited.
	if examCount(t, r) != 2 {
		t.Error("list failed after limit")
	}
}

func TestChangeFeedWithoutRedis(t *testing.T) {
	r := newTestRouter(t, 1000)
	w, env := doJSON(t, r, http.MethodGet, "/ws/events", nil)
	if w.Code != http.StatusServiceUnavailable || errorCode(env) != string(response.ErrFeedUnavailable) {
		t.Errorf("status = %d, code = %q", w.Code, errorCode(env))
	}
}

func TestHealth(t *testing.T) {
	r := newTestRouter(t, 1000)
	w, env := doJSON(t, r, http.MethodGet, "/health", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if env["storage"] != "up" || env["cache"] != "disabled" {
		t.Errorf("health = %v", env)
	}
}

func TestBrotliCompressesPaperNotPDF(t *testing.T) {
	r := newTestRouter(t, 1000)
	id := createExam(t, r, "Midterm", "Science")

	req := httptest.NewRequest(http.MethodGet, "/exams/"+itoa(id)+"/paper", nil)
	req.Header.Set("Accept-Encoding", "gzip, br;q=1.0")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Header().Get("Content-Encoding") != "br" {
		t.Fatalf("Content-Encoding = %q", w.Header().Get("Content-Encoding"))
	}
	plain, err := io.ReadAll(brotli.NewReader(w.Body))
	if err != nil {
		t.Fatalf("decompress: %v", err)
	}
	if !strings.Contains(string(plain), "Midterm") {
		t.Error("decompressed paper missing title")
	}

	req = httptest.NewRequest(http.MethodGet, "/exams/"+itoa(id)+"/paper.pdf", nil)
	req.Header.Set("Accept-Encoding", "br")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Header().Get("Content-Encoding") != "" {
		t.Errorf("pdf was compressed: %q", w.Header().Get("Content-Encoding"))
	}
	if !bytes.HasPrefix(w.Body.Bytes(), []byte("%PDF")) {
		t.Error("pdf body altered")
	}
}

// ─── Browser UI ─────────────────────────────────────────────────────

func TestUIExamLifecycle(t *testing.T) {
	r := newTestRouter(t, 1000)

	w := get(t, r, "/")
	if w.Code != http.StatusFound || w.Header().Get("Location") != "/ui/exams" {
		t.Fatalf("index: %d -> %q", w.Code, w.Header().Get("Location"))
	}

	w = postForm(t, r, "/ui/exams", url.Values{"title": {"a"}, "subject": {"Science"}})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("invalid form status = %d", w.Code)
	}
	if examCount(t, r) != 0 {
		t.Fatal("invalid exam stored from form")
	}

	w = postForm(t, r, "/ui/exams", url.Values{"title": {"Midterm"}, "subject": {"Science"}})
	if w.Code != http.StatusSeeOther || w.Header().Get("Location") != "/ui/exams?flash=exam-created" {
		t.Fatalf("create: %d -> %q", w.Code, w.Header().Get("Location"))
	}

	w = get(t, r, "/ui/exams?flash=exam-created")
	if w.Code != http.StatusOK {
		t.Fatalf("list page status = %d", w.Code)
	}
	page := w.Body.String()
	for _, want := range []string{"Midterm", "Exam has been created successfully."} {
		if !strings.Contains(page, want) {
			t.Errorf("list page missing %q", want)
		}
	}

	w = postForm(t, r, "/ui/exams/1/delete", nil)
	if w.Code != http.StatusSeeOther || w.Header().Get("Location") != "/ui/exams?flash=exam-deleted" {
		t.Fatalf("delete: %d -> %q", w.Code, w.Header().Get("Location"))
	}
	if examCount(t, r) != 0 {
		t.Error("exam still stored after UI delete")
	}

	w = postForm(t, r, "/ui/exams/1/delete", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d, want 404", w.Code)
	}
}

func TestUIQuestionForm(t *testing.T) {
	r := newTestRouter(t, 1000)
	id := createExam(t, r, "Midterm", "Science")
	path := "/ui/exams/" + itoa(id) + "/questions"

	// Adding an option re-renders the form without storing anything.
	w := postForm(t, r, path, url.Values{
		"action":       {"add-option"},
		"questionType": {"MCQ"},
		"question":     {"Largest planet?"},
		"mcqOptions":   {"Mars"},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("add-option status = %d", w.Code)
	}
	if n := strings.Count(w.Body.String(), `type="text" name="mcqOptions"`); n != 2 {
		t.Errorf("rendered %d option inputs, want 2", n)
	}
	if !strings.Contains(w.Body.String(), "Largest planet?") {
		t.Error("form lost the typed question")
	}

	// An empty option fails validation on submit.
	w = postForm(t, r, path, url.Values{
		"action":       {"submit"},
		"questionType": {"MCQ"},
		"question":     {"Largest planet?"},
		"mcqOptions":   {"Mars", ""},
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("invalid submit status = %d", w.Code)
	}

	w = postForm(t, r, path, url.Values{
		"action":       {"submit"},
		"questionType": {"MCQ"},
		"question":     {"Largest planet?"},
		"mcqOptions":   {"Mars", "Jupiter"},
	})
	if w.Code != http.StatusSeeOther {
		t.Fatalf("submit status = %d: %s", w.Code, w.Body.String())
	}
	if loc := w.Header().Get("Location"); loc != "/ui/exams/"+itoa(id)+"?flash=question-created" {
		t.Errorf("Location = %q", loc)
	}

	page := get(t, r, "/ui/exams/"+itoa(id)).Body.String()
	if !strings.Contains(page, "Largest planet?") || !strings.Contains(page, "Mars, Jupiter") {
		t.Error("exam page does not list the new question")
	}

	w = postForm(t, r, "/ui/questions/1/delete", url.Values{"examId": {itoa(id)}})
	if w.Code != http.StatusSeeOther || w.Header().Get("Location") != "/ui/exams/"+itoa(id)+"?flash=question-deleted" {
		t.Fatalf("delete question: %d -> %q", w.Code, w.Header().Get("Location"))
	}
	if strings.Contains(get(t, r, "/ui/exams/"+itoa(id)).Body.String(), "Largest planet?") {
		t.Error("question still listed after delete")
	}

	w = postForm(t, r, path, url.Values{"action": {"explode"}})
	if w.Code != http.StatusBadRequest {
		t.Errorf("unknown action status = %d", w.Code)
	}
}

func itoa(i int) string {
	return strconv.Itoa(i)
}
