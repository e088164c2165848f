package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newEngine() *gin.Engine {
	r := gin.New()
	r.Use(RequestIDMiddleware())
	return r
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON %q: %v", w.Body.String(), err)
	}
	return body
}

func TestSuccessFlattensPayload(t *testing.T) {
	r := newEngine()
	r.GET("/", func(c *gin.Context) {
		Success(c, "ok", gin.H{"exams": []int{1, 2}, "status": "spoofed"})
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	body := decode(t, w)
	if body["message"] != "ok" {
		t.Errorf("message = %v", body["message"])
	}
	if body["status"] != float64(200) {
		t.Errorf("status = %v, payload must not override it", body["status"])
	}
	if exams, ok := body["exams"].([]interface{}); !ok || len(exams) != 2 {
		t.Errorf("exams = %v", body["exams"])
	}
	if _, ok := body["error"]; ok {
		t.Error("success envelope must not carry error")
	}
	if body["requestId"] != w.Header().Get(HeaderRequestID) {
		t.Errorf("requestId %v does not match header %q", body["requestId"], w.Header().Get(HeaderRequestID))
	}
}

func TestFailWithFields(t *testing.T) {
	r := newEngine()
	r.POST("/", func(c *gin.Context) {
		FailWithFields(c, http.StatusBadRequest, ErrValidation, map[string]string{"title": "too short"})
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/", nil))

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
	body := decode(t, w)
	if body["status"] != float64(400) {
		t.Errorf("status = %v", body["status"])
	}
	errBody, ok := body["error"].(map[string]interface{})
	if !ok {
		t.Fatalf("error = %v", body["error"])
	}
	if errBody["code"] != string(ErrValidation) {
		t.Errorf("code = %v", errBody["code"])
	}
	fields, _ := errBody["fields"].(map[string]interface{})
	if fields["title"] != "too short" {
		t.Errorf("fields = %v", errBody["fields"])
	}
}

func TestRequestIDMiddlewareReusesShortHeader(t *testing.T) {
	r := newEngine()
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, RequestID(c)) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderRequestID, "trace-123")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Body.String() != "trace-123" {
		t.Errorf("request id = %q, want trace-123", w.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderRequestID, strings.Repeat("x", 200))
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if len(w.Body.String()) != 36 {
		t.Errorf("oversized header should be replaced by a UUID, got %q", w.Body.String())
	}
}
