package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ErrorBody represents a structured error response.
type ErrorBody struct {
	Code    ErrCode           `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// Envelope is the JSON body of every API response:
// {message, status, requestId, ...payload} plus error on failure.
type Envelope map[string]interface{}

// ────────────────────────────────────────────────────────────────────────────
// Helper builders
// ────────────────────────────────────────────────────────────────────────────

// Success sends a 200 response whose payload keys sit next to message and status.
func Success(c *gin.Context, message string, payload gin.H) {
	c.JSON(http.StatusOK, build(c, http.StatusOK, message, payload, nil))
}

// Fail sends an error response with an error code and no field-level details.
func Fail(c *gin.Context, statusCode int, code ErrCode) {
	c.JSON(statusCode, build(c, statusCode, GetMessage(code), nil,
		&ErrorBody{Code: code, Message: GetMessage(code)}))
}

// FailWithFields sends an error response with field-level validation details.
func FailWithFields(c *gin.Context, statusCode int, code ErrCode, fields map[string]string) {
	c.JSON(statusCode, build(c, statusCode, GetMessage(code), nil,
		&ErrorBody{Code: code, Message: GetMessage(code), Fields: fields}))
}

// AbortFail aborts the middleware chain and sends an error response.
func AbortFail(c *gin.Context, statusCode int, code ErrCode) {
	c.AbortWithStatusJSON(statusCode, build(c, statusCode, GetMessage(code), nil,
		&ErrorBody{Code: code, Message: GetMessage(code)}))
}

// ────────────────────────────────────────────────────────────────────────────
// Internal helpers
// ────────────────────────────────────────────────────────────────────────────

// build assembles the envelope. Payload keys never override message, status
// or requestId.
func build(c *gin.Context, status int, message string, payload gin.H, errBody *ErrorBody) Envelope {
	env := make(Envelope, len(payload)+4)
	for k, v := range payload {
		env[k] = v
	}
	env["message"] = message
	env["status"] = status
	env["requestId"] = requestID(c)
	if errBody != nil {
		env["error"] = errBody
	}
	return env
}

func requestID(c *gin.Context) string {
	reqID, _ := c.Get(ContextKeyRequestID)
	id, ok := reqID.(string)
	if !ok || id == "" {
		id = uuid.New().String() // Fallback if middleware not applied
	}
	return id
}
