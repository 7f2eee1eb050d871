package pubdraft

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// Article statuses.
const (
	StatusToBeReviewed = "TO_BE_REVIEWED"
)

// Article is a submitted draft stored in SQLite and rendered by views.
type Article struct {
	ID          string    `json:"id"`
	Owner       string    `json:"-"`
	Title       string    `json:"title"`
	Content     string    `json:"content"` // Draft raw JSON
	Summary     string    `json:"summary"`
	CharCount   int       `json:"charCount"`
	Status      string    `json:"status"`
	SubmittedAt time.Time `json:"submittedAt"`
}

// Image is the metadata of an uploaded file.
type Image struct {
	Filename     string `json:"filename"`
	OriginalName string `json:"originalName"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	Size         int    `json:"size"`
	UploadedAt   string `json:"uploadedAt"`
}

// Error codes reported in the response envelope.
const (
	CodeBadRequest     = "BAD_REQUEST"
	CodeNotFound       = "NOT_FOUND"
	CodeFileTooLarge   = "FILE_TOO_LARGE"
	CodeNotImage       = "NOT_IMAGE"
	CodeRateLimited    = "RATE_LIMITED"
	CodeEmptyTitle     = "EMPTY_TITLE"
	CodeTitleTooLong   = "TITLE_TOO_LONG"
	CodeInvalidContent = "INVALID_CONTENT"
	CodeEmptyContent   = "EMPTY_CONTENT"
	CodeContentTooLong = "CONTENT_TOO_LONG"
	CodeNotReady       = "NOT_READY"
	CodeSubmitFailed   = "SUBMIT_FAILED"
	CodeServerError    = "SERVER_ERROR"
)

// envelope wraps every API response.
type envelope struct {
	Success bool `json:"success"`
	Data    any  `json:"data"`
}

// respond writes a successful envelope.
func respond(c echo.Context, data any) error {
	return c.JSON(http.StatusOK, envelope{Success: true, Data: data})
}

// fail writes a failed envelope carrying an error code.
func fail(c echo.Context, status int, code string) error {
	return c.JSON(status, envelope{Success: false, Data: map[string]string{"error": code}})
}
