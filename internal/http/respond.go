package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shrimpsizemoose/trekker/logger"

	"clubhub/internal/db"
	"clubhub/internal/operations"
)

type envelope struct {
	Success bool         `json:"success"`
	Message string       `json:"message,omitempty"`
	Code    string       `json:"code,omitempty"`
	Data    interface{}  `json:"data,omitempty"`
	Errors  []fieldError `json:"errors,omitempty"`
}

type fieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return field.Name
		}
		return name
	})
	return v
}

var errorStatus = map[string]int{
	operations.ErrUserNotFound:            http.StatusNotFound,
	operations.ErrActivityNotFound:        http.StatusNotFound,
	operations.ErrRegistrationNotFound:    http.StatusNotFound,
	operations.ErrExamNotFound:            http.StatusNotFound,
	operations.ErrResultNotFound:          http.StatusNotFound,
	operations.ErrRequestNotFound:         http.StatusNotFound,
	operations.ErrApplicationNotFound:     http.StatusNotFound,
	operations.ErrAttemptInProgress:       http.StatusConflict,
	operations.ErrAttemptAlreadySubmitted: http.StatusConflict,
	operations.ErrRequestAlreadyReviewed:  http.StatusConflict,
	operations.ErrApplicationReviewed:     http.StatusConflict,
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeData(w http.ResponseWriter, status int, message string, data interface{}) {
	writeJSON(w, status, envelope{Success: true, Message: message, Data: data})
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, envelope{Success: false, Code: code, Message: humanize(code)})
}

// humanize turns a snake_case code into a sentence: "activity_full" becomes "Activity full".
func humanize(code string) string {
	if code == "" {
		return ""
	}
	text := strings.ReplaceAll(code, "_", " ")
	return strings.ToUpper(text[:1]) + text[1:]
}

func (s *Server) serverError(w http.ResponseWriter, r *http.Request, err error) {
	logger.Error.Printf("%s %s: %v", r.Method, r.URL.Path, err)
	message := "Internal server error"
	if !s.cfg.IsProduction() {
		message = err.Error()
	}
	writeJSON(w, http.StatusInternalServerError, envelope{Success: false, Code: "server_error", Message: message})
}

// fail maps workflow and driver errors onto the response taxonomy. Anything unrecognized is a 500.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	var opErr *operations.Error
	switch {
	case errors.As(err, &opErr):
		status, ok := errorStatus[opErr.Code]
		if !ok {
			status = http.StatusBadRequest
		}
		writeError(w, status, opErr.Code)
	case db.IsNotFound(err):
		writeError(w, http.StatusNotFound, "not_found")
	case db.IsUniqueViolation(err):
		writeError(w, http.StatusConflict, "duplicate_entry")
	case db.IsForeignKeyViolation(err):
		writeError(w, http.StatusBadRequest, "invalid_reference")
	case db.IsCheckViolation(err):
		writeError(w, http.StatusBadRequest, "invalid_value")
	default:
		s.serverError(w, r, err)
	}
}

func decodeJSON(r *http.Request, out interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(out)
}

// bind decodes the body into out and runs its validate tags. It writes the error response itself
// and reports whether the handler may continue.
func bind(w http.ResponseWriter, r *http.Request, out interface{}) bool {
	return bindBody(w, r, out, false)
}

// bindOptional is bind for endpoints whose body may be omitted entirely.
func bindOptional(w http.ResponseWriter, r *http.Request, out interface{}) bool {
	return bindBody(w, r, out, true)
}

func bindBody(w http.ResponseWriter, r *http.Request, out interface{}, optional bool) bool {
	if err := decodeJSON(r, out); err != nil && !(optional && errors.Is(err, io.EOF)) {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "payload_too_large")
			return false
		}
		writeError(w, http.StatusBadRequest, "invalid_request")
		return false
	}
	if err := validate.Struct(out); err != nil {
		writeValidation(w, err)
		return false
	}
	return true
}

func writeValidation(w http.ResponseWriter, err error) {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	fields := make([]fieldError, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fieldError{Field: fe.Field(), Message: validationMessage(fe)})
	}
	writeFieldErrors(w, fields)
}

func invalidField(w http.ResponseWriter, field, message string) {
	writeFieldErrors(w, []fieldError{{Field: field, Message: message}})
}

func writeFieldErrors(w http.ResponseWriter, fields []fieldError) {
	writeJSON(w, http.StatusBadRequest, envelope{
		Success: false,
		Code:    "validation_failed",
		Message: "Invalid data",
		Errors:  fields,
	})
}

// blankFields reports every named value that is empty, in field name order.
func blankFields(values map[string]string) []fieldError {
	names := make([]string, 0, len(values))
	for name, v := range values {
		if v == "" {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	fields := make([]fieldError, 0, len(names))
	for _, name := range names {
		fields = append(fields, fieldError{Field: name, Message: "is required"})
	}
	return fields
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at least %s characters", fe.Param())
		}
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at most %s characters", fe.Param())
		}
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "oneof":
		return "must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "uuid":
		return "must be a valid id"
	case "url":
		return "must be a valid URL"
	case "gtfield":
		return "must be after " + fe.Param()
	case "dive":
		return "contains an invalid item"
	default:
		return "is invalid"
	}
}

// pathID reads a uuid path parameter in canonical form.
func pathID(r *http.Request, name string) (string, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		return "", false
	}
	return id.String(), true
}

type page struct {
	Page   int
	Limit  int
	Offset int
}

const maxPageSize = 100

func parsePage(r *http.Request, defaultLimit int) page {
	query := r.URL.Query()
	p := page{Page: 1, Limit: defaultLimit}
	if v, err := strconv.Atoi(query.Get("page")); err == nil && v > 0 {
		p.Page = v
	}
	if v, err := strconv.Atoi(query.Get("limit")); err == nil && v > 0 {
		p.Limit = v
	}
	if p.Limit > maxPageSize {
		p.Limit = maxPageSize
	}
	p.Offset = (p.Page - 1) * p.Limit
	return p
}

func (p page) of(total int) pagination {
	return pagination{
		Page:  p.Page,
		Limit: p.Limit,
		Total: total,
		Pages: int(math.Ceil(float64(total) / float64(p.Limit))),
	}
}

func bearerToken(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// optionalString trims v and treats an empty result as absent.
func optionalString(v *string) *string {
	if v == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
