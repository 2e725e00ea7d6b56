package render

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Machine readable code sent along with token errors
const TokenNotValidCode = "token_not_valid"

var validate = validator.New()

func init() {
	// Return on 'TagName' json tag instead of struct name
	// Look at documentation of 'RegisterTagNameFunc' for more details
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		// skip if tag key says it should be ignored
		if name == "-" {
			return ""
		}
		return name
	})
}

type Struct any

// Error for the whole request
type DetailResponse struct {
	Detail string `json:"detail"`
	Code   string `json:"code,omitempty"`
}

// Errors per request field
type FieldErrorsResponse struct {
	Errors map[string][]string `json:"errors"`
}

func JSON(w http.ResponseWriter, data any) {
	jsonWithStatus(w, data, http.StatusOK)
}

// Render error with human readable detail
func Detail(w http.ResponseWriter, detail string, code int) {
	jsonWithStatus(w, DetailResponse{Detail: detail}, code)
}

// Render 401 for invalid or expired token
func TokenNotValid(w http.ResponseWriter, detail string) {
	jsonWithStatus(w, DetailResponse{Detail: detail, Code: TokenNotValidCode}, http.StatusUnauthorized)
}

// Render json DecodeError
func DecodeError(w http.ResponseWriter, err error) {
	var detail string

	// Try to provide more specific error message based on error type
	switch err := err.(type) {
	case *json.UnmarshalTypeError:
		detail = fmt.Sprintf("Invalid data type for field '%s'", err.Field)
	default:
		detail = fmt.Sprintf("JSON parse error - %s", err.Error())
	}

	Detail(w, detail, http.StatusBadRequest)
}

// Render ValidationErrors
func ValidationErrors(w http.ResponseWriter, errs validator.ValidationErrors) {
	response := FieldErrorsResponse{
		Errors: make(map[string][]string, len(errs)),
	}

	// Create user-friendly error messages based on validation tag
	for _, fieldError := range errs {
		var message string
		switch fieldError.Tag() {
		case "required":
			message = "This field is required."
		case "min":
			message = fmt.Sprintf("Ensure this field has at least %s characters.", fieldError.Param())
		case "max":
			message = fmt.Sprintf("Ensure this field has no more than %s characters.", fieldError.Param())
		default:
			message = "Invalid value."
		}

		response.Errors[fieldError.Field()] = append(response.Errors[fieldError.Field()], message)
	}

	jsonWithStatus(w, response, http.StatusBadRequest)
}

// BindAndValidate decodes JSON request body into type T and validates it using struct tags.
// Returns the decoded value and writes appropriate error responses for decoding or validation failures.
func BindAndValidate[T Struct](w http.ResponseWriter, r *http.Request) (T, error) {
	var value T

	err := json.NewDecoder(r.Body).Decode(&value)
	if err != nil {
		DecodeError(w, err)
		return value, err
	}

	err = validate.Struct(value)
	if err != nil {
		// pretty sure cast will be ok cause expecting T is valid struct
		errs := err.(validator.ValidationErrors)
		ValidationErrors(w, errs)
		return value, err
	}

	return value, nil
}

// jsonWithStatus sends data as json and enforces status code
func jsonWithStatus(w http.ResponseWriter, data any, code int) {
	buf := &bytes.Buffer{}
	enc := json.NewEncoder(buf)

	if err := enc.Encode(data); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_, _ = w.Write(buf.Bytes())
}
