package handlers

import (
	"errors"
	"net/http"
	"reflect"
	"regexp"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var (
	personNamePattern = regexp.MustCompile(`^[\p{L}\s\-'.]+$`)
	addressPattern    = regexp.MustCompile(`^[\p{L}\p{N}\s,\-.#'/]+$`)
	phonePattern      = regexp.MustCompile(`^[+]?[\d\s\-()]{10,20}$`)

	registerOnce sync.Once
)

// FieldError is one entry of a 400 response body
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// RegisterValidators adds the delivery-detail tags to gin's validator.
func RegisterValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		_ = v.RegisterValidation("personname", trimmedMatch(personNamePattern, 2, 200))
		_ = v.RegisterValidation("address", trimmedMatch(addressPattern, 5, 500))
		_ = v.RegisterValidation("phone", trimmedMatch(phonePattern, 1, 64))
		_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
			return strings.TrimSpace(fl.Field().String()) != ""
		})
	})
}

func trimmedMatch(re *regexp.Regexp, minRunes, maxRunes int) validator.Func {
	return func(fl validator.FieldLevel) bool {
		s := strings.TrimSpace(fl.Field().String())
		n := utf8.RuneCountInString(s)
		return n >= minRunes && n <= maxRunes && re.MatchString(s)
	}
}

var fieldMessages = map[string]string{
	"personname": "Name must be 2–200 characters and contain only letters, spaces, hyphens or apostrophes",
	"address":    "Address must be 5–500 characters of letters, numbers, spaces, and common punctuation (e.g. comma, hyphen, period, #)",
	"phone":      "Phone must be 10–20 digits (may include spaces, dashes, parentheses)",
	"notblank":   "menuItemId is required",
}

// bindErrors turns a binding failure into field errors.
func bindErrors(err error) []FieldError {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []FieldError{{Field: "body", Message: err.Error()}}
	}

	out := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, FieldError{Field: fieldPath(fe), Message: fieldMessage(fe)})
	}
	return out
}

// fieldPath drops the request type from the namespace:
// PlaceOrderRequest.items[0].quantity -> items[0].quantity
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func fieldMessage(fe validator.FieldError) string {
	if msg, ok := fieldMessages[fe.Tag()]; ok {
		return msg
	}
	switch {
	case fe.Field() == "quantity":
		return "Quantity must be between 1 and 99"
	case fe.Field() == "items":
		return "At least one item is required"
	case fe.Tag() == "required":
		return fe.Field() + " is required"
	}
	return fe.Field() + " is invalid"
}

// abortWithBindError answers a failed ShouldBindJSON.
func abortWithBindError(c *gin.Context, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{"error": "Request body too large"})
		return
	}
	abortWithFieldErrors(c, bindErrors(err))
}

func abortWithFieldErrors(c *gin.Context, errs []FieldError) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"errors": errs})
}
