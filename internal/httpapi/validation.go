package httpapi

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/Freeeeeet/slot_booking/internal/model"
)

var registerOnce sync.Once

// registerValidators adds the domain tags to gin's validator.
func registerValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		_ = v.RegisterValidation("preference", validPreference)
		_ = v.RegisterValidation("urgency", validUrgency)
	})
}

func validPreference(fl validator.FieldLevel) bool {
	_, err := model.ParsePreference(fl.Field().String())
	return err == nil
}

func validUrgency(fl validator.FieldLevel) bool {
	_, err := model.ParseUrgency(fl.Field().String())
	return err == nil
}

// bindingMessage turns validator output into something a client can act on.
func bindingMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s is required", fe.Field()))
		case "preference":
			msgs = append(msgs, fmt.Sprintf("%s must be morning, afternoon or evening", fe.Field()))
		case "urgency":
			msgs = append(msgs, fmt.Sprintf("%s must be normal or high", fe.Field()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
		}
	}
	return strings.Join(msgs, "; ")
}
