// Package ledger records commission collections and transfers against deals.
package ledger

import (
	"errors"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/commissiondesk/internal/shared"
)

// Recipient types accepted by a transfer.
const (
	RecipientAgent   = "agent"
	RecipientManager = "manager"
)

var amountPattern = regexp.MustCompile(`^[0-9]*\.?[0-9]*$`)

// CollectionForm is the collect commission modal.
type CollectionForm struct {
	SourceID         string `json:"sourceId" validate:"required"`
	CollectionTypeID string `json:"collectionTypeId" validate:"required"`
	Amount           string `json:"amount" validate:"required,amount"`
	CollectionDate   string `json:"collectionDate" validate:"required,datetime=2006-01-02T15:04:05Z07:00"`
	Notes            string `json:"notes" validate:"max=2000"`
}

// TransferForm is the transfer commission modal.
type TransferForm struct {
	RecipientType string `json:"recipientType" validate:"required,oneof=agent manager"`
	RecipientID   string `json:"recipientId" validate:"required"`
	Amount        string `json:"amount" validate:"required,amount"`
	Notes         string `json:"notes" validate:"max=2000"`
}

// newValidator registers the amount rule and reports fields by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("amount", func(fl validator.FieldLevel) bool {
		_, ok := parseAmount(fl.Field().String())
		return ok
	})
	return v
}

// parseAmount accepts digits with at most one decimal point and a strictly positive value.
func parseAmount(raw string) (decimal.Decimal, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "." || !amountPattern.MatchString(raw) {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(raw)
	if err != nil || !d.IsPositive() {
		return decimal.Zero, false
	}
	return d, true
}

func validate(v *validator.Validate, form any) error {
	err := v.Struct(form)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	fields := shared.FieldErrors{}
	for _, fe := range verrs {
		fields[fe.Field()] = fieldMessage(fe)
	}
	return &shared.ValidationError{Fields: fields}
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		switch fe.Field() {
		case "sourceId":
			return "Select a collection source"
		case "collectionTypeId":
			return "Select a collection type"
		case "recipientId":
			return "Select a recipient"
		case "recipientType":
			return "Select a recipient type"
		}
		return "This field is required"
	case "amount":
		return "Enter an amount greater than zero"
	case "datetime":
		return "Enter a valid date"
	case "oneof":
		return "Recipient type must be agent or manager"
	case "max":
		return "Too long"
	default:
		return "Invalid value"
	}
}

// newCollectionForm is the empty form shown when the modal opens.
func newCollectionForm(now time.Time) CollectionForm {
	return CollectionForm{CollectionDate: now.UTC().Format(time.RFC3339)}
}
