package validator

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validator instance
var validate *validator.Validate

func init() {
	validate = validator.New()

	// Use JSON tag names in error messages
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// Register custom validations
	registerCustomValidations()
}

func registerCustomValidations() {
	// Claimable reward type validation (claim endpoint only accepts ad events)
	validate.RegisterValidation("claim_type", func(fl validator.FieldLevel) bool {
		t := fl.Field().String()
		return t == "ad_view" || t == "ad_engagement"
	})

	// Ledger transaction type filter validation
	validate.RegisterValidation("reward_type", func(fl validator.FieldLevel) bool {
		t := fl.Field().String()
		validTypes := []string{"ad_view", "ad_engagement", "referral_bonus", "withdrawal", "airdrop", "signup_bonus", ""}
		for _, v := range validTypes {
			if t == v {
				return true
			}
		}
		return false
	})

	// Hex wallet address shape (checksum is verified separately by the chain package)
	validate.RegisterValidation("eth_address", func(fl validator.FieldLevel) bool {
		addr := fl.Field().String()
		if addr == "" {
			return true
		}
		if len(addr) != 42 || !strings.HasPrefix(addr, "0x") {
			return false
		}
		for _, c := range addr[2:] {
			if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')) {
				return false
			}
		}
		return true
	})
}

// Validate validates a struct and returns a map of field errors
func Validate(s interface{}) map[string]string {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	errors := make(map[string]string)
	for _, err := range err.(validator.ValidationErrors) {
		field := err.Field()
		switch err.Tag() {
		case "required":
			errors[field] = "This field is required"
		case "min":
			errors[field] = "Value is too short (min: " + err.Param() + ")"
		case "max":
			errors[field] = "Value is too long (max: " + err.Param() + ")"
		case "gte":
			errors[field] = "Value must be at least " + err.Param()
		case "lte":
			errors[field] = "Value must be at most " + err.Param()
		case "claim_type":
			errors[field] = "Invalid claim type. Must be: ad_view or ad_engagement"
		case "reward_type":
			errors[field] = "Invalid transaction type"
		case "eth_address":
			errors[field] = "Invalid wallet address format"
		default:
			errors[field] = "Invalid value"
		}
	}

	return errors
}

// ValidateVar validates a single variable
func ValidateVar(field interface{}, tag string) error {
	return validate.Var(field, tag)
}
