package common

import (
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"resumatch/internal/errors"
	"resumatch/internal/skills"
	"resumatch/internal/types"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// ValidateOutputFormat validates format against configured supported formats
func ValidateOutputFormat(format string, supportedFormats []string) error {
	if len(supportedFormats) == 0 {
		return nil // No restrictions configured
	}

	if slices.Contains(supportedFormats, format) {
		return nil
	}

	return fmt.Errorf("unsupported output format '%s'. Supported formats: %v",
		format, supportedFormats)
}

// ParseWeights reads "technical=60,soft=40,operational=20". Categories that
// are not named keep their value from base.
func ParseWeights(spec string, base skills.Weights) (skills.Weights, error) {
	w := base
	if strings.TrimSpace(spec) == "" {
		return w, nil
	}

	for _, pair := range strings.Split(spec, ",") {
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			return w, errors.NewValidationError(errors.ErrCodeInvalidWeights,
				fmt.Sprintf("expected category=value, got %q", strings.TrimSpace(pair)), nil)
		}
		n, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return w, errors.NewValidationError(errors.ErrCodeInvalidWeights,
				fmt.Sprintf("weight for %s is not a number", strings.TrimSpace(key)), err)
		}

		switch skills.Category(strings.ToLower(strings.TrimSpace(key))) {
		case skills.Technical:
			w.Technical = n
		case skills.Soft:
			w.Soft = n
		case skills.Operational:
			w.Operational = n
		default:
			return w, errors.NewValidationError(errors.ErrCodeInvalidWeights,
				fmt.Sprintf("unknown category %q", strings.TrimSpace(key)), nil)
		}
	}
	return w, ValidateWeights(w)
}

// ValidateWeights requires every category weight to be finite and positive.
func ValidateWeights(w skills.Weights) error {
	for _, c := range skills.Categories {
		v := w.For(c)
		if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
			return errors.NewValidationError(errors.ErrCodeInvalidWeights,
				fmt.Sprintf("weight for %s must be a positive number", c), nil)
		}
	}
	return nil
}

// ValidateRequest checks an analysis request before it reaches the matcher.
func ValidateRequest(req types.AnalysisRequest) error {
	if strings.TrimSpace(req.JobDescription) == "" {
		return errors.NewValidationError(errors.ErrCodeEmptyJobDescription,
			"job description is empty", nil)
	}
	if err := validate.Struct(req); err != nil {
		return errors.NewValidationError(errors.ErrCodeInvalidRequest,
			describeValidation(err), err)
	}
	if req.Weights != nil {
		return ValidateWeights(*req.Weights)
	}
	return nil
}

// describeValidation turns validator output into a short message naming the
// offending fields.
func describeValidation(err error) string {
	var fields []string
	if verrs, ok := err.(validator.ValidationErrors); ok {
		for _, fe := range verrs {
			fields = append(fields, fmt.Sprintf("%s (%s)", fe.Field(), fe.Tag()))
		}
	}
	if len(fields) == 0 {
		return "invalid request"
	}
	return "invalid request: " + strings.Join(fields, ", ")
}

// ValidateJob checks a queued job before any object is fetched for it.
func ValidateJob(job types.Job) error {
	if err := validate.Struct(job); err != nil {
		return errors.NewValidationError(errors.ErrCodeInvalidRequest,
			strings.Replace(describeValidation(err), "request", "job", 1), err)
	}
	if strings.TrimSpace(job.JobDescription) == "" {
		return errors.NewValidationError(errors.ErrCodeEmptyJobDescription,
			"job description is empty", nil)
	}
	if job.Weights != nil {
		return ValidateWeights(*job.Weights)
	}
	return nil
}
