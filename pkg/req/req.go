package req

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Decode декодирует JSON из io.Reader в структуру типа T.
func Decode[T any](body io.Reader) (T, error) {
	var payload T
	if err := json.NewDecoder(body).Decode(&payload); err != nil {
		return payload, err
	}
	return payload, nil
}

// IsValid валидирует структуру типа T по тегам `validate`.
func IsValid[T any](payload T) error {
	return validate.Struct(payload)
}

// DecodeBytes декодирует и валидирует JSON-сообщение (например, из Kafka).
func DecodeBytes[T any](data []byte) (*T, error) {
	var payload T
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	if err := IsValid(payload); err != nil {
		return nil, fmt.Errorf("validate payload: %w", err)
	}
	return &payload, nil
}

// FieldErrors превращает ошибку валидатора в пары поле -> тег.
func FieldErrors(err error) map[string]string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	out := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		out[fe.Field()] = fe.Tag()
	}
	return out
}
