package repository

import (
	"errors"
	"fmt"

	"github.com/Dhoini/affiliate-service/internal/domain"
)

var (
	// ErrNotFound запись не найдена
	ErrNotFound = fmt.Errorf("repository: %w", domain.ErrNotFound)

	// ErrDuplicate дубликат записи (нарушение уникального индекса)
	ErrDuplicate = fmt.Errorf("repository: %w", domain.ErrDuplicate)

	// ErrInvalidData неверные данные
	ErrInvalidData = errors.New("invalid data")
)
