package poller

import (
	"errors"
	"fmt"
)

// Ошибки poller'а.
var (
	// ErrStopped — Start вызван после Stop.
	ErrStopped = errors.New("poller stopped")

	// ErrInvalidInterval — отрицательный интервал.
	ErrInvalidInterval = errors.New("invalid poller interval")

	// ErrInvalidConfig — не заданы обязательные зависимости.
	ErrInvalidConfig = errors.New("invalid poller config")

	// ErrLockNotHeld — Release без парного Acquire.
	ErrLockNotHeld = errors.New("scheduler lock not held")

	// ErrDuplicatePoller — poller с таким именем уже зарегистрирован в Group.
	ErrDuplicatePoller = errors.New("duplicate poller name")

	// ErrPollerNotFound — poller не найден в Group.
	ErrPollerNotFound = errors.New("poller not found")
)

// FatalError помечает ошибку как небезопасное состояние процесса.
// Такая ошибка уходит в Aborter, а не в Notifier.
type FatalError struct {
	Err error
}

func (e *FatalError) Error() string {
	return "fatal: " + e.Err.Error()
}

func (e *FatalError) Unwrap() error {
	return e.Err
}

// Fatal оборачивает err в FatalError. Fatal(nil) == nil.
func Fatal(err error) error {
	if err == nil {
		return nil
	}
	return &FatalError{Err: err}
}

// IsFatal проверяет, помечена ли ошибка (или любая из обёрнутых) как fatal.
func IsFatal(err error) bool {
	var fe *FatalError
	return errors.As(err, &fe)
}

// PanicError — паника, пойманная внутри действия.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic in poller action: %v", e.Value)
}
