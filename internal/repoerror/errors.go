// Package repoerror defines the failure taxonomy of the transaction repository.
//
// Storage faults are wrapped in a *RepositoryError tagged with the operation
// that failed. A missing record is reported with the ErrNotFound sentinel and
// is never wrapped in a failure kind.
package repoerror

import (
	"errors"
	"fmt"
)

// ErrNotFound reports that the addressed record does not exist.
var ErrNotFound = errors.New("record not found")

// Op names the repository operation a RepositoryError came from.
type Op string

const (
	OpSave   Op = "save"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
	OpFetch  Op = "fetch"
)

// RepositoryError wraps an underlying storage fault.
type RepositoryError struct {
	Op  Op
	ID  string // empty for multi-record reads
	Err error
}

func (e *RepositoryError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s failed for %s: %v", e.Op, e.ID, e.Err)
}

func (e *RepositoryError) Unwrap() error {
	return e.Err
}

// SaveFailed wraps err as a save failure.
func SaveFailed(id string, err error) error {
	return wrap(OpSave, id, err)
}

// UpdateFailed wraps err as an update failure. ErrNotFound passes through.
func UpdateFailed(id string, err error) error {
	return wrap(OpUpdate, id, err)
}

// DeleteFailed wraps err as a delete failure. ErrNotFound passes through.
func DeleteFailed(id string, err error) error {
	return wrap(OpDelete, id, err)
}

// FetchFailed wraps err as a fetch failure.
func FetchFailed(id string, err error) error {
	return wrap(OpFetch, id, err)
}

func wrap(op Op, id string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) {
		return ErrNotFound
	}
	var re *RepositoryError
	if errors.As(err, &re) {
		return err
	}
	return &RepositoryError{Op: op, ID: id, Err: err}
}

// IsOp reports whether err is a RepositoryError for op.
func IsOp(err error, op Op) bool {
	var re *RepositoryError
	return errors.As(err, &re) && re.Op == op
}

// UserMessage maps an error to the single line shown to a user.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, ErrNotFound) {
		return "データが見つかりません"
	}
	var re *RepositoryError
	if errors.As(err, &re) {
		switch re.Op {
		case OpSave:
			return "保存に失敗しました: " + re.Err.Error()
		case OpUpdate:
			return "更新に失敗しました: " + re.Err.Error()
		case OpDelete:
			return "削除に失敗しました: " + re.Err.Error()
		case OpFetch:
			return "取得に失敗しました: " + re.Err.Error()
		}
	}
	return err.Error()
}
