package source

import (
	"context"
	"fmt"

	"github.com/earthkit/fieldkit/config"
	"github.com/earthkit/fieldkit/field"
	"github.com/earthkit/fieldkit/fieldlist"
)

// Memory wraps fields already built in-process, so array-backed lists go
// through the same resolution path as file-backed ones.
type Memory struct {
	fl *fieldlist.FieldList
}

// NewMemory creates a memory source over an existing fieldlist.
func NewMemory(fl *fieldlist.FieldList) *Memory {
	return &Memory{fl: fl}
}

func memoryFactory(_ *config.Config, args Args) (Source, error) {
	switch v := args["fields"].(type) {
	case *fieldlist.FieldList:
		return NewMemory(v), nil
	case []field.Field:
		return NewMemory(fieldlist.New(v...)), nil
	default:
		return nil, fmt.Errorf("source argument \"fields\": want *fieldlist.FieldList or []field.Field, got %T", v)
	}
}

// FieldList returns the wrapped list unchanged.
func (s *Memory) FieldList(_ context.Context) (*fieldlist.FieldList, error) {
	return s.fl, nil
}
