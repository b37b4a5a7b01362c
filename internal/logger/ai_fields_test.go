package logger

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestStringFields(t *testing.T) {
	fields := StringFields(
		StringField{Key: "  provider  ", Value: "  Gemini  "},
		StringField{Key: "ignored", Value: "   "},
		StringField{Key: "   ", Value: "empty key"},
	)

	if len(fields) != 1 {
		t.Fatalf("expected 1 field, got %d", len(fields))
	}

	if fields[0].Key != "provider" || fields[0].String != "Gemini" {
		t.Fatalf("unexpected provider field: %+v", fields[0])
	}

	if empty := StringFields(); len(empty) != 0 {
		t.Fatalf("expected empty fields, got %d", len(empty))
	}
}

func TestWithCommonFields(t *testing.T) {
	core, observed := observer.New(zapcore.InfoLevel)

	enriched := WithCommonFields(zap.New(core), "gemini", "model-x")
	enriched.Info("test log")

	entries := observed.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}

	ctx := entries[0].ContextMap()
	if ctx[FieldProvider] != "gemini" {
		t.Fatalf("expected provider field to be gemini, got %q", ctx[FieldProvider])
	}
	if ctx[FieldModel] != "model-x" {
		t.Fatalf("expected model field to be model-x, got %q", ctx[FieldModel])
	}

	if fallback := WithCommonFields(nil, "gemini", "model-x"); fallback == nil {
		t.Fatalf("expected fallback logger when nil provided")
	}
}

func TestForOperation(t *testing.T) {
	core, observed := observer.New(zapcore.DebugLevel)

	ForOperation(zap.New(core), "reconciliation").Debug("call")
	ForOperation(zap.New(core), "  ").Debug("no operation")

	entries := observed.All()
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].ContextMap()[FieldOperation] != "reconciliation" {
		t.Fatalf("expected operation field, got %v", entries[0].ContextMap())
	}
	if _, ok := entries[1].ContextMap()[FieldOperation]; ok {
		t.Fatalf("did not expect operation field for blank value")
	}
}

func TestNewLogger(t *testing.T) {
	for _, json := range []bool{true, false} {
		l, err := New(json, true)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !l.Core().Enabled(zapcore.DebugLevel) {
			t.Fatalf("expected debug level to be enabled")
		}
	}

	if OrNop(nil) == nil {
		t.Fatalf("expected no-op logger")
	}
}
