// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package utils

import (
	"context"
	"testing"
)

func TestContextKeyString(t *testing.T) {
	key := contextKey("testKey")
	if key.String() != "testKey" {
		t.Errorf("expected 'testKey', got '%s'", key.String())
	}
}

func TestActorCtxKey(t *testing.T) {
	if ActorCtxKey.String() != "actor" {
		t.Errorf("expected 'actor', got '%s'", ActorCtxKey.String())
	}
}

func TestGetActorFromContext_Success(t *testing.T) {
	ctx := WithActor(context.Background(), "admin")

	actor, ok := GetActorFromContext(ctx)

	if !ok {
		t.Fatal("expected ok=true, got false")
	}
	if actor != "admin" {
		t.Errorf("expected actor=admin, got %s", actor)
	}
}

func TestGetActorFromContext_Missing(t *testing.T) {
	actor, ok := GetActorFromContext(context.Background())

	if ok {
		t.Error("expected ok=false for missing value")
	}
	if actor != "" {
		t.Errorf("expected empty actor, got %q", actor)
	}
}

func TestGetActorFromContext_WrongType(t *testing.T) {
	ctx := context.WithValue(context.Background(), ActorCtxKey, 42)

	if _, ok := GetActorFromContext(ctx); ok {
		t.Error("expected ok=false for wrong type")
	}
}

func TestGetActorFromContext_Empty(t *testing.T) {
	ctx := WithActor(context.Background(), "")

	if _, ok := GetActorFromContext(ctx); ok {
		t.Error("expected ok=false for empty actor")
	}
}
