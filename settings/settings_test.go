package settings

import (
	"context"
	"testing"

	"github.com/cppla/frypillows/models"
)

func TestMemoryStoreMergePreservesUnspecifiedKeys(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	got, err := s.Get(ctx, "guild-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if _, ok := got.ModRoleID(); ok {
		t.Fatalf("unknown guild must not have a mod role")
	}

	if _, err := s.Merge(ctx, "guild-1", models.GuildSettings{models.SettingModRoleID: "role-mod"}); err != nil {
		t.Fatalf("Merge: %v", err)
	}
	merged, err := s.Merge(ctx, "guild-1", models.GuildSettings{models.SettingPillowChannelID: "chan-1"})
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if role, _ := merged.ModRoleID(); role != "role-mod" {
		t.Fatalf("modRoleId lost on merge: %v", merged)
	}
	if ch, _ := merged.PillowChannelID(); ch != "chan-1" {
		t.Fatalf("pillowChannelId not merged: %v", merged)
	}

	// Returned maps are copies.
	merged[models.SettingModRoleID] = "tampered"
	again, _ := s.Get(ctx, "guild-1")
	if role, _ := again.ModRoleID(); role != "role-mod" {
		t.Fatalf("store leaked its internal map: %v", again)
	}
}

func TestDecodeMissingKey(t *testing.T) {
	got, err := decode([]byte(`{"modRoleId":"r1","extra":3}`), nil)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if role, ok := got.ModRoleID(); !ok || role != "r1" {
		t.Fatalf("modRoleId: got=%q ok=%v", role, ok)
	}
	if _, err := decode([]byte(`not json`), nil); err == nil {
		t.Fatalf("decode: expected error for invalid JSON")
	}
}
