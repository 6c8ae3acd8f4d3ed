package utils

import (
	"context"
	"testing"
	"time"
)

func TestClaimStoreInMemory(t *testing.T) {
	ctx := context.Background()
	s := NewClaimStore(nil)

	token, err := s.Claim(ctx, "42_Large", time.Minute)
	if err != nil || token == "" {
		t.Fatalf("first claim: token=%q err=%v", token, err)
	}
	other, err := s.Claim(ctx, "42_Large", time.Minute)
	if err != nil || other != "" {
		t.Fatalf("second claim must lose: token=%q err=%v", other, err)
	}
	if err := s.Release(ctx, "42_Large", token); err != nil {
		t.Fatalf("Release: %v", err)
	}
	token, err = s.Claim(ctx, "42_Large", time.Minute)
	if err != nil || token == "" {
		t.Fatalf("claim after release: token=%q err=%v", token, err)
	}
}

func TestClaimStoreExpiry(t *testing.T) {
	ctx := context.Background()
	s := NewClaimStore(nil)
	if token, _ := s.Claim(ctx, "k", time.Nanosecond); token == "" {
		t.Fatalf("first claim failed")
	}
	time.Sleep(time.Millisecond)
	if token, _ := s.Claim(ctx, "k", time.Minute); token == "" {
		t.Fatalf("expired claim should be reclaimable")
	}
}

func TestClaimStoreStaleReleaseKeepsNewOwner(t *testing.T) {
	ctx := context.Background()
	s := NewClaimStore(nil)

	stale, _ := s.Claim(ctx, "k", time.Nanosecond)
	if stale == "" {
		t.Fatalf("first claim failed")
	}
	time.Sleep(time.Millisecond)
	owner, _ := s.Claim(ctx, "k", time.Minute)
	if owner == "" {
		t.Fatalf("reclaim after expiry failed")
	}
	if err := s.Release(ctx, "k", stale); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if token, _ := s.Claim(ctx, "k", time.Minute); token != "" {
		t.Fatalf("stale release dropped the current claim")
	}
	if err := s.Release(ctx, "k", owner); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if token, _ := s.Claim(ctx, "k", time.Minute); token == "" {
		t.Fatalf("owner release did not free the claim")
	}
}
