package main

import (
	"reflect"
	"testing"
)

func TestPreviewAddUnionsWithoutDuplicates(t *testing.T) {
	got := previewAdd(nil, []string{"alice"}, []string{"bob", "alice"})
	want := []string{"alice", "bob"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestPreviewRemoveDropsNamedMembers(t *testing.T) {
	got := previewRemove(nil, []string{"alice", "bob", "carol"}, []string{"bob"})
	want := []string{"alice", "carol"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestPreviewOnlyReplacesFocusEntirely(t *testing.T) {
	got := previewOnly(nil, []string{"alice"}, []string{"bob"})
	want := []string{"bob"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestPreviewNoneClearsFocus(t *testing.T) {
	if got := previewNone(nil, []string{"alice"}, nil); got != nil {
		t.Fatalf("expected nil, got %v", got)
	}
}
