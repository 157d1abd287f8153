package importer_test

import (
	"errors"
	"fmt"
	"testing"

	"import-data/internal/importer"
)

func TestKindOf(t *testing.T) {
	base := errors.New("boom")

	tests := []struct {
		name string
		err  error
		want importer.Kind
	}{
		{"plain error", base, importer.KindOther},
		{"classified", importer.E(importer.KindNetwork, "fetch", base), importer.KindNetwork},
		{"wrapped classified", fmt.Errorf("outer: %w", importer.E(importer.KindMissingAPIKey, "map", base)), importer.KindMissingAPIKey},
		{"nil", nil, importer.KindOther},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := importer.KindOf(tt.err); got != tt.want {
				t.Errorf("KindOf() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestError(t *testing.T) {
	base := errors.New("connection refused")
	err := importer.E(importer.KindNetwork, "fetching events.json", base)

	if err.Error() != "fetching events.json: connection refused" {
		t.Errorf("Error() = %q", err.Error())
	}
	if !errors.Is(err, base) {
		t.Error("errors.Is() did not find wrapped error")
	}
	if importer.IsKind(nil, importer.KindOther) {
		t.Error("IsKind(nil) = true")
	}
}

func TestSlugIndex(t *testing.T) {
	idx := importer.NewSlugIndex()

	if !idx.Add("123", "123-first") {
		t.Fatal("Add() on empty index = false")
	}
	if idx.Add("123", "123-second") {
		t.Error("Add() with conflicting slug = true, want false")
	}
	if !idx.Add("123", "123-first") {
		t.Error("Add() with same slug = false, want true")
	}
	if slug, ok := idx.Lookup("123"); !ok || slug != "123-first" {
		t.Errorf("Lookup() = %q, %v; first claim should win", slug, ok)
	}
	if _, ok := idx.Lookup("999"); ok {
		t.Error("Lookup() found unknown id")
	}
	if idx.Len() != 1 {
		t.Errorf("Len() = %d, want 1", idx.Len())
	}
}

func TestParseMapOverwrite(t *testing.T) {
	tests := []struct {
		in      string
		want    importer.MapOverwrite
		wantErr bool
	}{
		{"", importer.OverwriteNone, true},
		{"all", importer.OverwriteNone, true},
		{"light", importer.OverwriteLight, false},
		{"dark", importer.OverwriteDark, false},
		{"sepia", importer.OverwriteNone, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := importer.ParseMapOverwrite(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseMapOverwrite(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseMapOverwrite(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}

	if !importer.OverwriteDark.Covers(importer.ThemeDark) || importer.OverwriteDark.Covers(importer.ThemeLight) {
		t.Error("OverwriteDark should cover only the dark theme")
	}
	if !importer.OverwriteAll.Covers(importer.ThemeLight) || importer.OverwriteNone.Covers(importer.ThemeLight) {
		t.Error("OverwriteAll covers every theme, OverwriteNone none")
	}
}
