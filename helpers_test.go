package pubdraft

import (
	"strings"
	"testing"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Hello World", "hello-world"},
		{"  Big Photo (1) ", "big-photo-1"},
		{"---", ""},
		{"Café Crème", "cafe-creme"},
		{"日本語", ""},
		{strings.Repeat("ab ", 40), strings.TrimRight(strings.Repeat("ab-", 20), "-")},
	}
	for _, tt := range tests {
		if got := Slugify(tt.in); got != tt.want {
			t.Errorf("Slugify(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSlugifyFilenameFallback(t *testing.T) {
	got := slugifyFilename("???.png")
	if len(got) != len("image-")+8 || got[:6] != "image-" {
		t.Errorf("slugifyFilename fallback = %q", got)
	}
}

func TestFitWithin(t *testing.T) {
	tests := []struct {
		w, h, limit  int
		wantW, wantH int
	}{
		{3200, 800, 1600, 1600, 400},
		{800, 3200, 1600, 400, 1600},
		{2000, 2000, 1600, 1600, 1600},
		{10000, 1, 1600, 1600, 1},
	}
	for _, tt := range tests {
		w, h := fitWithin(tt.w, tt.h, tt.limit)
		if w != tt.wantW || h != tt.wantH {
			t.Errorf("fitWithin(%d, %d, %d) = %d x %d, want %d x %d", tt.w, tt.h, tt.limit, w, h, tt.wantW, tt.wantH)
		}
	}
}

func TestPageParams(t *testing.T) {
	tests := []struct {
		num, size           string
		limit, offset, page int
	}{
		{"", "", 10, 0, 1},
		{"3", "5", 5, 10, 3},
		{"0", "-1", 10, 0, 1},
		{"2", "500", 50, 50, 2},
		{"x", "y", 10, 0, 1},
	}
	for _, tt := range tests {
		limit, offset, page := pageParams(tt.num, tt.size, 10, 50)
		if limit != tt.limit || offset != tt.offset || page != tt.page {
			t.Errorf("pageParams(%q, %q) = %d, %d, %d, want %d, %d, %d",
				tt.num, tt.size, limit, offset, page, tt.limit, tt.offset, tt.page)
		}
	}
}
