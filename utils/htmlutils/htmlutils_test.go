// Copyright 2025 The TrafficMap Authors
// SPDX-License-Identifier: Apache-2.0

package htmlutils

import (
	"strings"
	"testing"

	"golang.org/x/net/html"
)

func TestText(t *testing.T) {
	tests := []struct {
		expected string
		input    string
	}{
		{"foo bar", "<div><pre>foo</pre><span>bar</span>"},
		{"a b", "<p>  a \n\n b </p>"},
		{"visible", "<script>var x = 1;</script><style>p{}</style><p>visible</p>"},
	}

	for _, test := range tests {
		n, err := html.Parse(strings.NewReader(test.input))
		if err != nil {
			t.Fatalf("parsing HTML `%s': %s", test.input, err)
		}

		sb := strings.Builder{}
		Text(n, &sb)

		if got := sb.String(); got != test.expected {
			t.Errorf("`%s': expected `%v' but got `%v'", test.input, test.expected, got)
		}
	}
}

func TestIsHTML(t *testing.T) {
	for media, want := range map[string]bool{
		"text/html; charset=utf-8": true,
		"TEXT/HTML":                true,
		"application/json":         false,
		"text/h":                   false,
		"":                         false,
	} {
		if got := IsHTML(media); got != want {
			t.Errorf("IsHTML(%q) = %v, want %v", media, got, want)
		}
	}
}

func TestSummary(t *testing.T) {
	tests := []struct {
		name     string
		media    string
		body     string
		expected string
	}{
		{
			name:     "title",
			media:    "text/html; charset=utf-8",
			body:     "<!DOCTYPE html><html><head><title>Error 404 (Not Found)!!1</title></head><body><p>That’s an error.</p></body></html>",
			expected: "Error 404 (Not Found)!!1",
		},
		{
			name:     "body only",
			media:    "text/html",
			body:     "<html><body><h1>502 Bad Gateway</h1><hr><center>nginx</center></body></html>",
			expected: "502 Bad Gateway nginx",
		},
		{
			name:     "latin1",
			media:    "text/html; charset=iso-8859-1",
			body:     "<title>Petici\xf3n inv\xe1lida</title>",
			expected: "Petición inválida",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Summary([]byte(tt.body), tt.media)
			if err != nil {
				t.Fatalf("unexpected error: %s", err)
			}

			if got != tt.expected {
				t.Errorf("expected %q but got %q", tt.expected, got)
			}
		})
	}
}

func TestSummaryIsBounded(t *testing.T) {
	got, err := Summary([]byte("<p>"+strings.Repeat("word ", 100)+"</p>"), "text/html")
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}

	if n := len([]rune(got)); n != maxSummaryRunes+1 {
		t.Errorf("expected %d runes, got %d", maxSummaryRunes+1, n)
	}

	if !strings.HasSuffix(got, "…") {
		t.Errorf("expected an ellipsis, got %q", got)
	}
}
