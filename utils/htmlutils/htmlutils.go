// Copyright 2025 The TrafficMap Authors
// SPDX-License-Identifier: Apache-2.0

// Package htmlutils provides utility functions for working with HTML.
package htmlutils

import (
	"bytes"
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"
)

const maxSummaryRunes = 200

// IsHTML reports whether a media type, as sent in Content-Type, is HTML.
func IsHTML(media string) bool {
	const expectedMedia = "text/html"

	return strings.EqualFold(
		expectedMedia,
		media[0:min(len(media), len(expectedMedia))],
	)
}

// Text appends the visible text of n to sb, one space between text nodes.
func Text(n *html.Node, sb *strings.Builder) {
	if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
		return
	}

	if n.Type == html.TextNode {
		tmp := strings.Join(strings.Fields(n.Data), " ")
		if tmp == "" {
			return
		}

		if sb.Len() != 0 {
			sb.WriteByte(' ')
		}

		sb.WriteString(tmp)

		return
	}

	for child := n.FirstChild; child != nil; child = child.NextSibling {
		Text(child, sb)
	}
}

func find(n *html.Node, tag string) *html.Node {
	if n.Type == html.ElementNode && strings.EqualFold(n.Data, tag) {
		return n
	}

	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if found := find(child, tag); found != nil {
			return found
		}
	}

	return nil
}

// Summary reduces an HTML document, usually an error page of a proxy or a
// load balancer, to one line: its title, or the start of its body text when
// it has no title.
func Summary(body []byte, media string) (string, error) {
	r, err := charset.NewReader(bytes.NewReader(body), media)
	if err != nil {
		return "", fmt.Errorf("decoding %s: %w", media, err)
	}

	doc, err := html.Parse(r)
	if err != nil {
		return "", fmt.Errorf("parsing body as HTML: %w", err)
	}

	var sb strings.Builder

	if title := find(doc, "title"); title != nil {
		Text(title, &sb)
	}

	if sb.Len() == 0 {
		if b := find(doc, "body"); b != nil {
			Text(b, &sb)
		}
	}

	s := []rune(sb.String())
	if len(s) > maxSummaryRunes {
		return string(s[:maxSummaryRunes]) + "…", nil
	}

	return string(s), nil
}
