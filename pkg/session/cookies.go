// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package session

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

const base64Prefix = "base64-"

// sb-<project ref>-auth-token, optionally chunked as .0, .1, ...
var authCookiePattern = regexp.MustCompile(`^(sb-.+-auth-token)(?:\.(\d+))?$`)

type tokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// accessTokenFromCookies returns the access token of the first auth cookie
// found on r, reassembling chunked cookies in index order.
func accessTokenFromCookies(r *http.Request) (string, bool) {
	type chunk struct {
		index int
		value string
	}

	groups := make(map[string][]chunk)
	for _, c := range r.Cookies() {
		m := authCookiePattern.FindStringSubmatch(c.Name)
		if m == nil {
			continue
		}

		index := -1
		if m[2] != "" {
			i, err := strconv.Atoi(m[2])
			if err != nil {
				continue
			}
			index = i
		}

		groups[m[1]] = append(groups[m[1]], chunk{index: index, value: c.Value})
	}

	names := make([]string, 0, len(groups))
	for name := range groups {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		chunks := groups[name]
		sort.Slice(chunks, func(i, j int) bool { return chunks[i].index < chunks[j].index })

		var value strings.Builder
		for _, c := range chunks {
			// an unchunked cookie wins over stray chunks
			if c.index == -1 {
				value.Reset()
				value.WriteString(c.value)
				break
			}
			value.WriteString(c.value)
		}

		if token, ok := parseCookieValue(value.String()); ok {
			return token, true
		}
	}

	return "", false
}

// parseCookieValue accepts raw JSON, base64- prefixed JSON or a JSON array
// whose first element is the access token.
func parseCookieValue(raw string) (string, bool) {
	if strings.Contains(raw, "%") {
		if unescaped, err := url.PathUnescape(raw); err == nil {
			raw = unescaped
		}
	}

	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}

	if strings.HasPrefix(raw, base64Prefix) {
		decoded, ok := decodeBase64(strings.TrimPrefix(raw, base64Prefix))
		if !ok {
			return "", false
		}
		raw = strings.TrimSpace(string(decoded))
	}

	switch raw[0] {
	case '{':
		var pair tokenPair
		if err := json.Unmarshal([]byte(raw), &pair); err != nil || pair.AccessToken == "" {
			return "", false
		}
		return pair.AccessToken, true
	case '[':
		var values []json.RawMessage
		if err := json.Unmarshal([]byte(raw), &values); err != nil || len(values) == 0 {
			return "", false
		}
		var token string
		if err := json.Unmarshal(values[0], &token); err != nil || token == "" {
			return "", false
		}
		return token, true
	}

	return "", false
}

func decodeBase64(s string) ([]byte, bool) {
	for _, enc := range []*base64.Encoding{
		base64.RawURLEncoding,
		base64.URLEncoding,
		base64.RawStdEncoding,
		base64.StdEncoding,
	} {
		if decoded, err := enc.DecodeString(s); err == nil {
			return decoded, true
		}
	}
	return nil, false
}
