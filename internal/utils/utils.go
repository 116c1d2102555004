package utils

import (
	"net/http"
	"regexp"
	"strings"

	"github.com/gi8lino/lptriage/internal/launchpad"
)

// oauthSecretParam matches OAuth parameters whose values must not be logged.
var oauthSecretParam = regexp.MustCompile(`(oauth_token|oauth_signature)="([^"]*)"`)

// ObfuscateHeader returns an obfuscated Authorization header.
// For OAuth headers the token and signature values are masked; for other
// schemes the credential keeps only its first 2 and last 2 characters.
// Example: `OAuth ..., oauth_token="ab****yz", ...` or "Bearer ab******yz"
func ObfuscateHeader(auth string) string {
	if auth == "" {
		return ""
	}

	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 {
		return "[invalid header]"
	}
	scheme := parts[0]

	if strings.EqualFold(scheme, "OAuth") {
		return scheme + " " + oauthSecretParam.ReplaceAllStringFunc(parts[1], func(m string) string {
			sub := oauthSecretParam.FindStringSubmatch(m)
			return sub[1] + `="` + mask(sub[2]) + `"`
		})
	}
	return scheme + " " + mask(strings.TrimSpace(parts[1]))
}

// mask replaces all but the first 2 and last 2 characters with '*'.
// Values of 4 characters or fewer are fully masked.
func mask(token string) string {
	n := len(token)
	if n <= 4 {
		return strings.Repeat("*", n)
	}
	return token[:2] + strings.Repeat("*", n-4) + token[n-2:]
}

// GetAuthorizationHeader returns the "Authorization" header value that would be set
// by the provided AuthFunc on a dummy HTTP request.
func GetAuthorizationHeader(authFunc launchpad.AuthFunc) string {
	req, _ := http.NewRequest("GET", "https://dummy", nil)
	authFunc(req)
	return req.Header.Get("Authorization")
}
