// Package auth resolves the identity a request is rate limited under.
package auth

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"strings"
	"time"

	"github.com/SurajPatil2645/VentureFlow/internal/common/logging"

	"github.com/golang-jwt/jwt/v5"
)

const (
	userPrefix = "user:"
	ipPrefix   = "ip:"
)

// Auth resolves caller identities. With a secret configured, a verified
// HS256 bearer token identifies the caller by its subject; everything else
// falls back to the client address.
type Auth struct {
	secret  []byte
	proxies []netip.Prefix
	logger  logging.Logger
}

type Option func(*Auth)

// WithTrustedProxies lets requests arriving from these networks name the
// client through X-Forwarded-For or X-Real-IP. Without it the headers are
// ignored.
func WithTrustedProxies(proxies []netip.Prefix) Option {
	return func(a *Auth) { a.proxies = proxies }
}

func New(secret string, logger logging.Logger, opts ...Option) *Auth {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	a := &Auth{
		secret: []byte(secret),
		logger: logger.WithFields(logging.String("component", "auth")),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// ParseTrustedProxies reads a comma separated list of CIDRs or bare
// addresses. An empty list trusts nobody.
func ParseTrustedProxies(list string) ([]netip.Prefix, error) {
	var out []netip.Prefix
	for _, item := range strings.Split(list, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		if strings.Contains(item, "/") {
			prefix, err := netip.ParsePrefix(item)
			if err != nil {
				return nil, fmt.Errorf("invalid proxy network %q: %w", item, err)
			}
			out = append(out, prefix.Masked())
			continue
		}
		addr, err := netip.ParseAddr(item)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy address %q: %w", item, err)
		}
		addr = addr.Unmap()
		out = append(out, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return out, nil
}

// Identify returns "user:<sub>" for a valid bearer token, otherwise
// "ip:<address>" as resolved by ClientIP.
func (a *Auth) Identify(r *http.Request) string {
	if subject, ok := a.subject(r); ok {
		return userPrefix + subject
	}
	return ipPrefix + a.ClientIP(r)
}

// Middleware stores the resolved identity in the request context
func (a *Auth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), logging.IdentityKey, a.Identify(r))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// IdentityFromContext returns the identity stored by Middleware
func IdentityFromContext(ctx context.Context) string {
	identity, _ := ctx.Value(logging.IdentityKey).(string)
	return identity
}

// IssueToken signs a token for subject. Used by operators and tests to mint
// caller credentials.
func (a *Auth) IssueToken(subject string, ttl time.Duration) (string, error) {
	now := time.Now().UTC()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

func (a *Auth) subject(r *http.Request) (string, bool) {
	if len(a.secret) == 0 {
		return "", false
	}

	header := r.Header.Get("Authorization")
	raw, found := strings.CutPrefix(header, "Bearer ")
	if !found || raw == "" {
		return "", false
	}

	var claims jwt.RegisteredClaims
	token, err := jwt.ParseWithClaims(raw, &claims, func(token *jwt.Token) (any, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		a.logger.Debug("Ignoring invalid bearer token", logging.Err(err))
		return "", false
	}

	if claims.Subject == "" {
		return "", false
	}
	return claims.Subject, true
}

// ClientIP is the host of the remote address unless that peer is a trusted
// proxy. Behind one, X-Forwarded-For is walked from the right and the first
// hop outside the trusted networks wins; X-Real-IP is used when there is no
// forwarding chain.
func (a *Auth) ClientIP(r *http.Request) string {
	peer := RemoteIP(r)
	if !a.trusted(peer) {
		return peer
	}

	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		hops := strings.Split(forwarded, ",")
		client := peer
		for i := len(hops) - 1; i >= 0; i-- {
			hop := strings.TrimSpace(hops[i])
			if _, err := netip.ParseAddr(hop); err != nil {
				break
			}
			client = hop
			if !a.trusted(hop) {
				break
			}
		}
		return client
	}

	if realIP := strings.TrimSpace(r.Header.Get("X-Real-IP")); realIP != "" {
		if _, err := netip.ParseAddr(realIP); err == nil {
			return realIP
		}
	}
	return peer
}

func (a *Auth) trusted(ip string) bool {
	if len(a.proxies) == 0 {
		return false
	}
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, prefix := range a.proxies {
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}

// RemoteIP is the host part of the remote address, ignoring any headers
func RemoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
