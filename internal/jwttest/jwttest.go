// Package jwttest runs a fake BYU issuer for tests: a discovery endpoint, a
// certificate endpoint backed by a self-signed RSA certificate, and helpers
// to mint tokens signed by it.
package jwttest

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha1"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	DiscoveryPath = "/.well-known/openid-configuration"
	CertsPath     = "/oauth2/v3/certs"
)

// Key is a signing key with its self-signed certificate.
type Key struct {
	Private    *rsa.PrivateKey
	CertDER    []byte
	Thumbprint string
	KeyID      string
}

// NewKey generates an RSA key and a self-signed certificate for it.
func NewKey(t testing.TB, keyID string) *Key {
	t.Helper()

	private, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generating RSA key: %v", err)
	}

	template := &x509.Certificate{
		SerialNumber: big.NewInt(time.Now().UnixNano()),
		Subject:      pkix.Name{CommonName: "jwttest " + keyID},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(24 * time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,
	}
	der, err := x509.CreateCertificate(rand.Reader, template, template, &private.PublicKey, private)
	if err != nil {
		t.Fatalf("creating certificate: %v", err)
	}

	sum := sha1.Sum(der)
	return &Key{
		Private:    private,
		CertDER:    der,
		Thumbprint: base64.RawURLEncoding.EncodeToString(sum[:]),
		KeyID:      keyID,
	}
}

// Sign returns an RS256 token over claims with x5t and kid set from the key.
func (k *Key) Sign(t testing.TB, claims map[string]any) string {
	t.Helper()
	return k.SignWithHeader(t, claims, nil)
}

// SignWithHeader is Sign with extra or replacement header fields.
func (k *Key) SignWithHeader(t testing.TB, claims map[string]any, header map[string]any) string {
	t.Helper()

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.MapClaims(claims))
	token.Header["x5t"] = k.Thumbprint
	token.Header["kid"] = k.KeyID
	for name, value := range header {
		token.Header[name] = value
	}

	signed, err := token.SignedString(k.Private)
	if err != nil {
		t.Fatalf("signing token: %v", err)
	}
	return signed
}

// Unsigned returns an alg "none" token carrying claims and header.
func Unsigned(t testing.TB, claims map[string]any, header map[string]any) string {
	t.Helper()

	token := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims(claims))
	for name, value := range header {
		token.Header[name] = value
	}

	signed, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("building unsigned token: %v", err)
	}
	return signed
}

// SignHS256 returns an HMAC token, useful for algorithm allow-list tests.
func SignHS256(t testing.TB, claims map[string]any, header map[string]any, secret []byte) string {
	t.Helper()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims(claims))
	for name, value := range header {
		token.Header[name] = value
	}

	signed, err := token.SignedString(secret)
	if err != nil {
		t.Fatalf("signing token: %v", err)
	}
	return signed
}

// Issuer is an httptest server that serves a discovery document and the
// certificate set for its keys.
type Issuer struct {
	Server *httptest.Server

	DiscoveryHits atomic.Int32
	CertHits      atomic.Int32

	mu              sync.Mutex
	keys            []*Key
	algs            []string
	cacheControl    string
	discoveryStatus int
	certStatus      int
	delay           time.Duration
}

// NewIssuer starts an issuer with one key. The server is closed with the test.
func NewIssuer(t testing.TB) *Issuer {
	t.Helper()

	issuer := &Issuer{
		keys:            []*Key{NewKey(t, "key-1")},
		algs:            []string{"RS256"},
		discoveryStatus: http.StatusOK,
		certStatus:      http.StatusOK,
	}

	mux := http.NewServeMux()
	mux.HandleFunc(DiscoveryPath, issuer.serveDiscovery)
	mux.HandleFunc(CertsPath, issuer.serveCerts)
	issuer.Server = httptest.NewServer(mux)
	t.Cleanup(issuer.Server.Close)

	return issuer
}

// URL is the issuer base URL.
func (i *Issuer) URL() string {
	return i.Server.URL
}

// DiscoveryURL is the discovery document URL.
func (i *Issuer) DiscoveryURL() string {
	return i.Server.URL + DiscoveryPath
}

// Key returns the current first key.
func (i *Issuer) Key() *Key {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.keys[0]
}

// Sign signs claims with the current first key.
func (i *Issuer) Sign(t testing.TB, claims map[string]any) string {
	t.Helper()
	return i.Key().Sign(t, claims)
}

// SetKeys replaces the published certificate set.
func (i *Issuer) SetKeys(keys ...*Key) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.keys = keys
}

// SetAlgorithms replaces id_token_signing_alg_values_supported.
func (i *Issuer) SetAlgorithms(algs ...string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.algs = algs
}

// SetCacheControl sets the Cache-Control header sent on both documents.
func (i *Issuer) SetCacheControl(value string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.cacheControl = value
}

// SetDiscoveryStatus makes the discovery endpoint answer with code.
func (i *Issuer) SetDiscoveryStatus(code int) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.discoveryStatus = code
}

// SetCertStatus makes the certificate endpoint answer with code.
func (i *Issuer) SetCertStatus(code int) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.certStatus = code
}

// SetDelay makes both endpoints wait d before answering.
func (i *Issuer) SetDelay(d time.Duration) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.delay = d
}

func (i *Issuer) serveDiscovery(w http.ResponseWriter, _ *http.Request) {
	i.DiscoveryHits.Add(1)

	i.mu.Lock()
	status, cacheControl, algs, delay := i.discoveryStatus, i.cacheControl, i.algs, i.delay
	i.mu.Unlock()
	time.Sleep(delay)

	i.writeJSON(w, status, cacheControl, map[string]any{
		"issuer":                                i.Server.URL,
		"authorization_endpoint":                i.Server.URL + "/authorize",
		"token_endpoint":                        i.Server.URL + "/token",
		"userinfo_endpoint":                     i.Server.URL + "/userinfo",
		"revocation_endpoint":                   i.Server.URL + "/revoke",
		"jwks_uri":                              i.Server.URL + CertsPath,
		"response_types_supported":              []string{"code", "token"},
		"subject_types_supported":               []string{"public"},
		"id_token_signing_alg_values_supported": algs,
		"scopes_supported":                      []string{"openid"},
	})
}

func (i *Issuer) serveCerts(w http.ResponseWriter, _ *http.Request) {
	i.CertHits.Add(1)

	i.mu.Lock()
	status, cacheControl, keys, delay := i.certStatus, i.cacheControl, i.keys, i.delay
	i.mu.Unlock()
	time.Sleep(delay)

	entries := make([]map[string]any, 0, len(keys))
	for _, key := range keys {
		entries = append(entries, map[string]any{
			"kty": "RSA",
			"use": "sig",
			"kid": key.KeyID,
			"x5t": key.Thumbprint,
			"n":   base64.RawURLEncoding.EncodeToString(key.Private.N.Bytes()),
			"e":   "AQAB",
			"x5c": []string{base64.StdEncoding.EncodeToString(key.CertDER)},
		})
	}

	i.writeJSON(w, status, cacheControl, map[string]any{"keys": entries})
}

func (i *Issuer) writeJSON(w http.ResponseWriter, status int, cacheControl string, body any) {
	if status != http.StatusOK {
		w.WriteHeader(status)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if cacheControl != "" {
		w.Header().Set("Cache-Control", cacheControl)
	}
	_ = json.NewEncoder(w).Encode(body)
}

// Claims returns a realistic gateway payload for a resource owner acting
// through a client application, expiring in an hour. Overrides replace or add
// keys; a nil override value deletes the key.
func Claims(apiContext string, overrides map[string]any) map[string]any {
	claims := map[string]any{
		"iss": "https://api.byu.edu",
		"exp": time.Now().Add(time.Hour).Unix(),
		"iat": time.Now().Add(-time.Minute).Unix(),
		"aud": []string{apiContext},

		"http://wso2.org/claims/apicontext":      apiContext,
		"http://wso2.org/claims/applicationid":   "1234",
		"http://wso2.org/claims/applicationname": "DefaultApplication",
		"http://wso2.org/claims/applicationtier": "Unlimited",
		"http://wso2.org/claims/client_id":       "client-abc",
		"http://wso2.org/claims/enduser":         "jdoe@carbon.super",
		"http://wso2.org/claims/enduserTenantId": "-1234",
		"http://wso2.org/claims/keytype":         "PRODUCTION",
		"http://wso2.org/claims/subscriber":      "BYU/appowner",
		"http://wso2.org/claims/tier":            "Unlimited",
		"http://wso2.org/claims/usertype":        "APPLICATION_USER",
		"http://wso2.org/claims/version":         "v1",

		"http://byu.edu/claims/client_byu_id":               "111111111",
		"http://byu.edu/claims/client_claim_source":         "CLIENT_SUBSCRIBER",
		"http://byu.edu/claims/client_net_id":               "appowner",
		"http://byu.edu/claims/client_person_id":            "111111111",
		"http://byu.edu/claims/client_preferred_first_name": "App",
		"http://byu.edu/claims/client_name_prefix":          "",
		"http://byu.edu/claims/client_rest_of_name":         "App",
		"http://byu.edu/claims/client_sort_name":            "Owner, App",
		"http://byu.edu/claims/client_subscriber_net_id":    "appowner",
		"http://byu.edu/claims/client_name_suffix":          "",
		"http://byu.edu/claims/client_surname":              "Owner",
		"http://byu.edu/claims/client_surname_position":     "L",

		"http://byu.edu/claims/resourceowner_byu_id":               "222222222",
		"http://byu.edu/claims/resourceowner_net_id":               "jdoe",
		"http://byu.edu/claims/resourceowner_person_id":            "222222222",
		"http://byu.edu/claims/resourceowner_preferred_first_name": "Jane",
		"http://byu.edu/claims/resourceowner_prefix":               "",
		"http://byu.edu/claims/resourceowner_rest_of_name":         "Jane",
		"http://byu.edu/claims/resourceowner_sort_name":            "Doe, Jane",
		"http://byu.edu/claims/resourceowner_suffix":               "",
		"http://byu.edu/claims/resourceowner_surname":              "Doe",
		"http://byu.edu/claims/resourceowner_surname_position":     "L",
	}

	for key, value := range overrides {
		if value == nil {
			delete(claims, key)
			continue
		}
		claims[key] = value
	}
	return claims
}

// ClientOnly removes every resource-owner claim from claims.
func ClientOnly(claims map[string]any) map[string]any {
	for key := range claims {
		if strings.HasPrefix(key, resourceOwnerPrefix) {
			delete(claims, key)
		}
	}
	return claims
}

const resourceOwnerPrefix = "http://byu.edu/claims/resourceowner_"
