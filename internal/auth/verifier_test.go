package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"testing"
)

func TestVerifyDevToken(t *testing.T) {
	v := &Verifier{Mode: "dev"}
	p, err := v.Verify("t_demo:analyst")
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if p.Tenant != "t_demo" || p.Role != "analyst" {
		t.Fatalf("principal: %+v", p)
	}
	if _, err := v.Verify("nocolon"); err == nil {
		t.Fatalf("malformed dev token accepted")
	}
}

func signHS256(t *testing.T, secret []byte, claims map[string]any) string {
	t.Helper()
	enc := func(v any) string {
		b, err := json.Marshal(v)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		return base64.RawURLEncoding.EncodeToString(b)
	}
	header := enc(map[string]string{"alg": "HS256", "typ": "JWT"})
	payload := enc(claims)
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(header + "." + payload))
	return header + "." + payload + "." + base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

func TestVerifyHMACToken(t *testing.T) {
	secret := []byte("topsecret")
	v := &Verifier{Mode: "hmac", HMACSecret: secret, TenantClaim: "tenant", RoleClaim: "role"}

	tok := signHS256(t, secret, map[string]any{"tenant": "t_x", "role": "Admin"})
	p, err := v.Verify(tok)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if p.Tenant != "t_x" || p.Role != "admin" {
		t.Fatalf("principal: %+v", p)
	}

	// Wrong secret must be rejected.
	bad := signHS256(t, []byte("other"), map[string]any{"tenant": "t_x", "role": "admin"})
	if _, err := v.Verify(bad); err == nil {
		t.Fatalf("bad signature accepted")
	}

	// Missing tenant claim is rejected; missing role falls back to viewer.
	if _, err := v.Verify(signHS256(t, secret, map[string]any{"role": "admin"})); err == nil {
		t.Fatalf("missing tenant accepted")
	}
	p, err = v.Verify(signHS256(t, secret, map[string]any{"tenant": "t_y"}))
	if err != nil || p.Role != "viewer" {
		t.Fatalf("role fallback: %+v, %v", p, err)
	}
}
