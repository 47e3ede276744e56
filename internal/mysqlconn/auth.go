package mysqlconn

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"

	"github.com/shopsync/catalogcdc/internal/wireio"
)

// authMoreData carries extra auth-plugin data beyond the initial challenge,
// e.g. caching_sha2_password's fast-auth-success / full-auth-required signal.
//
// https://dev.mysql.com/doc/internals/en/connection-phase-packets.html#packet-Protocol::AuthMoreData
type authMoreData struct {
	pluginData []byte
}

func (e *authMoreData) decode(r *wireio.Reader) error {
	status := r.Int1()
	if r.Err != nil {
		return r.Err
	}
	if status != 0x01 {
		return fmt.Errorf("mysqlconn: authMoreData status is 0x%02x", status)
	}
	e.pluginData = r.BytesEOF()
	return r.Err
}

// authSwitchRequest asks the client to restart authentication with a
// different plugin.
//
// https://dev.mysql.com/doc/internals/en/connection-phase-packets.html#packet-Protocol::AuthSwitchRequest
type authSwitchRequest struct {
	pluginName string
	pluginData []byte
}

func (e *authSwitchRequest) decode(r *wireio.Reader) error {
	status := r.Int1()
	if r.Err != nil {
		return r.Err
	}
	if status != 0xFE {
		return fmt.Errorf("mysqlconn: authSwitchRequest status is 0x%02x", status)
	}
	e.pluginName = r.StringNull()
	e.pluginData = r.BytesEOF()
	return r.Err
}

type authSwitchResponse struct {
	authResponse []byte
}

func (e authSwitchResponse) encode(w *wireio.Writer) {
	w.BytesN(e.authResponse)
}

type requestPublicKey struct{}

func (requestPublicKey) encode(w *wireio.Writer) {
	w.Int1(2)
}

// encryptPassword computes the auth-response bytes for plugin given the
// server's scramble (nonce). RSA-only plugins (sha256_password without a
// cached public key) return the single-byte "send me your public key"
// request instead, handled by the caller's auth-switch loop.
//
// https://dev.mysql.com/doc/internals/en/secure-password-authentication.html
func encryptPassword(plugin string, password, scramble []byte, pubKey *rsa.PublicKey) ([]byte, error) {
	switch plugin {
	case "mysql_native_password":
		if len(password) == 0 {
			return nil, nil
		}
		return xorSHA1(password, scramble), nil
	case "mysql_clear_password":
		return append(append([]byte{}, password...), 0), nil
	case "caching_sha2_password":
		if len(password) == 0 {
			return nil, nil
		}
		return xorSHA256(password, scramble), nil
	case "sha256_password":
		if len(password) == 0 {
			return []byte{0}, nil
		}
		if pubKey == nil {
			return []byte{1}, nil // request public key
		}
		return encryptPasswordPubKey(password, scramble, pubKey)
	}
	return nil, fmt.Errorf("mysqlconn: unsupported auth plugin %q", plugin)
}

func xorSHA1(password, scramble []byte) []byte {
	hash := sha1.New()
	sha1sum := func(b []byte) []byte {
		hash.Reset()
		hash.Write(b)
		return hash.Sum(nil)
	}
	x := sha1sum(password)
	y := sha1sum(append(append([]byte{}, scramble[:20]...), sha1sum(sha1sum(password))...))
	for i, b := range y {
		x[i] ^= b
	}
	return x
}

func xorSHA256(password, scramble []byte) []byte {
	hash := sha256.New()
	sha256sum := func(b []byte) []byte {
		hash.Reset()
		hash.Write(b)
		return hash.Sum(nil)
	}
	x := sha256sum(password)
	y := sha256sum(append(append([]byte{}, sha256sum(sha256sum(x))...), scramble[:20]...))
	for i, b := range y {
		x[i] ^= b
	}
	return x
}

func encryptPasswordPubKey(password, scramble []byte, pub *rsa.PublicKey) ([]byte, error) {
	seed := scramble[:20]
	plain := make([]byte, len(password)+1)
	copy(plain, password)
	for i := range plain {
		plain[i] ^= seed[i%len(seed)]
	}
	return rsa.EncryptOAEP(sha1.New(), rand.Reader, pub, plain, nil)
}

func decodePublicKey(pemData []byte) (*rsa.PublicKey, error) {
	block, _ := pem.Decode(pemData)
	if block == nil {
		return nil, errors.New("mysqlconn: no PEM data in server response")
	}
	pub, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, err
	}
	key, ok := pub.(*rsa.PublicKey)
	if !ok {
		return nil, errors.New("mysqlconn: server public key is not RSA")
	}
	return key, nil
}
