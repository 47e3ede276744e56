package mysqlconn

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestXorSHA1(t *testing.T) {
	password := []byte("secret")
	scramble := make([]byte, 20)
	for i := range scramble {
		scramble[i] = byte(i + 1)
	}
	got := xorSHA1(password, scramble)
	want := []byte{179, 43, 179, 165, 131, 225, 52, 12, 10, 17, 8, 213, 139, 27, 228, 151, 129, 173, 140, 47}
	require.Equal(t, want, got)
}

func TestXorSHA256(t *testing.T) {
	password := []byte("secret")
	scramble := make([]byte, 20)
	for i := range scramble {
		scramble[i] = byte(i + 1)
	}
	got := xorSHA256(password, scramble)
	want := []byte{51, 243, 103, 110, 209, 47, 17, 24, 30, 56, 152, 113, 73, 34, 181, 252, 58, 234, 119, 241, 23, 41, 166, 30, 175, 120, 27, 86, 163, 6, 184, 43}
	require.Equal(t, want, got)
}

func TestEncryptPassword_EmptyPassword(t *testing.T) {
	scramble := make([]byte, 20)
	resp, err := encryptPassword("mysql_native_password", nil, scramble, nil)
	require.NoError(t, err)
	require.Nil(t, resp)
}

func TestEncryptPassword_ClearText(t *testing.T) {
	resp, err := encryptPassword("mysql_clear_password", []byte("hunter2"), nil, nil)
	require.NoError(t, err)
	require.Equal(t, append([]byte("hunter2"), 0), resp)
}

func TestEncryptPassword_UnsupportedPlugin(t *testing.T) {
	_, err := encryptPassword("some_future_plugin", []byte("x"), make([]byte, 20), nil)
	require.Error(t, err)
}

func TestEncryptPassword_SHA256RequestsPublicKeyWithoutOne(t *testing.T) {
	resp, err := encryptPassword("sha256_password", []byte("x"), make([]byte, 20), nil)
	require.NoError(t, err)
	require.Equal(t, []byte{1}, resp)
}

func TestDecodePublicKey_RejectsGarbage(t *testing.T) {
	_, err := decodePublicKey([]byte("not a pem block"))
	require.Error(t, err)
}
