package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Kasumi/server/internal/config"
)

const testKey = "000102030405060708090a0b0c0d0e0f"

func newTestApp(t *testing.T) (*app, *bytes.Buffer, string) {
	t.Helper()
	dir := t.TempDir()
	paramsFile := filepath.Join(dir, "field.txt")
	require.NoError(t, os.WriteFile(paramsFile, []byte("16 66525 2\n"), 0o644))

	buf := &bytes.Buffer{}
	cfg := &config.Config{Field: config.FieldConfig{Degree: 16, ParamsFile: paramsFile}}
	return &app{cfg: cfg, out: buf}, buf, dir
}

func TestEncryptDecryptFiles(t *testing.T) {
	a, buf, dir := newTestApp(t)

	in := filepath.Join(dir, "kasumi.txt")
	require.NoError(t, os.WriteFile(in, []byte("Hello, World!"), 0o644))

	require.NoError(t, a.encrypt(cipherFlags{mode: "GCM", key: testKey, iv: "1", in: in}))

	encrypted := filepath.Join(dir, "kasumi-encrypted.txt")
	raw, err := os.ReadFile(encrypted)
	require.NoError(t, err)
	assert.Equal(t, "0c370664598c1f92bef8bf07832b85a0b0584a902fabcc45", string(raw))

	keyFile := filepath.Join(dir, "key.txt")
	require.NoError(t, os.WriteFile(keyFile, []byte(testKey+"\n"), 0o644))

	buf.Reset()
	require.NoError(t, a.decrypt(cipherFlags{mode: "gcm", keyFile: keyFile, iv: "1", in: encrypted}))

	raw, err = os.ReadFile(filepath.Join(dir, "kasumi-encrypted-decrypted.txt"))
	require.NoError(t, err)
	assert.Equal(t, "Hello, World!", string(raw))
	assert.Contains(t, buf.String(), "Integrity Verified")
}

func TestDecryptReportsTampering(t *testing.T) {
	a, buf, _ := newTestApp(t)

	err := a.decrypt(cipherFlags{mode: "GCM", key: testKey, iv: "1", text: "1c370664598c1f92bef8bf07832b85a0b0584a902fabcc45"})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Integrity Tampered")
}

func TestEncryptInlineWritesNothing(t *testing.T) {
	a, buf, dir := newTestApp(t)

	require.NoError(t, a.encrypt(cipherFlags{mode: "ECB", key: testKey, text: "Hello, World!"}))
	assert.Contains(t, buf.String(), "55d74d0e66679ed202ca26c27e5bad0a")
	assert.NotContains(t, buf.String(), "written to")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestEncryptErrors(t *testing.T) {
	a, _, _ := newTestApp(t)

	assert.ErrorIs(t, a.encrypt(cipherFlags{mode: "ECB", key: testKey}), errNoInput)
	assert.Error(t, a.encrypt(cipherFlags{mode: "CBC", key: testKey, text: "x"}))
	assert.Error(t, a.encrypt(cipherFlags{mode: "ECB", keyFile: "/does/not/exist", text: "x"}))
}

func TestServiceUsesConfiguredDegree(t *testing.T) {
	a, _, dir := newTestApp(t)
	a.cfg.Field.Degree = 8
	a.cfg.Field.ParamsFile = filepath.Join(dir, "field8.txt")

	// an 8-bit field can be found and stored but the cipher refuses it
	assert.Error(t, a.encrypt(cipherFlags{mode: "ECB", key: testKey, text: "x"}))

	raw, err := os.ReadFile(a.cfg.Field.ParamsFile)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(raw), "8 "))
}

func TestSelftest(t *testing.T) {
	a, buf, _ := newTestApp(t)

	require.NoError(t, a.selftest(cipherFlags{key: testKey, iv: "1", text: "Hello"}))
	assert.Equal(t, 7, strings.Count(buf.String(), "ok"))
}

func TestFieldCreatesParameters(t *testing.T) {
	a, buf, dir := newTestApp(t)
	a.cfg.Field.ParamsFile = filepath.Join(dir, "fresh", "field.txt")

	require.NoError(t, a.field(8, false))
	first := buf.String()
	assert.Contains(t, first, "GF(2^8)")

	buf.Reset()
	require.NoError(t, a.field(8, false))
	assert.Equal(t, first, buf.String())

	assert.Error(t, a.field(12, false))
}

func TestKeygen(t *testing.T) {
	a, buf, dir := newTestApp(t)
	keyFile := filepath.Join(dir, "keys", "kasumi_key.txt")

	require.NoError(t, a.keygen(keyFile, ""))

	raw, err := os.ReadFile(keyFile)
	require.NoError(t, err)
	assert.Len(t, string(raw), 32)
	assert.Contains(t, buf.String(), string(raw))
}
