// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package delivery

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wneessen/go-mail"

	"github.com/pdiddy/kindle-fetcher/pkg/types"
)

func writeBook(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func emailConfig() types.DeliveryConfig {
	return types.DeliveryConfig{
		Method:   types.DeliveryEmail,
		SMTPHost: "smtp.example.com",
		SMTPPort: 587,
		From:     "reader@example.com",
		To:       "reader_123@kindle.com",
	}
}

func TestNew(t *testing.T) {
	sink, err := New(types.DeliveryConfig{Method: types.DeliveryNone})
	require.NoError(t, err)
	assert.Nil(t, sink)

	sink, err = New(types.DeliveryConfig{})
	require.NoError(t, err)
	assert.Nil(t, sink)

	sink, err = New(types.DeliveryConfig{Method: types.DeliveryDir, Dir: "/media/kindle/documents"})
	require.NoError(t, err)
	assert.Equal(t, DirSink{Dir: "/media/kindle/documents"}, sink)

	sink, err = New(emailConfig())
	require.NoError(t, err)
	assert.IsType(t, &EmailSink{}, sink)

	_, err = New(types.DeliveryConfig{Method: types.DeliveryDir})
	assert.Error(t, err)

	_, err = New(types.DeliveryConfig{Method: "carrier-pigeon"})
	assert.Error(t, err)
}

func TestDirSinkDeliver(t *testing.T) {
	src := writeBook(t, "Dune.epub", "spice")
	dest := filepath.Join(t.TempDir(), "documents")

	require.NoError(t, DirSink{Dir: dest}.Deliver(context.Background(), src))

	data, err := os.ReadFile(filepath.Join(dest, "Dune.epub"))
	require.NoError(t, err)
	assert.Equal(t, "spice", string(data))

	entries, err := os.ReadDir(dest)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files are left behind")
}

func TestDirSinkMissingSource(t *testing.T) {
	err := DirSink{Dir: t.TempDir()}.Deliver(context.Background(), filepath.Join(t.TempDir(), "missing.epub"))
	assert.Error(t, err)
}

func TestNewEmailSinkValidates(t *testing.T) {
	_, err := NewEmailSink(types.DeliveryConfig{Method: types.DeliveryEmail})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "smtp_host")
	assert.Contains(t, err.Error(), "delivery.to")
}

func TestEmailSinkMessage(t *testing.T) {
	path := writeBook(t, "Art_of_the_Start.epub", "epub bytes")
	sink, err := NewEmailSink(emailConfig())
	require.NoError(t, err)

	msg, err := sink.Message(path)
	require.NoError(t, err)

	var buf bytes.Buffer
	_, err = msg.WriteTo(&buf)
	require.NoError(t, err)
	out := buf.String()
	assert.Contains(t, out, "reader_123@kindle.com")
	assert.Contains(t, out, "reader@example.com")
	assert.Contains(t, out, "Subject: "+emailSubject)
	assert.Contains(t, out, "Art_of_the_Start.epub")
}

func TestEmailSinkDeliver(t *testing.T) {
	path := writeBook(t, "Dune.epub", "spice")
	sink, err := NewEmailSink(emailConfig())
	require.NoError(t, err)

	var sent []*mail.Msg
	sink.send = func(ctx context.Context, msg *mail.Msg) error {
		sent = append(sent, msg)
		return nil
	}
	require.NoError(t, sink.Deliver(context.Background(), path))
	assert.Len(t, sent, 1)

	sink.send = func(ctx context.Context, msg *mail.Msg) error {
		return errors.New("connection refused")
	}
	err = sink.Deliver(context.Background(), path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestEmailSinkMissingAttachment(t *testing.T) {
	sink, err := NewEmailSink(emailConfig())
	require.NoError(t, err)
	sink.send = func(ctx context.Context, msg *mail.Msg) error {
		t.Fatal("send must not be called")
		return nil
	}
	err = sink.Deliver(context.Background(), filepath.Join(t.TempDir(), "gone.epub"))
	assert.Error(t, err)
}
