package sms

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wipay/subscriber-api/pkg/logger"
)

type fakeProvider struct {
	sent []struct{ to, message string }
	err  error
}

func (f *fakeProvider) Send(ctx context.Context, to, message string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, struct{ to, message string }{to, message})
	return nil
}

func testLogger() *logger.Logger {
	return logger.NewLogger(&logger.Config{
		Level:      logger.ErrorLevel,
		TimeFormat: time.RFC3339,
		Output:     io.Discard,
	})
}

func TestSendNormalizesLocalNumber(t *testing.T) {
	provider := &fakeProvider{}
	svc := NewService(provider, "+211", testLogger())

	require.NoError(t, svc.Send(context.Background(), "0912345678", "hello"))

	require.Len(t, provider.sent, 1)
	assert.Equal(t, "+211912345678", provider.sent[0].to)
	assert.Equal(t, "hello", provider.sent[0].message)
}

func TestSendRejectsInvalidNumber(t *testing.T) {
	provider := &fakeProvider{}
	svc := NewService(provider, "+211", testLogger())

	err := svc.Send(context.Background(), "garbage", "hello")

	assert.Error(t, err)
	assert.Empty(t, provider.sent)
}

func TestSendWrapsProviderFailure(t *testing.T) {
	providerErr := errors.New("gateway down")
	svc := NewService(&fakeProvider{err: providerErr}, "+211", testLogger())

	err := svc.Send(context.Background(), "0912345678", "hello")

	assert.ErrorIs(t, err, providerErr)
}

func TestNormalize(t *testing.T) {
	svc := NewService(&fakeProvider{}, "+211", testLogger())

	assert.Equal(t, "+211912345678", svc.Normalize("0912345678"))
	assert.Equal(t, "+254712345678", svc.Normalize("+254 712 345 678"))
	assert.Equal(t, "+211912345678", svc.Normalize("912345678"))
}
