package log

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	req := require.New(t)
	req.Equal(zerolog.DebugLevel, ParseLevel(" DEBUG "))
	req.Equal(zerolog.WarnLevel, ParseLevel("warning"))
	req.Equal(zerolog.InfoLevel, ParseLevel(""))
	req.Equal(zerolog.InfoLevel, ParseLevel("nonsense"))
}

func TestNewWithWriter_AddsServiceName(t *testing.T) {
	req := require.New(t)
	var buf bytes.Buffer

	logger := NewWithWriter(Config{Level: "info", ServiceName: "notifier"}, &buf)
	logger.Info().Str(FieldChatID, "c1").Msg("hello")

	var line map[string]any
	req.NoError(json.Unmarshal(buf.Bytes(), &line))
	req.Equal("notifier", line[FieldService])
	req.Equal("c1", line[FieldChatID])
	req.Equal("hello", line["message"])
}

func TestCtx(t *testing.T) {
	req := require.New(t)
	var buf bytes.Buffer
	logger := NewWithWriter(Config{Level: "debug"}, &buf)

	ctx := WithLogger(context.Background(), logger)
	l := Ctx(ctx)
	l.Debug().Msg("from ctx")
	req.Contains(buf.String(), "from ctx")
}
