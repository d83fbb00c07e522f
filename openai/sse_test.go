package openai_test

import (
	"io"
	"strings"
	"testing"
	"time"

	"github.com/c360studio/openai-client/openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readEvents(t *testing.T, stream string) []openai.Event {
	t.Helper()
	er := openai.NewEventReader(strings.NewReader(stream))
	var events []openai.Event
	for {
		ev, err := er.Next()
		if err == io.EOF {
			return events
		}
		require.NoError(t, err)
		events = append(events, ev)
	}
}

func TestEventReader_Fields(t *testing.T) {
	events := readEvents(t, ": keep-alive\n"+
		"id: 7\n"+
		"event: delta\n"+
		"data: first\n"+
		"data:second\n"+
		"\n")

	require.Len(t, events, 1)
	assert.Equal(t, "7", events[0].ID)
	assert.Equal(t, "delta", events[0].Type)
	assert.Equal(t, "first\nsecond", events[0].Data)
	assert.False(t, events[0].HasRetry)
}

func TestEventReader_LineEndings(t *testing.T) {
	tests := []struct {
		name   string
		stream string
	}{
		{name: "LF", stream: "data: a\n\ndata: b\n\n"},
		{name: "CRLF", stream: "data: a\r\n\r\ndata: b\r\n\r\n"},
		{name: "CR", stream: "data: a\r\rdata: b\r\r"},
		{name: "mixed", stream: "data: a\r\n\rdata: b\n\r\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			events := readEvents(t, tt.stream)
			require.Len(t, events, 2)
			assert.Equal(t, "a", events[0].Data)
			assert.Equal(t, "b", events[1].Data)
		})
	}
}

func TestEventReader_Retry(t *testing.T) {
	events := readEvents(t, "retry: 1500\n\nretry: soon\ndata: x\n\n")

	require.Len(t, events, 2)
	assert.True(t, events[0].HasRetry)
	assert.Equal(t, 1500*time.Millisecond, events[0].Retry)
	assert.Empty(t, events[0].Data)
	assert.False(t, events[1].HasRetry, "non-numeric retry is ignored")
	assert.Equal(t, "x", events[1].Data)
}

func TestEventReader_SkipsEmptyAndTrailing(t *testing.T) {
	events := readEvents(t, "\n\nevent: ping\n\ndata: kept\n\ndata: unterminated")

	require.Len(t, events, 1)
	assert.Equal(t, "kept", events[0].Data)
}

func TestEventReader_EmptyStream(t *testing.T) {
	_, err := openai.NewEventReader(strings.NewReader("")).Next()
	assert.Equal(t, io.EOF, err)
}

func TestEventReader_LongLine(t *testing.T) {
	payload := strings.Repeat("x", 2<<20)
	events := readEvents(t, "data: "+payload+"\n\ndata: [DONE]\n\n")

	require.Len(t, events, 2)
	assert.Len(t, events[0].Data, len(payload))
	assert.Equal(t, "[DONE]", events[1].Data)
}

func TestEventReader_ByteOrderMark(t *testing.T) {
	events := readEvents(t, "\ufeffdata: one\n\ndata: \ufefftwo\n\n")

	require.Len(t, events, 2)
	assert.Equal(t, "one", events[0].Data)
	assert.Equal(t, "\ufefftwo", events[1].Data, "only a leading mark on the first line is dropped")
}
