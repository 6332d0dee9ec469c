package push

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leonardcser/web-offline/internal/logger"
)

func TestMain(m *testing.M) {
	logger.UseNop()
	m.Run()
}

func newCenter() *Center { return NewCenter("Excellence Academy Ghana", "New update from Excellence Academy") }

func TestReceive_TextPayload(t *testing.T) {
	c := newCenter()
	n := c.Receive([]byte("Admissions open for 2027"))

	assert.Equal(t, "Excellence Academy Ghana", n.Title)
	assert.Equal(t, "Admissions open for 2027", n.Body)
	assert.Equal(t, Tag, n.Tag)
	assert.True(t, n.RequireInteraction)
	assert.Equal(t, []int{200, 100, 200}, n.Vibrate)
	require.Len(t, n.Actions, 2)
	assert.Equal(t, ActionView, n.Actions[0].Action)
	assert.Equal(t, ActionDismiss, n.Actions[1].Action)
	assert.Len(t, c.List(), 1)
}

func TestReceive_EmptyPayloadUsesDefault(t *testing.T) {
	n := newCenter().Receive(nil)
	assert.Equal(t, "New update from Excellence Academy", n.Body)
}

func TestReceive_JSONPayload(t *testing.T) {
	n := newCenter().Receive([]byte(`{"title":"Sports Day","body":"Friday at 9am","url":"/#events"}`))
	assert.Equal(t, "Sports Day", n.Title)
	assert.Equal(t, "Friday at 9am", n.Body)
	assert.Equal(t, "/#events", n.URL)
}

func TestReceive_HTMLBodyIsFlattened(t *testing.T) {
	n := newCenter().Receive([]byte(`<p>Results are <strong>out</strong></p>`))
	assert.Equal(t, "Results are **out**", n.Body)
}

func TestReceive_SameTagReplaces(t *testing.T) {
	c := newCenter()
	c.Receive([]byte("one"))
	c.Receive([]byte("two"))

	list := c.List()
	require.Len(t, list, 1)
	assert.Equal(t, "two", list[0].Body)
}

func TestClick(t *testing.T) {
	c := newCenter()
	c.Receive([]byte("hello"))
	assert.Equal(t, "/", c.Click(Tag, ActionView))
	assert.Empty(t, c.List(), "click closes the notification")

	c.Receive([]byte("hello"))
	assert.Equal(t, "", c.Click(Tag, ActionDismiss))
	assert.Empty(t, c.List())

	c.Receive([]byte("hello"))
	assert.Equal(t, "", c.Click(Tag, ""))
}

func TestClose(t *testing.T) {
	c := newCenter()
	c.Receive([]byte("hello"))
	assert.True(t, c.Close(Tag))
	assert.False(t, c.Close(Tag))
}
