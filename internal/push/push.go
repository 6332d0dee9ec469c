// Package push turns inbound push payloads into user notifications and
// handles clicks on their actions.
package push

import (
	"strings"
	"sync"
	"time"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/tidwall/gjson"

	"github.com/leonardcser/web-offline/internal/logger"
	"github.com/leonardcser/web-offline/internal/metrics"
)

const (
	Tag = "excellence-academy-notification"

	ActionView    = "view"
	ActionDismiss = "dismiss"
)

// Action is a button on a notification.
type Action struct {
	Action string `json:"action"`
	Title  string `json:"title"`
}

// Notification is what the user sees.
type Notification struct {
	Tag                string    `json:"tag"`
	Title              string    `json:"title"`
	Body               string    `json:"body"`
	URL                string    `json:"url"`
	Vibrate            []int     `json:"vibrate"`
	RequireInteraction bool      `json:"require_interaction"`
	Actions            []Action  `json:"actions"`
	ShownAt            time.Time `json:"shown_at"`
}

// Center keeps the notifications currently on display. Showing a
// notification with a tag already on display replaces it.
type Center struct {
	title       string
	defaultBody string

	mu    sync.Mutex
	shown map[string]Notification
}

func NewCenter(title, defaultBody string) *Center {
	return &Center{title: title, defaultBody: defaultBody, shown: map[string]Notification{}}
}

// Receive shows a notification for payload. A JSON object payload may set
// title, body and url; HTML bodies are flattened to text. An empty payload
// shows the default body.
func (c *Center) Receive(payload []byte) Notification {
	n := Notification{
		Tag:                Tag,
		Title:              c.title,
		Body:               c.defaultBody,
		URL:                "/",
		Vibrate:            []int{200, 100, 200},
		RequireInteraction: true,
		Actions: []Action{
			{Action: ActionView, Title: "View"},
			{Action: ActionDismiss, Title: "Dismiss"},
		},
		ShownAt: time.Now().UTC(),
	}

	text := strings.TrimSpace(string(payload))
	if gjson.Valid(text) && gjson.Parse(text).IsObject() {
		obj := gjson.Parse(text)
		if v := obj.Get("title").String(); v != "" {
			n.Title = v
		}
		if v := obj.Get("url").String(); v != "" {
			n.URL = v
		}
		text = strings.TrimSpace(obj.Get("body").String())
	}
	if text != "" {
		n.Body = plain(text)
	}

	c.mu.Lock()
	c.shown[n.Tag] = n
	c.mu.Unlock()
	metrics.Notifications.WithLabelValues("shown").Inc()
	logger.Infof("Push notification received: %q", n.Body)
	return n
}

// Click closes the notification and returns the URL to open, which is empty
// unless the view action was chosen.
func (c *Center) Click(tag, action string) string {
	n, ok := c.take(tag)
	logger.Infof("Notification clicked: %q", action)
	metrics.Notifications.WithLabelValues("clicked").Inc()
	if action != ActionView {
		return ""
	}
	if ok && n.URL != "" {
		return n.URL
	}
	return "/"
}

// Close dismisses a notification without opening anything.
func (c *Center) Close(tag string) bool {
	_, ok := c.take(tag)
	if ok {
		metrics.Notifications.WithLabelValues("closed").Inc()
		logger.Infof("Notification closed")
	}
	return ok
}

// List returns the notifications on display.
func (c *Center) List() []Notification {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Notification, 0, len(c.shown))
	for _, n := range c.shown {
		out = append(out, n)
	}
	return out
}

func (c *Center) take(tag string) (Notification, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	n, ok := c.shown[tag]
	delete(c.shown, tag)
	return n, ok
}

// plain flattens HTML markup to markdown text and leaves plain text alone.
func plain(s string) string {
	if !strings.Contains(s, "<") {
		return s
	}
	md, err := htmltomarkdown.ConvertString(s)
	if err != nil {
		return s
	}
	return strings.TrimSpace(md)
}
