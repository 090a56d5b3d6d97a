package ui

import (
	"testing"

	"github.com/rivo/tview"
	"github.com/stretchr/testify/assert"
)

func newTestPages() *Pages {
	p := NewPages()
	for _, name := range []string{"clients", "conversation", "mail", "help"} {
		p.AddPage(name, tview.NewBox(), true, false)
	}
	return p
}

func TestPushPop(t *testing.T) {
	p := newTestPages()
	var seen [][]string
	p.SetOnChange(func(s []string) { seen = append(seen, s) })

	p.Reset("clients")
	p.Push("conversation")
	p.Push("mail")
	assert.Equal(t, "mail", p.Current())
	assert.Equal(t, 3, p.Depth())

	assert.Equal(t, "mail", p.Pop())
	assert.Equal(t, "conversation", p.Pop())
	assert.Equal(t, "", p.Pop(), "last page stays")
	assert.Equal(t, []string{"clients"}, p.Stack())
	assert.Len(t, seen, 5)
}

func TestPushExistingUnwinds(t *testing.T) {
	p := newTestPages()
	p.Reset("clients")
	p.Push("conversation")
	p.Push("mail")
	p.Push("help")

	p.Push("conversation")
	assert.Equal(t, []string{"clients", "conversation"}, p.Stack())
	assert.Equal(t, "conversation", p.Current())
}
