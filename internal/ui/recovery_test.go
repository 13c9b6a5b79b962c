package ui

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zaptest"
)

// panicModel panics from whichever method is flagged.
type panicModel struct {
	panicOnInit   bool
	panicOnUpdate bool
	panicOnView   bool
	updates       int
}

func (m *panicModel) Init() tea.Cmd {
	if m.panicOnInit {
		panic("init panic test")
	}
	return tea.Quit
}

func (m *panicModel) Update(tea.Msg) (tea.Model, tea.Cmd) {
	if m.panicOnUpdate {
		panic("update panic test")
	}
	m.updates++
	return m, tea.Quit
}

func (m *panicModel) View() string {
	if m.panicOnView {
		panic("view panic test")
	}
	return "ok"
}

func TestSafeModel_PassThrough(t *testing.T) {
	inner := &panicModel{}
	s := NewSafeModel(inner, zaptest.NewLogger(t))

	assert.NotNil(t, s.Init())
	next, cmd := s.Update(nil)
	assert.Same(t, s, next)
	assert.NotNil(t, cmd)
	assert.Equal(t, 1, inner.updates)
	assert.Equal(t, "ok", s.View())
	assert.Zero(t, s.Panics())
}

func TestSafeModel_RecoversPanics(t *testing.T) {
	s := NewSafeModel(&panicModel{panicOnInit: true, panicOnUpdate: true, panicOnView: true}, nil)

	assert.NotPanics(t, func() {
		assert.Nil(t, s.Init())
		_, cmd := s.Update(nil)
		assert.Nil(t, cmd)
		assert.Contains(t, s.View(), "View crashed")
	})
	assert.Equal(t, 3, s.Panics())
	assert.IsType(t, &panicModel{}, s.Model(), "previous model kept")
}
