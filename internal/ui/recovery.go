package ui

import (
	"runtime/debug"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"
)

// SafeModel wraps a model so a panic in Init, Update or View is logged
// instead of tearing down the terminal. A panicking Update keeps the
// previous model.
type SafeModel struct {
	model  tea.Model
	logger *zap.Logger
	panics int
}

// NewSafeModel wraps model.
func NewSafeModel(model tea.Model, logger *zap.Logger) *SafeModel {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SafeModel{model: model, logger: logger.Named("ui")}
}

// Init wraps the Init method with panic recovery
func (s *SafeModel) Init() (cmd tea.Cmd) {
	defer s.recoverFromPanic("Init", &cmd)
	return s.model.Init()
}

// Update wraps the Update method with panic recovery
func (s *SafeModel) Update(msg tea.Msg) (model tea.Model, cmd tea.Cmd) {
	model = s
	defer s.recoverFromPanic("Update", &cmd)
	s.model, cmd = s.model.Update(msg)
	return s, cmd
}

// View wraps the View method with panic recovery
func (s *SafeModel) View() (view string) {
	defer func() {
		if r := recover(); r != nil {
			s.panics++
			s.logger.Error("View panic recovered",
				zap.Any("panic", r),
				zap.String("stack", string(debug.Stack())))
			view = "View crashed, see log. Press q to exit."
		}
	}()
	return s.model.View()
}

// Panics returns how many panics were recovered.
func (s *SafeModel) Panics() int {
	return s.panics
}

// Model returns the wrapped model.
func (s *SafeModel) Model() tea.Model {
	return s.model
}

func (s *SafeModel) recoverFromPanic(method string, cmd *tea.Cmd) {
	if r := recover(); r != nil {
		s.panics++
		s.logger.Error("UI method panic recovered",
			zap.String("method", method),
			zap.Any("panic", r),
			zap.String("stack", string(debug.Stack())))
		*cmd = nil
	}
}
