// Package ui is the terminal dashboard: a live order table driven by the
// simulated connection.
package ui

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rovshanmuradov/orderdesk/internal/export"
	"github.com/rovshanmuradov/orderdesk/internal/logger"
	"github.com/rovshanmuradov/orderdesk/internal/order"
	"github.com/rovshanmuradov/orderdesk/internal/query"
	"github.com/rovshanmuradov/orderdesk/internal/realtime"
	"github.com/rovshanmuradov/orderdesk/internal/ui/style"
	"go.uber.org/zap"
)

const (
	maxEventLines = 6
	maxLogLines   = 5
	tickInterval  = time.Second
)

// Controller is the part of realtime.Manager the dashboard drives.
type Controller interface {
	Connect()
	Disconnect()
	SimulateDisconnect()
	Status() realtime.Status
}

// Orders supplies the records shown in the table.
type Orders interface {
	Snapshot() []order.Order
}

// Config wires the dashboard to its collaborators. Logs and Exporter are
// optional.
type Config struct {
	Controller Controller
	Orders     Orders
	Bridge     *Bridge
	Logs       *logger.Buffer
	Exporter   *export.Exporter
	ExportDir  string
	Logger     *zap.Logger
}

// Model is the bubbletea model of the dashboard.
type Model struct {
	cfg    Config
	logger *zap.Logger

	keys     KeyMap
	help     help.Model
	table    table.Model
	search   textinput.Model
	showHelp bool

	state  query.State
	result query.Result

	status    realtime.Status
	attempts  int
	nextDelay time.Duration

	events []string
	notice string
	width  int
}

// New creates the dashboard model.
func New(cfg Config) Model {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.ExportDir == "" {
		cfg.ExportDir = "exports"
	}

	search := textinput.New()
	search.Placeholder = "customer or order id"
	search.Prompt = "/ "
	search.CharLimit = 64

	t := table.New(
		table.WithColumns(columns(80)),
		table.WithFocused(true),
		table.WithHeight(query.DefaultPageSize),
		table.WithKeyMap(table.KeyMap{
			LineUp:   key.NewBinding(key.WithKeys("up", "k")),
			LineDown: key.NewBinding(key.WithKeys("down", "j")),
		}),
	)
	p := style.DefaultPalette()
	ts := table.DefaultStyles()
	ts.Header = ts.Header.Foreground(p.Primary).Bold(true)
	ts.Selected = ts.Selected.Foreground(p.Background).Background(p.Primary)
	t.SetStyles(ts)

	m := Model{
		cfg:    cfg,
		logger: cfg.Logger.Named("ui"),
		keys:   DefaultKeyMap(),
		help:   help.New(),
		table:  t,
		search: search,
		state:  query.Default(),
		status: realtime.Disconnected,
		width:  80,
	}
	if cfg.Controller != nil {
		m.status = cfg.Controller.Status()
	}
	m.refresh()
	return m
}

// Init starts listening to the bridge and the refresh ticker.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.listen(), tick())
}

// Update handles a message and returns the updated model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
		m.table.SetColumns(columns(msg.Width))
		return m, nil

	case StatusMsg:
		m.status = msg.Status
		m.attempts = msg.Attempts
		m.nextDelay = msg.NextDelay
		return m, m.listen()

	case EventMsg:
		m.pushEvent(describe(msg))
		m.refresh()
		return m, m.listen()

	case ExportedMsg:
		if msg.Err != nil {
			m.notice = style.Error.Render("export failed: " + msg.Err.Error())
		} else {
			m.notice = "exported to " + msg.Path
		}
		return m, nil

	case TickMsg:
		m.refresh()
		return m, tick()

	case tea.KeyMsg:
		if m.search.Focused() {
			return m.updateSearch(msg)
		}
		return m.updateKeys(msg)
	}
	return m, nil
}

func (m Model) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		return m, tea.Quit
	case tea.KeyEnter:
		m.search.Blur()
		return m, nil
	case tea.KeyEsc:
		m.search.Blur()
		m.search.SetValue("")
		m.state = m.state.SetSearch("")
		m.refresh()
		return m, nil
	}

	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	m.state = m.state.SetSearch(m.search.Value())
	m.refresh()
	return m, cmd
}

func (m Model) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Connect):
		m.control("connect", Controller.Connect)
	case key.Matches(msg, m.keys.Disconnect):
		m.control("disconnect", Controller.Disconnect)
	case key.Matches(msg, m.keys.Simulate):
		m.control("simulate_disconnect", Controller.SimulateDisconnect)
	case key.Matches(msg, m.keys.Search):
		cmd := m.search.Focus()
		return m, cmd
	case key.Matches(msg, m.keys.Back):
		m.notice = ""
	case key.Matches(msg, m.keys.Filter):
		m.state = m.state.SetStatusFilter(nextFilter(m.state.StatusFilter))
		m.refresh()
	case key.Matches(msg, m.keys.Sort):
		m.state = m.state.SetSort(nextColumn(m.state.SortColumn))
		m.refresh()
	case key.Matches(msg, m.keys.Reverse):
		m.state = m.state.SetSort(m.state.SortColumn)
		m.refresh()
	case key.Matches(msg, m.keys.PageSize):
		m.state = m.state.SetPageSize(nextPageSize(m.state.PageSize))
		m.refresh()
	case key.Matches(msg, m.keys.NextPage):
		if m.state.Page+1 < m.result.TotalPages {
			m.state = m.state.SetPage(m.state.Page + 1)
			m.refresh()
		}
	case key.Matches(msg, m.keys.PrevPage):
		if m.state.Page > 0 {
			m.state = m.state.SetPage(m.state.Page - 1)
			m.refresh()
		}
	case key.Matches(msg, m.keys.Export):
		return m, m.export()
	case key.Matches(msg, m.keys.Help):
		m.showHelp = !m.showHelp
		m.help.ShowAll = m.showHelp
	default:
		var cmd tea.Cmd
		m.table, cmd = m.table.Update(msg)
		return m, cmd
	}
	return m, nil
}

// control runs a connection action; the resulting status arrives through
// the bridge.
func (m *Model) control(action string, fn func(Controller)) {
	if m.cfg.Controller == nil {
		return
	}
	m.logger.Debug("Connection action", zap.String("action", action))
	fn(m.cfg.Controller)
}

func (m Model) listen() tea.Cmd {
	if m.cfg.Bridge == nil {
		return nil
	}
	return m.cfg.Bridge.Listen()
}

func (m Model) export() tea.Cmd {
	if m.cfg.Exporter == nil || m.cfg.Orders == nil {
		return nil
	}
	exporter, orders := m.cfg.Exporter, m.cfg.Orders.Snapshot()
	opts := export.Options{Format: export.FormatCSV, OutputDir: m.cfg.ExportDir}
	if m.state.StatusFilter != query.FilterAll {
		opts.Status = order.Status(m.state.StatusFilter)
	}
	return func() tea.Msg {
		path, err := exporter.ExportFile(orders, opts)
		return ExportedMsg{Path: path, Err: err}
	}
}

// refresh recomputes the visible page from the current snapshot.
func (m *Model) refresh() {
	var orders []order.Order
	if m.cfg.Orders != nil {
		orders = m.cfg.Orders.Snapshot()
	}

	m.result = m.state.Apply(orders)
	if m.state.Page > 0 && m.state.Page >= m.result.TotalPages {
		m.state = m.state.SetPage(m.result.TotalPages - 1)
		m.result = m.state.Apply(orders)
	}

	rows := make([]table.Row, 0, len(m.result.Rows))
	for _, o := range m.result.Rows {
		rows = append(rows, table.Row{
			order.DisplayID(o.ID),
			o.CustomerName,
			o.Status.Label(),
			o.Currency + " " + o.TotalAmount.StringFixed(2),
			o.CreatedAt.Local().Format("2006-01-02 15:04"),
		})
	}
	m.table.SetRows(rows)
	if len(rows) > 0 {
		m.table.SetHeight(len(rows) + 1)
	}
}

func (m *Model) pushEvent(line string) {
	m.events = append(m.events, line)
	if len(m.events) > maxEventLines {
		m.events = slices.Delete(m.events, 0, len(m.events)-maxEventLines)
	}
}

// View renders the dashboard.
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(style.Title.Render("Order Dashboard"))
	b.WriteString("  ")
	b.WriteString(m.connectionLine())
	b.WriteString("\n")
	b.WriteString(style.Muted.Render(m.stateLine()))
	b.WriteString("\n")
	if m.search.Focused() || m.search.Value() != "" {
		b.WriteString(m.search.View())
		b.WriteString("\n")
	}

	if m.result.Total == 0 {
		b.WriteString(style.Panel.Render("No orders found"))
	} else {
		b.WriteString(style.Panel.Render(m.table.View()))
	}
	b.WriteString("\n")

	panels := []string{m.eventsPanel()}
	if m.cfg.Logs != nil {
		panels = append(panels, m.logsPanel())
	}
	b.WriteString(lipgloss.JoinVertical(lipgloss.Left, panels...))
	b.WriteString("\n")

	if m.notice != "" {
		b.WriteString(m.notice)
		b.WriteString("\n")
	}
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func (m Model) connectionLine() string {
	line := style.Badge("● "+m.status.String(), style.ConnectionColor(m.status))
	if m.status == realtime.Reconnecting && m.attempts > 0 {
		line += style.Muted.Render(fmt.Sprintf("  attempt %d, retry in %s", m.attempts, m.nextDelay))
	}
	return line
}

func (m Model) stateLine() string {
	arrow := "↑"
	if m.state.SortDirection == query.Desc {
		arrow = "↓"
	}
	size := fmt.Sprint(m.state.PageSize)
	if m.state.PageSize == query.PageSizeAll {
		size = "all"
	}
	pages := max(m.result.TotalPages, 1)
	return fmt.Sprintf("status: %s · sort: %s %s · rows: %s · page %d/%d · %d orders",
		m.state.StatusFilter, m.state.SortColumn.Label(), arrow, size,
		min(m.state.Page+1, pages), pages, m.result.Total)
}

func (m Model) eventsPanel() string {
	lines := []string{style.Title.Render("Live events")}
	if len(m.events) == 0 {
		lines = append(lines, style.Muted.Render("waiting for updates"))
	}
	lines = append(lines, m.events...)
	return style.Panel.Render(strings.Join(lines, "\n"))
}

func (m Model) logsPanel() string {
	lines := []string{style.Title.Render("Logs")}
	for _, l := range m.cfg.Logs.Recent(maxLogLines) {
		if m.width > 8 && len(l) > m.width-6 {
			l = l[:m.width-6]
		}
		lines = append(lines, style.Muted.Render(l))
	}
	return style.Panel.Render(strings.Join(lines, "\n"))
}

func describe(msg EventMsg) string {
	ts := msg.At.Format("15:04:05")
	switch msg.Event.Kind {
	case realtime.NewOrder:
		o := msg.Event.Order
		return fmt.Sprintf("%s new order %s from %s (%s %s)", ts,
			order.DisplayID(o.ID), o.CustomerName, o.Currency, o.TotalAmount.StringFixed(2))
	case realtime.OrderUpdated:
		u := msg.Event.Update
		return fmt.Sprintf("%s %s is now %s", ts,
			order.DisplayID(u.ID), style.Badge(u.Status.Label(), style.OrderStatusColor(u.Status)))
	default:
		return ts + " unknown event"
	}
}

func columns(width int) []table.Column {
	idW, statusW, amountW, dateW := 8, 12, 14, 16
	nameW := max(width-idW-statusW-amountW-dateW-16, 12)
	return []table.Column{
		{Title: query.ColumnID.Label(), Width: idW},
		{Title: query.ColumnCustomerName.Label(), Width: nameW},
		{Title: query.ColumnStatus.Label(), Width: statusW},
		{Title: query.ColumnTotalAmount.Label(), Width: amountW},
		{Title: query.ColumnCreatedAt.Label(), Width: dateW},
	}
}

func nextFilter(current string) string {
	if current == query.FilterAll {
		return string(order.Statuses[0])
	}
	i := slices.Index(order.Statuses, order.Status(current))
	if i < 0 || i == len(order.Statuses)-1 {
		return query.FilterAll
	}
	return string(order.Statuses[i+1])
}

func nextColumn(current query.Column) query.Column {
	i := slices.Index(query.Columns, current)
	return query.Columns[(i+1)%len(query.Columns)]
}

func nextPageSize(current int) int {
	i := slices.Index(query.PageSizes, current)
	return query.PageSizes[(i+1)%len(query.PageSizes)]
}

func tick() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg { return TickMsg(t) })
}
