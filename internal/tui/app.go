// Package tui provides the interactive Bubble Tea dashboard and forms of
// carboncam.
package tui

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/AliTumkaya-new/CarbonCAM/internal/catalog"
	"github.com/AliTumkaya-new/CarbonCAM/internal/cli"
	"github.com/AliTumkaya-new/CarbonCAM/internal/config"
	"github.com/AliTumkaya-new/CarbonCAM/internal/model"
	"github.com/AliTumkaya-new/CarbonCAM/internal/pipeline"
	"github.com/AliTumkaya-new/CarbonCAM/internal/tui/components"
	"github.com/AliTumkaya-new/CarbonCAM/internal/tui/theme"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// LoadFunc returns the stored calculations the dashboard shows.
type LoadFunc func(ctx context.Context) ([]model.Calculation, error)

// Options configure the dashboard.
type Options struct {
	Load            LoadFunc
	Catalog         *catalog.Catalog
	Rates           config.RateSet
	Days            int
	AutoRefresh     bool
	RefreshInterval time.Duration
	Now             func() time.Time
}

// dataLoadedMsg carries the result of one load.
type dataLoadedMsg struct {
	calcs    []model.Calculation
	err      error
	loadTime time.Duration
}

type tickMsg struct{}

// Tab indexes, matching components.Tabs.
const (
	tabOverview = iota
	tabMachines
	tabMaterials
	tabHistory
	tabTariff
)

const (
	minTerminalWidth = 80
	maxContentWidth  = 160
	minContentHeight = 5
	tickInterval     = time.Second
)

// App is the root Bubble Tea model.
type App struct {
	opts Options

	calcs       []model.Calculation
	loaded      bool
	loadErr     error
	loadTime    time.Duration
	lastRefresh time.Time
	refreshing  bool
	autoRefresh bool

	// Recomputed on every load.
	stats      model.SummaryStats
	prevStats  model.SummaryStats
	daily      []model.DailyStats
	machines   []model.MachineStats
	materials  []model.MaterialStats
	tariff     pipeline.TariffSplit
	currencies []pipeline.CurrencyCost
	history    []model.Calculation

	width     int
	height    int
	activeTab int
	showHelp  bool
	spinner   spinner.Model
	hist      historyState
}

// NewApp creates the dashboard model.
func NewApp(opts Options) App {
	if opts.Days <= 0 {
		opts.Days = 30
	}
	if opts.RefreshInterval < 5*time.Second {
		opts.RefreshInterval = 30 * time.Second
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Catalog == nil {
		opts.Catalog = catalog.Default()
	}

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(theme.Active.Accent).Background(theme.Active.Surface)

	return App{
		opts:        opts,
		autoRefresh: opts.AutoRefresh,
		spinner:     sp,
	}
}

// Init implements tea.Model.
func (a App) Init() tea.Cmd {
	return tea.Batch(
		tea.EnableMouseCellMotion,
		loadCmd(a.opts.Load),
		a.spinner.Tick,
		tickCmd(),
	)
}

func loadCmd(load LoadFunc) tea.Cmd {
	return func() tea.Msg {
		if load == nil {
			return dataLoadedMsg{}
		}
		start := time.Now()
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		calcs, err := load(ctx)
		return dataLoadedMsg{calcs: calcs, err: err, loadTime: time.Since(start)}
	}
}

func tickCmd() tea.Cmd {
	return tea.Tick(tickInterval, func(time.Time) tea.Msg { return tickMsg{} })
}

func (a *App) recompute() {
	now := a.opts.Now()
	since := now.AddDate(0, 0, -a.opts.Days)

	cmp := pipeline.ComparePeriods(a.calcs, a.opts.Days, now)
	a.stats = cmp.Current
	a.prevStats = cmp.Previous
	a.daily = pipeline.AggregateDays(a.calcs, since, now)
	a.machines = pipeline.AggregateMachines(a.calcs, since, now)
	a.materials = pipeline.AggregateMaterials(a.calcs, since, now)
	a.tariff, a.currencies = pipeline.AggregateCostBreakdown(a.calcs, since, now)

	a.history = pipeline.FilterByTime(a.calcs, since, now)
	sort.SliceStable(a.history, func(i, j int) bool {
		return a.history[i].CreatedAt.After(a.history[j].CreatedAt)
	})
	a.hist.clamp(len(a.history))
}

// Update implements tea.Model.
func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		return a, nil

	case tea.MouseMsg:
		return a.updateMouse(msg)

	case tea.KeyMsg:
		return a.updateKey(msg)

	case dataLoadedMsg:
		a.loaded = true
		a.refreshing = false
		a.loadErr = msg.err
		a.loadTime = msg.loadTime
		a.lastRefresh = a.opts.Now()
		if msg.err == nil {
			a.calcs = msg.calcs
			a.recompute()
		}
		return a, nil

	case spinner.TickMsg:
		if a.loaded {
			return a, nil
		}
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd

	case tickMsg:
		cmds := []tea.Cmd{tickCmd()}
		if a.loaded && a.autoRefresh && !a.refreshing &&
			a.opts.Now().Sub(a.lastRefresh) >= a.opts.RefreshInterval {
			a.refreshing = true
			cmds = append(cmds, loadCmd(a.opts.Load))
		}
		return a, tea.Batch(cmds...)
	}
	return a, nil
}

func (a App) updateMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	if !a.loaded || a.showHelp {
		return a, nil
	}
	switch msg.Button {
	case tea.MouseButtonWheelUp:
		if a.activeTab == tabHistory {
			a.hist.move(-1, len(a.history))
		}
	case tea.MouseButtonWheelDown:
		if a.activeTab == tabHistory {
			a.hist.move(1, len(a.history))
		}
	case tea.MouseButtonLeft:
		if msg.Action == tea.MouseActionPress && msg.Y == 0 {
			if tab := a.tabAtX(msg.X); tab >= 0 {
				a.activeTab = tab
			}
		}
	}
	return a, nil
}

func (a App) updateKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	if key == "ctrl+c" {
		return a, tea.Quit
	}
	if !a.loaded {
		return a, nil
	}
	if key == "?" {
		a.showHelp = !a.showHelp
		return a, nil
	}
	if a.showHelp {
		a.showHelp = false
		return a, nil
	}

	if a.activeTab == tabHistory {
		if a.hist.handleKey(key, len(a.history), a.pageSize()) {
			return a, nil
		}
	}

	switch key {
	case "q":
		return a, tea.Quit
	case "r":
		if !a.refreshing {
			a.refreshing = true
			return a, loadCmd(a.opts.Load)
		}
	case "R":
		a.autoRefresh = !a.autoRefresh
	case "left", "shift+tab":
		a.activeTab = (a.activeTab - 1 + len(components.Tabs)) % len(components.Tabs)
	case "right", "tab":
		a.activeTab = (a.activeTab + 1) % len(components.Tabs)
	default:
		if r := []rune(key); len(r) == 1 {
			if idx := components.TabIdxByKey(r[0]); idx >= 0 {
				a.activeTab = idx
			}
		}
	}
	return a, nil
}

// tabAtX returns the tab under column x of the tab bar, or -1.
func (a App) tabAtX(x int) int {
	pos := 0
	for i, tab := range components.Tabs {
		w := components.TabVisualWidth(tab, i == a.activeTab)
		if x >= pos && x < pos+w {
			return i
		}
		pos += w + 1 // separator
	}
	return -1
}

func (a App) contentWidth() int {
	return min(a.width, maxContentWidth)
}

func (a App) pageSize() int {
	return max(a.height-8, minContentHeight)
}

// View implements tea.Model.
func (a App) View() string {
	switch {
	case a.width == 0:
		return ""
	case a.width < minTerminalWidth:
		return fmt.Sprintf("\n  Terminal too narrow (%d cols)\n\n  carboncam needs at least %d columns.\n",
			a.width, minTerminalWidth)
	case !a.loaded:
		return a.viewLoading()
	case a.showHelp:
		return a.viewHelp()
	}
	return a.viewMain()
}

func (a App) viewLoading() string {
	t := theme.Active
	card := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.BorderAccent).
		Background(t.Surface).
		Padding(2, 4)

	logo := lipgloss.NewStyle().Foreground(t.AccentBright).Background(t.Surface).Bold(true)
	muted := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)

	body := logo.Render("◈ carboncam") + muted.Render(" · machining energy & carbon") + "\n\n" +
		a.spinner.View() + muted.Render(" Loading calculations…")

	return lipgloss.Place(a.width, a.height, lipgloss.Center, lipgloss.Center, card.Render(body),
		lipgloss.WithWhitespaceBackground(t.Background))
}

func (a App) viewHelp() string {
	t := theme.Active
	card := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.BorderAccent).
		Background(t.Surface).
		Padding(1, 3)
	title := lipgloss.NewStyle().Foreground(t.AccentBright).Background(t.Surface).Bold(true)
	keyStyle := lipgloss.NewStyle().Foreground(t.Cyan).Background(t.Surface).Bold(true)
	desc := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)

	bindings := []struct{ key, desc string }{
		{"o m t h f", "Jump to tab"},
		{"← → tab", "Previous / next tab"},
		{"j k", "Move in history"},
		{"g G", "First / last calculation"},
		{"^d ^u", "Half-page in history"},
		{"r", "Reload from the database"},
		{"R", "Toggle auto-refresh"},
		{"?", "Toggle help"},
		{"q", "Quit"},
	}

	var b strings.Builder
	b.WriteString(title.Render("◈ Keyboard Shortcuts"))
	b.WriteString("\n\n")
	for _, bind := range bindings {
		fmt.Fprintf(&b, "%s  %s\n", keyStyle.Render(fmt.Sprintf("%-10s", bind.key)), desc.Render(bind.desc))
	}

	return lipgloss.Place(a.width, a.height, lipgloss.Center, lipgloss.Center, card.Render(b.String()),
		lipgloss.WithWhitespaceBackground(t.Background))
}

func (a App) viewMain() string {
	t := theme.Active
	cw := a.contentWidth()

	header := components.RenderTabBar(a.activeTab, a.width)

	info := fmt.Sprintf("%dd · %s · loaded in %.1fs", a.opts.Days,
		cli.FormatNumber(int64(len(a.calcs)))+" calculations", a.loadTime.Seconds())
	if a.loadErr != nil {
		info = "load failed: " + a.loadErr.Error()
	}
	status := components.RenderStatusBar(a.width, info, a.refreshing, a.autoRefresh)

	contentH := max(a.height-lipgloss.Height(header)-lipgloss.Height(status), minContentHeight)

	var content string
	switch a.activeTab {
	case tabOverview:
		content = a.renderOverviewTab(cw)
	case tabMachines:
		content = a.renderMachinesTab(cw)
	case tabMaterials:
		content = a.renderMaterialsTab(cw)
	case tabHistory:
		content = a.renderHistoryTab(cw, contentH)
	case tabTariff:
		content = a.renderTariffTab(cw)
	}

	content = padHeight(truncateHeight(content, contentH), contentH)
	content = lipgloss.Place(a.width, contentH, lipgloss.Center, lipgloss.Top, content,
		lipgloss.WithWhitespaceBackground(t.Background))

	return lipgloss.JoinVertical(lipgloss.Left, header, content, status)
}

func (a App) emptyNotice(width int) string {
	return components.ContentCard("No calculations",
		fmt.Sprintf("Nothing stored in the last %d days.\nRun `carboncam calc` or `carboncam batch process` first.", a.opts.Days),
		width)
}

func truncStr(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit-1]) + "…"
}

func truncateHeight(s string, limit int) string {
	lines := strings.Split(s, "\n")
	if len(lines) <= limit {
		return s
	}
	return strings.Join(lines[:limit], "\n")
}

func padHeight(s string, h int) string {
	n := strings.Count(s, "\n") + 1
	if n >= h {
		return s
	}
	return s + strings.Repeat("\n", h-n)
}
