package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/docsync/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/docsync/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/docsync/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/docsync/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/docsync/internal/core/domain"
	"github.com/custodia-labs/docsync/internal/core/ports/driving"
)

// DefaultRefreshInterval is how often sync and queue counters are reloaded.
const DefaultRefreshInterval = 2 * time.Second

// App is the status dashboard following the Elm architecture.
// It implements tea.Model for use with Bubbletea.
type App struct {
	// ports provides access to core services via driving ports.
	ports *Ports

	// ctx is the context for cancellation.
	ctx context.Context

	styles    *styles.Styles
	keymap    *keymap.KeyMap
	statusBar *status.Bar

	// serverCh, pendingCh and progressCh are live subscriptions opened by Init.
	serverCh   <-chan domain.ServerStatus
	pendingCh  <-chan int
	progressCh chan messages.UploadProgress

	syncStatus *driving.SyncStatus
	queues     *driving.QueueCounts
	server     domain.ServerStatus
	pending    int

	syncing   bool
	uploading bool
	showHelp  bool

	// err holds the last error that occurred.
	err error

	refreshInterval time.Duration

	// width and height are terminal dimensions.
	width  int
	height int

	// ready indicates if the app has initialised.
	ready bool
}

// Ensure App implements tea.Model.
var _ tea.Model = (*App)(nil)

// NewApp creates a new dashboard with the given ports.
func NewApp(ports *Ports) (*App, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("creating app: %w", err)
	}

	s := styles.DefaultStyles()
	km := keymap.DefaultKeyMap()

	a := &App{
		ports:           ports,
		ctx:             context.Background(),
		styles:          s,
		keymap:          km,
		statusBar:       status.NewBar(s, km),
		server:          domain.UnknownStatus(),
		refreshInterval: DefaultRefreshInterval,
	}
	if ports.Health != nil {
		a.server = ports.Health.Status()
	}
	if ports.Pending != nil {
		a.pending = ports.Pending.Count()
	}
	return a, nil
}

// WithContext sets the context for the app.
func (a *App) WithContext(ctx context.Context) *App {
	a.ctx = ctx
	return a
}

// WithRefreshInterval sets how often counters are reloaded.
func (a *App) WithRefreshInterval(d time.Duration) *App {
	if d > 0 {
		a.refreshInterval = d
	}
	return a
}

// Init implements tea.Model.
// It opens the live subscriptions and loads the first snapshot.
func (a *App) Init() tea.Cmd {
	cmds := []tea.Cmd{
		tea.SetWindowTitle("docsync - status"),
		a.loadStatus(),
		a.tick(),
	}

	if a.ports.Health != nil {
		a.ports.Health.SetForeground(true)
		a.serverCh = a.ports.Health.Subscribe(a.ctx)
		cmds = append(cmds, waitForServerStatus(a.serverCh))
	}
	if a.ports.Pending != nil {
		a.pendingCh = a.ports.Pending.Subscribe(a.ctx)
		cmds = append(cmds, waitForPendingCount(a.pendingCh))
	}
	if a.ports.Uploads != nil {
		a.progressCh = make(chan messages.UploadProgress, 16)
		ch := a.progressCh
		a.ports.Uploads.SetProgress(func(id, sent, total int64) {
			select {
			case ch <- messages.UploadProgress{UploadID: id, Sent: sent, Total: total}:
			default:
			}
		})
		cmds = append(cmds, waitForProgress(a.progressCh))
	}

	return tea.Batch(cmds...)
}

// Update implements tea.Model.
// It handles messages and updates the model state.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.ready = true
		a.statusBar.SetWidth(msg.Width)
		return a, nil

	case tea.KeyMsg:
		return a.handleKey(msg)

	case messages.StatusLoaded:
		if msg.Err != nil {
			a.setError(msg.Err)
			return a, nil
		}
		a.syncStatus = msg.Sync
		a.queues = msg.Queues
		if msg.Sync != nil && a.ports.Pending == nil {
			a.pending = msg.Sync.PendingChanges
		}
		return a, nil

	case messages.ServerStatusChanged:
		a.server = msg.Status
		if a.statusBar.State() == status.StateChecking {
			a.statusBar.Clear()
		}
		if a.serverCh == nil {
			return a, nil
		}
		return a, waitForServerStatus(a.serverCh)

	case messages.PendingCountChanged:
		a.pending = msg.Count
		return a, waitForPendingCount(a.pendingCh)

	case messages.UploadProgress:
		if a.uploading {
			a.statusBar.SetMessage(progressLabel(msg))
		}
		return a, waitForProgress(a.progressCh)

	case messages.SyncFinished:
		a.syncing = false
		switch {
		case msg.Err == nil:
			a.clearError()
			a.statusBar.SetMessage("Sync complete")
		case errors.Is(msg.Err, domain.ErrSyncInProgress):
			a.clearError()
			a.statusBar.SetMessage("A sync is already running")
		default:
			a.setError(msg.Err)
		}
		return a, a.loadStatus()

	case messages.UploadFinished:
		a.uploading = false
		if msg.Result == domain.WorkFailure {
			a.setError(errors.New("every upload failed"))
		} else {
			a.clearError()
			a.statusBar.SetMessage(fmt.Sprintf("Upload run: %s", msg.Result))
		}
		return a, a.loadStatus()

	case messages.Tick:
		return a, tea.Batch(a.loadStatus(), a.tick())

	case messages.ErrorOccurred:
		a.setError(msg.Err)
		return a, nil

	case messages.Quit:
		return a, tea.Quit
	}

	return a, nil
}

func (a *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	k := msg.String()
	switch {
	case keymap.Matches(k, a.keymap.Quit):
		if a.ports.Health != nil {
			a.ports.Health.SetForeground(false)
		}
		return a, tea.Quit

	case keymap.Matches(k, a.keymap.Help):
		a.showHelp = !a.showHelp
		if a.showHelp {
			a.statusBar.SetState(status.StateHelp)
		} else {
			a.statusBar.Clear()
		}
		return a, nil

	case keymap.Matches(k, a.keymap.Sync):
		if a.syncing {
			return a, nil
		}
		a.syncing = true
		a.statusBar.SetState(status.StateSyncing)
		return a, a.runSync()

	case keymap.Matches(k, a.keymap.Upload):
		if a.uploading {
			return a, nil
		}
		if a.ports.Uploads == nil {
			a.setError(ErrUploadsUnavailable)
			return a, nil
		}
		a.uploading = true
		a.statusBar.SetState(status.StateUploading)
		a.statusBar.SetMessage("")
		return a, a.runUpload()

	case keymap.Matches(k, a.keymap.Check):
		if a.ports.Health == nil {
			return a, nil
		}
		a.statusBar.SetState(status.StateChecking)
		return a, a.checkServer()

	case keymap.Matches(k, a.keymap.Refresh):
		return a, a.loadStatus()
	}
	return a, nil
}

func (a *App) setError(err error) {
	a.err = err
	a.statusBar.SetState(status.StateError)
	a.statusBar.SetMessage(err.Error())
}

func (a *App) clearError() {
	a.err = nil
	a.statusBar.Clear()
}

// loadStatus reads the sync summary and queue counters.
func (a *App) loadStatus() tea.Cmd {
	ctx := a.ctx
	return func() tea.Msg {
		syncStatus, err := a.ports.Sync.Status(ctx)
		if err != nil {
			return messages.StatusLoaded{Err: fmt.Errorf("sync status: %w", err)}
		}
		queues, err := a.ports.Queue.Counts(ctx)
		if err != nil {
			return messages.StatusLoaded{Err: fmt.Errorf("queue counts: %w", err)}
		}
		return messages.StatusLoaded{Sync: syncStatus, Queues: queues}
	}
}

func (a *App) runSync() tea.Cmd {
	ctx := a.ctx
	return func() tea.Msg {
		return messages.SyncFinished{Err: a.ports.Sync.PerformFullSync(ctx)}
	}
}

func (a *App) runUpload() tea.Cmd {
	ctx := a.ctx
	return func() tea.Msg {
		return messages.UploadFinished{Result: a.ports.Uploads.DoWork(ctx)}
	}
}

func (a *App) checkServer() tea.Cmd {
	ctx := a.ctx
	return func() tea.Msg {
		return messages.ServerStatusChanged{Status: a.ports.Health.CheckServerHealth(ctx)}
	}
}

func (a *App) tick() tea.Cmd {
	return tea.Tick(a.refreshInterval, func(t time.Time) tea.Msg {
		return messages.Tick{At: t}
	})
}

// waitForServerStatus blocks on the next published status.
// A closed subscription yields no message.
func waitForServerStatus(ch <-chan domain.ServerStatus) tea.Cmd {
	return func() tea.Msg {
		s, ok := <-ch
		if !ok {
			return nil
		}
		return messages.ServerStatusChanged{Status: s}
	}
}

func waitForPendingCount(ch <-chan int) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		n, ok := <-ch
		if !ok {
			return nil
		}
		return messages.PendingCountChanged{Count: n}
	}
}

func waitForProgress(ch <-chan messages.UploadProgress) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		return <-ch
	}
}

func progressLabel(p messages.UploadProgress) string {
	if p.Total <= 0 {
		return fmt.Sprintf("#%d %d bytes", p.UploadID, p.Sent)
	}
	return fmt.Sprintf("#%d %d%%", p.UploadID, p.Sent*100/p.Total)
}

// View implements tea.Model.
// It renders the dashboard as a string.
func (a *App) View() string {
	if !a.ready {
		return "Initialising..."
	}

	sections := []string{
		a.styles.Title.Render("docsync"),
		"",
		a.panel("Server", a.serverRows()),
		a.panel("Sync", a.syncRows()),
		a.panel("Uploads", a.uploadRows()),
	}
	if a.showHelp {
		sections = append(sections, a.viewHelp())
	}
	sections = append(sections, a.statusBar.View())

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

type row struct {
	label string
	value string
	style *lipgloss.Style
}

func (a *App) panel(title string, rows []row) string {
	lines := []string{a.styles.Subtitle.Render(title)}
	for _, r := range rows {
		style := a.styles.Value
		if r.style != nil {
			style = *r.style
		}
		lines = append(lines, a.styles.Label.Render(r.label)+style.Render(r.value))
	}
	return a.styles.Panel.Render(strings.Join(lines, "\n"))
}

func (a *App) serverRows() []row {
	style := a.styles.ServerStatus(a.server.Kind)
	rows := []row{{label: "Status", value: serverLabel(a.server), style: &style}}
	switch a.server.Kind {
	case domain.StatusOnline:
		rows = append(rows, row{label: "Last checked", value: formatTime(a.server.At)})
	case domain.StatusOffline:
		rows = append(rows, row{label: "Reason", value: a.server.Reason.Description()})
	case domain.StatusUnknown:
	}
	return rows
}

func (a *App) syncRows() []row {
	rows := []row{{label: "Pending changes", value: fmt.Sprint(a.pending)}}
	if a.pending > 0 {
		rows[0].style = &a.styles.Warning
	}
	if a.syncStatus == nil {
		return rows
	}
	state := "idle"
	if a.syncStatus.Running || a.syncing {
		state = "running"
	}
	return append(rows,
		row{label: "State", value: state},
		row{label: "Last full sync", value: formatTime(a.syncStatus.LastFullSync)},
		row{label: "Documents", value: fmt.Sprint(a.syncStatus.DocumentsSynced)},
		row{label: "Removed", value: fmt.Sprint(a.syncStatus.DocumentsRemoved)},
	)
}

func (a *App) uploadRows() []row {
	if a.queues == nil {
		return []row{{label: "Queue", value: "loading", style: &a.styles.Muted}}
	}
	u := a.queues.Uploads
	rows := []row{
		{label: "Pending", value: fmt.Sprint(u.Pending)},
		{label: "Uploading", value: fmt.Sprint(u.Uploading)},
		{label: "Failed", value: fmt.Sprint(u.Failed)},
		{label: "Completed", value: fmt.Sprint(u.Completed)},
	}
	if u.Failed > 0 {
		rows[2].style = &a.styles.Error
	}
	return rows
}

// viewHelp renders the help panel.
func (a *App) viewHelp() string {
	var lines []string
	for _, group := range a.keymap.FullHelp() {
		for _, b := range group {
			h := b.Help()
			lines = append(lines, fmt.Sprintf("  %-6s %s", h.Key, h.Desc))
		}
	}
	return a.styles.Panel.Render(a.styles.Subtitle.Render("Keys") + "\n" + strings.Join(lines, "\n"))
}

func serverLabel(s domain.ServerStatus) string {
	switch s.Kind {
	case domain.StatusOnline:
		return "online"
	case domain.StatusOffline:
		return "offline (" + string(s.Reason) + ")"
	case domain.StatusUnknown:
		return "unknown"
	default:
		return "unknown"
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}

// Run starts the dashboard.
func (a *App) Run() error {
	p := tea.NewProgram(a, tea.WithAltScreen(), tea.WithContext(a.ctx))
	_, err := p.Run()
	return err
}

// Server returns the last known server status.
func (a *App) Server() domain.ServerStatus {
	return a.server
}

// Pending returns the displayed pending change count.
func (a *App) Pending() int {
	return a.pending
}

// Syncing returns whether a dashboard-triggered sync is running.
func (a *App) Syncing() bool {
	return a.syncing
}

// Uploading returns whether a dashboard-triggered upload is running.
func (a *App) Uploading() bool {
	return a.uploading
}

// Err returns the last error that occurred.
func (a *App) Err() error {
	return a.err
}

// Ready returns whether the app has been initialised.
func (a *App) Ready() bool {
	return a.ready
}

// SetDimensions sets the terminal dimensions (for testing).
func (a *App) SetDimensions(width, height int) {
	a.width = width
	a.height = height
	a.ready = true
	a.statusBar.SetWidth(width)
}
