// Package tray provides the system tray menu for a drape session.
package tray

import (
	"sync"

	"github.com/getlantern/systray"
)

// Tray represents the system tray application.
type Tray struct {
	onToggle  func(enabled bool)
	onNext    func() (string, error)
	onPreview func()
	onQuit    func()
	enabled   bool
	garment   string
	mu        sync.RWMutex

	// Menu items stored for later updates
	menuToggle  *systray.MenuItem
	menuGarment *systray.MenuItem
}

// New creates a new Tray with tracking enabled.
func New() *Tray {
	return &Tray{
		enabled: true,
	}
}

// OnToggle sets the callback called when tracking is toggled.
func (t *Tray) OnToggle(fn func(enabled bool)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onToggle = fn
}

// OnNextGarment sets the callback that switches to the next garment and
// returns its id.
func (t *Tray) OnNextGarment(fn func() (string, error)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onNext = fn
}

// OnPreview sets the callback called when the preview menu item is clicked.
func (t *Tray) OnPreview(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onPreview = fn
}

// OnQuit sets the callback called when the quit menu item is clicked.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run starts the system tray application.
// This function blocks until systray.Quit() is called.
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

// Quit stops a running tray.
func (t *Tray) Quit() {
	systray.Quit()
}

// onReady is called when the system tray is ready.
func (t *Tray) onReady() {
	systray.SetTitle("Drape")
	systray.SetTooltip("Drape live try-on")

	t.mu.Lock()
	t.menuToggle = systray.AddMenuItem(toggleTitle(t.enabled), "Toggle body tracking")
	systray.AddSeparator()

	t.menuGarment = systray.AddMenuItem(garmentTitle(t.garment), "Active garment")
	t.menuGarment.Disable()
	t.mu.Unlock()

	menuNext := systray.AddMenuItem("Next Garment", "Switch to the next garment in the catalog")
	systray.AddSeparator()

	menuPreview := systray.AddMenuItem("Open Preview...", "Open the preview in a browser")
	systray.AddSeparator()

	menuQuit := systray.AddMenuItem("Quit", "Quit Drape")

	go func() {
		for {
			select {
			case <-t.menuToggle.ClickedCh:
				t.handleToggle()
			case <-menuNext.ClickedCh:
				t.handleNext()
			case <-menuPreview.ClickedCh:
				t.handlePreview()
			case <-menuQuit.ClickedCh:
				t.handleQuit()
				return
			}
		}
	}()
}

func (t *Tray) onExit() {}

func toggleTitle(enabled bool) string {
	if enabled {
		return "● Tracking"
	}
	return "○ Paused"
}

func garmentTitle(id string) string {
	if id == "" {
		return "Garment: none"
	}
	return "Garment: " + id
}

// handleToggle flips tracking and notifies the callback.
func (t *Tray) handleToggle() {
	t.mu.Lock()
	t.enabled = !t.enabled
	enabled := t.enabled
	if t.menuToggle != nil {
		t.menuToggle.SetTitle(toggleTitle(enabled))
	}
	callback := t.onToggle
	t.mu.Unlock()

	// Call the callback outside the lock to prevent deadlocks
	if callback != nil {
		callback(enabled)
	}
}

// handleNext switches garment and updates the label on success.
func (t *Tray) handleNext() {
	t.mu.RLock()
	callback := t.onNext
	t.mu.RUnlock()

	if callback == nil {
		return
	}
	if id, err := callback(); err == nil {
		t.SetGarment(id)
	}
}

func (t *Tray) handlePreview() {
	t.mu.RLock()
	callback := t.onPreview
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

func (t *Tray) handleQuit() {
	t.mu.RLock()
	callback := t.onQuit
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}

	systray.Quit()
}

// SetGarment updates the active garment label.
func (t *Tray) SetGarment(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.garment = id
	if t.menuGarment != nil {
		t.menuGarment.SetTitle(garmentTitle(id))
	}
}

// Garment returns the garment id shown in the menu.
func (t *Tray) Garment() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.garment
}

// SetEnabled updates the tracking state without calling OnToggle.
func (t *Tray) SetEnabled(enabled bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.enabled = enabled
	if t.menuToggle != nil {
		t.menuToggle.SetTitle(toggleTitle(enabled))
	}
}

// IsEnabled returns the current enabled state.
func (t *Tray) IsEnabled() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.enabled
}
