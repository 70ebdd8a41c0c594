package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"strconv"
	"syscall"
	"time"

	"github.com/ayusman/drape/internal/app"
	"github.com/ayusman/drape/internal/catalog"
	"github.com/ayusman/drape/internal/config"
	"github.com/ayusman/drape/internal/logging"
	"github.com/ayusman/drape/internal/server"
	"github.com/ayusman/drape/internal/store"
	"github.com/ayusman/drape/internal/tray"
)

func main() {
	var (
		configPath = flag.String("config", "", "path to a TOML config file (default ~/.drape/config.toml if present)")
		addr       = flag.String("addr", "", "HTTP listen address, overrides [server] addr")
		garmentID  = flag.String("garment", "", "garment id to activate at startup")
		useTray    = flag.Bool("tray", true, "show the system tray menu")
		cameraID   = flag.Int("camera", -1, "camera device id, overrides [camera] device")
		dumpConfig = flag.Bool("dump-config", false, "print the effective configuration and exit")
	)
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "drape: %v\n", err)
		os.Exit(1)
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "addr":
			cfg.Server.Addr = *addr
		case "garment":
			cfg.Catalog.Garment = *garmentID
		case "tray":
			cfg.Tray.Enabled = *useTray
		case "camera":
			cfg.Camera.DeviceID = *cameraID
		}
	})

	if *dumpConfig {
		if err := cfg.Encode(os.Stdout); err != nil {
			fmt.Fprintf(os.Stderr, "drape: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := logging.Setup(os.Stderr, cfg.Log); err != nil {
		fmt.Fprintf(os.Stderr, "drape: %v\n", err)
		os.Exit(1)
	}
	log := logging.For("main")

	if err := run(cfg); err != nil {
		log.Fatal("drape failed", "err", err)
	}
}

// loadConfig reads path, or the default config file when path is empty.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}
	def := filepath.Join(config.DataDir(), "config.toml")
	if _, err := os.Stat(def); err == nil {
		return config.Load(def)
	}
	return config.Default(), nil
}

func run(cfg *config.Config) error {
	log := logging.For("main")

	if err := os.MkdirAll(filepath.Dir(cfg.Store.Path), 0755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}
	st, err := store.New(cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("initialize store: %w", err)
	}
	defer st.Close()

	application, err := app.New(cfg.App(st))
	if err != nil {
		return err
	}

	cat := catalog.New(cfg.Catalog.Dir, st)
	cat.OnChange(func(ch catalog.Change) {
		active := application.ActiveGarment()
		if active == nil || active.ID != ch.ID {
			return
		}
		switch ch.Kind {
		case catalog.Loaded:
			// regenerate the mesh from the edited file
			if err := application.SelectGarment(ch.ID); err != nil {
				log.Warn("reload active garment", "id", ch.ID, "err", err)
			}
		case catalog.Removed:
			log.Warn("active garment removed from catalog; keeping it until switched", "id", ch.ID)
		}
	})
	if cfg.Catalog.Watch {
		err = cat.Watch()
	} else {
		_, err = cat.Scan()
	}
	if err != nil {
		return err
	}
	defer cat.Close()

	if err := activateGarment(application, cfg.Catalog.Garment); err != nil {
		log.Warn("no garment active", "err", err)
	}

	tracking, err := st.Settings().GetDefault(store.SettingTracking, "true")
	if err != nil {
		return err
	}
	enabled, _ := strconv.ParseBool(tracking)
	application.SetEnabled(enabled)

	if err := application.Start(); err != nil {
		log.Error("camera unavailable; serving without live capture", "err", err)
	}
	defer application.Stop()

	staticDir := cfg.Server.StaticDir
	if staticDir == "" {
		staticDir = findWebDir()
	}
	if staticDir != "" {
		log.Info("serving static files", "dir", staticDir)
	}

	srv := server.New(server.Config{
		StaticDir: staticDir,
		Store:     st,
		App:       application,
	})
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe(cfg.Server.Addr)
	}()
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.Warn("server shutdown", "err", err)
		}
	}()

	setTracking := func(on bool) {
		application.SetEnabled(on)
		if err := st.Settings().Set(store.SettingTracking, strconv.FormatBool(on)); err != nil {
			log.Warn("persist tracking state", "err", err)
		}
		log.Info("tracking toggled", "enabled", on)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	if !cfg.Tray.Enabled {
		select {
		case <-sigCh:
			log.Info("shutting down")
			return nil
		case err := <-errCh:
			return err
		}
	}

	t := tray.New()
	t.SetEnabled(enabled)
	if g := application.ActiveGarment(); g != nil {
		t.SetGarment(g.ID)
	}
	t.OnToggle(setTracking)
	t.OnNextGarment(application.NextGarment)
	t.OnPreview(func() {
		if err := openBrowser(previewURL(cfg.Server.Addr)); err != nil {
			log.Warn("open preview", "err", err)
		}
	})

	quit := make(chan error, 1)
	go func() {
		select {
		case <-sigCh:
			quit <- nil
		case err := <-errCh:
			quit <- err
		}
		t.Quit()
	}()

	// systray must own the main thread
	t.Run()
	log.Info("shutting down")
	select {
	case err := <-quit:
		return err
	default:
		return nil
	}
}

// activateGarment selects id, or the last session's garment, or the first
// catalog garment, in that order.
func activateGarment(a *app.App, id string) error {
	if id != "" {
		return a.SelectGarment(id)
	}
	if err := a.RestoreGarment(); err != nil && !errors.Is(err, store.ErrNotFound) {
		logging.For("main").Warn("restore garment", "err", err)
	}
	if a.ActiveGarment() != nil {
		return nil
	}
	_, err := a.NextGarment()
	return err
}

func previewURL(addr string) string {
	if len(addr) > 0 && addr[0] == ':' {
		addr = "localhost" + addr
	}
	return "http://" + addr + "/"
}

func openBrowser(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	return cmd.Start()
}

// findWebDir searches for the web directory in common locations.
// It checks: "web", "../web", "../../web", and ~/.drape/web.
// Returns the first existing directory or empty string if none found.
func findWebDir() string {
	for _, p := range []string{"web", "../web", "../../web"} {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			if abs, err := filepath.Abs(p); err == nil {
				return abs
			}
			return p
		}
	}

	homeWebDir := filepath.Join(config.DataDir(), "web")
	if info, err := os.Stat(homeWebDir); err == nil && info.IsDir() {
		return homeWebDir
	}
	return ""
}
