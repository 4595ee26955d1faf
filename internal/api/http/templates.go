package httpapi

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/i474232898/mumbai-flood-alert/internal/flood"
)

//go:embed templates
var templatesDirEmbed embed.FS

var funcMap = template.FuncMap{
	"OneDecimal": func(n float64) string {
		return strconv.FormatFloat(n, 'f', 1, 64)
	},
	"RiskClass": func(r flood.RiskLevel) string {
		return strings.ToLower(r.String())
	},
}

// TemplateManager renders the dashboard pages. Templates are embedded unless an
// external directory is given, in which case they are reloaded on write.
type TemplateManager struct {
	templates *template.Template
	mutex     sync.RWMutex
	logger    *slog.Logger
	watcher   *fsnotify.Watcher
}

// NewTemplateManager loads the embedded templates, or extDir/*.html when extDir is not empty.
func NewTemplateManager(logger *slog.Logger, extDir string) (*TemplateManager, error) {
	if logger == nil {
		logger = slog.Default()
	}
	tm := &TemplateManager{
		logger: logger,
	}

	if extDir != "" {
		if err := tm.loadExternalTemplates(extDir); err != nil {
			return nil, err
		}
	} else if err := tm.loadInternalTemplates(); err != nil {
		return nil, err
	}

	return tm, nil
}

func (tm *TemplateManager) loadInternalTemplates() error {
	tm.logger.Debug("loading embedded templates...")
	tmpl, err := template.New("").Funcs(funcMap).ParseFS(templatesDirEmbed, "templates/*.html")
	if err != nil {
		return fmt.Errorf("failed to parse templates: %w", err)
	}
	tm.templates = tmpl
	return nil
}

func (tm *TemplateManager) loadExternalTemplates(extDir string) error {
	reload := func() error {
		tm.logger.Debug("loading external templates...", "dir", extDir)
		tmpl, err := template.New("").Funcs(funcMap).ParseGlob(filepath.Join(extDir, "*.html"))
		if err != nil {
			return fmt.Errorf("failed to parse templates: %w", err)
		}

		tm.mutex.Lock()
		tm.templates = tmpl
		tm.mutex.Unlock()
		return nil
	}

	if err := reload(); err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create template watcher: %w", err)
	}
	if err := watcher.Add(extDir); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("failed to watch templates: %w", err)
	}
	tm.watcher = watcher

	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
					if err := reload(); err != nil {
						tm.logger.Error("error reloading templates", slog.Any("error", err))
					} else {
						tm.logger.Debug("templates reloaded")
					}
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				tm.logger.Debug("error watching templates", slog.Any("error", err))
			}
		}
	}()

	return nil
}

// Execute renders the named template into a buffer.
func (tm *TemplateManager) Execute(name string, data any) (bytes.Buffer, error) {
	var buf bytes.Buffer

	tm.mutex.RLock()
	err := tm.templates.ExecuteTemplate(&buf, name, data)
	tm.mutex.RUnlock()

	if err != nil {
		return bytes.Buffer{}, fmt.Errorf("failed to execute template %s: %w", name, err)
	}

	return buf, nil
}

// Close stops watching external templates.
func (tm *TemplateManager) Close() error {
	if tm.watcher == nil {
		return nil
	}
	return tm.watcher.Close()
}
