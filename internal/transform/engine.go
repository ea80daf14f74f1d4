package transform

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"sync"

	"github.com/dop251/goja"
	"github.com/rs/zerolog/log"
	"github.com/tuncerburak97/securecall/internal/config"
	"github.com/tuncerburak97/securecall/internal/model"
)

// Engine rewrites log entries with per-source JavaScript before they are stored.
type Engine struct {
	config     config.TransformConfig
	scripts    map[string]*goja.Program
	scriptLock sync.RWMutex
}

// NewEngine compiles every script named in cfg.Scripts.
func NewEngine(cfg config.TransformConfig) (*Engine, error) {
	engine := &Engine{
		config:  cfg,
		scripts: make(map[string]*goja.Program),
	}

	if err := engine.loadScripts(); err != nil {
		return nil, err
	}

	return engine, nil
}

func (e *Engine) loadScripts() error {
	scripts := make(map[string]*goja.Program, len(e.config.Scripts))
	for source, name := range e.config.Scripts {
		path := name
		if !filepath.IsAbs(path) {
			path = filepath.Join(e.config.ScriptsDir, name)
		}
		program, err := compileScript(path)
		if err != nil {
			return fmt.Errorf("failed to compile script for source %s: %w", source, err)
		}
		scripts[source] = program
	}

	e.scriptLock.Lock()
	e.scripts = scripts
	e.scriptLock.Unlock()
	return nil
}

// Reload recompiles the configured scripts. The previous set stays active on error.
func (e *Engine) Reload() error {
	return e.loadScripts()
}

func compileScript(path string) (*goja.Program, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	return goja.Compile(path, string(content), true)
}

// HasScript reports whether entries from source are transformed.
func (e *Engine) HasScript(source string) bool {
	if e == nil {
		return false
	}
	e.scriptLock.RLock()
	defer e.scriptLock.RUnlock()
	return e.scripts[source] != nil
}

// TransformEntry runs the script registered for entry.Source. The script sees
// a global `entry` with source, path, client_ip, headers and body, and may
// modify headers and body in place. A nil engine is a no-op.
func (e *Engine) TransformEntry(entry *model.LogEntry) error {
	if e == nil || entry == nil {
		return nil
	}

	e.scriptLock.RLock()
	script := e.scripts[entry.Source]
	e.scriptLock.RUnlock()
	if script == nil {
		return nil
	}

	headers := make(map[string]interface{}, len(entry.Headers))
	for k, v := range entry.Headers {
		headers[k] = v
	}

	entryObj := map[string]interface{}{
		"source":    entry.Source,
		"path":      entry.Path,
		"client_ip": entry.ClientIP,
		"headers":   headers,
		"body":      nil,
	}
	// The script mutates the decoded body in place, so keep a second copy
	// to tell whether it changed.
	var original interface{}
	if len(entry.Body) > 0 {
		var body interface{}
		if err := json.Unmarshal(entry.Body, &body); err != nil {
			return fmt.Errorf("decode body: %w", err)
		}
		if err := json.Unmarshal(entry.Body, &original); err != nil {
			return fmt.Errorf("decode body: %w", err)
		}
		entryObj["body"] = body
	}

	vm := goja.New()
	if err := vm.Set("entry", entryObj); err != nil {
		return err
	}
	if err := vm.Set("log", func(msg string) {
		log.Debug().Str("source", entry.Source).Msg(msg)
	}); err != nil {
		return err
	}

	if _, err := vm.RunProgram(script); err != nil {
		return fmt.Errorf("run script for source %s: %w", entry.Source, err)
	}

	result, ok := vm.Get("entry").Export().(map[string]interface{})
	if !ok {
		return fmt.Errorf("script for source %s replaced entry with a non-object", entry.Source)
	}

	if raw, ok := result["headers"].(map[string]interface{}); ok {
		out := make(model.Headers, len(raw))
		for k, v := range raw {
			out.Set(k, fmt.Sprint(v))
		}
		entry.Headers = out
	}

	// An untouched body keeps the caller's bytes; a modified one is re-encoded.
	switch body := result["body"].(type) {
	case nil:
		entry.Body = nil
	default:
		if reflect.DeepEqual(body, original) {
			break
		}
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode transformed body: %w", err)
		}
		entry.Body = data
	}

	return nil
}
