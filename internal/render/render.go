// Package render performs per-recipient substitution in campaign subjects
// and bodies using the Liquid template language.
//
// Dispatch uses lax mode: a missing variable renders as empty and a template
// that fails to parse falls back to its raw text, because a typo in one
// merge tag must never fail a batch.
package render

import (
	"fmt"
	"strings"
	"sync"

	"github.com/osteele/liquid"
	"github.com/relaycrm/campaign-engine/internal/domain"
	"github.com/relaycrm/campaign-engine/internal/pkg/logger"
)

// Renderer renders Liquid templates with per-campaign caching.
type Renderer struct {
	engine *liquid.Engine
	cache  sync.Map // template source -> *liquid.Template
}

// NewRenderer creates a renderer with the engine's custom filters registered.
func NewRenderer() *Renderer {
	engine := liquid.NewEngine()

	// {{ name | default: "there" }} — the one filter campaign authors
	// actually need for greeting lines.
	engine.RegisterFilter("default", func(value interface{}, defaultVal string) interface{} {
		if value == nil {
			return defaultVal
		}
		s := fmt.Sprintf("%v", value)
		if s == "" || s == "<nil>" {
			return defaultVal
		}
		return value
	})

	return &Renderer{engine: engine}
}

// Render substitutes vars into source. Lax: on parse or render failure the
// raw source is returned and the error logged.
func (r *Renderer) Render(source string, vars map[string]any) string {
	if source == "" || !strings.Contains(source, "{{") && !strings.Contains(source, "{%") {
		return source
	}

	tpl, err := r.parse(source)
	if err != nil {
		logger.Warn("template parse failed, sending raw", "error", err.Error())
		return source
	}

	out, err := tpl.RenderString(vars)
	if err != nil {
		logger.Warn("template render failed, sending raw", "error", err.Error())
		return source
	}
	return out
}

func (r *Renderer) parse(source string) (*liquid.Template, error) {
	if cached, ok := r.cache.Load(source); ok {
		return cached.(*liquid.Template), nil
	}
	tpl, err := r.engine.ParseString(source)
	if err != nil {
		return nil, err
	}
	r.cache.Store(source, tpl)
	return tpl, nil
}

// ContactVars builds the variable binding for one recipient. first_name is
// derived from the contact's display name for greeting lines.
func ContactVars(rcpt domain.Recipient) map[string]any {
	first := rcpt.Name
	if i := strings.IndexByte(first, ' '); i > 0 {
		first = first[:i]
	}
	return map[string]any{
		"name":       rcpt.Name,
		"first_name": first,
		"email":      rcpt.Email,
	}
}
