// Package router composes the classifier, the app launcher, and the AI
// session manager into the end-to-end command decision.
package router

import (
	"context"
	"strings"

	log "log/slog"

	"darvis/internal/ai"
	"darvis/internal/apps"
	"darvis/internal/classify"
)

type Kind int

const (
	LocalSuccess Kind = iota
	LocalFailure
	AISuccess
	AITimeout
	AIUnavailable
	AIBusy
	AIError
	Cancelled
)

func (k Kind) String() string {
	switch k {
	case LocalSuccess:
		return "local-success"
	case LocalFailure:
		return "local-failure"
	case AISuccess:
		return "ai-success"
	case AITimeout:
		return "ai-timeout"
	case AIUnavailable:
		return "ai-unavailable"
	case AIBusy:
		return "ai-busy"
	case AIError:
		return "ai-error"
	case Cancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Outcome is what the presentation layer receives: a non-empty display
// string, free of control characters, plus the session id when the AI
// answered.
type Outcome struct {
	Kind      Kind
	Text      string
	SessionID string
}

// Launcher is the local action executor.
type Launcher interface {
	Open(name string) apps.Result
}

// Assistant is the AI session manager.
type Assistant interface {
	Send(ctx context.Context, query string) ai.Result
}

// Sink receives lifecycle status events (thinking, speaking, success,
// error). Implementations must not block.
type Sink interface {
	Update(status, tooltip string)
}

type Router struct {
	launcher Launcher
	ai       Assistant
	status   Sink
}

// New builds a router. status may be nil.
func New(launcher Launcher, assistant Assistant, status Sink) *Router {
	return &Router{launcher: launcher, ai: assistant, status: status}
}

// Route classifies text, tries the local launcher for local commands,
// and falls back to the AI with the original unmodified text when the
// local target is not found. Unclassified input goes straight to the AI.
func (r *Router) Route(ctx context.Context, text string) Outcome {
	decision := classify.Classify(text)

	if decision.Kind == classify.Local {
		result := r.launcher.Open(decision.Target)
		switch result.Status {
		case apps.Launched:
			r.update("success", result.Message)
			return Outcome{Kind: LocalSuccess, Text: result.Message}
		case apps.NotFound:
			log.Info("local target not found, falling back to AI", "target", decision.Target)
		default:
			r.update("error", result.Message)
			return Outcome{Kind: LocalFailure, Text: result.Message}
		}
	}

	r.update("thinking", "Asking AI")
	out := r.sendAI(ctx, text)
	switch out.Kind {
	case AISuccess:
		r.update("success", "AI responded")
	case Cancelled:
		r.update("idle", "Cancelled")
	default:
		r.update("error", out.Text)
	}
	return out
}

func (r *Router) sendAI(ctx context.Context, text string) Outcome {
	result := r.ai.Send(ctx, text)

	display := sanitize(result.Text)
	if result.Warning != "" {
		display += "\nWarning: " + result.Warning
	}

	return Outcome{
		Kind:      kindFor(result.Status),
		Text:      display,
		SessionID: result.SessionID,
	}
}

func kindFor(status ai.Status) Kind {
	switch status {
	case ai.StatusOK:
		return AISuccess
	case ai.StatusTimeout:
		return AITimeout
	case ai.StatusUnavailable:
		return AIUnavailable
	case ai.StatusBusy:
		return AIBusy
	case ai.StatusCancelled:
		return Cancelled
	default:
		return AIError
	}
}

func (r *Router) update(status, tooltip string) {
	if r.status != nil {
		r.status.Update(status, tooltip)
	}
}

// sanitize keeps responses safe for display and speech synthesis:
// control characters other than newline are dropped.
func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, s)
}
