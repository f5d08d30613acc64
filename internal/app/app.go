// Package app wires the application together: configuration in, a ready
// rag.System out. Setup owns the ordering constraints (migrations before the
// pool, the pool before the store, tool registration before the agent) so
// main and the CLI commands stay trivial.
package app

import (
	"log/slog"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lectern/lectern/internal/chat"
	"github.com/lectern/lectern/internal/config"
	"github.com/lectern/lectern/internal/rag"
	"github.com/lectern/lectern/internal/session"
	"github.com/lectern/lectern/internal/store"
	"github.com/lectern/lectern/internal/tools"
)

// App is the application container.
type App struct {
	Config *config.Config

	Genkit   *genkit.Genkit
	Embedder ai.Embedder
	DBPool   *pgxpool.Pool

	Store    *store.Store
	Registry *tools.Registry
	Agent    *chat.Agent
	Sessions *session.Manager
	RAG      *rag.System

	logger *slog.Logger
}

// Close releases held resources. Safe to call on a partially built App.
func (a *App) Close() error {
	if a.DBPool != nil {
		a.DBPool.Close()
		a.logger.Debug("database pool closed")
	}
	return nil
}
