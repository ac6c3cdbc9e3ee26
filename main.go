package main

import (
	"context"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"velo/agent"
	"velo/config"
	"velo/db"
	"velo/model"
	"velo/provider"
	"velo/storage"
	"velo/tools"
	"velo/ui"
)

const Version = "v0.1.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	config.InitDebugLog(cfg.DataDir())

	database, err := db.Open(config.ExpandPath(cfg.Database.Path))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open database %s: %v\n", cfg.Database.Path, err)
		os.Exit(1)
	}
	defer database.Close()

	registry := tools.NewRegistry()
	if err := tools.RegisterDatabaseTools(registry, database); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to register tools: %v\n", err)
		os.Exit(1)
	}

	// External tool servers are optional; a failed one is logged and
	// skipped so the built-in tools keep working.
	ctx := context.Background()
	for _, entry := range cfg.MCPServers {
		srv, err := tools.StartMCPServer(ctx, registry, entry.ID, entry.Command, entry.Args, entry.Env)
		if err != nil {
			if config.DebugLog != nil {
				config.DebugLog.Printf("MCP server %s failed to start: %v", entry.ID, err)
			}
			continue
		}
		defer srv.Close()
	}

	credentials := config.NewCredentialStore(
		config.SecurityMethod(cfg.Security.Method), cfg.Security.SSHKeyPath)
	if needsPassphrase, _ := credentials.RequiresPassphrase(); needsPassphrase {
		pass := os.Getenv("VELO_SSH_PASSPHRASE")
		if pass == "" {
			fmt.Fprintf(os.Stderr, "SSH key %s requires a passphrase; set VELO_SSH_PASSPHRASE\n", cfg.Security.SSHKeyPath)
			os.Exit(1)
		}
		credentials.SetPassphrase(pass)
	}
	if err := credentials.Load(cfg.DataDir()); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load credentials: %v\n", err)
		os.Exit(1)
	}

	providerID := cfg.DefaultProvider
	entry := cfg.Provider(providerID)
	if entry == nil {
		fmt.Fprintf(os.Stderr, "Unknown provider %q\n", providerID)
		os.Exit(1)
	}

	baseURL := entry.BaseURL
	if baseURL == "" {
		baseURL = config.DefaultBaseURL(providerID)
	}

	agentCfg, err := cfg.ResolveAgentConfig(providerID, cfg.Mode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	llm, err := provider.NewProvider(provider.Config{
		Type:    provider.MapProviderIDToType(providerID),
		BaseURL: baseURL,
		Model:   agentCfg.Model,
		APIKey:  credentials.Get(providerID),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create provider: %v\n", err)
		os.Exit(1)
	}

	// The local server is checked up front but a failure is not fatal;
	// the first Send reports it in the status line either way. Cloud
	// providers are not pinged because their health checks cost a
	// request.
	if provider.MapProviderIDToType(providerID) == provider.ProviderTypeOllama {
		if err := llm.Ping(ctx); err != nil {
			if config.DebugLog != nil {
				config.DebugLog.Printf("provider %s ping failed: %v", providerID, err)
			}
		}
	}

	sessionStorage, err := storage.NewSessionStorage(cfg.DataDir())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize session storage: %v\n", err)
		os.Exit(1)
	}

	// The notify callback is bound to the program after construction:
	// the orchestrator needs it at creation, the program needs the view,
	// and the view needs the orchestrator.
	var program *tea.Program
	notify := func() {
		if program != nil {
			program.Send(ui.RefreshMsg{})
		}
	}

	resolve := func() model.AgentConfig { return agentCfg }
	orchestrator := agent.New(llm, registry, resolve, cfg.AutoAccept, notify)

	session := resumeSession(sessionStorage, orchestrator, cfg, agentCfg)

	program = tea.NewProgram(
		ui.NewAppView(orchestrator, cfg, sessionStorage, session, Version),
		tea.WithAltScreen(),
	)

	if _, err := program.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running velo: %v\n", err)
		os.Exit(1)
	}
}

// resumeSession reloads the last active session, or starts a fresh one.
func resumeSession(store *storage.SessionStorage, orchestrator *agent.Orchestrator, cfg *config.Config, agentCfg model.AgentConfig) *storage.Session {
	if id, err := store.LoadCurrentSessionID(); err == nil {
		if session, err := store.Load(id); err == nil {
			msgs := make([]*model.Message, len(session.Messages))
			for i := range session.Messages {
				m := session.Messages[i]
				msgs[i] = &m
			}
			if orchestrator.SetMessages(msgs) == nil {
				return session
			}
		}
	}

	return &storage.Session{
		Provider: agentCfg.Provider,
		Model:    agentCfg.Model,
		Mode:     cfg.Mode,
		Database: cfg.Database.Path,
	}
}
