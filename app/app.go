package app

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/searchktools/chat-server/chat"
	"github.com/searchktools/chat-server/config"
	"github.com/searchktools/chat-server/core"
)

// App wires configuration, the chat service and the reactor engine
type App struct {
	cfg    *config.Config
	engine *core.Engine
}

// New creates the application instance: the contact directory is loaded
// once, the service is constructed around it, the route table is
// registered and frozen, and the engine is bound to the result.
func New(cfg *config.Config) (*App, error) {
	contacts, err := chat.LoadContacts(cfg.ContactsPath)
	if err != nil {
		return nil, err
	}

	svc := chat.NewService(contacts)
	disp := Routes().Build(svc)

	return &App{
		cfg:    cfg,
		engine: core.NewEngine(disp),
	}, nil
}

// Run starts the server. It only returns on a setup failure; once the
// event loop is running, per-iteration errors are logged and absorbed.
func (a *App) Run() error {
	go a.awaitSignal()

	log.Printf("running chat server on %s, press ctrl-c to exit", a.cfg.Addr)
	return a.engine.Run(a.cfg.Addr)
}

func (a *App) awaitSignal() {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	sig := <-quit
	log.Printf("signal received: %v, shutting down", sig)
	os.Exit(0)
}
