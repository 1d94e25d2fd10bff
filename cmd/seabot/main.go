package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/HKUDS/seabot-go/pkg/chat"
	"github.com/HKUDS/seabot-go/pkg/config"
	seacron "github.com/HKUDS/seabot-go/pkg/cron"
	"github.com/HKUDS/seabot-go/pkg/gateway"
	"github.com/HKUDS/seabot-go/pkg/processing"
	"github.com/HKUDS/seabot-go/pkg/providers"
	"github.com/HKUDS/seabot-go/pkg/router"
	"github.com/HKUDS/seabot-go/pkg/seatalk"
	"github.com/HKUDS/seabot-go/pkg/utils"
	"github.com/HKUDS/seabot-go/pkg/workflows"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: seabot <command> [args]")
		fmt.Println("Commands: serve, onboard")
		os.Exit(1)
	}

	switch cmd := os.Args[1]; cmd {
	case "serve":
		runServe(os.Args[2:])
	case "onboard":
		runOnboard()
	default:
		fmt.Printf("Unknown command: %s\n", cmd)
		os.Exit(1)
	}
}

func runServe(args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("c", "", "Path to config file")
	fs.Parse(args)

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	utils.SetupLogger(cfg.LogDir)

	// SeaTalk client with the shared token manager.
	auth := seatalk.NewTokenManager(cfg.SeaTalk.AppID, cfg.SeaTalk.AppSecret, cfg.SeaTalk.AuthURL, nil)
	client := seatalk.NewClient(auth, cfg.SeaTalk.APIBaseURL, nil)

	provider := providers.NewOpenAIProvider(cfg.LLM.APIKey, cfg.LLM.BaseURL, cfg.LLM.Model)

	// Event handling: platform automation + keyword workflows + chat.
	automation := workflows.NewAutomation(client, &cfg.Bot)
	manager := workflows.NewManager(automation, nil, client)
	chatWorkflow := chat.NewWorkflow(client, provider, &cfg.LLM, &cfg.Bot)
	eventRouter := router.New(manager, chatWorkflow)

	processor := processing.NewProcessor(eventRouter, cfg.Webhook.WorkerCount, cfg.Webhook.QueueMaxSize)
	processor.Start()
	defer processor.Stop()

	announcer := seacron.NewService(client, cfg.Announcements)
	announcer.Start()
	defer announcer.Stop()

	server := gateway.NewServer(cfg.Gateway.Host, cfg.Gateway.Port, processor)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil {
			log.Printf("Gateway error: %v", err)
			os.Exit(1)
		}
	case sig := <-stop:
		log.Printf("Received %s, shutting down...", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			log.Printf("Gateway shutdown error: %v", err)
		}
	}
}

func runOnboard() {
	configFile := filepath.Join(".seabot", "config.json")
	if _, err := os.Stat(configFile); err == nil {
		fmt.Printf("Config file already exists at %s\n", configFile)
		return
	}

	if err := config.WriteDefault(configFile); err != nil {
		fmt.Printf("Error writing config file: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Created config file at %s\n", configFile)
	fmt.Println("Onboarding complete! Add your SeaTalk app credentials and LLM API key.")
}
