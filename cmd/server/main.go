package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/leonardcser/web-offline/internal/cache"
	"github.com/leonardcser/web-offline/internal/config"
	"github.com/leonardcser/web-offline/internal/forms"
	"github.com/leonardcser/web-offline/internal/logger"
	"github.com/leonardcser/web-offline/internal/push"
	"github.com/leonardcser/web-offline/internal/queue"
	tools "github.com/leonardcser/web-offline/internal/tools"
	web "github.com/leonardcser/web-offline/internal/web"
	"github.com/leonardcser/web-offline/internal/worker"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		configPath    string
		serveMCP      bool
		embeddedCache bool
	)
	root := &cobra.Command{
		Use:           "web-offline",
		Short:         "Offline-first caching edge for the academy site",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if embeddedCache {
				cfg.Cache.Embedded = true
			}
			return serve(cmd.Context(), cfg, serveMCP)
		},
	}
	root.Flags().StringVarP(&configPath, "config", "c", os.Getenv("WEB_OFFLINE_CONFIG"), "path to YAML config file")
	root.Flags().BoolVar(&serveMCP, "mcp", false, "also serve admin tools over MCP on stdio")
	root.Flags().BoolVar(&embeddedCache, "embedded-cache", false, "open the cache database in-process instead of using the cache daemon")
	root.AddCommand(newDiscoverCmd())
	return root
}

func newDiscoverCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "discover <root-url>",
		Short: "List precache manifest candidates for a site",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			urls, err := web.Discover(cmd.Context(), web.NewClient(web.RequestTimeout), args[0])
			if err != nil {
				return err
			}
			for _, u := range urls {
				fmt.Fprintln(cmd.OutOrStdout(), u)
			}
			return nil
		},
	}
}

func serve(parent context.Context, cfg config.Config, serveMCP bool) error {
	if err := logger.InitFromEnv(); err != nil {
		return err
	}
	defer logger.Close()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Infof("Starting web-offline edge for %s", cfg.Origin)
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return err
	}

	store, closeStore, err := openStorage(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	q, err := queue.Open(cfg.QueueDB())
	if err != nil {
		return fmt.Errorf("open queue: %w", err)
	}
	defer q.Close()

	wcfg, err := worker.ConfigFrom(cfg)
	if err != nil {
		return err
	}
	netClient := web.NewClient(cfg.Cache.FetchTimeout)
	wk, err := worker.New(wcfg, store, netClient, web.NewPrecacher(web.RequestTimeout))
	if err != nil {
		return err
	}

	reg := &worker.Registration{}
	go func() {
		// Until install and activation finish, requests pass straight through.
		if err := reg.Register(ctx, wk); err != nil {
			logger.Errorf("Worker registration failed: %v", err)
		}
	}()

	deliver := forms.NewDeliverer(cfg.Forms.Endpoint, cfg.Forms.Timeout)
	center := push.NewCenter(cfg.Push.Title, cfg.Push.DefaultBody)
	handler := worker.NewHandler(wcfg.Origin, reg, netClient, q, deliver, forms.NewIntake(q, deliver), center)

	if !cfg.Probe.Disabled {
		tags := make([]string, 0, len(queue.Names()))
		for _, name := range queue.Names() {
			tag, _ := queue.SyncTag(name)
			tags = append(tags, tag)
		}
		probe := worker.NewProbe(cfg.Origin, netClient, tags, func(ctx context.Context, tag string) {
			if _, err := q.Sync(ctx, tag, deliver); err != nil {
				logger.Errorf("Background sync failed: %v", err)
			}
		})
		if err := probe.Start(ctx, cfg.Probe.Schedule); err != nil {
			return err
		}
		defer probe.Stop()
	}

	servers := []*http.Server{{Addr: cfg.Listen, Handler: handler, ReadHeaderTimeout: 10 * time.Second}}
	if cfg.AdminListen != "" {
		servers = append(servers, &http.Server{Addr: cfg.AdminListen, Handler: handler.Admin(), ReadHeaderTimeout: 10 * time.Second})
	}
	errCh := make(chan error, len(servers))
	for _, srv := range servers {
		go func() {
			logger.Infof("Listening on %s", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
		}()
	}

	if serveMCP {
		s := newMCPServer(reg, q, deliver, center)
		logger.Infof("Starting MCP server on stdio")
		if err := server.ServeStdio(s); err != nil {
			logger.Errorf("server error: %v", err)
		}
	} else {
		select {
		case <-ctx.Done():
		case err := <-errCh:
			_ = shutdown(servers)
			return err
		}
	}
	return shutdown(servers)
}

func shutdown(servers []*http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	logger.Infof("Shutting down")
	var errs []error
	for _, srv := range servers {
		errs = append(errs, srv.Shutdown(ctx))
	}
	return errors.Join(errs...)
}

func newMCPServer(reg *worker.Registration, q *queue.Store, deliver queue.Deliverer, center *push.Center) *server.MCPServer {
	s := server.NewMCPServer(
		"Web Offline",
		"0.1.0",
		server.WithRecovery(),
		server.WithToolCapabilities(false),
	)

	toolSync := mcp.NewTool("sync",
		mcp.WithDescription(multiline(
			"Replays deferred form submissions for one queue",
			"\nUsage notes:",
			"- contact-form-sync replays contact forms",
			"- registration-form-sync replays registration forms",
			"- Submissions that fail to deliver stay queued for the next sync",
		)),
		mcp.WithString("tag", mcp.Required(), mcp.Description("The sync tag naming the queue to replay")),
	)
	s.AddTool(toolSync, tools.SyncHandler(q, deliver))
	logger.Infof("Registered sync tool")

	toolPush := mcp.NewTool("push",
		mcp.WithDescription("Delivers a push message and shows it as a notification with View and Dismiss actions"),
		mcp.WithString("payload", mcp.Description("Text, HTML, or a JSON object with title, body and url")),
	)
	s.AddTool(toolPush, tools.PushHandler(center))

	toolClick := mcp.NewTool("notification-click",
		mcp.WithDescription("Clicks a notification action; view opens the site, anything else just closes it"),
		mcp.WithString("action", mcp.Description("view or dismiss")),
		mcp.WithString("tag", mcp.Description("Notification tag")),
	)
	s.AddTool(toolClick, tools.NotificationClickHandler(center))

	toolStatus := mcp.NewTool("cache-status",
		mcp.WithDescription("Shows the controlling cache version and the partitions in storage"),
	)
	s.AddTool(toolStatus, tools.CacheStatusHandler(reg))
	logger.Infof("Registered push, notification-click and cache-status tools")
	return s
}

// multiline joins lines with newlines for tool descriptions.
func multiline(lines ...string) string { return strings.Join(lines, "\n") }

// openStorage returns the cache partitions, either in-process or through the
// cache daemon, starting the daemon when it is not running.
func openStorage(cfg config.Config) (cache.Storage, func(), error) {
	if cfg.Cache.Embedded {
		s, err := cache.Open(cfg.CacheDB(), cache.Options{})
		if err != nil {
			return nil, nil, fmt.Errorf("open cache: %w", err)
		}
		return s, func() { _ = s.Close() }, nil
	}

	sock := cfg.Cache.Socket
	logger.Infof("Attempting to connect to cache daemon at %s", sock)
	client, err := connectCache(sock)
	if err != nil {
		logger.Warnf("Failed to connect to cache daemon: %v, attempting to start daemon", err)
		if startErr := startCacheDaemon(cfg); startErr != nil {
			logger.Errorf("Failed to start cache daemon: %v", startErr)
		} else {
			logger.Infof("Cache daemon started successfully")
		}
		// wait for socket to appear
		deadline := time.Now().Add(5 * time.Second)
		for time.Now().Before(deadline) {
			if c2, err2 := connectCache(sock); err2 == nil {
				client = c2
				err = nil
				break
			}
			time.Sleep(200 * time.Millisecond)
		}
		if client == nil {
			return nil, nil, fmt.Errorf("connect to cache daemon: %w", err)
		}
	}
	logger.Infof("Successfully connected to cache daemon")
	return client, func() {}, nil
}

func connectCache(sock string) (*cache.Client, error) {
	// quick probe
	conn, err := net.DialTimeout("unix", sock, 200*time.Millisecond)
	if err != nil {
		return nil, err
	}
	_ = conn.Close()
	return cache.NewClient(sock), nil
}

func startCacheDaemon(cfg config.Config) error {
	env := append(os.Environ(),
		"WEB_OFFLINE_CACHE_SOCKET="+cfg.Cache.Socket,
		"WEB_OFFLINE_CACHE_DB="+cfg.CacheDB(),
	)
	start := func(path string) error {
		cmd := exec.Command(path)
		cmd.Stdout = nil
		cmd.Stderr = nil
		cmd.Env = env
		return cmd.Start()
	}

	// 1) Try cache binary next to this server executable
	if exePath, err := os.Executable(); err == nil {
		sibling := filepath.Join(filepath.Dir(exePath), "web-offline-cache")
		if _, statErr := os.Stat(sibling); statErr == nil {
			return start(sibling)
		}
	}

	// 2) Try PATH binary
	if path, err := exec.LookPath("web-offline-cache"); err == nil {
		return start(path)
	}

	// 3) Try local binary in current working directory (best-effort)
	if _, err := os.Stat("./web-offline-cache"); err == nil {
		return start("./web-offline-cache")
	}

	return exec.ErrNotFound
}
